package server

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/glasswinglabs/glasswing/internal/api/http"
	"github.com/glasswinglabs/glasswing/internal/api/middleware"
	"github.com/glasswinglabs/glasswing/internal/api/ws"
	"github.com/glasswinglabs/glasswing/internal/domain/extension"
	"github.com/glasswinglabs/glasswing/internal/domain/frame"
	"github.com/glasswinglabs/glasswing/internal/domain/input"
	"github.com/glasswinglabs/glasswing/internal/domain/session"
	"github.com/glasswinglabs/glasswing/internal/domain/stream"
	"github.com/glasswinglabs/glasswing/internal/domain/suggest"
	"github.com/glasswinglabs/glasswing/internal/engine"
	"github.com/glasswinglabs/glasswing/internal/engine/chromium"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/config"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/monitoring"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/tracing"
	"github.com/glasswinglabs/glasswing/internal/llm"
	"github.com/glasswinglabs/glasswing/internal/shared/paths"
)

const shutdownTimeout = 10 * time.Second

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	sessions *session.Manager
	hub      *stream.Hub
	registry *extension.Registry
	eng      engine.Engine
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	logger.Info("Initializing Glasswing server",
		zap.String("port", cfg.Server.Port),
		zap.Bool("headless", cfg.Engine.Headless),
	)

	// Metrics first, everything else records through them.
	metrics := monitoring.NewMetrics()
	tracer := tracing.New("glasswing", logger.Logger)

	eng, err := chromium.New(logger.Named("engine"), cfg.Engine.InstallDriver)
	if err != nil {
		return nil, fmt.Errorf("start browser engine: %w", err)
	}
	logger.Info("Browser engine started")

	// Extension registry (optional).
	var reg *extension.Registry
	var launchArgs func() []string
	if cfg.Extensions.Enabled {
		layout := paths.NewLayout(cfg.Extensions.DataDir)
		if err := layout.Ensure(); err != nil {
			eng.Close()
			return nil, fmt.Errorf("prepare data directory: %w", err)
		}
		store, err := extension.OpenStore(layout.Database())
		if err != nil {
			eng.Close()
			return nil, fmt.Errorf("open extension store: %w", err)
		}
		reg, err = extension.NewRegistry(context.Background(), store, extension.NewPacker(layout.Packed()), logger.Named("extension"), metrics)
		if err != nil {
			store.Close()
			eng.Close()
			return nil, fmt.Errorf("load extension registry: %w", err)
		}
		launchArgs = reg.LaunchArgs
		logger.Info("Extension registry loaded",
			zap.String("data_dir", layout.Root),
			zap.Int("extensions", len(reg.List())),
		)
	} else {
		logger.Info("Extension registry disabled")
	}

	frames := frame.NewBuffer()
	sessions := session.NewManager(session.Config{
		IdleTimeout:   cfg.Session.IdleTimeout,
		SweepInterval: cfg.Session.SweepInterval,
		MaxSessions:   cfg.Session.MaxSessions,
		Engine: engine.Options{
			Headless:        cfg.Engine.Headless,
			ViewportWidth:   cfg.Engine.ViewportWidth,
			ViewportHeight:  cfg.Engine.ViewportHeight,
			UserAgent:       cfg.Engine.UserAgent,
			NavigateTimeout: cfg.Engine.NavigateTimeout,
			ActionTimeout:   cfg.Engine.ActionTimeout,
			CaptureTimeout:  cfg.Engine.CaptureTimeout,
		},
	}, eng, frames, launchArgs, logger.Named("session"), metrics)

	hub := stream.NewHub(stream.Config{
		FrameRate:    cfg.Stream.FrameRate,
		Quality:      cfg.Stream.StreamQuality,
		WriteTimeout: cfg.Stream.WriteTimeout,
	}, sessions, logger.Named("stream"), metrics)
	sessions.OnRelease(hub.HandleRelease)

	inputRouter := input.NewRouter(sessions, metrics)

	completer := llm.New(llm.Config{
		BaseURL:           cfg.Suggest.BaseURL,
		APIKey:            cfg.Suggest.APIKey,
		Model:             cfg.Suggest.Model,
		Temperature:       cfg.Suggest.Temperature,
		MaxTokens:         cfg.Suggest.MaxTokens,
		Timeout:           cfg.Suggest.Timeout,
		RequestsPerSecond: cfg.Suggest.RequestsPerSecond,
	}, logger.Named("llm"))
	suggestSvc := suggest.NewService(completer, logger.Named("suggest"), metrics)

	// Router and middleware.
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(cfg.CORS.Origins))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := http.NewHandlers(sessions, suggestSvc, reg, logger.Named("http"), metrics, cfg.Stream.ScreenshotQuality)
	wsHandler := ws.NewHandler(sessions, hub, inputRouter, logger.Named("ws"), metrics)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)
	router.GET("/stats", handlers.Stats)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/logs", handlers.IngestLogs)

	// Session lifecycle
	router.POST("/browser/session", handlers.CreateSession)
	router.GET("/browser/sessions", handlers.ListSessions)
	router.GET("/browser/session/:id/status", handlers.SessionStatus)
	router.DELETE("/browser/session/:id", handlers.CloseSession)

	// Navigation and input
	router.POST("/browser/:id/navigate", handlers.Navigate)
	router.POST("/browser/:id/back", handlers.Back)
	router.POST("/browser/:id/forward", handlers.Forward)
	router.POST("/browser/:id/refresh", handlers.Refresh)
	router.GET("/browser/:id/screenshot", handlers.Screenshot)
	router.POST("/browser/:id/click", handlers.Click)
	router.POST("/browser/:id/type", handlers.Type)
	router.POST("/browser/:id/keypress", handlers.Keypress)
	router.POST("/browser/:id/scroll", handlers.Scroll)

	// Streaming channel
	router.GET("/browser/ws/:id", wsHandler.HandleConnection)

	// Search suggestions
	router.GET("/search/suggestions", handlers.SearchSuggestions)

	// Extensions
	router.GET("/extensions", handlers.ListExtensions)
	router.POST("/extensions/load", handlers.LoadExtension)
	router.POST("/extensions/pack", handlers.PackExtension)
	router.POST("/extensions/:id/toggle", handlers.ToggleExtension)
	router.DELETE("/extensions/:id", handlers.RemoveExtension)

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		sessions: sessions,
		hub:      hub,
		registry: reg,
		eng:      eng,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
		tracer:   tracer,
	}, nil
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Close gracefully shuts down the server. Channels close before sessions so
// clients see a close frame instead of a dead socket.
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.hub.Shutdown()
	if err := s.sessions.Shutdown(ctx); err != nil {
		s.logger.Error("Session shutdown incomplete", zap.Error(err))
	}
	if s.registry != nil {
		if err := s.registry.Close(); err != nil {
			s.logger.Error("Failed to close extension registry", zap.Error(err))
		}
	}
	if err := s.eng.Close(); err != nil {
		s.logger.Error("Failed to stop browser engine", zap.Error(err))
		return fmt.Errorf("stop browser engine: %w", err)
	}
	s.tracer.Close()

	s.logger.Sync()
	return nil
}
