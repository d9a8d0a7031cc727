package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
)

// FileEnv names the environment variable pointing at an optional YAML file of
// environment overrides. Values from the file never shadow variables already
// present in the process environment.
const FileEnv = "GLASSWING_CONFIG"

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Logging    LogConfig
	Engine     EngineConfig
	Stream     StreamConfig
	Session    SessionConfig
	Extensions ExtensionsConfig
	Suggest    SuggestConfig
	CORS       CORSConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// EngineConfig holds browser engine configuration.
type EngineConfig struct {
	Headless        bool          `envconfig:"ENGINE_HEADLESS" default:"true"`
	ViewportWidth   int           `envconfig:"ENGINE_VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight  int           `envconfig:"ENGINE_VIEWPORT_HEIGHT" default:"720"`
	UserAgent       string        `envconfig:"ENGINE_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
	NavigateTimeout time.Duration `envconfig:"ENGINE_NAVIGATE_TIMEOUT" default:"30s"`
	ActionTimeout   time.Duration `envconfig:"ENGINE_ACTION_TIMEOUT" default:"5s"`
	CaptureTimeout  time.Duration `envconfig:"ENGINE_CAPTURE_TIMEOUT" default:"3s"`
	InstallDriver   bool          `envconfig:"ENGINE_INSTALL_DRIVER" default:"false"`
}

// StreamConfig holds frame streaming configuration.
type StreamConfig struct {
	FrameRate         int           `envconfig:"STREAM_FRAME_RATE" default:"10"`
	StreamQuality     int           `envconfig:"STREAM_QUALITY" default:"40"`
	ScreenshotQuality int           `envconfig:"SCREENSHOT_QUALITY" default:"60"`
	WriteTimeout      time.Duration `envconfig:"STREAM_WRITE_TIMEOUT" default:"5s"`
}

// SessionConfig holds session lifecycle configuration.
type SessionConfig struct {
	IdleTimeout   time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"5m"`
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"30s"`
	MaxSessions   int           `envconfig:"SESSION_MAX" default:"32"`
}

// ExtensionsConfig holds extension registry configuration.
type ExtensionsConfig struct {
	Enabled bool   `envconfig:"EXTENSIONS_ENABLED" default:"true"`
	DataDir string `envconfig:"EXTENSIONS_DATA_DIR" default:""`
}

// SuggestConfig holds search suggestion service configuration.
type SuggestConfig struct {
	BaseURL           string        `envconfig:"SUGGEST_BASE_URL" default:"https://api.openai.com/v1"`
	APIKey            string        `envconfig:"SUGGEST_API_KEY" default:""`
	Model             string        `envconfig:"SUGGEST_MODEL" default:"gpt-4o-mini"`
	Temperature       float64       `envconfig:"SUGGEST_TEMPERATURE" default:"0.7"`
	MaxTokens         int           `envconfig:"SUGGEST_MAX_TOKENS" default:"200"`
	Timeout           time.Duration `envconfig:"SUGGEST_TIMEOUT" default:"10s"`
	RequestsPerSecond int           `envconfig:"SUGGEST_RPS" default:"5"`
}

// CORSConfig holds cross-origin configuration for the REST surface. An
// empty origin list allows any origin.
type CORSConfig struct {
	Origins []string `envconfig:"CORS_ORIGINS" default:""`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"50"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"100"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables, applying the optional
// YAML override file named by GLASSWING_CONFIG first.
func Load() (*Config, error) {
	if path := os.Getenv(FileEnv); path != "" {
		if err := applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to apply config file: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with. A zero
// session limit means unlimited and passes.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must not be empty")
	}
	if c.Engine.ViewportWidth < 1 || c.Engine.ViewportHeight < 1 {
		return fmt.Errorf("viewport must be at least 1x1, got %dx%d",
			c.Engine.ViewportWidth, c.Engine.ViewportHeight)
	}
	if c.Stream.FrameRate < 1 || c.Stream.FrameRate > 60 {
		return fmt.Errorf("stream frame rate must be between 1 and 60, got %d", c.Stream.FrameRate)
	}
	if q := c.Stream.StreamQuality; q < 1 || q > 100 {
		return fmt.Errorf("stream quality must be between 1 and 100, got %d", q)
	}
	if q := c.Stream.ScreenshotQuality; q < 1 || q > 100 {
		return fmt.Errorf("screenshot quality must be between 1 and 100, got %d", q)
	}
	if c.Session.MaxSessions < 0 {
		return fmt.Errorf("session limit must not be negative, got %d", c.Session.MaxSessions)
	}
	return nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// applyFile reads a YAML map of environment variable names to values and sets
// every entry that is not already present in the process environment.
func applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var overrides map[string]string
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	for key, value := range overrides {
		if _, present := os.LookupEnv(key); !present {
			if err := os.Setenv(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		Engine: EngineConfig{
			Headless:        true,
			ViewportWidth:   1280,
			ViewportHeight:  720,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			NavigateTimeout: 30 * time.Second,
			ActionTimeout:   5 * time.Second,
			CaptureTimeout:  3 * time.Second,
		},
		Stream: StreamConfig{
			FrameRate:         10,
			StreamQuality:     40,
			ScreenshotQuality: 60,
			WriteTimeout:      5 * time.Second,
		},
		Session: SessionConfig{
			IdleTimeout:   5 * time.Minute,
			SweepInterval: 30 * time.Second,
			MaxSessions:   32,
		},
		Extensions: ExtensionsConfig{
			Enabled: true,
		},
		Suggest: SuggestConfig{
			BaseURL:           "https://api.openai.com/v1",
			Model:             "gpt-4o-mini",
			Temperature:       0.7,
			MaxTokens:         200,
			Timeout:           10 * time.Second,
			RequestsPerSecond: 5,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 50,
			Burst:             100,
			Enabled:           true,
		},
	}
}
