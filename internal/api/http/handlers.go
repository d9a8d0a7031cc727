package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/glasswinglabs/glasswing/internal/domain/extension"
	"github.com/glasswinglabs/glasswing/internal/domain/session"
	"github.com/glasswinglabs/glasswing/internal/domain/suggest"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/logging"
	"github.com/glasswinglabs/glasswing/internal/infrastructure/monitoring"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	sessions   *session.Manager
	suggest    *suggest.Service
	extensions *extension.Registry
	log        *logging.Logger
	metrics    *monitoring.Metrics

	screenshotQuality int
}

// NewHandlers creates a new handler set. The extension registry may be nil
// when the registry is disabled by configuration.
func NewHandlers(
	sessions *session.Manager,
	suggestSvc *suggest.Service,
	extensions *extension.Registry,
	log *logging.Logger,
	metrics *monitoring.Metrics,
	screenshotQuality int,
) *Handlers {
	return &Handlers{
		sessions:          sessions,
		suggest:           suggestSvc,
		extensions:        extensions,
		log:               log,
		metrics:           metrics,
		screenshotQuality: screenshotQuality,
	}
}

// Root handles the liveness check.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "Glasswing",
		"version": "0.1.0",
	})
}

// Health handles the detailed health check.
func (h *Handlers) Health(c *gin.Context) {
	extensionCount := 0
	if h.extensions != nil {
		extensionCount = len(h.extensions.List())
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"sessions": gin.H{
			"active": len(h.sessions.List()),
		},
		"extensions": gin.H{
			"enabled":    h.extensions != nil,
			"registered": extensionCount,
		},
	})
}

// Stats returns aggregate runtime counters as JSON.
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.metrics.GetStats())
}
