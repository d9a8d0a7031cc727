package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/glasswinglabs/glasswing/internal/infrastructure/tracing"
)

// CORS allows the configured UI origins. An empty list allows every origin.
// Credentials are only honored with an explicit origin list; browsers refuse
// credentialed wildcard responses.
func CORS(origins []string) gin.HandlerFunc {
	allowAll := len(origins) == 0

	cfg := cors.Config{
		AllowAllOrigins: allowAll,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Content-Type",
			"Content-Length",
			"Accept",
			"Origin",
			"Authorization",
			"Cache-Control",
			"X-Requested-With",
			tracing.HeaderTrace,
			tracing.HeaderSpan,
		},
		// The UI reads the assigned trace pair off every response.
		ExposeHeaders:    []string{tracing.HeaderTrace, tracing.HeaderSpan},
		AllowCredentials: !allowAll,
		MaxAge:           12 * time.Hour,
	}
	if !allowAll {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}
