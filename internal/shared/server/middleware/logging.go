package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/telemetry"
)

// Context keys handlers set so the request log carries the entity it touched.
const (
	LogDocumentID   = "documentId"
	LogParseID      = "parseId"
	LogPortfolioID  = "portfolioId"
	LogDeploymentID = "deploymentId"
	LogTransition   = "statusTransition"
)

var entityLogFields = map[string]string{
	LogDocumentID:   "document_id",
	LogParseID:      "parse_id",
	LogPortfolioID:  "portfolio_id",
	LogDeploymentID: "deployment_id",
	LogTransition:   "status_transition",
}

// quietPaths are scraped often enough that logging them is noise.
var quietPaths = map[string]bool{
	"/metrics":       true,
	"/api/v1/health": true,
}

// Logging emits one structured line per request and feeds the HTTP metrics.
// Preflights are not logged.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		durationMs := float64(time.Since(start).Microseconds()) / 1000.0
		status := c.Writer.Status()
		metrics.ObserveHTTPRequest(status, durationMs)

		route := c.FullPath()
		if quietPaths[route] && status < http.StatusInternalServerError {
			return
		}
		if route == "" {
			route = "unmatched"
		}

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       route,
			"status":      status,
			"bytes":       c.Writer.Size(),
			"duration_ms": durationMs,
			"user_id":     c.GetString(userIDKey),
			"is_guest":    c.GetBool("isGuest"),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		for key, field := range entityLogFields {
			if v := c.GetString(key); v != "" {
				fields[field] = v
			}
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}

		switch {
		case status >= http.StatusInternalServerError:
			telemetry.Error("request.complete", fields)
		case status >= http.StatusBadRequest:
			telemetry.Warn("request.complete", fields)
		default:
			telemetry.Info("request.complete", fields)
		}
	}
}
