package middleware

import (
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 error envelope. Panics from a
// client that already hung up are dropped by gin without a response.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		telemetry.Error("http.panic", map[string]any{
			"request_id":   RequestIDFromContext(c),
			"user_id":      UserIDFromContext(c),
			"error":        rec,
			"stack":        string(debug.Stack()),
			"path":         c.Request.URL.Path,
			"route":        c.FullPath(),
			"method":       c.Request.Method,
			"wrote_header": c.Writer.Written(),
		})
		if c.Writer.Written() {
			c.Abort()
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "unexpected server error", nil)
	})
}
