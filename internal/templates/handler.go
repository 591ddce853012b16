package templates

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
)

// RegisterRoutes exposes the public catalog.
func RegisterRoutes(r gin.IRoutes) {
	r.GET("/templates", func(c *gin.Context) {
		list, err := Catalog()
		if err != nil {
			telemetry.Error("templates.catalog_failed", map[string]any{"error": err.Error()})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "template catalog unavailable", nil)
			return
		}
		respond.OK(c, gin.H{"templates": list, "default": DefaultID()})
	})
}
