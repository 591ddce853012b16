package deployments

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/shared/validation"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/deployments", h.deploy)
}

// RegisterPollingRoutes attaches the status route clients poll.
func (h *Handler) RegisterPollingRoutes(rg *gin.RouterGroup) {
	rg.GET("/deployments/status", h.status)
}

type deployRequest struct {
	PortfolioID string `json:"portfolio_id" validate:"required"`
}

func (h *Handler) deploy(c *gin.Context) {
	var req deployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.PortfolioID = strings.TrimSpace(req.PortfolioID)
	if err := validation.Struct(req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", validation.Message(err), validation.Details(err))
		return
	}
	d, err := h.Svc.Deploy(c.Request.Context(), req.PortfolioID)
	if err != nil {
		h.fail(c, "deployments.create_failed", err)
		return
	}
	c.Set(middleware.LogDeploymentID, d.ID)
	respond.Accepted(c, gin.H{"status": d.Status, "deployment_id": d.ID})
}

func (h *Handler) status(c *gin.Context) {
	portfolioID := strings.TrimSpace(c.Query("portfolio_id"))
	if portfolioID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "portfolio_id is required", nil)
		return
	}
	view, err := h.Svc.Status(c.Request.Context(), portfolioID)
	if err != nil {
		h.fail(c, "deployments.status_failed", err)
		return
	}
	respond.OK(c, view)
}

func (h *Handler) fail(c *gin.Context, event string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "deployment not found", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	default:
		telemetry.Error(event, map[string]any{
			"error":      err.Error(),
			"request_id": middleware.RequestIDFromContext(c),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "deployment request failed", nil)
	}
}
