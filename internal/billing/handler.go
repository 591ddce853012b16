package billing

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
	rg.POST("/checkout/sessions", h.createSession)
	rg.POST("/checkout/verify", h.verify)
}

type createSessionRequest struct {
	PortfolioID string `json:"portfolio_id" validate:"required"`
	Subdomain   string `json:"subdomain" validate:"required,subdomain"`
	UserID      string `json:"user_id" validate:"required"`
}

type verifyRequest struct {
	SessionID string `json:"session_id" validate:"required"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.Subdomain = strings.ToLower(strings.TrimSpace(req.Subdomain))
	if err := validation.Struct(req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", validation.Message(err), validation.Details(err))
		return
	}
	if caller := middleware.UserIDFromContext(c); caller != "" && caller != req.UserID {
		respond.Error(c, http.StatusForbidden, "forbidden", "user_id does not match the caller", nil)
		return
	}

	sess, err := h.Svc.CreateCheckout(c.Request.Context(), CheckoutRequest{
		PortfolioID: req.PortfolioID,
		Subdomain:   req.Subdomain,
		UserID:      req.UserID,
	})
	if err != nil {
		h.fail(c, "billing.checkout_failed", err)
		return
	}
	respond.OK(c, gin.H{"id": sess.ID, "url": sess.URL})
}

func (h *Handler) verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if err := validation.Struct(req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", validation.Message(err), validation.Details(err))
		return
	}
	out, err := h.Svc.Verify(c.Request.Context(), req.SessionID)
	if err != nil {
		h.fail(c, "billing.verify_failed", err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) fail(c *gin.Context, event string, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrUserNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "user not found", nil)
	case errors.Is(err, ErrSessionNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "checkout session not found", nil)
	default:
		telemetry.Error(event, map[string]any{
			"error":      err.Error(),
			"request_id": middleware.RequestIDFromContext(c),
		})
		respond.Error(c, http.StatusBadGateway, "payment_provider_error", "payment provider request failed", nil)
	}
}
