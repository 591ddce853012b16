package subscriptions

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76/webhook"

	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
)

// maxWebhookBody matches Stripe's documented payload ceiling.
const maxWebhookBody = 65536

// WebhookHandler verifies and dispatches Stripe events. The route sits on a
// public path so the auth middleware lets it through.
type WebhookHandler struct {
	Svc    *Service
	Secret string
}

func NewWebhookHandler(svc *Service, secret string) *WebhookHandler {
	return &WebhookHandler{Svc: svc, Secret: secret}
}

func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/stripe", h.handle)
}

func (h *WebhookHandler) handle(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_body", "could not read body", nil)
		return
	}
	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.Secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		telemetry.Warn("webhook.invalid_signature", map[string]any{"error": err.Error()})
		respond.Error(c, http.StatusBadRequest, "invalid_signature", "webhook signature verification failed", nil)
		return
	}
	if err := h.Svc.HandleEvent(c.Request.Context(), event); err != nil {
		respond.Error(c, http.StatusInternalServerError, "webhook_failed", "webhook handler failed", nil)
		return
	}
	respond.OK(c, gin.H{"received": true})
}
