package parses

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/documents"
	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/shared/validation"
)

// Handler wires HTTP handlers to the parses service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches parse creation and listing routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/parses", h.create)
	rg.GET("/parses", h.list)
}

// RegisterPollingRoutes attaches the status route, which clients poll and
// which is rate limited separately.
func (h *Handler) RegisterPollingRoutes(rg *gin.RouterGroup) {
	rg.GET("/parses/:id", h.get)
}

type createRequest struct {
	DocumentID string `json:"documentId" validate:"required"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.DocumentID = strings.TrimSpace(req.DocumentID)
	if err := validation.Struct(req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", validation.Message(err), validation.Details(err))
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	p, err := h.Svc.Create(ctx, middleware.UserIDFromContext(c), req.DocumentID)
	if err != nil {
		switch {
		case errors.Is(err, documents.ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrEnqueue):
			respond.Error(c, http.StatusServiceUnavailable, "queue_unavailable", "could not start parsing, please retry", nil)
		default:
			telemetry.Error("parses.create_failed", map[string]any{
				"error":      err.Error(),
				"request_id": middleware.RequestIDFromContext(c),
			})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to start parse", nil)
		}
		return
	}

	c.Set(middleware.LogParseID, p.ID)
	c.Set(middleware.LogDocumentID, req.DocumentID)
	c.Set(middleware.LogTransition, "->"+p.Status)
	respond.Accepted(c, gin.H{
		"parseId": p.ID,
		"status":  p.Status,
	})
}

func (h *Handler) get(c *gin.Context) {
	c.Set(middleware.LogParseID, c.Param("id"))
	p, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "parse not found", nil)
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "parse id is required", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch parse", nil)
		}
		return
	}
	respond.OK(c, toResponse(p))
}

func (h *Handler) list(c *gin.Context) {
	if middleware.IsGuest(c) {
		respond.Error(c, http.StatusUnauthorized, "login_required", "Login required to view history", nil)
		return
	}

	limit := 20
	offset := 0
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit < 0 {
		limit = 0
	}
	if limit > 50 {
		limit = 50
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			offset = parsed
		}
	}
	if offset < 0 {
		offset = 0
	}

	items, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list parses", nil)
		return
	}

	resp := make([]gin.H, 0, len(items))
	for _, p := range items {
		resp = append(resp, gin.H{
			"parseId":    p.ID,
			"documentId": p.DocumentID,
			"status":     p.Status,
			"degraded":   p.Degraded,
			"createdAt":  p.CreatedAt,
		})
	}
	respond.OK(c, resp)
}

func toResponse(p Parse) gin.H {
	resp := gin.H{
		"id":         p.ID,
		"documentId": p.DocumentID,
		"status":     p.Status,
		"createdAt":  p.CreatedAt,
	}
	switch p.Status {
	case StatusCompleted:
		resp["parsedText"] = p.ParsedText
		resp["extractedJson"] = p.Extracted
		resp["enhancedJson"] = p.Enhanced
		resp["degraded"] = p.Degraded
		if p.ParsingError != "" {
			resp["parsingError"] = p.ParsingError
		}
		resp["completedAt"] = p.CompletedAt
	case StatusFailed:
		resp["error"] = gin.H{
			"code":      p.ErrorCode,
			"message":   p.ErrorMessage,
			"retryable": p.Retryable,
		}
		resp["completedAt"] = p.CompletedAt
	}
	return resp
}
