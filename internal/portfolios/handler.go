package portfolios

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/shared/server/middleware"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/shared/validation"
	"portfolio-backend/internal/templates"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/subdomains/:name/availability", h.availability)
	rg.POST("/portfolios", h.create)
	rg.GET("/portfolios", h.list)
	rg.GET("/portfolios/:id", h.get)
	rg.PUT("/portfolios/:id/resume", h.saveResume)
	rg.GET("/portfolios/:id/pdf", h.pdf)
}

// RegisterPublicRoutes serves published pages at /p/:subdomain.
func (h *Handler) RegisterPublicRoutes(r gin.IRoutes) {
	r.GET("/p/:subdomain", h.public)
}

type createRequest struct {
	Subdomain         string         `json:"subdomain" validate:"required,subdomain"`
	TemplateID        int            `json:"template_id" validate:"omitempty,min=1"`
	OriginalResumeURL string         `json:"original_resume_url" validate:"omitempty,url"`
	ParsedText        string         `json:"parsed_text"`
	ExtractedJSON     map[string]any `json:"extracted_json"`
	EnhancedJSON      map[string]any `json:"enhanced_json"`
	FinalJSON         map[string]any `json:"final_json" validate:"required"`
}

type saveResumeRequest struct {
	FinalJSON  map[string]any `json:"final_json" validate:"required"`
	TemplateID int            `json:"template_id" validate:"omitempty,min=1"`
}

func (h *Handler) availability(c *gin.Context) {
	out, err := h.Svc.Availability(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.internal(c, "portfolios.availability_failed", err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.Subdomain = normalizeSubdomain(req.Subdomain)
	if err := validation.Struct(req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", validation.Message(err), validation.Details(err))
		return
	}

	d, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), CreateInput{
		Subdomain:         req.Subdomain,
		TemplateID:        req.TemplateID,
		OriginalResumeURL: req.OriginalResumeURL,
		ParsedText:        req.ParsedText,
		ExtractedJSON:     req.ExtractedJSON,
		EnhancedJSON:      req.EnhancedJSON,
		FinalJSON:         req.FinalJSON,
	})
	if err != nil {
		h.fail(c, "portfolios.create_failed", err)
		return
	}
	respond.JSON(c, http.StatusCreated, d)
}

func (h *Handler) list(c *gin.Context) {
	list, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.internal(c, "portfolios.list_failed", err)
		return
	}
	respond.OK(c, gin.H{"portfolios": list})
}

func (h *Handler) get(c *gin.Context) {
	c.Set(middleware.LogPortfolioID, c.Param("id"))
	d, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, "portfolios.get_failed", err)
		return
	}
	respond.OK(c, d)
}

func (h *Handler) saveResume(c *gin.Context) {
	var req saveResumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if err := validation.Struct(req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", validation.Message(err), validation.Details(err))
		return
	}
	c.Set(middleware.LogPortfolioID, c.Param("id"))
	rd, err := h.Svc.SaveResume(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"), req.FinalJSON, req.TemplateID)
	if err != nil {
		h.fail(c, "portfolios.save_resume_failed", err)
		return
	}
	respond.OK(c, rd)
}

func (h *Handler) pdf(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.LogPortfolioID, id)
	pdf, err := h.Svc.ExportPDF(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		if errors.Is(err, templates.ErrPDFDisabled) {
			respond.Error(c, http.StatusNotImplemented, "not_implemented", "pdf export is not enabled", nil)
			return
		}
		h.fail(c, "portfolios.pdf_failed", err)
		return
	}
	respond.Attachment(c, "application/pdf", fmt.Sprintf("portfolio-%s.pdf", id), pdf)
}

func (h *Handler) public(c *gin.Context) {
	d, err := h.Svc.Public(c.Request.Context(), c.Param("subdomain"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.HTML(c, http.StatusNotFound, []byte("<!DOCTYPE html><title>Not found</title><h1>Portfolio not found</h1>"))
			return
		}
		h.internal(c, "portfolios.public_failed", err)
		return
	}
	var buf bytes.Buffer
	if err := RenderHTML(&buf, d); err != nil {
		h.internal(c, "portfolios.render_failed", err)
		return
	}
	c.Header("Cache-Control", "public, max-age=60")
	respond.HTML(c, http.StatusOK, buf.Bytes())
}

func (h *Handler) fail(c *gin.Context, event string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "portfolio not found", nil)
	case errors.Is(err, ErrSubdomainTaken):
		respond.Error(c, http.StatusConflict, "subdomain_taken", "subdomain is already taken", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": "), nil)
	default:
		h.internal(c, event, err)
	}
}

func (h *Handler) internal(c *gin.Context, event string, err error) {
	telemetry.Error(event, map[string]any{
		"error":      err.Error(),
		"request_id": middleware.RequestIDFromContext(c),
	})
	respond.Error(c, http.StatusInternalServerError, "internal_error", "portfolio request failed", nil)
}
