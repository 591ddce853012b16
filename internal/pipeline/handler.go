package pipeline

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"portfolio-backend/internal/ocr"
	"portfolio-backend/internal/resume"
	"portfolio-backend/internal/shared/server/respond"
	"portfolio-backend/internal/shared/validation"
)

const maxBodySize = 10 << 20 // 10MB

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the synchronous pipeline routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes/parse", h.parse)
	rg.POST("/resumes/refine", h.refine)
	rg.POST("/logos", h.logos)
}

type parseRequest struct {
	DataURL string `json:"dataUrl" validate:"required"`
}

type parseResponse struct {
	ParsedText    string        `json:"parsedText"`
	ExtractedJSON resume.Record `json:"extractedJson"`
	Degraded      bool          `json:"degraded"`
	ParsingError  string        `json:"parsingError,omitempty"`
}

func (h *Handler) parse(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

	var req parseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.DataURL = strings.TrimSpace(req.DataURL)
	if err := validation.Struct(req); err != nil || ocr.DecodeDataURL(req.DataURL) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "dataUrl is required", validation.Details(err))
		return
	}

	out, err := h.Svc.Parse(c.Request.Context(), req.DataURL)
	if err != nil {
		if errors.Is(err, ErrOCR) {
			respond.Error(c, http.StatusBadGateway, "ocr_failed", "Failed to extract text from the PDF", map[string]string{
				"hint": "Try uploading the file again, or enter your details manually.",
			})
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to parse resume", nil)
		return
	}

	respond.OK(c, parseResponse{
		ParsedText:    out.ParsedText,
		ExtractedJSON: out.Result.Record,
		Degraded:      out.Result.Degraded(),
		ParsingError:  out.Result.ParsingError(),
	})
}

type refineRequest struct {
	ResumeJSON map[string]any `json:"resumeJson" validate:"required"`
}

func (h *Handler) refine(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)

	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.ResumeJSON == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resumeJson is required", nil)
		return
	}

	rec, err := h.Svc.RefineRaw(c.Request.Context(), req.ResumeJSON)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "resumeJson does not match the resume shape", err.Error())
		return
	}
	respond.OK(c, rec)
}

type logosRequest struct {
	Companies    []string `json:"companies"`
	Institutions []string `json:"institutions"`
}

type logosResponse struct {
	CompanyLogos     map[string]*string `json:"companyLogos"`
	InstitutionLogos map[string]*string `json:"institutionLogos"`
}

func (h *Handler) logos(c *gin.Context) {
	var req logosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if req.Companies == nil && req.Institutions == nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "companies or institutions is required", nil)
		return
	}
	if h.Svc.Enricher == nil {
		respond.OK(c, logosResponse{CompanyLogos: map[string]*string{}, InstitutionLogos: map[string]*string{}})
		return
	}

	companies, institutions := h.Svc.Enricher.ResolveLogos(c.Request.Context(), req.Companies, req.Institutions)
	respond.OK(c, logosResponse{CompanyLogos: companies, InstitutionLogos: institutions})
}
