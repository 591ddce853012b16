package ocr

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"portfolio-backend/internal/provider"
)

const mistralProvider = "mistral"

// MistralClient calls the Mistral OCR endpoint.
type MistralClient struct {
	apiKey     string
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient provider.Doer
}

// NewMistralClient builds a client. An empty baseURL uses the public API.
func NewMistralClient(apiKey, baseURL, model string, timeout time.Duration, httpClient provider.Doer) *MistralClient {
	if baseURL == "" {
		baseURL = "https://api.mistral.ai/v1"
	}
	if model == "" {
		model = "mistral-ocr-latest"
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &MistralClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

type ocrDocument struct {
	Type        string `json:"type"`
	DocumentURL string `json:"document_url"`
}

type ocrRequest struct {
	Model              string      `json:"model"`
	Document           ocrDocument `json:"document"`
	IncludeImageBase64 bool        `json:"include_image_base64"`
}

type ocrResponse struct {
	Pages *[]struct {
		Index    int    `json:"index"`
		Markdown string `json:"markdown"`
	} `json:"pages"`
}

// ExtractText sends the PDF as a data URI and joins the returned page markdown.
// Every failure is reported as OcrFailure.
func (c *MistralClient) ExtractText(ctx context.Context, base64PDF string) (string, error) {
	payload := DecodeDataURL(base64PDF)
	if payload == "" {
		return "", provider.Wrap(mistralProvider, provider.KindOCRFailure, ErrEmptyInput)
	}
	if strings.TrimSpace(c.apiKey) == "" {
		return "", provider.Errorf(mistralProvider, provider.KindOCRFailure, "MISTRAL_API_KEY is not configured")
	}

	var parsed ocrResponse
	err := provider.SendJSON(ctx, c.httpClient, provider.Request{
		Provider: mistralProvider,
		Method:   http.MethodPost,
		URL:      c.baseURL + "/ocr",
		Body: ocrRequest{
			Model:    c.model,
			Document: ocrDocument{Type: "document_url", DocumentURL: DataURL(payload)},
		},
		Headers: map[string]string{"Authorization": "Bearer " + c.apiKey},
		Timeout: c.timeout,
	}, &parsed)
	if err != nil {
		return "", asOCRFailure(err)
	}
	if parsed.Pages == nil {
		return "", provider.Errorf(mistralProvider, provider.KindOCRFailure, "response missing pages")
	}

	pages := make([]string, 0, len(*parsed.Pages))
	for _, p := range *parsed.Pages {
		pages = append(pages, p.Markdown)
	}
	text := joinPages(pages)
	if text == "" {
		return "", provider.Errorf(mistralProvider, provider.KindOCRFailure, "no text found in %d pages", len(pages))
	}
	return text, nil
}

// asOCRFailure reclassifies err as OcrFailure while keeping status and cause.
func asOCRFailure(err error) error {
	pe := &provider.Error{Provider: mistralProvider, Kind: provider.KindOCRFailure, Err: err}
	var inner *provider.Error
	if errors.As(err, &inner) {
		pe.Status = inner.Status
		pe.Message = string(inner.Kind)
	}
	return pe
}

var _ Adapter = (*MistralClient)(nil)
