// Package pipeline runs OCR, extraction and enrichment in order and exposes
// the synchronous HTTP surface for them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"portfolio-backend/internal/enrich"
	"portfolio-backend/internal/extraction"
	"portfolio-backend/internal/ocr"
	"portfolio-backend/internal/provider"
	"portfolio-backend/internal/resume"
	"portfolio-backend/internal/shared/telemetry"
)

// ErrOCR wraps every OCR failure returned by Parse and Run.
var ErrOCR = errors.New("ocr failed")

type Service struct {
	OCR       ocr.Adapter
	Extractor *extraction.Extractor
	Enricher  *enrich.Enricher
}

func NewService(adapter ocr.Adapter, extractor *extraction.Extractor, enricher *enrich.Enricher) *Service {
	return &Service{OCR: adapter, Extractor: extractor, Enricher: enricher}
}

// ParseOutput is the OCR text plus the extraction result.
type ParseOutput struct {
	ParsedText string
	Result     extraction.Result
}

// RunOutput is the full pipeline result.
type RunOutput struct {
	ParsedText string
	Extracted  resume.Record
	Enhanced   resume.Record
	Degraded   bool
	// ParsingError is set on degraded extraction.
	ParsingError string
}

// Parse runs OCR then extraction. Only OCR can fail.
func (s *Service) Parse(ctx context.Context, base64PDF string) (ParseOutput, error) {
	start := time.Now()
	text, err := s.OCR.ExtractText(ctx, base64PDF)
	if err != nil {
		telemetry.Error("pipeline.ocr_failed", map[string]any{
			"kind":       string(provider.KindOf(err)),
			"error":      err.Error(),
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		return ParseOutput{}, fmt.Errorf("%w: %w", ErrOCR, err)
	}

	res := s.Extractor.Extract(ctx, text)
	telemetry.Info("pipeline.parsed", map[string]any{
		"text_chars": len(text),
		"attempts":   res.Attempts,
		"degraded":   res.Degraded(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	return ParseOutput{ParsedText: text, Result: res}, nil
}

// Refine enriches an already structured record.
func (s *Service) Refine(ctx context.Context, rec resume.Record) resume.Record {
	if s.Enricher == nil {
		return rec.Clone()
	}
	return s.Enricher.Enrich(ctx, rec)
}

// RefineRaw normalizes a client-supplied object before enriching it.
func (s *Service) RefineRaw(ctx context.Context, raw map[string]any) (resume.Record, error) {
	rec, err := resume.FromMap(raw)
	if err != nil {
		return resume.Record{}, err
	}
	return s.Refine(ctx, rec), nil
}

// Run parses and then refines. A degraded placeholder is returned as is
// since there is nothing to enrich.
func (s *Service) Run(ctx context.Context, base64PDF string) (RunOutput, error) {
	parsed, err := s.Parse(ctx, base64PDF)
	if err != nil {
		return RunOutput{}, err
	}
	out := RunOutput{
		ParsedText:   parsed.ParsedText,
		Extracted:    parsed.Result.Record,
		Degraded:     parsed.Result.Degraded(),
		ParsingError: parsed.Result.ParsingError(),
	}
	if out.Degraded {
		out.Enhanced = parsed.Result.Record.Clone()
		return out, nil
	}
	out.Enhanced = s.Refine(ctx, parsed.Result.Record)
	return out, nil
}
