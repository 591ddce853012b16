// Package extraction turns OCR text into a structured résumé record with a
// bounded number of LLM attempts and a degraded fallback.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"portfolio-backend/internal/llm"
	"portfolio-backend/internal/provider"
	"portfolio-backend/internal/resume"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/telemetry"
)

const (
	DefaultMaxAttempts = 3

	// FailureMessage is surfaced to the user on a degraded result.
	FailureMessage = "AI parsing failed - data extracted from text but needs manual editing"

	systemPrompt = "You are a helpful assistant."
)

// Status discriminates a real extraction from the placeholder fallback.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusDegraded Status = "degraded"
)

// Result is the outcome of Extract. It is always usable: a degraded result
// carries the placeholder record.
type Result struct {
	Record   resume.Record
	Status   Status
	Attempts int
	// Raw is the last model output, kept for debugging.
	Raw string
	// Err is the last attempt failure on a degraded result.
	Err error
}

func (r Result) Degraded() bool { return r.Status == StatusDegraded }

// ParsingError is the user-facing warning for degraded results.
func (r Result) ParsingError() string { return r.Record.ParsingError }

// Extractor calls the LLM with the extraction prompt.
type Extractor struct {
	LLM         llm.Client
	MaxAttempts int
	// Backoff returns the wait after a failed attempt (1-based).
	Backoff func(attempt int) time.Duration
	// Sleep waits for d or until ctx is done; tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New returns an Extractor with the default policy: 3 attempts and
// attempt × 1s between them.
func New(client llm.Client) *Extractor {
	return &Extractor{LLM: client}
}

// Extract never returns an error; failures degrade to a placeholder.
func (e *Extractor) Extract(ctx context.Context, text string) Result {
	if strings.TrimSpace(text) == "" {
		return e.degraded(0, "", errors.New("empty input text"))
	}
	if e == nil || e.LLM == nil {
		return e.degraded(0, "", llm.ErrNotImplemented)
	}

	prompt, err := llm.Render(llm.PromptExtract, map[string]string{"Text": text})
	if err != nil {
		return e.degraded(0, "", err)
	}

	maxAttempts := e.maxAttempts()
	var (
		lastErr error
		lastRaw string
		tried   int
	)
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tried = attempt
		metrics.IncExtractionAttempt()
		rec, raw, err := e.attempt(ctx, prompt)
		lastRaw = raw
		if err == nil {
			return Result{Record: rec, Status: StatusSuccess, Attempts: attempt, Raw: raw}
		}
		lastErr = err
		telemetry.Warn("extraction.attempt_failed", map[string]any{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"kind":         string(provider.KindOf(err)),
			"error":        err.Error(),
		})
		if attempt == maxAttempts || ctx.Err() != nil {
			break
		}
		if err := e.sleep(ctx, e.backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}
	return e.degraded(tried, lastRaw, lastErr)
}

func (e *Extractor) attempt(ctx context.Context, prompt string) (resume.Record, string, error) {
	content, err := e.LLM.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      prompt,
		Temperature: 0,
		Title:       "Resume Parser",
	})
	if err != nil {
		return resume.Record{}, "", err
	}
	if strings.TrimSpace(content) == "" {
		return resume.Record{}, content, provider.Errorf("extraction", provider.KindEmpty, "empty content")
	}

	obj, err := resume.ParseObject(resume.StripCodeFence(content))
	if err != nil {
		return resume.Record{}, content, provider.Wrap("extraction", provider.KindMalformed, err)
	}
	rec, issues, err := resume.FromModelOutput(obj)
	if err != nil {
		return resume.Record{}, content, provider.Wrap("extraction", provider.KindMalformed, err)
	}
	if len(issues) > 0 {
		telemetry.Warn("extraction.fields_dropped", map[string]any{"issues": issues})
	}
	return rec, content, nil
}

func (e *Extractor) degraded(attempts int, raw string, err error) Result {
	metrics.IncExtractionDegraded()
	fields := map[string]any{"attempts": attempts}
	if err != nil {
		fields["error"] = err.Error()
	}
	telemetry.Error("extraction.degraded", fields)
	if err == nil {
		err = fmt.Errorf("extraction failed after %d attempts", attempts)
	}
	return Result{
		Record:   resume.Placeholder(FailureMessage),
		Status:   StatusDegraded,
		Attempts: attempts,
		Raw:      raw,
		Err:      err,
	}
}

func (e *Extractor) maxAttempts() int {
	if e.MaxAttempts > 0 {
		return e.MaxAttempts
	}
	return DefaultMaxAttempts
}

func (e *Extractor) backoff(attempt int) time.Duration {
	if e.Backoff != nil {
		return e.Backoff(attempt)
	}
	return time.Duration(attempt) * time.Second
}

func (e *Extractor) sleep(ctx context.Context, d time.Duration) error {
	if e.Sleep != nil {
		return e.Sleep(ctx, d)
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
