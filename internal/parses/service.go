package parses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"portfolio-backend/internal/documents"
	"portfolio-backend/internal/ocr"
	"portfolio-backend/internal/pipeline"
	"portfolio-backend/internal/provider"
	"portfolio-backend/internal/queue"
	"portfolio-backend/internal/resume"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/telemetry"
)

// Runner is the part of pipeline.Service a parse job needs.
type Runner interface {
	Run(ctx context.Context, base64PDF string) (pipeline.RunOutput, error)
}

// Documents is the part of documents.Service a parse job needs.
type Documents interface {
	Get(ctx context.Context, userID, documentID string) (documents.Document, error)
	LoadPDF(ctx context.Context, doc documents.Document) ([]byte, error)
	SaveParsedText(ctx context.Context, doc documents.Document, text string) (string, error)
}

// Service creates parse jobs and runs them.
type Service struct {
	Repo      Repo
	Documents Documents
	Pipeline  Runner
	// Queue hands jobs to workers. When nil, jobs run in process.
	Queue queue.Client
	Now   func() time.Time
}

// Create records a queued parse for a document the caller owns and starts it.
func (s *Service) Create(ctx context.Context, userID, documentID string) (Parse, error) {
	if userID == "" || documentID == "" {
		return Parse{}, fmt.Errorf("%w: userID and documentID are required", ErrInvalidInput)
	}
	if _, err := s.Documents.Get(ctx, userID, documentID); err != nil {
		return Parse{}, err
	}

	now := s.now()
	p := Parse{
		ID:         uuid.NewString(),
		UserID:     userID,
		DocumentID: documentID,
		Status:     StatusQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return Parse{}, err
	}

	requestID := RequestIDFromContext(ctx)
	telemetry.Info("parse.status", map[string]any{
		"request_id":        requestID,
		"user_id":           userID,
		"document_id":       documentID,
		"parse_id":          p.ID,
		"status":            StatusQueued,
		"status_transition": "none->queued",
	})

	if s.Queue == nil {
		go func() {
			_ = s.ProcessParse(backgroundWithRequestID(ctx), p.ID)
		}()
		return p, nil
	}

	msg := queue.NewParseMessage(p.ID, requestID, now)
	if err := s.Queue.Send(ctx, msg); err != nil {
		completedAt := s.now()
		if failErr := s.Repo.Fail(ctx, p.ID, ErrorCodeQueue, sanitizeError(err), true, completedAt); failErr != nil {
			telemetry.Error("parse.fail_update_failed", map[string]any{"parse_id": p.ID, "error": failErr.Error()})
		}
		return Parse{}, fmt.Errorf("%w: %w", ErrEnqueue, err)
	}
	return p, nil
}

// Get returns a parse owned by the caller.
func (s *Service) Get(ctx context.Context, userID, parseID string) (Parse, error) {
	if userID == "" || parseID == "" {
		return Parse{}, fmt.Errorf("%w: userID and parseID are required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, userID, parseID)
}

// List returns the caller's parses newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Parse, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userID is required", ErrInvalidInput)
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// ProcessParse runs the pipeline for a queued parse and stores the outcome.
// A completed parse is left alone so queue redelivery is harmless. The
// returned error is the failure recorded on the parse, if any.
func (s *Service) ProcessParse(ctx context.Context, parseID string) error {
	p, err := s.Repo.Get(ctx, parseID)
	if err != nil {
		return err
	}
	if p.Status == StatusCompleted {
		return nil
	}

	startedAt := s.now()
	if err := s.Repo.MarkProcessing(ctx, p.ID, startedAt); err != nil {
		return err
	}
	metrics.IncParseStarted()
	s.logStatus(ctx, p, StatusProcessing, p.Status+"->processing", nil, nil)

	out, err := s.run(ctx, p)
	if err != nil {
		s.failParse(ctx, p, err, startedAt)
		return err
	}

	if p.Extracted, err = resume.ToMap(out.Extracted); err == nil {
		p.Enhanced, err = resume.ToMap(out.Enhanced)
	}
	if err != nil {
		err = fmt.Errorf("encode parse result: %w", err)
		s.failParse(ctx, p, err, startedAt)
		return err
	}

	completedAt := s.now()
	p.ParsedText = out.ParsedText
	p.Degraded = out.Degraded
	p.ParsingError = out.ParsingError
	p.CompletedAt = &completedAt
	if err := s.Repo.Complete(ctx, p); err != nil {
		err = fmt.Errorf("%w: save parse result: %w", errStorage, err)
		s.failParse(ctx, p, err, startedAt)
		return err
	}

	metrics.IncParseCompleted()
	metrics.ObserveParseDurationMs(durationMs(startedAt, completedAt))
	s.logStatus(ctx, p, StatusCompleted, "processing->completed", &startedAt, &completedAt)
	return nil
}

func (s *Service) run(ctx context.Context, p Parse) (pipeline.RunOutput, error) {
	doc, err := s.Documents.Get(ctx, p.UserID, p.DocumentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return pipeline.RunOutput{}, err
		}
		return pipeline.RunOutput{}, fmt.Errorf("%w: load document: %w", errStorage, err)
	}
	data, err := s.Documents.LoadPDF(ctx, doc)
	if err != nil {
		return pipeline.RunOutput{}, fmt.Errorf("%w: %w", errStorage, err)
	}

	out, err := s.Pipeline.Run(ctx, ocr.EncodePDF(data))
	if err != nil {
		return pipeline.RunOutput{}, err
	}

	// The parse row keeps the text too, so a failed side copy is only logged.
	if _, err := s.Documents.SaveParsedText(ctx, doc, out.ParsedText); err != nil {
		telemetry.Warn("parse.save_text_failed", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"parse_id":    p.ID,
			"document_id": doc.ID,
			"error":       err.Error(),
		})
	}
	return out, nil
}

func (s *Service) failParse(ctx context.Context, p Parse, err error, startedAt time.Time) {
	code, retryable := classifyFailure(err)
	msg := sanitizeError(err)
	completedAt := s.now()
	// The job context may already be cancelled; the failure must still land.
	if updateErr := s.Repo.Fail(context.Background(), p.ID, code, msg, retryable, completedAt); updateErr != nil {
		telemetry.Error("parse.fail_update_failed", map[string]any{
			"parse_id": p.ID,
			"error":    updateErr.Error(),
			"cause":    msg,
		})
	}
	metrics.IncParseFailed()
	metrics.ObserveParseDurationMs(durationMs(startedAt, completedAt))
	p.ErrorCode = code
	s.logStatus(ctx, p, StatusFailed, "processing->failed", &startedAt, &completedAt)
}

func (s *Service) logStatus(ctx context.Context, p Parse, status, transition string, startedAt, completedAt *time.Time) {
	fields := map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           p.UserID,
		"document_id":       p.DocumentID,
		"parse_id":          p.ID,
		"status":            status,
		"status_transition": transition,
	}
	if startedAt != nil && completedAt != nil {
		fields["duration_ms"] = durationMs(*startedAt, *completedAt)
	}
	if status == StatusCompleted {
		fields["degraded"] = p.Degraded
	}
	if p.ErrorCode != "" {
		fields["error_code"] = p.ErrorCode
	}
	telemetry.Info("parse.status", fields)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

// IsRetryable reports whether a ProcessParse error is worth another attempt.
func IsRetryable(err error) bool {
	_, retryable := classifyFailure(err)
	return retryable
}

func classifyFailure(err error) (string, bool) {
	switch {
	case err == nil:
		return ErrorCodeInternal, false
	case errors.Is(err, pipeline.ErrOCR):
		return ErrorCodeOCRFailed, true
	case errors.Is(err, documents.ErrNotFound), errors.Is(err, ErrNotFound):
		return ErrorCodeDocumentNotFound, false
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeTimeout, true
	case errors.Is(err, errStorage):
		return ErrorCodeStorage, true
	case errors.Is(err, ErrEnqueue):
		return ErrorCodeQueue, true
	}
	var pe *provider.Error
	if errors.As(err, &pe) {
		return ErrorCodeProvider, provider.Retryable(err)
	}
	return ErrorCodeInternal, false
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) <= maxLen {
		return msg
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
