package parses

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"portfolio-backend/internal/documents"
	"portfolio-backend/internal/pipeline"
	"portfolio-backend/internal/provider"
	"portfolio-backend/internal/queue"
	"portfolio-backend/internal/resume"
	"portfolio-backend/internal/shared/storage/object/local"
)

const testPDF = "%PDF-1.4\nJohn Doe resume"

type stubRunner struct {
	mu    sync.Mutex
	input string
	out   pipeline.RunOutput
	err   error
}

func (s *stubRunner) Run(ctx context.Context, base64PDF string) (pipeline.RunOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.input = base64PDF
	return s.out, s.err
}

type stubQueue struct {
	messages []queue.Message
	err      error
}

func (s *stubQueue) Send(ctx context.Context, msg queue.Message) error {
	if s.err != nil {
		return s.err
	}
	s.messages = append(s.messages, msg)
	return nil
}

type fixture struct {
	svc    *Service
	repo   *MemoryRepo
	docs   *documents.Service
	runner *stubRunner
	doc    documents.Document
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	docs := &documents.Service{Store: local.New(t.TempDir()), Repo: documents.NewMemoryRepo()}
	doc, err := docs.Upload(context.Background(), "user-1", "cv.pdf", strings.NewReader(testPDF))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	runner := &stubRunner{out: pipeline.RunOutput{
		ParsedText: "John Doe\nAcme Corp",
		Extracted:  resume.Record{Name: "John Doe"},
		Enhanced:   resume.Record{Name: "John Doe", Tagline: "Engineer"},
	}}
	repo := NewMemoryRepo()
	return fixture{
		svc:    &Service{Repo: repo, Documents: docs, Pipeline: runner, Queue: &stubQueue{}},
		repo:   repo,
		docs:   docs,
		runner: runner,
		doc:    doc,
	}
}

func (f fixture) create(t *testing.T) Parse {
	t.Helper()
	p, err := f.svc.Create(context.Background(), "user-1", f.doc.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return p
}

func TestProcessParseCompletes(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)

	if err := f.svc.ProcessParse(context.Background(), p.ID); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, _ := f.repo.Get(context.Background(), p.ID)
	if got.Status != StatusCompleted || got.CompletedAt == nil || got.StartedAt == nil {
		t.Fatalf("unexpected parse %+v", got)
	}
	if got.Extracted["name"] != "John Doe" || got.Enhanced["tagline"] != "Engineer" {
		t.Fatalf("unexpected results %v / %v", got.Extracted, got.Enhanced)
	}
	decoded, err := base64.StdEncoding.DecodeString(f.runner.input)
	if err != nil || string(decoded) != testPDF {
		t.Fatalf("pipeline got %q (%v)", decoded, err)
	}
	doc, _ := f.docs.Get(context.Background(), "user-1", f.doc.ID)
	if doc.ParsedTextKey == "" {
		t.Fatalf("expected parsed text stored next to the document")
	}
}

func TestProcessParseDegradedStillCompletes(t *testing.T) {
	f := newFixture(t)
	f.runner.out = pipeline.RunOutput{
		ParsedText:   "text",
		Extracted:    resume.Placeholder("malformed output"),
		Enhanced:     resume.Placeholder("malformed output"),
		Degraded:     true,
		ParsingError: "malformed output",
	}
	p := f.create(t)

	if err := f.svc.ProcessParse(context.Background(), p.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	got, _ := f.repo.Get(context.Background(), p.ID)
	if got.Status != StatusCompleted || !got.Degraded || got.ParsingError != "malformed output" {
		t.Fatalf("unexpected parse %+v", got)
	}
}

func TestProcessParseFailures(t *testing.T) {
	tests := []struct {
		name          string
		runErr        error
		dropDocument  bool
		wantCode      string
		wantRetryable bool
	}{
		{name: "ocr failure", runErr: fmt.Errorf("%w: %w", pipeline.ErrOCR, errors.New("503")), wantCode: ErrorCodeOCRFailed, wantRetryable: true},
		{name: "deadline", runErr: context.DeadlineExceeded, wantCode: ErrorCodeTimeout, wantRetryable: true},
		{name: "provider rejected", runErr: &provider.Error{Provider: "mistral", Kind: provider.KindProvider, Status: 400}, wantCode: ErrorCodeProvider, wantRetryable: false},
		{name: "document gone", dropDocument: true, wantCode: ErrorCodeDocumentNotFound, wantRetryable: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.runner.err = tt.runErr
			p := f.create(t)
			if tt.dropDocument {
				// Reassigning the owner makes the document invisible to the parse.
				p.UserID = "someone-else"
				_ = f.repo.Create(context.Background(), p)
			}

			err := f.svc.ProcessParse(context.Background(), p.ID)
			if err == nil {
				t.Fatalf("expected error")
			}
			if IsRetryable(err) != tt.wantRetryable {
				t.Fatalf("expected retryable=%v for %v", tt.wantRetryable, err)
			}
			got, _ := f.repo.Get(context.Background(), p.ID)
			if got.Status != StatusFailed || got.ErrorCode != tt.wantCode || got.Retryable != tt.wantRetryable {
				t.Fatalf("unexpected parse %+v", got)
			}
			if got.ErrorMessage == "" {
				t.Fatalf("expected error message")
			}
		})
	}
}

func TestProcessParseSkipsCompleted(t *testing.T) {
	f := newFixture(t)
	p := f.create(t)
	if err := f.svc.ProcessParse(context.Background(), p.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	f.runner.err = errors.New("must not run again")
	if err := f.svc.ProcessParse(context.Background(), p.ID); err != nil {
		t.Fatalf("expected redelivery to be a no-op, got %v", err)
	}
}

func TestCreateEnqueuesMessage(t *testing.T) {
	f := newFixture(t)
	q := &stubQueue{}
	f.svc.Queue = q
	f.svc.Now = func() time.Time { return time.Date(2026, 1, 30, 22, 0, 0, 0, time.UTC) }

	p, err := f.svc.Create(WithRequestID(context.Background(), "req-9"), "user-1", f.doc.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.Status != StatusQueued {
		t.Fatalf("expected queued, got %s", p.Status)
	}
	if len(q.messages) != 1 {
		t.Fatalf("expected one message, got %d", len(q.messages))
	}
	msg := q.messages[0]
	if msg.ParseID != p.ID || msg.RequestID != "req-9" || msg.Version != queue.MessageVersion || msg.EnqueuedAt != "2026-01-30T22:00:00Z" {
		t.Fatalf("unexpected message %+v", msg)
	}
}

func TestCreateQueueFailureMarksParseFailed(t *testing.T) {
	f := newFixture(t)
	f.svc.Queue = &stubQueue{err: errors.New("sqs down")}

	_, err := f.svc.Create(context.Background(), "user-1", f.doc.ID)
	if !errors.Is(err, ErrEnqueue) {
		t.Fatalf("expected ErrEnqueue, got %v", err)
	}
	items, _ := f.repo.ListByUser(context.Background(), "user-1", 10, 0)
	if len(items) != 1 || items[0].Status != StatusFailed || items[0].ErrorCode != ErrorCodeQueue {
		t.Fatalf("unexpected parses %+v", items)
	}
}

func TestCreateRejectsForeignDocument(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Create(context.Background(), "user-2", f.doc.ID); !errors.Is(err, documents.ErrNotFound) {
		t.Fatalf("expected documents.ErrNotFound, got %v", err)
	}
}

func TestCreateRunsInProcessWithoutQueue(t *testing.T) {
	f := newFixture(t)
	f.svc.Queue = nil

	ctx, cancel := context.WithCancel(context.Background())
	p, err := f.svc.Create(ctx, "user-1", f.doc.ID)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// The job must outlive the request context.
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		got, _ := f.repo.Get(context.Background(), p.ID)
		if got.Status == StatusCompleted {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("parse did not complete in process")
}

func TestSanitizeError(t *testing.T) {
	long := strings.Repeat("x", 600)
	got := sanitizeError(errors.New("line one\nline two\r" + long))
	if len(got) != 500 {
		t.Fatalf("expected 500 chars, got %d", len(got))
	}
	if strings.ContainsAny(got, "\r\n") {
		t.Fatalf("expected newlines stripped: %q", got[:30])
	}
	if sanitizeError(nil) != "" {
		t.Fatalf("expected empty message for nil")
	}
}

func TestSanitizeErrorCutsOnRuneBoundary(t *testing.T) {
	// 499 ASCII bytes put the next three-byte rune across the limit.
	msg := strings.Repeat("x", 499) + strings.Repeat("€", 10)
	got := sanitizeError(errors.New(msg))
	if !utf8.ValidString(got) {
		t.Fatalf("expected valid UTF-8, got trailing %q", got[len(got)-3:])
	}
	if got != strings.Repeat("x", 499) {
		t.Fatalf("expected cut before the split rune, got %d bytes", len(got))
	}
}
