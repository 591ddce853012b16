package parses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

var parseColumnNames = []string{
	"id", "user_id", "document_id", "status", "parsed_text", "extracted_json", "enhanced_json",
	"degraded", "parsing_error", "error_code", "error_message", "error_retryable",
	"started_at", "completed_at", "created_at", "updated_at",
}

func TestPGRepoCreate(t *testing.T) {
	repo, mock := newMockRepo(t)
	created := time.Now().UTC()

	mock.ExpectExec("INSERT INTO parses").
		WithArgs("parse-1", "user-1", "doc-1", StatusQueued, created).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(context.Background(), Parse{ID: "parse-1", UserID: "user-1", DocumentID: "doc-1", Status: StatusQueued, CreatedAt: created})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDDecodesJSONB(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(parseColumnNames).AddRow(
		"parse-1", "user-1", "doc-1", StatusCompleted, "John Doe", []byte(`{"name":"John Doe"}`), []byte(`{"name":"John Doe","tagline":"Builder"}`),
		false, nil, nil, nil, nil,
		now, now, now, now,
	)
	mock.ExpectQuery("SELECT (.+) FROM parses WHERE user_id = \\$1 AND id = \\$2").
		WithArgs("user-1", "parse-1").
		WillReturnRows(rows)

	p, err := repo.GetByID(context.Background(), "user-1", "parse-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if p.Enhanced["tagline"] != "Builder" || p.Extracted["name"] != "John Doe" {
		t.Fatalf("unexpected payloads %v %v", p.Extracted, p.Enhanced)
	}
	if p.CompletedAt == nil || p.ErrorCode != "" || p.Retryable {
		t.Fatalf("unexpected nullable fields %+v", p)
	}
}

func TestPGRepoGetMissing(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT (.+) FROM parses WHERE id = \\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(parseColumnNames))

	if _, err := repo.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoFail(t *testing.T) {
	repo, mock := newMockRepo(t)
	completed := time.Now().UTC()

	mock.ExpectExec("UPDATE parses").
		WithArgs(ErrorCodeOCRFailed, "ocr failed: 503", true, completed, "parse-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Fail(context.Background(), "parse-1", ErrorCodeOCRFailed, "ocr failed: 503", true, completed); err != nil {
		t.Fatalf("Fail: %v", err)
	}
}

func TestPGRepoCompleteMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	completed := time.Now().UTC()

	mock.ExpectExec("UPDATE parses").
		WithArgs("text", []byte(`{"name":"A"}`), []byte(`{}`), false, "", sqlmock.AnyArg(), "gone").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Complete(context.Background(), Parse{
		ID:          "gone",
		ParsedText:  "text",
		Extracted:   map[string]any{"name": "A"},
		CompletedAt: &completed,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
