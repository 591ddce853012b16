package portfolios

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
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

var portfolioColumnNames = []string{
	"id", "user_id", "subdomain", "custom_domain", "title", "description",
	"is_published", "is_active", "created_at", "updated_at",
}

var resumeColumnNames = []string{
	"id", "portfolio_id", "original_resume_url", "parsed_text", "extracted_json", "enhanced_json",
	"final_json", "template_id", "created_at", "updated_at",
}

func TestPGRepoCreateIsTransactional(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO portfolios").
		WithArgs("p-1", "user-1", "janedoe", "", "Jane", "About", false, true, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO resume_data").
		WithArgs("rd-1", "p-1", "", "", []byte("{}"), []byte("{}"), []byte(`{"name":"Jane"}`), 1, now).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(),
		Portfolio{ID: "p-1", UserID: "user-1", Subdomain: "janedoe", Title: "Jane", Description: "About", IsActive: true, CreatedAt: now},
		ResumeData{ID: "rd-1", PortfolioID: "p-1", FinalJSON: map[string]any{"name": "Jane"}, TemplateID: 1, CreatedAt: now},
	)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCreateMapsUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO portfolios").WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), Portfolio{ID: "p-1", Subdomain: "janedoe"}, ResumeData{ID: "rd-1"})
	if !errors.Is(err, ErrSubdomainTaken) {
		t.Fatalf("expected ErrSubdomainTaken, got %v", err)
	}
}

func TestPGRepoGetBySubdomain(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM portfolios WHERE subdomain = \\$1").
		WithArgs("janedoe").
		WillReturnRows(sqlmock.NewRows(portfolioColumnNames).
			AddRow("p-1", "user-1", "janedoe", nil, "Jane", nil, true, true, now, now))

	p, err := repo.GetBySubdomain(context.Background(), "janedoe")
	if err != nil {
		t.Fatalf("GetBySubdomain: %v", err)
	}
	if !p.IsPublished || p.CustomDomain != "" || p.Description != "" {
		t.Fatalf("unexpected portfolio %+v", p)
	}

	mock.ExpectQuery("SELECT (.+) FROM portfolios WHERE subdomain = \\$1").
		WithArgs("nobody").
		WillReturnRows(sqlmock.NewRows(portfolioColumnNames))
	if _, err := repo.GetBySubdomain(context.Background(), "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoLatestResumeDecodesJSONB(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM resume_data WHERE portfolio_id = \\$1 ORDER BY created_at DESC LIMIT 1").
		WithArgs("p-1").
		WillReturnRows(sqlmock.NewRows(resumeColumnNames).
			AddRow("rd-2", "p-1", nil, "text", []byte(`{}`), nil, []byte(`{"name":"Jane"}`), 2, now, now))

	rd, err := repo.LatestResume(context.Background(), "p-1")
	if err != nil {
		t.Fatalf("LatestResume: %v", err)
	}
	if rd.FinalJSON["name"] != "Jane" || rd.ExtractedJSON != nil || rd.TemplateID != 2 {
		t.Fatalf("unexpected resume data %+v", rd)
	}
}

func TestPGRepoSetPublishedNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()

	mock.ExpectExec("UPDATE portfolios SET is_published").
		WithArgs(true, now, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.SetPublished(context.Background(), "missing", true, now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoSubdomainTaken(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("janedoe").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	taken, err := repo.SubdomainTaken(context.Background(), "janedoe")
	if err != nil || !taken {
		t.Fatalf("expected taken, got %v %v", taken, err)
	}
}
