package portfolios

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const portfolioColumns = `id, user_id, subdomain, custom_domain, title, description, is_published, is_active, created_at, updated_at`

const resumeColumns = `id, portfolio_id, original_resume_url, parsed_text, extracted_json, enhanced_json, final_json, template_id, created_at, updated_at`

const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(row rowScanner) (Portfolio, error) {
	var p Portfolio
	var customDomain, description sql.NullString
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Subdomain,
		&customDomain,
		&p.Title,
		&description,
		&p.IsPublished,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return Portfolio{}, err
	}
	p.CustomDomain = customDomain.String
	p.Description = description.String
	return p, nil
}

func scanResume(row rowScanner) (ResumeData, error) {
	var rd ResumeData
	var originalURL, parsedText sql.NullString
	var extracted, enhanced, final []byte
	if err := row.Scan(
		&rd.ID,
		&rd.PortfolioID,
		&originalURL,
		&parsedText,
		&extracted,
		&enhanced,
		&final,
		&rd.TemplateID,
		&rd.CreatedAt,
		&rd.UpdatedAt,
	); err != nil {
		return ResumeData{}, err
	}
	rd.OriginalResumeURL = originalURL.String
	rd.ParsedText = parsedText.String
	var err error
	if rd.ExtractedJSON, err = unmarshalJSONB(extracted); err != nil {
		return ResumeData{}, fmt.Errorf("decode extracted_json: %w", err)
	}
	if rd.EnhancedJSON, err = unmarshalJSONB(enhanced); err != nil {
		return ResumeData{}, fmt.Errorf("decode enhanced_json: %w", err)
	}
	if rd.FinalJSON, err = unmarshalJSONB(final); err != nil {
		return ResumeData{}, fmt.Errorf("decode final_json: %w", err)
	}
	return rd, nil
}

func (r *PGRepo) Create(ctx context.Context, p Portfolio, rd ResumeData) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const insertPortfolio = `
INSERT INTO portfolios (id, user_id, subdomain, custom_domain, title, description, is_published, is_active, created_at, updated_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $9)`
	if _, err := tx.ExecContext(ctx, insertPortfolio,
		p.ID,
		p.UserID,
		p.Subdomain,
		p.CustomDomain,
		p.Title,
		p.Description,
		p.IsPublished,
		p.IsActive,
		p.CreatedAt,
	); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrSubdomainTaken
		}
		return err
	}
	if err := insertResume(ctx, tx, rd); err != nil {
		return err
	}
	return tx.Commit()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertResume(ctx context.Context, db execer, rd ResumeData) error {
	const query = `
INSERT INTO resume_data (id, portfolio_id, original_resume_url, parsed_text, extracted_json, enhanced_json, final_json, template_id, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $9)`
	extracted, err := marshalJSONB(rd.ExtractedJSON)
	if err != nil {
		return err
	}
	enhanced, err := marshalJSONB(rd.EnhancedJSON)
	if err != nil {
		return err
	}
	final, err := marshalJSONB(rd.FinalJSON)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, query,
		rd.ID,
		rd.PortfolioID,
		rd.OriginalResumeURL,
		rd.ParsedText,
		extracted,
		enhanced,
		final,
		rd.TemplateID,
		rd.CreatedAt,
	)
	return err
}

func (r *PGRepo) Get(ctx context.Context, id string) (Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE id = $1`
	return r.getOne(ctx, query, id)
}

func (r *PGRepo) GetBySubdomain(ctx context.Context, subdomain string) (Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE subdomain = $1`
	return r.getOne(ctx, query, subdomain)
}

func (r *PGRepo) getOne(ctx context.Context, query string, arg string) (Portfolio, error) {
	p, err := scanPortfolio(r.DB.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Portfolio{}, ErrNotFound
	}
	return p, err
}

func (r *PGRepo) ListByUser(ctx context.Context, userID string) ([]Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM portfolios WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Portfolio, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) SubdomainTaken(ctx context.Context, subdomain string) (bool, error) {
	var taken bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM portfolios WHERE subdomain = $1)`, subdomain).Scan(&taken)
	return taken, err
}

func (r *PGRepo) SetPublished(ctx context.Context, id string, published bool, at time.Time) error {
	const query = `UPDATE portfolios SET is_published = $1, updated_at = $2 WHERE id = $3`
	res, err := r.DB.ExecContext(ctx, query, published, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) AddResume(ctx context.Context, rd ResumeData) error {
	if err := insertResume(ctx, r.DB, rd); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (r *PGRepo) LatestResume(ctx context.Context, portfolioID string) (ResumeData, error) {
	query := `SELECT ` + resumeColumns + ` FROM resume_data WHERE portfolio_id = $1 ORDER BY created_at DESC LIMIT 1`
	rd, err := scanResume(r.DB.QueryRowContext(ctx, query, portfolioID))
	if errors.Is(err, sql.ErrNoRows) {
		return ResumeData{}, ErrNotFound
	}
	return rd, err
}

func marshalJSONB(value map[string]any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(value)
}

func unmarshalJSONB(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

var _ Repo = (*PGRepo)(nil)
