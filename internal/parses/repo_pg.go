package parses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const parseColumns = `id, user_id, document_id, status, parsed_text, extracted_json, enhanced_json,
	degraded, parsing_error, error_code, error_message, error_retryable,
	started_at, completed_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParse(row rowScanner) (Parse, error) {
	var (
		p                                       Parse
		parsedText, parsingError, code, message sql.NullString
		extractedRaw, enhancedRaw               []byte
		retryable                               sql.NullBool
		startedAt, completedAt                  sql.NullTime
	)
	if err := row.Scan(
		&p.ID, &p.UserID, &p.DocumentID, &p.Status, &parsedText, &extractedRaw, &enhancedRaw,
		&p.Degraded, &parsingError, &code, &message, &retryable,
		&startedAt, &completedAt, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Parse{}, ErrNotFound
		}
		return Parse{}, err
	}
	p.ParsedText = parsedText.String
	p.ParsingError = parsingError.String
	p.ErrorCode = code.String
	p.ErrorMessage = message.String
	p.Retryable = retryable.Bool
	if startedAt.Valid {
		p.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		p.CompletedAt = &completedAt.Time
	}
	var err error
	if p.Extracted, err = unmarshalJSONB(extractedRaw); err != nil {
		return Parse{}, err
	}
	if p.Enhanced, err = unmarshalJSONB(enhancedRaw); err != nil {
		return Parse{}, err
	}
	return p, nil
}

// Create inserts a queued parse.
func (r *PGRepo) Create(ctx context.Context, p Parse) error {
	const query = `
INSERT INTO parses (id, user_id, document_id, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)`
	_, err := r.DB.ExecContext(ctx, query, p.ID, p.UserID, p.DocumentID, p.Status, p.CreatedAt)
	return err
}

func (r *PGRepo) Get(ctx context.Context, parseID string) (Parse, error) {
	query := `SELECT ` + parseColumns + ` FROM parses WHERE id = $1`
	return scanParse(r.DB.QueryRowContext(ctx, query, parseID))
}

func (r *PGRepo) GetByID(ctx context.Context, userID, parseID string) (Parse, error) {
	query := `SELECT ` + parseColumns + ` FROM parses WHERE user_id = $1 AND id = $2`
	return scanParse(r.DB.QueryRowContext(ctx, query, userID, parseID))
}

// ListByUser returns parses newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Parse, error) {
	query := `SELECT ` + parseColumns + ` FROM parses WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Parse, 0)
	for rows.Next() {
		p, err := scanParse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *PGRepo) MarkProcessing(ctx context.Context, parseID string, startedAt time.Time) error {
	const query = `
UPDATE parses
SET status = 'processing',
    started_at = $1,
    error_code = NULL,
    error_message = NULL,
    error_retryable = NULL,
    updated_at = now()
WHERE id = $2`
	return execOne(ctx, r.DB, query, startedAt, parseID)
}

func (r *PGRepo) Complete(ctx context.Context, p Parse) error {
	const query = `
UPDATE parses
SET status = 'completed',
    parsed_text = $1,
    extracted_json = $2::jsonb,
    enhanced_json = $3::jsonb,
    degraded = $4,
    parsing_error = NULLIF($5, ''),
    completed_at = $6,
    updated_at = now()
WHERE id = $7`
	extracted, err := marshalJSONB(p.Extracted)
	if err != nil {
		return err
	}
	enhanced, err := marshalJSONB(p.Enhanced)
	if err != nil {
		return err
	}
	return execOne(ctx, r.DB, query, p.ParsedText, extracted, enhanced, p.Degraded, p.ParsingError, p.CompletedAt, p.ID)
}

func (r *PGRepo) Fail(ctx context.Context, parseID, code, message string, retryable bool, completedAt time.Time) error {
	const query = `
UPDATE parses
SET status = 'failed',
    error_code = $1,
    error_message = $2,
    error_retryable = $3,
    completed_at = $4,
    updated_at = now()
WHERE id = $5`
	return execOne(ctx, r.DB, query, code, message, retryable, completedAt, parseID)
}

func execOne(ctx context.Context, db *sql.DB, query string, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
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
