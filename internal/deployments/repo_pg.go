package deployments

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type PGRepo struct {
	DB *sql.DB
}

const deploymentColumns = `id, portfolio_id, provider_deployment_id, provider_project_id, deployment_url, status, error_message, created_at, updated_at`

func (r *PGRepo) Create(ctx context.Context, d Deployment) error {
	const query = `
INSERT INTO deployments (id, portfolio_id, provider_project_id, status, created_at, updated_at)
VALUES ($1, $2, NULLIF($3, ''), $4, $5, $5)`
	_, err := r.DB.ExecContext(ctx, query, d.ID, d.PortfolioID, d.ProviderProjectID, d.Status, d.CreatedAt)
	return err
}

func (r *PGRepo) Latest(ctx context.Context, portfolioID string) (Deployment, error) {
	query := `SELECT ` + deploymentColumns + ` FROM deployments WHERE portfolio_id = $1 ORDER BY created_at DESC LIMIT 1`
	var d Deployment
	var providerDeploymentID, providerProjectID, url, errMsg sql.NullString
	err := r.DB.QueryRowContext(ctx, query, portfolioID).Scan(
		&d.ID,
		&d.PortfolioID,
		&providerDeploymentID,
		&providerProjectID,
		&url,
		&d.Status,
		&errMsg,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Deployment{}, ErrNotFound
	}
	if err != nil {
		return Deployment{}, err
	}
	d.ProviderDeploymentID = providerDeploymentID.String
	d.ProviderProjectID = providerProjectID.String
	d.DeploymentURL = url.String
	d.ErrorMessage = errMsg.String
	return d, nil
}

func (r *PGRepo) MarkReady(ctx context.Context, id, providerDeploymentID, url string, at time.Time) error {
	const query = `
UPDATE deployments
SET status = $1, provider_deployment_id = NULLIF($2, ''), deployment_url = $3, error_message = NULL, updated_at = $4
WHERE id = $5`
	return r.execOne(ctx, query, StatusReady, providerDeploymentID, url, at, id)
}

func (r *PGRepo) MarkFailed(ctx context.Context, id, message string, at time.Time) error {
	const query = `UPDATE deployments SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`
	return r.execOne(ctx, query, StatusFailed, message, at, id)
}

func (r *PGRepo) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
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

var _ Repo = (*PGRepo)(nil)
