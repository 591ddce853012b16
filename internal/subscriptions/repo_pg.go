package subscriptions

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

const subscriptionColumns = `id, user_id, portfolio_id, stripe_customer_id, stripe_subscription_id, stripe_price_id, status, current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at`

func scanSubscription(row interface{ Scan(...any) error }) (Subscription, error) {
	var s Subscription
	var priceID sql.NullString
	var start, end sql.NullTime
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PortfolioID,
		&s.StripeCustomerID,
		&s.StripeSubscriptionID,
		&priceID,
		&s.Status,
		&start,
		&end,
		&s.CancelAtPeriodEnd,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return Subscription{}, err
	}
	s.StripePriceID = priceID.String
	if start.Valid {
		s.CurrentPeriodStart = &start.Time
	}
	if end.Valid {
		s.CurrentPeriodEnd = &end.Time
	}
	return s, nil
}

func (r *PGRepo) Create(ctx context.Context, s Subscription) error {
	const query = `
INSERT INTO subscriptions (id, user_id, portfolio_id, stripe_customer_id, stripe_subscription_id, stripe_price_id, status,
	current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8, $9, $10, $11, $11)`
	_, err := r.DB.ExecContext(ctx, query,
		s.ID,
		s.UserID,
		s.PortfolioID,
		s.StripeCustomerID,
		s.StripeSubscriptionID,
		s.StripePriceID,
		s.Status,
		s.CurrentPeriodStart,
		s.CurrentPeriodEnd,
		s.CancelAtPeriodEnd,
		s.CreatedAt,
	)
	return err
}

func (r *PGRepo) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE stripe_subscription_id = $1`
	return r.getOne(ctx, query, stripeSubscriptionID)
}

func (r *PGRepo) LatestByUser(ctx context.Context, userID string) (Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	return r.getOne(ctx, query, userID)
}

func (r *PGRepo) getOne(ctx context.Context, query, arg string) (Subscription, error) {
	s, err := scanSubscription(r.DB.QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return Subscription{}, ErrNotFound
	}
	return s, err
}

func (r *PGRepo) UpdateByStripeID(ctx context.Context, stripeSubscriptionID string, u Update) error {
	const query = `
UPDATE subscriptions
SET status = COALESCE(NULLIF($1, ''), status),
	current_period_start = COALESCE($2, current_period_start),
	current_period_end = COALESCE($3, current_period_end),
	cancel_at_period_end = COALESCE($4, cancel_at_period_end),
	updated_at = $5
WHERE stripe_subscription_id = $6`
	var cancel sql.NullBool
	if u.CancelAtPeriodEnd != nil {
		cancel = sql.NullBool{Bool: *u.CancelAtPeriodEnd, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx, query, u.Status, u.CurrentPeriodStart, u.CurrentPeriodEnd, cancel, u.At, stripeSubscriptionID)
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
