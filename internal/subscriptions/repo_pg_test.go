package subscriptions

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

func TestPGRepoLatestByUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	cols := []string{"id", "user_id", "portfolio_id", "stripe_customer_id", "stripe_subscription_id", "stripe_price_id", "status",
		"current_period_start", "current_period_end", "cancel_at_period_end", "created_at", "updated_at"}

	mock.ExpectQuery("SELECT (.+) FROM subscriptions WHERE user_id = \\$1 ORDER BY created_at DESC LIMIT 1").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("s-1", "user-1", "p-1", "cus_1", "sub_1", nil, StatusActive, now, nil, false, now, now))

	s, err := repo.LatestByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("LatestByUser: %v", err)
	}
	if s.StripeCustomerID != "cus_1" || s.CurrentPeriodStart == nil || s.CurrentPeriodEnd != nil {
		t.Fatalf("unexpected subscription %+v", s)
	}
}

func TestPGRepoUpdateByStripeID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now().UTC()
	cancel := true

	mock.ExpectExec("UPDATE subscriptions").
		WithArgs(StatusCanceled, nil, nil, true, now, "sub_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE subscriptions").
		WithArgs(StatusPastDue, nil, nil, nil, now, "sub_missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdateByStripeID(context.Background(), "sub_1", Update{Status: StatusCanceled, CancelAtPeriodEnd: &cancel, At: now}); err != nil {
		t.Fatalf("UpdateByStripeID: %v", err)
	}
	err := repo.UpdateByStripeID(context.Background(), "sub_missing", Update{Status: StatusPastDue, At: now})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
