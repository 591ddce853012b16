// Package billing creates Stripe checkout sessions for portfolio hosting and
// verifies completed ones.
package billing

import (
	"context"
	"errors"
)

var (
	ErrSessionNotFound = errors.New("checkout session not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUserNotFound    = errors.New("user not found")
)

// Gateway is the payment provider surface billing needs.
type Gateway interface {
	EnsureCustomer(ctx context.Context, email string, metadata map[string]string) (string, error)
	CreateCheckoutSession(ctx context.Context, in CheckoutInput) (Session, error)
	GetSession(ctx context.Context, id string) (Session, error)
}

type CheckoutInput struct {
	CustomerID  string
	PriceCents  int64
	Currency    string
	ProductName string
	Description string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

type Session struct {
	ID             string
	URL            string
	CustomerID     string
	SubscriptionID string
	Status         string
	PaymentStatus  string
	Metadata       map[string]string
}
