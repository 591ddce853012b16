package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"portfolio-backend/internal/shared/telemetry"
	"portfolio-backend/internal/users"
)

// Users resolves the buyer.
type Users interface {
	GetByID(ctx context.Context, id string) (users.User, error)
}

// Customers finds a Stripe customer the user already has.
type Customers interface {
	LatestCustomerID(ctx context.Context, userID string) (string, error)
}

// Deployments reports the latest deployment status of a portfolio.
type Deployments interface {
	LatestStatus(ctx context.Context, portfolioID string) (string, error)
}

type Config struct {
	PublicBaseURL string
	RootDomain    string
	PriceCents    int64
	Currency      string
	ProductName   string
}

type Service struct {
	Gateway     Gateway
	Users       Users
	Customers   Customers
	Deployments Deployments
	Config      Config
}

type CheckoutRequest struct {
	PortfolioID string
	Subdomain   string
	UserID      string
}

type VerifyResult struct {
	PortfolioID      string `json:"portfolio_id"`
	PortfolioURL     string `json:"portfolio_url"`
	DeploymentStatus string `json:"deployment_status"`
	Subdomain        string `json:"subdomain"`
}

// CreateCheckout opens a monthly hosting subscription checkout for a
// portfolio. An existing Stripe customer is reused.
func (s *Service) CreateCheckout(ctx context.Context, req CheckoutRequest) (Session, error) {
	if req.PortfolioID == "" || req.Subdomain == "" || req.UserID == "" {
		return Session{}, fmt.Errorf("%w: portfolio_id, subdomain and user_id are required", ErrInvalidInput)
	}
	user, err := s.Users.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return Session{}, ErrUserNotFound
		}
		return Session{}, err
	}

	metadata := map[string]string{
		"portfolio_id": req.PortfolioID,
		"subdomain":    req.Subdomain,
		"user_id":      req.UserID,
	}

	customerID, err := s.Customers.LatestCustomerID(ctx, req.UserID)
	if err != nil {
		return Session{}, err
	}
	if customerID == "" {
		customerID, err = s.Gateway.EnsureCustomer(ctx, user.Email, map[string]string{"user_id": req.UserID})
		if err != nil {
			return Session{}, err
		}
	}

	base := strings.TrimRight(s.Config.PublicBaseURL, "/")
	sess, err := s.Gateway.CreateCheckoutSession(ctx, CheckoutInput{
		CustomerID:  customerID,
		PriceCents:  s.Config.PriceCents,
		Currency:    s.Config.Currency,
		ProductName: s.Config.ProductName,
		Description: fmt.Sprintf("Portfolio hosting for %s.%s", req.Subdomain, s.Config.RootDomain),
		SuccessURL:  base + "/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   base + "/publish",
		Metadata:    metadata,
	})
	if err != nil {
		return Session{}, err
	}
	telemetry.Info("billing.checkout_created", map[string]any{
		"session_id":   sess.ID,
		"portfolio_id": req.PortfolioID,
		"user_id":      req.UserID,
	})
	return sess, nil
}

// Verify reads back a checkout session after the redirect.
func (s *Service) Verify(ctx context.Context, sessionID string) (VerifyResult, error) {
	if strings.TrimSpace(sessionID) == "" {
		return VerifyResult{}, fmt.Errorf("%w: session_id is required", ErrInvalidInput)
	}
	sess, err := s.Gateway.GetSession(ctx, sessionID)
	if err != nil {
		return VerifyResult{}, err
	}
	portfolioID := sess.Metadata["portfolio_id"]
	subdomain := sess.Metadata["subdomain"]
	if portfolioID == "" || subdomain == "" {
		return VerifyResult{}, fmt.Errorf("%w: session is missing portfolio metadata", ErrInvalidInput)
	}
	status, err := s.Deployments.LatestStatus(ctx, portfolioID)
	if err != nil {
		return VerifyResult{}, err
	}
	return VerifyResult{
		PortfolioID:      portfolioID,
		PortfolioURL:     "https://" + subdomain + "." + s.Config.RootDomain,
		DeploymentStatus: status,
		Subdomain:        subdomain,
	}, nil
}
