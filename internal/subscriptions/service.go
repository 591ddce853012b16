package subscriptions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"

	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/telemetry"
)

// initialPeriod covers a new subscription until Stripe reports real periods.
const initialPeriod = 30 * 24 * time.Hour

// Publisher toggles portfolio visibility.
type Publisher interface {
	SetPublished(ctx context.Context, portfolioID string, published bool) error
}

// Deployer starts a site deployment.
type Deployer interface {
	Deploy(ctx context.Context, portfolioID string) error
}

// DeployFunc adapts a function to Deployer.
type DeployFunc func(ctx context.Context, portfolioID string) error

func (f DeployFunc) Deploy(ctx context.Context, portfolioID string) error { return f(ctx, portfolioID) }

type Service struct {
	Repo       Repo
	Portfolios Publisher
	Deployer   Deployer
	Now        func() time.Time
}

func NewService(repo Repo, portfolios Publisher, deployer Deployer) *Service {
	return &Service{
		Repo:       repo,
		Portfolios: portfolios,
		Deployer:   deployer,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// LatestCustomerID returns the Stripe customer a user already has, or "".
func (s *Service) LatestCustomerID(ctx context.Context, userID string) (string, error) {
	sub, err := s.Repo.LatestByUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return sub.StripeCustomerID, nil
}

// HandleEvent applies one verified Stripe event.
func (s *Service) HandleEvent(ctx context.Context, event stripe.Event) error {
	metrics.IncWebhookEvent()
	fields := map[string]any{"event_id": event.ID, "type": string(event.Type)}
	telemetry.Info("webhook.received", fields)

	var err error
	switch event.Type {
	case "checkout.session.completed":
		err = s.checkoutCompleted(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated":
		err = s.subscriptionChanged(ctx, event)
	case "customer.subscription.deleted":
		err = s.subscriptionDeleted(ctx, event)
	case "invoice.payment_succeeded":
		err = s.invoicePaid(ctx, event)
	case "invoice.payment_failed":
		err = s.invoiceFailed(ctx, event)
	default:
		telemetry.Info("webhook.unhandled", fields)
		return nil
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Error("webhook.failed", fields)
	}
	return err
}

func (s *Service) checkoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := decodeObject(event, &session); err != nil {
		return fmt.Errorf("decode checkout session: %w", err)
	}
	portfolioID := session.Metadata["portfolio_id"]
	userID := session.Metadata["user_id"]
	if portfolioID == "" || userID == "" {
		telemetry.Warn("webhook.missing_metadata", map[string]any{
			"event_id":   event.ID,
			"session_id": session.ID,
		})
		return nil
	}

	if err := s.Portfolios.SetPublished(ctx, portfolioID, true); err != nil {
		return fmt.Errorf("publish portfolio: %w", err)
	}

	now := s.Now()
	end := now.Add(initialPeriod)
	sub := Subscription{
		ID:                 uuid.NewString(),
		UserID:             userID,
		PortfolioID:        portfolioID,
		Status:             StatusActive,
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &end,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if session.Customer != nil {
		sub.StripeCustomerID = session.Customer.ID
	}
	if session.Subscription != nil {
		sub.StripeSubscriptionID = session.Subscription.ID
	}
	if err := s.Repo.Create(ctx, sub); err != nil {
		return fmt.Errorf("insert subscription: %w", err)
	}
	telemetry.Info("subscription.created", map[string]any{
		"subscription_id": sub.ID,
		"portfolio_id":    portfolioID,
		"user_id":         userID,
	})

	if s.Deployer != nil {
		if err := s.Deployer.Deploy(ctx, portfolioID); err != nil {
			return fmt.Errorf("start deployment: %w", err)
		}
	}
	return nil
}

func (s *Service) subscriptionChanged(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := decodeObject(event, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	cancel := sub.CancelAtPeriodEnd
	return s.update(ctx, event, sub.ID, Update{
		Status:             string(sub.Status),
		CurrentPeriodStart: unixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:   unixTime(sub.CurrentPeriodEnd),
		CancelAtPeriodEnd:  &cancel,
		At:                 s.Now(),
	})
}

func (s *Service) subscriptionDeleted(ctx context.Context, event stripe.Event) error {
	var sub stripe.Subscription
	if err := decodeObject(event, &sub); err != nil {
		return fmt.Errorf("decode subscription: %w", err)
	}
	cancel := true
	if err := s.update(ctx, event, sub.ID, Update{
		Status:            StatusCanceled,
		CancelAtPeriodEnd: &cancel,
		At:                s.Now(),
	}); err != nil {
		return err
	}

	portfolioID := sub.Metadata["portfolio_id"]
	if stored, err := s.Repo.GetByStripeID(ctx, sub.ID); err == nil && stored.PortfolioID != "" {
		portfolioID = stored.PortfolioID
	}
	if portfolioID == "" {
		return nil
	}
	if err := s.Portfolios.SetPublished(ctx, portfolioID, false); err != nil {
		return fmt.Errorf("unpublish portfolio: %w", err)
	}
	return nil
}

func (s *Service) invoicePaid(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := decodeObject(event, &inv); err != nil {
		return fmt.Errorf("decode invoice: %w", err)
	}
	return s.update(ctx, event, invoiceSubscriptionID(inv), Update{
		Status:             StatusActive,
		CurrentPeriodStart: unixTime(inv.PeriodStart),
		CurrentPeriodEnd:   unixTime(inv.PeriodEnd),
		At:                 s.Now(),
	})
}

func (s *Service) invoiceFailed(ctx context.Context, event stripe.Event) error {
	var inv stripe.Invoice
	if err := decodeObject(event, &inv); err != nil {
		return fmt.Errorf("decode invoice: %w", err)
	}
	return s.update(ctx, event, invoiceSubscriptionID(inv), Update{Status: StatusPastDue, At: s.Now()})
}

// update applies u. Events for subscriptions this service never stored are
// logged and skipped; Stripe delivers them for one-off invoices and for
// events racing checkout completion.
func (s *Service) update(ctx context.Context, event stripe.Event, stripeSubscriptionID string, u Update) error {
	if stripeSubscriptionID == "" {
		telemetry.Warn("webhook.missing_subscription", map[string]any{"event_id": event.ID, "type": string(event.Type)})
		return nil
	}
	err := s.Repo.UpdateByStripeID(ctx, stripeSubscriptionID, u)
	if errors.Is(err, ErrNotFound) {
		telemetry.Warn("webhook.unknown_subscription", map[string]any{
			"event_id":               event.ID,
			"type":                   string(event.Type),
			"stripe_subscription_id": stripeSubscriptionID,
		})
		return nil
	}
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	telemetry.Info("subscription.updated", map[string]any{
		"stripe_subscription_id": stripeSubscriptionID,
		"status":                 u.Status,
	})
	return nil
}

func decodeObject(event stripe.Event, v any) error {
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return errors.New("event has no data object")
	}
	return json.Unmarshal(event.Data.Raw, v)
}

func invoiceSubscriptionID(inv stripe.Invoice) string {
	if inv.Subscription == nil {
		return ""
	}
	return inv.Subscription.ID
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
