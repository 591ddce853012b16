package subscriptions

import "context"

type Repo interface {
	Create(ctx context.Context, s Subscription) error
	GetByStripeID(ctx context.Context, stripeSubscriptionID string) (Subscription, error)
	// LatestByUser returns the user's most recent subscription, used to reuse
	// the Stripe customer.
	LatestByUser(ctx context.Context, userID string) (Subscription, error)
	UpdateByStripeID(ctx context.Context, stripeSubscriptionID string, u Update) error
}
