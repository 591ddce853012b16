package subscriptions

import (
	"context"
	"sync"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	rows []Subscription
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Create(ctx context.Context, s Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, s)
	return nil
}

func (r *MemoryRepo) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return Subscription{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.rows {
		if s.StripeSubscriptionID == stripeSubscriptionID {
			return s, nil
		}
	}
	return Subscription{}, ErrNotFound
}

func (r *MemoryRepo) LatestByUser(ctx context.Context, userID string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return Subscription{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].UserID == userID {
			return r.rows[i], nil
		}
	}
	return Subscription{}, ErrNotFound
}

func (r *MemoryRepo) UpdateByStripeID(ctx context.Context, stripeSubscriptionID string, u Update) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		s := &r.rows[i]
		if s.StripeSubscriptionID != stripeSubscriptionID {
			continue
		}
		if u.Status != "" {
			s.Status = u.Status
		}
		if u.CurrentPeriodStart != nil {
			s.CurrentPeriodStart = u.CurrentPeriodStart
		}
		if u.CurrentPeriodEnd != nil {
			s.CurrentPeriodEnd = u.CurrentPeriodEnd
		}
		if u.CancelAtPeriodEnd != nil {
			s.CancelAtPeriodEnd = *u.CancelAtPeriodEnd
		}
		s.UpdatedAt = u.At
		return nil
	}
	return ErrNotFound
}

var _ Repo = (*MemoryRepo)(nil)
