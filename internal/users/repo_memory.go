package users

import (
	"cmp"
	"context"
	"sync"
	"time"
)

// MemoryRepo backs users when no database is configured.
type MemoryRepo struct {
	now func() time.Time

	mu   sync.RWMutex
	byID map[string]User
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		now:  func() time.Time { return time.Now().UTC() },
		byID: make(map[string]User),
	}
}

// Upsert mirrors the Postgres ON CONFLICT rule: email always follows the
// latest sign-in, optional fields only move forward when non-empty.
func (r *MemoryRepo) Upsert(ctx context.Context, user User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ts := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[user.ID]
	if !ok {
		user.CreatedAt, user.UpdatedAt = ts, ts
		r.byID[user.ID] = user
		return nil
	}
	stored.Email = user.Email
	stored.Name = cmp.Or(user.Name, stored.Name)
	stored.UseCase = cmp.Or(user.UseCase, stored.UseCase)
	stored.ReferralSource = cmp.Or(user.ReferralSource, stored.ReferralSource)
	stored.PictureURL = cmp.Or(user.PictureURL, stored.PictureURL)
	stored.UpdatedAt = ts
	r.byID[user.ID] = stored
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	u, ok := r.byID[userID]
	r.mu.RUnlock()
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

var _ Repo = (*MemoryRepo)(nil)
