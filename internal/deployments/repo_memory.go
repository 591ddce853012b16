package deployments

import (
	"context"
	"sync"
	"time"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	rows []Deployment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Create(ctx context.Context, d Deployment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, d)
	return nil
}

func (r *MemoryRepo) Latest(ctx context.Context, portfolioID string) (Deployment, error) {
	if err := ctx.Err(); err != nil {
		return Deployment{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for i := len(r.rows) - 1; i >= 0; i-- {
		if r.rows[i].PortfolioID == portfolioID {
			return r.rows[i], nil
		}
	}
	return Deployment{}, ErrNotFound
}

func (r *MemoryRepo) MarkReady(ctx context.Context, id, providerDeploymentID, url string, at time.Time) error {
	return r.update(ctx, id, func(d *Deployment) {
		d.Status = StatusReady
		d.ProviderDeploymentID = providerDeploymentID
		d.DeploymentURL = url
		d.UpdatedAt = at
	})
}

func (r *MemoryRepo) MarkFailed(ctx context.Context, id, message string, at time.Time) error {
	return r.update(ctx, id, func(d *Deployment) {
		d.Status = StatusFailed
		d.ErrorMessage = message
		d.UpdatedAt = at
	})
}

func (r *MemoryRepo) update(ctx context.Context, id string, fn func(*Deployment)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].ID == id {
			fn(&r.rows[i])
			return nil
		}
	}
	return ErrNotFound
}

var _ Repo = (*MemoryRepo)(nil)
