package portfolios

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps portfolios in process. Used when DATABASE_URL is unset.
type MemoryRepo struct {
	mu         sync.RWMutex
	portfolios map[string]Portfolio
	resumes    map[string][]ResumeData // portfolio id -> revisions, oldest first
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		portfolios: make(map[string]Portfolio),
		resumes:    make(map[string][]ResumeData),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, p Portfolio, rd ResumeData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.portfolios {
		if existing.Subdomain == p.Subdomain {
			return ErrSubdomainTaken
		}
	}
	r.portfolios[p.ID] = p
	r.resumes[p.ID] = append(r.resumes[p.ID], rd)
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Portfolio, error) {
	if err := ctx.Err(); err != nil {
		return Portfolio{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.portfolios[id]
	if !ok {
		return Portfolio{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) GetBySubdomain(ctx context.Context, subdomain string) (Portfolio, error) {
	if err := ctx.Err(); err != nil {
		return Portfolio{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.portfolios {
		if p.Subdomain == subdomain {
			return p, nil
		}
	}
	return Portfolio{}, ErrNotFound
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string) ([]Portfolio, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	out := make([]Portfolio, 0)
	for _, p := range r.portfolios {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepo) SubdomainTaken(ctx context.Context, subdomain string) (bool, error) {
	_, err := r.GetBySubdomain(ctx, subdomain)
	switch err {
	case nil:
		return true, nil
	case ErrNotFound:
		return false, nil
	}
	return false, err
}

func (r *MemoryRepo) SetPublished(ctx context.Context, id string, published bool, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.portfolios[id]
	if !ok {
		return ErrNotFound
	}
	p.IsPublished = published
	p.UpdatedAt = at
	r.portfolios[id] = p
	return nil
}

func (r *MemoryRepo) AddResume(ctx context.Context, rd ResumeData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.portfolios[rd.PortfolioID]; !ok {
		return ErrNotFound
	}
	r.resumes[rd.PortfolioID] = append(r.resumes[rd.PortfolioID], rd)
	return nil
}

func (r *MemoryRepo) LatestResume(ctx context.Context, portfolioID string) (ResumeData, error) {
	if err := ctx.Err(); err != nil {
		return ResumeData{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	revs := r.resumes[portfolioID]
	if len(revs) == 0 {
		return ResumeData{}, ErrNotFound
	}
	return revs[len(revs)-1], nil
}

var _ Repo = (*MemoryRepo)(nil)
