package parses

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation for dev and tests.
type MemoryRepo struct {
	mu     sync.RWMutex
	parses map[string]Parse
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{parses: make(map[string]Parse)}
}

func (r *MemoryRepo) Create(ctx context.Context, p Parse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	r.parses[p.ID] = p
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, parseID string) (Parse, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.parses[parseID]
	if !ok {
		return Parse{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, parseID string) (Parse, error) {
	p, err := r.Get(ctx, parseID)
	if err != nil {
		return Parse{}, err
	}
	if p.UserID != userID {
		return Parse{}, ErrNotFound
	}
	return p, nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Parse, error) {
	r.mu.RLock()
	var out []Parse
	for _, p := range r.parses {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []Parse{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepo) MarkProcessing(ctx context.Context, parseID string, startedAt time.Time) error {
	return r.update(parseID, func(p *Parse) {
		p.Status = StatusProcessing
		p.StartedAt = &startedAt
		p.ErrorCode = ""
		p.ErrorMessage = ""
		p.Retryable = false
		p.UpdatedAt = startedAt
	})
}

func (r *MemoryRepo) Complete(ctx context.Context, done Parse) error {
	return r.update(done.ID, func(p *Parse) {
		p.Status = StatusCompleted
		p.ParsedText = done.ParsedText
		p.Extracted = done.Extracted
		p.Enhanced = done.Enhanced
		p.Degraded = done.Degraded
		p.ParsingError = done.ParsingError
		p.CompletedAt = done.CompletedAt
		if done.CompletedAt != nil {
			p.UpdatedAt = *done.CompletedAt
		}
	})
}

func (r *MemoryRepo) Fail(ctx context.Context, parseID, code, message string, retryable bool, completedAt time.Time) error {
	return r.update(parseID, func(p *Parse) {
		p.Status = StatusFailed
		p.ErrorCode = code
		p.ErrorMessage = message
		p.Retryable = retryable
		p.CompletedAt = &completedAt
		p.UpdatedAt = completedAt
	})
}

func (r *MemoryRepo) update(parseID string, fn func(*Parse)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.parses[parseID]
	if !ok {
		return ErrNotFound
	}
	fn(&p)
	r.parses[parseID] = p
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
