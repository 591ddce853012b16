package documents

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryRepo keeps documents in process for dev runs and tests. Ordering
// matches the Postgres repo: newest created_at first.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Document
	byUser map[string][]string
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Document),
		byUser: make(map[string][]string),
	}
}

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[doc.ID]; !exists {
		r.byUser[doc.UserID] = append(r.byUser[doc.UserID], doc.ID)
	}
	r.byID[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetCurrentByUser(ctx context.Context, userID string) (Document, error) {
	docs, err := r.ListByUser(ctx, userID, 1, 0)
	if err != nil {
		return Document{}, err
	}
	if len(docs) == 0 {
		return Document{}, ErrNotFound
	}
	return docs[0], nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[documentID]
	if !ok || doc.UserID != userID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) UpdateParsedText(ctx context.Context, userID, documentID, parsedKey string, parsedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.byID[documentID]
	if !ok || doc.UserID != userID {
		return ErrNotFound
	}
	doc.ParsedTextKey = parsedKey
	doc.ParsedAt = &parsedAt
	r.byID[documentID] = doc
	return nil
}

// ListByUser pages through a user's documents. A non-positive limit means
// no limit.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	ids := r.byUser[userID]
	docs := make([]Document, 0, len(ids))
	for _, id := range ids {
		docs = append(docs, r.byID[id])
	}
	r.mu.RUnlock()

	// Stable on ties so the later upload wins, as with a serial insert.
	slices.Reverse(docs)
	slices.SortStableFunc(docs, func(a, b Document) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	offset = max(offset, 0)
	if offset >= len(docs) {
		return []Document{}, nil
	}
	docs = docs[offset:]
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs, nil
}

var _ Repo = (*MemoryRepo)(nil)
