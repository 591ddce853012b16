package parses

import (
	"context"
	"time"
)

// Repo defines persistence operations for parses.
type Repo interface {
	Create(ctx context.Context, p Parse) error
	// Get loads a parse without an owner check. Workers use it.
	Get(ctx context.Context, parseID string) (Parse, error)
	GetByID(ctx context.Context, userID, parseID string) (Parse, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Parse, error)
	MarkProcessing(ctx context.Context, parseID string, startedAt time.Time) error
	// Complete stores the pipeline output and sets status completed.
	Complete(ctx context.Context, p Parse) error
	Fail(ctx context.Context, parseID, code, message string, retryable bool, completedAt time.Time) error
}
