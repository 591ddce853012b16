package portfolios

import (
	"context"
	"time"
)

type Repo interface {
	// Create stores a portfolio and its first résumé revision together.
	Create(ctx context.Context, p Portfolio, rd ResumeData) error
	Get(ctx context.Context, id string) (Portfolio, error)
	GetBySubdomain(ctx context.Context, subdomain string) (Portfolio, error)
	ListByUser(ctx context.Context, userID string) ([]Portfolio, error)
	SubdomainTaken(ctx context.Context, subdomain string) (bool, error)
	SetPublished(ctx context.Context, id string, published bool, at time.Time) error

	AddResume(ctx context.Context, rd ResumeData) error
	LatestResume(ctx context.Context, portfolioID string) (ResumeData, error)
}
