package deployments

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, d Deployment) error
	Latest(ctx context.Context, portfolioID string) (Deployment, error)
	MarkReady(ctx context.Context, id, providerDeploymentID, url string, at time.Time) error
	MarkFailed(ctx context.Context, id, message string, at time.Time) error
}
