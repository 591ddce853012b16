package deployments

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"portfolio-backend/internal/portfolios"
	"portfolio-backend/internal/shared/metrics"
	"portfolio-backend/internal/shared/telemetry"
)

// Portfolios is the subset of portfolios.Service deployments read from.
type Portfolios interface {
	Lookup(ctx context.Context, id string) (portfolios.Detail, error)
}

type Service struct {
	Repo       Repo
	Portfolios Portfolios
	Publisher  Publisher
	Timeout    time.Duration
	Now        func() time.Time

	wg sync.WaitGroup
}

func NewService(repo Repo, portfolios Portfolios, publisher Publisher, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Service{
		Repo:       repo,
		Portfolios: portfolios,
		Publisher:  publisher,
		Timeout:    timeout,
		Now:        func() time.Time { return time.Now().UTC() },
	}
}

// Deploy records a pending deployment and publishes in the background.
func (s *Service) Deploy(ctx context.Context, portfolioID string) (Deployment, error) {
	portfolioID = strings.TrimSpace(portfolioID)
	if portfolioID == "" {
		return Deployment{}, fmt.Errorf("%w: portfolio_id is required", ErrInvalidInput)
	}
	detail, err := s.Portfolios.Lookup(ctx, portfolioID)
	if err != nil {
		if errors.Is(err, portfolios.ErrNotFound) {
			return Deployment{}, ErrNotFound
		}
		return Deployment{}, err
	}

	now := s.Now()
	d := Deployment{
		ID:                uuid.NewString(),
		PortfolioID:       portfolioID,
		ProviderProjectID: detail.Subdomain,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.Create(ctx, d); err != nil {
		return Deployment{}, err
	}
	metrics.IncDeployment()
	telemetry.Info("deployment.status", map[string]any{
		"deployment_id": d.ID,
		"portfolio_id":  portfolioID,
		"status":        d.Status,
	})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Timeout)
		defer cancel()
		s.publish(bg, d, detail)
	}()
	return d, nil
}

func (s *Service) publish(ctx context.Context, d Deployment, detail portfolios.Detail) {
	start := time.Now()
	out, err := s.Publisher.Publish(ctx, detail)
	if err != nil {
		telemetry.Error("deployment.status", map[string]any{
			"deployment_id": d.ID,
			"portfolio_id":  d.PortfolioID,
			"status":        StatusFailed,
			"error":         err.Error(),
		})
		if markErr := s.Repo.MarkFailed(context.WithoutCancel(ctx), d.ID, err.Error(), s.Now()); markErr != nil {
			telemetry.Error("deployment.update_failed", map[string]any{"deployment_id": d.ID, "error": markErr.Error()})
		}
		return
	}
	if err := s.Repo.MarkReady(context.WithoutCancel(ctx), d.ID, out.ProviderDeploymentID, out.URL, s.Now()); err != nil {
		telemetry.Error("deployment.update_failed", map[string]any{"deployment_id": d.ID, "error": err.Error()})
		return
	}
	telemetry.Info("deployment.status", map[string]any{
		"deployment_id": d.ID,
		"portfolio_id":  d.PortfolioID,
		"status":        StatusReady,
		"url":           out.URL,
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})
}

// Wait blocks until in-flight publishes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Status returns the latest deployment for a portfolio.
func (s *Service) Status(ctx context.Context, portfolioID string) (StatusView, error) {
	d, err := s.Repo.Latest(ctx, portfolioID)
	if err != nil {
		return StatusView{}, err
	}
	return d.View(), nil
}

// LatestStatus is Status reduced to the status string, "pending" when
// nothing has been deployed yet.
func (s *Service) LatestStatus(ctx context.Context, portfolioID string) (string, error) {
	d, err := s.Repo.Latest(ctx, portfolioID)
	if errors.Is(err, ErrNotFound) {
		return StatusPending, nil
	}
	if err != nil {
		return "", err
	}
	return d.Status, nil
}
