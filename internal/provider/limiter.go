package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter bounds the outbound call rate to one collaborator.
type Limiter struct {
	limiter *rate.Limiter
}

// NewLimiter allows perSecond calls with the given burst. A non-positive rate
// yields a limiter that never waits.
func NewLimiter(perSecond float64, burst int) *Limiter {
	if perSecond <= 0 {
		return &Limiter{}
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

// Wait blocks until a call is allowed or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.limiter == nil {
		return ctx.Err()
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return Wrap("limiter", KindTransport, err)
	}
	return nil
}
