package resilience

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter throttles calls to the inference endpoint so a burst of analyses
// does not saturate a single local model instance.
type Limiter struct {
	rl *rate.Limiter
}

// NewLimiter allows rps requests per second with the given burst. A rps of
// zero or less disables throttling.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{rl: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a slot is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.rl == nil {
		return nil
	}
	return l.rl.Wait(ctx)
}
