package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds the exponential backoff used for transient inference
// failures. Only failures whose taxonomy kind is retryable are reattempted.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       float64
}

// DefaultRetryConfig mirrors the bounded-retry contract: a small fixed
// number of attempts, never unbounded.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 1 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
		Jitter:       0.2,
	}
}

// Retry runs op until it succeeds, exhausts the attempt bound, returns a
// non-retryable failure, or the context is cancelled. The last error is
// returned unmodified so its taxonomy kind survives.
func Retry(ctx context.Context, cfg RetryConfig, logger *zap.Logger, op func(ctx context.Context) error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !Retryable(lastErr) || attempt == cfg.MaxAttempts {
			return lastErr
		}

		delay := cfg.backoff(attempt)
		if logger != nil {
			logger.Warn("retrying after transient failure",
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.String("kind", string(Classify(lastErr))),
				zap.Error(lastErr))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}

func (c RetryConfig) backoff(attempt int) time.Duration {
	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt-1))
	if c.Jitter > 0 {
		d += d * c.Jitter * (rand.Float64()*2 - 1)
	}
	if max := float64(c.MaxDelay); c.MaxDelay > 0 && d > max {
		d = max
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
