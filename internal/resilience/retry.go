package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig bounds how often and how patiently an operation is retried.
type RetryConfig struct {
	// MaxAttempts counts the first try. 1 disables retries.
	MaxAttempts int

	// Backoff is the pause before each retry.
	Backoff time.Duration

	// JitterFraction spreads Backoff by ±fraction.
	JitterFraction float64

	// ShouldRetry decides whether an error is worth another attempt.
	// Defaults to IsTransient.
	ShouldRetry func(err error) bool

	// OnRetry runs before each retry pause.
	OnRetry func(attempt int, err error)
}

// SingleRetry allows one retry after a short pause.
func SingleRetry() RetryConfig {
	return RetryConfig{
		MaxAttempts:    2,
		Backoff:        250 * time.Millisecond,
		JitterFraction: 0.2,
	}
}

// DoVal runs fn until it succeeds, returns a non-retryable error, or runs out
// of attempts. Context cancellation ends the loop with the last error.
func DoVal[T any](ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}

	var (
		zero    T
		lastErr error
	)
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err

		if ctx.Err() != nil || !shouldRetry(err) || attempt == cfg.MaxAttempts {
			break
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err)
		}

		timer := time.NewTimer(jittered(cfg.Backoff, cfg.JitterFraction))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}

func jittered(d time.Duration, fraction float64) time.Duration {
	if d <= 0 || fraction <= 0 {
		return max(d, 0)
	}
	spread := float64(d) * fraction
	out := float64(d) + (rand.Float64()*2-1)*spread
	return time.Duration(max(out, 0))
}

// RetryLogger returns an OnRetry callback that logs each retry at warn level.
func RetryLogger(operation, target string) func(int, error) {
	return func(attempt int, err error) {
		zap.L().Warn("retrying operation",
			zap.String("operation", operation),
			zap.String("target", target),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
}
