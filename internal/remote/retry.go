package remote

import (
	"context"
	"math/rand"
	"time"

	"github.com/dshills/codesync/pkg/types"
)

// Default retry configuration for upsert calls.
const (
	MaxAttempts       = 3
	BaseDelayMs       = 500
	BackoffMultiplier = 2.0
	JitterFraction    = 0.2
)

// RetryConfig configures exponential backoff retry behavior.
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts
	BaseDelay   time.Duration // Initial delay between attempts
	Multiplier  float64       // Exponential backoff multiplier
	Jitter      float64       // Random delay fraction, e.g. 0.2 for ±20%
}

// DefaultRetryConfig returns the standard upsert retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: MaxAttempts,
		BaseDelay:   BaseDelayMs * time.Millisecond,
		Multiplier:  BackoffMultiplier,
		Jitter:      JitterFraction,
	}
}

// retryWithBackoff executes fn with exponential backoff. Only transient
// failures (transport errors, 5xx, 429) are retried; anything else
// returns immediately. Retry is skipped on context cancellation.
func retryWithBackoff(ctx context.Context, config RetryConfig, fn func() error) error {
	var lastErr error
	backoff := config.BaseDelay

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !types.IsRetryable(err) {
			return err
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt < config.MaxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jittered(backoff, config.Jitter)):
				backoff = time.Duration(float64(backoff) * config.Multiplier)
			}
		}
	}

	return lastErr
}

// jittered spreads d by ±fraction so concurrent clients don't retry in
// lockstep.
func jittered(d time.Duration, fraction float64) time.Duration {
	if fraction <= 0 {
		return d
	}
	spread := (rand.Float64()*2 - 1) * fraction
	return time.Duration(float64(d) * (1 + spread))
}
