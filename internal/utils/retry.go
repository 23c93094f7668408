package utils

import (
	"context"
	"log/slog"
	"time"
)

// RetryConfig controls RetryWithBackoff behavior.
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig matches the settings used for session saves.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// RetryWithBackoff runs fn until it succeeds, retries are exhausted, or the
// context is cancelled. Delays grow by BackoffFactor up to MaxDelay.
func RetryWithBackoff(ctx context.Context, fn func() error, cfg RetryConfig) error {
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * cfg.BackoffFactor)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		}

		if lastErr = fn(); lastErr == nil {
			if attempt > 0 {
				LogInfo(ctx, "operation succeeded on retry", slog.Int("attempt", attempt+1))
			}
			return nil
		}
	}

	return lastErr
}
