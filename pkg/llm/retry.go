package llm

import (
	"context"
	"errors"
	"time"
)

func retryWithBackoff(ctx context.Context, maxRetries int, backoff func(attempt int) time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		// Only rate limits are retried against the same provider.
		if !errors.Is(lastErr, ErrRateLimited) {
			return lastErr
		}

		if attempt < maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}
	}
	return lastErr
}

func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}
