package genai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const defaultBaseBackoff = 1 * time.Second

// retryableError marks an error as transient: rate limiting, a 5xx reply or
// a transport failure.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// withRetries calls fn until it succeeds, returns a non-retryable error, or
// maxRetries retries are used up. The wait doubles after each attempt.
func withRetries[T any](ctx context.Context, maxRetries int, baseBackoff time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseBackoff * time.Duration(1<<(attempt-1))
			timer := time.NewTimer(backoff)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			}
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if !isRetryableError(err) {
			return zero, err
		}
	}
	return zero, fmt.Errorf("max retries exceeded: %w", lastErr)
}
