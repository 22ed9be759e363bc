package utils

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryWithBackoff calls fn up to attempts times, doubling the wait after each
// failure starting from initial. The last error is returned once attempts are exhausted.
// Cancellation of ctx stops further attempts.
func RetryWithBackoff(ctx context.Context, attempts int, initial time.Duration, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(initial))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return err
		}
		if attempt < attempts {
			slog.Debug("Retrying after failure", "attempt", attempt, "max_attempts", attempts, "error", err)
		}
		return retry.RetryableError(err)
	})
}
