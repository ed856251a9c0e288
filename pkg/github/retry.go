package github

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	maxRetryAttempts  = 5
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 30 * time.Second
)

// retryWithBackoff executes fn with exponential backoff and jitter.
// Not-found and access-denied responses are terminal: retrying cannot change
// them, so they surface immediately.
func retryWithBackoff(ctx context.Context, operation string, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(maxRetryAttempts),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.Delay(initialRetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrAccessDenied)
		}),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying GitHub API call", "operation", operation, "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
	)
}
