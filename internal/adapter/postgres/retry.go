package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/emrahbadas00-lgtm/pazarglobal-agent-backend/internal/domain"
)

// Retry policy for transient read failures: up to 3 retries after the first
// attempt, with jittered backoff around 50ms, 200ms, 800ms. Writes are never
// retried here — a failed write surfaces immediately so no partial state leaks.
const (
	readRetryInitial    = 50 * time.Millisecond
	readRetryMultiplier = 4
	readRetryJitter     = 0.25
	readRetryMax        = 3 // retries after the first attempt
)

// RetryRead runs fn, retrying on domain.ErrStoreUnavailable. Any other
// error, including context cancellation, stops the loop immediately.
func RetryRead[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = readRetryInitial
	policy.Multiplier = readRetryMultiplier
	policy.RandomizationFactor = readRetryJitter
	policy.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	op := func() error {
		var err error
		out, err = fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrStoreUnavailable) {
			return err // retryable
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, readRetryMax), ctx))
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			return out, perm.Err
		}
		return out, err
	}
	return out, nil
}
