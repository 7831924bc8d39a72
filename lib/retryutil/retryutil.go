// Package retryutil is the single retry-with-backoff policy shared by
// every call site that talks to the portal.
package retryutil

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Policy struct {
	// total attempts, including the first one
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// nil means every error is retryable
	Retryable func(error) bool
}

// Do runs op under the policy. delays double from BaseDelay up to
// MaxDelay with up to 10% jitter, sleeping only the calling goroutine.
// a non-retryable error stops immediately; exhausting the attempts
// surfaces the last error seen.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.MaxInterval = p.MaxDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0.1
	b.MaxElapsedTime = 0

	wrapped := func() (T, error) {
		v, err := op()
		if err != nil && p.Retryable != nil && !p.Retryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}

	retries := uint64(0)
	if p.MaxAttempts > 1 {
		retries = uint64(p.MaxAttempts - 1)
	}
	return backoff.RetryWithData(
		wrapped,
		backoff.WithContext(backoff.WithMaxRetries(b, retries), ctx),
	)
}
