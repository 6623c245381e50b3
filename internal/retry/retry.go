// Package retry wraps cenkalti/backoff with the fixed schedule used across
// feed fetches, artifact writes and search calls: a small number of attempts
// with exponential, jitter-free delays.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Schedule describes a bounded exponential backoff
type Schedule struct {
	Attempts   int // total attempts including the first
	Initial    time.Duration
	Multiplier float64
}

// DefaultSchedule is the production schedule: 3 attempts with delays of
// 1s then 2s between them
func DefaultSchedule() Schedule {
	return Schedule{
		Attempts:   3,
		Initial:    time.Second,
		Multiplier: 2,
	}
}

// Notify is called before each sleep with the attempt that just failed
// (1-based) and the upcoming delay
type Notify func(err error, attempt int, delay time.Duration)

// Permanent marks err as non-retryable; Do returns it immediately
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// Do runs fn under the schedule until it succeeds, exhausts its attempts,
// returns a Permanent error, or ctx is done. The error from the last
// attempt is returned on exhaustion.
func Do[T any](ctx context.Context, s Schedule, fn func() (T, error), notify Notify) (T, error) {
	if s.Attempts < 1 {
		s.Attempts = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.Initial
	b.Multiplier = s.Multiplier
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	b.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.Attempts-1)), ctx)

	attempt := 0
	return backoff.RetryNotifyWithData(
		func() (T, error) {
			attempt++
			return fn()
		},
		policy,
		func(err error, delay time.Duration) {
			if notify != nil {
				notify(err, attempt, delay)
			}
		},
	)
}
