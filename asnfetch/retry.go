package asnfetch

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// retry defaults
const (
	DefaultAttempts = 3
	DefaultDelay    = 2 * time.Second
)

// Retry is a bounded, constant delay retry policy
type Retry struct {
	Attempts int           // total attempts, first one included
	Delay    time.Duration // wait between attempts

	// NewTimer replaces the wall clock timer, tests use it to skip the waits
	NewTimer func() backoff.Timer

	// Notify is called before every wait with the error of the failed attempt
	Notify func(err error, attempt int, wait time.Duration)
}

// Permanent marks err as not worth a retry
func Permanent(err error) error { return backoff.Permanent(err) }

// Do runs op until it succeeds, returns a permanent error, the attempts are
// used up or ctx is done. The error of the last attempt is returned.
func (r Retry) Do(ctx context.Context, op func() error) error {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.Delay), uint64(attempts-1)),
		ctx,
	)
	attempt := 0
	notify := func(err error, wait time.Duration) {
		attempt++
		if r.Notify != nil {
			r.Notify(err, attempt, wait)
		}
	}
	if r.NewTimer == nil {
		return backoff.RetryNotify(op, b, notify)
	}
	return backoff.RetryNotifyWithTimer(op, b, notify, r.NewTimer())
}
