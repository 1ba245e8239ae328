package utils

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// NewConstantBackoff makes backoff allowing `attempts` calls in total with a fixed delay between them
func NewConstantBackoff(delay time.Duration, attempts int) backoff.BackOff {
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), uint64(attempts-1))
}

// InvokeWithTimer calls f until it succeeds, reports non retryable error or backoff stops.
// Timer may be nil, then the real clock is used
func InvokeWithTimer[T any](ctx context.Context, f func() (T, bool, error), b backoff.BackOff, timer backoff.Timer,
	notify backoff.Notify) (T, error) {
	var res T
	op := func() error {
		var (
			err   error
			retry bool
		)
		res, retry, err = f()
		if err != nil && !retry {
			return backoff.Permanent(err)
		}
		return err
	}
	err := backoff.RetryNotifyWithTimer(op, backoff.WithContext(b, ctx), notify, timer)
	if err != nil {
		var empty T
		return empty, err
	}
	return res, nil
}
