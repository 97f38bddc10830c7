// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package backoff wraps cenkalti/backoff with the retry shapes the workcell
// core needs: bounded exponential retries for remote calls, and deadline
// polling for cooperative waits.
package backoff

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs f under exponential backoff until it succeeds or maxElapsedTime
// passes. Wrap a failure in backoff.Permanent to stop early.
func Retry(f backoff.Operation, maxElapsedTime, maxInterval time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsedTime
	b.MaxInterval = maxInterval
	if err := backoff.Retry(f, b); err != nil {
		return err
	}
	return nil
}

// RetryNotify is Retry with a per-attempt notify callback, for logging.
func RetryNotify(f backoff.Operation, maxElapsedTime, maxInterval time.Duration, notify backoff.Notify) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsedTime
	b.MaxInterval = maxInterval
	return backoff.RetryNotify(f, b, notify)
}

// Permanent marks err as non-retryable for Retry.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// PollUntil calls check with exponential spacing until it returns true, the
// deadline passes, or ctx is done. It never blocks inside check; this is the
// cooperative wait used for lock acquisition timeouts.
func PollUntil(ctx context.Context, check func() (bool, error), deadline time.Time, initialInterval, maxInterval time.Duration) (bool, error) {
	interval := initialInterval
	for {
		ok, err := check()
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if !time.Now().Before(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(interval):
		}
		interval = time.Duration(float64(interval) * 1.5)
		if interval > maxInterval {
			interval = maxInterval
		}
	}
}
