// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryPermanentStopsEarly(t *testing.T) {
	attempts := 0
	wantErr := errors.New("bad request")
	err := Retry(func() error {
		attempts++
		return Permanent(wantErr)
	}, 5*time.Second, 50*time.Millisecond)

	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, attempts)
}

func TestPollUntilSuccess(t *testing.T) {
	calls := 0
	ok, err := PollUntil(context.Background(), func() (bool, error) {
		calls++
		return calls >= 3, nil
	}, time.Now().Add(2*time.Second), time.Millisecond, 10*time.Millisecond)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)
}

func TestPollUntilDeadline(t *testing.T) {
	ok, err := PollUntil(context.Background(), func() (bool, error) {
		return false, nil
	}, time.Now().Add(20*time.Millisecond), 5*time.Millisecond, 10*time.Millisecond)

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPollUntilContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := PollUntil(ctx, func() (bool, error) {
		return false, nil
	}, time.Now().Add(time.Minute), time.Millisecond, time.Millisecond)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollUntilCheckError(t *testing.T) {
	wantErr := errors.New("store down")
	ok, err := PollUntil(context.Background(), func() (bool, error) {
		return false, wantErr
	}, time.Now().Add(time.Minute), time.Millisecond, time.Millisecond)

	assert.False(t, ok)
	assert.ErrorIs(t, err, wantErr)
}
