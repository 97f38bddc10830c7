// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	praxiserrors "github.com/maraxen/pylabpraxis-sub002/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingTask(id, topic string, priority int) *model.WorkerTask {
	return &model.WorkerTask{
		AccessionID: id,
		Topic:       topic,
		Payload:     json.RawMessage(`{"protocol_run_accession_id":"run-1"}`),
		Status:      model.TaskStatusPending,
		Priority:    priority,
		MaxRetries:  3,
	}
}

func TestWorkerTaskFacade_ClaimOrdering(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewWorkerTaskFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	require.NoError(t, facade.Create(ctx, newPendingTask("t-low", "protocol_execution", 0)))
	require.NoError(t, facade.Create(ctx, newPendingTask("t-high", "protocol_execution", 5)))
	require.NoError(t, facade.Create(ctx, newPendingTask("t-other", "housekeeping", 9)))

	claimed, err := facade.Claim(ctx, []string{"protocol_execution"}, "worker-a:1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "t-high", claimed.AccessionID)
	assert.Equal(t, model.TaskStatusProcessing, claimed.Status)
	require.NotNil(t, claimed.ClaimedBy)
	assert.Equal(t, "worker-a:1", *claimed.ClaimedBy)
	assert.NotNil(t, claimed.ClaimedAt)

	claimed, err = facade.Claim(ctx, []string{"protocol_execution"}, "worker-a:1")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, "t-low", claimed.AccessionID)

	claimed, err = facade.Claim(ctx, []string{"protocol_execution"}, "worker-a:1")
	require.NoError(t, err)
	assert.Nil(t, claimed, "queue drained for the topic")
}

func TestWorkerTaskFacade_CompleteGuarded(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewWorkerTaskFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	require.NoError(t, facade.Create(ctx, newPendingTask("t-1", "protocol_execution", 0)))

	// Completing a task that was never claimed must not succeed.
	err := facade.Complete(ctx, "t-1", json.RawMessage(`{"ok":true}`))
	require.Error(t, err)
	assert.True(t, praxiserrors.IsNotFound(err))

	claimed, err := facade.Claim(ctx, []string{"protocol_execution"}, "worker-a:1")
	require.NoError(t, err)
	require.NotNil(t, claimed)

	require.NoError(t, facade.Complete(ctx, "t-1", json.RawMessage(`{"ok":true}`)))

	got, err := facade.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCompleted, got.Status)
	assert.JSONEq(t, `{"ok":true}`, string(got.Result))
}

func TestWorkerTaskFacade_FailRetriesThenFails(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewWorkerTaskFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	task := newPendingTask("t-1", "protocol_execution", 0)
	task.MaxRetries = 2
	require.NoError(t, facade.Create(ctx, task))

	_, err := facade.Claim(ctx, []string{"protocol_execution"}, "worker-a:1")
	require.NoError(t, err)

	// First failure requeues.
	require.NoError(t, facade.Fail(ctx, "t-1", "instrument offline", 1, 2))
	got, err := facade.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	assert.Nil(t, got.ClaimedBy)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "instrument offline", *got.ErrorMessage)

	// Exhausting retries fails permanently.
	require.NoError(t, facade.Fail(ctx, "t-1", "instrument offline", 2, 2))
	got, err = facade.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, got.Status)
	assert.True(t, got.IsFinished())
}

func TestWorkerTaskFacade_Cancel(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewWorkerTaskFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	require.NoError(t, facade.Create(ctx, newPendingTask("t-1", "protocol_execution", 0)))
	require.NoError(t, facade.Cancel(ctx, "t-1"))

	got, err := facade.Get(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusCancelled, got.Status)

	err = facade.Cancel(ctx, "t-1")
	require.Error(t, err)
	assert.True(t, praxiserrors.IsNotFound(err))
}

func TestWorkerTaskFacade_CancelByRun(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewWorkerTaskFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	runID := "run-7"
	for _, id := range []string{"t-1", "t-2"} {
		task := newPendingTask(id, "protocol_execution", 0)
		task.ProtocolRunID = &runID
		require.NoError(t, facade.Create(ctx, task))
	}
	other := newPendingTask("t-3", "protocol_execution", 0)
	require.NoError(t, facade.Create(ctx, other))

	n, err := facade.CancelByRun(ctx, runID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := facade.Get(ctx, "t-3")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, got.Status)
}

func TestWorkerTaskFacade_HandleTimeouts(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewWorkerTaskFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	past := time.Now().Add(-time.Minute)
	worker := "worker-a:1"

	retryable := newPendingTask("t-retry", "protocol_execution", 0)
	retryable.Status = model.TaskStatusProcessing
	retryable.ClaimedBy = &worker
	retryable.TimeoutAt = &past
	require.NoError(t, facade.Create(ctx, retryable))

	exhausted := newPendingTask("t-dead", "protocol_execution", 0)
	exhausted.Status = model.TaskStatusProcessing
	exhausted.ClaimedBy = &worker
	exhausted.TimeoutAt = &past
	exhausted.RetryCount = 3
	exhausted.MaxRetries = 3
	require.NoError(t, facade.Create(ctx, exhausted))

	n, err := facade.HandleTimeouts(ctx, 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := facade.Get(ctx, "t-retry")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, got.Status)
	assert.Equal(t, 1, got.RetryCount)
	require.NotNil(t, got.TimeoutAt)
	assert.True(t, got.TimeoutAt.After(time.Now()))

	got, err = facade.Get(ctx, "t-dead")
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusFailed, got.Status)
}

func TestWorkerTaskFacade_Cleanup(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewWorkerTaskFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	done := newPendingTask("t-old", "protocol_execution", 0)
	done.Status = model.TaskStatusCompleted
	require.NoError(t, facade.Create(ctx, done))

	// updated_at is now, so a zero retention removes it and a long one keeps it.
	n, err := facade.Cleanup(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = facade.Cleanup(ctx, -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := facade.Get(ctx, "t-old")
	require.NoError(t, err)
	assert.Nil(t, got)
}
