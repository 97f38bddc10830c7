// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"testing"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	praxiserrors "github.com/maraxen/pylabpraxis-sub002/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueuedRun(id, name string) *model.ProtocolRun {
	return &model.ProtocolRun{
		AccessionID:                  id,
		Name:                         name,
		TopLevelProtocolDefinitionID: "def-1",
		Status:                       constant.RunStatusQueued,
		InputParameters:              model.JSONBag{"sample_count": float64(8)},
	}
}

func TestProtocolRunFacade_CreateAndGet(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewProtocolRunFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	require.NoError(t, facade.Create(ctx, newQueuedRun("run-1", "elisa_prep")))

	got, err := facade.Get(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, constant.RunStatusQueued, got.Status)
	assert.Equal(t, "elisa_prep", got.Name)
	n, ok := got.InputParameters.GetInt("sample_count")
	require.True(t, ok)
	assert.Equal(t, 8, n)

	missing, err := facade.Get(ctx, "run-none")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestProtocolRunFacade_ListByStatus(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewProtocolRunFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	running := newQueuedRun("run-1", "a")
	running.Status = constant.RunStatusRunning
	require.NoError(t, facade.Create(ctx, running))
	require.NoError(t, facade.Create(ctx, newQueuedRun("run-2", "b")))
	require.NoError(t, facade.Create(ctx, newQueuedRun("run-3", "c")))

	queued := constant.RunStatusQueued
	runs, err := facade.List(ctx, &ProtocolRunFilter{Status: &queued})
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	count, err := facade.Count(ctx, &ProtocolRunFilter{
		Statuses: []constant.ProtocolRunStatus{constant.RunStatusQueued, constant.RunStatusRunning},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestProtocolRunFacade_UpdateFields(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewProtocolRunFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	require.NoError(t, facade.Create(ctx, newQueuedRun("run-1", "a")))

	start := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	err := facade.UpdateFields(ctx, "run-1", map[string]interface{}{
		"status":     constant.RunStatusRunning,
		"start_time": start,
	})
	require.NoError(t, err)

	got, err := facade.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, constant.RunStatusRunning, got.Status)
	require.NotNil(t, got.StartTime)
	assert.Equal(t, start.Unix(), got.StartTime.Unix())

	err = facade.UpdateFields(ctx, "run-missing", map[string]interface{}{"name": "x"})
	require.Error(t, err)
	assert.True(t, praxiserrors.IsNotFound(err))
}

func TestProtocolRunFacade_TransactionGetForUpdate(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewProtocolRunFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	require.NoError(t, facade.Create(ctx, newQueuedRun("run-1", "a")))

	err := facade.Transaction(ctx, func(tx ProtocolRunFacadeInterface) error {
		run, err := tx.GetForUpdate(ctx, "run-1")
		if err != nil {
			return err
		}
		run.Status = constant.RunStatusPending
		return tx.Update(ctx, run)
	})
	require.NoError(t, err)

	got, err := facade.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, constant.RunStatusPending, got.Status)
}

func TestProtocolRunFacade_ListStale(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewProtocolRunFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	stuck := newQueuedRun("run-stuck", "stuck")
	stuck.Status = constant.RunStatusRunning
	require.NoError(t, facade.Create(ctx, stuck))

	done := newQueuedRun("run-done", "done")
	done.Status = constant.RunStatusCompleted
	require.NoError(t, facade.Create(ctx, done))

	// Horizon in the future catches the running row; terminal rows never
	// count as stale.
	horizon := time.Now().Add(time.Hour)
	stale, err := facade.ListStale(ctx, horizon, 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "run-stuck", stale[0].AccessionID)

	// Horizon in the past catches nothing.
	stale, err = facade.ListStale(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, stale)
}
