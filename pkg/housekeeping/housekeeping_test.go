// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package housekeeping

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/maraxen/pylabpraxis-sub002/pkg/dispatch"
	"github.com/maraxen/pylabpraxis-sub002/pkg/lock"
	"github.com/maraxen/pylabpraxis-sub002/pkg/runstate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type keeperHarness struct {
	keeper *Keeper
	queue  *dispatch.Queue
	locks  *lock.Manager
	runs   *runstate.Service
	assets database.AssetFacadeInterface
	helper *database.TestHelper
}

func newKeeperHarness(t *testing.T, clock accession.Clock) *keeperHarness {
	helper := database.NewTestHelper(t)
	t.Cleanup(helper.Cleanup)

	assets := database.NewAssetFacade().WithDB(helper.DB)
	tasks := database.NewWorkerTaskFacade().WithDB(helper.DB)
	runFacade := database.NewProtocolRunFacade().WithDB(helper.DB)

	queue := dispatch.NewQueue(tasks, clock)
	locks := lock.NewManager(assets, clock)
	runs := runstate.NewService(runFacade, clock)
	keeper := NewKeeper(queue, locks, runs, assets, clock, Options{
		StuckRunHorizon: time.Hour,
	})
	return &keeperHarness{
		keeper: keeper,
		queue:  queue,
		locks:  locks,
		runs:   runs,
		assets: assets,
		helper: helper,
	}
}

func seedHeldMachine(t *testing.T, h *keeperHarness, name, runID string) *model.Asset {
	t.Helper()
	status := constant.MachineStatusAvailable
	machine := &model.Asset{
		AccessionID:   accession.NewID(),
		AssetType:     constant.AssetTypeMachine,
		Name:          name,
		MachineStatus: &status,
	}
	require.NoError(t, h.assets.Create(context.Background(), machine))

	lck := lock.NewAssetLock(constant.AssetTypeMachine, name, runID)
	ok, err := h.locks.Acquire(context.Background(), lck)
	require.NoError(t, err)
	require.True(t, ok)
	return machine
}

func seedRunInStatus(t *testing.T, h *keeperHarness, status constant.ProtocolRunStatus) *model.ProtocolRun {
	t.Helper()
	run := &model.ProtocolRun{
		AccessionID:                  accession.NewID(),
		Name:                         "run-" + accession.NewID()[:8],
		TopLevelProtocolDefinitionID: accession.NewID(),
		Status:                       status,
	}
	require.NoError(t, h.helper.DB.Create(run).Error)
	return run
}

func TestReconcileLocksReleasesFinishedRuns(t *testing.T) {
	h := newKeeperHarness(t, accession.SystemClock{})
	ctx := context.Background()

	finished := seedRunInStatus(t, h, constant.RunStatusFailed)
	live := seedRunInStatus(t, h, constant.RunStatusRunning)

	orphaned := seedHeldMachine(t, h, "star-1", finished.AccessionID)
	held := seedHeldMachine(t, h, "star-2", live.AccessionID)

	h.keeper.ReconcileLocks(ctx)

	row, err := h.assets.Get(ctx, orphaned.AccessionID)
	require.NoError(t, err)
	assert.Nil(t, row.CurrentProtocolRunID)
	assert.Equal(t, constant.MachineStatusAvailable, *row.MachineStatus)

	// The running run keeps its lock.
	row, err = h.assets.Get(ctx, held.AccessionID)
	require.NoError(t, err)
	require.NotNil(t, row.CurrentProtocolRunID)
	assert.Equal(t, live.AccessionID, *row.CurrentProtocolRunID)
}

func TestReconcileLocksReleasesVanishedRuns(t *testing.T) {
	h := newKeeperHarness(t, accession.SystemClock{})
	ctx := context.Background()

	// A lock pointing at a run id with no run row is also stale.
	machine := seedHeldMachine(t, h, "star-1", accession.NewID())

	h.keeper.ReconcileLocks(ctx)

	row, err := h.assets.Get(ctx, machine.AccessionID)
	require.NoError(t, err)
	assert.Nil(t, row.CurrentProtocolRunID)
}

func TestSweepStuckRuns(t *testing.T) {
	t0 := time.Now().Add(-3 * time.Hour)
	h := newKeeperHarness(t, accession.SystemClock{})
	ctx := context.Background()

	stuck := seedRunInStatus(t, h, constant.RunStatusRunning)
	terminal := seedRunInStatus(t, h, constant.RunStatusCompleted)
	// A run already flagged has no edge to REQUIRES_INTERVENTION and is
	// silently skipped.
	flagged := seedRunInStatus(t, h, constant.RunStatusRequiresIntervention)

	// Age the rows behind the horizon.
	for _, run := range []*model.ProtocolRun{stuck, terminal, flagged} {
		require.NoError(t, h.helper.DB.Model(&model.ProtocolRun{}).
			Where("accession_id = ?", run.AccessionID).
			UpdateColumn("updated_at", t0).Error)
	}

	h.keeper.SweepStuckRuns(ctx)

	got, err := h.runs.GetRun(ctx, stuck.AccessionID)
	require.NoError(t, err)
	assert.Equal(t, constant.RunStatusRequiresIntervention, got.Status)

	got, err = h.runs.GetRun(ctx, terminal.AccessionID)
	require.NoError(t, err)
	assert.Equal(t, constant.RunStatusCompleted, got.Status)

	got, err = h.runs.GetRun(ctx, flagged.AccessionID)
	require.NoError(t, err)
	assert.Equal(t, constant.RunStatusRequiresIntervention, got.Status)
}

func TestCleanupDispatchTasks(t *testing.T) {
	h := newKeeperHarness(t, accession.SystemClock{})
	ctx := context.Background()

	taskID, err := h.queue.Publish(ctx, dispatch.TopicProtocolExecution, json.RawMessage(`{}`), nil)
	require.NoError(t, err)
	claimed, err := h.queue.Claim(ctx, []string{dispatch.TopicProtocolExecution}, "worker-1")
	require.NoError(t, err)
	require.NoError(t, h.queue.Complete(ctx, claimed.AccessionID, nil))

	// Age the settled task beyond retention.
	old := time.Now().Add(-30 * 24 * time.Hour)
	require.NoError(t, h.helper.DB.Model(&model.WorkerTask{}).
		Where("accession_id = ?", taskID).
		UpdateColumn("updated_at", old).Error)

	h.keeper.opts.TaskRetention = 24 * time.Hour
	h.keeper.CleanupDispatchTasks(ctx)

	task, err := h.queue.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestHandleDispatchTimeouts(t *testing.T) {
	h := newKeeperHarness(t, accession.SystemClock{})
	ctx := context.Background()

	taskID, err := h.queue.Publish(ctx, dispatch.TopicProtocolExecution, json.RawMessage(`{}`), &dispatch.PublishOptions{MaxRetries: 2})
	require.NoError(t, err)
	_, err = h.queue.Claim(ctx, []string{dispatch.TopicProtocolExecution}, "worker-1")
	require.NoError(t, err)

	// Push the deadline into the past.
	expired := time.Now().Add(-time.Minute)
	require.NoError(t, h.helper.DB.Model(&model.WorkerTask{}).
		Where("accession_id = ?", taskID).
		Update("timeout_at", expired).Error)

	h.keeper.HandleDispatchTimeouts(ctx)

	task, err := h.queue.GetTask(ctx, taskID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStatusPending, task.Status)
	assert.Equal(t, 1, task.RetryCount)
}

func TestStartSchedulesJobs(t *testing.T) {
	h := newKeeperHarness(t, accession.SystemClock{})
	h.keeper.opts.DispatchTimeoutSchedule = "@every 1h"
	h.keeper.opts.LockReconcileSchedule = "@every 1h"

	require.NoError(t, h.keeper.Start(context.Background()))
	h.keeper.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	h := newKeeperHarness(t, accession.SystemClock{})
	h.keeper.opts.DispatchTimeoutSchedule = "not a schedule"

	assert.Error(t, h.keeper.Start(context.Background()))
}
