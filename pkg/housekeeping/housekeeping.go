// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package housekeeping runs the periodic maintenance jobs that keep the
// dispatch queue and asset inventory consistent: requeueing timed-out tasks,
// trimming settled tasks, releasing locks whose runs already ended, and
// flagging runs nothing has touched in hours.
package housekeeping

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/dispatch"
	"github.com/maraxen/pylabpraxis-sub002/pkg/lock"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
	"github.com/maraxen/pylabpraxis-sub002/pkg/runstate"
)

// Options configure the job schedules. Schedules use cron syntax including
// the @every form; empty schedules disable the job.
type Options struct {
	DispatchTimeoutSchedule   string
	DispatchRetentionSchedule string
	TaskRetention             time.Duration
	LockReconcileSchedule     string
	StuckRunSweepSchedule     string
	StuckRunHorizon           time.Duration
}

// Keeper owns the cron runner.
type Keeper struct {
	queue  *dispatch.Queue
	locks  *lock.Manager
	runs   *runstate.Service
	assets database.AssetFacadeInterface
	clock  accession.Clock
	opts   Options
	cron   *cron.Cron
}

// NewKeeper wires the maintenance jobs. runs may be nil to disable the
// stuck-run sweep.
func NewKeeper(queue *dispatch.Queue, locks *lock.Manager, runs *runstate.Service, assets database.AssetFacadeInterface, clock accession.Clock, opts Options) *Keeper {
	if clock == nil {
		clock = accession.SystemClock{}
	}
	if opts.TaskRetention <= 0 {
		opts.TaskRetention = 7 * 24 * time.Hour
	}
	if opts.StuckRunHorizon <= 0 {
		opts.StuckRunHorizon = 2 * time.Hour
	}
	return &Keeper{
		queue:  queue,
		locks:  locks,
		runs:   runs,
		assets: assets,
		clock:  clock,
		opts:   opts,
		cron:   cron.New(),
	}
}

// Start schedules the configured jobs and starts the cron runner.
func (k *Keeper) Start(ctx context.Context) error {
	jobs := []struct {
		name     string
		schedule string
		run      func(context.Context)
	}{
		{"dispatch_timeouts", k.opts.DispatchTimeoutSchedule, k.HandleDispatchTimeouts},
		{"dispatch_retention", k.opts.DispatchRetentionSchedule, k.CleanupDispatchTasks},
		{"lock_reconcile", k.opts.LockReconcileSchedule, k.ReconcileLocks},
		{"stuck_run_sweep", k.opts.StuckRunSweepSchedule, k.SweepStuckRuns},
	}
	for _, job := range jobs {
		if job.schedule == "" {
			continue
		}
		run := job.run
		name := job.name
		if _, err := k.cron.AddFunc(job.schedule, func() { run(ctx) }); err != nil {
			return err
		}
		log.Infof("housekeeping job %s scheduled: %s", name, job.schedule)
	}
	k.cron.Start()
	return nil
}

// Stop halts the cron runner and waits for running jobs.
func (k *Keeper) Stop() {
	<-k.cron.Stop().Done()
}

// HandleDispatchTimeouts requeues or fails processing tasks whose deadline
// passed.
func (k *Keeper) HandleDispatchTimeouts(ctx context.Context) {
	n, err := k.queue.HandleTimeouts(ctx)
	if err != nil {
		log.Errorf("dispatch timeout handling: %v", err)
		return
	}
	if n > 0 {
		log.Infof("dispatch timeout handling touched %d tasks", n)
	}
}

// CleanupDispatchTasks deletes settled tasks past retention.
func (k *Keeper) CleanupDispatchTasks(ctx context.Context) {
	n, err := k.queue.CleanupOldTasks(ctx, k.opts.TaskRetention)
	if err != nil {
		log.Errorf("dispatch retention cleanup: %v", err)
		return
	}
	if n > 0 {
		log.Infof("dispatch retention cleanup removed %d tasks", n)
	}
}

// ReconcileLocks releases locks held by runs that already reached a terminal
// state. A worker killed mid-run leaves such locks behind; this is the
// reconciliation that bounds how long they linger.
func (k *Keeper) ReconcileLocks(ctx context.Context) {
	held := true
	assets, err := k.assets.List(ctx, &database.AssetFilter{HasCurrentProtocolRun: &held})
	if err != nil {
		log.Errorf("lock reconciliation list: %v", err)
		return
	}

	seen := map[string]bool{}
	for _, asset := range assets {
		if asset.CurrentProtocolRunID == nil {
			continue
		}
		runID := *asset.CurrentProtocolRunID
		if seen[runID] {
			continue
		}
		seen[runID] = true

		run, err := k.runs.GetRun(ctx, runID)
		if err != nil {
			log.Errorf("lock reconciliation read run %s: %v", runID, err)
			continue
		}
		if run != nil && !run.Status.IsTerminal() {
			continue
		}

		released, err := k.locks.ReleaseAllProtocolLocks(ctx, runID)
		if err != nil {
			log.Errorf("lock reconciliation release for run %s: %v", runID, err)
			continue
		}
		log.Warnf("released %d stale locks held by finished run %s", released, runID)
	}
}

// SweepStuckRuns flags non-terminal runs untouched past the horizon as
// REQUIRES_INTERVENTION. Runs whose current state has no edge there are
// left alone.
func (k *Keeper) SweepStuckRuns(ctx context.Context) {
	if k.runs == nil {
		return
	}
	horizon := k.clock.Now().Add(-k.opts.StuckRunHorizon)
	stale, err := k.runs.ListStaleRuns(ctx, horizon, 100)
	if err != nil {
		log.Errorf("stuck run sweep list: %v", err)
		return
	}
	for _, run := range stale {
		_, err := k.runs.UpdateRunStatus(ctx, run.AccessionID, constant.RunStatusRequiresIntervention)
		if err != nil {
			if runstate.IsInvalidTransition(err) {
				continue
			}
			log.Errorf("stuck run sweep on %s: %v", run.AccessionID, err)
			continue
		}
		log.Warnf("run %s untouched since %s, flagged for intervention", run.AccessionID, run.UpdatedAt.Format(time.RFC3339))
	}
}
