// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package executor is the synchronous bridge between the dispatch layer and
// a protocol run. Every execution path writes a terminal run status and
// releases every lock the run holds, even on panic.
package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/maraxen/pylabpraxis-sub002/pkg/lock"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
	"github.com/maraxen/pylabpraxis-sub002/pkg/runstate"
)

// Orchestrator drives the body of a protocol run. It owns asset acquisition,
// function call logging, and data outputs, and leaves the run in a terminal
// COMPLETED or CANCELLED state on its success paths.
type Orchestrator interface {
	ExecuteExistingProtocolRun(ctx context.Context, run *model.ProtocolRun, params, initialState model.JSONBag) (*model.ProtocolRun, error)
}

// ExecutionContext carries the collaborators the executor needs. The zero
// value is uninitialized; executing with it fails without touching the store.
type ExecutionContext struct {
	Runs         *runstate.Service
	Orchestrator Orchestrator
	Locks        *lock.Manager
	Clock        accession.Clock
}

func (c *ExecutionContext) initialized() bool {
	return c != nil && c.Runs != nil && c.Orchestrator != nil && c.Locks != nil
}

// ExecuteRequest is one dispatched run execution.
type ExecuteRequest struct {
	ProtocolRunID   string
	InputParameters model.JSONBag
	InitialState    model.JSONBag
	WorkerTaskID    string
}

// ExecuteResult is the wire answer handed back to the dispatch layer.
type ExecuteResult struct {
	Success       bool                       `json:"success"`
	ProtocolRunID string                     `json:"protocol_run_id,omitempty"`
	FinalStatus   constant.ProtocolRunStatus `json:"final_status,omitempty"`
	Error         string                     `json:"error,omitempty"`
	Message       string                     `json:"message,omitempty"`
}

// RunNotFoundError reports a dispatched run id with no run row.
type RunNotFoundError struct {
	ProtocolRunID string
}

func (e *RunNotFoundError) Error() string {
	return fmt.Sprintf("protocol run %s not found", e.ProtocolRunID)
}

// Executor runs dispatched protocol runs to completion.
type Executor struct {
	execCtx *ExecutionContext
}

// New creates an executor over the given context.
func New(execCtx *ExecutionContext) *Executor {
	return &Executor{execCtx: execCtx}
}

// ExecuteProtocolRun runs one protocol run synchronously. The returned error
// is non-nil exactly when the result is unsuccessful for a reason the worker
// should record against its task; an uninitialized context is reported in the
// result alone.
func (e *Executor) ExecuteProtocolRun(ctx context.Context, req *ExecuteRequest) (result *ExecuteResult, err error) {
	if !e.execCtx.initialized() {
		return &ExecuteResult{Success: false, Error: "context not initialized"}, nil
	}

	// Locks are released on every path, including panics. Failures here are
	// logged and never mask the run's outcome.
	defer func() {
		if _, relErr := e.execCtx.Locks.ReleaseAllProtocolLocks(ctx, req.ProtocolRunID); relErr != nil {
			log.Errorf("releasing locks for run %s: %v", req.ProtocolRunID, relErr)
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			panicErr := fmt.Errorf("panic during run execution: %v", r)
			e.failRun(ctx, req.ProtocolRunID, panicErr, string(debug.Stack()))
			result = &ExecuteResult{
				Success:       false,
				ProtocolRunID: req.ProtocolRunID,
				FinalStatus:   constant.RunStatusFailed,
				Error:         panicErr.Error(),
			}
			err = panicErr
		}
	}()

	run, err := e.execCtx.Runs.GetRun(ctx, req.ProtocolRunID)
	if err != nil {
		return &ExecuteResult{Success: false, ProtocolRunID: req.ProtocolRunID, Error: err.Error()}, err
	}
	if run == nil {
		nfErr := &RunNotFoundError{ProtocolRunID: req.ProtocolRunID}
		return &ExecuteResult{Success: false, ProtocolRunID: req.ProtocolRunID, Error: nfErr.Error()}, nfErr
	}
	// A re-dispatched task for a finished run must not run the physical
	// protocol again. No error: the task settles instead of requeueing.
	if run.Status.IsTerminal() {
		log.Warnf("run %s is already %s, skipping re-execution", run.AccessionID, run.Status)
		return &ExecuteResult{
			Success:       false,
			ProtocolRunID: run.AccessionID,
			FinalStatus:   run.Status,
			Message:       fmt.Sprintf("run already terminal with status %s", run.Status),
		}, nil
	}

	run, err = e.execCtx.Runs.UpdateRunStatus(ctx, run.AccessionID, constant.RunStatusRunning,
		runstate.WithOutputData(model.JSONBag{
			"status":         "Execution started by worker",
			"worker_task_id": req.WorkerTaskID,
		}),
		runstate.WithWorkerTaskID(req.WorkerTaskID),
	)
	if err != nil {
		e.failRun(ctx, req.ProtocolRunID, err, "")
		return &ExecuteResult{
			Success:       false,
			ProtocolRunID: req.ProtocolRunID,
			FinalStatus:   constant.RunStatusFailed,
			Error:         err.Error(),
		}, err
	}

	run, err = e.execCtx.Orchestrator.ExecuteExistingProtocolRun(ctx, run, req.InputParameters, req.InitialState)
	if err != nil {
		e.failRun(ctx, req.ProtocolRunID, err, "")
		return &ExecuteResult{
			Success:       false,
			ProtocolRunID: req.ProtocolRunID,
			FinalStatus:   constant.RunStatusFailed,
			Error:         err.Error(),
		}, err
	}

	return &ExecuteResult{
		Success:       true,
		ProtocolRunID: run.AccessionID,
		FinalStatus:   run.Status,
		Message:       fmt.Sprintf("run finished with status %s", run.Status),
	}, nil
}

// failRun writes FAILED with error_info on a best-effort basis. A run that
// never reached RUNNING is stepped there first so the failure edge is valid.
func (e *Executor) failRun(ctx context.Context, runID string, cause error, traceback string) {
	if _, err := e.execCtx.Runs.UpdateRunStatus(ctx, runID, constant.RunStatusRunning); err != nil && !runstate.IsInvalidTransition(err) {
		log.Warnf("stepping run %s to RUNNING before failure: %v", runID, err)
	}
	_, err := e.execCtx.Runs.UpdateRunStatus(ctx, runID, constant.RunStatusFailed,
		runstate.WithErrorInfo(fmt.Sprintf("%T", cause), cause.Error(), traceback))
	if err != nil {
		log.Errorf("marking run %s FAILED: %v", runID, err)
	}
}

// HealthStatus answers the dispatch layer's health probe.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthCheck reports liveness.
func (e *Executor) HealthCheck() *HealthStatus {
	clock := accession.Clock(accession.SystemClock{})
	if e.execCtx != nil && e.execCtx.Clock != nil {
		clock = e.execCtx.Clock
	}
	return &HealthStatus{Status: "healthy", Timestamp: clock.Now()}
}
