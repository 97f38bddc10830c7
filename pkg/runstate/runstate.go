// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package runstate is the authoritative protocol run lifecycle. All status
// mutation goes through UpdateRunStatus, which validates the transition and
// stamps timestamps inside one transaction with the run row locked, so
// concurrent mutators serialize and terminal states are absorbing.
package runstate

import (
	"context"
	"fmt"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	praxiserrors "github.com/maraxen/pylabpraxis-sub002/pkg/errors"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
)

// InvalidTransitionError rejects an edge the lifecycle does not permit.
type InvalidTransitionError struct {
	From constant.ProtocolRunStatus
	To   constant.ProtocolRunStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid run transition %s -> %s", e.From, e.To)
}

// IsInvalidTransition reports whether err is a rejected lifecycle edge.
func IsInvalidTransition(err error) bool {
	_, ok := err.(*InvalidTransitionError)
	return ok
}

// allowedTransitions is the directed edge set of the run lifecycle. The
// direct QUEUED/PENDING/PREPARING -> RUNNING edges let a worker that claimed
// a freshly queued run start it without walking the intermediate states.
var allowedTransitions = map[constant.ProtocolRunStatus][]constant.ProtocolRunStatus{
	constant.RunStatusQueued:    {constant.RunStatusPending, constant.RunStatusRunning},
	constant.RunStatusPending:   {constant.RunStatusPreparing, constant.RunStatusRunning},
	constant.RunStatusPreparing: {constant.RunStatusRunning},
	constant.RunStatusRunning: {
		constant.RunStatusCompleted,
		constant.RunStatusFailed,
		constant.RunStatusCanceling,
		constant.RunStatusPausing,
		constant.RunStatusRequiresIntervention,
	},
	constant.RunStatusCanceling:            {constant.RunStatusCancelled},
	constant.RunStatusPausing:              {constant.RunStatusPaused},
	constant.RunStatusPaused:               {constant.RunStatusResuming},
	constant.RunStatusResuming:             {constant.RunStatusRunning},
	constant.RunStatusRequiresIntervention: {constant.RunStatusIntervening},
	constant.RunStatusIntervening:          {constant.RunStatusRunning},
}

func transitionAllowed(from, to constant.ProtocolRunStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type updateOpts struct {
	outputData   model.JSONBag
	finalState   model.JSONBag
	workerTaskID *string
}

// Option customizes one UpdateRunStatus call.
type Option func(*updateOpts)

// WithOutputData persists output_data_json alongside the transition.
func WithOutputData(data model.JSONBag) Option {
	return func(o *updateOpts) { o.outputData = data }
}

// WithFinalState persists final_state_json alongside the transition.
func WithFinalState(state model.JSONBag) Option {
	return func(o *updateOpts) { o.finalState = state }
}

// WithWorkerTaskID stamps the dispatch task executing the run.
func WithWorkerTaskID(taskID string) Option {
	return func(o *updateOpts) { o.workerTaskID = &taskID }
}

// WithErrorInfo records a failure as the run's output data.
func WithErrorInfo(errorType, errorMessage, traceback string) Option {
	return func(o *updateOpts) {
		o.outputData = model.JSONBag{
			"error_type":    errorType,
			"error_message": errorMessage,
			"traceback":     traceback,
		}
	}
}

// Service owns protocol run lifecycle state.
type Service struct {
	runs  database.ProtocolRunFacadeInterface
	clock accession.Clock
}

// NewService creates a run state service.
func NewService(runs database.ProtocolRunFacadeInterface, clock accession.Clock) *Service {
	if clock == nil {
		clock = accession.SystemClock{}
	}
	return &Service{runs: runs, clock: clock}
}

// CreateRunRequest submits a new run.
type CreateRunRequest struct {
	Name                 string
	ProtocolDefinitionID string
	// Status defaults to QUEUED.
	Status          constant.ProtocolRunStatus
	InputParameters model.JSONBag
	InitialState    model.JSONBag
}

// CreateRun persists a new run and returns it.
func (s *Service) CreateRun(ctx context.Context, req *CreateRunRequest) (*model.ProtocolRun, error) {
	if req.ProtocolDefinitionID == "" {
		return nil, praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("protocol definition id is required")
	}
	status := req.Status
	if status == "" {
		status = constant.RunStatusQueued
	}
	if !status.IsValid() {
		return nil, praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("invalid run status %q", status)
	}

	run := &model.ProtocolRun{
		AccessionID:                  accession.NewID(),
		Name:                         req.Name,
		TopLevelProtocolDefinitionID: req.ProtocolDefinitionID,
		Status:                       status,
		InputParameters:              req.InputParameters,
		InitialState:                 req.InitialState,
	}
	if run.Name == "" {
		run.Name = "run-" + run.AccessionID[:8]
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}
	return run, nil
}

// GetRun returns the run, or nil when it does not exist.
func (s *Service) GetRun(ctx context.Context, runID string) (*model.ProtocolRun, error) {
	return s.runs.Get(ctx, runID)
}

// ListRuns lists runs matching the filter.
func (s *Service) ListRuns(ctx context.Context, filter *database.ProtocolRunFilter) ([]*model.ProtocolRun, error) {
	return s.runs.List(ctx, filter)
}

// ListStaleRuns returns non-terminal runs untouched since the horizon.
func (s *Service) ListStaleRuns(ctx context.Context, horizon time.Time, limit int) ([]*model.ProtocolRun, error) {
	return s.runs.ListStale(ctx, horizon, limit)
}

// UpdateRunStatus is the only lifecycle mutator. Missing runs return
// (nil, nil); runs already terminal return the existing record untouched;
// rejected edges return InvalidTransitionError.
func (s *Service) UpdateRunStatus(ctx context.Context, runID string, newStatus constant.ProtocolRunStatus, opts ...Option) (*model.ProtocolRun, error) {
	if !newStatus.IsValid() {
		return nil, praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("invalid run status %q", newStatus)
	}

	var o updateOpts
	for _, opt := range opts {
		opt(&o)
	}

	var updated *model.ProtocolRun
	err := s.runs.Transaction(ctx, func(tx database.ProtocolRunFacadeInterface) error {
		run, err := tx.GetForUpdate(ctx, runID)
		if err != nil {
			return err
		}
		if run == nil {
			return nil
		}
		if run.Status.IsTerminal() {
			updated = run
			return nil
		}
		if !transitionAllowed(run.Status, newStatus) {
			return &InvalidTransitionError{From: run.Status, To: newStatus}
		}

		now := s.clock.Now()
		prior := run.Status
		run.Status = newStatus
		if newStatus == constant.RunStatusRunning && run.StartTime == nil {
			run.StartTime = &now
		}
		if newStatus.IsTerminal() {
			run.EndTime = &now
			if run.StartTime != nil {
				ms := now.Sub(*run.StartTime).Milliseconds()
				run.CompletedDurationMS = &ms
			}
		}
		if o.outputData != nil {
			run.OutputData = o.outputData
		}
		if o.finalState != nil {
			run.FinalState = o.finalState
		}
		if o.workerTaskID != nil {
			run.WorkerTaskID = o.workerTaskID
		}

		if err := tx.Update(ctx, run); err != nil {
			return err
		}
		log.Debugf("run %s: %s -> %s", runID, prior, newStatus)
		updated = run
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
