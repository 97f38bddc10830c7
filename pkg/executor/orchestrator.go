// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/maraxen/pylabpraxis-sub002/pkg/acquire"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/maraxen/pylabpraxis-sub002/pkg/ledger"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
	"github.com/maraxen/pylabpraxis-sub002/pkg/runstate"
)

// StepFunc is one function call inside a protocol body.
type StepFunc func(ctx context.Context, rc *RunContext) (json.RawMessage, error)

// Step pairs a call name with its body.
type Step struct {
	Name string
	Fn   StepFunc
}

// Protocol is an executable protocol body registered under its definition FQN.
type Protocol struct {
	FQN   string
	Steps []Step
}

// ProtocolRegistry maps definition FQNs to executable bodies.
type ProtocolRegistry struct {
	mu    sync.RWMutex
	byFQN map[string]*Protocol
}

// NewProtocolRegistry creates an empty registry.
func NewProtocolRegistry() *ProtocolRegistry {
	return &ProtocolRegistry{byFQN: map[string]*Protocol{}}
}

// Register installs a protocol body, replacing any previous one for the FQN.
func (r *ProtocolRegistry) Register(p *Protocol) {
	r.mu.Lock()
	r.byFQN[p.FQN] = p
	r.mu.Unlock()
}

// Lookup returns the body for an FQN.
func (r *ProtocolRegistry) Lookup(fqn string) (*Protocol, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byFQN[fqn]
	return p, ok
}

// Known lists registered FQNs, sorted.
func (r *ProtocolRegistry) Known() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fqns := make([]string, 0, len(r.byFQN))
	for fqn := range r.byFQN {
		fqns = append(fqns, fqn)
	}
	sort.Strings(fqns)
	return fqns
}

// RunContext is what a step sees while executing.
type RunContext struct {
	Run          *model.ProtocolRun
	Params       model.JSONBag
	InitialState model.JSONBag
	Ledger       *ledger.Service
	Acquirer     *acquire.Service

	mu         sync.Mutex
	outputs    model.JSONBag
	finalState model.JSONBag
}

// SetOutput records a key in the run's output data.
func (rc *RunContext) SetOutput(key string, value interface{}) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.outputs == nil {
		rc.outputs = model.JSONBag{}
	}
	rc.outputs[key] = value
}

// SetFinalState records the workcell snapshot persisted with COMPLETED.
func (rc *RunContext) SetFinalState(state model.JSONBag) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.finalState = state
}

func (rc *RunContext) snapshot() (model.JSONBag, model.JSONBag) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.outputs, rc.finalState
}

// SequentialOrchestrator runs a protocol body one call at a time, logging
// each call in the ledger and polling for cancellation between calls. The
// currently running call is never preempted.
type SequentialOrchestrator struct {
	registry  *ProtocolRegistry
	runs      *runstate.Service
	ledger    *ledger.Service
	acquirer  *acquire.Service
	protocols database.ProtocolDefinitionFacadeInterface
}

// NewSequentialOrchestrator wires an orchestrator. acquirer may be nil for
// protocols that acquire nothing.
func NewSequentialOrchestrator(
	registry *ProtocolRegistry,
	runs *runstate.Service,
	ldg *ledger.Service,
	acquirer *acquire.Service,
	protocols database.ProtocolDefinitionFacadeInterface,
) *SequentialOrchestrator {
	return &SequentialOrchestrator{
		registry:  registry,
		runs:      runs,
		ledger:    ldg,
		acquirer:  acquirer,
		protocols: protocols,
	}
}

// ExecuteExistingProtocolRun drives the run's protocol body to a terminal
// state. Success paths end COMPLETED or CANCELLED; step failures propagate
// after the failing call is logged.
func (o *SequentialOrchestrator) ExecuteExistingProtocolRun(ctx context.Context, run *model.ProtocolRun, params, initialState model.JSONBag) (*model.ProtocolRun, error) {
	def, err := o.protocols.Get(ctx, run.TopLevelProtocolDefinitionID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("protocol definition %s not found", run.TopLevelProtocolDefinitionID)
	}
	proto, ok := o.registry.Lookup(def.FQN)
	if !ok {
		return nil, fmt.Errorf("no executable protocol registered for %q", def.FQN)
	}

	rc := &RunContext{
		Run:          run,
		Params:       params,
		InitialState: initialState,
		Ledger:       o.ledger,
		Acquirer:     o.acquirer,
	}

	for _, step := range proto.Steps {
		cancelled, current, err := o.pollCancellation(ctx, run.AccessionID)
		if err != nil {
			return nil, err
		}
		if cancelled {
			o.releaseAssets(ctx, run.AccessionID)
			return current, nil
		}

		if err := o.runStep(ctx, rc, def.AccessionID, step); err != nil {
			return nil, err
		}
	}

	o.releaseAssets(ctx, run.AccessionID)

	outputs, finalState := rc.snapshot()
	opts := []runstate.Option{}
	if outputs != nil {
		opts = append(opts, runstate.WithOutputData(outputs))
	}
	if finalState != nil {
		opts = append(opts, runstate.WithFinalState(finalState))
	}
	return o.runs.UpdateRunStatus(ctx, run.AccessionID, constant.RunStatusCompleted, opts...)
}

// pollCancellation checks the run between calls. CANCELING flips to
// CANCELLED and stops issuing further calls.
func (o *SequentialOrchestrator) pollCancellation(ctx context.Context, runID string) (bool, *model.ProtocolRun, error) {
	run, err := o.runs.GetRun(ctx, runID)
	if err != nil {
		return false, nil, err
	}
	if run == nil {
		return false, nil, &RunNotFoundError{ProtocolRunID: runID}
	}
	if run.Status != constant.RunStatusCanceling {
		return false, run, nil
	}
	updated, err := o.runs.UpdateRunStatus(ctx, runID, constant.RunStatusCancelled)
	if err != nil {
		return false, nil, err
	}
	log.Infof("run %s cancelled before next call", runID)
	return true, updated, nil
}

func (o *SequentialOrchestrator) runStep(ctx context.Context, rc *RunContext, defID string, step Step) error {
	seq, err := o.ledger.NextSequence(ctx, rc.Run.AccessionID)
	if err != nil {
		return err
	}
	callID, err := o.ledger.LogCallStart(ctx, &ledger.CallStartRequest{
		ProtocolRunID:        rc.Run.AccessionID,
		FunctionDefinitionID: defID,
		SequenceInRun:        seq,
		InputArgs:            model.JSONBag{"call": step.Name},
	})
	if err != nil {
		return err
	}

	ret, stepErr := step.Fn(ctx, rc)
	if stepErr != nil {
		if _, logErr := o.ledger.LogCallEnd(ctx, callID, constant.CallStatusError,
			ledger.WithCallError(stepErr.Error(), "")); logErr != nil {
			log.Errorf("logging failed call %s: %v", callID, logErr)
		}
		return fmt.Errorf("call %q: %w", step.Name, stepErr)
	}

	_, err = o.ledger.LogCallEnd(ctx, callID, constant.CallStatusSuccess, ledger.WithReturnValue(ret))
	return err
}

// releaseAssets tears down runtime handles and locks for everything the run
// holds. Failures are logged; the executor's own lock sweep is the backstop.
func (o *SequentialOrchestrator) releaseAssets(ctx context.Context, runID string) {
	if o.acquirer == nil {
		return
	}
	if _, err := o.acquirer.ReleaseAll(ctx, runID); err != nil {
		log.Errorf("releasing assets for run %s: %v", runID, err)
	}
}

var _ Orchestrator = (*SequentialOrchestrator)(nil)
