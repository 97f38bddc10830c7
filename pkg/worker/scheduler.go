// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package worker is the background process that claims protocol execution
// tasks off the dispatch queue and drives them through the executor. Each
// slot runs one protocol at a time; concurrency is the number of slots.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/maraxen/pylabpraxis-sub002/pkg/dispatch"
	"github.com/maraxen/pylabpraxis-sub002/pkg/executor"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
	"github.com/maraxen/pylabpraxis-sub002/pkg/trace"
	"go.opentelemetry.io/otel/attribute"
)

// Options tune a scheduler.
type Options struct {
	// Topics to claim from; defaults to protocol_execution.
	Topics []string
	// Concurrency is the number of claim slots; minimum 1.
	Concurrency int
	// ClaimInterval is the idle poll spacing.
	ClaimInterval time.Duration
	// ShutdownGrace bounds how long Run waits for in-flight protocols after
	// a stop signal.
	ShutdownGrace time.Duration
}

// runPayload is the wire shape of a protocol execution task.
type runPayload struct {
	ProtocolRunID   string        `json:"protocol_run_id"`
	InputParameters model.JSONBag `json:"input_parameters,omitempty"`
	InitialState    model.JSONBag `json:"initial_state,omitempty"`
}

// Scheduler claims and executes dispatch tasks until stopped.
type Scheduler struct {
	queue      *dispatch.Queue
	executor   *executor.Executor
	opts       Options
	instanceID string
}

// NewScheduler creates a scheduler. The instance id is hostname:pid so task
// claims are attributable across hosts.
func NewScheduler(queue *dispatch.Queue, exec *executor.Executor, opts Options) *Scheduler {
	if len(opts.Topics) == 0 {
		opts.Topics = []string{dispatch.TopicProtocolExecution}
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.ClaimInterval <= 0 {
		opts.ClaimInterval = 500 * time.Millisecond
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = 30 * time.Second
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return &Scheduler{
		queue:      queue,
		executor:   exec,
		opts:       opts,
		instanceID: fmt.Sprintf("%s:%d", hostname, os.Getpid()),
	}
}

// InstanceID identifies this worker in task claims.
func (s *Scheduler) InstanceID() string { return s.instanceID }

// Run claims and executes tasks until ctx is done or SIGINT/SIGTERM
// arrives, then waits up to ShutdownGrace for in-flight runs.
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Infof("worker %s starting: %d slots on topics %v", s.instanceID, s.opts.Concurrency, s.opts.Topics)

	var wg sync.WaitGroup
	for i := 0; i < s.opts.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			s.claimLoop(ctx, slot)
		}(i)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.depthLoop(ctx)
	}()

	<-ctx.Done()
	log.Infof("worker %s stopping, waiting up to %s for in-flight runs", s.instanceID, s.opts.ShutdownGrace)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Infof("worker %s stopped cleanly", s.instanceID)
		return nil
	case <-time.After(s.opts.ShutdownGrace):
		return fmt.Errorf("worker %s: shutdown grace of %s expired with runs in flight", s.instanceID, s.opts.ShutdownGrace)
	}
}

func (s *Scheduler) claimLoop(ctx context.Context, slot int) {
	for {
		worked, err := s.runOnce(ctx)
		if err != nil {
			log.Errorf("worker %s slot %d: %v", s.instanceID, slot, err)
		}
		if worked {
			continue
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.ClaimInterval):
		}
	}
}

// runOnce claims at most one task and executes it to completion. Returns
// whether a task was processed.
func (s *Scheduler) runOnce(ctx context.Context) (bool, error) {
	select {
	case <-ctx.Done():
		return false, nil
	default:
	}

	task, err := s.queue.Claim(ctx, s.opts.Topics, s.instanceID)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	tasksClaimed.Inc()

	var payload runPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil || payload.ProtocolRunID == "" {
		msg := "malformed task payload"
		if err != nil {
			msg = fmt.Sprintf("malformed task payload: %v", err)
		}
		tasksFailed.Inc()
		// Retrying a malformed payload cannot help; fail it outright.
		if failErr := s.queue.FailPermanently(ctx, task, msg); failErr != nil {
			return true, failErr
		}
		return true, nil
	}

	execCtx, span := trace.StartSpan(ctx, "protocol_run.execute",
		attribute.String("protocol_run_id", payload.ProtocolRunID),
		attribute.String("worker_task_id", task.AccessionID),
		attribute.String("worker_instance", s.instanceID),
	)
	start := time.Now()
	result, execErr := s.executor.ExecuteProtocolRun(execCtx, &executor.ExecuteRequest{
		ProtocolRunID:   payload.ProtocolRunID,
		InputParameters: payload.InputParameters,
		InitialState:    payload.InitialState,
		WorkerTaskID:    task.AccessionID,
	})
	runDuration.Observe(time.Since(start).Seconds())
	if result != nil {
		span.SetAttributes(attribute.String("final_status", string(result.FinalStatus)))
	}
	trace.RecordError(span, execErr)
	span.End()

	if execErr != nil {
		tasksFailed.Inc()
		if failErr := s.queue.Fail(ctx, task, execErr.Error()); failErr != nil {
			return true, failErr
		}
		return true, nil
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		resultJSON = []byte(`{"success":true}`)
	}
	if err := s.queue.Complete(ctx, task.AccessionID, resultJSON); err != nil {
		return true, err
	}
	tasksCompleted.Inc()
	log.Infof("worker %s finished task %s: run %s -> %s", s.instanceID, task.AccessionID, result.ProtocolRunID, result.FinalStatus)
	return true, nil
}

// depthLoop samples pending queue depth for the gauge.
func (s *Scheduler) depthLoop(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			depth := int64(0)
			for _, topic := range s.opts.Topics {
				n, err := s.queue.Depth(ctx, topic)
				if err != nil {
					continue
				}
				depth += n
			}
			queueDepth.Set(float64(depth))
		}
	}
}
