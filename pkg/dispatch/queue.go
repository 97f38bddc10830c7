// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package dispatch is the database-backed task queue between the API surface
// and the background workers. The queue table is the only coordination
// channel; workers on separate hosts claim from it with row locks.
package dispatch

import (
	"context"
	"encoding/json"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
)

// TopicProtocolExecution is the topic protocol run tasks are published on.
const TopicProtocolExecution = "protocol_execution"

// DefaultTaskTimeout bounds one processing attempt when the publisher gives
// no explicit timeout.
const DefaultTaskTimeout = 2 * time.Hour

// PublishOptions tune one published task.
type PublishOptions struct {
	Priority   int
	MaxRetries int
	// Timeout bounds each processing attempt; zero means DefaultTaskTimeout.
	Timeout time.Duration
	// ProtocolRunID ties the task to a run for CancelByRun.
	ProtocolRunID string
}

// Queue wraps the worker task table with publish/claim/settle semantics.
type Queue struct {
	tasks database.WorkerTaskFacadeInterface
	clock accession.Clock
}

// NewQueue creates a queue over the task facade.
func NewQueue(tasks database.WorkerTaskFacadeInterface, clock accession.Clock) *Queue {
	if clock == nil {
		clock = accession.SystemClock{}
	}
	return &Queue{tasks: tasks, clock: clock}
}

// Publish enqueues a task and returns its accession id.
func (q *Queue) Publish(ctx context.Context, topic string, payload json.RawMessage, opts *PublishOptions) (string, error) {
	if opts == nil {
		opts = &PublishOptions{}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTaskTimeout
	}
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	task := &model.WorkerTask{
		AccessionID: accession.NewID(),
		Topic:       topic,
		Payload:     payload,
		Status:      model.TaskStatusPending,
		Priority:    opts.Priority,
		MaxRetries:  maxRetries,
	}
	if opts.ProtocolRunID != "" {
		task.ProtocolRunID = &opts.ProtocolRunID
	}
	timeoutAt := q.clock.Now().Add(timeout)
	task.TimeoutAt = &timeoutAt

	if err := q.tasks.Create(ctx, task); err != nil {
		return "", err
	}
	log.Debugf("published task %s on %s (priority %d)", task.AccessionID, topic, opts.Priority)
	return task.AccessionID, nil
}

// Claim hands the next pending task on the topics to workerID, or nil when
// the queue is empty.
func (q *Queue) Claim(ctx context.Context, topics []string, workerID string) (*model.WorkerTask, error) {
	return q.tasks.Claim(ctx, topics, workerID)
}

// Complete settles a processing task with its result payload.
func (q *Queue) Complete(ctx context.Context, taskID string, result json.RawMessage) error {
	return q.tasks.Complete(ctx, taskID, result)
}

// Fail records an attempt failure. The task requeues until its retry budget
// is spent, then lands in failed.
func (q *Queue) Fail(ctx context.Context, task *model.WorkerTask, errorMsg string) error {
	return q.tasks.Fail(ctx, task.AccessionID, errorMsg, task.RetryCount+1, task.MaxRetries)
}

// FailPermanently settles the task as failed with no requeue, regardless of
// remaining retry budget.
func (q *Queue) FailPermanently(ctx context.Context, task *model.WorkerTask, errorMsg string) error {
	return q.tasks.Fail(ctx, task.AccessionID, errorMsg, task.MaxRetries, task.MaxRetries)
}

// Cancel cancels one pending or processing task.
func (q *Queue) Cancel(ctx context.Context, taskID string) error {
	return q.tasks.Cancel(ctx, taskID)
}

// CancelByRun cancels every live task tied to the run.
func (q *Queue) CancelByRun(ctx context.Context, protocolRunID string) (int, error) {
	return q.tasks.CancelByRun(ctx, protocolRunID)
}

// GetTask reads one task, or nil when it does not exist.
func (q *Queue) GetTask(ctx context.Context, taskID string) (*model.WorkerTask, error) {
	return q.tasks.Get(ctx, taskID)
}

// ListTasks lists tasks matching the filter.
func (q *Queue) ListTasks(ctx context.Context, filter *database.WorkerTaskFilter) ([]*model.WorkerTask, error) {
	return q.tasks.List(ctx, filter)
}

// Depth counts pending tasks, optionally narrowed to one topic.
func (q *Queue) Depth(ctx context.Context, topic string) (int64, error) {
	pending := model.TaskStatusPending
	filter := &database.WorkerTaskFilter{Status: &pending}
	if topic != "" {
		filter.Topic = &topic
	}
	return q.tasks.Count(ctx, filter)
}

// HandleTimeouts requeues or fails overdue processing tasks.
func (q *Queue) HandleTimeouts(ctx context.Context) (int, error) {
	return q.tasks.HandleTimeouts(ctx, DefaultTaskTimeout)
}

// CleanupOldTasks deletes settled tasks older than the retention window.
func (q *Queue) CleanupOldTasks(ctx context.Context, retention time.Duration) (int, error) {
	return q.tasks.Cleanup(ctx, retention)
}
