// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/backoff"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
)

// ErrPollTimeout reports that a task did not settle within the wait window.
var ErrPollTimeout = errors.New("dispatch: task did not settle before deadline")

const (
	pollInitialInterval = 100 * time.Millisecond
	pollMaxInterval     = 5 * time.Second
	defaultPollWindow   = 5 * time.Minute
)

// ResultPoller waits for published tasks to settle. Callers that need a
// synchronous answer over the asynchronous queue use it to block with
// exponential spacing instead of a tight read loop.
type ResultPoller struct {
	queue  *Queue
	window time.Duration
}

// NewResultPoller creates a poller. window <= 0 uses the 5 minute default.
func NewResultPoller(queue *Queue, window time.Duration) *ResultPoller {
	if window <= 0 {
		window = defaultPollWindow
	}
	return &ResultPoller{queue: queue, window: window}
}

func settled(status string) bool {
	switch status {
	case model.TaskStatusCompleted, model.TaskStatusFailed, model.TaskStatusCancelled:
		return true
	}
	return false
}

// Wait blocks until the task reaches a settled status, the window elapses, or
// ctx is done. The settled task row is returned; ErrPollTimeout on expiry.
func (p *ResultPoller) Wait(ctx context.Context, taskID string) (*model.WorkerTask, error) {
	var task *model.WorkerTask
	check := func() (bool, error) {
		row, err := p.queue.GetTask(ctx, taskID)
		if err != nil {
			return false, err
		}
		if row == nil {
			return false, fmt.Errorf("dispatch: task %s not found", taskID)
		}
		if !settled(row.Status) {
			return false, nil
		}
		task = row
		return true, nil
	}

	ok, err := backoff.PollUntil(ctx, check, time.Now().Add(p.window), pollInitialInterval, pollMaxInterval)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPollTimeout
	}
	return task, nil
}
