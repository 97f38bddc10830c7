// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package model

import (
	"encoding/json"
	"time"
)

// Dispatch task lifecycle.
const (
	TaskStatusPending    = "pending"
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
	TaskStatusCancelled  = "cancelled"
)

const TableNameWorkerTask = "worker_task"

// WorkerTask is one unit of deferred work on the database-backed dispatch
// queue. Workers claim pending tasks by topic with row locks so each task is
// processed once.
type WorkerTask struct {
	AccessionID string `gorm:"column:accession_id;primaryKey;size:36" json:"accession_id"`
	Topic       string `gorm:"column:topic;size:128;not null;index" json:"topic"`
	// ProtocolRunID ties protocol execution tasks back to their run.
	ProtocolRunID *string         `gorm:"column:protocol_run_id;size:36;index" json:"protocol_run_id,omitempty"`
	Payload       json.RawMessage `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	Status        string          `gorm:"column:status;size:32;not null;index" json:"status"`
	Priority      int             `gorm:"column:priority;default:0" json:"priority"`

	RetryCount int `gorm:"column:retry_count;default:0" json:"retry_count"`
	MaxRetries int `gorm:"column:max_retries;default:3" json:"max_retries"`

	ClaimedBy *string    `gorm:"column:claimed_by;size:255" json:"claimed_by,omitempty"`
	ClaimedAt *time.Time `gorm:"column:claimed_at" json:"claimed_at,omitempty"`
	TimeoutAt *time.Time `gorm:"column:timeout_at;index" json:"timeout_at,omitempty"`

	Result       json.RawMessage `gorm:"column:result;type:jsonb" json:"result,omitempty"`
	ErrorMessage *string         `gorm:"column:error_message;type:text" json:"error_message,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*WorkerTask) TableName() string {
	return TableNameWorkerTask
}

// IsFinished reports whether the task reached a terminal status.
func (t *WorkerTask) IsFinished() bool {
	switch t.Status {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCancelled:
		return true
	}
	return false
}
