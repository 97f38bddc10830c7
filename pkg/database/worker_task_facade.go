// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	praxiserrors "github.com/maraxen/pylabpraxis-sub002/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WorkerTaskFacadeInterface defines the database operation interface for
// dispatch tasks.
type WorkerTaskFacadeInterface interface {
	Create(ctx context.Context, task *model.WorkerTask) error
	Get(ctx context.Context, accessionID string) (*model.WorkerTask, error)

	// Claim atomically moves the highest-priority pending task on one of
	// the topics to processing and stamps the claimant. Returns nil when
	// nothing is pending.
	Claim(ctx context.Context, topics []string, workerID string) (*model.WorkerTask, error)

	Complete(ctx context.Context, accessionID string, result json.RawMessage) error
	Fail(ctx context.Context, accessionID string, errorMsg string, retryCount, maxRetries int) error
	Cancel(ctx context.Context, accessionID string) error
	CancelByRun(ctx context.Context, protocolRunID string) (int, error)

	List(ctx context.Context, filter *WorkerTaskFilter) ([]*model.WorkerTask, error)
	Count(ctx context.Context, filter *WorkerTaskFilter) (int64, error)

	// HandleTimeouts requeues or fails processing tasks whose deadline
	// passed, returning how many rows it touched.
	HandleTimeouts(ctx context.Context, defaultTimeout time.Duration) (int, error)

	// Cleanup removes finished tasks older than the retention window.
	Cleanup(ctx context.Context, olderThan time.Duration) (int, error)

	WithDB(db *gorm.DB) WorkerTaskFacadeInterface
}

// WorkerTaskFilter defines filter conditions for querying dispatch tasks.
type WorkerTaskFilter struct {
	Status        *string
	Topic         *string
	Topics        []string
	ProtocolRunID *string
	ClaimedBy     *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}

// WorkerTaskFacade implements WorkerTaskFacadeInterface.
type WorkerTaskFacade struct {
	BaseFacade
}

// NewWorkerTaskFacade creates a facade on the default pool.
func NewWorkerTaskFacade() WorkerTaskFacadeInterface {
	return &WorkerTaskFacade{}
}

func (f *WorkerTaskFacade) WithDB(db *gorm.DB) WorkerTaskFacadeInterface {
	return &WorkerTaskFacade{BaseFacade: f.withDB(db)}
}

func (f *WorkerTaskFacade) Create(ctx context.Context, task *model.WorkerTask) error {
	return translateError(f.getDB().WithContext(ctx).Create(task).Error)
}

func (f *WorkerTaskFacade) Get(ctx context.Context, accessionID string) (*model.WorkerTask, error) {
	var task model.WorkerTask
	err := f.getDB().WithContext(ctx).Where("accession_id = ?", accessionID).First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// Claim uses SELECT FOR UPDATE SKIP LOCKED on postgres so concurrent workers
// never contend on the same row.
func (f *WorkerTaskFacade) Claim(ctx context.Context, topics []string, workerID string) (*model.WorkerTask, error) {
	db := f.getDB().WithContext(ctx)
	var task model.WorkerTask

	err := db.Transaction(func(tx *gorm.DB) error {
		query := tx
		if rowLockSupported(tx) {
			query = query.Clauses(clause.Locking{
				Strength: "UPDATE",
				Options:  "SKIP LOCKED",
			})
		}
		query = query.Where("status = ?", model.TaskStatusPending)
		if len(topics) > 0 {
			query = query.Where("topic IN ?", topics)
		}

		result := query.Order("priority DESC, created_at ASC").First(&task)
		if result.Error != nil {
			return result.Error
		}

		now := time.Now()
		task.Status = model.TaskStatusProcessing
		task.ClaimedBy = &workerID
		task.ClaimedAt = &now

		return tx.Save(&task).Error
	})

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

func (f *WorkerTaskFacade) Complete(ctx context.Context, accessionID string, result json.RawMessage) error {
	res := f.getDB().WithContext(ctx).Model(&model.WorkerTask{}).
		Where("accession_id = ? AND status = ?", accessionID, model.TaskStatusProcessing).
		Updates(map[string]interface{}{
			"status": model.TaskStatusCompleted,
			"result": result,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeNotFound).
			WithMessagef("dispatch task %s not found in processing state", accessionID)
	}
	return nil
}

func (f *WorkerTaskFacade) Fail(ctx context.Context, accessionID string, errorMsg string, retryCount, maxRetries int) error {
	db := f.getDB().WithContext(ctx)

	if retryCount < maxRetries {
		// Requeue for another attempt.
		return db.Model(&model.WorkerTask{}).
			Where("accession_id = ?", accessionID).
			Updates(map[string]interface{}{
				"status":        model.TaskStatusPending,
				"retry_count":   retryCount,
				"error_message": errorMsg,
				"claimed_by":    nil,
				"claimed_at":    nil,
			}).Error
	}

	return db.Model(&model.WorkerTask{}).
		Where("accession_id = ?", accessionID).
		Updates(map[string]interface{}{
			"status":        model.TaskStatusFailed,
			"retry_count":   retryCount,
			"error_message": errorMsg,
		}).Error
}

func (f *WorkerTaskFacade) Cancel(ctx context.Context, accessionID string) error {
	result := f.getDB().WithContext(ctx).Model(&model.WorkerTask{}).
		Where("accession_id = ? AND status IN ?", accessionID,
			[]string{model.TaskStatusPending, model.TaskStatusProcessing}).
		Update("status", model.TaskStatusCancelled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeNotFound).
			WithMessagef("dispatch task %s not found in cancellable state", accessionID)
	}
	return nil
}

func (f *WorkerTaskFacade) CancelByRun(ctx context.Context, protocolRunID string) (int, error) {
	result := f.getDB().WithContext(ctx).Model(&model.WorkerTask{}).
		Where("protocol_run_id = ? AND status IN ?", protocolRunID,
			[]string{model.TaskStatusPending, model.TaskStatusProcessing}).
		Update("status", model.TaskStatusCancelled)
	return int(result.RowsAffected), result.Error
}

func (f *WorkerTaskFacade) List(ctx context.Context, filter *WorkerTaskFilter) ([]*model.WorkerTask, error) {
	query := f.applyFilter(ctx, filter)
	if filter != nil && filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}
	var tasks []*model.WorkerTask
	if err := query.Order("created_at DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (f *WorkerTaskFacade) Count(ctx context.Context, filter *WorkerTaskFilter) (int64, error) {
	var count int64
	err := f.applyFilter(ctx, filter).Count(&count).Error
	return count, err
}

func (f *WorkerTaskFacade) applyFilter(ctx context.Context, filter *WorkerTaskFilter) *gorm.DB {
	query := f.getDB().WithContext(ctx).Model(&model.WorkerTask{})
	if filter == nil {
		return query
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Topic != nil {
		query = query.Where("topic = ?", *filter.Topic)
	}
	if len(filter.Topics) > 0 {
		query = query.Where("topic IN ?", filter.Topics)
	}
	if filter.ProtocolRunID != nil {
		query = query.Where("protocol_run_id = ?", *filter.ProtocolRunID)
	}
	if filter.ClaimedBy != nil {
		query = query.Where("claimed_by = ?", *filter.ClaimedBy)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

func (f *WorkerTaskFacade) HandleTimeouts(ctx context.Context, defaultTimeout time.Duration) (int, error) {
	db := f.getDB().WithContext(ctx)
	now := time.Now()

	var tasks []model.WorkerTask
	err := db.Where("status = ? AND timeout_at < ?", model.TaskStatusProcessing, now).Find(&tasks).Error
	if err != nil {
		return 0, err
	}

	count := 0
	for _, task := range tasks {
		if task.RetryCount < task.MaxRetries {
			err := db.Model(&model.WorkerTask{}).
				Where("accession_id = ?", task.AccessionID).
				Updates(map[string]interface{}{
					"status":      model.TaskStatusPending,
					"retry_count": task.RetryCount + 1,
					"claimed_by":  nil,
					"claimed_at":  nil,
					"timeout_at":  now.Add(defaultTimeout),
				}).Error
			if err == nil {
				count++
			}
		} else {
			err := db.Model(&model.WorkerTask{}).
				Where("accession_id = ?", task.AccessionID).
				Updates(map[string]interface{}{
					"status":        model.TaskStatusFailed,
					"error_message": "task timed out after max retries",
				}).Error
			if err == nil {
				count++
			}
		}
	}

	return count, nil
}

func (f *WorkerTaskFacade) Cleanup(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	result := f.getDB().WithContext(ctx).
		Where("status IN ? AND updated_at < ?",
			[]string{model.TaskStatusCompleted, model.TaskStatusFailed, model.TaskStatusCancelled},
			cutoff).
		Delete(&model.WorkerTask{})
	return int(result.RowsAffected), result.Error
}
