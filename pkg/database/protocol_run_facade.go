// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"context"
	"errors"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	praxiserrors "github.com/maraxen/pylabpraxis-sub002/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProtocolRunFacadeInterface defines the database operation interface for
// protocol runs.
type ProtocolRunFacadeInterface interface {
	Create(ctx context.Context, run *model.ProtocolRun) error
	Get(ctx context.Context, accessionID string) (*model.ProtocolRun, error)
	// GetForUpdate locks the run row for the enclosing transaction.
	GetForUpdate(ctx context.Context, accessionID string) (*model.ProtocolRun, error)
	List(ctx context.Context, filter *ProtocolRunFilter) ([]*model.ProtocolRun, error)
	Count(ctx context.Context, filter *ProtocolRunFilter) (int64, error)
	Update(ctx context.Context, run *model.ProtocolRun) error
	UpdateFields(ctx context.Context, accessionID string, fields map[string]interface{}) error
	// ListStale returns non-terminal runs untouched since the horizon.
	ListStale(ctx context.Context, horizon time.Time, limit int) ([]*model.ProtocolRun, error)
	Transaction(ctx context.Context, fn func(tx ProtocolRunFacadeInterface) error) error
	WithDB(db *gorm.DB) ProtocolRunFacadeInterface
}

// ProtocolRunFilter defines filter conditions for querying runs.
type ProtocolRunFilter struct {
	Status                *constant.ProtocolRunStatus
	Statuses              []constant.ProtocolRunStatus
	ProtocolDefinitionID  *string
	WorkerTaskID          *string
	CreatedAfter          *time.Time
	CreatedBefore         *time.Time
	Limit                 int
	Offset                int
}

// ProtocolRunFacade implements ProtocolRunFacadeInterface.
type ProtocolRunFacade struct {
	BaseFacade
}

// NewProtocolRunFacade creates a facade on the default pool.
func NewProtocolRunFacade() ProtocolRunFacadeInterface {
	return &ProtocolRunFacade{}
}

func (f *ProtocolRunFacade) WithDB(db *gorm.DB) ProtocolRunFacadeInterface {
	return &ProtocolRunFacade{BaseFacade: f.withDB(db)}
}

func (f *ProtocolRunFacade) Create(ctx context.Context, run *model.ProtocolRun) error {
	return translateError(f.getDB().WithContext(ctx).Create(run).Error)
}

func (f *ProtocolRunFacade) Get(ctx context.Context, accessionID string) (*model.ProtocolRun, error) {
	var run model.ProtocolRun
	err := f.getDB().WithContext(ctx).Where("accession_id = ?", accessionID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (f *ProtocolRunFacade) GetForUpdate(ctx context.Context, accessionID string) (*model.ProtocolRun, error) {
	db := f.getDB().WithContext(ctx)
	if rowLockSupported(db) {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var run model.ProtocolRun
	err := db.Where("accession_id = ?", accessionID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

func (f *ProtocolRunFacade) List(ctx context.Context, filter *ProtocolRunFilter) ([]*model.ProtocolRun, error) {
	query := f.applyFilter(ctx, filter)
	if filter != nil && filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}
	var runs []*model.ProtocolRun
	if err := query.Order("created_at DESC").Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (f *ProtocolRunFacade) Count(ctx context.Context, filter *ProtocolRunFilter) (int64, error) {
	var count int64
	err := f.applyFilter(ctx, filter).Count(&count).Error
	return count, err
}

func (f *ProtocolRunFacade) applyFilter(ctx context.Context, filter *ProtocolRunFilter) *gorm.DB {
	query := f.getDB().WithContext(ctx).Model(&model.ProtocolRun{})
	if filter == nil {
		return query
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.ProtocolDefinitionID != nil {
		query = query.Where("top_level_protocol_definition_id = ?", *filter.ProtocolDefinitionID)
	}
	if filter.WorkerTaskID != nil {
		query = query.Where("worker_task_id = ?", *filter.WorkerTaskID)
	}
	if filter.CreatedAfter != nil {
		query = query.Where("created_at > ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		query = query.Where("created_at < ?", *filter.CreatedBefore)
	}
	return query
}

func (f *ProtocolRunFacade) Update(ctx context.Context, run *model.ProtocolRun) error {
	return translateError(f.getDB().WithContext(ctx).Save(run).Error)
}

func (f *ProtocolRunFacade) UpdateFields(ctx context.Context, accessionID string, fields map[string]interface{}) error {
	result := f.getDB().WithContext(ctx).Model(&model.ProtocolRun{}).
		Where("accession_id = ?", accessionID).
		Updates(fields)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeNotFound).
			WithMessagef("protocol run %s not found", accessionID)
	}
	return nil
}

func (f *ProtocolRunFacade) ListStale(ctx context.Context, horizon time.Time, limit int) ([]*model.ProtocolRun, error) {
	nonTerminal := []constant.ProtocolRunStatus{
		constant.RunStatusQueued,
		constant.RunStatusPending,
		constant.RunStatusPreparing,
		constant.RunStatusRunning,
		constant.RunStatusPausing,
		constant.RunStatusPaused,
		constant.RunStatusResuming,
		constant.RunStatusCanceling,
		constant.RunStatusRequiresIntervention,
		constant.RunStatusIntervening,
	}
	query := f.getDB().WithContext(ctx).
		Where("status IN ? AND updated_at < ?", nonTerminal, horizon).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var runs []*model.ProtocolRun
	if err := query.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

func (f *ProtocolRunFacade) Transaction(ctx context.Context, fn func(tx ProtocolRunFacadeInterface) error) error {
	err := f.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(f.WithDB(tx))
	})
	return translateError(err)
}
