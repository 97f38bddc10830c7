// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	praxiserrors "github.com/maraxen/pylabpraxis-sub002/pkg/errors"
	"gorm.io/gorm"
)

// FunctionCallFacadeInterface defines the database operation interface for
// function call log entries.
type FunctionCallFacadeInterface interface {
	Create(ctx context.Context, call *model.FunctionCallLog) error
	Get(ctx context.Context, accessionID string) (*model.FunctionCallLog, error)
	GetByRunAndSequence(ctx context.Context, runID string, sequence int) (*model.FunctionCallLog, error)
	// ListByRun returns the run's calls ordered by sequence.
	ListByRun(ctx context.Context, runID string) ([]*model.FunctionCallLog, error)
	List(ctx context.Context, filter *FunctionCallFilter) ([]*model.FunctionCallLog, error)
	Update(ctx context.Context, call *model.FunctionCallLog) error
	UpdateFields(ctx context.Context, accessionID string, fields map[string]interface{}) error
	// MaxSequenceForRun reports the highest sequence issued for the run.
	// hasCalls is false when the run has no calls yet; max is 0 then.
	MaxSequenceForRun(ctx context.Context, runID string) (max int, hasCalls bool, err error)
	WithDB(db *gorm.DB) FunctionCallFacadeInterface
}

// FunctionCallFilter defines filter conditions for querying call logs.
type FunctionCallFilter struct {
	ProtocolRunID                *string
	ParentFunctionCallLogID      *string
	FunctionProtocolDefinitionID *string
	Status                       *constant.FunctionCallStatus
	Limit                        int
	Offset                       int
}

// FunctionCallFacade implements FunctionCallFacadeInterface.
type FunctionCallFacade struct {
	BaseFacade
}

// NewFunctionCallFacade creates a facade on the default pool.
func NewFunctionCallFacade() FunctionCallFacadeInterface {
	return &FunctionCallFacade{}
}

func (f *FunctionCallFacade) WithDB(db *gorm.DB) FunctionCallFacadeInterface {
	return &FunctionCallFacade{BaseFacade: f.withDB(db)}
}

func (f *FunctionCallFacade) Create(ctx context.Context, call *model.FunctionCallLog) error {
	return translateError(f.getDB().WithContext(ctx).Create(call).Error)
}

func (f *FunctionCallFacade) Get(ctx context.Context, accessionID string) (*model.FunctionCallLog, error) {
	var call model.FunctionCallLog
	err := f.getDB().WithContext(ctx).Where("accession_id = ?", accessionID).First(&call).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &call, nil
}

func (f *FunctionCallFacade) GetByRunAndSequence(ctx context.Context, runID string, sequence int) (*model.FunctionCallLog, error) {
	var call model.FunctionCallLog
	err := f.getDB().WithContext(ctx).
		Where("protocol_run_id = ? AND sequence_in_run = ?", runID, sequence).
		First(&call).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &call, nil
}

func (f *FunctionCallFacade) ListByRun(ctx context.Context, runID string) ([]*model.FunctionCallLog, error) {
	var calls []*model.FunctionCallLog
	err := f.getDB().WithContext(ctx).
		Where("protocol_run_id = ?", runID).
		Order("sequence_in_run ASC").
		Find(&calls).Error
	if err != nil {
		return nil, err
	}
	return calls, nil
}

func (f *FunctionCallFacade) List(ctx context.Context, filter *FunctionCallFilter) ([]*model.FunctionCallLog, error) {
	query := f.getDB().WithContext(ctx).Model(&model.FunctionCallLog{})
	if filter != nil {
		if filter.ProtocolRunID != nil {
			query = query.Where("protocol_run_id = ?", *filter.ProtocolRunID)
		}
		if filter.ParentFunctionCallLogID != nil {
			query = query.Where("parent_function_call_log_id = ?", *filter.ParentFunctionCallLogID)
		}
		if filter.FunctionProtocolDefinitionID != nil {
			query = query.Where("function_protocol_definition_id = ?", *filter.FunctionProtocolDefinitionID)
		}
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit).Offset(filter.Offset)
		}
	}
	var calls []*model.FunctionCallLog
	if err := query.Order("sequence_in_run ASC").Find(&calls).Error; err != nil {
		return nil, err
	}
	return calls, nil
}

func (f *FunctionCallFacade) Update(ctx context.Context, call *model.FunctionCallLog) error {
	return translateError(f.getDB().WithContext(ctx).Save(call).Error)
}

func (f *FunctionCallFacade) UpdateFields(ctx context.Context, accessionID string, fields map[string]interface{}) error {
	result := f.getDB().WithContext(ctx).Model(&model.FunctionCallLog{}).
		Where("accession_id = ?", accessionID).
		Updates(fields)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeNotFound).
			WithMessagef("function call %s not found", accessionID)
	}
	return nil
}

func (f *FunctionCallFacade) MaxSequenceForRun(ctx context.Context, runID string) (int, bool, error) {
	var max sql.NullInt64
	err := f.getDB().WithContext(ctx).Model(&model.FunctionCallLog{}).
		Where("protocol_run_id = ?", runID).
		Select("MAX(sequence_in_run)").
		Scan(&max).Error
	if err != nil {
		return 0, false, err
	}
	if !max.Valid {
		return 0, false, nil
	}
	return int(max.Int64), true, nil
}
