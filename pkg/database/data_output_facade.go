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
)

// DataOutputFacadeInterface defines the database operation interface for
// function data outputs and their materialized well rows.
type DataOutputFacadeInterface interface {
	Create(ctx context.Context, output *model.FunctionDataOutput) error
	Get(ctx context.Context, accessionID string) (*model.FunctionDataOutput, error)
	List(ctx context.Context, filter *DataOutputFilter) ([]*model.FunctionDataOutput, error)
	Count(ctx context.Context, filter *DataOutputFilter) (int64, error)
	UpdateFields(ctx context.Context, accessionID string, fields map[string]interface{}) error
	Delete(ctx context.Context, accessionID string) error

	CreateWellOutputs(ctx context.Context, wells []*model.WellDataOutput) error
	ListWellOutputsByOutput(ctx context.Context, outputID string) ([]*model.WellDataOutput, error)
	// ListWellOutputsByPlate returns well rows for a plate ordered by
	// well_index; runID narrows to one run when non-nil.
	ListWellOutputsByPlate(ctx context.Context, plateResourceID string, runID *string) ([]*model.WellDataOutput, error)

	Transaction(ctx context.Context, fn func(tx DataOutputFacadeInterface) error) error
	WithDB(db *gorm.DB) DataOutputFacadeInterface
}

// DataOutputFilter defines filter conditions for querying data outputs.
type DataOutputFilter struct {
	ProtocolRunID     *string
	FunctionCallLogID *string
	DataType          *constant.DataOutputType
	SpatialContext    *constant.SpatialContext
	ResourceID        *string
	DataKey           *string
	MeasuredAfter     *time.Time
	MeasuredBefore    *time.Time
	Limit             int
	Offset            int
}

// DataOutputFacade implements DataOutputFacadeInterface.
type DataOutputFacade struct {
	BaseFacade
}

// NewDataOutputFacade creates a facade on the default pool.
func NewDataOutputFacade() DataOutputFacadeInterface {
	return &DataOutputFacade{}
}

func (f *DataOutputFacade) WithDB(db *gorm.DB) DataOutputFacadeInterface {
	return &DataOutputFacade{BaseFacade: f.withDB(db)}
}

func (f *DataOutputFacade) Create(ctx context.Context, output *model.FunctionDataOutput) error {
	if !output.HasValue() {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("data output %s must carry exactly one value", output.DataKey)
	}
	return translateError(f.getDB().WithContext(ctx).Create(output).Error)
}

func (f *DataOutputFacade) Get(ctx context.Context, accessionID string) (*model.FunctionDataOutput, error) {
	var output model.FunctionDataOutput
	err := f.getDB().WithContext(ctx).Where("accession_id = ?", accessionID).First(&output).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &output, nil
}

func (f *DataOutputFacade) List(ctx context.Context, filter *DataOutputFilter) ([]*model.FunctionDataOutput, error) {
	query := f.applyFilter(ctx, filter)
	if filter != nil && filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}
	var outputs []*model.FunctionDataOutput
	if err := query.Order("measured_at ASC, accession_id ASC").Find(&outputs).Error; err != nil {
		return nil, err
	}
	return outputs, nil
}

func (f *DataOutputFacade) Count(ctx context.Context, filter *DataOutputFilter) (int64, error) {
	var count int64
	err := f.applyFilter(ctx, filter).Count(&count).Error
	return count, err
}

func (f *DataOutputFacade) applyFilter(ctx context.Context, filter *DataOutputFilter) *gorm.DB {
	query := f.getDB().WithContext(ctx).Model(&model.FunctionDataOutput{})
	if filter == nil {
		return query
	}
	if filter.ProtocolRunID != nil {
		query = query.Where("protocol_run_id = ?", *filter.ProtocolRunID)
	}
	if filter.FunctionCallLogID != nil {
		query = query.Where("function_call_log_id = ?", *filter.FunctionCallLogID)
	}
	if filter.DataType != nil {
		query = query.Where("data_type = ?", *filter.DataType)
	}
	if filter.SpatialContext != nil {
		query = query.Where("spatial_context = ?", *filter.SpatialContext)
	}
	if filter.ResourceID != nil {
		query = query.Where("resource_id = ?", *filter.ResourceID)
	}
	if filter.DataKey != nil {
		query = query.Where("data_key = ?", *filter.DataKey)
	}
	if filter.MeasuredAfter != nil {
		query = query.Where("measured_at > ?", *filter.MeasuredAfter)
	}
	if filter.MeasuredBefore != nil {
		query = query.Where("measured_at < ?", *filter.MeasuredBefore)
	}
	return query
}

func (f *DataOutputFacade) UpdateFields(ctx context.Context, accessionID string, fields map[string]interface{}) error {
	result := f.getDB().WithContext(ctx).Model(&model.FunctionDataOutput{}).
		Where("accession_id = ?", accessionID).
		Updates(fields)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeNotFound).
			WithMessagef("data output %s not found", accessionID)
	}
	return nil
}

func (f *DataOutputFacade) Delete(ctx context.Context, accessionID string) error {
	return f.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("function_data_output_id = ?", accessionID).
			Delete(&model.WellDataOutput{}).Error; err != nil {
			return err
		}
		result := tx.Where("accession_id = ?", accessionID).Delete(&model.FunctionDataOutput{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return praxiserrors.NewError().
				WithCode(praxiserrors.CodeNotFound).
				WithMessagef("data output %s not found", accessionID)
		}
		return nil
	})
}

func (f *DataOutputFacade) CreateWellOutputs(ctx context.Context, wells []*model.WellDataOutput) error {
	if len(wells) == 0 {
		return nil
	}
	return translateError(f.getDB().WithContext(ctx).CreateInBatches(wells, 200).Error)
}

func (f *DataOutputFacade) ListWellOutputsByOutput(ctx context.Context, outputID string) ([]*model.WellDataOutput, error) {
	var wells []*model.WellDataOutput
	err := f.getDB().WithContext(ctx).
		Where("function_data_output_id = ?", outputID).
		Order("well_index ASC").
		Find(&wells).Error
	if err != nil {
		return nil, err
	}
	return wells, nil
}

func (f *DataOutputFacade) ListWellOutputsByPlate(ctx context.Context, plateResourceID string, runID *string) ([]*model.WellDataOutput, error) {
	query := f.getDB().WithContext(ctx).
		Model(&model.WellDataOutput{}).
		Where("well_data_output.plate_resource_id = ?", plateResourceID)
	if runID != nil {
		query = query.
			Joins("JOIN function_data_output ON function_data_output.accession_id = well_data_output.function_data_output_id").
			Where("function_data_output.protocol_run_id = ?", *runID)
	}
	var wells []*model.WellDataOutput
	if err := query.Order("well_data_output.well_index ASC").Find(&wells).Error; err != nil {
		return nil, err
	}
	return wells, nil
}

func (f *DataOutputFacade) Transaction(ctx context.Context, fn func(tx DataOutputFacadeInterface) error) error {
	err := f.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(f.WithDB(tx))
	})
	return translateError(err)
}
