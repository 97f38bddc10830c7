// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"context"
	"errors"

	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	praxiserrors "github.com/maraxen/pylabpraxis-sub002/pkg/errors"
	"gorm.io/gorm"
)

// WorkcellFacadeInterface defines the database operation interface for workcells.
type WorkcellFacadeInterface interface {
	Create(ctx context.Context, workcell *model.Workcell) error
	Get(ctx context.Context, accessionID string) (*model.Workcell, error)
	GetByName(ctx context.Context, name string) (*model.Workcell, error)
	List(ctx context.Context, limit, offset int) ([]*model.Workcell, error)
	Update(ctx context.Context, workcell *model.Workcell) error
	Delete(ctx context.Context, accessionID string) error
	WithDB(db *gorm.DB) WorkcellFacadeInterface
}

// WorkcellFacade implements WorkcellFacadeInterface.
type WorkcellFacade struct {
	BaseFacade
}

// NewWorkcellFacade creates a facade on the default pool.
func NewWorkcellFacade() WorkcellFacadeInterface {
	return &WorkcellFacade{}
}

func (f *WorkcellFacade) WithDB(db *gorm.DB) WorkcellFacadeInterface {
	return &WorkcellFacade{BaseFacade: f.withDB(db)}
}

func (f *WorkcellFacade) Create(ctx context.Context, workcell *model.Workcell) error {
	return translateError(f.getDB().WithContext(ctx).Create(workcell).Error)
}

func (f *WorkcellFacade) Get(ctx context.Context, accessionID string) (*model.Workcell, error) {
	var workcell model.Workcell
	err := f.getDB().WithContext(ctx).Where("accession_id = ?", accessionID).First(&workcell).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &workcell, nil
}

func (f *WorkcellFacade) GetByName(ctx context.Context, name string) (*model.Workcell, error) {
	var workcell model.Workcell
	err := f.getDB().WithContext(ctx).Where("name = ?", name).First(&workcell).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &workcell, nil
}

func (f *WorkcellFacade) List(ctx context.Context, limit, offset int) ([]*model.Workcell, error) {
	query := f.getDB().WithContext(ctx).Model(&model.Workcell{}).Order("name ASC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	var workcells []*model.Workcell
	if err := query.Find(&workcells).Error; err != nil {
		return nil, err
	}
	return workcells, nil
}

func (f *WorkcellFacade) Update(ctx context.Context, workcell *model.Workcell) error {
	return translateError(f.getDB().WithContext(ctx).Save(workcell).Error)
}

func (f *WorkcellFacade) Delete(ctx context.Context, accessionID string) error {
	result := f.getDB().WithContext(ctx).
		Where("accession_id = ?", accessionID).
		Delete(&model.Workcell{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeNotFound).
			WithMessagef("workcell %s not found", accessionID)
	}
	return nil
}
