// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	praxiserrors "github.com/maraxen/pylabpraxis-sub002/pkg/errors"
	"github.com/maraxen/pylabpraxis-sub002/pkg/sql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssetFacadeInterface defines the database operation interface for assets.
type AssetFacadeInterface interface {
	Create(ctx context.Context, asset *model.Asset) error
	Get(ctx context.Context, accessionID string) (*model.Asset, error)
	GetByName(ctx context.Context, name string) (*model.Asset, error)

	// GetByNameForUpdate locks the row for the enclosing transaction. Call
	// it only on a facade obtained inside Transaction.
	GetByNameForUpdate(ctx context.Context, name string) (*model.Asset, error)
	GetForUpdate(ctx context.Context, accessionID string) (*model.Asset, error)

	// ListByName returns every row carrying the name. Standalone assets
	// have at most one; a linked counterpart pair has two.
	ListByName(ctx context.Context, name string) ([]*model.Asset, error)
	ListByNameForUpdate(ctx context.Context, name string) ([]*model.Asset, error)

	List(ctx context.Context, filter *AssetFilter) ([]*model.Asset, error)
	Count(ctx context.Context, filter *AssetFilter) (int64, error)
	Update(ctx context.Context, asset *model.Asset) error
	UpdateFields(ctx context.Context, accessionID string, fields map[string]interface{}) error
	Delete(ctx context.Context, accessionID string) error

	// Transaction runs fn with a facade bound to one transaction. fn
	// returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(tx AssetFacadeInterface) error) error

	// WithDB binds the facade to a specific handle.
	WithDB(db *gorm.DB) AssetFacadeInterface
}

// AssetFilter defines filter conditions for querying assets.
type AssetFilter struct {
	AssetType            *constant.AssetType
	AssetTypes           []constant.AssetType
	Name                 *string
	NameContains         *string
	FQN                  *string
	FQNContains          *string
	MachineStatus        *constant.MachineStatus
	ResourceStatus       *constant.ResourceStatus
	WorkcellID           *string
	CurrentProtocolRunID *string
	// HasCurrentProtocolRun filters on current_protocol_run_id being set
	// (true) or null (false), whichever run holds the asset.
	HasCurrentProtocolRun *bool
	ResourceDefinitionID  *string
	MachineCategory      *string
	ParentID             *string
	DeckID               *string
	ParentMachineID      *string
	// LocationMachineID matches resources sitting on the machine, either
	// directly or on one of its decks.
	LocationMachineID *string
	OnDeckPosition    *string
	// PropertyFilters matches properties_json members by equality.
	PropertyFilters model.JSONBag
	Limit           int
	Offset          int
}

// AssetFacade implements AssetFacadeInterface.
type AssetFacade struct {
	BaseFacade
}

// NewAssetFacade creates a facade on the default pool.
func NewAssetFacade() AssetFacadeInterface {
	return &AssetFacade{}
}

func (f *AssetFacade) WithDB(db *gorm.DB) AssetFacadeInterface {
	return &AssetFacade{BaseFacade: f.withDB(db)}
}

func (f *AssetFacade) Create(ctx context.Context, asset *model.Asset) error {
	return translateError(f.getDB().WithContext(ctx).Create(asset).Error)
}

func (f *AssetFacade) Get(ctx context.Context, accessionID string) (*model.Asset, error) {
	db := f.getDB().WithContext(ctx)
	var asset model.Asset
	err := db.Where("accession_id = ?", accessionID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

func (f *AssetFacade) GetByName(ctx context.Context, name string) (*model.Asset, error) {
	db := f.getDB().WithContext(ctx)
	var asset model.Asset
	err := db.Where("name = ?", name).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

func (f *AssetFacade) GetByNameForUpdate(ctx context.Context, name string) (*model.Asset, error) {
	db := f.getDB().WithContext(ctx)
	if rowLockSupported(db) {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var asset model.Asset
	err := db.Where("name = ?", name).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

func (f *AssetFacade) GetForUpdate(ctx context.Context, accessionID string) (*model.Asset, error) {
	db := f.getDB().WithContext(ctx)
	if rowLockSupported(db) {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var asset model.Asset
	err := db.Where("accession_id = ?", accessionID).First(&asset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &asset, nil
}

func (f *AssetFacade) ListByName(ctx context.Context, name string) ([]*model.Asset, error) {
	var assets []*model.Asset
	err := f.getDB().WithContext(ctx).
		Where("name = ?", name).
		Order("accession_id ASC").
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (f *AssetFacade) ListByNameForUpdate(ctx context.Context, name string) ([]*model.Asset, error) {
	db := f.getDB().WithContext(ctx)
	if rowLockSupported(db) {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var assets []*model.Asset
	err := db.Where("name = ?", name).
		Order("accession_id ASC").
		Find(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (f *AssetFacade) List(ctx context.Context, filter *AssetFilter) ([]*model.Asset, error) {
	query := f.applyFilter(ctx, filter)

	if filter != nil && filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var assets []*model.Asset
	if err := query.Order("name ASC").Find(&assets).Error; err != nil {
		return nil, err
	}
	return assets, nil
}

func (f *AssetFacade) Count(ctx context.Context, filter *AssetFilter) (int64, error) {
	var count int64
	err := f.applyFilter(ctx, filter).Count(&count).Error
	return count, err
}

func (f *AssetFacade) applyFilter(ctx context.Context, filter *AssetFilter) *gorm.DB {
	query := f.getDB().WithContext(ctx).Model(&model.Asset{})
	if filter == nil {
		return query
	}
	if filter.AssetType != nil {
		query = query.Where("asset_type = ?", *filter.AssetType)
	}
	if len(filter.AssetTypes) > 0 {
		query = query.Where("asset_type IN ?", filter.AssetTypes)
	}
	if filter.Name != nil {
		query = query.Where("name = ?", *filter.Name)
	}
	if filter.NameContains != nil {
		query = query.Where("name LIKE ?", "%"+*filter.NameContains+"%")
	}
	if filter.FQN != nil {
		query = query.Where("fqn = ?", *filter.FQN)
	}
	if filter.FQNContains != nil {
		query = query.Where("fqn LIKE ?", "%"+*filter.FQNContains+"%")
	}
	if filter.MachineStatus != nil {
		query = query.Where("machine_status = ?", *filter.MachineStatus)
	}
	if filter.ResourceStatus != nil {
		query = query.Where("resource_status = ?", *filter.ResourceStatus)
	}
	if filter.WorkcellID != nil {
		query = query.Where("workcell_id = ?", *filter.WorkcellID)
	}
	if filter.CurrentProtocolRunID != nil {
		query = query.Where("current_protocol_run_id = ?", *filter.CurrentProtocolRunID)
	}
	if filter.HasCurrentProtocolRun != nil {
		if *filter.HasCurrentProtocolRun {
			query = query.Where("current_protocol_run_id IS NOT NULL")
		} else {
			query = query.Where("current_protocol_run_id IS NULL")
		}
	}
	if filter.ResourceDefinitionID != nil {
		query = query.Where("resource_definition_id = ?", *filter.ResourceDefinitionID)
	}
	if filter.MachineCategory != nil {
		query = query.Where("machine_category = ?", *filter.MachineCategory)
	}
	if filter.ParentID != nil {
		query = query.Where("parent_id = ?", *filter.ParentID)
	}
	if filter.DeckID != nil {
		query = query.Where("deck_id = ?", *filter.DeckID)
	}
	if filter.ParentMachineID != nil {
		query = query.Where("parent_machine_id = ?", *filter.ParentMachineID)
	}
	if filter.LocationMachineID != nil {
		decks := f.getDB().Model(&model.Asset{}).
			Select("accession_id").
			Where("parent_machine_id = ?", *filter.LocationMachineID)
		query = query.Where("parent_id = ? OR deck_id IN (?)", *filter.LocationMachineID, decks)
	}
	if filter.OnDeckPosition != nil {
		query = query.Where("current_deck_position_name = ?", *filter.OnDeckPosition)
	}
	for key, want := range filter.PropertyFilters {
		if query.Dialector.Name() == sql.DriverNamePostgres {
			query = query.Where("properties_json ->> ? = ?", key, fmt.Sprint(want))
		} else {
			query = query.Where("json_extract(properties_json, '$.' || ?) = ?", key, want)
		}
	}
	return query
}

func (f *AssetFacade) Update(ctx context.Context, asset *model.Asset) error {
	return translateError(f.getDB().WithContext(ctx).Save(asset).Error)
}

func (f *AssetFacade) UpdateFields(ctx context.Context, accessionID string, fields map[string]interface{}) error {
	result := f.getDB().WithContext(ctx).Model(&model.Asset{}).
		Where("accession_id = ?", accessionID).
		Updates(fields)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeNotFound).
			WithMessagef("asset %s not found", accessionID)
	}
	return nil
}

func (f *AssetFacade) Delete(ctx context.Context, accessionID string) error {
	result := f.getDB().WithContext(ctx).
		Where("accession_id = ?", accessionID).
		Delete(&model.Asset{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeNotFound).
			WithMessagef("asset %s not found", accessionID)
	}
	return nil
}

func (f *AssetFacade) Transaction(ctx context.Context, fn func(tx AssetFacadeInterface) error) error {
	err := f.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(f.WithDB(tx))
	})
	return translateError(err)
}
