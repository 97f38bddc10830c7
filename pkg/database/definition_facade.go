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

// DefinitionFacadeInterface defines the database operation interface for the
// resource, machine and deck type catalogs.
type DefinitionFacadeInterface interface {
	CreateResourceDefinition(ctx context.Context, def *model.ResourceDefinition) error
	GetResourceDefinition(ctx context.Context, accessionID string) (*model.ResourceDefinition, error)
	GetResourceDefinitionByFQN(ctx context.Context, fqn string) (*model.ResourceDefinition, error)
	GetResourceDefinitionByName(ctx context.Context, name string) (*model.ResourceDefinition, error)
	ListResourceDefinitions(ctx context.Context, filter *ResourceDefinitionFilter) ([]*model.ResourceDefinition, error)
	UpdateResourceDefinition(ctx context.Context, def *model.ResourceDefinition) error
	DeleteResourceDefinition(ctx context.Context, accessionID string) error
	// UpsertResourceDefinitionByFQN creates or refreshes the entry keyed by
	// fqn, keeping the existing accession id on refresh.
	UpsertResourceDefinitionByFQN(ctx context.Context, def *model.ResourceDefinition) error

	CreateMachineDefinition(ctx context.Context, def *model.MachineDefinition) error
	GetMachineDefinition(ctx context.Context, accessionID string) (*model.MachineDefinition, error)
	GetMachineDefinitionByFQN(ctx context.Context, fqn string) (*model.MachineDefinition, error)
	GetMachineDefinitionByName(ctx context.Context, name string) (*model.MachineDefinition, error)
	ListMachineDefinitions(ctx context.Context, category *string, limit, offset int) ([]*model.MachineDefinition, error)
	UpdateMachineDefinition(ctx context.Context, def *model.MachineDefinition) error
	DeleteMachineDefinition(ctx context.Context, accessionID string) error
	UpsertMachineDefinitionByFQN(ctx context.Context, def *model.MachineDefinition) error

	CreateDeckDefinition(ctx context.Context, def *model.DeckDefinition) error
	GetDeckDefinition(ctx context.Context, accessionID string) (*model.DeckDefinition, error)
	GetDeckDefinitionByFQN(ctx context.Context, fqn string) (*model.DeckDefinition, error)
	GetDeckDefinitionByName(ctx context.Context, name string) (*model.DeckDefinition, error)
	ListDeckDefinitions(ctx context.Context, limit, offset int) ([]*model.DeckDefinition, error)
	UpdateDeckDefinition(ctx context.Context, def *model.DeckDefinition) error
	DeleteDeckDefinition(ctx context.Context, accessionID string) error
	UpsertDeckDefinitionByFQN(ctx context.Context, def *model.DeckDefinition) error

	CreateDeckPositionDefinitions(ctx context.Context, positions []*model.DeckPositionDefinition) error
	GetDeckPositionDefinition(ctx context.Context, deckTypeID, name string) (*model.DeckPositionDefinition, error)
	ListDeckPositionDefinitions(ctx context.Context, deckTypeID string) ([]*model.DeckPositionDefinition, error)
	DeleteDeckPositionDefinitions(ctx context.Context, deckTypeID string) error

	WithDB(db *gorm.DB) DefinitionFacadeInterface
}

// ResourceDefinitionFilter defines filter conditions for the labware catalog.
type ResourceDefinitionFilter struct {
	PLRCategory  *string
	ResourceType *string
	Manufacturer *string
	IsConsumable *bool
	Limit        int
	Offset       int
}

// DefinitionFacade implements DefinitionFacadeInterface.
type DefinitionFacade struct {
	BaseFacade
}

// NewDefinitionFacade creates a facade on the default pool.
func NewDefinitionFacade() DefinitionFacadeInterface {
	return &DefinitionFacade{}
}

func (f *DefinitionFacade) WithDB(db *gorm.DB) DefinitionFacadeInterface {
	return &DefinitionFacade{BaseFacade: f.withDB(db)}
}

func notFoundAsNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// Resource definitions.

func (f *DefinitionFacade) CreateResourceDefinition(ctx context.Context, def *model.ResourceDefinition) error {
	return translateError(f.getDB().WithContext(ctx).Create(def).Error)
}

func (f *DefinitionFacade) GetResourceDefinition(ctx context.Context, accessionID string) (*model.ResourceDefinition, error) {
	var def model.ResourceDefinition
	err := f.getDB().WithContext(ctx).Where("accession_id = ?", accessionID).First(&def).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &def, nil
}

func (f *DefinitionFacade) GetResourceDefinitionByFQN(ctx context.Context, fqn string) (*model.ResourceDefinition, error) {
	var def model.ResourceDefinition
	err := f.getDB().WithContext(ctx).Where("fqn = ?", fqn).First(&def).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &def, nil
}

func (f *DefinitionFacade) GetResourceDefinitionByName(ctx context.Context, name string) (*model.ResourceDefinition, error) {
	var def model.ResourceDefinition
	err := f.getDB().WithContext(ctx).Where("name = ?", name).First(&def).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &def, nil
}

func (f *DefinitionFacade) ListResourceDefinitions(ctx context.Context, filter *ResourceDefinitionFilter) ([]*model.ResourceDefinition, error) {
	query := f.getDB().WithContext(ctx).Model(&model.ResourceDefinition{})
	if filter != nil {
		if filter.PLRCategory != nil {
			query = query.Where("plr_category = ?", *filter.PLRCategory)
		}
		if filter.ResourceType != nil {
			query = query.Where("resource_type = ?", *filter.ResourceType)
		}
		if filter.Manufacturer != nil {
			query = query.Where("manufacturer = ?", *filter.Manufacturer)
		}
		if filter.IsConsumable != nil {
			query = query.Where("is_consumable = ?", *filter.IsConsumable)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit).Offset(filter.Offset)
		}
	}
	var defs []*model.ResourceDefinition
	if err := query.Order("name ASC").Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

func (f *DefinitionFacade) UpdateResourceDefinition(ctx context.Context, def *model.ResourceDefinition) error {
	return translateError(f.getDB().WithContext(ctx).Save(def).Error)
}

func (f *DefinitionFacade) DeleteResourceDefinition(ctx context.Context, accessionID string) error {
	return f.deleteByID(ctx, &model.ResourceDefinition{}, accessionID, "resource definition")
}

func (f *DefinitionFacade) UpsertResourceDefinitionByFQN(ctx context.Context, def *model.ResourceDefinition) error {
	return f.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.ResourceDefinition
		err := tx.Where("fqn = ?", def.FQN).First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return translateError(tx.Create(def).Error)
			}
			return err
		}
		def.AccessionID = existing.AccessionID
		def.CreatedAt = existing.CreatedAt
		return translateError(tx.Save(def).Error)
	})
}

// Machine definitions.

func (f *DefinitionFacade) CreateMachineDefinition(ctx context.Context, def *model.MachineDefinition) error {
	return translateError(f.getDB().WithContext(ctx).Create(def).Error)
}

func (f *DefinitionFacade) GetMachineDefinition(ctx context.Context, accessionID string) (*model.MachineDefinition, error) {
	var def model.MachineDefinition
	err := f.getDB().WithContext(ctx).Where("accession_id = ?", accessionID).First(&def).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &def, nil
}

func (f *DefinitionFacade) GetMachineDefinitionByFQN(ctx context.Context, fqn string) (*model.MachineDefinition, error) {
	var def model.MachineDefinition
	err := f.getDB().WithContext(ctx).Where("fqn = ?", fqn).First(&def).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &def, nil
}

func (f *DefinitionFacade) GetMachineDefinitionByName(ctx context.Context, name string) (*model.MachineDefinition, error) {
	var def model.MachineDefinition
	err := f.getDB().WithContext(ctx).Where("name = ?", name).First(&def).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &def, nil
}

func (f *DefinitionFacade) ListMachineDefinitions(ctx context.Context, category *string, limit, offset int) ([]*model.MachineDefinition, error) {
	query := f.getDB().WithContext(ctx).Model(&model.MachineDefinition{})
	if category != nil {
		query = query.Where("machine_category = ?", *category)
	}
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	var defs []*model.MachineDefinition
	if err := query.Order("name ASC").Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

func (f *DefinitionFacade) UpdateMachineDefinition(ctx context.Context, def *model.MachineDefinition) error {
	return translateError(f.getDB().WithContext(ctx).Save(def).Error)
}

func (f *DefinitionFacade) DeleteMachineDefinition(ctx context.Context, accessionID string) error {
	return f.deleteByID(ctx, &model.MachineDefinition{}, accessionID, "machine definition")
}

func (f *DefinitionFacade) UpsertMachineDefinitionByFQN(ctx context.Context, def *model.MachineDefinition) error {
	return f.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.MachineDefinition
		err := tx.Where("fqn = ?", def.FQN).First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return translateError(tx.Create(def).Error)
			}
			return err
		}
		def.AccessionID = existing.AccessionID
		def.CreatedAt = existing.CreatedAt
		return translateError(tx.Save(def).Error)
	})
}

// Deck definitions.

func (f *DefinitionFacade) CreateDeckDefinition(ctx context.Context, def *model.DeckDefinition) error {
	return translateError(f.getDB().WithContext(ctx).Create(def).Error)
}

func (f *DefinitionFacade) GetDeckDefinition(ctx context.Context, accessionID string) (*model.DeckDefinition, error) {
	var def model.DeckDefinition
	err := f.getDB().WithContext(ctx).Where("accession_id = ?", accessionID).First(&def).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &def, nil
}

func (f *DefinitionFacade) GetDeckDefinitionByFQN(ctx context.Context, fqn string) (*model.DeckDefinition, error) {
	var def model.DeckDefinition
	err := f.getDB().WithContext(ctx).Where("fqn = ?", fqn).First(&def).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &def, nil
}

func (f *DefinitionFacade) GetDeckDefinitionByName(ctx context.Context, name string) (*model.DeckDefinition, error) {
	var def model.DeckDefinition
	err := f.getDB().WithContext(ctx).Where("name = ?", name).First(&def).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &def, nil
}

func (f *DefinitionFacade) ListDeckDefinitions(ctx context.Context, limit, offset int) ([]*model.DeckDefinition, error) {
	query := f.getDB().WithContext(ctx).Model(&model.DeckDefinition{})
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	var defs []*model.DeckDefinition
	if err := query.Order("name ASC").Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

func (f *DefinitionFacade) UpdateDeckDefinition(ctx context.Context, def *model.DeckDefinition) error {
	return translateError(f.getDB().WithContext(ctx).Save(def).Error)
}

func (f *DefinitionFacade) DeleteDeckDefinition(ctx context.Context, accessionID string) error {
	return f.deleteByID(ctx, &model.DeckDefinition{}, accessionID, "deck definition")
}

func (f *DefinitionFacade) UpsertDeckDefinitionByFQN(ctx context.Context, def *model.DeckDefinition) error {
	return f.getDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.DeckDefinition
		err := tx.Where("fqn = ?", def.FQN).First(&existing).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return translateError(tx.Create(def).Error)
			}
			return err
		}
		def.AccessionID = existing.AccessionID
		def.CreatedAt = existing.CreatedAt
		return translateError(tx.Save(def).Error)
	})
}

// Deck positions.

func (f *DefinitionFacade) CreateDeckPositionDefinitions(ctx context.Context, positions []*model.DeckPositionDefinition) error {
	if len(positions) == 0 {
		return nil
	}
	return translateError(f.getDB().WithContext(ctx).CreateInBatches(positions, 100).Error)
}

func (f *DefinitionFacade) GetDeckPositionDefinition(ctx context.Context, deckTypeID, name string) (*model.DeckPositionDefinition, error) {
	var pos model.DeckPositionDefinition
	err := f.getDB().WithContext(ctx).
		Where("deck_type_id = ? AND name = ?", deckTypeID, name).
		First(&pos).Error
	if err != nil {
		return nil, notFoundAsNil(err)
	}
	return &pos, nil
}

func (f *DefinitionFacade) ListDeckPositionDefinitions(ctx context.Context, deckTypeID string) ([]*model.DeckPositionDefinition, error) {
	var positions []*model.DeckPositionDefinition
	err := f.getDB().WithContext(ctx).
		Where("deck_type_id = ?", deckTypeID).
		Order("name ASC").
		Find(&positions).Error
	if err != nil {
		return nil, err
	}
	return positions, nil
}

func (f *DefinitionFacade) DeleteDeckPositionDefinitions(ctx context.Context, deckTypeID string) error {
	return f.getDB().WithContext(ctx).
		Where("deck_type_id = ?", deckTypeID).
		Delete(&model.DeckPositionDefinition{}).Error
}

func (f *DefinitionFacade) deleteByID(ctx context.Context, m interface{}, accessionID, kind string) error {
	result := f.getDB().WithContext(ctx).Where("accession_id = ?", accessionID).Delete(m)
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeNotFound).
			WithMessagef("%s %s not found", kind, accessionID)
	}
	return nil
}
