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

// ProtocolDefinitionFacadeInterface defines the database operation interface
// for the protocol function catalog.
type ProtocolDefinitionFacadeInterface interface {
	Create(ctx context.Context, def *model.FunctionProtocolDefinition) error
	Get(ctx context.Context, accessionID string) (*model.FunctionProtocolDefinition, error)
	// GetByFQN returns the newest non-deprecated entry for the fqn.
	GetByFQN(ctx context.Context, fqn string) (*model.FunctionProtocolDefinition, error)
	GetByNameAndVersion(ctx context.Context, name, version string) (*model.FunctionProtocolDefinition, error)
	List(ctx context.Context, filter *ProtocolDefinitionFilter) ([]*model.FunctionProtocolDefinition, error)
	Update(ctx context.Context, def *model.FunctionProtocolDefinition) error
	Delete(ctx context.Context, accessionID string) error
	WithDB(db *gorm.DB) ProtocolDefinitionFacadeInterface
}

// ProtocolDefinitionFilter defines filter conditions for the protocol catalog.
type ProtocolDefinitionFilter struct {
	Name               *string
	IsTopLevel         *bool
	Category           *string
	Deprecated         *bool
	SourceRepositoryID *string
	FileSystemSourceID *string
	Limit              int
	Offset             int
}

// ProtocolDefinitionFacade implements ProtocolDefinitionFacadeInterface.
type ProtocolDefinitionFacade struct {
	BaseFacade
}

// NewProtocolDefinitionFacade creates a facade on the default pool.
func NewProtocolDefinitionFacade() ProtocolDefinitionFacadeInterface {
	return &ProtocolDefinitionFacade{}
}

func (f *ProtocolDefinitionFacade) WithDB(db *gorm.DB) ProtocolDefinitionFacadeInterface {
	return &ProtocolDefinitionFacade{BaseFacade: f.withDB(db)}
}

func (f *ProtocolDefinitionFacade) Create(ctx context.Context, def *model.FunctionProtocolDefinition) error {
	if err := validateDefinitionSource(def); err != nil {
		return err
	}
	return translateError(f.getDB().WithContext(ctx).Create(def).Error)
}

// validateDefinitionSource enforces that a definition is backed by exactly
// one source: a repository commit or a filesystem snapshot.
func validateDefinitionSource(def *model.FunctionProtocolDefinition) error {
	repo := def.SourceRepositoryID != nil && *def.SourceRepositoryID != ""
	fs := def.FileSystemSourceID != nil && *def.FileSystemSourceID != ""
	if repo == fs {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("protocol definition %s must reference exactly one source", def.Name)
	}
	if repo && (def.CommitHash == nil || *def.CommitHash == "") {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("protocol definition %s references a repository without a commit hash", def.Name)
	}
	return nil
}

func (f *ProtocolDefinitionFacade) Get(ctx context.Context, accessionID string) (*model.FunctionProtocolDefinition, error) {
	var def model.FunctionProtocolDefinition
	err := f.getDB().WithContext(ctx).Where("accession_id = ?", accessionID).First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &def, nil
}

func (f *ProtocolDefinitionFacade) GetByFQN(ctx context.Context, fqn string) (*model.FunctionProtocolDefinition, error) {
	var def model.FunctionProtocolDefinition
	err := f.getDB().WithContext(ctx).
		Where("fqn = ? AND deprecated = ?", fqn, false).
		Order("created_at DESC").
		First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &def, nil
}

func (f *ProtocolDefinitionFacade) GetByNameAndVersion(ctx context.Context, name, version string) (*model.FunctionProtocolDefinition, error) {
	var def model.FunctionProtocolDefinition
	err := f.getDB().WithContext(ctx).
		Where("name = ? AND version = ?", name, version).
		First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &def, nil
}

func (f *ProtocolDefinitionFacade) List(ctx context.Context, filter *ProtocolDefinitionFilter) ([]*model.FunctionProtocolDefinition, error) {
	query := f.getDB().WithContext(ctx).Model(&model.FunctionProtocolDefinition{})
	if filter != nil {
		if filter.Name != nil {
			query = query.Where("name = ?", *filter.Name)
		}
		if filter.IsTopLevel != nil {
			query = query.Where("is_top_level = ?", *filter.IsTopLevel)
		}
		if filter.Category != nil {
			query = query.Where("category = ?", *filter.Category)
		}
		if filter.Deprecated != nil {
			query = query.Where("deprecated = ?", *filter.Deprecated)
		}
		if filter.SourceRepositoryID != nil {
			query = query.Where("source_repository_id = ?", *filter.SourceRepositoryID)
		}
		if filter.FileSystemSourceID != nil {
			query = query.Where("file_system_source_id = ?", *filter.FileSystemSourceID)
		}
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit).Offset(filter.Offset)
		}
	}
	var defs []*model.FunctionProtocolDefinition
	if err := query.Order("name ASC, version ASC").Find(&defs).Error; err != nil {
		return nil, err
	}
	return defs, nil
}

func (f *ProtocolDefinitionFacade) Update(ctx context.Context, def *model.FunctionProtocolDefinition) error {
	if err := validateDefinitionSource(def); err != nil {
		return err
	}
	return translateError(f.getDB().WithContext(ctx).Save(def).Error)
}

func (f *ProtocolDefinitionFacade) Delete(ctx context.Context, accessionID string) error {
	result := f.getDB().WithContext(ctx).
		Where("accession_id = ?", accessionID).
		Delete(&model.FunctionProtocolDefinition{})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return praxiserrors.NewError().
			WithCode(praxiserrors.CodeNotFound).
			WithMessagef("protocol definition %s not found", accessionID)
	}
	return nil
}
