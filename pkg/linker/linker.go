// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package linker maintains the bidirectional machine/resource counterpart
// relationship. A linked pair is two asset rows typed MACHINE_RESOURCE that
// reference each other through the counterpart id columns and mirror one
// name; every mutation runs inside one transaction so the cross-reference
// never holds half-way.
package linker

import (
	"context"
	"fmt"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/catalog"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
)

// propertyKeyCounterpart is the properties_json member that remembers a
// resource's pre-link identity so unlinking can restore it.
const propertyKeyCounterpart = "_counterpart"

const (
	stampOriginalName = "original_name"
	stampOriginalType = "original_asset_type"
	stampLinkedAt     = "linked_at"
)

// EntityNotFoundError reports a missing asset row.
type EntityNotFoundError struct {
	Kind string
	ID   string
}

func (e *EntityNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsEntityNotFound reports whether err is a missing-asset failure.
func IsEntityNotFound(err error) bool {
	_, ok := err.(*EntityNotFoundError)
	return ok
}

// InvalidLinkOperationError rejects a link request the pair topology cannot
// satisfy, such as linking to an entity already paired elsewhere.
type InvalidLinkOperationError struct {
	Reason string
}

func (e *InvalidLinkOperationError) Error() string {
	return "invalid link operation: " + e.Reason
}

// IsInvalidLinkOperation reports whether err is a rejected link request.
func IsInvalidLinkOperation(err error) bool {
	_, ok := err.(*InvalidLinkOperationError)
	return ok
}

// LinkRequest drives one link mutation. Link=false unlinks the current
// counterpart; with Link=true exactly one of CounterpartID or
// ResourceDefinitionName selects the target, and neither set is a no-op
// probe that returns the existing counterpart.
type LinkRequest struct {
	Link                   bool
	CounterpartID          *string
	ResourceDefinitionName *string
	// ResourceInitialStatus applies when a resource is created; defaults
	// to AVAILABLE_IN_STORAGE.
	ResourceInitialStatus *constant.ResourceStatus
	ResourceProperties    model.JSONBag
}

// LinkResult reports both sides after a mutation. Resource is nil after an
// unlink of a machine whose counterpart row had gone missing.
type LinkResult struct {
	Machine  *model.Asset
	Resource *model.Asset
}

// Service mutates counterpart links.
type Service struct {
	assets  database.AssetFacadeInterface
	catalog *catalog.Service
	clock   accession.Clock
}

// NewService creates a linker over the asset facade and definition catalog.
func NewService(assets database.AssetFacadeInterface, cat *catalog.Service, clock accession.Clock) *Service {
	if clock == nil {
		clock = accession.SystemClock{}
	}
	return &Service{assets: assets, catalog: cat, clock: clock}
}

// LinkMachineWithResource links or unlinks the machine-side asset. Cases:
// counterpart id given links an existing resource (displacing a previous
// counterpart), a definition name creates the resource, neither returns the
// current pair, Link=false unlinks.
func (s *Service) LinkMachineWithResource(ctx context.Context, machineID string, req *LinkRequest) (*LinkResult, error) {
	// Definitions are read-only catalog data; resolve before the asset
	// transaction opens so the lookup never rides its connection.
	var def *model.ResourceDefinition
	if req.Link && req.ResourceDefinitionName != nil {
		var err error
		def, err = s.catalog.ResourceDefinitionByName(ctx, *req.ResourceDefinitionName)
		if err != nil {
			return nil, err
		}
		if def == nil {
			return nil, &catalog.DefinitionNotFoundError{Kind: "resource", Key: *req.ResourceDefinitionName}
		}
	}

	var result *LinkResult
	err := s.assets.Transaction(ctx, func(tx database.AssetFacadeInterface) error {
		machine, err := tx.GetForUpdate(ctx, machineID)
		if err != nil {
			return err
		}
		if machine == nil {
			return &EntityNotFoundError{Kind: "machine", ID: machineID}
		}
		if !machine.HasMachineRole() {
			return &InvalidLinkOperationError{Reason: fmt.Sprintf("asset %s is a %s, not a machine", machineID, machine.AssetType)}
		}

		if !req.Link {
			result, err = s.unlinkMachine(ctx, tx, machine)
			return err
		}

		switch {
		case req.CounterpartID != nil:
			result, err = s.linkExistingResource(ctx, tx, machine, *req.CounterpartID)
			return err
		case req.ResourceDefinitionName != nil:
			result, err = s.linkNewResource(ctx, tx, machine, def, req)
			return err
		default:
			if machine.ResourceCounterpartID == nil {
				return &InvalidLinkOperationError{Reason: fmt.Sprintf("machine %s has no counterpart and no target was given", machineID)}
			}
			resource, err := tx.Get(ctx, *machine.ResourceCounterpartID)
			if err != nil {
				return err
			}
			result = &LinkResult{Machine: machine, Resource: resource}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// LinkResourceWithMachine is the inverse entry point. It supports linking to
// an existing machine by counterpart id and unlinking; it never creates a
// machine implicitly, a definition name here is rejected.
func (s *Service) LinkResourceWithMachine(ctx context.Context, resourceID string, req *LinkRequest) (*LinkResult, error) {
	var result *LinkResult
	err := s.assets.Transaction(ctx, func(tx database.AssetFacadeInterface) error {
		resource, err := tx.GetForUpdate(ctx, resourceID)
		if err != nil {
			return err
		}
		if resource == nil {
			return &EntityNotFoundError{Kind: "resource", ID: resourceID}
		}
		if !resource.HasResourceRole() || resource.AssetType == constant.AssetTypeDeck {
			return &InvalidLinkOperationError{Reason: fmt.Sprintf("asset %s is a %s, not a linkable resource", resourceID, resource.AssetType)}
		}

		if !req.Link {
			if resource.MachineCounterpartID == nil {
				result = &LinkResult{Resource: resource}
				return nil
			}
			machine, err := tx.GetForUpdate(ctx, *resource.MachineCounterpartID)
			if err != nil {
				return err
			}
			if machine == nil {
				// Orphaned half; clear the dangling reference.
				s.restoreResource(ctx, tx, resource)
				result = &LinkResult{Resource: resource}
				return tx.Update(ctx, resource)
			}
			result, err = s.unlinkMachine(ctx, tx, machine)
			return err
		}

		switch {
		case req.CounterpartID != nil:
			machine, err := tx.GetForUpdate(ctx, *req.CounterpartID)
			if err != nil {
				return err
			}
			if machine == nil {
				return &EntityNotFoundError{Kind: "machine", ID: *req.CounterpartID}
			}
			if !machine.HasMachineRole() {
				return &InvalidLinkOperationError{Reason: fmt.Sprintf("asset %s is a %s, not a machine", *req.CounterpartID, machine.AssetType)}
			}
			result, err = s.crossLink(ctx, tx, machine, resource)
			return err
		case req.ResourceDefinitionName != nil:
			return &InvalidLinkOperationError{Reason: "a resource cannot create its machine counterpart"}
		default:
			if resource.MachineCounterpartID == nil {
				return &InvalidLinkOperationError{Reason: fmt.Sprintf("resource %s has no counterpart and no target was given", resourceID)}
			}
			machine, err := tx.Get(ctx, *resource.MachineCounterpartID)
			if err != nil {
				return err
			}
			result = &LinkResult{Machine: machine, Resource: resource}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SynchronizeNames propagates the asset's name to its counterpart.
func (s *Service) SynchronizeNames(ctx context.Context, assetID string) error {
	return s.assets.Transaction(ctx, func(tx database.AssetFacadeInterface) error {
		asset, err := tx.GetForUpdate(ctx, assetID)
		if err != nil {
			return err
		}
		if asset == nil {
			return &EntityNotFoundError{Kind: "asset", ID: assetID}
		}
		cid := asset.CounterpartID()
		if cid == nil {
			return nil
		}
		counterpart, err := tx.GetForUpdate(ctx, *cid)
		if err != nil {
			return err
		}
		if counterpart == nil || counterpart.Name == asset.Name {
			return nil
		}
		counterpart.Name = asset.Name
		return tx.Update(ctx, counterpart)
	})
}

func (s *Service) linkExistingResource(ctx context.Context, tx database.AssetFacadeInterface, machine *model.Asset, resourceID string) (*LinkResult, error) {
	resource, err := tx.GetForUpdate(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	if resource == nil {
		return nil, &EntityNotFoundError{Kind: "resource", ID: resourceID}
	}
	if !resource.HasResourceRole() || resource.AssetType == constant.AssetTypeDeck {
		return nil, &InvalidLinkOperationError{Reason: fmt.Sprintf("asset %s is a %s, not a linkable resource", resourceID, resource.AssetType)}
	}
	return s.crossLink(ctx, tx, machine, resource)
}

func (s *Service) linkNewResource(ctx context.Context, tx database.AssetFacadeInterface, machine *model.Asset, def *model.ResourceDefinition, req *LinkRequest) (*LinkResult, error) {
	status := constant.ResourceStatusAvailableInStorage
	if req.ResourceInitialStatus != nil {
		status = *req.ResourceInitialStatus
	}
	// The back-reference is set before insert: the row shares the machine's
	// name, so it must be born outside the standalone-name unique index.
	resource := &model.Asset{
		AccessionID:          accession.NewID(),
		AssetType:            constant.AssetTypeResource,
		Name:                 machine.Name,
		ResourceStatus:       &status,
		ResourceDefinitionID: &def.AccessionID,
		Properties:           req.ResourceProperties.Clone(),
		MachineCounterpartID: &machine.AccessionID,
	}
	if err := tx.Create(ctx, resource); err != nil {
		return nil, err
	}
	return s.crossLink(ctx, tx, machine, resource)
}

// crossLink pairs machine and resource, displacing the machine's previous
// counterpart when it differs. The resource keeps a stamp of its pre-link
// identity for restoration on unlink.
func (s *Service) crossLink(ctx context.Context, tx database.AssetFacadeInterface, machine, resource *model.Asset) (*LinkResult, error) {
	if machine.ResourceCounterpartID != nil && *machine.ResourceCounterpartID == resource.AccessionID {
		return &LinkResult{Machine: machine, Resource: resource}, nil
	}
	if resource.MachineCounterpartID != nil && *resource.MachineCounterpartID != machine.AccessionID {
		return nil, &InvalidLinkOperationError{Reason: fmt.Sprintf("resource %s is already linked to machine %s", resource.AccessionID, *resource.MachineCounterpartID)}
	}

	if machine.ResourceCounterpartID != nil {
		old, err := tx.GetForUpdate(ctx, *machine.ResourceCounterpartID)
		if err != nil {
			return nil, err
		}
		if old != nil {
			s.restoreResource(ctx, tx, old)
			if err := tx.Update(ctx, old); err != nil {
				return nil, err
			}
		}
	}

	props := resource.Properties.Clone()
	if props == nil {
		props = model.JSONBag{}
	}
	props[propertyKeyCounterpart] = map[string]interface{}{
		stampOriginalName: resource.Name,
		stampOriginalType: string(resource.AssetType),
		stampLinkedAt:     s.clock.Now().Format(time.RFC3339Nano),
	}
	resource.Properties = props
	resource.AssetType = constant.AssetTypeMachineResource
	resource.MachineCounterpartID = &machine.AccessionID
	resource.Name = machine.Name

	machine.AssetType = constant.AssetTypeMachineResource
	machine.ResourceCounterpartID = &resource.AccessionID

	if err := tx.Update(ctx, machine); err != nil {
		return nil, err
	}
	if err := tx.Update(ctx, resource); err != nil {
		return nil, err
	}
	log.Infof("linked machine %s with resource %s as %q", machine.AccessionID, resource.AccessionID, machine.Name)
	return &LinkResult{Machine: machine, Resource: resource}, nil
}

func (s *Service) unlinkMachine(ctx context.Context, tx database.AssetFacadeInterface, machine *model.Asset) (*LinkResult, error) {
	if machine.ResourceCounterpartID == nil {
		result := &LinkResult{Machine: machine}
		if machine.AssetType == constant.AssetTypeMachineResource {
			machine.AssetType = constant.AssetTypeMachine
			if err := tx.Update(ctx, machine); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	resource, err := tx.GetForUpdate(ctx, *machine.ResourceCounterpartID)
	if err != nil {
		return nil, err
	}
	machine.ResourceCounterpartID = nil
	machine.AssetType = constant.AssetTypeMachine
	if err := tx.Update(ctx, machine); err != nil {
		return nil, err
	}
	if resource == nil {
		return &LinkResult{Machine: machine}, nil
	}

	s.restoreResource(ctx, tx, resource)
	if err := tx.Update(ctx, resource); err != nil {
		return nil, err
	}
	log.Infof("unlinked machine %s from resource %s", machine.AccessionID, resource.AccessionID)
	return &LinkResult{Machine: machine, Resource: resource}, nil
}

// restoreResource reverts a resource half to standalone form: RESOURCE type,
// cleared back-reference, pre-link name when it is still free, otherwise a
// name suffixed with the accession id prefix to dodge the collision.
func (s *Service) restoreResource(ctx context.Context, tx database.AssetFacadeInterface, resource *model.Asset) {
	original := ""
	if stamp, ok := resource.Properties.GetBag(propertyKeyCounterpart); ok {
		original = stamp.GetString(stampOriginalName)
	}

	resource.AssetType = constant.AssetTypeResource
	resource.MachineCounterpartID = nil

	name := original
	if name == "" || name == resource.Name || s.nameTaken(ctx, tx, name, resource.AccessionID) {
		if s.nameTaken(ctx, tx, resource.Name, resource.AccessionID) {
			name = resource.Name + "_" + resource.AccessionID[:8]
		} else {
			name = resource.Name
		}
	}
	resource.Name = name

	if resource.Properties != nil {
		props := resource.Properties.Clone()
		delete(props, propertyKeyCounterpart)
		resource.Properties = props
	}
}

func (s *Service) nameTaken(ctx context.Context, tx database.AssetFacadeInterface, name, selfID string) bool {
	rows, err := tx.ListByName(ctx, name)
	if err != nil {
		// Treat a read failure as a collision; the fallback name is safe.
		return true
	}
	for _, row := range rows {
		if row.AccessionID != selfID {
			return true
		}
	}
	return false
}
