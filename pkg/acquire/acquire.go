// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package acquire matches protocol asset requirements to physical inventory.
// It resolves an FQN through the catalog, picks a candidate deterministically,
// takes the reservation lock, and only then touches the runtime; a runtime
// bring-up failure rolls the reservation back.
package acquire

import (
	"context"
	"fmt"
	"reflect"

	"github.com/maraxen/pylabpraxis-sub002/pkg/catalog"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/maraxen/pylabpraxis-sub002/pkg/lock"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
	"github.com/maraxen/pylabpraxis-sub002/pkg/workcell"
)

// Asset kinds reported on an acquisition.
const (
	KindMachine  = "machine"
	KindResource = "resource"
)

// AssetAcquisitionError reports that no candidate could be reserved. The
// orchestrator may retry; inventory changes as other runs finish.
type AssetAcquisitionError struct {
	Requirement string
	Reason      string
}

func (e *AssetAcquisitionError) Error() string {
	return fmt.Sprintf("acquire %q: %s", e.Requirement, e.Reason)
}

// Retryable marks the error as safe to retry.
func (e *AssetAcquisitionError) Retryable() bool { return true }

// IsAssetAcquisition reports whether err is an acquisition failure.
func IsAssetAcquisition(err error) bool {
	_, ok := err.(*AssetAcquisitionError)
	return ok
}

// AssetReleaseError reports a release that could not complete cleanly.
type AssetReleaseError struct {
	AssetName string
	Err       error
}

func (e *AssetReleaseError) Error() string {
	return fmt.Sprintf("release %s: %v", e.AssetName, e.Err)
}

func (e *AssetReleaseError) Unwrap() error { return e.Err }

// AssetRequirement is one protocol-declared asset need.
type AssetRequirement struct {
	NameInProtocol string
	FQN            string
	// Optional requirements that cannot be satisfied return a nil
	// acquisition instead of an error.
	Optional bool
	// LocationConstraints narrows resource candidates; recognized keys are
	// deck_id and position.
	LocationConstraints map[string]string
	// PropertyConstraints must all match the candidate's properties_json.
	PropertyConstraints model.JSONBag
}

// Acquisition is one reserved asset bound to a run.
type Acquisition struct {
	RuntimeObject  workcell.RuntimeObject
	Asset          *model.Asset
	AssetKind      string
	NameInProtocol string
	ProtocolRunID  string
	ReservationID  string
}

// Service performs acquisition and release.
type Service struct {
	assets  database.AssetFacadeInterface
	catalog *catalog.Service
	locks   *lock.Manager
	runtime workcell.Runtime
}

// NewService creates an acquirer.
func NewService(assets database.AssetFacadeInterface, cat *catalog.Service, locks *lock.Manager, runtime workcell.Runtime) *Service {
	return &Service{assets: assets, catalog: cat, locks: locks, runtime: runtime}
}

// Acquire satisfies one requirement for the run. The FQN dispatches: a known
// resource definition acquires labware, a deck-looking FQN with no catalog
// entry fails fast, anything else is treated as a machine class.
func (s *Service) Acquire(ctx context.Context, runID string, req *AssetRequirement) (*Acquisition, error) {
	def, err := s.catalog.ResourceDefinitionByFQN(ctx, req.FQN)
	if err != nil {
		return nil, err
	}
	if def == nil {
		def, err = s.catalog.ResourceDefinitionByName(ctx, req.FQN)
		if err != nil {
			return nil, err
		}
	}

	var acq *Acquisition
	switch {
	case def != nil:
		acq, err = s.acquireResource(ctx, runID, req, def)
	case catalog.LooksLikeDeckFQN(req.FQN):
		err = &AssetAcquisitionError{
			Requirement: req.NameInProtocol,
			Reason:      fmt.Sprintf("%q appears to be a Deck but was not found in catalog; decks must be pre-catalogued", req.FQN),
		}
	default:
		acq, err = s.acquireMachine(ctx, runID, req)
	}

	if err != nil && req.Optional && IsAssetAcquisition(err) {
		log.Infof("optional requirement %q unsatisfied: %v", req.NameInProtocol, err)
		return nil, nil
	}
	return acq, err
}

func (s *Service) acquireMachine(ctx context.Context, runID string, req *AssetRequirement) (*Acquisition, error) {
	candidates, err := s.assets.List(ctx, &database.AssetFilter{
		AssetTypes: []constant.AssetType{constant.AssetTypeMachine, constant.AssetTypeMachineResource},
		FQN:        &req.FQN,
	})
	if err != nil {
		return nil, err
	}

	for _, candidate := range orderCandidates(candidates, runID) {
		if !eligibleMachine(candidate, runID) {
			continue
		}
		lck := lock.NewAssetLock(constant.AssetTypeMachine, candidate.Name, runID)
		ok, err := s.locks.Acquire(ctx, lck)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		row, err := s.assets.Get(ctx, candidate.AccessionID)
		if err != nil {
			return nil, err
		}
		obj, err := s.runtime.InitializeMachine(ctx, row)
		if err != nil {
			// Lock first, init second; failed init hands the machine back.
			if _, relErr := s.locks.Release(ctx, constant.AssetTypeMachine, row.Name, lck.ReservationID, runID); relErr != nil {
				log.Errorf("rollback of %s after init failure: %v", row.Name, relErr)
			}
			return nil, err
		}
		return &Acquisition{
			RuntimeObject:  obj,
			Asset:          row,
			AssetKind:      KindMachine,
			NameInProtocol: req.NameInProtocol,
			ProtocolRunID:  runID,
			ReservationID:  lck.ReservationID,
		}, nil
	}
	return nil, &AssetAcquisitionError{
		Requirement: req.NameInProtocol,
		Reason:      fmt.Sprintf("no available machine for fqn %q", req.FQN),
	}
}

func (s *Service) acquireResource(ctx context.Context, runID string, req *AssetRequirement, def *model.ResourceDefinition) (*Acquisition, error) {
	candidates, err := s.assets.List(ctx, &database.AssetFilter{
		ResourceDefinitionID: &def.AccessionID,
	})
	if err != nil {
		return nil, err
	}

	for _, candidate := range orderCandidates(candidates, runID) {
		if !eligibleResource(candidate, runID) || !matchesConstraints(candidate, req) {
			continue
		}
		lck := lock.NewAssetLock(constant.AssetTypeResource, candidate.Name, runID)
		ok, err := s.locks.Acquire(ctx, lck)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}

		row, err := s.assets.Get(ctx, candidate.AccessionID)
		if err != nil {
			return nil, err
		}
		obj, err := s.runtime.CreateOrGetResource(ctx, row)
		if err != nil {
			if _, relErr := s.locks.Release(ctx, constant.AssetTypeResource, row.Name, lck.ReservationID, runID); relErr != nil {
				log.Errorf("rollback of %s after materialization failure: %v", row.Name, relErr)
			}
			return nil, err
		}
		return &Acquisition{
			RuntimeObject:  obj,
			Asset:          row,
			AssetKind:      KindResource,
			NameInProtocol: req.NameInProtocol,
			ProtocolRunID:  runID,
			ReservationID:  lck.ReservationID,
		}, nil
	}
	return nil, &AssetAcquisitionError{
		Requirement: req.NameInProtocol,
		Reason:      fmt.Sprintf("no available instance of %q", def.Name),
	}
}

// orderCandidates puts assets already held by the run first (reentrancy),
// keeping the facade's name order within each group.
func orderCandidates(candidates []*model.Asset, runID string) []*model.Asset {
	ordered := make([]*model.Asset, 0, len(candidates))
	for _, c := range candidates {
		if c.CurrentProtocolRunID != nil && *c.CurrentProtocolRunID == runID {
			ordered = append(ordered, c)
		}
	}
	for _, c := range candidates {
		if c.CurrentProtocolRunID == nil || *c.CurrentProtocolRunID != runID {
			ordered = append(ordered, c)
		}
	}
	return ordered
}

func eligibleMachine(candidate *model.Asset, runID string) bool {
	if candidate.CurrentProtocolRunID != nil {
		return *candidate.CurrentProtocolRunID == runID
	}
	return candidate.MachineStatus != nil && *candidate.MachineStatus == constant.MachineStatusAvailable
}

func eligibleResource(candidate *model.Asset, runID string) bool {
	if candidate.CurrentProtocolRunID != nil {
		return *candidate.CurrentProtocolRunID == runID
	}
	return candidate.ResourceStatus != nil && candidate.ResourceStatus.IsAcquirable()
}

func matchesConstraints(candidate *model.Asset, req *AssetRequirement) bool {
	if deckID, ok := req.LocationConstraints["deck_id"]; ok {
		if candidate.DeckID == nil || *candidate.DeckID != deckID {
			return false
		}
	}
	if position, ok := req.LocationConstraints["position"]; ok {
		if candidate.CurrentDeckPositionName == nil || *candidate.CurrentDeckPositionName != position {
			return false
		}
	}
	for key, want := range req.PropertyConstraints {
		if !reflect.DeepEqual(candidate.Properties[key], want) {
			return false
		}
	}
	return true
}

// ReleaseOption customizes one release.
type ReleaseOption func(*releaseOpts)

type releaseOpts struct {
	machineStatus  *constant.MachineStatus
	resourceStatus *constant.ResourceStatus
	skipRuntime    bool
}

// WithFinalMachineStatus sets the machine's post-release status instead of
// restoring the pre-lock one.
func WithFinalMachineStatus(status constant.MachineStatus) ReleaseOption {
	return func(o *releaseOpts) { o.machineStatus = &status }
}

// WithFinalResourceStatus sets the resource's post-release status instead of
// restoring the pre-lock one.
func WithFinalResourceStatus(status constant.ResourceStatus) ReleaseOption {
	return func(o *releaseOpts) { o.resourceStatus = &status }
}

// Release frees one acquisition: final status first, then the lock, then the
// runtime handle. Runtime teardown failures surface as AssetReleaseError
// after the reservation is already gone.
func (s *Service) Release(ctx context.Context, acq *Acquisition, opts ...ReleaseOption) error {
	var o releaseOpts
	for _, opt := range opts {
		opt(&o)
	}

	row, err := s.assets.Get(ctx, acq.Asset.AccessionID)
	if err != nil {
		return err
	}
	if row == nil {
		return &AssetReleaseError{AssetName: acq.Asset.Name, Err: fmt.Errorf("asset no longer exists")}
	}

	if o.machineStatus != nil || o.resourceStatus != nil {
		if o.machineStatus != nil && row.HasMachineRole() {
			row.MachineStatus = o.machineStatus
		}
		if o.resourceStatus != nil && row.HasResourceRole() {
			row.ResourceStatus = o.resourceStatus
		}
		if err := s.assets.Update(ctx, row); err != nil {
			return err
		}
	}

	assetType := constant.AssetTypeMachine
	if acq.AssetKind == KindResource {
		assetType = constant.AssetTypeResource
	}
	if _, err := s.locks.Release(ctx, assetType, row.Name, acq.ReservationID, acq.ProtocolRunID); err != nil {
		return &AssetReleaseError{AssetName: row.Name, Err: err}
	}

	if o.skipRuntime {
		return nil
	}
	if err := s.teardown(ctx, acq.AssetKind, row); err != nil {
		return &AssetReleaseError{AssetName: row.Name, Err: err}
	}
	return nil
}

// ReleaseAll frees everything the run still holds and returns how many
// assets were released. Runtime teardown failures are logged per asset; the
// bulk release never stops early.
func (s *Service) ReleaseAll(ctx context.Context, runID string) (int, error) {
	held, err := s.assets.List(ctx, &database.AssetFilter{CurrentProtocolRunID: &runID})
	if err != nil {
		return 0, err
	}
	for _, row := range held {
		kind := KindResource
		if row.HasMachineRole() {
			kind = KindMachine
		}
		if err := s.teardown(ctx, kind, row); err != nil {
			log.Errorf("teardown of %s during bulk release: %v", row.Name, err)
		}
	}
	return s.locks.ReleaseAllProtocolLocks(ctx, runID)
}

func (s *Service) teardown(ctx context.Context, kind string, row *model.Asset) error {
	if kind == KindMachine {
		return s.runtime.ShutdownMachine(ctx, row)
	}
	return s.runtime.ClearResourceInstance(ctx, row)
}
