// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package workcell

import (
	"context"
	"fmt"
	"sync"

	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/broadcast"
	"github.com/maraxen/pylabpraxis-sub002/pkg/catalog"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
)

// simObject is the default handle when no constructor is registered for an
// asset's FQN.
type simObject struct {
	fqn     string
	assetID string
}

func (o *simObject) FQN() string              { return o.fqn }
func (o *simObject) AssetAccessionID() string { return o.assetID }

// SimulatedRuntime keeps all live state in memory. Deterministic, used in
// tests and simulation deployments.
type SimulatedRuntime struct {
	assets   database.AssetFacadeInterface
	catalog  *catalog.Service
	registry *Registry
	notifier broadcast.Notifier
	clock    accession.Clock

	mu      sync.Mutex
	objects map[string]RuntimeObject
}

// NewSimulatedRuntime creates a simulated runtime. registry and notifier may
// be nil; machines then get default handles and deck updates go to the log.
func NewSimulatedRuntime(assets database.AssetFacadeInterface, cat *catalog.Service, registry *Registry, notifier broadcast.Notifier, clock accession.Clock) *SimulatedRuntime {
	if registry == nil {
		registry = NewRegistry()
	}
	if notifier == nil {
		notifier = broadcast.LogNotifier{}
	}
	if clock == nil {
		clock = accession.SystemClock{}
	}
	return &SimulatedRuntime{
		assets:   assets,
		catalog:  cat,
		registry: registry,
		notifier: notifier,
		clock:    clock,
		objects:  map[string]RuntimeObject{},
	}
}

func (r *SimulatedRuntime) construct(asset *model.Asset) (RuntimeObject, error) {
	fqn := ""
	if asset.FQN != nil {
		fqn = *asset.FQN
	}
	if c, ok := r.registry.Lookup(fqn); ok {
		return c(asset)
	}
	return &simObject{fqn: fqn, assetID: asset.AccessionID}, nil
}

// InitializeMachine brings a machine up and auto-assigns a deck when the
// machine definition declares one and the machine state lacks it.
func (r *SimulatedRuntime) InitializeMachine(ctx context.Context, machine *model.Asset) (RuntimeObject, error) {
	obj, err := r.construct(machine)
	if err != nil {
		return nil, &RuntimeInitError{AssetName: machine.Name, Err: err}
	}

	if err := r.ensureDeck(ctx, machine); err != nil {
		return nil, &RuntimeInitError{AssetName: machine.Name, Err: err}
	}

	r.mu.Lock()
	r.objects[machine.AccessionID] = obj
	r.mu.Unlock()
	return obj, nil
}

// ensureDeck creates and attaches the machine's deck asset if its definition
// has one and plr_state does not reference one yet.
func (r *SimulatedRuntime) ensureDeck(ctx context.Context, machine *model.Asset) error {
	if r.catalog == nil || machine.FQN == nil {
		return nil
	}
	def, err := r.catalog.MachineDefinitionByFQN(ctx, *machine.FQN)
	if err != nil {
		return err
	}
	if def == nil || !def.HasDeck {
		return nil
	}
	if machine.PLRState.GetString("deck") != "" {
		return nil
	}

	status := constant.ResourceStatusAvailableOnDeck
	deck := &model.Asset{
		AccessionID:     accession.NewID(),
		AssetType:       constant.AssetTypeDeck,
		Name:            machine.Name + "_deck",
		ResourceStatus:  &status,
		ParentMachineID: &machine.AccessionID,
		DeckTypeID:      def.DeckDefinitionID,
	}
	if err := r.assets.Create(ctx, deck); err != nil {
		return err
	}

	state := machine.PLRState.Clone()
	if state == nil {
		state = model.JSONBag{}
	}
	state["deck"] = deck.AccessionID
	machine.PLRState = state
	if err := r.assets.Update(ctx, machine); err != nil {
		return err
	}
	log.Infof("auto-assigned deck %s to machine %s", deck.Name, machine.Name)
	return nil
}

func (r *SimulatedRuntime) ShutdownMachine(_ context.Context, machine *model.Asset) error {
	r.mu.Lock()
	delete(r.objects, machine.AccessionID)
	r.mu.Unlock()
	return nil
}

func (r *SimulatedRuntime) CreateOrGetResource(_ context.Context, resource *model.Asset) (RuntimeObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if obj, ok := r.objects[resource.AccessionID]; ok {
		return obj, nil
	}
	obj, err := r.construct(resource)
	if err != nil {
		return nil, err
	}
	r.objects[resource.AccessionID] = obj
	return obj, nil
}

func (r *SimulatedRuntime) AssignResourceToDeck(ctx context.Context, resource, deck *model.Asset, positionName string) error {
	resource.DeckID = &deck.AccessionID
	resource.CurrentDeckPositionName = &positionName
	if err := r.assets.Update(ctx, resource); err != nil {
		return err
	}
	r.notifier.NotifyDeckUpdate(ctx, &broadcast.DeckUpdateMessage{
		DeckID:     deck.AccessionID,
		UpdateType: broadcast.UpdateLabwareAdded,
		SlotName:   positionName,
		Labware: &broadcast.LabwareInfo{
			ResourceID: resource.AccessionID,
			Name:       resource.Name,
		},
		Timestamp: r.clock.Now(),
	})
	return nil
}

func (r *SimulatedRuntime) ClearResourceInstance(ctx context.Context, resource *model.Asset) error {
	r.mu.Lock()
	delete(r.objects, resource.AccessionID)
	r.mu.Unlock()

	if resource.DeckID == nil && resource.CurrentDeckPositionName == nil {
		return nil
	}
	deckID := ""
	position := ""
	if resource.DeckID != nil {
		deckID = *resource.DeckID
	}
	if resource.CurrentDeckPositionName != nil {
		position = *resource.CurrentDeckPositionName
	}
	resource.DeckID = nil
	resource.CurrentDeckPositionName = nil
	if err := r.assets.Update(ctx, resource); err != nil {
		return err
	}
	r.notifier.NotifyDeckUpdate(ctx, &broadcast.DeckUpdateMessage{
		DeckID:     deckID,
		UpdateType: broadcast.UpdateLabwareRemoved,
		SlotName:   position,
		Labware: &broadcast.LabwareInfo{
			ResourceID: resource.AccessionID,
			Name:       resource.Name,
		},
		Timestamp: r.clock.Now(),
	})
	return nil
}

func (r *SimulatedRuntime) ClearDeckPosition(ctx context.Context, deck *model.Asset, positionName string) error {
	occupants, err := r.assets.List(ctx, &database.AssetFilter{DeckID: &deck.AccessionID})
	if err != nil {
		return err
	}
	for _, occupant := range occupants {
		if occupant.CurrentDeckPositionName == nil || *occupant.CurrentDeckPositionName != positionName {
			continue
		}
		occupant.DeckID = nil
		occupant.CurrentDeckPositionName = nil
		if err := r.assets.Update(ctx, occupant); err != nil {
			return err
		}
	}
	r.notifier.NotifyDeckUpdate(ctx, &broadcast.DeckUpdateMessage{
		DeckID:     deck.AccessionID,
		UpdateType: broadcast.UpdateSlotCleared,
		SlotName:   positionName,
		Timestamp:  r.clock.Now(),
	})
	return nil
}

// Registry exposes the constructor registry so callers can register
// machine classes after construction.
func (r *SimulatedRuntime) Registry() *Registry { return r.registry }

// Live reports whether the asset currently has a runtime handle. Test and
// health introspection.
func (r *SimulatedRuntime) Live(assetID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.objects[assetID]
	return ok
}

var _ Runtime = (*SimulatedRuntime)(nil)

// FailingConstructor returns a constructor that always fails. Used to model
// hardware that cannot come up in simulations and tests.
func FailingConstructor(reason string) Constructor {
	return func(asset *model.Asset) (RuntimeObject, error) {
		return nil, fmt.Errorf("%s: %s", asset.Name, reason)
	}
}
