// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package catalog is the definition resolution service used by the asset
// acquirer and the entity linker. It fronts the definition facades with a
// short-TTL read-through cache; lookups are FQN- or name-keyed and return
// (nil, nil) for unknown keys so callers decide whether absence is an error.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/patrickmn/go-cache"
)

// DefinitionNotFoundError reports a catalog miss to callers for whom the
// definition is mandatory.
type DefinitionNotFoundError struct {
	Kind string
	Key  string
}

func (e *DefinitionNotFoundError) Error() string {
	return fmt.Sprintf("%s definition %q not found in catalog", e.Kind, e.Key)
}

// IsDefinitionNotFound reports whether err is a catalog miss.
func IsDefinitionNotFound(err error) bool {
	_, ok := err.(*DefinitionNotFoundError)
	return ok
}

// Service resolves definitions for the acquirer and the linker.
type Service struct {
	defs      database.DefinitionFacadeInterface
	protocols database.ProtocolDefinitionFacadeInterface

	// cache is nil when caching is disabled.
	cache *cache.Cache
}

// NewService creates a catalog service. cacheTTL <= 0 disables the cache.
func NewService(defs database.DefinitionFacadeInterface, protocols database.ProtocolDefinitionFacadeInterface, cacheTTL time.Duration) *Service {
	var c *cache.Cache
	if cacheTTL > 0 {
		c = cache.New(cacheTTL, cacheTTL*2)
	}
	return &Service{defs: defs, protocols: protocols, cache: c}
}

func (s *Service) cached(key string) (interface{}, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *Service) store(key string, v interface{}) {
	if s.cache != nil {
		s.cache.Set(key, v, cache.DefaultExpiration)
	}
}

func (s *Service) evict(keys ...string) {
	if s.cache == nil {
		return
	}
	for _, k := range keys {
		s.cache.Delete(k)
	}
}

// InvalidateAll drops every cached entry.
func (s *Service) InvalidateAll() {
	if s.cache != nil {
		s.cache.Flush()
	}
}

// ResourceDefinitionByFQN resolves a labware type. nil when unknown.
func (s *Service) ResourceDefinitionByFQN(ctx context.Context, fqn string) (*model.ResourceDefinition, error) {
	key := "resource_def:fqn:" + fqn
	if v, ok := s.cached(key); ok {
		return v.(*model.ResourceDefinition), nil
	}
	def, err := s.defs.GetResourceDefinitionByFQN(ctx, fqn)
	if err != nil || def == nil {
		return nil, err
	}
	s.store(key, def)
	return def, nil
}

// ResourceDefinitionByName resolves a labware type by its human name.
func (s *Service) ResourceDefinitionByName(ctx context.Context, name string) (*model.ResourceDefinition, error) {
	key := "resource_def:name:" + name
	if v, ok := s.cached(key); ok {
		return v.(*model.ResourceDefinition), nil
	}
	def, err := s.defs.GetResourceDefinitionByName(ctx, name)
	if err != nil || def == nil {
		return nil, err
	}
	s.store(key, def)
	return def, nil
}

// MachineDefinitionByFQN resolves an instrument type. nil when unknown.
func (s *Service) MachineDefinitionByFQN(ctx context.Context, fqn string) (*model.MachineDefinition, error) {
	key := "machine_def:fqn:" + fqn
	if v, ok := s.cached(key); ok {
		return v.(*model.MachineDefinition), nil
	}
	def, err := s.defs.GetMachineDefinitionByFQN(ctx, fqn)
	if err != nil || def == nil {
		return nil, err
	}
	s.store(key, def)
	return def, nil
}

// DeckDefinitionByFQN resolves a deck layout type. nil when unknown.
func (s *Service) DeckDefinitionByFQN(ctx context.Context, fqn string) (*model.DeckDefinition, error) {
	key := "deck_def:fqn:" + fqn
	if v, ok := s.cached(key); ok {
		return v.(*model.DeckDefinition), nil
	}
	def, err := s.defs.GetDeckDefinitionByFQN(ctx, fqn)
	if err != nil || def == nil {
		return nil, err
	}
	s.store(key, def)
	return def, nil
}

// DeckPositions lists the named slots of a deck type, name ordered.
func (s *Service) DeckPositions(ctx context.Context, deckTypeID string) ([]*model.DeckPositionDefinition, error) {
	return s.defs.ListDeckPositionDefinitions(ctx, deckTypeID)
}

// ProtocolDefinitionByFQN resolves the newest non-deprecated protocol entry.
func (s *Service) ProtocolDefinitionByFQN(ctx context.Context, fqn string) (*model.FunctionProtocolDefinition, error) {
	key := "protocol_def:fqn:" + fqn
	if v, ok := s.cached(key); ok {
		return v.(*model.FunctionProtocolDefinition), nil
	}
	def, err := s.protocols.GetByFQN(ctx, fqn)
	if err != nil || def == nil {
		return nil, err
	}
	s.store(key, def)
	return def, nil
}

// UpsertResourceDefinition writes through the facade and evicts stale keys.
func (s *Service) UpsertResourceDefinition(ctx context.Context, def *model.ResourceDefinition) error {
	if err := s.defs.UpsertResourceDefinitionByFQN(ctx, def); err != nil {
		return err
	}
	s.evict("resource_def:fqn:"+def.FQN, "resource_def:name:"+def.Name)
	return nil
}

// UpsertMachineDefinition writes through the facade and evicts stale keys.
func (s *Service) UpsertMachineDefinition(ctx context.Context, def *model.MachineDefinition) error {
	if err := s.defs.UpsertMachineDefinitionByFQN(ctx, def); err != nil {
		return err
	}
	s.evict("machine_def:fqn:" + def.FQN)
	return nil
}

// UpsertDeckDefinition writes the deck type and replaces its position set
// when positions is non-nil.
func (s *Service) UpsertDeckDefinition(ctx context.Context, def *model.DeckDefinition, positions []*model.DeckPositionDefinition) error {
	if err := s.defs.UpsertDeckDefinitionByFQN(ctx, def); err != nil {
		return err
	}
	if positions != nil {
		if err := s.defs.DeleteDeckPositionDefinitions(ctx, def.AccessionID); err != nil {
			return err
		}
		for _, p := range positions {
			p.DeckTypeID = def.AccessionID
		}
		if err := s.defs.CreateDeckPositionDefinitions(ctx, positions); err != nil {
			return err
		}
	}
	s.evict("deck_def:fqn:" + def.FQN)
	return nil
}

// LooksLikeDeckFQN reports whether the final segment of an FQN names a deck
// class. The acquirer uses it to fail fast on deck types that were never
// catalogued instead of treating them as ad hoc machines.
func LooksLikeDeckFQN(fqn string) bool {
	seg := fqn
	if i := strings.LastIndex(fqn, "."); i >= 0 {
		seg = fqn[i+1:]
	}
	return strings.Contains(strings.ToLower(seg), "deck")
}
