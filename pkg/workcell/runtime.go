// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package workcell is the boundary between durable asset records and live
// instrument state. The core consumes the Runtime interface; deployments
// choose the simulated in-memory implementation or the remote driver
// gateway client.
package workcell

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
)

// RuntimeObject is a live handle to an initialized machine or resource.
type RuntimeObject interface {
	FQN() string
	AssetAccessionID() string
}

// RuntimeInitError reports a machine that failed to come up. Not retryable:
// the acquirer rolls the reservation back instead of polling.
type RuntimeInitError struct {
	AssetName string
	Err       error
}

func (e *RuntimeInitError) Error() string {
	return fmt.Sprintf("runtime init of %s failed: %v", e.AssetName, e.Err)
}

func (e *RuntimeInitError) Unwrap() error {
	return e.Err
}

// IsRuntimeInitError reports whether err is a machine bring-up failure.
func IsRuntimeInitError(err error) bool {
	_, ok := err.(*RuntimeInitError)
	return ok
}

// Runtime is the live workcell surface the executor and acquirer drive.
type Runtime interface {
	InitializeMachine(ctx context.Context, machine *model.Asset) (RuntimeObject, error)
	ShutdownMachine(ctx context.Context, machine *model.Asset) error
	CreateOrGetResource(ctx context.Context, resource *model.Asset) (RuntimeObject, error)
	AssignResourceToDeck(ctx context.Context, resource, deck *model.Asset, positionName string) error
	ClearResourceInstance(ctx context.Context, resource *model.Asset) error
	ClearDeckPosition(ctx context.Context, deck *model.Asset, positionName string) error
}

// Constructor builds the runtime handle for one asset class.
type Constructor func(asset *model.Asset) (RuntimeObject, error)

// Registry maps asset class FQNs to constructors. Populated at startup
// alongside catalog seeding; lookups at acquire time are read-only.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: map[string]Constructor{}}
}

// Register binds fqn to a constructor, replacing any previous binding.
func (r *Registry) Register(fqn string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[fqn] = c
}

// Lookup returns the constructor for fqn.
func (r *Registry) Lookup(fqn string) (Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.constructors[fqn]
	return c, ok
}

// Known returns the registered FQNs, sorted.
func (r *Registry) Known() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fqns := make([]string, 0, len(r.constructors))
	for fqn := range r.constructors {
		fqns = append(fqns, fqn)
	}
	sort.Strings(fqns)
	return fqns
}
