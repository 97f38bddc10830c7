// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package broadcast carries deck-change notifications from the runtime layer
// to whoever renders live workcell state. The core only depends on the
// Notifier interface; deployments plug in their own fan-out.
package broadcast

import (
	"context"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
)

// Deck update kinds.
const (
	UpdateLabwareAdded   = "labware_added"
	UpdateLabwareRemoved = "labware_removed"
	UpdateLabwareUpdated = "labware_updated"
	UpdateSlotCleared    = "slot_cleared"
)

// LabwareInfo describes the labware a deck update refers to.
type LabwareInfo struct {
	ResourceID   string `json:"resource_accession_id"`
	Name         string `json:"name"`
	DefinitionID string `json:"resource_definition_id,omitempty"`
}

// DeckUpdateMessage is one deck state change event.
type DeckUpdateMessage struct {
	DeckID     string       `json:"deck_accession_id"`
	UpdateType string       `json:"update_type"`
	SlotName   string       `json:"slot_name,omitempty"`
	Labware    *LabwareInfo `json:"labware,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}

// Notifier delivers deck updates. Implementations must not block on slow
// consumers; dropping is preferable to stalling the runtime.
type Notifier interface {
	NotifyDeckUpdate(ctx context.Context, msg *DeckUpdateMessage)
}

// LogNotifier writes updates to the structured log. The default sink when no
// streaming layer is wired.
type LogNotifier struct{}

func (LogNotifier) NotifyDeckUpdate(_ context.Context, msg *DeckUpdateMessage) {
	if msg.Labware != nil {
		log.Infof("deck %s: %s %s at %q", msg.DeckID, msg.UpdateType, msg.Labware.Name, msg.SlotName)
		return
	}
	log.Infof("deck %s: %s at %q", msg.DeckID, msg.UpdateType, msg.SlotName)
}
