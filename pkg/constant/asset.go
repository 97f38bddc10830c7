// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package constant

// AssetType discriminates the polymorphic asset table. MACHINE_RESOURCE marks
// an entity that plays both roles at once (a heater-shaker holding a plate).
type AssetType string

const (
	AssetTypeMachine         AssetType = "MACHINE"
	AssetTypeResource        AssetType = "RESOURCE"
	AssetTypeDeck            AssetType = "DECK"
	AssetTypeMachineResource AssetType = "MACHINE_RESOURCE"
)

func AssetTypeValues() []AssetType {
	return []AssetType{AssetTypeMachine, AssetTypeResource, AssetTypeDeck, AssetTypeMachineResource}
}

func (t AssetType) IsValid() bool {
	switch t {
	case AssetTypeMachine, AssetTypeResource, AssetTypeDeck, AssetTypeMachineResource:
		return true
	}
	return false
}

// MachineStatus is the instrument lifecycle.
type MachineStatus string

const (
	MachineStatusAvailable    MachineStatus = "AVAILABLE"
	MachineStatusInUse        MachineStatus = "IN_USE"
	MachineStatusError        MachineStatus = "ERROR"
	MachineStatusOffline      MachineStatus = "OFFLINE"
	MachineStatusInitializing MachineStatus = "INITIALIZING"
	MachineStatusMaintenance  MachineStatus = "MAINTENANCE"
)

func MachineStatusValues() []MachineStatus {
	return []MachineStatus{
		MachineStatusAvailable, MachineStatusInUse, MachineStatusError,
		MachineStatusOffline, MachineStatusInitializing, MachineStatusMaintenance,
	}
}

func (s MachineStatus) IsValid() bool {
	for _, v := range MachineStatusValues() {
		if s == v {
			return true
		}
	}
	return false
}

// ResourceStatus is the labware/inventory lifecycle. Decks share this space.
type ResourceStatus string

const (
	ResourceStatusAvailableInStorage ResourceStatus = "AVAILABLE_IN_STORAGE"
	ResourceStatusAvailableOnDeck    ResourceStatus = "AVAILABLE_ON_DECK"
	ResourceStatusInUse              ResourceStatus = "IN_USE"
	ResourceStatusEmpty              ResourceStatus = "EMPTY"
	ResourceStatusPartiallyFilled    ResourceStatus = "PARTIALLY_FILLED"
	ResourceStatusFull               ResourceStatus = "FULL"
	ResourceStatusNeedsRefill        ResourceStatus = "NEEDS_REFILL"
	ResourceStatusToBeDisposed       ResourceStatus = "TO_BE_DISPOSED"
	ResourceStatusDisposed           ResourceStatus = "DISPOSED"
	ResourceStatusToBeCleaned        ResourceStatus = "TO_BE_CLEANED"
	ResourceStatusCleaned            ResourceStatus = "CLEANED"
	ResourceStatusError              ResourceStatus = "ERROR"
	ResourceStatusUnknown            ResourceStatus = "UNKNOWN"
)

func ResourceStatusValues() []ResourceStatus {
	return []ResourceStatus{
		ResourceStatusAvailableInStorage, ResourceStatusAvailableOnDeck,
		ResourceStatusInUse, ResourceStatusEmpty, ResourceStatusPartiallyFilled,
		ResourceStatusFull, ResourceStatusNeedsRefill, ResourceStatusToBeDisposed,
		ResourceStatusDisposed, ResourceStatusToBeCleaned, ResourceStatusCleaned,
		ResourceStatusError, ResourceStatusUnknown,
	}
}

func (s ResourceStatus) IsValid() bool {
	for _, v := range ResourceStatusValues() {
		if s == v {
			return true
		}
	}
	return false
}

// IsAcquirable reports whether a resource in this status may be handed to a
// protocol run. On-deck resources are acquirable in place.
func (s ResourceStatus) IsAcquirable() bool {
	return s == ResourceStatusAvailableInStorage || s == ResourceStatusAvailableOnDeck
}

// WorkcellStatus is the lifecycle of a workcell grouping record.
type WorkcellStatus string

const (
	WorkcellStatusActive      WorkcellStatus = "ACTIVE"
	WorkcellStatusInactive    WorkcellStatus = "INACTIVE"
	WorkcellStatusMaintenance WorkcellStatus = "MAINTENANCE"
)

func (s WorkcellStatus) IsValid() bool {
	switch s {
	case WorkcellStatusActive, WorkcellStatusInactive, WorkcellStatusMaintenance:
		return true
	}
	return false
}
