// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package model

import (
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
)

const TableNameAsset = "asset"

// Asset is the single physical-asset table. asset_type tags the variant;
// the machine_*, resource_* and deck_* column groups are null for rows of
// other variants. A linked machine/resource counterpart pair is two
// MACHINE_RESOURCE rows cross-referencing each other through the counterpart
// id columns; linked rows mirror one name, so the name uniqueness index is
// partial over standalone rows only.
type Asset struct {
	AccessionID string             `gorm:"column:accession_id;primaryKey;size:36" json:"accession_id"`
	AssetType   constant.AssetType `gorm:"column:asset_type;size:32;not null;index" json:"asset_type"`
	Name        string             `gorm:"column:name;size:255;not null;index;uniqueIndex:uidx_asset_standalone_name,where:machine_counterpart_id IS NULL AND resource_counterpart_id IS NULL" json:"name"`
	FQN         *string            `gorm:"column:fqn;size:512;index" json:"fqn,omitempty"`
	Location    *string            `gorm:"column:location;size:512" json:"location,omitempty"`

	PLRState      JSONBag `gorm:"column:plr_state;type:jsonb" json:"plr_state,omitempty"`
	PLRDefinition JSONBag `gorm:"column:plr_definition;type:jsonb" json:"plr_definition,omitempty"`
	Properties    JSONBag `gorm:"column:properties_json;type:jsonb" json:"properties_json,omitempty"`

	// Machine role columns. Populated for MACHINE and MACHINE_RESOURCE.
	MachineStatus        *constant.MachineStatus `gorm:"column:machine_status;size:32;index" json:"machine_status,omitempty"`
	StatusDetails        *string                 `gorm:"column:status_details;type:text" json:"status_details,omitempty"`
	WorkcellID           *string                 `gorm:"column:workcell_id;size:36;index" json:"workcell_id,omitempty"`
	ResourceCounterpartID *string                `gorm:"column:resource_counterpart_id;size:36;index" json:"resource_counterpart_id,omitempty"`
	Manufacturer         *string                 `gorm:"column:manufacturer;size:255" json:"manufacturer,omitempty"`
	Model                *string                 `gorm:"column:model;size:255" json:"model,omitempty"`
	SerialNumber         *string                 `gorm:"column:serial_number;size:255;uniqueIndex" json:"serial_number,omitempty"`
	ConnectionInfo       JSONBag                 `gorm:"column:connection_info;type:jsonb" json:"connection_info,omitempty"`
	IsSimulationOverride *bool                   `gorm:"column:is_simulation_override" json:"is_simulation_override,omitempty"`
	CurrentProtocolRunID *string                 `gorm:"column:current_protocol_run_id;size:36;index" json:"current_protocol_run_id,omitempty"`
	LastSeenOnline       *time.Time              `gorm:"column:last_seen_online" json:"last_seen_online,omitempty"`
	MachineCategory      *string                 `gorm:"column:machine_category;size:128;index" json:"machine_category,omitempty"`

	// Resource role columns. Populated for RESOURCE, MACHINE_RESOURCE and DECK.
	ResourceStatus              *constant.ResourceStatus `gorm:"column:resource_status;size:40;index" json:"resource_status,omitempty"`
	ResourceDefinitionID        *string                  `gorm:"column:resource_definition_id;size:36;index" json:"resource_definition_id,omitempty"`
	ParentID                    *string                  `gorm:"column:parent_id;size:36;index" json:"parent_id,omitempty"`
	DeckID                      *string                  `gorm:"column:deck_id;size:36;index" json:"deck_id,omitempty"`
	MachineCounterpartID        *string                  `gorm:"column:machine_counterpart_id;size:36;index" json:"machine_counterpart_id,omitempty"`
	LotNumber                   *string                  `gorm:"column:lot_number;size:255" json:"lot_number,omitempty"`
	PhysicalLocationDescription *string                  `gorm:"column:physical_location_description;type:text" json:"physical_location_description,omitempty"`
	CurrentDeckPositionName     *string                  `gorm:"column:current_deck_position_name;size:255" json:"current_deck_position_name,omitempty"`
	DateAddedToInventory        *time.Time               `gorm:"column:date_added_to_inventory" json:"date_added_to_inventory,omitempty"`
	IsPermanentFixture          bool                     `gorm:"column:is_permanent_fixture;default:false" json:"is_permanent_fixture"`

	// Deck role columns. Populated for DECK only.
	DeckTypeID      *string `gorm:"column:deck_type_id;size:36;index" json:"deck_type_id,omitempty"`
	ParentMachineID *string `gorm:"column:parent_machine_id;size:36;index" json:"parent_machine_id,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*Asset) TableName() string {
	return TableNameAsset
}

// HasMachineRole reports whether the machine column group applies.
func (a *Asset) HasMachineRole() bool {
	return a.AssetType == constant.AssetTypeMachine || a.AssetType == constant.AssetTypeMachineResource
}

// CounterpartID returns the accession id of the linked counterpart row.
// Nil for standalone assets.
func (a *Asset) CounterpartID() *string {
	if a.ResourceCounterpartID != nil {
		return a.ResourceCounterpartID
	}
	return a.MachineCounterpartID
}

// HasResourceRole reports whether the resource column group applies.
func (a *Asset) HasResourceRole() bool {
	return a.AssetType == constant.AssetTypeResource ||
		a.AssetType == constant.AssetTypeMachineResource ||
		a.AssetType == constant.AssetTypeDeck
}

const TableNameWorkcell = "workcell"

// Workcell groups machines into a physical cell.
type Workcell struct {
	AccessionID      string                  `gorm:"column:accession_id;primaryKey;size:36" json:"accession_id"`
	Name             string                  `gorm:"column:name;size:255;not null;uniqueIndex" json:"name"`
	Description      *string                 `gorm:"column:description;type:text" json:"description,omitempty"`
	Status           constant.WorkcellStatus `gorm:"column:status;size:32;not null" json:"status"`
	PhysicalLocation *string                 `gorm:"column:physical_location;size:512" json:"physical_location,omitempty"`
	Properties       JSONBag                 `gorm:"column:properties_json;type:jsonb" json:"properties_json,omitempty"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*Workcell) TableName() string {
	return TableNameWorkcell
}
