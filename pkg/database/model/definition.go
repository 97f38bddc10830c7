// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package model

import "time"

const TableNameResourceDefinition = "resource_definition"

// ResourceDefinition is a catalog entry for a labware type (plate, tip rack,
// trough, tube...). Instances in the asset table point back at it.
type ResourceDefinition struct {
	AccessionID     string   `gorm:"column:accession_id;primaryKey;size:36" json:"accession_id"`
	Name            string   `gorm:"column:name;size:255;not null;uniqueIndex" json:"name"`
	FQN             string   `gorm:"column:fqn;size:512;not null;uniqueIndex" json:"fqn"`
	ResourceType    *string  `gorm:"column:resource_type;size:128;index" json:"resource_type,omitempty"`
	Description     *string  `gorm:"column:description;type:text" json:"description,omitempty"`
	IsConsumable    bool     `gorm:"column:is_consumable;default:false" json:"is_consumable"`
	NominalVolumeUL *float64 `gorm:"column:nominal_volume_ul" json:"nominal_volume_ul,omitempty"`
	Material        *string  `gorm:"column:material;size:128" json:"material,omitempty"`
	Manufacturer    *string  `gorm:"column:manufacturer;size:255" json:"manufacturer,omitempty"`

	SizeXMM *float64 `gorm:"column:size_x_mm" json:"size_x_mm,omitempty"`
	SizeYMM *float64 `gorm:"column:size_y_mm" json:"size_y_mm,omitempty"`
	SizeZMM *float64 `gorm:"column:size_z_mm" json:"size_z_mm,omitempty"`

	PLRDefinitionDetails JSONBag `gorm:"column:plr_definition_details;type:jsonb" json:"plr_definition_details,omitempty"`
	PLRCategory          *string `gorm:"column:plr_category;size:128;index" json:"plr_category,omitempty"`
	Rotation             JSONBag `gorm:"column:rotation_json;type:jsonb" json:"rotation_json,omitempty"`
	Ordering             *string `gorm:"column:ordering;type:text" json:"ordering,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*ResourceDefinition) TableName() string {
	return TableNameResourceDefinition
}

const TableNameMachineDefinition = "machine_definition"

// MachineDefinition is a catalog entry for an instrument type.
type MachineDefinition struct {
	AccessionID     string  `gorm:"column:accession_id;primaryKey;size:36" json:"accession_id"`
	Name            string  `gorm:"column:name;size:255;not null;uniqueIndex" json:"name"`
	FQN             string  `gorm:"column:fqn;size:512;not null;uniqueIndex" json:"fqn"`
	MachineCategory string  `gorm:"column:machine_category;size:128;not null;index" json:"machine_category"`
	Description     *string `gorm:"column:description;type:text" json:"description,omitempty"`

	SizeXMM *float64 `gorm:"column:size_x_mm" json:"size_x_mm,omitempty"`
	SizeYMM *float64 `gorm:"column:size_y_mm" json:"size_y_mm,omitempty"`
	SizeZMM *float64 `gorm:"column:size_z_mm" json:"size_z_mm,omitempty"`

	// HasDeck marks machines that expose a deck; acquiring one auto-creates
	// and assigns the deck asset.
	HasDeck          bool    `gorm:"column:has_deck;default:false" json:"has_deck"`
	DeckDefinitionID *string `gorm:"column:deck_definition_id;size:36;index" json:"deck_definition_id,omitempty"`

	// ResourceDefinitionID links machine types that can also act as labware
	// (e.g. an on-deck shaker) to their resource-side definition.
	ResourceDefinitionID *string `gorm:"column:resource_definition_id;size:36;index" json:"resource_definition_id,omitempty"`

	SetupMethod JSONBag `gorm:"column:setup_method_json;type:jsonb" json:"setup_method_json,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*MachineDefinition) TableName() string {
	return TableNameMachineDefinition
}

const TableNameDeckDefinition = "deck_definition"

// DeckDefinition is a catalog entry for a deck layout type.
type DeckDefinition struct {
	AccessionID string  `gorm:"column:accession_id;primaryKey;size:36" json:"accession_id"`
	Name        string  `gorm:"column:name;size:255;not null;uniqueIndex" json:"name"`
	FQN         string  `gorm:"column:fqn;size:512;not null;uniqueIndex" json:"fqn"`
	Description *string `gorm:"column:description;type:text" json:"description,omitempty"`

	DefaultSizeXMM *float64 `gorm:"column:default_size_x_mm" json:"default_size_x_mm,omitempty"`
	DefaultSizeYMM *float64 `gorm:"column:default_size_y_mm" json:"default_size_y_mm,omitempty"`
	DefaultSizeZMM *float64 `gorm:"column:default_size_z_mm" json:"default_size_z_mm,omitempty"`

	PositioningConfig           JSONBag `gorm:"column:positioning_config_json;type:jsonb" json:"positioning_config_json,omitempty"`
	SerializedConstructorArgs   JSONBag `gorm:"column:serialized_constructor_args_json;type:jsonb" json:"serialized_constructor_args_json,omitempty"`
	SerializedAssignmentMethods JSONBag `gorm:"column:serialized_assignment_methods_json;type:jsonb" json:"serialized_assignment_methods_json,omitempty"`

	Positions []DeckPositionDefinition `gorm:"foreignKey:DeckTypeID;references:AccessionID" json:"positions,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*DeckDefinition) TableName() string {
	return TableNameDeckDefinition
}

const TableNameDeckPositionDefinition = "deck_position_definition"

// DeckPositionDefinition is one named slot of a deck type. Position names are
// unique within their deck type.
type DeckPositionDefinition struct {
	AccessionID string `gorm:"column:accession_id;primaryKey;size:36" json:"accession_id"`
	DeckTypeID  string `gorm:"column:deck_type_id;size:36;not null;uniqueIndex:idx_deck_position_name,priority:1" json:"deck_type_id"`
	Name        string `gorm:"column:name;size:255;not null;uniqueIndex:idx_deck_position_name,priority:2" json:"name"`

	NominalXMM *float64 `gorm:"column:nominal_x_mm" json:"nominal_x_mm,omitempty"`
	NominalYMM *float64 `gorm:"column:nominal_y_mm" json:"nominal_y_mm,omitempty"`
	NominalZMM *float64 `gorm:"column:nominal_z_mm" json:"nominal_z_mm,omitempty"`

	AcceptedResourceCategories StringList `gorm:"column:accepted_resource_categories;type:jsonb" json:"accepted_resource_categories,omitempty"`
	AcceptsTips                bool       `gorm:"column:accepts_tips;default:false" json:"accepts_tips"`
	AcceptsPlates              bool       `gorm:"column:accepts_plates;default:false" json:"accepts_plates"`
	AcceptsTubes               bool       `gorm:"column:accepts_tubes;default:false" json:"accepts_tubes"`

	PositionSpecificDetails JSONBag `gorm:"column:position_specific_details_json;type:jsonb" json:"position_specific_details_json,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*DeckPositionDefinition) TableName() string {
	return TableNameDeckPositionDefinition
}

const TableNameFunctionProtocolDefinition = "function_protocol_definition"

// FunctionProtocolDefinition is a catalog entry for an executable protocol
// function. A definition comes from exactly one source: a tracked repository
// (source_repository_id + commit_hash) or a filesystem snapshot
// (file_system_source_id + source_file_path). The two composite unique
// indexes below cover the two cases; the facade validates exclusivity.
type FunctionProtocolDefinition struct {
	AccessionID string `gorm:"column:accession_id;primaryKey;size:36" json:"accession_id"`
	Name        string `gorm:"column:name;size:255;not null;index;uniqueIndex:idx_fpd_repo_source,priority:1;uniqueIndex:idx_fpd_fs_source,priority:1" json:"name"`
	Version     string `gorm:"column:version;size:64;not null;uniqueIndex:idx_fpd_repo_source,priority:2;uniqueIndex:idx_fpd_fs_source,priority:2" json:"version"`
	FQN         string `gorm:"column:fqn;size:512;not null;index" json:"fqn"`
	Description *string `gorm:"column:description;type:text" json:"description,omitempty"`

	SourceFilePath string `gorm:"column:source_file_path;size:512;not null;uniqueIndex:idx_fpd_fs_source,priority:4" json:"source_file_path"`
	ModuleName     string `gorm:"column:module_name;size:255;not null" json:"module_name"`
	FunctionName   string `gorm:"column:function_name;size:255;not null" json:"function_name"`

	SourceRepositoryID *string `gorm:"column:source_repository_id;size:36;uniqueIndex:idx_fpd_repo_source,priority:3" json:"source_repository_id,omitempty"`
	CommitHash         *string `gorm:"column:commit_hash;size:64;uniqueIndex:idx_fpd_repo_source,priority:4" json:"commit_hash,omitempty"`
	FileSystemSourceID *string `gorm:"column:file_system_source_id;size:36;uniqueIndex:idx_fpd_fs_source,priority:3" json:"file_system_source_id,omitempty"`

	IsTopLevel       bool `gorm:"column:is_top_level;default:false;index" json:"is_top_level"`
	SoloExecution    bool `gorm:"column:solo_execution;default:false" json:"solo_execution"`
	PreconfigureDeck bool `gorm:"column:preconfigure_deck;default:false" json:"preconfigure_deck"`

	DeckParamName               *string `gorm:"column:deck_param_name;size:255" json:"deck_param_name,omitempty"`
	DeckConstructionFunctionFQN *string `gorm:"column:deck_construction_function_fqn;size:512" json:"deck_construction_function_fqn,omitempty"`
	StateParamName              *string `gorm:"column:state_param_name;size:255" json:"state_param_name,omitempty"`

	Category   *string    `gorm:"column:category;size:128;index" json:"category,omitempty"`
	Tags       StringList `gorm:"column:tags_json;type:jsonb" json:"tags_json,omitempty"`
	Deprecated bool       `gorm:"column:deprecated;default:false" json:"deprecated"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*FunctionProtocolDefinition) TableName() string {
	return TableNameFunctionProtocolDefinition
}
