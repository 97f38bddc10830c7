// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package model

import (
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
)

const TableNameFunctionDataOutput = "function_data_output"

// FunctionDataOutput is one measurement or artifact captured during a
// function call. Exactly one of the three value columns is set; the facade
// validates that on create.
type FunctionDataOutput struct {
	AccessionID       string                  `gorm:"column:accession_id;primaryKey;size:36" json:"accession_id"`
	FunctionCallLogID string                  `gorm:"column:function_call_log_id;size:36;not null;index" json:"function_call_log_id"`
	ProtocolRunID     string                  `gorm:"column:protocol_run_id;size:36;not null;index" json:"protocol_run_id"`
	DataType          constant.DataOutputType `gorm:"column:data_type;size:40;not null;index" json:"data_type"`
	DataKey           string                  `gorm:"column:data_key;size:255;not null;index" json:"data_key"`

	SpatialContext constant.SpatialContext `gorm:"column:spatial_context;size:40;not null" json:"spatial_context"`
	// ResourceID targets the asset the datum is about: the machine for
	// MACHINE_SPECIFIC, the labware for RESOURCE_SPECIFIC and WELL_SPECIFIC,
	// null for GLOBAL.
	ResourceID       *string `gorm:"column:resource_id;size:36;index" json:"resource_id,omitempty"`
	DeckPositionName *string `gorm:"column:deck_position_name;size:255" json:"deck_position_name,omitempty"`

	DataValueNumeric *float64 `gorm:"column:data_value_numeric" json:"data_value_numeric,omitempty"`
	DataValueText    *string  `gorm:"column:data_value_text;type:text" json:"data_value_text,omitempty"`
	DataValueBytes   []byte   `gorm:"column:data_value_bytes" json:"data_value_bytes,omitempty"`
	DataUnits        *string  `gorm:"column:data_units;size:64" json:"data_units,omitempty"`

	// MeasuredAt is the instrument-reported measurement instant, defaulting
	// to the ledger clock when the caller supplies none.
	MeasuredAt time.Time `gorm:"column:measured_at;not null;index" json:"measured_at"`

	Metadata JSONBag `gorm:"column:metadata_json;type:jsonb" json:"metadata_json,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*FunctionDataOutput) TableName() string {
	return TableNameFunctionDataOutput
}

// HasValue reports whether exactly one value column is populated.
func (o *FunctionDataOutput) HasValue() bool {
	n := 0
	if o.DataValueNumeric != nil {
		n++
	}
	if o.DataValueText != nil {
		n++
	}
	if len(o.DataValueBytes) > 0 {
		n++
	}
	return n == 1
}

const TableNameWellDataOutput = "well_data_output"

// WellDataOutput is one per-well numeric datum materialized from a
// plate-shaped reading. well_index is the row-major position on the plate.
type WellDataOutput struct {
	AccessionID          string  `gorm:"column:accession_id;primaryKey;size:36" json:"accession_id"`
	FunctionDataOutputID string  `gorm:"column:function_data_output_id;size:36;not null;index" json:"function_data_output_id"`
	PlateResourceID      string  `gorm:"column:plate_resource_id;size:36;not null;index" json:"plate_resource_id"`
	WellName             string  `gorm:"column:well_name;size:16;not null" json:"well_name"`
	WellRow              int     `gorm:"column:well_row;not null" json:"well_row"`
	WellColumn           int     `gorm:"column:well_column;not null" json:"well_column"`
	WellIndex            int     `gorm:"column:well_index;not null;index" json:"well_index"`
	DataValue            float64 `gorm:"column:data_value;not null" json:"data_value"`

	Metadata JSONBag `gorm:"column:metadata_json;type:jsonb" json:"metadata_json,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (*WellDataOutput) TableName() string {
	return TableNameWellDataOutput
}
