// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package constant

// DataOutputType classifies a recorded measurement or artifact reference.
type DataOutputType string

const (
	DataOutputAbsorbance    DataOutputType = "ABSORBANCE_READING"
	DataOutputFluorescence  DataOutputType = "FLUORESCENCE_READING"
	DataOutputLuminescence  DataOutputType = "LUMINESCENCE_READING"
	DataOutputTemperature   DataOutputType = "TEMPERATURE_READING"
	DataOutputVolume        DataOutputType = "VOLUME_MEASUREMENT"
	DataOutputWeight        DataOutputType = "WEIGHT_MEASUREMENT"
	DataOutputGeneric       DataOutputType = "GENERIC_MEASUREMENT"
	DataOutputCalculated    DataOutputType = "CALCULATED_METRIC"
	DataOutputStatusUpdate  DataOutputType = "STATUS_UPDATE"
	DataOutputFileReference DataOutputType = "FILE_REFERENCE"
)

func DataOutputTypeValues() []DataOutputType {
	return []DataOutputType{
		DataOutputAbsorbance, DataOutputFluorescence, DataOutputLuminescence,
		DataOutputTemperature, DataOutputVolume, DataOutputWeight,
		DataOutputGeneric, DataOutputCalculated, DataOutputStatusUpdate,
		DataOutputFileReference,
	}
}

func (t DataOutputType) IsValid() bool {
	for _, v := range DataOutputTypeValues() {
		if t == v {
			return true
		}
	}
	return false
}

// SpatialContext states what physical scope a data output refers to.
// WELL_SPECIFIC outputs are additionally materialized per well.
type SpatialContext string

const (
	SpatialGlobal       SpatialContext = "GLOBAL"
	SpatialDeckPosition SpatialContext = "DECK_POSITION_SPECIFIC"
	SpatialMachine      SpatialContext = "MACHINE_SPECIFIC"
	SpatialResource     SpatialContext = "RESOURCE_SPECIFIC"
	SpatialWell         SpatialContext = "WELL_SPECIFIC"
)

func SpatialContextValues() []SpatialContext {
	return []SpatialContext{
		SpatialGlobal, SpatialDeckPosition, SpatialMachine,
		SpatialResource, SpatialWell,
	}
}

func (c SpatialContext) IsValid() bool {
	for _, v := range SpatialContextValues() {
		if c == v {
			return true
		}
	}
	return false
}
