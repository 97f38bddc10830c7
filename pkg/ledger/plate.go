// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package ledger

import (
	"context"
	"fmt"

	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/maraxen/pylabpraxis-sub002/pkg/reporting"
)

// InvalidPlateDimensionsError reports a plate whose geometry could not be
// read from its state or definition.
type InvalidPlateDimensionsError struct {
	PlateResourceID string
	Reason          string
}

func (e *InvalidPlateDimensionsError) Error() string {
	return fmt.Sprintf("plate %s: %s", e.PlateResourceID, e.Reason)
}

// DimensionMismatchError reports a flat array whose length does not cover
// the plate.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("flat array has %d entries, plate has %d wells", e.Got, e.Expected)
}

// WellName renders the conventional plate coordinate for a zero-based
// (row, column) position: row letters 'A'..'Z' then 'AA', 'AB', ...,
// column 1-indexed. (0,0) is "A1".
func WellName(row, col int) string {
	letters := ""
	r := row
	for {
		letters = string(rune('A'+r%26)) + letters
		r = r/26 - 1
		if r < 0 {
			break
		}
	}
	return fmt.Sprintf("%s%d", letters, col+1)
}

// CreateWellDataOutputsFromFlatArray materializes a row-major flat reading
// into one WellDataOutput per well. Plate geometry comes from the plate
// asset's plr_state (num_items_x/num_items_y or rows/columns) or, failing
// that, its resource definition details.
func (s *Service) CreateWellDataOutputsFromFlatArray(ctx context.Context, dataOutputID, plateResourceID string, data []float64) ([]*model.WellDataOutput, error) {
	rows, cols, err := s.plateDimensions(ctx, plateResourceID)
	if err != nil {
		return nil, err
	}
	if len(data) != rows*cols {
		return nil, &DimensionMismatchError{Expected: rows * cols, Got: len(data)}
	}

	wells := make([]*model.WellDataOutput, 0, len(data))
	for i, value := range data {
		row := i / cols
		col := i % cols
		wells = append(wells, &model.WellDataOutput{
			AccessionID:          accession.NewID(),
			FunctionDataOutputID: dataOutputID,
			PlateResourceID:      plateResourceID,
			WellName:             WellName(row, col),
			WellRow:              row,
			WellColumn:           col,
			WellIndex:            i,
			DataValue:            value,
		})
	}
	if err := s.outputs.CreateWellOutputs(ctx, wells); err != nil {
		return nil, err
	}
	wellOutputsRecorded.Add(float64(len(wells)))
	return wells, nil
}

// plateDimensions resolves (rows, columns) for a plate asset.
func (s *Service) plateDimensions(ctx context.Context, plateResourceID string) (int, int, error) {
	plate, err := s.assets.Get(ctx, plateResourceID)
	if err != nil {
		return 0, 0, err
	}
	if plate == nil {
		return 0, 0, &InvalidPlateDimensionsError{PlateResourceID: plateResourceID, Reason: "asset not found"}
	}

	if rows, cols, ok := dimsFromBag(plate.PLRState); ok {
		return rows, cols, nil
	}
	if plate.ResourceDefinitionID != nil {
		def, err := s.defs.GetResourceDefinition(ctx, *plate.ResourceDefinitionID)
		if err != nil {
			return 0, 0, err
		}
		if def != nil {
			if rows, cols, ok := dimsFromBag(def.PLRDefinitionDetails); ok {
				return rows, cols, nil
			}
		}
	}
	return 0, 0, &InvalidPlateDimensionsError{
		PlateResourceID: plateResourceID,
		Reason:          "no readable dimensions in plr_state or resource definition",
	}
}

// dimsFromBag reads plate geometry from a state bag. num_items_x counts
// columns, num_items_y counts rows.
func dimsFromBag(bag model.JSONBag) (int, int, bool) {
	if bag == nil {
		return 0, 0, false
	}
	if cols, ok := bag.GetInt("num_items_x"); ok {
		if rows, ok := bag.GetInt("num_items_y"); ok && rows > 0 && cols > 0 {
			return rows, cols, true
		}
	}
	if rows, ok := bag.GetInt("rows"); ok {
		if cols, ok := bag.GetInt("columns"); ok && rows > 0 && cols > 0 {
			return rows, cols, true
		}
	}
	return 0, 0, false
}

// GetPlateVisualizationData returns every well datum for the plate,
// optionally narrowed to one output type. nil when the plate has no data.
// The bulk read runs on the reporting pool rather than row-wise through the
// ORM facades.
func (s *Service) GetPlateVisualizationData(ctx context.Context, plateResourceID string, dataType *constant.DataOutputType) (*reporting.PlateVisualization, error) {
	dt := ""
	if dataType != nil {
		dt = string(*dataType)
	}
	return s.reports.GetPlateVisualization(ctx, plateResourceID, dt)
}
