// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	praxiserrors "github.com/maraxen/pylabpraxis-sub002/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 {
	return &v
}

func newNumericOutput(id, runID, callID string, value float64) *model.FunctionDataOutput {
	return &model.FunctionDataOutput{
		AccessionID:       id,
		FunctionCallLogID: callID,
		ProtocolRunID:     runID,
		DataType:          constant.DataOutputAbsorbance,
		DataKey:           "absorbance_od600",
		SpatialContext:    constant.SpatialResource,
		DataValueNumeric:  floatPtr(value),
		MeasuredAt:        time.Now().UTC(),
	}
}

func TestDataOutputFacade_CreateValidatesValue(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewDataOutputFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	empty := newNumericOutput("o-1", "run-1", "c-1", 0)
	empty.DataValueNumeric = nil
	err := facade.Create(ctx, empty)
	require.Error(t, err)
	assert.True(t, praxiserrors.IsCode(err, praxiserrors.CodeInvalidParameter))

	both := newNumericOutput("o-2", "run-1", "c-1", 1.5)
	text := "raw"
	both.DataValueText = &text
	err = facade.Create(ctx, both)
	require.Error(t, err)
	assert.True(t, praxiserrors.IsCode(err, praxiserrors.CodeInvalidParameter))

	require.NoError(t, facade.Create(ctx, newNumericOutput("o-3", "run-1", "c-1", 1.5)))
}

func TestDataOutputFacade_ListFilters(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewDataOutputFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	reading := newNumericOutput("o-1", "run-1", "c-1", 0.42)
	reading.ResourceID = strPtr("plate-1")
	require.NoError(t, facade.Create(ctx, reading))

	status := newNumericOutput("o-2", "run-1", "c-2", 1)
	status.DataType = constant.DataOutputStatusUpdate
	status.DataKey = "lid_open"
	status.SpatialContext = constant.SpatialMachine
	require.NoError(t, facade.Create(ctx, status))

	otherRun := newNumericOutput("o-3", "run-2", "c-3", 0.9)
	require.NoError(t, facade.Create(ctx, otherRun))

	byRun, err := facade.List(ctx, &DataOutputFilter{ProtocolRunID: strPtr("run-1")})
	require.NoError(t, err)
	assert.Len(t, byRun, 2)

	absType := constant.DataOutputAbsorbance
	byType, err := facade.List(ctx, &DataOutputFilter{
		ProtocolRunID: strPtr("run-1"),
		DataType:      &absType,
	})
	require.NoError(t, err)
	require.Len(t, byType, 1)
	assert.Equal(t, "o-1", byType[0].AccessionID)

	count, err := facade.Count(ctx, &DataOutputFilter{ResourceID: strPtr("plate-1")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestDataOutputFacade_WellOutputs(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewDataOutputFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	output := newNumericOutput("o-1", "run-1", "c-1", 0)
	output.ResourceID = strPtr("plate-1")
	require.NoError(t, facade.Create(ctx, output))

	wells := make([]*model.WellDataOutput, 0, 4)
	for i := 0; i < 4; i++ {
		wells = append(wells, &model.WellDataOutput{
			AccessionID:          fmt.Sprintf("w-%d", i),
			FunctionDataOutputID: "o-1",
			PlateResourceID:      "plate-1",
			WellName:             fmt.Sprintf("A%d", i+1),
			WellRow:              0,
			WellColumn:           i,
			WellIndex:            i,
			DataValue:            float64(i) * 0.1,
		})
	}
	require.NoError(t, facade.CreateWellOutputs(ctx, wells))

	got, err := facade.ListWellOutputsByOutput(ctx, "o-1")
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, "A1", got[0].WellName)
	assert.Equal(t, 3, got[3].WellIndex)

	// Second run writes to the same plate; the run filter keeps them apart.
	other := newNumericOutput("o-2", "run-2", "c-9", 0)
	other.ResourceID = strPtr("plate-1")
	require.NoError(t, facade.Create(ctx, other))
	require.NoError(t, facade.CreateWellOutputs(ctx, []*model.WellDataOutput{{
		AccessionID:          "w-other",
		FunctionDataOutputID: "o-2",
		PlateResourceID:      "plate-1",
		WellName:             "B1",
		WellRow:              1,
		WellColumn:           0,
		WellIndex:            12,
		DataValue:            2.5,
	}}))

	all, err := facade.ListWellOutputsByPlate(ctx, "plate-1", nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	scoped, err := facade.ListWellOutputsByPlate(ctx, "plate-1", strPtr("run-1"))
	require.NoError(t, err)
	assert.Len(t, scoped, 4)
}

func TestDataOutputFacade_DeleteCascadesWells(t *testing.T) {
	helper := NewTestHelper(t)
	defer helper.Cleanup()

	facade := NewDataOutputFacade().WithDB(helper.DB)
	ctx := helper.CreateTestContext()

	output := newNumericOutput("o-1", "run-1", "c-1", 0)
	require.NoError(t, facade.Create(ctx, output))
	require.NoError(t, facade.CreateWellOutputs(ctx, []*model.WellDataOutput{{
		AccessionID:          "w-1",
		FunctionDataOutputID: "o-1",
		PlateResourceID:      "plate-1",
		WellName:             "A1",
		WellIndex:            0,
		DataValue:            1,
	}}))

	require.NoError(t, facade.Delete(ctx, "o-1"))

	assert.Equal(t, int64(0), helper.Count(model.TableNameWellDataOutput))
	assert.Equal(t, int64(0), helper.Count(model.TableNameFunctionDataOutput))

	err := facade.Delete(ctx, "o-1")
	require.Error(t, err)
	assert.True(t, praxiserrors.IsNotFound(err))
}
