// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package reporting

import (
	"context"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type reportHarness struct {
	svc    *Service
	helper *database.TestHelper
}

func newReportHarness(t *testing.T) *reportHarness {
	helper := database.NewTestHelper(t)
	t.Cleanup(helper.Cleanup)

	sqlDB, err := helper.DB.DB()
	require.NoError(t, err)
	db := sqlx.NewDb(sqlDB, "sqlite3")

	return &reportHarness{
		svc:    NewService(db, sq.Question),
		helper: helper,
	}
}

func seedRun(t *testing.T, h *reportHarness, status constant.ProtocolRunStatus, durationMS *int64) *model.ProtocolRun {
	t.Helper()
	run := &model.ProtocolRun{
		AccessionID:                  accession.NewID(),
		Name:                         "run-" + accession.NewID()[:8],
		TopLevelProtocolDefinitionID: accession.NewID(),
		Status:                       status,
		CompletedDurationMS:          durationMS,
	}
	require.NoError(t, h.helper.DB.Create(run).Error)
	return run
}

func seedCall(t *testing.T, h *reportHarness, runID string, seq int, status constant.FunctionCallStatus, parentID *string) *model.FunctionCallLog {
	t.Helper()
	call := &model.FunctionCallLog{
		AccessionID:                  accession.NewID(),
		ProtocolRunID:                runID,
		SequenceInRun:                seq,
		ParentFunctionCallLogID:      parentID,
		FunctionProtocolDefinitionID: accession.NewID(),
		Status:                       status,
		StartTime:                    time.Now(),
	}
	require.NoError(t, h.helper.DB.Create(call).Error)
	return call
}

func int64p(v int64) *int64 { return &v }

func TestGetRunStatistics(t *testing.T) {
	h := newReportHarness(t)
	ctx := context.Background()

	completed := seedRun(t, h, constant.RunStatusCompleted, int64p(4000))
	seedRun(t, h, constant.RunStatusCompleted, int64p(6000))
	failed := seedRun(t, h, constant.RunStatusFailed, nil)
	seedRun(t, h, constant.RunStatusRunning, nil)

	seedCall(t, h, completed.AccessionID, 1, constant.CallStatusSuccess, nil)
	seedCall(t, h, completed.AccessionID, 2, constant.CallStatusSuccess, nil)
	seedCall(t, h, failed.AccessionID, 1, constant.CallStatusError, nil)

	stats, err := h.svc.GetRunStatistics(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.TotalRuns)
	assert.Equal(t, int64(2), stats.ByStatus[string(constant.RunStatusCompleted)])
	assert.Equal(t, int64(1), stats.ByStatus[string(constant.RunStatusFailed)])
	require.NotNil(t, stats.AvgDurationMS)
	assert.InDelta(t, 5000.0, *stats.AvgDurationMS, 0.1)
	require.NotNil(t, stats.MaxDurationMS)
	assert.InDelta(t, 6000.0, *stats.MaxDurationMS, 0.1)
	assert.Equal(t, int64(3), stats.TotalCalls)
	assert.Equal(t, int64(1), stats.FailedCalls)
}

func TestGetRunStatisticsEmpty(t *testing.T) {
	h := newReportHarness(t)

	stats, err := h.svc.GetRunStatistics(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalRuns)
	assert.Nil(t, stats.AvgDurationMS)
	assert.Empty(t, stats.ByStatus)
}

func TestGetRunStatisticsSinceWindow(t *testing.T) {
	h := newReportHarness(t)

	seedRun(t, h, constant.RunStatusCompleted, int64p(1000))

	stats, err := h.svc.GetRunStatistics(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalRuns)
}

func TestGetPlateWellData(t *testing.T) {
	h := newReportHarness(t)
	ctx := context.Background()

	run := seedRun(t, h, constant.RunStatusCompleted, nil)
	call := seedCall(t, h, run.AccessionID, 1, constant.CallStatusSuccess, nil)
	plateID := accession.NewID()

	value := 1.5
	output := &model.FunctionDataOutput{
		AccessionID:       accession.NewID(),
		FunctionCallLogID: call.AccessionID,
		ProtocolRunID:     run.AccessionID,
		DataType:          constant.DataOutputAbsorbance,
		DataKey:           "od600",
		SpatialContext:    constant.SpatialWell,
		ResourceID:        &plateID,
		DataValueNumeric:  &value,
		MeasuredAt:        time.Now(),
	}
	require.NoError(t, h.helper.DB.Create(output).Error)

	wells := []*model.WellDataOutput{
		{AccessionID: accession.NewID(), FunctionDataOutputID: output.AccessionID, PlateResourceID: plateID, WellName: "A2", WellRow: 0, WellColumn: 1, WellIndex: 1, DataValue: 0.8},
		{AccessionID: accession.NewID(), FunctionDataOutputID: output.AccessionID, PlateResourceID: plateID, WellName: "A1", WellRow: 0, WellColumn: 0, WellIndex: 0, DataValue: 0.4},
	}
	for _, w := range wells {
		require.NoError(t, h.helper.DB.Create(w).Error)
	}

	rows, err := h.svc.GetPlateWellData(ctx, plateID, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A1", rows[0].WellName)
	assert.Equal(t, 0.4, rows[0].DataValue)
	assert.Equal(t, string(constant.DataOutputAbsorbance), rows[0].DataType)
	assert.Equal(t, run.AccessionID, rows[0].RunID)

	// Filtering by an unrelated run returns nothing.
	rows, err = h.svc.GetPlateWellData(ctx, plateID, accession.NewID())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func seedWellOutput(t *testing.T, h *reportHarness, runID, callID, plateID string, dataType constant.DataOutputType, values []float64) {
	t.Helper()
	value := values[0]
	output := &model.FunctionDataOutput{
		AccessionID:       accession.NewID(),
		FunctionCallLogID: callID,
		ProtocolRunID:     runID,
		DataType:          dataType,
		DataKey:           "reading",
		SpatialContext:    constant.SpatialWell,
		ResourceID:        &plateID,
		DataValueNumeric:  &value,
		MeasuredAt:        time.Now(),
	}
	require.NoError(t, h.helper.DB.Create(output).Error)
	for i, v := range values {
		well := &model.WellDataOutput{
			AccessionID:          accession.NewID(),
			FunctionDataOutputID: output.AccessionID,
			PlateResourceID:      plateID,
			WellName:             "A" + string(rune('1'+i)),
			WellRow:              0,
			WellColumn:           i,
			WellIndex:            i,
			DataValue:            v,
		}
		require.NoError(t, h.helper.DB.Create(well).Error)
	}
}

func TestGetPlateVisualization(t *testing.T) {
	h := newReportHarness(t)
	ctx := context.Background()

	run := seedRun(t, h, constant.RunStatusCompleted, nil)
	call := seedCall(t, h, run.AccessionID, 1, constant.CallStatusSuccess, nil)
	plateID := accession.NewID()

	seedWellOutput(t, h, run.AccessionID, call.AccessionID, plateID, constant.DataOutputAbsorbance, []float64{0.4, 0.8})
	seedWellOutput(t, h, run.AccessionID, call.AccessionID, plateID, constant.DataOutputFluorescence, []float64{10, 20})

	viz, err := h.svc.GetPlateVisualization(ctx, plateID, "")
	require.NoError(t, err)
	require.NotNil(t, viz)
	assert.Equal(t, plateID, viz.PlateResourceID)
	assert.Len(t, viz.Wells, 4)
	assert.Equal(t, 0.4, viz.DataRange.Min)
	assert.Equal(t, 20.0, viz.DataRange.Max)

	// Narrowed to one output type.
	viz, err = h.svc.GetPlateVisualization(ctx, plateID, string(constant.DataOutputFluorescence))
	require.NoError(t, err)
	require.NotNil(t, viz)
	assert.Len(t, viz.Wells, 2)
	assert.Equal(t, 10.0, viz.DataRange.Min)
	assert.Equal(t, 20.0, viz.DataRange.Max)

	// A plate with no data is nil, not an error.
	viz, err = h.svc.GetPlateVisualization(ctx, accession.NewID(), "")
	require.NoError(t, err)
	assert.Nil(t, viz)
}

func TestGetRunCallTree(t *testing.T) {
	h := newReportHarness(t)
	ctx := context.Background()

	run := seedRun(t, h, constant.RunStatusCompleted, nil)
	root := seedCall(t, h, run.AccessionID, 1, constant.CallStatusSuccess, nil)
	child1 := seedCall(t, h, run.AccessionID, 2, constant.CallStatusSuccess, &root.AccessionID)
	child2 := seedCall(t, h, run.AccessionID, 3, constant.CallStatusError, &root.AccessionID)
	other := seedCall(t, h, run.AccessionID, 4, constant.CallStatusSuccess, nil)

	roots, err := h.svc.GetRunCallTree(ctx, run.AccessionID)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, root.AccessionID, roots[0].AccessionID)
	assert.Equal(t, other.AccessionID, roots[1].AccessionID)

	require.Len(t, roots[0].Children, 2)
	assert.Equal(t, child1.AccessionID, roots[0].Children[0].AccessionID)
	assert.Equal(t, child2.AccessionID, roots[0].Children[1].AccessionID)
	assert.Equal(t, "ERROR", roots[0].Children[1].Status)
}

func TestGetRunDataOutputSummary(t *testing.T) {
	h := newReportHarness(t)
	ctx := context.Background()

	run := seedRun(t, h, constant.RunStatusCompleted, nil)
	call := seedCall(t, h, run.AccessionID, 1, constant.CallStatusSuccess, nil)

	for i, v := range []float64{0.5, 1.5, 2.5} {
		value := v
		output := &model.FunctionDataOutput{
			AccessionID:       accession.NewID(),
			FunctionCallLogID: call.AccessionID,
			ProtocolRunID:     run.AccessionID,
			DataType:          constant.DataOutputAbsorbance,
			DataKey:           "od600",
			SpatialContext:    constant.SpatialGlobal,
			DataValueNumeric:  &value,
			MeasuredAt:        time.Now().Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, h.helper.DB.Create(output).Error)
	}
	text := "lid open"
	note := &model.FunctionDataOutput{
		AccessionID:       accession.NewID(),
		FunctionCallLogID: call.AccessionID,
		ProtocolRunID:     run.AccessionID,
		DataType:          constant.DataOutputStatusUpdate,
		DataKey:           "note",
		SpatialContext:    constant.SpatialGlobal,
		DataValueText:     &text,
		MeasuredAt:        time.Now(),
	}
	require.NoError(t, h.helper.DB.Create(note).Error)

	summary, err := h.svc.GetRunDataOutputSummary(ctx, run.AccessionID)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	assert.Equal(t, string(constant.DataOutputAbsorbance), summary[0].DataType)
	assert.Equal(t, int64(3), summary[0].Count)
	require.NotNil(t, summary[0].MinValue)
	assert.InDelta(t, 0.5, *summary[0].MinValue, 0.001)
	assert.InDelta(t, 2.5, *summary[0].MaxValue, 0.001)

	assert.Equal(t, string(constant.DataOutputStatusUpdate), summary[1].DataType)
	assert.Nil(t, summary[1].MinValue)
}
