// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package reporting is the read-only analytics surface over the run and data
// output tables. It bypasses the ORM and issues hand-shaped SQL through sqlx,
// with squirrel building the statements, because these queries aggregate
// across tables the facades expose only row-wise.
package reporting

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// Service executes analytics queries. It holds no state beyond the pool and
// is safe for concurrent use.
type Service struct {
	db *sqlx.DB
	sb sq.StatementBuilderType
}

// NewService creates a reporting service. placeholder is Dollar on postgres,
// Question on sqlite.
func NewService(db *sqlx.DB, placeholder sq.PlaceholderFormat) *Service {
	return &Service{db: db, sb: sq.StatementBuilder.PlaceholderFormat(placeholder)}
}

// RunStatistics is the aggregate picture of runs in a window.
type RunStatistics struct {
	TotalRuns     int64
	ByStatus      map[string]int64
	AvgDurationMS *float64
	MaxDurationMS *float64
	TotalCalls    int64
	FailedCalls   int64
}

type statusCount struct {
	Status string `db:"status"`
	Count  int64  `db:"count"`
}

// GetRunStatistics aggregates runs created after since; a zero since covers
// everything.
func (s *Service) GetRunStatistics(ctx context.Context, since time.Time) (*RunStatistics, error) {
	stats := &RunStatistics{ByStatus: map[string]int64{}}

	byStatus := s.sb.Select("status", "count(*) AS count").
		From("protocol_run").
		GroupBy("status")
	if !since.IsZero() {
		byStatus = byStatus.Where(sq.GtOrEq{"created_at": since})
	}
	query, args, err := byStatus.ToSql()
	if err != nil {
		return nil, err
	}
	var counts []statusCount
	if err := s.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, err
	}
	for _, c := range counts {
		stats.ByStatus[c.Status] = c.Count
		stats.TotalRuns += c.Count
	}

	durations := s.sb.Select(
		"avg(completed_duration_ms) AS avg_ms",
		"max(completed_duration_ms) AS max_ms",
	).From("protocol_run").Where(sq.NotEq{"completed_duration_ms": nil})
	if !since.IsZero() {
		durations = durations.Where(sq.GtOrEq{"created_at": since})
	}
	query, args, err = durations.ToSql()
	if err != nil {
		return nil, err
	}
	var dur struct {
		AvgMS sql.NullFloat64 `db:"avg_ms"`
		MaxMS sql.NullFloat64 `db:"max_ms"`
	}
	if err := s.db.GetContext(ctx, &dur, query, args...); err != nil {
		return nil, err
	}
	if dur.AvgMS.Valid {
		stats.AvgDurationMS = &dur.AvgMS.Float64
	}
	if dur.MaxMS.Valid {
		stats.MaxDurationMS = &dur.MaxMS.Float64
	}

	calls := s.sb.Select(
		"count(*) AS total",
		"count(CASE WHEN status = 'ERROR' THEN 1 END) AS failed",
	).From("function_call_log")
	if !since.IsZero() {
		calls = calls.Where(sq.GtOrEq{"created_at": since})
	}
	query, args, err = calls.ToSql()
	if err != nil {
		return nil, err
	}
	var callCounts struct {
		Total  int64 `db:"total"`
		Failed int64 `db:"failed"`
	}
	if err := s.db.GetContext(ctx, &callCounts, query, args...); err != nil {
		return nil, err
	}
	stats.TotalCalls = callCounts.Total
	stats.FailedCalls = callCounts.Failed

	return stats, nil
}

// PlateWellRow is one well measurement joined with its parent output.
type PlateWellRow struct {
	WellName   string    `db:"well_name" json:"well_name"`
	WellRow    int       `db:"well_row" json:"well_row"`
	WellColumn int       `db:"well_column" json:"well_column"`
	WellIndex  int       `db:"well_index" json:"well_index"`
	DataValue  float64   `db:"data_value" json:"data_value"`
	DataType   string    `db:"data_type" json:"data_type"`
	RunID      string    `db:"protocol_run_id" json:"protocol_run_id"`
	MeasuredAt time.Time `db:"measured_at" json:"measured_at"`
}

// GetPlateWellData returns a plate's well measurements in well order. runID
// narrows to one run when non-empty.
func (s *Service) GetPlateWellData(ctx context.Context, plateResourceID, runID string) ([]PlateWellRow, error) {
	builder := s.sb.Select(
		"w.well_name", "w.well_row", "w.well_column", "w.well_index", "w.data_value",
		"f.data_type", "f.protocol_run_id", "f.measured_at",
	).
		From("well_data_output AS w").
		Join("function_data_output AS f ON f.accession_id = w.function_data_output_id").
		Where(sq.Eq{"w.plate_resource_id": plateResourceID}).
		OrderBy("f.measured_at ASC", "w.well_index ASC")
	if runID != "" {
		builder = builder.Where(sq.Eq{"f.protocol_run_id": runID})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	var rows []PlateWellRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// DataRange bounds the values on a plate.
type DataRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// PlateVisualization is the per-well dataset for one plate plus its value
// range, shaped for heatmap rendering.
type PlateVisualization struct {
	PlateResourceID string         `json:"plate_resource_id"`
	Wells           []PlateWellRow `json:"wells"`
	DataRange       DataRange      `json:"data_range"`
}

// GetPlateVisualization returns every well datum for the plate, narrowed to
// one parent output type when dataType is non-empty, plus the value range.
// nil when the plate has no data.
func (s *Service) GetPlateVisualization(ctx context.Context, plateResourceID, dataType string) (*PlateVisualization, error) {
	builder := s.sb.Select(
		"w.well_name", "w.well_row", "w.well_column", "w.well_index", "w.data_value",
		"f.data_type", "f.protocol_run_id", "f.measured_at",
	).
		From("well_data_output AS w").
		Join("function_data_output AS f ON f.accession_id = w.function_data_output_id").
		Where(sq.Eq{"w.plate_resource_id": plateResourceID}).
		OrderBy("f.measured_at ASC", "w.well_index ASC")
	if dataType != "" {
		builder = builder.Where(sq.Eq{"f.data_type": dataType})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	var rows []PlateWellRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	rng := DataRange{Min: rows[0].DataValue, Max: rows[0].DataValue}
	for _, row := range rows[1:] {
		if row.DataValue < rng.Min {
			rng.Min = row.DataValue
		}
		if row.DataValue > rng.Max {
			rng.Max = row.DataValue
		}
	}
	return &PlateVisualization{
		PlateResourceID: plateResourceID,
		Wells:           rows,
		DataRange:       rng,
	}, nil
}

// CallNode is one function call with its children, ordered by sequence.
type CallNode struct {
	AccessionID string     `db:"accession_id"`
	ParentID    *string    `db:"parent_function_call_log_id"`
	Sequence    int        `db:"sequence_in_run"`
	Status      string     `db:"status"`
	StartTime   time.Time  `db:"start_time"`
	EndTime     *time.Time `db:"end_time"`
	DurationMS  *int64     `db:"completed_duration_ms"`

	Children []*CallNode `db:"-"`
}

// GetRunCallTree returns the run's calls as a forest rooted at parentless
// calls, children in sequence order.
func (s *Service) GetRunCallTree(ctx context.Context, runID string) ([]*CallNode, error) {
	query, args, err := s.sb.Select(
		"accession_id", "parent_function_call_log_id", "sequence_in_run",
		"status", "start_time", "end_time", "completed_duration_ms",
	).
		From("function_call_log").
		Where(sq.Eq{"protocol_run_id": runID}).
		OrderBy("sequence_in_run ASC").
		ToSql()
	if err != nil {
		return nil, err
	}

	var nodes []*CallNode
	if err := s.db.SelectContext(ctx, &nodes, query, args...); err != nil {
		return nil, err
	}

	byID := make(map[string]*CallNode, len(nodes))
	for _, n := range nodes {
		byID[n.AccessionID] = n
	}
	var roots []*CallNode
	for _, n := range nodes {
		if n.ParentID != nil {
			if parent, ok := byID[*n.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots, nil
}

// DataOutputSummary counts outputs per data type for one run.
type DataOutputSummary struct {
	DataType string   `db:"data_type"`
	Count    int64    `db:"count"`
	MinValue *float64 `db:"min_value"`
	MaxValue *float64 `db:"max_value"`
}

// GetRunDataOutputSummary aggregates a run's data outputs by type.
func (s *Service) GetRunDataOutputSummary(ctx context.Context, runID string) ([]DataOutputSummary, error) {
	query, args, err := s.sb.Select(
		"data_type",
		"count(*) AS count",
		"min(data_value_numeric) AS min_value",
		"max(data_value_numeric) AS max_value",
	).
		From("function_data_output").
		Where(sq.Eq{"protocol_run_id": runID}).
		GroupBy("data_type").
		OrderBy("data_type ASC").
		ToSql()
	if err != nil {
		return nil, err
	}
	var rows []DataOutputSummary
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
