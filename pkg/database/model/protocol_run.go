// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package model

import (
	"encoding/json"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
)

const TableNameProtocolRun = "protocol_run"

// ProtocolRun is one submitted execution of a top-level protocol definition.
// Status moves through the run lifecycle; start_time is stamped on the first
// transition into RUNNING and end_time plus completed_duration_ms on entry to
// a terminal status.
type ProtocolRun struct {
	AccessionID                  string                     `gorm:"column:accession_id;primaryKey;size:36" json:"accession_id"`
	Name                         string                     `gorm:"column:name;size:255;not null;index" json:"name"`
	TopLevelProtocolDefinitionID string                     `gorm:"column:top_level_protocol_definition_id;size:36;not null;index" json:"top_level_protocol_definition_id"`
	Status                       constant.ProtocolRunStatus `gorm:"column:status;size:32;not null;index" json:"status"`

	StartTime            *time.Time `gorm:"column:start_time" json:"start_time,omitempty"`
	EndTime              *time.Time `gorm:"column:end_time" json:"end_time,omitempty"`
	CompletedDurationMS  *int64     `gorm:"column:completed_duration_ms" json:"completed_duration_ms,omitempty"`

	InputParameters JSONBag `gorm:"column:input_parameters_json;type:jsonb" json:"input_parameters_json,omitempty"`
	InitialState    JSONBag `gorm:"column:initial_state_json;type:jsonb" json:"initial_state_json,omitempty"`
	OutputData      JSONBag `gorm:"column:output_data_json;type:jsonb" json:"output_data_json,omitempty"`
	FinalState      JSONBag `gorm:"column:final_state_json;type:jsonb" json:"final_state_json,omitempty"`

	// WorkerTaskID records the dispatch task currently executing the run.
	WorkerTaskID *string `gorm:"column:worker_task_id;size:36;index" json:"worker_task_id,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*ProtocolRun) TableName() string {
	return TableNameProtocolRun
}

const TableNameFunctionCallLog = "function_call_log"

// FunctionCallLog is one nested function invocation inside a run. Sequence
// numbers are unique per run; parent linkage forms the call tree.
type FunctionCallLog struct {
	AccessionID                  string                      `gorm:"column:accession_id;primaryKey;size:36" json:"accession_id"`
	ProtocolRunID                string                      `gorm:"column:protocol_run_id;size:36;not null;index;uniqueIndex:idx_call_run_sequence,priority:1" json:"protocol_run_id"`
	SequenceInRun                int                         `gorm:"column:sequence_in_run;not null;uniqueIndex:idx_call_run_sequence,priority:2" json:"sequence_in_run"`
	ParentFunctionCallLogID      *string                     `gorm:"column:parent_function_call_log_id;size:36;index" json:"parent_function_call_log_id,omitempty"`
	FunctionProtocolDefinitionID string                      `gorm:"column:function_protocol_definition_id;size:36;not null;index" json:"function_protocol_definition_id"`
	Status                       constant.FunctionCallStatus `gorm:"column:status;size:32;not null;index" json:"status"`

	StartTime           time.Time  `gorm:"column:start_time;not null" json:"start_time"`
	EndTime             *time.Time `gorm:"column:end_time" json:"end_time,omitempty"`
	CompletedDurationMS *int64     `gorm:"column:completed_duration_ms" json:"completed_duration_ms,omitempty"`

	InputArgs      JSONBag         `gorm:"column:input_args_json;type:jsonb" json:"input_args_json,omitempty"`
	ReturnValue    json.RawMessage `gorm:"column:return_value_json;type:jsonb" json:"return_value_json,omitempty"`
	ErrorMessage   *string         `gorm:"column:error_message_text;type:text" json:"error_message_text,omitempty"`
	ErrorTraceback *string         `gorm:"column:error_traceback_text;type:text" json:"error_traceback_text,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (*FunctionCallLog) TableName() string {
	return TableNameFunctionCallLog
}
