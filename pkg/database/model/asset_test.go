// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package model

import (
	"testing"

	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
)

func TestAsset_Roles(t *testing.T) {
	tests := []struct {
		name         string
		assetType    constant.AssetType
		wantMachine  bool
		wantResource bool
	}{
		{"machine", constant.AssetTypeMachine, true, false},
		{"resource", constant.AssetTypeResource, false, true},
		{"deck", constant.AssetTypeDeck, false, true},
		{"machine resource", constant.AssetTypeMachineResource, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Asset{AssetType: tt.assetType}
			if got := a.HasMachineRole(); got != tt.wantMachine {
				t.Errorf("HasMachineRole() = %v, want %v", got, tt.wantMachine)
			}
			if got := a.HasResourceRole(); got != tt.wantResource {
				t.Errorf("HasResourceRole() = %v, want %v", got, tt.wantResource)
			}
		})
	}
}

func TestTableNames(t *testing.T) {
	tests := []struct {
		model interface{ TableName() string }
		want  string
	}{
		{&Asset{}, TableNameAsset},
		{&Workcell{}, TableNameWorkcell},
		{&ResourceDefinition{}, TableNameResourceDefinition},
		{&MachineDefinition{}, TableNameMachineDefinition},
		{&DeckDefinition{}, TableNameDeckDefinition},
		{&DeckPositionDefinition{}, TableNameDeckPositionDefinition},
		{&FunctionProtocolDefinition{}, TableNameFunctionProtocolDefinition},
		{&ProtocolRun{}, TableNameProtocolRun},
		{&FunctionCallLog{}, TableNameFunctionCallLog},
		{&FunctionDataOutput{}, TableNameFunctionDataOutput},
		{&WellDataOutput{}, TableNameWellDataOutput},
		{&WorkerTask{}, TableNameWorkerTask},
	}

	for _, tt := range tests {
		if got := tt.model.TableName(); got != tt.want {
			t.Errorf("TableName() = %v, want %v", got, tt.want)
		}
	}
}

func TestFunctionDataOutput_HasValue(t *testing.T) {
	num := 0.42
	txt := "ok"

	tests := []struct {
		name   string
		output FunctionDataOutput
		want   bool
	}{
		{"no value", FunctionDataOutput{}, false},
		{"numeric only", FunctionDataOutput{DataValueNumeric: &num}, true},
		{"text only", FunctionDataOutput{DataValueText: &txt}, true},
		{"bytes only", FunctionDataOutput{DataValueBytes: []byte{1, 2}}, true},
		{"numeric and text", FunctionDataOutput{DataValueNumeric: &num, DataValueText: &txt}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.output.HasValue(); got != tt.want {
				t.Errorf("HasValue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWorkerTask_IsFinished(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{TaskStatusPending, false},
		{TaskStatusProcessing, false},
		{TaskStatusCompleted, true},
		{TaskStatusFailed, true},
		{TaskStatusCancelled, true},
	}

	for _, tt := range tests {
		task := &WorkerTask{Status: tt.status}
		if got := task.IsFinished(); got != tt.want {
			t.Errorf("IsFinished(%s) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
