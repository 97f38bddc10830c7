// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package constant

// ProtocolRunStatus is the durable lifecycle of a protocol run. Transitions
// between statuses are validated by the run state machine; the values here
// are the stable wire tags.
type ProtocolRunStatus string

const (
	RunStatusQueued               ProtocolRunStatus = "QUEUED"
	RunStatusPending              ProtocolRunStatus = "PENDING"
	RunStatusPreparing            ProtocolRunStatus = "PREPARING"
	RunStatusRunning              ProtocolRunStatus = "RUNNING"
	RunStatusPausing              ProtocolRunStatus = "PAUSING"
	RunStatusPaused               ProtocolRunStatus = "PAUSED"
	RunStatusResuming             ProtocolRunStatus = "RESUMING"
	RunStatusCompleted            ProtocolRunStatus = "COMPLETED"
	RunStatusFailed               ProtocolRunStatus = "FAILED"
	RunStatusCanceling            ProtocolRunStatus = "CANCELING"
	RunStatusCancelled            ProtocolRunStatus = "CANCELLED"
	RunStatusIntervening          ProtocolRunStatus = "INTERVENING"
	RunStatusRequiresIntervention ProtocolRunStatus = "REQUIRES_INTERVENTION"
)

func RunStatusValues() []ProtocolRunStatus {
	return []ProtocolRunStatus{
		RunStatusQueued, RunStatusPending, RunStatusPreparing, RunStatusRunning,
		RunStatusPausing, RunStatusPaused, RunStatusResuming, RunStatusCompleted,
		RunStatusFailed, RunStatusCanceling, RunStatusCancelled,
		RunStatusIntervening, RunStatusRequiresIntervention,
	}
}

func (s ProtocolRunStatus) IsValid() bool {
	for _, v := range RunStatusValues() {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is absorbing. Terminal runs never
// transition again; updates against them are no-ops.
func (s ProtocolRunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// FunctionCallStatus is the outcome tag of one logged function invocation.
type FunctionCallStatus string

const (
	CallStatusSuccess    FunctionCallStatus = "SUCCESS"
	CallStatusError      FunctionCallStatus = "ERROR"
	CallStatusPending    FunctionCallStatus = "PENDING"
	CallStatusInProgress FunctionCallStatus = "IN_PROGRESS"
	CallStatusSkipped    FunctionCallStatus = "SKIPPED"
	CallStatusCanceled   FunctionCallStatus = "CANCELED"
	CallStatusUnknown    FunctionCallStatus = "UNKNOWN"
)

func CallStatusValues() []FunctionCallStatus {
	return []FunctionCallStatus{
		CallStatusSuccess, CallStatusError, CallStatusPending,
		CallStatusInProgress, CallStatusSkipped, CallStatusCanceled,
		CallStatusUnknown,
	}
}

func (s FunctionCallStatus) IsValid() bool {
	for _, v := range CallStatusValues() {
		if s == v {
			return true
		}
	}
	return false
}

// IsFinished reports whether the call has ended, successfully or not.
func (s FunctionCallStatus) IsFinished() bool {
	switch s {
	case CallStatusSuccess, CallStatusError, CallStatusSkipped, CallStatusCanceled:
		return true
	}
	return false
}
