// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package ledger records what actually happened during a run: the function
// call log and the data outputs captured by those calls. Sequence numbers are
// caller-assigned and unique per run; a misbehaving orchestrator surfaces as
// a uniqueness conflict from the store rather than silent reordering.
package ledger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/constant"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	praxiserrors "github.com/maraxen/pylabpraxis-sub002/pkg/errors"
	"github.com/maraxen/pylabpraxis-sub002/pkg/reporting"
)

// Service owns the function call log and data output tables. The reporting
// service serves the bulk plate reads.
type Service struct {
	calls   database.FunctionCallFacadeInterface
	outputs database.DataOutputFacadeInterface
	assets  database.AssetFacadeInterface
	defs    database.DefinitionFacadeInterface
	reports *reporting.Service
	clock   accession.Clock
}

// NewService creates a ledger service.
func NewService(
	calls database.FunctionCallFacadeInterface,
	outputs database.DataOutputFacadeInterface,
	assets database.AssetFacadeInterface,
	defs database.DefinitionFacadeInterface,
	reports *reporting.Service,
	clock accession.Clock,
) *Service {
	if clock == nil {
		clock = accession.SystemClock{}
	}
	return &Service{calls: calls, outputs: outputs, assets: assets, defs: defs, reports: reports, clock: clock}
}

// CallStartRequest opens one function call log entry.
type CallStartRequest struct {
	ProtocolRunID        string
	FunctionDefinitionID string
	SequenceInRun        int
	InputArgs            model.JSONBag
	ParentCallID         *string
}

// LogCallStart inserts an IN_PROGRESS entry and returns its accession id.
func (s *Service) LogCallStart(ctx context.Context, req *CallStartRequest) (string, error) {
	if req.ProtocolRunID == "" || req.FunctionDefinitionID == "" {
		return "", praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("run id and function definition id are required")
	}
	call := &model.FunctionCallLog{
		AccessionID:                  accession.NewID(),
		ProtocolRunID:                req.ProtocolRunID,
		SequenceInRun:                req.SequenceInRun,
		ParentFunctionCallLogID:      req.ParentCallID,
		FunctionProtocolDefinitionID: req.FunctionDefinitionID,
		Status:                       constant.CallStatusInProgress,
		StartTime:                    s.clock.Now(),
		InputArgs:                    req.InputArgs,
	}
	if err := s.calls.Create(ctx, call); err != nil {
		return "", err
	}
	callsStarted.Inc()
	return call.AccessionID, nil
}

type callEndOpts struct {
	returnValue    json.RawMessage
	errorMessage   *string
	errorTraceback *string
	durationMS     *int64
}

// CallEndOption customizes one LogCallEnd call.
type CallEndOption func(*callEndOpts)

// WithReturnValue records the call's return payload.
func WithReturnValue(v json.RawMessage) CallEndOption {
	return func(o *callEndOpts) { o.returnValue = v }
}

// WithCallError records the failure message and traceback.
func WithCallError(message, traceback string) CallEndOption {
	return func(o *callEndOpts) {
		o.errorMessage = &message
		if traceback != "" {
			o.errorTraceback = &traceback
		}
	}
}

// WithDurationMS overrides the computed wall-clock duration.
func WithDurationMS(ms int64) CallEndOption {
	return func(o *callEndOpts) { o.durationMS = &ms }
}

// LogCallEnd closes a call entry. A missing call id returns (nil, nil); the
// duration is computed from the stamps unless supplied.
func (s *Service) LogCallEnd(ctx context.Context, callID string, status constant.FunctionCallStatus, opts ...CallEndOption) (*model.FunctionCallLog, error) {
	var o callEndOpts
	for _, opt := range opts {
		opt(&o)
	}

	call, err := s.calls.Get(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, nil
	}

	now := s.clock.Now()
	call.Status = status
	call.EndTime = &now
	if o.durationMS != nil {
		call.CompletedDurationMS = o.durationMS
	} else {
		ms := now.Sub(call.StartTime).Milliseconds()
		call.CompletedDurationMS = &ms
	}
	if o.returnValue != nil {
		call.ReturnValue = o.returnValue
	}
	call.ErrorMessage = o.errorMessage
	call.ErrorTraceback = o.errorTraceback

	if err := s.calls.Update(ctx, call); err != nil {
		return nil, err
	}
	callsFinished.WithLabelValues(string(status)).Inc()
	return call, nil
}

// GetCall returns one call entry, nil when missing.
func (s *Service) GetCall(ctx context.Context, callID string) (*model.FunctionCallLog, error) {
	return s.calls.Get(ctx, callID)
}

// ListCallsByRun returns the run's call log in sequence order.
func (s *Service) ListCallsByRun(ctx context.Context, runID string) ([]*model.FunctionCallLog, error) {
	return s.calls.ListByRun(ctx, runID)
}

// NextSequence returns the next free sequence number for the run. The first
// call of a run is sequence 0.
func (s *Service) NextSequence(ctx context.Context, runID string) (int, error) {
	max, hasCalls, err := s.calls.MaxSequenceForRun(ctx, runID)
	if err != nil {
		return 0, err
	}
	if !hasCalls {
		return 0, nil
	}
	return max + 1, nil
}

// CreateDataOutputRequest captures one measurement or artifact.
type CreateDataOutputRequest struct {
	FunctionCallLogID string
	ProtocolRunID     string
	DataType          constant.DataOutputType
	DataKey           string
	SpatialContext    constant.SpatialContext
	ResourceID        *string
	DeckPositionName  *string

	NumericValue *float64
	TextValue    *string
	BytesValue   []byte
	Units        *string

	// MeasuredAt defaults to the ledger clock.
	MeasuredAt *time.Time
	Metadata   model.JSONBag
}

// CreateFunctionDataOutput persists one output row. Exactly one value must
// be supplied; the facade rejects anything else.
func (s *Service) CreateFunctionDataOutput(ctx context.Context, req *CreateDataOutputRequest) (*model.FunctionDataOutput, error) {
	if !req.DataType.IsValid() {
		return nil, praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("invalid data output type %q", req.DataType)
	}
	if !req.SpatialContext.IsValid() {
		return nil, praxiserrors.NewError().
			WithCode(praxiserrors.CodeInvalidParameter).
			WithMessagef("invalid spatial context %q", req.SpatialContext)
	}

	measured := s.clock.Now()
	if req.MeasuredAt != nil {
		measured = *req.MeasuredAt
	}
	output := &model.FunctionDataOutput{
		AccessionID:       accession.NewID(),
		FunctionCallLogID: req.FunctionCallLogID,
		ProtocolRunID:     req.ProtocolRunID,
		DataType:          req.DataType,
		DataKey:           req.DataKey,
		SpatialContext:    req.SpatialContext,
		ResourceID:        req.ResourceID,
		DeckPositionName:  req.DeckPositionName,
		DataValueNumeric:  req.NumericValue,
		DataValueText:     req.TextValue,
		DataValueBytes:    req.BytesValue,
		DataUnits:         req.Units,
		MeasuredAt:        measured,
		Metadata:          req.Metadata,
	}
	if err := s.outputs.Create(ctx, output); err != nil {
		return nil, err
	}
	outputsRecorded.WithLabelValues(string(req.DataType)).Inc()
	return output, nil
}

// UpdateDataOutputMetadata patches the metadata of an existing output.
// Outputs are otherwise immutable.
func (s *Service) UpdateDataOutputMetadata(ctx context.Context, outputID string, metadata model.JSONBag) error {
	return s.outputs.UpdateFields(ctx, outputID, map[string]interface{}{
		"metadata_json": metadata,
	})
}

// ListDataOutputs lists outputs matching the filter.
func (s *Service) ListDataOutputs(ctx context.Context, filter *database.DataOutputFilter) ([]*model.FunctionDataOutput, error) {
	return s.outputs.List(ctx, filter)
}
