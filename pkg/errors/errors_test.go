// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewErrorFluent(t *testing.T) {
	inner := stderrors.New("duplicate key value violates unique constraint")
	err := NewError().WithCode(CodeConflict).WithMessage("asset name taken").WithError(inner)

	assert.Equal(t, CodeConflict, err.Code)
	assert.Equal(t, "asset name taken", err.Message)
	assert.Same(t, inner, err.InnerError)
	assert.Contains(t, err.Error(), "asset name taken")
	assert.Contains(t, err.Error(), inner.Error())
	assert.NotEmpty(t, err.Stack, "stack must be captured at construction")
}

func TestWrapError(t *testing.T) {
	inner := stderrors.New("boom")
	err := WrapError(inner, "release failed", CodeRuntimeError)
	require.NotNil(t, err)
	assert.Equal(t, CodeRuntimeError, err.Code)
	assert.True(t, stderrors.Is(err, inner), "wrapped error must unwrap to inner")

	assert.Nil(t, WrapError(nil, "ignored", CodeInternalError))
}

func TestGetCodeThroughChain(t *testing.T) {
	err := NewError().WithCode(CodeNotFound).WithMessage("no such run")
	wrapped := fmt.Errorf("executor: %w", err)

	assert.Equal(t, CodeNotFound, GetCode(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
}

func TestGetCodeUncoded(t *testing.T) {
	assert.Equal(t, 0, GetCode(stderrors.New("plain")))
	assert.Equal(t, 0, GetCode(nil))
}

func TestStackStrings(t *testing.T) {
	err := NewError().WithMessage("x")
	top := err.GetTopStackString()
	assert.Contains(t, top, "errors_test.go")
	assert.Contains(t, err.GetStackString(), top)
}
