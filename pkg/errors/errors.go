// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package errors carries the coded error type used across the workcell core.
// Errors capture the stack at construction so failures deep in a facade or
// service are attributable without re-wrapping at every layer.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Error is a coded error with stack trace and optional inner error.
type Error struct {
	Stack      []runtime.Frame
	InnerError error
	Code       int
	Message    string
}

// NewError returns an Error with the caller's stack captured.
func NewError() *Error {
	return &Error{Stack: callers()}
}

// WrapError wraps err with a message and code, preserving err as the inner
// error. A nil err yields nil.
func WrapError(err error, message string, code int) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Stack:      callers(),
		InnerError: err,
		Code:       code,
		Message:    message,
	}
}

func (e *Error) Error() string {
	if e.InnerError == nil {
		return fmt.Sprintf("code %d message %s", e.Code, e.Message)
	}
	return fmt.Sprintf("error %s code %d message %s", e.InnerError.Error(), e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.InnerError
}

// WithCode sets the error code and returns the Error for chaining.
func (e *Error) WithCode(code int) *Error {
	e.Code = code
	return e
}

// WithMessage sets the message and returns the Error for chaining.
func (e *Error) WithMessage(message string) *Error {
	e.Message = message
	return e
}

// WithMessagef formats and sets the message and returns the Error for chaining.
func (e *Error) WithMessagef(format string, args ...interface{}) *Error {
	e.Message = fmt.Sprintf(format, args...)
	return e
}

// WithError sets the inner error and returns the Error for chaining.
func (e *Error) WithError(err error) *Error {
	e.InnerError = err
	return e
}

// GetTopStackString returns the innermost captured frame as "file:line func".
func (e *Error) GetTopStackString() string {
	if len(e.Stack) == 0 {
		return ""
	}
	return frameString(e.Stack[0])
}

// GetStackString returns the captured stack, one frame per line.
func (e *Error) GetStackString() string {
	var b strings.Builder
	for _, frame := range e.Stack {
		b.WriteString(frameString(frame))
		b.WriteByte('\n')
	}
	return b.String()
}

func frameString(frame runtime.Frame) string {
	funcName := frame.Function
	if i := strings.LastIndex(funcName, "/"); i >= 0 {
		funcName = funcName[i+1:]
	}
	return fmt.Sprintf("%s:%d %s", frame.File, frame.Line, funcName)
}

// GetCode extracts the code from an *Error anywhere in err's chain.
// Returns 0 when the chain carries no coded error.
func GetCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code int) bool {
	return GetCode(err) == code
}

// IsNotFound reports whether err is a coded not-found error.
func IsNotFound(err error) bool {
	return IsCode(err, CodeNotFound)
}

// IsConflict reports whether err is a coded conflict error.
func IsConflict(err error) bool {
	return IsCode(err, CodeConflict)
}

func callers() []runtime.Frame {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	out := make([]runtime.Frame, 0, n)
	for {
		frame, more := frames.Next()
		out = append(out, frame)
		if !more {
			break
		}
	}
	return out
}
