// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package logger defines the leveled logging contract the workcell core logs
// through. Concrete cores live in subpackages; most code uses the global
// facade in logger/log.
package logger

import (
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/conf"
)

// Logger is the minimal leveled contract a logging core must satisfy.
type Logger interface {
	Logf(level conf.Level, format string, args ...interface{})
	Log(level conf.Level, args ...interface{})
	WithFields(fields map[string]interface{}) Logger
}
