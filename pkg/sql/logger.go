// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package sql

import (
	"context"
	"time"

	"gorm.io/gorm/logger"
)

// NullLogger silences gorm's own logging; query errors reach callers as
// return values and are logged where they are handled.
type NullLogger struct{}

func (n NullLogger) LogMode(logger.LogLevel) logger.Interface {
	return n
}

func (n NullLogger) Info(context.Context, string, ...interface{}) {}

func (n NullLogger) Warn(context.Context, string, ...interface{}) {}

func (n NullLogger) Error(context.Context, string, ...interface{}) {}

func (n NullLogger) Trace(context.Context, time.Time, func() (string, int64), error) {}
