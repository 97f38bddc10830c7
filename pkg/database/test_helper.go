// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package database

import (
	"context"
	"testing"

	"github.com/maraxen/pylabpraxis-sub002/pkg/database/model"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestHelper provides common test utilities for database tests.
type TestHelper struct {
	DB *gorm.DB
	T  *testing.T
}

// NewTestHelper creates a new TestHelper with an in-memory SQLite database.
func NewTestHelper(t *testing.T) *TestHelper {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "Failed to open SQLite database")

	// Every additional pool connection to :memory: is a separate empty
	// database; pin the pool to one connection so the schema is shared.
	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying sql.DB")
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&model.Workcell{},
		&model.Asset{},
		&model.ResourceDefinition{},
		&model.MachineDefinition{},
		&model.DeckDefinition{},
		&model.DeckPositionDefinition{},
		&model.FunctionProtocolDefinition{},
		&model.ProtocolRun{},
		&model.FunctionCallLog{},
		&model.FunctionDataOutput{},
		&model.WellDataOutput{},
		&model.WorkerTask{},
	)
	require.NoError(t, err, "Failed to auto-migrate models")

	return &TestHelper{
		DB: db,
		T:  t,
	}
}

// Cleanup closes the database connection.
func (h *TestHelper) Cleanup() {
	sqlDB, err := h.DB.DB()
	if err == nil {
		sqlDB.Close()
	}
}

// CreateTestContext creates a test context.
func (h *TestHelper) CreateTestContext() context.Context {
	return context.Background()
}

// TruncateTable truncates a table for clean test state.
func (h *TestHelper) TruncateTable(tableName string) {
	h.DB.Exec("DELETE FROM " + tableName)
}

// Count returns the number of records in a table.
func (h *TestHelper) Count(tableName string) int64 {
	var count int64
	h.DB.Table(tableName).Count(&count)
	return count
}
