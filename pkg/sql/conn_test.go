// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package sql

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func resetConnPools() {
	connPoolLock.Lock()
	defer connPoolLock.Unlock()
	connPools = map[string]*gorm.DB{}
}

func TestDatabaseConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  DatabaseConfig
		wantErr bool
	}{
		{
			name:    "valid postgres config",
			config:  DatabaseConfig{Host: "localhost", Port: 5432, DBName: "praxis"},
			wantErr: false,
		},
		{
			name:    "missing host",
			config:  DatabaseConfig{Port: 5432, DBName: "praxis"},
			wantErr: true,
		},
		{
			name:    "missing port",
			config:  DatabaseConfig{Host: "localhost", DBName: "praxis"},
			wantErr: true,
		},
		{
			name:    "missing dbname",
			config:  DatabaseConfig{Host: "localhost", Port: 5432},
			wantErr: true,
		},
		{
			name:    "sqlite needs only a dsn",
			config:  DatabaseConfig{Driver: DriverNameSQLite, DBName: ":memory:"},
			wantErr: false,
		},
		{
			name:    "sqlite without dsn",
			config:  DatabaseConfig{Driver: DriverNameSQLite},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.Equal(t, errInvalidConfig, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestInitGormDBSQLite(t *testing.T) {
	resetConnPools()

	db, err := InitGormDB("test", DatabaseConfig{Driver: DriverNameSQLite, DBName: ":memory:"})
	require.NoError(t, err)
	require.NotNil(t, db)

	// same key returns the pooled instance
	again, err := InitGormDB("test", DatabaseConfig{Driver: DriverNameSQLite, DBName: ":memory:"})
	require.NoError(t, err)
	assert.Same(t, db, again)

	assert.Same(t, db, GetDB("test"))
	assert.Nil(t, GetDB("unknown"))
}

func TestGetDefaultDB(t *testing.T) {
	resetConnPools()
	assert.Nil(t, GetDefaultDB())

	db, err := InitDefault(DatabaseConfig{Driver: DriverNameSQLite, DBName: ":memory:"})
	require.NoError(t, err)
	assert.Same(t, db, GetDefaultDB())
}

func TestPostgresDSN(t *testing.T) {
	dsn := BuildPostgresDSN(DatabaseConfig{
		Host:     "db.praxis.local",
		Port:     5432,
		UserName: "praxis",
		Password: "pw",
		DBName:   "praxis",
	})
	assert.Equal(t, "host=db.praxis.local user=praxis password=pw dbname=praxis port=5432 sslmode=disable TimeZone=UTC", dsn)
}

func TestGetDBConcurrency(t *testing.T) {
	resetConnPools()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = GetDB("test")
			_ = GetDefaultDB()
		}()
	}
	wg.Wait()
}

func TestNullLogger(t *testing.T) {
	n := NullLogger{}
	assert.IsType(t, NullLogger{}, n.LogMode(logger.Info))
	assert.NotPanics(t, func() {
		n.Info(nil, "msg %s", "x")
		n.Warn(nil, "msg")
		n.Error(nil, "msg")
	})
}
