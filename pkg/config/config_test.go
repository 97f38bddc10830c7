// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	require.NoError(t, LoadConfig("./test.yaml"))

	assert.Equal(t, "db.praxis.local", GetDBHost())
	assert.Equal(t, 5433, GetDBPort())
	assert.Equal(t, "praxis_test", GetDBName())
	assert.Equal(t, "praxis_test", GetDBUser())
	assert.Equal(t, "tester", GetDBPassword())
	assert.Equal(t, 20, GetDBMaxOpenConns())

	// unset keys fall back to defaults
	assert.Equal(t, 10, GetDBMaxIdleConns())
	assert.Equal(t, "disable", GetDBSSLMode())
	assert.Equal(t, "UTC", GetDBTimezone())

	assert.Equal(t, 2, GetWorkerConcurrency())
	assert.Equal(t, "protocol_execution_test", GetWorkerTopic())
	assert.Equal(t, 100, GetWorkerClaimIntervalMS())
	assert.Equal(t, 30, GetWorkerShutdownGraceSecond())

	assert.Equal(t, 60, GetDispatchTaskTimeoutSecond())
	assert.Equal(t, 5, GetDispatchMaxRetries())
	assert.Equal(t, 168, GetDispatchRetentionHour())

	assert.True(t, IsHealthCheckEnabled())
	assert.Equal(t, 9091, GetHealthCheckPort())

	assert.Equal(t, "debug", GetLogLevel())
	assert.Equal(t, "json", GetLogFormatter())
	assert.Equal(t, "stdout", GetLogOutput())

	assert.Equal(t, "remote", GetRuntimeMode())
	assert.Equal(t, "http://gateway.praxis.local:7070", GetRuntimeGatewayURL())
	assert.Equal(t, 10, GetRuntimeTimeoutSecond())

	assert.Equal(t, "./testdata/definitions.yaml", GetCatalogSeedManifest())
	assert.Equal(t, 5, GetCatalogCacheTTLSecond())

	assert.False(t, IsHousekeepingEnabled())
	assert.Equal(t, "@every 30s", GetLockReconcileSchedule())
	assert.Equal(t, "@every 1m", GetDispatchTimeoutSchedule())
}

func TestGetDBPasswordFromSecretFile(t *testing.T) {
	require.NoError(t, LoadConfig("./test.yaml"))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "password"), []byte("s3cret\n"), 0o600))
	SetValue(dbSecretPath, dir)
	defer SetValue(dbSecretPath, "")

	assert.Equal(t, "s3cret", GetDBPassword(), "secret file wins over config value")

	// items absent from the secret dir fall through to config values
	assert.Equal(t, "db.praxis.local", GetDBHost())
}

func TestRemoveBlank(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, removeBlank([]string{" a", "", "b ", "  "}))
	assert.Nil(t, removeBlank([]string{"", " "}))
}
