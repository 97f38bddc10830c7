// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

// Package config exposes typed getters over a viper-loaded YAML file.
// Every getter carries its default so services never reason about missing
// keys. Credentials may be mounted as files under database.secret_path.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// EnvConfigPath names the environment variable pointing at the config file
// when LoadConfig is called with an empty path.
const EnvConfigPath = "PRAXIS_CONFIG"

func SetValue(key, value string) {
	viper.Set(key, value)
}

// LoadConfig reads the YAML config at path, or at $PRAXIS_CONFIG when path
// is empty. A missing file with no explicit path is not an error; all
// getters fall back to their defaults.
func LoadConfig(path string) error {
	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	return viper.ReadInConfig()
}

func getString(key, defaultValue string) string {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetString(key)
}

func getBool(key string, defaultValue bool) bool {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetBool(key)
}

func getInt(key string, defaultValue int) int {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetInt(key)
}

func getStrings(key string) []string {
	val := viper.GetString(key)
	return removeBlank(strings.Split(val, ","))
}

func removeBlank(slice []string) []string {
	var result []string
	for _, val := range slice {
		if trim := strings.TrimSpace(val); trim != "" {
			result = append(result, trim)
		}
	}
	return result
}

// getFromFile reads one credential item from the directory configured at
// configPath. Returns "" when the path is unset or the item is absent.
func getFromFile(configPath, item string) string {
	path := getString(configPath, "")
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(filepath.Join(path, item))
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(data), "\r\n")
}

// database

func GetDBHost() string {
	if v := getFromFile(dbSecretPath, "host"); v != "" {
		return v
	}
	return getString(dbHost, "localhost")
}

func GetDBPort() int {
	if v := getFromFile(dbSecretPath, "port"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			return port
		}
	}
	return getInt(dbPort, 5432)
}

func GetDBName() string {
	if v := getFromFile(dbSecretPath, "dbname"); v != "" {
		return v
	}
	return getString(dbName, "praxis")
}

func GetDBUser() string {
	if v := getFromFile(dbSecretPath, "user"); v != "" {
		return v
	}
	return getString(dbUser, "praxis")
}

func GetDBPassword() string {
	if v := getFromFile(dbSecretPath, "password"); v != "" {
		return v
	}
	return getString(dbPassword, "")
}

func GetDBSSLMode() string {
	return getString(dbSSLMode, "disable")
}

func GetDBLogMode() bool {
	return getBool(dbLogMode, false)
}

func GetDBTimezone() string {
	return getString(dbTimezone, "UTC")
}

func GetDBMaxOpenConns() int {
	return getInt(dbMaxOpenConns, 40)
}

func GetDBMaxIdleConns() int {
	return getInt(dbMaxIdleConns, 10)
}

func GetDBMaxLifetimeSecond() int {
	return getInt(dbMaxLifetimeSecond, 300)
}

func GetDBMaxIdleTimeSecond() int {
	return getInt(dbMaxIdleTimeSecond, 120)
}

// worker

func GetWorkerConcurrency() int {
	return getInt(workerConcurrency, 4)
}

func GetWorkerTopic() string {
	return getString(workerTopic, "protocol_execution")
}

func GetWorkerClaimIntervalMS() int {
	return getInt(workerClaimIntervalMS, 500)
}

func GetWorkerShutdownGraceSecond() int {
	return getInt(workerShutdownGraceSecond, 30)
}

// dispatch

func GetDispatchTaskTimeoutSecond() int {
	return getInt(dispatchTaskTimeoutSecond, 300)
}

func GetDispatchMaxRetries() int {
	return getInt(dispatchMaxRetries, 3)
}

func GetDispatchRetentionHour() int {
	return getInt(dispatchRetentionHour, 168)
}

// health check

func IsHealthCheckEnabled() bool {
	return getBool(healthCheckEnable, true)
}

func GetHealthCheckPort() int {
	return getInt(healthCheckPort, 8081)
}

// log

func GetLogLevel() string {
	return getString(logLevel, "info")
}

func GetLogFormatter() string {
	return getString(logFormatter, "console")
}

func GetLogOutput() string {
	return getString(logOutput, "stdout")
}

func GetLogFilePath() string {
	return getString(logFilePath, "praxis.log")
}

func GetLogMaxSizeMB() int {
	return getInt(logMaxSizeMB, 100)
}

func GetLogMaxBackups() int {
	return getInt(logMaxBackups, 5)
}

func GetLogMaxAgeDays() int {
	return getInt(logMaxAgeDays, 14)
}

// trace

func IsTraceEnabled() bool {
	return getBool(traceEnable, false)
}

func GetTraceServiceName() string {
	return getString(traceServiceName, "praxis-worker")
}

func GetTraceEndpoint() string {
	return getString(traceEndpoint, "localhost:4317")
}

func GetTraceSampleRatio() float64 {
	if !viper.IsSet(traceSampleRatio) {
		return 1.0
	}
	return viper.GetFloat64(traceSampleRatio)
}

func GetTraceTimeoutSecond() int {
	return getInt(traceTimeoutSecond, 10)
}

// runtime

func GetRuntimeMode() string {
	return getString(runtimeMode, "simulated")
}

func GetRuntimeGatewayURL() string {
	return getString(runtimeGatewayURL, "")
}

func GetRuntimeTimeoutSecond() int {
	return getInt(runtimeTimeoutSecond, 30)
}

func GetRuntimeMaxRetries() int {
	return getInt(runtimeMaxRetries, 3)
}

// catalog

func GetCatalogSeedManifest() string {
	return getString(catalogSeedManifest, "")
}

func GetCatalogCacheTTLSecond() int {
	return getInt(catalogCacheTTLSecond, 60)
}

// housekeeping

func IsHousekeepingEnabled() bool {
	return getBool(housekeepingEnable, true)
}

func GetDispatchTimeoutSchedule() string {
	return getString(dispatchTimeoutSchedule, "@every 1m")
}

func GetDispatchRetentionSchedule() string {
	return getString(dispatchRetentionSchedule, "@every 1h")
}

func GetLockReconcileSchedule() string {
	return getString(lockReconcileSchedule, "@every 5m")
}

func IsStuckRunSweepEnabled() bool {
	return getBool(stuckRunSweepEnable, false)
}

func GetStuckRunSweepSchedule() string {
	return getString(stuckRunSweepSchedule, "@every 10m")
}

func GetStuckRunHorizonMinute() int {
	return getInt(stuckRunHorizonMinute, 120)
}
