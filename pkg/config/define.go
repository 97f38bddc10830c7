// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package config

const (
	// database
	dbPrefix            = "database."
	dbHost              = dbPrefix + "host"
	dbPort              = dbPrefix + "port"
	dbName              = dbPrefix + "dbname"
	dbUser              = dbPrefix + "user"
	dbPassword          = dbPrefix + "password"
	dbSecretPath        = dbPrefix + "secret_path"
	dbSSLMode           = dbPrefix + "ssl_mode"
	dbLogMode           = dbPrefix + "log_mode"
	dbTimezone          = dbPrefix + "timezone"
	dbMaxOpenConns      = dbPrefix + "max_open_conns"
	dbMaxIdleConns      = dbPrefix + "max_idle_conns"
	dbMaxLifetimeSecond = dbPrefix + "max_lifetime_second"
	dbMaxIdleTimeSecond = dbPrefix + "max_idle_time_second"

	// worker
	workerPrefix              = "worker."
	workerConcurrency         = workerPrefix + "concurrency"
	workerTopic               = workerPrefix + "topic"
	workerClaimIntervalMS     = workerPrefix + "claim_interval_ms"
	workerShutdownGraceSecond = workerPrefix + "shutdown_grace_second"

	// dispatch
	dispatchPrefix            = "dispatch."
	dispatchTaskTimeoutSecond = dispatchPrefix + "task_timeout_second"
	dispatchMaxRetries        = dispatchPrefix + "max_retries"
	dispatchRetentionHour     = dispatchPrefix + "retention_hour"

	// health_check
	healthCheckPrefix = "health_check."
	healthCheckEnable = healthCheckPrefix + "enable"
	healthCheckPort   = healthCheckPrefix + "port"

	// log
	logPrefix     = "log."
	logLevel      = logPrefix + "level"
	logFormatter  = logPrefix + "formatter"
	logOutput     = logPrefix + "output"
	logFilePath   = logPrefix + "file_path"
	logMaxSizeMB  = logPrefix + "max_size_mb"
	logMaxBackups = logPrefix + "max_backups"
	logMaxAgeDays = logPrefix + "max_age_days"

	// trace
	tracePrefix        = "trace."
	traceEnable        = tracePrefix + "enable"
	traceServiceName   = tracePrefix + "service_name"
	traceEndpoint      = tracePrefix + "endpoint"
	traceSampleRatio   = tracePrefix + "sample_ratio"
	traceTimeoutSecond = tracePrefix + "timeout_second"

	// runtime
	runtimePrefix        = "runtime."
	runtimeMode          = runtimePrefix + "mode"
	runtimeGatewayURL    = runtimePrefix + "gateway_url"
	runtimeTimeoutSecond = runtimePrefix + "timeout_second"
	runtimeMaxRetries    = runtimePrefix + "max_retries"

	// catalog
	catalogPrefix         = "catalog."
	catalogSeedManifest   = catalogPrefix + "seed_manifest"
	catalogCacheTTLSecond = catalogPrefix + "cache_ttl_second"

	// housekeeping
	housekeepingPrefix        = "housekeeping."
	housekeepingEnable        = housekeepingPrefix + "enable"
	dispatchTimeoutSchedule   = housekeepingPrefix + "dispatch_timeout_schedule"
	dispatchRetentionSchedule = housekeepingPrefix + "dispatch_retention_schedule"
	lockReconcileSchedule     = housekeepingPrefix + "lock_reconcile_schedule"
	stuckRunSweepEnable       = housekeepingPrefix + "stuck_run_sweep_enable"
	stuckRunSweepSchedule     = housekeepingPrefix + "stuck_run_sweep_schedule"
	stuckRunHorizonMinute     = housekeepingPrefix + "stuck_run_horizon_minute"
)
