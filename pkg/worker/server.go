// Copyright (C) 2025-2026, Praxis Contributors. All rights reserved.
// See LICENSE for license information.

package worker

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/maraxen/pylabpraxis-sub002/pkg/accession"
	"github.com/maraxen/pylabpraxis-sub002/pkg/acquire"
	"github.com/maraxen/pylabpraxis-sub002/pkg/catalog"
	"github.com/maraxen/pylabpraxis-sub002/pkg/config"
	"github.com/maraxen/pylabpraxis-sub002/pkg/database"
	"github.com/maraxen/pylabpraxis-sub002/pkg/dispatch"
	"github.com/maraxen/pylabpraxis-sub002/pkg/executor"
	"github.com/maraxen/pylabpraxis-sub002/pkg/housekeeping"
	"github.com/maraxen/pylabpraxis-sub002/pkg/ledger"
	"github.com/maraxen/pylabpraxis-sub002/pkg/lock"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/conf"
	"github.com/maraxen/pylabpraxis-sub002/pkg/logger/log"
	"github.com/maraxen/pylabpraxis-sub002/pkg/reporting"
	"github.com/maraxen/pylabpraxis-sub002/pkg/runstate"
	"github.com/maraxen/pylabpraxis-sub002/pkg/server"
	"github.com/maraxen/pylabpraxis-sub002/pkg/sql"
	"github.com/maraxen/pylabpraxis-sub002/pkg/trace"
	"github.com/maraxen/pylabpraxis-sub002/pkg/workcell"
)

// Server is the fully wired worker process: database, catalog, runtime,
// executor, dispatch scheduler and housekeeping.
type Server struct {
	scheduler       *Scheduler
	keeper          *housekeeping.Keeper
	registry        *executor.ProtocolRegistry
	machineRegistry *workcell.Registry
	executor        *executor.Executor

	shutdownTrace func(context.Context) error
}

// NewServer loads configuration from configPath (or $PRAXIS_CONFIG when
// empty) and wires every component. The protocol registry is exposed so the
// caller can register executable protocols before Start.
func NewServer(configPath string) (*Server, error) {
	if err := config.LoadConfig(configPath); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := initLogger(); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := sql.InitDefault(sql.DatabaseConfig{
		Host:        config.GetDBHost(),
		Port:        config.GetDBPort(),
		UserName:    config.GetDBUser(),
		Password:    config.GetDBPassword(),
		DBName:      config.GetDBName(),
		SSLMode:     config.GetDBSSLMode(),
		LogMode:     config.GetDBLogMode(),
		TimeZone:    config.GetDBTimezone(),
		MaxIdleConn: config.GetDBMaxIdleConns(),
		MaxOpenConn: config.GetDBMaxOpenConns(),
	})
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}

	clock := accession.SystemClock{}
	assets := database.NewAssetFacade().WithDB(db)
	defs := database.NewDefinitionFacade().WithDB(db)
	protocols := database.NewProtocolDefinitionFacade().WithDB(db)
	runFacade := database.NewProtocolRunFacade().WithDB(db)
	calls := database.NewFunctionCallFacade().WithDB(db)
	outputs := database.NewDataOutputFacade().WithDB(db)
	tasks := database.NewWorkerTaskFacade().WithDB(db)

	cat := catalog.NewService(defs, protocols,
		time.Duration(config.GetCatalogCacheTTLSecond())*time.Second)
	if manifest := config.GetCatalogSeedManifest(); manifest != "" {
		if _, err := cat.SeedFromFile(context.Background(), manifest); err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
	}

	registry := workcell.NewRegistry()
	runtime, err := buildRuntime(assets, cat, registry, clock)
	if err != nil {
		return nil, err
	}

	// The reporting service shares the pool but reads through sqlx, not the
	// ORM; it serves the bulk plate reads behind the ledger.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("reporting pool: %w", err)
	}
	reports := reporting.NewService(sqlx.NewDb(sqlDB, sql.DriverNamePostgres), sq.Dollar)

	locks := lock.NewManager(assets, clock)
	runs := runstate.NewService(runFacade, clock)
	ldg := ledger.NewService(calls, outputs, assets, defs, reports, clock)
	acquirer := acquire.NewService(assets, cat, locks, runtime)

	protocolRegistry := executor.NewProtocolRegistry()
	orchestrator := executor.NewSequentialOrchestrator(protocolRegistry, runs, ldg, acquirer, protocols)
	exec := executor.New(&executor.ExecutionContext{
		Runs:         runs,
		Orchestrator: orchestrator,
		Locks:        locks,
		Clock:        clock,
	})

	queue := dispatch.NewQueue(tasks, clock)
	scheduler := NewScheduler(queue, exec, Options{
		Topics:        []string{config.GetWorkerTopic()},
		Concurrency:   config.GetWorkerConcurrency(),
		ClaimInterval: time.Duration(config.GetWorkerClaimIntervalMS()) * time.Millisecond,
		ShutdownGrace: time.Duration(config.GetWorkerShutdownGraceSecond()) * time.Second,
	})

	srv := &Server{
		scheduler:       scheduler,
		registry:        protocolRegistry,
		machineRegistry: registry,
		executor:        exec,
	}

	if config.IsHousekeepingEnabled() {
		sweepRuns := runs
		sweepSchedule := config.GetStuckRunSweepSchedule()
		if !config.IsStuckRunSweepEnabled() {
			sweepRuns = nil
			sweepSchedule = ""
		}
		srv.keeper = housekeeping.NewKeeper(queue, locks, sweepRuns, assets, clock, housekeeping.Options{
			DispatchTimeoutSchedule:   config.GetDispatchTimeoutSchedule(),
			DispatchRetentionSchedule: config.GetDispatchRetentionSchedule(),
			TaskRetention:             time.Duration(config.GetDispatchRetentionHour()) * time.Hour,
			LockReconcileSchedule:     config.GetLockReconcileSchedule(),
			StuckRunSweepSchedule:     sweepSchedule,
			StuckRunHorizon:           time.Duration(config.GetStuckRunHorizonMinute()) * time.Minute,
		})
	}

	if config.IsTraceEnabled() {
		shutdown, err := trace.Init(context.Background(), &trace.Options{
			ServiceName: config.GetTraceServiceName(),
			Endpoint:    config.GetTraceEndpoint(),
			SampleRatio: config.GetTraceSampleRatio(),
			Timeout:     time.Duration(config.GetTraceTimeoutSecond()) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		srv.shutdownTrace = shutdown
	}

	return srv, nil
}

// ProtocolRegistry is where callers register executable protocols before
// Start.
func (s *Server) ProtocolRegistry() *executor.ProtocolRegistry {
	return s.registry
}

// MachineRegistry registers runtime constructors for machine classes. Only
// meaningful in simulated mode; the remote runtime resolves classes on the
// gateway side.
func (s *Server) MachineRegistry() *workcell.Registry {
	return s.machineRegistry
}

// Start runs the worker until a stop signal, then shuts components down in
// reverse order.
func (s *Server) Start(ctx context.Context) error {
	if config.IsHealthCheckEnabled() {
		server.AddDefaultRegister("/health", func() (interface{}, error) {
			return s.executor.HealthCheck(), nil
		})
		server.InitHealthServer(config.GetHealthCheckPort())
	}

	if s.keeper != nil {
		if err := s.keeper.Start(ctx); err != nil {
			return fmt.Errorf("start housekeeping: %w", err)
		}
	}

	err := s.scheduler.Run(ctx)

	if s.keeper != nil {
		s.keeper.Stop()
	}
	if s.shutdownTrace != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if traceErr := s.shutdownTrace(flushCtx); traceErr != nil {
			log.Warnf("trace shutdown: %v", traceErr)
		}
	}
	return err
}

func initLogger() error {
	c := conf.DefaultConfig()
	c.Level = conf.ParseLevel(config.GetLogLevel())
	c.Formatter = conf.Formatter(config.GetLogFormatter())
	c.Output = conf.Output(config.GetLogOutput())
	c.File.Path = config.GetLogFilePath()
	c.File.MaxSizeMB = config.GetLogMaxSizeMB()
	c.File.MaxBackups = config.GetLogMaxBackups()
	c.File.MaxAgeDays = config.GetLogMaxAgeDays()
	return log.InitGlobalLogger(c)
}

func buildRuntime(assets database.AssetFacadeInterface, cat *catalog.Service, registry *workcell.Registry, clock accession.Clock) (workcell.Runtime, error) {
	switch mode := config.GetRuntimeMode(); mode {
	case "simulated":
		return workcell.NewSimulatedRuntime(assets, cat, registry, nil, clock), nil
	case "remote":
		url := config.GetRuntimeGatewayURL()
		if url == "" {
			return nil, fmt.Errorf("runtime.mode is remote but runtime.gateway_url is unset")
		}
		return workcell.NewRemoteRuntime(url,
			time.Duration(config.GetRuntimeTimeoutSecond())*time.Second,
			config.GetRuntimeMaxRetries()), nil
	default:
		return nil, fmt.Errorf("unknown runtime.mode %q", mode)
	}
}
