// Package main is the entry point for the Market Doctor diagnostics daemon.
// On a recurring schedule it scores the configured symbol universe across
// timeframes, persists one diagnostic snapshot per (symbol, timeframe),
// grades older snapshots against the bars that followed them and, once
// enough graded history exists, recalibrates the scoring weights.
//
// The daemon uses a 2-database architecture:
// - market.db: OHLCV bars (rewritable time series, fed out of band)
// - diagnostics.db: snapshots, outcomes and weight configurations (audit trail)
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketdoctor/internal/config"
	"github.com/aristath/marketdoctor/internal/database"
	"github.com/aristath/marketdoctor/internal/modules/anomaly"
	"github.com/aristath/marketdoctor/internal/modules/calibration"
	"github.com/aristath/marketdoctor/internal/modules/marketdata"
	"github.com/aristath/marketdoctor/internal/modules/report"
	"github.com/aristath/marketdoctor/internal/modules/scoring"
	"github.com/aristath/marketdoctor/internal/modules/snapshots"
	"github.com/aristath/marketdoctor/internal/ops"
	"github.com/aristath/marketdoctor/internal/reliability"
	"github.com/aristath/marketdoctor/internal/runner"
	"github.com/aristath/marketdoctor/internal/scheduler"
	"github.com/aristath/marketdoctor/internal/server"
	"github.com/aristath/marketdoctor/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Market Doctor")

	// 1. market.db - OHLCV bars
	marketDB, err := database.New(database.Config{
		Path:    cfg.MarketDBPath(),
		Profile: database.ProfileStandard,
		Name:    "market",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize market database")
	}
	defer marketDB.Close()

	// 2. diagnostics.db - snapshots, outcomes, weights
	diagnosticsDB, err := database.New(database.Config{
		Path:    cfg.DiagnosticsDBPath(),
		Profile: database.ProfileLedger, // Maximum safety for the graded audit trail
		Name:    "diagnostics",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize diagnostics database")
	}
	defer diagnosticsDB.Close()

	// Apply schemas (each module owns its tables)
	if err := marketdata.InitSchema(marketDB.Conn()); err != nil {
		log.Fatal().Err(err).Str("database", marketDB.Name()).Msg("Failed to apply schema")
	}
	if err := snapshots.InitSchema(diagnosticsDB.Conn()); err != nil {
		log.Fatal().Err(err).Str("database", diagnosticsDB.Name()).Msg("Failed to apply schema")
	}
	if err := calibration.InitSchema(diagnosticsDB.Conn()); err != nil {
		log.Fatal().Err(err).Str("database", diagnosticsDB.Name()).Msg("Failed to apply schema")
	}

	// Repositories
	barRepo := marketdata.NewSQLiteBarRepository(marketDB.Conn(), log)
	snapRepo := snapshots.NewRepository(diagnosticsDB.Conn(), log)
	weightsRepo := calibration.NewWeightsRepository(diagnosticsDB.Conn(), log)

	// Scoring engine seeded with the active weight vector. Calibration runs
	// swap the vector in place later via Activate.
	activeWeights, err := weightsRepo.GetActiveWeights(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load active scoring weights")
	}
	engine, err := scoring.NewEngine(cfg.Thresholds, activeWeights, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build scoring engine")
	}

	// The live exchange fetcher is an external collaborator: bars land in
	// market.db out of band and derivatives stay absent until a feed sets
	// them. Spot prices fall back to the last stored close.
	derivs := marketdata.NewStaticProvider()

	run, err := runner.New(cfg, runner.Deps{
		Bars:      barRepo,
		Derivs:    derivs,
		Engine:    engine,
		Snapshots: snapRepo,
		Detector:  anomaly.NewDetector(snapRepo, log),
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build diagnostic runner")
	}

	probe := ops.NewProbe(cfg.DataDir, log)

	databases := map[string]*sql.DB{
		marketDB.Name():      marketDB.Conn(),
		diagnosticsDB.Name(): diagnosticsDB.Conn(),
	}

	// Optional S3-compatible backup target
	var backupSvc *reliability.BackupService
	if cfg.S3.Enabled {
		store, err := reliability.NewS3Client(context.Background(),
			cfg.S3.Endpoint, cfg.S3.Region, cfg.S3.AccessKey, cfg.S3.SecretKey, cfg.S3.Bucket, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize backup storage")
		}
		backupSvc = reliability.NewBackupService(store, databases, cfg.DataDir, log)
	}

	// Register background jobs, then start firing schedules
	sched := scheduler.New(log)
	if err := registerJobs(sched, jobDeps{
		cfg:       cfg,
		runner:    run,
		evaluator: snapshots.NewEvaluator(barRepo, snapRepo, log),
		analyzer:  calibration.NewAnalyzer(snapRepo, log),
		weights:   weightsRepo,
		engine:    engine,
		snaps:     snapRepo,
		archive:   report.NewArchive(cfg.ExportDir(), log),
		backup:    backupSvc,
		databases: databases,
		probe:     probe,
		log:       log,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP status server
	srv := server.New(server.Config{
		Port:      cfg.Port,
		Log:       log,
		Snapshots: snapRepo,
		Weights:   weightsRepo,
		Probe:     probe,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown: the HTTP server gets 10 seconds to drain, then the
	// deferred scheduler stop waits for running jobs before the databases
	// close.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// jobDeps bundles the wired services the background jobs run against.
type jobDeps struct {
	cfg       *config.Config
	runner    *runner.Runner
	evaluator *snapshots.Evaluator
	analyzer  *calibration.Analyzer
	weights   *calibration.WeightsRepository
	engine    *scoring.Engine
	snaps     *snapshots.Repository
	archive   *report.Archive
	backup    *reliability.BackupService // nil disables the backup job
	databases map[string]*sql.DB
	probe     *ops.Probe
	log       zerolog.Logger
}

func registerJobs(sched *scheduler.Scheduler, d jobDeps) error {
	cfg := d.cfg

	diagnose := scheduler.NewDiagnoseJob(d.runner, d.log)
	if err := sched.AddJob(cfg.DiagnoseSchedule, diagnose); err != nil {
		return fmt.Errorf("failed to register diagnose job: %w", err)
	}

	outcomes := scheduler.NewOutcomeJob(d.evaluator, cfg.Thresholds.OutcomeHorizonHours, d.log)
	if err := sched.AddJob(cfg.OutcomeSchedule, outcomes); err != nil {
		return fmt.Errorf("failed to register outcomes job: %w", err)
	}

	calibrate := scheduler.NewCalibrateJob(scheduler.CalibrateConfig{
		Analyzer:         d.analyzer,
		Weights:          d.weights,
		Engine:           d.engine,
		TargetTimeframes: cfg.TargetTimeframes,
		HorizonHours:     cfg.Thresholds.OutcomeHorizonHours,
		Symbols:          len(cfg.Symbols),
		AutoApply:        cfg.CalibrationAutoApply,
		MinSamples:       cfg.CalibrationMinSamples,
		LookbackDays:     cfg.CalibrationLookbackDays,
		Log:              d.log,
	})
	if err := sched.AddJob(cfg.CalibrationSchedule, calibrate); err != nil {
		return fmt.Errorf("failed to register calibrate job: %w", err)
	}

	export := scheduler.NewExportJob(d.snaps, d.archive, d.log)
	if err := sched.AddJob(cfg.ExportSchedule, export); err != nil {
		return fmt.Errorf("failed to register export job: %w", err)
	}

	health := scheduler.NewHealthJob(d.databases, d.probe, d.log)
	if err := sched.AddJob(cfg.HealthSchedule, health); err != nil {
		return fmt.Errorf("failed to register health job: %w", err)
	}

	if d.backup != nil {
		backup := scheduler.NewBackupJob(d.backup, cfg.S3.RetentionDays, d.log)
		if err := sched.AddJob(cfg.BackupSchedule, backup); err != nil {
			return fmt.Errorf("failed to register backup job: %w", err)
		}
	}

	return nil
}
