package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/aetherquant/internal/config"
	"github.com/aristath/aetherquant/internal/database"
	"github.com/aristath/aetherquant/internal/marketdata"
	"github.com/aristath/aetherquant/internal/modules/portfolio"
	"github.com/aristath/aetherquant/internal/modules/runs"
	"github.com/aristath/aetherquant/internal/modules/strategies"
	"github.com/aristath/aetherquant/internal/reliability"
	"github.com/aristath/aetherquant/internal/scheduler"
	"github.com/aristath/aetherquant/internal/server"
	"github.com/aristath/aetherquant/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootstrapLog := logger.New(logger.Config{Level: "info", Pretty: true})
		bootstrapLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("env", cfg.Env).Msg("Starting AetherQuant")

	// Initialize the run-history database
	db, err := database.New(database.Config{
		Path:    cfg.RunsDatabasePath(),
		Profile: database.ProfileLedger,
		Name:    "runs",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	runsRepo := runs.NewRepository(db.Conn(), log)
	if err := runsRepo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize run schema")
	}

	// Market data comes from per-symbol CSV files in the data directory
	provider, err := marketdata.NewCSVProvider(cfg.DataDir, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize market data provider")
	}

	// Initialize scheduler
	sched := scheduler.New(log)
	sched.Start()
	defer sched.Stop()

	if err := registerJobs(sched, db, cfg, provider, runsRepo, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}

	// Initialize HTTP server
	srv := server.New(server.Config{
		Log:      log,
		Config:   cfg,
		Provider: provider,
		Runs:     runsRepo,
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func registerJobs(
	sched *scheduler.Scheduler,
	db *database.DB,
	cfg *config.Config,
	provider marketdata.Provider,
	runsRepo *runs.Repository,
	log zerolog.Logger,
) error {
	// Daily maintenance at 2 AM
	maintenance := reliability.NewMaintenanceJob(db, cfg.DataDir, log)
	if err := sched.AddJob("0 0 2 * * *", maintenance); err != nil {
		return err
	}

	// Recurring backtest of the default symbol, when scheduled
	if cfg.BacktestSchedule != "" {
		portfolioCfg, err := portfolio.NewConfig(cfg.InitialCash, cfg.CommissionBps)
		if err != nil {
			return err
		}
		backtestJob := scheduler.NewBacktestJob(
			provider,
			runsRepo,
			cfg.DefaultSymbol,
			"1y",
			strategies.DefaultMomentumConfig(),
			portfolioCfg,
			log,
		)
		if err := sched.AddJob(cfg.BacktestSchedule, backtestJob); err != nil {
			return err
		}
	}

	// Off-site backups only when a bucket is configured
	if cfg.Backup.Bucket == "" {
		log.Info().Msg("Backups disabled (no bucket configured)")
		return nil
	}

	s3Client, err := reliability.NewS3Client(context.Background(), reliability.S3ClientConfig{
		Bucket:          cfg.Backup.Bucket,
		Prefix:          cfg.Backup.Prefix,
		Endpoint:        cfg.Backup.Endpoint,
		AccessKeyID:     cfg.Backup.AccessKeyID,
		SecretAccessKey: cfg.Backup.SecretAccessKey,
	}, log)
	if err != nil {
		return err
	}

	backupService := reliability.NewBackupService(db, s3Client, cfg.DataDir, log)
	backupJob := reliability.NewBackupJob(backupService, cfg.Backup.RetentionDays, log)
	return sched.AddJob(cfg.Backup.Schedule, backupJob)
}
