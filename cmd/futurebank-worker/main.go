package main

import (
	"context"
	"errors"
	"os"
	_ "time/tzdata"

	"futurebank/internal/amqp"
	"futurebank/internal/backend"
	"futurebank/internal/cli"
	"futurebank/internal/config"
	"futurebank/internal/log"
	"futurebank/internal/storage"
	"futurebank/internal/worker"
)

func main() {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		bootstrap := cli.SetupLogger("info", log.ComponentWorker, nil)
		bootstrap.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker, nil)

	if err := cfg.ValidateWorker(); err != nil {
		logger.Error("Worker configuration invalid", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Starting futurebank-worker")

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath, loc)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, log.FieldPath, cfg.SQLiteDBPath)
		return err
	}
	defer repo.Close()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	sheets, err := backend.NewSheetsClient(ctx, bcfg)
	if err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	syncWorker := worker.NewSyncWorker(repo, sheets, cfg.SyncBatchSize)

	// Without a broker the periodic sweep alone mirrors new entries.
	var consumer worker.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			return err
		}
		defer client.Close()
		consumer = client
	} else {
		logger.Info("AMQP disabled, relying on periodic sync", "interval", cfg.SyncInterval)
	}

	if stats, err := repo.SyncStats(ctx); err == nil {
		logger.Info("Sync status at startup", "stats", stats)
	}

	err = syncWorker.Run(ctx, consumer, cfg.SyncInterval)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
