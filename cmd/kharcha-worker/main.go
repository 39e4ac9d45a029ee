package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"kharcha/internal/amqp"
	"kharcha/internal/config"
	"kharcha/internal/export"
	applog "kharcha/internal/log"
	"kharcha/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := applog.New(applog.Config{Level: slog.LevelInfo, Component: applog.ComponentExport})
	applog.SetDefault(logger)

	logger.Info("Starting kharcha-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if !cfg.ExportEnabled() {
		logger.Error("Export disabled - set GOOGLE_SPREADSHEET_ID to run the worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	writer, err := export.NewSheetWriter(ctx, cfg.GoogleSpreadsheetID, cfg.ExportSheetName)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets writer", "error", err)
		os.Exit(1)
	}

	exporter := export.NewExporter(repo, writer, cfg.ExportBatchSize, cfg.ExportInterval)

	// Drain anything that accumulated while the worker was down.
	if err := exporter.ExportPending(ctx); err != nil {
		logger.Error("Startup export pass failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := exporter.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()

		// Change events shortcut the export interval so edits reach the
		// sheet promptly.
		g.Go(func() error {
			err := amqpClient.ConsumeExpenseChanges(ctx, func(msg *amqp.ExpenseChangedMessage) error {
				exporter.Kick()
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("AMQP disabled - exporting on interval only", "interval", cfg.ExportInterval.String())
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}
