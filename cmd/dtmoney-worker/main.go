package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"dtmoney/internal/amqp"
	"dtmoney/internal/cache"
	"dtmoney/internal/cli"
	"dtmoney/internal/log"
	"dtmoney/internal/sheets"
	gsheet "dtmoney/internal/sheets/google"
	"dtmoney/internal/sheets/memory"
	"dtmoney/internal/worker"
)

func main() {
	bootstrap := cli.SetupLogger("info", log.ComponentWorker, os.Stdout)
	cfg := cli.MustLoadConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel, log.ComponentWorker, os.Stdout)

	logger.Info("Starting dtmoney-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	var sheet sheets.TransactionSheet
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		sheet = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		sheet = memory.New()
		logger.Warn("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided, rows are kept in memory")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exporter := worker.NewSheetsExporter(sheet, logger)
	tombstones := cache.NewManager(logger)
	tombstones.Register(exporter.Tombstones())
	tombstones.StartCleanup(time.Hour)
	defer tombstones.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return amqpClient.ConsumeTransactionEvents(gctx, exporter.HandleEvent)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
