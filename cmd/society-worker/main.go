package main

import (
	"context"
	"errors"
	"os"
	"time"

	"society/internal/amqp"
	"society/internal/backend"
	"society/internal/cli"
	"society/internal/log"
	"society/internal/sheets"
	gsheet "society/internal/sheets/google"
	memsheet "society/internal/sheets/memory"
	"society/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting society-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != "sqlite" {
		logger.Warn("Worker reads its own copy of the ledger; the memory backend will always be empty", "backend", cfg.DataBackend)
	}

	// The worker only consumes events, so the store is opened without a publisher.
	storeCfg := *cfg
	storeCfg.AMQPURL = ""
	res := cli.InitBackend(context.Background(), logger, &storeCfg)
	svc := backend.NewServices(res, backend.ServiceOptionsFromConfig(cfg))

	var exporter sheets.ReportExporter
	if cfg.GoogleSpreadsheetID != "" {
		client, err := gsheet.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = memsheet.New()
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, exporting to memory only")
	}

	exportWorker := worker.NewExportWorker(svc.Reports, exporter, time.Now)
	refresher := worker.NewRefresher(exportWorker, worker.RefresherConfig{
		Interval: cfg.ExportInterval,
		Months:   cfg.ExportMonths,
	})

	runCtx, stopRun := context.WithCancel(context.Background())

	var consumer *amqp.Client
	if cfg.AMQPURL != "" {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		consumer = c
		go func() {
			if err := consumer.ConsumeLedgerEvents(runCtx, exportWorker.HandleLedgerEvent); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Ledger event consumption failed", log.FieldError, err)
			}
		}()
		logger.Info("Consuming ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP_URL not set, relying on the periodic export only")
	}

	if err := refresher.Start(runCtx); err != nil {
		logger.Error("Failed to start export refresher", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		logger.Info("Shutting down worker...")
		if err := refresher.Stop(ctx); err != nil {
			logger.Warn("Refresher stop error", log.FieldError, err)
		}
		stopRun()
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				logger.Warn("AMQP close error", log.FieldError, err)
			}
		}
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", log.FieldError, err)
		}
	})
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
