package main

import (
	"context"
	"os"

	"cashbook/internal/amqp"
	"cashbook/internal/cli"
	"cashbook/internal/config"
	"cashbook/internal/log"
	"cashbook/internal/sheets/google"
	"cashbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)
	cfg = cli.LoadAndValidateConfig(logger, (*config.Config).ValidateExporter)

	logger.Info("Starting cashbook-exporter", "backend", cfg.DataBackend, "interval", cfg.ExportInterval)

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	sheet, err := google.New(context.Background(), google.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	exporter := worker.NewExportWorker(res.Slot, cfg.StoreKey, sheet, logger)

	// Without AMQP the exporter still runs on the ticker alone.
	var consume worker.Consumer
	var amqpClient *amqp.Client
	if cfg.EventsEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		consume = amqpClient.ConsumeStoreChanged
	} else {
		logger.Info("No AMQP_URL provided - exporting on the interval only")
	}

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(context.Context) {
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
	})

	if err := exporter.Run(ctx, cfg.ExportInterval, consume); err != nil {
		logger.Error("Exporter stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	<-done
	exports, skipped := exporter.Stats()
	logger.Info("Exporter stopped", "exports", exports, "skipped", skipped)
}
