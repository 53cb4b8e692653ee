package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"cashbook/internal/amqp"
	"cashbook/internal/api"
	"cashbook/internal/cli"
	"cashbook/internal/config"
	"cashbook/internal/core"
	apphttp "cashbook/internal/http"
	"cashbook/internal/log"
	"cashbook/internal/services"
	"cashbook/internal/store"
	"cashbook/internal/taxonomy"
)

func main() {
	cli.LoadEnvFile()

	cfg := config.Load()
	logger := cli.SetupLogger(cfg.LogLevel)
	cfg = cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	logger.Info("Starting cashbook", "backend", cfg.DataBackend, "store_key", cfg.StoreKey)

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	st := store.New(res.Slot, store.WithKey(cfg.StoreKey), store.WithLogger(logger))
	if err := st.Load(context.Background()); err != nil {
		if !errors.Is(err, core.ErrCorruptStore) {
			logger.Error("Failed to load transactions", log.FieldError, err)
			os.Exit(1)
		}
		backup, qerr := st.Quarantine(context.Background())
		if qerr != nil {
			logger.Error("Failed to quarantine corrupt transactions", log.FieldError, qerr)
			os.Exit(1)
		}
		logger.Warn("Stored transactions were corrupt; starting empty", "backup_key", backup, log.FieldError, err)
	}

	// A nil *amqp.Client must not reach the service as a non-nil interface.
	var publisher services.ChangePublisher
	var amqpClient *amqp.Client
	if cfg.EventsEnabled() {
		c, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		amqpClient, publisher = c, c
		logger.Info("Change events enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("Change events disabled - no AMQP_URL provided")
	}

	ledger := services.NewLedgerService(st, publisher, logger)

	srv, err := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Ledger:             ledger,
		Taxonomy:           taxonomy.Load(cfg.TaxonomyDir),
		CurrencySymbol:     cfg.CurrencySymbol,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
		Ready:              res.Ping,
	})
	if err != nil {
		logger.Error("Failed to build HTTP server", log.FieldError, err)
		os.Exit(1)
	}
	api.New(srv.Mux(), ledger, logger)

	_, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Error("AMQP close error", log.FieldError, err)
			}
		}
	})

	logger.Info("Starting HTTP server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
