package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"dailyspend/internal/amqp"
	"dailyspend/internal/backend"
	"dailyspend/internal/config"
	applog "dailyspend/internal/log"
	"dailyspend/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig()).WithComponent(applog.ComponentWorker)
	applog.SetDefault(logger)

	logger.Info("Starting dailyspend-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}()
	}
	store := result.Store

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, running without event consumption", "error", err)
			amqpClient = nil
		} else {
			defer amqpClient.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - overspend watching is off")
	}

	var publisher services.EventPublisher
	if amqpClient != nil {
		publisher = amqpClient
	}
	ledgerSvc := services.NewLedgerService(store, publisher)
	summarySvc := services.NewSummaryService(store, store, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Recurring templates: materialize due entries on a ticker.
	processor := services.NewRecurringProcessor(store, store, ledgerSvc)
	logger.Info("Recurring processor configured", "interval", cfg.RecurringInterval)
	go func() {
		if err := processor.Run(ctx, cfg.RecurringInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Recurring processor stopped", "error", err)
			cancel()
		}
	}()

	// Ledger events: recompute the day summary and warn on overspend.
	if amqpClient != nil {
		watcher := services.NewOverspendWatcher(summarySvc, store)
		go func() {
			err := amqpClient.ConsumeLedgerEvents(ctx, func(event *amqp.LedgerEvent) error {
				return watcher.HandleEvent(ctx, event)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumption failed", "error", err)
				cancel()
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down dailyspend-worker...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(2 * time.Second):
		logger.Info("Worker shutdown complete")
	}
}
