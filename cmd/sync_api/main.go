package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/qonto-ledger-sync/internal/api"
	"github.com/qonto-ledger-sync/internal/api/service"
	"github.com/qonto-ledger-sync/internal/config"
	"github.com/qonto-ledger-sync/internal/data/mongo"
	"github.com/qonto-ledger-sync/internal/data/postgres"
	"github.com/qonto-ledger-sync/internal/locking"
	"github.com/qonto-ledger-sync/internal/logger"
	"github.com/qonto-ledger-sync/internal/platform/messaging/producers"
	"github.com/qonto-ledger-sync/internal/platform/persistence"
	"github.com/qonto-ledger-sync/internal/qonto"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("sync_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for the manual-trigger queue
	triggerProducer, err := producers.NewSyncTriggerProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize sync trigger producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	mappingRepo := postgres.NewMappingRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	settingsRepo := postgres.NewSettingsRepository(log, postgresDB)
	lockRepo := postgres.NewLockRepository(log, postgresDB, locking.SyncLockName)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize Qonto API client
	qontoClient := qonto.NewClient(log, &cfg.Qonto)

	// Initialize services
	triggerService := service.NewTriggerService(log, triggerProducer, lockRepo, mappingRepo, auditRepo)
	statusService := service.NewStatusService(log, qontoClient, settingsRepo, mappingRepo, ledgerRepo, lockRepo, auditRepo)

	// Metrics registry for the /metrics endpoint
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize REST server
	server := api.NewServer(log, cfg, triggerService, statusService, registry)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = triggerProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
