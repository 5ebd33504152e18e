package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/qonto-ledger-sync/internal/config"
	"github.com/qonto-ledger-sync/internal/data/mongo"
	"github.com/qonto-ledger-sync/internal/data/postgres"
	"github.com/qonto-ledger-sync/internal/locking"
	"github.com/qonto-ledger-sync/internal/logger"
	"github.com/qonto-ledger-sync/internal/metrics"
	"github.com/qonto-ledger-sync/internal/platform/messaging/consumers"
	"github.com/qonto-ledger-sync/internal/platform/persistence"
	"github.com/qonto-ledger-sync/internal/qonto"
	"github.com/qonto-ledger-sync/internal/syncer"
	"github.com/qonto-ledger-sync/internal/worker"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("sync_worker")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Sync Worker",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	mappingRepo := postgres.NewMappingRepository(log, postgresDB)
	accountRepo := postgres.NewAccountRepository(log, postgresDB)
	ledgerRepo := postgres.NewLedgerRepository(log, postgresDB)
	settingsRepo := postgres.NewSettingsRepository(log, postgresDB)
	lockRepo := postgres.NewLockRepository(log, postgresDB, locking.SyncLockName)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize Qonto API client
	qontoClient := qonto.NewClient(log, &cfg.Qonto)

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	syncMetrics := metrics.NewSyncMetrics(registry)

	// Initialize the batching ledger writer and the sync engine
	upserter := syncer.NewUpserter(log, postgresDB.Pool(), ledgerRepo, cfg.Sync.BatchCommitSize)

	engine, err := syncer.NewEngine(log, cfg.Sync, cfg.WorkerPool.Size, syncer.EngineParams{
		Bank:     qontoClient,
		Writer:   upserter,
		Mappings: mappingRepo,
		Accounts: accountRepo,
		Settings: settingsRepo,
		Audit:    auditRepo,
		Locker:   lockRepo,
		Metrics:  syncMetrics,
	})
	if err != nil {
		log.Error("Failed to initialize sync engine", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer for manual triggers
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)
	triggerHandler := worker.NewTriggerHandler(log, engine)

	// Initialize the interval scheduler
	scheduler := worker.NewScheduler(log, engine, cfg.Sync.Interval)

	// Metrics listener, separate from the trigger API
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.TriggerTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.TriggerTopic, cfg.Kafka.ConsumerGroup, triggerHandler.Handle); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start the interval scheduler
	log.Info("Starting sync scheduler", "interval", cfg.Sync.Interval.String())
	scheduler.Start(appCtx)

	// Start the metrics listener in a goroutine
	go func() {
		log.Info("Starting metrics listener", "port", cfg.Metrics.Port)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics listener error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop taking new work first
	scheduler.Stop()

	// Close Kafka consumer; this unblocks the Subscribe goroutine
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Wait for in-flight goroutines to finish
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Release the engine's worker pool
	engine.Shutdown()

	if err = metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping metrics listener", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Sync Worker shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Sync Worker shutdown completed with errors")
	} else {
		log.Info("Sync Worker shutdown completed successfully")
	}
}
