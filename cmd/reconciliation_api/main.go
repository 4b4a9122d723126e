package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/contaflow-reconciliation/internal/api"
	apiservice "github.com/contaflow-reconciliation/internal/api/service"
	"github.com/contaflow-reconciliation/internal/config"
	"github.com/contaflow-reconciliation/internal/data/mongo"
	"github.com/contaflow-reconciliation/internal/data/postgres"
	"github.com/contaflow-reconciliation/internal/logger"
	"github.com/contaflow-reconciliation/internal/outbox_poller"
	"github.com/contaflow-reconciliation/internal/platform/messaging/producers"
	"github.com/contaflow-reconciliation/internal/platform/persistence"
	"github.com/contaflow-reconciliation/internal/reconciliation/batch"
	"github.com/contaflow-reconciliation/internal/reconciliation/lifecycle"
	"github.com/contaflow-reconciliation/internal/reconciliation/matcher"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("reconciliation_api")
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

	// Initialize Kafka producer for reconciliation events
	eventProducer, err := producers.NewReconciliationEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize reconciliation event producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	transactionRepo := postgres.NewBankTransactionRepository(log, postgresDB)
	entryRepo := postgres.NewLedgerEntryRepository(log, postgresDB)
	matchRepo := postgres.NewMatchRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	guard := postgres.NewClaimRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize matching and lifecycle
	tolerances := matcher.TolerancesFromConfig(&cfg.Matching)
	builder := matcher.NewBuilder(log, transactionRepo, entryRepo, matchRepo, guard, tolerances, cfg.Batch.ReadRetries)
	registry := lifecycle.NewRegistry()
	lifecycleService := lifecycle.NewService(
		log,
		postgresDB.Pool(),
		registry,
		transactionRepo,
		entryRepo,
		matchRepo,
		outboxRepo,
		guard,
		auditRepo,
		tolerances,
	)

	// Initialize batch processor
	batchProcessor := batch.NewProcessor(log, builder, registry, lifecycleService, auditRepo, cfg.Batch)

	// Initialize API services
	reconciliationService := apiservice.NewReconciliationService(log, builder, lifecycleService, registry)
	batchService := apiservice.NewBatchService(log, batchProcessor, auditRepo)

	// Initialize outbox poller publishing confirmed-match events
	eventPublisher := outbox_poller.NewEventPublisher(outboxRepo, eventProducer, log)
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, eventPublisher, log)

	// Initialize REST server
	server := api.NewServer(log, cfg, reconciliationService, batchService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	var wg sync.WaitGroup

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

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

	// Cancel the application context; the poller stops with it
	cancelAppCtx()
	wg.Wait()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing Kafka event producer", "error", err)
	}

	// Shutdown postgres connection pool
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
