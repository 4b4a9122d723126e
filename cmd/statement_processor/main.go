package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/contaflow-reconciliation/internal/config"
	"github.com/contaflow-reconciliation/internal/data/mongo"
	"github.com/contaflow-reconciliation/internal/data/postgres"
	"github.com/contaflow-reconciliation/internal/logger"
	"github.com/contaflow-reconciliation/internal/platform/messaging/consumers"
	"github.com/contaflow-reconciliation/internal/platform/messaging/producers"
	"github.com/contaflow-reconciliation/internal/platform/persistence"
	"github.com/contaflow-reconciliation/internal/reconciliation/lifecycle"
	"github.com/contaflow-reconciliation/internal/reconciliation/matcher"
	"github.com/contaflow-reconciliation/internal/statement_processor/consumer"
	"github.com/contaflow-reconciliation/internal/statement_processor/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("statement_processor")
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

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer is nil when no DLQ topic is configured; the handler
	// tolerates a nil publisher, but a typed nil must not reach the
	// interface value.
	var dlqPublisher producers.DeadLetterPublisher
	if dlqProducer != nil {
		dlqPublisher = dlqProducer
	}

	// Initialize repositories
	transactionRepo := postgres.NewBankTransactionRepository(log, postgresDB)
	entryRepo := postgres.NewLedgerEntryRepository(log, postgresDB)
	matchRepo := postgres.NewMatchRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	guard := postgres.NewClaimRepository(log, postgresDB)
	auditRepo := mongo.NewAuditRepository(log, mongoDB.Database())

	// Initialize matching and the lifecycle service used for auto-confirmation
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

	// Initialize import service wrapped in a worker pool
	baseImportService := service.NewStatementImportService(log, transactionRepo, builder, lifecycleService)
	importService, err := service.NewWorkerPoolImportService(baseImportService, service.WorkerPoolConfig{Size: cfg.WorkerPool.Size}, log)
	if err != nil {
		log.Error("Failed to initialize worker pool import service", "error", err)
		os.Exit(1)
	}

	// Initialize statement event handler
	eventHandler := consumer.NewStatementEventHandler(log, importService, dlqPublisher)

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Create error channel for consumer errors
	errChan := make(chan error, 1)

	var wg sync.WaitGroup

	// Start consuming statement lines in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting statement consumer",
			"topic", cfg.Kafka.StatementTopic,
			"group_id", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.StatementTopic, cfg.Kafka.ConsumerGroup, eventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("statement consumer error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or consumer error
	var consumerErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Consumer error occurred", "error", err)
		consumerErr = err
	}

	// Cancel the application context to stop the consumer loop
	cancelAppCtx()

	// Wait for the consumer goroutine with a timeout
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Consumer stopped")
	case <-time.After(30 * time.Second):
		log.Warn("Timed out waiting for consumer to stop")
	}

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Drain in-flight imports before closing dependencies
	importService.Shutdown()

	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil {
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if consumerErr != nil {
		log.Error("Statement processor shutdown with errors", "error", consumerErr)
	} else {
		log.Info("Statement processor shutdown completed successfully")
	}
}
