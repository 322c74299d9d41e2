package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/marketplace-balance-ledger/internal/balance_ledger"
	"github.com/marketplace-balance-ledger/internal/config"
	"github.com/marketplace-balance-ledger/internal/data/mongo"
	"github.com/marketplace-balance-ledger/internal/data/postgres"
	"github.com/marketplace-balance-ledger/internal/logger"
	"github.com/marketplace-balance-ledger/internal/platform/messaging/consumers"
	"github.com/marketplace-balance-ledger/internal/platform/messaging/producers"
	"github.com/marketplace-balance-ledger/internal/platform/persistence"
	"github.com/marketplace-balance-ledger/internal/sale_processor/components"
	"github.com/marketplace-balance-ledger/internal/sale_processor/consumer"
	"github.com/marketplace-balance-ledger/internal/sale_processor/outbox_poller"
	"github.com/marketplace-balance-ledger/internal/sale_processor/service"
)

const shutdownTimeout = 30 * time.Second

func main() {
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("sale_processor")
	if err != nil {
		// logger is not initialized yet
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	if cfg.Source == "" {
		log.Info("No config file found, using environment and defaults")
	} else {
		log.Info("Config loaded", "file", cfg.Source)
	}
	log.Info("Starting Sale Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Repositories
	pool := postgresDB.Pool()
	accountRepo := postgres.NewAccountRepository(log, pool)
	saleRepo := postgres.NewSaleRepository(log, pool)
	withdrawalRepo := postgres.NewWithdrawalRepository(log, pool)
	outboxRepo := postgres.NewOutboxRepository(log, pool)
	activityRepo := mongo.NewActivityRepository(log, mongoDB.Database())
	if err := activityRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure activity indexes", "error", err)
		os.Exit(1)
	}

	ledger := balance_ledger.NewLedgerService(postgresDB, accountRepo, saleRepo, withdrawalRepo, outboxRepo, log)

	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka, dlqProducer)

	processingService := components.CreateProcessingService(ledger, saleRepo, activityRepo, log, cfg)
	saleEventHandler := consumer.NewSaleEventHandler(log, processingService, dlqProducer)

	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		outbox_poller.NewActivityPublisher(outboxRepo, activityRepo, log),
		log.With("component", "outbox_poller"),
	)

	errChan := make(chan error, 1)
	var wg sync.WaitGroup

	if err := kafkaConsumer.Subscribe(appCtx, saleEventHandler.HandleMessage); err != nil {
		errChan <- fmt.Errorf("kafka consumer error: %w", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	stopped := make(chan struct{})
	go func() {
		<-kafkaConsumer.Done()
		wg.Wait()
		close(stopped)
	}()

	select {
	case <-stopped:
		log.Info("Consumer and poller stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		wpService.Shutdown()
	}

	var closeErr error
	if err := dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
		closeErr = err
	}
	if err := kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
		closeErr = err
	}

	postgresDB.Close()

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		closeErr = err
	}

	if serviceErr != nil || closeErr != nil {
		log.Error("Sale Processor shutdown completed with errors", "service_error", serviceErr, "close_error", closeErr)
		os.Exit(1)
	}
	log.Info("Sale Processor shutdown completed successfully")
}
