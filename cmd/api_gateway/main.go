package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/marketplace-balance-ledger/internal/api_gateway"
	"github.com/marketplace-balance-ledger/internal/api_gateway/service"
	"github.com/marketplace-balance-ledger/internal/balance_ledger"
	"github.com/marketplace-balance-ledger/internal/config"
	"github.com/marketplace-balance-ledger/internal/data/mongo"
	"github.com/marketplace-balance-ledger/internal/data/postgres"
	"github.com/marketplace-balance-ledger/internal/logger"
	"github.com/marketplace-balance-ledger/internal/platform/messaging/producers"
	"github.com/marketplace-balance-ledger/internal/platform/payments"
	"github.com/marketplace-balance-ledger/internal/platform/persistence"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)
	if cfg.Source == "" {
		log.Info("No config file found, using environment and defaults")
	} else {
		log.Info("Config loaded", "file", cfg.Source)
	}

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

	// Verified payments are published to the sale topic for the processor
	saleProducer, err := producers.NewSaleRequestProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize sale request producer", "error", err)
		os.Exit(1)
	}

	var cache *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Error("Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		cache = redis.NewClient(opts)
		if err := cache.Ping(appCtx).Err(); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		log.Info("Idempotency cache enabled", "ttl", cfg.Redis.IdempotencyTTL)
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

	paymentGateway, err := payments.NewRazorpayClient(log, &cfg.Payment)
	if err != nil {
		log.Error("Failed to initialize payment gateway client", "error", err)
		os.Exit(1)
	}

	deps := api_gateway.Dependencies{
		Ledger:   balance_ledger.NewLedgerService(postgresDB, accountRepo, saleRepo, withdrawalRepo, outboxRepo, log),
		Payments: service.NewPaymentService(log, cfg.Payment.KeySecret, paymentGateway, saleProducer),
		Activity: service.NewActivityService(log, activityRepo),
	}
	if cache != nil {
		deps.Cache = cache
	}

	server := api_gateway.NewServer(log, cfg, deps)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

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

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Drain HTTP first so in-flight requests can still reach the stores
	var shutdownErr error
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
		shutdownErr = err
	}

	postgresDB.Close()

	if err := saleProducer.Close(); err != nil {
		log.Error("Error closing sale request producer", "error", err)
		shutdownErr = err
	}

	if cache != nil {
		if err := cache.Close(); err != nil {
			log.Error("Error closing Redis client", "error", err)
			shutdownErr = err
		}
	}

	if err := mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
		shutdownErr = err
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if shutdownErr != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
