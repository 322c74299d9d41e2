package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/marketplace-balance-ledger/internal/api_gateway/handler"
	"github.com/marketplace-balance-ledger/internal/api_gateway/service"
	"github.com/marketplace-balance-ledger/internal/balance_ledger"
	"github.com/marketplace-balance-ledger/internal/config"
	"github.com/redis/go-redis/v9"
)

// Dependencies are the services the HTTP layer calls into
type Dependencies struct {
	Ledger   balance_ledger.LedgerService
	Payments service.PaymentService
	Activity service.ActivityService
	Cache    redis.Cmdable // nil disables Idempotency-Key handling
}

const readHeaderTimeout = 10 * time.Second

// Server owns the gateway's http.Server
type Server struct {
	logger     *slog.Logger
	httpServer *http.Server
	httpRouter *gin.Engine
}

// NewServer creates and configures a new HTTP server with the given services
func NewServer(log *slog.Logger, cfg *config.Config, deps Dependencies) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	setupRouter(log, httpRouter, cfg, deps, handlers{
		account:    handler.NewAccountHandler(log, deps.Ledger, deps.Activity),
		withdrawal: handler.NewWithdrawalHandler(log, deps.Ledger),
		admin:      handler.NewAdminHandler(log, deps.Ledger),
		payment:    handler.NewPaymentHandler(log, deps.Payments),
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           httpRouter,
		ReadHeaderTimeout: min(cfg.Server.ReadTimeout, readHeaderTimeout),
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:     log,
		httpServer: httpServer,
		httpRouter: httpRouter,
	}
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server, waiting for in-flight
// requests until ctx expires
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	return nil
}
