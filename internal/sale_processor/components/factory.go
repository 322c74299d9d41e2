package components

import (
	"log/slog"

	"github.com/marketplace-balance-ledger/internal/config"
	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/sale_processor/service"
)

// CreateProcessingService wires the sale processing pipeline behind a worker
// pool. It falls back to the unpooled service when the pool cannot be built.
func CreateProcessingService(
	recorder service.SaleRecorder,
	saleRepo sale.Repository,
	activityRepo activity.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	baseService := service.NewProcessingService(
		NewSaleValidator(saleRepo, logger),
		recorder,
		NewFailureRecorder(activityRepo, logger),
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
