package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/panjf2000/ants/v2"
)

// WorkerPoolProcessingService bounds how many sales are recorded at once.
// Each call blocks until its sale has been processed so the consumer only
// commits offsets of finished work.
type WorkerPoolProcessingService struct {
	baseService ProcessingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

var _ ProcessingService = (*WorkerPoolProcessingService)(nil)

func NewWorkerPoolProcessingService(
	baseService ProcessingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolProcessingService, error) {
	// ants treats a non-positive size as unbounded
	if config.Size <= 0 {
		return nil, fmt.Errorf("worker pool size must be positive, got %d", config.Size)
	}
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}

	return &WorkerPoolProcessingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessSale runs the request on a pooled worker and waits for the result.
func (s *WorkerPoolProcessingService) ProcessSale(ctx context.Context, request *shared.SaleRequest) error {
	requestCopy := *request
	resultChan := make(chan error, 1)

	err := s.pool.Submit(func() {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("Panic while processing sale", "payment_reference", requestCopy.PaymentReference, "panic", p)
				resultChan <- fmt.Errorf("panic while processing sale %s: %v", requestCopy.PaymentReference, p)
			}
		}()
		resultChan <- s.baseService.ProcessSale(ctx, &requestCopy)
	})
	if err != nil {
		s.logger.Error("Failed to submit sale to worker pool",
			"payment_reference", request.PaymentReference,
			"error", err,
		)
		return fmt.Errorf("failed to submit sale to worker pool: %w", err)
	}

	select {
	case err := <-resultChan:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown releases the pool. Running tasks finish in the background.
func (s *WorkerPoolProcessingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of busy workers
func (s *WorkerPoolProcessingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the pool size
func (s *WorkerPoolProcessingService) Capacity() int {
	return s.pool.Cap()
}
