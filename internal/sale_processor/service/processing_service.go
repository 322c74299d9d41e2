package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

type ProcessingServiceImpl struct {
	validator       SaleValidator
	recorder        SaleRecorder
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	validator SaleValidator,
	recorder SaleRecorder,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) *ProcessingServiceImpl {
	return &ProcessingServiceImpl{
		validator:       validator,
		recorder:        recorder,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

var _ ProcessingService = (*ProcessingServiceImpl)(nil)

// ProcessSale records the sale exactly once. A nil return acknowledges the
// message: rejected and already recorded requests are acknowledged, while
// infrastructure errors are returned so the consumer retries the message.
func (s *ProcessingServiceImpl) ProcessSale(ctx context.Context, request *shared.SaleRequest) error {
	logger := s.logger.With("payment_reference", request.PaymentReference)
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	if err := s.validator.Validate(ctx, request); err != nil {
		logger.Warn("Sale request rejected", "error", err)
		s.reject(ctx, logger, request, failureReasonFor(err))
		return nil
	}

	skip, err := s.validator.CheckIdempotency(ctx, request)
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	recorded, err := s.recorder.RecordSale(ctx, request)
	switch {
	case err == nil:
		logger.Info("Sale recorded",
			"sale_id", recorded.ID.String(),
			"seller_account_id", recorded.SellerAccountID.String(),
			"amount", recorded.Amount.String())
		return nil
	case errors.Is(err, sale.ErrDuplicateSale{}):
		// lost the race against a concurrent delivery of the same payment
		logger.Info("Sale already recorded")
		return nil
	case errors.Is(err, shared.ErrInvalidAmount), errors.Is(err, shared.ErrInvalidSaleRequest):
		logger.Warn("Sale request rejected by ledger", "error", err)
		s.reject(ctx, logger, request, failureReasonFor(err))
		return nil
	default:
		logger.Error("Failed to record sale", "error", err)
		return fmt.Errorf("failed to record sale for payment %s: %w", request.PaymentReference, err)
	}
}

func (s *ProcessingServiceImpl) reject(ctx context.Context, logger *slog.Logger, request *shared.SaleRequest, reason shared.FailureReason) {
	if err := s.failureRecorder.RecordFailure(ctx, request, reason); err != nil {
		logger.Error("Failed to record sale rejection", "reason", reason, "error", err)
	}
}

func failureReasonFor(err error) shared.FailureReason {
	if errors.Is(err, shared.ErrInvalidAmount) {
		return shared.FailureReasonInvalidAmount
	}
	return shared.FailureReasonInvalidRequest
}
