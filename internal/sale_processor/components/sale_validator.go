package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/sale_processor/service"
)

type SaleValidatorImpl struct {
	saleRepo sale.Repository
	logger   *slog.Logger
}

func NewSaleValidator(saleRepo sale.Repository, logger *slog.Logger) *SaleValidatorImpl {
	return &SaleValidatorImpl{
		saleRepo: saleRepo,
		logger:   logger,
	}
}

var _ service.SaleValidator = (*SaleValidatorImpl)(nil)

// Validate checks the request fields
func (v *SaleValidatorImpl) Validate(_ context.Context, request *shared.SaleRequest) error {
	return request.Validate()
}

// CheckIdempotency reports whether the payment already produced a sale.
// The unique payment reference still guards the insert; this only saves a
// transaction for redelivered messages.
func (v *SaleValidatorImpl) CheckIdempotency(ctx context.Context, request *shared.SaleRequest) (bool, error) {
	existing, err := v.saleRepo.GetByPaymentReference(ctx, request.PaymentReference)
	if err != nil {
		if errors.Is(err, sale.ErrSaleNotFound{}) {
			return false, nil
		}
		v.logger.Error("Failed to check sales for idempotency",
			"payment_reference", request.PaymentReference,
			"error", err)
		return false, fmt.Errorf("idempotency check failed for payment %s: %w", request.PaymentReference, err)
	}

	v.logger.Info("Payment already recorded as a sale",
		"payment_reference", request.PaymentReference,
		"sale_id", existing.ID.String())
	return true, nil
}
