package service

import (
	"context"

	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

// ProcessingService turns verified sale requests into recorded sales.
type ProcessingService interface {
	ProcessSale(ctx context.Context, request *shared.SaleRequest) error
}

// SaleValidator validates sale requests before they reach the ledger
type SaleValidator interface {
	Validate(ctx context.Context, request *shared.SaleRequest) error
	CheckIdempotency(ctx context.Context, request *shared.SaleRequest) (bool, error)
}

// SaleRecorder credits the seller. The balance ledger service implements it.
type SaleRecorder interface {
	RecordSale(ctx context.Context, request *shared.SaleRequest) (*sale.Sale, error)
}

// FailureRecorder stores why a sale request was rejected
type FailureRecorder interface {
	RecordFailure(ctx context.Context, request *shared.SaleRequest, reason shared.FailureReason) error
}
