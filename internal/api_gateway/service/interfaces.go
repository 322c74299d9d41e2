package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

// PaymentService turns verified gateway payments into sale requests
type PaymentService interface {
	// VerifyPayment checks the gateway signature, confirms the charged amount
	// with the gateway and publishes the sale request. Returns
	// ErrInvalidSignature, ErrPaymentMismatch or ErrPaymentNotSettled for
	// payments that must not be credited.
	VerifyPayment(ctx context.Context, verification *PaymentVerification) (*shared.SaleRequest, error)
}

// ActivityService defines read access to the account activity history
type ActivityService interface {
	// GetActivity retrieves a page of the account's events, newest first,
	// and the total number of events
	GetActivity(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*activity.Event, int64, error)
}
