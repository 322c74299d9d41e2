package sale

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

// Repository persists sales
type Repository interface {
	// Create returns ErrDuplicateSale when the payment reference was already recorded.
	Create(ctx context.Context, s *Sale) error
	GetByPaymentReference(ctx context.Context, reference string) (*Sale, error)
	SumBySeller(ctx context.Context, sellerAccountID uuid.UUID) (money.Money, error)
	ListBySellerSince(ctx context.Context, sellerAccountID uuid.UUID, since time.Time) ([]*Sale, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrSaleNotFound indicates no sale exists for a payment reference
type ErrSaleNotFound struct {
	PaymentReference string
}

func (e ErrSaleNotFound) Error() string {
	return "sale not found for payment " + e.PaymentReference
}

func (e ErrSaleNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrSaleNotFound)
	return ok && (t.PaymentReference == "" || t.PaymentReference == e.PaymentReference)
}

// ErrDuplicateSale indicates the payment was already turned into a sale
type ErrDuplicateSale struct {
	PaymentReference string
}

func (e ErrDuplicateSale) Error() string {
	return "duplicate sale for payment " + e.PaymentReference
}

func (e ErrDuplicateSale) Is(target error) bool {
	if target == shared.ErrConflict {
		return true
	}
	t, ok := target.(ErrDuplicateSale)
	return ok && (t.PaymentReference == "" || t.PaymentReference == e.PaymentReference)
}
