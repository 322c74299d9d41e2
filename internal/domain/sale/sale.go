package sale

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

// Sale is an immutable credit to the seller created from one verified payment.
type Sale struct {
	ID               uuid.UUID   `json:"id"`
	ProductID        uuid.UUID   `json:"product_id"`
	SellerAccountID  uuid.UUID   `json:"seller_account_id"`
	BuyerID          *uuid.UUID  `json:"buyer_id,omitempty"` // nil for guest checkout
	Amount           money.Money `json:"amount"`
	PaymentReference string      `json:"payment_reference"`
	CreatedAt        time.Time   `json:"created_at"`
}

// NewFromRequest builds the sale described by a verified payment.
func NewFromRequest(req *shared.SaleRequest) (*Sale, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return &Sale{
		ID:               uuid.New(),
		ProductID:        req.ProductID,
		SellerAccountID:  req.SellerAccountID,
		BuyerID:          req.BuyerID,
		Amount:           req.Amount,
		PaymentReference: req.PaymentReference,
		CreatedAt:        time.Now().UTC(),
	}, nil
}
