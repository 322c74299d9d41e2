package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/money"
)

var ErrInvalidSaleRequest = errors.New("invalid sale request")

// SaleRequest defines the Kafka message emitted once a gateway payment has
// been verified. The processor turns it into exactly one Sale.
type SaleRequest struct {
	RequestID        uuid.UUID   `json:"request_id"`
	ProductID        uuid.UUID   `json:"product_id"`
	SellerAccountID  uuid.UUID   `json:"seller_account_id"`
	BuyerID          *uuid.UUID  `json:"buyer_id,omitempty"`
	Amount           money.Money `json:"amount"`
	PaymentReference string      `json:"payment_reference"` // gateway payment id
	OrderReference   string      `json:"order_reference"`
	CorrelationID    string      `json:"correlation_id"`
	Timestamp        time.Time   `json:"timestamp"`
}

// Validate checks the fields the processor depends on.
func (r *SaleRequest) Validate() error {
	switch {
	case r.RequestID == uuid.Nil:
		return errors.Join(ErrInvalidSaleRequest, errors.New("request_id is required"))
	case r.SellerAccountID == uuid.Nil:
		return errors.Join(ErrInvalidSaleRequest, errors.New("seller_account_id is required"))
	case r.ProductID == uuid.Nil:
		return errors.Join(ErrInvalidSaleRequest, errors.New("product_id is required"))
	case r.PaymentReference == "":
		return errors.Join(ErrInvalidSaleRequest, errors.New("payment_reference is required"))
	case !r.Amount.IsPositive():
		return errors.Join(ErrInvalidSaleRequest, ErrInvalidAmount)
	}
	return nil
}
