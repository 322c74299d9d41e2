package payment

import (
	"context"
	"errors"

	"github.com/marketplace-balance-ledger/internal/domain/money"
)

// Statuses reported by the gateway for a payment
const (
	StatusCreated    = "created"
	StatusAuthorized = "authorized"
	StatusCaptured   = "captured"
	StatusRefunded   = "refunded"
	StatusFailed     = "failed"
)

// ErrPaymentNotFound is returned when the gateway has no such payment
var ErrPaymentNotFound = errors.New("payment not found at gateway")

// Payment is the gateway's own record of a payment. Amount is what the buyer
// was actually charged.
type Payment struct {
	ID       string
	OrderID  string
	Amount   money.Money
	Currency string
	Status   string
}

// Settled reports whether the buyer's money has been taken
func (p *Payment) Settled() bool {
	return p.Status == StatusAuthorized || p.Status == StatusCaptured
}

// Gateway looks payments up at the payment provider
type Gateway interface {
	// FetchPayment returns ErrPaymentNotFound for unknown payment ids
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
}
