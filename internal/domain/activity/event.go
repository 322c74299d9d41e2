package activity

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/money"
)

// Type classifies a ledger activity event
type Type string

const (
	TypeSaleRecorded            Type = "SALE_RECORDED"
	TypeSaleRejected            Type = "SALE_REJECTED"
	TypeWithdrawalRequested     Type = "WITHDRAWAL_REQUESTED"
	TypeWithdrawalDeleted       Type = "WITHDRAWAL_DELETED"
	TypeWithdrawalStatusChanged Type = "WITHDRAWAL_STATUS_CHANGED"
	TypeBalanceReconciled       Type = "BALANCE_RECONCILED"
)

// Event is the append-only history record of one ledger mutation. It is
// written to the outbox inside the mutating transaction and copied to the
// activity store by the outbox poller.
type Event struct {
	EventID          uuid.UUID   `json:"event_id" bson:"event_id"`
	AccountID        uuid.UUID   `json:"account_id" bson:"account_id"`
	Type             Type        `json:"type" bson:"type"`
	Amount           money.Money `json:"amount" bson:"amount"`
	BalanceAfter     money.Money `json:"balance_after" bson:"balance_after"`
	SaleID           *uuid.UUID  `json:"sale_id,omitempty" bson:"sale_id,omitempty"`
	WithdrawalID     *uuid.UUID  `json:"withdrawal_id,omitempty" bson:"withdrawal_id,omitempty"`
	PaymentReference string      `json:"payment_reference,omitempty" bson:"payment_reference,omitempty"`
	FromStatus       string      `json:"from_status,omitempty" bson:"from_status,omitempty"`
	ToStatus         string      `json:"to_status,omitempty" bson:"to_status,omitempty"`
	FailureReason    string      `json:"failure_reason,omitempty" bson:"failure_reason,omitempty"`
	CorrelationID    string      `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at" bson:"created_at"`
	PublishedAt      *time.Time  `json:"published_at,omitempty" bson:"published_at,omitempty"`
}

// NewEvent stamps a fresh event id and creation time.
func NewEvent(accountID uuid.UUID, typ Type, amount, balanceAfter money.Money, correlationID string) *Event {
	return &Event{
		EventID:       uuid.New(),
		AccountID:     accountID,
		Type:          typ,
		Amount:        amount,
		BalanceAfter:  balanceAfter,
		CorrelationID: correlationID,
		CreatedAt:     time.Now().UTC(),
	}
}
