// Package withdrawal models seller payout requests and the admin workflow
// that settles them.
package withdrawal

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/money"
)

// Withdrawal is a request to move funds from the ledger to a payout destination.
type Withdrawal struct {
	ID          uuid.UUID          `json:"id"`
	AccountID   uuid.UUID          `json:"account_id"`
	Amount      money.Money        `json:"amount"`
	Status      Status             `json:"status"`
	Destination PayoutDestination  `json:"destination"`
	Settlement  *SettlementDetails `json:"settlement,omitempty"` // set only once completed
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// New creates a pending withdrawal after validating amount and destination.
func New(accountID uuid.UUID, amount money.Money, destination PayoutDestination) (*Withdrawal, error) {
	if !amount.IsPositive() {
		return nil, money.ErrInvalidAmount
	}
	if err := destination.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Withdrawal{
		ID:          uuid.New(),
		AccountID:   accountID,
		Amount:      amount,
		Status:      StatusPending,
		Destination: destination,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// TransitionTo applies an admin transition. Completing requires settlement
// details; they are checked before the transition table so a completion
// attempt without them always reports ErrMissingSettlement. On failure the
// withdrawal is left unchanged.
func (w *Withdrawal) TransitionTo(to Status, settlement *SettlementDetails) error {
	if err := RequireSettlement(w.ID, to, settlement); err != nil {
		return err
	}
	if !CanTransition(w.Status, to) {
		return ErrInvalidTransition{WithdrawalID: w.ID, From: w.Status, To: to}
	}

	w.Status = to
	if to == StatusCompleted {
		s := *settlement
		w.Settlement = &s
	}
	w.UpdatedAt = time.Now().UTC()
	return nil
}

// RequireSettlement checks the settlement details needed to move withdrawal
// id to status to. Only completion needs them.
func RequireSettlement(id uuid.UUID, to Status, settlement *SettlementDetails) error {
	if to != StatusCompleted {
		return nil
	}
	if settlement.missing() {
		return ErrMissingSettlement{WithdrawalID: id}
	}
	return settlement.validate()
}

// EnsureDeletable allows deletion only while pending.
func (w *Withdrawal) EnsureDeletable() error {
	if w.Status != StatusPending {
		return ErrInvalidTransition{WithdrawalID: w.ID, From: w.Status, To: statusDeleted}
	}
	return nil
}

// EnsureOwnedBy returns ErrNotOwner unless accountID owns the withdrawal.
func (w *Withdrawal) EnsureOwnedBy(accountID uuid.UUID) error {
	if w.AccountID != accountID {
		return ErrNotOwner{WithdrawalID: w.ID, AccountID: accountID}
	}
	return nil
}

// BalanceDelta is the change to the cached balance caused by moving from
// one status to another: releasing a reservation credits the amount back.
func (w *Withdrawal) BalanceDelta(from, to Status) money.Money {
	switch {
	case from.Reserves() && !to.Reserves():
		return w.Amount
	case !from.Reserves() && to.Reserves():
		return w.Amount.Neg()
	default:
		return money.Zero
	}
}
