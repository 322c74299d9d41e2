package withdrawal

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

// Filter narrows the admin listing. A zero Status matches every status.
type Filter struct {
	Status Status
	Limit  int
	Offset int
}

// Repository persists withdrawals
type Repository interface {
	Create(ctx context.Context, w *Withdrawal) error
	GetByID(ctx context.Context, id uuid.UUID) (*Withdrawal, error)
	// LockForUpdate must run inside a transaction.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Withdrawal, error)
	// ListByAccount returns the account's withdrawals, newest first.
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*Withdrawal, error)
	List(ctx context.Context, filter Filter) ([]*Withdrawal, int64, error)
	Update(ctx context.Context, w *Withdrawal) error
	Delete(ctx context.Context, id uuid.UUID) error
	// SumReserved totals amounts in pending, processing and completed state.
	SumReserved(ctx context.Context, accountID uuid.UUID) (money.Money, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrWithdrawalNotFound indicates missing withdrawal
type ErrWithdrawalNotFound struct {
	WithdrawalID uuid.UUID
}

func (e ErrWithdrawalNotFound) Error() string {
	return "withdrawal not found: " + e.WithdrawalID.String()
}

func (e ErrWithdrawalNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrWithdrawalNotFound)
	return ok && (t.WithdrawalID == uuid.Nil || t.WithdrawalID == e.WithdrawalID)
}

// ErrInvalidTransition identifies the refused move
type ErrInvalidTransition struct {
	WithdrawalID uuid.UUID
	From         Status
	To           Status
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("withdrawal %s cannot move from %s to %s", e.WithdrawalID, e.From, e.To)
}

func (e ErrInvalidTransition) Is(target error) bool {
	return target == shared.ErrInvalidTransition
}

// ErrNotOwner indicates the requester does not own the withdrawal
type ErrNotOwner struct {
	WithdrawalID uuid.UUID
	AccountID    uuid.UUID
}

func (e ErrNotOwner) Error() string {
	return fmt.Sprintf("account %s does not own withdrawal %s", e.AccountID, e.WithdrawalID)
}

func (e ErrNotOwner) Is(target error) bool {
	return target == shared.ErrForbidden
}

// ErrMissingSettlement indicates a completion attempt without settlement details
type ErrMissingSettlement struct {
	WithdrawalID uuid.UUID
}

func (e ErrMissingSettlement) Error() string {
	return "settlement transaction id, date and reference are required to complete withdrawal " + e.WithdrawalID.String()
}

func (e ErrMissingSettlement) Is(target error) bool {
	return target == shared.ErrMissingSettlementData
}
