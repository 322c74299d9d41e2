package account

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

// Repository defines account persistence operations
type Repository interface {
	// Create inserts the account, returning ErrDuplicateAccount if the id is taken.
	Create(ctx context.Context, acc *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	// LockForUpdate must run inside a transaction.
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Account, error)
	SaveBalance(ctx context.Context, acc *Account) error
	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates missing account
type ErrAccountNotFound struct {
	AccountID uuid.UUID
}

func (e ErrAccountNotFound) Error() string {
	return "account not found: " + e.AccountID.String()
}

// Is matches shared.ErrNotFound and any ErrAccountNotFound with the same
// (or a nil) account id.
func (e ErrAccountNotFound) Is(target error) bool {
	if target == shared.ErrNotFound {
		return true
	}
	t, ok := target.(ErrAccountNotFound)
	if !ok {
		return false
	}
	return t.AccountID == uuid.Nil || t.AccountID == e.AccountID
}

// ErrDuplicateAccount indicates the account already exists
type ErrDuplicateAccount struct {
	AccountID uuid.UUID
}

func (e ErrDuplicateAccount) Error() string {
	return "account already exists: " + e.AccountID.String()
}

func (e ErrDuplicateAccount) Is(target error) bool {
	if target == shared.ErrConflict {
		return true
	}
	t, ok := target.(ErrDuplicateAccount)
	return ok && (t.AccountID == uuid.Nil || t.AccountID == e.AccountID)
}

// ErrInsufficientBalance reports a withdrawal larger than the available balance
type ErrInsufficientBalance struct {
	AccountID uuid.UUID
	Requested money.Money
	Available money.Money
}

func (e ErrInsufficientBalance) Error() string {
	return "insufficient balance on account " + e.AccountID.String() +
		": requested " + e.Requested.String() + ", available " + e.Available.String()
}

func (e ErrInsufficientBalance) Is(target error) bool {
	return target == shared.ErrInsufficientBalance
}

// ErrBalanceNotComputed guards against mutating a cache that was never reconciled
type ErrBalanceNotComputed struct {
	AccountID uuid.UUID
}

func (e ErrBalanceNotComputed) Error() string {
	return "balance not computed for account " + e.AccountID.String()
}

// ErrConcurrentModification is returned when a versioned update lost a race
type ErrConcurrentModification struct {
	AccountID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification of account " + e.AccountID.String()
}

func (e ErrConcurrentModification) Is(target error) bool {
	return target == shared.ErrConflict
}
