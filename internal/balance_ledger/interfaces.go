// Package balance_ledger keeps seller balances: it reads and reconciles the
// cached balance, admits withdrawals against it, drives the admin payout
// workflow and records verified sales. Every mutation runs in one
// transaction holding the seller's account row lock.
package balance_ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/account"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/domain/withdrawal"
)

// TxRunner runs fn in a transaction, committing when it returns nil and
// rolling back otherwise. persistence.PostgresDB satisfies it.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// LedgerService defines the seller balance and withdrawal operations.
type LedgerService interface {
	// EnsureAccount opens the ledger account for accountID if it does not exist yet.
	EnsureAccount(ctx context.Context, accountID uuid.UUID) (*account.Account, error)

	// GetBalance returns the cached balance, computing it from sales and
	// withdrawals on first use. Returns ErrAccountNotFound for unknown accounts.
	GetBalance(ctx context.Context, accountID uuid.UUID) (money.Money, error)

	// ReconcileBalance always recomputes the balance and stores it.
	ReconcileBalance(ctx context.Context, accountID uuid.UUID) (money.Money, error)

	// RequestWithdrawal reserves amount and creates a pending withdrawal.
	RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount money.Money, destination withdrawal.PayoutDestination) (*withdrawal.Withdrawal, error)

	// DeleteWithdrawal removes a pending withdrawal owned by requesterID and
	// releases its reservation.
	DeleteWithdrawal(ctx context.Context, withdrawalID, requesterID uuid.UUID) error

	// ListWithdrawals returns the account's withdrawals, newest first.
	ListWithdrawals(ctx context.Context, accountID uuid.UUID) ([]*withdrawal.Withdrawal, error)

	// TransitionWithdrawal moves a withdrawal through the admin workflow.
	TransitionWithdrawal(ctx context.Context, withdrawalID uuid.UUID, target withdrawal.Status, settlement *withdrawal.SettlementDetails) (*withdrawal.Withdrawal, error)

	// ListAllWithdrawals pages through every withdrawal, optionally filtered by status.
	// Returns the page and the total number of matches.
	ListAllWithdrawals(ctx context.Context, status withdrawal.Status, page, perPage int) ([]*withdrawal.Withdrawal, int64, error)

	// RecordSale credits the seller with a verified payment exactly once.
	// A replayed payment reference yields sale.ErrDuplicateSale.
	RecordSale(ctx context.Context, request *shared.SaleRequest) (*sale.Sale, error)

	// SalesStats buckets the seller's sales over the timeframe's window.
	SalesStats(ctx context.Context, accountID uuid.UUID, timeframe sale.Timeframe) ([]sale.Bucket, error)
}
