// Package postgres provides PostgreSQL implementations of the ledger
// repositories. Each one binds to a pool or a transaction through WithTx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/account"
	"github.com/marketplace-balance-ledger/internal/platform/persistence"
)

// AccountRepository implements the account.Repository interface for PostgreSQL
type AccountRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAccountRepository creates a new PostgreSQL account repository.
func NewAccountRepository(logger *slog.Logger, querier persistence.Querier) *AccountRepository {
	return &AccountRepository{
		querier: querier,
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx.
func (r *AccountRepository) WithTx(tx pgx.Tx) account.Repository {
	return &AccountRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the account. An existing id yields ErrDuplicateAccount.
func (r *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	query := `
		INSERT INTO accounts (id, balance, balance_computed, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query,
		acc.ID,
		acc.Balance,
		acc.BalanceComputed,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to create account: %w", err)
	}

	if result.RowsAffected() == 0 {
		return account.ErrDuplicateAccount{AccountID: acc.ID}
	}

	return nil
}

// GetByID retrieves an account by its ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, balance, balance_computed, version, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	return r.scanOne(ctx, "get account", query, id)
}

// LockForUpdate obtains a row lock on the account and returns its current
// state. Concurrent mutations of the same account queue behind this lock.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	query := `
		SELECT id, balance, balance_computed, version, created_at, updated_at
		FROM accounts
		WHERE id = $1
		FOR UPDATE
	`

	return r.scanOne(ctx, "lock account for update", query, id)
}

func (r *AccountRepository) scanOne(ctx context.Context, op string, query string, id uuid.UUID) (*account.Account, error) {
	var acc account.Account
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.Balance,
		&acc.BalanceComputed,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, account.ErrAccountNotFound{AccountID: id}
		}
		r.logger.Error("Failed to "+op, "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}

	return &acc, nil
}

// SaveBalance persists the cached balance and its computed flag, bumping
// the version. The new version is written back to acc.
func (r *AccountRepository) SaveBalance(ctx context.Context, acc *account.Account) error {
	query := `
		UPDATE accounts
		SET balance = $1, balance_computed = $2, version = version + 1, updated_at = $3
		WHERE id = $4
		RETURNING version
	`

	err := r.querier.QueryRow(ctx, query,
		acc.Balance,
		acc.BalanceComputed,
		acc.UpdatedAt,
		acc.ID,
	).Scan(&acc.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return account.ErrAccountNotFound{AccountID: acc.ID}
		}
		r.logger.Error("Failed to save account balance", "id", acc.ID.String(), "error", err)
		return fmt.Errorf("failed to save account balance: %w", err)
	}

	return nil
}
