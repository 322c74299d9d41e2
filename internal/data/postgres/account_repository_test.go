package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/account"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

var accountColumns = []string{"id", "balance", "balance_computed", "version", "created_at", "updated_at"}

func TestAccountRepository_Create(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepository(newTestLogger(), mock)
	acc := account.NewAccount(uuid.New())

	query := regexp.QuoteMeta(`INSERT INTO accounts (id, balance, balance_computed, version, created_at, updated_at)`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Balance, acc.BalanceComputed, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.Create(ctx, acc)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already exists", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Balance, acc.BalanceComputed, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		err := repo.Create(ctx, acc)
		assert.ErrorIs(t, err, account.ErrDuplicateAccount{AccountID: acc.ID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(acc.ID, acc.Balance, acc.BalanceComputed, acc.Version, acc.CreatedAt, acc.UpdatedAt).
			WillReturnError(expectedErr)

		err := repo.Create(ctx, acc)
		assert.ErrorContains(t, err, "failed to create account")
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepository(newTestLogger(), mock)
	accID := uuid.New()
	now := time.Now()

	expected := &account.Account{
		ID:              accID,
		Balance:         money.FromMinor(10000),
		BalanceComputed: true,
		Version:         3,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	query := `SELECT id, balance, balance_computed, version, created_at, updated_at\s+FROM accounts\s+WHERE id = \$1\s*$`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(accountColumns).
			AddRow(expected.ID, expected.Balance, expected.BalanceComputed, expected.Version, expected.CreatedAt, expected.UpdatedAt)
		mock.ExpectQuery(query).WithArgs(accID).WillReturnRows(rows)

		acc, err := repo.GetByID(ctx, accID)
		assert.NoError(t, err)
		assert.Equal(t, expected, acc)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		acc, err := repo.GetByID(ctx, accID)
		assert.Nil(t, acc)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		var notFound account.ErrAccountNotFound
		assert.ErrorAs(t, err, &notFound)
		assert.Equal(t, accID, notFound.AccountID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(dbErr)

		acc, err := repo.GetByID(ctx, accID)
		assert.Nil(t, acc)
		assert.ErrorContains(t, err, "failed to get account")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepository(newTestLogger(), mock)
	accID := uuid.New()
	now := time.Now()

	query := `FROM accounts\s+WHERE id = \$1\s+FOR UPDATE`

	t.Run("success", func(t *testing.T) {
		rows := pgxmock.NewRows(accountColumns).
			AddRow(accID, money.FromMinor(0), false, 1, now, now)
		mock.ExpectQuery(query).WithArgs(accID).WillReturnRows(rows)

		acc, err := repo.LockForUpdate(ctx, accID)
		require.NoError(t, err)
		assert.Equal(t, accID, acc.ID)
		assert.False(t, acc.BalanceComputed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(pgx.ErrNoRows)

		_, err := repo.LockForUpdate(ctx, accID)
		assert.ErrorIs(t, err, account.ErrAccountNotFound{AccountID: accID})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(accID).WillReturnError(errors.New("lock timeout"))

		_, err := repo.LockForUpdate(ctx, accID)
		assert.ErrorContains(t, err, "failed to lock account for update")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_SaveBalance(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewAccountRepository(newTestLogger(), mock)
	acc := account.NewAccount(uuid.New())
	acc.ApplyRecomputed(money.FromMinor(4000))

	query := regexp.QuoteMeta(`SET balance = $1, balance_computed = $2, version = version + 1, updated_at = $3`)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(acc.Balance, true, acc.UpdatedAt, acc.ID).
			WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(2))

		err := repo.SaveBalance(ctx, acc)
		require.NoError(t, err)
		assert.Equal(t, 2, acc.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(acc.Balance, true, acc.UpdatedAt, acc.ID).
			WillReturnError(pgx.ErrNoRows)

		err := repo.SaveBalance(ctx, acc)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(acc.Balance, true, acc.UpdatedAt, acc.ID).
			WillReturnError(errors.New("disk full"))

		err := repo.SaveBalance(ctx, acc)
		assert.ErrorContains(t, err, "failed to save account balance")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAccountRepository_WithTx(t *testing.T) {
	repo := NewAccountRepository(newTestLogger(), nil)

	mockTx := pgx.Tx(nil)
	txRepo := repo.WithTx(mockTx)

	require.IsType(t, &AccountRepository{}, txRepo)
	assert.Equal(t, mockTx, txRepo.(*AccountRepository).querier)
	assert.Equal(t, repo.logger, txRepo.(*AccountRepository).logger)
}
