package account

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	id := uuid.New()
	acc := NewAccount(id)

	assert.Equal(t, id, acc.ID)
	assert.True(t, acc.Balance.IsZero())
	assert.False(t, acc.BalanceComputed, "fresh accounts are computed lazily")
	assert.Equal(t, 1, acc.Version)
	assert.Equal(t, acc.CreatedAt, acc.UpdatedAt)
}

func computed(balance int64) *Account {
	acc := NewAccount(uuid.New())
	acc.ApplyRecomputed(money.FromMinor(balance))
	return acc
}

func TestAccount_ApplyRecomputed(t *testing.T) {
	acc := NewAccount(uuid.New())
	acc.ApplyRecomputed(money.Zero)

	assert.True(t, acc.BalanceComputed, "zero is a legitimate computed balance")
	assert.True(t, acc.Balance.IsZero())
}

func TestAccount_Reserve(t *testing.T) {
	t.Run("debits the balance", func(t *testing.T) {
		acc := computed(10000)
		require.NoError(t, acc.Reserve(money.FromMinor(6000)))
		assert.Equal(t, money.FromMinor(4000), acc.Balance)
	})

	t.Run("exact balance", func(t *testing.T) {
		acc := computed(10000)
		require.NoError(t, acc.Reserve(money.FromMinor(10000)))
		assert.True(t, acc.Balance.IsZero())
	})

	t.Run("insufficient balance", func(t *testing.T) {
		acc := computed(4000)
		err := acc.Reserve(money.FromMinor(5000))

		assert.ErrorIs(t, err, shared.ErrInsufficientBalance)
		var insufficient ErrInsufficientBalance
		require.True(t, errors.As(err, &insufficient))
		assert.Equal(t, money.FromMinor(4000), insufficient.Available)
		assert.Equal(t, money.FromMinor(4000), acc.Balance, "balance untouched")
	})

	t.Run("non-positive amount", func(t *testing.T) {
		acc := computed(4000)
		assert.ErrorIs(t, acc.Reserve(money.Zero), shared.ErrInvalidAmount)
		assert.ErrorIs(t, acc.Reserve(money.FromMinor(-1)), shared.ErrInvalidAmount)
	})

	t.Run("uncomputed balance", func(t *testing.T) {
		acc := NewAccount(uuid.New())
		var notComputed ErrBalanceNotComputed
		assert.ErrorAs(t, acc.Reserve(money.FromMinor(1)), &notComputed)
	})
}

func TestAccount_CreditAndRelease(t *testing.T) {
	acc := computed(4000)
	require.NoError(t, acc.Release(money.FromMinor(6000)))
	assert.Equal(t, money.FromMinor(10000), acc.Balance)

	require.NoError(t, acc.Credit(money.FromMinor(250)))
	assert.Equal(t, money.FromMinor(10250), acc.Balance)

	assert.ErrorIs(t, acc.Credit(money.Zero), shared.ErrInvalidAmount)
	assert.Error(t, NewAccount(uuid.New()).Credit(money.FromMinor(1)))
}

func TestErrors_Is(t *testing.T) {
	id := uuid.New()

	assert.ErrorIs(t, ErrAccountNotFound{AccountID: id}, shared.ErrNotFound)
	assert.ErrorIs(t, ErrAccountNotFound{AccountID: id}, ErrAccountNotFound{})
	assert.ErrorIs(t, ErrAccountNotFound{AccountID: id}, ErrAccountNotFound{AccountID: id})
	assert.NotErrorIs(t, ErrAccountNotFound{AccountID: id}, ErrAccountNotFound{AccountID: uuid.New()})

	assert.ErrorIs(t, ErrDuplicateAccount{AccountID: id}, ErrDuplicateAccount{})
	assert.ErrorIs(t, ErrDuplicateAccount{AccountID: id}, shared.ErrConflict)
	assert.ErrorIs(t, ErrConcurrentModification{AccountID: id}, shared.ErrConflict)
}
