package account

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/money"
)

// Account is a seller's ledger identity. Balance is a cache of
// sum(sales) - sum(reserving withdrawals) and is only meaningful while
// BalanceComputed is true.
type Account struct {
	ID              uuid.UUID   `json:"id"`
	Balance         money.Money `json:"balance"`
	BalanceComputed bool        `json:"balance_computed"`
	Version         int         `json:"version"` // bumped by the repository on every save
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// NewAccount opens a ledger account for the seller with the given id. The
// balance is computed lazily on first read.
func NewAccount(id uuid.UUID) *Account {
	now := time.Now().UTC()
	return &Account{
		ID:        id,
		Balance:   money.Zero,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyRecomputed replaces the cache with a value derived from sales and
// withdrawals.
func (a *Account) ApplyRecomputed(balance money.Money) {
	a.Balance = balance
	a.BalanceComputed = true
	a.touch()
}

// Reserve debits amount from a computed balance.
func (a *Account) Reserve(amount money.Money) error {
	if !amount.IsPositive() {
		return money.ErrInvalidAmount
	}
	if !a.BalanceComputed {
		return ErrBalanceNotComputed{AccountID: a.ID}
	}
	if amount.Cmp(a.Balance) > 0 {
		return ErrInsufficientBalance{AccountID: a.ID, Requested: amount, Available: a.Balance}
	}
	a.Balance = a.Balance.Sub(amount)
	a.touch()
	return nil
}

// Release credits a previously reserved amount back.
func (a *Account) Release(amount money.Money) error {
	return a.credit(amount)
}

// Credit records incoming sale proceeds.
func (a *Account) Credit(amount money.Money) error {
	return a.credit(amount)
}

func (a *Account) credit(amount money.Money) error {
	if !amount.IsPositive() {
		return money.ErrInvalidAmount
	}
	if !a.BalanceComputed {
		return ErrBalanceNotComputed{AccountID: a.ID}
	}
	a.Balance = a.Balance.Add(amount)
	a.touch()
	return nil
}

func (a *Account) touch() {
	a.UpdatedAt = time.Now().UTC()
}
