// Package memory holds in-process implementations of the ledger
// repositories. Transactions are serialized by a single lock and undone by
// restoring a snapshot, which is enough for tests and local runs.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/account"
	"github.com/marketplace-balance-ledger/internal/domain/outbox"
	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/domain/withdrawal"
)

type withdrawalRecord struct {
	withdrawal withdrawal.Withdrawal
	seq        int64
}

type state struct {
	accounts    map[uuid.UUID]account.Account
	sales       map[uuid.UUID]sale.Sale
	salesByRef  map[string]uuid.UUID
	saleOrder   []uuid.UUID
	withdrawals map[uuid.UUID]withdrawalRecord
	outbox      []outbox.Message
	seq         int64
}

func newState() state {
	return state{
		accounts:    make(map[uuid.UUID]account.Account),
		sales:       make(map[uuid.UUID]sale.Sale),
		salesByRef:  make(map[string]uuid.UUID),
		withdrawals: make(map[uuid.UUID]withdrawalRecord),
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.sales {
		c.sales[k] = v
	}
	for k, v := range s.salesByRef {
		c.salesByRef[k] = v
	}
	c.saleOrder = append([]uuid.UUID(nil), s.saleOrder...)
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	c.outbox = append([]outbox.Message(nil), s.outbox...)
	c.seq = s.seq
	return c
}

// Store is the shared backing state of the memory repositories.
type Store struct {
	txMu sync.Mutex   // held for the whole of a transaction
	mu   sync.RWMutex // guards data
	data state
}

func NewStore() *Store {
	return &Store{data: newState()}
}

// ExecuteTx runs fn with exclusive access to the store. Changes made by fn
// are discarded when it returns an error or panics. fn receives a nil
// pgx.Tx; memory repositories ignore it.
func (s *Store) ExecuteTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	rollback := func() {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
	}

	defer func() {
		if r := recover(); r != nil {
			rollback()
			panic(r)
		}
	}()

	if err := fn(nil); err != nil {
		rollback()
		return err
	}
	return nil
}

// read runs fn under the read lock. Outside a transaction it also waits for
// any running transaction so uncommitted changes are never observed.
func (s *Store) read(inTx bool, fn func(d *state)) {
	if !inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&s.data)
}

func (s *Store) write(inTx bool, fn func(d *state)) {
	if !inTx {
		s.txMu.Lock()
		defer s.txMu.Unlock()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.data)
}

// Accounts returns an account repository backed by the store.
func (s *Store) Accounts() *AccountRepository {
	return &AccountRepository{store: s}
}

// Sales returns a sale repository backed by the store.
func (s *Store) Sales() *SaleRepository {
	return &SaleRepository{store: s}
}

// Withdrawals returns a withdrawal repository backed by the store.
func (s *Store) Withdrawals() *WithdrawalRepository {
	return &WithdrawalRepository{store: s}
}

// Outbox returns an outbox repository backed by the store.
func (s *Store) Outbox() *OutboxRepository {
	return &OutboxRepository{store: s}
}
