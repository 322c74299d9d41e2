package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/account"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/outbox"
	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/domain/withdrawal"
)

// AccountRepository implements account.Repository in memory
type AccountRepository struct {
	store *Store
	inTx  bool
}

func (r *AccountRepository) WithTx(_ pgx.Tx) account.Repository {
	return &AccountRepository{store: r.store, inTx: true}
}

func (r *AccountRepository) Create(_ context.Context, acc *account.Account) error {
	var err error
	r.store.write(r.inTx, func(d *state) {
		if _, exists := d.accounts[acc.ID]; exists {
			err = account.ErrDuplicateAccount{AccountID: acc.ID}
			return
		}
		d.accounts[acc.ID] = *acc
	})
	return err
}

func (r *AccountRepository) GetByID(_ context.Context, id uuid.UUID) (*account.Account, error) {
	var (
		acc account.Account
		ok  bool
	)
	r.store.read(r.inTx, func(d *state) {
		acc, ok = d.accounts[id]
	})
	if !ok {
		return nil, account.ErrAccountNotFound{AccountID: id}
	}
	return &acc, nil
}

// LockForUpdate is GetByID: the transaction already holds the store lock.
func (r *AccountRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*account.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *AccountRepository) SaveBalance(_ context.Context, acc *account.Account) error {
	var err error
	r.store.write(r.inTx, func(d *state) {
		stored, ok := d.accounts[acc.ID]
		if !ok {
			err = account.ErrAccountNotFound{AccountID: acc.ID}
			return
		}
		stored.Balance = acc.Balance
		stored.BalanceComputed = acc.BalanceComputed
		stored.Version++
		stored.UpdatedAt = acc.UpdatedAt
		d.accounts[acc.ID] = stored
		acc.Version = stored.Version
	})
	return err
}

// SaleRepository implements sale.Repository in memory
type SaleRepository struct {
	store *Store
	inTx  bool
}

func (r *SaleRepository) WithTx(_ pgx.Tx) sale.Repository {
	return &SaleRepository{store: r.store, inTx: true}
}

func (r *SaleRepository) Create(_ context.Context, s *sale.Sale) error {
	var err error
	r.store.write(r.inTx, func(d *state) {
		if _, exists := d.salesByRef[s.PaymentReference]; exists {
			err = sale.ErrDuplicateSale{PaymentReference: s.PaymentReference}
			return
		}
		d.sales[s.ID] = *s
		d.salesByRef[s.PaymentReference] = s.ID
		d.saleOrder = append(d.saleOrder, s.ID)
	})
	return err
}

func (r *SaleRepository) GetByPaymentReference(_ context.Context, reference string) (*sale.Sale, error) {
	var (
		s  sale.Sale
		ok bool
	)
	r.store.read(r.inTx, func(d *state) {
		var id uuid.UUID
		if id, ok = d.salesByRef[reference]; ok {
			s = d.sales[id]
		}
	})
	if !ok {
		return nil, sale.ErrSaleNotFound{PaymentReference: reference}
	}
	return &s, nil
}

func (r *SaleRepository) SumBySeller(_ context.Context, sellerAccountID uuid.UUID) (money.Money, error) {
	total := money.Zero
	r.store.read(r.inTx, func(d *state) {
		for _, s := range d.sales {
			if s.SellerAccountID == sellerAccountID {
				total = total.Add(s.Amount)
			}
		}
	})
	return total, nil
}

func (r *SaleRepository) ListBySellerSince(_ context.Context, sellerAccountID uuid.UUID, since time.Time) ([]*sale.Sale, error) {
	result := make([]*sale.Sale, 0)
	r.store.read(r.inTx, func(d *state) {
		for _, id := range d.saleOrder {
			s := d.sales[id]
			if s.SellerAccountID == sellerAccountID && !s.CreatedAt.Before(since) {
				result = append(result, &s)
			}
		}
	})
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// WithdrawalRepository implements withdrawal.Repository in memory
type WithdrawalRepository struct {
	store *Store
	inTx  bool
}

func (r *WithdrawalRepository) WithTx(_ pgx.Tx) withdrawal.Repository {
	return &WithdrawalRepository{store: r.store, inTx: true}
}

func (r *WithdrawalRepository) Create(_ context.Context, w *withdrawal.Withdrawal) error {
	r.store.write(r.inTx, func(d *state) {
		d.seq++
		d.withdrawals[w.ID] = withdrawalRecord{withdrawal: *w, seq: d.seq}
	})
	return nil
}

func (r *WithdrawalRepository) GetByID(_ context.Context, id uuid.UUID) (*withdrawal.Withdrawal, error) {
	var (
		rec withdrawalRecord
		ok  bool
	)
	r.store.read(r.inTx, func(d *state) {
		rec, ok = d.withdrawals[id]
	})
	if !ok {
		return nil, withdrawal.ErrWithdrawalNotFound{WithdrawalID: id}
	}
	w := rec.withdrawal
	return &w, nil
}

func (r *WithdrawalRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*withdrawal.Withdrawal, error) {
	return r.GetByID(ctx, id)
}

// newestFirst returns the records matching keep, ordered by creation time
// descending with insertion order breaking ties.
func (r *WithdrawalRepository) newestFirst(keep func(w *withdrawal.Withdrawal) bool) []*withdrawal.Withdrawal {
	var records []withdrawalRecord
	r.store.read(r.inTx, func(d *state) {
		for _, rec := range d.withdrawals {
			if keep(&rec.withdrawal) {
				records = append(records, rec)
			}
		}
	})
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.withdrawal.CreatedAt.Equal(b.withdrawal.CreatedAt) {
			return a.withdrawal.CreatedAt.After(b.withdrawal.CreatedAt)
		}
		return a.seq > b.seq
	})

	result := make([]*withdrawal.Withdrawal, 0, len(records))
	for i := range records {
		w := records[i].withdrawal
		result = append(result, &w)
	}
	return result
}

func (r *WithdrawalRepository) ListByAccount(_ context.Context, accountID uuid.UUID) ([]*withdrawal.Withdrawal, error) {
	return r.newestFirst(func(w *withdrawal.Withdrawal) bool {
		return w.AccountID == accountID
	}), nil
}

func (r *WithdrawalRepository) List(_ context.Context, filter withdrawal.Filter) ([]*withdrawal.Withdrawal, int64, error) {
	all := r.newestFirst(func(w *withdrawal.Withdrawal) bool {
		return filter.Status == "" || w.Status == filter.Status
	})
	total := int64(len(all))

	if filter.Offset >= len(all) {
		return []*withdrawal.Withdrawal{}, total, nil
	}
	end := len(all)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return all[filter.Offset:end], total, nil
}

func (r *WithdrawalRepository) Update(_ context.Context, w *withdrawal.Withdrawal) error {
	var err error
	r.store.write(r.inTx, func(d *state) {
		rec, ok := d.withdrawals[w.ID]
		if !ok {
			err = withdrawal.ErrWithdrawalNotFound{WithdrawalID: w.ID}
			return
		}
		rec.withdrawal.Status = w.Status
		rec.withdrawal.Settlement = w.Settlement
		rec.withdrawal.UpdatedAt = w.UpdatedAt
		d.withdrawals[w.ID] = rec
	})
	return err
}

func (r *WithdrawalRepository) Delete(_ context.Context, id uuid.UUID) error {
	var err error
	r.store.write(r.inTx, func(d *state) {
		if _, ok := d.withdrawals[id]; !ok {
			err = withdrawal.ErrWithdrawalNotFound{WithdrawalID: id}
			return
		}
		delete(d.withdrawals, id)
	})
	return err
}

func (r *WithdrawalRepository) SumReserved(_ context.Context, accountID uuid.UUID) (money.Money, error) {
	total := money.Zero
	r.store.read(r.inTx, func(d *state) {
		for _, rec := range d.withdrawals {
			if rec.withdrawal.AccountID == accountID && rec.withdrawal.Status.Reserves() {
				total = total.Add(rec.withdrawal.Amount)
			}
		}
	})
	return total, nil
}

// OutboxRepository implements outbox.Repository in memory
type OutboxRepository struct {
	store *Store
	inTx  bool
}

func (r *OutboxRepository) WithTx(_ pgx.Tx) outbox.Repository {
	return &OutboxRepository{store: r.store, inTx: true}
}

func (r *OutboxRepository) Create(_ context.Context, message *outbox.Message) error {
	var err error
	r.store.write(r.inTx, func(d *state) {
		for _, m := range d.outbox {
			if m.EventID == message.EventID {
				err = outbox.ErrDuplicateMessage{EventID: message.EventID}
				return
			}
		}
		d.seq++
		message.ID = d.seq
		d.outbox = append(d.outbox, *message)
	})
	return err
}

func (r *OutboxRepository) GetPending(_ context.Context, limit int) ([]*outbox.Message, error) {
	result := make([]*outbox.Message, 0)
	r.store.read(r.inTx, func(d *state) {
		for i := range d.outbox {
			if len(result) == limit {
				return
			}
			if d.outbox[i].Status == shared.OutboxStatusPending {
				m := d.outbox[i]
				result = append(result, &m)
			}
		}
	})
	return result, nil
}

func (r *OutboxRepository) update(id int64, fn func(m *outbox.Message)) error {
	var err error
	r.store.write(r.inTx, func(d *state) {
		for i := range d.outbox {
			if d.outbox[i].ID == id {
				fn(&d.outbox[i])
				return
			}
		}
		err = outbox.ErrMessageNotFound{ID: id}
	})
	return err
}

func (r *OutboxRepository) UpdateStatus(_ context.Context, id int64, status shared.OutboxStatus) error {
	return r.update(id, func(m *outbox.Message) {
		m.SetStatus(status, time.Now().UTC())
	})
}

func (r *OutboxRepository) IncrementAttempts(_ context.Context, id int64) error {
	return r.update(id, func(m *outbox.Message) {
		m.RecordAttempt(time.Now().UTC())
	})
}

func (r *OutboxRepository) PurgeProcessed(_ context.Context, cutoff time.Time) (int64, error) {
	var purged int64
	r.store.write(r.inTx, func(d *state) {
		kept := d.outbox[:0]
		for _, m := range d.outbox {
			if m.Status == shared.OutboxStatusProcessed && m.LastAttemptAt != nil && m.LastAttemptAt.Before(cutoff) {
				purged++
				continue
			}
			kept = append(kept, m)
		}
		d.outbox = kept
	})
	return purged, nil
}

func (r *OutboxRepository) GetByEventID(_ context.Context, eventID uuid.UUID) (*outbox.Message, error) {
	var (
		m  outbox.Message
		ok bool
	)
	r.store.read(r.inTx, func(d *state) {
		for i := range d.outbox {
			if d.outbox[i].EventID == eventID {
				m, ok = d.outbox[i], true
				return
			}
		}
	})
	if !ok {
		return nil, outbox.ErrMessageNotFound{ID: 0}
	}
	return &m, nil
}
