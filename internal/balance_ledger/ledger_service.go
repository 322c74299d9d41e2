package balance_ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/account"
	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/outbox"
	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/domain/withdrawal"
	"github.com/marketplace-balance-ledger/internal/logger"
)

// LedgerServiceImpl implements LedgerService on top of the domain repositories
type LedgerServiceImpl struct {
	txRunner       TxRunner
	accountRepo    account.Repository
	saleRepo       sale.Repository
	withdrawalRepo withdrawal.Repository
	outboxRepo     outbox.Repository
	logger         *slog.Logger
	clock          func() time.Time
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	txRunner TxRunner,
	accountRepo account.Repository,
	saleRepo sale.Repository,
	withdrawalRepo withdrawal.Repository,
	outboxRepo outbox.Repository,
	logger *slog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		txRunner:       txRunner,
		accountRepo:    accountRepo,
		saleRepo:       saleRepo,
		withdrawalRepo: withdrawalRepo,
		outboxRepo:     outboxRepo,
		logger:         logger,
		clock:          func() time.Time { return time.Now().UTC() },
	}
}

var _ LedgerService = (*LedgerServiceImpl)(nil)

// txRepos holds the repositories bound to one transaction.
type txRepos struct {
	accounts    account.Repository
	sales       sale.Repository
	withdrawals withdrawal.Repository
	outbox      outbox.Repository
}

func (s *LedgerServiceImpl) bind(tx pgx.Tx) txRepos {
	return txRepos{
		accounts:    s.accountRepo.WithTx(tx),
		sales:       s.saleRepo.WithTx(tx),
		withdrawals: s.withdrawalRepo.WithTx(tx),
		outbox:      s.outboxRepo.WithTx(tx),
	}
}

// EnsureAccount opens the account, returning the existing one when it is already open.
func (s *LedgerServiceImpl) EnsureAccount(ctx context.Context, accountID uuid.UUID) (*account.Account, error) {
	acc := account.NewAccount(accountID)
	err := s.accountRepo.Create(ctx, acc)
	if errors.Is(err, account.ErrDuplicateAccount{}) {
		return s.accountRepo.GetByID(ctx, accountID)
	}
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.logger).Info("Account opened", "account_id", accountID.String())
	return acc, nil
}

// GetBalance serves the cached balance and falls back to a locked recompute
// when the cache has never been filled.
func (s *LedgerServiceImpl) GetBalance(ctx context.Context, accountID uuid.UUID) (money.Money, error) {
	acc, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		return money.Zero, err
	}
	if acc.BalanceComputed {
		return acc.Balance, nil
	}

	var balance money.Money
	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		r := s.bind(tx)
		locked, err := r.accounts.LockForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		// Another request may have filled the cache while we waited for the lock.
		if locked.BalanceComputed {
			balance = locked.Balance
			return nil
		}
		if err := s.recompute(ctx, r, locked); err != nil {
			return err
		}
		if err := r.accounts.SaveBalance(ctx, locked); err != nil {
			return err
		}
		balance = locked.Balance
		return nil
	})
	if err != nil {
		return money.Zero, err
	}

	logger.WithContext(ctx, s.logger).Info("Balance computed", "account_id", accountID.String(), "balance", balance.String())
	return balance, nil
}

// ReconcileBalance recomputes the balance from sales and withdrawals,
// records the drift against the previous cache and stores the result.
func (s *LedgerServiceImpl) ReconcileBalance(ctx context.Context, accountID uuid.UUID) (money.Money, error) {
	log := logger.WithContext(ctx, s.logger)

	var balance money.Money
	err := s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		r := s.bind(tx)
		acc, err := r.accounts.LockForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		previous, wasComputed := acc.Balance, acc.BalanceComputed

		if err := s.recompute(ctx, r, acc); err != nil {
			return err
		}
		if err := r.accounts.SaveBalance(ctx, acc); err != nil {
			return err
		}

		drift := money.Zero
		if wasComputed {
			drift = acc.Balance.Sub(previous)
		}
		if !drift.IsZero() {
			log.Warn("Cached balance drifted",
				"account_id", accountID.String(),
				"cached", previous.String(),
				"recomputed", acc.Balance.String(),
			)
		}

		balance = acc.Balance
		event := activity.NewEvent(accountID, activity.TypeBalanceReconciled, drift, acc.Balance, shared.CorrelationIDFromContext(ctx))
		return s.emit(ctx, r, event)
	})
	if err != nil {
		return money.Zero, err
	}

	log.Info("Balance reconciled", "account_id", accountID.String(), "balance", balance.String())
	return balance, nil
}

// recompute sets the cache to sum(sales) - sum(reserving withdrawals), as
// seen by the transaction r is bound to.
func (s *LedgerServiceImpl) recompute(ctx context.Context, r txRepos, acc *account.Account) error {
	credited, err := r.sales.SumBySeller(ctx, acc.ID)
	if err != nil {
		return err
	}
	reserved, err := r.withdrawals.SumReserved(ctx, acc.ID)
	if err != nil {
		return err
	}
	acc.ApplyRecomputed(credited.Sub(reserved))
	return nil
}

func (s *LedgerServiceImpl) ensureComputed(ctx context.Context, r txRepos, acc *account.Account) error {
	if acc.BalanceComputed {
		return nil
	}
	return s.recompute(ctx, r, acc)
}

// emit writes event to the outbox within the current transaction.
func (s *LedgerServiceImpl) emit(ctx context.Context, r txRepos, event *activity.Event) error {
	message, err := outbox.NewMessage(event)
	if err != nil {
		s.logger.Error("Failed to create outbox message (marshal payload)", "event_id", event.EventID.String(), "error", err)
		return fmt.Errorf("failed to create outbox message payload for event %s: %w", event.EventID.String(), err)
	}
	if err := r.outbox.Create(ctx, message); err != nil {
		return fmt.Errorf("failed to create outbox message for event %s: %w", event.EventID.String(), err)
	}
	return nil
}
