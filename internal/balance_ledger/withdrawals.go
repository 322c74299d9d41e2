package balance_ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/domain/withdrawal"
	"github.com/marketplace-balance-ledger/internal/logger"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// RequestWithdrawal checks the amount against the balance and reserves it
// while holding the account lock, so concurrent requests see each other's
// reservations.
func (s *LedgerServiceImpl) RequestWithdrawal(ctx context.Context, accountID uuid.UUID, amount money.Money, destination withdrawal.PayoutDestination) (*withdrawal.Withdrawal, error) {
	log := logger.WithContext(ctx, s.logger)

	w, err := withdrawal.New(accountID, amount, destination)
	if err != nil {
		return nil, err
	}

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		r := s.bind(tx)
		acc, err := r.accounts.LockForUpdate(ctx, accountID)
		if err != nil {
			return err
		}
		if err := s.ensureComputed(ctx, r, acc); err != nil {
			return err
		}
		if err := acc.Reserve(amount); err != nil {
			log.Warn("Withdrawal refused", "account_id", accountID.String(), "amount", amount.String(), "balance", acc.Balance.String(), "error", err)
			return err
		}
		if err := r.withdrawals.Create(ctx, w); err != nil {
			return err
		}
		if err := r.accounts.SaveBalance(ctx, acc); err != nil {
			return err
		}

		event := activity.NewEvent(accountID, activity.TypeWithdrawalRequested, amount, acc.Balance, shared.CorrelationIDFromContext(ctx))
		event.WithdrawalID = &w.ID
		event.ToStatus = string(w.Status)
		return s.emit(ctx, r, event)
	})
	if err != nil {
		return nil, err
	}

	log.Info("Withdrawal requested",
		"withdrawal_id", w.ID.String(),
		"account_id", accountID.String(),
		"amount", amount.String(),
		"method", string(destination.Method),
	)
	return w, nil
}

// DeleteWithdrawal removes a pending withdrawal and credits its amount back.
func (s *LedgerServiceImpl) DeleteWithdrawal(ctx context.Context, withdrawalID, requesterID uuid.UUID) error {
	log := logger.WithContext(ctx, s.logger)

	w, err := s.withdrawalRepo.GetByID(ctx, withdrawalID)
	if err != nil {
		return err
	}
	if err := w.EnsureOwnedBy(requesterID); err != nil {
		log.Warn("Withdrawal deletion by non-owner", "withdrawal_id", withdrawalID.String(), "requester_id", requesterID.String())
		return err
	}

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		r := s.bind(tx)
		// Account first, then withdrawal: every writer takes the locks in this order.
		acc, err := r.accounts.LockForUpdate(ctx, w.AccountID)
		if err != nil {
			return err
		}
		locked, err := r.withdrawals.LockForUpdate(ctx, withdrawalID)
		if err != nil {
			return err
		}
		if err := locked.EnsureDeletable(); err != nil {
			return err
		}
		if err := s.ensureComputed(ctx, r, acc); err != nil {
			return err
		}
		if err := r.withdrawals.Delete(ctx, withdrawalID); err != nil {
			return err
		}
		if err := acc.Release(locked.Amount); err != nil {
			return err
		}
		if err := r.accounts.SaveBalance(ctx, acc); err != nil {
			return err
		}

		event := activity.NewEvent(acc.ID, activity.TypeWithdrawalDeleted, locked.Amount, acc.Balance, shared.CorrelationIDFromContext(ctx))
		event.WithdrawalID = &locked.ID
		event.FromStatus = string(locked.Status)
		return s.emit(ctx, r, event)
	})
	if err != nil {
		return err
	}

	log.Info("Withdrawal deleted", "withdrawal_id", withdrawalID.String(), "account_id", w.AccountID.String())
	return nil
}

// ListWithdrawals returns the account's withdrawals, newest first.
func (s *LedgerServiceImpl) ListWithdrawals(ctx context.Context, accountID uuid.UUID) ([]*withdrawal.Withdrawal, error) {
	return s.withdrawalRepo.ListByAccount(ctx, accountID)
}

// TransitionWithdrawal applies an admin status change. Completion without
// settlement details is refused before the withdrawal is even loaded;
// rejection credits the reserved amount back.
func (s *LedgerServiceImpl) TransitionWithdrawal(ctx context.Context, withdrawalID uuid.UUID, target withdrawal.Status, settlement *withdrawal.SettlementDetails) (*withdrawal.Withdrawal, error) {
	log := logger.WithContext(ctx, s.logger)

	if err := withdrawal.RequireSettlement(withdrawalID, target, settlement); err != nil {
		return nil, err
	}

	w, err := s.withdrawalRepo.GetByID(ctx, withdrawalID)
	if err != nil {
		return nil, err
	}

	var updated *withdrawal.Withdrawal
	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		r := s.bind(tx)
		acc, err := r.accounts.LockForUpdate(ctx, w.AccountID)
		if err != nil {
			return err
		}
		locked, err := r.withdrawals.LockForUpdate(ctx, withdrawalID)
		if err != nil {
			return err
		}

		from := locked.Status
		if err := locked.TransitionTo(target, settlement); err != nil {
			log.Warn("Withdrawal transition refused", "withdrawal_id", withdrawalID.String(), "from", string(from), "to", string(target), "error", err)
			return err
		}

		// Recompute before the new status is written so the reservation is
		// still counted.
		wasComputed := acc.BalanceComputed
		if err := s.ensureComputed(ctx, r, acc); err != nil {
			return err
		}
		if err := r.withdrawals.Update(ctx, locked); err != nil {
			return err
		}

		delta := locked.BalanceDelta(from, target)
		if delta.IsPositive() {
			if err := acc.Release(delta); err != nil {
				return err
			}
		}
		if !wasComputed || !delta.IsZero() {
			if err := r.accounts.SaveBalance(ctx, acc); err != nil {
				return err
			}
		}

		event := activity.NewEvent(acc.ID, activity.TypeWithdrawalStatusChanged, locked.Amount, acc.Balance, shared.CorrelationIDFromContext(ctx))
		event.WithdrawalID = &locked.ID
		event.FromStatus = string(from)
		event.ToStatus = string(target)
		if err := s.emit(ctx, r, event); err != nil {
			return err
		}

		updated = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("Withdrawal transitioned",
		"withdrawal_id", withdrawalID.String(),
		"account_id", updated.AccountID.String(),
		"to", string(updated.Status),
	)
	return updated, nil
}

// ListAllWithdrawals pages through withdrawals for the admin screen.
// page starts at 1; perPage is clamped to [1, 100].
func (s *LedgerServiceImpl) ListAllWithdrawals(ctx context.Context, status withdrawal.Status, page, perPage int) ([]*withdrawal.Withdrawal, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	return s.withdrawalRepo.List(ctx, withdrawal.Filter{
		Status: status,
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	})
}
