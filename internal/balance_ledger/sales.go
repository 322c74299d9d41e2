package balance_ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/marketplace-balance-ledger/internal/domain/account"
	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
)

// RecordSale stores the sale and credits the seller in one transaction. A
// seller without a ledger account gets one opened on the spot.
func (s *LedgerServiceImpl) RecordSale(ctx context.Context, request *shared.SaleRequest) (*sale.Sale, error) {
	log := s.logger
	if request.CorrelationID != "" {
		log = s.logger.With("correlation_id", request.CorrelationID)
	}

	sl, err := sale.NewFromRequest(request)
	if err != nil {
		return nil, err
	}

	err = s.txRunner.ExecuteTx(ctx, func(tx pgx.Tx) error {
		r := s.bind(tx)
		acc, err := s.lockOrOpen(ctx, r, request.SellerAccountID)
		if err != nil {
			return err
		}
		if err := r.sales.Create(ctx, sl); err != nil {
			return err
		}

		if acc.BalanceComputed {
			if err := acc.Credit(sl.Amount); err != nil {
				return err
			}
		} else if err := s.recompute(ctx, r, acc); err != nil {
			// the recompute already sees the sale inserted above
			return err
		}
		if err := r.accounts.SaveBalance(ctx, acc); err != nil {
			return err
		}

		event := activity.NewEvent(acc.ID, activity.TypeSaleRecorded, sl.Amount, acc.Balance, request.CorrelationID)
		event.SaleID = &sl.ID
		event.PaymentReference = sl.PaymentReference
		return s.emit(ctx, r, event)
	})
	if err != nil {
		if errors.Is(err, sale.ErrDuplicateSale{}) {
			log.Info("Sale already recorded", "payment_reference", request.PaymentReference)
		}
		return nil, err
	}

	log.Info("Sale recorded",
		"sale_id", sl.ID.String(),
		"seller_account_id", sl.SellerAccountID.String(),
		"amount", sl.Amount.String(),
		"payment_reference", sl.PaymentReference,
	)
	return sl, nil
}

// lockOrOpen locks the seller's account, creating it first when missing.
func (s *LedgerServiceImpl) lockOrOpen(ctx context.Context, r txRepos, accountID uuid.UUID) (*account.Account, error) {
	acc, err := r.accounts.LockForUpdate(ctx, accountID)
	if err == nil {
		return acc, nil
	}
	if !errors.Is(err, account.ErrAccountNotFound{}) {
		return nil, err
	}

	acc = account.NewAccount(accountID)
	err = r.accounts.Create(ctx, acc)
	if errors.Is(err, account.ErrDuplicateAccount{}) {
		// opened concurrently; the insert waited for it to commit
		return r.accounts.LockForUpdate(ctx, accountID)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("Account opened for seller", "account_id", accountID.String())
	return acc, nil
}

// SalesStats aggregates the seller's sales in the reporting window of
// timeframe, bucketed in UTC.
func (s *LedgerServiceImpl) SalesStats(ctx context.Context, accountID uuid.UUID, timeframe sale.Timeframe) ([]sale.Bucket, error) {
	since := timeframe.Since(s.clock())
	sales, err := s.saleRepo.ListBySellerSince(ctx, accountID, since)
	if err != nil {
		return nil, err
	}
	return sale.Aggregate(sales, timeframe, time.UTC), nil
}
