package components

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/sale_processor/service"
)

// rejectionNamespace derives stable event ids so a redelivered rejection is
// stored once.
var rejectionNamespace = uuid.MustParse("5b1f7a3e-9c2d-4e8a-b6f0-1d2c3e4f5a6b")

type FailureRecorderImpl struct {
	activityRepo activity.Repository
	logger       *slog.Logger
}

func NewFailureRecorder(activityRepo activity.Repository, logger *slog.Logger) *FailureRecorderImpl {
	return &FailureRecorderImpl{
		activityRepo: activityRepo,
		logger:       logger,
	}
}

var _ service.FailureRecorder = (*FailureRecorderImpl)(nil)

// RecordFailure writes a SALE_REJECTED event to the seller's activity history.
// The balance is untouched, so the event carries no balance snapshot.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, request *shared.SaleRequest, reason shared.FailureReason) error {
	logger := r.logger.With("payment_reference", request.PaymentReference, "reason", reason)
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}

	if request.SellerAccountID == uuid.Nil {
		logger.Warn("Rejected sale has no seller, not recording activity")
		return nil
	}

	event := activity.NewEvent(request.SellerAccountID, activity.TypeSaleRejected, request.Amount, money.Zero, request.CorrelationID)
	event.EventID = RejectionEventID(request)
	event.PaymentReference = request.PaymentReference
	event.FailureReason = string(reason)

	if err := r.activityRepo.Create(ctx, event); err != nil {
		if errors.Is(err, activity.ErrDuplicateEvent{}) {
			logger.Info("Sale rejection already recorded")
			return nil
		}
		logger.Error("Failed to record sale rejection", "error", err)
		return err
	}

	logger.Info("Recorded sale rejection", "event_id", event.EventID.String())
	return nil
}

// RejectionEventID is stable for a given request and payment
func RejectionEventID(request *shared.SaleRequest) uuid.UUID {
	return uuid.NewSHA1(rejectionNamespace, []byte(request.RequestID.String()+"|"+request.PaymentReference))
}
