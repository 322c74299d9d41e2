package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/platform/messaging/producers"
	"github.com/marketplace-balance-ledger/internal/sale_processor/service"
)

// SaleEventHandler decodes sale request messages and hands them to the
// processing service
type SaleEventHandler struct {
	processingService service.ProcessingService
	dlq               producers.DeadLetterPublisher
	logger            *slog.Logger
}

func NewSaleEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	dlq producers.DeadLetterPublisher,
) *SaleEventHandler {
	return &SaleEventHandler{
		processingService: processingService,
		dlq:               dlq,
		logger:            logger,
	}
}

// HandleMessage processes one Kafka message. Undecodable payloads are parked
// in the dead letter topic; a failed park leaves the offset uncommitted.
func (h *SaleEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var request shared.SaleRequest
	if err := json.Unmarshal(value, &request); err != nil {
		h.logger.Error("Failed to unmarshal sale request", "message_key", string(key), "error", err)

		reason := fmt.Sprintf("%s: %s", shared.FailureReasonMalformedMessage, err)
		if dlqErr := h.dlq.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			h.logger.Error("Failed to park malformed sale request",
				"message_key", string(key),
				"dlq_error", dlqErr,
			)
			return fmt.Errorf("failed to unmarshal message value: %w", err)
		}
		return nil
	}

	// fall back to the correlation header
	if request.CorrelationID == "" {
		request.CorrelationID = shared.CorrelationIDFromContext(ctx)
	}
	if request.CorrelationID != "" {
		ctx = shared.WithCorrelationID(ctx, request.CorrelationID)
	}

	logger := h.logger.With(
		"payment_reference", request.PaymentReference,
		"seller_account_id", request.SellerAccountID.String(),
	)
	if request.CorrelationID != "" {
		logger = logger.With("correlation_id", request.CorrelationID)
	}
	logger.Info("Received sale request", "amount", request.Amount.String())

	if err := h.processingService.ProcessSale(ctx, &request); err != nil {
		logger.Error("Failed to process sale request", "error", err)
		return fmt.Errorf("processing sale for payment %s failed: %w", request.PaymentReference, err)
	}

	return nil
}
