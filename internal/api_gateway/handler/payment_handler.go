package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/api_gateway/middleware"
	"github.com/marketplace-balance-ledger/internal/api_gateway/service"
)

// PaymentHandler receives verified checkout payments
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
	}
}

// Verify checks the gateway signature and queues the sale for the amount the
// gateway charged. The seller is credited asynchronously, so the response is 202.
func (h *PaymentHandler) Verify(c *gin.Context) {
	var req VerifyPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	verification := &service.PaymentVerification{
		OrderID:         req.OrderID,
		PaymentID:       req.PaymentID,
		Signature:       req.Signature,
		ProductID:       uuid.MustParse(req.ProductID),
		SellerAccountID: uuid.MustParse(req.SellerAccountID),
	}
	if buyerID, ok := middleware.GetAccountID(c); ok {
		verification.BuyerID = &buyerID
	}

	saleRequest, err := h.paymentService.VerifyPayment(c.Request.Context(), verification)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			RespondWithError(c, http.StatusBadRequest, "INVALID_SIGNATURE", "Invalid payment signature")
		case errors.Is(err, service.ErrPaymentMismatch):
			RespondWithError(c, http.StatusUnprocessableEntity, "PAYMENT_MISMATCH", "Payment does not belong to this order")
		case errors.Is(err, service.ErrPaymentNotSettled):
			RespondWithError(c, http.StatusUnprocessableEntity, "PAYMENT_NOT_SETTLED", "Payment has not been completed")
		case errors.Is(err, service.ErrGatewayUnavailable):
			h.logger.Error("Payment gateway lookup failed", "payment_id", req.PaymentID, "error", err)
			RespondWithError(c, http.StatusBadGateway, "PAYMENT_GATEWAY_UNAVAILABLE", "Payment gateway unavailable, retry later")
		default:
			RespondDomainError(c, h.logger, err)
		}
		return
	}

	RespondAccepted(c, SaleRequestResponse{
		RequestID:        saleRequest.RequestID.String(),
		PaymentReference: saleRequest.PaymentReference,
		Status:           "PENDING",
	})
}
