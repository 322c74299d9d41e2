package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/payment"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/platform/messaging/producers"
)

var (
	ErrInvalidSignature = errors.New("invalid payment signature")
	// ErrPaymentMismatch means the gateway knows no such payment for the order
	ErrPaymentMismatch = errors.New("payment does not match order")
	// ErrPaymentNotSettled means the buyer has not been charged
	ErrPaymentNotSettled = errors.New("payment not settled")
	// ErrGatewayUnavailable wraps failures talking to the payment gateway
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

// PaymentVerification is what the checkout page sends back after the
// gateway confirmed a payment. The amount is never taken from the caller.
type PaymentVerification struct {
	OrderID         string
	PaymentID       string
	Signature       string
	ProductID       uuid.UUID
	SellerAccountID uuid.UUID
	BuyerID         *uuid.UUID // nil for guest checkouts
}

// PaymentServiceImpl implements the PaymentService interface
type PaymentServiceImpl struct {
	keySecret []byte
	gateway   payment.Gateway
	producer  producers.MessagePublisher
	logger    *slog.Logger
	clock     func() time.Time
}

var _ PaymentService = (*PaymentServiceImpl)(nil)

// NewPaymentService creates a payment service signing with the gateway key secret
func NewPaymentService(logger *slog.Logger, keySecret string, gateway payment.Gateway, producer producers.MessagePublisher) *PaymentServiceImpl {
	return &PaymentServiceImpl{
		keySecret: []byte(keySecret),
		gateway:   gateway,
		producer:  producer,
		logger:    logger,
		clock:     time.Now,
	}
}

// Sign computes the signature the gateway attaches to a successful payment
func Sign(keySecret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *PaymentServiceImpl) validSignature(orderID, paymentID, signature string) bool {
	expected := Sign(string(s.keySecret), orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// VerifyPayment publishes the sale request keyed by payment id, so replays of
// one payment land on the same partition and the processor dedupes them. The
// sale amount is what the gateway says the buyer was charged.
func (s *PaymentServiceImpl) VerifyPayment(ctx context.Context, v *PaymentVerification) (*shared.SaleRequest, error) {
	if !s.validSignature(v.OrderID, v.PaymentID, v.Signature) {
		s.logger.Warn("Payment signature mismatch",
			"order_id", v.OrderID,
			"payment_id", v.PaymentID,
		)
		return nil, ErrInvalidSignature
	}

	charged, err := s.chargedAmount(ctx, v)
	if err != nil {
		return nil, err
	}

	request := &shared.SaleRequest{
		RequestID:        uuid.New(),
		ProductID:        v.ProductID,
		SellerAccountID:  v.SellerAccountID,
		BuyerID:          v.BuyerID,
		Amount:           charged,
		PaymentReference: v.PaymentID,
		OrderReference:   v.OrderID,
		CorrelationID:    shared.CorrelationIDFromContext(ctx),
		Timestamp:        s.clock().UTC(),
	}
	if err := request.Validate(); err != nil {
		return nil, err
	}

	if err := s.producer.Publish(ctx, request.PaymentReference, request); err != nil {
		s.logger.Error("Failed to publish sale request",
			"payment_id", v.PaymentID,
			"seller_account_id", v.SellerAccountID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to publish sale request: %w", err)
	}

	s.logger.Info("Sale request published",
		"request_id", request.RequestID.String(),
		"payment_id", request.PaymentReference,
		"seller_account_id", request.SellerAccountID.String(),
		"amount", request.Amount.String(),
	)

	return request, nil
}

// chargedAmount asks the gateway what the buyer actually paid for the order
func (s *PaymentServiceImpl) chargedAmount(ctx context.Context, v *PaymentVerification) (money.Money, error) {
	p, err := s.gateway.FetchPayment(ctx, v.PaymentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound) {
			s.logger.Warn("Payment unknown to gateway", "payment_id", v.PaymentID, "order_id", v.OrderID)
			return money.Zero, ErrPaymentMismatch
		}
		return money.Zero, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err)
	}

	if p.OrderID != v.OrderID {
		s.logger.Warn("Payment belongs to another order",
			"payment_id", v.PaymentID,
			"order_id", v.OrderID,
			"gateway_order_id", p.OrderID,
		)
		return money.Zero, ErrPaymentMismatch
	}
	if !p.Settled() {
		s.logger.Warn("Payment not settled", "payment_id", v.PaymentID, "status", p.Status)
		return money.Zero, ErrPaymentNotSettled
	}
	return p.Amount, nil
}
