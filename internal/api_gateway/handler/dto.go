package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/sale"
	"github.com/marketplace-balance-ledger/internal/domain/withdrawal"
)

// CreateWithdrawalRequest represents a seller's payout request
type CreateWithdrawalRequest struct {
	Amount      money.Money                  `json:"amount"`
	Destination withdrawal.PayoutDestination `json:"destination"`
}

// UpdateWithdrawalRequest represents an admin status change
type UpdateWithdrawalRequest struct {
	Status     string                        `json:"status" binding:"required"`
	Settlement *withdrawal.SettlementDetails `json:"settlement,omitempty"`
}

// VerifyPaymentRequest represents the gateway callback forwarded by the
// checkout page. It carries no amount; the gateway is asked what was charged.
type VerifyPaymentRequest struct {
	PaymentID       string `json:"razorpay_payment_id" binding:"required,max=64"`
	OrderID         string `json:"razorpay_order_id" binding:"required,max=64"`
	Signature       string `json:"razorpay_signature" binding:"required,hexadecimal,len=64"`
	ProductID       string `json:"product_id" binding:"required,uuid"`
	SellerAccountID string `json:"seller_account_id" binding:"required,uuid"`
}

// AccountResponse represents a ledger account in API responses
type AccountResponse struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

// BalanceResponse represents the withdrawable balance
type BalanceResponse struct {
	AccountID string      `json:"account_id"`
	Balance   money.Money `json:"balance"`
}

// WithdrawalResponse represents a withdrawal in API responses
type WithdrawalResponse struct {
	ID          string                        `json:"id"`
	AccountID   string                        `json:"account_id"`
	Amount      money.Money                   `json:"amount"`
	Status      string                        `json:"status"`
	Destination withdrawal.PayoutDestination  `json:"destination"`
	Settlement  *withdrawal.SettlementDetails `json:"settlement,omitempty"`
	CreatedAt   string                        `json:"created_at"`
	UpdatedAt   string                        `json:"updated_at"`
}

// SalesStatsResponse represents bucketed sales for one timeframe
type SalesStatsResponse struct {
	Timeframe string        `json:"timeframe"`
	Buckets   []sale.Bucket `json:"buckets"`
}

// ActivityResponse represents one ledger history event
type ActivityResponse struct {
	EventID          string      `json:"event_id"`
	Type             string      `json:"type"`
	Amount           money.Money `json:"amount"`
	BalanceAfter     money.Money `json:"balance_after"`
	SaleID           string      `json:"sale_id,omitempty"`
	WithdrawalID     string      `json:"withdrawal_id,omitempty"`
	PaymentReference string      `json:"payment_reference,omitempty"`
	FromStatus       string      `json:"from_status,omitempty"`
	ToStatus         string      `json:"to_status,omitempty"`
	FailureReason    string      `json:"failure_reason,omitempty"`
	CreatedAt        string      `json:"created_at"`
}

// SaleRequestResponse acknowledges a verified payment
type SaleRequestResponse struct {
	RequestID        string `json:"request_id"`
	PaymentReference string `json:"payment_reference"`
	Status           string `json:"status"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

func mapWithdrawalToResponse(w *withdrawal.Withdrawal) WithdrawalResponse {
	return WithdrawalResponse{
		ID:          w.ID.String(),
		AccountID:   w.AccountID.String(),
		Amount:      w.Amount,
		Status:      string(w.Status),
		Destination: w.Destination,
		Settlement:  w.Settlement,
		CreatedAt:   w.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   w.UpdatedAt.Format(time.RFC3339),
	}
}

func mapWithdrawalsToResponse(list []*withdrawal.Withdrawal) []WithdrawalResponse {
	out := make([]WithdrawalResponse, 0, len(list))
	for _, w := range list {
		out = append(out, mapWithdrawalToResponse(w))
	}
	return out
}

func optionalID(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}

func mapEventToResponse(e *activity.Event) ActivityResponse {
	return ActivityResponse{
		EventID:          e.EventID.String(),
		Type:             string(e.Type),
		Amount:           e.Amount,
		BalanceAfter:     e.BalanceAfter,
		SaleID:           optionalID(e.SaleID),
		WithdrawalID:     optionalID(e.WithdrawalID),
		PaymentReference: e.PaymentReference,
		FromStatus:       e.FromStatus,
		ToStatus:         e.ToStatus,
		FailureReason:    e.FailureReason,
		CreatedAt:        e.CreatedAt.Format(time.RFC3339),
	}
}
