package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/balance_ledger"
	"github.com/marketplace-balance-ledger/internal/domain/money"
)

// WithdrawalHandler serves the seller's withdrawal requests
type WithdrawalHandler struct {
	ledger balance_ledger.LedgerService
	logger *slog.Logger
}

// NewWithdrawalHandler creates a new withdrawal handler
func NewWithdrawalHandler(logger *slog.Logger, ledger balance_ledger.LedgerService) *WithdrawalHandler {
	return &WithdrawalHandler{
		ledger: ledger,
		logger: logger,
	}
}

// List returns the caller's withdrawals, newest first
func (h *WithdrawalHandler) List(c *gin.Context) {
	accountID, ok := callerAccount(c)
	if !ok {
		return
	}

	list, err := h.ledger.ListWithdrawals(c.Request.Context(), accountID)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapWithdrawalsToResponse(list))
}

// Create reserves the requested amount and opens a pending withdrawal
func (h *WithdrawalHandler) Create(c *gin.Context) {
	accountID, ok := callerAccount(c)
	if !ok {
		return
	}

	var req CreateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if errors.Is(err, money.ErrInvalidAmount) {
			RespondDomainError(c, h.logger, err)
			return
		}
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	w, err := h.ledger.RequestWithdrawal(c.Request.Context(), accountID, req.Amount, req.Destination)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapWithdrawalToResponse(w))
}

// Delete cancels one of the caller's pending withdrawals
func (h *WithdrawalHandler) Delete(c *gin.Context) {
	accountID, ok := callerAccount(c)
	if !ok {
		return
	}

	idParam := c.Param("id")
	withdrawalID, err := uuid.Parse(idParam)
	if err != nil {
		RespondBadRequest(c, "Invalid withdrawal ID")
		return
	}

	if err := h.ledger.DeleteWithdrawal(c.Request.Context(), withdrawalID, accountID); err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondNoContent(c)
}
