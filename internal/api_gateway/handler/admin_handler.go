package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/balance_ledger"
	"github.com/marketplace-balance-ledger/internal/domain/withdrawal"
)

// AdminHandler serves the payout workflow screens
type AdminHandler struct {
	ledger balance_ledger.LedgerService
	logger *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, ledger balance_ledger.LedgerService) *AdminHandler {
	return &AdminHandler{
		ledger: ledger,
		logger: logger,
	}
}

// ListWithdrawals pages through all withdrawals, optionally by status
func (h *AdminHandler) ListWithdrawals(c *gin.Context) {
	var status withdrawal.Status
	if raw := c.Query("status"); raw != "" {
		parsed, err := withdrawal.ParseStatus(raw)
		if err != nil {
			RespondDomainError(c, h.logger, err)
			return
		}
		status = parsed
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	list, total, err := h.ledger.ListAllWithdrawals(c.Request.Context(), status, pagination.Page, pagination.PerPage)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondWithPaginatedData(c, http.StatusOK, mapWithdrawalsToResponse(list), pagination.Page, pagination.PerPage, int(total))
}

// UpdateWithdrawal moves a withdrawal to the requested status
func (h *AdminHandler) UpdateWithdrawal(c *gin.Context) {
	withdrawalID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid withdrawal ID")
		return
	}

	var req UpdateWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	target, err := withdrawal.ParseStatus(req.Status)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	w, err := h.ledger.TransitionWithdrawal(c.Request.Context(), withdrawalID, target, req.Settlement)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, mapWithdrawalToResponse(w))
}

// ReconcileBalance recomputes an account's balance from sales and withdrawals
func (h *AdminHandler) ReconcileBalance(c *gin.Context) {
	accountID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid account ID")
		return
	}

	balance, err := h.ledger.ReconcileBalance(c.Request.Context(), accountID)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, BalanceResponse{AccountID: accountID.String(), Balance: balance})
}
