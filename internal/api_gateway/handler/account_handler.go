package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/api_gateway/middleware"
	"github.com/marketplace-balance-ledger/internal/api_gateway/service"
	"github.com/marketplace-balance-ledger/internal/balance_ledger"
	"github.com/marketplace-balance-ledger/internal/domain/sale"
)

// AccountHandler serves the seller's own account: balance, sales and history
type AccountHandler struct {
	ledger          balance_ledger.LedgerService
	activityService service.ActivityService
	logger          *slog.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(logger *slog.Logger, ledger balance_ledger.LedgerService, activityService service.ActivityService) *AccountHandler {
	return &AccountHandler{
		ledger:          ledger,
		activityService: activityService,
		logger:          logger,
	}
}

// callerAccount reads the account id placed by middleware.Auth
func callerAccount(c *gin.Context) (uuid.UUID, bool) {
	accountID, ok := middleware.GetAccountID(c)
	if !ok {
		RespondUnauthorized(c, "")
	}
	return accountID, ok
}

// Open creates the caller's ledger account. Calling it again is harmless.
func (h *AccountHandler) Open(c *gin.Context) {
	accountID, ok := callerAccount(c)
	if !ok {
		return
	}

	acc, err := h.ledger.EnsureAccount(c.Request.Context(), accountID)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondCreated(c, AccountResponse{
		ID:        acc.ID.String(),
		CreatedAt: acc.CreatedAt.Format(time.RFC3339),
	})
}

// GetBalance returns the withdrawable balance
func (h *AccountHandler) GetBalance(c *gin.Context) {
	accountID, ok := callerAccount(c)
	if !ok {
		return
	}

	balance, err := h.ledger.GetBalance(c.Request.Context(), accountID)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, BalanceResponse{AccountID: accountID.String(), Balance: balance})
}

// GetSalesStats buckets the caller's sales by day, month or year
func (h *AccountHandler) GetSalesStats(c *gin.Context) {
	accountID, ok := callerAccount(c)
	if !ok {
		return
	}

	timeframe, err := sale.ParseTimeframe(c.Query("timeframe"))
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	buckets, err := h.ledger.SalesStats(c.Request.Context(), accountID, timeframe)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}

	RespondOK(c, SalesStatsResponse{Timeframe: string(timeframe), Buckets: buckets})
}

// GetActivity pages through the caller's ledger history
func (h *AccountHandler) GetActivity(c *gin.Context) {
	accountID, ok := callerAccount(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	events, total, err := h.activityService.GetActivity(c.Request.Context(), accountID, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to get activity", "account_id", accountID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	items := make([]ActivityResponse, 0, len(events))
	for _, e := range events {
		items = append(items, mapEventToResponse(e))
	}

	RespondWithPaginatedData(c, http.StatusOK, items, pagination.Page, pagination.PerPage, int(total))
}
