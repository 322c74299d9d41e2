package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/marketplace-balance-ledger/internal/api_gateway/middleware"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/validation"
)

// Response is the envelope every endpoint answers with
type Response struct {
	Data          interface{} `json:"data,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
	Meta          *MetaInfo   `json:"meta,omitempty"`
}

// ErrorInfo carries a machine readable code. Fields is only set for
// validation failures and maps field name to the broken rule.
type ErrorInfo struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

func send(c *gin.Context, statusCode int, response *Response) {
	response.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(statusCode, response)
}

// RespondWithData sends a JSON response with data
func RespondWithData(c *gin.Context, statusCode int, data interface{}) {
	send(c, statusCode, &Response{Data: data})
}

// RespondWithError sends a JSON response with an error
func RespondWithError(c *gin.Context, statusCode int, code, message string) {
	send(c, statusCode, &Response{Error: &ErrorInfo{Code: code, Message: message}})
}

// RespondWithPaginatedData sends data along with page metadata. perPage is
// expected to be positive; PaginationParams guarantees it.
func RespondWithPaginatedData(c *gin.Context, statusCode int, data interface{}, page, perPage, totalItems int) {
	totalPages := 0
	if perPage > 0 {
		totalPages = (totalItems + perPage - 1) / perPage
	}
	send(c, statusCode, &Response{
		Data: data,
		Meta: &MetaInfo{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: totalItems,
		},
	})
}

func RespondOK(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusCreated, data)
}

func RespondAccepted(c *gin.Context, data interface{}) {
	RespondWithData(c, http.StatusAccepted, data)
}

func RespondNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// RespondBadRequest sends a 400 with the BAD_REQUEST code
func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

// RespondUnauthorized sends a 401, defaulting the message
func RespondUnauthorized(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized"
	}
	RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", message)
}

// RespondInternalError sends a 500 without leaking the cause
func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

// domainErrors is checked in order; the first sentinel matching the error
// decides the answer. An empty message means the error text is shown.
var domainErrors = []struct {
	target  error
	status  int
	code    string
	message string
}{
	{shared.ErrValidation, http.StatusBadRequest, "VALIDATION_FAILED", ""},
	{shared.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT", "Amount must be a positive value with at most two decimals"},
	{shared.ErrInvalidSaleRequest, http.StatusBadRequest, "BAD_REQUEST", ""},
	{shared.ErrNotFound, http.StatusNotFound, "NOT_FOUND", ""},
	{shared.ErrForbidden, http.StatusForbidden, "FORBIDDEN", ""},
	{shared.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION", ""},
	{shared.ErrConflict, http.StatusConflict, "CONFLICT", ""},
	{shared.ErrInsufficientBalance, http.StatusUnprocessableEntity, "INSUFFICIENT_BALANCE", "Insufficient balance"},
	{shared.ErrMissingSettlementData, http.StatusUnprocessableEntity, "MISSING_SETTLEMENT_DATA", ""},
}

// RespondDomainError maps a ledger error kind to its HTTP status. Anything
// unrecognised is logged and answered with a 500.
func RespondDomainError(c *gin.Context, logger *slog.Logger, err error) {
	var validationErr *validation.Error
	if errors.As(err, &validationErr) {
		send(c, http.StatusBadRequest, &Response{Error: &ErrorInfo{
			Code:    "VALIDATION_FAILED",
			Message: "Request validation failed",
			Fields:  validationErr.Fields,
		}})
		return
	}

	for _, m := range domainErrors {
		if !errors.Is(err, m.target) {
			continue
		}
		message := m.message
		if message == "" {
			message = err.Error()
		}
		RespondWithError(c, m.status, m.code, message)
		return
	}

	logger.Error("Request failed",
		"correlation_id", middleware.GetCorrelationID(c),
		"path", c.FullPath(),
		"error", err)
	RespondInternalError(c)
}
