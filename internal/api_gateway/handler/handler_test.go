package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/api_gateway/middleware"
	"github.com/marketplace-balance-ledger/internal/api_gateway/service"
	"github.com/marketplace-balance-ledger/internal/balance_ledger"
	"github.com/marketplace-balance-ledger/internal/data/memory"
	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/logger"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockActivityService struct {
	mock.Mock
}

func (m *MockActivityService) GetActivity(ctx context.Context, accountID uuid.UUID, page, perPage int) ([]*activity.Event, int64, error) {
	args := m.Called(ctx, accountID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*activity.Event), args.Get(1).(int64), args.Error(2)
}

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) VerifyPayment(ctx context.Context, v *service.PaymentVerification) (*shared.SaleRequest, error) {
	args := m.Called(ctx, v)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.SaleRequest), args.Error(1)
}

func newLedger() *balance_ledger.LedgerServiceImpl {
	store := memory.NewStore()
	return balance_ledger.NewLedgerService(store, store.Accounts(), store.Sales(), store.Withdrawals(), store.Outbox(), logger.Discard())
}

// credit opens the seller's account and records a verified sale of amount.
func credit(t *testing.T, ledger balance_ledger.LedgerService, seller uuid.UUID, amount string) {
	t.Helper()
	ctx := context.Background()
	_, err := ledger.EnsureAccount(ctx, seller)
	require.NoError(t, err)

	m, err := money.Parse(amount)
	require.NoError(t, err)
	_, err = ledger.RecordSale(ctx, &shared.SaleRequest{
		RequestID:        uuid.New(),
		ProductID:        uuid.New(),
		SellerAccountID:  seller,
		Amount:           m,
		PaymentReference: "pay_" + uuid.NewString(),
		OrderReference:   "order_" + uuid.NewString(),
	})
	require.NoError(t, err)
}

// asCaller stands in for middleware.Auth.
func asCaller(accountID uuid.UUID, role shared.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.AccountIDKey, accountID)
		c.Set(middleware.RoleKey, role)
		c.Next()
	}
}

func newTestRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.CorrelationID())
	router.Use(handlers...)
	return router
}

func doRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}

	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func dataOf(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	data, ok := decode(t, rr)["data"].(map[string]interface{})
	require.True(t, ok, "'data' field should be an object")
	return data
}

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	errorField, ok := decode(t, rr)["error"].(map[string]interface{})
	require.True(t, ok, "'error' field should be an object")
	return errorField["code"].(string)
}

func bankDestination() map[string]interface{} {
	return map[string]interface{}{
		"method": "bank",
		"bank": map[string]interface{}{
			"account_number":      "123456789012",
			"ifsc_code":           "HDFC0001234",
			"account_holder_name": "Asha Seller",
			"bank_name":           "HDFC Bank",
		},
	}
}
