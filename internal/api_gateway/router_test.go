package api_gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/marketplace-balance-ledger/internal/api_gateway/middleware"
	"github.com/marketplace-balance-ledger/internal/api_gateway/service"
	"github.com/marketplace-balance-ledger/internal/balance_ledger"
	"github.com/marketplace-balance-ledger/internal/config"
	"github.com/marketplace-balance-ledger/internal/data/memory"
	"github.com/marketplace-balance-ledger/internal/domain/activity"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/shared"
	"github.com/marketplace-balance-ledger/internal/logger"
	"github.com/marketplace-balance-ledger/internal/platform/payments"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type capturingProducer struct {
	keys     []string
	requests []*shared.SaleRequest
}

func (p *capturingProducer) Publish(_ context.Context, key string, value interface{}) error {
	p.keys = append(p.keys, key)
	if r, ok := value.(*shared.SaleRequest); ok {
		p.requests = append(p.requests, r)
	}
	return nil
}

// fakeGateway serves the payment lookup API for pay_1, charged 10.00 on order_1
func fakeGateway(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/payments/pay_1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       "pay_1",
			"order_id": "order_1",
			"amount":   1000,
			"currency": "INR",
			"status":   "captured",
		})
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func (p *capturingProducer) Close() error { return nil }

// noActivity stands in for the Mongo activity store
type noActivity struct{}

func (noActivity) Create(context.Context, *activity.Event) error { return nil }

func (noActivity) GetByEventID(_ context.Context, id uuid.UUID) (*activity.Event, error) {
	return nil, activity.ErrEventNotFound{EventID: id}
}

func (noActivity) GetByAccountID(context.Context, uuid.UUID, int, int) ([]*activity.Event, error) {
	return []*activity.Event{}, nil
}

func (noActivity) CountByAccountID(context.Context, uuid.UUID) (int64, error) { return 0, nil }

type testServer struct {
	server   *Server
	ledger   *balance_ledger.LedgerServiceImpl
	producer *capturingProducer
}

func newTestServer(t *testing.T, cache redis.Cmdable) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Application: config.ApplicationConfig{Env: "test"},
		Server:      config.ServerConfig{Port: 8080},
		Auth:        config.AuthConfig{JWTSecret: testSecret, Issuer: "identity"},
		Redis:       config.RedisConfig{IdempotencyTTL: time.Hour},
		Payment:     config.PaymentGatewayConfig{KeyID: "rzp_test", KeySecret: "gateway-secret", BaseURL: fakeGateway(t)},
	}

	log := logger.Discard()
	store := memory.NewStore()
	ledger := balance_ledger.NewLedgerService(store, store.Accounts(), store.Sales(), store.Withdrawals(), store.Outbox(), log)
	producer := &capturingProducer{}
	gateway, err := payments.NewRazorpayClient(log, &cfg.Payment)
	require.NoError(t, err)

	deps := Dependencies{
		Ledger:   ledger,
		Payments: service.NewPaymentService(log, cfg.Payment.KeySecret, gateway, producer),
		Activity: service.NewActivityService(log, noActivity{}),
		Cache:    cache,
	}
	return &testServer{server: NewServer(log, cfg, deps), ledger: ledger, producer: producer}
}

func token(t *testing.T, accountID uuid.UUID, role shared.Role) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID.String(),
			Issuer:    "identity",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func (s *testServer) do(method, path, bearer string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.server.httpRouter.ServeHTTP(rr, req)
	return rr
}

func (s *testServer) credit(t *testing.T, seller uuid.UUID, minor int64) {
	t.Helper()
	_, err := s.ledger.RecordSale(context.Background(), &shared.SaleRequest{
		RequestID:        uuid.New(),
		ProductID:        uuid.New(),
		SellerAccountID:  seller,
		Amount:           money.FromMinor(minor),
		PaymentReference: "pay_" + uuid.NewString(),
	})
	require.NoError(t, err)
}

func withdrawalBody(amount string) map[string]interface{} {
	return map[string]interface{}{
		"amount": amount,
		"destination": map[string]interface{}{
			"method": "upi",
			"upi":    map[string]interface{}{"upi_id": "asha@okbank"},
		},
	}
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t, nil)

	rr := s.do(http.MethodGet, "/health", "", nil, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rr.Header().Get(middleware.CorrelationIDHeader))
}

func TestRouter_Authorization(t *testing.T) {
	s := newTestServer(t, nil)
	seller := uuid.New()

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/v1/me/balance", "", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/v1/admin/withdrawals", token(t, seller, shared.RoleSeller), nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/admin/withdrawals", token(t, uuid.New(), shared.RoleAdmin), nil, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/me/activity", token(t, seller, shared.RoleSeller), nil, nil).Code)
}

func TestRouter_SellerFlow(t *testing.T) {
	s := newTestServer(t, nil)
	seller := uuid.New()
	sellerToken := token(t, seller, shared.RoleSeller)

	require.Equal(t, http.StatusCreated, s.do(http.MethodPost, "/api/v1/me/account", sellerToken, nil, nil).Code)
	s.credit(t, seller, 10000)

	rr := s.do(http.MethodPost, "/api/v1/me/withdrawals", sellerToken, withdrawalBody("70.00"), nil)
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = s.do(http.MethodPost, "/api/v1/me/withdrawals", sellerToken, withdrawalBody("40.00"), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = s.do(http.MethodGet, "/api/v1/me/balance", sellerToken, nil, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"balance":"30.00"`)
}

func TestRouter_IdempotentWithdrawal(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := newTestServer(t, client)
	seller := uuid.New()
	sellerToken := token(t, seller, shared.RoleSeller)
	s.credit(t, seller, 10000)
	headers := map[string]string{middleware.IdempotencyKeyHeader: "withdraw-1"}

	first := s.do(http.MethodPost, "/api/v1/me/withdrawals", sellerToken, withdrawalBody("60.00"), headers)
	second := s.do(http.MethodPost, "/api/v1/me/withdrawals", sellerToken, withdrawalBody("60.00"), headers)

	require.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))

	rr := s.do(http.MethodGet, "/api/v1/me/withdrawals", sellerToken, nil, nil)
	var body struct {
		Data []map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
}

func TestRouter_PaymentVerify(t *testing.T) {
	s := newTestServer(t, nil)
	body := map[string]interface{}{
		"razorpay_payment_id": "pay_1",
		"razorpay_order_id":   "order_1",
		"razorpay_signature":  service.Sign("gateway-secret", "order_1", "pay_1"),
		"product_id":          uuid.NewString(),
		"seller_account_id":   uuid.NewString(),
		"amount":              "999999.99",
	}

	rr := s.do(http.MethodPost, "/api/v1/payments/verify", "", body, nil)

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, []string{"pay_1"}, s.producer.keys)
	require.Len(t, s.producer.requests, 1)
	assert.Equal(t, money.FromMinor(1000), s.producer.requests[0].Amount)

	rr = s.do(http.MethodPost, "/api/v1/payments/verify", "garbage", body, nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// a valid signature for another order cannot claim pay_1
	body["razorpay_order_id"] = "order_2"
	body["razorpay_signature"] = service.Sign("gateway-secret", "order_2", "pay_1")
	rr = s.do(http.MethodPost, "/api/v1/payments/verify", "", body, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Len(t, s.producer.requests, 1)
}
