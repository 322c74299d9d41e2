package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/marketplace-balance-ledger/internal/config"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/payment"
	"github.com/marketplace-balance-ledger/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, handler http.HandlerFunc) *RazorpayClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewRazorpayClient(logger.Discard(), &config.PaymentGatewayConfig{
		KeyID:     "rzp_test_key",
		KeySecret: "rzp_test_secret",
		BaseURL:   srv.URL + "/",
		Timeout:   time.Second,
	})
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestNewRazorpayClient(t *testing.T) {
	t.Run("requires credentials", func(t *testing.T) {
		_, err := NewRazorpayClient(logger.Discard(), &config.PaymentGatewayConfig{KeySecret: "s", BaseURL: "https://api.razorpay.com"})
		assert.ErrorContains(t, err, "key id and secret are required")
	})

	t.Run("rejects a relative url", func(t *testing.T) {
		_, err := NewRazorpayClient(logger.Discard(), &config.PaymentGatewayConfig{KeyID: "k", KeySecret: "s", BaseURL: "api.razorpay.com"})
		assert.ErrorContains(t, err, "invalid payment gateway url")
	})

	t.Run("defaults the timeout", func(t *testing.T) {
		client, err := NewRazorpayClient(logger.Discard(), &config.PaymentGatewayConfig{KeyID: "k", KeySecret: "s", BaseURL: "https://api.razorpay.com"})
		require.NoError(t, err)
		assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	})
}

func TestRazorpayClient_FetchPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the charged amount", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "rzp_test_key", user)
			assert.Equal(t, "rzp_test_secret", pass)
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "/v1/payments/pay_Nq1", r.URL.Path)

			writeJSON(w, http.StatusOK, map[string]any{
				"id":       "pay_Nq1",
				"entity":   "payment",
				"order_id": "order_Nq1",
				"amount":   49900,
				"currency": "INR",
				"status":   "captured",
			})
		})

		p, err := client.FetchPayment(ctx, "pay_Nq1")
		require.NoError(t, err)
		assert.Equal(t, "order_Nq1", p.OrderID)
		assert.Equal(t, money.FromMinor(49900), p.Amount)
		assert.Equal(t, "INR", p.Currency)
		assert.True(t, p.Settled())
	})

	t.Run("unknown payment", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error": map[string]any{"code": "BAD_REQUEST_ERROR", "description": "The id provided does not exist"},
			})
		})

		_, err := client.FetchPayment(ctx, "pay_missing")
		assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
	})

	t.Run("not found status", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := client.FetchPayment(ctx, "pay_missing")
		assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
	})

	t.Run("gateway error", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"error": map[string]any{"code": "SERVER_ERROR", "description": "internal"},
			})
		})

		_, err := client.FetchPayment(ctx, "pay_Nq1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, payment.ErrPaymentNotFound)
		assert.ErrorContains(t, err, "status 500")
	})

	t.Run("rejected credentials", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]any{
				"error": map[string]any{"code": "BAD_REQUEST_ERROR", "description": "Authentication failed"},
			})
		})

		_, err := client.FetchPayment(ctx, "pay_Nq1")
		assert.NotErrorIs(t, err, payment.ErrPaymentNotFound)
	})

	t.Run("payment id mismatch", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": "pay_other", "amount": 100, "status": "captured"})
		})

		_, err := client.FetchPayment(ctx, "pay_Nq1")
		assert.ErrorContains(t, err, "gateway returned payment")
	})

	t.Run("malformed body", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{not json"))
		})

		_, err := client.FetchPayment(ctx, "pay_Nq1")
		assert.ErrorContains(t, err, "failed to decode payment")
	})

	t.Run("escapes the payment id", func(t *testing.T) {
		client := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/payments/pay%2F..%2Forders", r.URL.RawPath)
			w.WriteHeader(http.StatusNotFound)
		})

		_, err := client.FetchPayment(ctx, "pay/../orders")
		assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
	})
}
