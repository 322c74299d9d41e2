package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/marketplace-balance-ledger/internal/config"
	"github.com/marketplace-balance-ledger/internal/domain/money"
	"github.com/marketplace-balance-ledger/internal/domain/payment"
)

const defaultTimeout = 10 * time.Second

// RazorpayClient reads payments from the Razorpay REST API
type RazorpayClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ payment.Gateway = (*RazorpayClient)(nil)

// razorpayPayment is the subset of the payment entity the ledger needs.
// Amount is in minor units.
type razorpayPayment struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Status   string `json:"status"`
}

type razorpayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// NewRazorpayClient creates a client authenticating with the key id and secret
func NewRazorpayClient(logger *slog.Logger, cfg *config.PaymentGatewayConfig) (*RazorpayClient, error) {
	if cfg.KeyID == "" || cfg.KeySecret == "" {
		return nil, errors.New("payment gateway key id and secret are required")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid payment gateway url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &RazorpayClient{
		baseURL:    baseURL,
		keyID:      cfg.KeyID,
		keySecret:  cfg.KeySecret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// FetchPayment looks up a payment by id
func (c *RazorpayClient) FetchPayment(ctx context.Context, paymentID string) (*payment.Payment, error) {
	endpoint := c.baseURL + "/v1/payments/" + url.PathEscape(paymentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Failed to fetch payment from gateway", "payment_id", paymentID, "error", err)
		return nil, fmt.Errorf("failed to fetch payment %s: %w", paymentID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp, paymentID)
	}

	var body razorpayPayment
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode payment %s: %w", paymentID, err)
	}
	if body.ID != paymentID {
		return nil, fmt.Errorf("gateway returned payment %q for %q", body.ID, paymentID)
	}

	return &payment.Payment{
		ID:       body.ID,
		OrderID:  body.OrderID,
		Amount:   money.FromMinor(body.Amount),
		Currency: body.Currency,
		Status:   body.Status,
	}, nil
}

// statusError maps a non-200 answer. Unknown ids come back as 400
// BAD_REQUEST_ERROR as well as 404.
func (c *RazorpayClient) statusError(resp *http.Response, paymentID string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr razorpayError
	_ = json.Unmarshal(raw, &apiErr)

	switch {
	case resp.StatusCode == http.StatusNotFound,
		resp.StatusCode == http.StatusBadRequest && apiErr.Error.Code == "BAD_REQUEST_ERROR":
		return fmt.Errorf("%w: %s", payment.ErrPaymentNotFound, paymentID)
	default:
		c.logger.Error("Payment gateway returned an error",
			"payment_id", paymentID,
			"status", resp.StatusCode,
			"code", apiErr.Error.Code,
			"description", apiErr.Error.Description)
		return fmt.Errorf("payment gateway returned status %d for %s", resp.StatusCode, paymentID)
	}
}
