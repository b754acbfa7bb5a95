// Package payment integrates with the Toss Payments REST API.
//
// The flow has two halves: the backend validates checkout parameters and
// hands them to the storefront widget (Initiate), then approves the payment
// server-side once the widget redirects back (Confirm).
package payment

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/s01095235840-oss/pastel-buddy-shop/internal/log"
)

// DefaultBaseURL is the production Toss Payments API endpoint.
const DefaultBaseURL = "https://api.tosspayments.com"

var (
	// ErrNotConfigured indicates Toss keys are missing from configuration.
	ErrNotConfigured = errors.New("payment gateway not configured")

	// ErrInvalidCheckout indicates checkout parameters failed validation.
	ErrInvalidCheckout = errors.New("invalid checkout parameters")
)

// APIError is a non-2xx response from the Toss API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("toss api error (status %d, code %q): %s", e.StatusCode, e.Code, e.Message)
}

// Checkout carries everything the payment widget needs to open.
type Checkout struct {
	Amount        int64  `json:"amount"`
	OrderID       string `json:"orderId"`
	OrderName     string `json:"orderName"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
	SuccessURL    string `json:"successUrl"`
	FailURL       string `json:"failUrl"`

	// ClientKey identifies the shop to the widget; it is public by design.
	ClientKey string `json:"clientKey"`
}

// Confirmation is the approved payment returned by the confirm endpoint.
type Confirmation struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Status     string `json:"status"`
	Method     string `json:"method"`
	ApprovedAt string `json:"approvedAt"`
	TotalAmount int64 `json:"totalAmount"`
}

// Client talks to the Toss Payments API.
// Safe for concurrent use.
type Client struct {
	baseURL    string
	clientKey  string
	secretKey  string
	httpClient *http.Client
	logger     log.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Tests point this at httptest.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Toss client. Keys may be empty; operations then fail
// with ErrNotConfigured so the rest of the shop keeps working without
// payment credentials.
func NewClient(clientKey, secretKey string, logger log.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = log.NewNop()
	}
	c := &Client{
		baseURL:    DefaultBaseURL,
		clientKey:  clientKey,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initiate validates checkout parameters and stamps the client key onto the
// checkout. The widget itself runs in the browser; a validation failure here
// is what cancels a chat-driven checkout.
func (c *Client) Initiate(_ context.Context, co *Checkout) error {
	if c.clientKey == "" || c.secretKey == "" {
		return ErrNotConfigured
	}
	if co == nil {
		return fmt.Errorf("%w: checkout is nil", ErrInvalidCheckout)
	}
	if co.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive, got %d", ErrInvalidCheckout, co.Amount)
	}
	if co.OrderID == "" {
		return fmt.Errorf("%w: order id is empty", ErrInvalidCheckout)
	}
	if co.OrderName == "" {
		return fmt.Errorf("%w: order name is empty", ErrInvalidCheckout)
	}

	co.ClientKey = c.clientKey
	c.logger.Debug("payment checkout prepared", "order_id", co.OrderID, "amount", co.Amount)
	return nil
}

// Confirm approves a payment server-side via POST /v1/payments/confirm.
// Toss authenticates with HTTP Basic: base64(secretKey + ":").
func (c *Client) Confirm(ctx context.Context, paymentKey, orderID string, amount int64) (*Confirmation, error) {
	if c.secretKey == "" {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(map[string]any{
		"paymentKey": paymentKey,
		"orderId":    orderID,
		"amount":     amount,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding confirm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payments/confirm", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building confirm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization",
		"Basic "+base64.StdEncoding.EncodeToString([]byte(c.secretKey+":")))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling toss confirm: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading confirm response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// Toss error bodies are {"code": ..., "message": ...}; keep the raw
		// status when the body is not JSON.
		var parsed struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(data, &parsed); jsonErr == nil {
			apiErr.Code = parsed.Code
			apiErr.Message = parsed.Message
		}
		c.logger.Warn("payment confirm rejected",
			"order_id", orderID, "status", resp.StatusCode, "code", apiErr.Code)
		return nil, apiErr
	}

	var conf Confirmation
	if err := json.Unmarshal(data, &conf); err != nil {
		return nil, fmt.Errorf("decoding confirm response: %w", err)
	}

	c.logger.Info("payment confirmed", "order_id", conf.OrderID, "payment_key", conf.PaymentKey)
	return &conf, nil
}
