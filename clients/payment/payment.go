// Package payment creates and retrieves hosted checkout sessions at
// the payment provider. The browser is redirected to the session URL
// and returns with the session id in the confirmation callback.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jewelry-ecommerce/models"
)

// ErrUnavailable wraps transport and non-2xx failures from the payment
// provider.
var ErrUnavailable = errors.New("payment service unavailable")

// Session payment statuses as reported by the provider.
const (
	SessionPaid   = "paid"
	SessionUnpaid = "unpaid"
)

// Config holds provider credentials and the storefront redirect URLs.
type Config struct {
	BaseURL    string
	APIKey     string
	SuccessURL string // provider appends the session id as a query parameter
	CancelURL  string
	HTTPClient *http.Client
}

// Client is a hosted-checkout API client. Amounts cross the wire in
// cents, the provider's smallest currency unit.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	successURL string
	cancelURL  string
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

// Session is the provider's view of one checkout attempt.
type Session struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentStatus string `json:"payment_status"` // "paid" or "unpaid"
	AmountTotal   int64  `json:"amount_total"`   // cents
}

// CreateSession opens a hosted checkout session for the given cart
// lines and returns the session id and redirect URL. Nothing local is
// mutated; the cart stays intact until the customer returns.
func (c *Client) CreateSession(ctx context.Context, items []models.CartItem) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", c.successURL)
	form.Set("cancel_url", c.cancelURL)

	for i, item := range items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[name]", item.Name)
		form.Set(prefix+"[quantity]", strconv.Itoa(item.Quantity))
		form.Set(prefix+"[amount]", strconv.FormatInt(toCents(item.VariantDetails.Price), 10))
		form.Set(prefix+"[currency]", "usd")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req)
}

// GetSession retrieves a session by id, used on the customer's return
// to confirm the provider actually collected payment.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/checkout/sessions/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Session, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned %d", ErrUnavailable, resp.StatusCode)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("%w: decoding session: %v", ErrUnavailable, err)
	}
	return &session, nil
}

func toCents(dollars float64) int64 {
	return int64(dollars*100 + 0.5)
}
