// Package carrier talks to the shipping carrier's address validation
// API. Checkout only advances past the address step on a clean or
// standardized result; a carrier outage blocks rather than letting an
// unvalidated address through.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"jewelry-ecommerce/models"
)

// ErrUnavailable wraps transport and non-2xx failures from the carrier
// so callers can map them all onto one "service error" path.
var ErrUnavailable = errors.New("address validation service unavailable")

// Config holds carrier API credentials and endpoints.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
}

// Client is a stateless carrier API client. The OAuth token is the one
// piece of cached state; it is refreshed when within a minute of
// expiry.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	clientID     string
	clientSecret string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
	}
}

// ValidationResult is the outcome of one validation call.
// Exactly one of three shapes comes back:
//   - Messages non-empty: the address is unusable as given; the first
//     message is customer-facing.
//   - Standardized true: Address carries the carrier-canonical form and
//     must replace whatever the customer typed.
//   - neither: the address passed as entered; Address echoes the input.
type ValidationResult struct {
	Standardized bool
	Messages     []string
	Address      models.ShippingAddress
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type validateRequest struct {
	Address wireAddress `json:"address"`
}

type wireAddress struct {
	StreetLines         []string `json:"streetLines"`
	City                string   `json:"city"`
	StateOrProvinceCode string   `json:"stateOrProvinceCode"`
	PostalCode          string   `json:"postalCode"`
	CountryCode         string   `json:"countryCode"`
}

type customerMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type validateResponse struct {
	StandardizedStatus string            `json:"standardizedStatus"` // "STANDARDIZED", "RAW"
	CustomerMessages   []customerMessage `json:"customerMessages"`
	ResolvedAddress    wireAddress       `json:"resolvedAddress"`
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.tokenExpiry) > time.Minute {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token request returned %d", ErrUnavailable, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%w: decoding token: %v", ErrUnavailable, err)
	}

	c.accessToken = tok.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return c.accessToken, nil
}

// ValidateAddress submits an address for carrier validation and maps
// the response onto a ValidationResult. Transport failures and non-2xx
// statuses come back wrapped in ErrUnavailable.
func (c *Client) ValidateAddress(ctx context.Context, addr models.ShippingAddress) (*ValidationResult, error) {
	countryCode, err := CountryCode(addr.Country)
	if err != nil {
		return nil, err
	}

	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	streetLines := []string{addr.AddressLine1}
	if addr.AddressLine2 != "" {
		streetLines = append(streetLines, addr.AddressLine2)
	}
	body, err := json.Marshal(validateRequest{Address: wireAddress{
		StreetLines:         streetLines,
		City:                addr.City,
		StateOrProvinceCode: addr.State,
		PostalCode:          addr.ZipCode,
		CountryCode:         countryCode,
	}})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/address/v1/addresses/resolve", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: validation returned %d", ErrUnavailable, resp.StatusCode)
	}

	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrUnavailable, err)
	}

	result := &ValidationResult{Address: addr}
	for _, m := range out.CustomerMessages {
		result.Messages = append(result.Messages, m.Message)
	}
	if len(result.Messages) > 0 {
		return result, nil
	}

	if out.StandardizedStatus == "STANDARDIZED" {
		result.Standardized = true
		result.Address = canonicalAddress(addr, out.ResolvedAddress)
	}
	return result, nil
}

// canonicalAddress overlays the carrier's resolved fields onto the
// input, keeping the contact fields the carrier does not know about.
func canonicalAddress(in models.ShippingAddress, resolved wireAddress) models.ShippingAddress {
	out := in
	if len(resolved.StreetLines) > 0 {
		out.AddressLine1 = resolved.StreetLines[0]
		out.AddressLine2 = ""
		if len(resolved.StreetLines) > 1 {
			out.AddressLine2 = resolved.StreetLines[1]
		}
	}
	if resolved.City != "" {
		out.City = resolved.City
	}
	if resolved.StateOrProvinceCode != "" {
		out.State = resolved.StateOrProvinceCode
	}
	if resolved.PostalCode != "" {
		out.ZipCode = resolved.PostalCode
	}
	if resolved.CountryCode != "" {
		out.Country = CountryName(resolved.CountryCode)
	}
	return out
}
