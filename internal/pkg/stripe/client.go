// Package stripe is a minimal Stripe API client covering the three calls this
// service needs: creating checkout sessions, creating payment intents, and
// verifying webhook signatures. The full SDK would pull in far more surface
// than the booth uses.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com"

// Config holds Stripe API configuration
type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// Client talks to the Stripe REST API
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new Stripe API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		config:     cfg,
	}
}

// APIError is a non-2xx answer from the Stripe API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe api error (status %d, code %q): %s", e.StatusCode, e.Code, e.Message)
}

// CheckoutSessionParams describes a redirect-based checkout session
type CheckoutSessionParams struct {
	AmountCents int64
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// CreateCheckoutSession creates a hosted checkout session and returns its id
// and redirect URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, p CheckoutSessionParams) (*CheckoutSession, error) {
	if p.AmountCents <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}
	if strings.TrimSpace(p.ProductName) == "" {
		return nil, fmt.Errorf("validation error: product name must be non-empty")
	}

	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", p.SuccessURL)
	form.Set("cancel_url", p.CancelURL)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", currencyOrDefault(p.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.ProductName)
	for k, v := range p.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var session CheckoutSession
	if err := c.post(ctx, "/v1/checkout/sessions", form, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// PaymentIntentParams describes a direct payment intent (quick-buy flow)
type PaymentIntentParams struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

// CreatePaymentIntent creates a payment intent and returns its id and the
// client secret the frontend confirms with.
func (c *Client) CreatePaymentIntent(ctx context.Context, p PaymentIntentParams) (*PaymentIntent, error) {
	if p.AmountCents <= 0 {
		return nil, fmt.Errorf("validation error: amount must be > 0")
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(p.AmountCents, 10))
	form.Set("currency", currencyOrDefault(p.Currency))
	form.Set("automatic_payment_methods[enabled]", "true")
	for k, v := range p.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var intent PaymentIntent
	if err := c.post(ctx, "/v1/payment_intents", form, &intent); err != nil {
		return nil, err
	}
	return &intent, nil
}

func (c *Client) post(ctx context.Context, path string, form url.Values, out interface{}) error {
	if c == nil || c.httpClient == nil {
		return fmt.Errorf("stripe client is not initialized")
	}
	if strings.TrimSpace(c.config.SecretKey) == "" {
		return fmt.Errorf("stripe config error: secret key is empty")
	}

	endpoint := strings.TrimRight(c.config.BaseURL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("stripe api call failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.config.SecretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe api call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("stripe api call failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse stripe response: %w", err)
	}
	return nil
}

func parseAPIError(status int, body []byte) error {
	var wrapper struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || wrapper.Error.Message == "" {
		return &APIError{StatusCode: status, Message: string(body)}
	}
	return &APIError{StatusCode: status, Code: wrapper.Error.Code, Message: wrapper.Error.Message}
}

func currencyOrDefault(currency string) string {
	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		return "usd"
	}
	return currency
}
