package whop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const DefaultAPIURL = "https://api.whop.com"

// Config holds configuration for the Whop API client
type Config struct {
	APIKey  string
	APIURL  string
	Timeout time.Duration
}

// Client talks to the Whop REST API with a bearer API key.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new Whop API client
func NewClient(config Config) *Client {
	if config.APIURL == "" {
		config.APIURL = DefaultAPIURL
	}
	if config.Timeout == 0 {
		config.Timeout = 15 * time.Second
	}

	// oauth2 attaches "Authorization: Bearer <key>" to every request
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.APIKey, TokenType: "Bearer"})
	httpClient := oauth2.NewClient(context.Background(), src)
	httpClient.Timeout = config.Timeout

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// CheckoutRequest describes a checkout session to create.
type CheckoutRequest struct {
	PlanID      string            `json:"plan_id"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	RedirectURL string            `json:"redirect_url,omitempty"`
}

// CheckoutSession is the created session.
type CheckoutSession struct {
	ID          string `json:"id"`
	PlanID      string `json:"plan_id"`
	PurchaseURL string `json:"purchase_url"`
}

// APIError is a non-2xx response from Whop.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whop API error (status %d): %s", e.StatusCode, e.Body)
}

// CreateCheckoutSession creates a checkout session for a plan. The metadata is
// echoed back on the resulting membership's webhook events.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	if c.config.APIKey == "" {
		return nil, fmt.Errorf("whop API key is not configured")
	}
	if req.PlanID == "" {
		return nil, fmt.Errorf("plan id is required")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode checkout request: %w", err)
	}

	url := strings.TrimRight(c.config.APIURL, "/") + "/api/v2/checkout_sessions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if session.PurchaseURL == "" {
		return nil, fmt.Errorf("whop response missing purchase_url")
	}

	return &session, nil
}
