package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mateoquintana/mercaderia-backend/pkg/config"
	"github.com/mateoquintana/mercaderia-backend/pkg/enums"
)

// IntentCreator is the surface the order engine needs from the gateway.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amountCents int, currency enums.Currency, reference string) (string, error)
}

// SignatureVerifier checks gateway callback authenticity.
type SignatureVerifier interface {
	Verify(gatewayOrderID, gatewayPaymentID, signature string) bool
	DevMode() bool
}

// Client talks to the external payment processor over HTTP.
type Client struct {
	baseURL       string
	keyID         string
	signingSecret string
	httpClient    *http.Client
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.GatewayConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("gateway base url is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:       cfg.BaseURL,
		keyID:         cfg.KeyID,
		signingSecret: cfg.SigningSecret,
		httpClient:    &http.Client{Timeout: timeout},
	}, nil
}

type createIntentRequest struct {
	AmountCents int    `json:"amount"`
	Currency    string `json:"currency"`
	Reference   string `json:"reference"`
}

type createIntentResponse struct {
	IntentID string `json:"id"`
}

// CreateIntent registers a payment intent sized to the order's grand total
// and returns the gateway's intent identifier for client-side redirect.
func (c *Client) CreateIntent(ctx context.Context, amountCents int, currency enums.Currency, reference string) (string, error) {
	if amountCents <= 0 {
		return "", fmt.Errorf("gateway: intent amount must be positive")
	}

	payload, err := json.Marshal(createIntentRequest{
		AmountCents: amountCents,
		Currency:    string(currency),
		Reference:   reference,
	})
	if err != nil {
		return "", fmt.Errorf("gateway: marshal intent: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/intents", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("gateway: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.keyID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gateway: create intent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("gateway: create intent status %d: %s", resp.StatusCode, string(body))
	}

	var decoded createIntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("gateway: decode intent: %w", err)
	}
	if decoded.IntentID == "" {
		return "", fmt.Errorf("gateway: intent response missing id")
	}
	return decoded.IntentID, nil
}

// Verify checks a callback signature against the configured signing secret.
func (c *Client) Verify(gatewayOrderID, gatewayPaymentID, signature string) bool {
	return VerifyConfirmation(c.signingSecret, gatewayOrderID, gatewayPaymentID, signature)
}

// DevMode reports whether signature verification is disabled.
func (c *Client) DevMode() bool {
	return c.signingSecret == ""
}
