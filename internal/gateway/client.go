package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// DefaultRequestTimeout bounds every gateway call; a slow gateway surfaces
// as a failed checkout instead of hanging the session.
const DefaultRequestTimeout = 30 * time.Second

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	settings := gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		breaker:    gobreaker.NewCircuitBreaker[[]byte](settings),
	}
}

func (c *Client) CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error) {
	var session CheckoutSession
	if err := c.do(ctx, http.MethodPost, "/v1/checkout/sessions", req, &session); err != nil {
		return nil, err
	}
	if session.RedirectURL == "" {
		return nil, &Error{StatusCode: http.StatusBadGateway, Message: "no checkout URL returned from gateway"}
	}
	return &session, nil
}

func (c *Client) CreateConnectAccount(ctx context.Context) (*AccountLink, error) {
	var link AccountLink
	if err := c.do(ctx, http.MethodPost, "/v1/connect/accounts", nil, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *Client) GetAccountStatus(ctx context.Context, accountID string) (*AccountStatus, error) {
	var status AccountStatus
	path := fmt.Sprintf("/v1/connect/accounts/%s/status", accountID)
	if err := c.do(ctx, http.MethodGet, path, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) CreateLoginLink(ctx context.Context, accountID string) (*LoginLink, error) {
	var link LoginLink
	path := fmt.Sprintf("/v1/connect/accounts/%s/login-link", accountID)
	if err := c.do(ctx, http.MethodPost, path, nil, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// do runs one JSON request through the circuit breaker and decodes the
// response into out. Non-2xx responses become *Error with the gateway's
// message and details preserved.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode gateway request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	data, err := c.breaker.Execute(func() ([]byte, error) {
		resp, errDo := c.httpClient.Do(req)
		if errDo != nil {
			return nil, fmt.Errorf("gateway request failed: %w", errDo)
		}
		defer resp.Body.Close()

		payload, errRead := io.ReadAll(resp.Body)
		if errRead != nil {
			return nil, fmt.Errorf("failed to read gateway response: %w", errRead)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, decodeError(resp.StatusCode, payload)
		}

		return payload, nil
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return nil
}

func decodeError(statusCode int, payload []byte) *Error {
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Error == "" {
		// Not valid JSON, surface the raw text
		return &Error{StatusCode: statusCode, Message: string(payload)}
	}
	return &Error{StatusCode: statusCode, Message: body.Error, Details: body.Details}
}
