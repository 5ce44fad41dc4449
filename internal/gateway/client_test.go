package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionRequest() *CheckoutSessionRequest {
	return &CheckoutSessionRequest{
		Cart: []LineItem{
			{Name: "RaveRemedy Recovery Pack", UnitPrice: 4999, Quantity: 1, VariantLabel: "Lemon Squash"},
		},
		Shipping:   ShippingRate{Amount: 995, Currency: "aud", DisplayName: "Express Shipping"},
		SuccessURL: "https://shop.example.com/success",
		CancelURL:  "https://shop.example.com/cancel",
	}
}

func TestCreateCheckoutSession_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))

		var req CheckoutSessionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Cart, 1)
		assert.Equal(t, int64(995), req.Shipping.Amount)

		json.NewEncoder(w).Encode(CheckoutSession{
			SessionID:   "cs_123",
			RedirectURL: "https://gateway.example.com/pay/cs_123",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_123", 5*time.Second)

	session, err := client.CreateCheckoutSession(context.Background(), sessionRequest())
	require.NoError(t, err)
	assert.Equal(t, "cs_123", session.SessionID)
	assert.Equal(t, "https://gateway.example.com/pay/cs_123", session.RedirectURL)
}

func TestCreateCheckoutSession_GatewayRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":   "Failed to create checkout session",
			"details": "line item 0: unit_amount must be positive",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "sk_test_123", 5*time.Second)

	_, err := client.CreateCheckoutSession(context.Background(), sessionRequest())
	require.Error(t, err)

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
	assert.Equal(t, "Failed to create checkout session", gwErr.Message)
	assert.Contains(t, gwErr.Details, "unit_amount")
}

func TestCreateCheckoutSession_NonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)

	_, err := client.CreateCheckoutSession(context.Background(), sessionRequest())

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "upstream unavailable", gwErr.Message)
}

func TestCreateCheckoutSession_MissingRedirectURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"sessionId": "cs_123"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)

	_, err := client.CreateCheckoutSession(context.Background(), sessionRequest())
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Contains(t, gwErr.Message, "no checkout URL")
}

func TestCreateCheckoutSession_TimeoutSurfacesAsError(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer server.Close()
	defer close(block)

	client := NewClient(server.URL, "", 50*time.Millisecond)

	start := time.Now()
	_, err := client.CreateCheckoutSession(context.Background(), sessionRequest())
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second, "must fail within the bounded wait")
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)

	for i := 0; i < 5; i++ {
		_, err := client.CreateCheckoutSession(context.Background(), sessionRequest())
		require.Error(t, err)
	}

	_, err := client.CreateCheckoutSession(context.Background(), sessionRequest())
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState), "breaker should be open, got: %v", err)
}

func TestGetAccountStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/connect/accounts/acct_1/status", r.URL.Path)
		json.NewEncoder(w).Encode(AccountStatus{
			AccountID:        "acct_1",
			DetailsSubmitted: true,
			ChargesEnabled:   true,
			PayoutsEnabled:   true,
			IsFullyOnboarded: true,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)

	status, err := client.GetAccountStatus(context.Background(), "acct_1")
	require.NoError(t, err)
	assert.True(t, status.IsFullyOnboarded)
}

func TestCreateConnectAccountAndLoginLink(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/connect/accounts":
			json.NewEncoder(w).Encode(AccountLink{AccountID: "acct_1", RedirectURL: "https://gateway.example.com/onboard"})
		case "/v1/connect/accounts/acct_1/login-link":
			json.NewEncoder(w).Encode(LoginLink{RedirectURL: "https://gateway.example.com/login"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, "", 5*time.Second)

	link, err := client.CreateConnectAccount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acct_1", link.AccountID)

	login, err := client.CreateLoginLink(context.Background(), "acct_1")
	require.NoError(t, err)
	assert.Equal(t, "https://gateway.example.com/login", login.RedirectURL)
}
