package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joshua0006/testraveremedy/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type connectStubGateway struct {
	accountLink *gateway.AccountLink
	status      *gateway.AccountStatus
	loginLink   *gateway.LoginLink
	err         error

	lastAccountID string
}

func (g *connectStubGateway) CreateCheckoutSession(context.Context, *gateway.CheckoutSessionRequest) (*gateway.CheckoutSession, error) {
	return nil, nil
}

func (g *connectStubGateway) CreateConnectAccount(context.Context) (*gateway.AccountLink, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.accountLink, nil
}

func (g *connectStubGateway) GetAccountStatus(_ context.Context, accountID string) (*gateway.AccountStatus, error) {
	g.lastAccountID = accountID
	if g.err != nil {
		return nil, g.err
	}
	return g.status, nil
}

func (g *connectStubGateway) CreateLoginLink(_ context.Context, accountID string) (*gateway.LoginLink, error) {
	g.lastAccountID = accountID
	if g.err != nil {
		return nil, g.err
	}
	return g.loginLink, nil
}

func TestCreateAccount_Success(t *testing.T) {
	gw := &connectStubGateway{accountLink: &gateway.AccountLink{
		AccountID:   "acct_1",
		RedirectURL: "https://gateway.example.com/onboard/acct_1",
	}}
	handler := NewConnectHandler(gw, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.CreateAccount(recorder, httptest.NewRequest("POST", "/", nil))

	assert.Equal(t, http.StatusCreated, recorder.Code)
	var link gateway.AccountLink
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&link))
	assert.Equal(t, "acct_1", link.AccountID)
}

func TestGetAccountStatus_RequiresAccountID(t *testing.T) {
	handler := NewConnectHandler(&connectStubGateway{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.GetAccountStatus(recorder, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestGetAccountStatus_Success(t *testing.T) {
	gw := &connectStubGateway{status: &gateway.AccountStatus{
		AccountID:      "acct_1",
		ChargesEnabled: true,
		PayoutsEnabled: true,
	}}
	handler := NewConnectHandler(gw, 5*time.Second)

	recorder := httptest.NewRecorder()
	handler.GetAccountStatus(recorder, httptest.NewRequest("GET", "/?account_id=acct_1", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "acct_1", gw.lastAccountID)
	var status gateway.AccountStatus
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&status))
	assert.True(t, status.ChargesEnabled)
}

func TestCreateLoginLink_GatewayError(t *testing.T) {
	gw := &connectStubGateway{err: &gateway.Error{
		StatusCode: 404,
		Message:    "account not found",
	}}
	handler := NewConnectHandler(gw, 5*time.Second)

	body, _ := json.Marshal(LoginLinkRequestDTO{AccountID: "acct_missing"})
	recorder := httptest.NewRecorder()
	handler.CreateLoginLink(recorder, httptest.NewRequest("POST", "/", bytes.NewReader(body)))

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	assert.Equal(t, "account not found", resp.Error)
}
