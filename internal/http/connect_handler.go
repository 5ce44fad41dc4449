package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/joshua0006/testraveremedy/internal/gateway"
)

// ConnectHandler exposes merchant onboarding against the payment gateway's
// connected-accounts API.
type ConnectHandler struct {
	gw      gateway.PaymentGateway
	timeout time.Duration
}

func NewConnectHandler(gw gateway.PaymentGateway, timeout time.Duration) *ConnectHandler {
	return &ConnectHandler{gw: gw, timeout: timeout}
}

type LoginLinkRequestDTO struct {
	AccountID string `json:"account_id"`
}

func (h *ConnectHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	link, err := h.gw.CreateConnectAccount(ctx)
	if err != nil {
		handleGatewayError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, link)
}

func (h *ConnectHandler) GetAccountStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		respondError(w, http.StatusBadRequest, "invalid_account_id", "account_id is required")
		return
	}

	status, err := h.gw.GetAccountStatus(ctx, accountID)
	if err != nil {
		handleGatewayError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, status)
}

func (h *ConnectHandler) CreateLoginLink(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginLinkRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.AccountID == "" {
		respondError(w, http.StatusBadRequest, "invalid_account_id", "account_id is required")
		return
	}

	link, err := h.gw.CreateLoginLink(ctx, req.AccountID)
	if err != nil {
		handleGatewayError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, link)
}

func handleGatewayError(w http.ResponseWriter, err error) {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		respondErrorDetails(w, http.StatusBadGateway, "gateway_error", gwErr.Message, gwErr.Details)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		respondError(w, http.StatusGatewayTimeout, "timeout", "payment gateway did not respond in time")
		return
	}
	respondError(w, http.StatusBadGateway, "gateway_error", "payment gateway request failed")
}
