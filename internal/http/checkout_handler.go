package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/joshua0006/testraveremedy/internal/checkout"
	"github.com/joshua0006/testraveremedy/internal/gateway"
)

type CheckoutHandler struct {
	checkout *checkout.Service
	timeout  time.Duration
}

func NewCheckoutHandler(checkoutSvc *checkout.Service, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkoutSvc, timeout: timeout}
}

type CheckoutResponseDTO struct {
	CheckoutID  string `json:"checkout_id"`
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
	Status      string `json:"status"`
}

func (h *CheckoutHandler) InitiateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "missing_session", "no session")
		return
	}

	idempotencyKey := r.Header.Get("Idempotency-Key")

	result, err := h.checkout.InitiateCheckout(ctx, sessionID, idempotencyKey)
	if err != nil {
		h.handleCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CheckoutResponseDTO{
		CheckoutID:  result.CheckoutID,
		SessionID:   result.SessionID,
		RedirectURL: result.RedirectURL,
		Status:      result.Status.String(),
	})
}

func (h *CheckoutHandler) handleCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cannot check out an empty cart")
	case errors.Is(err, checkout.ErrMissingIdemKey):
		respondError(w, http.StatusBadRequest, "missing_idempotency_key", "Idempotency-Key header is required")
	case errors.Is(err, checkout.ErrCheckoutInFlight):
		respondError(w, http.StatusConflict, "checkout_in_flight", "a checkout for this session is already in progress")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "payment gateway did not respond in time")
	default:
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			// Gateway rejections pass through verbatim so the storefront can
			// show the real reason.
			respondErrorDetails(w, http.StatusBadGateway, "gateway_error", gwErr.Message, gwErr.Details)
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "checkout failed")
	}
}
