package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joshua0006/testraveremedy/internal/cart"
	"github.com/joshua0006/testraveremedy/internal/catalog"
	"github.com/joshua0006/testraveremedy/internal/domain"
	"github.com/joshua0006/testraveremedy/internal/pricing"
)

const maxLineQuantity = 5

type CartHandler struct {
	carts   *cart.Store
	catalog *catalog.Service
	engine  *pricing.Engine
	timeout time.Duration
}

func NewCartHandler(carts *cart.Store, catalogSvc *catalog.Service, engine *pricing.Engine, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:   carts,
		catalog: catalogSvc,
		engine:  engine,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID    string `json:"product_id"`
	Quantity     int    `json:"quantity"`
	VariantLabel string `json:"variant_label"`
}

type UpdateQuantityRequestDTO struct {
	Quantity     int    `json:"quantity"`
	VariantLabel string `json:"variant_label"`
}

type ApplyVoucherRequestDTO struct {
	Code string `json:"code"`
}

// CartResponseDTO pairs the cart with its priced totals so the storefront
// never computes money on its own.
type CartResponseDTO struct {
	Cart   *domain.Cart       `json:"cart"`
	Totals pricing.OrderTotal `json:"totals"`
}

func (h *CartHandler) respondCart(w http.ResponseWriter, status int, c *domain.Cart) {
	respondJSON(w, status, CartResponseDTO{
		Cart:   c,
		Totals: h.engine.Totals(c),
	})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "missing_session", "no session")
		return
	}

	c, err := h.carts.Get(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}

	h.respondCart(w, http.StatusOK, c)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "missing_session", "no session")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}
	if req.Quantity < 1 || req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 5")
		return
	}

	product, err := h.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load product")
		return
	}

	variant := req.VariantLabel
	if variant == "" {
		variant = product.VariantLabel
	}

	c, err := h.carts.AddItem(ctx, sessionID, *product, req.Quantity, variant)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to add item")
		return
	}

	h.respondCart(w, http.StatusCreated, c)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "missing_session", "no session")
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > maxLineQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 0 and 5")
		return
	}

	// Quantity 0 removes the line.
	c, err := h.carts.SetQuantity(ctx, sessionID, productID, req.VariantLabel, req.Quantity)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to update quantity")
		return
	}

	h.respondCart(w, http.StatusOK, c)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "missing_session", "no session")
		return
	}

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id is required")
		return
	}

	// No variant query param removes every variant of the product.
	variant := r.URL.Query().Get("variant")

	c, err := h.carts.RemoveItem(ctx, sessionID, productID, variant)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to remove item")
		return
	}

	h.respondCart(w, http.StatusOK, c)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "missing_session", "no session")
		return
	}

	if err := h.carts.Clear(ctx, sessionID); err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to clear cart")
		return
	}

	c, err := h.carts.Get(ctx, sessionID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to load cart")
		return
	}

	h.respondCart(w, http.StatusOK, c)
}

func (h *CartHandler) ApplyVoucher(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	sessionID := getSessionIDFromContext(r.Context())
	if sessionID == "" {
		respondError(w, http.StatusUnauthorized, "missing_session", "no session")
		return
	}

	var req ApplyVoucherRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	// Invalid and empty codes are not errors: the voucher message carries
	// the outcome and the cart stays usable either way.
	c, err := h.carts.ApplyVoucher(ctx, sessionID, req.Code)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to apply voucher")
		return
	}

	h.respondCart(w, http.StatusOK, c)
}
