package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joshua0006/testraveremedy/internal/cart"
	"github.com/joshua0006/testraveremedy/internal/domain"
	"github.com/joshua0006/testraveremedy/internal/gateway"
	"github.com/joshua0006/testraveremedy/internal/pricing"
)

const EventTypeCheckoutSessionCreated = "checkout.session.created"

var (
	ErrEmptyCart         = errors.New("cart is empty, nothing to checkout")
	ErrCheckoutInFlight  = errors.New("a checkout is already in progress for this session")
	ErrMissingIdemKey    = errors.New("idempotency key is required")
	IllegalTransitionErr = errors.New("illegal transition of checkout status")
)

// Config holds the checkout-level knobs: redirect targets, currency, and the
// optional connected-account configuration for multi-vendor deployments.
type Config struct {
	SuccessURL            string
	CancelURL             string
	Currency              string
	ConnectedAccountID    string
	ApplicationFeePercent int
}

// Result is what the caller needs to continue: the gateway redirect URL plus
// the stored checkout identity for idempotent replays.
type Result struct {
	CheckoutID  string                `json:"checkout_id"`
	SessionID   string                `json:"session_id"`
	RedirectURL string                `json:"redirect_url"`
	Status      domain.CheckoutStatus `json:"status"`
}

// snapshot is the durable record of what was submitted, stored with the
// checkout row and published as the order event payload.
type snapshot struct {
	Items      []gateway.LineItem `json:"items"`
	Totals     pricing.OrderTotal `json:"totals"`
	Currency   string             `json:"currency"`
	CapturedAt time.Time          `json:"captured_at"`
}

// Service orchestrates checkout: cart -> sanitized request -> gateway ->
// recorded outcome. Every error path leaves the cart untouched; the cart is
// cleared only once the gateway has confirmed session creation.
type Service struct {
	carts  *cart.Store
	engine *pricing.Engine
	gw     gateway.PaymentGateway
	repo   RepoInterface
	cfg    Config

	mu       sync.Mutex
	inFlight map[string]bool // one outstanding submission per session
}

func NewService(carts *cart.Store, engine *pricing.Engine, gw gateway.PaymentGateway, repo RepoInterface, cfg Config) *Service {
	if cfg.Currency == "" {
		cfg.Currency = "aud"
	}
	return &Service{
		carts:    carts,
		engine:   engine,
		gw:       gw,
		repo:     repo,
		cfg:      cfg,
		inFlight: make(map[string]bool),
	}
}

func (s *Service) InitiateCheckout(ctx context.Context, sessionID, idempotencyKey string) (*Result, error) {
	if idempotencyKey == "" {
		return nil, ErrMissingIdemKey
	}

	// A replayed key returns the stored outcome without touching the gateway.
	existing, err := s.repo.GetByIdempotencyKey(ctx, idempotencyKey)
	if err != nil && !errors.Is(err, ErrIdempotencyKeyNotFound) {
		return nil, fmt.Errorf("failed to check idempotency: %w", err)
	}
	if existing != nil {
		log.Printf("duplicate checkout request for idempotency_key %s, returning checkout %s (%s)",
			idempotencyKey, existing.ID, existing.Status)
		return resultFromRecord(existing), nil
	}

	if !s.acquire(sessionID) {
		return nil, ErrCheckoutInFlight
	}
	defer s.release(sessionID)

	return s.submit(ctx, sessionID, idempotencyKey)
}

func (s *Service) submit(ctx context.Context, sessionID, idempotencyKey string) (*Result, error) {
	currentCart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}
	if currentCart.IsEmpty() {
		return nil, ErrEmptyCart
	}

	// Totals and line items are recomputed from current cart state on every
	// attempt; a retry never resends a stale request.
	totals := s.engine.Totals(currentCart)
	items := sanitizeLineItems(currentCart.Items)

	snap := snapshot{
		Items:      items,
		Totals:     totals,
		Currency:   s.cfg.Currency,
		CapturedAt: time.Now(),
	}
	snapJSON, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cart snapshot: %w", err)
	}

	rec := &Record{
		ID:             uuid.NewString(),
		SessionID:      sessionID,
		IdempotencyKey: idempotencyKey,
		Status:         domain.CheckoutStatusSubmitting,
		CartSnapshot:   snapJSON,
		TotalAmount:    totals.GrandTotal,
	}
	if !domain.CanTransitionTo(domain.CheckoutStatusIdle, rec.Status) {
		return nil, IllegalTransitionErr
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to record checkout: %w", err)
	}

	session, err := s.gw.CreateCheckoutSession(ctx, s.buildRequest(items, totals))
	if err != nil {
		s.fail(rec.ID, err)
		return nil, err
	}

	payload, err := json.Marshal(map[string]interface{}{
		"checkout_id":        rec.ID,
		"session_id":         sessionID,
		"gateway_session_id": session.SessionID,
		"items":              snap.Items,
		"totals":             snap.Totals,
		"currency":           snap.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkout event: %w", err)
	}

	if err := s.repo.MarkRedirectPending(ctx, rec.ID, session.SessionID, session.RedirectURL, payload); err != nil {
		// The gateway session exists; losing the record must not strand the
		// user, so the redirect still goes out.
		log.Printf("failed to finalize checkout %s: %v", rec.ID, err)
	}

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		log.Printf("failed to clear cart for session %s after checkout: %v", sessionID, err)
	}

	return &Result{
		CheckoutID:  rec.ID,
		SessionID:   session.SessionID,
		RedirectURL: session.RedirectURL,
		Status:      domain.CheckoutStatusRedirectPending,
	}, nil
}

// buildRequest assembles the gateway session request. Shipping-rate data and
// the discount come from the same pricing engine the totals preview uses.
func (s *Service) buildRequest(items []gateway.LineItem, totals pricing.OrderTotal) *gateway.CheckoutSessionRequest {
	displayName := "Express Shipping"
	if totals.FreeShipping {
		displayName = "Free Express Shipping"
	}

	req := &gateway.CheckoutSessionRequest{
		Cart: items,
		Shipping: gateway.ShippingRate{
			Amount:      totals.ShippingFee,
			Currency:    s.cfg.Currency,
			DisplayName: displayName,
			MinDays:     2,
			MaxDays:     3,
		},
		DiscountAmount:      totals.DiscountAmount,
		SuccessURL:          s.cfg.SuccessURL,
		CancelURL:           s.cfg.CancelURL,
		Metadata:            map[string]string{"cart_items": cartItemsMetadata(items)},
		AllowPromotionCodes: true,
		CollectPhoneNumber:  true,
		CollectBillingAddr:  true,
	}

	if s.cfg.ConnectedAccountID != "" {
		req.ConnectedAccountID = s.cfg.ConnectedAccountID
		req.ApplicationFeeAmount = (totals.Subtotal*int64(s.cfg.ApplicationFeePercent) + 50) / 100
	}

	return req
}

// fail records the FAILED transition. The record write happens on a fresh
// context: the original one may already be cancelled, and the failure must
// still be durable.
func (s *Service) fail(checkoutID string, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.MarkFailed(ctx, checkoutID, cause.Error()); err != nil {
		log.Printf("failed to mark checkout %s failed: %v", checkoutID, err)
	}
}

func (s *Service) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[sessionID] {
		return false
	}
	s.inFlight[sessionID] = true
	return true
}

func (s *Service) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}

func resultFromRecord(rec *Record) *Result {
	result := &Result{
		CheckoutID: rec.ID,
		Status:     rec.Status,
	}
	if rec.GatewaySessionID != nil {
		result.SessionID = *rec.GatewaySessionID
	}
	if rec.RedirectURL != nil {
		result.RedirectURL = *rec.RedirectURL
	}
	return result
}

func cartItemsMetadata(items []gateway.LineItem) string {
	type summary struct {
		Name     string `json:"name"`
		Quantity int    `json:"quantity"`
		Variant  string `json:"variant"`
	}

	summaries := make([]summary, len(items))
	for i, item := range items {
		summaries[i] = summary{Name: item.Name, Quantity: item.Quantity, Variant: item.VariantLabel}
	}

	data, err := json.Marshal(summaries)
	if err != nil {
		return "[]"
	}
	return string(data)
}
