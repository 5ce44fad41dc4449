// Package pricing computes order totals from cart contents. It is the single
// canonical rule set: both the cart totals preview and the checkout request
// builder go through it, so the previewed total and the charged total can
// never drift apart.
package pricing

import "github.com/joshua0006/testraveremedy/internal/domain"

const (
	// DefaultFreeShippingThreshold is the pre-discount subtotal at or above
	// which shipping is free, in minor units ($50.00).
	DefaultFreeShippingThreshold int64 = 5000

	// DefaultShippingFee is the flat express-shipping fee in minor units
	// ($9.95).
	DefaultShippingFee int64 = 995
)

// OrderTotal is the derived breakdown for a cart. Never persisted; recomputed
// from cart + voucher on every read. GrandTotal = Subtotal - Discount + Shipping.
type OrderTotal struct {
	Subtotal       int64 `json:"subtotal"`
	DiscountAmount int64 `json:"discount_amount"`
	ShippingFee    int64 `json:"shipping_fee"`
	GrandTotal     int64 `json:"grand_total"`
	FreeShipping   bool  `json:"free_shipping"`
}

// Engine evaluates the shipping and discount rules. It has no mutable state;
// computing totals twice on the same cart yields identical results.
type Engine struct {
	freeShippingThreshold int64
	shippingFee           int64
}

func NewEngine(freeShippingThreshold, shippingFee int64) *Engine {
	return &Engine{
		freeShippingThreshold: freeShippingThreshold,
		shippingFee:           shippingFee,
	}
}

func NewDefaultEngine() *Engine {
	return NewEngine(DefaultFreeShippingThreshold, DefaultShippingFee)
}

// FreeShippingEligible applies the shipping rule to a pre-discount subtotal.
// Eligibility is deliberately evaluated before any voucher discount: a
// voucher can never push an order across or below the threshold.
func (e *Engine) FreeShippingEligible(subtotal int64) bool {
	return subtotal >= e.freeShippingThreshold
}

// ShippingFee returns the fee charged for a pre-discount subtotal. An empty
// cart ships nothing and is never charged a fee.
func (e *Engine) ShippingFee(subtotal int64) int64 {
	if subtotal == 0 || e.FreeShippingEligible(subtotal) {
		return 0
	}
	return e.shippingFee
}

// Discount returns the voucher discount for a subtotal, rounded half-up to
// the nearest minor unit. Invalid or absent vouchers discount nothing.
func (e *Engine) Discount(subtotal int64, voucher domain.Voucher) int64 {
	if !voucher.IsValid || voucher.Percentage <= 0 {
		return 0
	}
	return (subtotal*int64(voucher.Percentage) + 50) / 100
}

// Totals computes the full breakdown for a cart.
func (e *Engine) Totals(cart *domain.Cart) OrderTotal {
	subtotal := cart.Subtotal()
	discount := e.Discount(subtotal, cart.Voucher)
	shipping := e.ShippingFee(subtotal)

	return OrderTotal{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		ShippingFee:    shipping,
		GrandTotal:     subtotal - discount + shipping,
		FreeShipping:   shipping == 0,
	}
}
