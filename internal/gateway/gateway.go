// Package gateway talks to the hosted payment-checkout service: it creates
// checkout sessions for a cart and exposes the connected-account onboarding
// operations the admin tooling consumes.
package gateway

import (
	"context"
	"fmt"
)

// LineItem is the sanitized wire form of a cart line.
type LineItem struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Images       []string `json:"images"`
	UnitPrice    int64    `json:"unitPrice"`
	Quantity     int      `json:"quantity"`
	VariantLabel string   `json:"variantLabel"`
}

// ShippingRate is explicit shipping-rate data sent with the session request,
// so the gateway charges exactly what the totals preview showed.
type ShippingRate struct {
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	DisplayName string `json:"display_name"`
	MinDays     int    `json:"min_days"`
	MaxDays     int    `json:"max_days"`
}

type CheckoutSessionRequest struct {
	Cart                 []LineItem        `json:"cart"`
	Shipping             ShippingRate      `json:"shipping"`
	DiscountAmount       int64             `json:"discount_amount"`
	SuccessURL           string            `json:"success_url"`
	CancelURL            string            `json:"cancel_url"`
	Metadata             map[string]string `json:"metadata,omitempty"`
	AllowPromotionCodes  bool              `json:"allow_promotion_codes"`
	CollectPhoneNumber   bool              `json:"collect_phone_number"`
	CollectBillingAddr   bool              `json:"collect_billing_address"`
	ConnectedAccountID   string            `json:"connected_account_id,omitempty"`
	ApplicationFeeAmount int64             `json:"application_fee_amount,omitempty"`
}

// CheckoutSession is the gateway's successful response: a hosted-checkout
// session id and the URL the browser navigates to.
type CheckoutSession struct {
	SessionID   string `json:"sessionId"`
	RedirectURL string `json:"redirectUrl"`
}

type AccountLink struct {
	AccountID   string `json:"accountId"`
	RedirectURL string `json:"redirectUrl"`
}

type AccountStatus struct {
	AccountID        string `json:"accountId"`
	DetailsSubmitted bool   `json:"detailsSubmitted"`
	ChargesEnabled   bool   `json:"chargesEnabled"`
	PayoutsEnabled   bool   `json:"payoutsEnabled"`
	IsFullyOnboarded bool   `json:"isFullyOnboarded"`
}

type LoginLink struct {
	RedirectURL string `json:"redirectUrl"`
}

type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req *CheckoutSessionRequest) (*CheckoutSession, error)
	CreateConnectAccount(ctx context.Context) (*AccountLink, error)
	GetAccountStatus(ctx context.Context, accountID string) (*AccountStatus, error)
	CreateLoginLink(ctx context.Context, accountID string) (*LoginLink, error)
}

// Error is a rejection from the gateway. Message and Details carry the
// gateway's own wording verbatim; they are surfaced to aid debugging, never
// swallowed.
type Error struct {
	StatusCode int
	Message    string
	Details    string
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("gateway error (%d): %s: %s", e.StatusCode, e.Message, e.Details)
	}
	return fmt.Sprintf("gateway error (%d): %s", e.StatusCode, e.Message)
}
