package domain

type CheckoutStatus string

const (
	CheckoutStatusIdle            CheckoutStatus = "IDLE"
	CheckoutStatusSubmitting      CheckoutStatus = "SUBMITTING"
	CheckoutStatusRedirectPending CheckoutStatus = "REDIRECT_PENDING"
	CheckoutStatusFailed          CheckoutStatus = "FAILED"
)

// IsTerminal reports whether no further transition is allowed.
// REDIRECT_PENDING is terminal from this service's perspective: the browser
// navigates away to the gateway. FAILED carts retry as a fresh checkout.
func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusRedirectPending || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// CanTransitionTo guards the checkout state machine:
// IDLE -> SUBMITTING -> {REDIRECT_PENDING, FAILED}.
func CanTransitionTo(from, to CheckoutStatus) bool {
	switch from {
	case CheckoutStatusIdle:
		return to == CheckoutStatusSubmitting
	case CheckoutStatusSubmitting:
		return to == CheckoutStatusRedirectPending || to == CheckoutStatusFailed
	default:
		return false
	}
}
