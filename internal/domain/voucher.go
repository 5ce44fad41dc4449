package domain

// Voucher is a user-entered discount code together with the outcome of its
// last evaluation. Overwritten on every apply, persisted alongside the cart.
type Voucher struct {
	Code       string `json:"code" bson:"code"`
	IsValid    bool   `json:"is_valid" bson:"is_valid"`
	Percentage int    `json:"percentage" bson:"percentage"` // 0..100
	Message    string `json:"message" bson:"message"`
}
