package domain

import "time"

// Product is a catalog record. Products are defined by the catalog and never
// mutated by the cart.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Images       []string  `json:"images"`
	UnitPrice    int64     `json:"unit_price"` // minor currency units
	VariantLabel string    `json:"variant_label"`
	CreatedAt    time.Time `json:"created_at"`
}
