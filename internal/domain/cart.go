package domain

import "time"

// LineItem is one product+variant+quantity entry in a cart. Two additions of
// the same (ProductID, VariantLabel) pair merge by summing quantity.
type LineItem struct {
	ProductID    string    `json:"product_id" bson:"product_id"`
	Name         string    `json:"name" bson:"name"`
	Description  string    `json:"description" bson:"description"`
	Images       []string  `json:"images" bson:"images"`
	UnitPrice    int64     `json:"unit_price" bson:"unit_price"`
	Quantity     int       `json:"quantity" bson:"quantity"`
	VariantLabel string    `json:"variant_label" bson:"variant_label"`
	AddedAt      time.Time `json:"added_at" bson:"added_at"`
}

// Cart holds the ordered line items and voucher state for one session.
// Insertion order is display order; totals do not depend on it.
type Cart struct {
	SessionID string     `json:"session_id" bson:"session_id"`
	Items     []LineItem `json:"items" bson:"items"`
	Voucher   Voucher    `json:"voucher" bson:"voucher"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// FindLine returns the index of the line matching the merge key, or -1.
func (c *Cart) FindLine(productID, variant string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].VariantLabel == variant {
			return i
		}
	}
	return -1
}

// Subtotal is the sum of unit price times quantity over all lines,
// in minor units.
func (c *Cart) Subtotal() int64 {
	var total int64
	for i := range c.Items {
		total += c.Items[i].UnitPrice * int64(c.Items[i].Quantity)
	}
	return total
}

// ItemCount is the sum of quantities over all lines.
func (c *Cart) ItemCount() int {
	var count int
	for i := range c.Items {
		count += c.Items[i].Quantity
	}
	return count
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
