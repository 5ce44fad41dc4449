package checkout

import (
	"net/url"
	"strings"

	"github.com/joshua0006/testraveremedy/internal/domain"
	"github.com/joshua0006/testraveremedy/internal/gateway"
)

// sanitizeLineItems converts cart lines into the gateway wire form, cleaning
// up anything the gateway would reject: unparseable or empty image URLs are
// dropped, missing names and descriptions get defaults, quantity is at least 1.
func sanitizeLineItems(items []domain.LineItem) []gateway.LineItem {
	out := make([]gateway.LineItem, 0, len(items))
	for _, item := range items {
		name := item.Name
		if name == "" {
			name = "Product"
		}

		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}

		out = append(out, gateway.LineItem{
			Name:         name,
			Description:  item.Description,
			Images:       validImageURLs(item.Images),
			UnitPrice:    item.UnitPrice,
			Quantity:     quantity,
			VariantLabel: item.VariantLabel,
		})
	}
	return out
}

func validImageURLs(urls []string) []string {
	valid := make([]string, 0, len(urls))
	for _, raw := range urls {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := url.ParseRequestURI(raw); err != nil {
			continue
		}
		valid = append(valid, raw)
	}
	return valid
}
