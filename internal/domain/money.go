package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var minorUnitsPerMajor = decimal.NewFromInt(100)

// FormatPrice converts an integer minor-unit amount to a display string with
// two decimal places, e.g. 4999 -> "49.99".
func FormatPrice(minor int64) string {
	return decimal.NewFromInt(minor).Div(minorUnitsPerMajor).StringFixed(2)
}

// FormatPriceWithSymbol prefixes the currency symbol, e.g. "A$49.99" for AUD.
func FormatPriceWithSymbol(minor int64, unit currency.Unit) string {
	return fmt.Sprintf("%v%s", currency.Symbol(unit), FormatPrice(minor))
}
