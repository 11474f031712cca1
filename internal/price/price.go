// Package price renders euro amounts for the Italian storefront and derives
// discount figures from a current and an original price.
package price

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const symbol = "€"

var printer = message.NewPrinter(language.Italian)

// Format renders cents as an Italian-locale euro amount, e.g. "€ 1.234,50".
func Format(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return sign + symbol + " " + printer.Sprintf("%.2f", float64(cents)/100)
}

// HasDiscount reports whether original is a real, higher list price.
func HasDiscount(cents, originalCents int64) bool {
	return originalCents > 0 && originalCents > cents
}

// DiscountPercent is the rounded percentage saved against the original price,
// or 0 when there is no discount.
func DiscountPercent(cents, originalCents int64) int {
	if !HasDiscount(cents, originalCents) {
		return 0
	}
	saved := float64(originalCents-cents) / float64(originalCents) * 100
	return int(math.Round(saved))
}
