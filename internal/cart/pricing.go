package cart

import (
	"math"

	"github.com/trademart/storefront/internal/catalog"
)

// TaxRate is the fixed tax applied on top of the subtotal at checkout.
const TaxRate = 0.18

// EffectiveUnitPrice is the price a line item is charged at: the
// discounted price when present and non-zero, else the list price, else
// 0 for a missing product.
func EffectiveUnitPrice(p *catalog.Product) float64 {
	if p == nil {
		return 0
	}
	if p.DiscountedPrice != nil && *p.DiscountedPrice != 0 {
		return *p.DiscountedPrice
	}
	return p.Price
}

// Subtotal sums effective price times quantity over the items. It is
// order-independent and 0 for an empty cart, and must be recomputed
// from the items after every mutation, never cached.
func Subtotal(items []Item) float64 {
	var total float64
	for _, item := range items {
		total += EffectiveUnitPrice(item.Product) * float64(item.Quantity)
	}
	return total
}

// Summary is the checkout order summary. Shipping is always free.
type Summary struct {
	Subtotal float64
	Tax      float64
	Total    float64
}

// Summarize computes the checkout summary for the items. The stored
// values are unrounded; Round2 is for display only.
func Summarize(items []Item) Summary {
	subtotal := Subtotal(items)
	return Summary{
		Subtotal: subtotal,
		Tax:      subtotal * TaxRate,
		Total:    subtotal * (1 + TaxRate),
	}
}

// Round2 rounds a price to two decimals for display.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
