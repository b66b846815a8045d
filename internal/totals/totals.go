package totals

import (
	"math"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
)

// Line is the minimal input the calculator needs.
type Line struct {
	Quantity       int
	UnitPriceCents int64
}

// Compute derives the money summary for a set of lines. Tax is rounded
// half-up to whole cents on the subtotal, not per line; per-line rounding
// then summing can drift from this value.
func Compute(lines []Line) domain.Totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += int64(l.Quantity) * l.UnitPriceCents
	}

	var shipping int64
	if subtotal < domain.FreeShippingThresholdCents {
		shipping = domain.FlatShippingCents
	}

	tax := int64(math.Round(float64(subtotal) * domain.TaxRate))

	toFree := domain.FreeShippingThresholdCents - subtotal
	if toFree < 0 {
		toFree = 0
	}

	return domain.Totals{
		SubtotalCents:             subtotal,
		ShippingCents:             shipping,
		TaxCents:                  tax,
		TotalCents:                subtotal + shipping + tax,
		AmountToFreeShippingCents: toFree,
	}
}

// FromItems adapts cart items to calculator lines.
func FromItems(items []domain.CartItem) []Line {
	lines := make([]Line, len(items))
	for i, it := range items {
		lines[i] = Line{Quantity: it.Quantity, UnitPriceCents: it.UnitPriceCents}
	}
	return lines
}
