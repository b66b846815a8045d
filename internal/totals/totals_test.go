package totals

import (
	"testing"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestCompute_EmptyCart(t *testing.T) {
	got := Compute(nil)

	assert.Equal(t, int64(0), got.SubtotalCents)
	assert.Equal(t, domain.FlatShippingCents, got.ShippingCents)
	assert.Equal(t, int64(0), got.TaxCents)
	assert.Equal(t, domain.FlatShippingCents, got.TotalCents)
	assert.Equal(t, domain.FreeShippingThresholdCents, got.AmountToFreeShippingCents)
}

func TestCompute_SubtotalAndTax(t *testing.T) {
	got := Compute([]Line{
		{Quantity: 3, UnitPriceCents: 1999}, // 5997
		{Quantity: 1, UnitPriceCents: 450},  // 450
	})

	assert.Equal(t, int64(6447), got.SubtotalCents)
	// 6447 * 0.08 = 515.76 -> 516
	assert.Equal(t, int64(516), got.TaxCents)
	assert.Equal(t, domain.FlatShippingCents, got.ShippingCents)
	assert.Equal(t, int64(6447+516)+domain.FlatShippingCents, got.TotalCents)
	assert.Equal(t, domain.FreeShippingThresholdCents-6447, got.AmountToFreeShippingCents)
}

func TestCompute_FreeShippingBoundary(t *testing.T) {
	atThreshold := Compute([]Line{{Quantity: 1, UnitPriceCents: domain.FreeShippingThresholdCents}})
	assert.Equal(t, int64(0), atThreshold.ShippingCents)
	assert.Equal(t, int64(0), atThreshold.AmountToFreeShippingCents)

	oneBelow := Compute([]Line{{Quantity: 1, UnitPriceCents: domain.FreeShippingThresholdCents - 1}})
	assert.Equal(t, domain.FlatShippingCents, oneBelow.ShippingCents)
	assert.Equal(t, int64(1), oneBelow.AmountToFreeShippingCents)
}

func TestCompute_TaxRoundsHalfUpOnSubtotal(t *testing.T) {
	// 1031 * 0.08 = 82.48 -> 82; per-line rounding of two 515.5-cent halves
	// would give 83. Subtotal rounding is the contract.
	got := Compute([]Line{
		{Quantity: 1, UnitPriceCents: 515},
		{Quantity: 1, UnitPriceCents: 516},
	})
	assert.Equal(t, int64(82), got.TaxCents)

	// 1050 * 0.08 = 84.00 exactly
	exact := Compute([]Line{{Quantity: 1, UnitPriceCents: 1050}})
	assert.Equal(t, int64(84), exact.TaxCents)

	// 1031.25-style half cent: 25 * 0.08 = 2.0, 31 * 0.08 = 2.48 -> 2
	half := Compute([]Line{{Quantity: 1, UnitPriceCents: 31}})
	assert.Equal(t, int64(2), half.TaxCents)
}

func TestCompute_Deterministic(t *testing.T) {
	lines := []Line{
		{Quantity: 7, UnitPriceCents: 1333},
		{Quantity: 2, UnitPriceCents: 99},
		{Quantity: 1, UnitPriceCents: 12345},
	}

	first := Compute(lines)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Compute(lines))
	}
}

func TestFromItems(t *testing.T) {
	items := []domain.CartItem{
		{Quantity: 2, UnitPriceCents: 700},
		{Quantity: 5, UnitPriceCents: 120},
	}

	got := Compute(FromItems(items))
	assert.Equal(t, int64(2000), got.SubtotalCents)
}
