package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartItemsTotalCents(t *testing.T) {
	cart := Cart{
		Items: []CartItem{
			{ProductID: "a", Quantity: 2, UnitPriceCents: 2550},
			{ProductID: "b", Quantity: 1, UnitPriceCents: 4900},
		},
	}
	assert.Equal(t, int64(10000), cart.ItemsTotalCents())

	assert.Equal(t, int64(0), Cart{}.ItemsTotalCents())
}

func TestCartValidate(t *testing.T) {
	valid := Cart{
		VendorID: "vendor-1",
		Items:    []CartItem{{ProductID: "a", Quantity: 1, UnitPriceCents: 100}},
	}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name string
		cart Cart
	}{
		{"no vendor", Cart{Items: valid.Items}},
		{"no items", Cart{VendorID: "vendor-1"}},
		{"missing product id", Cart{VendorID: "vendor-1", Items: []CartItem{{Quantity: 1, UnitPriceCents: 100}}}},
		{"zero quantity", Cart{VendorID: "vendor-1", Items: []CartItem{{ProductID: "a", UnitPriceCents: 100}}}},
		{"negative price", Cart{VendorID: "vendor-1", Items: []CartItem{{ProductID: "a", Quantity: 1, UnitPriceCents: -1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cart.Validate(), ErrInvalidCart)
		})
	}
}

func TestAmountsMatch(t *testing.T) {
	assert.True(t, AmountsMatch(10000, 10000))
	assert.True(t, AmountsMatch(10000, 10001))
	assert.True(t, AmountsMatch(10001, 10000))
	assert.False(t, AmountsMatch(10000, 10002))
	// 100.00 declared against 99.50 of line items is off by 50 cents.
	assert.False(t, AmountsMatch(10000, 9950))
	// 50.00 cart captured as 55.00 is off by 5.00.
	assert.False(t, AmountsMatch(5500, 5000))
}
