package coupon

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promostack/coupon-engine/internal/money"
)

func TestAllocate_ProportionalSplit(t *testing.T) {
	items := []Item{
		{ID: "i1", ProductID: "p1", Quantity: 1, UnitPrice: usd(20)},
		{ID: "i2", ProductID: "p2", Quantity: 1, UnitPrice: usd(80)},
	}

	lines := Allocate(items, usd(10))
	require.Len(t, lines, 2)

	assert.True(t, lines[0].Discount.Equal(usd(2)), "20%% share, got %s", lines[0].Discount)
	assert.True(t, lines[1].Discount.Equal(usd(8)), "80%% share, got %s", lines[1].Discount)
	assert.True(t, lines[0].FinalPrice.Equal(usd(18)))
	assert.True(t, lines[1].FinalPrice.Equal(usd(72)))
}

func TestAllocate_EqualItems(t *testing.T) {
	items := []Item{
		{ID: "i1", ProductID: "p1", Quantity: 1, UnitPrice: usd(50)},
		{ID: "i2", ProductID: "p2", Quantity: 1, UnitPrice: usd(50)},
	}

	lines := Allocate(items, usd(10))
	require.Len(t, lines, 2)
	assert.True(t, lines[0].Discount.Equal(usd(5)))
	assert.True(t, lines[1].Discount.Equal(usd(5)))
}

func TestAllocate_RemainderGoesToLastItem(t *testing.T) {
	// 10.00 across three equal thirds: 3.33 + 3.33 + 3.34.
	items := []Item{
		{ID: "i1", ProductID: "p1", Quantity: 1, UnitPrice: usd(10)},
		{ID: "i2", ProductID: "p2", Quantity: 1, UnitPrice: usd(10)},
		{ID: "i3", ProductID: "p3", Quantity: 1, UnitPrice: usd(10)},
	}

	lines := Allocate(items, usd(10))
	require.Len(t, lines, 3)
	assert.Equal(t, "3.33 USD", lines[0].Discount.String())
	assert.Equal(t, "3.33 USD", lines[1].Discount.String())
	assert.Equal(t, "3.34 USD", lines[2].Discount.String())
}

func TestAllocate_Conservation(t *testing.T) {
	// The sum of allocated line discounts must equal the input exactly for
	// any item mix, discount value, and currency precision.
	tests := []struct {
		currency string
		prices   []float64
		discount float64
	}{
		{"USD", []float64{19.99, 0.01, 42.37}, 7.77},
		{"USD", []float64{1, 1, 1, 1, 1, 1, 1}, 0.01},
		{"USD", []float64{33.33, 33.33, 33.34}, 99.99},
		{"JPY", []float64{100, 250, 399}, 73},
		{"JPY", []float64{1, 1, 1}, 2},
		{"BHD", []float64{1.234, 5.678, 9.012}, 3.333},
		{"EUR", []float64{0.05, 0.03, 0.02}, 0.07},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("%s/%v/%v", tt.currency, tt.prices, tt.discount)
		t.Run(name, func(t *testing.T) {
			items := make([]Item, len(tt.prices))
			for i, p := range tt.prices {
				items[i] = Item{
					ID:        fmt.Sprintf("i%d", i),
					Quantity:  1,
					UnitPrice: money.NewFromFloat(p, tt.currency),
				}
			}
			total := money.NewFromFloat(tt.discount, tt.currency)

			lines := Allocate(items, total)
			require.Len(t, lines, len(items))

			sum := money.Zero(tt.currency)
			for _, ln := range lines {
				sum = sum.Add(ln.Discount)
			}
			assert.True(t, sum.Equal(total), "allocated %s, want %s", sum, total)
		})
	}
}

func TestAllocate_EveryItemAppearsOnceInOrder(t *testing.T) {
	items := []Item{
		{ID: "i1", Quantity: 1, UnitPrice: usd(10)},
		{ID: "i2", Quantity: 2, UnitPrice: usd(25)},
		{ID: "i3", Quantity: 1, UnitPrice: usd(5)},
	}

	lines := Allocate(items, usd(13))
	require.Len(t, lines, 3)
	for i, ln := range lines {
		assert.Equal(t, items[i].ID, ln.Item.ID)
	}
}

func TestAllocate_EmptyCases(t *testing.T) {
	items := []Item{{ID: "i1", Quantity: 1, UnitPrice: usd(10)}}

	assert.Nil(t, Allocate(nil, usd(10)))
	assert.Nil(t, Allocate(items, money.Zero("USD")))

	// All-zero item values cannot be split proportionally.
	free := []Item{{ID: "i1", Quantity: 1, UnitPrice: money.Zero("USD")}}
	assert.Nil(t, Allocate(free, usd(10)))
}
