package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promostack/coupon-engine/internal/money"
)

func usd(v float64) money.Money { return money.NewFromFloat(v, "USD") }

func cartWith(items ...Item) Cart {
	sub := money.Zero("USD")
	for _, it := range items {
		sub = sub.Add(it.TotalPrice())
	}
	return Cart{
		Currency: "USD",
		Country:  "US",
		Subtotal: sub,
		Shipping: usd(20),
		Tax:      usd(10),
		Items:    items,
	}
}

func TestEligibleItems_Filtering(t *testing.T) {
	items := []Item{
		{ID: "i1", ProductID: "p1", Category: "books", Quantity: 1, UnitPrice: usd(10)},
		{ID: "i2", ProductID: "p2", Category: "toys", OnSale: true, Quantity: 1, UnitPrice: usd(20)},
		{ID: "i3", ProductID: "p3", Category: "toys", GiftCard: true, Quantity: 1, UnitPrice: usd(30)},
	}

	tests := []struct {
		name    string
		coupon  Coupon
		wantIDs []string
	}{
		{
			name:    "no restrictions keeps everything",
			coupon:  Coupon{Scope: ScopeMerchandiseOnly},
			wantIDs: []string{"i1", "i2", "i3"},
		},
		{
			name:    "category inclusion",
			coupon:  Coupon{Scope: ScopeMerchandiseOnly, IncludedCategories: []string{"toys"}},
			wantIDs: []string{"i2", "i3"},
		},
		{
			name:    "sale items excluded",
			coupon:  Coupon{Scope: ScopeMerchandiseOnly, ExcludeSaleItems: true},
			wantIDs: []string{"i1", "i3"},
		},
		{
			name:    "gift cards excluded",
			coupon:  Coupon{Scope: ScopeMerchandiseOnly, ExcludeGiftCards: true},
			wantIDs: []string{"i1", "i2"},
		},
		{
			name: "specific items scope",
			coupon: Coupon{
				Scope:              ScopeSpecificItems,
				IncludedProductIDs: []string{"p1", "p3"},
			},
			wantIDs: []string{"i1", "i3"},
		},
		{
			name: "all filters stack",
			coupon: Coupon{
				Scope:              ScopeMerchandiseOnly,
				IncludedCategories: []string{"toys"},
				ExcludeSaleItems:   true,
				ExcludeGiftCards:   true,
			},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EligibleItems(&tt.coupon, items)
			ids := make([]string, 0, len(got))
			for _, it := range got {
				ids = append(ids, it.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestCalculate_PercentageByScope(t *testing.T) {
	items := []Item{
		{ID: "i1", ProductID: "p1", Quantity: 2, UnitPrice: usd(50)},
	}
	cart := cartWith(items...) // subtotal 100, shipping 20, tax 10

	tests := []struct {
		name  string
		scope Scope
		want  float64
	}{
		{"merchandise only", ScopeMerchandiseOnly, 10},
		{"order total", ScopeOrderTotal, 13},
		{"shipping only", ScopeShippingOnly, 2},
		{"taxes only", ScopeTaxesOnly, 1},
		{"merchandise and shipping", ScopeMerchandiseAndShipping, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Coupon{
				Code:  "TEST10",
				Type:  TypePercentage,
				Value: decimal.NewFromFloat(0.10),
				Scope: tt.scope,
			}
			got, _, rej, err := Calculate(c, cart)
			require.NoError(t, err)
			require.Nil(t, rej)
			assert.True(t, got.Equal(usd(tt.want)), "got %s, want %v", got, tt.want)
		})
	}
}

func TestCalculate_FixedAmountCappedAtBase(t *testing.T) {
	cart := cartWith(Item{ID: "i1", ProductID: "p1", Quantity: 2, UnitPrice: usd(50)})

	c := &Coupon{
		Code:     "BIGFIXED",
		Type:     TypeFixedAmount,
		Value:    decimal.NewFromInt(200),
		Currency: "USD",
		Scope:    ScopeMerchandiseOnly,
	}
	got, _, rej, err := Calculate(c, cart)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.True(t, got.Equal(usd(100)), "fixed discount must cap at the base, got %s", got)
}

func TestCalculate_FixedAmountBelowBase(t *testing.T) {
	cart := cartWith(
		Item{ID: "i1", ProductID: "p1", Quantity: 1, UnitPrice: usd(20)},
		Item{ID: "i2", ProductID: "p2", Quantity: 1, UnitPrice: usd(80)},
	)

	c := &Coupon{
		Code:     "TENOFF",
		Type:     TypeFixedAmount,
		Value:    decimal.NewFromInt(10),
		Currency: "USD",
		Scope:    ScopeMerchandiseOnly,
	}
	got, eligible, rej, err := Calculate(c, cart)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.True(t, got.Equal(usd(10)))
	assert.Len(t, eligible, 2)
}

func TestCalculate_FreeShipping(t *testing.T) {
	cart := cartWith(Item{ID: "i1", ProductID: "p1", Quantity: 1, UnitPrice: usd(100)})

	c := &Coupon{
		Code:  "SHIPFREE",
		Type:  TypeFreeShipping,
		Value: decimal.NewFromInt(1), // ignored for free shipping
		Scope: ScopeMerchandiseOnly,
	}
	got, eligible, rej, err := Calculate(c, cart)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.True(t, got.Equal(usd(20)), "free shipping waives the full shipping amount")
	assert.Empty(t, eligible, "free shipping does not allocate to items")
}

func TestCalculate_MaximumDiscountCap(t *testing.T) {
	cart := cartWith(Item{ID: "i1", ProductID: "p1", Quantity: 1, UnitPrice: usd(1000)})
	cap := usd(25)

	c := &Coupon{
		Code:            "HALF",
		Type:            TypePercentage,
		Value:           decimal.NewFromFloat(0.50),
		Scope:           ScopeMerchandiseOnly,
		MaximumDiscount: &cap,
	}
	got, _, rej, err := Calculate(c, cart)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.True(t, got.Equal(cap), "discount must never exceed the cap, got %s", got)
}

func TestCalculate_ZeroPercentSucceeds(t *testing.T) {
	cart := cartWith(Item{ID: "i1", ProductID: "p1", Quantity: 1, UnitPrice: usd(100)})

	c := &Coupon{
		Code:  "PREVIEW",
		Type:  TypePercentage,
		Value: decimal.Zero,
		Scope: ScopeMerchandiseOnly,
	}
	got, eligible, rej, err := Calculate(c, cart)
	require.NoError(t, err)
	require.Nil(t, rej, "zero percent on eligible items is a success, not a rejection")
	assert.True(t, got.IsZero())
	assert.Len(t, eligible, 1)
}

func TestCalculate_NoEligibleItems(t *testing.T) {
	cart := cartWith(Item{ID: "i1", ProductID: "p1", Category: "toys", OnSale: true, Quantity: 1, UnitPrice: usd(100)})

	c := &Coupon{
		Code:             "NOSALE",
		Type:             TypePercentage,
		Value:            decimal.NewFromFloat(0.10),
		Scope:            ScopeMerchandiseOnly,
		ExcludeSaleItems: true,
	}
	_, _, rej, err := Calculate(c, cart)
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Equal(t, ReasonNoEligibleItems, rej.Reason)
}

func TestCalculate_ShippingScopeIgnoresItemEligibility(t *testing.T) {
	// Every item filtered out, but the scope only touches shipping.
	cart := cartWith(Item{ID: "i1", ProductID: "p1", OnSale: true, Quantity: 1, UnitPrice: usd(100)})

	c := &Coupon{
		Code:             "SHIP50",
		Type:             TypePercentage,
		Value:            decimal.NewFromFloat(0.50),
		Scope:            ScopeShippingOnly,
		ExcludeSaleItems: true,
	}
	got, _, rej, err := Calculate(c, cart)
	require.NoError(t, err)
	require.Nil(t, rej)
	assert.True(t, got.Equal(usd(10)))
}

func TestCalculate_ReservedTypesAreFaults(t *testing.T) {
	cart := cartWith(Item{ID: "i1", ProductID: "p1", Quantity: 1, UnitPrice: usd(100)})

	for _, typ := range []Type{TypeBuyXGetY, TypeSpendXSaveY, TypeGiftWithPurchase, Type("bogus")} {
		c := &Coupon{Code: "X-RESERVED", Type: typ, Scope: ScopeMerchandiseOnly}
		_, _, _, err := Calculate(c, cart)
		assert.Error(t, err, "type %q must fail as a fault", typ)
	}
}

func TestCalculate_InvariantViolationsAreFaults(t *testing.T) {
	cart := cartWith(Item{ID: "i1", ProductID: "p1", Quantity: 1, UnitPrice: usd(100)})

	tests := []struct {
		name   string
		coupon Coupon
	}{
		{"percentage above one", Coupon{Type: TypePercentage, Value: decimal.NewFromFloat(1.5), Scope: ScopeMerchandiseOnly}},
		{"negative percentage", Coupon{Type: TypePercentage, Value: decimal.NewFromFloat(-0.1), Scope: ScopeMerchandiseOnly}},
		{"zero fixed amount", Coupon{Type: TypeFixedAmount, Value: decimal.Zero, Scope: ScopeMerchandiseOnly}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, err := Calculate(&tt.coupon, cart)
			assert.Error(t, err)
		})
	}
}
