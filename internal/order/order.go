// Package order holds the in-memory order aggregate and the coupon
// evaluator that applies, removes, and replaces promotional discounts on it.
package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/promostack/coupon-engine/internal/coupon"
	"github.com/promostack/coupon-engine/internal/money"
)

// Item is a single order line.
type Item struct {
	ID           string
	ProductID    string
	ProductName  string
	SKU          string
	Quantity     int
	UnitPrice    money.Money
	Category     string
	Brand        string
	OnSale       bool
	GiftCard     bool
	MapProtected bool
	Flags        []string
}

// TotalPrice returns UnitPrice * Quantity. Derived, never stored.
func (it Item) TotalPrice() money.Money {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// AppliedCoupon records a coupon that has been applied to the order together
// with the discount it produced at application time.
type AppliedCoupon struct {
	Coupon    *coupon.Coupon
	Discount  money.Money
	AppliedAt time.Time
}

// Order is the mutable cart aggregate. Totals are derived on every read from
// the items and applied coupons; nothing is cached, so there is no staleness
// to invalidate. Access to a given Order must be serialized by the host:
// the evaluator assumes one caller mutates an order at a time.
type Order struct {
	ID         string
	CustomerID string
	Currency   string
	Country    string
	Shipping   money.Money
	Tax        money.Money
	Items      []Item
	Applied    []AppliedCoupon
	CreatedAt  time.Time
}

// Subtotal is the sum of all line totals.
func (o *Order) Subtotal() money.Money {
	sum := money.Zero(o.Currency)
	for _, it := range o.Items {
		sum = sum.Add(it.TotalPrice())
	}
	return sum
}

// TotalDiscount is the sum of all applied coupon discounts.
func (o *Order) TotalDiscount() money.Money {
	sum := money.Zero(o.Currency)
	for _, ac := range o.Applied {
		sum = sum.Add(ac.Discount)
	}
	return sum
}

// Total is subtotal + shipping + tax - discounts, clamped at zero.
// Individual discounts are already capped at their computation base, but a
// shipping- or tax-scoped discount stacked on a capped merchandise discount
// can still push the raw formula below zero.
func (o *Order) Total() money.Money {
	return o.Subtotal().Add(o.Shipping).Add(o.Tax).Sub(o.TotalDiscount()).FloorZero()
}

// AddItem appends a line to the order.
func (o *Order) AddItem(it Item) {
	o.Items = append(o.Items, it)
}

// RemoveItem deletes the line with the given id. It reports whether a line
// was removed.
func (o *Order) RemoveItem(itemID string) bool {
	for i, it := range o.Items {
		if it.ID == itemID {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			return true
		}
	}
	return false
}

// ClearCoupons removes every applied coupon.
func (o *Order) ClearCoupons() {
	o.Applied = nil
}

// findApplied returns the index of the applied coupon with the given coupon
// id, or -1.
func (o *Order) findApplied(couponID string) int {
	for i, ac := range o.Applied {
		if ac.Coupon.ID == couponID {
			return i
		}
	}
	return -1
}

// removeApplied deletes the applied coupon at index i.
func (o *Order) removeApplied(i int) AppliedCoupon {
	ac := o.Applied[i]
	o.Applied = append(o.Applied[:i], o.Applied[i+1:]...)
	return ac
}

// couponItem converts an order line to the snapshot shape the coupon package
// consumes.
func couponItem(it Item) coupon.Item {
	return coupon.Item{
		ID:        it.ID,
		ProductID: it.ProductID,
		Name:      it.ProductName,
		SKU:       it.SKU,
		Quantity:  it.Quantity,
		UnitPrice: it.UnitPrice,
		Category:  it.Category,
		Brand:     it.Brand,
		OnSale:    it.OnSale,
		GiftCard:  it.GiftCard,
	}
}

// cart builds the read-only snapshot for validation and calculation.
func (o *Order) cart() coupon.Cart {
	items := make([]coupon.Item, len(o.Items))
	for i, it := range o.Items {
		items[i] = couponItem(it)
	}

	hasNonCombinable := false
	for _, ac := range o.Applied {
		if !ac.Coupon.Combinable {
			hasNonCombinable = true
			break
		}
	}

	return coupon.Cart{
		Currency:         o.Currency,
		Country:          o.Country,
		Subtotal:         o.Subtotal(),
		Shipping:         o.Shipping,
		Tax:              o.Tax,
		Items:            items,
		AppliedCoupons:   len(o.Applied),
		HasNonCombinable: hasNonCombinable,
	}
}
