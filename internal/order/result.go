package order

import (
	"github.com/promostack/coupon-engine/internal/coupon"
	"github.com/promostack/coupon-engine/internal/money"
)

// Totals is a point-in-time projection of the order's derived amounts.
type Totals struct {
	Currency string
	Subtotal money.Money
	Shipping money.Money
	Tax      money.Money
	Discount money.Money
	Total    money.Money
}

// Result is the outcome of a coupon operation. Business failures carry a
// rejection reason and message; they are values, not errors. Constructed
// fresh per call and never persisted.
type Result struct {
	Success  bool
	Coupon   *coupon.Coupon
	Discount money.Money
	Reason   coupon.RejectionReason
	Message  string
	Totals   *Totals
	Lines    []coupon.LineDiscount
}

// Breakdown is a derived view of how the currently applied coupons spread
// across the order's line items.
type Breakdown struct {
	Currency           string
	Lines              []coupon.LineDiscount
	TotalDiscount      money.Money
	DiscountedItems    int
	NonDiscountedItems int
}

func failure(c *coupon.Coupon, rej *coupon.Rejection, currency string) *Result {
	return &Result{
		Coupon:   c,
		Discount: money.Zero(currency),
		Reason:   rej.Reason,
		Message:  rej.Message,
	}
}
