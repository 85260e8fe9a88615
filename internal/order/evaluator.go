package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/promostack/coupon-engine/internal/coupon"
	"github.com/promostack/coupon-engine/internal/money"
)

// Argument contract violations. These are programming errors and are
// returned as faults, never as rejection results.
var (
	ErrNilOrder        = errors.New("order is required")
	ErrEmptyCode       = errors.New("coupon code is required")
	ErrEmptyCustomerID = errors.New("customer id is required")
)

// Evaluator sequences coupon validation, discount calculation, line
// allocation, and order mutation. It holds no per-order state; every
// operation is a single synchronous step over the order it is given.
type Evaluator struct {
	coupons coupon.Repository
	checker *coupon.Checker
	now     func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given repository and
// customer eligibility service.
func NewEvaluator(repo coupon.Repository, customers coupon.EligibilityService) *Evaluator {
	return &Evaluator{
		coupons: repo,
		checker: coupon.NewChecker(repo, customers),
		now:     time.Now,
	}
}

// ApplyCoupon validates the coded coupon against the order and, on success,
// appends it to the order's applied coupons and records the usage. On any
// business rejection the order is left untouched and the rejection is
// returned in the result. Infrastructure failures return an error with the
// order untouched.
func (e *Evaluator) ApplyCoupon(ctx context.Context, o *Order, rawCode, customerID string) (*Result, error) {
	if err := checkArgs(o, rawCode, customerID); err != nil {
		return nil, err
	}

	c, rej, err := e.resolve(ctx, rawCode)
	if err != nil {
		return nil, err
	}
	if rej != nil {
		return failure(nil, rej, o.Currency), nil
	}

	rej, err = e.checker.Check(ctx, c, o.cart(), customerID)
	if err != nil {
		return nil, errors.Wrapf(err, "validate coupon %s", c.Code)
	}
	if rej != nil {
		return failure(c, rej, o.Currency), nil
	}

	discount, eligible, rej, err := coupon.Calculate(c, o.cart())
	if err != nil {
		return nil, errors.Wrapf(err, "calculate discount for coupon %s", c.Code)
	}
	if rej != nil {
		return failure(c, rej, o.Currency), nil
	}

	lines := coupon.Allocate(eligible, discount)

	o.Applied = append(o.Applied, AppliedCoupon{
		Coupon:    c,
		Discount:  discount,
		AppliedAt: e.now(),
	})

	if err := e.coupons.RecordUsage(ctx, c.ID, customerID, o.ID); err != nil {
		// Roll the mutation back so a storage failure leaves the order clean.
		o.removeApplied(o.findApplied(c.ID))
		return nil, errors.Wrapf(err, "record usage for coupon %s", c.Code)
	}

	totals := e.GetOrderTotals(o)
	return &Result{
		Success:  true,
		Coupon:   c,
		Discount: discount,
		Message:  fmt.Sprintf("coupon %s applied: you saved %s", c.Code, discount),
		Totals:   &totals,
		Lines:    lines,
	}, nil
}

// ValidateCoupon runs the same checks as ApplyCoupon but never mutates the
// order, never allocates line discounts, and never records usage. A success
// result reports a zero discount: it answers "would this apply", not "how
// much would it save".
func (e *Evaluator) ValidateCoupon(ctx context.Context, o *Order, rawCode, customerID string) (*Result, error) {
	if err := checkArgs(o, rawCode, customerID); err != nil {
		return nil, err
	}

	c, rej, err := e.resolve(ctx, rawCode)
	if err != nil {
		return nil, err
	}
	if rej != nil {
		return failure(nil, rej, o.Currency), nil
	}

	rej, err = e.checker.Check(ctx, c, o.cart(), customerID)
	if err != nil {
		return nil, errors.Wrapf(err, "validate coupon %s", c.Code)
	}
	if rej != nil {
		return failure(c, rej, o.Currency), nil
	}

	if _, _, rej, err = coupon.Calculate(c, o.cart()); err != nil {
		return nil, errors.Wrapf(err, "calculate discount for coupon %s", c.Code)
	}
	if rej != nil {
		return failure(c, rej, o.Currency), nil
	}

	return &Result{
		Success:  true,
		Coupon:   c,
		Discount: money.Zero(o.Currency),
		Message:  fmt.Sprintf("coupon %s can be applied to this order", c.Code),
	}, nil
}

// RemoveCoupon removes the applied coupon with the given id and returns the
// reverted totals. When no applied coupon matches, a NotFound failure result
// is returned and the order is untouched.
func (e *Evaluator) RemoveCoupon(ctx context.Context, o *Order, couponID string) (*Result, error) {
	if o == nil {
		return nil, ErrNilOrder
	}
	if couponID == "" {
		return nil, errors.New("coupon id is required")
	}

	i := o.findApplied(couponID)
	if i < 0 {
		return failure(nil, &coupon.Rejection{
			Reason:  coupon.ReasonNotFound,
			Message: fmt.Sprintf("no coupon with id %s is applied to this order", couponID),
		}, o.Currency), nil
	}

	removed := o.removeApplied(i)
	totals := e.GetOrderTotals(o)
	return &Result{
		Success:  true,
		Coupon:   removed.Coupon,
		Discount: removed.Discount,
		Message:  fmt.Sprintf("coupon %s removed from the order", removed.Coupon.Code),
		Totals:   &totals,
	}, nil
}

// ReplaceCoupon swaps an applied coupon for a new code as a compensating
// two-step sequence: remove the existing coupon, then attempt to apply the
// new one. If the new coupon is rejected, the original applied coupon is
// re-inserted with its original discount so the order ends exactly in its
// starting state, and the failure result wraps the new coupon's rejection.
func (e *Evaluator) ReplaceCoupon(ctx context.Context, o *Order, existingCouponID, newCode, customerID string) (*Result, error) {
	if err := checkArgs(o, newCode, customerID); err != nil {
		return nil, err
	}
	if existingCouponID == "" {
		return nil, errors.New("existing coupon id is required")
	}

	i := o.findApplied(existingCouponID)
	if i < 0 {
		return failure(nil, &coupon.Rejection{
			Reason:  coupon.ReasonNotFound,
			Message: fmt.Sprintf("no coupon with id %s is applied to this order", existingCouponID),
		}, o.Currency), nil
	}

	snapshot := o.removeApplied(i)

	applied, err := e.ApplyCoupon(ctx, o, newCode, customerID)
	if err != nil {
		o.Applied = append(o.Applied, snapshot)
		return nil, err
	}
	if !applied.Success {
		o.Applied = append(o.Applied, snapshot)
		return failure(applied.Coupon, &coupon.Rejection{
			Reason: coupon.ReasonReplacementFailed,
			Message: fmt.Sprintf("could not replace coupon %s: %s",
				snapshot.Coupon.Code, applied.Message),
		}, o.Currency), nil
	}

	totals := e.GetOrderTotals(o)
	applied.Totals = &totals
	applied.Message = fmt.Sprintf("coupon %s replaced with %s",
		snapshot.Coupon.Code, applied.Coupon.Code)
	return applied, nil
}

// GetOrderTotals projects the order's derived totals. Pure, no mutation.
func (e *Evaluator) GetOrderTotals(o *Order) Totals {
	return Totals{
		Currency: o.Currency,
		Subtotal: o.Subtotal(),
		Shipping: o.Shipping,
		Tax:      o.Tax,
		Discount: o.TotalDiscount(),
		Total:    o.Total(),
	}
}

// GetDiscountBreakdown re-derives per-line discounts for every currently
// applied coupon. The breakdown is empty when no coupons are applied.
func (e *Evaluator) GetDiscountBreakdown(o *Order) (*Breakdown, error) {
	if o == nil {
		return nil, ErrNilOrder
	}

	b := &Breakdown{
		Currency:      o.Currency,
		TotalDiscount: money.Zero(o.Currency),
	}

	discounted := make(map[string]struct{})
	cart := o.cart()
	for _, ac := range o.Applied {
		_, eligible, rej, err := coupon.Calculate(ac.Coupon, cart)
		if err != nil {
			return nil, errors.Wrapf(err, "breakdown for coupon %s", ac.Coupon.Code)
		}
		if rej != nil {
			// The coupon applied cleanly earlier; a rejection here means the
			// order has since lost every eligible item. Skip it in the view.
			continue
		}

		lines := coupon.Allocate(eligible, ac.Discount)
		for _, ln := range lines {
			discounted[ln.Item.ID] = struct{}{}
		}
		b.Lines = append(b.Lines, lines...)
		b.TotalDiscount = b.TotalDiscount.Add(ac.Discount)
	}

	b.DiscountedItems = len(discounted)
	b.NonDiscountedItems = len(o.Items) - len(discounted)
	return b, nil
}

// GetEligibleItems returns the order items the coded coupon may discount.
// An unknown or malformed code yields an empty slice, not an error.
func (e *Evaluator) GetEligibleItems(ctx context.Context, o *Order, rawCode string) ([]Item, error) {
	if o == nil {
		return nil, ErrNilOrder
	}

	code, err := coupon.ParseCode(rawCode)
	if err != nil {
		return nil, nil
	}

	c, err := e.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "find coupon %s", code)
	}

	var eligible []Item
	for _, it := range o.Items {
		if coupon.ItemEligible(c, couponItem(it)) {
			eligible = append(eligible, it)
		}
	}
	return eligible, nil
}

// resolve normalizes the raw code and looks the coupon up. A malformed code
// or a miss is a business rejection; repository failures are errors.
func (e *Evaluator) resolve(ctx context.Context, rawCode string) (*coupon.Coupon, *coupon.Rejection, error) {
	code, err := coupon.ParseCode(rawCode)
	if err != nil {
		return nil, &coupon.Rejection{
			Reason:  coupon.ReasonInvalidFormat,
			Message: err.Error(),
		}, nil
	}

	c, err := e.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) {
			return nil, &coupon.Rejection{
				Reason:  coupon.ReasonNotFound,
				Message: fmt.Sprintf("coupon %s does not exist", code),
			}, nil
		}
		return nil, nil, errors.Wrapf(err, "find coupon %s", code)
	}
	return c, nil, nil
}

func checkArgs(o *Order, rawCode, customerID string) error {
	if o == nil {
		return ErrNilOrder
	}
	if rawCode == "" {
		return ErrEmptyCode
	}
	if customerID == "" {
		return ErrEmptyCustomerID
	}
	return nil
}
