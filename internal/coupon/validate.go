package coupon

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-faster/errors"
)

// Checker runs the eligibility validation chain for a coupon against a cart.
// Checks execute in a fixed order and the first failing check wins; no
// aggregation of multiple failures is attempted. Errors returned alongside a
// nil rejection are infrastructure failures from the repository or the
// eligibility service and must propagate to the caller.
type Checker struct {
	repo      Repository
	customers EligibilityService
	now       func() time.Time
}

// NewChecker creates a Checker backed by the given collaborators.
func NewChecker(repo Repository, customers EligibilityService) *Checker {
	return &Checker{repo: repo, customers: customers, now: time.Now}
}

// Check validates the coupon against the cart and customer. A nil rejection
// means the coupon passed every check. The chain order is part of the
// contract: callers rely on which reason surfaces when several constraints
// are violated at once.
func (k *Checker) Check(ctx context.Context, c *Coupon, cart Cart, customerID string) (*Rejection, error) {
	// 1. Active flag.
	if !c.Active {
		return reject(ReasonInactive, fmt.Sprintf("coupon %s is not active", c.Code)), nil
	}

	// 2. Schedule window.
	now := k.now()
	if now.Before(c.StartsAt) {
		return reject(ReasonNotYetActive,
			fmt.Sprintf("coupon %s is not valid until %s", c.Code, c.StartsAt.Format(time.DateOnly))), nil
	}
	if now.After(c.EndsAt) {
		return reject(ReasonExpired,
			fmt.Sprintf("coupon %s expired on %s", c.Code, c.EndsAt.Format(time.DateOnly))), nil
	}

	// 3. Currency. Fixed amounts are denominated in a single currency; the
	// allow-list applies to every type.
	if c.Type == TypeFixedAmount && c.Currency != cart.Currency {
		return reject(ReasonCurrencyMismatch,
			fmt.Sprintf("coupon %s is denominated in %s, order is in %s", c.Code, c.Currency, cart.Currency)), nil
	}
	if len(c.AllowedCurrencies) > 0 && !slices.Contains(c.AllowedCurrencies, cart.Currency) {
		return reject(ReasonCurrencyMismatch,
			fmt.Sprintf("coupon %s cannot be used with currency %s", c.Code, cart.Currency)), nil
	}

	// 4. Minimum order amount. The message states the exact shortfall.
	if c.MinimumOrder != nil && cart.Subtotal.LessThan(*c.MinimumOrder) {
		shortfall := c.MinimumOrder.Sub(cart.Subtotal)
		return reject(ReasonBelowMinimum,
			fmt.Sprintf("order subtotal is %s short of the %s minimum", shortfall, *c.MinimumOrder)), nil
	}

	// 5. Global usage limit.
	if c.GlobalUsageLimit > 0 {
		used, err := k.repo.GlobalUsageCount(ctx, c.ID)
		if err != nil {
			return nil, errors.Wrap(err, "global usage count")
		}
		if used >= c.GlobalUsageLimit {
			return reject(ReasonGlobalLimitReached,
				fmt.Sprintf("coupon %s has reached its usage limit", c.Code)), nil
		}
	}

	// 6. Per-customer usage limit.
	if c.PerCustomerLimit > 0 {
		used, err := k.repo.CustomerUsageCount(ctx, c.ID, customerID)
		if err != nil {
			return nil, errors.Wrap(err, "customer usage count")
		}
		if used >= c.PerCustomerLimit {
			return reject(ReasonCustomerLimit,
				fmt.Sprintf("you have already used coupon %s the maximum number of times", c.Code)), nil
		}
	}

	// 7. Single-use codes.
	if c.SingleUse {
		used, err := k.repo.IsUniqueCodeUsed(ctx, c.Code)
		if err != nil {
			return nil, errors.Wrap(err, "unique code lookup")
		}
		if used {
			return reject(ReasonAlreadyUsed,
				fmt.Sprintf("coupon %s has already been redeemed", c.Code)), nil
		}
	}

	// 8. Customer eligibility.
	if c.RequireFirstOrder {
		first, err := k.customers.IsFirstOrder(ctx, customerID)
		if err != nil {
			return nil, errors.Wrap(err, "first order check")
		}
		if !first {
			return reject(ReasonCustomerNotEligible,
				fmt.Sprintf("coupon %s is only valid on your first order", c.Code)), nil
		}
	}
	if len(c.AllowedGroups) > 0 {
		member, err := k.customers.IsInAllowedGroups(ctx, customerID, c.AllowedGroups)
		if err != nil {
			return nil, errors.Wrap(err, "group membership check")
		}
		if !member {
			return reject(ReasonCustomerNotEligible,
				fmt.Sprintf("coupon %s is not available for your account", c.Code)), nil
		}
	}

	// 9. Geography.
	if len(c.AllowedCountries) > 0 && !slices.Contains(c.AllowedCountries, cart.Country) {
		return reject(ReasonCustomerNotEligible,
			fmt.Sprintf("coupon %s is not available in %s", c.Code, cart.Country)), nil
	}

	// 10. Combinability, deliberately last in the chain.
	if cart.AppliedCoupons > 0 && (!c.Combinable || cart.HasNonCombinable) {
		return reject(ReasonCannotCombine,
			fmt.Sprintf("coupon %s cannot be combined with other coupons", c.Code)), nil
	}

	return nil, nil
}
