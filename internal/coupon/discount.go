package coupon

import (
	"fmt"
	"slices"

	"github.com/go-faster/errors"

	"github.com/promostack/coupon-engine/internal/money"
)

// ItemEligible reports whether the coupon's targeting and exclusion rules
// permit the item to be discounted.
func ItemEligible(c *Coupon, it Item) bool {
	if c.Scope == ScopeSpecificItems {
		if !slices.Contains(c.IncludedProductIDs, it.ProductID) {
			return false
		}
	}
	if len(c.IncludedCategories) > 0 && !slices.Contains(c.IncludedCategories, it.Category) {
		return false
	}
	if c.ExcludeSaleItems && it.OnSale {
		return false
	}
	if c.ExcludeGiftCards && it.GiftCard {
		return false
	}
	return true
}

// EligibleItems filters the cart items down to those the coupon may discount,
// preserving order.
func EligibleItems(c *Coupon, items []Item) []Item {
	eligible := make([]Item, 0, len(items))
	for _, it := range items {
		if ItemEligible(c, it) {
			eligible = append(eligible, it)
		}
	}
	return eligible
}

// scopeUsesItems reports whether the eligible-item set contributes to the
// discount base for the given scope.
func scopeUsesItems(s Scope) bool {
	switch s {
	case ScopeShippingOnly, ScopeTaxesOnly:
		return false
	default:
		return true
	}
}

// Calculate computes the aggregate discount for a validated coupon against
// the cart. It returns the discount amount, the eligible items (empty when
// the scope ignores items), and a rejection when filtering leaves nothing to
// discount. A computed zero on a non-empty eligible set is a success: zero-
// percent coupons are allowed as an eligibility preview.
//
// An error indicates bad coupon data (unknown type or broken invariant),
// which is a fault rather than a business rejection.
func Calculate(c *Coupon, cart Cart) (money.Money, []Item, *Rejection, error) {
	if err := c.CheckInvariants(); err != nil {
		return money.Money{}, nil, nil, err
	}

	eligible := EligibleItems(c, cart.Items)

	// Shipping and tax scopes, and free-shipping coupons, discount amounts
	// that exist regardless of which items qualify.
	itemsMatter := scopeUsesItems(c.Scope) && c.Type != TypeFreeShipping
	if itemsMatter && len(eligible) == 0 {
		return money.Money{}, nil, reject(ReasonNoEligibleItems,
			fmt.Sprintf("no items in this order qualify for coupon %s", c.Code)), nil
	}

	base := discountBase(c.Scope, eligible, cart)

	var raw money.Money
	switch c.Type {
	case TypePercentage:
		raw = base.Mul(c.Value)
	case TypeFixedAmount:
		raw = money.Min(money.New(c.Value, cart.Currency), base)
	case TypeFreeShipping:
		raw = cart.Shipping
	case TypeBuyXGetY, TypeSpendXSaveY, TypeGiftWithPurchase:
		return money.Money{}, nil, nil, errors.Errorf("coupon type %q is reserved and not yet supported", c.Type)
	default:
		return money.Money{}, nil, nil, errors.Errorf("unknown coupon type %q", c.Type)
	}

	raw = raw.FloorZero()

	if c.MaximumDiscount != nil {
		raw = money.Min(raw, *c.MaximumDiscount)
	}

	if !itemsMatter {
		eligible = nil
	}
	return raw, eligible, nil, nil
}

// discountBase computes the monetary base the discount applies to.
func discountBase(scope Scope, eligible []Item, cart Cart) money.Money {
	sum := money.Zero(cart.Currency)
	for _, it := range eligible {
		sum = sum.Add(it.TotalPrice())
	}

	switch scope {
	case ScopeOrderTotal:
		return sum.Add(cart.Shipping).Add(cart.Tax)
	case ScopeShippingOnly:
		return cart.Shipping
	case ScopeTaxesOnly:
		return cart.Tax
	case ScopeMerchandiseAndShipping:
		return sum.Add(cart.Shipping)
	default:
		// MerchandiseOnly and SpecificItems: eligible merchandise only.
		return sum
	}
}
