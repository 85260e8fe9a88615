// Package coupon implements promotional discount rules: the coupon entity,
// the ordered eligibility validation chain, discount calculation per scope,
// and proportional allocation of an aggregate discount across line items.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/promostack/coupon-engine/internal/money"
)

// Type enumerates the supported discount strategies.
type Type string

const (
	// TypePercentage discounts the eligible base by a fraction in [0,1].
	TypePercentage Type = "percentage"
	// TypeFixedAmount subtracts a fixed monetary amount, capped at the base.
	TypeFixedAmount Type = "fixed_amount"
	// TypeFreeShipping waives the order's full shipping amount.
	TypeFreeShipping Type = "free_shipping"

	// Reserved for future promotion kinds. Calculation rejects them as
	// unsupported until implemented.
	TypeBuyXGetY         Type = "buy_x_get_y"
	TypeSpendXSaveY      Type = "spend_x_save_y"
	TypeGiftWithPurchase Type = "gift_with_purchase"
)

// Scope selects which monetary components of an order the discount is
// computed against.
type Scope string

const (
	// ScopeMerchandiseOnly is the default: eligible items only.
	ScopeMerchandiseOnly Scope = "merchandise"
	// ScopeOrderTotal covers eligible items plus shipping and tax.
	ScopeOrderTotal Scope = "order_total"
	// ScopeShippingOnly covers the shipping amount alone.
	ScopeShippingOnly Scope = "shipping"
	// ScopeTaxesOnly covers the tax amount alone.
	ScopeTaxesOnly Scope = "taxes"
	// ScopeMerchandiseAndShipping covers eligible items plus shipping.
	ScopeMerchandiseAndShipping Scope = "merchandise_shipping"
	// ScopeSpecificItems restricts the discount to listed product IDs.
	ScopeSpecificItems Scope = "specific_items"
)

// Coupon describes a promotion's discount rule and eligibility constraints.
// Value is a fraction in [0,1] for percentage coupons and a monetary amount
// for fixed-amount coupons.
type Coupon struct {
	ID       string
	Code     Code
	Name     string
	Type     Type
	Value    decimal.Decimal
	Currency string

	StartsAt time.Time
	EndsAt   time.Time
	Active   bool

	// Usage limits. Zero means unlimited.
	GlobalUsageLimit int
	PerCustomerLimit int
	// SingleUse marks codes that may be redeemed exactly once across all
	// customers (bulk-generated unique codes).
	SingleUse bool

	MinimumOrder    *money.Money
	MaximumDiscount *money.Money
	Combinable      bool

	Scope              Scope
	IncludedCategories []string
	IncludedProductIDs []string
	ExcludeSaleItems   bool
	ExcludeGiftCards   bool

	RequireFirstOrder bool
	AllowedGroups     []string
	AllowedCountries  []string
	AllowedCurrencies []string
}

// CheckInvariants verifies the structural invariants of the coupon itself.
// A violation indicates bad data in the repository, not a business rejection.
func (c *Coupon) CheckInvariants() error {
	switch c.Type {
	case TypePercentage:
		if c.Value.IsNegative() || c.Value.GreaterThan(decimal.NewFromInt(1)) {
			return errors.Errorf("coupon %s: percentage value %s outside [0,1]", c.ID, c.Value)
		}
	case TypeFixedAmount:
		if !c.Value.IsPositive() {
			return errors.Errorf("coupon %s: fixed amount %s must be positive", c.ID, c.Value)
		}
	}
	return nil
}

// Item is a line item snapshot used for eligibility filtering and discount
// calculation.
type Item struct {
	ID        string
	ProductID string
	Name      string
	SKU       string
	Quantity  int
	UnitPrice money.Money
	Category  string
	Brand     string
	OnSale    bool
	GiftCard  bool
}

// TotalPrice returns UnitPrice * Quantity.
func (it Item) TotalPrice() money.Money {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Cart is a read-only snapshot of the order state the validation chain and
// the calculator consume. Building one is the order aggregate's job.
type Cart struct {
	Currency string
	Country  string
	Subtotal money.Money
	Shipping money.Money
	Tax      money.Money
	Items    []Item

	// AppliedCoupons is the number of coupons already on the order;
	// HasNonCombinable is true when any of them is non-combinable.
	AppliedCoupons   int
	HasNonCombinable bool
}

// ErrNotFound is returned by repositories when no coupon matches.
var ErrNotFound = errors.New("coupon not found")

// Repository provides coupon lookup and usage accounting. Code lookups are
// case-insensitive and whitespace-trimmed by contract; implementations
// receive already-normalized codes.
type Repository interface {
	FindByCode(ctx context.Context, code Code) (*Coupon, error)
	FindByID(ctx context.Context, id string) (*Coupon, error)
	ListActive(ctx context.Context) ([]Coupon, error)
	GlobalUsageCount(ctx context.Context, couponID string) (int, error)
	CustomerUsageCount(ctx context.Context, couponID, customerID string) (int, error)
	RecordUsage(ctx context.Context, couponID, customerID, orderID string) error
	IsUniqueCodeUsed(ctx context.Context, code Code) (bool, error)
}

// EligibilityService answers customer-level eligibility questions.
type EligibilityService interface {
	IsFirstOrder(ctx context.Context, customerID string) (bool, error)
	IsInAllowedGroups(ctx context.Context, customerID string, groups []string) (bool, error)
}
