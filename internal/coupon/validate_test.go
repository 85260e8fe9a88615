package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promostack/coupon-engine/internal/money"
)

// mockRepo implements Repository with canned responses for the usage checks.
type mockRepo struct {
	globalCount   int
	globalErr     error
	customerCount int
	customerErr   error
	uniqueUsed    bool
	uniqueErr     error
}

func (m *mockRepo) FindByCode(context.Context, Code) (*Coupon, error)  { return nil, ErrNotFound }
func (m *mockRepo) FindByID(context.Context, string) (*Coupon, error)  { return nil, ErrNotFound }
func (m *mockRepo) ListActive(context.Context) ([]Coupon, error)       { return nil, nil }
func (m *mockRepo) RecordUsage(context.Context, string, string, string) error { return nil }

func (m *mockRepo) GlobalUsageCount(context.Context, string) (int, error) {
	return m.globalCount, m.globalErr
}

func (m *mockRepo) CustomerUsageCount(context.Context, string, string) (int, error) {
	return m.customerCount, m.customerErr
}

func (m *mockRepo) IsUniqueCodeUsed(context.Context, Code) (bool, error) {
	return m.uniqueUsed, m.uniqueErr
}

// mockEligibility implements EligibilityService.
type mockEligibility struct {
	firstOrder bool
	firstErr   error
	inGroups   bool
	groupsErr  error
}

func (m *mockEligibility) IsFirstOrder(context.Context, string) (bool, error) {
	return m.firstOrder, m.firstErr
}

func (m *mockEligibility) IsInAllowedGroups(context.Context, string, []string) (bool, error) {
	return m.inGroups, m.groupsErr
}

var checkerNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestChecker(repo *mockRepo, elig *mockEligibility) *Checker {
	k := NewChecker(repo, elig)
	k.now = func() time.Time { return checkerNow }
	return k
}

// validCoupon returns a coupon that passes every check against usdCart.
func validCoupon() *Coupon {
	return &Coupon{
		ID:       "c1",
		Code:     "SAVE10",
		Name:     "Save 10%",
		Type:     TypePercentage,
		Value:    decimal.NewFromFloat(0.10),
		Currency: "USD",
		StartsAt: checkerNow.Add(-24 * time.Hour),
		EndsAt:   checkerNow.Add(24 * time.Hour),
		Active:   true,
		Scope:    ScopeMerchandiseOnly,
	}
}

func usdCart() Cart {
	return Cart{
		Currency: "USD",
		Country:  "US",
		Subtotal: money.NewFromFloat(100, "USD"),
		Shipping: money.NewFromFloat(10, "USD"),
		Tax:      money.NewFromFloat(5, "USD"),
		Items: []Item{
			{ID: "i1", ProductID: "p1", Quantity: 2, UnitPrice: money.NewFromFloat(50, "USD")},
		},
	}
}

func TestChecker_Check(t *testing.T) {
	tests := []struct {
		name       string
		coupon     func(*Coupon)
		cart       func(*Cart)
		repo       mockRepo
		elig       mockEligibility
		wantReason RejectionReason
	}{
		{
			name: "valid coupon passes",
		},
		{
			name:       "inactive",
			coupon:     func(c *Coupon) { c.Active = false },
			wantReason: ReasonInactive,
		},
		{
			name:       "not yet active",
			coupon:     func(c *Coupon) { c.StartsAt = checkerNow.Add(time.Hour) },
			wantReason: ReasonNotYetActive,
		},
		{
			name:       "expired",
			coupon:     func(c *Coupon) { c.EndsAt = checkerNow.Add(-time.Hour) },
			wantReason: ReasonExpired,
		},
		{
			name: "fixed amount currency mismatch",
			coupon: func(c *Coupon) {
				c.Type = TypeFixedAmount
				c.Value = decimal.NewFromInt(5)
				c.Currency = "EUR"
			},
			wantReason: ReasonCurrencyMismatch,
		},
		{
			name:       "currency not in allow list",
			coupon:     func(c *Coupon) { c.AllowedCurrencies = []string{"EUR", "GBP"} },
			wantReason: ReasonCurrencyMismatch,
		},
		{
			name: "below minimum",
			coupon: func(c *Coupon) {
				min := money.NewFromFloat(150, "USD")
				c.MinimumOrder = &min
			},
			wantReason: ReasonBelowMinimum,
		},
		{
			name:       "global limit reached",
			coupon:     func(c *Coupon) { c.GlobalUsageLimit = 100 },
			repo:       mockRepo{globalCount: 100},
			wantReason: ReasonGlobalLimitReached,
		},
		{
			name:   "global limit not reached",
			coupon: func(c *Coupon) { c.GlobalUsageLimit = 100 },
			repo:   mockRepo{globalCount: 99},
		},
		{
			name:       "customer limit reached",
			coupon:     func(c *Coupon) { c.PerCustomerLimit = 1 },
			repo:       mockRepo{customerCount: 1},
			wantReason: ReasonCustomerLimit,
		},
		{
			name:       "unique code already redeemed",
			coupon:     func(c *Coupon) { c.SingleUse = true },
			repo:       mockRepo{uniqueUsed: true},
			wantReason: ReasonAlreadyUsed,
		},
		{
			name:       "requires first order, customer is returning",
			coupon:     func(c *Coupon) { c.RequireFirstOrder = true },
			elig:       mockEligibility{firstOrder: false},
			wantReason: ReasonCustomerNotEligible,
		},
		{
			name:   "requires first order, customer qualifies",
			coupon: func(c *Coupon) { c.RequireFirstOrder = true },
			elig:   mockEligibility{firstOrder: true},
		},
		{
			name:       "customer not in allowed groups",
			coupon:     func(c *Coupon) { c.AllowedGroups = []string{"vip"} },
			elig:       mockEligibility{inGroups: false},
			wantReason: ReasonCustomerNotEligible,
		},
		{
			name:       "country not allowed",
			coupon:     func(c *Coupon) { c.AllowedCountries = []string{"CA", "GB"} },
			wantReason: ReasonCustomerNotEligible,
		},
		{
			name:       "non-combinable coupon on order with applied coupon",
			coupon:     func(c *Coupon) { c.Combinable = false },
			cart:       func(ct *Cart) { ct.AppliedCoupons = 1 },
			wantReason: ReasonCannotCombine,
		},
		{
			name:   "combinable coupon joins combinable applied coupon",
			coupon: func(c *Coupon) { c.Combinable = true },
			cart:   func(ct *Cart) { ct.AppliedCoupons = 1 },
		},
		{
			name:       "applied coupon is non-combinable",
			coupon:     func(c *Coupon) { c.Combinable = true },
			cart:       func(ct *Cart) { ct.AppliedCoupons = 1; ct.HasNonCombinable = true },
			wantReason: ReasonCannotCombine,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCoupon()
			if tt.coupon != nil {
				tt.coupon(c)
			}
			cart := usdCart()
			if tt.cart != nil {
				tt.cart(&cart)
			}

			k := newTestChecker(&tt.repo, &tt.elig)
			rej, err := k.Check(context.Background(), c, cart, "cust-1")
			require.NoError(t, err)

			if tt.wantReason == "" {
				assert.Nil(t, rej)
				return
			}
			require.NotNil(t, rej)
			assert.Equal(t, tt.wantReason, rej.Reason)
			assert.NotEmpty(t, rej.Message)
		})
	}
}

func TestChecker_Check_FirstFailureWins(t *testing.T) {
	// Inactive and expired and below minimum at once: the active flag is
	// checked first, so it is the reason that surfaces.
	c := validCoupon()
	c.Active = false
	c.EndsAt = checkerNow.Add(-time.Hour)
	min := money.NewFromFloat(500, "USD")
	c.MinimumOrder = &min

	k := newTestChecker(&mockRepo{}, &mockEligibility{})
	rej, err := k.Check(context.Background(), c, usdCart(), "cust-1")
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Equal(t, ReasonInactive, rej.Reason)
}

func TestChecker_Check_BelowMinimumMessageStatesShortfall(t *testing.T) {
	c := validCoupon()
	min := money.NewFromFloat(150, "USD")
	c.MinimumOrder = &min

	k := newTestChecker(&mockRepo{}, &mockEligibility{})
	rej, err := k.Check(context.Background(), c, usdCart(), "cust-1")
	require.NoError(t, err)
	require.NotNil(t, rej)
	assert.Equal(t, ReasonBelowMinimum, rej.Reason)
	assert.Contains(t, rej.Message, "50.00 USD")
}

func TestChecker_Check_InfrastructureErrorsPropagate(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name   string
		coupon func(*Coupon)
		repo   mockRepo
		elig   mockEligibility
	}{
		{
			name:   "global usage count fails",
			coupon: func(c *Coupon) { c.GlobalUsageLimit = 10 },
			repo:   mockRepo{globalErr: boom},
		},
		{
			name:   "customer usage count fails",
			coupon: func(c *Coupon) { c.PerCustomerLimit = 1 },
			repo:   mockRepo{customerErr: boom},
		},
		{
			name:   "unique code lookup fails",
			coupon: func(c *Coupon) { c.SingleUse = true },
			repo:   mockRepo{uniqueErr: boom},
		},
		{
			name:   "first order check fails",
			coupon: func(c *Coupon) { c.RequireFirstOrder = true },
			elig:   mockEligibility{firstErr: boom},
		},
		{
			name:   "group membership check fails",
			coupon: func(c *Coupon) { c.AllowedGroups = []string{"vip"} },
			elig:   mockEligibility{groupsErr: boom},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCoupon()
			tt.coupon(c)

			k := newTestChecker(&tt.repo, &tt.elig)
			rej, err := k.Check(context.Background(), c, usdCart(), "cust-1")
			require.ErrorIs(t, err, boom)
			assert.Nil(t, rej)
		})
	}
}
