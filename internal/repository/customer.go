package repository

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promostack/coupon-engine/internal/coupon"
)

const (
	customerOrderCountSQL = `SELECT COUNT(*) FROM orders WHERE customer_id = $1`

	customerInGroupsSQL = `SELECT EXISTS (
		SELECT 1 FROM customer_groups
		WHERE customer_id = $1 AND group_name = ANY($2))`
)

var _ coupon.EligibilityService = (*CustomerEligibility)(nil)

// CustomerEligibility answers customer eligibility questions from the orders
// and customer_groups tables.
type CustomerEligibility struct {
	pool *pgxpool.Pool
}

// NewCustomerEligibility returns a CustomerEligibility that uses the given pool.
func NewCustomerEligibility(pool *pgxpool.Pool) *CustomerEligibility {
	return &CustomerEligibility{pool: pool}
}

// IsFirstOrder reports whether the customer has no completed orders.
func (s *CustomerEligibility) IsFirstOrder(ctx context.Context, customerID string) (bool, error) {
	var n int
	if err := s.pool.QueryRow(ctx, customerOrderCountSQL, customerID).Scan(&n); err != nil {
		return false, errors.Wrapf(err, "count orders for customer %q", customerID)
	}
	return n == 0, nil
}

// IsInAllowedGroups reports whether the customer belongs to any of the groups.
func (s *CustomerEligibility) IsInAllowedGroups(ctx context.Context, customerID string, groups []string) (bool, error) {
	var member bool
	if err := s.pool.QueryRow(ctx, customerInGroupsSQL, customerID, groups).Scan(&member); err != nil {
		return false, errors.Wrapf(err, "check groups for customer %q", customerID)
	}
	return member, nil
}
