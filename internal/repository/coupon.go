package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/promostack/coupon-engine/internal/coupon"
	"github.com/promostack/coupon-engine/internal/money"
)

const couponColumns = `id, code, name, type, value, currency,
	starts_at, ends_at, active, global_usage_limit, per_customer_limit,
	single_use, minimum_order, maximum_discount, combinable, scope,
	included_categories, included_product_ids, exclude_sale_items,
	exclude_gift_cards, require_first_order, allowed_groups,
	allowed_countries, allowed_currencies`

const (
	getCouponByCodeSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	getCouponByIDSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE id = $1`

	listActiveCouponsSQL = `SELECT ` + couponColumns + `
		FROM coupons WHERE active = TRUE ORDER BY code`

	globalUsageCountSQL = `SELECT COUNT(*) FROM coupon_usages WHERE coupon_id = $1`

	customerUsageCountSQL = `SELECT COUNT(*) FROM coupon_usages
		WHERE coupon_id = $1 AND customer_id = $2`

	recordUsageSQL = `INSERT INTO coupon_usages (coupon_id, customer_id, order_id)
		VALUES ($1, $2, $3)`

	isUniqueCodeUsedSQL = `SELECT EXISTS (
		SELECT 1 FROM coupon_usages u
		JOIN coupons c ON c.id = u.coupon_id
		WHERE UPPER(c.code) = UPPER($1))`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
// Usage counters derive from the coupon_usages ledger, so concurrent
// RecordUsage calls never lose increments.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code (case-insensitive).
// Returns coupon.ErrNotFound when no matching coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code coupon.Code) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code.String())
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// FindByID looks up a coupon by its id.
// Returns coupon.ErrNotFound when no matching coupon exists.
func (r *CouponRepository) FindByID(ctx context.Context, id string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", id, err)
	}
	return &c, nil
}

// ListActive returns all coupons with the active flag set.
func (r *CouponRepository) ListActive(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listActiveCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing active coupons: %w", err)
	}

	coupons, err := pgx.CollectRows(rows, scanCoupon)
	if err != nil {
		return nil, fmt.Errorf("listing active coupons: %w", err)
	}
	return coupons, nil
}

// GlobalUsageCount counts all recorded uses of the coupon.
func (r *CouponRepository) GlobalUsageCount(ctx context.Context, couponID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, globalUsageCountSQL, couponID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting usage for coupon %q: %w", couponID, err)
	}
	return n, nil
}

// CustomerUsageCount counts one customer's recorded uses of the coupon.
func (r *CouponRepository) CustomerUsageCount(ctx context.Context, couponID, customerID string) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, customerUsageCountSQL, couponID, customerID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting customer usage for coupon %q: %w", couponID, err)
	}
	return n, nil
}

// RecordUsage appends a usage row for the coupon.
func (r *CouponRepository) RecordUsage(ctx context.Context, couponID, customerID, orderID string) error {
	if _, err := r.pool.Exec(ctx, recordUsageSQL, couponID, customerID, orderID); err != nil {
		return fmt.Errorf("recording usage for coupon %q: %w", couponID, err)
	}
	return nil
}

// IsUniqueCodeUsed reports whether the code has any recorded usage.
func (r *CouponRepository) IsUniqueCodeUsed(ctx context.Context, code coupon.Code) (bool, error) {
	var used bool
	if err := r.pool.QueryRow(ctx, isUniqueCodeUsedSQL, code.String()).Scan(&used); err != nil {
		return false, fmt.Errorf("checking unique code %q: %w", code, err)
	}
	return used, nil
}

// scanCoupon maps a coupons row to the domain entity. Optional NUMERIC
// columns arrive as NullDecimal and convert to Money in the coupon's
// currency.
func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c           coupon.Coupon
		code        string
		minOrder    decimal.NullDecimal
		maxDiscount decimal.NullDecimal
	)

	err := row.Scan(
		&c.ID, &code, &c.Name, &c.Type, &c.Value, &c.Currency,
		&c.StartsAt, &c.EndsAt, &c.Active, &c.GlobalUsageLimit, &c.PerCustomerLimit,
		&c.SingleUse, &minOrder, &maxDiscount, &c.Combinable, &c.Scope,
		&c.IncludedCategories, &c.IncludedProductIDs, &c.ExcludeSaleItems,
		&c.ExcludeGiftCards, &c.RequireFirstOrder, &c.AllowedGroups,
		&c.AllowedCountries, &c.AllowedCurrencies,
	)
	if err != nil {
		return coupon.Coupon{}, err
	}

	c.Code = coupon.Code(code)
	if minOrder.Valid {
		m := money.New(minOrder.Decimal, c.Currency)
		c.MinimumOrder = &m
	}
	if maxDiscount.Valid {
		m := money.New(maxDiscount.Decimal, c.Currency)
		c.MaximumDiscount = &m
	}
	return c, nil
}
