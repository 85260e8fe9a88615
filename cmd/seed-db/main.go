// Command seed-db loads demo coupons, customer groups, and a default API key
// into PostgreSQL. It is intended for local development and integration tests.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/promostack/coupon-engine/internal/api"
	"github.com/promostack/coupon-engine/internal/repository"
)

type couponSeed struct {
	ID              string          `json:"id"`
	Code            string          `json:"code"`
	Name            string          `json:"name"`
	Type            string          `json:"type"`
	Value           decimal.Decimal `json:"value"`
	Currency        string          `json:"currency"`
	StartsAt        time.Time       `json:"startsAt"`
	EndsAt          time.Time       `json:"endsAt"`
	Active          bool            `json:"active"`
	SingleUse       bool            `json:"singleUse"`
	MinimumOrder    *string         `json:"minimumOrder"`
	MaximumDiscount *string         `json:"maximumDiscount"`
	Combinable      bool            `json:"combinable"`
	Scope           string          `json:"scope"`
}

const upsertCouponSQL = `INSERT INTO coupons (
		id, code, name, type, value, currency, starts_at, ends_at, active,
		single_use, minimum_order, maximum_discount, combinable, scope
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (id) DO UPDATE SET
		code = EXCLUDED.code, name = EXCLUDED.name, type = EXCLUDED.type,
		value = EXCLUDED.value, currency = EXCLUDED.currency,
		starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at,
		active = EXCLUDED.active, single_use = EXCLUDED.single_use,
		minimum_order = EXCLUDED.minimum_order,
		maximum_discount = EXCLUDED.maximum_discount,
		combinable = EXCLUDED.combinable, scope = EXCLUDED.scope`

const upsertAPIKeySQL = `INSERT INTO api_keys (id, key_hash, name, scopes, active)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id) DO UPDATE SET
		key_hash = EXCLUDED.key_hash, name = EXCLUDED.name,
		scopes = EXCLUDED.scopes, active = EXCLUDED.active`

const upsertGroupSQL = `INSERT INTO customer_groups (customer_id, group_name)
	VALUES ($1, $2) ON CONFLICT DO NOTHING`

func main() {
	var (
		databaseURL  string
		couponsFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&couponsFile, "coupons-file", "db/seed/coupons.json", "path to coupons JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or PROMO_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or PROMO_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("PROMO_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or PROMO_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("PROMO_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, couponsFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, couponsFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedCoupons(ctx, pool, couponsFile); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedGroups(ctx, pool); err != nil {
		return errors.Wrap(err, "seed customer groups")
	}

	if err := seedAPIKey(ctx, pool, apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool, couponsFile string) error {
	slog.Info("reading coupons file", slog.String("path", couponsFile))

	data, err := os.ReadFile(couponsFile)
	if err != nil {
		return errors.Wrap(err, "read coupons file")
	}

	var coupons []couponSeed
	if err := json.Unmarshal(data, &coupons); err != nil {
		return errors.Wrap(err, "parse coupons JSON")
	}

	slog.Info("upserting coupons", slog.Int("count", len(coupons)))

	for _, c := range coupons {
		minOrder, err := parseNullDecimal(c.MinimumOrder)
		if err != nil {
			return errors.Wrapf(err, "parse minimum order for %s", c.Code)
		}
		maxDiscount, err := parseNullDecimal(c.MaximumDiscount)
		if err != nil {
			return errors.Wrapf(err, "parse maximum discount for %s", c.Code)
		}

		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.ID, c.Code, c.Name, c.Type, c.Value, c.Currency,
			c.StartsAt, c.EndsAt, c.Active, c.SingleUse,
			minOrder, maxDiscount, c.Combinable, c.Scope,
		); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.Code)
		}

		slog.Info("upserted coupon", slog.String("code", c.Code), slog.String("name", c.Name))
	}

	return nil
}

func parseNullDecimal(s *string) (decimal.NullDecimal, error) {
	if s == nil {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func seedGroups(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo customer groups")

	groups := []struct{ customer, group string }{
		{"demo-vip", "vip"},
		{"demo-staff", "employees"},
	}
	for _, g := range groups {
		if _, err := pool.Exec(ctx, upsertGroupSQL, g.customer, g.group); err != nil {
			return errors.Wrapf(err, "upsert group %s/%s", g.customer, g.group)
		}
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	keyHash := api.HashKey([]byte(pepper), apiKey)

	if _, err := pool.Exec(ctx, upsertAPIKeySQL,
		"default", keyHash, "Default test key", []string{"orders:write"}, true,
	); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default test key"))

	return nil
}
