package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/promostack/coupon-engine/internal/order"
)

const createOrderSQL = `INSERT INTO orders
	(id, customer_id, currency, country, items, subtotal, shipping, tax, discount, total, coupon_codes)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

// OrderStore persists completed orders. Saved rows also drive the
// first-order eligibility check.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// storedItem is the JSON shape of one persisted order line.
type storedItem struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	SKU       string `json:"sku,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Category  string `json:"category,omitempty"`
}

// Create persists a completed order with its derived totals. Items are
// serialized to JSON for the JSONB column.
func (s *OrderStore) Create(ctx context.Context, o *order.Order) error {
	items := make([]storedItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = storedItem{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      it.ProductName,
			SKU:       it.SKU,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.Amount().String(),
			Category:  it.Category,
		}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	codes := make([]string, len(o.Applied))
	for i, ac := range o.Applied {
		codes[i] = ac.Coupon.Code.String()
	}

	_, err = s.pool.Exec(ctx, createOrderSQL,
		o.ID, o.CustomerID, o.Currency, o.Country, itemsJSON,
		o.Subtotal().Amount(), o.Shipping.Amount(), o.Tax.Amount(),
		o.TotalDiscount().Amount(), o.Total().Amount(), codes,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}
