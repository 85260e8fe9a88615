// Package api exposes the coupon evaluator over a JSON HTTP API. All
// business semantics live in the coupon and order packages; handlers only
// decode requests, serialize results, and keep the in-memory order registry.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/promostack/coupon-engine/internal/coupon"
	"github.com/promostack/coupon-engine/internal/money"
	"github.com/promostack/coupon-engine/internal/order"
)

// OrderStore persists checked-out orders.
type OrderStore interface {
	Create(ctx context.Context, o *order.Order) error
}

// Handler serves the promotion API. Orders live in memory until checkout;
// each order carries its own mutex so coupon operations on one order are
// serialized while different orders proceed concurrently.
type Handler struct {
	eval    *order.Evaluator
	coupons coupon.Repository
	store   OrderStore

	mu     sync.RWMutex
	orders map[string]*orderEntry
}

type orderEntry struct {
	mu    sync.Mutex
	order *order.Order
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(eval *order.Evaluator, coupons coupon.Repository, store OrderStore) *Handler {
	return &Handler{
		eval:    eval,
		coupons: coupons,
		store:   store,
		orders:  make(map[string]*orderEntry),
	}
}

// Routes registers all API routes on the given mux under the provided prefix.
func (h *Handler) Routes(prefix string, mux *http.ServeMux) {
	mux.HandleFunc("POST "+prefix+"/orders", h.createOrder)
	mux.HandleFunc("GET "+prefix+"/orders/{id}", h.getOrder)
	mux.HandleFunc("POST "+prefix+"/orders/{id}/checkout", h.checkoutOrder)
	mux.HandleFunc("POST "+prefix+"/orders/{id}/coupons", h.applyCoupon)
	mux.HandleFunc("POST "+prefix+"/orders/{id}/coupons/validate", h.validateCoupon)
	mux.HandleFunc("DELETE "+prefix+"/orders/{id}/coupons/{couponID}", h.removeCoupon)
	mux.HandleFunc("PUT "+prefix+"/orders/{id}/coupons/{couponID}", h.replaceCoupon)
	mux.HandleFunc("GET "+prefix+"/orders/{id}/breakdown", h.getBreakdown)
	mux.HandleFunc("GET "+prefix+"/orders/{id}/eligible-items", h.getEligibleItems)
	mux.HandleFunc("GET "+prefix+"/coupons", h.listCoupons)
}

// entry returns the registry entry for an order id, or nil.
func (h *Handler) entry(id string) *orderEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.orders[id]
}

func (h *Handler) putEntry(o *order.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.orders[o.ID] = &orderEntry{order: o}
}

func (h *Handler) dropEntry(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.orders, id)
}

// errorBody is the uniform JSON error shape.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zctx.From(r.Context()).Error("encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, errorBody{Code: status, Message: message})
}

// respondInternal logs the underlying error and hides it from the client.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed", zap.Error(err))
	respondError(w, r, http.StatusInternalServerError, "internal error")
}

// moneyJSON is the wire shape for monetary amounts.
type moneyJSON struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func encodeMoney(m money.Money) moneyJSON {
	return moneyJSON{
		Amount:   m.Amount().StringFixed(money.Precision(m.Currency())),
		Currency: m.Currency(),
	}
}
