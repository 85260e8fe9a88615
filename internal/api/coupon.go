package api

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/promostack/coupon-engine/internal/coupon"
)

type couponJSON struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Value      string    `json:"value"`
	Currency   string    `json:"currency,omitempty"`
	Scope      string    `json:"scope"`
	Combinable bool      `json:"combinable"`
	StartsAt   time.Time `json:"startsAt"`
	EndsAt     time.Time `json:"endsAt"`
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.ListActive(r.Context())
	if err != nil {
		respondInternal(w, r, errors.Wrap(err, "list active coupons"))
		return
	}

	out := make([]couponJSON, len(coupons))
	for i := range coupons {
		out[i] = encodeCoupon(&coupons[i])
	}
	respondJSON(w, r, http.StatusOK, out)
}

func encodeCoupon(c *coupon.Coupon) couponJSON {
	return couponJSON{
		ID:         c.ID,
		Code:       c.Code.String(),
		Name:       c.Name,
		Type:       string(c.Type),
		Value:      c.Value.String(),
		Currency:   c.Currency,
		Scope:      string(c.Scope),
		Combinable: c.Combinable,
		StartsAt:   c.StartsAt,
		EndsAt:     c.EndsAt,
	}
}
