package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/promostack/coupon-engine/internal/coupon"
	"github.com/promostack/coupon-engine/internal/money"
	"github.com/promostack/coupon-engine/internal/order"
)

type orderItemReq struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unitPrice"`
	Category  string `json:"category"`
	Brand     string `json:"brand"`
	OnSale    bool   `json:"onSale"`
	GiftCard  bool   `json:"giftCard"`
}

type createOrderReq struct {
	CustomerID string         `json:"customerId"`
	Currency   string         `json:"currency"`
	Country    string         `json:"country"`
	Shipping   string         `json:"shipping"`
	Tax        string         `json:"tax"`
	Items      []orderItemReq `json:"items"`
}

type totalsJSON struct {
	Subtotal moneyJSON `json:"subtotal"`
	Shipping moneyJSON `json:"shipping"`
	Tax      moneyJSON `json:"tax"`
	Discount moneyJSON `json:"discount"`
	Total    moneyJSON `json:"total"`
}

type lineDiscountJSON struct {
	ItemID        string    `json:"itemId"`
	ProductID     string    `json:"productId"`
	Discount      moneyJSON `json:"discount"`
	OriginalPrice moneyJSON `json:"originalPrice"`
	FinalPrice    moneyJSON `json:"finalPrice"`
}

type couponResultJSON struct {
	Success    bool               `json:"success"`
	CouponCode string             `json:"couponCode,omitempty"`
	CouponID   string             `json:"couponId,omitempty"`
	Discount   moneyJSON          `json:"discount"`
	Reason     string             `json:"reason,omitempty"`
	Message    string             `json:"message"`
	Totals     *totalsJSON        `json:"totals,omitempty"`
	Lines      []lineDiscountJSON `json:"lines,omitempty"`
}

type orderJSON struct {
	ID         string     `json:"id"`
	CustomerID string     `json:"customerId"`
	Currency   string     `json:"currency"`
	Country    string     `json:"country"`
	Totals     totalsJSON `json:"totals"`
	Coupons    []string   `json:"coupons"`
}

func encodeTotals(t order.Totals) totalsJSON {
	return totalsJSON{
		Subtotal: encodeMoney(t.Subtotal),
		Shipping: encodeMoney(t.Shipping),
		Tax:      encodeMoney(t.Tax),
		Discount: encodeMoney(t.Discount),
		Total:    encodeMoney(t.Total),
	}
}

func encodeLines(lines []coupon.LineDiscount) []lineDiscountJSON {
	out := make([]lineDiscountJSON, len(lines))
	for i, ln := range lines {
		out[i] = lineDiscountJSON{
			ItemID:        ln.Item.ID,
			ProductID:     ln.Item.ProductID,
			Discount:      encodeMoney(ln.Discount),
			OriginalPrice: encodeMoney(ln.OriginalPrice),
			FinalPrice:    encodeMoney(ln.FinalPrice),
		}
	}
	return out
}

func (h *Handler) encodeResult(res *order.Result) couponResultJSON {
	out := couponResultJSON{
		Success:  res.Success,
		Discount: encodeMoney(res.Discount),
		Reason:   string(res.Reason),
		Message:  res.Message,
		Lines:    encodeLines(res.Lines),
	}
	if res.Coupon != nil {
		out.CouponCode = res.Coupon.Code.String()
		out.CouponID = res.Coupon.ID
	}
	if res.Totals != nil {
		t := encodeTotals(*res.Totals)
		out.Totals = &t
	}
	return out
}

func (h *Handler) encodeOrder(o *order.Order) orderJSON {
	codes := make([]string, len(o.Applied))
	for i, ac := range o.Applied {
		codes[i] = ac.Coupon.Code.String()
	}
	return orderJSON{
		ID:         o.ID,
		CustomerID: o.CustomerID,
		Currency:   o.Currency,
		Country:    o.Country,
		Totals:     encodeTotals(h.eval.GetOrderTotals(o)),
		Coupons:    codes,
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CustomerID == "" || req.Currency == "" || len(req.Items) == 0 {
		respondError(w, r, http.StatusBadRequest, "customerId, currency and items are required")
		return
	}

	o := &order.Order{
		ID:         uuid.New().String(),
		CustomerID: req.CustomerID,
		Currency:   req.Currency,
		Country:    req.Country,
		Shipping:   money.Zero(req.Currency),
		Tax:        money.Zero(req.Currency),
		CreatedAt:  time.Now(),
	}

	if req.Shipping != "" {
		m, err := money.NewFromString(req.Shipping, req.Currency)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid shipping amount")
			return
		}
		o.Shipping = m
	}
	if req.Tax != "" {
		m, err := money.NewFromString(req.Tax, req.Currency)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid tax amount")
			return
		}
		o.Tax = m
	}

	for _, it := range req.Items {
		if it.Quantity <= 0 {
			respondError(w, r, http.StatusUnprocessableEntity, "quantity must be greater than 0")
			return
		}
		price, err := money.NewFromString(it.UnitPrice, req.Currency)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid unit price")
			return
		}
		o.AddItem(order.Item{
			ID:          uuid.New().String(),
			ProductID:   it.ProductID,
			ProductName: it.Name,
			SKU:         it.SKU,
			Quantity:    it.Quantity,
			UnitPrice:   price,
			Category:    it.Category,
			Brand:       it.Brand,
			OnSale:      it.OnSale,
			GiftCard:    it.GiftCard,
		})
	}

	h.putEntry(o)
	respondJSON(w, r, http.StatusCreated, h.encodeOrder(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	e := h.entry(r.PathValue("id"))
	if e == nil {
		respondError(w, r, http.StatusNotFound, "order not found")
		return
	}

	e.mu.Lock()
	body := h.encodeOrder(e.order)
	e.mu.Unlock()
	respondJSON(w, r, http.StatusOK, body)
}

type applyCouponReq struct {
	Code string `json:"code"`
}

func (h *Handler) applyCoupon(w http.ResponseWriter, r *http.Request) {
	h.couponOp(w, r, func(o *order.Order, code string) (*order.Result, error) {
		return h.eval.ApplyCoupon(r.Context(), o, code, o.CustomerID)
	})
}

func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	h.couponOp(w, r, func(o *order.Order, code string) (*order.Result, error) {
		return h.eval.ValidateCoupon(r.Context(), o, code, o.CustomerID)
	})
}

// couponOp decodes the code, runs the operation under the order's lock, and
// writes the result. Business rejections map to 422, faults to 4xx/5xx.
func (h *Handler) couponOp(w http.ResponseWriter, r *http.Request, op func(*order.Order, string) (*order.Result, error)) {
	e := h.entry(r.PathValue("id"))
	if e == nil {
		respondError(w, r, http.StatusNotFound, "order not found")
		return
	}

	var req applyCouponReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	e.mu.Lock()
	res, err := op(e.order, req.Code)
	e.mu.Unlock()
	if err != nil {
		if errors.Is(err, order.ErrEmptyCode) {
			respondError(w, r, http.StatusBadRequest, "code is required")
			return
		}
		respondInternal(w, r, err)
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, r, status, h.encodeResult(res))
}

func (h *Handler) removeCoupon(w http.ResponseWriter, r *http.Request) {
	e := h.entry(r.PathValue("id"))
	if e == nil {
		respondError(w, r, http.StatusNotFound, "order not found")
		return
	}

	e.mu.Lock()
	res, err := h.eval.RemoveCoupon(r.Context(), e.order, r.PathValue("couponID"))
	e.mu.Unlock()
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusNotFound
	}
	respondJSON(w, r, status, h.encodeResult(res))
}

func (h *Handler) replaceCoupon(w http.ResponseWriter, r *http.Request) {
	e := h.entry(r.PathValue("id"))
	if e == nil {
		respondError(w, r, http.StatusNotFound, "order not found")
		return
	}

	var req applyCouponReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	e.mu.Lock()
	res, err := h.eval.ReplaceCoupon(r.Context(), e.order, r.PathValue("couponID"), req.Code, e.order.CustomerID)
	e.mu.Unlock()
	if err != nil {
		if errors.Is(err, order.ErrEmptyCode) {
			respondError(w, r, http.StatusBadRequest, "code is required")
			return
		}
		respondInternal(w, r, err)
		return
	}

	status := http.StatusOK
	if !res.Success {
		status = http.StatusUnprocessableEntity
	}
	respondJSON(w, r, status, h.encodeResult(res))
}

type breakdownJSON struct {
	Currency           string             `json:"currency"`
	Lines              []lineDiscountJSON `json:"lines"`
	TotalDiscount      moneyJSON          `json:"totalDiscount"`
	DiscountedItems    int                `json:"discountedItems"`
	NonDiscountedItems int                `json:"nonDiscountedItems"`
}

func (h *Handler) getBreakdown(w http.ResponseWriter, r *http.Request) {
	e := h.entry(r.PathValue("id"))
	if e == nil {
		respondError(w, r, http.StatusNotFound, "order not found")
		return
	}

	e.mu.Lock()
	b, err := h.eval.GetDiscountBreakdown(e.order)
	e.mu.Unlock()
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, breakdownJSON{
		Currency:           b.Currency,
		Lines:              encodeLines(b.Lines),
		TotalDiscount:      encodeMoney(b.TotalDiscount),
		DiscountedItems:    b.DiscountedItems,
		NonDiscountedItems: b.NonDiscountedItems,
	})
}

type eligibleItemJSON struct {
	ItemID    string    `json:"itemId"`
	ProductID string    `json:"productId"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	UnitPrice moneyJSON `json:"unitPrice"`
}

func (h *Handler) getEligibleItems(w http.ResponseWriter, r *http.Request) {
	e := h.entry(r.PathValue("id"))
	if e == nil {
		respondError(w, r, http.StatusNotFound, "order not found")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, r, http.StatusBadRequest, "code query parameter is required")
		return
	}

	e.mu.Lock()
	items, err := h.eval.GetEligibleItems(r.Context(), e.order, code)
	e.mu.Unlock()
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	out := make([]eligibleItemJSON, len(items))
	for i, it := range items {
		out[i] = eligibleItemJSON{
			ItemID:    it.ID,
			ProductID: it.ProductID,
			Name:      it.ProductName,
			Quantity:  it.Quantity,
			UnitPrice: encodeMoney(it.UnitPrice),
		}
	}
	respondJSON(w, r, http.StatusOK, out)
}

func (h *Handler) checkoutOrder(w http.ResponseWriter, r *http.Request) {
	e := h.entry(r.PathValue("id"))
	if e == nil {
		respondError(w, r, http.StatusNotFound, "order not found")
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := h.store.Create(r.Context(), e.order); err != nil {
		respondInternal(w, r, errors.Wrap(err, "persist order"))
		return
	}

	body := h.encodeOrder(e.order)
	h.dropEntry(e.order.ID)
	respondJSON(w, r, http.StatusOK, body)
}
