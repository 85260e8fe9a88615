package coupon

import "github.com/promostack/coupon-engine/internal/money"

// LineDiscount is one item's share of an aggregate discount.
type LineDiscount struct {
	Item          Item
	Discount      money.Money
	OriginalPrice money.Money
	FinalPrice    money.Money
}

// Allocate distributes total across the items proportionally to their line
// totals, in input order. Each share is rounded to currency precision as it
// is built; the last item receives the exact remainder instead of its own
// proportional share, so the allocated amounts always sum to total with no
// rounding drift. Zero items or a zero total yields no allocations.
func Allocate(items []Item, total money.Money) []LineDiscount {
	if len(items) == 0 || total.IsZero() {
		return nil
	}

	base := money.Zero(total.Currency())
	for _, it := range items {
		base = base.Add(it.TotalPrice())
	}
	if base.IsZero() {
		return nil
	}

	lines := make([]LineDiscount, 0, len(items))
	allocated := money.Zero(total.Currency())

	for i, it := range items {
		var share money.Money
		if i == len(items)-1 {
			share = total.Sub(allocated)
		} else {
			share = total.Mul(it.TotalPrice().Ratio(base))
			allocated = allocated.Add(share)
		}

		price := it.TotalPrice()
		lines = append(lines, LineDiscount{
			Item:          it,
			Discount:      share,
			OriginalPrice: price,
			FinalPrice:    price.Sub(share).FloorZero(),
		})
	}

	return lines
}
