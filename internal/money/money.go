// Package money provides an immutable currency-aware amount used for all
// discount arithmetic. Amounts are stored pre-rounded to the currency's
// canonical precision using banker's rounding, so two Money values built
// from the same inputs always compare equal.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// zeroDecimalCurrencies have no minor unit.
var zeroDecimalCurrencies = map[string]struct{}{
	"JPY": {}, "KRW": {}, "VND": {}, "CLP": {}, "ISK": {},
}

// threeDecimalCurrencies use a thousandth minor unit.
var threeDecimalCurrencies = map[string]struct{}{
	"BHD": {}, "KWD": {}, "OMR": {}, "JOD": {}, "TND": {},
}

// Precision returns the number of fractional digits for the given ISO 4217
// currency code. Unknown codes default to 2.
func Precision(currency string) int32 {
	if _, ok := zeroDecimalCurrencies[currency]; ok {
		return 0
	}
	if _, ok := threeDecimalCurrencies[currency]; ok {
		return 3
	}
	return 2
}

// Money is an immutable amount in a single currency. The zero value is not
// usable; construct instances with New or Zero.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New creates a Money rounded to the currency's precision with banker's
// rounding (round half to even).
func New(amount decimal.Decimal, currency string) Money {
	return Money{
		amount:   amount.RoundBank(Precision(currency)),
		currency: currency,
	}
}

// NewFromFloat creates a Money from a float64 amount.
func NewFromFloat(amount float64, currency string) Money {
	return New(decimal.NewFromFloat(amount), currency)
}

// NewFromString creates a Money from a decimal string such as "19.99".
func NewFromString(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	return New(d, currency), nil
}

// Zero returns a zero amount in the given currency.
func Zero(currency string) Money {
	return Money{amount: decimal.Zero, currency: currency}
}

// Amount returns the underlying decimal amount.
func (m Money) Amount() decimal.Decimal { return m.amount }

// Currency returns the ISO 4217 currency code.
func (m Money) Currency() string { return m.currency }

// assertSameCurrency panics on currency mismatch. Mixing currencies in
// arithmetic is a caller bug, not a recoverable condition.
func (m Money) assertSameCurrency(other Money) {
	if m.currency != other.currency {
		panic(fmt.Sprintf("money: currency mismatch %s vs %s", m.currency, other.currency))
	}
}

// Add returns m + other. Panics if the currencies differ.
func (m Money) Add(other Money) Money {
	m.assertSameCurrency(other)
	return New(m.amount.Add(other.amount), m.currency)
}

// Sub returns m - other. Panics if the currencies differ.
func (m Money) Sub(other Money) Money {
	m.assertSameCurrency(other)
	return New(m.amount.Sub(other.amount), m.currency)
}

// Mul returns m scaled by the given factor, rounded to currency precision.
func (m Money) Mul(factor decimal.Decimal) Money {
	return New(m.amount.Mul(factor), m.currency)
}

// Div returns m divided by the given divisor, rounded to currency precision.
// Panics if divisor is zero.
func (m Money) Div(divisor decimal.Decimal) Money {
	if divisor.IsZero() {
		panic("money: division by zero")
	}
	return New(m.amount.Div(divisor), m.currency)
}

// Ratio returns m / other as a raw decimal (no currency rounding), for use
// in proportional calculations. Panics on currency mismatch or zero divisor.
func (m Money) Ratio(other Money) decimal.Decimal {
	m.assertSameCurrency(other)
	if other.amount.IsZero() {
		panic("money: division by zero")
	}
	return m.amount.Div(other.amount)
}

// Cmp compares two amounts: -1 if m < other, 0 if equal, +1 if m > other.
// Panics if the currencies differ.
func (m Money) Cmp(other Money) int {
	m.assertSameCurrency(other)
	return m.amount.Cmp(other.amount)
}

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool { return m.Cmp(other) < 0 }

// GreaterThan reports whether m > other.
func (m Money) GreaterThan(other Money) bool { return m.Cmp(other) > 0 }

// Equal reports whether m and other have the same currency and amount.
func (m Money) Equal(other Money) bool {
	return m.currency == other.currency && m.amount.Equal(other.amount)
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount.IsZero() }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// IsPositive reports whether the amount is above zero.
func (m Money) IsPositive() bool { return m.amount.IsPositive() }

// Min returns the smaller of m and other. Panics if the currencies differ.
func Min(m, other Money) Money {
	if m.Cmp(other) <= 0 {
		return m
	}
	return other
}

// FloorZero clamps negative amounts to zero.
func (m Money) FloorZero() Money {
	if m.amount.IsNegative() {
		return Zero(m.currency)
	}
	return m
}

// String formats the amount with its currency code, e.g. "10.00 USD".
func (m Money) String() string {
	return m.amount.StringFixed(Precision(m.currency)) + " " + m.currency
}
