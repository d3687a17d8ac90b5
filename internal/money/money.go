// Package money provides fixed-point two-decimal amounts for voucher
// arithmetic. All derived figures (tax amounts, totals, balance diffs) are
// rounded to two decimals so that repeated edits never accumulate drift.
package money

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a two-decimal amount backed by a decimal value.
// The zero value is usable and equals 0.00.
type Money struct {
	d decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Zero returns 0.00.
func Zero() Money { return Money{} }

// FromDecimal wraps a decimal value without rounding it.
func FromDecimal(d decimal.Decimal) Money { return Money{d: d} }

// FromFloat converts a float. Intended for literals in tests and defaults;
// wire input should go through Parse.
func FromFloat(f float64) Money { return Money{d: decimal.NewFromFloat(f)} }

// FromInt converts an integer amount.
func FromInt(n int64) Money { return Money{d: decimal.NewFromInt(n)} }

// Parse converts user input to Money. Empty strings, stray whitespace and
// anything that does not parse as a number normalize to zero; form fields
// pass through intermediate states like "" and "-" while being edited and
// those must aggregate as 0, not fail.
func Parse(s string) Money {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}
	}
	return Money{d: d}
}

// Decimal returns the underlying decimal value.
func (m Money) Decimal() decimal.Decimal { return m.d }

// Round2 rounds half away from zero to two decimal places.
func (m Money) Round2() Money { return Money{d: m.d.Round(2)} }

// Add returns m + o.
func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

// Sub returns m - o.
func (m Money) Sub(o Money) Money { return Money{d: m.d.Sub(o.d)} }

// Mul returns m * o.
func (m Money) Mul(o Money) Money { return Money{d: m.d.Mul(o.d)} }

// DivHundred returns m / 100 without rounding; callers round the final figure.
func (m Money) DivHundred() Money { return Money{d: m.d.Div(hundred)} }

// Abs returns the absolute value.
func (m Money) Abs() Money { return Money{d: m.d.Abs()} }

// Neg returns -m.
func (m Money) Neg() Money { return Money{d: m.d.Neg()} }

// Cmp returns -1, 0 or 1 comparing m to o.
func (m Money) Cmp(o Money) int { return m.d.Cmp(o.d) }

// Equal reports whether m and o represent the same amount.
func (m Money) Equal(o Money) bool { return m.d.Equal(o.d) }

// IsZero reports whether the amount is exactly zero.
func (m Money) IsZero() bool { return m.d.IsZero() }

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool { return m.d.IsPositive() }

// IsNegative reports whether the amount is strictly less than zero.
func (m Money) IsNegative() bool { return m.d.IsNegative() }

// LessThanOrEqual reports m <= o.
func (m Money) LessThanOrEqual(o Money) bool { return m.d.Cmp(o.d) <= 0 }

// String renders the amount with exactly two decimal places.
func (m Money) String() string { return m.d.StringFixed(2) }

// MarshalJSON renders the amount as a JSON string with two decimals, keeping
// exact values out of float territory on the wire.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts a JSON number or string. Invalid content normalizes
// to zero, mirroring Parse.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Not a string; treat the raw token as a number literal.
		s = string(data)
	}
	*m = Parse(s)
	return nil
}
