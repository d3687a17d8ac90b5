// Package taxcalc derives withholding (TDS) and consumption (GST) tax amounts
// from a base amount and a percentage rate.
package taxcalc

import "github.com/bizbooks/voucherd/internal/money"

// ComputeAmount returns base * rate / 100 rounded to two decimals.
// A non-positive base or rate yields zero; rates arrive straight from form
// input and an empty or cleared field means "no tax", not an error.
func ComputeAmount(base, rate money.Money) money.Money {
	if !base.IsPositive() || !rate.IsPositive() {
		return money.Zero()
	}
	return base.Mul(rate).DivHundred().Round2()
}
