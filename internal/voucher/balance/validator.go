// Package balance checks that a voucher's sides agree before it is handed
// to the remote API.
package balance

import (
	"fmt"

	"github.com/bizbooks/voucherd/internal/money"
	"github.com/bizbooks/voucherd/internal/voucher/domain"
)

// DefaultTolerance absorbs rounding noise between independently computed
// sides; anything within a paisa counts as balanced.
var DefaultTolerance = money.Parse("0.01")

// Result reports whether two sides balance and by how much they differ.
type Result struct {
	Balanced bool        `json:"balanced"`
	Diff     money.Money `json:"diff"`
}

// Validate compares the tax-inclusive totals of two sides. It is symmetric:
// swapping the sides yields the same result.
func Validate(sideA, sideB *domain.EntryLineSet, tolerance money.Money) Result {
	diff := sideA.Total(true).Sub(sideB.Total(true)).Abs().Round2()
	return Result{
		Balanced: diff.LessThanOrEqual(tolerance),
		Diff:     diff,
	}
}

// CheckLines validates a single side: every line needs a non-empty account
// and a strictly positive amount. Reasons come back as a list for display;
// the caller decides whether to block submission.
func CheckLines(set *domain.EntryLineSet, side domain.Side) []domain.ValidationError {
	var errs []domain.ValidationError
	for i, line := range set.Lines() {
		if line.Account.IsZero() {
			errs = append(errs, domain.ValidationError{
				Field:   fmt.Sprintf("%s[%d].account", side, i),
				Code:    "required",
				Message: "ledger account is required",
			})
		}
		if !line.Amount.IsPositive() {
			errs = append(errs, domain.ValidationError{
				Field:   fmt.Sprintf("%s[%d].amount", side, i),
				Code:    "positive",
				Message: "amount must be greater than zero",
			})
		}
	}
	return errs
}
