package domain

import (
	"github.com/bizbooks/voucherd/internal/money"
	"github.com/bizbooks/voucherd/internal/voucher/taxcalc"
)

// TaxRule is an optional tax sub-object on a line. When Applicable is false
// the rate and amount are ignored by every downstream computation. Amount is
// derived from the line's base amount and the rate, except when the user
// edits the amount field directly (last write wins on the field just edited).
type TaxRule struct {
	Applicable bool        `json:"applicable"`
	Rate       money.Money `json:"rate"`
	Amount     money.Money `json:"amount"`
	Account    *AccountRef `json:"account,omitempty"`
}

// EffectiveAmount returns the tax amount that counts toward totals: zero
// unless the rule is applicable.
func (r *TaxRule) EffectiveAmount() money.Money {
	if r == nil || !r.Applicable {
		return money.Zero()
	}
	return r.Amount
}

// EntryLine is a single row of a voucher: an account, a base amount and
// optional TDS and GST sub-objects.
type EntryLine struct {
	Account       AccountRef  `json:"account"`
	Amount        money.Money `json:"amount"`
	Narration     string      `json:"narration,omitempty"`
	BillReference string      `json:"billReference,omitempty"`
	TDS           *TaxRule    `json:"tds,omitempty"`
	GST           *TaxRule    `json:"gst,omitempty"`
}

// SetAmount replaces the line's base amount and re-derives the amount of
// every applicable tax rule with a rate set.
func (l *EntryLine) SetAmount(base money.Money) {
	l.Amount = base
	l.recomputeRule(l.TDS)
	l.recomputeRule(l.GST)
}

func (l *EntryLine) recomputeRule(r *TaxRule) {
	if r == nil || !r.Applicable || !r.Rate.IsPositive() {
		return
	}
	r.Amount = taxcalc.ComputeAmount(l.Amount, r.Rate)
}

func (l *EntryLine) ensureTDS() *TaxRule {
	if l.TDS == nil {
		l.TDS = &TaxRule{}
	}
	return l.TDS
}

func (l *EntryLine) ensureGST() *TaxRule {
	if l.GST == nil {
		l.GST = &TaxRule{}
	}
	return l.GST
}

// SetTDSRate sets the TDS rate and re-derives its amount from the current
// base amount.
func (l *EntryLine) SetTDSRate(rate money.Money) {
	r := l.ensureTDS()
	r.Rate = rate
	r.Amount = taxcalc.ComputeAmount(l.Amount, rate)
}

// SetGSTRate sets the GST rate and re-derives its amount from the current
// base amount.
func (l *EntryLine) SetGSTRate(rate money.Money) {
	r := l.ensureGST()
	r.Rate = rate
	r.Amount = taxcalc.ComputeAmount(l.Amount, rate)
}
