// Package domain holds the voucher composition model: account references,
// tax rules, entry lines, line sets and the draft aggregate that the
// lifecycle service submits to the remote accounting API.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/bizbooks/voucherd/internal/money"
)

// VoucherType enumerates the supported voucher kinds.
type VoucherType string

const (
	TypePayment    VoucherType = "payment"
	TypeReceipt    VoucherType = "receipt"
	TypeContra     VoucherType = "contra"
	TypeJournal    VoucherType = "journal"
	TypeDebitNote  VoucherType = "debit_note"
	TypeCreditNote VoucherType = "credit_note"
	TypeSales      VoucherType = "sales"
	TypePurchase   VoucherType = "purchase"
)

var typeTokens = map[VoucherType]string{
	TypePayment:    "PAYMENT",
	TypeReceipt:    "RECEIPT",
	TypeContra:     "CONTRA",
	TypeJournal:    "JOURNAL",
	TypeDebitNote:  "DEBITNOTE",
	TypeCreditNote: "CREDITNOTE",
	TypeSales:      "SALES",
	TypePurchase:   "PURCHASE",
}

// ParseVoucherType normalizes a wire value into a VoucherType.
func ParseVoucherType(raw string) (VoucherType, error) {
	vt := VoucherType(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := typeTokens[vt]; !ok {
		return "", ErrInvalidVoucherType
	}
	return vt, nil
}

// Token returns the uppercase prefix token used in voucher numbers,
// e.g. "RECEIPT" in "RECEIPT/2024-25/00001". Empty for unknown types.
func (vt VoucherType) Token() string { return typeTokens[vt] }

// Valid reports whether vt is one of the supported voucher kinds.
func (vt VoucherType) Valid() bool { return typeTokens[vt] != "" }

// TwoSided reports whether the voucher balances two line sets against each
// other (debit/credit notes) instead of a primary account against one set.
func (vt VoucherType) TwoSided() bool {
	return vt == TypeDebitNote || vt == TypeCreditNote
}

// VoucherStatus is the lifecycle state visible to callers.
type VoucherStatus string

const (
	StatusDraft  VoucherStatus = "draft"
	StatusPosted VoucherStatus = "posted"
)

// AccountRef identifies a ledger account. Remote responses carry accounts
// either as objects or bare ids; the boundary layer normalizes both shapes
// into this one so nothing downstream branches on shape.
type AccountRef struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName,omitempty"`
}

// IsZero reports whether the reference points at no account.
func (a AccountRef) IsZero() bool { return strings.TrimSpace(a.ID) == "" }

// CompanyRef identifies a company, with one flagged as the default
// selection for fresh drafts.
type CompanyRef struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault,omitempty"`
}

// VoucherRecord is a voucher as the remote API reports it: persisted,
// numbered and carrying its posting state.
type VoucherRecord struct {
	ID            string        `json:"id"`
	VoucherType   VoucherType   `json:"voucherType"`
	VoucherNumber string        `json:"voucherNumber"`
	VoucherDate   time.Time     `json:"voucherDate"`
	CompanyID     string        `json:"companyId"`
	TotalAmount   money.Money   `json:"totalAmount"`
	Narration     string        `json:"narration,omitempty"`
	Status        VoucherStatus `json:"status"`
}

// DraftID identifies a locally held draft.
type DraftID = snowflake.ID
