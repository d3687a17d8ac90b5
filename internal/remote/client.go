// Package remote is the boundary to the accounting API that owns voucher
// persistence, posting and business-rule enforcement. This service only
// prepares and validates vouchers; everything durable lives behind this
// interface.
package remote

import (
	"context"
	"errors"
	"time"

	"github.com/bizbooks/voucherd/internal/voucher/domain"
)

// FallbackMessage is shown when the server fails without a usable message.
const FallbackMessage = "something went wrong, please try again"

// Error is a discriminated remote failure. Message carries the
// server-provided text when present and must be forwarded unmodified.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return FallbackMessage
}

// MessageOrFallback extracts the display message for any error coming out
// of this package.
func MessageOrFallback(err error) string {
	var re *Error
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return FallbackMessage
}

// ListFilters narrows a voucher listing. All fields are optional.
type ListFilters struct {
	From   *time.Time
	To     *time.Time
	Search string
}

// TaxRulePayload mirrors a line's tax sub-object on the wire.
type TaxRulePayload struct {
	Applicable bool   `json:"applicable"`
	Rate       string `json:"rate"`
	Amount     string `json:"amount"`
	AccountID  string `json:"accountId,omitempty"`
}

// LinePayload is one voucher line as the API expects it.
type LinePayload struct {
	AccountID     string          `json:"accountId"`
	Amount        string          `json:"amount"`
	Narration     string          `json:"narration,omitempty"`
	BillReference string          `json:"billReference,omitempty"`
	TDS           *TaxRulePayload `json:"tds,omitempty"`
	GST           *TaxRulePayload `json:"gst,omitempty"`
}

// VoucherPayload is the create/update envelope for a voucher.
type VoucherPayload struct {
	CompanyID        string        `json:"companyId"`
	VoucherNumber    string        `json:"voucherNumber"`
	VoucherDate      string        `json:"voucherDate"`
	PrimaryAccountID string        `json:"primaryAccountId,omitempty"`
	ContraAccountID  string        `json:"contraAccountId,omitempty"`
	Lines            []LinePayload `json:"lines"`
	AgainstLines     []LinePayload `json:"againstLines,omitempty"`
	TotalAmount      string        `json:"totalAmount"`
	Narration        string        `json:"narration,omitempty"`
	Remarks          string        `json:"remarks,omitempty"`
}

// Client is the full boundary surface. Implementations attach the bearer
// credential and normalize response shapes; they never retry.
type Client interface {
	ListCompanies(ctx context.Context) ([]domain.CompanyRef, error)
	ListLedgers(ctx context.Context, companyID string) ([]domain.AccountRef, error)
	ListVouchers(ctx context.Context, vt domain.VoucherType, companyID string, f ListFilters) ([]domain.VoucherRecord, error)
	GetVoucher(ctx context.Context, vt domain.VoucherType, id string) (domain.VoucherRecord, error)
	CreateVoucher(ctx context.Context, vt domain.VoucherType, payload VoucherPayload) (domain.VoucherRecord, error)
	UpdateVoucher(ctx context.Context, vt domain.VoucherType, id string, payload VoucherPayload) (domain.VoucherRecord, error)
	DeleteVoucher(ctx context.Context, vt domain.VoucherType, id string) error
	PostVoucher(ctx context.Context, vt domain.VoucherType, id string) error
	UnpostVoucher(ctx context.Context, vt domain.VoucherType, id string) error
}
