package domain

import "errors"

var (
	ErrInvalidVoucherType  = errors.New("invalid_voucher_type")
	ErrVoucherPosted       = errors.New("voucher_posted")
	ErrVoucherNotPosted    = errors.New("voucher_not_posted")
	ErrVoucherNotPersisted = errors.New("voucher_not_persisted")
	ErrLineIndexOutOfRange = errors.New("line_index_out_of_range")
	ErrUnknownFieldPath    = errors.New("unknown_field_path")
	ErrUnknownSide         = errors.New("unknown_side")
)

// ValidationError is a field-scoped reason a draft cannot be submitted.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ValidationErrors aggregates every reason found in one validation pass so
// the caller can display them together instead of fixing one at a time.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string { return "validation error" }

// HasErrors reports whether any reason was collected.
func (v ValidationErrors) HasErrors() bool { return len(v.Errors) > 0 }
