package domain

import (
	"fmt"
	"time"

	"github.com/bizbooks/voucherd/internal/money"
)

// Side names one of the draft's line sets.
type Side string

const (
	// SideEntries is the main line set every voucher type carries.
	SideEntries Side = "entries"
	// SideAgainst is the opposing set on two-sided vouchers, e.g. the
	// suppliers side of a debit note.
	SideAgainst Side = "against"
)

// VoucherDraft is the aggregate a dialog composes before handing it to the
// remote API. Every mutation goes through explicit setters so the posted
// guard holds everywhere; there is no durable local copy, discarding the
// draft is simply dropping it.
type VoucherDraft struct {
	ID       DraftID
	RemoteID string // empty until the first successful submit

	Company        CompanyRef
	VoucherType    VoucherType
	VoucherNumber  string
	VoucherDate    time.Time
	PrimaryAccount AccountRef
	ContraAccount  AccountRef // contra vouchers move funds between two accounts

	entries *EntryLineSet
	against *EntryLineSet // nil unless the type is two-sided

	Narration string
	Remarks   string
	Status    VoucherStatus

	CreatedAt time.Time
}

// NewDraft creates a draft in Draft status with a single empty line per
// side and the voucher date defaulted to now.
func NewDraft(id DraftID, vt VoucherType, company CompanyRef, now time.Time) (*VoucherDraft, error) {
	if !vt.Valid() {
		return nil, ErrInvalidVoucherType
	}
	d := &VoucherDraft{
		ID:          id,
		Company:     company,
		VoucherType: vt,
		VoucherDate: now,
		Status:      StatusDraft,
		entries:     NewLineSet(),
		CreatedAt:   now,
	}
	if vt.TwoSided() {
		d.against = NewLineSet()
	}
	return d, nil
}

// Lines returns the named line set, or ErrUnknownSide when the draft's type
// does not carry that side.
func (d *VoucherDraft) Lines(side Side) (*EntryLineSet, error) {
	switch side {
	case SideEntries:
		return d.entries, nil
	case SideAgainst:
		if d.against == nil {
			return nil, ErrUnknownSide
		}
		return d.against, nil
	}
	return nil, ErrUnknownSide
}

// Entries returns the main line set.
func (d *VoucherDraft) Entries() *EntryLineSet { return d.entries }

// Against returns the opposing line set, nil for single-sided types.
func (d *VoucherDraft) Against() *EntryLineSet { return d.against }

func (d *VoucherDraft) editable() error {
	if d.Status != StatusDraft {
		return ErrVoucherPosted
	}
	return nil
}

// AddLine appends a zero-valued line to the named side.
func (d *VoucherDraft) AddLine(side Side) (int, error) {
	if err := d.editable(); err != nil {
		return 0, err
	}
	set, err := d.Lines(side)
	if err != nil {
		return 0, err
	}
	return set.AddLine(), nil
}

// RemoveLine removes a line from the named side, keeping the one-line floor.
func (d *VoucherDraft) RemoveLine(side Side, index int) error {
	if err := d.editable(); err != nil {
		return err
	}
	set, err := d.Lines(side)
	if err != nil {
		return err
	}
	set.RemoveLine(index)
	return nil
}

// UpdateLine edits a dot-addressed field on a line of the named side.
func (d *VoucherDraft) UpdateLine(side Side, index int, path string, value any) error {
	if err := d.editable(); err != nil {
		return err
	}
	set, err := d.Lines(side)
	if err != nil {
		return err
	}
	return set.UpdateLine(index, path, value)
}

// SetField edits a top-level draft field. Recognized fields: voucherNumber,
// voucherDate (RFC 3339 or YYYY-MM-DD), primaryAccount, contraAccount,
// narration, remarks, company.
func (d *VoucherDraft) SetField(field string, value any) error {
	if err := d.editable(); err != nil {
		return err
	}
	switch field {
	case "voucherNumber":
		d.VoucherNumber = asString(value)
	case "voucherDate":
		t, err := parseDate(asString(value))
		if err != nil {
			return err
		}
		d.VoucherDate = t
	case "primaryAccount":
		ref, err := asAccountRef(value)
		if err != nil {
			return err
		}
		d.PrimaryAccount = ref
	case "contraAccount":
		ref, err := asAccountRef(value)
		if err != nil {
			return err
		}
		d.ContraAccount = ref
	case "narration":
		d.Narration = asString(value)
	case "remarks":
		d.Remarks = asString(value)
	case "company":
		switch c := value.(type) {
		case CompanyRef:
			d.Company = c
		case string:
			d.Company = CompanyRef{ID: c}
		case map[string]any:
			ref := CompanyRef{}
			if id, ok := c["id"].(string); ok {
				ref.ID = id
			}
			if name, ok := c["name"].(string); ok {
				ref.Name = name
			}
			d.Company = ref
		default:
			return fmt.Errorf("%w: company", ErrUnknownFieldPath)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFieldPath, field)
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: voucherDate", ErrUnknownFieldPath)
}

// TotalAmount is the headline figure submitted with the voucher: the
// tax-inclusive total of the main side.
func (d *VoucherDraft) TotalAmount() money.Money {
	return d.entries.Total(true)
}

// RequiredFieldErrors checks the presence rules that gate submission:
// company, voucher date, the accounts the type calls for, and at least one
// line with an account and a strictly positive amount per side.
func (d *VoucherDraft) RequiredFieldErrors() []ValidationError {
	var errs []ValidationError
	if d.Company.ID == "" {
		errs = append(errs, ValidationError{Field: "company", Code: "required", Message: "company is required"})
	}
	if d.VoucherDate.IsZero() {
		errs = append(errs, ValidationError{Field: "voucherDate", Code: "required", Message: "voucher date is required"})
	}
	switch d.VoucherType {
	case TypePayment, TypeReceipt, TypeSales, TypePurchase:
		if d.PrimaryAccount.IsZero() {
			errs = append(errs, ValidationError{Field: "primaryAccount", Code: "required", Message: "account is required"})
		}
	case TypeContra:
		if d.PrimaryAccount.IsZero() {
			errs = append(errs, ValidationError{Field: "primaryAccount", Code: "required", Message: "source account is required"})
		}
		if d.ContraAccount.IsZero() {
			errs = append(errs, ValidationError{Field: "contraAccount", Code: "required", Message: "destination account is required"})
		}
		if !d.PrimaryAccount.IsZero() && d.PrimaryAccount.ID == d.ContraAccount.ID {
			errs = append(errs, ValidationError{Field: "contraAccount", Code: "same_account", Message: "source and destination accounts must differ"})
		}
	}
	return errs
}
