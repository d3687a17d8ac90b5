package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bizbooks/voucherd/internal/money"
	"github.com/bizbooks/voucherd/internal/voucher/taxcalc"
)

// EntryLineSet is an ordered collection of entry lines. Insertion order is
// significant for display and submission. A set never drops below one line.
type EntryLineSet struct {
	lines []EntryLine
}

// NewLineSet returns a set containing a single zero-valued line, the state a
// freshly opened dialog starts from.
func NewLineSet() *EntryLineSet {
	return &EntryLineSet{lines: []EntryLine{{}}}
}

// Len returns the number of lines.
func (s *EntryLineSet) Len() int { return len(s.lines) }

// Lines returns a copy of the lines in order.
func (s *EntryLineSet) Lines() []EntryLine {
	out := make([]EntryLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// Line returns the line at index i.
func (s *EntryLineSet) Line(i int) (EntryLine, bool) {
	if i < 0 || i >= len(s.lines) {
		return EntryLine{}, false
	}
	return s.lines[i], true
}

// AddLine appends a zero-valued line and returns its index.
func (s *EntryLineSet) AddLine() int {
	s.lines = append(s.lines, EntryLine{})
	return len(s.lines) - 1
}

// RemoveLine removes the line at index i. Removing the last remaining line
// or passing an out-of-range index is a no-op; the row simply stays.
func (s *EntryLineSet) RemoveLine(i int) {
	if len(s.lines) <= 1 || i < 0 || i >= len(s.lines) {
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
}

// UpdateLine sets a dot-addressed field on the line at index i. Editing
// "amount" re-derives every applicable tax amount on the line; editing
// "tds.rate" or "gst.rate" re-derives that rule's amount. Editing a tax
// amount directly overrides the derived value.
func (s *EntryLineSet) UpdateLine(i int, path string, value any) error {
	if i < 0 || i >= len(s.lines) {
		return ErrLineIndexOutOfRange
	}
	line := &s.lines[i]

	switch path {
	case "account":
		ref, err := asAccountRef(value)
		if err != nil {
			return err
		}
		line.Account = ref
		return nil
	case "amount":
		line.SetAmount(asMoney(value))
		return nil
	case "narration":
		line.Narration = asString(value)
		return nil
	case "billReference":
		line.BillReference = asString(value)
		return nil
	}

	rule, field, ok := s.taxRuleFor(line, path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownFieldPath, path)
	}

	switch field {
	case "applicable":
		rule.Applicable = asBool(value)
		if rule.Applicable {
			line.recomputeRule(rule)
		}
	case "rate":
		rule.Rate = asMoney(value)
		rule.Amount = taxcalc.ComputeAmount(line.Amount, rule.Rate)
	case "amount":
		rule.Amount = asMoney(value)
	case "account":
		ref, err := asAccountRef(value)
		if err != nil {
			return err
		}
		rule.Account = &ref
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFieldPath, path)
	}
	return nil
}

func (s *EntryLineSet) taxRuleFor(line *EntryLine, path string) (*TaxRule, string, bool) {
	prefix, field, found := strings.Cut(path, ".")
	if !found {
		return nil, "", false
	}
	switch prefix {
	case "tds":
		return line.ensureTDS(), field, true
	case "gst":
		return line.ensureGST(), field, true
	}
	return nil, "", false
}

// Total sums the line amounts, recomputed from scratch on every call. With
// includeTax it also adds each line's applicable TDS and GST amounts.
func (s *EntryLineSet) Total(includeTax bool) money.Money {
	total := money.Zero()
	for i := range s.lines {
		line := &s.lines[i]
		total = total.Add(line.Amount)
		if includeTax {
			total = total.Add(line.TDS.EffectiveAmount())
			total = total.Add(line.GST.EffectiveAmount())
		}
	}
	return total.Round2()
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	}
	return false
}

func asMoney(v any) money.Money {
	switch n := v.(type) {
	case string:
		return money.Parse(n)
	case float64:
		return money.FromFloat(n)
	case int:
		return money.FromInt(int64(n))
	case int64:
		return money.FromInt(n)
	case json.Number:
		return money.Parse(n.String())
	case money.Money:
		return n
	}
	return money.Zero()
}

func asAccountRef(v any) (AccountRef, error) {
	switch a := v.(type) {
	case AccountRef:
		return a, nil
	case string:
		return AccountRef{ID: a}, nil
	case map[string]any:
		ref := AccountRef{}
		if id, ok := a["id"].(string); ok {
			ref.ID = id
		}
		if name, ok := a["displayName"].(string); ok {
			ref.DisplayName = name
		}
		return ref, nil
	case nil:
		return AccountRef{}, nil
	}
	return AccountRef{}, fmt.Errorf("%w: account", ErrUnknownFieldPath)
}
