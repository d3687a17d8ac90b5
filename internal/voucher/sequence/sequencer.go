// Package sequence derives the next voucher number for a voucher type
// within the current financial year (April to March).
//
// Numbers look like RECEIPT/2024-25/00017: type token, financial-year label,
// then a 5-digit zero-padded sequence. The next number is the maximum
// existing suffix under the same prefix plus one. Two clients creating
// vouchers at the same moment can derive the same number; uniqueness is the
// backend's responsibility, not this package's.
package sequence

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/bizbooks/voucherd/internal/clock"
	"github.com/bizbooks/voucherd/internal/voucher/domain"
)

const suffixWidth = 5

// NumberSource supplies the voucher numbers already issued for a type and
// company, normally backed by the remote voucher listing.
type NumberSource interface {
	ExistingNumbers(ctx context.Context, vt domain.VoucherType, companyID string) ([]string, error)
}

// Context carries everything a single derivation needs.
type Context struct {
	VoucherType     domain.VoucherType
	CompanyID       string
	ExistingNumbers []string
}

// Sequencer derives voucher numbers. It never returns an error: any lookup
// failure degrades to the first number of the year.
type Sequencer struct {
	clk clock.Clock
	log *zap.Logger
}

func New(clk clock.Clock, log *zap.Logger) *Sequencer {
	return &Sequencer{clk: clk, log: log.Named("voucher.sequence")}
}

// FiscalYearLabel renders the financial-year label for a date, e.g.
// "2024-25" for any date from 2024-04-01 through 2025-03-31.
func FiscalYearLabel(t time.Time) string {
	year := t.Year()
	if int(t.Month()) < 4 {
		year--
	}
	return fmt.Sprintf("%d-%02d", year, (year+1)%100)
}

// NextNumber derives the next number from an already-loaded context.
func (s *Sequencer) NextNumber(sc Context) string {
	prefix := sc.VoucherType.Token() + "/" + FiscalYearLabel(s.clk.Now()) + "/"
	if !sc.VoucherType.Valid() || sc.CompanyID == "" {
		return prefix + firstSuffix()
	}
	max := 0
	for _, number := range sc.ExistingNumbers {
		rest, ok := strings.CutPrefix(number, prefix)
		if !ok || len(rest) != suffixWidth {
			continue
		}
		n, err := strconv.Atoi(rest)
		if err != nil || n < 0 {
			// Malformed suffixes are skipped, not fatal.
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s%0*d", prefix, suffixWidth, max+1)
}

// Next loads existing numbers from the source and derives the next number.
// A source failure falls back to the first number of the year.
func (s *Sequencer) Next(ctx context.Context, src NumberSource, vt domain.VoucherType, companyID string) string {
	sc := Context{VoucherType: vt, CompanyID: companyID}
	if src != nil && vt.Valid() && companyID != "" {
		numbers, err := src.ExistingNumbers(ctx, vt, companyID)
		if err != nil {
			s.log.Warn("voucher number lookup failed, starting from 00001",
				zap.String("voucher_type", string(vt)),
				zap.Error(err),
			)
		} else {
			sc.ExistingNumbers = numbers
		}
	}
	return s.NextNumber(sc)
}

func firstSuffix() string {
	return fmt.Sprintf("%0*d", suffixWidth, 1)
}
