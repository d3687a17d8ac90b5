// Package service implements the voucher lifecycle: validation-gated
// submission, posting and unposting against the remote accounting API.
package service

import (
	"context"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/bizbooks/voucherd/internal/metrics"
	"github.com/bizbooks/voucherd/internal/remote"
	"github.com/bizbooks/voucherd/internal/voucher/balance"
	"github.com/bizbooks/voucherd/internal/voucher/domain"
	"github.com/bizbooks/voucherd/internal/voucher/sequence"
)

type Params struct {
	fx.In

	Log       *zap.Logger
	Remote    remote.Client
	Sequencer *sequence.Sequencer
	Metrics   *metrics.Metrics `optional:"true"`
}

// Service drives drafts through Draft -> Posted -> Draft. Remote failures
// leave local state untouched; the caller gets the server message to show.
type Service struct {
	log       *zap.Logger
	remote    remote.Client
	sequencer *sequence.Sequencer
	metrics   *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		log:       p.Log.Named("voucher.service"),
		remote:    p.Remote,
		sequencer: p.Sequencer,
		metrics:   p.Metrics,
	}
}

// Companies lists active companies, one flagged default.
func (s *Service) Companies(ctx context.Context) ([]domain.CompanyRef, error) {
	companies, err := s.remote.ListCompanies(ctx)
	return companies, s.observeRemote(err)
}

// Ledgers lists active ledger accounts for a company.
func (s *Service) Ledgers(ctx context.Context, companyID string) ([]domain.AccountRef, error) {
	ledgers, err := s.remote.ListLedgers(ctx, companyID)
	return ledgers, s.observeRemote(err)
}

// Vouchers lists persisted vouchers of a type for table display.
func (s *Service) Vouchers(ctx context.Context, vt domain.VoucherType, companyID string, f remote.ListFilters) ([]domain.VoucherRecord, error) {
	records, err := s.remote.ListVouchers(ctx, vt, companyID, f)
	return records, s.observeRemote(err)
}

// Voucher fetches one persisted voucher.
func (s *Service) Voucher(ctx context.Context, vt domain.VoucherType, id string) (domain.VoucherRecord, error) {
	record, err := s.remote.GetVoucher(ctx, vt, id)
	return record, s.observeRemote(err)
}

// Validate runs every synchronous check that gates submission and returns
// the collected reasons. An empty result means the draft may be submitted.
func (s *Service) Validate(draft *domain.VoucherDraft) domain.ValidationErrors {
	var out domain.ValidationErrors
	out.Errors = append(out.Errors, draft.RequiredFieldErrors()...)
	out.Errors = append(out.Errors, balance.CheckLines(draft.Entries(), domain.SideEntries)...)

	if against := draft.Against(); against != nil {
		out.Errors = append(out.Errors, balance.CheckLines(against, domain.SideAgainst)...)
		result := balance.Validate(draft.Entries(), against, balance.DefaultTolerance)
		if !result.Balanced {
			out.Errors = append(out.Errors, domain.ValidationError{
				Field:   "total",
				Code:    "unbalanced",
				Message: fmt.Sprintf("sides differ by %s", result.Diff),
			})
		}
	}
	return out
}

// Submit validates the draft and creates or updates it remotely. A draft
// with no voucher number gets the next sequential number for its type and
// financial year before the create call.
func (s *Service) Submit(ctx context.Context, draft *domain.VoucherDraft) (domain.VoucherRecord, error) {
	if draft.Status != domain.StatusDraft {
		return domain.VoucherRecord{}, domain.ErrVoucherPosted
	}
	if verrs := s.Validate(draft); verrs.HasErrors() {
		return domain.VoucherRecord{}, verrs
	}

	if draft.RemoteID == "" && draft.VoucherNumber == "" {
		draft.VoucherNumber = s.sequencer.Next(ctx, numberSource{remote: s.remote}, draft.VoucherType, draft.Company.ID)
	}

	payload := buildPayload(draft)
	var (
		record domain.VoucherRecord
		err    error
	)
	if draft.RemoteID == "" {
		record, err = s.remote.CreateVoucher(ctx, draft.VoucherType, payload)
	} else {
		record, err = s.remote.UpdateVoucher(ctx, draft.VoucherType, draft.RemoteID, payload)
	}
	if err != nil {
		return domain.VoucherRecord{}, s.observeRemote(err)
	}

	draft.RemoteID = record.ID
	if record.VoucherNumber != "" {
		draft.VoucherNumber = record.VoucherNumber
	}
	if s.metrics != nil {
		s.metrics.Submissions.WithLabelValues(string(draft.VoucherType)).Inc()
	}
	s.log.Info("voucher submitted",
		zap.String("voucher_type", string(draft.VoucherType)),
		zap.String("voucher_number", draft.VoucherNumber),
		zap.String("remote_id", draft.RemoteID),
	)
	return record, nil
}

// Post finalizes a persisted draft so it affects ledger balances. The
// remote id check happens before any network call.
func (s *Service) Post(ctx context.Context, draft *domain.VoucherDraft) error {
	if draft.RemoteID == "" {
		return domain.ErrVoucherNotPersisted
	}
	if draft.Status != domain.StatusDraft {
		return domain.ErrVoucherPosted
	}
	if err := s.remote.PostVoucher(ctx, draft.VoucherType, draft.RemoteID); err != nil {
		return s.observeRemote(err)
	}
	draft.Status = domain.StatusPosted
	if s.metrics != nil {
		s.metrics.Postings.WithLabelValues("post").Inc()
	}
	s.log.Info("voucher posted", zap.String("remote_id", draft.RemoteID))
	return nil
}

// Unpost reverses a posting, returning the voucher to Draft.
func (s *Service) Unpost(ctx context.Context, draft *domain.VoucherDraft) error {
	if draft.RemoteID == "" {
		return domain.ErrVoucherNotPersisted
	}
	if draft.Status != domain.StatusPosted {
		return domain.ErrVoucherNotPosted
	}
	if err := s.remote.UnpostVoucher(ctx, draft.VoucherType, draft.RemoteID); err != nil {
		return s.observeRemote(err)
	}
	draft.Status = domain.StatusDraft
	if s.metrics != nil {
		s.metrics.Postings.WithLabelValues("unpost").Inc()
	}
	s.log.Info("voucher unposted", zap.String("remote_id", draft.RemoteID))
	return nil
}

// Delete removes the persisted voucher. Allowed from either state and
// irreversible; a never-submitted draft has nothing remote to delete.
func (s *Service) Delete(ctx context.Context, draft *domain.VoucherDraft) error {
	if draft.RemoteID == "" {
		return nil
	}
	if err := s.remote.DeleteVoucher(ctx, draft.VoucherType, draft.RemoteID); err != nil {
		return s.observeRemote(err)
	}
	s.log.Info("voucher deleted", zap.String("remote_id", draft.RemoteID))
	draft.RemoteID = ""
	draft.Status = domain.StatusDraft
	return nil
}

func (s *Service) observeRemote(err error) error {
	if err == nil {
		return nil
	}
	if s.metrics != nil {
		s.metrics.RemoteErrors.Inc()
	}
	return err
}

// numberSource feeds the sequencer from the remote voucher listing.
type numberSource struct {
	remote remote.Client
}

func (n numberSource) ExistingNumbers(ctx context.Context, vt domain.VoucherType, companyID string) ([]string, error) {
	records, err := n.remote.ListVouchers(ctx, vt, companyID, remote.ListFilters{})
	if err != nil {
		return nil, err
	}
	numbers := make([]string, 0, len(records))
	for _, r := range records {
		numbers = append(numbers, r.VoucherNumber)
	}
	return numbers, nil
}

func buildPayload(draft *domain.VoucherDraft) remote.VoucherPayload {
	payload := remote.VoucherPayload{
		CompanyID:        draft.Company.ID,
		VoucherNumber:    draft.VoucherNumber,
		VoucherDate:      draft.VoucherDate.Format("2006-01-02"),
		PrimaryAccountID: draft.PrimaryAccount.ID,
		ContraAccountID:  draft.ContraAccount.ID,
		Lines:            linePayloads(draft.Entries()),
		TotalAmount:      draft.TotalAmount().String(),
		Narration:        draft.Narration,
		Remarks:          draft.Remarks,
	}
	if against := draft.Against(); against != nil {
		payload.AgainstLines = linePayloads(against)
	}
	return payload
}

func linePayloads(set *domain.EntryLineSet) []remote.LinePayload {
	lines := set.Lines()
	out := make([]remote.LinePayload, 0, len(lines))
	for _, line := range lines {
		out = append(out, remote.LinePayload{
			AccountID:     line.Account.ID,
			Amount:        line.Amount.String(),
			Narration:     line.Narration,
			BillReference: line.BillReference,
			TDS:           taxPayload(line.TDS),
			GST:           taxPayload(line.GST),
		})
	}
	return out
}

func taxPayload(rule *domain.TaxRule) *remote.TaxRulePayload {
	if rule == nil || !rule.Applicable {
		return nil
	}
	p := &remote.TaxRulePayload{
		Applicable: true,
		Rate:       rule.Rate.String(),
		Amount:     rule.Amount.String(),
	}
	if rule.Account != nil {
		p.AccountID = rule.Account.ID
	}
	return p
}
