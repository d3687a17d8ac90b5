package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bizbooks/voucherd/internal/clock"
	"github.com/bizbooks/voucherd/internal/remote"
	"github.com/bizbooks/voucherd/internal/voucher/domain"
	"github.com/bizbooks/voucherd/internal/voucher/sequence"
)

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) ListCompanies(ctx context.Context) ([]domain.CompanyRef, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CompanyRef), args.Error(1)
}

func (m *mockRemote) ListLedgers(ctx context.Context, companyID string) ([]domain.AccountRef, error) {
	args := m.Called(ctx, companyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccountRef), args.Error(1)
}

func (m *mockRemote) ListVouchers(ctx context.Context, vt domain.VoucherType, companyID string, f remote.ListFilters) ([]domain.VoucherRecord, error) {
	args := m.Called(ctx, vt, companyID, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VoucherRecord), args.Error(1)
}

func (m *mockRemote) GetVoucher(ctx context.Context, vt domain.VoucherType, id string) (domain.VoucherRecord, error) {
	args := m.Called(ctx, vt, id)
	return args.Get(0).(domain.VoucherRecord), args.Error(1)
}

func (m *mockRemote) CreateVoucher(ctx context.Context, vt domain.VoucherType, payload remote.VoucherPayload) (domain.VoucherRecord, error) {
	args := m.Called(ctx, vt, payload)
	return args.Get(0).(domain.VoucherRecord), args.Error(1)
}

func (m *mockRemote) UpdateVoucher(ctx context.Context, vt domain.VoucherType, id string, payload remote.VoucherPayload) (domain.VoucherRecord, error) {
	args := m.Called(ctx, vt, id, payload)
	return args.Get(0).(domain.VoucherRecord), args.Error(1)
}

func (m *mockRemote) DeleteVoucher(ctx context.Context, vt domain.VoucherType, id string) error {
	args := m.Called(ctx, vt, id)
	return args.Error(0)
}

func (m *mockRemote) PostVoucher(ctx context.Context, vt domain.VoucherType, id string) error {
	args := m.Called(ctx, vt, id)
	return args.Error(0)
}

func (m *mockRemote) UnpostVoucher(ctx context.Context, vt domain.VoucherType, id string) error {
	args := m.Called(ctx, vt, id)
	return args.Error(0)
}

func newTestService(t *testing.T, client remote.Client) *Service {
	t.Helper()
	clk := clock.NewFakeClock(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	return NewService(Params{
		Log:       zap.NewNop(),
		Remote:    client,
		Sequencer: sequence.New(clk, zap.NewNop()),
	})
}

func newDraft(t *testing.T, vt domain.VoucherType) *domain.VoucherDraft {
	t.Helper()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	draft, err := domain.NewDraft(node.Generate(), vt, domain.CompanyRef{ID: "co-1", Name: "Acme"}, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return draft
}

func fillPaymentDraft(t *testing.T, draft *domain.VoucherDraft) {
	t.Helper()
	require.NoError(t, draft.SetField("primaryAccount", "bank-1"))
	require.NoError(t, draft.UpdateLine(domain.SideEntries, 0, "account", "exp-1"))
	require.NoError(t, draft.UpdateLine(domain.SideEntries, 0, "amount", "1000"))
}

func TestSubmitCreateAssignsSequencedNumber(t *testing.T) {
	client := new(mockRemote)
	client.On("ListVouchers", mock.Anything, domain.TypePayment, "co-1", remote.ListFilters{}).
		Return([]domain.VoucherRecord{
			{VoucherNumber: "PAYMENT/2024-25/00007"},
		}, nil)
	client.On("CreateVoucher", mock.Anything, domain.TypePayment, mock.MatchedBy(func(p remote.VoucherPayload) bool {
		return p.VoucherNumber == "PAYMENT/2024-25/00008" && p.TotalAmount == "1000.00"
	})).Return(domain.VoucherRecord{ID: "v-1", VoucherNumber: "PAYMENT/2024-25/00008"}, nil)

	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypePayment)
	fillPaymentDraft(t, draft)

	record, err := svc.Submit(context.Background(), draft)
	require.NoError(t, err)
	assert.Equal(t, "v-1", record.ID)
	assert.Equal(t, "v-1", draft.RemoteID)
	assert.Equal(t, "PAYMENT/2024-25/00008", draft.VoucherNumber)
	client.AssertExpectations(t)
}

func TestSubmitKeepsExplicitNumber(t *testing.T) {
	client := new(mockRemote)
	client.On("CreateVoucher", mock.Anything, domain.TypeReceipt, mock.MatchedBy(func(p remote.VoucherPayload) bool {
		return p.VoucherNumber == "RECEIPT/2024-25/00099"
	})).Return(domain.VoucherRecord{ID: "v-2"}, nil)

	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypeReceipt)
	fillPaymentDraft(t, draft)
	require.NoError(t, draft.SetField("voucherNumber", "RECEIPT/2024-25/00099"))

	_, err := svc.Submit(context.Background(), draft)
	require.NoError(t, err)
	client.AssertNotCalled(t, "ListVouchers", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitUpdateUsesRemoteID(t *testing.T) {
	client := new(mockRemote)
	client.On("UpdateVoucher", mock.Anything, domain.TypePayment, "v-9", mock.Anything).
		Return(domain.VoucherRecord{ID: "v-9"}, nil)

	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypePayment)
	fillPaymentDraft(t, draft)
	draft.RemoteID = "v-9"
	draft.VoucherNumber = "PAYMENT/2024-25/00003"

	_, err := svc.Submit(context.Background(), draft)
	require.NoError(t, err)
	client.AssertNotCalled(t, "CreateVoucher", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitBlockedByValidation(t *testing.T) {
	client := new(mockRemote)
	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypePayment)
	// No account, zero amount: must fail before any remote call.

	_, err := svc.Submit(context.Background(), draft)
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.NotEmpty(t, verrs.Errors)
	client.AssertNotCalled(t, "CreateVoucher", mock.Anything, mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "ListVouchers", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitUnbalancedDebitNote(t *testing.T) {
	client := new(mockRemote)
	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypeDebitNote)

	require.NoError(t, draft.UpdateLine(domain.SideEntries, 0, "account", "supplier-1"))
	require.NoError(t, draft.UpdateLine(domain.SideEntries, 0, "amount", "1000"))
	require.NoError(t, draft.UpdateLine(domain.SideAgainst, 0, "account", "exp-1"))
	require.NoError(t, draft.UpdateLine(domain.SideAgainst, 0, "amount", "950"))

	_, err := svc.Submit(context.Background(), draft)
	var verrs domain.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	found := false
	for _, e := range verrs.Errors {
		if e.Code == "unbalanced" {
			found = true
			assert.Contains(t, e.Message, "50.00")
		}
	}
	assert.True(t, found, "expected an unbalanced reason")
	client.AssertNotCalled(t, "CreateVoucher", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitBalancedDebitNoteWithTax(t *testing.T) {
	client := new(mockRemote)
	client.On("ListVouchers", mock.Anything, domain.TypeDebitNote, "co-1", remote.ListFilters{}).
		Return([]domain.VoucherRecord{}, nil)
	client.On("CreateVoucher", mock.Anything, domain.TypeDebitNote, mock.Anything).
		Return(domain.VoucherRecord{ID: "dn-1", VoucherNumber: "DEBITNOTE/2024-25/00001"}, nil)

	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypeDebitNote)

	// Suppliers total 1180 vs entries base 1000 + 18% GST.
	require.NoError(t, draft.UpdateLine(domain.SideEntries, 0, "account", "supplier-1"))
	require.NoError(t, draft.UpdateLine(domain.SideEntries, 0, "amount", "1180"))
	require.NoError(t, draft.UpdateLine(domain.SideAgainst, 0, "account", "exp-1"))
	require.NoError(t, draft.UpdateLine(domain.SideAgainst, 0, "gst.applicable", true))
	require.NoError(t, draft.UpdateLine(domain.SideAgainst, 0, "gst.rate", "18"))
	require.NoError(t, draft.UpdateLine(domain.SideAgainst, 0, "amount", "1000"))

	_, err := svc.Submit(context.Background(), draft)
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestPostRequiresRemoteID(t *testing.T) {
	client := new(mockRemote)
	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypePayment)

	err := svc.Post(context.Background(), draft)
	assert.ErrorIs(t, err, domain.ErrVoucherNotPersisted)
	client.AssertNotCalled(t, "PostVoucher", mock.Anything, mock.Anything, mock.Anything)
}

func TestPostFlipsStatus(t *testing.T) {
	client := new(mockRemote)
	client.On("PostVoucher", mock.Anything, domain.TypePayment, "v-1").Return(nil)

	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypePayment)
	draft.RemoteID = "v-1"

	require.NoError(t, svc.Post(context.Background(), draft))
	assert.Equal(t, domain.StatusPosted, draft.Status)

	// Posting again is a conflict, resolved before the network.
	err := svc.Post(context.Background(), draft)
	assert.ErrorIs(t, err, domain.ErrVoucherPosted)
	client.AssertNumberOfCalls(t, "PostVoucher", 1)
}

func TestPostFailureLeavesStateUnchanged(t *testing.T) {
	client := new(mockRemote)
	client.On("PostVoucher", mock.Anything, domain.TypePayment, "v-1").
		Return(&remote.Error{StatusCode: 422, Message: "voucher date falls in a closed period"})

	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypePayment)
	draft.RemoteID = "v-1"

	err := svc.Post(context.Background(), draft)
	require.Error(t, err)
	assert.Equal(t, domain.StatusDraft, draft.Status)
	assert.Equal(t, "voucher date falls in a closed period", remote.MessageOrFallback(err))
}

func TestUnpostFlipsBack(t *testing.T) {
	client := new(mockRemote)
	client.On("UnpostVoucher", mock.Anything, domain.TypeReceipt, "v-3").Return(nil)

	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypeReceipt)
	draft.RemoteID = "v-3"
	draft.Status = domain.StatusPosted

	require.NoError(t, svc.Unpost(context.Background(), draft))
	assert.Equal(t, domain.StatusDraft, draft.Status)
}

func TestUnpostRequiresPostedState(t *testing.T) {
	client := new(mockRemote)
	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypeReceipt)
	draft.RemoteID = "v-3"

	err := svc.Unpost(context.Background(), draft)
	assert.ErrorIs(t, err, domain.ErrVoucherNotPosted)
	client.AssertNotCalled(t, "UnpostVoucher", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteAllowedFromPosted(t *testing.T) {
	client := new(mockRemote)
	client.On("DeleteVoucher", mock.Anything, domain.TypePayment, "v-4").Return(nil)

	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypePayment)
	draft.RemoteID = "v-4"
	draft.Status = domain.StatusPosted

	require.NoError(t, svc.Delete(context.Background(), draft))
	assert.Empty(t, draft.RemoteID)
}

func TestDeleteNeverSubmittedIsLocalOnly(t *testing.T) {
	client := new(mockRemote)
	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypePayment)

	require.NoError(t, svc.Delete(context.Background(), draft))
	client.AssertNotCalled(t, "DeleteVoucher", mock.Anything, mock.Anything, mock.Anything)
}

func TestSequencerFallbackOnListingFailure(t *testing.T) {
	client := new(mockRemote)
	client.On("ListVouchers", mock.Anything, domain.TypePayment, "co-1", remote.ListFilters{}).
		Return(nil, &remote.Error{StatusCode: 503})
	client.On("CreateVoucher", mock.Anything, domain.TypePayment, mock.MatchedBy(func(p remote.VoucherPayload) bool {
		return p.VoucherNumber == "PAYMENT/2024-25/00001"
	})).Return(domain.VoucherRecord{ID: "v-5"}, nil)

	svc := newTestService(t, client)
	draft := newDraft(t, domain.TypePayment)
	fillPaymentDraft(t, draft)

	_, err := svc.Submit(context.Background(), draft)
	require.NoError(t, err)
	client.AssertExpectations(t)
}
