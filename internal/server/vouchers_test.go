package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bizbooks/voucherd/internal/clock"
	"github.com/bizbooks/voucherd/internal/config"
	"github.com/bizbooks/voucherd/internal/drafts"
	"github.com/bizbooks/voucherd/internal/metrics"
	"github.com/bizbooks/voucherd/internal/remote"
	"github.com/bizbooks/voucherd/internal/voucher/domain"
	"github.com/bizbooks/voucherd/internal/voucher/sequence"
	voucherservice "github.com/bizbooks/voucherd/internal/voucher/service"
)

// stubRemote lets each test script the boundary without a mock framework.
type stubRemote struct {
	listCompanies func(ctx context.Context) ([]domain.CompanyRef, error)
	listVouchers  func(ctx context.Context, vt domain.VoucherType, companyID string, f remote.ListFilters) ([]domain.VoucherRecord, error)
	createVoucher func(ctx context.Context, vt domain.VoucherType, payload remote.VoucherPayload) (domain.VoucherRecord, error)
	postVoucher   func(ctx context.Context, vt domain.VoucherType, id string) error
}

func (s *stubRemote) ListCompanies(ctx context.Context) ([]domain.CompanyRef, error) {
	if s.listCompanies == nil {
		return nil, nil
	}
	return s.listCompanies(ctx)
}

func (s *stubRemote) ListLedgers(ctx context.Context, companyID string) ([]domain.AccountRef, error) {
	return nil, nil
}

func (s *stubRemote) ListVouchers(ctx context.Context, vt domain.VoucherType, companyID string, f remote.ListFilters) ([]domain.VoucherRecord, error) {
	if s.listVouchers == nil {
		return nil, nil
	}
	return s.listVouchers(ctx, vt, companyID, f)
}

func (s *stubRemote) GetVoucher(ctx context.Context, vt domain.VoucherType, id string) (domain.VoucherRecord, error) {
	return domain.VoucherRecord{}, nil
}

func (s *stubRemote) CreateVoucher(ctx context.Context, vt domain.VoucherType, payload remote.VoucherPayload) (domain.VoucherRecord, error) {
	if s.createVoucher == nil {
		return domain.VoucherRecord{}, nil
	}
	return s.createVoucher(ctx, vt, payload)
}

func (s *stubRemote) UpdateVoucher(ctx context.Context, vt domain.VoucherType, id string, payload remote.VoucherPayload) (domain.VoucherRecord, error) {
	return domain.VoucherRecord{}, nil
}

func (s *stubRemote) DeleteVoucher(ctx context.Context, vt domain.VoucherType, id string) error {
	return nil
}

func (s *stubRemote) PostVoucher(ctx context.Context, vt domain.VoucherType, id string) error {
	if s.postVoucher == nil {
		return nil
	}
	return s.postVoucher(ctx, vt, id)
}

func (s *stubRemote) UnpostVoucher(ctx context.Context, vt domain.VoucherType, id string) error {
	return nil
}

func newTestServer(t *testing.T, client remote.Client) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()
	engine := NewEngine(config.Config{}, log)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	registry := drafts.NewRegistry(node, clk)
	m, promReg := metrics.New()

	svc := voucherservice.NewService(voucherservice.Params{
		Log:       log,
		Remote:    client,
		Sequencer: sequence.New(clk, log),
		Metrics:   m,
	})

	NewServer(ServerParams{
		Engine:   engine,
		Service:  svc,
		Registry: registry,
		Log:      log,
		PromReg:  promReg,
	})
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func createPaymentDraft(t *testing.T, engine *gin.Engine) string {
	t.Helper()
	w := doJSON(t, engine, http.MethodPost, "/v1/drafts", gin.H{
		"voucherType": "payment",
		"company":     gin.H{"id": "co-1", "name": "Acme"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var view draftView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	require.NotEmpty(t, view.ID)
	return view.ID
}

func TestDraftWorkflow(t *testing.T) {
	engine := newTestServer(t, &stubRemote{})
	id := createPaymentDraft(t, engine)

	// Fill in the first line with an 18% GST rule.
	for _, edit := range []gin.H{
		{"path": "account", "value": "exp-1"},
		{"path": "gst.applicable", "value": true},
		{"path": "gst.rate", "value": "18"},
		{"path": "amount", "value": "1000"},
	} {
		w := doJSON(t, engine, http.MethodPatch, "/v1/drafts/"+id+"/lines/0", edit)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doJSON(t, engine, http.MethodGet, "/v1/drafts/"+id+"/totals", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var totals map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &totals))
	assert.Equal(t, "1180.00", totals["entries"])

	w = doJSON(t, engine, http.MethodGet, "/v1/drafts/"+id+"/totals?includeTax=false", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &totals))
	assert.Equal(t, "1000.00", totals["entries"])
}

func TestRemoveLineKeepsFloorOverHTTP(t *testing.T) {
	engine := newTestServer(t, &stubRemote{})
	id := createPaymentDraft(t, engine)

	w := doJSON(t, engine, http.MethodDelete, "/v1/drafts/"+id+"/lines/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view draftView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Len(t, view.Entries, 1)
}

func TestValidateReportsReasons(t *testing.T) {
	engine := newTestServer(t, &stubRemote{})
	id := createPaymentDraft(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/v1/drafts/"+id+"/validate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Valid  bool                     `json:"valid"`
		Errors []domain.ValidationError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Valid)
	assert.NotEmpty(t, resp.Errors)
}

func TestSubmitBlockedReturns422(t *testing.T) {
	engine := newTestServer(t, &stubRemote{})
	id := createPaymentDraft(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/v1/drafts/"+id+"/submit", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "validation", resp.Error.Type)
	assert.NotEmpty(t, resp.Error.Errors)
}

func TestSubmitHappyPath(t *testing.T) {
	client := &stubRemote{
		createVoucher: func(ctx context.Context, vt domain.VoucherType, payload remote.VoucherPayload) (domain.VoucherRecord, error) {
			return domain.VoucherRecord{ID: "v-1", VoucherNumber: payload.VoucherNumber}, nil
		},
	}
	engine := newTestServer(t, client)
	id := createPaymentDraft(t, engine)

	require.Equal(t, http.StatusOK, doJSON(t, engine, http.MethodPatch, "/v1/drafts/"+id, gin.H{
		"field": "primaryAccount", "value": "bank-1",
	}).Code)
	require.Equal(t, http.StatusOK, doJSON(t, engine, http.MethodPatch, "/v1/drafts/"+id+"/lines/0", gin.H{
		"path": "account", "value": "exp-1",
	}).Code)
	require.Equal(t, http.StatusOK, doJSON(t, engine, http.MethodPatch, "/v1/drafts/"+id+"/lines/0", gin.H{
		"path": "amount", "value": "250",
	}).Code)

	w := doJSON(t, engine, http.MethodPost, "/v1/drafts/"+id+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Voucher domain.VoucherRecord `json:"voucher"`
		Draft   draftView            `json:"draft"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "v-1", resp.Voucher.ID)
	assert.Equal(t, "PAYMENT/2024-25/00001", resp.Draft.VoucherNumber)
}

func TestPostBeforeSubmitConflicts(t *testing.T) {
	engine := newTestServer(t, &stubRemote{})
	id := createPaymentDraft(t, engine)

	w := doJSON(t, engine, http.MethodPost, "/v1/drafts/"+id+"/post", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUnknownDraftIs404(t *testing.T) {
	engine := newTestServer(t, &stubRemote{})
	w := doJSON(t, engine, http.MethodGet, "/v1/drafts/123456789", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoteErrorForwarded(t *testing.T) {
	client := &stubRemote{
		listCompanies: func(ctx context.Context) ([]domain.CompanyRef, error) {
			return nil, &remote.Error{StatusCode: http.StatusForbidden, Message: "token expired"}
		},
	}
	engine := newTestServer(t, client)

	w := doJSON(t, engine, http.MethodGet, "/v1/companies", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "token expired", resp.Error.Message)
}

func TestDiscardDraft(t *testing.T) {
	engine := newTestServer(t, &stubRemote{})
	id := createPaymentDraft(t, engine)

	w := doJSON(t, engine, http.MethodDelete, "/v1/drafts/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, engine, http.MethodGet, "/v1/drafts/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
