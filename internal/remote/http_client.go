package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/bizbooks/voucherd/internal/config"
	"github.com/bizbooks/voucherd/internal/money"
	"github.com/bizbooks/voucherd/internal/voucher/domain"
)

// HTTPClient implements Client against the accounting API over JSON/HTTP.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
	log     *zap.Logger
}

// NewHTTPClient builds the boundary client from configuration.
func NewHTTPClient(cfg config.Config, log *zap.Logger) *HTTPClient {
	timeout := time.Duration(cfg.Accounting.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.Accounting.BaseURL,
		token:   cfg.Accounting.Token,
		client:  &http.Client{Timeout: timeout},
		log:     log.Named("remote.accounting"),
	}
}

// Module provides the boundary client.
var Module = fx.Module("remote",
	fx.Provide(
		NewHTTPClient,
		func(c *HTTPClient) Client { return c },
	),
)

// wireAccount accepts the two shapes the API uses for accounts: a bare id
// string or an object with id and name fields.
type wireAccount struct {
	ID   string
	Name string
}

func (w *wireAccount) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		w.ID = id
		return nil
	}
	var obj struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		DisplayName string `json:"displayName"`
		LedgerName  string `json:"ledgerName"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	w.ID = obj.ID
	w.Name = obj.Name
	if w.Name == "" {
		w.Name = obj.DisplayName
	}
	if w.Name == "" {
		w.Name = obj.LedgerName
	}
	return nil
}

func (w wireAccount) ref() domain.AccountRef {
	return domain.AccountRef{ID: w.ID, DisplayName: w.Name}
}

type wireCompany struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
	Active    *bool  `json:"active"`
}

type wireVoucher struct {
	ID            string `json:"id"`
	VoucherNumber string `json:"voucherNumber"`
	VoucherDate   string `json:"voucherDate"`
	CompanyID     string `json:"companyId"`
	TotalAmount   string `json:"totalAmount"`
	Narration     string `json:"narration"`
	Posted        bool   `json:"posted"`
}

func (w wireVoucher) record(vt domain.VoucherType) domain.VoucherRecord {
	status := domain.StatusDraft
	if w.Posted {
		status = domain.StatusPosted
	}
	date, _ := time.Parse(time.RFC3339, w.VoucherDate)
	if date.IsZero() {
		date, _ = time.Parse("2006-01-02", w.VoucherDate)
	}
	return domain.VoucherRecord{
		ID:            w.ID,
		VoucherType:   vt,
		VoucherNumber: w.VoucherNumber,
		VoucherDate:   date,
		CompanyID:     w.CompanyID,
		TotalAmount:   money.Parse(w.TotalAmount),
		Narration:     w.Narration,
		Status:        status,
	}
}

func (c *HTTPClient) ListCompanies(ctx context.Context) ([]domain.CompanyRef, error) {
	var companies []wireCompany
	if err := c.do(ctx, http.MethodGet, "/companies", nil, &companies); err != nil {
		return nil, err
	}
	out := make([]domain.CompanyRef, 0, len(companies))
	for _, co := range companies {
		if co.Active != nil && !*co.Active {
			continue
		}
		out = append(out, domain.CompanyRef{ID: co.ID, Name: co.Name, IsDefault: co.IsDefault})
	}
	return out, nil
}

func (c *HTTPClient) ListLedgers(ctx context.Context, companyID string) ([]domain.AccountRef, error) {
	var accounts []wireAccount
	path := "/companies/" + url.PathEscape(companyID) + "/ledgers"
	if err := c.do(ctx, http.MethodGet, path, nil, &accounts); err != nil {
		return nil, err
	}
	out := make([]domain.AccountRef, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.ref())
	}
	return out, nil
}

func (c *HTTPClient) ListVouchers(ctx context.Context, vt domain.VoucherType, companyID string, f ListFilters) ([]domain.VoucherRecord, error) {
	values := url.Values{}
	values.Set("companyId", companyID)
	if f.From != nil {
		values.Set("from", f.From.Format("2006-01-02"))
	}
	if f.To != nil {
		values.Set("to", f.To.Format("2006-01-02"))
	}
	if f.Search != "" {
		values.Set("q", f.Search)
	}
	var vouchers []wireVoucher
	path := "/vouchers/" + url.PathEscape(string(vt)) + "?" + values.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &vouchers); err != nil {
		return nil, err
	}
	out := make([]domain.VoucherRecord, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, v.record(vt))
	}
	return out, nil
}

func (c *HTTPClient) GetVoucher(ctx context.Context, vt domain.VoucherType, id string) (domain.VoucherRecord, error) {
	var v wireVoucher
	path := "/vouchers/" + url.PathEscape(string(vt)) + "/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, &v); err != nil {
		return domain.VoucherRecord{}, err
	}
	return v.record(vt), nil
}

func (c *HTTPClient) CreateVoucher(ctx context.Context, vt domain.VoucherType, payload VoucherPayload) (domain.VoucherRecord, error) {
	var v wireVoucher
	path := "/vouchers/" + url.PathEscape(string(vt))
	if err := c.do(ctx, http.MethodPost, path, payload, &v); err != nil {
		return domain.VoucherRecord{}, err
	}
	return v.record(vt), nil
}

func (c *HTTPClient) UpdateVoucher(ctx context.Context, vt domain.VoucherType, id string, payload VoucherPayload) (domain.VoucherRecord, error) {
	var v wireVoucher
	path := "/vouchers/" + url.PathEscape(string(vt)) + "/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodPut, path, payload, &v); err != nil {
		return domain.VoucherRecord{}, err
	}
	return v.record(vt), nil
}

func (c *HTTPClient) DeleteVoucher(ctx context.Context, vt domain.VoucherType, id string) error {
	path := "/vouchers/" + url.PathEscape(string(vt)) + "/" + url.PathEscape(id)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) PostVoucher(ctx context.Context, vt domain.VoucherType, id string) error {
	path := "/vouchers/" + url.PathEscape(string(vt)) + "/" + url.PathEscape(id) + "/post"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *HTTPClient) UnpostVoucher(ctx context.Context, vt domain.VoucherType, id string) error {
	path := "/vouchers/" + url.PathEscape(string(vt)) + "/" + url.PathEscape(id) + "/unpost"
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("accounting api unreachable",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return &Error{}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{StatusCode: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		remoteErr := &Error{StatusCode: resp.StatusCode, Message: extractMessage(raw)}
		c.log.Warn("accounting api error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return remoteErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractMessage pulls the server message out of the common error envelopes.
func extractMessage(raw []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &nested); err != nil {
		return ""
	}
	if m := strings.TrimSpace(nested.Error.Message); m != "" {
		return m
	}
	return strings.TrimSpace(nested.Message)
}
