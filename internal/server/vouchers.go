package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/bizbooks/voucherd/internal/drafts"
	"github.com/bizbooks/voucherd/internal/money"
	"github.com/bizbooks/voucherd/internal/remote"
	"github.com/bizbooks/voucherd/internal/voucher/balance"
	"github.com/bizbooks/voucherd/internal/voucher/domain"
)

// draftView is the wire shape of a draft snapshot.
type draftView struct {
	ID             string               `json:"id"`
	RemoteID       string               `json:"remoteId,omitempty"`
	VoucherType    domain.VoucherType   `json:"voucherType"`
	Status         domain.VoucherStatus `json:"status"`
	Company        domain.CompanyRef    `json:"company"`
	VoucherNumber  string               `json:"voucherNumber,omitempty"`
	VoucherDate    string               `json:"voucherDate"`
	PrimaryAccount domain.AccountRef    `json:"primaryAccount"`
	ContraAccount  domain.AccountRef    `json:"contraAccount,omitempty"`
	Narration      string               `json:"narration,omitempty"`
	Remarks        string               `json:"remarks,omitempty"`
	Entries        []domain.EntryLine   `json:"entries"`
	Against        []domain.EntryLine   `json:"against,omitempty"`
	TotalAmount    money.Money          `json:"totalAmount"`
}

func viewOf(d *domain.VoucherDraft) draftView {
	v := draftView{
		ID:             d.ID.String(),
		RemoteID:       d.RemoteID,
		VoucherType:    d.VoucherType,
		Status:         d.Status,
		Company:        d.Company,
		VoucherNumber:  d.VoucherNumber,
		VoucherDate:    d.VoucherDate.Format("2006-01-02"),
		PrimaryAccount: d.PrimaryAccount,
		ContraAccount:  d.ContraAccount,
		Narration:      d.Narration,
		Remarks:        d.Remarks,
		Entries:        d.Entries().Lines(),
		TotalAmount:    d.TotalAmount(),
	}
	if against := d.Against(); against != nil {
		v.Against = against.Lines()
	}
	return v
}

func (s *Server) listCompanies(c *gin.Context) {
	companies, err := s.svc.Companies(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": companies})
}

func (s *Server) listLedgers(c *gin.Context) {
	ledgers, err := s.svc.Ledgers(c.Request.Context(), c.Param("companyID"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ledgers": ledgers})
}

func (s *Server) listVouchers(c *gin.Context) {
	vt, err := domain.ParseVoucherType(c.Param("type"))
	if err != nil {
		c.Error(err)
		return
	}
	filters := remote.ListFilters{Search: c.Query("q")}
	if from, ok := parseDateQuery(c.Query("from")); ok {
		filters.From = &from
	}
	if to, ok := parseDateQuery(c.Query("to")); ok {
		filters.To = &to
	}
	records, err := s.svc.Vouchers(c.Request.Context(), vt, c.Query("companyId"), filters)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vouchers": records})
}

func (s *Server) getVoucher(c *gin.Context) {
	vt, err := domain.ParseVoucherType(c.Param("type"))
	if err != nil {
		c.Error(err)
		return
	}
	record, err := s.svc.Voucher(c.Request.Context(), vt, c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, record)
}

type createDraftRequest struct {
	VoucherType string            `json:"voucherType"`
	Company     domain.CompanyRef `json:"company"`
}

func (s *Server) createDraft(c *gin.Context) {
	var req createDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(domain.ErrInvalidVoucherType)
		return
	}
	vt, err := domain.ParseVoucherType(req.VoucherType)
	if err != nil {
		c.Error(err)
		return
	}
	draft, err := s.registry.Create(vt, req.Company)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, viewOf(draft))
}

func (s *Server) withDraft(c *gin.Context) (*domain.VoucherDraft, bool) {
	id, err := snowflake.ParseString(c.Param("draftID"))
	if err != nil {
		c.Error(drafts.ErrNotFound)
		return nil, false
	}
	draft, err := s.registry.Get(id)
	if err != nil {
		c.Error(err)
		return nil, false
	}
	return draft, true
}

func (s *Server) getDraft(c *gin.Context) {
	draft, ok := s.withDraft(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, viewOf(draft))
}

func (s *Server) discardDraft(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("draftID"))
	if err != nil {
		c.Error(drafts.ErrNotFound)
		return
	}
	s.registry.Discard(id)
	c.Status(http.StatusNoContent)
}

type fieldUpdateRequest struct {
	Field string `json:"field"`
	Value any    `json:"value"`
}

func (s *Server) updateDraftField(c *gin.Context) {
	draft, ok := s.withDraft(c)
	if !ok {
		return
	}
	var req fieldUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(domain.ErrUnknownFieldPath)
		return
	}
	if err := draft.SetField(req.Field, req.Value); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, viewOf(draft))
}

type lineRequest struct {
	Side  string `json:"side"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

func sideOf(raw string) domain.Side {
	if raw == string(domain.SideAgainst) {
		return domain.SideAgainst
	}
	return domain.SideEntries
}

func (s *Server) addLine(c *gin.Context) {
	draft, ok := s.withDraft(c)
	if !ok {
		return
	}
	var req lineRequest
	_ = c.ShouldBindJSON(&req)
	index, err := draft.AddLine(sideOf(req.Side))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"index": index, "draft": viewOf(draft)})
}

func (s *Server) removeLine(c *gin.Context) {
	draft, ok := s.withDraft(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.Error(domain.ErrLineIndexOutOfRange)
		return
	}
	if err := draft.RemoveLine(sideOf(c.Query("side")), index); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, viewOf(draft))
}

func (s *Server) updateLine(c *gin.Context) {
	draft, ok := s.withDraft(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.Error(domain.ErrLineIndexOutOfRange)
		return
	}
	var req lineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(domain.ErrUnknownFieldPath)
		return
	}
	if err := draft.UpdateLine(sideOf(req.Side), index, req.Path, req.Value); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, viewOf(draft))
}

func (s *Server) draftTotals(c *gin.Context) {
	draft, ok := s.withDraft(c)
	if !ok {
		return
	}
	includeTax := c.DefaultQuery("includeTax", "true") != "false"
	resp := gin.H{
		"entries":     draft.Entries().Total(includeTax),
		"totalAmount": draft.TotalAmount(),
	}
	if against := draft.Against(); against != nil {
		resp["against"] = against.Total(includeTax)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) validateDraft(c *gin.Context) {
	draft, ok := s.withDraft(c)
	if !ok {
		return
	}
	verrs := s.svc.Validate(draft)
	resp := gin.H{"valid": !verrs.HasErrors(), "errors": verrs.Errors}
	if against := draft.Against(); against != nil {
		resp["balance"] = balance.Validate(draft.Entries(), against, balance.DefaultTolerance)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) submitDraft(c *gin.Context) {
	draft, ok := s.withDraft(c)
	if !ok {
		return
	}
	record, err := s.svc.Submit(c.Request.Context(), draft)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"voucher": record, "draft": viewOf(draft)})
}

func (s *Server) postDraft(c *gin.Context) {
	draft, ok := s.withDraft(c)
	if !ok {
		return
	}
	if err := s.svc.Post(c.Request.Context(), draft); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, viewOf(draft))
}

func (s *Server) unpostDraft(c *gin.Context) {
	draft, ok := s.withDraft(c)
	if !ok {
		return
	}
	if err := s.svc.Unpost(c.Request.Context(), draft); err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, viewOf(draft))
}

func (s *Server) deleteVoucher(c *gin.Context) {
	draft, ok := s.withDraft(c)
	if !ok {
		return
	}
	if err := s.svc.Delete(c.Request.Context(), draft); err != nil {
		c.Error(err)
		return
	}
	s.registry.Discard(draft.ID)
	c.Status(http.StatusNoContent)
}

func parseDateQuery(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
