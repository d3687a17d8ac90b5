// Package drafts holds in-flight voucher drafts. Each draft is owned by the
// single dialog that created it; the registry only hands them out and drops
// them on discard. Nothing here is persisted (the backend is the sole
// source of truth).
package drafts

import (
	"errors"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/bizbooks/voucherd/internal/clock"
	"github.com/bizbooks/voucherd/internal/voucher/domain"
)

var ErrNotFound = errors.New("draft_not_found")

// Registry is a mutex-guarded map of live drafts keyed by draft ID.
type Registry struct {
	mu     sync.Mutex
	drafts map[domain.DraftID]*domain.VoucherDraft
	genID  *snowflake.Node
	clk    clock.Clock
}

func NewRegistry(genID *snowflake.Node, clk clock.Clock) *Registry {
	return &Registry{
		drafts: make(map[domain.DraftID]*domain.VoucherDraft),
		genID:  genID,
		clk:    clk,
	}
}

// Module provides the registry.
var Module = fx.Module("drafts",
	fx.Provide(NewRegistry),
)

// Create opens a fresh draft with the voucher date defaulted to today.
func (r *Registry) Create(vt domain.VoucherType, company domain.CompanyRef) (*domain.VoucherDraft, error) {
	draft, err := domain.NewDraft(r.genID.Generate(), vt, company, r.clk.Now().Truncate(24*time.Hour))
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.drafts[draft.ID] = draft
	r.mu.Unlock()
	return draft, nil
}

// Get returns the draft with the given ID.
func (r *Registry) Get(id domain.DraftID) (*domain.VoucherDraft, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	draft, ok := r.drafts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return draft, nil
}

// Discard drops a draft. Discarding an unknown ID is a no-op; a cancelled
// dialog may race its own cleanup.
func (r *Registry) Discard(id domain.DraftID) {
	r.mu.Lock()
	delete(r.drafts, id)
	r.mu.Unlock()
}

// Len returns the number of live drafts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.drafts)
}
