package refindex

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/carthesien/enrich/engine/domain"
)

// Source loads the canonical variant dataset. Implementations own parsing and
// schema drift; the index only sees ready records.
type Source interface {
	Load(ctx context.Context) ([]domain.CanonicalVariant, error)
}

// Index hands out consistent snapshots across concurrent readers while
// refreshes swap in new versions.
type Index struct {
	cur     atomic.Pointer[Snapshot]
	version atomic.Int64
}

// NewIndex creates an index holding an empty version-zero snapshot, so
// Current never returns nil.
func NewIndex() *Index {
	ix := &Index{}
	ix.cur.Store(NewSnapshot(0, nil))
	return ix
}

// Current returns the active snapshot. The handle stays consistent for as
// long as the caller keeps it, even across refreshes.
func (ix *Index) Current() *Snapshot {
	return ix.cur.Load()
}

// Swap builds a snapshot from the variants and makes it the active one.
func (ix *Index) Swap(variants []domain.CanonicalVariant) *Snapshot {
	next := NewSnapshot(ix.version.Add(1), variants)
	ix.cur.Store(next)
	return next
}

// Refresh loads from the source and swaps on success. On failure the active
// snapshot is left untouched.
func (ix *Index) Refresh(ctx context.Context, src Source) (*Snapshot, error) {
	variants, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("refindex: load: %w", err)
	}
	return ix.Swap(variants), nil
}
