package repository

import (
	"context"
	"sync"
	"time"

	"toolcrib/internal/models"
)

type draftKeyPair struct {
	session string
	itemID  int64
}

type MemoryDraftRepository struct {
	mu     sync.RWMutex
	drafts map[draftKeyPair]*models.RowDraft
	ttl    time.Duration
	now    func() time.Time
}

func NewMemoryDraftRepository(ttl time.Duration) *MemoryDraftRepository {
	return &MemoryDraftRepository{
		drafts: make(map[draftKeyPair]*models.RowDraft),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (r *MemoryDraftRepository) expired(d *models.RowDraft) bool {
	return r.ttl > 0 && r.now().Sub(d.UpdatedAt) > r.ttl
}

func (r *MemoryDraftRepository) GetDraft(ctx context.Context, session string, itemID int64) (*models.RowDraft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.drafts[draftKeyPair{session, itemID}]
	if !ok || r.expired(d) {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *MemoryDraftRepository) ListDrafts(ctx context.Context, session string) (map[int64]*models.RowDraft, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]*models.RowDraft)
	for k, d := range r.drafts {
		if k.session != session || r.expired(d) {
			continue
		}
		cp := *d
		out[k.itemID] = &cp
	}
	return out, nil
}

func (r *MemoryDraftRepository) SetDraft(ctx context.Context, draft *models.RowDraft) error {
	cp := *draft
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = r.now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.drafts[draftKeyPair{draft.Session, draft.ItemID}] = &cp
	r.sweepLocked()
	return nil
}

func (r *MemoryDraftRepository) ClearDraft(ctx context.Context, session string, itemID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, draftKeyPair{session, itemID})
	return nil
}

func (r *MemoryDraftRepository) sweepLocked() {
	for k, d := range r.drafts {
		if r.expired(d) {
			delete(r.drafts, k)
		}
	}
}
