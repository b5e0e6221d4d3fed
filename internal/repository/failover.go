package repository

import (
	"context"
	"sync/atomic"
	"time"

	"toolcrib/internal/domain"
	"toolcrib/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverDraftRepository serves drafts from primary and switches to fallback
// after the first primary error, probing primary again once a minute.
type FailoverDraftRepository struct {
	primary   domain.DraftRepository
	fallback  domain.DraftRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

var _ domain.DraftRepository = (*FailoverDraftRepository)(nil)

func NewFailoverDraftRepository(primary, fallback domain.DraftRepository, logger *zerolog.Logger) *FailoverDraftRepository {
	return &FailoverDraftRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverDraftRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary draft repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverDraftRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverDraftRepository) recovered() {
	if r.isDown.CompareAndSwap(true, false) {
		r.logger.Info().Msg("Primary draft repository recovered")
	}
}

func (r *FailoverDraftRepository) GetDraft(ctx context.Context, session string, itemID int64) (*models.RowDraft, error) {
	if r.usePrimary() {
		draft, err := r.primary.GetDraft(ctx, session, itemID)
		if err == nil {
			r.recovered()
			return draft, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetDraft(ctx, session, itemID)
}

func (r *FailoverDraftRepository) ListDrafts(ctx context.Context, session string) (map[int64]*models.RowDraft, error) {
	if r.usePrimary() {
		drafts, err := r.primary.ListDrafts(ctx, session)
		if err == nil {
			r.recovered()
			return drafts, nil
		}
		r.markDown(err)
	}
	return r.fallback.ListDrafts(ctx, session)
}

func (r *FailoverDraftRepository) SetDraft(ctx context.Context, draft *models.RowDraft) error {
	if r.usePrimary() {
		err := r.primary.SetDraft(ctx, draft)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetDraft(ctx, draft)
}

func (r *FailoverDraftRepository) ClearDraft(ctx context.Context, session string, itemID int64) error {
	if r.usePrimary() {
		err := r.primary.ClearDraft(ctx, session, itemID)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.ClearDraft(ctx, session, itemID)
}
