package service

import (
	"context"
	"strings"
	"time"

	"toolcrib/internal/domain"
	"toolcrib/internal/models"

	"github.com/rs/zerolog"
)

// DraftService keeps the per-row transaction form state of each browser session,
// so a row's action, user and quantity survive re-renders and failed submissions.
type DraftService struct {
	repo   domain.DraftRepository
	logger *zerolog.Logger
}

func NewDraftService(repo domain.DraftRepository, logger *zerolog.Logger) *DraftService {
	return &DraftService{
		repo:   repo,
		logger: logger,
	}
}

// Get returns nil when the row has no draft or the repository fails.
func (s *DraftService) Get(ctx context.Context, session string, itemID int64) *models.RowDraft {
	draft, err := s.repo.GetDraft(ctx, session, itemID)
	if err != nil {
		s.logger.Error().Err(err).Str("session", session).Int64("item_id", itemID).Msg("failed to get draft")
		return nil
	}
	return draft
}

func (s *DraftService) List(ctx context.Context, session string) map[int64]*models.RowDraft {
	drafts, err := s.repo.ListDrafts(ctx, session)
	if err != nil {
		s.logger.Error().Err(err).Str("session", session).Msg("failed to list drafts")
		return map[int64]*models.RowDraft{}
	}
	if drafts == nil {
		drafts = map[int64]*models.RowDraft{}
	}
	return drafts
}

// Save stores the form state as typed. Unknown actions fall back to the placeholder.
func (s *DraftService) Save(ctx context.Context, session string, itemID int64, action, user, qty string) (*models.RowDraft, error) {
	if action != models.ActionCheckOut && action != models.ActionCheckIn {
		action = models.ActionNone
	}
	n, err := ParseTransactionQty(qty)
	if err != nil {
		n = models.DefaultTransactionQty
	}

	draft := &models.RowDraft{
		Session:   session,
		ItemID:    itemID,
		Action:    action,
		User:      strings.TrimSpace(user),
		Qty:       n,
		UpdatedAt: time.Now(),
	}
	if err := s.repo.SetDraft(ctx, draft); err != nil {
		s.logger.Error().Err(err).Str("session", session).Int64("item_id", itemID).Msg("failed to save draft")
		return draft, err
	}
	return draft, nil
}

func (s *DraftService) Clear(ctx context.Context, session string, itemID int64) {
	if err := s.repo.ClearDraft(ctx, session, itemID); err != nil {
		s.logger.Error().Err(err).Str("session", session).Int64("item_id", itemID).Msg("failed to clear draft")
	}
}
