package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"toolcrib/internal/models"
	"toolcrib/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDraftRepository struct {
	mock.Mock
}

func (m *MockDraftRepository) GetDraft(ctx context.Context, session string, itemID int64) (*models.RowDraft, error) {
	args := m.Called(ctx, session, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RowDraft), args.Error(1)
}

func (m *MockDraftRepository) ListDrafts(ctx context.Context, session string) (map[int64]*models.RowDraft, error) {
	args := m.Called(ctx, session)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*models.RowDraft), args.Error(1)
}

func (m *MockDraftRepository) SetDraft(ctx context.Context, draft *models.RowDraft) error {
	return m.Called(ctx, draft).Error(0)
}

func (m *MockDraftRepository) ClearDraft(ctx context.Context, session string, itemID int64) error {
	return m.Called(ctx, session, itemID).Error(0)
}

func TestDraftService_RoundTrip(t *testing.T) {
	logger := zerolog.Nop()
	s := NewDraftService(repository.NewMemoryDraftRepository(time.Hour), &logger)
	ctx := context.Background()

	assert.Nil(t, s.Get(ctx, "sess", 1))

	draft, err := s.Save(ctx, "sess", 1, models.ActionCheckOut, "Dana", "3")
	require.NoError(t, err)
	assert.Equal(t, int64(3), draft.Qty)

	_, err = s.Save(ctx, "sess", 2, "Borrow", "", "0")
	require.NoError(t, err)

	got := s.Get(ctx, "sess", 2)
	require.NotNil(t, got)
	assert.Equal(t, models.ActionNone, got.Action)
	assert.Equal(t, int64(models.DefaultTransactionQty), got.Qty)

	all := s.List(ctx, "sess")
	assert.Len(t, all, 2)
	assert.Empty(t, s.List(ctx, "other"))

	s.Clear(ctx, "sess", 1)
	assert.Nil(t, s.Get(ctx, "sess", 1))
	assert.Len(t, s.List(ctx, "sess"), 1)
}

func TestDraftService_RepositoryErrors(t *testing.T) {
	logger := zerolog.Nop()
	repo := new(MockDraftRepository)
	s := NewDraftService(repo, &logger)
	ctx := context.Background()
	boom := errors.New("redis gone")

	repo.On("GetDraft", mock.Anything, "sess", int64(1)).Return(nil, boom)
	repo.On("ListDrafts", mock.Anything, "sess").Return(nil, boom)
	repo.On("SetDraft", mock.Anything, mock.Anything).Return(boom)
	repo.On("ClearDraft", mock.Anything, "sess", int64(1)).Return(boom)

	assert.Nil(t, s.Get(ctx, "sess", 1))
	assert.NotNil(t, s.List(ctx, "sess"))

	draft, err := s.Save(ctx, "sess", 1, models.ActionCheckIn, "Kim", "")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "Kim", draft.User)

	assert.NotPanics(t, func() { s.Clear(ctx, "sess", 1) })
	repo.AssertExpectations(t)
}
