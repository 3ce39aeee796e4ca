package character

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockRepository is a mock implementation of Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, c *Character) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*Character, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Character), args.Error(1)
}

func (m *MockRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Character, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Character), args.Error(1)
}

func (m *MockRepository) ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Character, error) {
	args := m.Called(ctx, userID, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Character), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, c *Character) error {
	return m.Called(ctx, c).Error(0)
}

func (m *MockRepository) UpdateAvatarURL(ctx context.Context, userID, id uuid.UUID, url string) error {
	return m.Called(ctx, userID, id, url).Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func TestCharacter_HasDescriptionOverride(t *testing.T) {
	assert.False(t, (&Character{}).HasDescriptionOverride())
	assert.False(t, (&Character{VisualDescription: "   "}).HasDescriptionOverride())
	assert.True(t, (&Character{VisualDescription: "red scarf, freckles"}).HasDescriptionOverride())

	chars := []*Character{
		{VisualDescription: "tall"},
		{},
		{VisualDescription: "curly hair"},
	}
	assert.Equal(t, 2, CountOverrides(chars))
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListByUser", ctx, userID).Return([]*Character{}, nil)
		repo.On("Create", ctx, mock.MatchedBy(func(c *Character) bool {
			return c.UserID == userID && c.Name == "Luna" && c.VisualDescription == "silver cape"
		})).Return(nil)

		svc := NewService(repo, zap.NewNop())
		c, err := svc.Create(ctx, userID, &CreateRequest{Name: "  Luna ", VisualDescription: " silver cape "})

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, c.ID)
		repo.AssertExpectations(t)
	})

	t.Run("blank name", func(t *testing.T) {
		svc := NewService(new(MockRepository), zap.NewNop())
		_, err := svc.Create(ctx, userID, &CreateRequest{Name: "  "})
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("limit reached", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListByUser", ctx, userID).Return(make([]*Character, MaxPerUser), nil)

		svc := NewService(repo, zap.NewNop())
		_, err := svc.Create(ctx, userID, &CreateRequest{Name: "Max"})
		assert.ErrorIs(t, err, ErrTooManyCharacters)
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	id := uuid.New()

	t.Run("owned", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByID", ctx, id).Return(&Character{ID: id, UserID: userID}, nil)

		c, err := NewService(repo, zap.NewNop()).Get(ctx, userID, id)
		require.NoError(t, err)
		assert.Equal(t, id, c.ID)
	})

	t.Run("owned by someone else", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("GetByID", ctx, id).Return(&Character{ID: id, UserID: uuid.New()}, nil)

		_, err := NewService(repo, zap.NewNop()).Get(ctx, userID, id)
		assert.ErrorIs(t, err, ErrCharacterNotFound)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	id := uuid.New()

	repo := new(MockRepository)
	repo.On("GetByID", ctx, id).Return(&Character{ID: id, UserID: userID, Name: "Old", VisualDescription: "hat"}, nil)
	repo.On("Update", ctx, mock.Anything).Return(nil)

	empty := ""
	c, err := NewService(repo, zap.NewNop()).Update(ctx, userID, id, &UpdateRequest{VisualDescription: &empty})

	require.NoError(t, err)
	assert.Equal(t, "Old", c.Name)
	assert.False(t, c.HasDescriptionOverride())
}

func TestService_GetOwned(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	a, b := uuid.New(), uuid.New()

	t.Run("empty", func(t *testing.T) {
		chars, err := NewService(new(MockRepository), zap.NewNop()).GetOwned(ctx, userID, nil)
		require.NoError(t, err)
		assert.Empty(t, chars)
	})

	t.Run("dedupes ids", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListByIDs", ctx, userID, []uuid.UUID{a, b}).
			Return([]*Character{{ID: a, UserID: userID}, {ID: b, UserID: userID}}, nil)

		chars, err := NewService(repo, zap.NewNop()).GetOwned(ctx, userID, []uuid.UUID{a, b, a})
		require.NoError(t, err)
		assert.Len(t, chars, 2)
	})

	t.Run("missing character", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListByIDs", ctx, userID, []uuid.UUID{a, b}).
			Return([]*Character{{ID: a, UserID: userID}}, nil)

		_, err := NewService(repo, zap.NewNop()).GetOwned(ctx, userID, []uuid.UUID{a, b})
		assert.ErrorIs(t, err, ErrCharacterNotFound)
	})

	t.Run("store failure", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("ListByIDs", ctx, userID, []uuid.UUID{a}).Return(nil, errors.New("db down"))

		_, err := NewService(repo, zap.NewNop()).GetOwned(ctx, userID, []uuid.UUID{a})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrCharacterNotFound)
	})
}
