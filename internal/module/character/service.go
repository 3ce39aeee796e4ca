package character

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxPerUser caps how many characters a single user may keep.
const MaxPerUser = 50

// ServiceInterface defines character operations.
type ServiceInterface interface {
	Create(ctx context.Context, userID uuid.UUID, req *CreateRequest) (*Character, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*Character, error)
	List(ctx context.Context, userID uuid.UUID) ([]*Character, error)
	Update(ctx context.Context, userID, id uuid.UUID, req *UpdateRequest) (*Character, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	GetOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Character, error)
	SetAvatarURL(ctx context.Context, userID, id uuid.UUID, url string) error
}

// Service implements character management.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

// NewService creates a new character service.
func NewService(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Create stores a new character for the user.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, req *CreateRequest) (*Character, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	existing, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list characters: %w", err)
	}
	if len(existing) >= MaxPerUser {
		return nil, ErrTooManyCharacters
	}

	now := time.Now()
	c := &Character{
		ID:                uuid.New(),
		UserID:            userID,
		Name:              name,
		VisualDescription: strings.TrimSpace(req.VisualDescription),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create character: %w", err)
	}

	s.logger.Info("character created",
		zap.String("user_id", userID.String()),
		zap.String("character_id", c.ID.String()),
	)
	return c, nil
}

// Get returns a character owned by the user. Characters owned by
// someone else are reported as not found.
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*Character, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, ErrCharacterNotFound
	}
	return c, nil
}

// List returns all characters of the user.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*Character, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, req *UpdateRequest) (*Character, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrInvalidName
		}
		c.Name = name
	}
	if req.VisualDescription != nil {
		c.VisualDescription = strings.TrimSpace(*req.VisualDescription)
	}
	c.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update character: %w", err)
	}
	return c, nil
}

// Delete removes a character owned by the user.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

// GetOwned loads the given characters, failing if any is missing or owned by someone else.
// Duplicate ids are collapsed.
func (s *Service) GetOwned(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Character, error) {
	unique := dedupe(ids)
	if len(unique) == 0 {
		return nil, nil
	}

	chars, err := s.repo.ListByIDs(ctx, userID, unique)
	if err != nil {
		return nil, fmt.Errorf("load characters: %w", err)
	}
	if len(chars) != len(unique) {
		return nil, ErrCharacterNotFound
	}
	return chars, nil
}

// SetAvatarURL records a generated avatar on the character.
func (s *Service) SetAvatarURL(ctx context.Context, userID, id uuid.UUID, url string) error {
	return s.repo.UpdateAvatarURL(ctx, userID, id, url)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
