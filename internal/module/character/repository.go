package character

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for character data access.
type Repository interface {
	Create(ctx context.Context, c *Character) error
	GetByID(ctx context.Context, id uuid.UUID) (*Character, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Character, error)
	ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Character, error)
	Update(ctx context.Context, c *Character) error
	UpdateAvatarURL(ctx context.Context, userID, id uuid.UUID, url string) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new character repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, c *Character) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Character, error) {
	var c Character
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCharacterNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Character, error) {
	var chars []*Character
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&chars).Error
	return chars, err
}

func (r *repository) ListByIDs(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]*Character, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var chars []*Character
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&chars).Error
	return chars, err
}

func (r *repository) Update(ctx context.Context, c *Character) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *repository) UpdateAvatarURL(ctx context.Context, userID, id uuid.UUID, url string) error {
	res := r.db.WithContext(ctx).
		Model(&Character{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("avatar_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCharacterNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&Character{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCharacterNotFound
	}
	return nil
}
