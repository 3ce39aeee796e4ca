package generation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for generation data access.
type Repository interface {
	Create(ctx context.Context, g *Generation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Generation, error)
	Update(ctx context.Context, g *Generation) error
	// MarkFailed fails a generation that is still pending and reports whether it did.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new generation repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, g *Generation) error {
	return r.db.WithContext(ctx).Create(g).Error
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Generation, error) {
	var g Generation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&g).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGenerationNotFound
		}
		return nil, err
	}
	return &g, nil
}

func (r *repository) Update(ctx context.Context, g *Generation) error {
	return r.db.WithContext(ctx).Save(g).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, reason string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Generation{}).
		Where("id = ? AND status = ?", id, StatusPending).
		Updates(map[string]any{
			"status":       StatusFailed,
			"error":        reason,
			"updated_at":   at,
			"completed_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
