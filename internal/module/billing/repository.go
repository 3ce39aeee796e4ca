package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for billing data access.
type Repository interface {
	// GetWebhookEvent returns nil when the event has not been seen.
	GetWebhookEvent(ctx context.Context, eventID string) (*WebhookEvent, error)
	CreateWebhookEvent(ctx context.Context, event *WebhookEvent) error
	MarkWebhookEventProcessed(ctx context.Context, eventID string, processErr error) error

	LinkCustomer(ctx context.Context, customerID string, userID uuid.UUID) error
	GetCustomerUser(ctx context.Context, customerID string) (uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new billing repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetWebhookEvent(ctx context.Context, eventID string) (*WebhookEvent, error) {
	var ev WebhookEvent
	err := r.db.WithContext(ctx).Where("event_id = ?", eventID).First(&ev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get webhook event: %w", err)
	}
	return &ev, nil
}

func (r *repository) CreateWebhookEvent(ctx context.Context, event *WebhookEvent) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(event).Error
	if err != nil {
		return fmt.Errorf("create webhook event: %w", err)
	}
	return nil
}

func (r *repository) MarkWebhookEventProcessed(ctx context.Context, eventID string, processErr error) error {
	updates := map[string]any{
		"processed":    true,
		"processed_at": time.Now(),
		"error":        nil,
	}
	if processErr != nil {
		updates["error"] = processErr.Error()
	}
	err := r.db.WithContext(ctx).
		Model(&WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	return nil
}

func (r *repository) LinkCustomer(ctx context.Context, customerID string, userID uuid.UUID) error {
	now := time.Now()
	link := &CustomerLink{CustomerID: customerID, UserID: userID, CreatedAt: now, UpdatedAt: now}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "updated_at"}),
		}).
		Create(link).Error
	if err != nil {
		return fmt.Errorf("link customer: %w", err)
	}
	return nil
}

func (r *repository) GetCustomerUser(ctx context.Context, customerID string) (uuid.UUID, error) {
	var link CustomerLink
	err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, ErrCustomerNotLinked
		}
		return uuid.Nil, fmt.Errorf("get customer link: %w", err)
	}
	return link.UserID, nil
}
