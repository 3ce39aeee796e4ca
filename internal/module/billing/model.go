package billing

import (
	"time"

	"github.com/google/uuid"
)

// WebhookEvent is a stored provider event, kept for idempotent processing.
type WebhookEvent struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	EventID     string     `gorm:"uniqueIndex;not null"`
	Type        string     `gorm:"not null"`
	Payload     string     `gorm:"type:jsonb"`
	Processed   bool       `gorm:"default:false"`
	ProcessedAt *time.Time
	Error       *string
	CreatedAt   time.Time
}

// TableName returns the database table name.
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// Done reports whether the event was processed successfully.
func (e *WebhookEvent) Done() bool {
	return e.Processed && e.Error == nil
}

// CustomerLink maps a Stripe customer to a user.
type CustomerLink struct {
	CustomerID string    `gorm:"primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;not null;index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the database table name.
func (CustomerLink) TableName() string {
	return "billing_customers"
}
