package generation

import (
	"time"

	"github.com/cuentia/server/internal/module/pricing"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Status represents the lifecycle of a generation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Generation records one paid call to the generation gateway.
type Generation struct {
	ID            uuid.UUID         `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID         `json:"user_id" gorm:"type:uuid;not null;index"`
	Operation     pricing.Operation `json:"operation" gorm:"type:varchar(16);not null"`
	Status        Status            `json:"status" gorm:"type:varchar(16);not null;index"`
	Cost          int64             `json:"cost" gorm:"not null"`
	DebitID       *uuid.UUID        `json:"debit_id,omitempty" gorm:"type:uuid;index"`
	ResultURL     string            `json:"result_url,omitempty" gorm:"column:result_url"`
	Error         string            `json:"error,omitempty" gorm:"type:text"`
	CharacterIDs  pq.StringArray    `json:"character_ids" gorm:"type:text[]"`
	ReferenceKeys pq.StringArray    `json:"-" gorm:"type:text[]"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
}

// TableName returns the database table name.
func (Generation) TableName() string {
	return "generations"
}

// IsTerminal reports whether the generation has finished.
func (g *Generation) IsTerminal() bool {
	return g.Status == StatusSucceeded || g.Status == StatusFailed
}

func (g *Generation) markSucceeded(url string, at time.Time) {
	g.Status = StatusSucceeded
	g.ResultURL = url
	g.UpdatedAt = at
	g.CompletedAt = &at
}

func (g *Generation) markFailed(reason string, at time.Time) {
	g.Status = StatusFailed
	g.Error = reason
	g.UpdatedAt = at
	g.CompletedAt = &at
}
