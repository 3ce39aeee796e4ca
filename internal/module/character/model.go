package character

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Character is a user-created persona that can appear in stories.
type Character struct {
	ID                uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Name              string    `json:"name" gorm:"not null"`
	VisualDescription string    `json:"visual_description" gorm:"column:visual_description;type:text"` // custom override; empty means none
	AvatarURL         string    `json:"avatar_url,omitempty" gorm:"column:avatar_url"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Character) TableName() string {
	return "characters"
}

// HasDescriptionOverride reports whether the character carries a custom visual description.
func (c *Character) HasDescriptionOverride() bool {
	return strings.TrimSpace(c.VisualDescription) != ""
}

// CountOverrides returns how many of the given characters carry an override.
func CountOverrides(chars []*Character) int {
	n := 0
	for _, c := range chars {
		if c.HasDescriptionOverride() {
			n++
		}
	}
	return n
}
