package generation

import (
	"github.com/cuentia/server/internal/module/pricing"
	"github.com/google/uuid"
)

// MaxReferenceImages caps the reference images accepted per avatar request.
const MaxReferenceImages = 4

// AvatarInput describes an avatar generation.
type AvatarInput struct {
	Name         string
	Prompt       string
	CharacterID  *uuid.UUID
	ExpectedCost *int64
	Images       []File
}

// StoryRequest represents a story generation request.
type StoryRequest struct {
	Title         string      `json:"title" binding:"required,max=200"`
	Prompt        string      `json:"prompt" binding:"required,max=4000"`
	Language      string      `json:"language" binding:"omitempty,max=16"`
	Illustrations int         `json:"illustrations" binding:"required"`
	CharacterIDs  []uuid.UUID `json:"character_ids"`
	ExpectedCost  *int64      `json:"expected_cost"`
}

// QuoteRequest asks for the cost of an operation.
type QuoteRequest struct {
	Operation     pricing.Operation `json:"operation" binding:"required"`
	Illustrations int               `json:"illustrations"`
	CharacterIDs  []uuid.UUID       `json:"character_ids"`
}

// QuoteResponse is the server-computed cost and whether the caller can pay it now.
type QuoteResponse struct {
	Cost       int64 `json:"cost"`
	Affordable bool  `json:"affordable"`
}
