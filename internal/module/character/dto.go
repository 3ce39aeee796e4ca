package character

// CreateRequest represents a character creation request.
type CreateRequest struct {
	Name              string `json:"name" binding:"required,max=120"`
	VisualDescription string `json:"visual_description" binding:"max=2000"`
}

// UpdateRequest represents a partial character update.
type UpdateRequest struct {
	Name              *string `json:"name" binding:"omitempty,max=120"`
	VisualDescription *string `json:"visual_description" binding:"omitempty,max=2000"`
}

// Response represents a character in API responses.
type Response struct {
	*Character
	HasOverride bool `json:"has_override"`
}

// ToResponse converts a Character to Response.
func (c *Character) ToResponse() *Response {
	return &Response{Character: c, HasOverride: c.HasDescriptionOverride()}
}

// ListResponse represents the response for listing characters.
type ListResponse struct {
	Characters []*Response `json:"characters"`
}
