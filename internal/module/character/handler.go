package character

import (
	"net/http"

	"github.com/cuentia/server/internal/shared/middleware"
	"github.com/cuentia/server/internal/shared/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ErrorMappings maps character errors to HTTP responses.
var ErrorMappings = []response.ErrorMapping{
	{Err: ErrCharacterNotFound, Status: http.StatusNotFound, Code: "character_not_found"},
	{Err: ErrInvalidName, Status: http.StatusBadRequest, Code: "invalid_name"},
	{Err: ErrTooManyCharacters, Status: http.StatusConflict, Code: "too_many_characters"},
}

// Handler handles HTTP requests for characters.
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new character handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the character routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	chars := r.Group("/characters")
	{
		chars.GET("", h.List)
		chars.POST("", h.Create)
		chars.GET("/:id", h.Get)
		chars.PUT("/:id", h.Update)
		chars.DELETE("/:id", h.Delete)
	}
}

// Create handles character creation.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	char, err := h.service.Create(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.HandleErrorWithDefault(c, err, ErrorMappings)
		return
	}
	c.JSON(http.StatusCreated, char.ToResponse())
}

// List returns the caller's characters.
func (h *Handler) List(c *gin.Context) {
	chars, err := h.service.List(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.HandleErrorWithDefault(c, err, ErrorMappings)
		return
	}

	resp := &ListResponse{Characters: make([]*Response, len(chars))}
	for i, ch := range chars {
		resp.Characters[i] = ch.ToResponse()
	}
	c.JSON(http.StatusOK, resp)
}

// Get returns a single character.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	char, err := h.service.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		response.HandleErrorWithDefault(c, err, ErrorMappings)
		return
	}
	c.JSON(http.StatusOK, char.ToResponse())
}

// Update applies a partial update.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	char, err := h.service.Update(c.Request.Context(), middleware.GetUserID(c), id, &req)
	if err != nil {
		response.HandleErrorWithDefault(c, err, ErrorMappings)
		return
	}
	c.JSON(http.StatusOK, char.ToResponse())
}

// Delete removes a character.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		response.HandleErrorWithDefault(c, err, ErrorMappings)
		return
	}
	c.Status(http.StatusNoContent)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid character id")
		return uuid.Nil, false
	}
	return id, true
}
