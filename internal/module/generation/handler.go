package generation

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/cuentia/server/internal/module/character"
	"github.com/cuentia/server/internal/module/credits"
	"github.com/cuentia/server/internal/module/pricing"
	"github.com/cuentia/server/internal/shared/middleware"
	"github.com/cuentia/server/internal/shared/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	maxImageBytes     = 10 << 20
	maxMultipartBytes = MaxReferenceImages*maxImageBytes + 1<<20
)

// ErrorMappings maps generation errors to HTTP responses.
var ErrorMappings = append([]response.ErrorMapping{
	{Err: ErrGenerationNotFound, Status: http.StatusNotFound, Code: "generation_not_found"},
	{Err: ErrInvalidRequest, Status: http.StatusBadRequest, Code: "invalid_request"},
	{Err: ErrTooManyImages, Status: http.StatusBadRequest, Code: "too_many_images"},
	{Err: pricing.ErrCostMismatch, Status: http.StatusConflict, Code: "cost_mismatch"},
	{Err: pricing.ErrUnsupportedIllustrationCount, Status: http.StatusBadRequest, Code: "unsupported_illustration_count"},
	{Err: pricing.ErrUnknownOperation, Status: http.StatusBadRequest, Code: "unknown_operation"},
	{Err: character.ErrCharacterNotFound, Status: http.StatusNotFound, Code: "character_not_found"},
}, credits.ErrorMappings...)

// Handler handles HTTP requests for generations.
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new generation handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the generation routes. guards run before the
// paid endpoints only.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, guards ...gin.HandlerFunc) {
	gens := r.Group("/generations")
	{
		gens.POST("/avatar", chain(guards, h.GenerateAvatar)...)
		gens.POST("/story", chain(guards, h.GenerateStory)...)
		gens.GET("/:id", h.Get)
	}
	r.POST("/credits/quote", h.Quote)
}

// Quote returns the server-side cost of an operation.
func (h *Handler) Quote(c *gin.Context) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.HandleErrorWithDefault(c, err, ErrorMappings)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// GenerateAvatar handles multipart avatar generation.
func (h *Handler) GenerateAvatar(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxMultipartBytes)

	form, err := c.MultipartForm()
	if err != nil {
		response.BadRequest(c, "invalid multipart form")
		return
	}

	in := &AvatarInput{
		Name:   formValue(form, "name"),
		Prompt: formValue(form, "prompt"),
	}
	if raw := formValue(form, "character_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid character_id")
			return
		}
		in.CharacterID = &id
	}
	if raw := formValue(form, "expected_cost"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid expected_cost")
			return
		}
		in.ExpectedCost = &n
	}

	headers := form.File["images"]
	if len(headers) > MaxReferenceImages {
		response.HandleErrorWithDefault(c, ErrTooManyImages, ErrorMappings)
		return
	}
	for _, fh := range headers {
		f, err := readFile(fh)
		if err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		in.Images = append(in.Images, f)
	}

	gen, err := h.service.GenerateAvatar(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		response.HandleErrorWithDefault(c, err, ErrorMappings)
		return
	}
	c.JSON(http.StatusCreated, gen)
}

// GenerateStory handles story generation.
func (h *Handler) GenerateStory(c *gin.Context) {
	var req StoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	gen, err := h.service.GenerateStory(c.Request.Context(), middleware.GetUserID(c), &req)
	if err != nil {
		response.HandleErrorWithDefault(c, err, ErrorMappings)
		return
	}
	c.JSON(http.StatusCreated, gen)
}

// Get returns a generation of the caller.
func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid generation id")
		return
	}

	gen, err := h.service.Get(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		response.HandleErrorWithDefault(c, err, ErrorMappings)
		return
	}
	c.JSON(http.StatusOK, gen)
}

func chain(guards []gin.HandlerFunc, h gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(guards)+1)
	return append(append(out, guards...), h)
}

func formValue(form *multipart.Form, key string) string {
	if vals := form.Value[key]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func readFile(fh *multipart.FileHeader) (File, error) {
	if fh.Size > maxImageBytes {
		return File{}, fmt.Errorf("image %q exceeds %d bytes", fh.Filename, maxImageBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return File{}, fmt.Errorf("open image %q: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return File{}, fmt.Errorf("read image %q: %w", fh.Filename, err)
	}
	if len(data) > maxImageBytes {
		return File{}, fmt.Errorf("image %q exceeds %d bytes", fh.Filename, maxImageBytes)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return File{Name: fh.Filename, ContentType: contentType, Data: data}, nil
}
