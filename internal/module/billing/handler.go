package billing

import (
	"errors"
	"io"
	"net/http"

	"github.com/cuentia/server/internal/shared/middleware"
	"github.com/cuentia/server/internal/shared/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxWebhookBytes = 1 << 20

// ErrorMappings maps billing errors to HTTP responses.
var ErrorMappings = []response.ErrorMapping{
	{Err: ErrUnknownProduct, Status: http.StatusBadRequest, Code: "unknown_product"},
	{Err: ErrCheckoutDisabled, Status: http.StatusServiceUnavailable, Code: "billing_unavailable"},
}

// Handler handles billing HTTP requests.
type Handler struct {
	service ServiceInterface
	logger  *zap.Logger
}

// NewHandler creates a new billing handler.
func NewHandler(service ServiceInterface, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the authenticated billing routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/billing/checkout", h.CreateCheckout)
}

// RegisterWebhookRoutes registers the provider callbacks.
func (h *Handler) RegisterWebhookRoutes(r *gin.RouterGroup) {
	r.POST("/stripe", h.HandleStripeWebhook)
}

// CreateCheckout opens a hosted checkout session.
func (h *Handler) CreateCheckout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.CreateCheckout(c.Request.Context(), middleware.GetUserID(c), middleware.GetEmail(c), &req)
	if err != nil {
		response.HandleErrorWithDefault(c, err, ErrorMappings)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// HandleStripeWebhook handles incoming Stripe webhook events.
func (h *Handler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		response.BadRequest(c, "failed to read body")
		return
	}

	result, err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, ErrInvalidSignature) {
			h.logger.Warn("invalid webhook signature", zap.Error(err))
			response.Error(c, http.StatusBadRequest, "invalid_signature", "invalid signature")
			return
		}
		response.Error(c, http.StatusInternalServerError, "processing_failed", "processing failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": result})
}
