package credits

import (
	"net/http"
	"strconv"

	"github.com/cuentia/server/internal/shared/middleware"
	"github.com/cuentia/server/internal/shared/response"
	"github.com/gin-gonic/gin"
)

// ErrorMappings maps ledger errors to HTTP responses.
var ErrorMappings = []response.ErrorMapping{
	{Err: ErrInsufficientCredits, Status: http.StatusPaymentRequired, Code: "insufficient_credits", Message: "not enough credits for this operation"},
	{Err: ErrInvalidCost, Status: http.StatusBadRequest, Code: "invalid_cost"},
	{Err: ErrInvalidAmount, Status: http.StatusBadRequest, Code: "invalid_amount"},
	{Err: ErrUnknownPlan, Status: http.StatusBadRequest, Code: "unknown_plan"},
	{Err: ErrAccountNotFound, Status: http.StatusNotFound, Code: "account_not_found"},
	{Err: ErrDebitNotFound, Status: http.StatusNotFound, Code: "debit_not_found"},
	{Err: ErrDebitSettled, Status: http.StatusConflict, Code: "debit_settled"},
}

// Handler handles HTTP requests for credit balances.
type Handler struct {
	service ServiceInterface
}

// NewHandler creates a new credits handler.
func NewHandler(service ServiceInterface) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the credits routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	credits := r.Group("/credits")
	{
		credits.GET("", h.GetBalance)
		credits.GET("/debits", h.ListDebits)
	}
}

// GetBalance returns the caller's balance, creating the account on first access.
func (h *Handler) GetBalance(c *gin.Context) {
	account, err := h.service.EnsureAccount(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		response.HandleErrorWithDefault(c, err, ErrorMappings)
		return
	}
	c.JSON(http.StatusOK, account.ToResponse())
}

// ListDebits returns the caller's most recent debits.
func (h *Handler) ListDebits(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	debits, err := h.service.ListDebits(c.Request.Context(), middleware.GetUserID(c), limit)
	if err != nil {
		response.HandleErrorWithDefault(c, err, ErrorMappings)
		return
	}

	resp := &ListDebitsResponse{Debits: make([]*DebitResponse, len(debits))}
	for i, d := range debits {
		resp.Debits[i] = d.ToResponse()
	}
	c.JSON(http.StatusOK, resp)
}
