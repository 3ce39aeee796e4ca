package billing

// CheckoutRequest represents a checkout request.
type CheckoutRequest struct {
	Kind ProductKind `json:"kind" binding:"required,oneof=pack plan"`
	ID   string      `json:"id" binding:"required"`
}

// CheckoutResponse carries the hosted checkout URL.
type CheckoutResponse struct {
	URL string `json:"url"`
}
