package generation

import (
	"errors"
	"fmt"
)

var (
	ErrGenerationNotFound   = errors.New("generation not found")
	ErrInvalidRequest       = errors.New("invalid generation request")
	ErrTooManyImages        = errors.New("too many reference images")
	ErrGatewayNotConfigured = errors.New("generation gateway not configured")
	ErrMalformedResponse    = errors.New("malformed gateway response")
	ErrResponseTooLarge     = errors.New("gateway response too large")
	ErrCircuitOpen          = errors.New("generation gateway unavailable")
)

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway error (status %d): %s", e.StatusCode, e.Body)
}
