package billing

import "errors"

var (
	ErrInvalidSignature  = errors.New("invalid webhook signature")
	ErrMissingUser       = errors.New("event carries no user")
	ErrInvalidMetadata   = errors.New("invalid checkout metadata")
	ErrCustomerNotLinked = errors.New("stripe customer not linked to a user")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrCheckoutDisabled  = errors.New("checkout is not configured")
)
