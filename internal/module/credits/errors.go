package credits

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound     = errors.New("credit account not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	// ErrConcurrentModification means a balance check passed but the locked re-read no
	// longer affords the cost. It also matches ErrInsufficientCredits.
	ErrConcurrentModification = fmt.Errorf("concurrent modification: %w", ErrInsufficientCredits)
	ErrInvalidCost            = errors.New("cost must not be negative")
	ErrInvalidAmount          = errors.New("credit amount must be positive")
	ErrDebitNotFound          = errors.New("debit not found")
	ErrDebitSettled           = errors.New("debit already settled")
	ErrUnknownPlan            = errors.New("unknown plan")
)

// FailureKind classifies why a credit-consuming operation did not complete.
type FailureKind string

const (
	KindInsufficientCredit     FailureKind = "insufficient_credit"
	KindConcurrentModification FailureKind = "concurrent_modification"
	KindGatewayFailure         FailureKind = "gateway_failure"
	KindPersistenceFailure     FailureKind = "persistence_failure"
)

// OperationError carries a FailureKind alongside the underlying error.
type OperationError struct {
	Op   string
	Kind FailureKind
	Err  error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *OperationError) Unwrap() error {
	return e.Err
}

// Fail wraps err with an operation name and kind.
func Fail(op string, kind FailureKind, err error) *OperationError {
	return &OperationError{Op: op, Kind: kind, Err: err}
}

// KindOf returns the failure kind carried by err, or "" if there is none.
func KindOf(err error) FailureKind {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}
