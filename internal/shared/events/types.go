package events

import (
	"time"

	"github.com/google/uuid"
)

// Event type names.
const (
	CreditsPurchasedType    = "CreditsPurchased"
	SubscriptionChangedType = "SubscriptionChanged"
	DebitReconciledType     = "DebitReconciled"
)

// CreditsPurchasedEvent is emitted when a one-off credit pack payment completes.
type CreditsPurchasedEvent struct {
	BaseEvent

	Credits int64 `json:"credits"`
	// Reference is the provider object that paid for the credits (checkout session id).
	Reference string `json:"reference"`
}

// NewCreditsPurchasedEvent creates a new CreditsPurchasedEvent.
func NewCreditsPurchasedEvent(userID uuid.UUID, credits int64, reference string) *CreditsPurchasedEvent {
	return &CreditsPurchasedEvent{
		BaseEvent: NewBaseEvent(CreditsPurchasedType, userID),
		Credits:   credits,
		Reference: reference,
	}
}

// SubscriptionChangedEvent carries the user's current plan and billing period start.
// PlanID is "none" when the user has no active subscription.
type SubscriptionChangedEvent struct {
	BaseEvent

	PlanID      string    `json:"plan_id"`
	PeriodStart time.Time `json:"period_start"`
}

// NewSubscriptionChangedEvent creates a new SubscriptionChangedEvent.
func NewSubscriptionChangedEvent(userID uuid.UUID, planID string, periodStart time.Time) *SubscriptionChangedEvent {
	return &SubscriptionChangedEvent{
		BaseEvent:   NewBaseEvent(SubscriptionChangedType, userID),
		PlanID:      planID,
		PeriodStart: periodStart,
	}
}

// DebitReconciledEvent is emitted when a stale pending debit is rolled back by the reconciler.
type DebitReconciledEvent struct {
	BaseEvent

	DebitID       uuid.UUID `json:"debit_id"`
	CorrelationID uuid.UUID `json:"correlation_id"`
}

// NewDebitReconciledEvent creates a new DebitReconciledEvent.
func NewDebitReconciledEvent(userID, debitID, correlationID uuid.UUID) *DebitReconciledEvent {
	return &DebitReconciledEvent{
		BaseEvent:     NewBaseEvent(DebitReconciledType, userID),
		DebitID:       debitID,
		CorrelationID: correlationID,
	}
}
