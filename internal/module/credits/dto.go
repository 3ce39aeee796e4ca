package credits

import (
	"time"

	"github.com/google/uuid"
)

// BalanceResponse is the user-facing view of an account.
type BalanceResponse struct {
	PlanID            PlanID     `json:"plan_id"`
	MonthlyAllowance  int64      `json:"monthly_allowance"`
	MonthlyUsed       int64      `json:"monthly_used"`
	MonthlyAvailable  int64      `json:"monthly_available"`
	PurchasedCredits  int64      `json:"purchased_credits"`
	Available         int64      `json:"available"`
	BillingCycleStart *time.Time `json:"billing_cycle_start"`
}

// ToResponse converts an Account to BalanceResponse.
func (a *Account) ToResponse() *BalanceResponse {
	return &BalanceResponse{
		PlanID:            a.PlanID,
		MonthlyAllowance:  a.MonthlyAllowance(),
		MonthlyUsed:       a.MonthlyUsed,
		MonthlyAvailable:  a.MonthlyAvailable(),
		PurchasedCredits:  a.PurchasedCredits,
		Available:         a.Available(),
		BillingCycleStart: a.BillingCycleStart,
	}
}

// DebitResponse represents a debit in API responses.
type DebitResponse struct {
	ID            uuid.UUID   `json:"id"`
	Cost          int64       `json:"cost"`
	Split         Split       `json:"split"`
	Reason        string      `json:"reason"`
	CorrelationID uuid.UUID   `json:"correlation_id"`
	Status        DebitStatus `json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	SettledAt     *time.Time  `json:"settled_at,omitempty"`
}

// ToResponse converts a Debit to DebitResponse.
func (d *Debit) ToResponse() *DebitResponse {
	return &DebitResponse{
		ID:            d.ID,
		Cost:          d.Cost,
		Split:         d.Split(),
		Reason:        d.Reason,
		CorrelationID: d.CorrelationID,
		Status:        d.Status,
		CreatedAt:     d.CreatedAt,
		SettledAt:     d.SettledAt,
	}
}

// ListDebitsResponse represents the response for listing debits.
type ListDebitsResponse struct {
	Debits []*DebitResponse `json:"debits"`
}
