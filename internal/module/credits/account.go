package credits

import (
	"time"

	"github.com/google/uuid"
)

// Account is a user's credit balance. The monthly allowance is derived from PlanID
// and never stored.
type Account struct {
	UserID            uuid.UUID  `gorm:"type:uuid;primaryKey"`
	PlanID            PlanID     `gorm:"type:varchar(16);not null;default:''"`
	MonthlyUsed       int64      `gorm:"not null;default:0"`
	PurchasedCredits  int64      `gorm:"not null;default:0"`
	BillingCycleStart *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName returns the database table name.
func (Account) TableName() string {
	return "credit_accounts"
}

// MonthlyAllowance returns the allowance of the account's plan.
func (a *Account) MonthlyAllowance() int64 {
	return a.PlanID.MonthlyAllowance()
}

// MonthlyAvailable returns the unspent part of the allowance, never negative.
func (a *Account) MonthlyAvailable() int64 {
	return max(0, a.MonthlyAllowance()-a.MonthlyUsed)
}

// Available returns the total spendable credit.
func (a *Account) Available() int64 {
	return a.MonthlyAvailable() + a.PurchasedCredits
}

// InCycle reports whether the account's current billing cycle starts at start.
func (a *Account) InCycle(start *time.Time) bool {
	return sameInstant(a.BillingCycleStart, start)
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
