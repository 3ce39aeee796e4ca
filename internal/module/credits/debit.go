package credits

import (
	"time"

	"github.com/google/uuid"
)

// DebitStatus is the settlement state of a debit.
type DebitStatus string

const (
	DebitStatusPending    DebitStatus = "pending"
	DebitStatusConfirmed  DebitStatus = "confirmed"
	DebitStatusRolledBack DebitStatus = "rolled_back"
)

// Split records how a debit was taken from the two pools.
type Split struct {
	Monthly   int64 `json:"monthly"`
	Purchased int64 `json:"purchased"`
}

// Total returns the credits taken.
func (s Split) Total() int64 {
	return s.Monthly + s.Purchased
}

// Debit is the durable record of one debit. It is written in the same transaction
// as the balance change, so a crash between debit and settlement leaves a pending
// row for the reconciler instead of silently lost credits.
type Debit struct {
	ID             uuid.UUID   `gorm:"type:uuid;primaryKey"`
	UserID         uuid.UUID   `gorm:"type:uuid;not null;index"`
	Cost           int64       `gorm:"not null"`
	MonthlyDebit   int64       `gorm:"not null"`
	PurchasedDebit int64       `gorm:"not null"`
	CycleStart     *time.Time
	Reason         string      `gorm:"type:varchar(32);not null"`
	CorrelationID  uuid.UUID   `gorm:"type:uuid;index"`
	Status         DebitStatus `gorm:"type:varchar(16);not null;index:idx_credit_debits_status_created,priority:1"`
	CreatedAt      time.Time   `gorm:"index:idx_credit_debits_status_created,priority:2"`
	SettledAt      *time.Time
}

// TableName returns the database table name.
func (Debit) TableName() string {
	return "credit_debits"
}

// Split returns the pool split of the debit.
func (d *Debit) Split() Split {
	return Split{Monthly: d.MonthlyDebit, Purchased: d.PurchasedDebit}
}

// IsPending reports whether the debit still awaits confirm or rollback.
func (d *Debit) IsPending() bool {
	return d.Status == DebitStatusPending
}

// Grant records credits added to an account. Reference is unique so that a
// replayed purchase notification cannot add the same credits twice.
type Grant struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Credits   int64     `gorm:"not null"`
	Source    string    `gorm:"type:varchar(32);not null"`
	Reference string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	CreatedAt time.Time
}

// TableName returns the database table name.
func (Grant) TableName() string {
	return "credit_grants"
}
