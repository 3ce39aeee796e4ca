package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for credit data access.
type Repository interface {
	GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error)
	// CreateAccount inserts the account unless one already exists for the user.
	CreateAccount(ctx context.Context, account *Account) error
	GetDebit(ctx context.Context, id uuid.UUID) (*Debit, error)
	ListDebits(ctx context.Context, userID uuid.UUID, limit int) ([]*Debit, error)
	// ListStaleDebits returns pending debits created before the given time, oldest first.
	ListStaleDebits(ctx context.Context, before time.Time, limit int) ([]*Debit, error)

	// InTx runs fn in one database transaction. Rows read through the Tx locks
	// stay locked until fn returns; a non-nil error rolls everything back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside a ledger transaction.
type Tx interface {
	LockAccount(userID uuid.UUID) (*Account, error)
	SaveAccount(account *Account) error
	CreateDebit(debit *Debit) error
	LockDebit(id uuid.UUID) (*Debit, error)
	SaveDebit(debit *Debit) error
	// CreateGrant reports false when a grant with the same reference already exists.
	CreateGrant(grant *Grant) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new credits repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).First(&account, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &account, nil
}

func (r *repository) CreateAccount(ctx context.Context, account *Account) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(account).Error
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

func (r *repository) GetDebit(ctx context.Context, id uuid.UUID) (*Debit, error) {
	var debit Debit
	err := r.db.WithContext(ctx).First(&debit, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDebitNotFound
		}
		return nil, fmt.Errorf("get debit: %w", err)
	}
	return &debit, nil
}

func (r *repository) ListDebits(ctx context.Context, userID uuid.UUID, limit int) ([]*Debit, error) {
	var debits []*Debit
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&debits).Error
	if err != nil {
		return nil, fmt.Errorf("list debits: %w", err)
	}
	return debits, nil
}

func (r *repository) ListStaleDebits(ctx context.Context, before time.Time, limit int) ([]*Debit, error) {
	var debits []*Debit
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", DebitStatusPending, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&debits).Error
	if err != nil {
		return nil, fmt.Errorf("list stale debits: %w", err)
	}
	return debits, nil
}

func (r *repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{db: db})
	})
}

type gormTx struct {
	db *gorm.DB
}

func (t *gormTx) LockAccount(userID uuid.UUID) (*Account, error) {
	var account Account
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lock account: %w", err)
	}
	return &account, nil
}

func (t *gormTx) SaveAccount(account *Account) error {
	if err := t.db.Save(account).Error; err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	return nil
}

func (t *gormTx) CreateDebit(debit *Debit) error {
	if err := t.db.Create(debit).Error; err != nil {
		return fmt.Errorf("create debit: %w", err)
	}
	return nil
}

func (t *gormTx) LockDebit(id uuid.UUID) (*Debit, error) {
	var debit Debit
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&debit, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDebitNotFound
		}
		return nil, fmt.Errorf("lock debit: %w", err)
	}
	return &debit, nil
}

func (t *gormTx) SaveDebit(debit *Debit) error {
	if err := t.db.Save(debit).Error; err != nil {
		return fmt.Errorf("save debit: %w", err)
	}
	return nil
}

func (t *gormTx) CreateGrant(grant *Grant) (bool, error) {
	result := t.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "reference"}},
		DoNothing: true,
	}).Create(grant)
	if result.Error != nil {
		return false, fmt.Errorf("create grant: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}
