package credits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cuentia/server/internal/shared/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultDebitListLimit = 20
	maxDebitListLimit     = 100
)

// ServiceInterface defines the credit ledger operations.
type ServiceInterface interface {
	EnsureAccount(ctx context.Context, userID uuid.UUID) (*Account, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error)
	CanAfford(ctx context.Context, userID uuid.UUID, cost int64) (bool, error)
	Debit(ctx context.Context, req DebitRequest) (*Debit, error)
	Confirm(ctx context.Context, debitID uuid.UUID) error
	Rollback(ctx context.Context, debitID uuid.UUID, reason string) (*Debit, error)
	ResetCycle(ctx context.Context, userID uuid.UUID, start time.Time) (bool, error)
	ChangePlan(ctx context.Context, userID uuid.UUID, plan PlanID, periodStart time.Time) error
	AddPurchasedCredits(ctx context.Context, userID uuid.UUID, credits int64, source, reference string) (bool, error)
	ListDebits(ctx context.Context, userID uuid.UUID, limit int) ([]*Debit, error)
	SweepStaleDebits(ctx context.Context, olderThan time.Duration, limit int) ([]*Debit, error)
}

// DebitRequest describes a debit. CorrelationID links it to the operation it pays for.
type DebitRequest struct {
	UserID        uuid.UUID
	Cost          int64
	Reason        string
	CorrelationID uuid.UUID
}

// Service implements the credit ledger on top of a transactional Repository.
// Every balance change re-reads the account row under lock inside one transaction.
type Service struct {
	repo    Repository
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a new credits service. m may be nil.
func NewService(repo Repository, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// EnsureAccount returns the user's account, creating an empty one on first access.
func (s *Service) EnsureAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	account, err := s.repo.GetAccount(ctx, userID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return nil, err
	}

	if err := s.repo.CreateAccount(ctx, &Account{UserID: userID}); err != nil {
		return nil, err
	}
	s.logger.Info("credit account created", zap.String("user_id", userID.String()))

	return s.repo.GetAccount(ctx, userID)
}

func (s *Service) GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	return s.repo.GetAccount(ctx, userID)
}

// CanAfford is a read-only pre-check. Debit re-validates under lock.
func (s *Service) CanAfford(ctx context.Context, userID uuid.UUID, cost int64) (bool, error) {
	if cost < 0 {
		return false, ErrInvalidCost
	}
	account, err := s.EnsureAccount(ctx, userID)
	if err != nil {
		return false, Fail("can afford", KindPersistenceFailure, err)
	}
	return CanAfford(account, cost), nil
}

// Debit takes req.Cost from the account and records a pending Debit.
// Callers are expected to have checked CanAfford, so a locked re-read that no longer
// affords the cost is reported as KindConcurrentModification and nothing changes.
func (s *Service) Debit(ctx context.Context, req DebitRequest) (*Debit, error) {
	const op = "debit"

	if req.Cost < 0 {
		return nil, ErrInvalidCost
	}
	if _, err := s.EnsureAccount(ctx, req.UserID); err != nil {
		s.metrics.RecordDebit("error", 0, 0)
		return nil, Fail(op, KindPersistenceFailure, err)
	}

	var debit *Debit
	err := s.repo.InTx(ctx, func(tx Tx) error {
		account, err := tx.LockAccount(req.UserID)
		if err != nil {
			return err
		}

		split, err := ApplyDebit(account, req.Cost)
		if err != nil {
			return err
		}
		if err := tx.SaveAccount(account); err != nil {
			return err
		}

		debit = &Debit{
			ID:             uuid.New(),
			UserID:         req.UserID,
			Cost:           req.Cost,
			MonthlyDebit:   split.Monthly,
			PurchasedDebit: split.Purchased,
			CycleStart:     copyTime(account.BillingCycleStart),
			Reason:         req.Reason,
			CorrelationID:  req.CorrelationID,
			Status:         DebitStatusPending,
			CreatedAt:      s.now(),
		}
		return tx.CreateDebit(debit)
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrInsufficientCredits):
		s.metrics.RecordDebit("conflict", 0, 0)
		s.logger.Warn("debit rejected on locked re-read",
			zap.String("user_id", req.UserID.String()),
			zap.Int64("cost", req.Cost),
		)
		return nil, Fail(op, KindConcurrentModification, ErrConcurrentModification)
	default:
		s.metrics.RecordDebit("error", 0, 0)
		return nil, Fail(op, KindPersistenceFailure, err)
	}

	s.metrics.RecordDebit("applied", debit.MonthlyDebit, debit.PurchasedDebit)
	s.logger.Info("credits debited",
		zap.String("user_id", req.UserID.String()),
		zap.String("debit_id", debit.ID.String()),
		zap.String("reason", req.Reason),
		zap.Int64("monthly", debit.MonthlyDebit),
		zap.Int64("purchased", debit.PurchasedDebit),
	)
	return debit, nil
}

// Confirm marks a pending debit as fulfilled. Confirming twice is a no-op;
// confirming a rolled back debit returns ErrDebitSettled.
func (s *Service) Confirm(ctx context.Context, debitID uuid.UUID) error {
	err := s.repo.InTx(ctx, func(tx Tx) error {
		debit, err := tx.LockDebit(debitID)
		if err != nil {
			return err
		}

		switch debit.Status {
		case DebitStatusConfirmed:
			return nil
		case DebitStatusRolledBack:
			return ErrDebitSettled
		}

		now := s.now()
		debit.Status = DebitStatusConfirmed
		debit.SettledAt = &now
		return tx.SaveDebit(debit)
	})
	if err != nil {
		if errors.Is(err, ErrDebitNotFound) || errors.Is(err, ErrDebitSettled) {
			return fmt.Errorf("confirm %s: %w", debitID, err)
		}
		return Fail("confirm", KindPersistenceFailure, err)
	}
	return nil
}

// Rollback returns a pending debit's credits to the account against its freshly
// locked state. It is at-most-once: the debit status flips in the same transaction,
// so a second call returns ErrDebitSettled and changes nothing.
func (s *Service) Rollback(ctx context.Context, debitID uuid.UUID, reason string) (*Debit, error) {
	var debit *Debit
	err := s.repo.InTx(ctx, func(tx Tx) error {
		var err error
		debit, err = tx.LockDebit(debitID)
		if err != nil {
			return err
		}
		if !debit.IsPending() {
			return ErrDebitSettled
		}

		account, err := tx.LockAccount(debit.UserID)
		if err != nil {
			return err
		}
		ApplyRollback(account, debit.Split(), debit.CycleStart)
		if err := tx.SaveAccount(account); err != nil {
			return err
		}

		now := s.now()
		debit.Status = DebitStatusRolledBack
		debit.SettledAt = &now
		return tx.SaveDebit(debit)
	})
	if err != nil {
		if errors.Is(err, ErrDebitNotFound) || errors.Is(err, ErrDebitSettled) {
			return nil, fmt.Errorf("rollback %s: %w", debitID, err)
		}
		return nil, Fail("rollback", KindPersistenceFailure, err)
	}

	s.metrics.RecordRollback(reason)
	s.logger.Info("debit rolled back",
		zap.String("user_id", debit.UserID.String()),
		zap.String("debit_id", debit.ID.String()),
		zap.String("reason", reason),
		zap.Int64("monthly", debit.MonthlyDebit),
		zap.Int64("purchased", debit.PurchasedDebit),
	)
	return debit, nil
}

// ResetCycle starts a new billing cycle if start differs from the stored cycle start.
// It reports whether a reset happened.
func (s *Service) ResetCycle(ctx context.Context, userID uuid.UUID, start time.Time) (bool, error) {
	if _, err := s.EnsureAccount(ctx, userID); err != nil {
		return false, Fail("reset cycle", KindPersistenceFailure, err)
	}

	var reset bool
	err := s.repo.InTx(ctx, func(tx Tx) error {
		account, err := tx.LockAccount(userID)
		if err != nil {
			return err
		}
		if reset = ApplyCycleReset(account, start); !reset {
			return nil
		}
		return tx.SaveAccount(account)
	})
	if err != nil {
		return false, Fail("reset cycle", KindPersistenceFailure, err)
	}

	if reset {
		s.logger.Info("billing cycle reset",
			zap.String("user_id", userID.String()),
			zap.Time("cycle_start", start),
		)
	}
	return reset, nil
}

// ChangePlan sets the account's plan and, when periodStart is a new cycle, resets
// monthly usage, in one transaction. A zero periodStart only changes the plan.
func (s *Service) ChangePlan(ctx context.Context, userID uuid.UUID, plan PlanID, periodStart time.Time) error {
	if _, ok := monthlyAllowances[plan]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPlan, plan)
	}
	if _, err := s.EnsureAccount(ctx, userID); err != nil {
		return Fail("change plan", KindPersistenceFailure, err)
	}

	var previous PlanID
	var reset bool
	err := s.repo.InTx(ctx, func(tx Tx) error {
		account, err := tx.LockAccount(userID)
		if err != nil {
			return err
		}
		previous = account.PlanID
		account.PlanID = plan
		reset = ApplyCycleReset(account, periodStart)
		return tx.SaveAccount(account)
	})
	if err != nil {
		return Fail("change plan", KindPersistenceFailure, err)
	}

	s.logger.Info("plan changed",
		zap.String("user_id", userID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(plan)),
		zap.Bool("cycle_reset", reset),
	)
	return nil
}

// AddPurchasedCredits adds non-expiring credits. reference identifies the purchase;
// a reference seen before is ignored and reported as not applied.
func (s *Service) AddPurchasedCredits(ctx context.Context, userID uuid.UUID, credits int64, source, reference string) (bool, error) {
	if credits <= 0 {
		return false, ErrInvalidAmount
	}
	if _, err := s.EnsureAccount(ctx, userID); err != nil {
		return false, Fail("add credits", KindPersistenceFailure, err)
	}

	var applied bool
	err := s.repo.InTx(ctx, func(tx Tx) error {
		created, err := tx.CreateGrant(&Grant{
			ID:        uuid.New(),
			UserID:    userID,
			Credits:   credits,
			Source:    source,
			Reference: reference,
			CreatedAt: s.now(),
		})
		if err != nil || !created {
			return err
		}

		account, err := tx.LockAccount(userID)
		if err != nil {
			return err
		}
		account.PurchasedCredits += credits
		if err := tx.SaveAccount(account); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, Fail("add credits", KindPersistenceFailure, err)
	}

	if applied {
		s.metrics.RecordGrant(source, credits)
		s.logger.Info("purchased credits added",
			zap.String("user_id", userID.String()),
			zap.Int64("credits", credits),
			zap.String("reference", reference),
		)
	} else {
		s.logger.Info("duplicate credit grant ignored", zap.String("reference", reference))
	}
	return applied, nil
}

func (s *Service) ListDebits(ctx context.Context, userID uuid.UUID, limit int) ([]*Debit, error) {
	if limit <= 0 {
		limit = defaultDebitListLimit
	}
	if limit > maxDebitListLimit {
		limit = maxDebitListLimit
	}
	return s.repo.ListDebits(ctx, userID, limit)
}

// SweepStaleDebits rolls back debits that stayed pending longer than olderThan and
// returns the ones it rolled back. Debits settled concurrently are skipped.
func (s *Service) SweepStaleDebits(ctx context.Context, olderThan time.Duration, limit int) ([]*Debit, error) {
	stale, err := s.repo.ListStaleDebits(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}

	var rolledBack []*Debit
	var errs []error
	for _, d := range stale {
		debit, err := s.Rollback(ctx, d.ID, "stale")
		if err != nil {
			if errors.Is(err, ErrDebitSettled) {
				continue
			}
			errs = append(errs, err)
			continue
		}
		s.metrics.RecordReconciled()
		rolledBack = append(rolledBack, debit)
	}
	return rolledBack, errors.Join(errs...)
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// Compile-time check
var _ ServiceInterface = (*Service)(nil)
