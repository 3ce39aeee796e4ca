package credits

import (
	"context"
	"time"

	"github.com/cuentia/server/internal/shared/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockService is a mock implementation of ServiceInterface.
type MockService struct {
	mock.Mock
}

func (m *MockService) EnsureAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Account), args.Error(1)
}

func (m *MockService) GetAccount(ctx context.Context, userID uuid.UUID) (*Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Account), args.Error(1)
}

func (m *MockService) CanAfford(ctx context.Context, userID uuid.UUID, cost int64) (bool, error) {
	args := m.Called(ctx, userID, cost)
	return args.Bool(0), args.Error(1)
}

func (m *MockService) Debit(ctx context.Context, req DebitRequest) (*Debit, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Debit), args.Error(1)
}

func (m *MockService) Confirm(ctx context.Context, debitID uuid.UUID) error {
	args := m.Called(ctx, debitID)
	return args.Error(0)
}

func (m *MockService) Rollback(ctx context.Context, debitID uuid.UUID, reason string) (*Debit, error) {
	args := m.Called(ctx, debitID, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Debit), args.Error(1)
}

func (m *MockService) ResetCycle(ctx context.Context, userID uuid.UUID, start time.Time) (bool, error) {
	args := m.Called(ctx, userID, start)
	return args.Bool(0), args.Error(1)
}

func (m *MockService) ChangePlan(ctx context.Context, userID uuid.UUID, plan PlanID, periodStart time.Time) error {
	args := m.Called(ctx, userID, plan, periodStart)
	return args.Error(0)
}

func (m *MockService) AddPurchasedCredits(ctx context.Context, userID uuid.UUID, credits int64, source, reference string) (bool, error) {
	args := m.Called(ctx, userID, credits, source, reference)
	return args.Bool(0), args.Error(1)
}

func (m *MockService) ListDebits(ctx context.Context, userID uuid.UUID, limit int) ([]*Debit, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Debit), args.Error(1)
}

func (m *MockService) SweepStaleDebits(ctx context.Context, olderThan time.Duration, limit int) ([]*Debit, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*Debit), args.Error(1)
}

// MockPublisher is a mock implementation of EventPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
