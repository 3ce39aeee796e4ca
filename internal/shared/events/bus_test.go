package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBus_Publish(t *testing.T) {
	t.Run("dispatches to registered handlers in order", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		var calls []string

		bus.Register(NewHandlerFunc([]string{CreditsPurchasedType}, func(ctx context.Context, e Event) error {
			calls = append(calls, "first")
			return nil
		}))
		bus.Register(NewHandlerFunc([]string{CreditsPurchasedType, SubscriptionChangedType}, func(ctx context.Context, e Event) error {
			calls = append(calls, "second")
			return nil
		}))

		err := bus.Publish(context.Background(), NewCreditsPurchasedEvent(uuid.New(), 500, "cs_1"))
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second"}, calls)
	})

	t.Run("no handlers is not an error", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		assert.NoError(t, bus.Publish(context.Background(), NewDebitReconciledEvent(uuid.New(), uuid.New(), uuid.New())))
	})

	t.Run("handler failure is returned and others still run", func(t *testing.T) {
		bus := NewBus(zap.NewNop())
		boom := errors.New("boom")
		ran := false

		bus.Register(NewHandlerFunc([]string{SubscriptionChangedType}, func(ctx context.Context, e Event) error {
			return boom
		}))
		bus.Register(NewHandlerFunc([]string{SubscriptionChangedType}, func(ctx context.Context, e Event) error {
			ran = true
			return nil
		}))

		err := bus.Publish(context.Background(), NewSubscriptionChangedEvent(uuid.New(), "tier1", time.Now()))
		assert.ErrorIs(t, err, boom)
		assert.True(t, ran)
	})
}

func TestNewBaseEvent(t *testing.T) {
	userID := uuid.New()
	e := NewCreditsPurchasedEvent(userID, 1000, "cs_2")

	assert.Equal(t, CreditsPurchasedType, e.EventType())
	assert.Equal(t, userID, e.AggregateID())
	assert.NotEqual(t, uuid.Nil, e.EventID())
	assert.False(t, e.OccurredAt().IsZero())
}
