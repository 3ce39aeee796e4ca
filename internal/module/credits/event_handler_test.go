package credits

import (
	"context"
	"testing"
	"time"

	"github.com/cuentia/server/internal/shared/events"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestEventHandler_Handle(t *testing.T) {
	userID := uuid.New()
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)

	t.Run("credits purchased", func(t *testing.T) {
		svc := new(MockService)
		svc.On("AddPurchasedCredits", mock.Anything, userID, int64(5000), "purchase", "cs_9").Return(true, nil)

		h := NewEventHandler(svc, zap.NewNop())
		err := h.Handle(context.Background(), events.NewCreditsPurchasedEvent(userID, 5000, "cs_9"))

		assert.NoError(t, err)
		svc.AssertExpectations(t)
	})

	t.Run("subscription changed", func(t *testing.T) {
		svc := new(MockService)
		svc.On("ChangePlan", mock.Anything, userID, PlanTier2, start).Return(nil)

		h := NewEventHandler(svc, zap.NewNop())
		err := h.Handle(context.Background(), events.NewSubscriptionChangedEvent(userID, "tier2", start))

		assert.NoError(t, err)
		svc.AssertExpectations(t)
	})

	t.Run("unknown plan", func(t *testing.T) {
		h := NewEventHandler(new(MockService), zap.NewNop())
		err := h.Handle(context.Background(), events.NewSubscriptionChangedEvent(userID, "gold", start))
		assert.ErrorIs(t, err, ErrUnknownPlan)
	})

	t.Run("registered types", func(t *testing.T) {
		h := NewEventHandler(new(MockService), zap.NewNop())
		assert.ElementsMatch(t, []string{events.CreditsPurchasedType, events.SubscriptionChangedType}, h.Handles())
	})
}
