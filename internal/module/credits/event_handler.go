package credits

import (
	"context"

	"github.com/cuentia/server/internal/shared/events"
	"go.uber.org/zap"
)

// EventHandler applies billing events to the ledger.
type EventHandler struct {
	service ServiceInterface
	logger  *zap.Logger
}

// NewEventHandler creates a new credits event handler.
func NewEventHandler(service ServiceInterface, logger *zap.Logger) *EventHandler {
	return &EventHandler{service: service, logger: logger}
}

// Handles returns the list of event types this handler can process.
func (h *EventHandler) Handles() []string {
	return []string{
		events.CreditsPurchasedType,
		events.SubscriptionChangedType,
	}
}

// Handle processes the given event.
func (h *EventHandler) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case *events.CreditsPurchasedEvent:
		_, err := h.service.AddPurchasedCredits(ctx, e.UserID, e.Credits, "purchase", e.Reference)
		return err
	case *events.SubscriptionChangedEvent:
		plan, err := ParsePlan(e.PlanID)
		if err != nil {
			return err
		}
		return h.service.ChangePlan(ctx, e.UserID, plan, e.PeriodStart)
	default:
		h.logger.Warn("unhandled event type", zap.String("event_type", event.EventType()))
		return nil
	}
}
