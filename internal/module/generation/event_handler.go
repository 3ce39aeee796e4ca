package generation

import (
	"context"
	"time"

	"github.com/cuentia/server/internal/shared/events"
	"go.uber.org/zap"
)

// EventHandler fails generations whose debit was reconciled.
type EventHandler struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewEventHandler creates a new generation event handler.
func NewEventHandler(repo Repository, logger *zap.Logger) *EventHandler {
	return &EventHandler{repo: repo, logger: logger, now: time.Now}
}

// Handles returns the list of event types this handler can process.
func (h *EventHandler) Handles() []string {
	return []string{events.DebitReconciledType}
}

// Handle processes the given event.
func (h *EventHandler) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.DebitReconciledEvent)
	if !ok {
		return nil
	}

	marked, err := h.repo.MarkFailed(ctx, e.CorrelationID, "abandoned: credits were refunded", h.now())
	if err != nil {
		return err
	}
	if marked {
		h.logger.Info("generation failed by reconciliation",
			zap.String("generation_id", e.CorrelationID.String()),
			zap.String("debit_id", e.DebitID.String()),
		)
	}
	return nil
}
