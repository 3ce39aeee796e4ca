package credits

import (
	"context"
	"sync"
	"time"

	"github.com/cuentia/server/internal/shared/config"
	"github.com/cuentia/server/internal/shared/events"
	"go.uber.org/zap"
)

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Reconciler periodically rolls back debits whose operation never reported back,
// e.g. because the process died between the debit and the gateway outcome.
type Reconciler struct {
	service    ServiceInterface
	publisher  EventPublisher
	interval   time.Duration
	staleAfter time.Duration
	batch      int
	logger     *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewReconciler creates a new reconciler. A non-positive interval disables Start.
func NewReconciler(service ServiceInterface, publisher EventPublisher, cfg *config.CreditsConfig, logger *zap.Logger) *Reconciler {
	batch := cfg.ReconcileBatch
	if batch <= 0 {
		batch = 100
	}
	return &Reconciler{
		service:    service,
		publisher:  publisher,
		interval:   cfg.ReconcileInterval,
		staleAfter: cfg.StaleDebitAfter,
		batch:      batch,
		logger:     logger,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the background loop.
func (r *Reconciler) Start() {
	if r.interval <= 0 {
		close(r.done)
		r.logger.Info("debit reconciler disabled")
		return
	}
	go r.loop()
}

// Stop stops the loop and waits for an in-flight sweep to finish.
func (r *Reconciler) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
	<-r.done
}

func (r *Reconciler) loop() {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.interval)
			if _, err := r.RunOnce(ctx); err != nil {
				r.logger.Error("debit reconciliation failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// RunOnce sweeps one batch of stale debits and announces each rollback.
func (r *Reconciler) RunOnce(ctx context.Context) (int, error) {
	debits, err := r.service.SweepStaleDebits(ctx, r.staleAfter, r.batch)
	for _, d := range debits {
		event := events.NewDebitReconciledEvent(d.UserID, d.ID, d.CorrelationID)
		if perr := r.publisher.Publish(ctx, event); perr != nil {
			r.logger.Warn("publish debit reconciled",
				zap.String("debit_id", d.ID.String()),
				zap.Error(perr),
			)
		}
	}
	if len(debits) > 0 {
		r.logger.Info("stale debits rolled back", zap.Int("count", len(debits)))
	}
	return len(debits), err
}
