package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cuentia/server/internal/shared/events"
	"github.com/cuentia/server/internal/shared/metrics"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const (
	metadataUserID  = "user_id"
	metadataCredits = "credits"
	metadataPack    = "pack_id"

	planNone = "none"
)

// WebhookResult describes what happened to a delivered event.
type WebhookResult string

const (
	ResultProcessed WebhookResult = "processed"
	ResultDuplicate WebhookResult = "already_processed"
	ResultIgnored   WebhookResult = "ignored"
	ResultRejected  WebhookResult = "rejected"
)

// EventPublisher publishes domain events.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// ServiceInterface defines billing operations.
type ServiceInterface interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error)
	CreateCheckout(ctx context.Context, userID uuid.UUID, email string, req *CheckoutRequest) (*CheckoutResponse, error)
}

// Service turns Stripe events into ledger events.
type Service struct {
	repo          Repository
	catalog       *Catalog
	checkout      CheckoutProvider
	publisher     EventPublisher
	webhookSecret string
	metrics       *metrics.Metrics
	logger        *zap.Logger
}

// NewService creates a new billing service. checkout may be nil.
func NewService(
	repo Repository,
	catalog *Catalog,
	checkout CheckoutProvider,
	publisher EventPublisher,
	webhookSecret string,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:          repo,
		catalog:       catalog,
		checkout:      checkout,
		publisher:     publisher,
		webhookSecret: webhookSecret,
		metrics:       m,
		logger:        logger,
	}
}

// HandleWebhook verifies and processes one Stripe delivery. A returned error
// means the delivery should be retried; events that can never succeed are
// recorded and reported as rejected instead.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.metrics.RecordWebhookEvent("unknown", "invalid_signature")
		return "", fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	eventType := string(event.Type)

	existing, err := s.repo.GetWebhookEvent(ctx, event.ID)
	if err != nil {
		s.metrics.RecordWebhookEvent(eventType, "error")
		return "", err
	}
	if existing != nil && existing.Done() {
		s.logger.Info("webhook event already processed", zap.String("event_id", event.ID))
		s.metrics.RecordWebhookEvent(eventType, string(ResultDuplicate))
		return ResultDuplicate, nil
	}
	if existing == nil {
		if err := s.repo.CreateWebhookEvent(ctx, &WebhookEvent{
			ID:        uuid.New(),
			EventID:   event.ID,
			Type:      eventType,
			Payload:   string(payload),
			CreatedAt: time.Now(),
		}); err != nil {
			s.metrics.RecordWebhookEvent(eventType, "error")
			return "", err
		}
	}

	handled, processErr := s.dispatch(ctx, &event)

	if err := s.repo.MarkWebhookEventProcessed(ctx, event.ID, processErr); err != nil {
		s.logger.Error("failed to mark event processed", zap.String("event_id", event.ID), zap.Error(err))
	}

	result := ResultProcessed
	switch {
	case processErr != nil && isPermanent(processErr):
		s.logger.Error("webhook event rejected",
			zap.String("event_id", event.ID),
			zap.String("type", eventType),
			zap.Error(processErr),
		)
		result = ResultRejected
	case processErr != nil:
		s.logger.Error("failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("type", eventType),
			zap.Error(processErr),
		)
		s.metrics.RecordWebhookEvent(eventType, "error")
		return "", processErr
	case !handled:
		s.logger.Debug("unhandled webhook event type", zap.String("type", eventType))
		result = ResultIgnored
	}

	s.metrics.RecordWebhookEvent(eventType, string(result))
	return result, nil
}

func (s *Service) dispatch(ctx context.Context, event *stripe.Event) (bool, error) {
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		return true, s.handleCheckoutCompleted(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated":
		return true, s.handleSubscription(ctx, event, false)
	case "customer.subscription.deleted":
		return true, s.handleSubscription(ctx, event, true)
	default:
		return false, nil
	}
}

func (s *Service) handleCheckoutCompleted(ctx context.Context, event *stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("%w: unmarshal checkout session: %v", ErrInvalidMetadata, err)
	}

	userID, err := parseUser(sess.Metadata[metadataUserID], sess.ClientReferenceID)
	if err != nil {
		return err
	}

	switch sess.Mode {
	case stripe.CheckoutSessionModePayment:
		if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
			s.logger.Info("checkout session not paid yet",
				zap.String("session_id", sess.ID),
				zap.String("payment_status", string(sess.PaymentStatus)),
			)
			return nil
		}
		credits, err := strconv.ParseInt(sess.Metadata[metadataCredits], 10, 64)
		if err != nil || credits <= 0 {
			return fmt.Errorf("%w: credits %q", ErrInvalidMetadata, sess.Metadata[metadataCredits])
		}

		s.logger.Info("credit pack purchased",
			zap.String("user_id", userID.String()),
			zap.String("session_id", sess.ID),
			zap.Int64("credits", credits),
		)
		return s.publisher.Publish(ctx, events.NewCreditsPurchasedEvent(userID, credits, sess.ID))

	case stripe.CheckoutSessionModeSubscription:
		if sess.Customer == nil || sess.Customer.ID == "" {
			return nil
		}
		return s.repo.LinkCustomer(ctx, sess.Customer.ID, userID)
	}
	return nil
}

func (s *Service) handleSubscription(ctx context.Context, event *stripe.Event, deleted bool) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return fmt.Errorf("%w: unmarshal subscription: %v", ErrInvalidMetadata, err)
	}

	var customerID string
	if sub.Customer != nil {
		customerID = sub.Customer.ID
	}

	userID, err := parseUser(sub.Metadata[metadataUserID], "")
	switch {
	case err == nil && customerID != "":
		if lerr := s.repo.LinkCustomer(ctx, customerID, userID); lerr != nil {
			s.logger.Warn("link customer", zap.String("customer_id", customerID), zap.Error(lerr))
		}
	case err != nil && customerID != "":
		userID, err = s.repo.GetCustomerUser(ctx, customerID)
		if err != nil {
			return err
		}
	case err != nil:
		return err
	}

	plan := planNone
	if !deleted && (sub.Status == stripe.SubscriptionStatusActive || sub.Status == stripe.SubscriptionStatusTrialing) {
		var price *stripe.Price
		if sub.Items != nil && len(sub.Items.Data) > 0 {
			price = sub.Items.Data[0].Price
		}
		p, ok := s.catalog.PlanForPrice(price)
		if !ok {
			return fmt.Errorf("%w: subscription %s has no known plan price", ErrUnknownProduct, sub.ID)
		}
		plan = p
	}

	var periodStart time.Time
	if sub.CurrentPeriodStart > 0 {
		periodStart = time.Unix(sub.CurrentPeriodStart, 0).UTC()
	}

	s.logger.Info("subscription changed",
		zap.String("user_id", userID.String()),
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)),
		zap.String("plan", plan),
	)
	return s.publisher.Publish(ctx, events.NewSubscriptionChangedEvent(userID, plan, periodStart))
}

// CreateCheckout opens a hosted checkout for a pack or plan.
func (s *Service) CreateCheckout(ctx context.Context, userID uuid.UUID, email string, req *CheckoutRequest) (*CheckoutResponse, error) {
	if s.checkout == nil {
		return nil, ErrCheckoutDisabled
	}

	product, err := s.catalog.Lookup(req.Kind, req.ID)
	if err != nil {
		return nil, err
	}

	url, err := s.checkout.CreateSession(ctx, &CheckoutParams{UserID: userID, Email: email, Product: product})
	if err != nil {
		return nil, err
	}
	return &CheckoutResponse{URL: url}, nil
}

func parseUser(candidates ...string) (uuid.UUID, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if id, err := uuid.Parse(c); err == nil {
			return id, nil
		}
	}
	return uuid.Nil, ErrMissingUser
}

// isPermanent reports errors that a redelivery cannot fix.
func isPermanent(err error) bool {
	return errors.Is(err, ErrMissingUser) ||
		errors.Is(err, ErrInvalidMetadata) ||
		errors.Is(err, ErrUnknownProduct)
}

var _ ServiceInterface = (*Service)(nil)
