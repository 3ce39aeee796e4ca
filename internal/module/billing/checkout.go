package billing

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cuentia/server/internal/shared/config"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
)

// CheckoutParams describes a hosted checkout to open.
type CheckoutParams struct {
	UserID  uuid.UUID
	Email   string
	Product Product
}

// CheckoutProvider opens hosted checkout sessions.
type CheckoutProvider interface {
	CreateSession(ctx context.Context, params *CheckoutParams) (string, error)
}

// StripeCheckout opens Stripe Checkout sessions.
type StripeCheckout struct {
	successURL string
	cancelURL  string
}

// NewCheckoutProvider returns a Stripe checkout provider, or nil when Stripe is not configured.
func NewCheckoutProvider(cfg *config.StripeConfig) CheckoutProvider {
	if cfg.SecretKey == "" {
		return nil
	}
	stripe.Key = cfg.SecretKey
	return &StripeCheckout{successURL: cfg.SuccessURL, cancelURL: cfg.CancelURL}
}

// CreateSession creates a checkout session and returns its URL.
func (s *StripeCheckout) CreateSession(ctx context.Context, p *CheckoutParams) (string, error) {
	params := &stripe.CheckoutSessionParams{
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(p.Product.PriceID), Quantity: stripe.Int64(1)},
		},
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		ClientReferenceID: stripe.String(p.UserID.String()),
	}
	params.Context = ctx
	if p.Email != "" {
		params.CustomerEmail = stripe.String(p.Email)
	}
	params.AddMetadata(metadataUserID, p.UserID.String())

	switch p.Product.Kind {
	case ProductPack:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModePayment))
		params.AddMetadata(metadataCredits, strconv.FormatInt(p.Product.Credits, 10))
		params.AddMetadata(metadataPack, p.Product.ID)
	case ProductPlan:
		params.Mode = stripe.String(string(stripe.CheckoutSessionModeSubscription))
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{metadataUserID: p.UserID.String()},
		}
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownProduct, p.Product.Kind)
	}

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, nil
}
