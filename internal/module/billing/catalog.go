package billing

import (
	"fmt"

	"github.com/cuentia/server/internal/shared/config"
	"github.com/stripe/stripe-go/v76"
)

// ProductKind distinguishes one-off packs from subscriptions.
type ProductKind string

const (
	ProductPack ProductKind = "pack"
	ProductPlan ProductKind = "plan"
)

// Product is something a user can check out.
type Product struct {
	Kind    ProductKind
	ID      string // plan id or pack id
	PriceID string
	Credits int64 // packs only
}

// Catalog maps Stripe prices to plans and credit packs.
type Catalog struct {
	planByPrice map[string]string
	plans       map[string]Product
	packs       map[string]Product
}

// NewCatalog builds the catalog from Stripe configuration.
func NewCatalog(cfg *config.StripeConfig) *Catalog {
	c := &Catalog{
		planByPrice: make(map[string]string, len(cfg.PlanPrices)),
		plans:       make(map[string]Product, len(cfg.PlanPrices)),
		packs:       make(map[string]Product, len(cfg.CreditPacks)),
	}
	for plan, price := range cfg.PlanPrices {
		c.planByPrice[price] = plan
		c.plans[plan] = Product{Kind: ProductPlan, ID: plan, PriceID: price}
	}
	for _, p := range cfg.CreditPacks {
		c.packs[p.ID] = Product{Kind: ProductPack, ID: p.ID, PriceID: p.PriceID, Credits: p.Credits}
	}
	return c
}

// Lookup returns a purchasable product.
func (c *Catalog) Lookup(kind ProductKind, id string) (Product, error) {
	var (
		p  Product
		ok bool
	)
	switch kind {
	case ProductPlan:
		p, ok = c.plans[id]
	case ProductPack:
		p, ok = c.packs[id]
	}
	if !ok || p.PriceID == "" {
		return Product{}, fmt.Errorf("%w: %s %q", ErrUnknownProduct, kind, id)
	}
	return p, nil
}

// PlanForPrice resolves the plan of a subscription price, by price id
// first and then by lookup key.
func (c *Catalog) PlanForPrice(price *stripe.Price) (string, bool) {
	if price == nil {
		return "", false
	}
	if plan, ok := c.planByPrice[price.ID]; ok {
		return plan, true
	}
	if _, ok := c.plans[price.LookupKey]; ok {
		return price.LookupKey, true
	}
	return "", false
}
