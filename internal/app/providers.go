package app

import (
	"context"
	"errors"

	"github.com/cuentia/server/internal/module/auth"
	"github.com/cuentia/server/internal/module/billing"
	"github.com/cuentia/server/internal/module/character"
	"github.com/cuentia/server/internal/module/credits"
	"github.com/cuentia/server/internal/module/generation"
	"github.com/cuentia/server/internal/module/pricing"
	"github.com/cuentia/server/internal/shared/cache"
	"github.com/cuentia/server/internal/shared/config"
	"github.com/cuentia/server/internal/shared/database"
	"github.com/cuentia/server/internal/shared/events"
	"github.com/cuentia/server/internal/shared/logger"
	"github.com/cuentia/server/internal/shared/metrics"
	"github.com/cuentia/server/internal/shared/middleware"
	"github.com/cuentia/server/internal/shared/ratelimit"
	"github.com/cuentia/server/internal/shared/storage"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideZapLogger,
	ProvideRegistry,
	ProvideMetrics,
	ProvideDatabase,
	ProvideRedisClient,
	ProvideRateLimiter,
	ProvideObjectStore,
	ProvideEventBus,
	ProvideTokenValidator,
	wire.Bind(new(credits.EventPublisher), new(*events.Bus)),
	wire.Bind(new(billing.EventPublisher), new(*events.Bus)),
)

// ProvideLogger creates the request logger.
func ProvideLogger(cfg *config.Config) *logger.Logger {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// ProvideZapLogger creates the zap logger used by domain services.
func ProvideZapLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	log, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, nil, err
	}
	return log, func() { _ = log.Sync() }, nil
}

// ProvideRegistry creates the prometheus registry served on /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// ProvideMetrics creates application metrics.
func ProvideMetrics(reg *prometheus.Registry) *metrics.Metrics {
	return metrics.New("cuentia", reg)
}

// ProvideDatabase creates a database connection.
func ProvideDatabase(cfg *config.Config, zapLog *zap.Logger) (*gorm.DB, func(), error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := database.Close(db); err != nil {
			zapLog.Warn("close database", zap.Error(err))
		}
	}
	return db, cleanup, nil
}

// ProvideRedisClient creates a Redis client. Redis is optional: without it the
// idempotency and rate limit middleware are disabled.
func ProvideRedisClient(cfg *config.Config, zapLog *zap.Logger) (goredis.UniversalClient, func()) {
	client, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		zapLog.Warn("redis unavailable, idempotency and rate limits disabled", zap.Error(err))
		return nil, func() {}
	}
	if client == nil {
		return nil, func() {}
	}
	return client, func() { _ = cache.Close(client) }
}

// ProvideRateLimiter creates the Redis-backed rate limiter.
func ProvideRateLimiter(client goredis.UniversalClient) middleware.RateLimiter {
	if client == nil {
		return nil
	}
	return ratelimit.NewRedisLimiter(client)
}

// ProvideObjectStore creates the reference image store, or nil when storage is disabled.
func ProvideObjectStore(cfg *config.Config, zapLog *zap.Logger) (generation.ObjectStore, error) {
	store, err := storage.NewS3Store(context.Background(), &cfg.Storage)
	if errors.Is(err, storage.ErrDisabled) {
		zapLog.Info("object storage disabled, reference images will not be archived")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideEventBus creates the in-process event bus.
func ProvideEventBus(zapLog *zap.Logger) *events.Bus {
	return events.NewBus(zapLog)
}

// ProvideTokenValidator creates the bearer token validator.
func ProvideTokenValidator(cfg *config.Config) (middleware.TokenValidator, error) {
	v, err := auth.NewJWTValidator(&cfg.Auth)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// ===== Module Providers =====

// CreditsSet provides the credit ledger.
var CreditsSet = wire.NewSet(
	credits.NewRepository,
	credits.NewService,
	wire.Bind(new(credits.ServiceInterface), new(*credits.Service)),
	credits.NewHandler,
	credits.NewEventHandler,
	ProvideReconciler,
)

// ProvideReconciler creates the stale debit reconciler.
func ProvideReconciler(svc credits.ServiceInterface, bus credits.EventPublisher, cfg *config.Config, zapLog *zap.Logger) *credits.Reconciler {
	return credits.NewReconciler(svc, bus, &cfg.Credits, zapLog)
}

// CharacterSet provides the character library.
var CharacterSet = wire.NewSet(
	character.NewRepository,
	character.NewService,
	wire.Bind(new(character.ServiceInterface), new(*character.Service)),
	character.NewHandler,
)

// GenerationSet provides the paid generation flow.
var GenerationSet = wire.NewSet(
	ProvidePricingCatalog,
	ProvideGateway,
	generation.NewRepository,
	generation.NewService,
	wire.Bind(new(generation.ServiceInterface), new(*generation.Service)),
	generation.NewHandler,
	generation.NewEventHandler,
)

// ProvidePricingCatalog creates the credit cost table.
func ProvidePricingCatalog(cfg *config.Config) *pricing.Catalog {
	return pricing.NewCatalog(&cfg.Pricing)
}

// ProvideGateway creates the AI generation gateway client.
func ProvideGateway(cfg *config.Config, m *metrics.Metrics, zapLog *zap.Logger) generation.Gateway {
	return generation.NewHTTPGateway(&cfg.Gateway, m, zapLog)
}

// BillingSet provides Stripe checkout and webhooks.
var BillingSet = wire.NewSet(
	billing.NewRepository,
	ProvideBillingCatalog,
	ProvideCheckoutProvider,
	ProvideBillingService,
	wire.Bind(new(billing.ServiceInterface), new(*billing.Service)),
	billing.NewHandler,
)

// ProvideBillingCatalog creates the Stripe product catalog.
func ProvideBillingCatalog(cfg *config.Config) *billing.Catalog {
	return billing.NewCatalog(&cfg.Stripe)
}

// ProvideCheckoutProvider creates the Stripe checkout client, nil when Stripe is not configured.
func ProvideCheckoutProvider(cfg *config.Config) billing.CheckoutProvider {
	return billing.NewCheckoutProvider(&cfg.Stripe)
}

// ProvideBillingService creates the billing service.
func ProvideBillingService(
	repo billing.Repository,
	catalog *billing.Catalog,
	checkout billing.CheckoutProvider,
	publisher billing.EventPublisher,
	cfg *config.Config,
	m *metrics.Metrics,
	zapLog *zap.Logger,
) *billing.Service {
	return billing.NewService(repo, catalog, checkout, publisher, cfg.Stripe.WebhookSecret, m, zapLog)
}

// AppSet is the complete provider set.
var AppSet = wire.NewSet(
	InfraSet,
	CreditsSet,
	CharacterSet,
	GenerationSet,
	BillingSet,
)
