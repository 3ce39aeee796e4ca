package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cuentia/server/internal/module/billing"
	"github.com/cuentia/server/internal/module/character"
	"github.com/cuentia/server/internal/module/credits"
	"github.com/cuentia/server/internal/module/generation"
	"github.com/cuentia/server/internal/shared/config"
	"github.com/cuentia/server/internal/shared/database"
	"github.com/cuentia/server/internal/shared/events"
	"github.com/cuentia/server/internal/shared/logger"
	"github.com/cuentia/server/internal/shared/metrics"
	"github.com/cuentia/server/internal/shared/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Dependencies holds all injected dependencies.
type Dependencies struct {
	Config         *config.Config
	Logger         *logger.Logger
	ZapLogger      *zap.Logger
	Registry       *prometheus.Registry
	Metrics        *metrics.Metrics
	DB             *gorm.DB
	Redis          goredis.UniversalClient
	RateLimiter    middleware.RateLimiter
	TokenValidator middleware.TokenValidator
	EventBus       *events.Bus

	CreditsHandler *credits.Handler
	CreditsEvents  *credits.EventHandler
	Reconciler     *credits.Reconciler

	CharacterHandler *character.Handler

	GenerationHandler *generation.Handler
	GenerationEvents  *generation.EventHandler

	BillingHandler *billing.Handler
}

// App represents the application.
type App struct {
	deps    *Dependencies
	router  *gin.Engine
	cleanup func()

	stopOnce sync.Once
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	deps, cleanup, err := InitializeDependencies(cfg)
	if err != nil {
		return nil, fmt.Errorf("init dependencies: %w", err)
	}

	if cfg.Database.AutoMigrate {
		if err := migrate(deps.DB); err != nil {
			cleanup()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
	}

	app := &App{deps: deps, cleanup: cleanup}

	deps.EventBus.Register(deps.CreditsEvents)
	deps.EventBus.Register(deps.GenerationEvents)

	app.router = app.setupRouter()

	deps.Reconciler.Start()

	return app, nil
}

// migrate creates or updates the tables owned by each module.
func migrate(db *gorm.DB) error {
	return database.Migrate(db,
		&credits.Account{},
		&credits.Debit{},
		&credits.Grant{},
		&character.Character{},
		&generation.Generation{},
		&billing.WebhookEvent{},
		&billing.CustomerLink{},
	)
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	cfg := a.deps.Config

	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery(a.deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.deps.Logger))
	r.Use(middleware.Metrics(a.deps.Metrics))
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins)))

	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.deps.Registry, promhttp.HandlerOpts{})))

	// Provider callbacks authenticate by signature, not bearer token.
	a.deps.BillingHandler.RegisterWebhookRoutes(r.Group("/webhooks"))

	api := r.Group("/api/v1")
	api.Use(middleware.RequireAuth(a.deps.TokenValidator))

	a.deps.CreditsHandler.RegisterRoutes(api)
	a.deps.CharacterHandler.RegisterRoutes(api)
	a.deps.BillingHandler.RegisterRoutes(api)
	a.deps.GenerationHandler.RegisterRoutes(api,
		middleware.RateLimitByUser(a.deps.RateLimiter, "generation", cfg.RateLimit.GenerationsPerWindow, cfg.RateLimit.Window),
		middleware.Idempotency(a.deps.Redis, middleware.IdempotencyConfig{
			TTL:     cfg.RateLimit.IdempotencyTTL,
			LockTTL: cfg.Gateway.Timeout + time.Minute,
		}),
	)

	return r
}

func (a *App) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	sqlDB, err := a.deps.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Router returns the HTTP handler.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Logger returns the domain logger.
func (a *App) Logger() *zap.Logger {
	return a.deps.ZapLogger
}

// Stop stops background work and releases connections.
func (a *App) Stop() {
	a.stopOnce.Do(func() {
		a.deps.Reconciler.Stop()
		a.cleanup()
	})
}
