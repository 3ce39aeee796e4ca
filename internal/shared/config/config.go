package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Pricing   PricingConfig   `mapstructure:"pricing"`
	Credits   CreditsConfig   `mapstructure:"credits"`
	Stripe    StripeConfig    `mapstructure:"stripe"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
// An empty address disables redis-backed middleware.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds bearer token validation settings.
// Tokens are issued by the external auth provider and signed with a shared HS256 secret.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// GatewayConfig holds the AI generation webhook configuration.
type GatewayConfig struct {
	AvatarURL        string        `mapstructure:"avatar_url"`
	StoryURL         string        `mapstructure:"story_url"`
	CallbackURL      string        `mapstructure:"callback_url"`
	Secret           string        `mapstructure:"secret"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MaxResponseBytes int64         `mapstructure:"max_response_bytes"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	CircuitTimeout   time.Duration `mapstructure:"circuit_timeout"`
}

// StoryTier maps an illustration count to its base credit cost.
type StoryTier struct {
	Illustrations int   `mapstructure:"illustrations"`
	Cost          int64 `mapstructure:"cost"`
}

// PricingConfig holds the credit cost table.
type PricingConfig struct {
	AvatarCost            int64       `mapstructure:"avatar_cost"`
	CharacterOverrideCost int64       `mapstructure:"character_override_cost"`
	StoryTiers            []StoryTier `mapstructure:"story_tiers"`
}

// CreditsConfig holds ledger maintenance settings.
type CreditsConfig struct {
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"` // 0 disables the reconciler
	StaleDebitAfter   time.Duration `mapstructure:"stale_debit_after"`
	ReconcileBatch    int           `mapstructure:"reconcile_batch"`
}

// CreditPack is a one-off purchasable bundle of credits.
type CreditPack struct {
	ID      string `mapstructure:"id"`
	PriceID string `mapstructure:"price_id"`
	Credits int64  `mapstructure:"credits"`
}

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	SecretKey     string            `mapstructure:"secret_key"`
	WebhookSecret string            `mapstructure:"webhook_secret"`
	SuccessURL    string            `mapstructure:"success_url"`
	CancelURL     string            `mapstructure:"cancel_url"`
	PlanPrices    map[string]string `mapstructure:"plan_prices"` // plan id -> stripe price id
	CreditPacks   []CreditPack      `mapstructure:"credit_packs"`
}

// StorageConfig holds object storage configuration.
// An empty bucket disables reference image archiving.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	KeyPrefix       string `mapstructure:"key_prefix"`
}

// RateLimitConfig holds per-user request limits.
type RateLimitConfig struct {
	GenerationsPerWindow int           `mapstructure:"generations_per_window"`
	Window               time.Duration `mapstructure:"window"`
	IdempotencyTTL       time.Duration `mapstructure:"idempotency_ttl"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/cuentia")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("CUENTIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)
	applyPricingDefaults(&cfg.Pricing)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides reads sensitive values from explicit environment variables.
func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"CUENTIA_JWT_SECRET":            &cfg.Auth.JWTSecret,
		"CUENTIA_DB_PASSWORD":           &cfg.Database.Password,
		"CUENTIA_REDIS_PASSWORD":        &cfg.Redis.Password,
		"CUENTIA_STRIPE_SECRET_KEY":     &cfg.Stripe.SecretKey,
		"CUENTIA_STRIPE_WEBHOOK_SECRET": &cfg.Stripe.WebhookSecret,
		"CUENTIA_GATEWAY_SECRET":        &cfg.Gateway.Secret,
		"CUENTIA_STORAGE_SECRET_KEY":    &cfg.Storage.SecretAccessKey,
	}
	for env, dst := range overrides {
		if val := os.Getenv(env); val != "" {
			*dst = val
		}
	}
}

// applyPricingDefaults fills the story tier table when none is configured.
func applyPricingDefaults(p *PricingConfig) {
	if len(p.StoryTiers) == 0 {
		p.StoryTiers = []StoryTier{
			{Illustrations: 6, Cost: 1500},
			{Illustrations: 10, Cost: 2200},
			{Illustrations: 14, Cost: 2900},
		}
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Pricing.AvatarCost < 0 || c.Pricing.CharacterOverrideCost < 0 {
		return errors.New("config: pricing costs must not be negative")
	}
	for _, tier := range c.Pricing.StoryTiers {
		if tier.Illustrations <= 0 || tier.Cost < 0 {
			return fmt.Errorf("config: invalid story tier %d/%d", tier.Illustrations, tier.Cost)
		}
	}
	if c.Credits.ReconcileInterval > 0 && c.Credits.StaleDebitAfter <= 2*c.Gateway.Timeout {
		return errors.New("config: credits.stale_debit_after must exceed twice gateway.timeout")
	}
	if c.RateLimit.GenerationsPerWindow < 0 {
		return errors.New("config: rate_limit.generations_per_window must not be negative")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "cuentia")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.issuer", "")

	// Gateway defaults
	v.SetDefault("gateway.timeout", 3*time.Minute)
	v.SetDefault("gateway.max_response_bytes", 1<<20)
	v.SetDefault("gateway.failure_threshold", 5)
	v.SetDefault("gateway.circuit_timeout", 60*time.Second)

	// Pricing defaults
	v.SetDefault("pricing.avatar_cost", 300)
	v.SetDefault("pricing.character_override_cost", 150)

	// Credits defaults
	v.SetDefault("credits.reconcile_interval", time.Minute)
	v.SetDefault("credits.stale_debit_after", 30*time.Minute)
	v.SetDefault("credits.reconcile_batch", 100)

	// Rate limit defaults
	v.SetDefault("rate_limit.generations_per_window", 10)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.idempotency_ttl", 24*time.Hour)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
