package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CUENTIA_JWT_SECRET", "env-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
	assert.Equal(t, int64(300), cfg.Pricing.AvatarCost)
	assert.Equal(t, int64(150), cfg.Pricing.CharacterOverrideCost)
	assert.Len(t, cfg.Pricing.StoryTiers, 3)
	assert.Equal(t, 30*time.Minute, cfg.Credits.StaleDebitAfter)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_NestedEnv(t *testing.T) {
	t.Setenv("CUENTIA_LOG_FORMAT", "text")
	t.Setenv("CUENTIA_RATE_LIMIT_GENERATIONS_PER_WINDOW", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 3, cfg.RateLimit.GenerationsPerWindow)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Gateway: GatewayConfig{Timeout: time.Minute},
			Credits: CreditsConfig{ReconcileInterval: time.Minute, StaleDebitAfter: 30 * time.Minute},
			Pricing: PricingConfig{
				AvatarCost: 300,
				StoryTiers: []StoryTier{{Illustrations: 6, Cost: 1500}},
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, valid().Validate())
	})

	t.Run("negative avatar cost", func(t *testing.T) {
		cfg := valid()
		cfg.Pricing.AvatarCost = -1
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid story tier", func(t *testing.T) {
		cfg := valid()
		cfg.Pricing.StoryTiers = append(cfg.Pricing.StoryTiers, StoryTier{Illustrations: 0, Cost: 10})
		assert.Error(t, cfg.Validate())
	})

	t.Run("stale window shorter than gateway timeout", func(t *testing.T) {
		cfg := valid()
		cfg.Credits.StaleDebitAfter = 90 * time.Second
		assert.Error(t, cfg.Validate())
	})

	t.Run("reconciler disabled skips stale window check", func(t *testing.T) {
		cfg := valid()
		cfg.Credits.ReconcileInterval = 0
		cfg.Credits.StaleDebitAfter = 0
		assert.NoError(t, cfg.Validate())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	c := &DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "cuentia", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=cuentia sslmode=disable", c.DSN())
}
