package pricing

import (
	"testing"

	"github.com/cuentia/server/internal/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultCatalog() *Catalog {
	return NewCatalog(&config.PricingConfig{
		AvatarCost:            300,
		CharacterOverrideCost: 150,
		StoryTiers: []config.StoryTier{
			{Illustrations: 14, Cost: 2900},
			{Illustrations: 6, Cost: 1500},
			{Illustrations: 10, Cost: 2200},
		},
	})
}

func TestCatalog_AvatarCost(t *testing.T) {
	assert.Equal(t, int64(300), defaultCatalog().AvatarCost())
}

func TestCatalog_StoryCost(t *testing.T) {
	c := defaultCatalog()

	tests := []struct {
		name          string
		illustrations int
		overrides     int
		want          int64
		wantErr       error
	}{
		{"six no overrides", 6, 0, 1500, nil},
		{"ten no overrides", 10, 0, 2200, nil},
		{"fourteen no overrides", 14, 0, 2900, nil},
		{"six with two overrides", 6, 2, 1800, nil},
		{"negative overrides treated as none", 10, -1, 2200, nil},
		{"unsupported count", 8, 0, 0, ErrUnsupportedIllustrationCount},
		{"zero count", 0, 0, 0, ErrUnsupportedIllustrationCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.StoryCost(tt.illustrations, tt.overrides)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCatalog_StoryCostIsMonotonicInOverrides(t *testing.T) {
	c := defaultCatalog()
	for _, n := range c.IllustrationCounts() {
		prev := int64(-1)
		for k := 0; k <= 5; k++ {
			cost, err := c.StoryCost(n, k)
			require.NoError(t, err)
			assert.Greater(t, cost, prev)
			prev = cost
		}
	}
}

func TestCatalog_IllustrationCounts(t *testing.T) {
	c := defaultCatalog()
	assert.Equal(t, []int{6, 10, 14}, c.IllustrationCounts())

	counts := c.IllustrationCounts()
	counts[0] = 99
	assert.Equal(t, 6, c.IllustrationCounts()[0])
}

func TestCatalog_Quote(t *testing.T) {
	c := defaultCatalog()

	cost, err := c.Quote(OperationAvatar, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(300), cost)

	cost, err = c.Quote(OperationStory, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2350), cost)

	_, err = c.Quote("poem", 0, 0)
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

func TestCheckExpected(t *testing.T) {
	match := int64(1500)
	other := int64(1)

	assert.NoError(t, CheckExpected(1500, nil))
	assert.NoError(t, CheckExpected(1500, &match))
	assert.ErrorIs(t, CheckExpected(1500, &other), ErrCostMismatch)
}
