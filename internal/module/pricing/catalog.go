package pricing

import (
	"errors"
	"fmt"
	"sort"

	"github.com/cuentia/server/internal/shared/config"
)

// Operation identifies a billable generation kind.
type Operation string

const (
	OperationAvatar Operation = "avatar"
	OperationStory  Operation = "story"
)

var (
	ErrUnsupportedIllustrationCount = errors.New("unsupported illustration count")
	ErrUnknownOperation             = errors.New("unknown operation")
	ErrCostMismatch                 = errors.New("expected cost does not match computed cost")
)

// Catalog computes credit costs from the configured price table.
// It is immutable after construction and safe for concurrent use.
type Catalog struct {
	avatarCost   int64
	overrideCost int64
	storyTiers   map[int]int64
	counts       []int
}

// NewCatalog builds a catalog from pricing configuration.
func NewCatalog(cfg *config.PricingConfig) *Catalog {
	c := &Catalog{
		avatarCost:   cfg.AvatarCost,
		overrideCost: cfg.CharacterOverrideCost,
		storyTiers:   make(map[int]int64, len(cfg.StoryTiers)),
	}
	for _, tier := range cfg.StoryTiers {
		if _, dup := c.storyTiers[tier.Illustrations]; !dup {
			c.counts = append(c.counts, tier.Illustrations)
		}
		c.storyTiers[tier.Illustrations] = tier.Cost
	}
	sort.Ints(c.counts)
	return c
}

// AvatarCost returns the flat cost of an avatar generation.
func (c *Catalog) AvatarCost() int64 {
	return c.avatarCost
}

// StoryCost returns the base tier cost plus a surcharge for every
// character carrying a custom visual description.
func (c *Catalog) StoryCost(illustrations, overrides int) (int64, error) {
	base, ok := c.storyTiers[illustrations]
	if !ok {
		return 0, fmt.Errorf("%w: %d (supported: %v)", ErrUnsupportedIllustrationCount, illustrations, c.counts)
	}
	if overrides < 0 {
		overrides = 0
	}
	return base + int64(overrides)*c.overrideCost, nil
}

// IllustrationCounts returns the supported illustration counts in ascending order.
func (c *Catalog) IllustrationCounts() []int {
	out := make([]int, len(c.counts))
	copy(out, c.counts)
	return out
}

// Quote computes the cost of an operation.
func (c *Catalog) Quote(op Operation, illustrations, overrides int) (int64, error) {
	switch op {
	case OperationAvatar:
		return c.AvatarCost(), nil
	case OperationStory:
		return c.StoryCost(illustrations, overrides)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
}

// CheckExpected rejects a client-side cost that disagrees with the computed one.
// A nil expectation always passes.
func CheckExpected(computed int64, expected *int64) error {
	if expected == nil || *expected == computed {
		return nil
	}
	return fmt.Errorf("%w: expected %d, computed %d", ErrCostMismatch, *expected, computed)
}
