package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisLimiter_NilClient(t *testing.T) {
	l := NewRedisLimiter(nil)
	assert.Nil(t, l)

	allowed, remaining, err := l.Allow(context.Background(), "user:1", 5, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 5, remaining)
}
