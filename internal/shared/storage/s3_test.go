package storage

import (
	"context"
	"testing"

	"github.com/cuentia/server/internal/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewS3Store(t *testing.T) {
	t.Run("disabled without bucket", func(t *testing.T) {
		_, err := NewS3Store(context.Background(), &config.StorageConfig{})
		assert.ErrorIs(t, err, ErrDisabled)
	})

	t.Run("builds keys under prefix", func(t *testing.T) {
		s, err := NewS3Store(context.Background(), &config.StorageConfig{
			Endpoint:        "http://localhost:9000",
			Region:          "us-east-1",
			AccessKeyID:     "key",
			SecretAccessKey: "secret",
			Bucket:          "refs",
			KeyPrefix:       "cuentia",
		})
		require.NoError(t, err)
		assert.Equal(t, "cuentia/users/u1/g1/0-face.png", s.Key("users", "u1", "g1", "0-face.png"))
	})
}
