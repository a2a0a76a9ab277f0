package ratelimit

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLocalAllowsBurstPerClient(t *testing.T) {
	l := NewLocal(60) // burst of 10
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		ok, err := l.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i)
	}

	ok, err := l.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Another client has its own bucket
	ok, err = l.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalMinimumBurst(t *testing.T) {
	l := NewLocal(1)
	ok, err := l.Allow(context.Background(), "c")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "local", l.Backend())
}

func TestNewFallsBackWithoutRedis(t *testing.T) {
	logger := zap.NewNop().Sugar()

	assert.Equal(t, "local", New("", 60, logger).Backend())

	l := New("127.0.0.1:1", 60, logger)
	defer l.Close()
	assert.Equal(t, "local", l.Backend())
}

func TestRedisFixedWindow(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	l := NewRedis(client, 3)
	defer l.Close()

	ctx := context.Background()
	key := "test-" + uuid.NewString()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "redis", l.Backend())
}
