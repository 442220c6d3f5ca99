package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container skipped in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return redis.NewClient(&redis.Options{Addr: addr})
}

func TestRedisIdempotencyStore(t *testing.T) {
	rdb := startRedis(t)
	store := NewRedisIdempotencyStoreWithClient(rdb, "test:")
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	t.Run("first caller wins", func(t *testing.T) {
		first, err := store.MarkProcessed(ctx, "payroll:e1", time.Minute)
		require.NoError(t, err)
		assert.True(t, first)

		first, err = store.MarkProcessed(ctx, "payroll:e1", time.Minute)
		require.NoError(t, err)
		assert.False(t, first)
	})

	t.Run("keys are prefixed and expire", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "cashflow:e2", time.Minute)
		require.NoError(t, err)

		ttl, err := rdb.TTL(ctx, "test:cashflow:e2").Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("forget releases the key", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "cashflow:e3", time.Minute)
		require.NoError(t, err)
		require.NoError(t, store.Forget(ctx, "cashflow:e3"))

		first, err := store.MarkProcessed(ctx, "cashflow:e3", time.Minute)
		require.NoError(t, err)
		assert.True(t, first)
	})
}

func TestNewRedisIdempotencyStore_Unreachable(t *testing.T) {
	_, err := NewRedisIdempotencyStore(context.Background(), unreachableRedis)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ping redis")
}
