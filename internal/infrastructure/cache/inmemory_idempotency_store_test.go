package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()

	t.Run("first caller wins", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "payroll:event-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "payroll:event-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)
	})

	t.Run("expired key can be marked again", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "payroll:event-2", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = store.MarkProcessed(ctx, "payroll:event-2", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_Forget(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "cashflow:event-1", time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Forget(ctx, "cashflow:event-1"))

	isNew, err := store.MarkProcessed(ctx, "cashflow:event-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, isNew)
}

func TestInMemoryIdempotencyStore_Sweep(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "short-1", 10*time.Millisecond)
	_, _ = store.MarkProcessed(ctx, "short-2", 10*time.Millisecond)
	_, _ = store.MarkProcessed(ctx, "long", time.Hour)
	assert.Equal(t, 3, store.Len())

	assert.Equal(t, 2, store.sweep(time.Now().Add(time.Minute)))
	assert.Equal(t, 1, store.Len())

	isNew, err := store.MarkProcessed(ctx, "long", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)
}

func TestInMemoryIdempotencyStore_ConcurrentAccess(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	ctx := context.Background()
	const workers = 100

	results := make(chan bool, workers)
	for range workers {
		go func() {
			isNew, err := store.MarkProcessed(ctx, "concurrent", time.Hour)
			results <- err == nil && isNew
		}()
	}

	wins := 0
	for range workers {
		if <-results {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestNewIdempotencyStore_Memory(t *testing.T) {
	store, err := NewIdempotencyStore(context.Background(), config.EventConfig{IdempotencyBackend: BackendMemory}, config.RedisConfig{})
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &InMemoryIdempotencyStore{}, store)
}

func TestNewIdempotencyStore_UnknownBackend(t *testing.T) {
	_, err := NewIdempotencyStore(context.Background(), config.EventConfig{IdempotencyBackend: "etcd"}, config.RedisConfig{})
	assert.Error(t, err)
}

var unreachableRedis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

func TestNewIdempotencyStore_RedisFallback(t *testing.T) {
	unreachable := unreachableRedis

	t.Run("falls back to memory", func(t *testing.T) {
		store, err := NewIdempotencyStore(context.Background(), config.EventConfig{IdempotencyBackend: BackendRedis}, unreachable)
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("fails without fallback", func(t *testing.T) {
		_, err := NewIdempotencyStore(context.Background(), config.EventConfig{IdempotencyBackend: BackendRedis}, unreachable,
			WithInMemoryFallback(false))
		assert.Error(t, err)
	})
}
