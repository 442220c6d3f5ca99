package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "backoffice:idempotency:"
	redisDialTimeout = 5 * time.Second
)

// RedisIdempotencyStore shares subscriber keys between server instances so
// an event is accrued or folded into the cashflow once per cluster.
type RedisIdempotencyStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisIdempotencyStore dials Redis and fails unless it answers PING
func NewRedisIdempotencyStore(ctx context.Context, cfg config.RedisConfig) (*RedisIdempotencyStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr(),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: redisDialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", cfg.Addr(), err)
	}
	return NewRedisIdempotencyStoreWithClient(rdb, ""), nil
}

// NewRedisIdempotencyStoreWithClient uses rdb as is; an empty prefix
// selects the default namespace
func NewRedisIdempotencyStoreWithClient(rdb *redis.Client, prefix string) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = redisKeyPrefix
	}
	return &RedisIdempotencyStore{rdb: rdb, prefix: prefix}
}

// MarkProcessed is SET NX with expiry
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	first, err := s.rdb.SetNX(ctx, s.prefix+key, time.Now().Unix(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	return first, nil
}

func (s *RedisIdempotencyStore) Forget(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

func (s *RedisIdempotencyStore) Close() error {
	return s.rdb.Close()
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
