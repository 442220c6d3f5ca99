package cache

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Values of event.idempotency_backend
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

type storeOptions struct {
	logger   *zap.Logger
	fallback bool
}

type StoreOption func(*storeOptions)

func WithLogger(l *zap.Logger) StoreOption {
	return func(o *storeOptions) { o.logger = l }
}

// WithInMemoryFallback decides whether an unreachable Redis degrades to the
// per-process store (the default) or fails startup
func WithInMemoryFallback(allow bool) StoreOption {
	return func(o *storeOptions) { o.fallback = allow }
}

// NewIdempotencyStore opens the backend named in cfg.IdempotencyBackend
func NewIdempotencyStore(ctx context.Context, cfg config.EventConfig, redisCfg config.RedisConfig, opts ...StoreOption) (shared.IdempotencyStore, error) {
	o := storeOptions{logger: zap.NewNop(), fallback: true}
	for _, opt := range opts {
		opt(&o)
	}

	switch cfg.IdempotencyBackend {
	case "", BackendMemory:
		o.logger.Info("Idempotency keys kept in memory")
		return NewInMemoryIdempotencyStore(), nil
	case BackendRedis:
		store, err := NewRedisIdempotencyStore(ctx, redisCfg)
		switch {
		case err == nil:
			o.logger.Info("Idempotency keys kept in Redis", zap.String("addr", redisCfg.Addr()))
			return store, nil
		case !o.fallback:
			return nil, fmt.Errorf("idempotency store: %w", err)
		}
		o.logger.Warn("Redis unreachable, idempotency keys kept in memory",
			zap.String("addr", redisCfg.Addr()),
			zap.Error(err),
		)
		return NewInMemoryIdempotencyStore(), nil
	default:
		return nil, fmt.Errorf("unknown idempotency backend %q", cfg.IdempotencyBackend)
	}
}
