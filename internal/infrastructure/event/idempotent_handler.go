package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultIdempotencyTTL outlives the outbox retry window by a wide margin
const DefaultIdempotencyTTL = 72 * time.Hour

// IdempotencyStats counts what a deduplicating subscriber did with its events
type IdempotencyStats struct {
	Processed  int64 `json:"processed"`
	Duplicates int64 `json:"duplicates"`
	Failed     int64 `json:"failed"`
}

// IdempotentHandler lets a subscriber such as the payroll accruer or the
// cashflow builder see each outbox event once. The store key is
// "<name>:<event id>", so subscribers of the same event dedupe separately.
type IdempotentHandler struct {
	name   string
	next   shared.EventHandler
	store  shared.IdempotencyStore
	ttl    time.Duration
	logger *zap.Logger

	processed  atomic.Int64
	duplicates atomic.Int64
	failed     atomic.Int64
}

type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyTTL overrides DefaultIdempotencyTTL; zero keeps the default
func WithIdempotencyTTL(ttl time.Duration) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

func NewIdempotentHandler(name string, next shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	h := &IdempotentHandler{
		name:   name,
		next:   next,
		store:  store,
		ttl:    DefaultIdempotencyTTL,
		logger: logger.With(zap.String("subscriber", name)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) Name() string { return h.name }

func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Handle claims the event key before running the wrapped handler. If the
// store is unreachable the event is handled anyway; wrapped handlers are
// rebuilds and upserts, so a rare double run is harmless. A failed run
// releases the key so the outbox retry is not mistaken for a duplicate.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	key := h.name + ":" + event.EventID().String()
	log := h.logger.With(zap.String("key", key), zap.String("event_type", event.EventType()))

	first, err := h.store.MarkProcessed(ctx, key, h.ttl)
	switch {
	case err != nil:
		log.Warn("idempotency store unavailable, handling without dedupe", zap.Error(err))
	case !first:
		h.duplicates.Add(1)
		log.Debug("duplicate delivery skipped")
		return nil
	}

	if err := h.next.Handle(ctx, event); err != nil {
		h.failed.Add(1)
		if first {
			if ferr := h.store.Forget(ctx, key); ferr != nil {
				log.Warn("idempotency key not released", zap.Error(ferr))
			}
		}
		return err
	}
	h.processed.Add(1)
	return nil
}

// Stats returns the counters since start
func (h *IdempotentHandler) Stats() IdempotencyStats {
	return IdempotencyStats{
		Processed:  h.processed.Load(),
		Duplicates: h.duplicates.Load(),
		Failed:     h.failed.Load(),
	}
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
