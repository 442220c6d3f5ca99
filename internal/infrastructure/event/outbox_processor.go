package event

import (
	"context"
	"sync"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// OutboxProcessorConfig tunes delivery of committed ledger events
type OutboxProcessorConfig struct {
	BatchSize    int
	PollInterval time.Duration
	// MaxRetries overrides the per-entry attempt limit when positive
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     5 * time.Second,
		MaxRetries:       shared.DefaultMaxRetries,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// statusCounter is implemented by repositories that can report the backlog
type statusCounter interface {
	CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error)
}

// OutboxProcessor polls the outbox and publishes claimed entries to the bus.
// Delivery is at least once; subscribers dedupe by event id.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	bus        shared.EventBus
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewOutboxProcessor(
	repo shared.OutboxRepository,
	bus shared.EventBus,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		config:     config,
		logger:     logger.Named("outbox"),
	}
}

// Start launches the delivery loop and, if enabled, the retention loop
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	p.every(ctx, p.config.PollInterval, func(ctx context.Context) { p.processBatch(ctx) })
	if p.config.CleanupEnabled {
		p.every(ctx, p.config.CleanupInterval, p.cleanup)
	}
	return nil
}

// Stop cancels both loops and waits for the current batch to finish
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) every(ctx context.Context, interval time.Duration, fn func(context.Context)) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
}

// Drain delivers due entries until a claim comes back short of a full batch
func (p *OutboxProcessor) Drain(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n := p.processBatch(ctx)
		total += n
		if n < p.config.BatchSize {
			break
		}
	}
	return total
}

func (p *OutboxProcessor) processBatch(ctx context.Context) int {
	claimed, err := p.repo.ClaimDue(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("claim failed", zap.Error(err))
		return 0
	}
	for _, entry := range claimed {
		p.deliver(ctx, entry)
	}
	return len(claimed)
}

func (p *OutboxProcessor) deliver(ctx context.Context, entry *shared.OutboxEntry) {
	log := p.logger.With(
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.String("tenant_id", entry.TenantID.String()),
	)

	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err == nil {
		err = p.bus.Publish(ctx, event)
	}
	if err != nil {
		if p.config.MaxRetries > 0 {
			entry.MaxRetries = p.config.MaxRetries
		}
		entry.MarkFailed(err.Error())
		if entry.IsDead() {
			log.Warn("delivery abandoned",
				zap.String("aggregate", entry.AggregateType+"/"+entry.AggregateID.String()),
				zap.Int("attempts", entry.RetryCount),
				zap.Error(err),
			)
		} else {
			log.Error("delivery failed", zap.Timep("next_retry_at", entry.NextRetryAt), zap.Error(err))
		}
	} else {
		entry.MarkSent()
		log.Debug("delivered")
	}

	if err := p.repo.Update(ctx, entry); err != nil {
		log.Error("outbox update failed", zap.String("status", string(entry.Status)), zap.Error(err))
	}
}

// cleanup prunes delivered rows past retention and reports what is left
func (p *OutboxProcessor) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteSentBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("cleanup failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("pruned delivered events", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}

	counter, ok := p.repo.(statusCounter)
	if !ok {
		return
	}
	counts, err := counter.CountByStatus(ctx)
	if err != nil {
		p.logger.Warn("backlog count failed", zap.Error(err))
		return
	}
	if dead := counts[shared.OutboxStatusDead]; dead > 0 {
		p.logger.Warn("dead events in outbox", zap.Int64("dead", dead))
	}
	p.logger.Debug("backlog",
		zap.Int64("pending", counts[shared.OutboxStatusPending]),
		zap.Int64("failed", counts[shared.OutboxStatusFailed]),
	)
}
