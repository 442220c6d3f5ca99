package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memoryOutbox is an in-process OutboxRepository for processor tests
type memoryOutbox struct {
	mu       sync.Mutex
	entries  map[uuid.UUID]*shared.OutboxEntry
	claimErr error
	claims   int
}

func newMemoryOutbox() *memoryOutbox {
	return &memoryOutbox{entries: make(map[uuid.UUID]*shared.OutboxEntry)}
}

func (r *memoryOutbox) Save(_ context.Context, entries ...*shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entries {
		r.entries[e.ID] = e
	}
	return nil
}

func (r *memoryOutbox) ClaimDue(_ context.Context, now time.Time, limit int) ([]*shared.OutboxEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims++
	if r.claimErr != nil {
		return nil, r.claimErr
	}
	var claimed []*shared.OutboxEntry
	for _, e := range r.entries {
		if len(claimed) == limit {
			break
		}
		due := e.Status == shared.OutboxStatusPending ||
			(e.Status == shared.OutboxStatusFailed && e.NextRetryAt != nil && !e.NextRetryAt.After(now))
		if due {
			e.Status = shared.OutboxStatusProcessing
			claimed = append(claimed, e)
		}
	}
	return claimed, nil
}

func (r *memoryOutbox) Update(_ context.Context, entry *shared.OutboxEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[entry.ID] = entry
	return nil
}

func (r *memoryOutbox) DeleteSentBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.entries {
		if e.Status == shared.OutboxStatusSent && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(r.entries, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryOutbox) get(id uuid.UUID) *shared.OutboxEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.entries[id]
}

type processorFixture struct {
	repo       *memoryOutbox
	bus        *InMemoryEventBus
	serializer *EventSerializer
	processor  *OutboxProcessor
}

func newProcessorFixture(batchSize int) *processorFixture {
	serializer := NewEventSerializer()
	RegisterAllEvents(serializer)
	repo := newMemoryOutbox()
	bus := NewInMemoryEventBus(zap.NewNop())

	cfg := DefaultOutboxProcessorConfig()
	cfg.BatchSize = batchSize

	return &processorFixture{
		repo:       repo,
		bus:        bus,
		serializer: serializer,
		processor:  NewOutboxProcessor(repo, bus, serializer, cfg, zap.NewNop()),
	}
}

func (f *processorFixture) enqueue(t *testing.T) *shared.OutboxEntry {
	t.Helper()
	event := newTestEvent(ledger.EventTransactionCreated)
	payload, err := f.serializer.Serialize(event)
	require.NoError(t, err)
	entry := shared.NewOutboxEntry(event, payload)
	require.NoError(t, f.repo.Save(context.Background(), entry))
	return entry
}

func TestOutboxProcessor_DeliversAndMarksSent(t *testing.T) {
	f := newProcessorFixture(10)
	handler := newTestHandler(ledger.EventTransactionCreated)
	f.bus.Subscribe(handler)

	entry := f.enqueue(t)

	n := f.processor.processBatch(context.Background())

	assert.Equal(t, 1, n)
	assert.Len(t, handler.getHandled(), 1)
	stored := f.repo.get(entry.ID)
	assert.Equal(t, shared.OutboxStatusSent, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
}

func TestOutboxProcessor_HandlerFailureSchedulesRetry(t *testing.T) {
	f := newProcessorFixture(10)
	handler := newTestHandler(ledger.EventTransactionCreated)
	handler.setError(errors.New("cashflow rebuild failed"))
	f.bus.Subscribe(handler)

	entry := f.enqueue(t)
	f.processor.processBatch(context.Background())

	stored := f.repo.get(entry.ID)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Contains(t, stored.LastError, "cashflow rebuild failed")
	require.NotNil(t, stored.NextRetryAt)
	assert.True(t, stored.NextRetryAt.After(time.Now().Add(-time.Second)))
}

func TestOutboxProcessor_ExhaustedRetriesGoDead(t *testing.T) {
	f := newProcessorFixture(10)
	handler := newTestHandler(ledger.EventTransactionCreated)
	handler.setError(errors.New("boom"))
	f.bus.Subscribe(handler)

	entry := f.enqueue(t)
	entry.RetryCount = entry.MaxRetries - 1

	f.processor.processBatch(context.Background())

	assert.Equal(t, shared.OutboxStatusDead, f.repo.get(entry.ID).Status)
}

func TestOutboxProcessor_UnknownEventTypeFails(t *testing.T) {
	f := newProcessorFixture(10)

	entry := f.enqueue(t)
	entry.EventType = "NoSuchEvent"

	f.processor.processBatch(context.Background())

	stored := f.repo.get(entry.ID)
	assert.Equal(t, shared.OutboxStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.LastError)
}

func TestOutboxProcessor_ClaimErrorIsLogged(t *testing.T) {
	f := newProcessorFixture(10)
	f.repo.claimErr = errors.New("db down")

	assert.Equal(t, 0, f.processor.processBatch(context.Background()))
}

func TestOutboxProcessor_Drain(t *testing.T) {
	f := newProcessorFixture(2)
	handler := newTestHandler(ledger.EventTransactionCreated)
	f.bus.Subscribe(handler)

	for range 5 {
		f.enqueue(t)
	}

	total := f.processor.Drain(context.Background())

	assert.Equal(t, 5, total)
	assert.Len(t, handler.getHandled(), 5)
	// 2 + 2 + 1, the short batch ends the drain
	assert.Equal(t, 3, f.repo.claims)
}

func TestOutboxProcessor_Cleanup(t *testing.T) {
	f := newProcessorFixture(10)

	old := f.enqueue(t)
	old.MarkSent()
	longAgo := time.Now().Add(-30 * 24 * time.Hour)
	old.ProcessedAt = &longAgo

	recent := f.enqueue(t)
	recent.MarkSent()

	pending := f.enqueue(t)

	f.processor.cleanup(context.Background())

	assert.Nil(t, f.repo.get(old.ID))
	assert.NotNil(t, f.repo.get(recent.ID))
	assert.NotNil(t, f.repo.get(pending.ID))
}

func TestOutboxProcessor_StartStop(t *testing.T) {
	f := newProcessorFixture(10)
	f.processor.config.PollInterval = 10 * time.Millisecond
	handler := newTestHandler(ledger.EventTransactionCreated)
	f.bus.Subscribe(handler)
	entry := f.enqueue(t)

	require.NoError(t, f.processor.Start(context.Background()))

	assert.Eventually(t, func() bool {
		return len(handler.getHandled()) == 1
	}, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, f.processor.Stop(ctx))

	assert.Equal(t, shared.OutboxStatusSent, f.repo.get(entry.ID).Status)
}
