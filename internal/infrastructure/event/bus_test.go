package event

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEvent(eventType string) *ledger.TransactionEvent {
	return &ledger.TransactionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, ledger.AggregateTransaction, uuid.New(), testScope()),
		TransactionID:   uuid.New(),
		CashBoxID:       uuid.New(),
		TypeCode:        ledger.TypeIncome,
		Sum:             valueobject.MustMoney("100.00"),
		Date:            "2026-01-15",
	}
}

type testHandler struct {
	eventTypes []string
	handled    []shared.DomainEvent
	err        error
	panicWith  any
	mu         sync.Mutex
}

func newTestHandler(eventTypes ...string) *testHandler {
	return &testHandler{eventTypes: eventTypes}
}

func (h *testHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handled = append(h.handled, event)
	if h.panicWith != nil {
		panic(h.panicWith)
	}
	return h.err
}

func (h *testHandler) EventTypes() []string {
	return h.eventTypes
}

func (h *testHandler) setError(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *testHandler) getHandled() []shared.DomainEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]shared.DomainEvent(nil), h.handled...)
}

func TestInMemoryEventBus_Publish(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler(ledger.EventTransactionCreated)
	bus.Subscribe(handler)

	event := newTestEvent(ledger.EventTransactionCreated)
	require.NoError(t, bus.Publish(context.Background(), event))

	require.Len(t, handler.getHandled(), 1)
	assert.Equal(t, event, handler.getHandled()[0])
}

func TestInMemoryEventBus_Publish_OnlyMatchingTypes(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	created := newTestHandler(ledger.EventTransactionCreated)
	deleted := newTestHandler(ledger.EventTransactionDeleted)
	bus.Subscribe(created)
	bus.Subscribe(deleted)

	err := bus.Publish(context.Background(),
		newTestEvent(ledger.EventTransactionCreated),
		newTestEvent(ledger.EventTransactionCreated),
	)

	require.NoError(t, err)
	assert.Len(t, created.getHandled(), 2)
	assert.Empty(t, deleted.getHandled())
}

func TestInMemoryEventBus_Publish_WildcardHandler(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	wildcard := newTestHandler()
	bus.Subscribe(wildcard)

	require.NoError(t, bus.Publish(context.Background(), newTestEvent(ledger.EventTransactionDeleted)))
	assert.Len(t, wildcard.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_HandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	failing := newTestHandler(ledger.EventTransactionCreated)
	failing.setError(errors.New("handler error"))
	healthy := newTestHandler(ledger.EventTransactionCreated)
	bus.Subscribe(failing)
	bus.Subscribe(healthy)

	err := bus.Publish(context.Background(), newTestEvent(ledger.EventTransactionCreated))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler error")
	assert.Len(t, failing.getHandled(), 1)
	assert.Len(t, healthy.getHandled(), 1)
}

func TestInMemoryEventBus_Publish_HandlerPanic(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler(ledger.EventTransactionCreated)
	handler.panicWith = "boom"
	bus.Subscribe(handler)

	err := bus.Publish(context.Background(), newTestEvent(ledger.EventTransactionCreated))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestInMemoryEventBus_Unsubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())

	handler := newTestHandler(ledger.EventTransactionCreated)
	bus.Subscribe(handler)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent(ledger.EventTransactionCreated)))

	bus.Unsubscribe(handler)
	require.NoError(t, bus.Publish(context.Background(), newTestEvent(ledger.EventTransactionCreated)))

	assert.Len(t, handler.getHandled(), 1)
}

func TestInMemoryEventBus_StartStop(t *testing.T) {
	bus := NewInMemoryEventBus(zap.NewNop())
	ctx := context.Background()
	handler := newTestHandler(ledger.EventTransactionCreated)
	bus.Subscribe(handler)

	require.NoError(t, bus.Start(ctx))
	require.NoError(t, bus.Publish(ctx, newTestEvent(ledger.EventTransactionCreated)))

	require.NoError(t, bus.Stop(ctx))
	err := bus.Publish(ctx, newTestEvent(ledger.EventTransactionCreated))
	assert.ErrorIs(t, err, ErrBusStopped)
	assert.Len(t, handler.getHandled(), 1)

	require.NoError(t, bus.Start(ctx))
	assert.NoError(t, bus.Publish(ctx, newTestEvent(ledger.EventTransactionCreated)))
}
