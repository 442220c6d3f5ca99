package testutil

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScope() shared.RequestScope {
	return shared.NewRequestScope(uuid.New(), uuid.Nil, uuid.New())
}

func TestRecordingHandler(t *testing.T) {
	ctx := context.Background()
	handler := NewRecordingHandler("transaction.created", "transaction.deleted")
	assert.Equal(t, []string{"transaction.created", "transaction.deleted"}, handler.EventTypes())
	assert.Zero(t, handler.HandledCount())

	scope := testScope()
	created := NewLedgerEvent("transaction.created", scope)
	require.NoError(t, handler.Handle(ctx, created))
	require.NoError(t, handler.Handle(ctx, NewLedgerEvent("transaction.deleted", scope)))

	assert.Equal(t, 2, handler.HandledCount())
	assert.Equal(t, created, handler.Handled()[0])
	assert.Equal(t, []string{"transaction.created", "transaction.deleted"}, handler.HandledTypes())

	handler.SetError(assert.AnError)
	assert.ErrorIs(t, handler.Handle(ctx, created), assert.AnError)

	handler.Reset()
	assert.Zero(t, handler.HandledCount())
	assert.NoError(t, handler.Handle(ctx, created))
}

func TestNewLedgerEvent(t *testing.T) {
	scope := testScope()
	event := NewLedgerEvent("transaction.created", scope)

	assert.NotEqual(t, uuid.Nil, event.EventID())
	assert.NotEqual(t, uuid.Nil, event.AggregateID())
	assert.Equal(t, "transaction.created", event.EventType())
	assert.Equal(t, "CashBox", event.AggregateType())
	assert.Equal(t, scope.TenantID, event.TenantID())
	assert.Equal(t, scope, event.Scope())
	assert.False(t, event.OccurredAt().IsZero())
}

func TestWaitForCondition(t *testing.T) {
	t.Run("condition met", func(t *testing.T) {
		var flag atomic.Bool
		go func() {
			time.Sleep(20 * time.Millisecond)
			flag.Store(true)
		}()

		assert.True(t, WaitForCondition(t, flag.Load, 500*time.Millisecond, 5*time.Millisecond))
	})

	t.Run("timeout", func(t *testing.T) {
		assert.False(t, WaitForCondition(t, func() bool { return false }, 30*time.Millisecond, 5*time.Millisecond))
	})
}

func TestWaitForEventCount(t *testing.T) {
	handler := NewRecordingHandler()
	scope := testScope()

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = handler.Handle(context.Background(), NewLedgerEvent("transaction.created", scope))
		_ = handler.Handle(context.Background(), NewLedgerEvent("transaction.created", scope))
	}()

	assert.True(t, WaitForEventCount(t, handler, 2, 500*time.Millisecond))
}
