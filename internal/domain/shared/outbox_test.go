package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEvent struct {
	BaseDomainEvent
}

func TestNewOutboxEntry(t *testing.T) {
	scope := NewRequestScope(uuid.New(), uuid.New(), uuid.New())
	evt := &stubEvent{BaseDomainEvent: NewBaseDomainEvent("receipt.created", "Receipt", uuid.New(), scope)}

	entry := NewOutboxEntry(evt, []byte(`{}`))

	assert.Equal(t, scope.TenantID, entry.TenantID)
	assert.Equal(t, scope.CompanyID, entry.CompanyID)
	assert.Equal(t, evt.OccurredAt(), entry.OccurredAt)
	assert.Equal(t, evt.EventID(), entry.EventID)
	assert.Equal(t, "receipt.created", entry.EventType)
	assert.Equal(t, "Receipt", entry.AggregateType)
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Equal(t, DefaultMaxRetries, entry.MaxRetries)
}

func TestOutboxEntry_MarkFailed(t *testing.T) {
	t.Run("schedules exponential backoff", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, MaxRetries: 5}

		entry.MarkFailed("boom")
		require.NotNil(t, entry.NextRetryAt)
		first := entry.NextRetryAt.Sub(entry.UpdatedAt)

		entry.MarkFailed("boom again")
		second := entry.NextRetryAt.Sub(entry.UpdatedAt)

		assert.Equal(t, OutboxStatusFailed, entry.Status)
		assert.Equal(t, 2, entry.RetryCount)
		assert.Equal(t, "boom again", entry.LastError)
		assert.Equal(t, DefaultBaseBackoff, first)
		assert.Equal(t, 2*DefaultBaseBackoff, second)
	})

	t.Run("dies after max retries", func(t *testing.T) {
		entry := &OutboxEntry{Status: OutboxStatusProcessing, RetryCount: 4, MaxRetries: 5}
		entry.MarkFailed("final")
		assert.True(t, entry.IsDead())
		assert.Nil(t, entry.NextRetryAt)
	})
}

func TestRetryBackoff(t *testing.T) {
	assert.Equal(t, DefaultBaseBackoff, RetryBackoff(0))
	assert.Equal(t, DefaultBaseBackoff, RetryBackoff(1))
	assert.Equal(t, 4*DefaultBaseBackoff, RetryBackoff(3))
	assert.Equal(t, DefaultMaxBackoff, RetryBackoff(30))
}

func TestOutboxEntry_ResetForRetry(t *testing.T) {
	entry := &OutboxEntry{Status: OutboxStatusDead, RetryCount: 5, LastError: "x", UpdatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, entry.ResetForRetry())
	assert.Equal(t, OutboxStatusPending, entry.Status)
	assert.Zero(t, entry.RetryCount)
	assert.Empty(t, entry.LastError)

	for _, status := range []OutboxStatus{OutboxStatusPending, OutboxStatusSent, OutboxStatusFailed} {
		e := &OutboxEntry{Status: status}
		assert.Error(t, e.ResetForRetry())
	}
}

func TestOutboxEntry_MarkSent(t *testing.T) {
	entry := &OutboxEntry{Status: OutboxStatusProcessing}
	entry.MarkSent()
	assert.Equal(t, OutboxStatusSent, entry.Status)
	assert.NotNil(t, entry.ProcessedAt)
}
