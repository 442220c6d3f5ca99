package shared

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// OutboxStatus is the delivery state of a persisted event
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "PENDING"
	OutboxStatusProcessing OutboxStatus = "PROCESSING"
	OutboxStatusSent       OutboxStatus = "SENT"
	OutboxStatusFailed     OutboxStatus = "FAILED"
	OutboxStatusDead       OutboxStatus = "DEAD"
)

const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
	DefaultMaxBackoff  = 5 * time.Minute
)

// OutboxEntry is a ledger, contract or payroll event committed together with
// the rows that raised it and delivered to the bus afterwards.
type OutboxEntry struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	CompanyID     uuid.UUID
	EventID       uuid.UUID
	EventType     string
	AggregateType string
	AggregateID   uuid.UUID
	OccurredAt    time.Time
	Payload       []byte

	Status      OutboxStatus
	RetryCount  int
	MaxRetries  int
	LastError   string
	NextRetryAt *time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type scopedEvent interface {
	Scope() RequestScope
}

// NewOutboxEntry wraps an already serialized event as a pending entry
func NewOutboxEntry(event DomainEvent, payload []byte) *OutboxEntry {
	now := time.Now()
	entry := &OutboxEntry{
		ID:            uuid.New(),
		TenantID:      event.TenantID(),
		EventID:       event.EventID(),
		EventType:     event.EventType(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		OccurredAt:    event.OccurredAt(),
		Payload:       payload,
		Status:        OutboxStatusPending,
		MaxRetries:    DefaultMaxRetries,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if s, ok := event.(scopedEvent); ok {
		entry.CompanyID = s.Scope().CompanyID
	}
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = now
	}
	return entry
}

// MarkSent records a successful delivery
func (e *OutboxEntry) MarkSent() {
	now := time.Now()
	e.Status = OutboxStatusSent
	e.ProcessedAt = &now
	e.NextRetryAt = nil
	e.UpdatedAt = now
}

// MarkFailed stores errMsg and either schedules the next attempt or, once
// MaxRetries attempts have failed, parks the entry as DEAD.
func (e *OutboxEntry) MarkFailed(errMsg string) {
	e.RetryCount++
	e.LastError = errMsg
	e.UpdatedAt = time.Now()

	if e.RetryCount >= e.MaxRetries {
		e.Status = OutboxStatusDead
		e.NextRetryAt = nil
		return
	}
	e.Status = OutboxStatusFailed
	next := e.UpdatedAt.Add(RetryBackoff(e.RetryCount))
	e.NextRetryAt = &next
}

// RetryBackoff doubles DefaultBaseBackoff per failed attempt, capped at
// DefaultMaxBackoff
func RetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		return DefaultBaseBackoff
	}
	d := DefaultBaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= DefaultMaxBackoff {
			return DefaultMaxBackoff
		}
	}
	return d
}

// ResetForRetry puts a DEAD entry back in the queue
func (e *OutboxEntry) ResetForRetry() error {
	if e.Status != OutboxStatusDead {
		return errors.New("only dead entries can be requeued")
	}
	e.Status = OutboxStatusPending
	e.RetryCount = 0
	e.LastError = ""
	e.NextRetryAt = nil
	e.UpdatedAt = time.Now()
	return nil
}

func (e *OutboxEntry) IsDead() bool {
	return e.Status == OutboxStatusDead
}

// OutboxRepository persists and claims outbox entries
type OutboxRepository interface {
	Save(ctx context.Context, entries ...*OutboxEntry) error
	// ClaimDue locks up to limit pending or due-for-retry entries, marks them
	// PROCESSING and returns them. Concurrent callers never claim the same row.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*OutboxEntry, error)
	Update(ctx context.Context, entry *OutboxEntry) error
	DeleteSentBefore(ctx context.Context, before time.Time) (int64, error)
}

// EventRecorder appends events to the outbox of the current unit of work
type EventRecorder interface {
	Record(ctx context.Context, events ...DomainEvent) error
}
