package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent represents an event that occurred in the domain
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// BaseDomainEvent provides common fields for all domain events
type BaseDomainEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggID         uuid.UUID `json:"aggregate_id"`
	AggType       string    `json:"aggregate_type"`
	TenantIDValue uuid.UUID `json:"tenant_id"`
	CompanyID     uuid.UUID `json:"company_id,omitempty"`
	ActorID       uuid.UUID `json:"actor_id,omitempty"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID     { return e.ID }
func (e *BaseDomainEvent) EventType() string      { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time  { return e.Timestamp }
func (e *BaseDomainEvent) AggregateID() uuid.UUID { return e.AggID }
func (e *BaseDomainEvent) AggregateType() string  { return e.AggType }
func (e *BaseDomainEvent) TenantID() uuid.UUID    { return e.TenantIDValue }

// Scope rebuilds the request scope the event was raised under
func (e *BaseDomainEvent) Scope() RequestScope {
	return NewRequestScope(e.TenantIDValue, e.CompanyID, e.ActorID)
}

// NewBaseDomainEvent creates a new base domain event raised under scope
func NewBaseDomainEvent(eventType, aggType string, aggID uuid.UUID, scope RequestScope) BaseDomainEvent {
	return BaseDomainEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now(),
		AggID:         aggID,
		AggType:       aggType,
		TenantIDValue: scope.TenantID,
		CompanyID:     scope.CompanyID,
		ActorID:       scope.ActorID,
	}
}

// EventHandler handles domain events
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants; empty means all.
	EventTypes() []string
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus dispatches published events to subscribed handlers
type EventBus interface {
	EventPublisher
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// IdempotencyStore remembers which (handler, event) pairs were already processed.
// Delivery from the outbox is at-least-once, so handlers consult it first.
type IdempotencyStore interface {
	// MarkProcessed returns true only for the first caller with a given key.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Forget drops a key so a failed handler can be retried.
	Forget(ctx context.Context, key string) error
	Close() error
}
