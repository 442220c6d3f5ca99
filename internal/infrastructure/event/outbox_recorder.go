package event

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxRecorder appends domain events to the outbox table through the
// transaction it was built with, so the events commit or roll back together
// with the ledger rows that raised them.
type OutboxRecorder struct {
	repo       *GormOutboxRepository
	serializer *EventSerializer
}

// NewOutboxRecorder binds a recorder to tx
func NewOutboxRecorder(tx *gorm.DB, serializer *EventSerializer) *OutboxRecorder {
	return &OutboxRecorder{
		repo:       NewGormOutboxRepository(tx),
		serializer: serializer,
	}
}

// Record serializes events and saves them as pending outbox entries
func (r *OutboxRecorder) Record(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := r.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}
	return r.repo.Save(ctx, entries...)
}

var _ shared.EventRecorder = (*OutboxRecorder)(nil)
