package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// OutboxEventModel is one row of outbox_events. Company is NULL for events
// raised outside a company scope.
type OutboxEventModel struct {
	BaseModel
	TenantID      uuid.UUID  `gorm:"type:uuid;not null;index:idx_outbox_tenant_status,priority:1"`
	CompanyID     *uuid.UUID `gorm:"type:uuid"`
	EventID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:idx_outbox_events_event_id"`
	EventType     string     `gorm:"type:varchar(255);not null"`
	AggregateType string     `gorm:"type:varchar(255);not null"`
	AggregateID   uuid.UUID  `gorm:"type:uuid;not null"`
	OccurredAt    time.Time  `gorm:"not null"`
	Payload       []byte     `gorm:"type:jsonb;not null"`

	Status      shared.OutboxStatus `gorm:"type:varchar(20);default:'PENDING';index:idx_outbox_tenant_status,priority:2;index:idx_outbox_status_created,priority:1"`
	RetryCount  int                 `gorm:"default:0"`
	MaxRetries  int                 `gorm:"default:5"`
	LastError   string              `gorm:"type:text"`
	NextRetryAt *time.Time          `gorm:"index:idx_outbox_next_retry"`
	ProcessedAt *time.Time
}

func (OutboxEventModel) TableName() string {
	return "outbox_events"
}

// ToEntry rebuilds the queued entry
func (m *OutboxEventModel) ToEntry() *shared.OutboxEntry {
	e := &shared.OutboxEntry{
		ID:            m.ID,
		TenantID:      m.TenantID,
		EventID:       m.EventID,
		EventType:     m.EventType,
		AggregateType: m.AggregateType,
		AggregateID:   m.AggregateID,
		OccurredAt:    m.OccurredAt,
		Payload:       m.Payload,
		Status:        m.Status,
		RetryCount:    m.RetryCount,
		MaxRetries:    m.MaxRetries,
		LastError:     m.LastError,
		NextRetryAt:   m.NextRetryAt,
		ProcessedAt:   m.ProcessedAt,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
	if m.CompanyID != nil {
		e.CompanyID = *m.CompanyID
	}
	return e
}

// OutboxEventModelFromEntry maps an entry onto a row
func OutboxEventModelFromEntry(e *shared.OutboxEntry) *OutboxEventModel {
	m := &OutboxEventModel{
		BaseModel:     BaseModel{ID: e.ID, CreatedAt: e.CreatedAt, UpdatedAt: e.UpdatedAt},
		TenantID:      e.TenantID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		OccurredAt:    e.OccurredAt,
		Payload:       e.Payload,
		Status:        e.Status,
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
	}
	if e.CompanyID != uuid.Nil {
		company := e.CompanyID
		m.CompanyID = &company
	}
	if m.OccurredAt.IsZero() {
		m.OccurredAt = e.CreatedAt
	}
	return m
}
