package contract

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

const (
	EventContractRecalculated  = "contract.recalculated"
	EventContractStatusChanged = "contract.status_changed"

	AggregateContract = "Contract"
)

// RecalculatedEvent carries the outcome of a settlement run
type RecalculatedEvent struct {
	shared.BaseDomainEvent
	ContractID     uuid.UUID         `json:"contract_id"`
	PaidAmount     valueobject.Money `json:"paid_amount"`
	TotalAmount    valueobject.Money `json:"total_amount"`
	PaymentStatus  PaymentStatus     `json:"payment_status"`
	PreviousStatus PaymentStatus     `json:"previous_status"`
}

// NewRecalculatedEvent builds the event
func NewRecalculatedEvent(scope shared.RequestScope, c *Contract, previous PaymentStatus) *RecalculatedEvent {
	return &RecalculatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventContractRecalculated, AggregateContract, c.ID, scope),
		ContractID:      c.ID,
		PaidAmount:      c.PaidAmount,
		TotalAmount:     c.TotalAmount,
		PaymentStatus:   c.PaymentStatus,
		PreviousStatus:  previous,
	}
}

// StatusChangedEvent is consumed by payroll
type StatusChangedEvent struct {
	shared.BaseDomainEvent
	ContractID       uuid.UUID  `json:"contract_id"`
	PreviousStatusID *uuid.UUID `json:"previous_status_id,omitempty"`
	NewStatusID      uuid.UUID  `json:"new_status_id"`
}

// NewStatusChangedEvent builds the event
func NewStatusChangedEvent(scope shared.RequestScope, c *Contract, previous *uuid.UUID) *StatusChangedEvent {
	e := &StatusChangedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventContractStatusChanged, AggregateContract, c.ID, scope),
		ContractID:       c.ID,
		PreviousStatusID: previous,
	}
	if c.StatusID != nil {
		e.NewStatusID = *c.StatusID
	}
	return e
}
