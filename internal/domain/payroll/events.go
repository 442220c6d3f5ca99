package payroll

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

const (
	EventAccrualsChanged = "payroll.accruals_changed"
	EventPayoutCreated   = "payroll.payout_created"
	EventPayoutDeleted   = "payroll.payout_deleted"

	AggregateAccrual = "PayrollAccrual"
	AggregatePayout  = "PayrollPayout"
)

// AccrualsChangedEvent summarises one accrual run for a contract
type AccrualsChangedEvent struct {
	shared.BaseDomainEvent
	ContractID uuid.UUID `json:"contract_id"`
	Reason     string    `json:"reason"`
	Upserted   int       `json:"upserted"`
	Cancelled  int       `json:"cancelled"`
}

// NewAccrualsChangedEvent builds the event
func NewAccrualsChangedEvent(scope shared.RequestScope, contractID uuid.UUID, reason string, upserted, cancelled int) *AccrualsChangedEvent {
	return &AccrualsChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventAccrualsChanged, AggregateAccrual, contractID, scope),
		ContractID:      contractID,
		Reason:          reason,
		Upserted:        upserted,
		Cancelled:       cancelled,
	}
}

// PayoutEvent covers payout creation and deletion
type PayoutEvent struct {
	shared.BaseDomainEvent
	PayoutID   uuid.UUID         `json:"payout_id"`
	UserID     uuid.UUID         `json:"user_id"`
	SpendingID *uuid.UUID        `json:"spending_id,omitempty"`
	Total      valueobject.Money `json:"total"`
}

// NewPayoutEvent builds a payout event
func NewPayoutEvent(eventType string, scope shared.RequestScope, p *Payout) *PayoutEvent {
	return &PayoutEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregatePayout, p.ID, scope),
		PayoutID:        p.ID,
		UserID:          p.UserID,
		SpendingID:      p.SpendingID,
		Total:           p.Total,
	}
}
