package shared

import (
	"context"

	"github.com/google/uuid"
)

// RequestScope identifies who performs an operation and on whose books.
// It is built once per request by the transport layer and passed explicitly
// into every application service call.
type RequestScope struct {
	TenantID  uuid.UUID
	CompanyID uuid.UUID
	ActorID   uuid.UUID
}

// SystemActorID is the actor recorded for background jobs and event handlers
var SystemActorID = uuid.Nil

// NewRequestScope builds a scope; companyID may be uuid.Nil.
func NewRequestScope(tenantID, companyID, actorID uuid.UUID) RequestScope {
	return RequestScope{TenantID: tenantID, CompanyID: companyID, ActorID: actorID}
}

// Validate checks that the scope carries a tenant
func (s RequestScope) Validate() error {
	if s.TenantID == uuid.Nil {
		return NewDomainError(CodeInvalidInput, "tenant is required")
	}
	return nil
}

// CompanyPtr returns the company as a nullable column value
func (s RequestScope) CompanyPtr() *uuid.UUID {
	if s.CompanyID == uuid.Nil {
		return nil
	}
	id := s.CompanyID
	return &id
}

// ActorPtr returns the actor as a nullable column value
func (s RequestScope) ActorPtr() *uuid.UUID {
	if s.ActorID == uuid.Nil {
		return nil
	}
	id := s.ActorID
	return &id
}

// Action names a guarded operation
type Action string

const (
	ActionManageCashBoxes Action = "cash_box:manage"
	ActionViewLedger      Action = "ledger:view"
	ActionWriteLedger     Action = "ledger:write"
	ActionAssign          Action = "ledger:assign"
	ActionRecalcContracts Action = "contract:recalc"
	ActionManagePayroll   Action = "payroll:manage"
	ActionViewPayroll     Action = "payroll:view"
	ActionBuildReports    Action = "report:build"
	ActionViewReports     Action = "report:view"
)

// Policy decides whether an actor may perform an action on a resource.
// Services never call it; the transport layer does, once per guarded route.
type Policy interface {
	CanPerform(ctx context.Context, actor RequestScope, action Action, resource string) (bool, error)
}
