package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is identity plus timestamps
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch bumps UpdatedAt
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now()
}

// BaseAggregateRoot carries the version that repositories compare on
// update. A stale version means a concurrent writer won.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
}

func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// MarkChanged records a state change: UpdatedAt moves and the version
// advances by one
func (a *BaseAggregateRoot) MarkChanged() {
	a.Touch()
	a.Version++
}

// TenantAggregateRoot is owned by one tenant and optionally one company
// inside it
type TenantAggregateRoot struct {
	BaseAggregateRoot
	TenantID  uuid.UUID
	CompanyID *uuid.UUID
	CreatedBy *uuid.UUID
}

// NewTenantAggregateRoot stamps a new aggregate with the books and actor of
// scope
func NewTenantAggregateRoot(scope RequestScope) TenantAggregateRoot {
	root := TenantAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		TenantID:          scope.TenantID,
		CompanyID:         scope.CompanyPtr(),
	}
	if scope.ActorID != uuid.Nil {
		actor := scope.ActorID
		root.CreatedBy = &actor
	}
	return root
}

// BelongsTo reports whether scope may see the aggregate. A scope without a
// company sees every company of its tenant.
func (t *TenantAggregateRoot) BelongsTo(scope RequestScope) bool {
	if t.TenantID != scope.TenantID {
		return false
	}
	if scope.CompanyID == uuid.Nil || t.CompanyID == nil {
		return true
	}
	return *t.CompanyID == scope.CompanyID
}
