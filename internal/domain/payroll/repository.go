package payroll

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// RuleRepository persists payroll rules
type RuleRepository interface {
	// ListForUser returns the tenant's rules for a user across all companies
	ListForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]Rule, error)
	List(ctx context.Context, scope shared.RequestScope) ([]Rule, error)
	FindByKey(ctx context.Context, scope shared.RequestScope, userID uuid.UUID, documentType string) (*Rule, error)
	Save(ctx context.Context, r *Rule) error
}

// AccrualFilter narrows ListAccruals
type AccrualFilter struct {
	shared.Filter
	UserID     *uuid.UUID
	ContractID *uuid.UUID
	Status     Status
}

// AccrualRepository persists accruals
type AccrualRepository interface {
	FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*Accrual, error)
	// FindForUpdate locks the given accruals and returns them keyed by id
	FindForUpdate(ctx context.Context, scope shared.RequestScope, ids []uuid.UUID) (map[uuid.UUID]*Accrual, error)
	// FindActiveSystem returns the non-cancelled system accrual for key, or nil
	FindActiveSystem(ctx context.Context, key Key) (*Accrual, error)
	// ListByContract returns every accrual of a contract
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]*Accrual, error)
	List(ctx context.Context, scope shared.RequestScope, filter AccrualFilter) ([]*Accrual, int64, error)
	Save(ctx context.Context, a *Accrual) error
}

// PayoutRepository persists payouts with their items
type PayoutRepository interface {
	FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*Payout, error)
	List(ctx context.Context, scope shared.RequestScope, userID *uuid.UUID, filter shared.Filter) ([]*Payout, int64, error)
	Save(ctx context.Context, p *Payout) error
	Delete(ctx context.Context, id uuid.UUID) error
}
