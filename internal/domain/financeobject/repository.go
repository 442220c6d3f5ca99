package financeobject

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// FinanceObjectRepository reads and writes finance objects, scoped to the
// caller's tenant and company.
type FinanceObjectRepository interface {
	FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*FinanceObject, error)
	// FindByIDs returns the visible subset keyed by id
	FindByIDs(ctx context.Context, scope shared.RequestScope, ids []uuid.UUID) (map[uuid.UUID]*FinanceObject, error)
	Save(ctx context.Context, obj *FinanceObject) error
}

// AllocationRepository stores split allocations. ReplaceForTransaction
// deletes every prior row of the transaction before inserting.
type AllocationRepository interface {
	FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]Allocation, error)
	ReplaceForTransaction(ctx context.Context, transactionID uuid.UUID, allocations []Allocation) error
	DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error
}

// FinanceAllocationRepository stores spending-to-contract links
type FinanceAllocationRepository interface {
	SaveAll(ctx context.Context, rows []FinanceAllocation) error
	FindByPayout(ctx context.Context, payoutID uuid.UUID) ([]FinanceAllocation, error)
	DeleteByPayout(ctx context.Context, payoutID uuid.UUID) error
	DeleteBySpending(ctx context.Context, spendingID uuid.UUID) error
	// SumExpensesForContract totals what a contract cost: raw spendings on
	// the contract without allocation rows plus expense-kind allocations.
	// Payroll allocations are never counted.
	SumExpensesForContract(ctx context.Context, contractID uuid.UUID, currency valueobject.Currency) (valueobject.Money, error)
}
