package financeobject

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// AllocationKind tells what a spending allocation pays for
type AllocationKind string

const (
	KindPayroll AllocationKind = "payroll"
	KindExpense AllocationKind = "expense"
)

// FinanceAllocation links part of a spending to a contract. Payroll rows
// also carry the accrual and payout they settle.
type FinanceAllocation struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	CompanyID  *uuid.UUID
	SpendingID uuid.UUID
	ContractID *uuid.UUID
	AccrualID  *uuid.UUID
	PayoutID   *uuid.UUID
	Kind       AllocationKind
	Amount     valueobject.Money
	CreatedAt  time.Time
}

// NewPayrollAllocation records the contract linkage of one payout item
func NewPayrollAllocation(scope shared.RequestScope, spendingID, payoutID, accrualID uuid.UUID, contractID *uuid.UUID, amount valueobject.Money) FinanceAllocation {
	return FinanceAllocation{
		ID:         uuid.New(),
		TenantID:   scope.TenantID,
		CompanyID:  scope.CompanyPtr(),
		SpendingID: spendingID,
		ContractID: contractID,
		AccrualID:  &accrualID,
		PayoutID:   &payoutID,
		Kind:       KindPayroll,
		Amount:     amount,
		CreatedAt:  time.Now(),
	}
}

// NewExpenseAllocation attributes part of a spending to a contract's costs
func NewExpenseAllocation(scope shared.RequestScope, spendingID, contractID uuid.UUID, amount valueobject.Money) (FinanceAllocation, error) {
	if !amount.IsPositive() {
		return FinanceAllocation{}, shared.NewDomainError(shared.CodeInvalidAmount, "allocation amount must be greater than zero")
	}
	return FinanceAllocation{
		ID:         uuid.New(),
		TenantID:   scope.TenantID,
		CompanyID:  scope.CompanyPtr(),
		SpendingID: spendingID,
		ContractID: &contractID,
		Kind:       KindExpense,
		Amount:     amount,
		CreatedAt:  time.Now(),
	}, nil
}
