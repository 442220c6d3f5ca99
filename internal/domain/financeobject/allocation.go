package financeobject

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DefaultEpsilon is the tolerance allowed between a transaction sum and the
// total of its split allocations.
var DefaultEpsilon = decimal.RequireFromString("0.01")

// Allocation attributes part of one transaction to one finance object
type Allocation struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	CompanyID       *uuid.UUID
	TransactionID   uuid.UUID
	FinanceObjectID uuid.UUID
	Amount          valueobject.Money
	Comment         string
}

// SplitLine is one requested allocation before validation
type SplitLine struct {
	FinanceObjectID uuid.UUID
	Amount          valueobject.Money
	Comment         string
}

// AssignmentMode is how a transaction is attributed
type AssignmentMode int

const (
	ModeDirect AssignmentMode = iota + 1
	ModeSplit
)

// ResolveMode enforces that exactly one of a target object or a non-empty
// split is given.
func ResolveMode(financeObjectID *uuid.UUID, lines []SplitLine) (AssignmentMode, error) {
	direct := financeObjectID != nil && *financeObjectID != uuid.Nil
	split := len(lines) > 0
	switch {
	case direct && !split:
		return ModeDirect, nil
	case split && !direct:
		return ModeSplit, nil
	default:
		return 0, shared.ErrAssignmentMode
	}
}

// ValidateSplit checks a split against the transaction sum: amounts positive
// and in the same currency, no object twice, total equal within epsilon.
func ValidateSplit(sum valueobject.Money, lines []SplitLine, epsilon decimal.Decimal) error {
	if len(lines) == 0 {
		return shared.ErrAssignmentMode
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	total := valueobject.Zero(sum.Currency())
	for _, l := range lines {
		if l.FinanceObjectID == uuid.Nil {
			return shared.NewDomainError(shared.CodeInvalidInput, "allocation finance object is required")
		}
		if _, dup := seen[l.FinanceObjectID]; dup {
			return shared.ErrDuplicateAllocation
		}
		seen[l.FinanceObjectID] = struct{}{}
		if !l.Amount.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidAmount, "allocation amount must be greater than zero")
		}
		next, err := total.Add(l.Amount)
		if err != nil {
			return err
		}
		total = next
	}
	ok, err := total.WithinTolerance(sum, epsilon)
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrAllocationSumMismatch
	}
	return nil
}

// SplitLegacyContractID derives the contract_id compat value of a split:
// set only when the split has exactly one line and its object is a CONTRACT.
func SplitLegacyContractID(lines []SplitLine, objects map[uuid.UUID]*FinanceObject) *uuid.UUID {
	if len(lines) != 1 {
		return nil
	}
	obj, ok := objects[lines[0].FinanceObjectID]
	if !ok {
		return nil
	}
	return obj.LegacyContractID()
}

// NewAllocations materialises validated lines for a transaction
func NewAllocations(scope shared.RequestScope, transactionID uuid.UUID, lines []SplitLine) []Allocation {
	out := make([]Allocation, 0, len(lines))
	for _, l := range lines {
		out = append(out, Allocation{
			ID:              uuid.New(),
			TenantID:        scope.TenantID,
			CompanyID:       scope.CompanyPtr(),
			TransactionID:   transactionID,
			FinanceObjectID: l.FinanceObjectID,
			Amount:          l.Amount,
			Comment:         l.Comment,
		})
	}
	return out
}
