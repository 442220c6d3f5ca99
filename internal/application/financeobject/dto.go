package financeobject

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AllocationLine is one requested split line
type AllocationLine struct {
	FinanceObjectID uuid.UUID       `json:"finance_object_id" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	Comment         string          `json:"comment" binding:"max=1000"`
}

// AssignRequest attributes a transaction either directly to one finance
// object or split across several. Exactly one of the two must be set.
type AssignRequest struct {
	FinanceObjectID *uuid.UUID       `json:"finance_object_id"`
	Allocations     []AllocationLine `json:"allocations" binding:"omitempty,dive"`
}

// BulkAssignRequest points many transactions at one finance object
type BulkAssignRequest struct {
	TransactionIDs  []uuid.UUID `json:"transaction_ids" binding:"required,min=1,max=1000"`
	FinanceObjectID uuid.UUID   `json:"finance_object_id" binding:"required"`
}

// AssignmentResponse describes the attribution after an assignment
type AssignmentResponse struct {
	TransactionID   uuid.UUID          `json:"transaction_id"`
	FinanceObjectID *uuid.UUID         `json:"finance_object_id,omitempty"`
	ContractID      *uuid.UUID         `json:"contract_id,omitempty"`
	Allocations     []AllocationResult `json:"allocations,omitempty"`
}

// AllocationResult is one stored split line
type AllocationResult struct {
	FinanceObjectID uuid.UUID       `json:"finance_object_id"`
	Amount          decimal.Decimal `json:"amount"`
	Comment         string          `json:"comment,omitempty"`
}

// BulkAssignResponse reports how many transactions were updated
type BulkAssignResponse struct {
	Updated int `json:"updated"`
}
