package financeobject

import (
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// ObjectType classifies what a finance object stands for
type ObjectType string

const (
	ObjectTypeContract ObjectType = "CONTRACT"
	ObjectTypeLoan     ObjectType = "LOAN"
	ObjectTypeFund     ObjectType = "FUND"
	ObjectTypeInternal ObjectType = "INTERNAL"
)

// IsValid reports whether the type is known
func (t ObjectType) IsValid() bool {
	switch t {
	case ObjectTypeContract, ObjectTypeLoan, ObjectTypeFund, ObjectTypeInternal:
		return true
	}
	return false
}

// ObjectStatus governs whether an object takes new money
type ObjectStatus string

const (
	ObjectStatusActive   ObjectStatus = "ACTIVE"
	ObjectStatusClosed   ObjectStatus = "CLOSED"
	ObjectStatusArchived ObjectStatus = "ARCHIVED"
)

// FinanceObject is anything transactions can be attributed to: a contract,
// a loan, a fund.
type FinanceObject struct {
	shared.TenantAggregateRoot
	Type            ObjectType
	Status          ObjectStatus
	Name            string
	LegalContractID *uuid.UUID
}

// NewFinanceObject creates an active object in scope
func NewFinanceObject(scope shared.RequestScope, objectType ObjectType, name string, legalContractID *uuid.UUID) (*FinanceObject, error) {
	if !objectType.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "unknown finance object type")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "finance object name is required")
	}
	return &FinanceObject{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(scope),
		Type:                objectType,
		Status:              ObjectStatusActive,
		Name:                name,
		LegalContractID:     legalContractID,
	}, nil
}

// CanAcceptNewMoney reports whether new transactions may be attributed here
func (o *FinanceObject) CanAcceptNewMoney() bool {
	return o.Status == ObjectStatusActive
}

// LegacyContractID is the value mirrored into the contract_id column: the
// linked legal contract of a CONTRACT object, nil for everything else.
func (o *FinanceObject) LegacyContractID() *uuid.UUID {
	if o.Type != ObjectTypeContract || o.LegalContractID == nil {
		return nil
	}
	id := *o.LegalContractID
	return &id
}

// Close stops the object from accepting money
func (o *FinanceObject) Close() {
	o.Status = ObjectStatusClosed
	o.MarkChanged()
}

// Archive hides the object
func (o *FinanceObject) Archive() {
	o.Status = ObjectStatusArchived
	o.MarkChanged()
}
