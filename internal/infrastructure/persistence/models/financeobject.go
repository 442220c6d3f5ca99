package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/financeobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FinanceObjectModel is the persistence model for a finance object
type FinanceObjectModel struct {
	TenantAggregateModel
	Type            string     `gorm:"type:varchar(20);not null"`
	Status          string     `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
	Name            string     `gorm:"type:varchar(255);not null"`
	LegalContractID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (FinanceObjectModel) TableName() string {
	return "finance_objects"
}

// ToDomain converts the persistence model to a domain FinanceObject
func (m *FinanceObjectModel) ToDomain() *financeobject.FinanceObject {
	return &financeobject.FinanceObject{
		TenantAggregateRoot: m.tenantRoot(),
		Type:                financeobject.ObjectType(m.Type),
		Status:              financeobject.ObjectStatus(m.Status),
		Name:                m.Name,
		LegalContractID:     m.LegalContractID,
	}
}

// FinanceObjectModelFromDomain creates a persistence model from a domain FinanceObject
func FinanceObjectModelFromDomain(o *financeobject.FinanceObject) *FinanceObjectModel {
	m := &FinanceObjectModel{
		Type:            string(o.Type),
		Status:          string(o.Status),
		Name:            o.Name,
		LegalContractID: o.LegalContractID,
	}
	m.TenantAggregateModel = tenantHeader(o.TenantAggregateRoot)
	return m
}

// AllocationModel attributes part of a transaction to a finance object
type AllocationModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID        uuid.UUID       `gorm:"type:uuid;not null"`
	CompanyID       *uuid.UUID      `gorm:"type:uuid"`
	TransactionID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	FinanceObjectID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	Comment         string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AllocationModel) TableName() string {
	return "finance_object_allocations"
}

// ToDomain converts the row to a domain Allocation
func (m *AllocationModel) ToDomain() financeobject.Allocation {
	return financeobject.Allocation{
		ID:              m.ID,
		TenantID:        m.TenantID,
		CompanyID:       m.CompanyID,
		TransactionID:   m.TransactionID,
		FinanceObjectID: m.FinanceObjectID,
		Amount:          money(m.Amount, m.Currency),
		Comment:         m.Comment,
	}
}

// AllocationModelFromDomain creates a row from a domain Allocation
func AllocationModelFromDomain(a financeobject.Allocation) AllocationModel {
	return AllocationModel{
		ID:              a.ID,
		TenantID:        a.TenantID,
		CompanyID:       a.CompanyID,
		TransactionID:   a.TransactionID,
		FinanceObjectID: a.FinanceObjectID,
		Amount:          a.Amount.Amount(),
		Currency:        string(a.Amount.Currency()),
		Comment:         a.Comment,
	}
}

// FinanceAllocationModel links part of a spending to a contract
type FinanceAllocationModel struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID       `gorm:"type:uuid;not null"`
	CompanyID  *uuid.UUID      `gorm:"type:uuid"`
	SpendingID uuid.UUID       `gorm:"type:uuid;not null;index"`
	ContractID *uuid.UUID      `gorm:"type:uuid;index"`
	AccrualID  *uuid.UUID      `gorm:"type:uuid"`
	PayoutID   *uuid.UUID      `gorm:"type:uuid;index"`
	Kind       string          `gorm:"type:varchar(20);not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency   string          `gorm:"type:varchar(3);not null"`
	CreatedAt  time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FinanceAllocationModel) TableName() string {
	return "finance_allocations"
}

// ToDomain converts the row to a domain FinanceAllocation
func (m *FinanceAllocationModel) ToDomain() financeobject.FinanceAllocation {
	return financeobject.FinanceAllocation{
		ID:         m.ID,
		TenantID:   m.TenantID,
		CompanyID:  m.CompanyID,
		SpendingID: m.SpendingID,
		ContractID: m.ContractID,
		AccrualID:  m.AccrualID,
		PayoutID:   m.PayoutID,
		Kind:       financeobject.AllocationKind(m.Kind),
		Amount:     money(m.Amount, m.Currency),
		CreatedAt:  m.CreatedAt,
	}
}

// FinanceAllocationModelFromDomain creates a row from a domain FinanceAllocation
func FinanceAllocationModelFromDomain(a financeobject.FinanceAllocation) FinanceAllocationModel {
	return FinanceAllocationModel{
		ID:         a.ID,
		TenantID:   a.TenantID,
		CompanyID:  a.CompanyID,
		SpendingID: a.SpendingID,
		ContractID: a.ContractID,
		AccrualID:  a.AccrualID,
		PayoutID:   a.PayoutID,
		Kind:       string(a.Kind),
		Amount:     a.Amount.Amount(),
		Currency:   string(a.Amount.Currency()),
		CreatedAt:  a.CreatedAt,
	}
}
