package models

import (
	"encoding/json"
	"time"

	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ContractModel holds the payment side of a contract. Paid amount and
// payment status are written only by the settlement reconciler.
type ContractModel struct {
	TenantAggregateModel
	Number        string          `gorm:"type:varchar(100);not null"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Currency      string          `gorm:"type:varchar(3);not null;default:'RUB'"`
	PaymentStatus string          `gorm:"type:varchar(20);not null;default:'NOT_PAID'"`
	ManagerID     *uuid.UUID      `gorm:"type:uuid"`
	StatusID      *uuid.UUID      `gorm:"type:uuid"`
	RecalcAt      *time.Time
}

// TableName returns the table name for GORM
func (ContractModel) TableName() string {
	return "contracts"
}

// ToDomain converts the persistence model to a domain Contract
func (m *ContractModel) ToDomain() *contract.Contract {
	return &contract.Contract{
		TenantAggregateRoot: m.tenantRoot(),
		Number:              m.Number,
		TotalAmount:         money(m.TotalAmount, m.Currency),
		PaidAmount:          money(m.PaidAmount, m.Currency),
		PaymentStatus:       contract.PaymentStatus(m.PaymentStatus),
		ManagerID:           m.ManagerID,
		StatusID:            m.StatusID,
		RecalcAt:            m.RecalcAt,
	}
}

// ContractModelFromDomain creates a persistence model from a domain Contract
func ContractModelFromDomain(c *contract.Contract) *ContractModel {
	m := &ContractModel{
		Number:        c.Number,
		TotalAmount:   c.TotalAmount.Amount(),
		PaidAmount:    c.PaidAmount.Amount(),
		Currency:      string(c.Currency()),
		PaymentStatus: string(c.PaymentStatus),
		ManagerID:     c.ManagerID,
		StatusID:      c.StatusID,
		RecalcAt:      c.RecalcAt,
	}
	m.TenantAggregateModel = tenantHeader(c.TenantAggregateRoot)
	return m
}

// ContractStatusModel is a workflow status row
type ContractStatusModel struct {
	ID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code string    `gorm:"type:varchar(50);not null"`
	Name string    `gorm:"type:varchar(100);not null"`
}

// TableName returns the table name for GORM
func (ContractStatusModel) TableName() string {
	return "contract_statuses"
}

// ToDomain converts the row to a domain Status
func (m *ContractStatusModel) ToDomain() *contract.Status {
	return &contract.Status{ID: m.ID, Code: m.Code, Name: m.Name}
}

// ContractDocumentModel is a document attached to a contract
type ContractDocumentModel struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey"`
	ContractID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	DocumentType string     `gorm:"type:varchar(50);not null"`
	TemplateID   *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ContractDocumentModel) TableName() string {
	return "contract_documents"
}

// ToDomain converts the row to a domain Document
func (m *ContractDocumentModel) ToDomain() contract.Document {
	return contract.Document{
		ID:           m.ID,
		ContractID:   m.ContractID,
		DocumentType: m.DocumentType,
		TemplateID:   m.TemplateID,
	}
}

// DocumentTemplateModel lists product types a document template covers.
// ProductTypes holds a JSON array of strings.
type DocumentTemplateModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name         string    `gorm:"type:varchar(255);not null"`
	ProductTypes string    `gorm:"type:text;not null;default:'[]'"`
}

// TableName returns the table name for GORM
func (DocumentTemplateModel) TableName() string {
	return "document_templates"
}

// ToDomain converts the row to a domain Template. A malformed type list
// yields a template covering nothing.
func (m *DocumentTemplateModel) ToDomain() *contract.Template {
	t := &contract.Template{ID: m.ID, Name: m.Name}
	_ = json.Unmarshal([]byte(m.ProductTypes), &t.ProductTypes)
	return t
}

// DocumentTemplateModelFromDomain creates a row from a domain Template
func DocumentTemplateModelFromDomain(t *contract.Template) *DocumentTemplateModel {
	types := t.ProductTypes
	if types == nil {
		types = []string{}
	}
	raw, _ := json.Marshal(types)
	return &DocumentTemplateModel{ID: t.ID, Name: t.Name, ProductTypes: string(raw)}
}

// ContractItemModel is a planned contract line
type ContractItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ContractID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductType string          `gorm:"type:varchar(50);not null"`
	Total       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency    string          `gorm:"type:varchar(3);not null"`
}

// TableName returns the table name for GORM
func (ContractItemModel) TableName() string {
	return "contract_items"
}

// ToDomain converts the row to a domain Item
func (m *ContractItemModel) ToDomain() contract.Item {
	return contract.Item{
		ID:          m.ID,
		ContractID:  m.ContractID,
		ProductType: m.ProductType,
		Total:       money(m.Total, m.Currency),
	}
}
