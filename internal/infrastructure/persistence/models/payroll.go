package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/payroll"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayrollRuleModel is the commission rule of one manager for one document type
type PayrollRuleModel struct {
	TenantAggregateModel
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_payroll_rules_key,priority:1"`
	DocumentType  string          `gorm:"type:varchar(50);not null;index:idx_payroll_rules_key,priority:2"`
	FixedAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	MarginPercent decimal.Decimal `gorm:"type:decimal(7,4);not null;default:0"`
	IsActive      bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (PayrollRuleModel) TableName() string {
	return "payroll_rules"
}

// ToDomain converts the persistence model to a domain Rule
func (m *PayrollRuleModel) ToDomain() payroll.Rule {
	return payroll.Rule{
		TenantAggregateRoot: m.tenantRoot(),
		UserID:              m.UserID,
		DocumentType:        m.DocumentType,
		FixedAmount:         money(m.FixedAmount, m.Currency),
		MarginPercent:       m.MarginPercent,
		IsActive:            m.IsActive,
	}
}

// PayrollRuleModelFromDomain creates a persistence model from a domain Rule
func PayrollRuleModelFromDomain(r *payroll.Rule) *PayrollRuleModel {
	m := &PayrollRuleModel{
		UserID:        r.UserID,
		DocumentType:  r.DocumentType,
		FixedAmount:   r.FixedAmount.Amount(),
		Currency:      string(r.FixedAmount.Currency()),
		MarginPercent: r.MarginPercent,
		IsActive:      r.IsActive,
	}
	m.TenantAggregateModel = tenantHeader(r.TenantAggregateRoot)
	return m
}

// AccrualModel is the persistence model for a payroll accrual
type AccrualModel struct {
	TenantAggregateModel
	UserID             uuid.UUID        `gorm:"type:uuid;not null;index"`
	ContractID         uuid.UUID        `gorm:"type:uuid;not null;index"`
	ContractDocumentID *uuid.UUID       `gorm:"type:uuid"`
	Type               string           `gorm:"type:varchar(20);not null"`
	Source             string           `gorm:"type:varchar(10);not null"`
	Status             string           `gorm:"type:varchar(10);not null;index"`
	BaseAmount         decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	Percent            *decimal.Decimal `gorm:"type:decimal(7,4)"`
	Amount             decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	PaidAmount         decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	Currency           string           `gorm:"type:varchar(3);not null"`
	PaidAt             *time.Time
	CancelledAt        *time.Time
	Comment            string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (AccrualModel) TableName() string {
	return "payroll_accruals"
}

// ToDomain converts the persistence model to a domain Accrual
func (m *AccrualModel) ToDomain() *payroll.Accrual {
	return &payroll.Accrual{
		TenantAggregateRoot: m.tenantRoot(),
		UserID:              m.UserID,
		ContractID:          m.ContractID,
		ContractDocumentID:  m.ContractDocumentID,
		Type:                payroll.AccrualType(m.Type),
		Source:              payroll.Source(m.Source),
		Status:              payroll.Status(m.Status),
		BaseAmount:          money(m.BaseAmount, m.Currency),
		Percent:             m.Percent,
		Amount:              money(m.Amount, m.Currency),
		PaidAmount:          money(m.PaidAmount, m.Currency),
		PaidAt:              m.PaidAt,
		CancelledAt:         m.CancelledAt,
		Comment:             m.Comment,
	}
}

// AccrualModelFromDomain creates a persistence model from a domain Accrual
func AccrualModelFromDomain(a *payroll.Accrual) *AccrualModel {
	m := &AccrualModel{
		UserID:             a.UserID,
		ContractID:         a.ContractID,
		ContractDocumentID: a.ContractDocumentID,
		Type:               string(a.Type),
		Source:             string(a.Source),
		Status:             string(a.Status),
		BaseAmount:         a.BaseAmount.Amount(),
		Percent:            a.Percent,
		Amount:             a.Amount.Amount(),
		PaidAmount:         a.PaidAmount.Amount(),
		Currency:           string(a.Amount.Currency()),
		PaidAt:             a.PaidAt,
		CancelledAt:        a.CancelledAt,
		Comment:            a.Comment,
	}
	m.TenantAggregateModel = tenantHeader(a.TenantAggregateRoot)
	return m
}

// PayoutModel is the persistence model for a payroll payout
type PayoutModel struct {
	TenantAggregateModel
	UserID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	CashBoxID  uuid.UUID         `gorm:"type:uuid;not null"`
	SpendingID *uuid.UUID        `gorm:"type:uuid"`
	Total      decimal.Decimal   `gorm:"type:decimal(18,2);not null"`
	Currency   string            `gorm:"type:varchar(3);not null"`
	Date       time.Time         `gorm:"not null"`
	Comment    string            `gorm:"type:text"`
	Items      []PayoutItemModel `gorm:"foreignKey:PayoutID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (PayoutModel) TableName() string {
	return "payroll_payouts"
}

// PayoutItemModel is one line of a payout
type PayoutItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	PayoutID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	AccrualID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (PayoutItemModel) TableName() string {
	return "payroll_payout_items"
}

// ToDomain converts the persistence model to a domain Payout
func (m *PayoutModel) ToDomain() *payroll.Payout {
	p := &payroll.Payout{
		TenantAggregateRoot: m.tenantRoot(),
		UserID:              m.UserID,
		CashBoxID:           m.CashBoxID,
		SpendingID:          m.SpendingID,
		Total:               money(m.Total, m.Currency),
		Date:                m.Date,
		Comment:             m.Comment,
		Items:               make([]payroll.PayoutItem, 0, len(m.Items)),
	}
	for _, it := range m.Items {
		p.Items = append(p.Items, payroll.PayoutItem{
			ID:        it.ID,
			PayoutID:  it.PayoutID,
			AccrualID: it.AccrualID,
			Amount:    money(it.Amount, m.Currency),
		})
	}
	return p
}

// PayoutModelFromDomain creates a persistence model with its items
func PayoutModelFromDomain(p *payroll.Payout) *PayoutModel {
	m := &PayoutModel{
		UserID:     p.UserID,
		CashBoxID:  p.CashBoxID,
		SpendingID: p.SpendingID,
		Total:      p.Total.Amount(),
		Currency:   string(p.Total.Currency()),
		Date:       p.Date,
		Comment:    p.Comment,
		Items:      make([]PayoutItemModel, 0, len(p.Items)),
	}
	m.TenantAggregateModel = tenantHeader(p.TenantAggregateRoot)
	for _, it := range p.Items {
		m.Items = append(m.Items, PayoutItemModel{
			ID:        it.ID,
			PayoutID:  p.ID,
			AccrualID: it.AccrualID,
			Amount:    it.Amount.Amount(),
		})
	}
	return m
}
