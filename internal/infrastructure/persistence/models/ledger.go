package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashBoxModel is the persistence model for the CashBox aggregate root.
// A NULL tenant marks a shared box visible to every tenant.
type CashBoxModel struct {
	AggregateModel
	TenantID    *uuid.UUID `gorm:"type:uuid;index"`
	CompanyID   *uuid.UUID `gorm:"type:uuid;index"`
	Name        string     `gorm:"type:varchar(255);not null"`
	Description string     `gorm:"type:text"`
	Currency    string     `gorm:"type:varchar(3);not null;default:'RUB'"`
	LogoSource  string     `gorm:"type:varchar(10);not null;default:'preset'"`
	LogoPath    string     `gorm:"type:varchar(500)"`
	SortOrder   int        `gorm:"not null;default:0"`
	IsArchived  bool       `gorm:"not null;default:false;index"`
	ArchivedAt  *time.Time
	CreatedBy   *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (CashBoxModel) TableName() string {
	return "cash_boxes"
}

// ToDomain converts the persistence model to a domain CashBox
func (m *CashBoxModel) ToDomain() *ledger.CashBox {
	return &ledger.CashBox{
		BaseAggregateRoot: m.aggregateRoot(),
		TenantID:          m.TenantID,
		CompanyID:         m.CompanyID,
		Name:              m.Name,
		Description:       m.Description,
		Currency:          valueobject.Currency(m.Currency),
		LogoSource:        ledger.LogoSource(m.LogoSource),
		LogoPath:          m.LogoPath,
		SortOrder:         m.SortOrder,
		IsArchived:        m.IsArchived,
		ArchivedAt:        m.ArchivedAt,
		CreatedBy:         m.CreatedBy,
	}
}

// CashBoxModelFromDomain creates a persistence model from a domain CashBox
func CashBoxModelFromDomain(b *ledger.CashBox) *CashBoxModel {
	m := &CashBoxModel{
		TenantID:    b.TenantID,
		CompanyID:   b.CompanyID,
		Name:        b.Name,
		Description: b.Description,
		Currency:    string(b.Currency),
		LogoSource:  string(b.LogoSource),
		LogoPath:    b.LogoPath,
		SortOrder:   b.SortOrder,
		IsArchived:  b.IsArchived,
		ArchivedAt:  b.ArchivedAt,
		CreatedBy:   b.CreatedBy,
	}
	m.AggregateModel = aggregateHeader(b.BaseAggregateRoot)
	return m
}

// TransactionTypeModel is a row of the transaction type catalog
type TransactionTypeModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Code      string    `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name      string    `gorm:"type:varchar(100);not null"`
	Sign      int       `gorm:"not null"`
	IsActive  bool      `gorm:"not null;default:true"`
	SortOrder int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (TransactionTypeModel) TableName() string {
	return "transaction_types"
}

// ToDomain converts the row to a domain TransactionType
func (m *TransactionTypeModel) ToDomain() ledger.TransactionType {
	return ledger.TransactionType{
		ID:        m.ID,
		Code:      ledger.TypeCode(m.Code),
		Name:      m.Name,
		Sign:      ledger.Sign(m.Sign),
		IsActive:  m.IsActive,
		SortOrder: m.SortOrder,
	}
}

// TransactionModel is the persistence model for a ledger transaction
type TransactionModel struct {
	TenantAggregateModel
	Sum             decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	CashBoxID       uuid.UUID       `gorm:"type:uuid;not null;index:idx_transactions_box_completed,priority:1"`
	TypeID          uuid.UUID       `gorm:"type:uuid;not null"`
	TypeCode        string          `gorm:"type:varchar(50);not null"`
	PaymentMethodID *uuid.UUID      `gorm:"type:uuid"`
	CounterpartyID  *uuid.UUID      `gorm:"type:uuid"`
	ContractID      *uuid.UUID      `gorm:"type:uuid;index"`
	FinanceObjectID *uuid.UUID      `gorm:"type:uuid;index"`
	CashflowItemID  *uuid.UUID      `gorm:"type:uuid"`
	SourceKind      string          `gorm:"type:varchar(20)"`
	SourceID        *uuid.UUID      `gorm:"type:uuid"`
	IsPaid          bool            `gorm:"not null;default:false"`
	PaidAt          *time.Time
	IsCompleted     bool `gorm:"not null;default:false;index:idx_transactions_box_completed,priority:2"`
	CompletedAt     *time.Time
	Date            time.Time `gorm:"not null;index"`
	Notes           string    `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (TransactionModel) TableName() string {
	return "transactions"
}

// ToDomain converts the persistence model to a domain Transaction
func (m *TransactionModel) ToDomain() *ledger.Transaction {
	t := &ledger.Transaction{
		TenantAggregateRoot: m.tenantRoot(),
		Sum:                 money(m.Sum, m.Currency),
		CashBoxID:           m.CashBoxID,
		TypeID:              m.TypeID,
		TypeCode:            ledger.TypeCode(m.TypeCode),
		PaymentMethodID:     m.PaymentMethodID,
		CounterpartyID:      m.CounterpartyID,
		ContractID:          m.ContractID,
		FinanceObjectID:     m.FinanceObjectID,
		CashflowItemID:      m.CashflowItemID,
		IsPaid:              m.IsPaid,
		PaidAt:              m.PaidAt,
		IsCompleted:         m.IsCompleted,
		CompletedAt:         m.CompletedAt,
		Date:                m.Date,
		Notes:               m.Notes,
	}
	if m.SourceKind != "" && m.SourceID != nil {
		t.Source = &ledger.SourceRef{Kind: ledger.SourceKind(m.SourceKind), ID: *m.SourceID}
	}
	return t
}

// TransactionModelFromDomain creates a persistence model from a domain Transaction
func TransactionModelFromDomain(t *ledger.Transaction) *TransactionModel {
	m := &TransactionModel{
		Sum:             t.Sum.Amount(),
		Currency:        string(t.Sum.Currency()),
		CashBoxID:       t.CashBoxID,
		TypeID:          t.TypeID,
		TypeCode:        string(t.TypeCode),
		PaymentMethodID: t.PaymentMethodID,
		CounterpartyID:  t.CounterpartyID,
		ContractID:      t.ContractID,
		FinanceObjectID: t.FinanceObjectID,
		CashflowItemID:  t.CashflowItemID,
		IsPaid:          t.IsPaid,
		PaidAt:          t.PaidAt,
		IsCompleted:     t.IsCompleted,
		CompletedAt:     t.CompletedAt,
		Date:            t.Date,
		Notes:           t.Notes,
	}
	if t.Source != nil {
		id := t.Source.ID
		m.SourceKind = string(t.Source.Kind)
		m.SourceID = &id
	}
	m.TenantAggregateModel = tenantHeader(t.TenantAggregateRoot)
	return m
}

// ReceiptModel is the persistence model for a receipt document
type ReceiptModel struct {
	TenantAggregateModel
	Kind            string          `gorm:"type:varchar(20);not null"`
	CashBoxID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	TransactionID   *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	ContractID      *uuid.UUID      `gorm:"type:uuid;index"`
	CounterpartyID  *uuid.UUID      `gorm:"type:uuid"`
	FinanceObjectID *uuid.UUID      `gorm:"type:uuid"`
	Sum             decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	Date            time.Time       `gorm:"not null"`
	Notes           string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToDomain converts the persistence model to a domain Receipt
func (m *ReceiptModel) ToDomain() *ledger.Receipt {
	return &ledger.Receipt{
		TenantAggregateRoot: m.tenantRoot(),
		Kind:                ledger.ReceiptKind(m.Kind),
		CashBoxID:           m.CashBoxID,
		TransactionID:       m.TransactionID,
		ContractID:          m.ContractID,
		CounterpartyID:      m.CounterpartyID,
		FinanceObjectID:     m.FinanceObjectID,
		Sum:                 money(m.Sum, m.Currency),
		Date:                m.Date,
		Notes:               m.Notes,
	}
}

// ReceiptModelFromDomain creates a persistence model from a domain Receipt
func ReceiptModelFromDomain(r *ledger.Receipt) *ReceiptModel {
	m := &ReceiptModel{
		Kind:            string(r.Kind),
		CashBoxID:       r.CashBoxID,
		TransactionID:   r.TransactionID,
		ContractID:      r.ContractID,
		CounterpartyID:  r.CounterpartyID,
		FinanceObjectID: r.FinanceObjectID,
		Sum:             r.Sum.Amount(),
		Currency:        string(r.Sum.Currency()),
		Date:            r.Date,
		Notes:           r.Notes,
	}
	m.TenantAggregateModel = tenantHeader(r.TenantAggregateRoot)
	return m
}

// SpendingModel is the persistence model for a spending document
type SpendingModel struct {
	TenantAggregateModel
	Kind            string          `gorm:"type:varchar(30);not null"`
	CashBoxID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	TransactionID   *uuid.UUID      `gorm:"type:uuid;uniqueIndex"`
	ContractID      *uuid.UUID      `gorm:"type:uuid;index"`
	SpendingItemID  *uuid.UUID      `gorm:"type:uuid"`
	FundID          *uuid.UUID      `gorm:"type:uuid"`
	CounterpartyID  *uuid.UUID      `gorm:"type:uuid"`
	FinanceObjectID *uuid.UUID      `gorm:"type:uuid"`
	Sum             decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency        string          `gorm:"type:varchar(3);not null"`
	Date            time.Time       `gorm:"not null"`
	Notes           string          `gorm:"type:text"`
	AllocationKind  string          `gorm:"type:varchar(20)"`
	SkipAllocation  bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (SpendingModel) TableName() string {
	return "spendings"
}

// ToDomain converts the persistence model to a domain Spending
func (m *SpendingModel) ToDomain() *ledger.Spending {
	return &ledger.Spending{
		TenantAggregateRoot: m.tenantRoot(),
		Kind:                ledger.SpendingKind(m.Kind),
		CashBoxID:           m.CashBoxID,
		TransactionID:       m.TransactionID,
		ContractID:          m.ContractID,
		SpendingItemID:      m.SpendingItemID,
		FundID:              m.FundID,
		CounterpartyID:      m.CounterpartyID,
		FinanceObjectID:     m.FinanceObjectID,
		Sum:                 money(m.Sum, m.Currency),
		Date:                m.Date,
		Notes:               m.Notes,
		AllocationKind:      m.AllocationKind,
		SkipAllocation:      m.SkipAllocation,
	}
}

// SpendingModelFromDomain creates a persistence model from a domain Spending
func SpendingModelFromDomain(s *ledger.Spending) *SpendingModel {
	m := &SpendingModel{
		Kind:            string(s.Kind),
		CashBoxID:       s.CashBoxID,
		TransactionID:   s.TransactionID,
		ContractID:      s.ContractID,
		SpendingItemID:  s.SpendingItemID,
		FundID:          s.FundID,
		CounterpartyID:  s.CounterpartyID,
		FinanceObjectID: s.FinanceObjectID,
		Sum:             s.Sum.Amount(),
		Currency:        string(s.Sum.Currency()),
		Date:            s.Date,
		Notes:           s.Notes,
		AllocationKind:  s.AllocationKind,
		SkipAllocation:  s.SkipAllocation,
	}
	m.TenantAggregateModel = tenantHeader(s.TenantAggregateRoot)
	return m
}

// CashTransferModel pairs the two legs of a transfer
type CashTransferModel struct {
	TenantAggregateModel
	FromCashBoxID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	ToCashBoxID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Sum              decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency         string          `gorm:"type:varchar(3);not null"`
	TransactionOutID uuid.UUID       `gorm:"type:uuid;not null"`
	TransactionInID  uuid.UUID       `gorm:"type:uuid;not null"`
	Date             time.Time       `gorm:"not null"`
	Notes            string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (CashTransferModel) TableName() string {
	return "cash_transfers"
}

// ToDomain converts the persistence model to a domain CashTransfer
func (m *CashTransferModel) ToDomain() *ledger.CashTransfer {
	return &ledger.CashTransfer{
		TenantAggregateRoot: m.tenantRoot(),
		FromCashBoxID:       m.FromCashBoxID,
		ToCashBoxID:         m.ToCashBoxID,
		Sum:                 money(m.Sum, m.Currency),
		TransactionOutID:    m.TransactionOutID,
		TransactionInID:     m.TransactionInID,
		Date:                m.Date,
		Notes:               m.Notes,
	}
}

// CashTransferModelFromDomain creates a persistence model from a domain CashTransfer
func CashTransferModelFromDomain(t *ledger.CashTransfer) *CashTransferModel {
	m := &CashTransferModel{
		FromCashBoxID:    t.FromCashBoxID,
		ToCashBoxID:      t.ToCashBoxID,
		Sum:              t.Sum.Amount(),
		Currency:         string(t.Sum.Currency()),
		TransactionOutID: t.TransactionOutID,
		TransactionInID:  t.TransactionInID,
		Date:             t.Date,
		Notes:            t.Notes,
	}
	m.TenantAggregateModel = tenantHeader(t.TenantAggregateRoot)
	return m
}

// BalanceHistoryModel is an append-only audit row of a balance change
type BalanceHistoryModel struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID      *uuid.UUID      `gorm:"type:uuid"`
	CashBoxID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_balance_history_box_time,priority:1"`
	TransactionID *uuid.UUID      `gorm:"type:uuid"`
	Delta         decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency      string          `gorm:"type:varchar(3);not null"`
	Reason        string          `gorm:"type:varchar(20);not null"`
	RecordedAt    time.Time       `gorm:"not null;index:idx_balance_history_box_time,priority:2"`
}

// TableName returns the table name for GORM
func (BalanceHistoryModel) TableName() string {
	return "cash_box_balance_history"
}

// ToDomain converts the row to a domain BalanceSnapshot
func (m *BalanceHistoryModel) ToDomain() ledger.BalanceSnapshot {
	return ledger.BalanceSnapshot{
		ID:            m.ID,
		TenantID:      m.TenantID,
		CashBoxID:     m.CashBoxID,
		TransactionID: m.TransactionID,
		Delta:         money(m.Delta, m.Currency),
		BalanceAfter:  money(m.BalanceAfter, m.Currency),
		Reason:        m.Reason,
		RecordedAt:    m.RecordedAt,
	}
}

// BalanceHistoryModelFromDomain creates a row from a domain BalanceSnapshot
func BalanceHistoryModelFromDomain(s *ledger.BalanceSnapshot) *BalanceHistoryModel {
	return &BalanceHistoryModel{
		ID:            s.ID,
		TenantID:      s.TenantID,
		CashBoxID:     s.CashBoxID,
		TransactionID: s.TransactionID,
		Delta:         s.Delta.Amount(),
		BalanceAfter:  s.BalanceAfter.Amount(),
		Currency:      string(s.BalanceAfter.Currency()),
		Reason:        s.Reason,
		RecordedAt:    s.RecordedAt,
	}
}
