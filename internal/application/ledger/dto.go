package ledger

import (
	"time"

	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateCashBoxRequest creates a cash box
type CreateCashBoxRequest struct {
	Name        string            `json:"name" binding:"required,max=255"`
	Description string            `json:"description" binding:"max=2000"`
	Currency    string            `json:"currency" binding:"omitempty,len=3"`
	LogoSource  ledger.LogoSource `json:"logo_source" binding:"omitempty,oneof=preset custom"`
	LogoPath    string            `json:"logo_path" binding:"max=500"`
	SortOrder   int               `json:"sort_order"`
}

// UpdateCashBoxRequest edits presentation fields
type UpdateCashBoxRequest struct {
	Name        string            `json:"name" binding:"required,max=255"`
	Description string            `json:"description" binding:"max=2000"`
	LogoSource  ledger.LogoSource `json:"logo_source" binding:"omitempty,oneof=preset custom"`
	LogoPath    string            `json:"logo_path" binding:"max=500"`
	SortOrder   int               `json:"sort_order"`
}

// ContractReceiptRequest records customer money against a contract
type ContractReceiptRequest struct {
	CashBoxID       uuid.UUID       `json:"cash_box_id" binding:"required"`
	ContractID      uuid.UUID       `json:"contract_id" binding:"required"`
	Sum             decimal.Decimal `json:"sum" binding:"required,decimal_gt0"`
	Date            *time.Time      `json:"date"`
	PaymentMethodID *uuid.UUID      `json:"payment_method_id"`
	CounterpartyID  *uuid.UUID      `json:"counterparty_id"`
	FinanceObjectID *uuid.UUID      `json:"finance_object_id"`
	CashflowItemID  *uuid.UUID      `json:"cashflow_item_id"`
	Notes           string          `json:"notes" binding:"max=2000"`
}

// DirectorLoanRequest records money the director lends to the business
type DirectorLoanRequest struct {
	CashBoxID       uuid.UUID       `json:"cash_box_id" binding:"required"`
	Sum             decimal.Decimal `json:"sum" binding:"required,decimal_gt0"`
	Date            *time.Time      `json:"date"`
	PaymentMethodID *uuid.UUID      `json:"payment_method_id"`
	CashflowItemID  *uuid.UUID      `json:"cashflow_item_id"`
	Notes           string          `json:"notes" binding:"max=2000"`
}

// SpendingRequest records outgoing money
type SpendingRequest struct {
	CashBoxID       uuid.UUID       `json:"cash_box_id" binding:"required"`
	Sum             decimal.Decimal `json:"sum" binding:"required,decimal_gt0"`
	Date            *time.Time      `json:"date"`
	ContractID      *uuid.UUID      `json:"contract_id"`
	SpendingItemID  *uuid.UUID      `json:"spending_item_id"`
	FundID          *uuid.UUID      `json:"fund_id"`
	PaymentMethodID *uuid.UUID      `json:"payment_method_id"`
	CounterpartyID  *uuid.UUID      `json:"counterparty_id"`
	CashflowItemID  *uuid.UUID      `json:"cashflow_item_id"`
	Notes           string          `json:"notes" binding:"max=2000"`
	// AllocationKind and SkipAllocation are set by payroll payouts
	AllocationKind string              `json:"-"`
	SkipAllocation bool                `json:"-"`
	Kind           ledger.SpendingKind `json:"-"`
}

// DirectorWithdrawalRequest records money the director takes out
type DirectorWithdrawalRequest struct {
	CashBoxID       uuid.UUID       `json:"cash_box_id" binding:"required"`
	Sum             decimal.Decimal `json:"sum" binding:"required,decimal_gt0"`
	Date            *time.Time      `json:"date"`
	PaymentMethodID *uuid.UUID      `json:"payment_method_id"`
	CashflowItemID  *uuid.UUID      `json:"cashflow_item_id"`
	Notes           string          `json:"notes" binding:"max=2000"`
}

// TransferRequest moves money between two cash boxes
type TransferRequest struct {
	FromCashBoxID uuid.UUID       `json:"from_cash_box_id" binding:"required"`
	ToCashBoxID   uuid.UUID       `json:"to_cash_box_id" binding:"required"`
	Sum           decimal.Decimal `json:"sum" binding:"required,decimal_gt0"`
	Date          *time.Time      `json:"date"`
	Notes         string          `json:"notes" binding:"max=2000"`
}

// UpdateTransactionRequest edits the fields that stay mutable after completion
type UpdateTransactionRequest struct {
	Notes           string     `json:"notes" binding:"max=2000"`
	PaymentMethodID *uuid.UUID `json:"payment_method_id"`
	CounterpartyID  *uuid.UUID `json:"counterparty_id"`
}

// CashBoxResponse is a cash box in API responses
type CashBoxResponse struct {
	ID          uuid.UUID            `json:"id"`
	TenantID    *uuid.UUID           `json:"tenant_id,omitempty"`
	CompanyID   *uuid.UUID           `json:"company_id,omitempty"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Currency    valueobject.Currency `json:"currency"`
	LogoSource  ledger.LogoSource    `json:"logo_source"`
	LogoPath    string               `json:"logo_path,omitempty"`
	SortOrder   int                  `json:"sort_order"`
	IsArchived  bool                 `json:"is_archived"`
	ArchivedAt  *time.Time           `json:"archived_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ToCashBoxResponse converts a domain cash box
func ToCashBoxResponse(b *ledger.CashBox) CashBoxResponse {
	return CashBoxResponse{
		ID:          b.ID,
		TenantID:    b.TenantID,
		CompanyID:   b.CompanyID,
		Name:        b.Name,
		Description: b.Description,
		Currency:    b.Currency,
		LogoSource:  b.LogoSource,
		LogoPath:    b.LogoPath,
		SortOrder:   b.SortOrder,
		IsArchived:  b.IsArchived,
		ArchivedAt:  b.ArchivedAt,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

// TransactionResponse is a ledger transaction in API responses
type TransactionResponse struct {
	ID              uuid.UUID         `json:"id"`
	CashBoxID       uuid.UUID         `json:"cash_box_id"`
	TypeCode        ledger.TypeCode   `json:"type_code"`
	Sum             valueobject.Money `json:"sum"`
	ContractID      *uuid.UUID        `json:"contract_id,omitempty"`
	FinanceObjectID *uuid.UUID        `json:"finance_object_id,omitempty"`
	PaymentMethodID *uuid.UUID        `json:"payment_method_id,omitempty"`
	CounterpartyID  *uuid.UUID        `json:"counterparty_id,omitempty"`
	CashflowItemID  *uuid.UUID        `json:"cashflow_item_id,omitempty"`
	SourceKind      ledger.SourceKind `json:"source_kind,omitempty"`
	SourceID        *uuid.UUID        `json:"source_id,omitempty"`
	IsCompleted     bool              `json:"is_completed"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Date            time.Time         `json:"date"`
	Notes           string            `json:"notes,omitempty"`
}

// ToTransactionResponse converts a domain transaction
func ToTransactionResponse(t *ledger.Transaction) TransactionResponse {
	r := TransactionResponse{
		ID:              t.ID,
		CashBoxID:       t.CashBoxID,
		TypeCode:        t.TypeCode,
		Sum:             t.Sum,
		ContractID:      t.ContractID,
		FinanceObjectID: t.FinanceObjectID,
		PaymentMethodID: t.PaymentMethodID,
		CounterpartyID:  t.CounterpartyID,
		CashflowItemID:  t.CashflowItemID,
		IsCompleted:     t.IsCompleted,
		CompletedAt:     t.CompletedAt,
		Date:            t.Date,
		Notes:           t.Notes,
	}
	if t.Source != nil {
		id := t.Source.ID
		r.SourceKind = t.Source.Kind
		r.SourceID = &id
	}
	return r
}

// ReceiptResponse is a receipt with its transaction
type ReceiptResponse struct {
	ID          uuid.UUID           `json:"id"`
	Kind        ledger.ReceiptKind  `json:"kind"`
	CashBoxID   uuid.UUID           `json:"cash_box_id"`
	ContractID  *uuid.UUID          `json:"contract_id,omitempty"`
	Sum         valueobject.Money   `json:"sum"`
	Date        time.Time           `json:"date"`
	Transaction TransactionResponse `json:"transaction"`
}

// SpendingResponse is a spending with its transaction
type SpendingResponse struct {
	ID          uuid.UUID           `json:"id"`
	Kind        ledger.SpendingKind `json:"kind"`
	CashBoxID   uuid.UUID           `json:"cash_box_id"`
	ContractID  *uuid.UUID          `json:"contract_id,omitempty"`
	Sum         valueobject.Money   `json:"sum"`
	Date        time.Time           `json:"date"`
	Transaction TransactionResponse `json:"transaction"`
}

// TransferResponse is a transfer with both legs
type TransferResponse struct {
	ID             uuid.UUID           `json:"id"`
	FromCashBoxID  uuid.UUID           `json:"from_cash_box_id"`
	ToCashBoxID    uuid.UUID           `json:"to_cash_box_id"`
	Sum            valueobject.Money   `json:"sum"`
	Date           time.Time           `json:"date"`
	TransactionOut TransactionResponse `json:"transaction_out"`
	TransactionIn  TransactionResponse `json:"transaction_in"`
}

// BalanceResponse is a live cash box balance
type BalanceResponse struct {
	CashBoxID uuid.UUID         `json:"cash_box_id"`
	Balance   valueobject.Money `json:"balance"`
	AsOf      time.Time         `json:"as_of"`
}

// BalanceCheck compares the aggregated balance with a full replay
type BalanceCheck struct {
	CashBoxID  uuid.UUID         `json:"cash_box_id"`
	Aggregated valueobject.Money `json:"aggregated"`
	Replayed   valueobject.Money `json:"replayed"`
	Consistent bool              `json:"consistent"`
}

// BalanceSnapshotResponse is one history row
type BalanceSnapshotResponse struct {
	TransactionID *uuid.UUID        `json:"transaction_id,omitempty"`
	Delta         valueobject.Money `json:"delta"`
	BalanceAfter  valueobject.Money `json:"balance_after"`
	Reason        string            `json:"reason"`
	RecordedAt    time.Time         `json:"recorded_at"`
}

// BalanceHistoryResponse is the history of a box over a range
type BalanceHistoryResponse struct {
	CashBoxID      uuid.UUID                 `json:"cash_box_id"`
	OpeningBalance valueobject.Money         `json:"opening_balance"`
	Entries        []BalanceSnapshotResponse `json:"entries"`
}

func dateOrNow(d *time.Time) time.Time {
	if d == nil || d.IsZero() {
		return time.Now()
	}
	return *d
}
