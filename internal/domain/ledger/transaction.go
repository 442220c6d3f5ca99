package ledger

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// SourceKind names the record a transaction belongs to
type SourceKind string

const (
	SourceReceipt     SourceKind = "receipt"
	SourceSpending    SourceKind = "spending"
	SourceTransferOut SourceKind = "transfer_out"
	SourceTransferIn  SourceKind = "transfer_in"
)

// SourceRef points from a transaction to its owning record
type SourceRef struct {
	Kind SourceKind
	ID   uuid.UUID
}

// IsTransferLeg reports whether the owner is a cash transfer
func (r SourceRef) IsTransferLeg() bool {
	return r.Kind == SourceTransferOut || r.Kind == SourceTransferIn
}

// Transaction is one signed, typed money movement against exactly one cash box.
// Once completed, Sum, CashBoxID and TypeID are frozen; corrections are new entries.
type Transaction struct {
	shared.TenantAggregateRoot
	Sum             valueobject.Money
	CashBoxID       uuid.UUID
	TypeID          uuid.UUID
	TypeCode        TypeCode
	PaymentMethodID *uuid.UUID
	CounterpartyID  *uuid.UUID
	ContractID      *uuid.UUID
	FinanceObjectID *uuid.UUID
	CashflowItemID  *uuid.UUID
	Source          *SourceRef
	IsPaid          bool
	PaidAt          *time.Time
	IsCompleted     bool
	CompletedAt     *time.Time
	Date            time.Time
	Notes           string
}

// TransactionDetails carries the optional, editable attributes
type TransactionDetails struct {
	PaymentMethodID *uuid.UUID
	CounterpartyID  *uuid.UUID
	ContractID      *uuid.UUID
	FinanceObjectID *uuid.UUID
	CashflowItemID  *uuid.UUID
	Date            time.Time
	Notes           string
}

// NewTransaction creates an uncompleted transaction
func NewTransaction(scope shared.RequestScope, box *CashBox, ttype TransactionType, sum valueobject.Money, d TransactionDetails) (*Transaction, error) {
	if !sum.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "sum must be greater than zero")
	}
	if sum.Currency() != box.Currency {
		return nil, shared.NewDomainError(shared.CodeCurrencyMismatch, "sum currency differs from cash box currency")
	}
	date := d.Date
	if date.IsZero() {
		date = time.Now()
	}
	return &Transaction{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(scope),
		Sum:                 sum,
		CashBoxID:           box.ID,
		TypeID:              ttype.ID,
		TypeCode:            ttype.Code,
		PaymentMethodID:     d.PaymentMethodID,
		CounterpartyID:      d.CounterpartyID,
		ContractID:          d.ContractID,
		FinanceObjectID:     d.FinanceObjectID,
		CashflowItemID:      d.CashflowItemID,
		Date:                date,
		Notes:               d.Notes,
	}, nil
}

// AttachSource links the transaction to its owning record
func (t *Transaction) AttachSource(kind SourceKind, id uuid.UUID) {
	t.Source = &SourceRef{Kind: kind, ID: id}
}

// MarkCompleted flips is_completed exactly once. Balance checks happen before
// this call, under the cash box lock.
func (t *Transaction) MarkCompleted(at time.Time) error {
	if t.IsCompleted {
		return shared.ErrTransactionAlreadyCompleted
	}
	t.IsPaid = true
	t.PaidAt = &at
	t.IsCompleted = true
	t.CompletedAt = &at
	t.UpdatedAt = at
	return nil
}

// UpdateDetails edits the attributes that stay mutable after completion
func (t *Transaction) UpdateDetails(notes string, paymentMethodID, counterpartyID *uuid.UUID) {
	t.Notes = notes
	t.PaymentMethodID = paymentMethodID
	t.CounterpartyID = counterpartyID
	t.MarkChanged()
}

// PointTo sets the canonical finance object and the derived legacy contract id
func (t *Transaction) PointTo(financeObjectID, legacyContractID *uuid.UUID) {
	t.FinanceObjectID = financeObjectID
	t.ContractID = legacyContractID
	t.MarkChanged()
}
