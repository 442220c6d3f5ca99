package ledger

import (
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Event types
const (
	EventReceiptCreated            = "receipt.created"
	EventSpendingCreated           = "spending.created"
	EventPaymentAppliedToContract  = "payment_applied_to_contract"
	EventTransactionCreated        = "transaction.created"
	EventTransactionUpdated        = "transaction.updated"
	EventTransactionDeleted        = "transaction.deleted"
	EventCashTransferCreated       = "cash_transfer.created"
	EventDirectorLoanCreated       = "director_loan.created"
	EventDirectorWithdrawalCreated = "director_withdrawal.created"
)

const (
	AggregateTransaction  = "Transaction"
	AggregateReceipt      = "Receipt"
	AggregateSpending     = "Spending"
	AggregateCashTransfer = "CashTransfer"
)

// TransactionEvent covers transaction.created/updated/deleted
type TransactionEvent struct {
	shared.BaseDomainEvent
	TransactionID  uuid.UUID         `json:"transaction_id"`
	CashBoxID      uuid.UUID         `json:"cash_box_id"`
	TypeCode       TypeCode          `json:"type_code"`
	Sum            valueobject.Money `json:"sum"`
	ContractID     *uuid.UUID        `json:"contract_id,omitempty"`
	CashflowItemID *uuid.UUID        `json:"cashflow_item_id,omitempty"`
	SourceKind     SourceKind        `json:"source_kind,omitempty"`
	Date           string            `json:"date"`
}

// NewTransactionEvent builds one of the transaction.* events
func NewTransactionEvent(eventType string, scope shared.RequestScope, t *Transaction) *TransactionEvent {
	e := &TransactionEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTransaction, t.ID, scope),
		TransactionID:   t.ID,
		CashBoxID:       t.CashBoxID,
		TypeCode:        t.TypeCode,
		Sum:             t.Sum,
		ContractID:      t.ContractID,
		CashflowItemID:  t.CashflowItemID,
		Date:            t.Date.Format("2006-01-02"),
	}
	if t.Source != nil {
		e.SourceKind = t.Source.Kind
	}
	return e
}

// ReceiptCreatedEvent covers receipt.created and director_loan.created
type ReceiptCreatedEvent struct {
	shared.BaseDomainEvent
	ReceiptID     uuid.UUID         `json:"receipt_id"`
	TransactionID uuid.UUID         `json:"transaction_id"`
	CashBoxID     uuid.UUID         `json:"cash_box_id"`
	ContractID    *uuid.UUID        `json:"contract_id,omitempty"`
	Sum           valueobject.Money `json:"sum"`
}

// NewReceiptCreatedEvent builds the event for a stored receipt
func NewReceiptCreatedEvent(eventType string, scope shared.RequestScope, r *Receipt) *ReceiptCreatedEvent {
	e := &ReceiptCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateReceipt, r.ID, scope),
		ReceiptID:       r.ID,
		CashBoxID:       r.CashBoxID,
		ContractID:      r.ContractID,
		Sum:             r.Sum,
	}
	if r.TransactionID != nil {
		e.TransactionID = *r.TransactionID
	}
	return e
}

// PaymentAppliedToContractEvent is raised when a receipt lands on a contract
type PaymentAppliedToContractEvent struct {
	shared.BaseDomainEvent
	ContractID uuid.UUID         `json:"contract_id"`
	ReceiptID  uuid.UUID         `json:"receipt_id"`
	Sum        valueobject.Money `json:"sum"`
}

// NewPaymentAppliedToContractEvent builds the event
func NewPaymentAppliedToContractEvent(scope shared.RequestScope, contractID uuid.UUID, r *Receipt) *PaymentAppliedToContractEvent {
	return &PaymentAppliedToContractEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentAppliedToContract, AggregateReceipt, r.ID, scope),
		ContractID:      contractID,
		ReceiptID:       r.ID,
		Sum:             r.Sum,
	}
}

// SpendingCreatedEvent covers spending.created and director_withdrawal.created
type SpendingCreatedEvent struct {
	shared.BaseDomainEvent
	SpendingID     uuid.UUID         `json:"spending_id"`
	TransactionID  uuid.UUID         `json:"transaction_id"`
	CashBoxID      uuid.UUID         `json:"cash_box_id"`
	ContractID     *uuid.UUID        `json:"contract_id,omitempty"`
	Sum            valueobject.Money `json:"sum"`
	AllocationKind string            `json:"allocation_kind,omitempty"`
}

// NewSpendingCreatedEvent builds the event for a stored spending
func NewSpendingCreatedEvent(eventType string, scope shared.RequestScope, s *Spending) *SpendingCreatedEvent {
	e := &SpendingCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateSpending, s.ID, scope),
		SpendingID:      s.ID,
		CashBoxID:       s.CashBoxID,
		ContractID:      s.ContractID,
		Sum:             s.Sum,
		AllocationKind:  s.AllocationKind,
	}
	if s.TransactionID != nil {
		e.TransactionID = *s.TransactionID
	}
	return e
}

// CashTransferCreatedEvent is raised after both legs committed
type CashTransferCreatedEvent struct {
	shared.BaseDomainEvent
	TransferID       uuid.UUID         `json:"transfer_id"`
	FromCashBoxID    uuid.UUID         `json:"from_cash_box_id"`
	ToCashBoxID      uuid.UUID         `json:"to_cash_box_id"`
	TransactionOutID uuid.UUID         `json:"transaction_out_id"`
	TransactionInID  uuid.UUID         `json:"transaction_in_id"`
	Sum              valueobject.Money `json:"sum"`
}

// NewCashTransferCreatedEvent builds the event
func NewCashTransferCreatedEvent(scope shared.RequestScope, t *CashTransfer) *CashTransferCreatedEvent {
	return &CashTransferCreatedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventCashTransferCreated, AggregateCashTransfer, t.ID, scope),
		TransferID:       t.ID,
		FromCashBoxID:    t.FromCashBoxID,
		ToCashBoxID:      t.ToCashBoxID,
		TransactionOutID: t.TransactionOutID,
		TransactionInID:  t.TransactionInID,
		Sum:              t.Sum,
	}
}
