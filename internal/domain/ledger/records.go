package ledger

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// ReceiptKind distinguishes incoming money flows
type ReceiptKind string

const (
	ReceiptKindContract     ReceiptKind = "contract"
	ReceiptKindDirectorLoan ReceiptKind = "director_loan"
)

// Receipt is incoming money. It owns exactly one transaction.
type Receipt struct {
	shared.TenantAggregateRoot
	Kind            ReceiptKind
	CashBoxID       uuid.UUID
	TransactionID   *uuid.UUID
	ContractID      *uuid.UUID
	CounterpartyID  *uuid.UUID
	FinanceObjectID *uuid.UUID
	Sum             valueobject.Money
	Date            time.Time
	Notes           string
}

// NewReceipt validates and builds a receipt; the transaction is bound later
func NewReceipt(scope shared.RequestScope, kind ReceiptKind, cashBoxID uuid.UUID, sum valueobject.Money, date time.Time) (*Receipt, error) {
	if !sum.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "sum must be greater than zero")
	}
	if cashBoxID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "cash box is required")
	}
	if date.IsZero() {
		date = time.Now()
	}
	return &Receipt{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(scope),
		Kind:                kind,
		CashBoxID:           cashBoxID,
		Sum:                 sum,
		Date:                date,
	}, nil
}

// BindTransaction back-fills the owned transaction id
func (r *Receipt) BindTransaction(id uuid.UUID) {
	r.TransactionID = &id
}

// PointTo mirrors a transaction re-assignment
func (r *Receipt) PointTo(financeObjectID, contractID *uuid.UUID) {
	r.FinanceObjectID = financeObjectID
	r.ContractID = contractID
	r.Touch()
}

// SpendingKind distinguishes outgoing money flows
type SpendingKind string

const (
	SpendingKindRegular            SpendingKind = "regular"
	SpendingKindDirectorWithdrawal SpendingKind = "director_withdrawal"
	SpendingKindPayroll            SpendingKind = "payroll"
)

// Spending is outgoing money. It owns exactly one transaction.
type Spending struct {
	shared.TenantAggregateRoot
	Kind            SpendingKind
	CashBoxID       uuid.UUID
	TransactionID   *uuid.UUID
	ContractID      *uuid.UUID
	SpendingItemID  *uuid.UUID
	FundID          *uuid.UUID
	CounterpartyID  *uuid.UUID
	FinanceObjectID *uuid.UUID
	Sum             valueobject.Money
	Date            time.Time
	Notes           string
	// AllocationKind records which subsystem owns the spending's allocation
	// rows; SkipAllocation bypasses the default contract-based allocation.
	AllocationKind string
	SkipAllocation bool
}

// NewSpending validates and builds a spending; the transaction is bound later
func NewSpending(scope shared.RequestScope, kind SpendingKind, cashBoxID uuid.UUID, sum valueobject.Money, date time.Time) (*Spending, error) {
	if !sum.IsPositive() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "sum must be greater than zero")
	}
	if cashBoxID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "cash box is required")
	}
	if date.IsZero() {
		date = time.Now()
	}
	return &Spending{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(scope),
		Kind:                kind,
		CashBoxID:           cashBoxID,
		Sum:                 sum,
		Date:                date,
	}, nil
}

// BindTransaction back-fills the owned transaction id
func (s *Spending) BindTransaction(id uuid.UUID) {
	s.TransactionID = &id
}

// PointTo mirrors a transaction re-assignment
func (s *Spending) PointTo(financeObjectID, contractID *uuid.UUID) {
	s.FinanceObjectID = financeObjectID
	s.ContractID = contractID
	s.Touch()
}

// CashTransfer moves money between two boxes of the same books through an
// OUT leg at the source and an IN leg at the destination, with equal sums.
type CashTransfer struct {
	shared.TenantAggregateRoot
	FromCashBoxID    uuid.UUID
	ToCashBoxID      uuid.UUID
	Sum              valueobject.Money
	TransactionOutID uuid.UUID
	TransactionInID  uuid.UUID
	Date             time.Time
	Notes            string
}

// ValidateTransfer checks the preconditions that need no database access
func ValidateTransfer(from, to uuid.UUID, sum valueobject.Money) error {
	if !sum.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "sum must be greater than zero")
	}
	if from == uuid.Nil || to == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "both cash boxes are required")
	}
	if from == to {
		return shared.ErrSameCashBox
	}
	return nil
}

// NewCashTransfer links two completed legs
func NewCashTransfer(scope shared.RequestScope, out, in *Transaction, date time.Time, notes string) (*CashTransfer, error) {
	if !out.Sum.Equals(in.Sum) {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "transfer legs must carry identical sums")
	}
	if err := ValidateTransfer(out.CashBoxID, in.CashBoxID, out.Sum); err != nil {
		return nil, err
	}
	return &CashTransfer{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(scope),
		FromCashBoxID:       out.CashBoxID,
		ToCashBoxID:         in.CashBoxID,
		Sum:                 out.Sum,
		TransactionOutID:    out.ID,
		TransactionInID:     in.ID,
		Date:                date,
		Notes:               notes,
	}, nil
}
