package payroll

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccrualType is what an accrual pays for
type AccrualType string

const (
	TypeFixed         AccrualType = "fixed"
	TypeMarginPercent AccrualType = "margin_percent"
	TypeBonus         AccrualType = "bonus"
	TypePenalty       AccrualType = "penalty"
)

// Source tells machine-derived accruals from hand-entered ones
type Source string

const (
	SourceSystem Source = "system"
	SourceManual Source = "manual"
)

// Status of an accrual. Paid is re-derived from amounts; cancelled is sticky.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaid      Status = "paid"
	StatusCancelled Status = "cancelled"
)

// Accrual is money owed to a user for a contract
type Accrual struct {
	shared.TenantAggregateRoot
	UserID             uuid.UUID
	ContractID         uuid.UUID
	ContractDocumentID *uuid.UUID
	Type               AccrualType
	Source             Source
	Status             Status
	BaseAmount         valueobject.Money
	Percent            *decimal.Decimal
	Amount             valueobject.Money
	PaidAmount         valueobject.Money
	PaidAt             *time.Time
	CancelledAt        *time.Time
	Comment            string
}

// Key identifies the single active system accrual an upsert may update
type Key struct {
	ContractID uuid.UUID
	DocumentID uuid.UUID
	UserID     uuid.UUID
	Type       AccrualType
}

// NewSystemAccrual builds a machine-derived accrual for one document
func NewSystemAccrual(scope shared.RequestScope, key Key, base valueobject.Money, percent *decimal.Decimal, amount valueobject.Money) *Accrual {
	doc := key.DocumentID
	return &Accrual{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(scope),
		UserID:              key.UserID,
		ContractID:          key.ContractID,
		ContractDocumentID:  &doc,
		Type:                key.Type,
		Source:              SourceSystem,
		Status:              StatusActive,
		BaseAmount:          base,
		Percent:             percent,
		Amount:              amount,
		PaidAmount:          valueobject.Zero(amount.Currency()),
	}
}

// NewManualAccrual builds a bonus (stored positive) or a penalty (stored
// negative) for userID.
func NewManualAccrual(scope shared.RequestScope, contractID, userID uuid.UUID, accrualType AccrualType, amount valueobject.Money, comment string) (*Accrual, error) {
	if accrualType != TypeBonus && accrualType != TypePenalty {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "manual accrual type must be bonus or penalty")
	}
	if amount.IsZero() {
		return nil, shared.NewDomainError(shared.CodeInvalidAmount, "amount must not be zero")
	}
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "accrual user is required")
	}
	stored := amount.Abs()
	if accrualType == TypePenalty {
		stored = stored.Negate()
	}
	return &Accrual{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(scope),
		UserID:              userID,
		ContractID:          contractID,
		Type:                accrualType,
		Source:              SourceManual,
		Status:              StatusActive,
		BaseAmount:          amount.Abs(),
		Amount:              stored,
		PaidAmount:          valueobject.Zero(amount.Currency()),
		Comment:             comment,
	}, nil
}

// Remaining is what is still owed
func (a *Accrual) Remaining() valueobject.Money {
	rest, err := a.Amount.Subtract(a.PaidAmount)
	if err != nil {
		return valueobject.Zero(a.Amount.Currency())
	}
	return rest
}

// SyncStatus re-derives paid/active from the amounts. Cancelled accruals
// keep their status. It reports whether the status changed.
func (a *Accrual) SyncStatus() bool {
	if a.Status == StatusCancelled {
		return false
	}
	want := StatusActive
	if a.Amount.IsPositive() {
		if cmp, err := a.PaidAmount.Compare(a.Amount); err == nil && cmp >= 0 {
			want = StatusPaid
		}
	}
	if want == StatusPaid && a.PaidAt == nil {
		now := time.Now()
		a.PaidAt = &now
	}
	if want == StatusActive {
		a.PaidAt = nil
	}
	if want == a.Status {
		return false
	}
	a.Status = want
	a.Touch()
	return true
}

// ApplyPayment adds a payout item. amount must be positive and fit into the
// remaining balance.
func (a *Accrual) ApplyPayment(amount valueobject.Money) error {
	if !amount.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "payout amount must be greater than zero")
	}
	if a.Status == StatusCancelled {
		return shared.NewDomainError(shared.CodeInvalidState, "accrual is cancelled")
	}
	cmp, err := amount.Compare(a.Remaining())
	if err != nil {
		return err
	}
	if cmp > 0 {
		return shared.ErrAccrualOverpaid
	}
	paid, err := a.PaidAmount.Add(amount)
	if err != nil {
		return err
	}
	a.PaidAmount = paid
	a.SyncStatus()
	a.MarkChanged()
	return nil
}

// RevertPayment undoes a payout item, never going below zero
func (a *Accrual) RevertPayment(amount valueobject.Money) error {
	paid, err := a.PaidAmount.Subtract(amount)
	if err != nil {
		return err
	}
	if paid.IsNegative() {
		paid = valueobject.Zero(paid.Currency())
	}
	a.PaidAmount = paid
	a.SyncStatus()
	a.MarkChanged()
	return nil
}

// Cancel flags the accrual; rows are never deleted
func (a *Accrual) Cancel(at time.Time) {
	if a.Status == StatusCancelled {
		return
	}
	a.Status = StatusCancelled
	a.CancelledAt = &at
	a.MarkChanged()
}

// Recompute updates a system accrual in place during an upsert
func (a *Accrual) Recompute(base valueobject.Money, percent *decimal.Decimal, amount valueobject.Money) {
	a.BaseAmount = base
	a.Percent = percent
	a.Amount = amount
	a.SyncStatus()
	a.MarkChanged()
}

// IsSystemActive reports whether the accrual can still be auto-cancelled.
// Paid accruals are settled history and stay paid.
func (a *Accrual) IsSystemActive() bool {
	return a.Source == SourceSystem && a.Status == StatusActive
}
