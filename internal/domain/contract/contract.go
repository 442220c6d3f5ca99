package contract

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PaymentStatus is the system-derived payment state of a contract
type PaymentStatus string

const (
	PaymentNotPaid       PaymentStatus = "NOT_PAID"
	PaymentPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentFullyPaid     PaymentStatus = "FULLY_PAID"
	PaymentOverpaid      PaymentStatus = "OVERPAID"
)

// DeriveStatus maps (paid, total) to a payment status. Amounts are compared
// exactly; they must share a currency.
func DeriveStatus(paid, total valueobject.Money) (PaymentStatus, error) {
	if !paid.IsPositive() {
		return PaymentNotPaid, nil
	}
	if !total.IsPositive() {
		return PaymentOverpaid, nil
	}
	cmp, err := paid.Compare(total)
	if err != nil {
		return "", err
	}
	switch {
	case cmp < 0:
		return PaymentPartiallyPaid, nil
	case cmp == 0:
		return PaymentFullyPaid, nil
	default:
		return PaymentOverpaid, nil
	}
}

// Contract carries the payment side of a customer contract. PaidAmount and
// PaymentStatus are derived from receipts and only change through ApplyPaid.
type Contract struct {
	shared.TenantAggregateRoot
	Number        string
	TotalAmount   valueobject.Money
	PaidAmount    valueobject.Money
	PaymentStatus PaymentStatus
	ManagerID     *uuid.UUID
	StatusID      *uuid.UUID
	RecalcAt      *time.Time
}

// NewContract creates an unpaid contract
func NewContract(scope shared.RequestScope, number string, total valueobject.Money, managerID *uuid.UUID) *Contract {
	return &Contract{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(scope),
		Number:              number,
		TotalAmount:         total,
		PaidAmount:          valueobject.Zero(total.Currency()),
		PaymentStatus:       PaymentNotPaid,
		ManagerID:           managerID,
	}
}

// Currency is the contract's accounting currency
func (c *Contract) Currency() valueobject.Currency {
	return c.TotalAmount.Currency()
}

// ApplyPaid stores a freshly aggregated paid amount and re-derives the
// payment status. It reports whether anything changed.
func (c *Contract) ApplyPaid(paid valueobject.Money) (bool, error) {
	status, err := DeriveStatus(paid, c.TotalAmount)
	if err != nil {
		return false, err
	}
	now := time.Now()
	c.RecalcAt = &now
	if c.PaidAmount.Equals(paid) && c.PaymentStatus == status {
		return false, nil
	}
	c.PaidAmount = paid
	c.PaymentStatus = status
	c.MarkChanged()
	return true, nil
}

// ChangeStatus moves the contract to a new workflow status and returns the
// previous one.
func (c *Contract) ChangeStatus(statusID uuid.UUID) (*uuid.UUID, error) {
	if statusID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "status is required")
	}
	previous := c.StatusID
	if previous != nil && *previous == statusID {
		return previous, nil
	}
	next := statusID
	c.StatusID = &next
	c.MarkChanged()
	return previous, nil
}
