package payroll

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// PayoutLine is a requested payment against one accrual
type PayoutLine struct {
	AccrualID uuid.UUID
	Amount    valueobject.Money
}

// PayoutItem is one stored line of a payout
type PayoutItem struct {
	ID        uuid.UUID
	PayoutID  uuid.UUID
	AccrualID uuid.UUID
	Amount    valueobject.Money
}

// Payout settles accruals of one user through a single spending
type Payout struct {
	shared.TenantAggregateRoot
	UserID     uuid.UUID
	CashBoxID  uuid.UUID
	SpendingID *uuid.UUID
	Total      valueobject.Money
	Date       time.Time
	Comment    string
	Items      []PayoutItem
}

// NewPayout validates the lines and totals them. Per-accrual limits are
// checked when the lines are applied.
func NewPayout(scope shared.RequestScope, userID, cashBoxID uuid.UUID, currency valueobject.Currency, lines []PayoutLine, date time.Time, comment string) (*Payout, error) {
	if userID == uuid.Nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "payout user is required")
	}
	if len(lines) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "payout needs at least one item")
	}
	if date.IsZero() {
		date = time.Now()
	}
	p := &Payout{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(scope),
		UserID:              userID,
		CashBoxID:           cashBoxID,
		Date:                date,
		Comment:             comment,
		Items:               make([]PayoutItem, 0, len(lines)),
	}
	seen := make(map[uuid.UUID]struct{}, len(lines))
	total := valueobject.Zero(currency)
	for _, l := range lines {
		if _, dup := seen[l.AccrualID]; dup {
			return nil, shared.NewDomainError(shared.CodeInvalidInput, "accrual appears more than once in payout")
		}
		seen[l.AccrualID] = struct{}{}
		if !l.Amount.IsPositive() {
			return nil, shared.NewDomainError(shared.CodeInvalidAmount, "payout amount must be greater than zero")
		}
		next, err := total.Add(l.Amount)
		if err != nil {
			return nil, err
		}
		total = next
		p.Items = append(p.Items, PayoutItem{ID: uuid.New(), PayoutID: p.ID, AccrualID: l.AccrualID, Amount: l.Amount})
	}
	p.Total = total
	return p, nil
}

// BindSpending records the spending that moved the money
func (p *Payout) BindSpending(id uuid.UUID) {
	p.SpendingID = &id
}
