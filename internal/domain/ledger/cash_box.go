package ledger

import (
	"strings"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// LogoSource tells where a cash box logo comes from. Presentation only.
type LogoSource string

const (
	LogoSourcePreset LogoSource = "preset"
	LogoSourceCustom LogoSource = "custom"
)

// CashBox is a named pool of money: a till, a safe or a bank account.
// A nil TenantID marks a box shared by every tenant.
type CashBox struct {
	shared.BaseAggregateRoot
	TenantID    *uuid.UUID
	CompanyID   *uuid.UUID
	Name        string
	Description string
	Currency    valueobject.Currency
	LogoSource  LogoSource
	LogoPath    string
	SortOrder   int
	IsArchived  bool
	ArchivedAt  *time.Time
	CreatedBy   *uuid.UUID
}

// NewCashBox creates an active cash box in the scope's tenant and company
func NewCashBox(scope shared.RequestScope, name string, currency valueobject.Currency) (*CashBox, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "cash box name is required")
	}
	if len(name) > 255 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "cash box name cannot exceed 255 characters")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	tenant := scope.TenantID
	return &CashBox{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		TenantID:          &tenant,
		CompanyID:         scope.CompanyPtr(),
		Name:              name,
		Currency:          currency,
		LogoSource:        LogoSourcePreset,
		CreatedBy:         scope.ActorPtr(),
	}, nil
}

// Update changes presentation fields
func (b *CashBox) Update(name, description string, logoSource LogoSource, logoPath string, sortOrder int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "cash box name is required")
	}
	switch logoSource {
	case "", LogoSourcePreset, LogoSourceCustom:
	default:
		return shared.NewDomainError(shared.CodeInvalidInput, "logo source must be preset or custom")
	}
	if logoSource == "" {
		logoSource = LogoSourcePreset
	}
	b.Name = name
	b.Description = description
	b.LogoSource = logoSource
	b.LogoPath = logoPath
	b.SortOrder = sortOrder
	b.MarkChanged()
	return nil
}

// Archive hides the box from new money movements. History stays readable.
func (b *CashBox) Archive() {
	if b.IsArchived {
		return
	}
	now := time.Now()
	b.IsArchived = true
	b.ArchivedAt = &now
	b.MarkChanged()
}

// EnsureAcceptsMoney rejects movements against archived boxes
func (b *CashBox) EnsureAcceptsMoney() error {
	if b.IsArchived {
		return shared.ErrCashBoxArchived
	}
	return nil
}

// VisibleTo reports whether scope may read or move money in this box. A
// shared box is visible to every tenant; each sees only its own purse.
func (b *CashBox) VisibleTo(scope shared.RequestScope) bool {
	if b.TenantID == nil {
		return true
	}
	if *b.TenantID != scope.TenantID {
		return false
	}
	if b.CompanyID == nil || scope.CompanyID == uuid.Nil {
		return true
	}
	return *b.CompanyID == scope.CompanyID
}

// SameBooks checks that money may move between b and other: same tenant
// and, when both boxes name a company, the same company.
func (b *CashBox) SameBooks(other *CashBox) error {
	if !sameOptionalID(b.TenantID, other.TenantID) {
		return shared.ErrCrossTenantTransfer
	}
	if b.CompanyID != nil && other.CompanyID != nil && *b.CompanyID != *other.CompanyID {
		return shared.ErrCrossTenantTransfer
	}
	return nil
}

func sameOptionalID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
