package payroll

import (
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rule is the commission policy of one manager for one document type
type Rule struct {
	shared.TenantAggregateRoot
	UserID        uuid.UUID
	DocumentType  string
	FixedAmount   valueobject.Money
	MarginPercent decimal.Decimal
	IsActive      bool
}

// NewRule validates and builds an active rule
func NewRule(scope shared.RequestScope, userID uuid.UUID, documentType string, fixed valueobject.Money, marginPercent decimal.Decimal) (*Rule, error) {
	r := &Rule{TenantAggregateRoot: shared.NewTenantAggregateRoot(scope), UserID: userID, IsActive: true}
	if err := r.Update(documentType, fixed, marginPercent, true); err != nil {
		return nil, err
	}
	return r, nil
}

// Update replaces the rule terms
func (r *Rule) Update(documentType string, fixed valueobject.Money, marginPercent decimal.Decimal, active bool) error {
	documentType = strings.TrimSpace(documentType)
	if r.UserID == uuid.Nil {
		return shared.NewDomainError(shared.CodeInvalidInput, "rule user is required")
	}
	if documentType == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "document type is required")
	}
	if fixed.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "fixed amount cannot be negative")
	}
	if marginPercent.IsNegative() || marginPercent.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError(shared.CodeInvalidInput, "margin percent must be between 0 and 100")
	}
	r.DocumentType = documentType
	r.FixedAmount = fixed
	r.MarginPercent = marginPercent
	r.IsActive = active
	r.MarkChanged()
	return nil
}

// ResolveRule picks the active rule for (user, documentType). A rule bound
// to the contract's company wins over a company-less one.
func ResolveRule(rules []Rule, userID uuid.UUID, documentType string, companyID *uuid.UUID) *Rule {
	var fallback *Rule
	for i := range rules {
		r := &rules[i]
		if !r.IsActive || r.UserID != userID || r.DocumentType != documentType {
			continue
		}
		if r.CompanyID == nil {
			if fallback == nil {
				fallback = r
			}
			continue
		}
		if companyID != nil && *r.CompanyID == *companyID {
			return r
		}
	}
	return fallback
}
