package contract

import (
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// Document is a contract document (install, supply, service...). Payroll
// rules are keyed by its DocumentType.
type Document struct {
	ID           uuid.UUID
	ContractID   uuid.UUID
	DocumentType string
	TemplateID   *uuid.UUID
}

// Template lists the product types a document covers. An empty list covers
// nothing in particular.
type Template struct {
	ID           uuid.UUID
	Name         string
	ProductTypes []string
}

// Covers reports whether productType is one of the template's types
func (t *Template) Covers(productType string) bool {
	for _, pt := range t.ProductTypes {
		if pt == productType {
			return true
		}
	}
	return false
}

// Item is a planned contract line
type Item struct {
	ID          uuid.UUID
	ContractID  uuid.UUID
	ProductType string
	Total       valueobject.Money
}
