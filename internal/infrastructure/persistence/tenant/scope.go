// Package tenant provides books scoping for GORM queries.
//
// Every ledger table carries a tenant_id and an optional company_id. The
// scopes here turn a shared.RequestScope into the matching WHERE clause so
// repositories never hand-write the tenant predicate:
//
//	db.Scopes(tenant.BelongsTo(scope)).First(&row, "id = ?", id)
package tenant

import (
	"errors"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrTenantIDRequired is returned when a write carries no tenant
var ErrTenantIDRequired = errors.New("tenant_id is required")

// TenantScope applies plain tenant filtering
func TenantScope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

// BelongsTo matches rows of the scope's tenant. With a company in scope,
// company-less rows still match; without one, every company matches.
func BelongsTo(scope shared.RequestScope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("tenant_id = ?", scope.TenantID)
		if scope.CompanyID != uuid.Nil {
			db = db.Where("(company_id IS NULL OR company_id = ?)", scope.CompanyID)
		}
		return db
	}
}

// Visible extends BelongsTo with shared rows whose tenant_id is NULL
func Visible(scope shared.RequestScope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if scope.CompanyID == uuid.Nil {
			return db.Where("(tenant_id IS NULL OR tenant_id = ?)", scope.TenantID)
		}
		return db.Where("(tenant_id IS NULL OR (tenant_id = ? AND (company_id IS NULL OR company_id = ?)))",
			scope.TenantID, scope.CompanyID)
	}
}

// Books matches exactly one set of books: the tenant and either the given
// company or, when the scope has none, rows without a company.
func Books(scope shared.RequestScope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("tenant_id = ?", scope.TenantID)
		if scope.CompanyID == uuid.Nil {
			return db.Where("company_id IS NULL")
		}
		return db.Where("company_id = ?", scope.CompanyID)
	}
}

// Keyed matches aggregate tables that store "no company" as the nil UUID
func Keyed(scope shared.RequestScope) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ? AND company_id = ?", scope.TenantID, scope.CompanyID)
	}
}
