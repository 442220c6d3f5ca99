package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/scheduler"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBooksRepository lists the tenant/company pairs that own cash boxes
type GormBooksRepository struct {
	db *gorm.DB
}

// NewGormBooksRepository creates a new GormBooksRepository
func NewGormBooksRepository(db *gorm.DB) *GormBooksRepository {
	return &GormBooksRepository{db: db}
}

type booksRow struct {
	TenantID  *uuid.UUID
	CompanyID *uuid.UUID
}

// ListBooks implements scheduler.BooksProvider
func (r *GormBooksRepository) ListBooks(ctx context.Context) ([]scheduler.Books, error) {
	var rows []booksRow
	err := r.db.WithContext(ctx).
		Model(&models.CashBoxModel{}).
		Distinct("tenant_id", "company_id").
		Where("is_archived = ?", false).
		Scan(&rows).Error
	if err != nil {
		return nil, ClassifyError(err)
	}

	out := make([]scheduler.Books, 0, len(rows))
	for _, row := range rows {
		var b scheduler.Books
		if row.TenantID != nil {
			b.TenantID = *row.TenantID
		}
		if row.CompanyID != nil {
			b.CompanyID = *row.CompanyID
		}
		out = append(out, b)
	}
	return out, nil
}

var _ scheduler.BooksProvider = (*GormBooksRepository)(nil)
