package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/domain/financeobject"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormFinanceObjectRepository implements FinanceObjectRepository using GORM
type GormFinanceObjectRepository struct {
	db *gorm.DB
}

// NewGormFinanceObjectRepository creates a new GormFinanceObjectRepository
func NewGormFinanceObjectRepository(db *gorm.DB) *GormFinanceObjectRepository {
	return &GormFinanceObjectRepository{db: db}
}

// FindByID finds a finance object in the scope's books
func (r *GormFinanceObjectRepository) FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*financeobject.FinanceObject, error) {
	var model models.FinanceObjectModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.BelongsTo(scope)).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the visible subset keyed by id
func (r *GormFinanceObjectRepository) FindByIDs(ctx context.Context, scope shared.RequestScope, ids []uuid.UUID) (map[uuid.UUID]*financeobject.FinanceObject, error) {
	out := make(map[uuid.UUID]*financeobject.FinanceObject, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.FinanceObjectModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.BelongsTo(scope)).
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a finance object
func (r *GormFinanceObjectRepository) Save(ctx context.Context, obj *financeobject.FinanceObject) error {
	return r.db.WithContext(ctx).Save(models.FinanceObjectModelFromDomain(obj)).Error
}

// GormAllocationRepository stores split allocations of transactions
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// FindByTransaction lists the allocations of a transaction
func (r *GormAllocationRepository) FindByTransaction(ctx context.Context, transactionID uuid.UUID) ([]financeobject.Allocation, error) {
	var rows []models.AllocationModel
	if err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]financeobject.Allocation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// ReplaceForTransaction deletes every prior allocation of the transaction
// and inserts the new set.
func (r *GormAllocationRepository) ReplaceForTransaction(ctx context.Context, transactionID uuid.UUID, allocations []financeobject.Allocation) error {
	if err := r.DeleteByTransaction(ctx, transactionID); err != nil {
		return err
	}
	if len(allocations) == 0 {
		return nil
	}
	rows := make([]models.AllocationModel, 0, len(allocations))
	for _, a := range allocations {
		rows = append(rows, models.AllocationModelFromDomain(a))
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// DeleteByTransaction removes every allocation of a transaction
func (r *GormAllocationRepository) DeleteByTransaction(ctx context.Context, transactionID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Delete(&models.AllocationModel{}).Error
}

// GormFinanceAllocationRepository stores spending-to-contract links
type GormFinanceAllocationRepository struct {
	db *gorm.DB
}

// NewGormFinanceAllocationRepository creates a new GormFinanceAllocationRepository
func NewGormFinanceAllocationRepository(db *gorm.DB) *GormFinanceAllocationRepository {
	return &GormFinanceAllocationRepository{db: db}
}

// SaveAll inserts the rows in one statement
func (r *GormFinanceAllocationRepository) SaveAll(ctx context.Context, allocations []financeobject.FinanceAllocation) error {
	if len(allocations) == 0 {
		return nil
	}
	rows := make([]models.FinanceAllocationModel, 0, len(allocations))
	for _, a := range allocations {
		rows = append(rows, models.FinanceAllocationModelFromDomain(a))
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindByPayout lists the rows written for a payout
func (r *GormFinanceAllocationRepository) FindByPayout(ctx context.Context, payoutID uuid.UUID) ([]financeobject.FinanceAllocation, error) {
	var rows []models.FinanceAllocationModel
	if err := r.db.WithContext(ctx).
		Where("payout_id = ?", payoutID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]financeobject.FinanceAllocation, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// DeleteByPayout removes the rows of a payout
func (r *GormFinanceAllocationRepository) DeleteByPayout(ctx context.Context, payoutID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("payout_id = ?", payoutID).
		Delete(&models.FinanceAllocationModel{}).Error
}

// DeleteBySpending removes the rows of a spending
func (r *GormFinanceAllocationRepository) DeleteBySpending(ctx context.Context, spendingID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("spending_id = ?", spendingID).
		Delete(&models.FinanceAllocationModel{}).Error
}

// SumExpensesForContract adds expense-kind allocations of the contract to
// contract spendings that were never split into allocation rows.
func (r *GormFinanceAllocationRepository) SumExpensesForContract(ctx context.Context, contractID uuid.UUID, currency valueobject.Currency) (valueobject.Money, error) {
	db := r.db.WithContext(ctx)

	var allocated decimal.Decimal
	if err := db.Model(&models.FinanceAllocationModel{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("contract_id = ? AND kind = ? AND currency = ?", contractID, string(financeobject.KindExpense), string(currency)).
		Row().Scan(&allocated); err != nil {
		return valueobject.Money{}, err
	}

	var direct decimal.Decimal
	if err := db.Model(&models.SpendingModel{}).
		Select("COALESCE(SUM(sum), 0)").
		Where("contract_id = ? AND currency = ?", contractID, string(currency)).
		Where("NOT EXISTS (SELECT 1 FROM finance_allocations fa WHERE fa.spending_id = spendings.id)").
		Row().Scan(&direct); err != nil {
		return valueobject.Money{}, err
	}

	return valueobject.NewMoney(allocated.Add(direct), currency)
}

var (
	_ financeobject.FinanceObjectRepository     = (*GormFinanceObjectRepository)(nil)
	_ financeobject.AllocationRepository        = (*GormAllocationRepository)(nil)
	_ financeobject.FinanceAllocationRepository = (*GormFinanceAllocationRepository)(nil)
)
