package persistence

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCashBoxRepository implements CashBoxRepository using GORM
type GormCashBoxRepository struct {
	db *gorm.DB
}

// NewGormCashBoxRepository creates a new GormCashBoxRepository
func NewGormCashBoxRepository(db *gorm.DB) *GormCashBoxRepository {
	return &GormCashBoxRepository{db: db}
}

// FindByID finds a cash box visible to the scope
func (r *GormCashBoxRepository) FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*ledger.CashBox, error) {
	var model models.CashBoxModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Visible(scope)).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// LockForUpdate issues one SELECT ... FOR UPDATE per box in lock order so
// that two writers touching the same pair of boxes never deadlock.
func (r *GormCashBoxRepository) LockForUpdate(ctx context.Context, scope shared.RequestScope, ids ...uuid.UUID) ([]*ledger.CashBox, error) {
	boxes := make([]*ledger.CashBox, 0, len(ids))
	for _, id := range ledger.LockOrder(ids...) {
		var model models.CashBoxModel
		if err := r.db.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Scopes(tenant.Visible(scope)).
			First(&model, "id = ?", id).Error; err != nil {
			return nil, notFound(err)
		}
		boxes = append(boxes, model.ToDomain())
	}
	return boxes, nil
}

// List returns the boxes visible to scope ordered for display
func (r *GormCashBoxRepository) List(ctx context.Context, scope shared.RequestScope, includeArchived bool) ([]ledger.CashBox, error) {
	query := r.db.WithContext(ctx).Scopes(tenant.Visible(scope))
	if !includeArchived {
		query = query.Where("is_archived = ?", false)
	}
	var rows []models.CashBoxModel
	if err := query.Order("sort_order ASC, name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	boxes := make([]ledger.CashBox, 0, len(rows))
	for i := range rows {
		boxes = append(boxes, *rows[i].ToDomain())
	}
	return boxes, nil
}

// Save creates or updates a cash box
func (r *GormCashBoxRepository) Save(ctx context.Context, box *ledger.CashBox) error {
	return r.db.WithContext(ctx).Save(models.CashBoxModelFromDomain(box)).Error
}

// Delete removes a cash box
func (r *GormCashBoxRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.CashBoxModel{}, "id = ?", id).Error
}

// CountReferences counts transactions, receipts, spendings and transfers of the box
func (r *GormCashBoxRepository) CountReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var total int64
	counts := []struct {
		model any
		where string
		args  []any
	}{
		{&models.TransactionModel{}, "cash_box_id = ?", []any{id}},
		{&models.ReceiptModel{}, "cash_box_id = ?", []any{id}},
		{&models.SpendingModel{}, "cash_box_id = ?", []any{id}},
		{&models.CashTransferModel{}, "from_cash_box_id = ? OR to_cash_box_id = ?", []any{id, id}},
	}
	for _, c := range counts {
		var n int64
		if err := r.db.WithContext(ctx).Model(c.model).Where(c.where, c.args...).Count(&n).Error; err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// GormTransactionTypeRepository reads the transaction type catalog
type GormTransactionTypeRepository struct {
	db *gorm.DB
}

// NewGormTransactionTypeRepository creates a new GormTransactionTypeRepository
func NewGormTransactionTypeRepository(db *gorm.DB) *GormTransactionTypeRepository {
	return &GormTransactionTypeRepository{db: db}
}

// FindActive returns every active type
func (r *GormTransactionTypeRepository) FindActive(ctx context.Context) ([]ledger.TransactionType, error) {
	var rows []models.TransactionTypeModel
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	types := make([]ledger.TransactionType, 0, len(rows))
	for i := range rows {
		types = append(types, rows[i].ToDomain())
	}
	return types, nil
}

// GormTransactionRepository implements TransactionRepository using GORM
type GormTransactionRepository struct {
	db *gorm.DB
}

// NewGormTransactionRepository creates a new GormTransactionRepository
func NewGormTransactionRepository(db *gorm.DB) *GormTransactionRepository {
	return &GormTransactionRepository{db: db}
}

// FindByID finds a transaction in the scope's books
func (r *GormTransactionRepository) FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*ledger.Transaction, error) {
	var model models.TransactionModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.BelongsTo(scope)).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the visible subset of ids
func (r *GormTransactionRepository) FindByIDs(ctx context.Context, scope shared.RequestScope, ids []uuid.UUID) ([]*ledger.Transaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.TransactionModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.BelongsTo(scope)).
		Where("id IN ?", ids).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*ledger.Transaction, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// Save creates or updates a transaction
func (r *GormTransactionRepository) Save(ctx context.Context, t *ledger.Transaction) error {
	return r.db.WithContext(ctx).Save(models.TransactionModelFromDomain(t)).Error
}

// Delete removes a transaction
func (r *GormTransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.TransactionModel{}, "id = ?", id).Error
}

// inPurse limits rows of table to purse p: the box, and inside a shared box
// the tenant's own rows
func inPurse(table string, p ledger.Purse) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where(table+".cash_box_id = ?", p.CashBoxID)
		if p.Pooled {
			db = db.Where(table+".tenant_id = ?", *p.TenantID)
		}
		return db
	}
}

// SumCompleted aggregates sum*sign in SQL over the completed rows of a purse
func (r *GormTransactionRepository) SumCompleted(ctx context.Context, p ledger.Purse) (valueobject.Money, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Table("transactions").
		Select("COALESCE(SUM(transactions.sum * transaction_types.sign), 0)").
		Joins("JOIN transaction_types ON transaction_types.id = transactions.type_id").
		Scopes(inPurse("transactions", p)).
		Where("transactions.is_completed = ?", true).
		Row().Scan(&total)
	if err != nil {
		return valueobject.Money{}, err
	}
	return valueobject.NewMoney(total, p.Currency)
}

type ledgerEntryRow struct {
	Sum      decimal.Decimal
	Currency string
	Sign     int
}

// CompletedEntries loads completed rows of a purse oldest first
func (r *GormTransactionRepository) CompletedEntries(ctx context.Context, p ledger.Purse) ([]ledger.LedgerEntry, error) {
	var rows []ledgerEntryRow
	if err := r.db.WithContext(ctx).
		Table("transactions").
		Select("transactions.sum, transactions.currency, transaction_types.sign").
		Joins("JOIN transaction_types ON transaction_types.id = transactions.type_id").
		Scopes(inPurse("transactions", p)).
		Where("transactions.is_completed = ?", true).
		Order("transactions.completed_at ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	entries := make([]ledger.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		sum, err := valueobject.NewMoney(row.Sum, valueobject.Currency(row.Currency))
		if err != nil {
			return nil, err
		}
		entries = append(entries, ledger.LedgerEntry{Sum: sum, Sign: ledger.Sign(row.Sign), Completed: true})
	}
	return entries, nil
}

// GormReceiptRepository implements ReceiptRepository using GORM
type GormReceiptRepository struct {
	db *gorm.DB
}

// NewGormReceiptRepository creates a new GormReceiptRepository
func NewGormReceiptRepository(db *gorm.DB) *GormReceiptRepository {
	return &GormReceiptRepository{db: db}
}

// FindByID finds a receipt in the scope's books
func (r *GormReceiptRepository) FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*ledger.Receipt, error) {
	var model models.ReceiptModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.BelongsTo(scope)).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByTransactionID finds the receipt owning a transaction
func (r *GormReceiptRepository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*ledger.Receipt, error) {
	var model models.ReceiptModel
	if err := r.db.WithContext(ctx).First(&model, "transaction_id = ?", transactionID).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a receipt
func (r *GormReceiptRepository) Save(ctx context.Context, receipt *ledger.Receipt) error {
	return r.db.WithContext(ctx).Save(models.ReceiptModelFromDomain(receipt)).Error
}

// Delete removes a receipt
func (r *GormReceiptRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ReceiptModel{}, "id = ?", id).Error
}

// SumByContract totals the receipts of a contract in one currency
func (r *GormReceiptRepository) SumByContract(ctx context.Context, contractID uuid.UUID, currency valueobject.Currency) (valueobject.Money, error) {
	var total decimal.Decimal
	if err := r.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Select("COALESCE(SUM(sum), 0)").
		Where("contract_id = ? AND currency = ?", contractID, string(currency)).
		Row().Scan(&total); err != nil {
		return valueobject.Money{}, err
	}
	return valueobject.NewMoney(total, currency)
}

// GormSpendingRepository implements SpendingRepository using GORM
type GormSpendingRepository struct {
	db *gorm.DB
}

// NewGormSpendingRepository creates a new GormSpendingRepository
func NewGormSpendingRepository(db *gorm.DB) *GormSpendingRepository {
	return &GormSpendingRepository{db: db}
}

// FindByID finds a spending in the scope's books
func (r *GormSpendingRepository) FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*ledger.Spending, error) {
	var model models.SpendingModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.BelongsTo(scope)).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByTransactionID finds the spending owning a transaction
func (r *GormSpendingRepository) FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*ledger.Spending, error) {
	var model models.SpendingModel
	if err := r.db.WithContext(ctx).First(&model, "transaction_id = ?", transactionID).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a spending
func (r *GormSpendingRepository) Save(ctx context.Context, s *ledger.Spending) error {
	return r.db.WithContext(ctx).Save(models.SpendingModelFromDomain(s)).Error
}

// Delete removes a spending
func (r *GormSpendingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.SpendingModel{}, "id = ?", id).Error
}

// GormCashTransferRepository implements CashTransferRepository using GORM
type GormCashTransferRepository struct {
	db *gorm.DB
}

// NewGormCashTransferRepository creates a new GormCashTransferRepository
func NewGormCashTransferRepository(db *gorm.DB) *GormCashTransferRepository {
	return &GormCashTransferRepository{db: db}
}

// FindByID finds a transfer in the scope's books
func (r *GormCashTransferRepository) FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*ledger.CashTransfer, error) {
	var model models.CashTransferModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.BelongsTo(scope)).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// Save creates or updates a transfer
func (r *GormCashTransferRepository) Save(ctx context.Context, t *ledger.CashTransfer) error {
	return r.db.WithContext(ctx).Save(models.CashTransferModelFromDomain(t)).Error
}

const historyTable = "cash_box_balance_history"

// GormBalanceHistoryRepository appends and reads balance snapshots
type GormBalanceHistoryRepository struct {
	db *gorm.DB
}

// NewGormBalanceHistoryRepository creates a new GormBalanceHistoryRepository
func NewGormBalanceHistoryRepository(db *gorm.DB) *GormBalanceHistoryRepository {
	return &GormBalanceHistoryRepository{db: db}
}

// Append inserts a snapshot. Rows are never updated.
func (r *GormBalanceHistoryRepository) Append(ctx context.Context, s *ledger.BalanceSnapshot) error {
	return r.db.WithContext(ctx).Create(models.BalanceHistoryModelFromDomain(s)).Error
}

// List returns the snapshots of a purse recorded in [from, to]
func (r *GormBalanceHistoryRepository) List(ctx context.Context, p ledger.Purse, from, to time.Time) ([]ledger.BalanceSnapshot, error) {
	var rows []models.BalanceHistoryModel
	if err := r.db.WithContext(ctx).
		Scopes(inPurse(historyTable, p)).
		Where("recorded_at >= ? AND recorded_at <= ?", from, to).
		Order("recorded_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.BalanceSnapshot, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// LatestBefore returns the newest snapshot strictly before at, or nil
func (r *GormBalanceHistoryRepository) LatestBefore(ctx context.Context, p ledger.Purse, at time.Time) (*ledger.BalanceSnapshot, error) {
	var rows []models.BalanceHistoryModel
	if err := r.db.WithContext(ctx).
		Scopes(inPurse(historyTable, p)).
		Where("recorded_at < ?", at).
		Order("recorded_at DESC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	s := rows[0].ToDomain()
	return &s, nil
}

func (r *GormBalanceHistoryRepository) DeleteByCashBox(ctx context.Context, cashBoxID uuid.UUID) error {
	return r.db.WithContext(ctx).Where("cash_box_id = ?", cashBoxID).Delete(&models.BalanceHistoryModel{}).Error
}

var (
	_ ledger.CashBoxRepository         = (*GormCashBoxRepository)(nil)
	_ ledger.TransactionTypeRepository = (*GormTransactionTypeRepository)(nil)
	_ ledger.TransactionRepository     = (*GormTransactionRepository)(nil)
	_ ledger.ReceiptRepository         = (*GormReceiptRepository)(nil)
	_ ledger.SpendingRepository        = (*GormSpendingRepository)(nil)
	_ ledger.CashTransferRepository    = (*GormCashTransferRepository)(nil)
	_ ledger.BalanceHistoryRepository  = (*GormBalanceHistoryRepository)(nil)
)
