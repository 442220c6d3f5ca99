package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/backoffice/internal/domain/report"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCashflowRepository implements CashflowRepository using GORM
type GormCashflowRepository struct {
	db *gorm.DB
}

// NewGormCashflowRepository creates a new GormCashflowRepository
func NewGormCashflowRepository(db *gorm.DB) *GormCashflowRepository {
	return &GormCashflowRepository{db: db}
}

type cashflowSourceRow struct {
	Date           time.Time
	CashflowItemID *uuid.UUID
	Sign           int
	Sum            decimal.Decimal
}

// SourceRows reads completed, paid, non-transfer transactions of the scope's
// books in [from, to].
func (r *GormCashflowRepository) SourceRows(ctx context.Context, scope shared.RequestScope, from, to time.Time, currency valueobject.Currency) ([]report.SourceRow, error) {
	var rows []cashflowSourceRow
	err := r.db.WithContext(ctx).
		Table("transactions").
		Select("transactions.date, transactions.cashflow_item_id, transaction_types.sign, transactions.sum").
		Joins("JOIN transaction_types ON transaction_types.id = transactions.type_id").
		Scopes(tenant.Books(scope)).
		Where("transactions.is_completed AND transactions.is_paid").
		Where("transactions.currency = ?", string(currency)).
		Where("COALESCE(transactions.source_kind, '') NOT IN ?", []string{"transfer_in", "transfer_out"}).
		Where("transactions.date >= ? AND transactions.date <= ?", from, to).
		Order("transactions.date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]report.SourceRow, 0, len(rows))
	for _, row := range rows {
		sum, err := valueobject.NewMoney(row.Sum, currency)
		if err != nil {
			return nil, err
		}
		item := report.Unclassified
		if row.CashflowItemID != nil {
			item = *row.CashflowItemID
		}
		out = append(out, report.SourceRow{
			Date:           row.Date,
			CashflowItemID: item,
			Sign:           row.Sign,
			Sum:            sum,
		})
	}
	return out, nil
}

// ClearDaily deletes the day rows of the scope in [from, to]
func (r *GormCashflowRepository) ClearDaily(ctx context.Context, scope shared.RequestScope, from, to time.Time) error {
	return r.db.WithContext(ctx).
		Scopes(tenant.Keyed(scope)).
		Where("day >= ? AND day <= ?", report.Day(from), report.Day(to)).
		Delete(&models.CashflowDailyModel{}).Error
}

// UpsertDaily writes day rows, replacing the totals of existing keys
func (r *GormCashflowRepository) UpsertDaily(ctx context.Context, rows []report.DailyRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := make([]models.CashflowDailyModel, 0, len(rows))
	for _, row := range rows {
		batch = append(batch, models.CashflowDailyModelFromDomain(row))
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"}, {Name: "company_id"}, {Name: "cashflow_item_id"}, {Name: "day"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"inflow", "outflow", "currency", "tx_count", "updated_at"}),
	}).Create(&batch).Error
}

// DailyBetween reads the day rows of the scope in [from, to], oldest first
func (r *GormCashflowRepository) DailyBetween(ctx context.Context, scope shared.RequestScope, from, to time.Time, currency valueobject.Currency) ([]report.DailyRow, error) {
	var rows []models.CashflowDailyModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Keyed(scope)).
		Where("day >= ? AND day <= ?", report.Day(from), report.Day(to)).
		Where("currency = ?", string(currency)).
		Order("day ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]report.DailyRow, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// ClearMonthly deletes the month rows of the scope for the given months
func (r *GormCashflowRepository) ClearMonthly(ctx context.Context, scope shared.RequestScope, months []report.Month) error {
	db := r.db.WithContext(ctx)
	for _, m := range months {
		if err := db.
			Scopes(tenant.Keyed(scope)).
			Where("year = ? AND month = ?", m.Year, m.Month).
			Delete(&models.CashflowMonthlyModel{}).Error; err != nil {
			return err
		}
	}
	return nil
}

// UpsertMonthly writes month rows, replacing the totals of existing keys
func (r *GormCashflowRepository) UpsertMonthly(ctx context.Context, rows []report.MonthlyRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := make([]models.CashflowMonthlyModel, 0, len(rows))
	for _, row := range rows {
		batch = append(batch, models.CashflowMonthlyModelFromDomain(row))
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "tenant_id"}, {Name: "company_id"}, {Name: "cashflow_item_id"}, {Name: "year"}, {Name: "month"},
		},
		DoUpdates: clause.AssignmentColumns([]string{"inflow", "outflow", "currency", "tx_count", "updated_at"}),
	}).Create(&batch).Error
}

// Monthly reads the month rows of one year
func (r *GormCashflowRepository) Monthly(ctx context.Context, scope shared.RequestScope, year int, currency valueobject.Currency) ([]report.MonthlyRow, error) {
	return r.monthly(ctx, scope, currency, func(db *gorm.DB) *gorm.DB {
		return db.Where("year = ?", year)
	})
}

// AllMonthly reads every month row of the scope
func (r *GormCashflowRepository) AllMonthly(ctx context.Context, scope shared.RequestScope, currency valueobject.Currency) ([]report.MonthlyRow, error) {
	return r.monthly(ctx, scope, currency, func(db *gorm.DB) *gorm.DB { return db })
}

func (r *GormCashflowRepository) monthly(ctx context.Context, scope shared.RequestScope, currency valueobject.Currency, filter func(*gorm.DB) *gorm.DB) ([]report.MonthlyRow, error) {
	var rows []models.CashflowMonthlyModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Keyed(scope), filter).
		Where("currency = ?", string(currency)).
		Order("year ASC, month ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]report.MonthlyRow, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// ReplaceSummary swaps the scope's summary rows for rows
func (r *GormCashflowRepository) ReplaceSummary(ctx context.Context, scope shared.RequestScope, rows []report.SummaryRow) error {
	db := r.db.WithContext(ctx)
	if err := db.Scopes(tenant.Keyed(scope)).Delete(&models.CashflowSummaryModel{}).Error; err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	batch := make([]models.CashflowSummaryModel, 0, len(rows))
	for _, row := range rows {
		batch = append(batch, models.CashflowSummaryModelFromDomain(row))
	}
	return db.Create(&batch).Error
}

// ListItems returns the cashflow items visible to the tenant
func (r *GormCashflowRepository) ListItems(ctx context.Context, scope shared.RequestScope) ([]report.CashflowItem, error) {
	var rows []models.CashflowItemModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id IS NULL OR tenant_id = ?", scope.TenantID).
		Order("section ASC, code ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]report.CashflowItem, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// GormPeriodRepository implements PeriodRepository using GORM
type GormPeriodRepository struct {
	db *gorm.DB
}

// NewGormPeriodRepository creates a new GormPeriodRepository
func NewGormPeriodRepository(db *gorm.DB) *GormPeriodRepository {
	return &GormPeriodRepository{db: db}
}

// Find loads the period of one month
func (r *GormPeriodRepository) Find(ctx context.Context, scope shared.RequestScope, year, month int) (*report.ReportingPeriod, error) {
	var model models.ReportingPeriodModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Keyed(scope)).
		Where("year = ? AND month = ?", year, month).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	p := model.ToDomain()
	return &p, nil
}

// FindMonths returns the periods that exist among months
func (r *GormPeriodRepository) FindMonths(ctx context.Context, scope shared.RequestScope, months []report.Month) ([]report.ReportingPeriod, error) {
	var out []report.ReportingPeriod
	for _, m := range months {
		p, err := r.Find(ctx, scope, m.Year, m.Month)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *p)
	}
	return out, nil
}

// Save creates or updates a period
func (r *GormPeriodRepository) Save(ctx context.Context, p *report.ReportingPeriod) error {
	return r.db.WithContext(ctx).Save(models.ReportingPeriodModelFromDomain(p)).Error
}

var (
	_ report.CashflowRepository = (*GormCashflowRepository)(nil)
	_ report.PeriodRepository   = (*GormPeriodRepository)(nil)
)
