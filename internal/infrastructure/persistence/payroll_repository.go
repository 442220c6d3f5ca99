package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/domain/payroll"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPayrollRuleRepository implements RuleRepository using GORM
type GormPayrollRuleRepository struct {
	db *gorm.DB
}

// NewGormPayrollRuleRepository creates a new GormPayrollRuleRepository
func NewGormPayrollRuleRepository(db *gorm.DB) *GormPayrollRuleRepository {
	return &GormPayrollRuleRepository{db: db}
}

// ListForUser returns a user's rules across every company of the tenant
func (r *GormPayrollRuleRepository) ListForUser(ctx context.Context, tenantID, userID uuid.UUID) ([]payroll.Rule, error) {
	var rows []models.PayrollRuleModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.TenantScope(tenantID)).
		Where("user_id = ?", userID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rulesToDomain(rows), nil
}

// List returns the rules in the scope's books
func (r *GormPayrollRuleRepository) List(ctx context.Context, scope shared.RequestScope) ([]payroll.Rule, error) {
	var rows []models.PayrollRuleModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.BelongsTo(scope)).
		Order("document_type ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rulesToDomain(rows), nil
}

// FindByKey finds the rule of a user and document type in exactly the scope's books
func (r *GormPayrollRuleRepository) FindByKey(ctx context.Context, scope shared.RequestScope, userID uuid.UUID, documentType string) (*payroll.Rule, error) {
	var model models.PayrollRuleModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.Books(scope)).
		Where("user_id = ? AND document_type = ?", userID, documentType).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	rule := model.ToDomain()
	return &rule, nil
}

// Save creates or updates a rule
func (r *GormPayrollRuleRepository) Save(ctx context.Context, rule *payroll.Rule) error {
	return r.db.WithContext(ctx).Save(models.PayrollRuleModelFromDomain(rule)).Error
}

func rulesToDomain(rows []models.PayrollRuleModel) []payroll.Rule {
	out := make([]payroll.Rule, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

// GormAccrualRepository implements AccrualRepository using GORM
type GormAccrualRepository struct {
	db *gorm.DB
}

// NewGormAccrualRepository creates a new GormAccrualRepository
func NewGormAccrualRepository(db *gorm.DB) *GormAccrualRepository {
	return &GormAccrualRepository{db: db}
}

// FindByID finds an accrual in the scope's books
func (r *GormAccrualRepository) FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*payroll.Accrual, error) {
	var model models.AccrualModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.BelongsTo(scope)).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindForUpdate locks the accruals in id order and returns them keyed by id
func (r *GormAccrualRepository) FindForUpdate(ctx context.Context, scope shared.RequestScope, ids []uuid.UUID) (map[uuid.UUID]*payroll.Accrual, error) {
	out := make(map[uuid.UUID]*payroll.Accrual, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.AccrualModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(tenant.BelongsTo(scope)).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].ToDomain()
	}
	return out, nil
}

// FindActiveSystem returns the non-cancelled system accrual for key, or nil
func (r *GormAccrualRepository) FindActiveSystem(ctx context.Context, key payroll.Key) (*payroll.Accrual, error) {
	var rows []models.AccrualModel
	if err := r.db.WithContext(ctx).
		Where("contract_id = ? AND contract_document_id = ? AND user_id = ? AND type = ?",
			key.ContractID, key.DocumentID, key.UserID, string(key.Type)).
		Where("source = ? AND status <> ?", string(payroll.SourceSystem), string(payroll.StatusCancelled)).
		Order("created_at ASC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// ListByContract returns every accrual of a contract
func (r *GormAccrualRepository) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*payroll.Accrual, error) {
	var rows []models.AccrualModel
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return accrualsToDomain(rows), nil
}

// List returns a page of accruals, newest first, with the total count
func (r *GormAccrualRepository) List(ctx context.Context, scope shared.RequestScope, filter payroll.AccrualFilter) ([]*payroll.Accrual, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.AccrualModel{}).Scopes(tenant.BelongsTo(scope))
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.ContractID != nil {
		query = query.Where("contract_id = ?", *filter.ContractID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.AccrualModel
	if err := query.
		Order(accrualOrder.orderBy(filter.Filter)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return accrualsToDomain(rows), total, nil
}

// Save creates or updates an accrual
func (r *GormAccrualRepository) Save(ctx context.Context, a *payroll.Accrual) error {
	return r.db.WithContext(ctx).Save(models.AccrualModelFromDomain(a)).Error
}

func accrualsToDomain(rows []models.AccrualModel) []*payroll.Accrual {
	out := make([]*payroll.Accrual, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out
}

// GormPayoutRepository implements PayoutRepository using GORM
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewGormPayoutRepository creates a new GormPayoutRepository
func NewGormPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// FindByID finds a payout with its items
func (r *GormPayoutRepository) FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*payroll.Payout, error) {
	var model models.PayoutModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Scopes(tenant.BelongsTo(scope)).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// List returns a page of payouts, newest date first, with the total count
func (r *GormPayoutRepository) List(ctx context.Context, scope shared.RequestScope, userID *uuid.UUID, filter shared.Filter) ([]*payroll.Payout, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PayoutModel{}).Scopes(tenant.BelongsTo(scope))
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.PayoutModel
	if err := query.
		Preload("Items").
		Order(payoutOrder.orderBy(filter)).
		Offset(filter.Offset()).
		Limit(filter.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*payroll.Payout, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, total, nil
}

// Save creates or updates a payout together with its items
func (r *GormPayoutRepository) Save(ctx context.Context, p *payroll.Payout) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{FullSaveAssociations: true}).
		Save(models.PayoutModelFromDomain(p)).Error
}

// Delete removes a payout and its items
func (r *GormPayoutRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("payout_id = ?", id).Delete(&models.PayoutItemModel{}).Error; err != nil {
		return err
	}
	return db.Delete(&models.PayoutModel{}, "id = ?", id).Error
}

var (
	_ payroll.RuleRepository    = (*GormPayrollRuleRepository)(nil)
	_ payroll.AccrualRepository = (*GormAccrualRepository)(nil)
	_ payroll.PayoutRepository  = (*GormPayoutRepository)(nil)
)
