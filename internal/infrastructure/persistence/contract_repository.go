package persistence

import (
	"context"

	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/erp/backoffice/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormContractRepository implements ContractRepository using GORM
type GormContractRepository struct {
	db *gorm.DB
}

// NewGormContractRepository creates a new GormContractRepository
func NewGormContractRepository(db *gorm.DB) *GormContractRepository {
	return &GormContractRepository{db: db}
}

// FindByID finds a contract in the scope's books
func (r *GormContractRepository) FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*contract.Contract, error) {
	var model models.ContractModel
	if err := r.db.WithContext(ctx).
		Scopes(tenant.BelongsTo(scope)).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindForUpdate loads the contract with SELECT ... FOR UPDATE
func (r *GormContractRepository) FindForUpdate(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*contract.Contract, error) {
	var model models.ContractModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Scopes(tenant.BelongsTo(scope)).
		First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// ListActiveIDs returns the ids of every contract in the scope's books
func (r *GormContractRepository) ListActiveIDs(ctx context.Context, scope shared.RequestScope) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.ContractModel{}).
		Scopes(tenant.BelongsTo(scope)).
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// Save creates or updates a contract
func (r *GormContractRepository) Save(ctx context.Context, c *contract.Contract) error {
	return r.db.WithContext(ctx).Save(models.ContractModelFromDomain(c)).Error
}

// GormContractStatusRepository reads workflow statuses
type GormContractStatusRepository struct {
	db *gorm.DB
}

// NewGormContractStatusRepository creates a new GormContractStatusRepository
func NewGormContractStatusRepository(db *gorm.DB) *GormContractStatusRepository {
	return &GormContractStatusRepository{db: db}
}

// FindByID finds a status
func (r *GormContractStatusRepository) FindByID(ctx context.Context, id uuid.UUID) (*contract.Status, error) {
	var model models.ContractStatusModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// GormContractDocumentRepository reads documents, templates and items
type GormContractDocumentRepository struct {
	db *gorm.DB
}

// NewGormContractDocumentRepository creates a new GormContractDocumentRepository
func NewGormContractDocumentRepository(db *gorm.DB) *GormContractDocumentRepository {
	return &GormContractDocumentRepository{db: db}
}

// ListDocuments returns the documents attached to a contract
func (r *GormContractDocumentRepository) ListDocuments(ctx context.Context, contractID uuid.UUID) ([]contract.Document, error) {
	var rows []models.ContractDocumentModel
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]contract.Document, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// FindTemplates loads templates keyed by id; unknown ids are skipped
func (r *GormContractDocumentRepository) FindTemplates(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*contract.Template, error) {
	out := make(map[uuid.UUID]*contract.Template, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.DocumentTemplateModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = rows[i].ToDomain()
	}
	return out, nil
}

// ListItems returns the planned lines of a contract
func (r *GormContractDocumentRepository) ListItems(ctx context.Context, contractID uuid.UUID) ([]contract.Item, error) {
	var rows []models.ContractItemModel
	if err := r.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]contract.Item, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

var (
	_ contract.ContractRepository = (*GormContractRepository)(nil)
	_ contract.StatusRepository   = (*GormContractStatusRepository)(nil)
	_ contract.DocumentRepository = (*GormContractDocumentRepository)(nil)
)
