package contract

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// ContractRepository persists the payment side of contracts
type ContractRepository interface {
	FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*Contract, error)
	// FindForUpdate loads the contract under an exclusive row lock
	FindForUpdate(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*Contract, error)
	// ListActiveIDs returns every non-deleted contract visible to scope
	ListActiveIDs(ctx context.Context, scope shared.RequestScope) ([]uuid.UUID, error)
	Save(ctx context.Context, c *Contract) error
}

// StatusRepository reads workflow statuses
type StatusRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Status, error)
}

// DocumentRepository reads contract documents, templates and items
type DocumentRepository interface {
	ListDocuments(ctx context.Context, contractID uuid.UUID) ([]Document, error)
	FindTemplates(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Template, error)
	ListItems(ctx context.Context, contractID uuid.UUID) ([]Item, error)
}
