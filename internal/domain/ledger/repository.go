package ledger

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// CashBoxRepository persists cash boxes. Every lookup is scoped: a box of
// another tenant or company is reported as shared.ErrNotFound.
type CashBoxRepository interface {
	FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*CashBox, error)
	// LockForUpdate takes exclusive row locks on the given boxes, one at a
	// time in LockOrder, and returns them in that order.
	LockForUpdate(ctx context.Context, scope shared.RequestScope, ids ...uuid.UUID) ([]*CashBox, error)
	List(ctx context.Context, scope shared.RequestScope, includeArchived bool) ([]CashBox, error)
	Save(ctx context.Context, box *CashBox) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CountReferences counts ledger rows that mention the box
	CountReferences(ctx context.Context, id uuid.UUID) (int64, error)
}

// TransactionTypeRepository reads the type catalog
type TransactionTypeRepository interface {
	FindActive(ctx context.Context) ([]TransactionType, error)
}

// TransactionRepository persists ledger transactions
type TransactionRepository interface {
	FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*Transaction, error)
	// FindByIDs returns the subset of ids visible to scope; unknown ids are skipped.
	FindByIDs(ctx context.Context, scope shared.RequestScope, ids []uuid.UUID) ([]*Transaction, error)
	Save(ctx context.Context, t *Transaction) error
	Delete(ctx context.Context, id uuid.UUID) error
	// SumCompleted aggregates sum*sign over the completed transactions of a purse
	SumCompleted(ctx context.Context, p Purse) (valueobject.Money, error)
	// CompletedEntries loads the rows a replay needs, oldest first
	CompletedEntries(ctx context.Context, p Purse) ([]LedgerEntry, error)
}

// ReceiptRepository persists receipts
type ReceiptRepository interface {
	FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*Receipt, error)
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Receipt, error)
	Save(ctx context.Context, r *Receipt) error
	Delete(ctx context.Context, id uuid.UUID) error
	// SumByContract totals the receipts pointing at a contract
	SumByContract(ctx context.Context, contractID uuid.UUID, currency valueobject.Currency) (valueobject.Money, error)
}

// SpendingRepository persists spendings
type SpendingRepository interface {
	FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*Spending, error)
	FindByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Spending, error)
	Save(ctx context.Context, s *Spending) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CashTransferRepository persists transfers
type CashTransferRepository interface {
	FindByID(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*CashTransfer, error)
	Save(ctx context.Context, t *CashTransfer) error
}

// BalanceHistoryRepository is append-only: there is no update or delete
type BalanceHistoryRepository interface {
	Append(ctx context.Context, s *BalanceSnapshot) error
	List(ctx context.Context, p Purse, from, to time.Time) ([]BalanceSnapshot, error)
	// LatestBefore returns the newest snapshot recorded strictly before at, or nil
	LatestBefore(ctx context.Context, p Purse, at time.Time) (*BalanceSnapshot, error)
	// DeleteByCashBox drops the history of a box being deleted
	DeleteByCashBox(ctx context.Context, cashBoxID uuid.UUID) error
}
