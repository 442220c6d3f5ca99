package persistence

import (
	"context"

	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/financeobject"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/payroll"
	"github.com/erp/backoffice/internal/domain/report"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/event"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Events recorded through Repositories.Events land in the outbox table of
// the same transaction.
type GormTransactionScope struct {
	db         *gorm.DB
	serializer *event.EventSerializer
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, serializer *event.EventSerializer) *GormTransactionScope {
	return &GormTransactionScope{db: db, serializer: serializer}
}

// Execute runs fn within a database transaction. Driver errors are mapped
// through ClassifyError so lock timeouts surface as retryable.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appledger.Repositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, serializer: s.serializer})
	})
	return ClassifyError(err)
}

// gormTransactionalRepositories hands out repositories bound to one transaction
type gormTransactionalRepositories struct {
	tx         *gorm.DB
	serializer *event.EventSerializer
}

func (r *gormTransactionalRepositories) CashBoxes() ledger.CashBoxRepository {
	return NewGormCashBoxRepository(r.tx)
}

func (r *gormTransactionalRepositories) TransactionTypes() ledger.TransactionTypeRepository {
	return NewGormTransactionTypeRepository(r.tx)
}

func (r *gormTransactionalRepositories) Transactions() ledger.TransactionRepository {
	return NewGormTransactionRepository(r.tx)
}

func (r *gormTransactionalRepositories) Receipts() ledger.ReceiptRepository {
	return NewGormReceiptRepository(r.tx)
}

func (r *gormTransactionalRepositories) Spendings() ledger.SpendingRepository {
	return NewGormSpendingRepository(r.tx)
}

func (r *gormTransactionalRepositories) Transfers() ledger.CashTransferRepository {
	return NewGormCashTransferRepository(r.tx)
}

func (r *gormTransactionalRepositories) BalanceHistory() ledger.BalanceHistoryRepository {
	return NewGormBalanceHistoryRepository(r.tx)
}

func (r *gormTransactionalRepositories) FinanceObjects() financeobject.FinanceObjectRepository {
	return NewGormFinanceObjectRepository(r.tx)
}

func (r *gormTransactionalRepositories) Allocations() financeobject.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

func (r *gormTransactionalRepositories) FinanceAllocations() financeobject.FinanceAllocationRepository {
	return NewGormFinanceAllocationRepository(r.tx)
}

func (r *gormTransactionalRepositories) Contracts() contract.ContractRepository {
	return NewGormContractRepository(r.tx)
}

func (r *gormTransactionalRepositories) ContractStatuses() contract.StatusRepository {
	return NewGormContractStatusRepository(r.tx)
}

func (r *gormTransactionalRepositories) ContractDocuments() contract.DocumentRepository {
	return NewGormContractDocumentRepository(r.tx)
}

func (r *gormTransactionalRepositories) PayrollRules() payroll.RuleRepository {
	return NewGormPayrollRuleRepository(r.tx)
}

func (r *gormTransactionalRepositories) Accruals() payroll.AccrualRepository {
	return NewGormAccrualRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payouts() payroll.PayoutRepository {
	return NewGormPayoutRepository(r.tx)
}

func (r *gormTransactionalRepositories) Cashflow() report.CashflowRepository {
	return NewGormCashflowRepository(r.tx)
}

func (r *gormTransactionalRepositories) Periods() report.PeriodRepository {
	return NewGormPeriodRepository(r.tx)
}

func (r *gormTransactionalRepositories) Events() shared.EventRecorder {
	return event.NewOutboxRecorder(r.tx, r.serializer)
}

var (
	_ appledger.TransactionScope = (*GormTransactionScope)(nil)
	_ appledger.Repositories     = (*gormTransactionalRepositories)(nil)
)
