package ledger

import (
	"context"

	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/financeobject"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/payroll"
	"github.com/erp/backoffice/internal/domain/report"
	"github.com/erp/backoffice/internal/domain/shared"
)

// TransactionScope runs a unit of work inside one database transaction.
// If fn returns an error every write made through repos is rolled back,
// including the events recorded to the outbox.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories exposes every repository bound to the current transaction.
//
// Money-moving writes touch several aggregates at once (cash box, ledger
// rows, allocations, contract payment fields, accruals), so the scope spans
// all of them rather than one bounded context.
type Repositories interface {
	CashBoxes() ledger.CashBoxRepository
	TransactionTypes() ledger.TransactionTypeRepository
	Transactions() ledger.TransactionRepository
	Receipts() ledger.ReceiptRepository
	Spendings() ledger.SpendingRepository
	Transfers() ledger.CashTransferRepository
	BalanceHistory() ledger.BalanceHistoryRepository

	FinanceObjects() financeobject.FinanceObjectRepository
	Allocations() financeobject.AllocationRepository
	FinanceAllocations() financeobject.FinanceAllocationRepository

	Contracts() contract.ContractRepository
	ContractStatuses() contract.StatusRepository
	ContractDocuments() contract.DocumentRepository

	PayrollRules() payroll.RuleRepository
	Accruals() payroll.AccrualRepository
	Payouts() payroll.PayoutRepository

	Cashflow() report.CashflowRepository
	Periods() report.PeriodRepository

	// Events appends domain events to the outbox of this transaction
	Events() shared.EventRecorder
}
