package ledger

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// Settler re-derives a contract's paid amount and payment status inside the
// caller's transaction.
type Settler interface {
	RecalcWith(ctx context.Context, repos Repositories, scope shared.RequestScope, contractID uuid.UUID) error
}

// Metrics receives ledger write outcomes
type Metrics interface {
	RecordOperation(ctx context.Context, op, outcome string)
	RecordInsufficientFunds(ctx context.Context, op string)
	RecordLockWait(ctx context.Context, op string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(context.Context, string, string) {}
func (noopMetrics) RecordInsufficientFunds(context.Context, string) {}
func (noopMetrics) RecordLockWait(context.Context, string, time.Duration) {}

// Operation names used in spans and metrics
const (
	OpContractReceipt     = "create_contract_receipt"
	OpDirectorLoan        = "create_director_loan_receipt"
	OpSpending            = "create_spending"
	OpDirectorWithdrawal  = "create_director_withdrawal"
	OpTransfer            = "transfer_between_cash_boxes"
	OpCompleteTransaction = "complete_transaction"
	OpDeleteReceipt       = "delete_receipt"
	OpDeleteSpending      = "delete_spending"
	OpUpdateTransaction   = "update_transaction"
)
