package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/erp/backoffice/internal/domain/financeobject"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config carries the ledger settings the writer needs
type Config struct {
	// DirectorFundID and DirectorSpendingItemID are stamped on every
	// director withdrawal.
	DirectorFundID         *uuid.UUID
	DirectorSpendingItemID *uuid.UUID
}

// FinanceService is the ledger writer. Every money-moving operation locks
// the affected cash boxes, checks the balance under the lock, writes the
// record and its completed transaction, appends balance history and records
// events, all in one database transaction.
type FinanceService struct {
	txScope TransactionScope
	settler Settler
	metrics Metrics
	cfg     Config
	logger  *zap.Logger
}

// NewFinanceService creates a new FinanceService
func NewFinanceService(txScope TransactionScope, cfg Config, logger *zap.Logger) *FinanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FinanceService{
		txScope: txScope,
		metrics: noopMetrics{},
		cfg:     cfg,
		logger:  logger,
	}
}

// SetSettler wires contract settlement into receipt writes
func (s *FinanceService) SetSettler(settler Settler) {
	s.settler = settler
}

// SetMetrics sets the metrics sink
func (s *FinanceService) SetMetrics(m Metrics) {
	if m != nil {
		s.metrics = m
	}
}

// run wraps an operation with a span and an outcome metric
func (s *FinanceService) run(ctx context.Context, op string, scope shared.RequestScope, fn func(ctx context.Context) error) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", op)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, scope.TenantID.String(),
		telemetry.SpanAttrActorID, scope.ActorID.String(),
	)

	if err := scope.Validate(); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordOperation(ctx, op, "rejected")
		return err
	}

	err := fn(ctx)
	switch {
	case err == nil:
		telemetry.SetOK(span)
		s.metrics.RecordOperation(ctx, op, "ok")
	case errors.Is(err, shared.ErrInsufficientFunds):
		telemetry.RecordError(span, err)
		s.metrics.RecordInsufficientFunds(ctx, op)
		s.metrics.RecordOperation(ctx, op, "insufficient_funds")
	case shared.IsRetryable(err):
		telemetry.RecordError(span, err)
		s.metrics.RecordOperation(ctx, op, "timeout")
		s.logger.Warn("ledger operation timed out",
			zap.String("op", op),
			zap.String("tenant_id", scope.TenantID.String()),
			zap.Error(err))
	default:
		telemetry.RecordError(span, err)
		s.metrics.RecordOperation(ctx, op, "rejected")
	}
	return err
}

// lockBoxes takes the row locks for ids in LockOrder and checks visibility
func (s *FinanceService) lockBoxes(ctx context.Context, repos Repositories, scope shared.RequestScope, op string, ids ...uuid.UUID) (map[uuid.UUID]*ledger.CashBox, error) {
	started := time.Now()
	boxes, err := repos.CashBoxes().LockForUpdate(ctx, scope, ledger.LockOrder(ids...)...)
	s.metrics.RecordLockWait(ctx, op, time.Since(started))
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]*ledger.CashBox, len(boxes))
	for _, b := range boxes {
		out[b.ID] = b
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			return nil, shared.NewDomainError(shared.CodeNotFound, "cash box not found")
		}
	}
	return out, nil
}

func (s *FinanceService) registry(ctx context.Context, repos Repositories) (*ledger.TypeRegistry, error) {
	types, err := repos.TransactionTypes().FindActive(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.NewTypeRegistry(types), nil
}

// completeLocked is the only place balance math happens. The box must be
// locked by the caller. On InsufficientFunds nothing has been written.
func (s *FinanceService) completeLocked(ctx context.Context, repos Repositories, box *ledger.CashBox, ttype ledger.TransactionType, t *ledger.Transaction) error {
	if t.IsCompleted {
		return shared.ErrTransactionAlreadyCompleted
	}
	purse := box.PurseOf(t.TenantID)
	balance, err := repos.Transactions().SumCompleted(ctx, purse)
	if err != nil {
		return err
	}
	after, err := ledger.ApplyToBalance(balance, ttype, t.Sum)
	if err != nil {
		return err
	}
	if err := t.MarkCompleted(time.Now()); err != nil {
		return err
	}
	if err := repos.Transactions().Save(ctx, t); err != nil {
		return err
	}
	txID := t.ID
	return repos.BalanceHistory().Append(ctx, ledger.NewBalanceSnapshot(purse, &txID, ttype.Signed(t.Sum), after, ledger.SnapshotReasonCompleted))
}

func toMoney(sum decimal.Decimal, currency valueobject.Currency) (valueobject.Money, error) {
	m, err := valueobject.NewMoneyExact(sum, currency)
	if err != nil {
		return valueobject.Money{}, err
	}
	if !m.IsPositive() {
		return valueobject.Money{}, shared.NewDomainError(shared.CodeInvalidAmount, "sum must be greater than zero")
	}
	return m, nil
}

// requirePositive runs before any row is locked
func requirePositive(sum decimal.Decimal) error {
	if !sum.IsPositive() {
		return shared.NewDomainError(shared.CodeInvalidAmount, "sum must be greater than zero")
	}
	if !valueobject.FitsScale(sum) {
		return shared.NewDomainError(shared.CodeInvalidAmount, "sum must not have fractions of a cent")
	}
	return nil
}

// CreateContractReceipt records customer money against a contract and
// re-settles the contract in the same transaction.
func (s *FinanceService) CreateContractReceipt(ctx context.Context, scope shared.RequestScope, req ContractReceiptRequest) (*ReceiptResponse, error) {
	var out *ReceiptResponse
	err := s.run(ctx, OpContractReceipt, scope, func(ctx context.Context) error {
		if err := requirePositive(req.Sum); err != nil {
			return err
		}
		if req.ContractID == uuid.Nil {
			return shared.NewDomainError(shared.CodeInvalidInput, "contract is required")
		}
		return s.txScope.Execute(ctx, func(repos Repositories) error {
			c, err := repos.Contracts().FindByID(ctx, scope, req.ContractID)
			if err != nil {
				return err
			}
			var fo *financeobject.FinanceObject
			if req.FinanceObjectID != nil {
				if fo, err = repos.FinanceObjects().FindByID(ctx, scope, *req.FinanceObjectID); err != nil {
					return err
				}
				if !fo.CanAcceptNewMoney() {
					return shared.ErrFinanceObjectNotAssignable
				}
			}

			boxes, err := s.lockBoxes(ctx, repos, scope, OpContractReceipt, req.CashBoxID)
			if err != nil {
				return err
			}
			box := boxes[req.CashBoxID]
			if err := box.EnsureAcceptsMoney(); err != nil {
				return err
			}
			sum, err := toMoney(req.Sum, box.Currency)
			if err != nil {
				return err
			}
			if sum.Currency() != c.Currency() {
				return shared.ErrCurrencyMismatch
			}
			reg, err := s.registry(ctx, repos)
			if err != nil {
				return err
			}
			ttype, err := reg.ByCode(ledger.TypeIncome)
			if err != nil {
				return err
			}

			receipt, err := ledger.NewReceipt(scope, ledger.ReceiptKindContract, box.ID, sum, dateOrNow(req.Date))
			if err != nil {
				return err
			}
			contractID := c.ID
			receipt.ContractID = &contractID
			receipt.CounterpartyID = req.CounterpartyID
			receipt.Notes = req.Notes

			t, err := ledger.NewTransaction(scope, box, ttype, sum, ledger.TransactionDetails{
				PaymentMethodID: req.PaymentMethodID,
				CounterpartyID:  req.CounterpartyID,
				ContractID:      &contractID,
				CashflowItemID:  req.CashflowItemID,
				Date:            receipt.Date,
				Notes:           req.Notes,
			})
			if err != nil {
				return err
			}
			if fo != nil {
				foID := fo.ID
				t.FinanceObjectID = &foID
				receipt.FinanceObjectID = &foID
			}
			t.AttachSource(ledger.SourceReceipt, receipt.ID)

			if err := s.completeLocked(ctx, repos, box, ttype, t); err != nil {
				return err
			}
			receipt.BindTransaction(t.ID)
			if err := repos.Receipts().Save(ctx, receipt); err != nil {
				return err
			}

			if s.settler != nil {
				if err := s.settler.RecalcWith(ctx, repos, scope, contractID); err != nil {
					return err
				}
			}

			if err := repos.Events().Record(ctx,
				ledger.NewReceiptCreatedEvent(ledger.EventReceiptCreated, scope, receipt),
				ledger.NewPaymentAppliedToContractEvent(scope, contractID, receipt),
				ledger.NewTransactionEvent(ledger.EventTransactionCreated, scope, t),
			); err != nil {
				return err
			}
			out = toReceiptResponse(receipt, t)
			return nil
		})
	})
	return out, err
}

// CreateDirectorLoanReceipt records money lent by the director
func (s *FinanceService) CreateDirectorLoanReceipt(ctx context.Context, scope shared.RequestScope, req DirectorLoanRequest) (*ReceiptResponse, error) {
	var out *ReceiptResponse
	err := s.run(ctx, OpDirectorLoan, scope, func(ctx context.Context) error {
		if err := requirePositive(req.Sum); err != nil {
			return err
		}
		return s.txScope.Execute(ctx, func(repos Repositories) error {
			boxes, err := s.lockBoxes(ctx, repos, scope, OpDirectorLoan, req.CashBoxID)
			if err != nil {
				return err
			}
			box := boxes[req.CashBoxID]
			if err := box.EnsureAcceptsMoney(); err != nil {
				return err
			}
			sum, err := toMoney(req.Sum, box.Currency)
			if err != nil {
				return err
			}
			reg, err := s.registry(ctx, repos)
			if err != nil {
				return err
			}
			ttype, err := reg.ByCode(ledger.TypeDirectorLoan)
			if err != nil {
				return err
			}

			receipt, err := ledger.NewReceipt(scope, ledger.ReceiptKindDirectorLoan, box.ID, sum, dateOrNow(req.Date))
			if err != nil {
				return err
			}
			receipt.Notes = req.Notes
			t, err := ledger.NewTransaction(scope, box, ttype, sum, ledger.TransactionDetails{
				PaymentMethodID: req.PaymentMethodID,
				CashflowItemID:  req.CashflowItemID,
				Date:            receipt.Date,
				Notes:           req.Notes,
			})
			if err != nil {
				return err
			}
			t.AttachSource(ledger.SourceReceipt, receipt.ID)
			if err := s.completeLocked(ctx, repos, box, ttype, t); err != nil {
				return err
			}
			receipt.BindTransaction(t.ID)
			if err := repos.Receipts().Save(ctx, receipt); err != nil {
				return err
			}
			if err := repos.Events().Record(ctx,
				ledger.NewReceiptCreatedEvent(ledger.EventDirectorLoanCreated, scope, receipt),
				ledger.NewTransactionEvent(ledger.EventTransactionCreated, scope, t),
			); err != nil {
				return err
			}
			out = toReceiptResponse(receipt, t)
			return nil
		})
	})
	return out, err
}

// CreateSpending records outgoing money
func (s *FinanceService) CreateSpending(ctx context.Context, scope shared.RequestScope, req SpendingRequest) (*SpendingResponse, error) {
	var out *SpendingResponse
	err := s.run(ctx, OpSpending, scope, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos Repositories) error {
			resp, err := s.CreateSpendingWith(ctx, repos, scope, req)
			out = resp
			return err
		})
	})
	return out, err
}

// CreateSpendingWith records a spending inside the caller's transaction.
// Payroll payouts use it so the spending commits with the payout.
func (s *FinanceService) CreateSpendingWith(ctx context.Context, repos Repositories, scope shared.RequestScope, req SpendingRequest) (*SpendingResponse, error) {
	if err := requirePositive(req.Sum); err != nil {
		return nil, err
	}
	kind := req.Kind
	if kind == "" {
		kind = ledger.SpendingKindRegular
	}
	code := ledger.TypeOutcome
	eventType := ledger.EventSpendingCreated
	if kind == ledger.SpendingKindDirectorWithdrawal {
		code = ledger.TypeDirectorWithdrawal
		eventType = ledger.EventDirectorWithdrawalCreated
	}

	if req.ContractID != nil {
		if _, err := repos.Contracts().FindByID(ctx, scope, *req.ContractID); err != nil {
			return nil, err
		}
	}

	boxes, err := s.lockBoxes(ctx, repos, scope, OpSpending, req.CashBoxID)
	if err != nil {
		return nil, err
	}
	box := boxes[req.CashBoxID]
	if err := box.EnsureAcceptsMoney(); err != nil {
		return nil, err
	}
	sum, err := toMoney(req.Sum, box.Currency)
	if err != nil {
		return nil, err
	}
	reg, err := s.registry(ctx, repos)
	if err != nil {
		return nil, err
	}
	ttype, err := reg.ByCode(code)
	if err != nil {
		return nil, err
	}

	spending, err := ledger.NewSpending(scope, kind, box.ID, sum, dateOrNow(req.Date))
	if err != nil {
		return nil, err
	}
	spending.ContractID = req.ContractID
	spending.SpendingItemID = req.SpendingItemID
	spending.FundID = req.FundID
	spending.CounterpartyID = req.CounterpartyID
	spending.Notes = req.Notes
	spending.AllocationKind = req.AllocationKind
	spending.SkipAllocation = req.SkipAllocation

	t, err := ledger.NewTransaction(scope, box, ttype, sum, ledger.TransactionDetails{
		PaymentMethodID: req.PaymentMethodID,
		CounterpartyID:  req.CounterpartyID,
		ContractID:      req.ContractID,
		CashflowItemID:  req.CashflowItemID,
		Date:            spending.Date,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, err
	}
	t.AttachSource(ledger.SourceSpending, spending.ID)

	if err := s.completeLocked(ctx, repos, box, ttype, t); err != nil {
		if errors.Is(err, shared.ErrInsufficientFunds) {
			s.logger.Info("spending rejected: insufficient funds",
				zap.String("tenant_id", scope.TenantID.String()),
				zap.String("cash_box_id", box.ID.String()),
				zap.String("sum", sum.String()))
		}
		return nil, err
	}
	spending.BindTransaction(t.ID)
	if err := repos.Spendings().Save(ctx, spending); err != nil {
		return nil, err
	}

	// contract spendings get an expense allocation unless the caller
	// manages allocations itself
	if spending.ContractID != nil && !spending.SkipAllocation {
		alloc, err := financeobject.NewExpenseAllocation(scope, spending.ID, *spending.ContractID, sum)
		if err != nil {
			return nil, err
		}
		if err := repos.FinanceAllocations().SaveAll(ctx, []financeobject.FinanceAllocation{alloc}); err != nil {
			return nil, err
		}
	}

	if err := repos.Events().Record(ctx,
		ledger.NewSpendingCreatedEvent(eventType, scope, spending),
		ledger.NewTransactionEvent(ledger.EventTransactionCreated, scope, t),
	); err != nil {
		return nil, err
	}
	return toSpendingResponse(spending, t), nil
}

// CreateDirectorWithdrawal records money taken out by the director. Fund and
// spending item are fixed by configuration.
func (s *FinanceService) CreateDirectorWithdrawal(ctx context.Context, scope shared.RequestScope, req DirectorWithdrawalRequest) (*SpendingResponse, error) {
	var out *SpendingResponse
	err := s.run(ctx, OpDirectorWithdrawal, scope, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos Repositories) error {
			resp, err := s.CreateSpendingWith(ctx, repos, scope, SpendingRequest{
				CashBoxID:       req.CashBoxID,
				Sum:             req.Sum,
				Date:            req.Date,
				SpendingItemID:  s.cfg.DirectorSpendingItemID,
				FundID:          s.cfg.DirectorFundID,
				PaymentMethodID: req.PaymentMethodID,
				CashflowItemID:  req.CashflowItemID,
				Notes:           req.Notes,
				Kind:            ledger.SpendingKindDirectorWithdrawal,
				SkipAllocation:  true,
			})
			out = resp
			return err
		})
	})
	return out, err
}

// TransferBetweenCashBoxes moves money between two boxes of the same books.
// Both boxes are locked in LockOrder so opposite transfers cannot deadlock.
func (s *FinanceService) TransferBetweenCashBoxes(ctx context.Context, scope shared.RequestScope, req TransferRequest) (*TransferResponse, error) {
	var out *TransferResponse
	err := s.run(ctx, OpTransfer, scope, func(ctx context.Context) error {
		if err := requirePositive(req.Sum); err != nil {
			return err
		}
		if req.FromCashBoxID == req.ToCashBoxID {
			return shared.ErrSameCashBox
		}
		return s.txScope.Execute(ctx, func(repos Repositories) error {
			boxes, err := s.lockBoxes(ctx, repos, scope, OpTransfer, req.FromCashBoxID, req.ToCashBoxID)
			if err != nil {
				return err
			}
			from, to := boxes[req.FromCashBoxID], boxes[req.ToCashBoxID]
			if err := from.SameBooks(to); err != nil {
				return err
			}
			if err := from.EnsureAcceptsMoney(); err != nil {
				return err
			}
			if err := to.EnsureAcceptsMoney(); err != nil {
				return err
			}
			if from.Currency != to.Currency {
				return shared.ErrCurrencyMismatch
			}
			sum, err := toMoney(req.Sum, from.Currency)
			if err != nil {
				return err
			}
			if err := ledger.ValidateTransfer(from.ID, to.ID, sum); err != nil {
				return err
			}

			reg, err := s.registry(ctx, repos)
			if err != nil {
				return err
			}
			outType, err := reg.ByCode(ledger.TypeTransferOut)
			if err != nil {
				return err
			}
			inType, err := reg.ByCode(ledger.TypeTransferIn)
			if err != nil {
				return err
			}

			date := dateOrNow(req.Date)
			details := ledger.TransactionDetails{Date: date, Notes: req.Notes}
			outLeg, err := ledger.NewTransaction(scope, from, outType, sum, details)
			if err != nil {
				return err
			}
			inLeg, err := ledger.NewTransaction(scope, to, inType, sum, details)
			if err != nil {
				return err
			}
			transfer, err := ledger.NewCashTransfer(scope, outLeg, inLeg, date, req.Notes)
			if err != nil {
				return err
			}
			outLeg.AttachSource(ledger.SourceTransferOut, transfer.ID)
			inLeg.AttachSource(ledger.SourceTransferIn, transfer.ID)

			if err := s.completeLocked(ctx, repos, from, outType, outLeg); err != nil {
				return err
			}
			if err := s.completeLocked(ctx, repos, to, inType, inLeg); err != nil {
				return err
			}
			if err := repos.Transfers().Save(ctx, transfer); err != nil {
				return err
			}

			if err := repos.Events().Record(ctx,
				ledger.NewCashTransferCreatedEvent(scope, transfer),
				ledger.NewTransactionEvent(ledger.EventTransactionCreated, scope, outLeg),
				ledger.NewTransactionEvent(ledger.EventTransactionCreated, scope, inLeg),
			); err != nil {
				return err
			}
			out = &TransferResponse{
				ID:             transfer.ID,
				FromCashBoxID:  transfer.FromCashBoxID,
				ToCashBoxID:    transfer.ToCashBoxID,
				Sum:            transfer.Sum,
				Date:           transfer.Date,
				TransactionOut: ToTransactionResponse(outLeg),
				TransactionIn:  ToTransactionResponse(inLeg),
			}
			return nil
		})
	})
	if err == nil {
		s.logger.Info("cash transfer committed",
			zap.String("tenant_id", scope.TenantID.String()),
			zap.String("from_cash_box_id", req.FromCashBoxID.String()),
			zap.String("to_cash_box_id", req.ToCashBoxID.String()),
			zap.String("sum", req.Sum.String()))
	}
	return out, err
}

// CompleteTransaction completes a pending transaction under its box lock
func (s *FinanceService) CompleteTransaction(ctx context.Context, scope shared.RequestScope, transactionID uuid.UUID) (*TransactionResponse, error) {
	var out *TransactionResponse
	err := s.run(ctx, OpCompleteTransaction, scope, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos Repositories) error {
			pending, err := repos.Transactions().FindByID(ctx, scope, transactionID)
			if err != nil {
				return err
			}
			boxes, err := s.lockBoxes(ctx, repos, scope, OpCompleteTransaction, pending.CashBoxID)
			if err != nil {
				return err
			}
			// re-read under the lock: a concurrent completion may have won
			t, err := repos.Transactions().FindByID(ctx, scope, transactionID)
			if err != nil {
				return err
			}
			reg, err := s.registry(ctx, repos)
			if err != nil {
				return err
			}
			ttype, err := reg.ByID(t.TypeID)
			if err != nil {
				return err
			}
			if err := s.completeLocked(ctx, repos, boxes[t.CashBoxID], ttype, t); err != nil {
				return err
			}
			resp := ToTransactionResponse(t)
			out = &resp
			return repos.Events().Record(ctx, ledger.NewTransactionEvent(ledger.EventTransactionUpdated, scope, t))
		})
	})
	return out, err
}

// UpdateTransactionDetails edits notes, payment method and counterparty.
// Sum, box and type stay frozen.
func (s *FinanceService) UpdateTransactionDetails(ctx context.Context, scope shared.RequestScope, transactionID uuid.UUID, req UpdateTransactionRequest) (*TransactionResponse, error) {
	var out *TransactionResponse
	err := s.run(ctx, OpUpdateTransaction, scope, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos Repositories) error {
			t, err := repos.Transactions().FindByID(ctx, scope, transactionID)
			if err != nil {
				return err
			}
			t.UpdateDetails(req.Notes, req.PaymentMethodID, req.CounterpartyID)
			if err := repos.Transactions().Save(ctx, t); err != nil {
				return err
			}
			resp := ToTransactionResponse(t)
			out = &resp
			return repos.Events().Record(ctx, ledger.NewTransactionEvent(ledger.EventTransactionUpdated, scope, t))
		})
	})
	return out, err
}

// DeleteReceipt removes a receipt and its transaction. Fails with
// InsufficientFunds when the money has already been spent.
func (s *FinanceService) DeleteReceipt(ctx context.Context, scope shared.RequestScope, receiptID uuid.UUID) error {
	return s.run(ctx, OpDeleteReceipt, scope, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos Repositories) error {
			receipt, err := repos.Receipts().FindByID(ctx, scope, receiptID)
			if err != nil {
				return err
			}
			if err := s.removeLedgerRecord(ctx, repos, scope, receipt.CashBoxID, receipt.TransactionID, OpDeleteReceipt, func() error {
				return repos.Receipts().Delete(ctx, receipt.ID)
			}); err != nil {
				return err
			}
			if receipt.ContractID != nil && s.settler != nil {
				return s.settler.RecalcWith(ctx, repos, scope, *receipt.ContractID)
			}
			return nil
		})
	})
}

// DeleteSpending removes a spending and its transaction. Payroll spendings
// belong to a payout and are removed by deleting the payout.
func (s *FinanceService) DeleteSpending(ctx context.Context, scope shared.RequestScope, spendingID uuid.UUID) error {
	return s.run(ctx, OpDeleteSpending, scope, func(ctx context.Context) error {
		return s.txScope.Execute(ctx, func(repos Repositories) error {
			spending, err := repos.Spendings().FindByID(ctx, scope, spendingID)
			if err != nil {
				return err
			}
			if spending.Kind == ledger.SpendingKindPayroll {
				return shared.NewDomainError(shared.CodeInvalidState, "payroll spendings are removed by deleting their payout")
			}
			return s.DeleteSpendingWith(ctx, repos, scope, spending.ID)
		})
	})
}

// DeleteSpendingWith removes a spending inside the caller's transaction
func (s *FinanceService) DeleteSpendingWith(ctx context.Context, repos Repositories, scope shared.RequestScope, spendingID uuid.UUID) error {
	spending, err := repos.Spendings().FindByID(ctx, scope, spendingID)
	if err != nil {
		return err
	}
	return s.removeLedgerRecord(ctx, repos, scope, spending.CashBoxID, spending.TransactionID, OpDeleteSpending, func() error {
		if err := repos.FinanceAllocations().DeleteBySpending(ctx, spending.ID); err != nil {
			return err
		}
		return repos.Spendings().Delete(ctx, spending.ID)
	})
}

// removeLedgerRecord deletes a record and its owned transaction under the
// box lock, keeping the box non-negative and the history append-only.
func (s *FinanceService) removeLedgerRecord(ctx context.Context, repos Repositories, scope shared.RequestScope, cashBoxID uuid.UUID, transactionID *uuid.UUID, op string, deleteRecord func() error) error {
	boxes, err := s.lockBoxes(ctx, repos, scope, op, cashBoxID)
	if err != nil {
		return err
	}
	box := boxes[cashBoxID]

	var t *ledger.Transaction
	if transactionID != nil {
		if t, err = repos.Transactions().FindByID(ctx, scope, *transactionID); err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
	}

	var snapshot *ledger.BalanceSnapshot
	if t != nil && t.IsCompleted {
		reg, err := s.registry(ctx, repos)
		if err != nil {
			return err
		}
		ttype, err := reg.ByID(t.TypeID)
		if err != nil {
			return err
		}
		purse := box.PurseOf(t.TenantID)
		balance, err := repos.Transactions().SumCompleted(ctx, purse)
		if err != nil {
			return err
		}
		delta := ttype.Signed(t.Sum).Negate()
		after, err := balance.Add(delta)
		if err != nil {
			return err
		}
		if after.IsNegative() {
			return shared.ErrInsufficientFunds
		}
		snapshot = ledger.NewBalanceSnapshot(purse, nil, delta, after, ledger.SnapshotReasonDeleted)
	}

	if err := deleteRecord(); err != nil {
		return err
	}
	if t == nil {
		return nil
	}
	if err := repos.Allocations().DeleteByTransaction(ctx, t.ID); err != nil {
		return err
	}
	if err := repos.Transactions().Delete(ctx, t.ID); err != nil {
		return err
	}
	if snapshot != nil {
		if err := repos.BalanceHistory().Append(ctx, snapshot); err != nil {
			return err
		}
	}
	return repos.Events().Record(ctx, ledger.NewTransactionEvent(ledger.EventTransactionDeleted, scope, t))
}

func toReceiptResponse(r *ledger.Receipt, t *ledger.Transaction) *ReceiptResponse {
	return &ReceiptResponse{
		ID:          r.ID,
		Kind:        r.Kind,
		CashBoxID:   r.CashBoxID,
		ContractID:  r.ContractID,
		Sum:         r.Sum,
		Date:        r.Date,
		Transaction: ToTransactionResponse(t),
	}
}

func toSpendingResponse(sp *ledger.Spending, t *ledger.Transaction) *SpendingResponse {
	return &SpendingResponse{
		ID:          sp.ID,
		Kind:        sp.Kind,
		CashBoxID:   sp.CashBoxID,
		ContractID:  sp.ContractID,
		Sum:         sp.Sum,
		Date:        sp.Date,
		Transaction: ToTransactionResponse(t),
	}
}
