package ledger_test

import (
	"context"
	"testing"
	"time"

	appcontract "github.com/erp/backoffice/internal/application/contract"
	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/application/ledger/ledgertest"
	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store *ledgertest.Store
	svc   *appledger.FinanceService
	scope shared.RequestScope
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := ledgertest.NewStore()
	svc := appledger.NewFinanceService(store, appledger.Config{}, zap.NewNop())
	svc.SetSettler(appcontract.NewSettlementService(store, zap.NewNop()))
	return &fixture{
		store: store,
		svc:   svc,
		scope: shared.NewRequestScope(uuid.New(), uuid.New(), uuid.New()),
	}
}

func (f *fixture) box(t *testing.T, name string) uuid.UUID {
	t.Helper()
	b, err := ledger.NewCashBox(f.scope, name, valueobject.RUB)
	require.NoError(t, err)
	f.store.AddCashBox(b)
	return b.ID
}

func (f *fixture) contract(total string) uuid.UUID {
	c := contract.NewContract(f.scope, "C-1", valueobject.MustMoney(total), nil)
	f.store.AddContract(c)
	return c.ID
}

func (f *fixture) loan(t *testing.T, boxID uuid.UUID, sum string) *appledger.ReceiptResponse {
	t.Helper()
	resp, err := f.svc.CreateDirectorLoanReceipt(context.Background(), f.scope, appledger.DirectorLoanRequest{
		CashBoxID: boxID,
		Sum:       decimal.RequireFromString(sum),
	})
	require.NoError(t, err)
	return resp
}

func (f *fixture) balance(t *testing.T, boxID uuid.UUID) string {
	t.Helper()
	resp, err := f.svc.GetCashBoxBalance(context.Background(), f.scope, boxID)
	require.NoError(t, err)
	return resp.Balance.StringFixed()
}

func TestFinanceService_Spending(t *testing.T) {
	ctx := context.Background()

	t.Run("spending within balance completes", func(t *testing.T) {
		f := newFixture(t)
		boxID := f.box(t, "Till")
		f.loan(t, boxID, "1000")

		resp, err := f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{
			CashBoxID: boxID,
			Sum:       decimal.RequireFromString("400"),
		})
		require.NoError(t, err)
		assert.Equal(t, ledger.SpendingKindRegular, resp.Kind)
		assert.True(t, resp.Transaction.IsCompleted)
		assert.Equal(t, ledger.TypeOutcome, resp.Transaction.TypeCode)
		assert.Equal(t, "600.00", f.balance(t, boxID))

		history := f.store.History(boxID)
		require.Len(t, history, 2)
		assert.Equal(t, "600.00", history[1].BalanceAfter.StringFixed())
		assert.Equal(t, "-400.00", history[1].Delta.StringFixed())
	})

	t.Run("overdraft writes nothing", func(t *testing.T) {
		f := newFixture(t)
		boxID := f.box(t, "Till")
		f.loan(t, boxID, "100")
		before := f.store.TransactionCount()
		events := len(f.store.Events())

		_, err := f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{
			CashBoxID: boxID,
			Sum:       decimal.RequireFromString("100.01"),
		})
		assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
		assert.Equal(t, before, f.store.TransactionCount())
		assert.Len(t, f.store.Events(), events)
		assert.Len(t, f.store.History(boxID), 1)
		assert.Equal(t, "100.00", f.balance(t, boxID))
	})

	t.Run("spending to exactly zero is allowed", func(t *testing.T) {
		f := newFixture(t)
		boxID := f.box(t, "Till")
		f.loan(t, boxID, "250.50")

		_, err := f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{
			CashBoxID: boxID,
			Sum:       decimal.RequireFromString("250.50"),
		})
		require.NoError(t, err)
		assert.Equal(t, "0.00", f.balance(t, boxID))
	})

	t.Run("rejects non positive sum", func(t *testing.T) {
		f := newFixture(t)
		boxID := f.box(t, "Till")
		for _, in := range []string{"0", "-5"} {
			_, err := f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{
				CashBoxID: boxID,
				Sum:       decimal.RequireFromString(in),
			})
			assert.ErrorIs(t, err, shared.ErrInvalidAmount, in)
		}
		assert.Zero(t, f.store.TransactionCount())
	})

	t.Run("archived box is rejected", func(t *testing.T) {
		f := newFixture(t)
		b, err := ledger.NewCashBox(f.scope, "Old", valueobject.RUB)
		require.NoError(t, err)
		b.Archive()
		f.store.AddCashBox(b)

		_, err = f.svc.CreateDirectorLoanReceipt(ctx, f.scope, appledger.DirectorLoanRequest{
			CashBoxID: b.ID,
			Sum:       decimal.NewFromInt(10),
		})
		assert.ErrorIs(t, err, shared.ErrCashBoxArchived)
	})

	t.Run("box of another tenant is not found", func(t *testing.T) {
		f := newFixture(t)
		other := shared.NewRequestScope(uuid.New(), uuid.Nil, uuid.New())
		b, err := ledger.NewCashBox(other, "Foreign", valueobject.RUB)
		require.NoError(t, err)
		f.store.AddCashBox(b)

		_, err = f.svc.CreateDirectorLoanReceipt(ctx, f.scope, appledger.DirectorLoanRequest{
			CashBoxID: b.ID,
			Sum:       decimal.NewFromInt(10),
		})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("missing tenant is rejected before any write", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.CreateSpending(ctx, shared.RequestScope{}, appledger.SpendingRequest{
			CashBoxID: uuid.New(),
			Sum:       decimal.NewFromInt(1),
		})
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})
}

func TestFinanceService_RejectsFractionsOfACent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	boxID := f.box(t, "Till")
	f.loan(t, boxID, "100")
	before := f.store.TransactionCount()

	_, err := f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{
		CashBoxID: boxID,
		Sum:       decimal.RequireFromString("99.995"),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	_, err = f.svc.CreateDirectorLoanReceipt(ctx, f.scope, appledger.DirectorLoanRequest{
		CashBoxID: boxID,
		Sum:       decimal.RequireFromString("0.001"),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidAmount)

	assert.Equal(t, before, f.store.TransactionCount())
	assert.Equal(t, "100.00", f.balance(t, boxID))

	// the whole balance can still be spent down to the cent
	_, err = f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{
		CashBoxID: boxID,
		Sum:       decimal.RequireFromString("99.99"),
	})
	require.NoError(t, err)
	_, err = f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{
		CashBoxID: boxID,
		Sum:       decimal.RequireFromString("0.01"),
	})
	require.NoError(t, err)
	assert.Equal(t, "0.00", f.balance(t, boxID))
}

func TestFinanceService_SharedBoxKeepsTenantsApart(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b, err := ledger.NewCashBox(f.scope, "Common till", valueobject.RUB)
	require.NoError(t, err)
	b.TenantID = nil
	b.CompanyID = nil
	f.store.AddCashBox(b)
	f.loan(t, b.ID, "100")

	other := shared.NewRequestScope(uuid.New(), uuid.Nil, uuid.New())
	spend := func(scope shared.RequestScope, sum string) error {
		_, err := f.svc.CreateSpending(ctx, scope, appledger.SpendingRequest{
			CashBoxID: b.ID,
			Sum:       decimal.RequireFromString(sum),
		})
		return err
	}

	assert.ErrorIs(t, spend(other, "10"), shared.ErrInsufficientFunds)
	otherBalance, err := f.svc.GetCashBoxBalance(ctx, other, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", otherBalance.Balance.StringFixed())

	_, err = f.svc.CreateDirectorLoanReceipt(ctx, other, appledger.DirectorLoanRequest{
		CashBoxID: b.ID,
		Sum:       decimal.NewFromInt(30),
	})
	require.NoError(t, err)
	require.NoError(t, spend(other, "30"))
	assert.ErrorIs(t, spend(other, "0.01"), shared.ErrInsufficientFunds)

	assert.Equal(t, "100.00", f.balance(t, b.ID))
	history, err := f.svc.ListBalanceHistory(ctx, f.scope, b.ID, time.Now().Add(-time.Hour), time.Time{})
	require.NoError(t, err)
	require.Len(t, history.Entries, 1)
	assert.Equal(t, "100.00", history.Entries[0].BalanceAfter.StringFixed())
}

func TestFinanceService_DeleteCashBoxDropsHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	boxID := f.box(t, "Old till")
	receipt := f.loan(t, boxID, "100")

	assert.ErrorIs(t, f.svc.DeleteCashBox(ctx, f.scope, boxID), shared.ErrCashBoxInUse)
	assert.Len(t, f.store.History(boxID), 1)

	require.NoError(t, f.svc.DeleteReceipt(ctx, f.scope, receipt.ID))
	require.Len(t, f.store.History(boxID), 2)

	require.NoError(t, f.svc.DeleteCashBox(ctx, f.scope, boxID))
	assert.Empty(t, f.store.History(boxID))
	_, err := f.svc.GetCashBox(ctx, f.scope, boxID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestFinanceService_ContractReceiptSettlesContract(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	boxID := f.box(t, "Bank")
	contractID := f.contract("1000")

	_, err := f.svc.CreateContractReceipt(ctx, f.scope, appledger.ContractReceiptRequest{
		CashBoxID:  boxID,
		ContractID: contractID,
		Sum:        decimal.RequireFromString("400"),
	})
	require.NoError(t, err)
	c := f.store.Contract(contractID)
	assert.Equal(t, contract.PaymentPartiallyPaid, c.PaymentStatus)
	assert.Equal(t, "400.00", c.PaidAmount.StringFixed())

	second, err := f.svc.CreateContractReceipt(ctx, f.scope, appledger.ContractReceiptRequest{
		CashBoxID:  boxID,
		ContractID: contractID,
		Sum:        decimal.RequireFromString("600"),
	})
	require.NoError(t, err)
	assert.Equal(t, contract.PaymentFullyPaid, f.store.Contract(contractID).PaymentStatus)
	assert.Contains(t, f.store.Events(), ledger.EventPaymentAppliedToContract)
	assert.Contains(t, f.store.Events(), contract.EventContractRecalculated)

	require.NoError(t, f.svc.DeleteReceipt(ctx, f.scope, second.ID))
	c = f.store.Contract(contractID)
	assert.Equal(t, contract.PaymentPartiallyPaid, c.PaymentStatus)
	assert.Equal(t, "400.00", c.PaidAmount.StringFixed())
	assert.Equal(t, "400.00", f.balance(t, boxID))
}

func TestFinanceService_ContractReceiptUnknownContract(t *testing.T) {
	f := newFixture(t)
	boxID := f.box(t, "Bank")

	_, err := f.svc.CreateContractReceipt(context.Background(), f.scope, appledger.ContractReceiptRequest{
		CashBoxID:  boxID,
		ContractID: uuid.New(),
		Sum:        decimal.NewFromInt(1),
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Zero(t, f.store.TransactionCount())
}

func TestFinanceService_Transfer(t *testing.T) {
	ctx := context.Background()

	t.Run("moves money with two legs", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.box(t, "A"), f.box(t, "B")
		f.loan(t, a, "500")

		resp, err := f.svc.TransferBetweenCashBoxes(ctx, f.scope, appledger.TransferRequest{
			FromCashBoxID: a,
			ToCashBoxID:   b,
			Sum:           decimal.RequireFromString("200"),
		})
		require.NoError(t, err)
		assert.Equal(t, ledger.TypeTransferOut, resp.TransactionOut.TypeCode)
		assert.Equal(t, ledger.TypeTransferIn, resp.TransactionIn.TypeCode)
		assert.Equal(t, ledger.SourceTransferOut, resp.TransactionOut.SourceKind)
		assert.Equal(t, "300.00", f.balance(t, a))
		assert.Equal(t, "200.00", f.balance(t, b))
	})

	t.Run("locks boxes in the same order both ways", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.box(t, "A"), f.box(t, "B")
		f.loan(t, a, "100")
		f.loan(t, b, "100")

		_, err := f.svc.TransferBetweenCashBoxes(ctx, f.scope, appledger.TransferRequest{FromCashBoxID: a, ToCashBoxID: b, Sum: decimal.NewFromInt(10)})
		require.NoError(t, err)
		_, err = f.svc.TransferBetweenCashBoxes(ctx, f.scope, appledger.TransferRequest{FromCashBoxID: b, ToCashBoxID: a, Sum: decimal.NewFromInt(10)})
		require.NoError(t, err)

		log := f.store.LockLog()
		require.GreaterOrEqual(t, len(log), 2)
		want := ledger.LockOrder(a, b)
		assert.Equal(t, want, log[len(log)-2])
		assert.Equal(t, want, log[len(log)-1])
	})

	t.Run("same box is rejected", func(t *testing.T) {
		f := newFixture(t)
		a := f.box(t, "A")
		_, err := f.svc.TransferBetweenCashBoxes(ctx, f.scope, appledger.TransferRequest{FromCashBoxID: a, ToCashBoxID: a, Sum: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, shared.ErrSameCashBox)
	})

	t.Run("boxes of different companies are rejected", func(t *testing.T) {
		f := newFixture(t)
		a := f.box(t, "A")
		f.loan(t, a, "100")
		otherCompany := shared.NewRequestScope(f.scope.TenantID, uuid.New(), f.scope.ActorID)
		foreign, err := ledger.NewCashBox(otherCompany, "B", valueobject.RUB)
		require.NoError(t, err)
		f.store.AddCashBox(foreign)

		tenantWide := shared.NewRequestScope(f.scope.TenantID, uuid.Nil, f.scope.ActorID)
		_, err = f.svc.TransferBetweenCashBoxes(ctx, tenantWide, appledger.TransferRequest{FromCashBoxID: a, ToCashBoxID: foreign.ID, Sum: decimal.NewFromInt(1)})
		assert.ErrorIs(t, err, shared.ErrCrossTenantTransfer)
	})

	t.Run("overdraft on the source leaves both boxes untouched", func(t *testing.T) {
		f := newFixture(t)
		a, b := f.box(t, "A"), f.box(t, "B")
		f.loan(t, a, "50")
		before := f.store.TransactionCount()

		_, err := f.svc.TransferBetweenCashBoxes(ctx, f.scope, appledger.TransferRequest{FromCashBoxID: a, ToCashBoxID: b, Sum: decimal.NewFromInt(51)})
		assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
		assert.Equal(t, before, f.store.TransactionCount())
		assert.Equal(t, "50.00", f.balance(t, a))
		assert.Equal(t, "0.00", f.balance(t, b))
	})
}

func TestFinanceService_DeleteReceipt(t *testing.T) {
	ctx := context.Background()

	t.Run("refuses when the money is already spent", func(t *testing.T) {
		f := newFixture(t)
		boxID := f.box(t, "Till")
		receipt := f.loan(t, boxID, "100")
		_, err := f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{CashBoxID: boxID, Sum: decimal.NewFromInt(80)})
		require.NoError(t, err)

		err = f.svc.DeleteReceipt(ctx, f.scope, receipt.ID)
		assert.ErrorIs(t, err, shared.ErrInsufficientFunds)
		_, ok := f.store.Receipt(receipt.ID)
		assert.True(t, ok)
	})

	t.Run("removes the transaction and appends history", func(t *testing.T) {
		f := newFixture(t)
		boxID := f.box(t, "Till")
		receipt := f.loan(t, boxID, "100")

		require.NoError(t, f.svc.DeleteReceipt(ctx, f.scope, receipt.ID))
		_, ok := f.store.Transaction(receipt.Transaction.ID)
		assert.False(t, ok)
		assert.Equal(t, "0.00", f.balance(t, boxID))

		history := f.store.History(boxID)
		require.Len(t, history, 2)
		assert.Equal(t, ledger.SnapshotReasonDeleted, history[1].Reason)
		assert.Contains(t, f.store.Events(), ledger.EventTransactionDeleted)
	})
}

func TestFinanceService_DeleteSpendingRejectsPayroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	boxID := f.box(t, "Till")
	f.loan(t, boxID, "100")

	resp, err := f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{
		CashBoxID:      boxID,
		Sum:            decimal.NewFromInt(30),
		Kind:           ledger.SpendingKindPayroll,
		SkipAllocation: true,
	})
	require.NoError(t, err)

	err = f.svc.DeleteSpending(ctx, f.scope, resp.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	_, ok := f.store.Spending(resp.ID)
	assert.True(t, ok)
}

func TestFinanceService_DirectorWithdrawalUsesConfiguredFund(t *testing.T) {
	ctx := context.Background()
	store := ledgertest.NewStore()
	fund, item := uuid.New(), uuid.New()
	svc := appledger.NewFinanceService(store, appledger.Config{DirectorFundID: &fund, DirectorSpendingItemID: &item}, zap.NewNop())
	scope := shared.NewRequestScope(uuid.New(), uuid.Nil, uuid.New())
	box, err := ledger.NewCashBox(scope, "Safe", valueobject.RUB)
	require.NoError(t, err)
	store.AddCashBox(box)

	_, err = svc.CreateDirectorLoanReceipt(ctx, scope, appledger.DirectorLoanRequest{CashBoxID: box.ID, Sum: decimal.NewFromInt(100)})
	require.NoError(t, err)
	resp, err := svc.CreateDirectorWithdrawal(ctx, scope, appledger.DirectorWithdrawalRequest{CashBoxID: box.ID, Sum: decimal.NewFromInt(40)})
	require.NoError(t, err)

	assert.Equal(t, ledger.SpendingKindDirectorWithdrawal, resp.Kind)
	assert.Equal(t, ledger.TypeDirectorWithdrawal, resp.Transaction.TypeCode)
	sp, ok := store.Spending(resp.ID)
	require.True(t, ok)
	assert.Equal(t, &fund, sp.FundID)
	assert.Equal(t, &item, sp.SpendingItemID)
	assert.Contains(t, store.Events(), ledger.EventDirectorWithdrawalCreated)
}

func TestFinanceService_ContractSpendingGetsExpenseAllocation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	boxID := f.box(t, "Till")
	contractID := f.contract("1000")
	f.loan(t, boxID, "100")

	resp, err := f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{
		CashBoxID:  boxID,
		Sum:        decimal.NewFromInt(70),
		ContractID: &contractID,
	})
	require.NoError(t, err)

	rows := f.store.FinanceAllocations()
	require.Len(t, rows, 1)
	assert.Equal(t, resp.ID, rows[0].SpendingID)
	assert.Equal(t, &contractID, rows[0].ContractID)
	assert.Equal(t, "70.00", rows[0].Amount.StringFixed())
}

func TestFinanceService_BalanceQueries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	boxID := f.box(t, "Till")
	start := time.Now()
	f.loan(t, boxID, "100")
	_, err := f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{CashBoxID: boxID, Sum: decimal.NewFromInt(25)})
	require.NoError(t, err)

	check, err := f.svc.VerifyCashBoxBalance(ctx, f.scope, boxID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
	assert.Equal(t, "75.00", check.Replayed.StringFixed())

	opening, err := f.svc.OpeningBalance(ctx, f.scope, boxID, start.Add(-time.Hour))
	require.NoError(t, err)
	assert.True(t, opening.IsZero())

	history, err := f.svc.ListBalanceHistory(ctx, f.scope, boxID, start.Add(-time.Hour), time.Time{})
	require.NoError(t, err)
	assert.Len(t, history.Entries, 2)

	_, err = f.svc.ListBalanceHistory(ctx, f.scope, boxID, start, start.Add(-time.Hour))
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestFinanceService_CompleteTransactionTwice(t *testing.T) {
	f := newFixture(t)
	boxID := f.box(t, "Till")
	resp := f.loan(t, boxID, "10")

	_, err := f.svc.CompleteTransaction(context.Background(), f.scope, resp.Transaction.ID)
	assert.ErrorIs(t, err, shared.ErrTransactionAlreadyCompleted)
}
