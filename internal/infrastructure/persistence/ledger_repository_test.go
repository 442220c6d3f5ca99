package persistence

import (
	"context"
	"testing"
	"time"

	appcontract "github.com/erp/backoffice/internal/application/contract"
	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/infrastructure/event"
	"github.com/erp/backoffice/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	// one connection, so every session sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, AutoMigrate(context.Background(), db))
	return db
}

type ledgerFixture struct {
	db    *gorm.DB
	svc   *appledger.FinanceService
	scope shared.RequestScope
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	db := setupLedgerTestDB(t)
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)

	txScope := NewGormTransactionScope(db, serializer)
	svc := appledger.NewFinanceService(txScope, appledger.Config{}, zap.NewNop())
	svc.SetSettler(appcontract.NewSettlementService(txScope, zap.NewNop()))

	return &ledgerFixture{
		db:    db,
		svc:   svc,
		scope: shared.NewRequestScope(uuid.New(), uuid.New(), uuid.New()),
	}
}

func (f *ledgerFixture) box(t *testing.T, name string) uuid.UUID {
	t.Helper()
	resp, err := f.svc.CreateCashBox(context.Background(), f.scope, appledger.CreateCashBoxRequest{Name: name, Currency: "RUB"})
	require.NoError(t, err)
	return resp.ID
}

func (f *ledgerFixture) loan(t *testing.T, boxID uuid.UUID, sum string) {
	t.Helper()
	_, err := f.svc.CreateDirectorLoanReceipt(context.Background(), f.scope, appledger.DirectorLoanRequest{
		CashBoxID: boxID,
		Sum:       decimal.RequireFromString(sum),
	})
	require.NoError(t, err)
}

func (f *ledgerFixture) balance(t *testing.T, boxID uuid.UUID) string {
	t.Helper()
	resp, err := f.svc.GetCashBoxBalance(context.Background(), f.scope, boxID)
	require.NoError(t, err)
	return resp.Balance.StringFixed()
}

func (f *ledgerFixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestSeedTransactionTypes_Idempotent(t *testing.T) {
	db := setupLedgerTestDB(t)
	ctx := context.Background()

	require.NoError(t, SeedTransactionTypes(ctx, db))

	types, err := NewGormTransactionTypeRepository(db).FindActive(ctx)
	require.NoError(t, err)
	require.Len(t, types, 6)

	registry := ledger.NewTypeRegistry(types)
	income, err := registry.ByCode(ledger.TypeIncome)
	require.NoError(t, err)
	assert.Equal(t, ledger.SignIn, income.Sign)
	withdrawal, err := registry.ByCode(ledger.TypeDirectorWithdrawal)
	require.NoError(t, err)
	assert.Equal(t, ledger.SignOut, withdrawal.Sign)
}

func TestGormLedger_SpendingAndOverdraft(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	boxID := f.box(t, "Till")
	f.loan(t, boxID, "1000")

	_, err := f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{
		CashBoxID: boxID,
		Sum:       decimal.RequireFromString("400"),
	})
	require.NoError(t, err)
	assert.Equal(t, "600.00", f.balance(t, boxID))

	transactions := f.count(t, &models.TransactionModel{})
	outbox := f.count(t, &models.OutboxEventModel{})

	_, err = f.svc.CreateSpending(ctx, f.scope, appledger.SpendingRequest{
		CashBoxID: boxID,
		Sum:       decimal.RequireFromString("600.01"),
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)

	// the failed write rolled back as a whole
	assert.Equal(t, transactions, f.count(t, &models.TransactionModel{}))
	assert.Equal(t, outbox, f.count(t, &models.OutboxEventModel{}))
	assert.Equal(t, "600.00", f.balance(t, boxID))

	check, err := f.svc.VerifyCashBoxBalance(ctx, f.scope, boxID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
}

func TestGormLedger_Transfer(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	from := f.box(t, "Safe")
	to := f.box(t, "Till")
	f.loan(t, from, "500")

	resp, err := f.svc.TransferBetweenCashBoxes(ctx, f.scope, appledger.TransferRequest{
		FromCashBoxID: from,
		ToCashBoxID:   to,
		Sum:           decimal.RequireFromString("120.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, ledger.TypeTransferOut, resp.TransactionOut.TypeCode)
	assert.Equal(t, ledger.TypeTransferIn, resp.TransactionIn.TypeCode)

	assert.Equal(t, "379.50", f.balance(t, from))
	assert.Equal(t, "120.50", f.balance(t, to))
	assert.Equal(t, int64(1), f.count(t, &models.CashTransferModel{}))
}

func TestGormLedger_ContractReceiptSettlesContract(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	boxID := f.box(t, "Till")

	c := contract.NewContract(f.scope, "C-1", valueobject.MustMoney("500"), nil)
	require.NoError(t, NewGormContractRepository(f.db).Save(ctx, c))

	_, err := f.svc.CreateContractReceipt(ctx, f.scope, appledger.ContractReceiptRequest{
		CashBoxID:  boxID,
		ContractID: c.ID,
		Sum:        decimal.RequireFromString("200"),
	})
	require.NoError(t, err)

	stored, err := NewGormContractRepository(f.db).FindByID(ctx, f.scope, c.ID)
	require.NoError(t, err)
	assert.Equal(t, contract.PaymentPartiallyPaid, stored.PaymentStatus)
	assert.Equal(t, "200.00", stored.PaidAmount.StringFixed())

	_, err = f.svc.CreateContractReceipt(ctx, f.scope, appledger.ContractReceiptRequest{
		CashBoxID:  boxID,
		ContractID: c.ID,
		Sum:        decimal.RequireFromString("300"),
	})
	require.NoError(t, err)

	stored, err = NewGormContractRepository(f.db).FindByID(ctx, f.scope, c.ID)
	require.NoError(t, err)
	assert.Equal(t, contract.PaymentFullyPaid, stored.PaymentStatus)
	assert.Equal(t, "500.00", f.balance(t, boxID))
}

func TestGormLedger_DeleteReceiptRestoresBalance(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	boxID := f.box(t, "Till")

	receipt, err := f.svc.CreateDirectorLoanReceipt(ctx, f.scope, appledger.DirectorLoanRequest{
		CashBoxID: boxID,
		Sum:       decimal.RequireFromString("300"),
	})
	require.NoError(t, err)
	assert.Equal(t, "300.00", f.balance(t, boxID))

	require.NoError(t, f.svc.DeleteReceipt(ctx, f.scope, receipt.ID))

	assert.Equal(t, "0.00", f.balance(t, boxID))
	assert.Equal(t, int64(0), f.count(t, &models.ReceiptModel{}))
}

func TestGormLedger_EventsLandInOutbox(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	boxID := f.box(t, "Till")
	f.loan(t, boxID, "100")

	claimed, err := event.NewGormOutboxRepository(f.db).ClaimDue(ctx, time.Now().Add(time.Minute), 100)
	require.NoError(t, err)
	require.NotEmpty(t, claimed)

	types := make([]string, 0, len(claimed))
	for _, e := range claimed {
		assert.Equal(t, f.scope.TenantID, e.TenantID)
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, ledger.EventDirectorLoanCreated)
}

func TestGormLedger_TenantIsolation(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	boxID := f.box(t, "Till")

	other := shared.NewRequestScope(uuid.New(), uuid.New(), uuid.New())
	_, err := f.svc.GetCashBox(ctx, other, boxID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = f.svc.CreateDirectorLoanReceipt(ctx, other, appledger.DirectorLoanRequest{
		CashBoxID: boxID,
		Sum:       decimal.RequireFromString("10"),
	})
	assert.Error(t, err)
	assert.Equal(t, int64(0), f.count(t, &models.TransactionModel{}))
}

func TestGormLedger_SharedBoxPurses(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	boxID := f.box(t, "Common till")
	require.NoError(t, f.db.Model(&models.CashBoxModel{}).
		Where("id = ?", boxID).
		Updates(map[string]any{"tenant_id": nil, "company_id": nil}).Error)
	f.loan(t, boxID, "100")

	other := shared.NewRequestScope(uuid.New(), uuid.New(), uuid.New())
	_, err := f.svc.CreateSpending(ctx, other, appledger.SpendingRequest{
		CashBoxID: boxID,
		Sum:       decimal.RequireFromString("1"),
	})
	assert.ErrorIs(t, err, shared.ErrInsufficientFunds)

	otherBalance, err := f.svc.GetCashBoxBalance(ctx, other, boxID)
	require.NoError(t, err)
	assert.True(t, otherBalance.Balance.IsZero())
	assert.Equal(t, "100.00", f.balance(t, boxID))

	check, err := f.svc.VerifyCashBoxBalance(ctx, f.scope, boxID)
	require.NoError(t, err)
	assert.True(t, check.Consistent)
	assert.Equal(t, "100.00", check.Replayed.StringFixed())
}

func TestGormLedger_DeleteCashBoxDropsHistory(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	boxID := f.box(t, "Till")

	receipt, err := f.svc.CreateDirectorLoanReceipt(ctx, f.scope, appledger.DirectorLoanRequest{
		CashBoxID: boxID,
		Sum:       decimal.RequireFromString("40"),
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeleteReceipt(ctx, f.scope, receipt.ID))
	require.Equal(t, int64(2), f.count(t, &models.BalanceHistoryModel{}))

	require.NoError(t, f.svc.DeleteCashBox(ctx, f.scope, boxID))
	assert.Equal(t, int64(0), f.count(t, &models.BalanceHistoryModel{}))
	assert.Equal(t, int64(0), f.count(t, &models.CashBoxModel{}))
}
