package financeobject

import (
	"context"
	"testing"

	appcontract "github.com/erp/backoffice/internal/application/contract"
	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/application/ledger/ledgertest"
	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/financeobject"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type allocFixture struct {
	store   *ledgertest.Store
	finance *appledger.FinanceService
	svc     *AllocationService
	scope   shared.RequestScope
	boxID   uuid.UUID
}

func newAllocFixture(t *testing.T) *allocFixture {
	t.Helper()
	store := ledgertest.NewStore()
	settler := appcontract.NewSettlementService(store, zap.NewNop())
	finance := appledger.NewFinanceService(store, appledger.Config{}, zap.NewNop())
	finance.SetSettler(settler)
	svc := NewAllocationService(store, decimal.Zero, zap.NewNop())
	svc.SetSettler(settler)

	scope := shared.NewRequestScope(uuid.New(), uuid.New(), uuid.New())
	box, err := ledger.NewCashBox(scope, "Bank", valueobject.RUB)
	require.NoError(t, err)
	store.AddCashBox(box)
	return &allocFixture{store: store, finance: finance, svc: svc, scope: scope, boxID: box.ID}
}

func (f *allocFixture) object(t *testing.T, typ financeobject.ObjectType, legal *uuid.UUID) *financeobject.FinanceObject {
	t.Helper()
	o, err := financeobject.NewFinanceObject(f.scope, typ, "obj", legal)
	require.NoError(t, err)
	f.store.AddFinanceObject(o)
	return o
}

func (f *allocFixture) contract(total string) uuid.UUID {
	c := contract.NewContract(f.scope, "C", valueobject.MustMoney(total), nil)
	f.store.AddContract(c)
	return c.ID
}

func (f *allocFixture) receipt(t *testing.T, contractID uuid.UUID, sum string) *appledger.ReceiptResponse {
	t.Helper()
	resp, err := f.finance.CreateContractReceipt(context.Background(), f.scope, appledger.ContractReceiptRequest{
		CashBoxID:  f.boxID,
		ContractID: contractID,
		Sum:        decimal.RequireFromString(sum),
	})
	require.NoError(t, err)
	return resp
}

func TestAllocationService_ModeIsExclusive(t *testing.T) {
	f := newAllocFixture(t)
	objID := uuid.New()

	tests := []struct {
		name string
		req  AssignRequest
	}{
		{"neither", AssignRequest{}},
		{"both", AssignRequest{FinanceObjectID: &objID, Allocations: []AllocationLine{{FinanceObjectID: objID, Amount: decimal.NewFromInt(1)}}}},
		{"nil object id", AssignRequest{FinanceObjectID: &uuid.Nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AssignTransaction(context.Background(), f.scope, uuid.New(), tt.req)
			assert.ErrorIs(t, err, shared.ErrAssignmentMode)
		})
	}
}

func TestAllocationService_DirectAssignMovesReceipt(t *testing.T) {
	ctx := context.Background()
	f := newAllocFixture(t)
	first := f.contract("100")
	second := f.contract("100")
	r := f.receipt(t, first, "100")
	require.Equal(t, contract.PaymentFullyPaid, f.store.Contract(first).PaymentStatus)

	obj := f.object(t, financeobject.ObjectTypeContract, &second)
	resp, err := f.svc.AssignTransaction(ctx, f.scope, r.Transaction.ID, AssignRequest{FinanceObjectID: &obj.ID})
	require.NoError(t, err)
	assert.Equal(t, &obj.ID, resp.FinanceObjectID)
	assert.Equal(t, &second, resp.ContractID)

	stored, ok := f.store.Receipt(r.ID)
	require.True(t, ok)
	assert.Equal(t, &second, stored.ContractID)
	assert.Equal(t, contract.PaymentNotPaid, f.store.Contract(first).PaymentStatus)
	assert.Equal(t, contract.PaymentFullyPaid, f.store.Contract(second).PaymentStatus)
}

func TestAllocationService_Split(t *testing.T) {
	ctx := context.Background()

	t.Run("stores rows and clears the legacy contract", func(t *testing.T) {
		f := newAllocFixture(t)
		c := f.contract("300")
		r := f.receipt(t, c, "300")
		a := f.object(t, financeobject.ObjectTypeContract, &c)
		b := f.object(t, financeobject.ObjectTypeFund, nil)

		resp, err := f.svc.AssignTransaction(ctx, f.scope, r.Transaction.ID, AssignRequest{Allocations: []AllocationLine{
			{FinanceObjectID: a.ID, Amount: decimal.NewFromInt(200)},
			{FinanceObjectID: b.ID, Amount: decimal.RequireFromString("100.01")},
		}})
		require.NoError(t, err)
		assert.Nil(t, resp.FinanceObjectID)
		assert.Nil(t, resp.ContractID)
		assert.Len(t, resp.Allocations, 2)
		assert.Len(t, f.store.Allocations(r.Transaction.ID), 2)

		tx, ok := f.store.Transaction(r.Transaction.ID)
		require.True(t, ok)
		assert.Nil(t, tx.FinanceObjectID)
		assert.Nil(t, tx.ContractID)
		assert.Equal(t, contract.PaymentNotPaid, f.store.Contract(c).PaymentStatus)
	})

	t.Run("single contract line keeps the legacy contract", func(t *testing.T) {
		f := newAllocFixture(t)
		c := f.contract("50")
		r := f.receipt(t, c, "50")
		a := f.object(t, financeobject.ObjectTypeContract, &c)

		resp, err := f.svc.AssignTransaction(ctx, f.scope, r.Transaction.ID, AssignRequest{Allocations: []AllocationLine{
			{FinanceObjectID: a.ID, Amount: decimal.NewFromInt(50)},
		}})
		require.NoError(t, err)
		assert.Equal(t, &c, resp.ContractID)
	})

	t.Run("sum outside epsilon is rejected", func(t *testing.T) {
		f := newAllocFixture(t)
		c := f.contract("300")
		r := f.receipt(t, c, "300")
		a := f.object(t, financeobject.ObjectTypeFund, nil)
		b := f.object(t, financeobject.ObjectTypeFund, nil)

		_, err := f.svc.AssignTransaction(ctx, f.scope, r.Transaction.ID, AssignRequest{Allocations: []AllocationLine{
			{FinanceObjectID: a.ID, Amount: decimal.NewFromInt(200)},
			{FinanceObjectID: b.ID, Amount: decimal.RequireFromString("100.02")},
		}})
		assert.ErrorIs(t, err, shared.ErrAllocationSumMismatch)
		assert.Empty(t, f.store.Allocations(r.Transaction.ID))
	})

	t.Run("duplicate object is rejected", func(t *testing.T) {
		f := newAllocFixture(t)
		c := f.contract("300")
		r := f.receipt(t, c, "300")
		a := f.object(t, financeobject.ObjectTypeFund, nil)

		_, err := f.svc.AssignTransaction(ctx, f.scope, r.Transaction.ID, AssignRequest{Allocations: []AllocationLine{
			{FinanceObjectID: a.ID, Amount: decimal.NewFromInt(150)},
			{FinanceObjectID: a.ID, Amount: decimal.NewFromInt(150)},
		}})
		assert.ErrorIs(t, err, shared.ErrDuplicateAllocation)
	})

	t.Run("closed object cannot take new money", func(t *testing.T) {
		f := newAllocFixture(t)
		c := f.contract("300")
		r := f.receipt(t, c, "300")
		closed := f.object(t, financeobject.ObjectTypeFund, nil)
		closed.Close()
		f.store.AddFinanceObject(closed)

		_, err := f.svc.AssignTransaction(ctx, f.scope, r.Transaction.ID, AssignRequest{Allocations: []AllocationLine{
			{FinanceObjectID: closed.ID, Amount: decimal.NewFromInt(300)},
		}})
		assert.ErrorIs(t, err, shared.ErrFinanceObjectNotAssignable)
	})
}

func TestAllocationService_ReassignToClosedCurrentObject(t *testing.T) {
	ctx := context.Background()
	f := newAllocFixture(t)
	c := f.contract("10")
	r := f.receipt(t, c, "10")
	obj := f.object(t, financeobject.ObjectTypeLoan, nil)

	_, err := f.svc.AssignTransaction(ctx, f.scope, r.Transaction.ID, AssignRequest{FinanceObjectID: &obj.ID})
	require.NoError(t, err)

	obj.Close()
	f.store.AddFinanceObject(obj)
	_, err = f.svc.AssignTransaction(ctx, f.scope, r.Transaction.ID, AssignRequest{FinanceObjectID: &obj.ID})
	assert.NoError(t, err)
}

func TestAllocationService_BulkAssign(t *testing.T) {
	ctx := context.Background()
	f := newAllocFixture(t)
	c := f.contract("1000")
	r1 := f.receipt(t, c, "10")
	r2 := f.receipt(t, c, "20")
	obj := f.object(t, financeobject.ObjectTypeFund, nil)

	resp, err := f.svc.BulkAssignTransactions(ctx, f.scope, BulkAssignRequest{
		TransactionIDs:  []uuid.UUID{r1.Transaction.ID, r2.Transaction.ID, uuid.New()},
		FinanceObjectID: obj.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Updated)

	tx, ok := f.store.Transaction(r2.Transaction.ID)
	require.True(t, ok)
	assert.Equal(t, &obj.ID, tx.FinanceObjectID)
	assert.Nil(t, tx.ContractID)
	assert.Equal(t, contract.PaymentNotPaid, f.store.Contract(c).PaymentStatus)

	_, err = f.svc.BulkAssignTransactions(ctx, f.scope, BulkAssignRequest{TransactionIDs: []uuid.UUID{r1.Transaction.ID}})
	assert.ErrorIs(t, err, shared.ErrAssignmentMode)
}
