package contract

import (
	"context"
	"testing"

	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/application/ledger/ledgertest"
	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSettlement(t *testing.T) (*SettlementService, *ledgertest.Store, shared.RequestScope) {
	t.Helper()
	store := ledgertest.NewStore()
	return NewSettlementService(store, zap.NewNop()), store, shared.NewRequestScope(uuid.New(), uuid.Nil, uuid.New())
}

// driftedContract stores a contract whose cached payment fields disagree
// with its receipts
func driftedContract(t *testing.T, store *ledgertest.Store, scope shared.RequestScope, total, received string) uuid.UUID {
	t.Helper()
	c := contract.NewContract(scope, "C-7", valueobject.MustMoney(total), nil)
	store.AddContract(c)
	if received == "" {
		return c.ID
	}
	box, err := ledger.NewCashBox(scope, "Bank", valueobject.RUB)
	require.NoError(t, err)
	r, err := ledger.NewReceipt(scope, ledger.ReceiptKindContract, box.ID, valueobject.MustMoney(received), box.CreatedAt)
	require.NoError(t, err)
	id := c.ID
	r.ContractID = &id
	require.NoError(t, store.Execute(context.Background(), func(repos appledger.Repositories) error {
		return repos.Receipts().Save(context.Background(), r)
	}))
	return c.ID
}

func TestSettlementService_Recalc(t *testing.T) {
	tests := []struct {
		name     string
		total    string
		received string
		want     contract.PaymentStatus
		changed  bool
	}{
		{"no receipts", "1000", "", contract.PaymentNotPaid, false},
		{"partial", "1000", "400", contract.PaymentPartiallyPaid, true},
		{"exact", "1000", "1000.00", contract.PaymentFullyPaid, true},
		{"over", "1000", "1000.01", contract.PaymentOverpaid, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, scope := newSettlement(t)
			id := driftedContract(t, store, scope, tt.total, tt.received)

			resp, err := svc.Recalc(context.Background(), scope, id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.PaymentStatus)
			assert.Equal(t, tt.changed, resp.Changed)
			assert.Equal(t, tt.want, store.Contract(id).PaymentStatus)
			assert.Contains(t, store.Events(), contract.EventContractRecalculated)
		})
	}
}

func TestSettlementService_RecalcIsIdempotent(t *testing.T) {
	svc, store, scope := newSettlement(t)
	id := driftedContract(t, store, scope, "500", "200")

	first, err := svc.Recalc(context.Background(), scope, id)
	require.NoError(t, err)
	assert.True(t, first.Changed)

	second, err := svc.Recalc(context.Background(), scope, id)
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.True(t, first.PaidAmount.Equals(second.PaidAmount))
}

func TestSettlementService_RecalcForeignContract(t *testing.T) {
	svc, store, scope := newSettlement(t)
	id := driftedContract(t, store, shared.NewRequestScope(uuid.New(), uuid.Nil, uuid.New()), "500", "")

	_, err := svc.Recalc(context.Background(), scope, id)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestSettlementService_RecalcAll(t *testing.T) {
	svc, store, scope := newSettlement(t)
	driftedContract(t, store, scope, "100", "100")
	driftedContract(t, store, scope, "100", "")
	driftedContract(t, store, shared.NewRequestScope(uuid.New(), uuid.Nil, uuid.New()), "100", "50")

	result, err := svc.RecalcAll(context.Background(), scope)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Processed)
	assert.Equal(t, 1, result.Changed)
	assert.Empty(t, result.Failed)
}

func TestSettlementService_ChangeStatus(t *testing.T) {
	ctx := context.Background()
	svc, store, scope := newSettlement(t)
	id := driftedContract(t, store, scope, "100", "")
	done := contract.Status{ID: uuid.New(), Code: "completed", Name: "Completed"}
	store.AddStatus(done)

	require.NoError(t, svc.ChangeStatus(ctx, scope, id, ChangeStatusRequest{StatusID: done.ID}))
	events := store.RecordedEvents()
	require.Len(t, events, 1)
	changed, ok := events[0].(*contract.StatusChangedEvent)
	require.True(t, ok)
	assert.Equal(t, done.ID, changed.NewStatusID)
	assert.Nil(t, changed.PreviousStatusID)

	// same status again is a no-op
	require.NoError(t, svc.ChangeStatus(ctx, scope, id, ChangeStatusRequest{StatusID: done.ID}))
	assert.Len(t, store.RecordedEvents(), 1)

	err := svc.ChangeStatus(ctx, scope, id, ChangeStatusRequest{StatusID: uuid.New()})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
