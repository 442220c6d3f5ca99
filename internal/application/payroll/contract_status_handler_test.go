package payroll

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockReactor struct {
	mock.Mock
}

func (m *mockReactor) HandleStatusChange(ctx context.Context, scope shared.RequestScope, contractID uuid.UUID, previousStatusID *uuid.UUID, newStatusID uuid.UUID) (*AccrualRunResult, error) {
	args := m.Called(ctx, scope, contractID, previousStatusID, newStatusID)
	if r := args.Get(0); r != nil {
		return r.(*AccrualRunResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func statusEvent(scope shared.RequestScope, previous *uuid.UUID, next uuid.UUID) *contract.StatusChangedEvent {
	c := contract.NewContract(scope, "C-1", valueobject.MustMoney("10"), nil)
	c.StatusID = &next
	return contract.NewStatusChangedEvent(scope, c, previous)
}

func TestContractStatusChangedHandler_EventTypes(t *testing.T) {
	h := NewContractStatusChangedHandler(&mockReactor{}, zap.NewNop())
	assert.Equal(t, []string{contract.EventContractStatusChanged}, h.EventTypes())
}

func TestContractStatusChangedHandler_Handle(t *testing.T) {
	ctx := context.Background()
	scope := shared.NewRequestScope(uuid.New(), uuid.New(), uuid.New())

	t.Run("forwards the transition under the event scope", func(t *testing.T) {
		reactor := &mockReactor{}
		prev, next := uuid.New(), uuid.New()
		event := statusEvent(scope, &prev, next)
		reactor.On("HandleStatusChange", ctx, scope, event.ContractID, &prev, next).
			Return(&AccrualRunResult{Upserted: 2}, nil).Once()

		err := NewContractStatusChangedHandler(reactor, zap.NewNop()).Handle(ctx, event)
		require.NoError(t, err)
		reactor.AssertExpectations(t)
	})

	t.Run("wraps reactor errors", func(t *testing.T) {
		reactor := &mockReactor{}
		boom := errors.New("boom")
		event := statusEvent(scope, nil, uuid.New())
		reactor.On("HandleStatusChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, boom)

		err := NewContractStatusChangedHandler(reactor, zap.NewNop()).Handle(ctx, event)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("skips events without a new status", func(t *testing.T) {
		reactor := &mockReactor{}
		event := statusEvent(scope, nil, uuid.Nil)

		err := NewContractStatusChangedHandler(reactor, zap.NewNop()).Handle(ctx, event)
		require.NoError(t, err)
		reactor.AssertNotCalled(t, "HandleStatusChange", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects other events", func(t *testing.T) {
		reactor := &mockReactor{}
		c := contract.NewContract(scope, "C-1", valueobject.MustMoney("10"), nil)
		other := contract.NewRecalculatedEvent(scope, c, contract.PaymentNotPaid)

		err := NewContractStatusChangedHandler(reactor, zap.NewNop()).Handle(ctx, other)
		assert.Error(t, err)
	})
}
