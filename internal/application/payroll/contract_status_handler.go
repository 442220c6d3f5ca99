package payroll

import (
	"context"
	"fmt"

	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusChangeReactor applies the accrual consequences of a status change
type StatusChangeReactor interface {
	HandleStatusChange(ctx context.Context, scope shared.RequestScope, contractID uuid.UUID, previousStatusID *uuid.UUID, newStatusID uuid.UUID) (*AccrualRunResult, error)
}

// ContractStatusChangedHandler handles StatusChangedEvent
// and drives payroll accruals off the contract workflow
type ContractStatusChangedHandler struct {
	reactor StatusChangeReactor
	logger  *zap.Logger
}

// NewContractStatusChangedHandler creates a new handler for contract status events
func NewContractStatusChangedHandler(reactor StatusChangeReactor, logger *zap.Logger) *ContractStatusChangedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContractStatusChangedHandler{
		reactor: reactor,
		logger:  logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *ContractStatusChangedHandler) EventTypes() []string {
	return []string{contract.EventContractStatusChanged}
}

// Handle processes a StatusChangedEvent
func (h *ContractStatusChangedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	changed, ok := event.(*contract.StatusChangedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", contract.EventContractStatusChanged),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			contract.EventContractStatusChanged, event.EventType())
	}
	if changed.NewStatusID == uuid.Nil {
		h.logger.Warn("contract status event without a new status, skipping",
			zap.String("contract_id", changed.ContractID.String()))
		return nil
	}

	h.logger.Info("processing contract status change for payroll",
		zap.String("contract_id", changed.ContractID.String()),
		zap.String("new_status_id", changed.NewStatusID.String()),
	)

	result, err := h.reactor.HandleStatusChange(ctx, changed.Scope(), changed.ContractID, changed.PreviousStatusID, changed.NewStatusID)
	if err != nil {
		h.logger.Error("failed to apply payroll accruals",
			zap.String("contract_id", changed.ContractID.String()),
			zap.Error(err),
		)
		return fmt.Errorf("failed to apply payroll accruals: %w", err)
	}

	h.logger.Info("payroll accruals applied",
		zap.String("contract_id", changed.ContractID.String()),
		zap.Int("upserted", result.Upserted),
		zap.Int("cancelled", result.Cancelled),
	)
	return nil
}

var _ shared.EventHandler = (*ContractStatusChangedHandler)(nil)
