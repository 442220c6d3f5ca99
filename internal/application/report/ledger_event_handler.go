package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared"
	"go.uber.org/zap"
)

// DayRebuilder rebuilds the cashflow rows of a date range
type DayRebuilder interface {
	Rebuild(ctx context.Context, scope shared.RequestScope, from, to time.Time, force bool) (*RebuildResult, error)
}

// LedgerEventHandler handles transaction.created and transaction.deleted
// and refreshes the cashflow rows of the affected day
type LedgerEventHandler struct {
	rebuilder DayRebuilder
	logger    *zap.Logger
}

// NewLedgerEventHandler creates a new handler for ledger events
func NewLedgerEventHandler(rebuilder DayRebuilder, logger *zap.Logger) *LedgerEventHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerEventHandler{rebuilder: rebuilder, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *LedgerEventHandler) EventTypes() []string {
	return []string{ledger.EventTransactionCreated, ledger.EventTransactionDeleted}
}

// Handle processes a TransactionEvent
func (h *LedgerEventHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	txEvent, ok := event.(*ledger.TransactionEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", "transaction.*"),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: got %s", event.EventType())
	}
	if txEvent.SourceKind == ledger.SourceTransferOut || txEvent.SourceKind == ledger.SourceTransferIn {
		return nil
	}

	day, err := time.Parse("2006-01-02", txEvent.Date)
	if err != nil {
		return fmt.Errorf("invalid transaction date %q: %w", txEvent.Date, err)
	}

	scope := txEvent.Scope()
	scope.ActorID = shared.SystemActorID
	if _, err := h.rebuilder.Rebuild(ctx, scope, day, day, false); err != nil {
		if errors.Is(err, shared.ErrPeriodClosed) {
			h.logger.Info("cashflow refresh skipped for closed period",
				zap.String("tenant_id", scope.TenantID.String()),
				zap.String("day", txEvent.Date),
			)
			return nil
		}
		return fmt.Errorf("failed to refresh cashflow: %w", err)
	}
	return nil
}

var _ shared.EventHandler = (*LedgerEventHandler)(nil)
