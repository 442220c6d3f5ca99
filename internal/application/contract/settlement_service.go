package contract

import (
	"context"
	"time"

	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SettlementResponse is a contract's payment state after a recalc
type SettlementResponse struct {
	ContractID    uuid.UUID              `json:"contract_id"`
	TotalAmount   valueobject.Money      `json:"total_amount"`
	PaidAmount    valueobject.Money      `json:"paid_amount"`
	PaymentStatus contract.PaymentStatus `json:"payment_status"`
	Changed       bool                   `json:"changed"`
}

// RecalcAllResult summarises a batch repair run
type RecalcAllResult struct {
	Processed int         `json:"processed"`
	Changed   int         `json:"changed"`
	Failed    []uuid.UUID `json:"failed,omitempty"`
}

// ChangeStatusRequest moves a contract along its workflow
type ChangeStatusRequest struct {
	StatusID uuid.UUID `json:"status_id" binding:"required"`
}

// SettlementService keeps contract payment fields derived from receipts
type SettlementService struct {
	txScope appledger.TransactionScope
	logger  *zap.Logger
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(txScope appledger.TransactionScope, logger *zap.Logger) *SettlementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettlementService{txScope: txScope, logger: logger}
}

var _ appledger.Settler = (*SettlementService)(nil)

// RecalcWith re-derives paid amount and payment status inside the caller's
// transaction. The contract row is locked so concurrent receipts settle in
// order.
func (s *SettlementService) RecalcWith(ctx context.Context, repos appledger.Repositories, scope shared.RequestScope, contractID uuid.UUID) error {
	_, err := s.recalc(ctx, repos, scope, contractID)
	return err
}

func (s *SettlementService) recalc(ctx context.Context, repos appledger.Repositories, scope shared.RequestScope, contractID uuid.UUID) (*SettlementResponse, error) {
	c, err := repos.Contracts().FindForUpdate(ctx, scope, contractID)
	if err != nil {
		return nil, err
	}
	paid, err := repos.Receipts().SumByContract(ctx, c.ID, c.Currency())
	if err != nil {
		return nil, err
	}
	previous := c.PaymentStatus
	changed, err := c.ApplyPaid(paid)
	if err != nil {
		return nil, err
	}
	if err := repos.Contracts().Save(ctx, c); err != nil {
		return nil, err
	}
	if err := repos.Events().Record(ctx, contract.NewRecalculatedEvent(scope, c, previous)); err != nil {
		return nil, err
	}
	if changed {
		s.logger.Debug("contract settled",
			zap.String("contract_id", c.ID.String()),
			zap.String("paid_amount", c.PaidAmount.String()),
			zap.String("previous_status", string(previous)),
			zap.String("payment_status", string(c.PaymentStatus)))
	}
	return &SettlementResponse{
		ContractID:    c.ID,
		TotalAmount:   c.TotalAmount,
		PaidAmount:    c.PaidAmount,
		PaymentStatus: c.PaymentStatus,
		Changed:       changed,
	}, nil
}

// Recalc settles one contract in its own transaction
func (s *SettlementService) Recalc(ctx context.Context, scope shared.RequestScope, contractID uuid.UUID) (*SettlementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "recalc")
	defer span.End()
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var out *SettlementResponse
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		resp, err := s.recalc(ctx, repos, scope, contractID)
		out = resp
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return out, nil
}

// RecalcAll settles every active contract visible to scope. Each contract
// runs in its own transaction; failures are logged and skipped.
func (s *SettlementService) RecalcAll(ctx context.Context, scope shared.RequestScope) (*RecalcAllResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "recalc_all")
	defer span.End()
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		var err error
		ids, err = repos.Contracts().ListActiveIDs(ctx, scope)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	started := time.Now()
	result := &RecalcAllResult{}
	for _, id := range ids {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		resp, err := s.Recalc(ctx, scope, id)
		if err != nil {
			s.logger.Error("contract recalc failed",
				zap.String("tenant_id", scope.TenantID.String()),
				zap.String("contract_id", id.String()),
				zap.Error(err))
			result.Failed = append(result.Failed, id)
			continue
		}
		result.Processed++
		if resp.Changed {
			result.Changed++
		}
	}
	s.logger.Info("contract recalc batch finished",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.Int("processed", result.Processed),
		zap.Int("changed", result.Changed),
		zap.Int("failed", len(result.Failed)),
		zap.Duration("duration", time.Since(started)))
	telemetry.SetOK(span)
	return result, nil
}

// ChangeStatus moves the contract to a workflow status and emits
// contract.status_changed for payroll.
func (s *SettlementService) ChangeStatus(ctx context.Context, scope shared.RequestScope, contractID uuid.UUID, req ChangeStatusRequest) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "change_status")
	defer span.End()
	if err := scope.Validate(); err != nil {
		return err
	}

	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		if _, err := repos.ContractStatuses().FindByID(ctx, req.StatusID); err != nil {
			return err
		}
		c, err := repos.Contracts().FindForUpdate(ctx, scope, contractID)
		if err != nil {
			return err
		}
		previous, err := c.ChangeStatus(req.StatusID)
		if err != nil {
			return err
		}
		if previous != nil && *previous == req.StatusID {
			return nil
		}
		if err := repos.Contracts().Save(ctx, c); err != nil {
			return err
		}
		return repos.Events().Record(ctx, contract.NewStatusChangedEvent(scope, c, previous))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetOK(span)
	return nil
}
