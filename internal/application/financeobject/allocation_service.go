package financeobject

import (
	"context"
	"errors"

	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/domain/financeobject"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AllocationService attributes ledger transactions to finance objects and
// keeps the legacy contract_id column in step with the canonical data.
type AllocationService struct {
	txScope appledger.TransactionScope
	settler appledger.Settler
	epsilon decimal.Decimal
	logger  *zap.Logger
}

// NewAllocationService creates a new AllocationService. A zero epsilon
// falls back to financeobject.DefaultEpsilon.
func NewAllocationService(txScope appledger.TransactionScope, epsilon decimal.Decimal, logger *zap.Logger) *AllocationService {
	if epsilon.IsZero() {
		epsilon = financeobject.DefaultEpsilon
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AllocationService{txScope: txScope, epsilon: epsilon, logger: logger}
}

// SetSettler wires contract settlement for re-pointed receipts
func (s *AllocationService) SetSettler(settler appledger.Settler) {
	s.settler = settler
}

// AssignTransaction applies a direct or split attribution
func (s *AllocationService) AssignTransaction(ctx context.Context, scope shared.RequestScope, transactionID uuid.UUID, req AssignRequest) (*AssignmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "assign_transaction")
	defer span.End()

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	// mode is checked before any read so a bad request has no side effects
	probe := make([]financeobject.SplitLine, len(req.Allocations))
	mode, err := financeobject.ResolveMode(req.FinanceObjectID, probe)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var out *AssignmentResponse
	err = s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		t, err := repos.Transactions().FindByID(ctx, scope, transactionID)
		if err != nil {
			return err
		}
		previousContract := t.ContractID

		switch mode {
		case financeobject.ModeDirect:
			out, err = s.assignDirect(ctx, repos, scope, t, *req.FinanceObjectID)
		default:
			out, err = s.assignSplit(ctx, repos, scope, t, req.Allocations)
		}
		if err != nil {
			return err
		}
		if err := s.mirror(ctx, repos, scope, t, previousContract); err != nil {
			return err
		}
		return repos.Events().Record(ctx, ledger.NewTransactionEvent(ledger.EventTransactionUpdated, scope, t))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return out, nil
}

func (s *AllocationService) assignDirect(ctx context.Context, repos appledger.Repositories, scope shared.RequestScope, t *ledger.Transaction, objectID uuid.UUID) (*AssignmentResponse, error) {
	obj, err := repos.FinanceObjects().FindByID(ctx, scope, objectID)
	if err != nil {
		return nil, err
	}
	alreadyHere := t.FinanceObjectID != nil && *t.FinanceObjectID == obj.ID
	if !alreadyHere && !obj.CanAcceptNewMoney() {
		return nil, shared.ErrFinanceObjectNotAssignable
	}
	if err := repos.Allocations().DeleteByTransaction(ctx, t.ID); err != nil {
		return nil, err
	}
	id := obj.ID
	t.PointTo(&id, obj.LegacyContractID())
	if err := repos.Transactions().Save(ctx, t); err != nil {
		return nil, err
	}
	return &AssignmentResponse{TransactionID: t.ID, FinanceObjectID: t.FinanceObjectID, ContractID: t.ContractID}, nil
}

func (s *AllocationService) assignSplit(ctx context.Context, repos appledger.Repositories, scope shared.RequestScope, t *ledger.Transaction, lines []AllocationLine) (*AssignmentResponse, error) {
	split := make([]financeobject.SplitLine, 0, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		amount, err := valueobject.NewMoneyExact(l.Amount, t.Sum.Currency())
		if err != nil {
			return nil, err
		}
		split = append(split, financeobject.SplitLine{FinanceObjectID: l.FinanceObjectID, Amount: amount, Comment: l.Comment})
		ids = append(ids, l.FinanceObjectID)
	}
	if err := financeobject.ValidateSplit(t.Sum, split, s.epsilon); err != nil {
		return nil, err
	}

	objects, err := repos.FinanceObjects().FindByIDs(ctx, scope, ids)
	if err != nil {
		return nil, err
	}
	existing, err := repos.Allocations().FindByTransaction(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	current := make(map[uuid.UUID]bool, len(existing)+1)
	for _, a := range existing {
		current[a.FinanceObjectID] = true
	}
	if t.FinanceObjectID != nil {
		current[*t.FinanceObjectID] = true
	}
	for _, id := range ids {
		obj, ok := objects[id]
		if !ok {
			return nil, shared.NewDomainError(shared.CodeNotFound, "finance object not found")
		}
		if !current[id] && !obj.CanAcceptNewMoney() {
			return nil, shared.ErrFinanceObjectNotAssignable
		}
	}

	rows := financeobject.NewAllocations(scope, t.ID, split)
	if err := repos.Allocations().ReplaceForTransaction(ctx, t.ID, rows); err != nil {
		return nil, err
	}
	t.PointTo(nil, financeobject.SplitLegacyContractID(split, objects))
	if err := repos.Transactions().Save(ctx, t); err != nil {
		return nil, err
	}

	resp := &AssignmentResponse{TransactionID: t.ID, ContractID: t.ContractID}
	for _, r := range rows {
		resp.Allocations = append(resp.Allocations, AllocationResult{FinanceObjectID: r.FinanceObjectID, Amount: r.Amount.Amount(), Comment: r.Comment})
	}
	return resp, nil
}

// BulkAssignTransactions points every visible transaction in ids at one
// finance object. Ids outside the caller's scope are skipped silently.
func (s *AllocationService) BulkAssignTransactions(ctx context.Context, scope shared.RequestScope, req BulkAssignRequest) (*BulkAssignResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "allocation", "bulk_assign_transactions")
	defer span.End()

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	if req.FinanceObjectID == uuid.Nil {
		return nil, shared.ErrAssignmentMode
	}

	updated := 0
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		obj, err := repos.FinanceObjects().FindByID(ctx, scope, req.FinanceObjectID)
		if err != nil {
			return err
		}
		if !obj.CanAcceptNewMoney() {
			return shared.ErrFinanceObjectNotAssignable
		}
		txs, err := repos.Transactions().FindByIDs(ctx, scope, req.TransactionIDs)
		if err != nil {
			return err
		}
		for _, t := range txs {
			previousContract := t.ContractID
			if err := repos.Allocations().DeleteByTransaction(ctx, t.ID); err != nil {
				return err
			}
			id := obj.ID
			t.PointTo(&id, obj.LegacyContractID())
			if err := repos.Transactions().Save(ctx, t); err != nil {
				return err
			}
			if err := s.mirror(ctx, repos, scope, t, previousContract); err != nil {
				return err
			}
			if err := repos.Events().Record(ctx, ledger.NewTransactionEvent(ledger.EventTransactionUpdated, scope, t)); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.logger.Info("bulk assignment applied",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.String("finance_object_id", req.FinanceObjectID.String()),
		zap.Int("requested", len(req.TransactionIDs)),
		zap.Int("updated", updated))
	telemetry.SetOK(span)
	return &BulkAssignResponse{Updated: updated}, nil
}

// mirror copies the attribution onto the owning receipt or spending and
// re-settles every contract whose receipts moved.
func (s *AllocationService) mirror(ctx context.Context, repos appledger.Repositories, scope shared.RequestScope, t *ledger.Transaction, previousContract *uuid.UUID) error {
	receipt, err := repos.Receipts().FindByTransactionID(ctx, t.ID)
	switch {
	case err == nil:
		receipt.PointTo(t.FinanceObjectID, t.ContractID)
		if err := repos.Receipts().Save(ctx, receipt); err != nil {
			return err
		}
		return s.resettle(ctx, repos, scope, previousContract, t.ContractID)
	case !errors.Is(err, shared.ErrNotFound):
		return err
	}

	spending, err := repos.Spendings().FindByTransactionID(ctx, t.ID)
	switch {
	case err == nil:
		spending.PointTo(t.FinanceObjectID, t.ContractID)
		return repos.Spendings().Save(ctx, spending)
	case errors.Is(err, shared.ErrNotFound):
		return nil
	default:
		return err
	}
}

func (s *AllocationService) resettle(ctx context.Context, repos appledger.Repositories, scope shared.RequestScope, before, after *uuid.UUID) error {
	if s.settler == nil {
		return nil
	}
	seen := make(map[uuid.UUID]bool, 2)
	for _, id := range []*uuid.UUID{before, after} {
		if id == nil || seen[*id] {
			continue
		}
		seen[*id] = true
		if err := s.settler.RecalcWith(ctx, repos, scope, *id); err != nil {
			// a contract outside the caller's scope is not ours to settle
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return err
		}
	}
	return nil
}
