package payroll

import (
	"context"
	"fmt"

	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/domain/financeobject"
	"github.com/erp/backoffice/internal/domain/ledger"
	"github.com/erp/backoffice/internal/domain/payroll"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SpendingWriter writes ledger spendings inside an open transaction
type SpendingWriter interface {
	CreateSpendingWith(ctx context.Context, repos appledger.Repositories, scope shared.RequestScope, req appledger.SpendingRequest) (*appledger.SpendingResponse, error)
	DeleteSpendingWith(ctx context.Context, repos appledger.Repositories, scope shared.RequestScope, spendingID uuid.UUID) error
}

// PayoutService pays accruals out of a cash box
type PayoutService struct {
	txScope   appledger.TransactionScope
	spendings SpendingWriter
	logger    *zap.Logger
}

// NewPayoutService creates a new PayoutService
func NewPayoutService(txScope appledger.TransactionScope, spendings SpendingWriter, logger *zap.Logger) *PayoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayoutService{txScope: txScope, spendings: spendings, logger: logger}
}

// CreatePayout pays the given accruals with one payroll spending. The
// accruals, the spending, its allocations and the payout commit together.
func (s *PayoutService) CreatePayout(ctx context.Context, scope shared.RequestScope, req CreatePayoutRequest) (*PayoutResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payroll", "create_payout")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, scope.TenantID.String(),
		telemetry.SpanAttrActorID, scope.ActorID.String(),
	)

	if err := scope.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(req.Items) == 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "payout needs at least one item")
	}

	var out *PayoutResponse
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		ids := make([]uuid.UUID, 0, len(req.Items))
		for _, it := range req.Items {
			ids = append(ids, it.AccrualID)
		}
		accruals, err := repos.Accruals().FindForUpdate(ctx, scope, ids)
		if err != nil {
			return err
		}

		currency := valueobject.DefaultCurrency
		lines := make([]payroll.PayoutLine, 0, len(req.Items))
		for _, it := range req.Items {
			a, ok := accruals[it.AccrualID]
			if !ok {
				return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("accrual %s not found", it.AccrualID))
			}
			if a.UserID != req.UserID {
				return shared.NewDomainError(shared.CodeInvalidInput, "accrual belongs to another user")
			}
			currency = a.Amount.Currency()
			amount, err := valueobject.NewMoneyExact(it.Amount, currency)
			if err != nil {
				return err
			}
			if err := a.ApplyPayment(amount); err != nil {
				return err
			}
			lines = append(lines, payroll.PayoutLine{AccrualID: a.ID, Amount: amount})
		}

		payout, err := payroll.NewPayout(scope, req.UserID, req.CashBoxID, currency, lines, dateOrNow(req.Date), req.Comment)
		if err != nil {
			return err
		}

		spending, err := s.spendings.CreateSpendingWith(ctx, repos, scope, appledger.SpendingRequest{
			CashBoxID:      req.CashBoxID,
			Sum:            payout.Total.Amount(),
			Date:           &payout.Date,
			CashflowItemID: req.CashflowItemID,
			Notes:          req.Comment,
			AllocationKind: string(financeobject.KindPayroll),
			SkipAllocation: true,
			Kind:           ledger.SpendingKindPayroll,
		})
		if err != nil {
			return err
		}
		payout.BindSpending(spending.ID)
		if err := repos.Payouts().Save(ctx, payout); err != nil {
			return err
		}

		allocations := make([]financeobject.FinanceAllocation, 0, len(payout.Items))
		for _, it := range payout.Items {
			a := accruals[it.AccrualID]
			contractID := a.ContractID
			allocations = append(allocations, financeobject.NewPayrollAllocation(scope, spending.ID, payout.ID, a.ID, &contractID, it.Amount))
			if err := repos.Accruals().Save(ctx, a); err != nil {
				return err
			}
		}
		if err := repos.FinanceAllocations().SaveAll(ctx, allocations); err != nil {
			return err
		}

		s.logger.Info("payout created",
			zap.String("tenant_id", scope.TenantID.String()),
			zap.String("payout_id", payout.ID.String()),
			zap.String("user_id", payout.UserID.String()),
			zap.String("total", payout.Total.String()),
			zap.Int("items", len(payout.Items)))

		resp := ToPayoutResponse(payout)
		out = &resp
		return repos.Events().Record(ctx, payroll.NewPayoutEvent(payroll.EventPayoutCreated, scope, payout))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return out, nil
}

// DeletePayout reverts the paid amounts, then removes the payout and its
// spending. The cash box gets the money back.
func (s *PayoutService) DeletePayout(ctx context.Context, scope shared.RequestScope, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "payroll", "delete_payout")
	defer span.End()

	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		payout, err := repos.Payouts().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(payout.Items))
		for _, it := range payout.Items {
			ids = append(ids, it.AccrualID)
		}
		accruals, err := repos.Accruals().FindForUpdate(ctx, scope, ids)
		if err != nil {
			return err
		}
		for _, it := range payout.Items {
			a, ok := accruals[it.AccrualID]
			if !ok {
				// accrual gone; nothing to revert
				continue
			}
			if err := a.RevertPayment(it.Amount); err != nil {
				return err
			}
			if err := repos.Accruals().Save(ctx, a); err != nil {
				return err
			}
		}

		if err := repos.FinanceAllocations().DeleteByPayout(ctx, payout.ID); err != nil {
			return err
		}
		if err := repos.Payouts().Delete(ctx, payout.ID); err != nil {
			return err
		}
		if payout.SpendingID != nil {
			if err := s.spendings.DeleteSpendingWith(ctx, repos, scope, *payout.SpendingID); err != nil {
				return err
			}
		}
		s.logger.Info("payout deleted",
			zap.String("tenant_id", scope.TenantID.String()),
			zap.String("payout_id", payout.ID.String()))
		return repos.Events().Record(ctx, payroll.NewPayoutEvent(payroll.EventPayoutDeleted, scope, payout))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	telemetry.SetOK(span)
	return nil
}

// GetPayout returns one payout with its items
func (s *PayoutService) GetPayout(ctx context.Context, scope shared.RequestScope, id uuid.UUID) (*PayoutResponse, error) {
	var out *PayoutResponse
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		p, err := repos.Payouts().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		resp := ToPayoutResponse(p)
		out = &resp
		return nil
	})
	return out, err
}

// ListPayouts lists payouts, optionally for one user
func (s *PayoutService) ListPayouts(ctx context.Context, scope shared.RequestScope, userID *uuid.UUID, filter shared.Filter) ([]PayoutResponse, int64, error) {
	var (
		out   []PayoutResponse
		total int64
	)
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		payouts, n, err := repos.Payouts().List(ctx, scope, userID, filter)
		if err != nil {
			return err
		}
		total = n
		out = make([]PayoutResponse, 0, len(payouts))
		for _, p := range payouts {
			out = append(out, ToPayoutResponse(p))
		}
		return nil
	})
	return out, total, err
}
