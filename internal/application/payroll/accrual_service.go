package payroll

import (
	"context"
	"errors"
	"time"

	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/domain/contract"
	"github.com/erp/backoffice/internal/domain/payroll"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AccrualService derives manager commissions from contract state
type AccrualService struct {
	txScope appledger.TransactionScope
	logger  *zap.Logger
}

// NewAccrualService creates a new AccrualService
func NewAccrualService(txScope appledger.TransactionScope, logger *zap.Logger) *AccrualService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccrualService{txScope: txScope, logger: logger}
}

// HandleStatusChange reacts to a workflow transition of a contract:
// cancelled-class cancels every system accrual, completed-class accrues
// fixed and margin commissions, leaving completed cancels margin accruals.
func (s *AccrualService) HandleStatusChange(ctx context.Context, scope shared.RequestScope, contractID uuid.UUID, previousStatusID *uuid.UUID, newStatusID uuid.UUID) (*AccrualRunResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payroll", "handle_status_change")
	defer span.End()

	result := &AccrualRunResult{}
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		next, err := repos.ContractStatuses().FindByID(ctx, newStatusID)
		if err != nil {
			return err
		}
		var prev *contract.Status
		if previousStatusID != nil {
			if prev, err = repos.ContractStatuses().FindByID(ctx, *previousStatusID); err != nil && !errors.Is(err, shared.ErrNotFound) {
				return err
			}
		}
		c, err := repos.Contracts().FindByID(ctx, scope, contractID)
		if err != nil {
			return err
		}

		reason := ""
		switch {
		case next.IsCancelled():
			reason = "cancelled"
			n, err := s.cancelSystem(ctx, repos, c.ID, payroll.TypeFixed, payroll.TypeMarginPercent)
			if err != nil {
				return err
			}
			result.Cancelled += n
		case next.IsCompleted():
			reason = "completed"
			n, err := s.accrueFixed(ctx, repos, scope, c)
			if err != nil {
				return err
			}
			result.Upserted += n
			run, err := s.accrueMargin(ctx, repos, scope, c)
			if err != nil {
				return err
			}
			result.Upserted += run.Upserted
			result.Cancelled += run.Cancelled
		case prev.IsCompleted():
			reason = "regressed"
			n, err := s.cancelSystem(ctx, repos, c.ID, payroll.TypeMarginPercent)
			if err != nil {
				return err
			}
			result.Cancelled += n
		default:
			return nil
		}

		s.logger.Info("payroll reacted to contract status change",
			zap.String("tenant_id", scope.TenantID.String()),
			zap.String("contract_id", c.ID.String()),
			zap.String("reason", reason),
			zap.Int("upserted", result.Upserted),
			zap.Int("cancelled", result.Cancelled))
		return repos.Events().Record(ctx, payroll.NewAccrualsChangedEvent(scope, c.ID, reason, result.Upserted, result.Cancelled))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	return result, nil
}

// AccrueFixedForContract upserts fixed commissions for every document
func (s *AccrualService) AccrueFixedForContract(ctx context.Context, scope shared.RequestScope, contractID uuid.UUID) (*AccrualRunResult, error) {
	result := &AccrualRunResult{}
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		c, err := repos.Contracts().FindByID(ctx, scope, contractID)
		if err != nil {
			return err
		}
		n, err := s.accrueFixed(ctx, repos, scope, c)
		result.Upserted = n
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AccrueMarginForContract upserts margin commissions for every document
func (s *AccrualService) AccrueMarginForContract(ctx context.Context, scope shared.RequestScope, contractID uuid.UUID) (*AccrualRunResult, error) {
	var result *AccrualRunResult
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		c, err := repos.Contracts().FindByID(ctx, scope, contractID)
		if err != nil {
			return err
		}
		result, err = s.accrueMargin(ctx, repos, scope, c)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *AccrualService) rulesFor(ctx context.Context, repos appledger.Repositories, c *contract.Contract) ([]payroll.Rule, error) {
	if c.ManagerID == nil {
		return nil, nil
	}
	return repos.PayrollRules().ListForUser(ctx, c.TenantID, *c.ManagerID)
}

func (s *AccrualService) accrueFixed(ctx context.Context, repos appledger.Repositories, scope shared.RequestScope, c *contract.Contract) (int, error) {
	if c.ManagerID == nil {
		return 0, nil
	}
	rules, err := s.rulesFor(ctx, repos, c)
	if err != nil {
		return 0, err
	}
	docs, err := repos.ContractDocuments().ListDocuments(ctx, c.ID)
	if err != nil {
		return 0, err
	}
	upserted := 0
	for _, d := range docs {
		rule := payroll.ResolveRule(rules, *c.ManagerID, d.DocumentType, c.CompanyID)
		if rule == nil || !rule.FixedAmount.IsPositive() {
			continue
		}
		key := payroll.Key{ContractID: c.ID, DocumentID: d.ID, UserID: *c.ManagerID, Type: payroll.TypeFixed}
		if err := s.upsert(ctx, repos, scope, key, rule.FixedAmount, nil, rule.FixedAmount); err != nil {
			return upserted, err
		}
		upserted++
	}
	return upserted, nil
}

func (s *AccrualService) accrueMargin(ctx context.Context, repos appledger.Repositories, scope shared.RequestScope, c *contract.Contract) (*AccrualRunResult, error) {
	result := &AccrualRunResult{}
	if c.ManagerID == nil {
		return result, nil
	}
	rules, err := s.rulesFor(ctx, repos, c)
	if err != nil {
		return nil, err
	}
	margin, err := s.contractMargin(ctx, repos, c)
	if err != nil {
		return nil, err
	}
	docs, err := repos.ContractDocuments().ListDocuments(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	templateIDs := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		if d.TemplateID != nil {
			templateIDs = append(templateIDs, *d.TemplateID)
		}
	}
	templates, err := repos.ContractDocuments().FindTemplates(ctx, templateIDs)
	if err != nil {
		return nil, err
	}
	items, err := repos.ContractDocuments().ListItems(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	for _, share := range payroll.DistributeMargin(margin, docs, templates, items) {
		rule := payroll.ResolveRule(rules, *c.ManagerID, share.Document.DocumentType, c.CompanyID)
		if rule == nil || !rule.MarginPercent.IsPositive() {
			continue
		}
		key := payroll.Key{ContractID: c.ID, DocumentID: share.Document.ID, UserID: *c.ManagerID, Type: payroll.TypeMarginPercent}
		amount := share.Base.Percent(rule.MarginPercent)
		if !amount.IsPositive() {
			// no commission on a non-positive margin; drop a stale one
			existing, err := repos.Accruals().FindActiveSystem(ctx, key)
			if err != nil {
				return nil, err
			}
			if existing != nil && existing.IsSystemActive() {
				existing.Cancel(time.Now())
				if err := repos.Accruals().Save(ctx, existing); err != nil {
					return nil, err
				}
				result.Cancelled++
			}
			continue
		}
		percent := rule.MarginPercent
		if err := s.upsert(ctx, repos, scope, key, share.Base, &percent, amount); err != nil {
			return nil, err
		}
		result.Upserted++
	}
	return result, nil
}

// contractMargin is receipts minus expenses. Payroll payouts are not
// expenses of the contract.
func (s *AccrualService) contractMargin(ctx context.Context, repos appledger.Repositories, c *contract.Contract) (valueobject.Money, error) {
	received, err := repos.Receipts().SumByContract(ctx, c.ID, c.Currency())
	if err != nil {
		return valueobject.Money{}, err
	}
	spent, err := repos.FinanceAllocations().SumExpensesForContract(ctx, c.ID, c.Currency())
	if err != nil {
		return valueobject.Money{}, err
	}
	return received.Subtract(spent)
}

func (s *AccrualService) upsert(ctx context.Context, repos appledger.Repositories, scope shared.RequestScope, key payroll.Key, base valueobject.Money, percent *decimal.Decimal, amount valueobject.Money) error {
	existing, err := repos.Accruals().FindActiveSystem(ctx, key)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Recompute(base, percent, amount)
		return repos.Accruals().Save(ctx, existing)
	}
	return repos.Accruals().Save(ctx, payroll.NewSystemAccrual(scope, key, base, percent, amount))
}

func (s *AccrualService) cancelSystem(ctx context.Context, repos appledger.Repositories, contractID uuid.UUID, types ...payroll.AccrualType) (int, error) {
	accruals, err := repos.Accruals().ListByContract(ctx, contractID)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	cancelled := 0
	for _, a := range accruals {
		if !a.IsSystemActive() || !hasType(types, a.Type) {
			continue
		}
		a.Cancel(now)
		if err := repos.Accruals().Save(ctx, a); err != nil {
			return cancelled, err
		}
		cancelled++
	}
	return cancelled, nil
}

func hasType(types []payroll.AccrualType, t payroll.AccrualType) bool {
	for _, x := range types {
		if x == t {
			return true
		}
	}
	return false
}

// CreateManualAccrual records a bonus or penalty for the contract's manager,
// or for the acting user when the contract has none.
func (s *AccrualService) CreateManualAccrual(ctx context.Context, scope shared.RequestScope, req ManualAccrualRequest) (*AccrualResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out *AccrualResponse
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		c, err := repos.Contracts().FindByID(ctx, scope, req.ContractID)
		if err != nil {
			return err
		}
		userID := scope.ActorID
		if c.ManagerID != nil {
			userID = *c.ManagerID
		}
		amount, err := valueobject.NewMoneyExact(req.Amount, c.Currency())
		if err != nil {
			return err
		}
		a, err := payroll.NewManualAccrual(scope, c.ID, userID, req.Type, amount, req.Comment)
		if err != nil {
			return err
		}
		if err := repos.Accruals().Save(ctx, a); err != nil {
			return err
		}
		resp := ToAccrualResponse(a)
		out = &resp
		return repos.Events().Record(ctx, payroll.NewAccrualsChangedEvent(scope, c.ID, "manual", 1, 0))
	})
	return out, err
}

// CancelAccrual cancels a manual accrual. System accruals follow the
// contract workflow and cannot be cancelled by hand.
func (s *AccrualService) CancelAccrual(ctx context.Context, scope shared.RequestScope, id uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		a, err := repos.Accruals().FindByID(ctx, scope, id)
		if err != nil {
			return err
		}
		if a.Source != payroll.SourceManual {
			return shared.NewDomainError(shared.CodeInvalidState, "system accruals cannot be cancelled manually")
		}
		if a.PaidAmount.IsPositive() {
			return shared.NewDomainError(shared.CodeInvalidState, "accrual has payouts; delete them first")
		}
		a.Cancel(time.Now())
		return repos.Accruals().Save(ctx, a)
	})
}

// ListAccruals lists accruals, syncing paid/active status on read
func (s *AccrualService) ListAccruals(ctx context.Context, scope shared.RequestScope, f AccrualListFilter) ([]AccrualResponse, int64, error) {
	filter := payroll.AccrualFilter{
		Filter:     shared.Filter{Page: f.Page, PageSize: f.PageSize, OrderBy: f.OrderBy, OrderDir: f.OrderDir},
		UserID:     f.UserID,
		ContractID: f.ContractID,
		Status:     f.Status,
	}
	var (
		out   []AccrualResponse
		total int64
	)
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		accruals, n, err := repos.Accruals().List(ctx, scope, filter)
		if err != nil {
			return err
		}
		total = n
		out = make([]AccrualResponse, 0, len(accruals))
		for _, a := range accruals {
			if a.SyncStatus() {
				if err := repos.Accruals().Save(ctx, a); err != nil {
					return err
				}
			}
			out = append(out, ToAccrualResponse(a))
		}
		return nil
	})
	return out, total, err
}

// UpsertRule creates or replaces the rule for (user, document type) in the
// caller's company.
func (s *AccrualService) UpsertRule(ctx context.Context, scope shared.RequestScope, req UpsertRuleRequest) (*RuleResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out *RuleResponse
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		fixed, err := valueobject.NewMoneyExact(req.FixedAmount, valueobject.DefaultCurrency)
		if err != nil {
			return err
		}
		active := req.IsActive == nil || *req.IsActive
		rule, err := repos.PayrollRules().FindByKey(ctx, scope, req.UserID, req.DocumentType)
		switch {
		case err == nil:
			if err := rule.Update(req.DocumentType, fixed, req.MarginPercent, active); err != nil {
				return err
			}
		case errors.Is(err, shared.ErrNotFound):
			if rule, err = payroll.NewRule(scope, req.UserID, req.DocumentType, fixed, req.MarginPercent); err != nil {
				return err
			}
			rule.IsActive = active
		default:
			return err
		}
		if err := repos.PayrollRules().Save(ctx, rule); err != nil {
			return err
		}
		resp := toRuleResponse(rule)
		out = &resp
		return nil
	})
	return out, err
}

// ListRules lists the rules visible to scope
func (s *AccrualService) ListRules(ctx context.Context, scope shared.RequestScope) ([]RuleResponse, error) {
	var out []RuleResponse
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		rules, err := repos.PayrollRules().List(ctx, scope)
		if err != nil {
			return err
		}
		out = make([]RuleResponse, 0, len(rules))
		for i := range rules {
			out = append(out, toRuleResponse(&rules[i]))
		}
		return nil
	})
	return out, err
}

func toRuleResponse(r *payroll.Rule) RuleResponse {
	return RuleResponse{
		ID:            r.ID,
		CompanyID:     r.CompanyID,
		UserID:        r.UserID,
		DocumentType:  r.DocumentType,
		FixedAmount:   r.FixedAmount,
		MarginPercent: r.MarginPercent,
		IsActive:      r.IsActive,
	}
}
