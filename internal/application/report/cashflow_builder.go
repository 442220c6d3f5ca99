package report

import (
	"context"
	"errors"
	"time"

	appledger "github.com/erp/backoffice/internal/application/ledger"
	"github.com/erp/backoffice/internal/domain/report"
	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/erp/backoffice/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// CashflowBuilder builds and serves the cashflow statement
type CashflowBuilder struct {
	txScope  appledger.TransactionScope
	currency valueobject.Currency
	logger   *zap.Logger
}

// NewCashflowBuilder creates a new CashflowBuilder reporting in currency
func NewCashflowBuilder(txScope appledger.TransactionScope, currency valueobject.Currency, logger *zap.Logger) *CashflowBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}
	return &CashflowBuilder{txScope: txScope, currency: currency, logger: logger}
}

// Rebuild recomputes the daily rows of [from, to], the month rows of every
// month the range touches and the all-time summary. Closed months are left
// alone unless force is set.
func (s *CashflowBuilder) Rebuild(ctx context.Context, scope shared.RequestScope, from, to time.Time, force bool) (*RebuildResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "rebuild_cashflow")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, scope.TenantID.String())

	if err := scope.Validate(); err != nil {
		return nil, err
	}
	from, to = report.Day(from), report.Day(to)
	if to.Before(from) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "report range ends before it starts")
	}
	months := report.MonthsBetween(from, to)

	result := &RebuildResult{From: from, To: to}
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		periods, err := repos.Periods().FindMonths(ctx, scope, months)
		if err != nil {
			return err
		}
		if err := report.EnsureOpen(periods, force); err != nil {
			return err
		}

		cf := repos.Cashflow()
		source, err := cf.SourceRows(ctx, scope, from, endOfDay(to), s.currency)
		if err != nil {
			return err
		}
		result.SourceRows = len(source)

		daily := report.AggregateDaily(scope.TenantID, scope.CompanyID, s.currency, source)
		if err := cf.ClearDaily(ctx, scope, from, to); err != nil {
			return err
		}
		if err := cf.UpsertDaily(ctx, daily); err != nil {
			return err
		}
		result.DailyRows = len(daily)

		// months are rebuilt from the stored daily rows so that a partial
		// range does not drop days outside it
		first, _ := months[0].Bounds()
		_, last := months[len(months)-1].Bounds()
		monthDaily, err := cf.DailyBetween(ctx, scope, first, last, s.currency)
		if err != nil {
			return err
		}
		monthly := report.RollupMonthly(s.currency, monthDaily)
		if err := cf.ClearMonthly(ctx, scope, months); err != nil {
			return err
		}
		if err := cf.UpsertMonthly(ctx, monthly); err != nil {
			return err
		}
		result.MonthlyRows = len(monthly)

		all, err := cf.AllMonthly(ctx, scope, s.currency)
		if err != nil {
			return err
		}
		summary := report.Summarize(s.currency, all)
		if err := cf.ReplaceSummary(ctx, scope, summary); err != nil {
			return err
		}
		result.SummaryRows = len(summary)
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("cashflow rebuilt",
		zap.String("tenant_id", scope.TenantID.String()),
		zap.Time("from", from),
		zap.Time("to", to),
		zap.Int("source_rows", result.SourceRows),
		zap.Int("daily_rows", result.DailyRows),
		zap.Int("monthly_rows", result.MonthlyRows))
	telemetry.SetOK(span)
	return result, nil
}

// Monthly returns the month rows of a year
func (s *CashflowBuilder) Monthly(ctx context.Context, scope shared.RequestScope, year int) ([]MonthlyRowResponse, error) {
	var out []MonthlyRowResponse
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		rows, err := repos.Cashflow().Monthly(ctx, scope, year, s.currency)
		if err != nil {
			return err
		}
		out = make([]MonthlyRowResponse, 0, len(rows))
		for _, r := range rows {
			out = append(out, toMonthlyRowResponse(r))
		}
		return nil
	})
	return out, err
}

// ClosePeriod closes a reporting month
func (s *CashflowBuilder) ClosePeriod(ctx context.Context, scope shared.RequestScope, year, month int) (*PeriodResponse, error) {
	return s.setPeriod(ctx, scope, year, month, func(p *report.ReportingPeriod) { p.Close(scope.ActorID) })
}

// OpenPeriod reopens a reporting month
func (s *CashflowBuilder) OpenPeriod(ctx context.Context, scope shared.RequestScope, year, month int) (*PeriodResponse, error) {
	return s.setPeriod(ctx, scope, year, month, func(p *report.ReportingPeriod) { p.Open() })
}

func (s *CashflowBuilder) setPeriod(ctx context.Context, scope shared.RequestScope, year, month int, apply func(*report.ReportingPeriod)) (*PeriodResponse, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}
	var out *PeriodResponse
	err := s.txScope.Execute(ctx, func(repos appledger.Repositories) error {
		p, err := repos.Periods().Find(ctx, scope, year, month)
		if errors.Is(err, shared.ErrNotFound) {
			p, err = report.NewReportingPeriod(scope, year, month)
		}
		if err != nil {
			return err
		}
		apply(p)
		if err := repos.Periods().Save(ctx, p); err != nil {
			return err
		}
		resp := toPeriodResponse(p)
		out = &resp
		return nil
	})
	return out, err
}

func endOfDay(t time.Time) time.Time {
	return t.Add(24*time.Hour - time.Nanosecond)
}
