package report

import (
	"context"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
)

// CashflowRepository reads ledger rows and stores the cashflow aggregates
type CashflowRepository interface {
	// SourceRows returns completed, paid transactions in [from, to] that are
	// not transfer legs.
	SourceRows(ctx context.Context, scope shared.RequestScope, from, to time.Time, currency valueobject.Currency) ([]SourceRow, error)
	ClearDaily(ctx context.Context, scope shared.RequestScope, from, to time.Time) error
	UpsertDaily(ctx context.Context, rows []DailyRow) error
	DailyBetween(ctx context.Context, scope shared.RequestScope, from, to time.Time, currency valueobject.Currency) ([]DailyRow, error)
	ClearMonthly(ctx context.Context, scope shared.RequestScope, months []Month) error
	UpsertMonthly(ctx context.Context, rows []MonthlyRow) error
	Monthly(ctx context.Context, scope shared.RequestScope, year int, currency valueobject.Currency) ([]MonthlyRow, error)
	AllMonthly(ctx context.Context, scope shared.RequestScope, currency valueobject.Currency) ([]MonthlyRow, error)
	ReplaceSummary(ctx context.Context, scope shared.RequestScope, rows []SummaryRow) error
}

// PeriodRepository stores reporting periods
type PeriodRepository interface {
	Find(ctx context.Context, scope shared.RequestScope, year, month int) (*ReportingPeriod, error)
	FindMonths(ctx context.Context, scope shared.RequestScope, months []Month) ([]ReportingPeriod, error)
	Save(ctx context.Context, p *ReportingPeriod) error
}
