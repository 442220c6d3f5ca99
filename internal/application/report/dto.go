package report

import (
	"time"

	"github.com/erp/backoffice/internal/domain/report"
	"github.com/erp/backoffice/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// RebuildRequest rebuilds the cashflow aggregates of [From, To]
type RebuildRequest struct {
	From  time.Time `json:"from" binding:"required"`
	To    time.Time `json:"to" binding:"required"`
	Force bool      `json:"force"`
}

// RebuildResult reports what a rebuild wrote
type RebuildResult struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	SourceRows  int       `json:"source_rows"`
	DailyRows   int       `json:"daily_rows"`
	MonthlyRows int       `json:"monthly_rows"`
	SummaryRows int       `json:"summary_rows"`
}

// MonthlyRowResponse is one cashflow item of one month
type MonthlyRowResponse struct {
	CompanyID      *uuid.UUID        `json:"company_id,omitempty"`
	CashflowItemID *uuid.UUID        `json:"cashflow_item_id,omitempty"`
	Year           int               `json:"year"`
	Month          int               `json:"month"`
	Inflow         valueobject.Money `json:"inflow"`
	Outflow        valueobject.Money `json:"outflow"`
	Net            valueobject.Money `json:"net"`
	Count          int               `json:"count"`
}

// PeriodResponse is a reporting period
type PeriodResponse struct {
	Year     int                 `json:"year"`
	Month    int                 `json:"month"`
	Status   report.PeriodStatus `json:"status"`
	ClosedAt *time.Time          `json:"closed_at,omitempty"`
	ClosedBy *uuid.UUID          `json:"closed_by,omitempty"`
}

func toMonthlyRowResponse(r report.MonthlyRow) MonthlyRowResponse {
	return MonthlyRowResponse{
		CompanyID:      nilIfZero(r.CompanyID),
		CashflowItemID: nilIfZero(r.CashflowItemID),
		Year:           r.Year,
		Month:          r.Month,
		Inflow:         r.Inflow,
		Outflow:        r.Outflow,
		Net:            r.Net(),
		Count:          r.Count,
	}
}

func toPeriodResponse(p *report.ReportingPeriod) PeriodResponse {
	return PeriodResponse{
		Year:     p.Year,
		Month:    p.Month,
		Status:   p.Status,
		ClosedAt: p.ClosedAt,
		ClosedBy: p.ClosedBy,
	}
}

func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
