package models

import (
	"time"

	"github.com/erp/backoffice/internal/domain/report"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate rows store "no company" and "unclassified" as the nil UUID so
// the unique keys stay total.

// CashflowDailyModel is one day of one cashflow item
type CashflowDailyModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_cashflow_daily_key,priority:1"`
	CompanyID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_cashflow_daily_key,priority:2"`
	CashflowItemID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_cashflow_daily_key,priority:3"`
	Day            time.Time       `gorm:"type:date;not null;uniqueIndex:ux_cashflow_daily_key,priority:4"`
	Inflow         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Outflow        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	TxCount        int             `gorm:"not null;default:0"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CashflowDailyModel) TableName() string {
	return "cashflow_daily"
}

// ToDomain converts the row to a domain DailyRow
func (m *CashflowDailyModel) ToDomain() report.DailyRow {
	return report.DailyRow{
		Key:    report.Key{TenantID: m.TenantID, CompanyID: m.CompanyID, CashflowItemID: m.CashflowItemID},
		Day:    report.Day(m.Day),
		Totals: totals(m.Inflow, m.Outflow, m.Currency, m.TxCount),
	}
}

// CashflowDailyModelFromDomain creates a row from a domain DailyRow
func CashflowDailyModelFromDomain(r report.DailyRow) CashflowDailyModel {
	return CashflowDailyModel{
		ID:             uuid.New(),
		TenantID:       r.TenantID,
		CompanyID:      r.CompanyID,
		CashflowItemID: r.CashflowItemID,
		Day:            r.Day,
		Inflow:         r.Inflow.Amount(),
		Outflow:        r.Outflow.Amount(),
		Currency:       string(r.Inflow.Currency()),
		TxCount:        r.Count,
		UpdatedAt:      time.Now(),
	}
}

// CashflowMonthlyModel is one month of one cashflow item
type CashflowMonthlyModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_cashflow_monthly_key,priority:1"`
	CompanyID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_cashflow_monthly_key,priority:2"`
	CashflowItemID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_cashflow_monthly_key,priority:3"`
	Year           int             `gorm:"not null;uniqueIndex:ux_cashflow_monthly_key,priority:4"`
	Month          int             `gorm:"not null;uniqueIndex:ux_cashflow_monthly_key,priority:5"`
	Inflow         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Outflow        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	TxCount        int             `gorm:"not null;default:0"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CashflowMonthlyModel) TableName() string {
	return "cashflow_monthly"
}

// ToDomain converts the row to a domain MonthlyRow
func (m *CashflowMonthlyModel) ToDomain() report.MonthlyRow {
	return report.MonthlyRow{
		Key:    report.Key{TenantID: m.TenantID, CompanyID: m.CompanyID, CashflowItemID: m.CashflowItemID},
		Year:   m.Year,
		Month:  m.Month,
		Totals: totals(m.Inflow, m.Outflow, m.Currency, m.TxCount),
	}
}

// CashflowMonthlyModelFromDomain creates a row from a domain MonthlyRow
func CashflowMonthlyModelFromDomain(r report.MonthlyRow) CashflowMonthlyModel {
	return CashflowMonthlyModel{
		ID:             uuid.New(),
		TenantID:       r.TenantID,
		CompanyID:      r.CompanyID,
		CashflowItemID: r.CashflowItemID,
		Year:           r.Year,
		Month:          r.Month,
		Inflow:         r.Inflow.Amount(),
		Outflow:        r.Outflow.Amount(),
		Currency:       string(r.Inflow.Currency()),
		TxCount:        r.Count,
		UpdatedAt:      time.Now(),
	}
}

// CashflowSummaryModel holds the all-time totals of one cashflow item
type CashflowSummaryModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_cashflow_summary_key,priority:1"`
	CompanyID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_cashflow_summary_key,priority:2"`
	CashflowItemID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:ux_cashflow_summary_key,priority:3"`
	Inflow         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Outflow        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Currency       string          `gorm:"type:varchar(3);not null"`
	TxCount        int             `gorm:"not null;default:0"`
	UpdatedAt      time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CashflowSummaryModel) TableName() string {
	return "cashflow_summary"
}

// ToDomain converts the row to a domain SummaryRow
func (m *CashflowSummaryModel) ToDomain() report.SummaryRow {
	return report.SummaryRow{
		Key:    report.Key{TenantID: m.TenantID, CompanyID: m.CompanyID, CashflowItemID: m.CashflowItemID},
		Totals: totals(m.Inflow, m.Outflow, m.Currency, m.TxCount),
	}
}

// CashflowSummaryModelFromDomain creates a row from a domain SummaryRow
func CashflowSummaryModelFromDomain(r report.SummaryRow) CashflowSummaryModel {
	return CashflowSummaryModel{
		ID:             uuid.New(),
		TenantID:       r.TenantID,
		CompanyID:      r.CompanyID,
		CashflowItemID: r.CashflowItemID,
		Inflow:         r.Inflow.Amount(),
		Outflow:        r.Outflow.Amount(),
		Currency:       string(r.Inflow.Currency()),
		TxCount:        r.Count,
		UpdatedAt:      time.Now(),
	}
}

func totals(in, out decimal.Decimal, currency string, count int) report.Totals {
	return report.Totals{
		Inflow:  money(in, currency),
		Outflow: money(out, currency),
		Count:   count,
	}
}

// ReportingPeriodModel is the open/closed state of one month of books
type ReportingPeriodModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID  uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_reporting_period,priority:1"`
	CompanyID uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:ux_reporting_period,priority:2"`
	Year      int        `gorm:"not null;uniqueIndex:ux_reporting_period,priority:3"`
	Month     int        `gorm:"not null;uniqueIndex:ux_reporting_period,priority:4"`
	Status    string     `gorm:"type:varchar(10);not null;default:'OPEN'"`
	ClosedAt  *time.Time
	ClosedBy  *uuid.UUID `gorm:"type:uuid"`
	UpdatedAt time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReportingPeriodModel) TableName() string {
	return "reporting_periods"
}

// ToDomain converts the row to a domain ReportingPeriod
func (m *ReportingPeriodModel) ToDomain() report.ReportingPeriod {
	return report.ReportingPeriod{
		ID:        m.ID,
		TenantID:  m.TenantID,
		CompanyID: m.CompanyID,
		Year:      m.Year,
		Month:     m.Month,
		Status:    report.PeriodStatus(m.Status),
		ClosedAt:  m.ClosedAt,
		ClosedBy:  m.ClosedBy,
		UpdatedAt: m.UpdatedAt,
	}
}

// ReportingPeriodModelFromDomain creates a row from a domain ReportingPeriod
func ReportingPeriodModelFromDomain(p *report.ReportingPeriod) *ReportingPeriodModel {
	return &ReportingPeriodModel{
		ID:        p.ID,
		TenantID:  p.TenantID,
		CompanyID: p.CompanyID,
		Year:      p.Year,
		Month:     p.Month,
		Status:    string(p.Status),
		ClosedAt:  p.ClosedAt,
		ClosedBy:  p.ClosedBy,
		UpdatedAt: p.UpdatedAt,
	}
}

// CashflowItemModel is a node of the cashflow taxonomy. A NULL tenant marks
// a shared item.
type CashflowItemModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID  *uuid.UUID `gorm:"type:uuid;index"`
	Code      string     `gorm:"type:varchar(50);not null"`
	Name      string     `gorm:"type:varchar(255);not null"`
	Section   string     `gorm:"type:varchar(20);not null"`
	Direction string     `gorm:"type:varchar(10);not null"`
}

// TableName returns the table name for GORM
func (CashflowItemModel) TableName() string {
	return "cashflow_items"
}

// ToDomain converts the row to a domain CashflowItem
func (m *CashflowItemModel) ToDomain() report.CashflowItem {
	return report.CashflowItem{
		ID:        m.ID,
		TenantID:  m.TenantID,
		Code:      m.Code,
		Name:      m.Name,
		Section:   report.Section(m.Section),
		Direction: report.Direction(m.Direction),
	}
}
