package report

import (
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/google/uuid"
)

// PeriodStatus of a reporting month
type PeriodStatus string

const (
	PeriodOpen   PeriodStatus = "OPEN"
	PeriodClosed PeriodStatus = "CLOSED"
)

// ReportingPeriod locks a month's report rows once the books are closed
type ReportingPeriod struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	CompanyID uuid.UUID
	Year      int
	Month     int
	Status    PeriodStatus
	ClosedAt  *time.Time
	ClosedBy  *uuid.UUID
	UpdatedAt time.Time
}

// NewReportingPeriod builds an open period
func NewReportingPeriod(scope shared.RequestScope, year, month int) (*ReportingPeriod, error) {
	if month < 1 || month > 12 || year < 2000 || year > 9999 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "invalid reporting period")
	}
	return &ReportingPeriod{
		ID:        uuid.New(),
		TenantID:  scope.TenantID,
		CompanyID: scope.CompanyID,
		Year:      year,
		Month:     month,
		Status:    PeriodOpen,
		UpdatedAt: time.Now(),
	}, nil
}

// Close marks the period closed
func (p *ReportingPeriod) Close(actor uuid.UUID) {
	now := time.Now()
	p.Status = PeriodClosed
	p.ClosedAt = &now
	p.ClosedBy = &actor
	p.UpdatedAt = now
}

// Open reopens a closed period
func (p *ReportingPeriod) Open() {
	p.Status = PeriodOpen
	p.ClosedAt = nil
	p.ClosedBy = nil
	p.UpdatedAt = time.Now()
}

// EnsureOpen fails with ErrPeriodClosed when any period is closed, unless force
func EnsureOpen(periods []ReportingPeriod, force bool) error {
	if force {
		return nil
	}
	for _, p := range periods {
		if p.Status == PeriodClosed {
			return shared.NewDomainError(shared.CodePeriodClosed,
				"reporting period "+time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")+" is closed")
		}
	}
	return nil
}
