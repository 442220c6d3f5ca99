package report

import (
	"context"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/scheduler"
)

// Execute implements scheduler.JobExecutor. Scheduled rebuilds never touch
// closed periods.
func (s *CashflowBuilder) Execute(ctx context.Context, job *scheduler.Job) error {
	if job.Kind != scheduler.JobKindCashflowRebuild {
		return scheduler.ErrInvalidJobKind
	}
	scope := shared.NewRequestScope(job.TenantID, job.CompanyID, shared.SystemActorID)
	_, err := s.Rebuild(ctx, scope, job.PeriodStart, job.PeriodEnd, false)
	return err
}

var _ scheduler.JobExecutor = (*CashflowBuilder)(nil)
