package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingExecutor struct {
	mu    sync.Mutex
	jobs  []*Job
	fails int
	done  chan struct{}
}

func (e *countingExecutor) Execute(_ context.Context, job *Job) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, job)
	if e.fails > 0 {
		e.fails--
		return errors.New("boom")
	}
	if e.done != nil {
		close(e.done)
		e.done = nil
	}
	return nil
}

type staticBooks []Books

func (b staticBooks) ListBooks(context.Context) ([]Books, error) { return b, nil }

func TestParseCronSchedule(t *testing.T) {
	tests := []struct {
		name         string
		cronExpr     string
		expectedHour int
		expectedMin  int
	}{
		{name: "Default 2am", cronExpr: "0 2 * * *", expectedHour: 2, expectedMin: 0},
		{name: "3:30am", cronExpr: "30 3 * * *", expectedHour: 3, expectedMin: 30},
		{name: "Midnight", cronExpr: "0 0 * * *", expectedHour: 0, expectedMin: 0},
		{name: "Empty string defaults", cronExpr: "", expectedHour: 2, expectedMin: 0},
		{name: "Extra whitespace", cronExpr: "  15   4   *   *   *  ", expectedHour: 4, expectedMin: 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hour, minute, err := ParseCronSchedule(tt.cronExpr)
			assert.NoError(t, err)
			assert.Equal(t, tt.expectedHour, hour, "hour mismatch")
			assert.Equal(t, tt.expectedMin, minute, "minute mismatch")
		})
	}

	t.Run("rejects out of range", func(t *testing.T) {
		_, _, err := ParseCronSchedule("0 25 * * *")
		assert.Error(t, err)
		_, _, err = ParseCronSchedule("x 2 * * *")
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestShouldRun(t *testing.T) {
	cfg := DefaultCashflowCronConfig()
	cfg.CronHour = 2
	cfg.CronMinute = 30
	s := &CashflowCronScheduler{config: cfg}

	assert.True(t, s.shouldRun(time.Date(2026, 1, 15, 2, 30, 0, 0, time.UTC)))
	assert.False(t, s.shouldRun(time.Date(2026, 1, 15, 3, 30, 0, 0, time.UTC)))
	assert.False(t, s.shouldRun(time.Date(2026, 1, 15, 2, 31, 0, 0, time.UTC)))
}

func TestCalculateNextRunTime(t *testing.T) {
	cfg := DefaultCashflowCronConfig()
	s := &CashflowCronScheduler{config: cfg}

	s.calculateNextRunTime(time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC), *s.GetNextRunAt())

	s.calculateNextRunTime(time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 2, 2, 0, 0, 0, time.UTC), *s.GetNextRunAt())
}

func TestSchedulerRejectsWhenStopped(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig(), &countingExecutor{}, zap.NewNop())
	err := s.SubmitJob(NewJob(uuid.New(), uuid.Nil, JobKindCashflowRebuild, time.Now(), time.Now(), 0))
	assert.ErrorIs(t, err, ErrSchedulerNotRunning)
}

func TestRunOnceSubmitsOneJobPerBooks(t *testing.T) {
	tenant := uuid.New()
	company := uuid.New()
	done := make(chan struct{})
	exec := &countingExecutor{done: done}

	cfg := DefaultCashflowCronConfig()
	cfg.MaxConcurrentJobs = 1
	s := NewCashflowCronScheduler(cfg, exec, staticBooks{{TenantID: tenant, CompanyID: company}}, nil, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	now := time.Date(2026, 5, 10, 2, 0, 0, 0, time.UTC)
	assert.Equal(t, 1, s.RunOnce(context.Background(), now))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	require.Len(t, exec.jobs, 1)
	job := exec.jobs[0]
	assert.Equal(t, tenant, job.TenantID)
	assert.Equal(t, company, job.CompanyID)
	assert.Equal(t, JobKindCashflowRebuild, job.Kind)
	assert.Equal(t, time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC), job.PeriodStart)
	assert.Equal(t, time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC), job.PeriodEnd)
	assert.Equal(t, now, *s.GetLastRunAt())
}

func TestJobRetryBookkeeping(t *testing.T) {
	job := NewJob(uuid.New(), uuid.Nil, JobKindCashflowRebuild, time.Now(), time.Now(), 2)
	job.Start()
	job.Fail("boom")
	assert.True(t, job.ShouldRetry())

	job.ScheduleRetry(time.Millisecond)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	require.NotNil(t, job.NextRetryAt)

	job.Start()
	job.Fail("boom")
	job.ScheduleRetry(time.Millisecond)
	job.Start()
	job.Fail("boom")
	assert.False(t, job.ShouldRetry())
}

func TestSchedulerRetriesFailedJob(t *testing.T) {
	done := make(chan struct{})
	exec := &countingExecutor{fails: 1, done: done}
	cfg := DefaultSchedulerConfig()
	cfg.MaxConcurrentJobs = 1
	cfg.RetryDelay = 10 * time.Millisecond

	s := NewScheduler(cfg, exec, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop(context.Background()) }()

	job := NewJob(uuid.New(), uuid.Nil, JobKindCashflowRebuild, time.Now(), time.Now(), 1)
	require.NoError(t, s.SubmitJob(job))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not run")
	}

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Len(t, exec.jobs, 2)
}

type panickingExecutor struct{}

func (e *panickingExecutor) Execute(context.Context, *Job) error { panic("cashflow builder bug") }

func TestSchedulerSurvivesPanickingJob(t *testing.T) {
	s := NewScheduler(SchedulerConfig{MaxConcurrentJobs: 1}, &panickingExecutor{}, zap.NewNop())
	require.NoError(t, s.Start(context.Background()))

	job := NewJob(uuid.New(), uuid.Nil, JobKindCashflowRebuild, time.Now(), time.Now(), 0)
	require.NoError(t, s.SubmitJob(job))

	require.Eventually(t, func() bool { return len(s.queue) == 0 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "cashflow builder bug")
}
