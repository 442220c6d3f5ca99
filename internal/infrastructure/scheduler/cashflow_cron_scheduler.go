package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const cronTickerInterval = 1 * time.Minute

// Books identifies one ledger: a tenant and, optionally, a company
type Books struct {
	TenantID  uuid.UUID
	CompanyID uuid.UUID
}

// BooksProvider lists the books that carry ledger data
type BooksProvider interface {
	ListBooks(ctx context.Context) ([]Books, error)
}

// CashflowCronConfig configures the nightly cashflow rebuild
type CashflowCronConfig struct {
	Enabled bool
	// DailyCronSchedule is "minute hour * * *"; only minute and hour are used
	DailyCronSchedule string
	CronHour          int
	CronMinute        int
	JobTimeout        time.Duration
	MaxConcurrentJobs int
	RetryAttempts     int
	RetryDelay        time.Duration
}

// DefaultCashflowCronConfig runs at 02:00 daily
func DefaultCashflowCronConfig() CashflowCronConfig {
	return CashflowCronConfig{
		Enabled:           true,
		DailyCronSchedule: "0 2 * * *",
		CronHour:          2,
		CronMinute:        0,
		JobTimeout:        10 * time.Minute,
		MaxConcurrentJobs: 3,
		RetryAttempts:     3,
		RetryDelay:        time.Minute,
	}
}

// ParseCronSchedule extracts hour and minute from "minute hour * * *".
// An empty expression yields 02:00.
func ParseCronSchedule(expr string) (hour, minute int, err error) {
	hour, minute = 2, 0
	parts := strings.Fields(expr)
	if len(parts) < 2 {
		return hour, minute, nil
	}
	if parts[0] != "*" {
		if minute, err = strconv.Atoi(parts[0]); err != nil {
			return 2, 0, fmt.Errorf("%w: minute %q", ErrInvalidConfig, parts[0])
		}
	}
	if parts[1] != "*" {
		if hour, err = strconv.Atoi(parts[1]); err != nil {
			return 2, 0, fmt.Errorf("%w: hour %q", ErrInvalidConfig, parts[1])
		}
	}
	if minute < 0 || minute > 59 {
		return 2, 0, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return 2, 0, fmt.Errorf("hour must be 0-23, got %d", hour)
	}
	return hour, minute, nil
}

// JobRecord is the audit row of one scheduled run
type JobRecord struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	TenantID    uuid.UUID  `gorm:"column:tenant_id;type:uuid;not null"`
	CompanyID   *uuid.UUID `gorm:"column:company_id;type:uuid"`
	Kind        string     `gorm:"column:kind;size:50;not null"`
	Status      string     `gorm:"column:status;size:20"`
	Error       string     `gorm:"column:last_error;type:text"`
	StartedAt   *time.Time `gorm:"column:started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
}

// TableName returns the table name for GORM
func (JobRecord) TableName() string {
	return "scheduler_jobs"
}

// JobRecordRepository stores job audit rows
type JobRecordRepository struct {
	db *gorm.DB
}

// NewJobRecordRepository creates a new JobRecordRepository
func NewJobRecordRepository(db *gorm.DB) *JobRecordRepository {
	return &JobRecordRepository{db: db}
}

// RecordJobStart records the submission of a job
func (r *JobRecordRepository) RecordJobStart(ctx context.Context, job *Job) error {
	now := time.Now()
	record := &JobRecord{
		ID:        job.ID,
		TenantID:  job.TenantID,
		Kind:      string(job.Kind),
		Status:    string(JobStatusRunning),
		StartedAt: &now,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if job.CompanyID != uuid.Nil {
		company := job.CompanyID
		record.CompanyID = &company
	}
	return r.db.WithContext(ctx).Create(record).Error
}

// RecordJobComplete records the outcome of a job
func (r *JobRecordRepository) RecordJobComplete(ctx context.Context, jobID uuid.UUID, success bool, errMsg string) error {
	now := time.Now()
	status := string(JobStatusSuccess)
	if !success {
		status = string(JobStatusFailed)
	}
	return r.db.WithContext(ctx).
		Model(&JobRecord{}).
		Where("id = ?", jobID).
		Updates(map[string]any{
			"status":       status,
			"last_error":   errMsg,
			"completed_at": now,
			"updated_at":   now,
		}).Error
}

// CashflowCronScheduler rebuilds yesterday's and today's cashflow rows of
// every set of books once a day.
type CashflowCronScheduler struct {
	config    CashflowCronConfig
	books     BooksProvider
	jobRepo   *JobRecordRepository
	logger    *zap.Logger
	scheduler *Scheduler

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewCashflowCronScheduler creates a new CashflowCronScheduler
func NewCashflowCronScheduler(config CashflowCronConfig, executor JobExecutor, books BooksProvider, jobRepo *JobRecordRepository, logger *zap.Logger) *CashflowCronScheduler {
	if config.DailyCronSchedule != "" {
		if h, m, err := ParseCronSchedule(config.DailyCronSchedule); err == nil {
			config.CronHour, config.CronMinute = h, m
		} else {
			logger.Warn("Invalid cashflow cron schedule, using hour/minute", zap.Error(err))
		}
	}
	return &CashflowCronScheduler{
		config:  config,
		books:   books,
		jobRepo: jobRepo,
		logger:  logger,
		scheduler: NewScheduler(SchedulerConfig{
			MaxConcurrentJobs: config.MaxConcurrentJobs,
			JobTimeout:        config.JobTimeout,
			RetryDelay:        config.RetryDelay,
		}, &recordingExecutor{next: executor, jobRepo: jobRepo, logger: logger}, logger),
	}
}

// Start starts the worker pool and the cron loop
func (s *CashflowCronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning || !s.config.Enabled {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.calculateNextRunTime(time.Now())

	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Cashflow cron scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.Timep("next_run_at", s.GetNextRunAt()),
	)
	return nil
}

// Stop stops the cron loop, then the worker pool
func (s *CashflowCronScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		if err := s.scheduler.Stop(ctx); err != nil {
			s.logger.Warn("Error stopping underlying scheduler", zap.Error(err))
		}
		s.logger.Info("Cashflow cron scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CashflowCronScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.RunOnce(ctx, now)
				s.calculateNextRunTime(now)
			}
		}
	}
}

func (s *CashflowCronScheduler) shouldRun(now time.Time) bool {
	return now.Hour() == s.config.CronHour && now.Minute() == s.config.CronMinute
}

func (s *CashflowCronScheduler) calculateNextRunTime(now time.Time) {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// RunOnce submits a rebuild of yesterday and today for every set of books.
// It returns the number of jobs submitted.
func (s *CashflowCronScheduler) RunOnce(ctx context.Context, now time.Time) int {
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	books, err := s.books.ListBooks(ctx)
	if err != nil {
		s.logger.Error("Failed to list books for cashflow rebuild", zap.Error(err))
		return 0
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	from := today.AddDate(0, 0, -1)

	submitted := 0
	for _, b := range books {
		job := NewJob(b.TenantID, b.CompanyID, JobKindCashflowRebuild, from, today, s.config.RetryAttempts)
		if err := s.scheduler.SubmitJob(job); err != nil {
			s.logger.Error("Failed to submit cashflow job",
				zap.String("tenant_id", b.TenantID.String()),
				zap.Error(err),
			)
			continue
		}
		submitted++
	}
	s.logger.Info("Cashflow rebuild jobs scheduled",
		zap.Int("books", len(books)),
		zap.Int("submitted", submitted),
	)
	return submitted
}

// Submit queues one rebuild outside the daily schedule
func (s *CashflowCronScheduler) Submit(tenantID, companyID uuid.UUID, from, to time.Time) error {
	return s.scheduler.SubmitJob(NewJob(tenantID, companyID, JobKindCashflowRebuild, from, to, s.config.RetryAttempts))
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *CashflowCronScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *CashflowCronScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}

// recordingExecutor writes an audit row around every job
type recordingExecutor struct {
	next    JobExecutor
	jobRepo *JobRecordRepository
	logger  *zap.Logger
}

func (e *recordingExecutor) Execute(ctx context.Context, job *Job) error {
	if e.jobRepo == nil {
		return e.next.Execute(ctx, job)
	}
	if job.RetryCount == 0 {
		if err := e.jobRepo.RecordJobStart(ctx, job); err != nil {
			e.logger.Warn("Failed to record job start", zap.String("job_id", job.ID.String()), zap.Error(err))
		}
	}
	err := e.next.Execute(ctx, job)
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if recErr := e.jobRepo.RecordJobComplete(ctx, job.ID, err == nil, msg); recErr != nil {
		e.logger.Warn("Failed to record job completion", zap.String("job_id", job.ID.String()), zap.Error(recErr))
	}
	return err
}
