package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrSchedulerNotRunning = errors.New("scheduler is not running")
	ErrJobQueueFull        = errors.New("job queue is full")
	ErrInvalidConfig       = errors.New("invalid scheduler configuration")
	ErrInvalidJobKind      = errors.New("invalid job kind")
)

type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobKind names what a job computes
type JobKind string

const JobKindCashflowRebuild JobKind = "CASHFLOW_REBUILD"

// Job rebuilds derived data of one set of books over [PeriodStart, PeriodEnd)
type Job struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	CompanyID   uuid.UUID // uuid.Nil means every company of the tenant
	Kind        JobKind
	PeriodStart time.Time
	PeriodEnd   time.Time

	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time
}

func NewJob(tenantID, companyID uuid.UUID, kind JobKind, periodStart, periodEnd time.Time, maxRetries int) *Job {
	return &Job{
		ID:          uuid.New(),
		TenantID:    tenantID,
		CompanyID:   companyID,
		Kind:        kind,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      JobStatusPending,
		MaxRetries:  maxRetries,
	}
}

func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.CompletedAt = nil
	j.Error = ""
}

func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

func (j *Job) Fail(reason string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = reason
}

// ShouldRetry reports whether a failed job has attempts left
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry puts the job back to PENDING, due after delay
func (j *Job) ScheduleRetry(delay time.Duration) {
	at := time.Now().Add(delay)
	j.RetryCount++
	j.Status = JobStatusPending
	j.NextRetryAt = &at
	j.Error = ""
}

type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

type SchedulerConfig struct {
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryDelay        time.Duration
	QueueSize         int
}

func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		MaxConcurrentJobs: 3,
		JobTimeout:        30 * time.Minute,
		RetryDelay:        5 * time.Minute,
		QueueSize:         100,
	}
}

// Scheduler runs rebuild jobs on a fixed set of workers. Failed jobs are
// re-queued by a timer so a waiting retry never holds a worker.
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	logger   *zap.Logger

	queue   chan *Job
	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	workers sync.WaitGroup
	timers  map[uuid.UUID]*time.Timer
}

func NewScheduler(config SchedulerConfig, executor JobExecutor, logger *zap.Logger) *Scheduler {
	defaults := DefaultSchedulerConfig()
	if config.MaxConcurrentJobs <= 0 {
		config.MaxConcurrentJobs = 1
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = defaults.JobTimeout
	}
	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		logger:   logger.Named("jobs"),
		queue:    make(chan *Job, config.QueueSize),
		timers:   make(map[uuid.UUID]*time.Timer),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	for i := range s.config.MaxConcurrentJobs {
		s.workers.Add(1)
		go s.work(ctx, i)
	}
	s.logger.Info("workers started", zap.Int("workers", s.config.MaxConcurrentJobs))
	return nil
}

// Stop drops pending retries and waits for running jobs to return
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.cancel()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.logger.Warn("stop timed out with jobs still running")
		return ctx.Err()
	}
}

// SubmitJob queues job without blocking
func (s *Scheduler) SubmitJob(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enqueueLocked(job)
}

func (s *Scheduler) enqueueLocked(job *Job) error {
	if !s.running {
		return ErrSchedulerNotRunning
	}
	select {
	case s.queue <- job:
		return nil
	default:
		return ErrJobQueueFull
	}
}

func (s *Scheduler) work(ctx context.Context, worker int) {
	defer s.workers.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.queue:
			s.run(ctx, job, worker)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, job *Job, worker int) {
	log := s.logger.With(
		zap.Int("worker", worker),
		zap.Stringer("job_id", job.ID),
		zap.String("kind", string(job.Kind)),
		zap.Stringer("tenant_id", job.TenantID),
	)

	job.Start()
	err := s.execute(ctx, job)
	if err == nil {
		job.Complete()
		log.Info("job done", zap.Duration("took", job.CompletedAt.Sub(*job.StartedAt)))
		return
	}

	job.Fail(err.Error())
	if !job.ShouldRetry() {
		log.Error("job failed", zap.Int("attempts", job.RetryCount+1), zap.Error(err))
		return
	}
	job.ScheduleRetry(s.config.RetryDelay)
	log.Warn("job failed, retry scheduled", zap.Timep("next_retry_at", job.NextRetryAt), zap.Error(err))
	s.retryLater(job)
}

func (s *Scheduler) execute(ctx context.Context, job *Job) (err error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return s.executor.Execute(ctx, job)
}

func (s *Scheduler) retryLater(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.timers[job.ID] = time.AfterFunc(time.Until(*job.NextRetryAt), func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, pending := s.timers[job.ID]; !pending {
			return
		}
		delete(s.timers, job.ID)
		if err := s.enqueueLocked(job); err != nil {
			s.logger.Warn("retry dropped", zap.Stringer("job_id", job.ID), zap.Error(err))
		}
	})
}
