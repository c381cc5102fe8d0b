package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/erp/analytics/internal/domain/shared"
	"go.uber.org/zap"
)

// tickerInterval is the interval at which the scheduler checks for due jobs
const tickerInterval = 1 * time.Minute

// ErrSchedulerNotRunning is returned by manual triggers on a stopped scheduler
var ErrSchedulerNotRunning = errors.New("scheduler is not running")

// JobFunc runs one batch recomputation and reports its summary
type JobFunc func(ctx context.Context) (*shared.BatchSummary, error)

// Job is one recurring batch job with its own interval
type Job struct {
	Name     string
	Interval time.Duration
	Run      JobFunc
}

// JobState is the mutex-guarded runtime state of a registered job
type JobState struct {
	Name          string     `json:"name"`
	Interval      string     `json:"interval"`
	LastRunAt     *time.Time `json:"last_run_at"`
	LastStatus    string     `json:"last_status"`
	LastError     string     `json:"last_error,omitempty"`
	LastProcessed int        `json:"last_processed"`
	LastFailed    int        `json:"last_failed"`
	NextRunAt     *time.Time `json:"next_run_at"`
}

// BatchScheduler runs registered batch jobs on per-job intervals.
// Due jobs run sequentially within a tick: every batch walks the same
// ledger tables, and overlapping full-table scans help nobody.
type BatchScheduler struct {
	jobs     []Job
	runStore *JobRunStore
	logger   *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	states    map[string]*JobState
}

// BatchSchedulerOption is a functional option for configuring the scheduler
type BatchSchedulerOption func(*BatchScheduler)

// WithLogger sets the logger for the scheduler
func WithLogger(logger *zap.Logger) BatchSchedulerOption {
	return func(s *BatchScheduler) {
		s.logger = logger
	}
}

// WithJobRunStore persists job executions to the run store
func WithJobRunStore(store *JobRunStore) BatchSchedulerOption {
	return func(s *BatchScheduler) {
		s.runStore = store
	}
}

// NewBatchScheduler creates a scheduler for the given jobs
func NewBatchScheduler(jobs []Job, opts ...BatchSchedulerOption) *BatchScheduler {
	s := &BatchScheduler{
		jobs:   jobs,
		logger: zap.NewNop(),
		states: make(map[string]*JobState, len(jobs)),
	}

	for _, job := range jobs {
		s.states[job.Name] = &JobState{
			Name:     job.Name,
			Interval: job.Interval.String(),
		}
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start starts the scheduler loop
func (s *BatchScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	now := time.Now()
	s.mu.Lock()
	for _, job := range s.jobs {
		next := now.Add(job.Interval)
		s.states[job.Name].NextRunAt = &next
	}
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Batch scheduler started", zap.Int("jobs", len(s.jobs)))
	return nil
}

// Stop stops the scheduler, waiting for an in-flight tick to finish
func (s *BatchScheduler) Stop(ctx context.Context) error {
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
		s.logger.Info("Batch scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Batch scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *BatchScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(tickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, job := range s.jobs {
				if s.due(job, now) {
					s.runJob(ctx, job)
				}
			}
		}
	}
}

func (s *BatchScheduler) due(job Job, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := s.states[job.Name]
	return state.NextRunAt != nil && !now.Before(*state.NextRunAt)
}

// runJob executes one job and records its outcome
func (s *BatchScheduler) runJob(ctx context.Context, job Job) {
	started := time.Now()
	s.logger.Info("Starting batch job", zap.String("job", job.Name))

	var runID = s.recordStart(ctx, job.Name, started)

	summary, err := job.Run(ctx)

	s.mu.Lock()
	state := s.states[job.Name]
	state.LastRunAt = &started
	next := started.Add(job.Interval)
	state.NextRunAt = &next
	if err != nil {
		state.LastStatus = "FAILED"
		state.LastError = err.Error()
		state.LastProcessed = 0
		state.LastFailed = 0
	} else {
		state.LastStatus = "SUCCESS"
		state.LastError = ""
		state.LastProcessed = summary.Processed
		state.LastFailed = summary.Failed
	}
	s.mu.Unlock()

	s.recordComplete(ctx, runID, summary, err)

	if err != nil {
		s.logger.Error("Batch job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err))
		return
	}
	s.logger.Info("Batch job finished",
		zap.String("job", job.Name),
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", time.Since(started)))
}

// RunAllNow triggers every job once, outside its schedule.
// Uses a background context so the run survives the triggering HTTP
// request.
func (s *BatchScheduler) RunAllNow() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	go func() {
		ctx := context.Background()
		for _, job := range s.jobs {
			s.runJob(ctx, job)
		}
	}()
	return nil
}

// RunJobNow triggers one job by name, outside its schedule
func (s *BatchScheduler) RunJobNow(name string) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return ErrSchedulerNotRunning
	}
	s.mu.Unlock()

	for _, job := range s.jobs {
		if job.Name == name {
			j := job
			go s.runJob(context.Background(), j)
			return nil
		}
	}
	return errors.New("unknown job: " + name)
}

// GetStatus returns the current scheduler and per-job state
func (s *BatchScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]JobState, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *s.states[job.Name])
	}

	return map[string]any{
		"is_running": s.isRunning,
		"jobs":       jobs,
	}
}

func (s *BatchScheduler) recordStart(ctx context.Context, jobName string, started time.Time) *JobRunRecord {
	if s.runStore == nil {
		return nil
	}
	record, err := s.runStore.RecordStart(ctx, jobName, started)
	if err != nil {
		s.logger.Warn("Failed to record job start", zap.String("job", jobName), zap.Error(err))
		return nil
	}
	return record
}

func (s *BatchScheduler) recordComplete(ctx context.Context, record *JobRunRecord, summary *shared.BatchSummary, runErr error) {
	if s.runStore == nil || record == nil {
		return
	}
	if err := s.runStore.RecordComplete(ctx, record.ID, summary, runErr); err != nil {
		s.logger.Warn("Failed to record job completion", zap.String("job", record.JobName), zap.Error(err))
	}
}
