package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus represents the outcome of a job run
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobFunc performs one batch of background work and reports how many items it handled
type JobFunc func(ctx context.Context) (int, error)

// RunRecorder persists job runs
type RunRecorder interface {
	RecordStart(ctx context.Context, job string, startedAt time.Time) (int64, error)
	RecordFinish(ctx context.Context, runID int64, status JobStatus, processed int, errMsg string) error
}

// Config holds scheduler settings
type Config struct {
	// JobTimeout bounds a single run
	JobTimeout time.Duration
}

type registeredJob struct {
	name     string
	schedule string
	fn       JobFunc
	entryID  cron.EntryID
}

// Scheduler runs named jobs on six-field cron schedules (seconds first).
// A run that is still in progress when its next tick fires is skipped.
type Scheduler struct {
	config   Config
	cron     *cron.Cron
	recorder RunRecorder
	logger   *zap.Logger

	mu        sync.Mutex
	jobs      map[string]*registeredJob
	isRunning bool
}

// NewScheduler creates a scheduler. recorder may be nil.
func NewScheduler(config Config, recorder RunRecorder, logger *zap.Logger) *Scheduler {
	if config.JobTimeout <= 0 {
		config.JobTimeout = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger: logger.Named("cron")}
	return &Scheduler{
		config: config,
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		recorder: recorder,
		logger:   logger,
		jobs:     make(map[string]*registeredJob),
	}
}

// Register adds a job under a unique name
func (s *Scheduler) Register(name, schedule string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrJobAlreadyRegistered, name)
	}
	job := &registeredJob{name: name, schedule: schedule, fn: fn}
	id, err := s.cron.AddFunc(schedule, func() { s.run(context.Background(), job) })
	if err != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrInvalidConfig, name, schedule, err)
	}
	job.entryID = id
	s.jobs[name] = job
	return nil
}

// Start begins firing scheduled jobs
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return
	}
	s.isRunning = true
	s.cron.Start()

	for _, job := range s.sortedJobs() {
		entry := s.cron.Entry(job.entryID)
		s.logger.Info("Scheduled job",
			zap.String("job", job.name),
			zap.String("schedule", job.schedule),
			zap.Time("next_run_at", entry.Next),
		)
	}
}

// Stop stops the cron loop and waits for running jobs until ctx ends
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// Trigger runs a job immediately in the caller's goroutine
func (s *Scheduler) Trigger(ctx context.Context, name string) (int, error) {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.run(ctx, job)
}

// Jobs lists the registered job names in order
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := s.sortedJobs()
	names := make([]string, len(jobs))
	for i, j := range jobs {
		names[i] = j.name
	}
	return names
}

func (s *Scheduler) sortedJobs() []*registeredJob {
	jobs := make([]*registeredJob, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, k int) bool { return jobs[i].name < jobs[k].name })
	return jobs
}

func (s *Scheduler) run(ctx context.Context, job *registeredJob) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	started := time.Now()
	var runID int64
	if s.recorder != nil {
		id, err := s.recorder.RecordStart(ctx, job.name, started)
		if err != nil {
			s.logger.Warn("Failed to record job start", zap.String("job", job.name), zap.Error(err))
		}
		runID = id
	}

	processed, err := job.fn(ctx)
	status, errMsg := JobStatusSuccess, ""
	if err != nil {
		status, errMsg = JobStatusFailed, err.Error()
		s.logger.Error("Job failed",
			zap.String("job", job.name),
			zap.Int("processed", processed),
			zap.Duration("duration", time.Since(started)),
			zap.Error(err),
		)
	} else if processed > 0 {
		s.logger.Info("Job completed",
			zap.String("job", job.name),
			zap.Int("processed", processed),
			zap.Duration("duration", time.Since(started)),
		)
	}

	if s.recorder != nil && runID != 0 {
		// the job context may be spent, finish the record on a fresh one
		recCtx, recCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer recCancel()
		if recErr := s.recorder.RecordFinish(recCtx, runID, status, processed, errMsg); recErr != nil {
			s.logger.Warn("Failed to record job finish", zap.String("job", job.name), zap.Error(recErr))
		}
	}
	return processed, err
}

// cronLogger adapts zap to cron.Logger
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
