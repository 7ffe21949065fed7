package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSchedulerStarted is returned when a job is added after Start.
var ErrSchedulerStarted = errors.New("scheduler already started")

type scheduledJob struct {
	job      Job
	interval time.Duration
}

// SchedulerConfig holds configuration for the Scheduler.
type SchedulerConfig struct {
	// RunOnStart runs every job once immediately instead of waiting a full interval.
	RunOnStart bool

	// JobTimeout bounds a single run. Zero means no bound.
	JobTimeout time.Duration
}

// Scheduler runs registered jobs on fixed intervals until stopped.
type Scheduler struct {
	jobs       []scheduledJob
	config     SchedulerConfig
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	started    bool
	logger     *slog.Logger
	errHandler func(job Job, err error)
}

// NewScheduler creates a Scheduler.
func NewScheduler(config SchedulerConfig, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		config:     config,
		ctx:        ctx,
		cancelFunc: cancel,
		logger:     logger.With(slog.String("component", "scheduler")),
	}
	s.errHandler = func(job Job, err error) {
		s.logger.Error("job failed", "job", job.Name(), "error", err)
	}
	return s
}

// SetErrorHandler replaces the default handler, which logs the failure.
func (s *Scheduler) SetErrorHandler(handler func(job Job, err error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errHandler = handler
}

// Every registers job to run once per interval. Non-positive intervals are rejected.
func (s *Scheduler) Every(interval time.Duration, job Job) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrSchedulerStarted
	}
	s.jobs = append(s.jobs, scheduledJob{job: job, interval: interval})
	return nil
}

// Start launches one goroutine per registered job.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	for _, sj := range s.jobs {
		s.wg.Add(1)
		go s.loop(sj)
	}
	s.logger.Info("scheduler started", "job_count", len(s.jobs))
}

// Stop cancels running jobs and waits for their goroutines to exit.
func (s *Scheduler) Stop() {
	s.cancelFunc()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) loop(sj scheduledJob) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		s.runOnce(sj.job)
	}

	ticker := time.NewTicker(sj.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(sj.job)
		}
	}
}

func (s *Scheduler) runOnce(job Job) {
	ctx := s.ctx
	if s.config.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.JobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
			return
		}
		s.mu.Lock()
		handler := s.errHandler
		s.mu.Unlock()
		handler(job, err)
		return
	}
	s.logger.Debug("job completed", "job", job.Name(), "duration", time.Since(start))
}
