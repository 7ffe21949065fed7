package task

import (
	"context"
	"time"
)

// Job is a unit of periodic background work.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Run performs one pass of the job.
	Run(ctx context.Context) error
}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

// Name implements Job.
func (j JobFunc) Name() string { return j.JobName }

// Run implements Job.
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

// SessionSweeper deletes sessions that expired before now.
type SessionSweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// SessionSweepJob removes expired refresh-token sessions.
type SessionSweepJob struct {
	sweeper  SessionSweeper
	timeFunc func() time.Time
}

// NewSessionSweepJob creates a job sweeping through sweeper. A nil clock uses time.Now.
func NewSessionSweepJob(sweeper SessionSweeper, clock func() time.Time) *SessionSweepJob {
	if clock == nil {
		clock = time.Now
	}
	return &SessionSweepJob{sweeper: sweeper, timeFunc: clock}
}

// Name implements Job.
func (j *SessionSweepJob) Name() string { return "session_sweep" }

// Run implements Job.
func (j *SessionSweepJob) Run(ctx context.Context) error {
	_, err := j.Sweep(ctx)
	return err
}

// Sweep runs one pass and reports how many sessions were removed.
func (j *SessionSweepJob) Sweep(ctx context.Context) (int64, error) {
	return j.sweeper.SweepExpired(ctx, j.timeFunc())
}
