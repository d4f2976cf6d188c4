// Package scheduler runs a job once a day at a fixed local time.
package scheduler

import (
	"context"
	"time"

	"github.com/dmitrijs2005/subreport/internal/logging"
)

// Job is one tick. Its error is logged and the loop goes on.
type Job func(ctx context.Context) error

type Scheduler struct {
	hour, minute int
	runOnStart   bool
	job          Job
	log          logging.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func New(hour, minute int, runOnStart bool, job Job, log logging.Logger) *Scheduler {
	return &Scheduler{
		hour:       hour,
		minute:     minute,
		runOnStart: runOnStart,
		job:        job,
		log:        log,
		now:        time.Now,
		after:      time.After,
	}
}

// NextAt returns today's hour:minute in now's location if it is still ahead
// of now, otherwise the same time tomorrow.
func NextAt(now time.Time, hour, minute int) time.Time {
	t := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// Run blocks until ctx is done. Ticks never overlap. A tick that overruns
// one or more triggers skips them.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.runOnStart {
		s.tick(ctx)
		if ctx.Err() != nil {
			return nil
		}
	}

	next := NextAt(s.now(), s.hour, s.minute)
	for {
		wait := next.Sub(s.now())
		if wait < 0 {
			wait = 0
		}
		s.log.Info(ctx, "next run scheduled", "at", next.Format(time.RFC3339), "in", wait.Round(time.Second).String())

		select {
		case <-ctx.Done():
			s.log.Info(ctx, "scheduler stopped")
			return nil
		case <-s.after(wait):
		}
		if ctx.Err() != nil {
			s.log.Info(ctx, "scheduler stopped")
			return nil
		}

		s.tick(ctx)

		next = next.AddDate(0, 0, 1)
		for now := s.now(); !next.After(now); {
			s.log.Warn(ctx, "skipping missed run", "at", next.Format(time.RFC3339))
			next = next.AddDate(0, 0, 1)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.job(ctx); err != nil {
		s.log.Error(ctx, "scheduled run failed", "error", err)
	}
}
