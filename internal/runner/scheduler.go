package runner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/RaghavRD/library-tracker/internal/common/config"
	"github.com/RaghavRD/library-tracker/internal/common/logger"
)

// Scheduler runs a pass once per day at a configured local time.
type Scheduler struct {
	runner  *Runner
	runTime string
	now     func() time.Time
}

// NewScheduler builds a scheduler for the given HH:MM run time.
func NewScheduler(r *Runner, runTime string) (*Scheduler, error) {
	if err := config.ValidateRunTime(runTime); err != nil {
		return nil, err
	}
	return &Scheduler{runner: r, runTime: runTime, now: time.Now}, nil
}

// Run blocks, executing a pass at the scheduled time every day until
// the context is cancelled. A failed pass is logged and the schedule
// keeps going.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		next := s.nextRun(s.now())
		logger.Info("next pass scheduled for %s", next.Format("2006-01-02 15:04"))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if _, err := s.runner.RunPass(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("scheduled pass failed: %v", err)
		}
	}
}

// nextRun computes the next occurrence of the configured run time
// strictly after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	parts := strings.SplitN(s.runTime, ":", 2)
	hour, _ := strconv.Atoi(parts[0])
	minute, _ := strconv.Atoi(parts[1])

	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Describe renders the schedule for status output.
func (s *Scheduler) Describe() string {
	return fmt.Sprintf("daily at %s", s.runTime)
}
