// Package scheduler provides the recurring wake-up primitive driving the
// periodic sweep, backed by gocron.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"tabward/internal/reaper"
)

// GocronScheduler implements reaper.SweepScheduler on a gocron scheduler
// holding at most one job. Install replaces the existing job atomically, so a
// cadence change never dual-fires.
type GocronScheduler struct {
	mu        sync.Mutex
	scheduler gocron.Scheduler
	job       gocron.Job
}

var _ reaper.SweepScheduler = (*GocronScheduler)(nil)

// New creates and starts a scheduler.
func New() (*GocronScheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	s.Start()
	return &GocronScheduler{scheduler: s}, nil
}

// Install cancels any existing schedule and installs fn at the given interval.
func (g *GocronScheduler) Install(interval time.Duration, fn func()) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.job != nil {
		if err := g.scheduler.RemoveJob(g.job.ID()); err != nil {
			return fmt.Errorf("removing sweep job: %w", err)
		}
		g.job = nil
	}

	job, err := g.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName("sweep"),
	)
	if err != nil {
		return fmt.Errorf("scheduling sweep: %w", err)
	}
	g.job = job
	return nil
}

// Cancel removes the current schedule, if any.
func (g *GocronScheduler) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.job == nil {
		return nil
	}
	if err := g.scheduler.RemoveJob(g.job.ID()); err != nil {
		return fmt.Errorf("removing sweep job: %w", err)
	}
	g.job = nil
	return nil
}

// Shutdown stops the underlying scheduler.
func (g *GocronScheduler) Shutdown() error {
	return g.scheduler.Shutdown()
}
