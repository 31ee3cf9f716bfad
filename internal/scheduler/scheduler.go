package scheduler

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/Arminmow/weather-dashboard-nadin-soft/internal/logger"
)

// Refresher re-fetches whatever is currently selected. It reports whether a fetch started.
type Refresher interface {
	Refresh() bool
}

// Scheduler periodically refreshes the current selection.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Refresher
	interval  time.Duration
	l         *logger.Logger
}

// New creates a new Scheduler. An interval of zero or less disables it.
func New(interval time.Duration, target Refresher, l *logger.Logger) *Scheduler {
	if l == nil {
		l = logger.Nop()
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		interval:  interval,
		l:         l,
	}
}

// Start schedules the periodic job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.l.Info("scheduler: refresh disabled")
		return nil
	}

	// The first run is one interval out; Start already fetched or rehydrated.
	_, err := s.scheduler.Every(s.interval).WaitForSchedule().SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.l.Info("scheduler: started", map[string]any{"interval": s.interval.String()})
	return nil
}

func (s *Scheduler) run() {
	if s.target.Refresh() {
		s.l.Debug("scheduler: refresh dispatched")
		return
	}
	s.l.Debug("scheduler: refresh skipped, nothing selected or fetch in flight")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
