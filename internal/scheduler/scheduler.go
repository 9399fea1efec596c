package scheduler

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/andreaadelfio/ISIN-Monitor/internal/monitor"
)

// Scheduler drives the continuous monitoring mode: the check cycle runs
// on a cron spec and the monitor's own market-hours gate decides whether
// a tick does any work.
type Scheduler struct {
	Cron    *cron.Cron
	Monitor *monitor.Monitor
}

// NewScheduler creates a Scheduler around the given monitor.
func NewScheduler(m *monitor.Monitor) *Scheduler {
	return &Scheduler{
		Cron:    cron.New(cron.WithSeconds()),
		Monitor: m,
	}
}

// Register adds the periodic check cycle.
func (s *Scheduler) Register(checkCron string) error {
	if _, err := s.Cron.AddFunc(checkCron, s.Monitor.RunCheck); err != nil {
		return fmt.Errorf("register check task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}
