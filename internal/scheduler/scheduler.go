package scheduler

import (
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"smy-nav-backend/internal/jobs"
	"smy-nav-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner
func NewScheduler(jobRunner *jobs.JobRunner) *Scheduler {
	// Create cron with UTC timezone and seconds precision
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithLogger(cron.PrintfLogger(logger.StdLogger("scheduler", slog.LevelInfo))),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	s.registerJobs()
	return s
}

type job struct {
	name string
	spec string
	run  func()
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() {
	cfg := s.jobs.Config().Scheduler

	for _, j := range []job{
		{"MarkOverdueInvoices", cfg.MarkOverdueInvoices, s.jobs.MarkOverdueInvoices},
		{"SendInvoiceReminders", cfg.SendInvoiceReminders, s.jobs.SendInvoiceReminders},
		{"PromoteReadyBatches", cfg.PromoteReadyBatches, s.jobs.PromoteReadyBatches},
		{"CleanupStagedUploads", cfg.CleanupStagedUploads, s.jobs.CleanupStagedUploads},
	} {
		if _, err := s.cron.AddFunc(j.spec, j.run); err != nil {
			logger.Error("Failed to register job", "job", j.name, "schedule", j.spec, "error", err)
		}
	}

	logger.Info("Cron jobs registered", "count", len(s.cron.Entries()))
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// Entries reports how many jobs are scheduled.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
