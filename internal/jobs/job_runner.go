package jobs

import (
	"context"
	"time"

	"smy-nav-backend/internal/config"
	"smy-nav-backend/internal/logger"
	"smy-nav-backend/internal/service"
)

// StagingCleaner removes abandoned partial uploads.
type StagingCleaner interface {
	CleanupStaged(maxAge time.Duration) (int, error)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	services *Services
	config   *config.Config
	now      func() time.Time
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Invoices service.InvoiceService
	Batches  service.BatchService
	Staging  StagingCleaner // nil when uploads go to a remote store
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		services: services,
		config:   cfg,
		now:      time.Now,
	}
}

func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context)) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc(context.Background())
	logger.Info("Job completed", "job", jobName, "duration", time.Since(start))
}

// RunAllNightlyJobs runs all nightly jobs (for manual execution)
func (jr *JobRunner) RunAllNightlyJobs() {
	jr.MarkOverdueInvoices()
	jr.SendInvoiceReminders()
	jr.CleanupStagedUploads()
}

// RunAll runs every job once.
func (jr *JobRunner) RunAll() {
	jr.RunAllNightlyJobs()
	jr.PromoteReadyBatches()
}
