package jobs

import (
	"context"
	"time"

	"smy-nav-backend/internal/logger"
)

const stagedUploadMaxAge = 24 * time.Hour

// PromoteReadyBatches moves forming batches that reached their minimum to ready.
func (jr *JobRunner) PromoteReadyBatches() {
	jr.runWithRecovery("PromoteReadyBatches", func(ctx context.Context) {
		n, err := jr.services.Batches.PromoteReady(ctx)
		if err != nil {
			logger.Error("Failed to promote ready batches", "error", err)
			return
		}
		if n > 0 {
			logger.Info("Promoted batches to ready", "count", n)
		}
	})
}

// CleanupStagedUploads deletes staging files left by interrupted uploads.
func (jr *JobRunner) CleanupStagedUploads() {
	if jr.services.Staging == nil {
		return
	}
	jr.runWithRecovery("CleanupStagedUploads", func(ctx context.Context) {
		n, err := jr.services.Staging.CleanupStaged(stagedUploadMaxAge)
		if err != nil {
			logger.Error("Failed to clean staged uploads", "error", err)
			return
		}
		logger.Info("Cleaned staged uploads", "count", n)
	})
}
