package jobs

import (
	"gamerental-backend/internal/config"
	"gamerental-backend/internal/logger"
	"gamerental-backend/internal/repository"
	"gamerental-backend/internal/service"
)

// JobRunner coordinates all scheduled jobs. It runs in its own process and
// deliberately holds no session clock: elapsed-time ticking belongs to the
// server that owns the HTTP lifecycle, and a second ticking process would
// double-bill.
type JobRunner struct {
	rentals  repository.RentalRepository
	reports  repository.ReportRepository
	services *Services
	config   *config.Config
}

// Services holds all service dependencies needed by jobs
type Services struct {
	Report service.ReportService
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(rentals repository.RentalRepository, reports repository.ReportRepository, services *Services, cfg *config.Config) *JobRunner {
	return &JobRunner{
		rentals:  rentals,
		reports:  reports,
		services: services,
		config:   cfg,
	}
}

// Config returns the loaded application configuration
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	logger.Info("Starting job", "job", jobName)
	jobFunc()
	logger.Info("Job completed", "job", jobName)
}

// RunAll runs every job once (for manual execution)
func (jr *JobRunner) RunAll() {
	jr.ReconcileActiveSessions()
	jr.SnapshotDailyRevenue()
}
