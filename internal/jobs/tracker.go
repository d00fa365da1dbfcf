package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"

	"schraper/catalog/internal/constants"
	"schraper/catalog/internal/db/repositories"
	"schraper/catalog/internal/logging"
	"schraper/catalog/internal/metrics"
	"schraper/catalog/internal/models/gorm"
)

// recordTimeout bounds the job_log write made after the job itself finished,
// which may be after the caller's deadline.
const recordTimeout = 5 * time.Second

// Tracker runs units of work and appends their outcome to the job log.
type Tracker struct {
	jobLog  *repositories.JobLogRepo
	metrics *metrics.MetricsRegistry
}

// NewTracker creates a new job tracker
func NewTracker(jobLog *repositories.JobLogRepo, m *metrics.MetricsRegistry) *Tracker {
	return &Tracker{jobLog: jobLog, metrics: m}
}

// Run executes fn and records jobname on success or jobname+":failed" on
// failure. fn's error is returned unchanged; a failure to write the job log
// is returned only when fn itself succeeded.
func (t *Tracker) Run(ctx context.Context, jobname string, fn func(ctx context.Context) error) error {
	runID := uuid.NewString()
	log := logging.WithJob(jobname, runID)
	start := time.Now()
	log.Infow("Job started", "started_at", start.Format(time.RFC3339))

	err := fn(ctx)

	status, entry := "success", jobname
	if err != nil {
		status, entry = "failed", jobname+constants.FailedSuffix
	}
	elapsed := time.Since(start)
	t.metrics.ObserveJob(jobname, status, elapsed.Seconds())

	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if _, recErr := t.jobLog.Record(recordCtx, entry); recErr != nil {
		log.Errorw("Failed to record job run", "error", recErr.Error())
		if err == nil {
			err = recErr
		}
	}

	if status == "failed" {
		log.Errorw("Job failed", "duration", elapsed.Truncate(time.Millisecond).String(), "error", err.Error())
	} else {
		log.Infow("Job completed", "duration", elapsed.Truncate(time.Millisecond).String())
	}
	return err
}

// LastRun returns the most recent successful run of jobname, or nil.
func (t *Tracker) LastRun(ctx context.Context, jobname string) (*gorm.JobLog, error) {
	return t.jobLog.LastRun(ctx, jobname)
}
