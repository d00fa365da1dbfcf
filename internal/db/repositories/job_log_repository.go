package repositories

import (
	"context"
	"errors"
	"time"

	"schraper/catalog/internal/dberrors"
	"schraper/catalog/internal/models/gorm"

	gormlib "gorm.io/gorm"
)

// JobLogRepo appends to and reads the job_log table. Rows are never updated or deleted.
type JobLogRepo struct {
	db  *gormlib.DB
	now func() time.Time
}

// NewJobLogRepo creates a new job log repository
func NewJobLogRepo(db *gormlib.DB) *JobLogRepo {
	return &JobLogRepo{db: db, now: time.Now}
}

// WithClock overrides the time source, used by tests to control run_dt.
func (r *JobLogRepo) WithClock(now func() time.Time) *JobLogRepo {
	r.now = now
	return r
}

// Record appends one run of jobname stamped with the current UTC time.
func (r *JobLogRepo) Record(ctx context.Context, jobname string) (*gorm.JobLog, error) {
	if jobname == "" {
		return nil, &dberrors.ValidationError{Kind: "job_log", Field: "jobname", Value: jobname}
	}

	entry := gorm.JobLog{
		JobName: jobname,
		RunDT:   r.now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return nil, dberrors.Classify(ctx, "record job run", err)
	}
	return &entry, nil
}

// RecentRuns returns at most limit runs of jobname, newest first.
func (r *JobLogRepo) RecentRuns(ctx context.Context, jobname string, limit int) ([]gorm.JobLog, error) {
	if limit <= 0 {
		return []gorm.JobLog{}, nil
	}

	var runs []gorm.JobLog
	err := r.db.WithContext(ctx).
		Where("jobname = ?", jobname).
		Order("run_dt DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, dberrors.Classify(ctx, "list job runs", err)
	}
	return runs, nil
}

// LastRun returns the most recent run of jobname, or nil if it never ran.
// Used to check data freshness.
func (r *JobLogRepo) LastRun(ctx context.Context, jobname string) (*gorm.JobLog, error) {
	var run gorm.JobLog

	err := r.db.WithContext(ctx).
		Where("jobname = ?", jobname).
		Order("run_dt DESC").
		Take(&run).Error
	if err != nil {
		if errors.Is(err, gormlib.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, dberrors.Classify(ctx, "last job run", err)
	}
	return &run, nil
}
