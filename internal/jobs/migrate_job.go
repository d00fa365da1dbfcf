package jobs

import (
	"context"

	"schraper/catalog/internal/constants"
	"schraper/catalog/internal/db/migrations"
	"schraper/catalog/internal/logging"
)

// MigrateJob brings the schema up to date with the built-in catalog migrations.
type MigrateJob struct {
	runner  *migrations.Runner
	tracker *Tracker
}

func NewMigrateJob(runner *migrations.Runner, tracker *Tracker) *MigrateJob {
	return &MigrateJob{runner: runner, tracker: tracker}
}

// Run applies pending migrations and returns how many were applied.
func (j *MigrateJob) Run(ctx context.Context) (int, error) {
	applied := 0
	err := j.tracker.Run(ctx, constants.JobMigrate, func(ctx context.Context) error {
		n, err := j.runner.Apply(ctx, migrations.CatalogMigrations())
		applied = n
		return err
	})
	if err == nil {
		logging.Info("Schema up to date", "applied", applied)
	}
	return applied, err
}
