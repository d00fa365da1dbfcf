package jobs

import (
	"schraper/catalog/internal/db"
	"schraper/catalog/internal/db/migrations"
	"schraper/catalog/internal/db/repositories"
	"schraper/catalog/internal/metrics"
	"schraper/catalog/internal/services"
)

// Jobs holds the catalog jobs, all recording into the same job log.
type Jobs struct {
	Tracker *Tracker
	Migrate *MigrateJob
	Load    *LoadJob
}

// InitializeJobs wires the migration and load jobs against store.
func InitializeJobs(store *db.Store, catalog *services.CatalogService, m *metrics.MetricsRegistry) *Jobs {
	tracker := NewTracker(repositories.NewJobLogRepo(store.ORM), m)
	runner := migrations.NewRunner(store.SQL, migrations.NewLocker(store.SQL), m)

	return &Jobs{
		Tracker: tracker,
		Migrate: NewMigrateJob(runner, tracker),
		Load:    NewLoadJob(catalog, tracker),
	}
}
