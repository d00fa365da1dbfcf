package jobs

import (
	"context"
	"fmt"
	"os"
	"time"

	"schraper/catalog/internal/constants"
	"schraper/catalog/internal/db/repositories"
	"schraper/catalog/internal/logging"
	"schraper/catalog/internal/models/dtos"
	"schraper/catalog/internal/services"
)

// LoadJob upserts a producer snapshot file into the catalog.
type LoadJob struct {
	catalog *services.CatalogService
	tracker *Tracker
}

func NewLoadJob(catalog *services.CatalogService, tracker *Tracker) *LoadJob {
	return &LoadJob{catalog: catalog, tracker: tracker}
}

// Run decodes the snapshot at path and writes it as one batch.
func (j *LoadJob) Run(ctx context.Context, path string) (*repositories.UpsertResult, error) {
	var result *repositories.UpsertResult

	err := j.tracker.Run(ctx, constants.JobCatalogLoad, func(ctx context.Context) error {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open snapshot: %w", err)
		}
		defer f.Close()

		snap, err := dtos.DecodeSnapshot(f)
		if err != nil {
			return err
		}

		result, err = j.catalog.Refresh(ctx, snap.Records()...)
		return err
	})
	if err != nil {
		return nil, err
	}

	logging.Info("Snapshot loaded", "path", path, "rows", result.Total())
	return result, nil
}

// shouldRunInitialLoad reports whether the last successful load is older than
// freshFor. Lookup errors count as stale.
func (j *LoadJob) shouldRunInitialLoad(ctx context.Context, freshFor time.Duration) bool {
	last, err := j.tracker.LastRun(ctx, constants.JobCatalogLoad)
	if err != nil {
		logging.Warn("Checking last catalog load failed, loading anyway", "error", err.Error())
		return true
	}
	if last == nil {
		logging.Info("No previous catalog load found")
		return true
	}

	age := time.Since(last.RunDT)
	if age > freshFor {
		logging.Info("Catalog is stale", "last_load_age", age.Truncate(time.Minute).String())
		return true
	}
	logging.Info("Catalog is fresh, skipping initial load", "last_load_age", age.Truncate(time.Minute).String())
	return false
}

// RunScheduled reloads path every interval until ctx is done. The first load
// happens immediately unless the catalog was loaded within one interval.
func (j *LoadJob) RunScheduled(ctx context.Context, path string, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if j.shouldRunInitialLoad(ctx, interval) {
		if _, err := j.Run(ctx, path); err != nil {
			logging.Error("Initial catalog load failed", "error", err.Error())
		}
	}

	for {
		select {
		case <-ticker.C:
			if _, err := j.Run(ctx, path); err != nil {
				logging.Error("Scheduled catalog load failed", "error", err.Error())
			}
		case <-ctx.Done():
			logging.Info("Shutting down scheduled catalog load")
			return
		}
	}
}
