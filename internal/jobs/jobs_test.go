package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"schraper/catalog/internal/common"
	"schraper/catalog/internal/constants"
	"schraper/catalog/internal/db"
	"schraper/catalog/internal/db/dbtest"
	"schraper/catalog/internal/db/migrations"
	"schraper/catalog/internal/db/repositories"
	"schraper/catalog/internal/dberrors"
	"schraper/catalog/internal/metrics"
	"schraper/catalog/internal/models/gorm"
	"schraper/catalog/internal/services"
)

func jobNames(t *testing.T, store *db.Store) []string {
	t.Helper()
	var names []string
	require.NoError(t, store.SQL.Select(&names, `SELECT jobname FROM job_log ORDER BY run_dt`))
	return names
}

func TestTracker_RecordsOutcome(t *testing.T) {
	store := dbtest.NewMigratedStore(t)
	reg := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	tracker := NewTracker(repositories.NewJobLogRepo(store.ORM), reg)
	ctx := context.Background()

	require.NoError(t, tracker.Run(ctx, "daily-refresh", func(context.Context) error { return nil }))

	boom := errors.New("boom")
	err := tracker.Run(ctx, "daily-refresh", func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)

	require.ElementsMatch(t, []string{"daily-refresh", "daily-refresh:failed"}, jobNames(t, store))
	require.Equal(t, 1.0, testutil.ToFloat64(reg.JobRunsTotal.WithLabelValues("daily-refresh", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(reg.JobRunsTotal.WithLabelValues("daily-refresh", "failed")))
}

func TestTracker_RecordsAfterCallerDeadline(t *testing.T) {
	store := dbtest.NewMigratedStore(t)
	tracker := NewTracker(repositories.NewJobLogRepo(store.ORM), nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	err := tracker.Run(ctx, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Equal(t, []string{"slow" + constants.FailedSuffix}, jobNames(t, store))
}

func TestTracker_JobLogUnavailable(t *testing.T) {
	store := dbtest.NewStore(t)
	tracker := NewTracker(repositories.NewJobLogRepo(store.ORM), nil)

	err := tracker.Run(context.Background(), "no-table", func(context.Context) error { return nil })

	require.ErrorContains(t, err, "no such table")
	require.False(t, dberrors.IsRetriable(err))
}

func TestMigrateJob(t *testing.T) {
	store := dbtest.NewStore(t)
	tracker := NewTracker(repositories.NewJobLogRepo(store.ORM), nil)
	job := NewMigrateJob(migrations.NewRunner(store.SQL, &migrations.LocalLock{}, nil), tracker)
	ctx := context.Background()

	applied, err := job.Run(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, applied)

	applied, err = job.Run(ctx)
	require.NoError(t, err)
	require.Zero(t, applied)

	require.Equal(t, []string{constants.JobMigrate, constants.JobMigrate}, jobNames(t, store))
}

const snapshot = `{
	"cities": [{"slug": "ams", "name": "Amsterdam"}],
	"cinemas": [{"slug": "pathe-ams", "city_slug": "ams", "name": "Pathé Amsterdam"}],
	"shows": [{
		"slug": "dune",
		"title": "Dune",
		"release_at": ["2021-09-16"],
		"type": "movie",
		"duration": 155,
		"genres": ["sci-fi"],
		"rating_candidates": [{"slug": "m/dune_2021", "title": "Dune", "release_year": 2021, "audience_score": 90}]
	}],
	"showtimes": [{"show_slug": "dune", "cinema_slug": "pathe-ams", "time": "20:00", "auditorium_name": "1"}]
}`

func newLoadJob(t *testing.T) (*db.Store, *LoadJob) {
	t.Helper()

	store := dbtest.NewMigratedStore(t)
	svc := services.NewCatalogService(
		repositories.NewCatalogRepo(store.ORM, nil),
		repositories.NewCatalogQueryRepo(store.SQL),
		common.NewCacheService(time.Minute, time.Minute),
		time.Minute,
		nil,
	)
	return store, NewLoadJob(svc, NewTracker(repositories.NewJobLogRepo(store.ORM), nil))
}

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadJob(t *testing.T) {
	store, job := newLoadJob(t)

	result, err := job.Run(context.Background(), writeSnapshot(t, snapshot))
	require.NoError(t, err)
	require.Equal(t, 6, result.Total())
	require.Equal(t, 1, result.Rows[gorm.KindRating])

	var show gorm.Show
	require.NoError(t, store.ORM.First(&show, "slug = ?", "dune").Error)
	require.Equal(t, "m/dune_2021", *show.RatingSlug)
	require.Equal(t, []string{constants.JobCatalogLoad}, jobNames(t, store))
}

func TestLoadJob_RejectedSnapshotRecordsFailure(t *testing.T) {
	store, job := newLoadJob(t)

	body := `{"showtimes": [{"show_slug": "ghost", "cinema_slug": "nowhere", "time": "20:00", "auditorium_name": "1"}]}`
	_, err := job.Run(context.Background(), writeSnapshot(t, body))

	var refErr *dberrors.ReferentialError
	require.ErrorAs(t, err, &refErr)
	require.Equal(t, []string{constants.JobCatalogLoad + constants.FailedSuffix}, jobNames(t, store))
}

func TestLoadJob_MissingFile(t *testing.T) {
	_, job := newLoadJob(t)

	_, err := job.Run(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadJob_ShouldRunInitialLoad(t *testing.T) {
	store, job := newLoadJob(t)
	ctx := context.Background()

	require.True(t, job.shouldRunInitialLoad(ctx, time.Hour))

	_, err := repositories.NewJobLogRepo(store.ORM).Record(ctx, constants.JobCatalogLoad)
	require.NoError(t, err)
	require.False(t, job.shouldRunInitialLoad(ctx, time.Hour))

	// a failed run does not count as fresh
	store2, job2 := newLoadJob(t)
	_, err = repositories.NewJobLogRepo(store2.ORM).Record(ctx, constants.JobCatalogLoad+constants.FailedSuffix)
	require.NoError(t, err)
	require.True(t, job2.shouldRunInitialLoad(ctx, time.Hour))
}

func TestLoadJob_RunScheduled(t *testing.T) {
	store, job := newLoadJob(t)
	path := writeSnapshot(t, snapshot)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		job.RunScheduled(ctx, path, time.Hour)
	}()

	require.Eventually(t, func() bool {
		var n int
		return store.SQL.Get(&n, `SELECT COUNT(*) FROM job_log`) == nil && n == 1
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("RunScheduled did not stop after cancel")
	}
}
