package migrations_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"schraper/catalog/internal/db"
	"schraper/catalog/internal/db/dbtest"
	"schraper/catalog/internal/db/migrations"
	"schraper/catalog/internal/dberrors"
	"schraper/catalog/internal/metrics"
)

func newRunner(store *db.Store) *migrations.Runner {
	return migrations.NewRunner(store.SQL, &migrations.LocalLock{}, nil)
}

func tableColumns(t *testing.T, store *db.Store, table string) []string {
	t.Helper()

	rows, err := store.SQL.Queryx(`SELECT name FROM pragma_table_info(?) ORDER BY cid`, table)
	require.NoError(t, err)
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		cols = append(cols, name)
	}
	require.NoError(t, rows.Err())
	return cols
}

func schemaSnapshot(t *testing.T, store *db.Store) []string {
	t.Helper()

	var sqls []string
	require.NoError(t, store.SQL.Select(&sqls,
		`SELECT sql FROM sqlite_master WHERE sql IS NOT NULL ORDER BY type, name`))
	return sqls
}

func TestApply_CatalogSchema(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	n, err := newRunner(store).Apply(ctx, migrations.CatalogMigrations())
	require.NoError(t, err)
	require.Equal(t, 3, n)

	require.Equal(t, []string{"jobname", "run_dt"}, tableColumns(t, store, "job_log"))
	require.Equal(t, []string{
		"slug", "title", "description", "release_year", "audience_score", "critics_score",
		"score_sentiment", "want_to_see_count", "certified_fresh", "new_adjusted_tm_score",
	}, tableColumns(t, store, "ratings"))
	require.Equal(t, []string{
		"slug", "title", "release_at", "movie_type", "duration", "rating_slug", "rating_match_score",
	}, tableColumns(t, store, "shows"))
	require.Equal(t, []string{
		"show_slug", "cinema_slug", "time", "end_time", "reservation_url", "auditorium_name", "auditorium_capacity",
	}, tableColumns(t, store, "showtimes"))

	var idx int
	require.NoError(t, store.SQL.Get(&idx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'job_log_run_dt_idx'`))
	require.Equal(t, 1, idx)
}

func TestApply_Idempotent(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()
	runner := newRunner(store)

	_, err := runner.Apply(ctx, migrations.CatalogMigrations())
	require.NoError(t, err)
	once := schemaSnapshot(t, store)

	n, err := runner.Apply(ctx, migrations.CatalogMigrations())
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, once, schemaSnapshot(t, store))

	applied, err := runner.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 3)
	require.Equal(t, "extend_ratings", applied[2].Name)
	require.False(t, applied[0].AppliedAt.IsZero())
}

func TestApply_OutOfOrderInputRunsAscending(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	all := migrations.CatalogMigrations()
	reversed := []migrations.Migration{all[2], all[0], all[1]}

	n, err := newRunner(store).Apply(ctx, reversed)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	applied, err := newRunner(store).Applied(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), applied[0].ID)
	require.Equal(t, int64(2), applied[1].ID)
	require.Equal(t, int64(3), applied[2].ID)
}

func TestApply_ExtendsAfterPartialHistory(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()
	runner := newRunner(store)
	all := migrations.CatalogMigrations()

	n, err := runner.Apply(ctx, all[:2])
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.NotContains(t, tableColumns(t, store, "shows"), "rating_slug")

	_, err = store.SQL.Exec(`INSERT INTO shows (slug, title, movie_type, duration) VALUES ('dune', 'Dune', 'movie', 155)`)
	require.NoError(t, err)

	n, err = runner.Apply(ctx, all)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Contains(t, tableColumns(t, store, "shows"), "rating_slug")

	var title string
	require.NoError(t, store.SQL.Get(&title, `SELECT title FROM shows WHERE slug = 'dune'`))
	require.Equal(t, "Dune", title)
}

func TestApply_FailureRollsBackAndHalts(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()
	reg := metrics.NewMetricsRegistry(prometheus.NewRegistry())
	runner := migrations.NewRunner(store.SQL, &migrations.LocalLock{}, reg)

	migs := []migrations.Migration{
		{ID: 1, Name: "ok", Statements: []string{`CREATE TABLE a (id INTEGER)`}},
		{ID: 2, Name: "broken", Statements: []string{
			`CREATE TABLE b (id INTEGER)`,
			`CREATE TABLE a (id INTEGER)`,
		}},
		{ID: 3, Name: "never", Statements: []string{`CREATE TABLE c (id INTEGER)`}},
	}

	n, err := runner.Apply(ctx, migs)
	require.Equal(t, 1, n)

	var migErr *dberrors.MigrationError
	require.ErrorAs(t, err, &migErr)
	require.Equal(t, int64(2), migErr.ID)
	require.NotNil(t, migErr.Cause)

	var count int
	require.NoError(t, store.SQL.Get(&count,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('b', 'c')`))
	require.Zero(t, count, "failed and later migrations must leave no tables behind")

	applied, err := runner.Applied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 1)
	require.Equal(t, 1.0, testutil.ToFloat64(reg.MigrationsTotal.WithLabelValues("failed")))
}

func TestApply_DuplicateIDsRejected(t *testing.T) {
	store := dbtest.NewStore(t)

	_, err := newRunner(store).Apply(context.Background(), []migrations.Migration{
		{ID: 1, Name: "first", Statements: []string{`CREATE TABLE a (id INTEGER)`}},
		{ID: 1, Name: "again", Statements: []string{`CREATE TABLE b (id INTEGER)`}},
	})

	var migErr *dberrors.MigrationError
	require.ErrorAs(t, err, &migErr)
	require.Equal(t, int64(1), migErr.ID)
}

func TestApply_InProgressFailsFast(t *testing.T) {
	store := dbtest.NewStore(t)
	lock := &migrations.LocalLock{}
	ctx := context.Background()

	release, err := lock.TryAcquire(ctx)
	require.NoError(t, err)

	_, err = migrations.NewRunner(store.SQL, lock, nil).Apply(ctx, migrations.CatalogMigrations())
	require.True(t, errors.Is(err, dberrors.ErrMigrationInProgress))
	require.True(t, dberrors.IsRetriable(err))

	release()

	n, err := migrations.NewRunner(store.SQL, lock, nil).Apply(ctx, migrations.CatalogMigrations())
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestApply_CancelledContext(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(store).Apply(ctx, migrations.CatalogMigrations())
	require.Error(t, err)
}

func TestApply_BrokenStatementIsNotRetriable(t *testing.T) {
	store := dbtest.NewStore(t)

	_, err := newRunner(store).Apply(context.Background(), []migrations.Migration{
		{ID: 1, Name: "broken", Statements: []string{`CREATE TABLE broken (`}},
	})

	var migErr *dberrors.MigrationError
	require.ErrorAs(t, err, &migErr)
	var storeErr *dberrors.StorageError
	require.False(t, errors.As(err, &storeErr), "a rejected statement is not an availability failure")
	require.False(t, dberrors.IsRetriable(err))
}

func TestApply_ToleratesTablesCreatedOutOfBand(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	_, err := store.SQL.Exec(`CREATE TABLE job_log (
		jobname TEXT NOT NULL,
		run_dt  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	require.NoError(t, err)
	_, err = store.SQL.Exec(`CREATE TABLE cities (slug TEXT PRIMARY KEY, name TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = store.SQL.Exec(`INSERT INTO cities (slug, name) VALUES ('ams', 'Amsterdam')`)
	require.NoError(t, err)

	n, err := newRunner(store).Apply(ctx, migrations.CatalogMigrations())
	require.NoError(t, err)
	require.Equal(t, 3, n)

	var name string
	require.NoError(t, store.SQL.Get(&name, `SELECT name FROM cities WHERE slug = 'ams'`))
	require.Equal(t, "Amsterdam", name)
	require.Contains(t, tableColumns(t, store, "shows"), "rating_slug")
}

func TestApply_ToleratesColumnsAddedOutOfBand(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx := context.Background()

	all := migrations.CatalogMigrations()
	_, err := newRunner(store).Apply(ctx, all[:2])
	require.NoError(t, err)

	_, err = store.SQL.Exec(`ALTER TABLE ratings ADD COLUMN score_sentiment TEXT`)
	require.NoError(t, err)

	n, err := newRunner(store).Apply(ctx, all)
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{
		"slug", "title", "description", "release_year", "audience_score", "critics_score",
		"score_sentiment", "want_to_see_count", "certified_fresh", "new_adjusted_tm_score",
	}, tableColumns(t, store, "ratings"))
}

func TestApply_ExpiredDeadline(t *testing.T) {
	store := dbtest.NewStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	_, err := newRunner(store).Apply(ctx, migrations.CatalogMigrations())

	var toErr *dberrors.TimeoutError
	require.ErrorAs(t, err, &toErr)
	require.True(t, dberrors.IsRetriable(err))
}
