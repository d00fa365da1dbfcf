package migrations

// CatalogMigrations returns the schema history of the catalog store in the
// order it was written. Migration 2 is the first shape of the movie tables;
// migration 3 extends it in place instead of redefining the tables. Every
// statement tolerates objects created out of band in the target shape.
func CatalogMigrations() []Migration {
	return []Migration{
		{
			ID:   1,
			Name: "create_job_log",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS job_log (
					jobname TEXT NOT NULL,
					run_dt  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX IF NOT EXISTS job_log_run_dt_idx ON job_log (run_dt DESC)`,
			},
		},
		{
			ID:   2,
			Name: "create_catalog",
			Statements: []string{
				`CREATE TABLE IF NOT EXISTS cities (
					slug TEXT PRIMARY KEY,
					name TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS cinemas (
					slug      TEXT PRIMARY KEY,
					city_slug TEXT NOT NULL REFERENCES cities (slug),
					name      TEXT NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS ratings (
					slug           TEXT PRIMARY KEY,
					title          TEXT NOT NULL,
					description    TEXT,
					release_year   INTEGER,
					audience_score INTEGER,
					critics_score  INTEGER
				)`,
				`CREATE TABLE IF NOT EXISTS shows (
					slug       TEXT PRIMARY KEY,
					title      TEXT NOT NULL,
					release_at TEXT,
					movie_type TEXT NOT NULL,
					duration   INTEGER NOT NULL
				)`,
				`CREATE TABLE IF NOT EXISTS posters (
					show_slug TEXT PRIMARY KEY REFERENCES shows (slug),
					lg        TEXT,
					md        TEXT
				)`,
				`CREATE TABLE IF NOT EXISTS genres (
					show_slug TEXT NOT NULL REFERENCES shows (slug),
					genre     TEXT NOT NULL,
					PRIMARY KEY (show_slug, genre)
				)`,
				`CREATE TABLE IF NOT EXISTS showtimes (
					show_slug           TEXT NOT NULL REFERENCES shows (slug),
					cinema_slug         TEXT NOT NULL REFERENCES cinemas (slug),
					time                TEXT NOT NULL,
					end_time            TEXT,
					reservation_url     TEXT,
					auditorium_name     TEXT NOT NULL,
					auditorium_capacity TEXT,
					PRIMARY KEY (show_slug, cinema_slug, time, auditorium_name)
				)`,
			},
		},
		{
			ID:   3,
			Name: "extend_ratings",
			Statements: []string{
				`ALTER TABLE ratings ADD COLUMN IF NOT EXISTS score_sentiment TEXT`,
				`ALTER TABLE ratings ADD COLUMN IF NOT EXISTS want_to_see_count INTEGER`,
				`ALTER TABLE ratings ADD COLUMN IF NOT EXISTS certified_fresh BOOLEAN`,
				`ALTER TABLE ratings ADD COLUMN IF NOT EXISTS new_adjusted_tm_score INTEGER`,
				`ALTER TABLE shows ADD COLUMN IF NOT EXISTS rating_slug TEXT REFERENCES ratings (slug)`,
				`ALTER TABLE shows ADD COLUMN IF NOT EXISTS rating_match_score DOUBLE PRECISION`,
			},
		},
	}
}
