// Package migrations applies ordered, idempotent DDL change-sets and keeps a
// ledger of the ones already applied.
package migrations

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"schraper/catalog/internal/dberrors"
	"schraper/catalog/internal/logging"
	"schraper/catalog/internal/metrics"
)

// Migration is one change-set. All statements run in a single transaction.
type Migration struct {
	ID         int64
	Name       string
	Statements []string
}

// AppliedMigration is a ledger row.
type AppliedMigration struct {
	ID        int64     `db:"id"`
	Name      string    `db:"name"`
	AppliedAt time.Time `db:"applied_at"`
}

const createLedger = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		id         BIGINT PRIMARY KEY,
		name       TEXT NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

// Runner applies migrations against a store.
type Runner struct {
	db      *sqlx.DB
	locker  Locker
	metrics *metrics.MetricsRegistry
}

// NewRunner creates a Runner. A nil locker selects one from the driver.
func NewRunner(db *sqlx.DB, locker Locker, m *metrics.MetricsRegistry) *Runner {
	if locker == nil {
		locker = NewLocker(db)
	}
	return &Runner{db: db, locker: locker, metrics: m}
}

// Apply runs every migration whose id is not in the ledger, in ascending id
// order, and returns how many were applied. The first failure rolls back its
// migration and stops the run with a *dberrors.MigrationError.
func (r *Runner) Apply(ctx context.Context, migrations []Migration) (int, error) {
	ordered, err := sortMigrations(migrations)
	if err != nil {
		return 0, err
	}

	release, err := r.locker.TryAcquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	if _, err := r.db.ExecContext(ctx, createLedger); err != nil {
		return 0, dberrors.Classify(ctx, "create migration ledger", err)
	}

	applied, err := r.appliedIDs(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, m := range ordered {
		if applied[m.ID] {
			r.metrics.ObserveMigration("skipped")
			continue
		}

		logging.Info("Applying migration", "id", m.ID, "name", m.Name, "statements", len(m.Statements))
		start := time.Now()

		if err := r.applyOne(ctx, m); err != nil {
			r.metrics.ObserveMigration("failed")
			logging.Error("Migration failed", "id", m.ID, "name", m.Name, "error", err.Error())
			return count, &dberrors.MigrationError{ID: m.ID, Name: m.Name, Cause: err}
		}

		r.metrics.ObserveMigration("applied")
		logging.Info("Migration applied", "id", m.ID, "name", m.Name,
			"duration", time.Since(start).Truncate(time.Millisecond).String())
		count++
	}

	return count, nil
}

// Applied returns the ledger ordered by id.
func (r *Runner) Applied(ctx context.Context) ([]AppliedMigration, error) {
	if _, err := r.db.ExecContext(ctx, createLedger); err != nil {
		return nil, dberrors.Classify(ctx, "create migration ledger", err)
	}

	var rows []AppliedMigration
	if err := r.db.SelectContext(ctx, &rows, `SELECT id, name, applied_at FROM schema_migrations ORDER BY id`); err != nil {
		return nil, dberrors.Classify(ctx, "list applied migrations", err)
	}
	return rows, nil
}

func (r *Runner) appliedIDs(ctx context.Context) (map[int64]bool, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM schema_migrations`); err != nil {
		return nil, dberrors.Classify(ctx, "query applied migrations", err)
	}

	applied := make(map[int64]bool, len(ids))
	for _, id := range ids {
		applied[id] = true
	}
	return applied, nil
}

// applyOne records the ledger row in the same transaction as the DDL.
func (r *Runner) applyOne(ctx context.Context, m Migration) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return dberrors.Classify(ctx, "begin migration", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range m.Statements {
		op := fmt.Sprintf("statement %d", i+1)
		stmt, skip, err := r.portable(ctx, tx, stmt)
		if err != nil {
			return dberrors.Classify(ctx, op, err)
		}
		if skip {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return dberrors.Classify(ctx, op, err)
		}
	}

	insert := tx.Rebind(`INSERT INTO schema_migrations (id, name) VALUES (?, ?)`)
	if _, err := tx.ExecContext(ctx, insert, m.ID, m.Name); err != nil {
		return dberrors.Classify(ctx, "record migration", err)
	}

	if err := tx.Commit(); err != nil {
		return dberrors.Classify(ctx, "commit migration", err)
	}
	return nil
}

var addColumnIfNotExists = regexp.MustCompile(`(?is)^(\s*ALTER\s+TABLE\s+(\w+)\s+ADD\s+COLUMN\s+)IF\s+NOT\s+EXISTS\s+((\w+).*)$`)

// portable adapts stmt to drivers without ADD COLUMN IF NOT EXISTS. On
// SQLite the clause is dropped, and the statement is skipped when the column
// is already there.
func (r *Runner) portable(ctx context.Context, tx *sqlx.Tx, stmt string) (string, bool, error) {
	if r.db.DriverName() != "sqlite3" {
		return stmt, false, nil
	}
	m := addColumnIfNotExists.FindStringSubmatch(stmt)
	if m == nil {
		return stmt, false, nil
	}
	table, column := m[2], m[4]

	var n int
	err := tx.GetContext(ctx, &n, `SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column)
	if err != nil {
		return "", false, fmt.Errorf("inspect %s.%s: %w", table, column, err)
	}
	if n > 0 {
		return "", true, nil
	}
	return m[1] + m[3], false, nil
}

// sortMigrations returns a copy sorted by id. Duplicate ids are rejected so a
// renamed or re-declared change-set cannot silently shadow another.
func sortMigrations(migrations []Migration) ([]Migration, error) {
	ordered := make([]Migration, len(migrations))
	copy(ordered, migrations)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ID < ordered[j].ID
	})

	for i := range ordered {
		if ordered[i].ID <= 0 {
			return nil, &dberrors.MigrationError{ID: ordered[i].ID, Name: ordered[i].Name,
				Cause: fmt.Errorf("migration ids must be positive")}
		}
		if i > 0 && ordered[i].ID == ordered[i-1].ID {
			return nil, &dberrors.MigrationError{ID: ordered[i].ID, Name: ordered[i].Name,
				Cause: fmt.Errorf("duplicate migration id (also used by %q)", ordered[i-1].Name)}
		}
	}
	return ordered, nil
}
