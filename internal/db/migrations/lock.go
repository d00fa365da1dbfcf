package migrations

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/jmoiron/sqlx"

	"schraper/catalog/internal/dberrors"
)

// Locker provides mutual exclusion between migration runners. TryAcquire
// never blocks on a held lock: it returns dberrors.ErrMigrationInProgress.
type Locker interface {
	TryAcquire(ctx context.Context) (release func(), err error)
}

// NewLocker picks the lock implementation matching the database driver.
func NewLocker(db *sqlx.DB) Locker {
	if db.DriverName() == "postgres" {
		return NewPostgresLock(db, "catalog_migrations")
	}
	return localLock
}

// one process-wide lock for every non-postgres store
var localLock = &LocalLock{}

// PostgresLock uses a session-level advisory lock held on a dedicated
// connection for the lifetime of the run.
type PostgresLock struct {
	db     *sqlx.DB
	lockID int64
}

// NewPostgresLock creates a PostgresLock keyed on the FNV-1a hash of key.
func NewPostgresLock(db *sqlx.DB, key string) *PostgresLock {
	return &PostgresLock{db: db, lockID: hashLockKey(key)}
}

func (l *PostgresLock) TryAcquire(ctx context.Context) (func(), error) {
	conn, err := l.db.Connx(ctx)
	if err != nil {
		return nil, dberrors.Classify(ctx, "acquire migration lock", err)
	}

	var locked bool
	if err := conn.QueryRowxContext(ctx, `SELECT pg_try_advisory_lock($1)`, l.lockID).Scan(&locked); err != nil {
		_ = conn.Close()
		return nil, dberrors.Classify(ctx, "acquire migration lock", fmt.Errorf("pg_try_advisory_lock(%d): %w", l.lockID, err))
	}
	if !locked {
		_ = conn.Close()
		return nil, dberrors.ErrMigrationInProgress
	}

	release := func() {
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, l.lockID)
		_ = conn.Close()
	}
	return release, nil
}

// LocalLock is an in-process lock for SQLite, which has no advisory locks.
// Cross-process writers are still serialized by SQLite's file locking.
type LocalLock struct {
	mu sync.Mutex
}

func (l *LocalLock) TryAcquire(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, dberrors.Classify(ctx, "acquire migration lock", err)
	}
	if !l.mu.TryLock() {
		return nil, dberrors.ErrMigrationInProgress
	}
	return l.mu.Unlock, nil
}

func hashLockKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64() & 0x7FFFFFFFFFFFFFFF)
}
