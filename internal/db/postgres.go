package db

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"schraper/catalog/internal/config"
)

// Store bundles the sqlx handle used for migrations and read queries with the
// GORM handle used for writes. Both share one connection pool.
type Store struct {
	SQL *sqlx.DB
	ORM *gorm.DB
}

// Open connects to the configured database, retrying while it comes up.
func Open(cfg *config.Config) (*Store, error) {
	switch cfg.DBDriver {
	case config.DriverSQLite:
		return OpenSQLite(cfg.SQLitePath)
	default:
		return OpenPostgres(cfg.DatabaseURL)
	}
}

// OpenPostgres connects with lib/pq and wraps the pool for GORM.
func OpenPostgres(dsn string) (*Store, error) {
	var (
		sqlDB *sqlx.DB
		err   error
	)
	for i := 0; i < 10; i++ {
		sqlDB, err = sqlx.Connect("postgres", dsn)
		if err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	orm, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB.DB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to open gorm on postgres: %w", err)
	}
	return &Store{SQL: sqlDB, ORM: orm}, nil
}

// OpenSQLite opens a SQLite database with foreign keys enforced. The pool is
// capped at one connection so ":memory:" databases stay a single database.
func OpenSQLite(path string) (*Store, error) {
	sqlDB, err := sqlx.Connect("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)

	orm, err := gorm.Open(sqlite.New(sqlite.Config{Conn: sqlDB.DB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to open gorm on sqlite: %w", err)
	}
	return &Store{SQL: sqlDB, ORM: orm}, nil
}

// Close releases the shared pool.
func (s *Store) Close() error {
	return s.SQL.Close()
}
