// Package dberrors defines the error types returned by the migration runner,
// the catalog upsert layer and the job log. Callers use errors.As to pick the
// failure apart and IsRetriable to decide whether to back off and try again.
package dberrors

import (
	"context"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// ErrMigrationInProgress is returned when another runner holds the migration lock.
var ErrMigrationInProgress = errors.New("migration in progress")

// MigrationError halts a migration run. The failed migration was rolled back
// and no later migration was attempted.
type MigrationError struct {
	ID    int64
	Name  string
	Cause error
}

func (e *MigrationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("migration %d (%s) failed: %v", e.ID, e.Name, e.Cause)
	}
	return fmt.Sprintf("migration %d failed: %v", e.ID, e.Cause)
}

func (e *MigrationError) Unwrap() error { return e.Cause }

// ReferentialError rejects a whole batch because a required parent row is
// neither in the batch nor in the store.
type ReferentialError struct {
	Kind  string
	Field string
	Ref   string
}

func (e *ReferentialError) Error() string {
	return fmt.Sprintf("%s.%s references missing row %q", e.Kind, e.Field, e.Ref)
}

// ValidationError rejects a record whose field is missing or out of range.
type ValidationError struct {
	Kind  string
	Field string
	Value any
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s.%s: %v", e.Kind, e.Field, e.Value)
}

// StorageError wraps a transport or availability failure of the store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// TimeoutError is returned when the caller supplied deadline expired.
type TimeoutError struct {
	Op  string
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout during %s: %v", e.Op, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// Classify maps a raw store error onto the taxonomy. Errors that are already
// typed pass through untouched; cancellation is returned as the context error.
// Only transport and availability failures become a StorageError. Statement
// errors the store rejected (syntax, constraints, missing objects) are wrapped
// with op and stay non-retriable.
func Classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		migErr   *MigrationError
		refErr   *ReferentialError
		valErr   *ValidationError
		storeErr *StorageError
		toErr    *TimeoutError
	)
	switch {
	case errors.As(err, &migErr), errors.As(err, &refErr), errors.As(err, &valErr),
		errors.As(err, &storeErr), errors.As(err, &toErr),
		errors.Is(err, ErrMigrationInProgress):
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s cancelled: %w", op, context.Canceled)
	}
	if rejected(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return &StorageError{Op: op, Err: err}
}

// rejected reports whether err is a driver error for a statement the store
// refused, as opposed to the store being unreachable or overloaded. Errors
// that carry no driver code (closed pool, network) are not rejections.
func rejected(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", // connection exception
			"40", // transaction rollback, serialization failure
			"53", // insufficient resources
			"57", // operator intervention
			"58": // system error
			return false
		}
		return true
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrIoErr,
			sqlite3.ErrCantOpen, sqlite3.ErrFull, sqlite3.ErrNomem:
			return false
		}
		return true
	}
	return false
}

// IsRetriable reports whether the caller may retry the operation later. A
// failed migration never is: it needs an operator to fix the change-set.
func IsRetriable(err error) bool {
	var migErr *MigrationError
	if errors.As(err, &migErr) {
		return false
	}

	var (
		storeErr *StorageError
		toErr    *TimeoutError
	)
	return errors.As(err, &storeErr) || errors.As(err, &toErr) || errors.Is(err, ErrMigrationInProgress)
}
