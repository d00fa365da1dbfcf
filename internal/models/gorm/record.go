package gorm

import (
	"math"
	"strings"

	"schraper/catalog/internal/dberrors"
)

// EntityKind names one catalog table.
type EntityKind string

const (
	KindCity     EntityKind = "city"
	KindCinema   EntityKind = "cinema"
	KindRating   EntityKind = "rating"
	KindShow     EntityKind = "show"
	KindPoster   EntityKind = "poster"
	KindGenre    EntityKind = "genre"
	KindShowtime EntityKind = "showtime"
)

// KindOrder lists the kinds parents first, the order batches are written in.
var KindOrder = []EntityKind{
	KindCity,
	KindCinema,
	KindRating,
	KindShow,
	KindPoster,
	KindGenre,
	KindShowtime,
}

// Ref is a foreign key held by a record. Slug is the referenced parent's key.
type Ref struct {
	Field string
	Kind  EntityKind
	Slug  string
}

// Record is a validated row of one catalog table.
type Record interface {
	Kind() EntityKind
	// Key renders the primary key; records with equal keys replace each other.
	Key() string
	Validate() error
	// Refs returns the parent rows this record depends on.
	Refs() []Ref
}

// compositeKey joins key parts with a separator that cannot appear in slugs.
func compositeKey(parts ...string) string {
	return strings.Join(parts, "\x1f")
}

func required(kind EntityKind, field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &dberrors.ValidationError{Kind: string(kind), Field: field, Value: value}
	}
	return nil
}

func percent(kind EntityKind, field string, value *int) error {
	if value != nil && (*value < 0 || *value > 100) {
		return &dberrors.ValidationError{Kind: string(kind), Field: field, Value: *value}
	}
	return nil
}

func nonNegative(kind EntityKind, field string, value *int) error {
	if value != nil && *value < 0 {
		return &dberrors.ValidationError{Kind: string(kind), Field: field, Value: *value}
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func finiteNonNegative(kind EntityKind, field string, value *float64) error {
	if value != nil && (math.IsNaN(*value) || math.IsInf(*value, 0) || *value < 0) {
		return &dberrors.ValidationError{Kind: string(kind), Field: field, Value: *value}
	}
	return nil
}
