package repositories

import (
	"context"
	"fmt"
	"time"

	"schraper/catalog/internal/dberrors"
	"schraper/catalog/internal/logging"
	"schraper/catalog/internal/metrics"
	"schraper/catalog/internal/models/gorm"

	gormlib "gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const upsertChunkSize = 500

// parent tables that other records reference by slug
var slugTables = map[gorm.EntityKind]string{
	gorm.KindCity:   gorm.City{}.TableName(),
	gorm.KindCinema: gorm.Cinema{}.TableName(),
	gorm.KindRating: gorm.Rating{}.TableName(),
	gorm.KindShow:   gorm.Show{}.TableName(),
}

// UpsertResult reports how many distinct rows of each kind a batch wrote.
type UpsertResult struct {
	Rows map[gorm.EntityKind]int
}

// Total returns the number of rows written across all kinds.
func (r *UpsertResult) Total() int {
	total := 0
	for _, n := range r.Rows {
		total += n
	}
	return total
}

// CatalogRepo writes catalog records
type CatalogRepo struct {
	db      *gormlib.DB
	metrics *metrics.MetricsRegistry
}

// NewCatalogRepo creates a new catalog repository
func NewCatalogRepo(db *gormlib.DB, m *metrics.MetricsRegistry) *CatalogRepo {
	return &CatalogRepo{db: db, metrics: m}
}

// Upsert writes a batch that must contain records of a single kind.
func (r *CatalogRepo) Upsert(ctx context.Context, kind gorm.EntityKind, records ...gorm.Record) (*UpsertResult, error) {
	for _, rec := range records {
		if rec != nil && rec.Kind() != kind {
			return nil, &dberrors.ValidationError{Kind: string(kind), Field: "kind", Value: rec.Kind()}
		}
	}
	return r.UpsertBatch(ctx, records...)
}

// UpsertBatch validates records, orders them parents first and writes them in
// one transaction with insert-or-replace on the primary key. Records sharing a
// key collapse to the last one. A reference to a parent missing from both the
// batch and the store fails the whole batch with *dberrors.ReferentialError.
func (r *CatalogRepo) UpsertBatch(ctx context.Context, records ...gorm.Record) (*UpsertResult, error) {
	start := time.Now()

	b, err := newBatch(records)
	if err != nil {
		r.metrics.ObserveUpsert("invalid", time.Since(start).Seconds(), nil)
		return nil, err
	}

	result := &UpsertResult{Rows: make(map[gorm.EntityKind]int, len(b.groups))}
	if b.size() == 0 {
		return result, nil
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gormlib.DB) error {
		if err := b.checkRefs(tx); err != nil {
			return err
		}

		for _, kind := range gorm.KindOrder {
			recs := b.groups[kind]
			if len(recs) == 0 {
				continue
			}
			if err := writeKind(tx, kind, recs); err != nil {
				return fmt.Errorf("write %s: %w", kind, err)
			}
			result.Rows[kind] = len(recs)
		}
		return nil
	})
	if err != nil {
		err = dberrors.Classify(ctx, "upsert batch", err)
		r.metrics.ObserveUpsert("failed", time.Since(start).Seconds(), nil)
		logging.Warn("Catalog batch rejected", "records", len(records), "error", err.Error())
		return nil, err
	}

	rows := make(map[string]int, len(result.Rows))
	for kind, n := range result.Rows {
		rows[string(kind)] = n
	}
	r.metrics.ObserveUpsert("ok", time.Since(start).Seconds(), rows)
	logging.Info("Catalog batch upserted",
		"rows", result.Total(),
		"duration", time.Since(start).Truncate(time.Millisecond).String(),
	)
	return result, nil
}

// batch groups deduplicated records by kind.
type batch struct {
	groups map[gorm.EntityKind][]gorm.Record
	keys   map[gorm.EntityKind]map[string]int
}

func newBatch(records []gorm.Record) (*batch, error) {
	b := &batch{
		groups: make(map[gorm.EntityKind][]gorm.Record),
		keys:   make(map[gorm.EntityKind]map[string]int),
	}

	for i, rec := range records {
		rec, err := normalize(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if err := rec.Validate(); err != nil {
			return nil, err
		}

		kind := rec.Kind()
		if b.keys[kind] == nil {
			b.keys[kind] = make(map[string]int)
		}
		if pos, ok := b.keys[kind][rec.Key()]; ok {
			b.groups[kind][pos] = rec
			continue
		}
		b.keys[kind][rec.Key()] = len(b.groups[kind])
		b.groups[kind] = append(b.groups[kind], rec)
	}
	return b, nil
}

func (b *batch) size() int {
	n := 0
	for _, recs := range b.groups {
		n += len(recs)
	}
	return n
}

func (b *batch) has(kind gorm.EntityKind, slug string) bool {
	_, ok := b.keys[kind][slug]
	return ok
}

type pendingRef struct {
	owner gorm.EntityKind
	ref   gorm.Ref
}

// checkRefs resolves every reference against the batch, then the store.
// The first unresolved reference in write order is reported.
func (b *batch) checkRefs(tx *gormlib.DB) error {
	var pending []pendingRef
	lookups := make(map[gorm.EntityKind]map[string]bool)

	for _, kind := range gorm.KindOrder {
		for _, rec := range b.groups[kind] {
			for _, ref := range rec.Refs() {
				if b.has(ref.Kind, ref.Slug) {
					continue
				}
				pending = append(pending, pendingRef{owner: kind, ref: ref})
				if lookups[ref.Kind] == nil {
					lookups[ref.Kind] = make(map[string]bool)
				}
				lookups[ref.Kind][ref.Slug] = false
			}
		}
	}
	if len(pending) == 0 {
		return nil
	}

	for kind, slugs := range lookups {
		wanted := make([]string, 0, len(slugs))
		for slug := range slugs {
			wanted = append(wanted, slug)
		}

		for start := 0; start < len(wanted); start += upsertChunkSize {
			end := min(start+upsertChunkSize, len(wanted))

			var found []string
			err := tx.Table(slugTables[kind]).
				Where("slug IN ?", wanted[start:end]).
				Pluck("slug", &found).Error
			if err != nil {
				return fmt.Errorf("lookup %s references: %w", kind, err)
			}
			for _, slug := range found {
				slugs[slug] = true
			}
		}
	}

	for _, p := range pending {
		if !lookups[p.ref.Kind][p.ref.Slug] {
			return &dberrors.ReferentialError{Kind: string(p.owner), Field: p.ref.Field, Ref: p.ref.Slug}
		}
	}
	return nil
}

func onConflict(keys []string, updates []string) clause.OnConflict {
	cols := make([]clause.Column, len(keys))
	for i, k := range keys {
		cols[i] = clause.Column{Name: k}
	}
	if len(updates) == 0 {
		return clause.OnConflict{Columns: cols, DoNothing: true}
	}
	return clause.OnConflict{Columns: cols, DoUpdates: clause.AssignmentColumns(updates)}
}

// writeKind upserts one group. ON CONFLICT (pk) DO UPDATE replaces every
// non-key column; genres are all key and only need DO NOTHING.
func writeKind(tx *gormlib.DB, kind gorm.EntityKind, recs []gorm.Record) error {
	switch kind {
	case gorm.KindCity:
		rows := collect[gorm.City](recs)
		return tx.Clauses(onConflict([]string{"slug"}, []string{"name"})).
			CreateInBatches(&rows, upsertChunkSize).Error
	case gorm.KindCinema:
		rows := collect[gorm.Cinema](recs)
		return tx.Clauses(onConflict([]string{"slug"}, []string{"city_slug", "name"})).
			CreateInBatches(&rows, upsertChunkSize).Error
	case gorm.KindRating:
		rows := collect[gorm.Rating](recs)
		return tx.Clauses(onConflict([]string{"slug"}, []string{
			"title", "description", "release_year", "audience_score", "critics_score",
			"score_sentiment", "want_to_see_count", "certified_fresh", "new_adjusted_tm_score",
		})).CreateInBatches(&rows, upsertChunkSize).Error
	case gorm.KindShow:
		rows := collect[gorm.Show](recs)
		return tx.Clauses(onConflict([]string{"slug"}, []string{
			"title", "release_at", "movie_type", "duration", "rating_slug", "rating_match_score",
		})).CreateInBatches(&rows, upsertChunkSize).Error
	case gorm.KindPoster:
		rows := collect[gorm.Poster](recs)
		return tx.Clauses(onConflict([]string{"show_slug"}, []string{"lg", "md"})).
			CreateInBatches(&rows, upsertChunkSize).Error
	case gorm.KindGenre:
		rows := collect[gorm.Genre](recs)
		return tx.Clauses(onConflict([]string{"show_slug", "genre"}, nil)).
			CreateInBatches(&rows, upsertChunkSize).Error
	case gorm.KindShowtime:
		rows := collect[gorm.Showtime](recs)
		return tx.Clauses(onConflict(
			[]string{"show_slug", "cinema_slug", "time", "auditorium_name"},
			[]string{"end_time", "reservation_url", "auditorium_capacity"},
		)).CreateInBatches(&rows, upsertChunkSize).Error
	}
	return fmt.Errorf("unknown entity kind %q", kind)
}

func collect[T gorm.Record](recs []gorm.Record) []T {
	rows := make([]T, 0, len(recs))
	for _, rec := range recs {
		if row, ok := rec.(T); ok {
			rows = append(rows, row)
		}
	}
	return rows
}

// normalize turns pointer records into values so each group holds one type.
func normalize(rec gorm.Record) (gorm.Record, error) {
	var nilPtr bool
	switch v := rec.(type) {
	case nil:
		nilPtr = true
	case *gorm.City:
		if nilPtr = v == nil; !nilPtr {
			return *v, nil
		}
	case *gorm.Cinema:
		if nilPtr = v == nil; !nilPtr {
			return *v, nil
		}
	case *gorm.Rating:
		if nilPtr = v == nil; !nilPtr {
			return *v, nil
		}
	case *gorm.Show:
		if nilPtr = v == nil; !nilPtr {
			return *v, nil
		}
	case *gorm.Poster:
		if nilPtr = v == nil; !nilPtr {
			return *v, nil
		}
	case *gorm.Genre:
		if nilPtr = v == nil; !nilPtr {
			return *v, nil
		}
	case *gorm.Showtime:
		if nilPtr = v == nil; !nilPtr {
			return *v, nil
		}
	case gorm.City, gorm.Cinema, gorm.Rating, gorm.Show, gorm.Poster, gorm.Genre, gorm.Showtime:
		return rec, nil
	default:
		return nil, &dberrors.ValidationError{Kind: "record", Field: "type", Value: fmt.Sprintf("%T", rec)}
	}
	return nil, &dberrors.ValidationError{Kind: "record", Field: "value", Value: nil}
}
