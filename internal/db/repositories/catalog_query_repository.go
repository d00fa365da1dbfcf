package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"schraper/catalog/internal/constants"
	"schraper/catalog/internal/dberrors"
	"schraper/catalog/internal/models/dtos"
	"schraper/catalog/internal/models/gorm"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"
)

// CatalogQueryRepo serves read queries over the catalog with sqlx.
type CatalogQueryRepo struct {
	db *sqlx.DB
}

func NewCatalogQueryRepo(db *sqlx.DB) *CatalogQueryRepo {
	return &CatalogQueryRepo{db: db}
}

func (r *CatalogQueryRepo) CinemasByCity(ctx context.Context, citySlug string) ([]gorm.Cinema, error) {
	cinemas := []gorm.Cinema{}
	if err := r.db.SelectContext(ctx, &cinemas, r.db.Rebind(constants.GetCinemasByCity), citySlug); err != nil {
		return nil, dberrors.Classify(ctx, "cinemas by city", err)
	}
	return cinemas, nil
}

func (r *CatalogQueryRepo) ShowtimesByCinema(ctx context.Context, cinemaSlug string) ([]gorm.Showtime, error) {
	showtimes := []gorm.Showtime{}
	if err := r.db.SelectContext(ctx, &showtimes, r.db.Rebind(constants.GetShowtimesByCinema), cinemaSlug); err != nil {
		return nil, dberrors.Classify(ctx, "showtimes by cinema", err)
	}
	return showtimes, nil
}

// ShowDetail loads a show with its poster, genres and matched rating.
// It returns nil when the show does not exist.
func (r *CatalogQueryRepo) ShowDetail(ctx context.Context, slug string) (*dtos.ShowDetail, error) {
	var detail dtos.ShowDetail

	err := r.db.GetContext(ctx, &detail.Show, r.db.Rebind(constants.GetShowBySlug), slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dberrors.Classify(ctx, "show detail", err)
	}

	var poster gorm.Poster
	err = r.db.GetContext(ctx, &poster, r.db.Rebind(constants.GetPosterByShow), slug)
	switch {
	case err == nil:
		detail.Poster = &poster
	case !errors.Is(err, sql.ErrNoRows):
		return nil, dberrors.Classify(ctx, "show poster", err)
	}

	detail.Genres = []string{}
	if err := r.db.SelectContext(ctx, &detail.Genres, r.db.Rebind(constants.GetGenresByShow), slug); err != nil {
		return nil, dberrors.Classify(ctx, "show genres", err)
	}

	if detail.Show.RatingSlug != nil {
		var rating gorm.Rating
		err = r.db.GetContext(ctx, &rating, r.db.Rebind(constants.GetRatingBySlug), *detail.Show.RatingSlug)
		switch {
		case err == nil:
			detail.Rating = &rating
		case !errors.Is(err, sql.ErrNoRows):
			return nil, dberrors.Classify(ctx, "show rating", err)
		}
	}

	return &detail, nil
}

// Counts returns the row count of every catalog table, queried concurrently.
func (r *CatalogQueryRepo) Counts(ctx context.Context) (map[string]int64, error) {
	var mu sync.Mutex
	counts := make(map[string]int64, len(constants.CatalogTables))

	g, gctx := errgroup.WithContext(ctx)
	for _, table := range constants.CatalogTables {
		g.Go(func() error {
			var n int64
			// table names come from a fixed list
			if err := r.db.GetContext(gctx, &n, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)); err != nil {
				return fmt.Errorf("count %s: %w", table, err)
			}
			mu.Lock()
			counts[table] = n
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, dberrors.Classify(ctx, "catalog counts", err)
	}
	return counts, nil
}
