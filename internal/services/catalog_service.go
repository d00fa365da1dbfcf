package services

import (
	"context"
	"encoding/json"
	"time"

	"schraper/catalog/internal/common"
	"schraper/catalog/internal/constants"
	"schraper/catalog/internal/db/repositories"
	"schraper/catalog/internal/logging"
	"schraper/catalog/internal/metrics"
	"schraper/catalog/internal/models/dtos"
	"schraper/catalog/internal/models/gorm"
)

// CatalogService fronts catalog reads with a cache and invalidates it whenever
// a refresh lands.
type CatalogService struct {
	repo    *repositories.CatalogRepo
	queries *repositories.CatalogQueryRepo
	cache   common.CacheInterface
	ttl     time.Duration
	metrics *metrics.MetricsRegistry
}

func NewCatalogService(
	repo *repositories.CatalogRepo,
	queries *repositories.CatalogQueryRepo,
	cache common.CacheInterface,
	ttl time.Duration,
	m *metrics.MetricsRegistry,
) *CatalogService {
	return &CatalogService{
		repo:    repo,
		queries: queries,
		cache:   cache,
		ttl:     ttl,
		metrics: m,
	}
}

// Close releases the cache backend.
func (s *CatalogService) Close() error {
	return s.cache.Close()
}

// Refresh upserts one batch and drops every cached read.
func (s *CatalogService) Refresh(ctx context.Context, records ...gorm.Record) (*repositories.UpsertResult, error) {
	result, err := s.repo.UpsertBatch(ctx, records...)
	if err != nil {
		return nil, err
	}
	s.cache.DeletePrefix(string(constants.CachePrefixCatalog))
	return result, nil
}

func (s *CatalogService) CinemasByCity(ctx context.Context, citySlug string) ([]gorm.Cinema, error) {
	return cached(s, constants.CachePrefixCinemas, citySlug, func() ([]gorm.Cinema, error) {
		return s.queries.CinemasByCity(ctx, citySlug)
	})
}

func (s *CatalogService) ShowtimesByCinema(ctx context.Context, cinemaSlug string) ([]gorm.Showtime, error) {
	return cached(s, constants.CachePrefixShowtimes, cinemaSlug, func() ([]gorm.Showtime, error) {
		return s.queries.ShowtimesByCinema(ctx, cinemaSlug)
	})
}

// ShowDetail returns nil for an unknown show.
func (s *CatalogService) ShowDetail(ctx context.Context, slug string) (*dtos.ShowDetail, error) {
	return cached(s, constants.CachePrefixShow, slug, func() (*dtos.ShowDetail, error) {
		return s.queries.ShowDetail(ctx, slug)
	})
}

// Counts is always read from the store.
func (s *CatalogService) Counts(ctx context.Context) (map[string]int64, error) {
	return s.queries.Counts(ctx)
}

func cached[T any](s *CatalogService, pattern constants.CachePrefix, id string, load func() (T, error)) (T, error) {
	key := pattern.Key(id)

	if data, found := s.cache.Get(key); found {
		var val T
		if err := json.Unmarshal(data, &val); err == nil {
			s.metrics.ObserveCache(string(pattern), true)
			return val, nil
		}
		logging.Warn("Discarding undecodable cache entry", "key", key)
		s.cache.Delete(key)
	}
	s.metrics.ObserveCache(string(pattern), false)

	val, err := load()
	if err != nil {
		return val, err
	}

	if data, err := json.Marshal(val); err == nil {
		s.cache.Set(key, data, s.ttl)
	}
	return val, nil
}
