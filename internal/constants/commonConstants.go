package constants

type CachePrefix string

// CachePrefixCatalog is shared by every cached catalog read and is dropped
// wholesale after a refresh.
const CachePrefixCatalog CachePrefix = "catalog:"

// Key patterns under CachePrefixCatalog, also used as metric labels.
const (
	CachePrefixCinemas   CachePrefix = "cinemas"
	CachePrefixShowtimes CachePrefix = "showtimes"
	CachePrefixShow      CachePrefix = "show"
)

// Key builds the cache key for id under pattern p.
func (p CachePrefix) Key(id string) string {
	return string(CachePrefixCatalog) + string(p) + ":" + id
}
