package constants

// Catalog read queries. Placeholders are written as ? and rebound per driver.
const (
	GetCinemasByCity = `
	SELECT slug, city_slug, name FROM cinemas WHERE city_slug = ? ORDER BY name, slug
	`

	GetShowtimesByCinema = `
	SELECT show_slug, cinema_slug, time, end_time, reservation_url, auditorium_name, auditorium_capacity
	FROM showtimes
	WHERE cinema_slug = ?
	ORDER BY time, show_slug, auditorium_name
	`

	GetShowBySlug = `
	SELECT slug, title, release_at, movie_type, duration, rating_slug, rating_match_score
	FROM shows WHERE slug = ?
	`

	GetPosterByShow = `
	SELECT show_slug, lg, md FROM posters WHERE show_slug = ?
	`

	GetGenresByShow = `
	SELECT genre FROM genres WHERE show_slug = ? ORDER BY genre
	`

	GetRatingBySlug = `
	SELECT slug, title, description, release_year, audience_score, critics_score,
		score_sentiment, want_to_see_count, certified_fresh, new_adjusted_tm_score
	FROM ratings WHERE slug = ?
	`
)

// CatalogTables lists every catalog table in write order, then the job log.
var CatalogTables = []string{
	"cities",
	"cinemas",
	"ratings",
	"shows",
	"posters",
	"genres",
	"showtimes",
	"job_log",
}
