package dtos

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"schraper/catalog/internal/matching"
	"schraper/catalog/internal/models/gorm"
)

// Snapshot is one catalog refresh as delivered by the data producer.
type Snapshot struct {
	Cities    []gorm.City     `json:"cities"`
	Cinemas   []gorm.Cinema   `json:"cinemas"`
	Ratings   []gorm.Rating   `json:"ratings"`
	Shows     []SnapshotShow  `json:"shows"`
	Showtimes []gorm.Showtime `json:"showtimes"`
}

// SnapshotShow is a show in the producer's nested shape.
type SnapshotShow struct {
	Slug             string          `json:"slug"`
	Title            string          `json:"title"`
	ReleaseAt        []string        `json:"release_at"`
	MovieType        string          `json:"type"`
	Duration         int             `json:"duration"`
	Poster           *SnapshotPoster `json:"poster,omitempty"`
	Genres           []string        `json:"genres"`
	RatingCandidates []gorm.Rating   `json:"rating_candidates,omitempty"`
}

type SnapshotPoster struct {
	Lg string `json:"lg"`
	Md string `json:"md"`
}

// DecodeSnapshot reads a JSON snapshot, rejecting unknown fields.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var s Snapshot
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &s, nil
}

// Records flattens the snapshot into catalog records. Nested shows become a
// Show, an optional Poster and one Genre per tag; the best rating candidate
// is matched on title and release year and linked to the show.
func (s *Snapshot) Records() []gorm.Record {
	records := make([]gorm.Record, 0, len(s.Cities)+len(s.Cinemas)+len(s.Ratings)+len(s.Shows)*3+len(s.Showtimes))

	for _, c := range s.Cities {
		records = append(records, c)
	}
	for _, c := range s.Cinemas {
		records = append(records, c)
	}
	for _, r := range s.Ratings {
		records = append(records, r)
	}
	for _, sh := range s.Shows {
		records = append(records, sh.flatten()...)
	}
	for _, st := range s.Showtimes {
		records = append(records, st)
	}
	return records
}

func (sh SnapshotShow) flatten() []gorm.Record {
	show := gorm.Show{
		Slug:      sh.Slug,
		Title:     sh.Title,
		MovieType: sh.MovieType,
		Duration:  sh.Duration,
	}
	if len(sh.ReleaseAt) > 0 {
		show.ReleaseAt = &sh.ReleaseAt[0]
	}

	var records []gorm.Record
	if rating, score, ok := sh.bestRating(); ok {
		show.RatingSlug = &rating.Slug
		show.RatingMatchScore = &score
		records = append(records, rating)
	}
	records = append(records, show)

	if sh.Poster != nil {
		lg, md := sh.Poster.Lg, sh.Poster.Md
		records = append(records, gorm.Poster{ShowSlug: sh.Slug, Lg: &lg, Md: &md})
	}
	for _, g := range sh.Genres {
		records = append(records, gorm.Genre{ShowSlug: sh.Slug, Genre: g})
	}
	return records
}

func (sh SnapshotShow) bestRating() (gorm.Rating, float64, bool) {
	if len(sh.RatingCandidates) == 0 {
		return gorm.Rating{}, 0, false
	}

	candidates := make([]matching.Candidate, len(sh.RatingCandidates))
	for i, r := range sh.RatingCandidates {
		candidates[i] = matching.Candidate{Slug: r.Slug, Title: r.Title, ReleaseYear: r.ReleaseYear}
	}

	var year *int
	if len(sh.ReleaseAt) > 0 {
		year = leadingYear(sh.ReleaseAt[0])
	}

	best, score, ok := matching.BestRating(candidates, sh.Title, year)
	if !ok {
		return gorm.Rating{}, 0, false
	}
	for _, r := range sh.RatingCandidates {
		if r.Slug == best.Slug {
			return r, score, true
		}
	}
	return gorm.Rating{}, 0, false
}

// leadingYear reads the year of an ISO-like date such as "2024-03-01".
func leadingYear(s string) *int {
	if len(s) < 4 {
		return nil
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return nil
	}
	return &y
}
