// Package matching picks the review aggregator entry that best fits a show.
package matching

import (
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// yearWeight is the score penalty per year of release year difference.
const yearWeight = 0.1

// Candidate is one search hit from the review aggregator.
type Candidate struct {
	Slug        string
	Title       string
	ReleaseYear *int
}

// Score rates how far a candidate is from the show; lower is better and 0 is
// an exact title match in the same year.
func Score(c Candidate, title string, year *int) float64 {
	score := 0.0
	if c.ReleaseYear != nil && year != nil {
		score += yearWeight * math.Abs(float64(*c.ReleaseYear-*year))
	}
	return score + 1 - Similarity(title, c.Title)
}

// BestRating returns the lowest scoring candidate and its score. Ties keep the
// earlier candidate. ok is false when there are no candidates.
func BestRating(candidates []Candidate, title string, year *int) (best Candidate, score float64, ok bool) {
	for i, c := range candidates {
		s := Score(c, title, year)
		if i == 0 || s < score {
			best, score = c, s
		}
	}
	return best, score, len(candidates) > 0
}

// Similarity is the normalized Levenshtein similarity in [0, 1].
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
