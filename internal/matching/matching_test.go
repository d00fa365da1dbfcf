package matching

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func year(y int) *int { return &y }

func TestSimilarity(t *testing.T) {
	require.Equal(t, 1.0, Similarity("", ""))
	require.Equal(t, 1.0, Similarity("Dune", "Dune"))
	require.Equal(t, 0.0, Similarity("abc", "xyz"))
	require.InDelta(t, 0.75, Similarity("Dune", "Dane"), 1e-9)
	require.InDelta(t, 5.0/6, Similarity("Amélie", "Amelie"), 1e-9)
}

func TestBestRating_PrefersTitleThenYear(t *testing.T) {
	candidates := []Candidate{
		{Slug: "m/dune_1984", Title: "Dune", ReleaseYear: year(1984)},
		{Slug: "m/dune_part_two", Title: "Dune: Part Two", ReleaseYear: year(2024)},
		{Slug: "m/dune_2021", Title: "Dune", ReleaseYear: year(2021)},
	}

	best, score, ok := BestRating(candidates, "Dune", year(2021))
	require.True(t, ok)
	require.Equal(t, "m/dune_2021", best.Slug)
	require.Equal(t, 0.0, score)
}

func TestBestRating_NoYearUsesTitleOnly(t *testing.T) {
	candidates := []Candidate{
		{Slug: "m/oppenheimer_doc", Title: "Oppenheimer Revealed"},
		{Slug: "m/oppenheimer_2023", Title: "Oppenheimer", ReleaseYear: year(2023)},
	}

	best, score, ok := BestRating(candidates, "Oppenheimer", nil)
	require.True(t, ok)
	require.Equal(t, "m/oppenheimer_2023", best.Slug)
	require.Equal(t, 0.0, score)
}

func TestBestRating_TieKeepsFirst(t *testing.T) {
	candidates := []Candidate{
		{Slug: "first", Title: "Heat"},
		{Slug: "second", Title: "Heat"},
	}

	best, _, ok := BestRating(candidates, "Heat", nil)
	require.True(t, ok)
	require.Equal(t, "first", best.Slug)
}

func TestBestRating_Empty(t *testing.T) {
	_, _, ok := BestRating(nil, "Dune", nil)
	require.False(t, ok)
}
