package gorm

// Show is a movie or event playing in cinemas, optionally matched to a Rating.
type Show struct {
	Slug             string   `gorm:"column:slug;primaryKey;type:text" db:"slug" json:"slug"`
	Title            string   `gorm:"column:title;type:text;not null" db:"title" json:"title"`
	ReleaseAt        *string  `gorm:"column:release_at;type:text" db:"release_at" json:"release_at,omitempty"`
	MovieType        string   `gorm:"column:movie_type;type:text;not null" db:"movie_type" json:"movie_type"`
	Duration         int      `gorm:"column:duration;type:integer;not null" db:"duration" json:"duration"`
	RatingSlug       *string  `gorm:"column:rating_slug;type:text" db:"rating_slug" json:"rating_slug,omitempty"`
	RatingMatchScore *float64 `gorm:"column:rating_match_score;type:double precision" db:"rating_match_score" json:"rating_match_score,omitempty"`
}

// TableName specifies the table name for GORM
func (Show) TableName() string {
	return "shows"
}

func (s Show) Kind() EntityKind { return KindShow }
func (s Show) Key() string      { return s.Slug }

func (s Show) Refs() []Ref {
	if s.RatingSlug == nil {
		return nil
	}
	return []Ref{{Field: "rating_slug", Kind: KindRating, Slug: *s.RatingSlug}}
}

func (s Show) Validate() error {
	duration := s.Duration
	err := firstErr(
		required(KindShow, "slug", s.Slug),
		required(KindShow, "title", s.Title),
		required(KindShow, "movie_type", s.MovieType),
		nonNegative(KindShow, "duration", &duration),
		finiteNonNegative(KindShow, "rating_match_score", s.RatingMatchScore),
	)
	if err == nil && s.RatingSlug != nil {
		err = required(KindShow, "rating_slug", *s.RatingSlug)
	}
	return err
}

// Poster holds the artwork locations of a Show.
type Poster struct {
	ShowSlug string  `gorm:"column:show_slug;primaryKey;type:text" db:"show_slug" json:"show_slug"`
	Lg       *string `gorm:"column:lg;type:text" db:"lg" json:"lg,omitempty"`
	Md       *string `gorm:"column:md;type:text" db:"md" json:"md,omitempty"`
}

// TableName specifies the table name for GORM
func (Poster) TableName() string {
	return "posters"
}

func (p Poster) Kind() EntityKind { return KindPoster }
func (p Poster) Key() string      { return p.ShowSlug }

func (p Poster) Refs() []Ref {
	return []Ref{{Field: "show_slug", Kind: KindShow, Slug: p.ShowSlug}}
}

func (p Poster) Validate() error {
	return required(KindPoster, "show_slug", p.ShowSlug)
}

// Genre tags a Show. The pair is the whole primary key.
type Genre struct {
	ShowSlug string `gorm:"column:show_slug;primaryKey;type:text" db:"show_slug" json:"show_slug"`
	Genre    string `gorm:"column:genre;primaryKey;type:text" db:"genre" json:"genre"`
}

// TableName specifies the table name for GORM
func (Genre) TableName() string {
	return "genres"
}

func (g Genre) Kind() EntityKind { return KindGenre }
func (g Genre) Key() string      { return compositeKey(g.ShowSlug, g.Genre) }

func (g Genre) Refs() []Ref {
	return []Ref{{Field: "show_slug", Kind: KindShow, Slug: g.ShowSlug}}
}

func (g Genre) Validate() error {
	return firstErr(
		required(KindGenre, "show_slug", g.ShowSlug),
		required(KindGenre, "genre", g.Genre),
	)
}
