package gorm

// Rating holds review aggregator scores for a title. Every score is optional.
type Rating struct {
	Slug               string  `gorm:"column:slug;primaryKey;type:text" db:"slug" json:"slug"`
	Title              string  `gorm:"column:title;type:text;not null" db:"title" json:"title"`
	Description        *string `gorm:"column:description;type:text" db:"description" json:"description,omitempty"`
	ReleaseYear        *int    `gorm:"column:release_year;type:integer" db:"release_year" json:"release_year,omitempty"`
	AudienceScore      *int    `gorm:"column:audience_score;type:integer" db:"audience_score" json:"audience_score,omitempty"`
	CriticsScore       *int    `gorm:"column:critics_score;type:integer" db:"critics_score" json:"critics_score,omitempty"`
	ScoreSentiment     *string `gorm:"column:score_sentiment;type:text" db:"score_sentiment" json:"score_sentiment,omitempty"`
	WantToSeeCount     *int    `gorm:"column:want_to_see_count;type:integer" db:"want_to_see_count" json:"want_to_see_count,omitempty"`
	CertifiedFresh     *bool   `gorm:"column:certified_fresh;type:boolean" db:"certified_fresh" json:"certified_fresh,omitempty"`
	NewAdjustedTMScore *int    `gorm:"column:new_adjusted_tm_score;type:integer" db:"new_adjusted_tm_score" json:"new_adjusted_tm_score,omitempty"`
}

// TableName specifies the table name for GORM
func (Rating) TableName() string {
	return "ratings"
}

func (r Rating) Kind() EntityKind { return KindRating }
func (r Rating) Key() string      { return r.Slug }
func (r Rating) Refs() []Ref      { return nil }

func (r Rating) Validate() error {
	return firstErr(
		required(KindRating, "slug", r.Slug),
		required(KindRating, "title", r.Title),
		nonNegative(KindRating, "release_year", r.ReleaseYear),
		percent(KindRating, "audience_score", r.AudienceScore),
		percent(KindRating, "critics_score", r.CriticsScore),
		nonNegative(KindRating, "want_to_see_count", r.WantToSeeCount),
		percent(KindRating, "new_adjusted_tm_score", r.NewAdjustedTMScore),
	)
}
