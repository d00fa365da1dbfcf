package gorm

// Showtime is one screening of a Show in a Cinema. Time and EndTime are the
// display strings supplied upstream and are not parsed.
type Showtime struct {
	ShowSlug           string  `gorm:"column:show_slug;primaryKey;type:text" db:"show_slug" json:"show_slug"`
	CinemaSlug         string  `gorm:"column:cinema_slug;primaryKey;type:text" db:"cinema_slug" json:"cinema_slug"`
	Time               string  `gorm:"column:time;primaryKey;type:text" db:"time" json:"time"`
	EndTime            *string `gorm:"column:end_time;type:text" db:"end_time" json:"end_time,omitempty"`
	ReservationURL     *string `gorm:"column:reservation_url;type:text" db:"reservation_url" json:"reservation_url,omitempty"`
	AuditoriumName     string  `gorm:"column:auditorium_name;primaryKey;type:text" db:"auditorium_name" json:"auditorium_name"`
	AuditoriumCapacity *string `gorm:"column:auditorium_capacity;type:text" db:"auditorium_capacity" json:"auditorium_capacity,omitempty"`
}

// TableName specifies the table name for GORM
func (Showtime) TableName() string {
	return "showtimes"
}

func (s Showtime) Kind() EntityKind { return KindShowtime }

func (s Showtime) Key() string {
	return compositeKey(s.ShowSlug, s.CinemaSlug, s.Time, s.AuditoriumName)
}

func (s Showtime) Refs() []Ref {
	return []Ref{
		{Field: "show_slug", Kind: KindShow, Slug: s.ShowSlug},
		{Field: "cinema_slug", Kind: KindCinema, Slug: s.CinemaSlug},
	}
}

func (s Showtime) Validate() error {
	return firstErr(
		required(KindShowtime, "show_slug", s.ShowSlug),
		required(KindShowtime, "cinema_slug", s.CinemaSlug),
		required(KindShowtime, "time", s.Time),
		required(KindShowtime, "auditorium_name", s.AuditoriumName),
	)
}
