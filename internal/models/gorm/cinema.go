package gorm

// Cinema belongs to exactly one City.
type Cinema struct {
	Slug     string `gorm:"column:slug;primaryKey;type:text" db:"slug" json:"slug"`
	CitySlug string `gorm:"column:city_slug;type:text;not null" db:"city_slug" json:"city_slug"`
	Name     string `gorm:"column:name;type:text;not null" db:"name" json:"name"`
}

// TableName specifies the table name for GORM
func (Cinema) TableName() string {
	return "cinemas"
}

func (c Cinema) Kind() EntityKind { return KindCinema }
func (c Cinema) Key() string      { return c.Slug }

func (c Cinema) Refs() []Ref {
	return []Ref{{Field: "city_slug", Kind: KindCity, Slug: c.CitySlug}}
}

func (c Cinema) Validate() error {
	return firstErr(
		required(KindCinema, "slug", c.Slug),
		required(KindCinema, "city_slug", c.CitySlug),
		required(KindCinema, "name", c.Name),
	)
}
