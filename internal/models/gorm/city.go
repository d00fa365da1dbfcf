package gorm

// City is a root catalog entity.
type City struct {
	Slug string `gorm:"column:slug;primaryKey;type:text" db:"slug" json:"slug"`
	Name string `gorm:"column:name;type:text;not null" db:"name" json:"name"`
}

// TableName specifies the table name for GORM
func (City) TableName() string {
	return "cities"
}

func (c City) Kind() EntityKind { return KindCity }
func (c City) Key() string      { return c.Slug }
func (c City) Refs() []Ref      { return nil }

func (c City) Validate() error {
	return firstErr(
		required(KindCity, "slug", c.Slug),
		required(KindCity, "name", c.Name),
	)
}
