package dtos

import "schraper/catalog/internal/models/gorm"

// ShowDetail is a show joined with its poster, genres and matched rating.
type ShowDetail struct {
	Show   gorm.Show    `json:"show"`
	Poster *gorm.Poster `json:"poster,omitempty"`
	Genres []string     `json:"genres"`
	Rating *gorm.Rating `json:"rating,omitempty"`
}
