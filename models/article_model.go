package models

import (
	"time"

	"github.com/google/uuid"
)

type Article struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	AuthorID uuid.UUID `gorm:"not null" json:"author_id"`

	Title     string `gorm:"size:255;not null" json:"title"`
	Slug      string `gorm:"size:255;not null;unique" json:"slug"`
	Body      string `gorm:"type:text;not null" json:"body"`
	Published bool   `gorm:"default:false" json:"published"`

	Author User `gorm:"foreignkey:AuthorID" json:"author,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
