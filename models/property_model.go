package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Property struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	HostID      uuid.UUID `gorm:"not null" json:"host_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Slug        string    `gorm:"size:255;not null;unique" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`

	City         string  `gorm:"size:100;not null" json:"city"`
	Neighborhood *string `gorm:"size:100" json:"neighborhood"`
	Address      *string `gorm:"size:255" json:"-"`

	NightlyPrice float64 `gorm:"type:numeric(10,2);not null" json:"nightly_price"`
	Currency     string  `gorm:"size:3;not null;default:'KES'" json:"currency"`
	MaxGuests    int     `gorm:"not null;default:1" json:"max_guests"`
	Bedrooms     int     `gorm:"default:1" json:"bedrooms"`

	PhotoURLs datatypes.JSON `json:"photo_urls"`
	Published bool           `gorm:"default:false" json:"published"`

	Host User `gorm:"foreignkey:HostID" json:"host,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
