package models

import (
	"time"

	"github.com/google/uuid"
)

type Booking struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	PropertyID uuid.UUID `gorm:"not null" json:"property_id"`
	GuestID    uuid.UUID `gorm:"not null" json:"guest_id"`
	HostID     uuid.UUID `gorm:"not null" json:"host_id"`

	CheckIn     time.Time `gorm:"not null" json:"check_in"`
	CheckOut    time.Time `gorm:"not null" json:"check_out"`
	GuestsCount int       `gorm:"not null;default:1" json:"guests_count"`

	Status        string  `gorm:"size:20;not null;default:'pending_payment'" json:"status"`
	TotalPrice    float64 `gorm:"type:numeric(10,2);not null" json:"total_price"`
	Currency      string  `gorm:"size:3;not null" json:"currency"`
	ReferenceCode string  `gorm:"size:10;not null;unique" json:"reference_code"`

	Property Property `gorm:"foreignkey:PropertyID" json:"property,omitempty"`
	Guest    User     `gorm:"foreignkey:GuestID" json:"guest,omitempty"`
	Host     User     `gorm:"foreignkey:HostID" json:"host,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Nights returns the stay length in whole nights.
func (b *Booking) Nights() int {
	return int(b.CheckOut.Sub(b.CheckIn).Hours() / 24)
}
