package models

import (
	"time"

	"github.com/google/uuid"
)

type Payment struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	BookingID *uuid.UUID `json:"booking_id"`
	PayerID   uuid.UUID  `gorm:"not null" json:"payer_id"`

	Amount   float64 `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency string  `gorm:"size:3;not null" json:"currency"`
	Provider string  `gorm:"size:20;not null" json:"provider"`
	Status   string  `gorm:"size:20;not null;default:'pending'" json:"status"`

	ProviderOrderID   *string `gorm:"size:255" json:"-"`
	ProviderTxnID     *string `gorm:"size:255" json:"-"`
	MerchantRequestID *string `gorm:"size:255" json:"-"`
	ReceiptURL        *string `gorm:"size:255" json:"receipt_url"`

	Booking Booking `gorm:"foreignkey:BookingID" json:"-"`
	Payer   User    `gorm:"foreignkey:PayerID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
