package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MessageType is a closed enumeration; adding a kind requires an explicit
// case in Valid and in every switch over it.
type MessageType string

const (
	MessageTypeText           MessageType = "text"
	MessageTypeBookingRequest MessageType = "booking_request"
	MessageTypeSystem         MessageType = "system_message"
)

func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeText, MessageTypeBookingRequest, MessageTypeSystem:
		return true
	}
	return false
}

type MessageStatus string

const (
	MessageStatusUnread   MessageStatus = "unread"
	MessageStatusRead     MessageStatus = "read"
	MessageStatusArchived MessageStatus = "archived"
	MessageStatusDeleted  MessageStatus = "deleted"
)

// Message belongs to exactly one conversation. Sender and recipient are the
// conversation's two participants. Immutable after creation except for
// Status/ReadAt and soft-delete markers; ReadAt is set exactly once, on the
// unread -> read transition.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ConversationID uuid.UUID `gorm:"not null;index" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"not null" json:"sender_id"`
	RecipientID    uuid.UUID `gorm:"not null" json:"recipient_id"`

	Content     string        `gorm:"type:text;not null" json:"content"`
	MessageType MessageType   `gorm:"size:30;not null;default:'text'" json:"message_type"`
	Status      MessageStatus `gorm:"size:20;not null;default:'unread'" json:"status"`
	ReadAt      *time.Time    `json:"read_at"`

	// Optional polymorphic reference used by structured kinds, e.g. the
	// booking a booking_request message is about.
	RegardingType *string        `gorm:"size:50" json:"regarding_type"`
	RegardingID   *uuid.UUID     `json:"regarding_id"`
	Metadata      datatypes.JSON `json:"metadata"`

	Sender       User         `gorm:"foreignkey:SenderID" json:"-"`
	Recipient    User         `gorm:"foreignkey:RecipientID" json:"-"`
	Conversation Conversation `gorm:"foreignkey:ConversationID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
