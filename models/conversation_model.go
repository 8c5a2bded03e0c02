package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Conversation is a persisted thread between exactly two fixed users.
// The participant pair is stored in canonical order (lexicographically
// smaller UUID first) and uniquely indexed, so at most one conversation
// exists per unordered pair of users.
type Conversation struct {
	ID               uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ParticipantOneID uuid.UUID `gorm:"not null;uniqueIndex:idx_conversation_pair" json:"participant_one_id"`
	ParticipantTwoID uuid.UUID `gorm:"not null;uniqueIndex:idx_conversation_pair" json:"participant_two_id"`

	// Most conversations start from a listing page; kept for context only.
	PropertyID *uuid.UUID `json:"property_id"`

	LastMessageAt *time.Time `json:"last_message_at"`
	Archived      bool       `gorm:"default:false" json:"archived"`
	ArchivedAt    *time.Time `json:"archived_at"`

	ParticipantOne User      `gorm:"foreignkey:ParticipantOneID" json:"participant_one,omitempty"`
	ParticipantTwo User      `gorm:"foreignkey:ParticipantTwoID" json:"participant_two,omitempty"`
	Messages       []Message `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IDs are generated application-side so the messaging store works the same
// against every backing database.
func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return userID == c.ParticipantOneID || userID == c.ParticipantTwoID
}

// OtherParticipant returns the participant that is not userID. The caller
// must have checked membership first.
func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if userID == c.ParticipantOneID {
		return c.ParticipantTwoID
	}
	return c.ParticipantOneID
}

// CanonicalPair orders two user IDs the way Conversation stores them.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
