package realtime

import (
	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/models"
)

// Gate decides subscribe/post eligibility for a user on a conversation.
// Implementations must be pure; callers fail closed on false.
type Gate interface {
	CanSubscribe(userID uuid.UUID, conv *models.Conversation) bool
	CanPost(userID uuid.UUID, conv *models.Conversation) bool
}

// ParticipantGate grants access iff the user is one of the conversation's
// two participants.
type ParticipantGate struct{}

var _ Gate = ParticipantGate{}

func (ParticipantGate) CanSubscribe(userID uuid.UUID, conv *models.Conversation) bool {
	return conv != nil && userID != uuid.Nil && conv.HasParticipant(userID)
}

func (ParticipantGate) CanPost(userID uuid.UUID, conv *models.Conversation) bool {
	return conv != nil && userID != uuid.Nil && conv.HasParticipant(userID)
}
