package messaging

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/models"
	"gorm.io/datatypes"
)

var (
	ErrConversationNotFound = errors.New("messaging: conversation not found")
	ErrMessageNotFound      = errors.New("messaging: message not found")
	ErrNotParticipant       = errors.New("messaging: user is not a conversation participant")
	ErrNotRecipient         = errors.New("messaging: user is not the message recipient")
	ErrSameParticipant      = errors.New("messaging: conversation participants must be distinct")
)

// NewMessage carries the fields required to persist a message. The recipient
// is always derived from the conversation, never supplied by the client.
type NewMessage struct {
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Content        string
	MessageType    models.MessageType
	RegardingType  *string
	RegardingID    *uuid.UUID
	Metadata       datatypes.JSON
}

// Validate returns a list of human-readable problems with the input. An
// empty message type defaults to text before validation.
func (in *NewMessage) Validate() []string {
	if in.MessageType == "" {
		in.MessageType = models.MessageTypeText
	}

	var errs []string
	if strings.TrimSpace(in.Content) == "" {
		errs = append(errs, "content can't be blank")
	}
	if !in.MessageType.Valid() {
		errs = append(errs, "message type is not supported")
	}
	return errs
}

// ConversationStore owns all persisted conversation and message state and is
// its sole writer. Mutations are atomic at single-row granularity.
type ConversationStore interface {
	FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error)
	FindOrCreateConversation(ctx context.Context, userA, userB uuid.UUID, propertyID *uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Conversation, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, page, pageSize int) ([]models.Message, error)

	CreateMessage(ctx context.Context, in NewMessage) (*models.Message, error)
	GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error)

	// MarkMessageRead transitions one message to read. The write happens only
	// when readerID is the recipient and the message is still unread; the
	// returned bool reports whether a transition occurred. Re-marking an
	// already-read message returns the message unchanged.
	MarkMessageRead(ctx context.Context, conversationID, messageID, readerID uuid.UUID) (*models.Message, bool, error)

	// MarkConversationRead marks every unread message addressed to readerID
	// in the conversation as read and returns the read timestamp along with
	// the number of rows updated.
	MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) (time.Time, int64, error)

	UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error)
}
