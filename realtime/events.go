package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/models"
)

// Event action names carried in every broadcast payload.
const (
	ActionMessageCreated   = "message_created"
	ActionMessageError     = "message_error"
	ActionUserTyping       = "user_typing"
	ActionMessageRead      = "message_read"
	ActionConversationRead = "conversation_read"
	ActionUserPresence     = "user_presence"
)

// messageTimeFormat is the textual timestamp format clients render directly.
const messageTimeFormat = "Jan 02, 2006 3:04 PM"

// MessageView is the wire representation of a persisted message.
type MessageView struct {
	ID          string `json:"id"`
	Content     string `json:"content"`
	SenderID    string `json:"sender_id"`
	RecipientID string `json:"recipient_id"`
	MessageType string `json:"message_type"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	SenderName  string `json:"sender_name"`
}

func NewMessageView(msg *models.Message, senderName string) MessageView {
	return MessageView{
		ID:          msg.ID.String(),
		Content:     msg.Content,
		SenderID:    msg.SenderID.String(),
		RecipientID: msg.RecipientID.String(),
		MessageType: string(msg.MessageType),
		Status:      string(msg.Status),
		CreatedAt:   msg.CreatedAt.Format(messageTimeFormat),
		SenderName:  senderName,
	}
}

type messageCreatedEvent struct {
	Action  string      `json:"action"`
	Message MessageView `json:"message"`
	HTML    string      `json:"html"`
}

type messageErrorEvent struct {
	Action string   `json:"action"`
	Errors []string `json:"errors"`
}

type userTypingEvent struct {
	Action   string `json:"action"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Typing   bool   `json:"typing"`
}

type messageReadEvent struct {
	Action    string    `json:"action"`
	MessageID string    `json:"message_id"`
	ReaderID  string    `json:"reader_id"`
	ReadAt    time.Time `json:"read_at"`
}

type conversationReadEvent struct {
	Action   string    `json:"action"`
	ReaderID string    `json:"reader_id"`
	ReadAt   time.Time `json:"read_at"`
}

type userPresenceEvent struct {
	Action   string `json:"action"`
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	Status   string `json:"status"`
}

// The event structs above contain only marshal-safe fields, so the error
// from json.Marshal is discarded at each call site below.

func MessageCreatedPayload(view MessageView, html string) []byte {
	b, _ := json.Marshal(messageCreatedEvent{Action: ActionMessageCreated, Message: view, HTML: html})
	return b
}

func MessageErrorPayload(errs []string) []byte {
	b, _ := json.Marshal(messageErrorEvent{Action: ActionMessageError, Errors: errs})
	return b
}

func UserTypingPayload(userID uuid.UUID, userName string, typing bool) []byte {
	b, _ := json.Marshal(userTypingEvent{Action: ActionUserTyping, UserID: userID.String(), UserName: userName, Typing: typing})
	return b
}

func MessageReadPayload(messageID, readerID uuid.UUID, readAt time.Time) []byte {
	b, _ := json.Marshal(messageReadEvent{Action: ActionMessageRead, MessageID: messageID.String(), ReaderID: readerID.String(), ReadAt: readAt})
	return b
}

func ConversationReadPayload(readerID uuid.UUID, readAt time.Time) []byte {
	b, _ := json.Marshal(conversationReadEvent{Action: ActionConversationRead, ReaderID: readerID.String(), ReadAt: readAt})
	return b
}

func UserPresencePayload(userID uuid.UUID, userName, status string) []byte {
	b, _ := json.Marshal(userPresenceEvent{Action: ActionUserPresence, UserID: userID.String(), UserName: userName, Status: status})
	return b
}
