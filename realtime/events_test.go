package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageViewFormatsTimestamp(t *testing.T) {
	created := time.Date(2026, time.March, 7, 14, 5, 0, 0, time.UTC)
	msg := &models.Message{
		ID:          uuid.New(),
		SenderID:    uuid.New(),
		RecipientID: uuid.New(),
		Content:     "habari",
		MessageType: models.MessageTypeText,
		Status:      models.MessageStatusUnread,
		CreatedAt:   created,
	}

	view := NewMessageView(msg, "Wanjiku")
	assert.Equal(t, "Mar 07, 2026 2:05 PM", view.CreatedAt)
	assert.Equal(t, "Wanjiku", view.SenderName)
	assert.Equal(t, "habari", view.Content)
	assert.Equal(t, msg.ID.String(), view.ID)
}

func TestMessageCreatedPayloadShape(t *testing.T) {
	msg := &models.Message{
		ID:          uuid.New(),
		SenderID:    uuid.New(),
		RecipientID: uuid.New(),
		Content:     "hello",
		MessageType: models.MessageTypeText,
		Status:      models.MessageStatusUnread,
		CreatedAt:   time.Now(),
	}
	view := NewMessageView(msg, "Alice")

	payload := MessageCreatedPayload(view, "<div>hello</div>")

	var decoded struct {
		Action  string      `json:"action"`
		Message MessageView `json:"message"`
		HTML    string      `json:"html"`
	}
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, ActionMessageCreated, decoded.Action)
	assert.Equal(t, view, decoded.Message)
	assert.Equal(t, "<div>hello</div>", decoded.HTML)
}

func TestReceiptPayloads(t *testing.T) {
	readAt := time.Now().UTC().Truncate(time.Second)
	messageID, readerID := uuid.New(), uuid.New()

	var msgRead struct {
		Action    string    `json:"action"`
		MessageID string    `json:"message_id"`
		ReaderID  string    `json:"reader_id"`
		ReadAt    time.Time `json:"read_at"`
	}
	require.NoError(t, json.Unmarshal(MessageReadPayload(messageID, readerID, readAt), &msgRead))
	assert.Equal(t, ActionMessageRead, msgRead.Action)
	assert.Equal(t, messageID.String(), msgRead.MessageID)
	assert.True(t, readAt.Equal(msgRead.ReadAt))

	var convRead struct {
		Action   string `json:"action"`
		ReaderID string `json:"reader_id"`
	}
	require.NoError(t, json.Unmarshal(ConversationReadPayload(readerID, readAt), &convRead))
	assert.Equal(t, ActionConversationRead, convRead.Action)
	assert.Equal(t, readerID.String(), convRead.ReaderID)
}
