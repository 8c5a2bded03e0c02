package messaging

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the schema the store
// touches. DDL is written out by hand because the production schema relies on
// Postgres defaults.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ddl := []string{
		`CREATE TABLE users (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'guest',
			phone_number TEXT,
			profile_picture_url TEXT,
			time_zone TEXT,
			about TEXT,
			credit_balance NUMERIC DEFAULT 0,
			email_confirmation_token TEXT,
			email_confirmed_at DATETIME,
			reset_password_token TEXT,
			reset_password_token_expires_at DATETIME,
			is_active BOOLEAN DEFAULT 1,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE conversations (
			id TEXT PRIMARY KEY,
			participant_one_id TEXT NOT NULL,
			participant_two_id TEXT NOT NULL,
			property_id TEXT,
			last_message_at DATETIME,
			archived BOOLEAN DEFAULT 0,
			archived_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE UNIQUE INDEX idx_conversation_pair ON conversations (participant_one_id, participant_two_id)`,
		`CREATE TABLE messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			recipient_id TEXT NOT NULL,
			content TEXT NOT NULL,
			message_type TEXT NOT NULL DEFAULT 'text',
			status TEXT NOT NULL DEFAULT 'unread',
			read_at DATETIME,
			regarding_type TEXT,
			regarding_id TEXT,
			metadata TEXT,
			created_at DATETIME
		)`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	user := models.User{
		ID:       uuid.New(),
		FullName: name,
		Email:    fmt.Sprintf("%s-%s@example.com", name, uuid.New().String()[:8]),
		Password: "hashed",
	}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func TestFindOrCreateConversationIsSymmetric(t *testing.T) {
	db := newTestDB(t)
	store := NewGormStore(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	first, err := store.FindOrCreateConversation(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)
	require.True(t, first.HasParticipant(alice.ID))
	require.True(t, first.HasParticipant(bob.ID))

	// The reversed pair resolves to the same conversation.
	second, err := store.FindOrCreateConversation(ctx, bob.ID, alice.ID, nil)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Conversation{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestFindOrCreateConversationRejectsSelf(t *testing.T) {
	db := newTestDB(t)
	store := NewGormStore(db)

	alice := seedUser(t, db, "alice")

	_, err := store.FindOrCreateConversation(context.Background(), alice.ID, alice.ID, nil)
	require.ErrorIs(t, err, ErrSameParticipant)
}

func TestCreateMessageDerivesRecipient(t *testing.T) {
	db := newTestDB(t)
	store := NewGormStore(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv, err := store.FindOrCreateConversation(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)

	msg, err := store.CreateMessage(ctx, NewMessage{
		ConversationID: conv.ID,
		SenderID:       alice.ID,
		Content:        "Hi Bob, is the cottage free this weekend?",
	})
	require.NoError(t, err)
	require.Equal(t, bob.ID, msg.RecipientID)
	require.Equal(t, models.MessageTypeText, msg.MessageType)
	require.Equal(t, models.MessageStatusUnread, msg.Status)
	require.Nil(t, msg.ReadAt)

	// Sending bumps the conversation's last activity marker.
	fresh, err := store.FindConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, fresh.LastMessageAt)
}

func TestCreateMessageRejectsOutsiders(t *testing.T) {
	db := newTestDB(t)
	store := NewGormStore(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	mallory := seedUser(t, db, "mallory")
	conv, err := store.FindOrCreateConversation(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)

	_, err = store.CreateMessage(ctx, NewMessage{
		ConversationID: conv.ID,
		SenderID:       mallory.ID,
		Content:        "let me in",
	})
	require.ErrorIs(t, err, ErrNotParticipant)

	_, err = store.CreateMessage(ctx, NewMessage{
		ConversationID: uuid.New(),
		SenderID:       alice.ID,
		Content:        "hello?",
	})
	require.ErrorIs(t, err, ErrConversationNotFound)
}

func TestCreateMessageValidatesContent(t *testing.T) {
	db := newTestDB(t)
	store := NewGormStore(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv, err := store.FindOrCreateConversation(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)

	_, err = store.CreateMessage(ctx, NewMessage{
		ConversationID: conv.ID,
		SenderID:       alice.ID,
		Content:        "   ",
	})
	require.Error(t, err)

	_, err = store.CreateMessage(ctx, NewMessage{
		ConversationID: conv.ID,
		SenderID:       alice.ID,
		Content:        "hello",
		MessageType:    models.MessageType("carrier_pigeon"),
	})
	require.Error(t, err)
}

func TestMarkMessageRead(t *testing.T) {
	db := newTestDB(t)
	store := NewGormStore(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv, err := store.FindOrCreateConversation(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)

	msg, err := store.CreateMessage(ctx, NewMessage{
		ConversationID: conv.ID,
		SenderID:       alice.ID,
		Content:        "ping",
	})
	require.NoError(t, err)

	// The sender is not the recipient and cannot mark it.
	_, _, err = store.MarkMessageRead(ctx, conv.ID, msg.ID, alice.ID)
	require.ErrorIs(t, err, ErrNotRecipient)

	read, changed, err := store.MarkMessageRead(ctx, conv.ID, msg.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, models.MessageStatusRead, read.Status)
	require.NotNil(t, read.ReadAt)
	firstReadAt := *read.ReadAt

	// Re-marking is a no-op that preserves the original timestamp.
	again, changed, err := store.MarkMessageRead(ctx, conv.ID, msg.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, changed)
	require.NotNil(t, again.ReadAt)
	require.WithinDuration(t, firstReadAt, *again.ReadAt, time.Second)

	_, _, err = store.MarkMessageRead(ctx, conv.ID, uuid.New(), bob.ID)
	require.ErrorIs(t, err, ErrMessageNotFound)
}

func TestMarkConversationReadScopesToReader(t *testing.T) {
	db := newTestDB(t)
	store := NewGormStore(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv, err := store.FindOrCreateConversation(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = store.CreateMessage(ctx, NewMessage{ConversationID: conv.ID, SenderID: alice.ID, Content: "to bob"})
		require.NoError(t, err)
	}
	_, err = store.CreateMessage(ctx, NewMessage{ConversationID: conv.ID, SenderID: bob.ID, Content: "to alice"})
	require.NoError(t, err)

	_, updated, err := store.MarkConversationRead(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	require.EqualValues(t, 3, updated)

	// Alice's inbound message is untouched.
	unread, err := store.UnreadCount(ctx, conv.ID, alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, unread)

	unread, err = store.UnreadCount(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, unread)

	// A second pass updates nothing.
	_, updated, err = store.MarkConversationRead(ctx, conv.ID, bob.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, updated)
}

func TestDeletedMessagesAreInvisible(t *testing.T) {
	db := newTestDB(t)
	store := NewGormStore(db)
	ctx := context.Background()

	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	conv, err := store.FindOrCreateConversation(ctx, alice.ID, bob.ID, nil)
	require.NoError(t, err)

	msg, err := store.CreateMessage(ctx, NewMessage{ConversationID: conv.ID, SenderID: alice.ID, Content: "soon gone"})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Message{}).Where("id = ?", msg.ID).
		Update("status", models.MessageStatusDeleted).Error)

	_, err = store.GetMessage(ctx, msg.ID)
	require.ErrorIs(t, err, ErrMessageNotFound)

	messages, err := store.ListMessages(ctx, conv.ID, 1, 50)
	require.NoError(t, err)
	require.Empty(t, messages)

	_, _, err = store.MarkMessageRead(ctx, conv.ID, msg.ID, bob.ID)
	require.ErrorIs(t, err, ErrMessageNotFound)
}
