package messaging

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kamaubrian/nyumba_stays/models"
	"gorm.io/gorm"
)

// GormStore implements ConversationStore on top of a gorm connection.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ ConversationStore = (*GormStore)(nil)

func (s *GormStore) FindConversation(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrConversationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (s *GormStore) FindOrCreateConversation(ctx context.Context, userA, userB uuid.UUID, propertyID *uuid.UUID) (*models.Conversation, error) {
	if userA == userB {
		return nil, ErrSameParticipant
	}
	one, two := models.CanonicalPair(userA, userB)

	var conv models.Conversation
	err := s.db.WithContext(ctx).
		Where("participant_one_id = ? AND participant_two_id = ?", one, two).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	conv = models.Conversation{
		ParticipantOneID: one,
		ParticipantTwoID: two,
		PropertyID:       propertyID,
	}
	if err := s.db.WithContext(ctx).Create(&conv).Error; err != nil {
		// Lost a race against a concurrent create for the same pair; the
		// unique index guarantees the winner is the one conversation.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.Conversation
			if ferr := s.db.WithContext(ctx).
				Where("participant_one_id = ? AND participant_two_id = ?", one, two).
				First(&existing).Error; ferr == nil {
				return &existing, nil
			}
		}
		return nil, err
	}
	return &conv, nil
}

func (s *GormStore) ListConversations(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]models.Conversation, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var conversations []models.Conversation
	err := s.db.WithContext(ctx).
		Preload("ParticipantOne").
		Preload("ParticipantTwo").
		Where("participant_one_id = ? OR participant_two_id = ?", userID, userID).
		Order("last_message_at DESC NULLS LAST").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (s *GormStore) ListMessages(ctx context.Context, conversationID uuid.UUID, page, pageSize int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var messages []models.Message
	err := s.db.WithContext(ctx).
		Where("conversation_id = ? AND status <> ?", conversationID, models.MessageStatusDeleted).
		Order("created_at asc").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (s *GormStore) CreateMessage(ctx context.Context, in NewMessage) (*models.Message, error) {
	if errs := in.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("messaging: invalid message: %v", errs)
	}

	conv, err := s.FindConversation(ctx, in.ConversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(in.SenderID) {
		return nil, ErrNotParticipant
	}

	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       in.SenderID,
		RecipientID:    conv.OtherParticipant(in.SenderID),
		Content:        in.Content,
		MessageType:    in.MessageType,
		Status:         models.MessageStatusUnread,
		RegardingType:  in.RegardingType,
		RegardingID:    in.RegardingID,
		Metadata:       in.Metadata,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Update("last_message_at", msg.CreatedAt).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (s *GormStore) GetMessage(ctx context.Context, id uuid.UUID) (*models.Message, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Preload("Recipient").
		First(&msg, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}
	if msg.Status == models.MessageStatusDeleted {
		return nil, ErrMessageNotFound
	}
	return &msg, nil
}

func (s *GormStore) MarkMessageRead(ctx context.Context, conversationID, messageID, readerID uuid.UUID) (*models.Message, bool, error) {
	var msg models.Message
	err := s.db.WithContext(ctx).
		First(&msg, "id = ? AND conversation_id = ?", messageID, conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, ErrMessageNotFound
	}
	if err != nil {
		return nil, false, err
	}
	if msg.Status == models.MessageStatusDeleted {
		return nil, false, ErrMessageNotFound
	}
	if msg.RecipientID != readerID {
		return nil, false, ErrNotRecipient
	}

	if msg.Status != models.MessageStatusUnread {
		return &msg, false, nil
	}

	// Guarded single-row update so concurrent readers of the same message
	// cannot overwrite each other's read timestamp.
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND status = ?", messageID, models.MessageStatusUnread).
		Updates(map[string]interface{}{
			"status":  models.MessageStatusRead,
			"read_at": now,
		})
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// Another session won the transition; reload for the original read_at.
		if err := s.db.WithContext(ctx).First(&msg, "id = ?", messageID).Error; err != nil {
			return nil, false, err
		}
		return &msg, false, nil
	}

	msg.Status = models.MessageStatusRead
	msg.ReadAt = &now
	return &msg, true, nil
}

func (s *GormStore) MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) (time.Time, int64, error) {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND recipient_id = ? AND status = ?",
			conversationID, readerID, models.MessageStatusUnread).
		Updates(map[string]interface{}{
			"status":  models.MessageStatusRead,
			"read_at": now,
		})
	if res.Error != nil {
		return time.Time{}, 0, res.Error
	}
	return now, res.RowsAffected, nil
}

func (s *GormStore) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("conversation_id = ? AND recipient_id = ? AND status = ?",
			conversationID, userID, models.MessageStatusUnread).
		Count(&count).Error
	return count, err
}
