package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"fleamarket-backend/internal/model"

	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(ctx context.Context, tx *gorm.DB, msg *model.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error)
	// FindConfirmCard looks the card up by the indexed
	// (conversation_id, confirm_request_id) pair; nil when no card exists.
	FindConfirmCard(ctx context.Context, conversationID, confirmRequestID string) (*model.Message, error)
	UpdateMetadata(ctx context.Context, messageID string, metadata json.RawMessage) error
	Delete(ctx context.Context, tx *gorm.DB, messageID string) error
	IncrementUnread(ctx context.Context, tx *gorm.DB, conversationID, userID, messageID string, now time.Time) error
}

type messageRepoImpl struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepoImpl{
		db: db,
	}
}

func (r *messageRepoImpl) Create(ctx context.Context, tx *gorm.DB, msg *model.Message) error {
	return tx.WithContext(ctx).Create(msg).Error
}

func (r *messageRepoImpl) ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	var msgs []*model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Find(&msgs).Error

	if err != nil {
		return nil, err
	}

	return msgs, nil
}

func (r *messageRepoImpl) FindConfirmCard(ctx context.Context, conversationID, confirmRequestID string) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Where("confirm_request_id = ?", confirmRequestID).
		Order("created_at DESC").
		First(&msg).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &msg, nil
}

func (r *messageRepoImpl) UpdateMetadata(ctx context.Context, messageID string, metadata json.RawMessage) error {
	return r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ?", messageID).
		Update("metadata", metadata).Error
}

func (r *messageRepoImpl) Delete(ctx context.Context, tx *gorm.DB, messageID string) error {
	return tx.WithContext(ctx).
		Where("id = ?", messageID).
		Delete(&model.Message{}).Error
}

// IncrementUnread bumps the receiver's counter and pins first_unread_msg_id
// to this message if no earlier unread one is already recorded.
func (r *messageRepoImpl) IncrementUnread(ctx context.Context, tx *gorm.DB, conversationID, userID, messageID string, now time.Time) error {
	return tx.WithContext(ctx).Model(&model.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"unread_count":        gorm.Expr("unread_count + 1"),
			"first_unread_msg_id": gorm.Expr("COALESCE(first_unread_msg_id, ?)", messageID),
			"updated_at":          now,
		}).Error
}
