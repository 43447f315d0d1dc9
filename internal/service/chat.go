package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fleamarket-backend/internal/model"
	"fleamarket-backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	metaTypeConfirmRequest = "confirm_request"

	confirmCardContent   = "The seller asks you to confirm this purchase."
	autoAcceptedContent  = "Confirmation automatically accepted after 24 hours."
	metaKeyType          = "type"
	metaKeyConfirmID     = "confirm_request_id"
	metaKeyProductID     = "product_id"
	metaKeyStatus        = "confirm_purchase_status"
	metaKeyRespondedAt   = "responded_at"
	metaKeyAutoProcessed = "auto_processed_at"
)

// ChatWriter owns every chat-side mutation of the confirmation workflow.
// An explicit buyer response patches the existing card's metadata in place;
// a timeout auto-accept deletes the card and inserts a fresh outcome
// message. The asymmetry is deliberate.
type ChatWriter struct {
	db       *gorm.DB
	messages repository.MessageRepository
	now      func() time.Time
}

func NewChatWriter(db *gorm.DB, messages repository.MessageRepository, now func() time.Time) *ChatWriter {
	if now == nil {
		now = time.Now
	}
	return &ChatWriter{
		db:       db,
		messages: messages,
		now:      now,
	}
}

// PostConfirmRequestCard inserts the pending card into the conversation and
// bumps the buyer's unread counter.
func (w *ChatWriter) PostConfirmRequestCard(ctx context.Context, req *model.ConfirmRequest) (string, error) {
	now := w.now()

	metadata, err := json.Marshal(map[string]interface{}{
		metaKeyType:      metaTypeConfirmRequest,
		metaKeyConfirmID: req.ID,
		metaKeyProductID: req.ProductID,
	})
	if err != nil {
		return "", err
	}

	msg := &model.Message{
		ID:               uuid.NewString(),
		ConversationID:   req.ConversationID,
		SenderID:         req.SellerUserID,
		Content:          confirmCardContent,
		Metadata:         metadata,
		ConfirmRequestID: req.ID,
		CreatedAt:        now,
	}

	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := w.messages.Create(ctx, tx, msg); err != nil {
			return err
		}
		return w.messages.IncrementUnread(ctx, tx, req.ConversationID, req.BuyerUserID, msg.ID, now)
	})
	if err != nil {
		return "", err
	}

	return msg.ID, nil
}

// PatchOutcomeOntoExistingCard merges the outcome into the original card's
// metadata. A missing card is non-fatal: the outcome is already recorded on
// the confirm-request row.
func (w *ChatWriter) PatchOutcomeOntoExistingCard(ctx context.Context, conversationID, confirmRequestID string, status model.ConfirmStatus, extra map[string]interface{}) (bool, error) {
	card, err := w.messages.FindConfirmCard(ctx, conversationID, confirmRequestID)
	if err != nil {
		return false, err
	}
	if card == nil {
		return false, nil
	}

	metadata := map[string]interface{}{}
	if len(card.Metadata) > 0 {
		if err := json.Unmarshal(card.Metadata, &metadata); err != nil {
			return false, fmt.Errorf("decode card metadata: %w", err)
		}
	}
	for k, v := range extra {
		metadata[k] = v
	}
	metadata[metaKeyStatus] = string(status)
	metadata[metaKeyRespondedAt] = w.now().Format(time.RFC3339)

	raw, err := json.Marshal(metadata)
	if err != nil {
		return false, err
	}

	if err := w.messages.UpdateMetadata(ctx, card.ID, raw); err != nil {
		return false, err
	}

	return true, nil
}

// ReplaceCardOnAutoAccept deletes the pending card and inserts a
// system-authored outcome message, bumping the buyer's unread counter.
func (w *ChatWriter) ReplaceCardOnAutoAccept(ctx context.Context, conversationID, confirmRequestID, buyerID, sellerID string) (string, error) {
	now := w.now()

	card, err := w.messages.FindConfirmCard(ctx, conversationID, confirmRequestID)
	if err != nil {
		return "", err
	}

	metadata, err := json.Marshal(map[string]interface{}{
		metaKeyType:          metaTypeConfirmRequest,
		metaKeyConfirmID:     confirmRequestID,
		metaKeyStatus:        string(model.ConfirmStatusAutoAccepted),
		metaKeyAutoProcessed: now.Format(time.RFC3339),
	})
	if err != nil {
		return "", err
	}

	msg := &model.Message{
		ID:               uuid.NewString(),
		ConversationID:   conversationID,
		SenderID:         sellerID,
		Content:          autoAcceptedContent,
		Metadata:         metadata,
		ConfirmRequestID: confirmRequestID,
		CreatedAt:        now,
	}

	err = w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if card != nil {
			if err := w.messages.Delete(ctx, tx, card.ID); err != nil {
				return err
			}
		}
		if err := w.messages.Create(ctx, tx, msg); err != nil {
			return err
		}
		return w.messages.IncrementUnread(ctx, tx, conversationID, buyerID, msg.ID, now)
	})
	if err != nil {
		return "", err
	}

	return msg.ID, nil
}
