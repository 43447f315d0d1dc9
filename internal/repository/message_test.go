package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"fleamarket-backend/internal/model"
)

func TestFindConfirmCardByIndexedPair(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	rows := []*model.Message{
		{ID: "m-1", ConversationID: "conv-1", SenderID: "buyer-1", Content: "is this available?", CreatedAt: now},
		{ID: "m-2", ConversationID: "conv-1", SenderID: "seller-1", Content: "confirm please", ConfirmRequestID: "cr-1", Metadata: json.RawMessage(`{"type":"confirm_request","confirm_request_id":"cr-1"}`), CreatedAt: now.Add(time.Minute)},
		{ID: "m-3", ConversationID: "conv-2", SenderID: "seller-1", Content: "other conv", ConfirmRequestID: "cr-2", CreatedAt: now.Add(2 * time.Minute)},
	}
	for _, msg := range rows {
		if err := repo.Create(ctx, db, msg); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	card, err := repo.FindConfirmCard(ctx, "conv-1", "cr-1")
	if err != nil {
		t.Fatalf("FindConfirmCard: %v", err)
	}
	if card == nil || card.ID != "m-2" {
		t.Fatalf("expected m-2, got %+v", card)
	}

	// Missing card is nil, not an error: callers treat it as non-fatal.
	card, err = repo.FindConfirmCard(ctx, "conv-1", "cr-999")
	if err != nil {
		t.Fatalf("FindConfirmCard missing: %v", err)
	}
	if card != nil {
		t.Fatalf("expected nil for missing card, got %+v", card)
	}
}

func TestListByConversationDescending(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"m-1", "m-2", "m-3"} {
		msg := &model.Message{
			ID:             id,
			ConversationID: "conv-1",
			SenderID:       "buyer-1",
			CreatedAt:      now.Add(time.Duration(i) * time.Minute),
		}
		if err := repo.Create(ctx, db, msg); err != nil {
			t.Fatalf("seed message: %v", err)
		}
	}

	msgs, err := repo.ListByConversation(ctx, "conv-1")
	if err != nil {
		t.Fatalf("ListByConversation: %v", err)
	}
	if len(msgs) != 3 || msgs[0].ID != "m-3" || msgs[2].ID != "m-1" {
		t.Fatalf("expected newest first, got %v", []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
	}
}

func TestIncrementUnreadPinsFirstUnread(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := db.Create(&model.ConversationParticipant{
		ConversationID: "conv-1",
		UserID:         "buyer-1",
	}).Error; err != nil {
		t.Fatalf("seed participant: %v", err)
	}

	if err := repo.IncrementUnread(ctx, db, "conv-1", "buyer-1", "m-1", now); err != nil {
		t.Fatalf("first increment: %v", err)
	}
	if err := repo.IncrementUnread(ctx, db, "conv-1", "buyer-1", "m-2", now.Add(time.Minute)); err != nil {
		t.Fatalf("second increment: %v", err)
	}

	var participant model.ConversationParticipant
	if err := db.Where("conversation_id = ? AND user_id = ?", "conv-1", "buyer-1").First(&participant).Error; err != nil {
		t.Fatalf("load participant: %v", err)
	}
	if participant.UnreadCount != 2 {
		t.Fatalf("expected unread 2, got %d", participant.UnreadCount)
	}
	if participant.FirstUnreadMsgID == nil || *participant.FirstUnreadMsgID != "m-1" {
		t.Fatalf("first unread must stay pinned to m-1, got %v", participant.FirstUnreadMsgID)
	}
}

func TestUpdateMetadataPersists(t *testing.T) {
	db := newTestDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	msg := &model.Message{
		ID:               "m-1",
		ConversationID:   "conv-1",
		SenderID:         "seller-1",
		ConfirmRequestID: "cr-1",
		Metadata:         json.RawMessage(`{"type":"confirm_request","confirm_request_id":"cr-1"}`),
		CreatedAt:        now,
	}
	if err := repo.Create(ctx, db, msg); err != nil {
		t.Fatalf("seed message: %v", err)
	}

	patched := json.RawMessage(`{"type":"confirm_request","confirm_request_id":"cr-1","confirm_purchase_status":"buyer_declined"}`)
	if err := repo.UpdateMetadata(ctx, "m-1", patched); err != nil {
		t.Fatalf("UpdateMetadata: %v", err)
	}

	card, err := repo.FindConfirmCard(ctx, "conv-1", "cr-1")
	if err != nil || card == nil {
		t.Fatalf("FindConfirmCard: card=%v err=%v", card, err)
	}

	meta := map[string]interface{}{}
	if err := json.Unmarshal(card.Metadata, &meta); err != nil {
		t.Fatalf("decode metadata: %v", err)
	}
	if meta["confirm_purchase_status"] != "buyer_declined" {
		t.Fatalf("metadata not patched: %v", meta)
	}
}
