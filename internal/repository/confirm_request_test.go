package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"fleamarket-backend/internal/apperr"
	"fleamarket-backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = db.AutoMigrate(
		&model.Item{},
		&model.Conversation{},
		&model.ConversationParticipant{},
		&model.Message{},
		&model.ConfirmRequest{},
		&model.PurchaseHistory{},
		&model.PurchaseHistoryEntry{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	return db
}

func pendingRequest(id string, createdAt time.Time) *model.ConfirmRequest {
	return &model.ConfirmRequest{
		ID:             id,
		ConversationID: "conv-1",
		ProductID:      "item-1",
		SellerUserID:   "seller-1",
		BuyerUserID:    "buyer-1",
		Status:         model.ConfirmStatusPending,
		CreatedAt:      createdAt,
		ExpiresAt:      createdAt.Add(24 * time.Hour),
	}
}

func TestCreateRejectsDuplicatePending(t *testing.T) {
	repo := NewConfirmRequestRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, pendingRequest("cr-1", now)); err != nil {
		t.Fatalf("first create: %v", err)
	}

	err := repo.Create(ctx, pendingRequest("cr-2", now))
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// Once the first request resolves, the pair is free again.
	ok, err := repo.MarkBuyerDeclined(ctx, "cr-1", "changed_mind", "", now)
	if err != nil || !ok {
		t.Fatalf("decline: ok=%v err=%v", ok, err)
	}
	if err := repo.Create(ctx, pendingRequest("cr-3", now)); err != nil {
		t.Fatalf("create after resolve: %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	repo := NewConfirmRequestRepository(newTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTerminalTransitionHappensOnce(t *testing.T) {
	repo := NewConfirmRequestRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, pendingRequest("cr-1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	price := decimal.NullDecimal{Decimal: decimal.RequireFromString("25.00"), Valid: true}

	ok, err := repo.MarkBuyerAccepted(ctx, "cr-1", price, now)
	if err != nil || !ok {
		t.Fatalf("accept: ok=%v err=%v", ok, err)
	}

	// Every other transition loses the conditional update.
	ok, err = repo.MarkBuyerAccepted(ctx, "cr-1", price, now)
	if err != nil || ok {
		t.Fatalf("second accept should affect zero rows: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkBuyerDeclined(ctx, "cr-1", "reason", "", now)
	if err != nil || ok {
		t.Fatalf("decline after accept should affect zero rows: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkAutoAccepted(ctx, "cr-1", price, now.Add(48*time.Hour))
	if err != nil || ok {
		t.Fatalf("auto accept after accept should affect zero rows: ok=%v err=%v", ok, err)
	}

	got, err := repo.GetByID(ctx, "cr-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.ConfirmStatusBuyerAccepted || !got.IsSuccessful {
		t.Fatalf("terminal state corrupted: %+v", got)
	}
}

func TestMarkAutoAcceptedRespectsExpiry(t *testing.T) {
	repo := NewConfirmRequestRepository(newTestDB(t))
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.Create(ctx, pendingRequest("cr-1", now)); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Still inside the window: the guarded update must not fire.
	ok, err := repo.MarkAutoAccepted(ctx, "cr-1", decimal.NullDecimal{}, now.Add(23*time.Hour))
	if err != nil || ok {
		t.Fatalf("auto accept before expiry: ok=%v err=%v", ok, err)
	}

	ok, err = repo.MarkAutoAccepted(ctx, "cr-1", decimal.NullDecimal{}, now.Add(25*time.Hour))
	if err != nil || !ok {
		t.Fatalf("auto accept after expiry: ok=%v err=%v", ok, err)
	}

	got, err := repo.GetByID(ctx, "cr-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != model.ConfirmStatusAutoAccepted || got.AutoProcessedAt == nil {
		t.Fatalf("auto accept bookkeeping missing: %+v", got)
	}
}

func TestFindPendingExpired(t *testing.T) {
	db := newTestDB(t)
	repo := NewConfirmRequestRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	expired := pendingRequest("cr-expired", now.Add(-48*time.Hour))
	fresh := pendingRequest("cr-fresh", now)
	fresh.ConversationID = "conv-2"
	resolved := pendingRequest("cr-resolved", now.Add(-48*time.Hour))
	resolved.ConversationID = "conv-3"
	resolved.Status = model.ConfirmStatusBuyerDeclined

	for _, req := range []*model.ConfirmRequest{expired, fresh, resolved} {
		if err := db.Create(req).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	ids, err := repo.FindPendingExpired(ctx, now, 10)
	if err != nil {
		t.Fatalf("FindPendingExpired: %v", err)
	}
	if len(ids) != 1 || ids[0] != "cr-expired" {
		t.Fatalf("expected [cr-expired], got %v", ids)
	}
}

func TestMarkSoldIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewItemRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	if err := db.Create(&model.Item{
		ID:           "item-1",
		SellerUserID: "seller-1",
		Price:        decimal.RequireFromString("10.00"),
		Status:       model.ItemStatusActive,
	}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}

	sold, err := repo.MarkSold(ctx, db, "item-1", "buyer-1", decimal.RequireFromString("25.00"), now)
	if err != nil || !sold {
		t.Fatalf("first MarkSold: sold=%v err=%v", sold, err)
	}

	sold, err = repo.MarkSold(ctx, db, "item-1", "buyer-2", decimal.RequireFromString("99.00"), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second MarkSold: %v", err)
	}
	if sold {
		t.Fatalf("second MarkSold must be a no-op")
	}

	item, err := repo.GetByID(ctx, "item-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if item.SoldTo != "buyer-1" || !item.FinalPrice.Decimal.Equal(decimal.RequireFromString("25.00")) {
		t.Fatalf("first sale overwritten: %+v", item)
	}
}
