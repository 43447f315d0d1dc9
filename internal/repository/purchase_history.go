package repository

import (
	"context"

	"fleamarket-backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseHistoryRepository interface {
	AppendEntry(ctx context.Context, tx *gorm.DB, entry *model.PurchaseHistoryEntry) error
	ListByBuyer(ctx context.Context, buyerID string) ([]*model.PurchaseHistoryEntry, error)
}

type purchaseHistoryRepoImpl struct {
	db *gorm.DB
}

func NewPurchaseHistoryRepository(db *gorm.DB) PurchaseHistoryRepository {
	return &purchaseHistoryRepoImpl{
		db: db,
	}
}

// AppendEntry upserts the buyer's header row lazily, then appends. Entries
// are append-only; nothing here ever updates or deletes an existing one.
func (r *purchaseHistoryRepoImpl) AppendEntry(ctx context.Context, tx *gorm.DB, entry *model.PurchaseHistoryEntry) error {
	err := tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "buyer_user_id"}},
		DoNothing: true,
	}).Create(&model.PurchaseHistory{
		BuyerUserID: entry.BuyerUserID,
		CreatedAt:   entry.RecordedAt,
	}).Error
	if err != nil {
		return err
	}

	return tx.WithContext(ctx).Create(entry).Error
}

func (r *purchaseHistoryRepoImpl) ListByBuyer(ctx context.Context, buyerID string) ([]*model.PurchaseHistoryEntry, error) {
	var entries []*model.PurchaseHistoryEntry
	err := r.db.WithContext(ctx).
		Where("buyer_user_id = ?", buyerID).
		Order("recorded_at").
		Find(&entries).Error

	if err != nil {
		return nil, err
	}

	return entries, nil
}
