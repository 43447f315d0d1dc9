package repository

import (
	"context"
	"errors"
	"time"

	"fleamarket-backend/internal/apperr"
	"fleamarket-backend/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ItemRepository interface {
	GetByID(ctx context.Context, id string) (*model.Item, error)
	MarkSold(ctx context.Context, tx *gorm.DB, itemID, buyerID string, finalPrice decimal.Decimal, soldAt time.Time) (bool, error)
}

type itemRepoImpl struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) ItemRepository {
	return &itemRepoImpl{
		db: db,
	}
}

func (r *itemRepoImpl) GetByID(ctx context.Context, id string) (*model.Item, error) {
	var item model.Item
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&item).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	return &item, nil
}

// MarkSold transitions the item to sold. The update only touches unsold rows
// in active/pending status, so re-running it for an already-sold item is a
// no-op; false reports that nothing changed.
func (r *itemRepoImpl) MarkSold(ctx context.Context, tx *gorm.DB, itemID, buyerID string, finalPrice decimal.Decimal, soldAt time.Time) (bool, error) {
	result := tx.WithContext(ctx).Model(&model.Item{}).
		Where("id = ?", itemID).
		Where("sold = ?", false).
		Where("status IN ?", []model.ItemStatus{model.ItemStatusActive, model.ItemStatusPending}).
		Updates(map[string]interface{}{
			"status":      model.ItemStatusSold,
			"sold":        true,
			"sold_to":     buyerID,
			"final_price": finalPrice,
			"date_sold":   soldAt,
			"updated_at":  soldAt,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
