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

type ConfirmRequestRepository interface {
	Create(ctx context.Context, req *model.ConfirmRequest) error
	GetByID(ctx context.Context, id string) (*model.ConfirmRequest, error)
	MarkBuyerAccepted(ctx context.Context, id string, finalPrice decimal.NullDecimal, now time.Time) (bool, error)
	MarkBuyerDeclined(ctx context.Context, id string, reason, reasonNotes string, now time.Time) (bool, error)
	MarkAutoAccepted(ctx context.Context, id string, finalPrice decimal.NullDecimal, now time.Time) (bool, error)
	FindPendingExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
}

type confirmRequestRepoImpl struct {
	db *gorm.DB
}

func NewConfirmRequestRepository(db *gorm.DB) ConfirmRequestRepository {
	return &confirmRequestRepoImpl{
		db: db,
	}
}

// Create inserts the request unless an unresolved one already exists for the
// same (conversation, product) pair.
func (r *confirmRequestRepoImpl) Create(ctx context.Context, req *model.ConfirmRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&model.ConfirmRequest{}).
			Where("conversation_id = ?", req.ConversationID).
			Where("product_id = ?", req.ProductID).
			Where("status = ?", model.ConfirmStatusPending).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return apperr.ErrConflict
		}

		return tx.Create(req).Error
	})
}

func (r *confirmRequestRepoImpl) GetByID(ctx context.Context, id string) (*model.ConfirmRequest, error) {
	var req model.ConfirmRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&req).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	return &req, nil
}

// MarkBuyerAccepted applies the pending -> buyer_accepted transition. The
// update is conditional on the row still being pending; a false return means
// a concurrent caller already resolved the request.
func (r *confirmRequestRepoImpl) MarkBuyerAccepted(ctx context.Context, id string, finalPrice decimal.NullDecimal, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.ConfirmRequest{}).
		Where("id = ?", id).
		Where("status = ?", model.ConfirmStatusPending).
		Updates(map[string]interface{}{
			"status":            model.ConfirmStatusBuyerAccepted,
			"is_successful":     true,
			"final_price":       finalPrice,
			"buyer_response_at": now,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *confirmRequestRepoImpl) MarkBuyerDeclined(ctx context.Context, id string, reason, reasonNotes string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.ConfirmRequest{}).
		Where("id = ?", id).
		Where("status = ?", model.ConfirmStatusPending).
		Updates(map[string]interface{}{
			"status":               model.ConfirmStatusBuyerDeclined,
			"is_successful":        false,
			"failure_reason":       reason,
			"failure_reason_notes": reasonNotes,
			"buyer_response_at":    now,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkAutoAccepted applies the pending -> auto_accepted transition, guarded
// by the expiry cutoff as well as the pending status so a request whose
// window has not elapsed is left untouched.
func (r *confirmRequestRepoImpl) MarkAutoAccepted(ctx context.Context, id string, finalPrice decimal.NullDecimal, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.ConfirmRequest{}).
		Where("id = ?", id).
		Where("status = ?", model.ConfirmStatusPending).
		Where("expires_at < ?", now).
		Updates(map[string]interface{}{
			"status":            model.ConfirmStatusAutoAccepted,
			"is_successful":     true,
			"final_price":       finalPrice,
			"auto_processed_at": now,
		})

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *confirmRequestRepoImpl) FindPendingExpired(ctx context.Context, now time.Time, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&model.ConfirmRequest{}).
		Where("status = ?", model.ConfirmStatusPending).
		Where("expires_at < ?", now).
		Order("expires_at").
		Limit(limit).
		Pluck("id", &ids).Error

	if err != nil {
		return nil, err
	}

	return ids, nil
}
