package service

import (
	"context"
	"fmt"
	"time"

	"fleamarket-backend/internal/model"
	"fleamarket-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Settlement marks the inventory item sold and records the purchase in the
// buyer's history, exactly once per successful confirmation. It never touches
// the confirm-request row; a failure here must not re-open the negotiation.
type Settlement struct {
	db      *gorm.DB
	items   repository.ItemRepository
	history repository.PurchaseHistoryRepository
	prices  *PriceResolver
	log     *logrus.Logger
	now     func() time.Time
}

func NewSettlement(db *gorm.DB, items repository.ItemRepository, history repository.PurchaseHistoryRepository, prices *PriceResolver, log *logrus.Logger, now func() time.Time) *Settlement {
	if now == nil {
		now = time.Now
	}
	return &Settlement{
		db:      db,
		items:   items,
		history: history,
		prices:  prices,
		log:     log,
		now:     now,
	}
}

// Settle is invoked only for requests that reached a successful terminal
// state. It is idempotent: when the item is already sold nothing is written,
// so it is safe to re-run after a partial failure.
func (s *Settlement) Settle(ctx context.Context, req *model.ConfirmRequest) error {
	if !req.IsSuccessful {
		return fmt.Errorf("settle called for unsuccessful request %s", req.ID)
	}

	resolved, err := s.prices.ResolveFinalPrice(ctx, req)
	if err != nil {
		return err
	}

	finalPrice := decimal.Zero
	if resolved.Valid {
		finalPrice = resolved.Decimal
	} else {
		// Documented fallback; likely masks an unresolved negotiation, so
		// keep it loud.
		s.log.WithFields(logrus.Fields{
			"module":           "settlement",
			"confirmRequestID": req.ID,
			"productID":        req.ProductID,
		}).Warn("no price source resolved, defaulting final price to 0")
	}

	now := s.now()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sold, err := s.items.MarkSold(ctx, tx, req.ProductID, req.BuyerUserID, finalPrice, now)
		if err != nil {
			return fmt.Errorf("mark item sold: %w", err)
		}
		if !sold {
			// Already settled by an earlier run.
			return nil
		}

		entry := &model.PurchaseHistoryEntry{
			BuyerUserID:      req.BuyerUserID,
			ProductID:        req.ProductID,
			ConfirmRequestID: req.ID,
			IsSuccessful:     req.IsSuccessful,
			FinalPrice:       decimal.NullDecimal{Decimal: finalPrice, Valid: true},
			FailureReason:    req.FailureReason,
			SellerNotes:      req.SellerNotes,
			Payload:          req.PayloadSnapshot,
			RecordedAt:       now,
		}
		if err := s.history.AppendEntry(ctx, tx, entry); err != nil {
			return fmt.Errorf("append purchase history: %w", err)
		}

		return nil
	})
}
