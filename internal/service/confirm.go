package service

import (
	"context"
	"fmt"
	"time"

	"fleamarket-backend/internal/apperr"
	"fleamarket-backend/internal/dto"
	"fleamarket-backend/internal/model"
	"fleamarket-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type ConfirmService interface {
	CreateConfirmRequest(ctx context.Context, sellerID string, in *dto.CreateConfirmRequest) (*model.ConfirmRequest, error)
	RespondToConfirmRequest(ctx context.Context, buyerID, confirmRequestID string, in *dto.RespondConfirmRequest) (*model.ConfirmRequest, error)
	GetConfirmRequestStatus(ctx context.Context, userID, confirmRequestID string) (*model.ConfirmRequest, error)
	SweepExpired(ctx context.Context, limit int) (int, error)
}

type confirmServiceImpl struct {
	confirms   repository.ConfirmRequestRepository
	items      repository.ItemRepository
	prices     *PriceResolver
	settlement *Settlement
	chat       *ChatWriter
	log        *logrus.Logger
	now        func() time.Time
	expiry     time.Duration
}

func NewConfirmService(
	confirms repository.ConfirmRequestRepository,
	items repository.ItemRepository,
	prices *PriceResolver,
	settlement *Settlement,
	chat *ChatWriter,
	log *logrus.Logger,
	now func() time.Time,
	expiry time.Duration,
) ConfirmService {
	if now == nil {
		now = time.Now
	}
	return &confirmServiceImpl{
		confirms:   confirms,
		items:      items,
		prices:     prices,
		settlement: settlement,
		chat:       chat,
		log:        log,
		now:        now,
		expiry:     expiry,
	}
}

func (s *confirmServiceImpl) CreateConfirmRequest(ctx context.Context, sellerID string, in *dto.CreateConfirmRequest) (*model.ConfirmRequest, error) {
	item, err := s.items.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if item.SellerUserID != sellerID {
		return nil, apperr.ErrForbidden
	}
	if item.Sold {
		return nil, apperr.ErrConflict
	}

	now := s.now()
	req := &model.ConfirmRequest{
		ID:                 uuid.NewString(),
		ConversationID:     in.ConversationID,
		ScheduledRequestID: in.ScheduledRequestID,
		ProductID:          in.ProductID,
		SellerUserID:       sellerID,
		BuyerUserID:        in.BuyerID,
		Status:             model.ConfirmStatusPending,
		SellerNotes:        in.SellerNotes,
		PayloadSnapshot:    in.Snapshot,
		CreatedAt:          now,
		ExpiresAt:          now.Add(s.expiry),
	}

	if err := s.confirms.Create(ctx, req); err != nil {
		return nil, err
	}

	if _, err := s.chat.PostConfirmRequestCard(ctx, req); err != nil {
		s.logDependency("CreateConfirmRequest", req.ID, err)
		return req, apperr.Dependency("post confirm request card", err)
	}

	return req, nil
}

func (s *confirmServiceImpl) RespondToConfirmRequest(ctx context.Context, buyerID, confirmRequestID string, in *dto.RespondConfirmRequest) (*model.ConfirmRequest, error) {
	req, err := s.confirms.GetByID(ctx, confirmRequestID)
	if err != nil {
		return nil, err
	}
	if req.BuyerUserID != buyerID {
		return nil, apperr.ErrForbidden
	}
	if req.Status.Terminal() {
		return nil, apperr.ErrInvalidState
	}

	if in.Decision == dto.DecisionAccept {
		return s.acceptByBuyer(ctx, req)
	}
	return s.declineByBuyer(ctx, req, in)
}

func (s *confirmServiceImpl) acceptByBuyer(ctx context.Context, req *model.ConfirmRequest) (*model.ConfirmRequest, error) {
	resolved, err := s.prices.ResolveFinalPrice(ctx, req)
	if err != nil {
		return nil, err
	}

	ok, err := s.confirms.MarkBuyerAccepted(ctx, req.ID, resolved, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		// A concurrent response or the auto-finalizer won the transition.
		return nil, apperr.ErrInvalidState
	}

	req, err = s.confirms.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if err := s.settlement.Settle(ctx, req); err != nil {
		s.logDependency("RespondToConfirmRequest", req.ID, err)
		return req, apperr.Dependency("settlement", err)
	}

	extra := map[string]interface{}{}
	if req.FinalPrice.Valid {
		extra["final_price"] = req.FinalPrice.Decimal.String()
	}
	if _, err := s.chat.PatchOutcomeOntoExistingCard(ctx, req.ConversationID, req.ID, model.ConfirmStatusBuyerAccepted, extra); err != nil {
		s.logDependency("RespondToConfirmRequest", req.ID, err)
		return req, apperr.Dependency("patch confirm card", err)
	}

	return req, nil
}

func (s *confirmServiceImpl) declineByBuyer(ctx context.Context, req *model.ConfirmRequest, in *dto.RespondConfirmRequest) (*model.ConfirmRequest, error) {
	ok, err := s.confirms.MarkBuyerDeclined(ctx, req.ID, in.FailureReason, in.FailureReasonNotes, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrInvalidState
	}

	req, err = s.confirms.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	extra := map[string]interface{}{}
	if req.FailureReason != "" {
		extra["failure_reason"] = req.FailureReason
	}
	if _, err := s.chat.PatchOutcomeOntoExistingCard(ctx, req.ConversationID, req.ID, model.ConfirmStatusBuyerDeclined, extra); err != nil {
		s.logDependency("RespondToConfirmRequest", req.ID, err)
		return req, apperr.Dependency("patch confirm card", err)
	}

	return req, nil
}

// GetConfirmRequestStatus returns the request after opportunistically
// applying the expiry transition. Callers reading a possibly-stale pending
// row get the auto-accepted state the moment anyone looks at it.
func (s *confirmServiceImpl) GetConfirmRequestStatus(ctx context.Context, userID, confirmRequestID string) (*model.ConfirmRequest, error) {
	req, err := s.confirms.GetByID(ctx, confirmRequestID)
	if err != nil {
		return nil, err
	}
	if userID != req.BuyerUserID && userID != req.SellerUserID {
		return nil, apperr.ErrForbidden
	}

	if req.Status == model.ConfirmStatusPending && s.now().After(req.ExpiresAt) {
		return s.autoFinalize(ctx, req)
	}

	if req.Status.Terminal() && req.IsSuccessful {
		// Retry hook for resolved-but-not-yet-settled rows; Settle is a
		// no-op when the item is already sold.
		if err := s.settlement.Settle(ctx, req); err != nil {
			s.logDependency("GetConfirmRequestStatus", req.ID, err)
			return req, apperr.Dependency("settlement retry", err)
		}
	}

	return req, nil
}

// autoFinalize promotes an expired pending request to auto_accepted. The
// conditional update decides the race against a concurrent buyer response;
// losing it is a no-op. Settlement runs before the chat replacement so a
// client refreshing right after the message never sees an unsold item.
func (s *confirmServiceImpl) autoFinalize(ctx context.Context, req *model.ConfirmRequest) (*model.ConfirmRequest, error) {
	resolved, err := s.prices.ResolveFinalPrice(ctx, req)
	if err != nil {
		return nil, err
	}

	ok, err := s.confirms.MarkAutoAccepted(ctx, req.ID, resolved, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.confirms.GetByID(ctx, req.ID)
	}

	req, err = s.confirms.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if err := s.settlement.Settle(ctx, req); err != nil {
		s.logDependency("autoFinalize", req.ID, err)
		return req, apperr.Dependency("settlement", err)
	}

	if _, err := s.chat.ReplaceCardOnAutoAccept(ctx, req.ConversationID, req.ID, req.BuyerUserID, req.SellerUserID); err != nil {
		s.logDependency("autoFinalize", req.ID, err)
		return req, apperr.Dependency("replace confirm card", err)
	}

	return req, nil
}

// SweepExpired runs the lazy finalizer over a bounded batch of expired
// pending requests. Returns how many transitions this call won.
func (s *confirmServiceImpl) SweepExpired(ctx context.Context, limit int) (int, error) {
	ids, err := s.confirms.FindPendingExpired(ctx, s.now(), limit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, id := range ids {
		req, err := s.confirms.GetByID(ctx, id)
		if err != nil {
			continue
		}
		if req.Status.Terminal() {
			continue
		}

		updated, err := s.autoFinalize(ctx, req)
		if err != nil {
			s.log.WithFields(logrus.Fields{
				"module":           "confirm",
				"funcName":         "SweepExpired",
				"confirmRequestID": id,
			}).Warn(fmt.Sprintf("sweep finalize: %v", err))
			continue
		}
		if updated.Status == model.ConfirmStatusAutoAccepted {
			processed++
		}
	}

	return processed, nil
}

func (s *confirmServiceImpl) logDependency(funcName, confirmRequestID string, err error) {
	s.log.WithFields(logrus.Fields{
		"module":           "confirm",
		"funcName":         funcName,
		"confirmRequestID": confirmRequestID,
	}).Warn(err.Error())
}
