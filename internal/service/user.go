package service

import (
	"context"

	"fleamarket-backend/internal/model"
	"fleamarket-backend/internal/repository"
)

type UserService interface {
	GetPurchaseHistory(ctx context.Context, buyerID string) ([]*model.PurchaseHistoryEntry, error)
	GetConversationMessages(ctx context.Context, conversationID string) ([]*model.Message, error)
}

type userServiceImpl struct {
	historyRepo repository.PurchaseHistoryRepository
	messageRepo repository.MessageRepository
}

func NewUserService(
	historyRepo repository.PurchaseHistoryRepository,
	messageRepo repository.MessageRepository,
) UserService {
	return &userServiceImpl{
		historyRepo: historyRepo,
		messageRepo: messageRepo,
	}
}

func (s *userServiceImpl) GetPurchaseHistory(ctx context.Context, buyerID string) ([]*model.PurchaseHistoryEntry, error) {
	return s.historyRepo.ListByBuyer(ctx, buyerID)
}

func (s *userServiceImpl) GetConversationMessages(ctx context.Context, conversationID string) ([]*model.Message, error) {
	return s.messageRepo.ListByConversation(ctx, conversationID)
}
