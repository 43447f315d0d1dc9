package dto

import (
	"encoding/json"

	"fleamarket-backend/internal/model"
)

type CreateConfirmRequest struct {
	ConversationID     string          `json:"conversation_id" validate:"required"`
	ProductID          string          `json:"product_id" validate:"required"`
	BuyerID            string          `json:"buyer_id" validate:"required"`
	ScheduledRequestID *string         `json:"scheduled_request_id,omitempty"`
	SellerNotes        string          `json:"seller_notes,omitempty"`
	Snapshot           json.RawMessage `json:"snapshot,omitempty"`
}

type RespondConfirmRequest struct {
	Decision           string `json:"decision" validate:"required,oneof=accept decline"`
	FailureReason      string `json:"failure_reason,omitempty"`
	FailureReasonNotes string `json:"failure_reason_notes,omitempty"`
}

const (
	DecisionAccept  = "accept"
	DecisionDecline = "decline"
)

// ConfirmResponse carries the request plus an optional warning when a
// side-effect write failed after the status transition committed.
type ConfirmResponse struct {
	Request *model.ConfirmRequest `json:"request"`
	Warning string                `json:"warning,omitempty"`
}

type SweepResponse struct {
	Processed int `json:"processed"`
}
