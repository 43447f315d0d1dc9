package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type ConfirmStatus string

const (
	ConfirmStatusPending       ConfirmStatus = "pending"
	ConfirmStatusBuyerAccepted ConfirmStatus = "buyer_accepted"
	ConfirmStatusBuyerDeclined ConfirmStatus = "buyer_declined"
	ConfirmStatusAutoAccepted  ConfirmStatus = "auto_accepted"
)

// Terminal reports whether the status can never change again.
func (s ConfirmStatus) Terminal() bool {
	return s != ConfirmStatusPending
}

type ItemStatus string

const (
	ItemStatusActive  ItemStatus = "active"
	ItemStatusPending ItemStatus = "pending"
	ItemStatusSold    ItemStatus = "sold"
)

// ConfirmRequest is one seller-initiated "confirm purchase" attempt.
// Rows are never deleted; the status moves from pending to exactly one
// terminal value and never back.
type ConfirmRequest struct {
	ID                 string  `gorm:"primaryKey;size:64;not null"`
	ConversationID     string  `gorm:"size:64;index:idx_conversation_product;not null"`
	ScheduledRequestID *string `gorm:"size:64"` // optional link to a prior scheduling agreement
	ProductID          string  `gorm:"size:64;index:idx_conversation_product;not null"`
	SellerUserID       string  `gorm:"size:64;index;not null"`
	BuyerUserID        string  `gorm:"size:64;index;not null"`

	Status             ConfirmStatus       `gorm:"size:32;index;not null"`
	IsSuccessful       bool                `gorm:"not null"`
	FinalPrice         decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	FailureReason      string              `gorm:"size:64"`
	FailureReasonNotes string              `gorm:"type:text"`
	SellerNotes        string              `gorm:"type:text"`

	// PayloadSnapshot captures the negotiated terms at creation time and is
	// immutable once written.
	PayloadSnapshot json.RawMessage `gorm:"type:text"`

	CreatedAt       time.Time
	ExpiresAt       time.Time `gorm:"index;not null"`
	BuyerResponseAt *time.Time
	AutoProcessedAt *time.Time
}

func (ConfirmRequest) TableName() string {
	return "confirm_requests"
}

// Item is the inventory listing. This workflow only ever transitions it
// active/pending -> sold, at most once.
type Item struct {
	ID           string              `gorm:"primaryKey;size:64;not null"`
	SellerUserID string              `gorm:"size:64;index;not null"`
	Title        string              `gorm:"size:255"`
	Price        decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	Status       ItemStatus          `gorm:"size:32;index;not null"`
	Sold         bool                `gorm:"not null"`
	SoldTo       string              `gorm:"size:64"`
	FinalPrice   decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	DateSold     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Item) TableName() string {
	return "items"
}

// PurchaseHistory is the per-buyer header row, created lazily on the first
// purchase. Entries hang off it and are append-only.
type PurchaseHistory struct {
	BuyerUserID string `gorm:"primaryKey;size:64;not null"`
	CreatedAt   time.Time
}

func (PurchaseHistory) TableName() string {
	return "purchase_histories"
}

type PurchaseHistoryEntry struct {
	ID               uint                `gorm:"primaryKey"`
	BuyerUserID      string              `gorm:"size:64;index;not null"`
	ProductID        string              `gorm:"size:64;index;not null"`
	ConfirmRequestID string              `gorm:"size:64;not null"`
	IsSuccessful     bool                `gorm:"not null"`
	FinalPrice       decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	FailureReason    string              `gorm:"size:64"`
	SellerNotes      string              `gorm:"type:text"`
	Payload          json.RawMessage     `gorm:"type:text"`
	RecordedAt       time.Time           `gorm:"not null"`
}

func (PurchaseHistoryEntry) TableName() string {
	return "purchase_history_entries"
}

type Conversation struct {
	ID           string `gorm:"primaryKey;size:64;not null"`
	ProductID    string `gorm:"size:64;index"`
	SellerUserID string `gorm:"size:64;index;not null"`
	BuyerUserID  string `gorm:"size:64;index;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Conversation) TableName() string {
	return "conversations"
}

// ConversationParticipant owns the per-user unread bookkeeping.
type ConversationParticipant struct {
	ConversationID   string  `gorm:"primaryKey;size:64;not null"`
	UserID           string  `gorm:"primaryKey;size:64;not null"`
	UnreadCount      int     `gorm:"not null"`
	FirstUnreadMsgID *string `gorm:"size:64"`
	UpdatedAt        time.Time
}

func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

// Message is a chat message. ConfirmRequestID is extracted from the metadata
// into its own indexed column so confirm cards are found by
// (conversation_id, confirm_request_id) instead of scanning JSON.
type Message struct {
	ID               string          `gorm:"primaryKey;size:64;not null"`
	ConversationID   string          `gorm:"size:64;index:idx_conversation_confirm;not null"`
	SenderID         string          `gorm:"size:64;index;not null"`
	Content          string          `gorm:"type:text"`
	Metadata         json.RawMessage `gorm:"type:text"`
	ConfirmRequestID string          `gorm:"size:64;index:idx_conversation_confirm"`
	CreatedAt        time.Time
}

func (Message) TableName() string {
	return "messages"
}
