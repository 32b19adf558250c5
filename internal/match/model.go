package match

import (
	"time"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/shopspring/decimal"
)

// Slot is a scheduled match players book positions in.
type Slot struct {
	ID                 int64             `db:"id" json:"id"`
	Title              string            `db:"title" json:"title"`
	SlotType           string            `db:"slot_type" json:"slot_type"`
	EntryFee           decimal.Decimal   `db:"entry_fee" json:"entry_fee"`
	MaxPositions       int               `db:"max_positions" json:"max_positions"`
	RemainingPositions int               `db:"remaining_positions" json:"remaining_positions"`
	Status             ledger.SlotStatus `db:"status" json:"status"`
	MatchTime          time.Time         `db:"match_time" json:"match_time"`
	CreatedAt          time.Time         `db:"created_at" json:"created_at"`
}

type Winner struct {
	ID           int64           `db:"id" json:"id"`
	SlotID       int64           `db:"slot_id" json:"slot_id"`
	UserID       int64           `db:"user_id" json:"user_id"`
	PlayerName   string          `db:"player_name" json:"player_name"`
	Rank         int             `db:"rank" json:"rank"`
	Kills        int             `db:"kills" json:"kills"`
	WinningPrice decimal.Decimal `db:"winning_price" json:"winning_price"`
	PaidTxID     *string         `db:"paid_tx_id" json:"paid_tx_id,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}

func (w *Winner) Paid() bool { return w.PaidTxID != nil }

type CreateSlotRequest struct {
	Title        string          `json:"title" binding:"required"`
	SlotType     string          `json:"slot_type" binding:"required"`
	EntryFee     decimal.Decimal `json:"entry_fee" swaggertype:"string" example:"15"`
	MaxPositions int             `json:"max_positions" binding:"required,min=1"`
	MatchTime    string          `json:"match_time" binding:"required" example:"2026-11-01T18:30:00Z"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=upcoming live completed cancelled"`
}

type WinnerInput struct {
	UserID       int64           `json:"user_id" binding:"required"`
	PlayerName   string          `json:"player_name"`
	Rank         int             `json:"rank" binding:"required,min=1"`
	Kills        int             `json:"kills" binding:"min=0"`
	WinningPrice decimal.Decimal `json:"winning_price" swaggertype:"string" example:"100"`
}

type RecordWinnersRequest struct {
	Winners []WinnerInput `json:"winners" binding:"required,min=1,dive"`
}

// Payout is the outcome of paying one winner.
type Payout struct {
	WinnerID      int64           `json:"winner_id"`
	UserID        int64           `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id,omitempty"`
	AlreadyPaid   bool            `json:"already_paid,omitempty"`
	Error         string          `json:"error,omitempty"`
}
