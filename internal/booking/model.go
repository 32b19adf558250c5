package booking

import (
	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/shopspring/decimal"
)

// amountTolerance is how far a client's declared total may drift from the
// computed price.
var amountTolerance = decimal.RequireFromString("0.01")

type BookRequest struct {
	UserID         int64
	SlotID         int64
	Positions      ledger.Positions
	PlayerNames    ledger.PlayerNames
	DeclaredAmount decimal.Decimal
}

type BookResult struct {
	Booking *ledger.Booking `json:"booking"`
	// Charged is what this request cost, not the booking's running total.
	Charged     decimal.Decimal     `json:"charged"`
	Split       ledger.Split        `json:"split"`
	Free        bool                `json:"free"`
	Transaction *ledger.Transaction `json:"transaction,omitempty"`
}

type BookSlotRequest struct {
	SelectedPositions ledger.Positions   `json:"selectedPositions" binding:"required"`
	PlayerNames       ledger.PlayerNames `json:"playerNames" binding:"required"`
	TotalAmount       decimal.Decimal    `json:"totalAmount"`
}
