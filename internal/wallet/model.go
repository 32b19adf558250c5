package wallet

import (
	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/shopspring/decimal"
)

// Balance is the wallet summary shown to a user.
type Balance struct {
	JoinBalance  decimal.Decimal `json:"join_balance"`
	WinBalance   decimal.Decimal `json:"win_balance"`
	TotalBalance decimal.Decimal `json:"total_balance"`
	// TotalPayouts is everything that has left the wallet: successful debits and
	// approved withdrawals.
	TotalPayouts decimal.Decimal `json:"total_payouts"`
}

type Deposit struct {
	ExternalOrderID string
	UserID          int64
	Amount          decimal.Decimal
	PaymentID       string
}

type Winning struct {
	UserID   int64
	Amount   decimal.Decimal
	MatchRef string
	// WinnerID, when set, makes the payout idempotent per winner record.
	WinnerID    int64
	Description string
}

type WinningResult struct {
	Transaction   *ledger.Transaction `json:"transaction"`
	NewWinBalance decimal.Decimal     `json:"new_win_balance"`
	// Duplicate is true when the winner had already been paid.
	Duplicate bool `json:"duplicate"`
}

type ReferralEarnings struct {
	Total        decimal.Decimal      `json:"total"`
	Count        int                  `json:"count"`
	ReferralCode string               `json:"referral_code"`
	Referrals    int                  `json:"total_referrals"`
	Transactions []ledger.Transaction `json:"transactions"`
}

type AddWinningRequest struct {
	UserID      int64           `json:"user_id" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	MatchRef    string          `json:"match_id"`
	Description string          `json:"description"`
}

type AddJoinMoneyRequest struct {
	UserID int64           `json:"user_id" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}
