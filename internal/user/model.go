package user

import (
	"time"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/shopspring/decimal"
)

type User struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	Role           string    `db:"role" json:"role"`
	ReferralCode   string    `db:"referral_code" json:"referral_code"`
	ReferredByCode string    `db:"referred_by_code" json:"referred_by_code,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Profile is the /me view: the user plus wallet and referral stats.
type Profile struct {
	User
	JoinBalance           decimal.Decimal `json:"join_balance"`
	WinBalance            decimal.Decimal `json:"win_balance"`
	TotalBalance          decimal.Decimal `json:"total_balance"`
	TotalReferralEarnings decimal.Decimal `json:"total_referral_earnings"`
	TotalReferralCount    int             `json:"total_referral_count"`
}

func newProfile(u *User, a *ledger.Account) *Profile {
	return &Profile{
		User:                  *u,
		JoinBalance:           a.JoinBalance,
		WinBalance:            a.WinBalance,
		TotalBalance:          a.Total(),
		TotalReferralEarnings: a.TotalReferralEarnings,
		TotalReferralCount:    a.TotalReferralCount,
	}
}

type RegisterRequest struct {
	Name         string `json:"name" binding:"required" example:"Ghost"`
	Email        string `json:"email" binding:"required,email" example:"ghost@example.com"`
	Password     string `json:"password" binding:"required,min=6" example:"secret123"`
	ReferralCode string `json:"referral_code" example:"Alpha1234"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}
