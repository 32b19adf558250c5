package ledger

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/shopspring/decimal"
)

// Bucket selects one of the two sub-balances of an account.
type Bucket string

const (
	BucketJoin Bucket = "join"
	BucketWin  Bucket = "win"
)

type TxType string

const (
	TxCredit   TxType = "CREDIT"
	TxDebit    TxType = "DEBIT"
	TxBooking  TxType = "BOOKING"
	TxWin      TxType = "WIN"
	TxWithdraw TxType = "WITHDRAW"
)

type TxStatus string

const (
	StatusSuccess         TxStatus = "SUCCESS"
	StatusPendingApproval TxStatus = "PENDING_ADMIN_APPROVAL"
	StatusApproved        TxStatus = "ADMIN_APPROVED"
	StatusRejected        TxStatus = "ADMIN_REJECTED"
	StatusFailed          TxStatus = "FAILED"
)

const (
	MethodWallet  = "WALLET"
	MethodSystem  = "SYSTEM"
	MethodAdmin   = "ADMIN"
	MethodGateway = "GATEWAY"
)

// Recognized metadata keys. Metadata stays an open string map on the wire, but
// nothing in this module writes a key that is not listed here.
const (
	MetaBonusType        = "bonusType"
	MetaCategory         = "category"
	MetaUPIID            = "upiId"
	MetaMatchID          = "matchId"
	MetaSlotID           = "slotId"
	MetaWinnerID         = "winnerId"
	MetaPositions        = "positions"
	MetaReferredUser     = "referredUser"
	MetaReferrerID       = "referrerId"
	MetaReferrerCode     = "referrerCode"
	MetaWithdrawalID     = "withdrawalId"
	MetaWithdrawalAmount = "withdrawalAmount"
	MetaOrderID          = "orderId"
	MetaPaymentID        = "paymentId"
	MetaDescription      = "description"
	MetaAdminID          = "adminId"
)

// Referral bonus types stored under MetaBonusType.
const (
	BonusSignup         = "signup_referral"
	BonusFirstPaidMatch = "first_paid_match_referral"
	BonusMatchWin       = "match_win_referral"
	BonusWithdrawal     = "withdrawal_referral"
)

// ReferralBonusTypes lists every bonusType produced by the referral engine.
var ReferralBonusTypes = []string{BonusSignup, BonusFirstPaidMatch, BonusMatchWin, BonusWithdrawal}

const (
	CategoryWin               = "WIN"
	CategoryWithdrawalRelease = "WITHDRAWAL_RELEASE"
)

// Account is the money-bearing part of a user record.
type Account struct {
	UserID                 int64           `db:"id" json:"user_id"`
	JoinBalance            decimal.Decimal `db:"join_balance" json:"join_balance"`
	WinBalance             decimal.Decimal `db:"win_balance" json:"win_balance"`
	ReferralCode           string          `db:"referral_code" json:"referral_code"`
	ReferredByCode         string          `db:"referred_by_code" json:"referred_by_code,omitempty"`
	SignupBonusCredited    bool            `db:"signup_bonus_credited" json:"signup_bonus_credited"`
	FirstPaidBonusCredited bool            `db:"first_paid_bonus_credited" json:"first_paid_bonus_credited"`
	TotalReferralEarnings  decimal.Decimal `db:"total_referral_earnings" json:"total_referral_earnings"`
	TotalReferralCount     int             `db:"total_referral_count" json:"total_referral_count"`
}

func (a *Account) Total() decimal.Decimal {
	return a.JoinBalance.Add(a.WinBalance)
}

func (a *Account) Balance(b Bucket) decimal.Decimal {
	if b == BucketWin {
		return a.WinBalance
	}
	return a.JoinBalance
}

func (a *Account) Snapshot() BalanceSnapshot {
	return BalanceSnapshot{
		UserID:       a.UserID,
		JoinBalance:  a.JoinBalance,
		WinBalance:   a.WinBalance,
		TotalBalance: a.Total(),
	}
}

// BalanceSnapshot is what gets pushed to clients after a balance mutation.
type BalanceSnapshot struct {
	UserID       int64           `json:"user_id"`
	JoinBalance  decimal.Decimal `json:"join_balance"`
	WinBalance   decimal.Decimal `json:"win_balance"`
	TotalBalance decimal.Decimal `json:"total_balance"`
}

// Metadata is the free-form key/value bag attached to a transaction.
type Metadata map[string]string

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return types.JSONText(`{}`).Value()
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return types.JSONText(b).Value()
}

func (m *Metadata) Scan(src interface{}) error {
	var raw types.JSONText
	if err := raw.Scan(src); err != nil {
		return err
	}
	out := Metadata{}
	if err := raw.Unmarshal(&out); err != nil {
		return err
	}
	*m = out
	return nil
}

// Transaction is an append-only ledger record. Only WITHDRAW records ever change
// status after creation, and only out of PENDING_ADMIN_APPROVAL.
type Transaction struct {
	ID                  string          `db:"id" json:"id"`
	UserID              int64           `db:"user_id" json:"user_id"`
	Type                TxType          `db:"type" json:"type"`
	Amount              decimal.Decimal `db:"amount" json:"amount"`
	Status              TxStatus        `db:"status" json:"status"`
	PaymentMethod       string          `db:"payment_method" json:"payment_method"`
	Description         string          `db:"description" json:"description"`
	BalanceAfter        decimal.Decimal `db:"balance_after" json:"balance_after"`
	ExternalReferenceID *string         `db:"external_reference_id" json:"external_reference_id,omitempty"`
	Metadata            Metadata        `db:"metadata" json:"metadata"`
	ReviewedBy          *int64          `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt          *time.Time      `db:"reviewed_at" json:"reviewed_at,omitempty"`
	RejectionReason     string          `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt           time.Time       `db:"created_at" json:"created_at"`
}

func (t *Transaction) Ref() string {
	if t.ExternalReferenceID == nil {
		return ""
	}
	return *t.ExternalReferenceID
}

// Review moves a pending withdrawal to a terminal admin state.
func (t *Transaction) Review(status TxStatus, adminID int64, reason string, at time.Time) error {
	if t.Type != TxWithdraw || t.Status != StatusPendingApproval {
		return ErrWithdrawalNotFound
	}
	if status != StatusApproved && status != StatusRejected {
		return fmt.Errorf("invalid review status %q", status)
	}
	t.Status = status
	t.ReviewedBy = &adminID
	t.ReviewedAt = &at
	t.RejectionReason = reason
	return nil
}

// Ref returns a pointer suitable for Transaction.ExternalReferenceID.
func Ref(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type SlotStatus string

const (
	SlotUpcoming  SlotStatus = "upcoming"
	SlotLive      SlotStatus = "live"
	SlotCompleted SlotStatus = "completed"
	SlotCancelled SlotStatus = "cancelled"
)

// FreeMatchType is the slot type that marks a match as free regardless of fee.
const FreeMatchType = "free matches"

// Slot is the part of a match the booking engine reads and mutates.
type Slot struct {
	ID                 int64           `db:"id" json:"id"`
	SlotType           string          `db:"slot_type" json:"slot_type"`
	EntryFee           decimal.Decimal `db:"entry_fee" json:"entry_fee"`
	MaxPositions       int             `db:"max_positions" json:"max_positions"`
	RemainingPositions int             `db:"remaining_positions" json:"remaining_positions"`
	Status             SlotStatus      `db:"status" json:"status"`
}

func IsFreeMatchType(slotType string) bool {
	return strings.EqualFold(strings.TrimSpace(slotType), FreeMatchType)
}

func (s *Slot) IsFree() bool {
	return !s.EntryFee.IsPositive() || IsFreeMatchType(s.SlotType)
}

// Positions maps a team label to the position labels claimed in it.
type Positions map[string][]string

// PositionKey is the "team-position" label used for conflict reporting and for
// player-name lookup. It is unambiguous only while team labels contain no '-'.
func PositionKey(team, position string) string {
	return team + "-" + position
}

// Pair is one claimed position within a team.
type Pair struct {
	Team     string
	Position string
}

func (p Pair) Key() string { return PositionKey(p.Team, p.Position) }

// Pairs returns every claimed pair ordered by team, then position.
func (p Positions) Pairs() []Pair {
	out := make([]Pair, 0, p.Count())
	for team, list := range p {
		for _, pos := range list {
			out = append(out, Pair{Team: team, Position: pos})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Team != out[j].Team {
			return out[i].Team < out[j].Team
		}
		return out[i].Position < out[j].Position
	})
	return out
}

func (p Positions) Count() int {
	n := 0
	for _, list := range p {
		n += len(list)
	}
	return n
}

// Keys returns every claimed pair as a sorted list of PositionKey values.
func (p Positions) Keys() []string {
	keys := make([]string, 0, p.Count())
	for team, list := range p {
		for _, pos := range list {
			keys = append(keys, PositionKey(team, pos))
		}
	}
	sort.Strings(keys)
	return keys
}

func (p Positions) Clone() Positions {
	out := make(Positions, len(p))
	for team, list := range p {
		out[team] = append([]string(nil), list...)
	}
	return out
}

// Merge appends positions from other that are not already present.
func (p Positions) Merge(other Positions) {
	for team, list := range other {
		seen := make(map[string]struct{}, len(p[team]))
		for _, pos := range p[team] {
			seen[pos] = struct{}{}
		}
		for _, pos := range list {
			if _, ok := seen[pos]; ok {
				continue
			}
			seen[pos] = struct{}{}
			p[team] = append(p[team], pos)
		}
	}
}

func (p Positions) Value() (driver.Value, error) {
	return jsonValue(p)
}

func (p *Positions) Scan(src interface{}) error {
	out := Positions{}
	if err := jsonScan(src, &out); err != nil {
		return err
	}
	*p = out
	return nil
}

// PlayerNames maps a PositionKey to the in-game name that will occupy it.
type PlayerNames map[string]string

func (n PlayerNames) Clone() PlayerNames {
	out := make(PlayerNames, len(n))
	for k, v := range n {
		out[k] = v
	}
	return out
}

func (n PlayerNames) Value() (driver.Value, error) {
	return jsonValue(n)
}

func (n *PlayerNames) Scan(src interface{}) error {
	out := PlayerNames{}
	if err := jsonScan(src, &out); err != nil {
		return err
	}
	*n = out
	return nil
}

const BookingConfirmed = "confirmed"

// Booking is a user's claim on positions within one slot. There is at most one
// booking per (user, slot); later requests merge into it.
type Booking struct {
	ID                 int64           `db:"id" json:"id"`
	UserID             int64           `db:"user_id" json:"user_id"`
	SlotID             int64           `db:"slot_id" json:"slot_id"`
	SelectedPositions  Positions       `db:"selected_positions" json:"selected_positions"`
	PlayerNames        PlayerNames     `db:"player_names" json:"player_names"`
	TotalAmountCharged decimal.Decimal `db:"total_amount_charged" json:"total_amount_charged"`
	Status             string          `db:"status" json:"status"`
	CreatedAt          time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time       `db:"updated_at" json:"updated_at"`
}

func (b *Booking) Clone() *Booking {
	c := *b
	c.SelectedPositions = b.SelectedPositions.Clone()
	c.PlayerNames = b.PlayerNames.Clone()
	return &c
}

func jsonValue(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return types.JSONText(b).Value()
}

func jsonScan(src interface{}, dst interface{}) error {
	var raw types.JSONText
	if err := raw.Scan(src); err != nil {
		return err
	}
	return raw.Unmarshal(dst)
}
