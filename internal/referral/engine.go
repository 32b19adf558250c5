// Package referral credits the secondary rewards that follow primary ledger
// events. Every reward runs in its own unit of work after the triggering
// operation has committed and is idempotent through an account flag or a unique
// external reference.
package referral

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/logger"
	"github.com/hardik-0129/backend/internal/metrics"
	"github.com/shopspring/decimal"
)

type Config struct {
	SignupBonus    decimal.Decimal
	FirstPaidBonus decimal.Decimal
	// Rate is the commission share paid on winnings and approved withdrawals.
	Rate decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		SignupBonus:    decimal.NewFromInt(5),
		FirstPaidBonus: decimal.NewFromInt(5),
		Rate:           decimal.RequireFromString("0.05"),
	}
}

type Engine struct {
	store    ledger.Store
	notifier ledger.Notifier
	cfg      Config
}

func NewEngine(store ledger.Store, notifier ledger.Notifier, cfg Config) *Engine {
	if notifier == nil {
		notifier = ledger.NopNotifier
	}
	return &Engine{store: store, notifier: notifier, cfg: cfg}
}

// SignupBonus credits a newly registered, referred user's join balance and bumps
// the referrer's referral count. It returns nil, nil when nothing is owed.
func (e *Engine) SignupBonus(ctx context.Context, userID int64) (*ledger.Transaction, error) {
	if !e.cfg.SignupBonus.IsPositive() {
		return nil, nil
	}

	var (
		rec     *ledger.Transaction
		invitee *ledger.Account
	)
	err := e.store.InTx(ctx, func(tx ledger.Tx) error {
		user, referrer, err := lockWithReferrer(ctx, tx, userID)
		if err != nil || referrer == nil {
			return err
		}
		if user.SignupBonusCredited {
			return nil
		}

		user.SignupBonusCredited = true
		rec = &ledger.Transaction{
			Type:                ledger.TxCredit,
			Description:         "Referral signup bonus",
			ExternalReferenceID: ledger.Ref("REF_SIGNUP_" + strconv.FormatInt(userID, 10)),
			Metadata: ledger.Metadata{
				ledger.MetaBonusType:    ledger.BonusSignup,
				ledger.MetaReferrerID:   strconv.FormatInt(referrer.UserID, 10),
				ledger.MetaReferrerCode: referrer.ReferralCode,
			},
		}
		if err := ledger.Credit(ctx, tx, user, ledger.BucketJoin, e.cfg.SignupBonus, rec); err != nil {
			return err
		}

		referrer.TotalReferralCount++
		if err := tx.SaveAccount(ctx, referrer); err != nil {
			return err
		}
		invitee = user
		return nil
	})
	if err != nil {
		return nil, ignoreDuplicate(err)
	}
	if invitee == nil {
		return nil, nil
	}

	e.rewarded(ctx, ledger.BonusSignup, invitee, rec)
	return rec, nil
}

// FirstPaidMatch pays the referrer of userID a fixed bonus the first time userID
// books a paid match. The flag lives on the referred user.
func (e *Engine) FirstPaidMatch(ctx context.Context, userID, slotID int64, amount decimal.Decimal) (*ledger.Transaction, error) {
	if !amount.IsPositive() || !e.cfg.FirstPaidBonus.IsPositive() {
		return nil, nil
	}

	var (
		rec   *ledger.Transaction
		payee *ledger.Account
	)
	err := e.store.InTx(ctx, func(tx ledger.Tx) error {
		user, referrer, err := lockWithReferrer(ctx, tx, userID)
		if err != nil || referrer == nil {
			return err
		}
		if user.FirstPaidBonusCredited {
			return nil
		}

		user.FirstPaidBonusCredited = true
		if err := tx.SaveAccount(ctx, user); err != nil {
			return err
		}

		rec = &ledger.Transaction{
			Type:                ledger.TxCredit,
			Description:         "Referral bonus for first paid match",
			ExternalReferenceID: ledger.Ref("REF_FIRSTPAID_" + strconv.FormatInt(userID, 10)),
			Metadata: ledger.Metadata{
				ledger.MetaBonusType:    ledger.BonusFirstPaidMatch,
				ledger.MetaReferredUser: strconv.FormatInt(userID, 10),
				ledger.MetaSlotID:       strconv.FormatInt(slotID, 10),
			},
		}
		if err := creditReferrer(ctx, tx, referrer, e.cfg.FirstPaidBonus, rec); err != nil {
			return err
		}
		payee = referrer
		return nil
	})
	if err != nil {
		return nil, ignoreDuplicate(err)
	}
	if payee == nil {
		return nil, nil
	}

	e.rewarded(ctx, ledger.BonusFirstPaidMatch, payee, rec)
	return rec, nil
}

// MatchWinCommission pays the winner's referrer floor(amount × rate).
func (e *Engine) MatchWinCommission(ctx context.Context, winnerID int64, amount decimal.Decimal, winTxID, matchRef string) (*ledger.Transaction, error) {
	reward := amount.Mul(e.cfg.Rate).Floor()
	if !reward.IsPositive() {
		return nil, nil
	}

	return e.commission(ctx, winnerID, reward, ledger.BonusMatchWin, &ledger.Transaction{
		Type:                ledger.TxCredit,
		Description:         "Referral commission on match winnings",
		ExternalReferenceID: ledger.Ref("REF_WIN_" + winTxID),
		Metadata: ledger.Metadata{
			ledger.MetaBonusType:    ledger.BonusMatchWin,
			ledger.MetaReferredUser: strconv.FormatInt(winnerID, 10),
			ledger.MetaMatchID:      matchRef,
		},
	})
}

// WithdrawalCommission pays the withdrawing user's referrer round(amount × rate),
// never less than one unit.
func (e *Engine) WithdrawalCommission(ctx context.Context, w *ledger.Transaction) (*ledger.Transaction, error) {
	reward := decimal.Max(w.Amount.Mul(e.cfg.Rate).Round(0), decimal.NewFromInt(1))

	return e.commission(ctx, w.UserID, reward, ledger.BonusWithdrawal, &ledger.Transaction{
		Type:                ledger.TxCredit,
		Description:         "Referral commission on withdrawal",
		ExternalReferenceID: ledger.Ref("REF_WITHDRAW_" + w.ID),
		Metadata: ledger.Metadata{
			ledger.MetaBonusType:        ledger.BonusWithdrawal,
			ledger.MetaReferredUser:     strconv.FormatInt(w.UserID, 10),
			ledger.MetaWithdrawalID:     w.ID,
			ledger.MetaWithdrawalAmount: w.Amount.String(),
		},
	})
}

func (e *Engine) commission(ctx context.Context, userID int64, reward decimal.Decimal, bonusType string, rec *ledger.Transaction) (*ledger.Transaction, error) {
	var payee *ledger.Account
	err := e.store.InTx(ctx, func(tx ledger.Tx) error {
		user, err := tx.GetAccount(ctx, userID)
		if err != nil {
			return err
		}
		if user.ReferredByCode == "" {
			return nil
		}
		ref, err := tx.GetAccountByReferralCode(ctx, user.ReferredByCode)
		if errors.Is(err, ledger.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if ref.UserID == userID {
			return nil
		}

		referrer, err := tx.LockAccount(ctx, ref.UserID)
		if err != nil {
			return err
		}
		if err := creditReferrer(ctx, tx, referrer, reward, rec); err != nil {
			return err
		}
		payee = referrer
		return nil
	})
	if err != nil {
		return nil, ignoreDuplicate(err)
	}
	if payee == nil {
		return nil, nil
	}

	e.rewarded(ctx, bonusType, payee, rec)
	return rec, nil
}

func (e *Engine) rewarded(ctx context.Context, bonusType string, payee *ledger.Account, rec *ledger.Transaction) {
	metrics.RecordReferralReward(bonusType)
	logger.Info("referral reward credited",
		"bonus_type", bonusType,
		"user_id", payee.UserID,
		"amount", rec.Amount.String(),
		"transaction_id", rec.ID,
	)
	e.notifier.BalanceChanged(ctx, payee.Snapshot())
}

// creditReferrer pays into the referrer's win balance and counts the amount
// toward their lifetime referral earnings in the same write.
func creditReferrer(ctx context.Context, tx ledger.Tx, referrer *ledger.Account, amount decimal.Decimal, rec *ledger.Transaction) error {
	referrer.TotalReferralEarnings = referrer.TotalReferralEarnings.Add(amount)
	return ledger.Credit(ctx, tx, referrer, ledger.BucketWin, amount, rec)
}

// lockWithReferrer locks userID and, if it was referred by someone else, the
// referrer. Both rows are locked in ascending id order. referrer is nil when
// there is nobody to reward.
func lockWithReferrer(ctx context.Context, tx ledger.Tx, userID int64) (user, referrer *ledger.Account, err error) {
	snap, err := tx.GetAccount(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if snap.ReferredByCode == "" {
		return snap, nil, nil
	}
	ref, err := tx.GetAccountByReferralCode(ctx, snap.ReferredByCode)
	if errors.Is(err, ledger.ErrNotFound) {
		return snap, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if ref.UserID == userID {
		return snap, nil, nil
	}

	first, second := userID, ref.UserID
	if second < first {
		first, second = second, first
	}
	a, err := tx.LockAccount(ctx, first)
	if err != nil {
		return nil, nil, err
	}
	b, err := tx.LockAccount(ctx, second)
	if err != nil {
		return nil, nil, err
	}
	if a.UserID == userID {
		return a, b, nil
	}
	return b, a, nil
}

func ignoreDuplicate(err error) error {
	if errors.Is(err, ledger.ErrDuplicateReference) {
		return nil
	}
	return fmt.Errorf("referral reward: %w", err)
}
