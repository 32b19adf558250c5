// Package withdrawal moves win balance out of the wallet through admin review.
// Funds are held at request time; approval only finalizes and rejection
// releases the hold.
package withdrawal

import (
	"context"
	"errors"
	"strings"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/logger"
	"github.com/hardik-0129/backend/internal/metrics"
	"github.com/shopspring/decimal"
)

type Config struct {
	Minimum decimal.Decimal
	// Method is recorded as the payment method of every withdrawal.
	Method string
}

// Referrals is the part of the referral engine an approval triggers.
type Referrals interface {
	WithdrawalCommission(ctx context.Context, w *ledger.Transaction) (*ledger.Transaction, error)
}

type Service interface {
	Request(ctx context.Context, userID int64, amount decimal.Decimal, destination string) (*ledger.Transaction, error)
	Approve(ctx context.Context, txID string, adminID int64) (*ledger.Transaction, error)
	Reject(ctx context.Context, txID string, adminID int64, reason string) (*ledger.Transaction, error)
	List(ctx context.Context, userID int64, statuses []ledger.TxStatus, limit, offset int) ([]ledger.Transaction, error)
}

type service struct {
	store     ledger.Store
	notifier  ledger.Notifier
	referrals Referrals
	cfg       Config
}

func NewService(store ledger.Store, notifier ledger.Notifier, referrals Referrals, cfg Config) Service {
	if notifier == nil {
		notifier = ledger.NopNotifier
	}
	if cfg.Method == "" {
		cfg.Method = "UPI"
	}
	return &service{store: store, notifier: notifier, referrals: referrals, cfg: cfg}
}

func (s *service) Request(ctx context.Context, userID int64, amount decimal.Decimal, destination string) (*ledger.Transaction, error) {
	destination = strings.TrimSpace(destination)
	if !amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	if amount.LessThan(s.cfg.Minimum) {
		return nil, ledger.ErrBelowMinimum
	}
	if destination == "" {
		return nil, ledger.ErrDestinationRequired
	}

	var (
		rec  *ledger.Transaction
		acct *ledger.Account
	)
	err := s.store.InTx(ctx, func(tx ledger.Tx) error {
		a, err := tx.LockAccount(ctx, userID)
		if err != nil {
			return err
		}
		if a.WinBalance.LessThan(amount) {
			return ledger.ErrInsufficientWinBalance
		}

		rec = &ledger.Transaction{
			Type:          ledger.TxWithdraw,
			Status:        ledger.StatusPendingApproval,
			PaymentMethod: s.cfg.Method,
			Description:   "Withdrawal request",
			Metadata:      ledger.Metadata{ledger.MetaUPIID: destination},
		}
		if err := ledger.Debit(ctx, tx, a, ledger.BucketWin, amount, rec); err != nil {
			return err
		}
		acct = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordWithdrawal(string(ledger.StatusPendingApproval))
	logger.Info("withdrawal requested", "user_id", userID, "amount", amount.String(), "transaction_id", rec.ID)
	s.notifier.BalanceChanged(ctx, acct.Snapshot())
	return rec, nil
}

func (s *service) Approve(ctx context.Context, txID string, adminID int64) (*ledger.Transaction, error) {
	var rec *ledger.Transaction
	err := s.store.InTx(ctx, func(tx ledger.Tx) error {
		w, err := lockPending(ctx, tx, txID)
		if err != nil {
			return err
		}
		if err := w.Review(ledger.StatusApproved, adminID, "", ledger.Now()); err != nil {
			return err
		}
		if err := tx.SaveReview(ctx, w); err != nil {
			return err
		}
		rec = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordWithdrawal(string(ledger.StatusApproved))
	logger.Info("withdrawal approved", "transaction_id", rec.ID, "user_id", rec.UserID, "admin_id", adminID)

	if s.referrals != nil {
		if _, err := s.referrals.WithdrawalCommission(ctx, rec); err != nil {
			logger.WithError(err).Error("withdrawal referral commission failed",
				"transaction_id", rec.ID, "user_id", rec.UserID)
		}
	}
	s.refresh(ctx, rec.UserID)
	return rec, nil
}

func (s *service) Reject(ctx context.Context, txID string, adminID int64, reason string) (*ledger.Transaction, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ledger.ErrReasonRequired
	}

	var (
		rec  *ledger.Transaction
		acct *ledger.Account
	)
	err := s.store.InTx(ctx, func(tx ledger.Tx) error {
		w, err := lockPending(ctx, tx, txID)
		if err != nil {
			return err
		}
		if err := w.Review(ledger.StatusRejected, adminID, reason, ledger.Now()); err != nil {
			return err
		}
		if err := tx.SaveReview(ctx, w); err != nil {
			return err
		}

		a, err := tx.LockAccount(ctx, w.UserID)
		if err != nil {
			return err
		}
		release := &ledger.Transaction{
			Type:                ledger.TxCredit,
			PaymentMethod:       ledger.MethodSystem,
			Description:         "Withdrawal rejected: " + reason,
			ExternalReferenceID: ledger.Ref("REVERSAL_" + w.ID),
			Metadata: ledger.Metadata{
				ledger.MetaCategory:     ledger.CategoryWithdrawalRelease,
				ledger.MetaWithdrawalID: w.ID,
			},
		}
		if err := ledger.Credit(ctx, tx, a, ledger.BucketWin, w.Amount, release); err != nil {
			return err
		}
		rec, acct = w, a
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordWithdrawal(string(ledger.StatusRejected))
	logger.Info("withdrawal rejected", "transaction_id", rec.ID, "user_id", rec.UserID, "admin_id", adminID)
	s.notifier.BalanceChanged(ctx, acct.Snapshot())
	return rec, nil
}

func (s *service) List(ctx context.Context, userID int64, statuses []ledger.TxStatus, limit, offset int) ([]ledger.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, ledger.TransactionFilter{
		UserID:   userID,
		Types:    []ledger.TxType{ledger.TxWithdraw},
		Statuses: statuses,
		Limit:    limit,
		Offset:   offset,
	})
	if txs == nil && err == nil {
		txs = []ledger.Transaction{}
	}
	return txs, err
}

// refresh pushes the current balance so clients redraw after a status change
// that moved no money.
func (s *service) refresh(ctx context.Context, userID int64) {
	acct, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		logger.WithError(err).Warn("balance refresh skipped", "user_id", userID)
		return
	}
	s.notifier.BalanceChanged(ctx, acct.Snapshot())
}

func lockPending(ctx context.Context, tx ledger.Tx, txID string) (*ledger.Transaction, error) {
	w, err := tx.LockTransaction(ctx, txID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, ledger.ErrWithdrawalNotFound
	}
	if err != nil {
		return nil, err
	}
	if w.Type != ledger.TxWithdraw || w.Status != ledger.StatusPendingApproval {
		return nil, ledger.ErrWithdrawalNotFound
	}
	return w, nil
}

// ParseStatus maps the queue names used by the admin screens to a status.
func ParseStatus(s string) (ledger.TxStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", strings.ToLower(string(ledger.StatusPendingApproval)):
		return ledger.StatusPendingApproval, true
	case "approved", strings.ToLower(string(ledger.StatusApproved)):
		return ledger.StatusApproved, true
	case "rejected", strings.ToLower(string(ledger.StatusRejected)):
		return ledger.StatusRejected, true
	}
	return "", false
}
