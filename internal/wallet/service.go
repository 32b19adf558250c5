package wallet

import (
	"context"
	"errors"
	"strconv"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/logger"
	"github.com/hardik-0129/backend/internal/metrics"
	"github.com/shopspring/decimal"
)

// Referrals is the part of the referral engine the wallet triggers.
type Referrals interface {
	MatchWinCommission(ctx context.Context, winnerID int64, amount decimal.Decimal, winTxID, matchRef string) (*ledger.Transaction, error)
}

type Service interface {
	GetBalance(ctx context.Context, userID int64) (*Balance, error)
	CreditDeposit(ctx context.Context, d Deposit) (*ledger.Transaction, bool, error)
	AddWinning(ctx context.Context, w Winning) (*WinningResult, error)
	AddJoinMoney(ctx context.Context, userID int64, amount decimal.Decimal, adminID int64, note string) (*ledger.Transaction, error)
	ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error)
	ReferralEarnings(ctx context.Context, userID int64, limit, offset int) (*ReferralEarnings, error)
}

type service struct {
	store     ledger.Store
	notifier  ledger.Notifier
	referrals Referrals
}

func NewService(store ledger.Store, notifier ledger.Notifier, referrals Referrals) Service {
	if notifier == nil {
		notifier = ledger.NopNotifier
	}
	return &service{store: store, notifier: notifier, referrals: referrals}
}

func (s *service) GetBalance(ctx context.Context, userID int64) (*Balance, error) {
	acct, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	payouts, err := s.store.SumTransactions(ctx, ledger.TransactionFilter{
		UserID:   userID,
		Types:    []ledger.TxType{ledger.TxDebit, ledger.TxWithdraw},
		Statuses: []ledger.TxStatus{ledger.StatusSuccess, ledger.StatusApproved},
	})
	if err != nil {
		return nil, err
	}

	return &Balance{
		JoinBalance:  acct.JoinBalance,
		WinBalance:   acct.WinBalance,
		TotalBalance: acct.Total(),
		TotalPayouts: payouts,
	}, nil
}

// CreditDeposit credits a gateway deposit to the join balance exactly once per
// external order id. The bool reports whether this call did the credit; a replay
// returns the original record and false.
func (s *service) CreditDeposit(ctx context.Context, d Deposit) (*ledger.Transaction, bool, error) {
	if d.ExternalOrderID == "" {
		return nil, false, errors.New("external order id is required")
	}
	if !d.Amount.IsPositive() {
		return nil, false, ledger.ErrInvalidAmount
	}

	var (
		rec     *ledger.Transaction
		acct    *ledger.Account
		created bool
	)
	err := s.store.InTx(ctx, func(tx ledger.Tx) error {
		a, err := tx.LockAccount(ctx, d.UserID)
		if err != nil {
			return err
		}

		existing, err := tx.FindTransactionByRef(ctx, d.ExternalOrderID)
		if err == nil {
			rec = existing
			return nil
		}
		if !errors.Is(err, ledger.ErrNotFound) {
			return err
		}

		meta := ledger.Metadata{ledger.MetaOrderID: d.ExternalOrderID}
		if d.PaymentID != "" {
			meta[ledger.MetaPaymentID] = d.PaymentID
		}
		rec = &ledger.Transaction{
			Type:                ledger.TxCredit,
			PaymentMethod:       ledger.MethodGateway,
			Description:         "Wallet deposit",
			ExternalReferenceID: ledger.Ref(d.ExternalOrderID),
			Metadata:            meta,
		}
		if err := ledger.Credit(ctx, tx, a, ledger.BucketJoin, d.Amount, rec); err != nil {
			return err
		}
		acct, created = a, true
		return nil
	})
	if errors.Is(err, ledger.ErrDuplicateReference) {
		existing, ferr := s.store.FindTransactionByRef(ctx, d.ExternalOrderID)
		if ferr != nil {
			return nil, false, ferr
		}
		rec, created, err = existing, false, nil
	}
	if err != nil {
		metrics.RecordDeposit("failed")
		return nil, false, err
	}

	if !created {
		metrics.RecordDeposit("duplicate")
		logger.Info("duplicate deposit ignored", "order_id", d.ExternalOrderID, "transaction_id", rec.ID)
		return rec, false, nil
	}

	metrics.RecordDeposit("credited")
	logger.Info("deposit credited", "user_id", d.UserID, "order_id", d.ExternalOrderID, "amount", d.Amount.String())
	s.notifier.BalanceChanged(ctx, acct.Snapshot())
	return rec, true, nil
}

// AddWinning credits match winnings to the win balance and then pays the
// winner's referrer a commission.
func (s *service) AddWinning(ctx context.Context, w Winning) (*WinningResult, error) {
	if !w.Amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}

	var ref string
	if w.WinnerID != 0 {
		ref = "WIN_" + strconv.FormatInt(w.WinnerID, 10)
	}
	desc := w.Description
	if desc == "" {
		desc = "Match winnings"
	}

	var (
		rec  *ledger.Transaction
		acct *ledger.Account
	)
	err := s.store.InTx(ctx, func(tx ledger.Tx) error {
		a, err := tx.LockAccount(ctx, w.UserID)
		if err != nil {
			return err
		}

		meta := ledger.Metadata{ledger.MetaCategory: ledger.CategoryWin}
		if w.MatchRef != "" {
			meta[ledger.MetaMatchID] = w.MatchRef
		}
		if w.WinnerID != 0 {
			meta[ledger.MetaWinnerID] = strconv.FormatInt(w.WinnerID, 10)
		}
		rec = &ledger.Transaction{
			Type:                ledger.TxWin,
			PaymentMethod:       ledger.MethodSystem,
			Description:         desc,
			ExternalReferenceID: ledger.Ref(ref),
			Metadata:            meta,
		}
		if err := ledger.Credit(ctx, tx, a, ledger.BucketWin, w.Amount, rec); err != nil {
			return err
		}
		acct = a
		return nil
	})
	if errors.Is(err, ledger.ErrDuplicateReference) {
		existing, ferr := s.store.FindTransactionByRef(ctx, ref)
		if ferr != nil {
			return nil, ferr
		}
		a, ferr := s.store.GetAccount(ctx, w.UserID)
		if ferr != nil {
			return nil, ferr
		}
		return &WinningResult{Transaction: existing, NewWinBalance: a.WinBalance, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}

	metrics.RecordWinningPaid()
	logger.Info("winnings credited", "user_id", w.UserID, "amount", w.Amount.String(), "transaction_id", rec.ID)
	s.notifier.BalanceChanged(ctx, acct.Snapshot())

	if s.referrals != nil {
		if _, err := s.referrals.MatchWinCommission(ctx, w.UserID, w.Amount, rec.ID, w.MatchRef); err != nil {
			logger.WithError(err).Error("match win referral commission failed",
				"user_id", w.UserID, "transaction_id", rec.ID)
		}
	}

	return &WinningResult{Transaction: rec, NewWinBalance: acct.WinBalance}, nil
}

func (s *service) AddJoinMoney(ctx context.Context, userID int64, amount decimal.Decimal, adminID int64, note string) (*ledger.Transaction, error) {
	if !amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	desc := note
	if desc == "" {
		desc = "Join money added by admin"
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
		rec = &ledger.Transaction{
			Type:          ledger.TxCredit,
			PaymentMethod: ledger.MethodAdmin,
			Description:   desc,
			Metadata: ledger.Metadata{
				ledger.MetaDescription: desc,
				ledger.MetaAdminID:     strconv.FormatInt(adminID, 10),
			},
		}
		if err := ledger.Credit(ctx, tx, a, ledger.BucketJoin, amount, rec); err != nil {
			return err
		}
		acct = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("join money added", "user_id", userID, "admin_id", adminID, "amount", amount.String())
	s.notifier.BalanceChanged(ctx, acct.Snapshot())
	return rec, nil
}

func (s *service) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, f)
	if err != nil {
		return nil, err
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	return txs, nil
}

func (s *service) ReferralEarnings(ctx context.Context, userID int64, limit, offset int) (*ReferralEarnings, error) {
	acct, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return nil, err
	}

	f := ledger.TransactionFilter{UserID: userID, BonusTypes: ledger.ReferralBonusTypes, Limit: limit, Offset: offset}
	txs, err := s.ListTransactions(ctx, f)
	if err != nil {
		return nil, err
	}

	return &ReferralEarnings{
		Total:        acct.TotalReferralEarnings,
		Count:        len(txs),
		ReferralCode: acct.ReferralCode,
		Referrals:    acct.TotalReferralCount,
		Transactions: txs,
	}, nil
}
