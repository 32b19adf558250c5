package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Now is the ledger clock.
var Now = func() time.Time { return time.Now().UTC() }

// Split reports how a composite spend was taken out of the two buckets.
type Split struct {
	Join decimal.Decimal `json:"join"`
	Win  decimal.Decimal `json:"win"`
}

// Credit adds amount to one bucket of acct and appends rec in the same unit of work.
func Credit(ctx context.Context, tx Tx, acct *Account, bucket Bucket, amount decimal.Decimal, rec *Transaction) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if bucket == BucketWin {
		return apply(ctx, tx, acct, decimal.Zero, amount, amount, rec)
	}
	return apply(ctx, tx, acct, amount, decimal.Zero, amount, rec)
}

// Debit removes amount from one bucket of acct and appends rec.
func Debit(ctx context.Context, tx Tx, acct *Account, bucket Bucket, amount decimal.Decimal, rec *Transaction) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if acct.Balance(bucket).LessThan(amount) {
		return ErrInsufficientFunds
	}
	if bucket == BucketWin {
		return apply(ctx, tx, acct, decimal.Zero, amount.Neg(), amount, rec)
	}
	return apply(ctx, tx, acct, amount.Neg(), decimal.Zero, amount, rec)
}

// Spend takes amount from the join bucket first and only the remainder from the
// win bucket. Nothing is debited unless the whole amount is covered.
func Spend(ctx context.Context, tx Tx, acct *Account, amount decimal.Decimal, rec *Transaction) (Split, error) {
	if !amount.IsPositive() {
		return Split{}, ErrInvalidAmount
	}
	if acct.Total().LessThan(amount) {
		return Split{}, ErrInsufficientFunds
	}
	split := Split{Join: decimal.Min(acct.JoinBalance, amount)}
	split.Win = amount.Sub(split.Join)
	if err := apply(ctx, tx, acct, split.Join.Neg(), split.Win.Neg(), amount, rec); err != nil {
		return Split{}, err
	}
	return split, nil
}

// apply is the single place where balances change. Every change is written
// together with its transaction record.
func apply(ctx context.Context, tx Tx, acct *Account, joinDelta, winDelta, amount decimal.Decimal, rec *Transaction) error {
	next := *acct
	next.JoinBalance = acct.JoinBalance.Add(joinDelta)
	next.WinBalance = acct.WinBalance.Add(winDelta)
	if next.JoinBalance.IsNegative() || next.WinBalance.IsNegative() {
		return ErrInsufficientFunds
	}

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.UserID = acct.UserID
	rec.Amount = amount
	rec.BalanceAfter = next.Total()
	if rec.Status == "" {
		rec.Status = StatusSuccess
	}
	if rec.PaymentMethod == "" {
		rec.PaymentMethod = MethodSystem
	}
	if rec.Metadata == nil {
		rec.Metadata = Metadata{}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = Now()
	}

	if err := tx.InsertTransaction(ctx, rec); err != nil {
		return err
	}
	if err := tx.SaveAccount(ctx, &next); err != nil {
		return err
	}
	*acct = next
	return nil
}
