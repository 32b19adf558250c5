package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransactionFilter narrows transaction listings and sums. Zero values mean
// "no constraint".
type TransactionFilter struct {
	UserID     int64
	Types      []TxType
	Statuses   []TxStatus
	BonusTypes []string
	Limit      int
	Offset     int
}

// Reader is the read side of the ledger store. All reads are plain snapshots; use
// the Lock* methods on Tx when the value feeds a write.
type Reader interface {
	GetAccount(ctx context.Context, userID int64) (*Account, error)
	GetAccountByReferralCode(ctx context.Context, code string) (*Account, error)
	GetTransaction(ctx context.Context, id string) (*Transaction, error)
	FindTransactionByRef(ctx context.Context, ref string) (*Transaction, error)
	ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error)
	SumTransactions(ctx context.Context, f TransactionFilter) (decimal.Decimal, error)
	GetSlot(ctx context.Context, slotID int64) (*Slot, error)
	GetBooking(ctx context.Context, userID, slotID int64) (*Booking, error)
	ListSlotBookings(ctx context.Context, slotID int64) ([]Booking, error)
	ListUserBookings(ctx context.Context, userID int64) ([]Booking, error)
}

// Tx is a unit of work. Rows returned by Lock* stay exclusively held until the
// surrounding InTx returns.
type Tx interface {
	Reader

	LockAccount(ctx context.Context, userID int64) (*Account, error)
	SaveAccount(ctx context.Context, a *Account) error

	InsertTransaction(ctx context.Context, t *Transaction) error
	LockTransaction(ctx context.Context, id string) (*Transaction, error)
	SaveReview(ctx context.Context, t *Transaction) error

	LockSlot(ctx context.Context, slotID int64) (*Slot, error)
	SetSlotRemaining(ctx context.Context, slotID int64, remaining int) error

	InsertBooking(ctx context.Context, b *Booking) error
	UpdateBooking(ctx context.Context, b *Booking) error
}

// Store runs units of work. If fn returns an error nothing it wrote is kept.
type Store interface {
	Reader
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Notifier receives balance changes after they are committed. Implementations
// must not block and must not fail the caller.
type Notifier interface {
	BalanceChanged(ctx context.Context, snap BalanceSnapshot)
}

type nopNotifier struct{}

func (nopNotifier) BalanceChanged(context.Context, BalanceSnapshot) {}

// NopNotifier discards every event.
var NopNotifier Notifier = nopNotifier{}
