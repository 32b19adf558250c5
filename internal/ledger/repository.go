package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const (
	accountColumns = `id, join_balance, win_balance, referral_code, referred_by_code,
		signup_bonus_credited, first_paid_bonus_credited,
		total_referral_earnings, total_referral_count`

	transactionColumns = `id, user_id, type, amount, status, payment_method, description,
		balance_after, external_reference_id, metadata, reviewed_by, reviewed_at,
		rejection_reason, created_at`

	slotColumns = `id, slot_type, entry_fee, max_positions, remaining_positions, status`

	bookingColumns = `id, user_id, slot_id, selected_positions, player_names,
		total_amount_charged, status, created_at, updated_at`

	uniqueViolation = "23505"
	refConstraint   = "wallet_transactions_external_reference_id_key"
)

// Repository is the Postgres ledger store.
type Repository struct {
	reader
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{reader: reader{q: db}, db: db}
}

func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&writer{reader: reader{q: tx}}); err != nil {
		return err
	}
	return tx.Commit()
}

// reader runs against either the pool or an open transaction.
type reader struct {
	q sqlx.ExtContext
}

func (r reader) GetAccount(ctx context.Context, userID int64) (*Account, error) {
	return r.account(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1`, userID)
}

func (r reader) GetAccountByReferralCode(ctx context.Context, code string) (*Account, error) {
	return r.account(ctx, `SELECT `+accountColumns+` FROM users WHERE referral_code = $1`, code)
}

func (r reader) account(ctx context.Context, query string, arg interface{}) (*Account, error) {
	var a Account
	if err := sqlx.GetContext(ctx, r.q, &a, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r reader) GetTransaction(ctx context.Context, id string) (*Transaction, error) {
	return r.transaction(ctx, `SELECT `+transactionColumns+` FROM wallet_transactions WHERE id = $1`, id)
}

func (r reader) FindTransactionByRef(ctx context.Context, ref string) (*Transaction, error) {
	return r.transaction(ctx,
		`SELECT `+transactionColumns+` FROM wallet_transactions WHERE external_reference_id = $1`, ref)
}

func (r reader) transaction(ctx context.Context, query string, arg interface{}) (*Transaction, error) {
	var t Transaction
	if err := sqlx.GetContext(ctx, r.q, &t, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func (r reader) ListTransactions(ctx context.Context, f TransactionFilter) ([]Transaction, error) {
	where, args := f.where()
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	query := fmt.Sprintf(`SELECT %s FROM wallet_transactions %s
		ORDER BY created_at DESC, id
		LIMIT $%d OFFSET $%d`, transactionColumns, where, len(args)-1, len(args))

	var out []Transaction
	if err := sqlx.SelectContext(ctx, r.q, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

func (r reader) SumTransactions(ctx context.Context, f TransactionFilter) (decimal.Decimal, error) {
	where, args := f.where()
	var sum decimal.Decimal
	err := sqlx.GetContext(ctx, r.q, &sum,
		`SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions `+where, args...)
	return sum, err
}

// where renders the filter as a WHERE clause with positional arguments.
func (f TransactionFilter) where() (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.UserID != 0 {
		add("user_id = $%d", f.UserID)
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		add("type = ANY($%d)", pq.Array(types))
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", pq.Array(statuses))
	}
	if len(f.BonusTypes) > 0 {
		add("metadata->>'bonusType' = ANY($%d)", pq.Array(f.BonusTypes))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func (r reader) GetSlot(ctx context.Context, slotID int64) (*Slot, error) {
	return r.slot(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, slotID)
}

func (r reader) slot(ctx context.Context, query string, slotID int64) (*Slot, error) {
	var s Slot
	if err := sqlx.GetContext(ctx, r.q, &s, query, slotID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r reader) GetBooking(ctx context.Context, userID, slotID int64) (*Booking, error) {
	var b Booking
	err := sqlx.GetContext(ctx, r.q, &b,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 AND slot_id = $2`, userID, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (r reader) ListSlotBookings(ctx context.Context, slotID int64) ([]Booking, error) {
	var out []Booking
	err := sqlx.SelectContext(ctx, r.q, &out,
		`SELECT `+bookingColumns+` FROM bookings WHERE slot_id = $1 ORDER BY created_at, id`, slotID)
	return out, err
}

func (r reader) ListUserBookings(ctx context.Context, userID int64) ([]Booking, error) {
	var out []Booking
	err := sqlx.SelectContext(ctx, r.q, &out,
		`SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	return out, err
}

// writer is the Tx implementation. It only ever wraps an open *sqlx.Tx.
type writer struct {
	reader
}

func (w *writer) LockAccount(ctx context.Context, userID int64) (*Account, error) {
	return w.account(ctx, `SELECT `+accountColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID)
}

func (w *writer) SaveAccount(ctx context.Context, a *Account) error {
	res, err := w.q.ExecContext(ctx,
		`UPDATE users
		 SET join_balance = $1, win_balance = $2,
		     signup_bonus_credited = $3, first_paid_bonus_credited = $4,
		     total_referral_earnings = $5, total_referral_count = $6,
		     updated_at = NOW()
		 WHERE id = $7`,
		a.JoinBalance, a.WinBalance,
		a.SignupBonusCredited, a.FirstPaidBonusCredited,
		a.TotalReferralEarnings, a.TotalReferralCount,
		a.UserID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, ErrAccountNotFound)
}

func (w *writer) InsertTransaction(ctx context.Context, t *Transaction) error {
	_, err := w.q.ExecContext(ctx,
		`INSERT INTO wallet_transactions
		 (id, user_id, type, amount, status, payment_method, description,
		  balance_after, external_reference_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.UserID, t.Type, t.Amount, t.Status, t.PaymentMethod, t.Description,
		t.BalanceAfter, t.ExternalReferenceID, t.Metadata, t.CreatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == refConstraint {
		return ErrDuplicateReference
	}
	return err
}

func (w *writer) LockTransaction(ctx context.Context, id string) (*Transaction, error) {
	return w.transaction(ctx,
		`SELECT `+transactionColumns+` FROM wallet_transactions WHERE id = $1 FOR UPDATE`, id)
}

func (w *writer) SaveReview(ctx context.Context, t *Transaction) error {
	res, err := w.q.ExecContext(ctx,
		`UPDATE wallet_transactions
		 SET status = $1, reviewed_by = $2, reviewed_at = $3, rejection_reason = $4
		 WHERE id = $5`,
		t.Status, t.ReviewedBy, t.ReviewedAt, t.RejectionReason, t.ID,
	)
	if err != nil {
		return err
	}
	return expectOne(res, ErrWithdrawalNotFound)
}

func (w *writer) LockSlot(ctx context.Context, slotID int64) (*Slot, error) {
	return w.slot(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1 FOR UPDATE`, slotID)
}

func (w *writer) SetSlotRemaining(ctx context.Context, slotID int64, remaining int) error {
	res, err := w.q.ExecContext(ctx,
		`UPDATE slots SET remaining_positions = $1 WHERE id = $2`, remaining, slotID)
	if err != nil {
		return err
	}
	return expectOne(res, ErrSlotNotFound)
}

func (w *writer) InsertBooking(ctx context.Context, b *Booking) error {
	return w.q.QueryRowxContext(ctx,
		`INSERT INTO bookings
		 (user_id, slot_id, selected_positions, player_names, total_amount_charged, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		b.UserID, b.SlotID, b.SelectedPositions, b.PlayerNames, b.TotalAmountCharged, b.Status,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (w *writer) UpdateBooking(ctx context.Context, b *Booking) error {
	return w.q.QueryRowxContext(ctx,
		`UPDATE bookings
		 SET selected_positions = $1, player_names = $2, total_amount_charged = $3,
		     status = $4, updated_at = NOW()
		 WHERE id = $5
		 RETURNING updated_at`,
		b.SelectedPositions, b.PlayerNames, b.TotalAmountCharged, b.Status, b.ID,
	).Scan(&b.UpdatedAt)
}

func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
