// Package ledgertest provides an in-memory ledger.Store for service tests.
package ledgertest

import (
	"context"
	"sort"
	"sync"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/shopspring/decimal"
)

// Store keeps every row in memory. InTx holds a store-wide lock for the whole unit
// of work and restores the previous state if fn fails.
type Store struct {
	mu    sync.Mutex
	state state

	// Fail, when set, is consulted before each write. A non-nil return aborts the
	// write with that error.
	Fail func(op string) error
}

type state struct {
	accounts     map[int64]ledger.Account
	transactions []ledger.Transaction
	slots        map[int64]ledger.Slot
	bookings     []ledger.Booking
	nextBooking  int64
}

func New() *Store {
	return &Store{state: state{
		accounts: map[int64]ledger.Account{},
		slots:    map[int64]ledger.Slot{},
	}}
}

func (s state) clone() state {
	c := state{
		accounts:     make(map[int64]ledger.Account, len(s.accounts)),
		transactions: make([]ledger.Transaction, len(s.transactions)),
		slots:        make(map[int64]ledger.Slot, len(s.slots)),
		bookings:     make([]ledger.Booking, len(s.bookings)),
		nextBooking:  s.nextBooking,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for i, t := range s.transactions {
		c.transactions[i] = cloneTx(t)
	}
	for k, v := range s.slots {
		c.slots[k] = v
	}
	for i, b := range s.bookings {
		c.bookings[i] = *b.Clone()
	}
	return c
}

// PutAccount seeds or overwrites an account.
func (s *Store) PutAccount(a ledger.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.accounts[a.UserID] = a
}

// PutSlot seeds or overwrites a slot.
func (s *Store) PutSlot(sl ledger.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.slots[sl.ID] = sl
}

// PutTransaction seeds a transaction without touching any balance.
func (s *Store) PutTransaction(t ledger.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.transactions = append(s.state.transactions, cloneTx(t))
}

// Transactions returns every stored transaction in insertion order.
func (s *Store) Transactions() []ledger.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Transaction, len(s.state.transactions))
	for i, t := range s.state.transactions {
		out[i] = cloneTx(t)
	}
	return out
}

func (s *Store) InTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := s.state.clone()
	if err := fn(&memTx{s: s}); err != nil {
		s.state = saved
		return err
	}
	return nil
}

func (s *Store) view() *memTx { return &memTx{s: s} }

func (s *Store) GetAccount(ctx context.Context, userID int64) (*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetAccount(ctx, userID)
}

func (s *Store) GetAccountByReferralCode(ctx context.Context, code string) (*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetAccountByReferralCode(ctx, code)
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetTransaction(ctx, id)
}

func (s *Store) FindTransactionByRef(ctx context.Context, ref string) (*ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().FindTransactionByRef(ctx, ref)
}

func (s *Store) ListTransactions(ctx context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListTransactions(ctx, f)
}

func (s *Store) SumTransactions(ctx context.Context, f ledger.TransactionFilter) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().SumTransactions(ctx, f)
}

func (s *Store) GetSlot(ctx context.Context, slotID int64) (*ledger.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetSlot(ctx, slotID)
}

func (s *Store) GetBooking(ctx context.Context, userID, slotID int64) (*ledger.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().GetBooking(ctx, userID, slotID)
}

func (s *Store) ListSlotBookings(ctx context.Context, slotID int64) ([]ledger.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListSlotBookings(ctx, slotID)
}

func (s *Store) ListUserBookings(ctx context.Context, userID int64) ([]ledger.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view().ListUserBookings(ctx, userID)
}

// memTx reads and writes s.state directly; callers already hold s.mu.
type memTx struct {
	s *Store
}

func (t *memTx) fail(op string) error {
	if t.s.Fail == nil {
		return nil
	}
	return t.s.Fail(op)
}

func (t *memTx) GetAccount(_ context.Context, userID int64) (*ledger.Account, error) {
	a, ok := t.s.state.accounts[userID]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return &a, nil
}

func (t *memTx) GetAccountByReferralCode(_ context.Context, code string) (*ledger.Account, error) {
	for _, a := range t.s.state.accounts {
		if a.ReferralCode != "" && a.ReferralCode == code {
			a := a
			return &a, nil
		}
	}
	return nil, ledger.ErrAccountNotFound
}

func (t *memTx) GetTransaction(_ context.Context, id string) (*ledger.Transaction, error) {
	for _, tr := range t.s.state.transactions {
		if tr.ID == id {
			c := cloneTx(tr)
			return &c, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (t *memTx) FindTransactionByRef(_ context.Context, ref string) (*ledger.Transaction, error) {
	for _, tr := range t.s.state.transactions {
		if tr.Ref() == ref {
			c := cloneTx(tr)
			return &c, nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (t *memTx) ListTransactions(_ context.Context, f ledger.TransactionFilter) ([]ledger.Transaction, error) {
	var matched []ledger.Transaction
	for i := len(t.s.state.transactions) - 1; i >= 0; i-- {
		tr := t.s.state.transactions[i]
		if matches(f, tr) {
			matched = append(matched, cloneTx(tr))
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if f.Offset >= len(matched) {
		return nil, nil
	}
	matched = matched[f.Offset:]
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (t *memTx) SumTransactions(_ context.Context, f ledger.TransactionFilter) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, tr := range t.s.state.transactions {
		if matches(f, tr) {
			sum = sum.Add(tr.Amount)
		}
	}
	return sum, nil
}

func matches(f ledger.TransactionFilter, tr ledger.Transaction) bool {
	if f.UserID != 0 && tr.UserID != f.UserID {
		return false
	}
	if len(f.Types) > 0 && !contains(f.Types, tr.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !contains(f.Statuses, tr.Status) {
		return false
	}
	if len(f.BonusTypes) > 0 && !contains(f.BonusTypes, tr.Metadata[ledger.MetaBonusType]) {
		return false
	}
	return true
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (t *memTx) GetSlot(_ context.Context, slotID int64) (*ledger.Slot, error) {
	sl, ok := t.s.state.slots[slotID]
	if !ok {
		return nil, ledger.ErrSlotNotFound
	}
	return &sl, nil
}

func (t *memTx) GetBooking(_ context.Context, userID, slotID int64) (*ledger.Booking, error) {
	for _, b := range t.s.state.bookings {
		if b.UserID == userID && b.SlotID == slotID {
			return b.Clone(), nil
		}
	}
	return nil, ledger.ErrNotFound
}

func (t *memTx) ListSlotBookings(_ context.Context, slotID int64) ([]ledger.Booking, error) {
	var out []ledger.Booking
	for _, b := range t.s.state.bookings {
		if b.SlotID == slotID {
			out = append(out, *b.Clone())
		}
	}
	return out, nil
}

func (t *memTx) ListUserBookings(_ context.Context, userID int64) ([]ledger.Booking, error) {
	var out []ledger.Booking
	for i := len(t.s.state.bookings) - 1; i >= 0; i-- {
		if b := t.s.state.bookings[i]; b.UserID == userID {
			out = append(out, *b.Clone())
		}
	}
	return out, nil
}

func (t *memTx) LockAccount(ctx context.Context, userID int64) (*ledger.Account, error) {
	return t.GetAccount(ctx, userID)
}

func (t *memTx) SaveAccount(_ context.Context, a *ledger.Account) error {
	if err := t.fail("SaveAccount"); err != nil {
		return err
	}
	if _, ok := t.s.state.accounts[a.UserID]; !ok {
		return ledger.ErrAccountNotFound
	}
	t.s.state.accounts[a.UserID] = *a
	return nil
}

func (t *memTx) InsertTransaction(_ context.Context, tr *ledger.Transaction) error {
	if err := t.fail("InsertTransaction"); err != nil {
		return err
	}
	if ref := tr.Ref(); ref != "" {
		for _, existing := range t.s.state.transactions {
			if existing.Ref() == ref {
				return ledger.ErrDuplicateReference
			}
		}
	}
	t.s.state.transactions = append(t.s.state.transactions, cloneTx(*tr))
	return nil
}

func (t *memTx) LockTransaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	return t.GetTransaction(ctx, id)
}

func (t *memTx) SaveReview(_ context.Context, tr *ledger.Transaction) error {
	if err := t.fail("SaveReview"); err != nil {
		return err
	}
	for i, existing := range t.s.state.transactions {
		if existing.ID == tr.ID {
			existing.Status = tr.Status
			existing.ReviewedBy = tr.ReviewedBy
			existing.ReviewedAt = tr.ReviewedAt
			existing.RejectionReason = tr.RejectionReason
			t.s.state.transactions[i] = existing
			return nil
		}
	}
	return ledger.ErrWithdrawalNotFound
}

func (t *memTx) LockSlot(ctx context.Context, slotID int64) (*ledger.Slot, error) {
	return t.GetSlot(ctx, slotID)
}

func (t *memTx) SetSlotRemaining(_ context.Context, slotID int64, remaining int) error {
	if err := t.fail("SetSlotRemaining"); err != nil {
		return err
	}
	sl, ok := t.s.state.slots[slotID]
	if !ok {
		return ledger.ErrSlotNotFound
	}
	sl.RemainingPositions = remaining
	t.s.state.slots[slotID] = sl
	return nil
}

func (t *memTx) InsertBooking(_ context.Context, b *ledger.Booking) error {
	if err := t.fail("InsertBooking"); err != nil {
		return err
	}
	t.s.state.nextBooking++
	b.ID = t.s.state.nextBooking
	b.CreatedAt = ledger.Now()
	b.UpdatedAt = b.CreatedAt
	t.s.state.bookings = append(t.s.state.bookings, *b.Clone())
	return nil
}

func (t *memTx) UpdateBooking(_ context.Context, b *ledger.Booking) error {
	if err := t.fail("UpdateBooking"); err != nil {
		return err
	}
	for i, existing := range t.s.state.bookings {
		if existing.ID == b.ID {
			b.UpdatedAt = ledger.Now()
			t.s.state.bookings[i] = *b.Clone()
			return nil
		}
	}
	return ledger.ErrNotFound
}

func cloneTx(t ledger.Transaction) ledger.Transaction {
	if t.Metadata != nil {
		m := make(ledger.Metadata, len(t.Metadata))
		for k, v := range t.Metadata {
			m[k] = v
		}
		t.Metadata = m
	}
	return t
}
