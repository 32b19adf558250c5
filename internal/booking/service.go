package booking

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/logger"
	"github.com/hardik-0129/backend/internal/metrics"
	"github.com/shopspring/decimal"
)

// Referrals is the part of the referral engine a paid booking triggers.
type Referrals interface {
	FirstPaidMatch(ctx context.Context, userID, slotID int64, amount decimal.Decimal) (*ledger.Transaction, error)
}

type Service interface {
	BookPositions(ctx context.Context, req BookRequest) (*BookResult, error)
	GetUserBookings(ctx context.Context, userID int64) ([]ledger.Booking, error)
	GetSlotBookings(ctx context.Context, slotID int64) ([]ledger.Booking, error)
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

// BookPositions claims positions in a slot for a user. Everything up to and
// including the booking write runs under the slot's row lock, so two requests
// for overlapping positions can never both succeed.
func (s *service) BookPositions(ctx context.Context, req BookRequest) (*BookResult, error) {
	positions, err := normalize(req.Positions, req.PlayerNames)
	if err != nil {
		return nil, err
	}
	count := positions.Count()

	var (
		res  BookResult
		acct *ledger.Account
	)
	err = s.store.InTx(ctx, func(tx ledger.Tx) error {
		slot, err := tx.LockSlot(ctx, req.SlotID)
		if err != nil {
			return err
		}
		if slot.Status != ledger.SlotUpcoming {
			return ledger.ErrSlotClosed
		}

		existing, err := tx.ListSlotBookings(ctx, req.SlotID)
		if err != nil {
			return err
		}
		if conflicts := conflicting(existing, positions); len(conflicts) > 0 {
			return &ledger.PositionConflictError{Pairs: conflicts}
		}

		res.Free = slot.IsFree()
		expected := decimal.Zero
		if !res.Free {
			expected = slot.EntryFee.Mul(decimal.NewFromInt(int64(count)))
		}
		if req.DeclaredAmount.Sub(expected).Abs().GreaterThan(amountTolerance) {
			return &ledger.AmountMismatchError{Expected: expected, Declared: req.DeclaredAmount}
		}

		var mine *ledger.Booking
		for i := range existing {
			if existing[i].UserID == req.UserID {
				mine = &existing[i]
				break
			}
		}

		if res.Free {
			if mine != nil || count != 1 {
				return ledger.ErrFreeMatchLimitExceeded
			}
		} else {
			acct, err = tx.LockAccount(ctx, req.UserID)
			if err != nil {
				return err
			}
			if acct.Total().LessThan(expected) {
				return ledger.ErrInsufficientFunds
			}
		}

		if slot.RemainingPositions-count < 0 {
			return ledger.ErrSlotFull
		}

		if expected.IsPositive() {
			res.Transaction = &ledger.Transaction{
				Type:          ledger.TxBooking,
				PaymentMethod: ledger.MethodWallet,
				Description:   "Match booking",
				Metadata: ledger.Metadata{
					ledger.MetaSlotID:    strconv.FormatInt(slot.ID, 10),
					ledger.MetaPositions: strings.Join(positions.Keys(), ","),
				},
			}
			if res.Split, err = ledger.Spend(ctx, tx, acct, expected, res.Transaction); err != nil {
				return err
			}
		}
		res.Charged = expected

		if err := tx.SetSlotRemaining(ctx, slot.ID, slot.RemainingPositions-count); err != nil {
			return err
		}

		res.Booking, err = upsert(ctx, tx, mine, req, positions, expected)
		return err
	})
	if err != nil {
		metrics.RecordBooking("rejected", paymentLabel(res.Free), count)
		return nil, err
	}

	metrics.RecordBooking(ledger.BookingConfirmed, paymentLabel(res.Free), count)
	logger.Info("positions booked",
		"user_id", req.UserID,
		"slot_id", req.SlotID,
		"positions", count,
		"charged", res.Charged.String(),
	)

	if res.Charged.IsPositive() {
		if s.referrals != nil {
			if _, err := s.referrals.FirstPaidMatch(ctx, req.UserID, req.SlotID, res.Charged); err != nil {
				logger.WithError(err).Error("first paid match referral failed",
					"user_id", req.UserID, "slot_id", req.SlotID)
			}
		}
		s.notifier.BalanceChanged(ctx, acct.Snapshot())
	}

	return &res, nil
}

func upsert(ctx context.Context, tx ledger.Tx, mine *ledger.Booking, req BookRequest, positions ledger.Positions, charged decimal.Decimal) (*ledger.Booking, error) {
	if mine == nil {
		b := &ledger.Booking{
			UserID:             req.UserID,
			SlotID:             req.SlotID,
			SelectedPositions:  positions,
			PlayerNames:        ledger.PlayerNames{},
			TotalAmountCharged: charged,
			Status:             ledger.BookingConfirmed,
		}
		for _, k := range positions.Keys() {
			b.PlayerNames[k] = strings.TrimSpace(req.PlayerNames[k])
		}
		if err := tx.InsertBooking(ctx, b); err != nil {
			return nil, err
		}
		return b, nil
	}

	b := mine.Clone()
	if b.SelectedPositions == nil {
		b.SelectedPositions = ledger.Positions{}
	}
	if b.PlayerNames == nil {
		b.PlayerNames = ledger.PlayerNames{}
	}
	b.SelectedPositions.Merge(positions)
	for _, k := range positions.Keys() {
		b.PlayerNames[k] = strings.TrimSpace(req.PlayerNames[k])
	}
	b.TotalAmountCharged = b.TotalAmountCharged.Add(charged)
	b.Status = ledger.BookingConfirmed
	if err := tx.UpdateBooking(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// normalize drops empty labels and duplicate positions and checks that every
// requested position has a player name. Team labels may not contain '-' so the
// player-name keys stay unambiguous.
func normalize(requested ledger.Positions, names ledger.PlayerNames) (ledger.Positions, error) {
	out := ledger.Positions{}
	for team, list := range requested {
		team = strings.TrimSpace(team)
		if strings.Contains(team, "-") {
			return nil, ledger.ErrInvalidTeamLabel
		}
		var clean []string
		for _, pos := range list {
			if pos = strings.TrimSpace(pos); pos != "" {
				clean = append(clean, pos)
			}
		}
		if team == "" || len(clean) == 0 {
			continue
		}
		out.Merge(ledger.Positions{team: clean})
	}
	if out.Count() == 0 {
		return nil, ledger.ErrNoPositions
	}

	var missing []string
	for _, k := range out.Keys() {
		if strings.TrimSpace(names[k]) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, &ledger.MissingPlayerNamesError{Keys: missing}
	}
	return out, nil
}

// conflicting returns the requested pairs already held by any booking.
func conflicting(existing []ledger.Booking, requested ledger.Positions) []string {
	claimed := make(map[ledger.Pair]struct{})
	for _, b := range existing {
		for _, p := range b.SelectedPositions.Pairs() {
			claimed[p] = struct{}{}
		}
	}

	var out []string
	for _, p := range requested.Pairs() {
		if _, ok := claimed[p]; ok {
			out = append(out, p.Key())
		}
	}
	return out
}

func paymentLabel(free bool) string {
	if free {
		return "free"
	}
	return "paid"
}

func (s *service) GetUserBookings(ctx context.Context, userID int64) ([]ledger.Booking, error) {
	out, err := s.store.ListUserBookings(ctx, userID)
	if out == nil && err == nil {
		out = []ledger.Booking{}
	}
	return out, err
}

func (s *service) GetSlotBookings(ctx context.Context, slotID int64) ([]ledger.Booking, error) {
	if _, err := s.store.GetSlot(ctx, slotID); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return nil, ledger.ErrSlotNotFound
		}
		return nil, err
	}
	out, err := s.store.ListSlotBookings(ctx, slotID)
	if out == nil && err == nil {
		out = []ledger.Booking{}
	}
	return out, err
}
