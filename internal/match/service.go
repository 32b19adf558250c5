// Package match manages tournament slots and their results.
package match

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/hardik-0129/backend/internal/logger"
	"github.com/hardik-0129/backend/internal/wallet"
)

// Payer credits prize money. wallet.Service satisfies it.
type Payer interface {
	AddWinning(ctx context.Context, w wallet.Winning) (*wallet.WinningResult, error)
}

// Bookings answers whether a user holds a booking in a slot.
type Bookings interface {
	GetBooking(ctx context.Context, userID, slotID int64) (*ledger.Booking, error)
}

type Service interface {
	CreateSlot(ctx context.Context, req CreateSlotRequest) (*Slot, error)
	ListSlots(ctx context.Context, status string, limit, offset int) ([]Slot, error)
	GetSlot(ctx context.Context, id int64) (*Slot, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*Slot, error)
	RecordWinners(ctx context.Context, slotID int64, winners []WinnerInput) ([]Winner, error)
	ListWinners(ctx context.Context, slotID int64) ([]Winner, error)
	Payout(ctx context.Context, slotID int64) ([]Payout, error)
}

type service struct {
	repo     Repository
	bookings Bookings
	payer    Payer
}

func NewService(repo Repository, bookings Bookings, payer Payer) Service {
	return &service{repo: repo, bookings: bookings, payer: payer}
}

func (s *service) CreateSlot(ctx context.Context, req CreateSlotRequest) (*Slot, error) {
	matchTime, err := time.Parse(time.RFC3339, req.MatchTime)
	if err != nil {
		return nil, ledger.ErrInvalidSlot
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.SlotType) == "" {
		return nil, ledger.ErrInvalidSlot
	}
	if req.MaxPositions <= 0 || req.EntryFee.IsNegative() {
		return nil, ledger.ErrInvalidSlot
	}

	slot := &Slot{
		Title:              strings.TrimSpace(req.Title),
		SlotType:           strings.TrimSpace(req.SlotType),
		EntryFee:           req.EntryFee,
		MaxPositions:       req.MaxPositions,
		RemainingPositions: req.MaxPositions,
		Status:             ledger.SlotUpcoming,
		MatchTime:          matchTime.UTC(),
	}
	if err := s.repo.CreateSlot(ctx, slot); err != nil {
		return nil, err
	}

	logger.Info("slot created", "slot_id", slot.ID, "type", slot.SlotType, "entry_fee", slot.EntryFee.String())
	return slot, nil
}

func (s *service) ListSlots(ctx context.Context, status string, limit, offset int) ([]Slot, error) {
	st, ok := parseStatus(status)
	if status != "" && !ok {
		return nil, ledger.ErrInvalidSlot
	}
	slots, err := s.repo.ListSlots(ctx, st, limit, offset)
	if err != nil {
		return nil, err
	}
	if slots == nil {
		slots = []Slot{}
	}
	return slots, nil
}

func (s *service) GetSlot(ctx context.Context, id int64) (*Slot, error) {
	return s.repo.GetSlot(ctx, id)
}

// UpdateStatus applies a lifecycle transition coming from the scheduler or an admin.
func (s *service) UpdateStatus(ctx context.Context, id int64, status string) (*Slot, error) {
	st, ok := parseStatus(status)
	if !ok {
		return nil, ledger.ErrInvalidSlot
	}
	if err := s.repo.UpdateSlotStatus(ctx, id, st); err != nil {
		return nil, err
	}
	logger.Info("slot status updated", "slot_id", id, "status", st)
	return s.repo.GetSlot(ctx, id)
}

func (s *service) RecordWinners(ctx context.Context, slotID int64, inputs []WinnerInput) ([]Winner, error) {
	if len(inputs) == 0 {
		return nil, ledger.ErrInvalidWinner
	}
	if _, err := s.repo.GetSlot(ctx, slotID); err != nil {
		return nil, err
	}

	seen := make(map[int64]bool, len(inputs))
	winners := make([]Winner, 0, len(inputs))
	for _, in := range inputs {
		if in.UserID <= 0 || in.Rank < 1 || in.Kills < 0 || in.WinningPrice.IsNegative() || seen[in.UserID] {
			return nil, ledger.ErrInvalidWinner
		}
		seen[in.UserID] = true

		if s.bookings != nil {
			if _, err := s.bookings.GetBooking(ctx, in.UserID, slotID); err != nil {
				if ledger.ClassOf(err) == ledger.ClassNotFound {
					return nil, ledger.ErrInvalidWinner
				}
				return nil, err
			}
		}

		winners = append(winners, Winner{
			SlotID:       slotID,
			UserID:       in.UserID,
			PlayerName:   strings.TrimSpace(in.PlayerName),
			Rank:         in.Rank,
			Kills:        in.Kills,
			WinningPrice: in.WinningPrice,
		})
	}

	saved, err := s.repo.SaveWinners(ctx, slotID, winners)
	if err != nil {
		return nil, err
	}
	logger.Info("winners recorded", "slot_id", slotID, "count", len(saved))
	return saved, nil
}

func (s *service) ListWinners(ctx context.Context, slotID int64) ([]Winner, error) {
	winners, err := s.repo.ListWinners(ctx, slotID)
	if err != nil {
		return nil, err
	}
	if winners == nil {
		winners = []Winner{}
	}
	return winners, nil
}

// Payout credits every unpaid winner of the slot. It is safe to repeat: each
// winner row is paid at most once because the credit is keyed by winner id.
func (s *service) Payout(ctx context.Context, slotID int64) ([]Payout, error) {
	if _, err := s.repo.GetSlot(ctx, slotID); err != nil {
		return nil, err
	}
	winners, err := s.repo.ListWinners(ctx, slotID)
	if err != nil {
		return nil, err
	}

	matchRef := strconv.FormatInt(slotID, 10)
	results := make([]Payout, 0, len(winners))
	for _, w := range winners {
		if !w.WinningPrice.IsPositive() {
			continue
		}
		p := Payout{WinnerID: w.ID, UserID: w.UserID, Amount: w.WinningPrice}
		if w.Paid() {
			p.TransactionID = *w.PaidTxID
			p.AlreadyPaid = true
			results = append(results, p)
			continue
		}

		res, err := s.payer.AddWinning(ctx, wallet.Winning{
			UserID:      w.UserID,
			Amount:      w.WinningPrice,
			MatchRef:    matchRef,
			WinnerID:    w.ID,
			Description: "Rank " + strconv.Itoa(w.Rank) + " prize for match " + matchRef,
		})
		if err != nil {
			logger.WithError(err).Error("winner payout failed", "slot_id", slotID, "winner_id", w.ID)
			p.Error = err.Error()
			results = append(results, p)
			continue
		}

		p.TransactionID = res.Transaction.ID
		p.AlreadyPaid = res.Duplicate
		if err := s.repo.MarkWinnerPaid(ctx, w.ID, res.Transaction.ID); err != nil {
			// the ledger reference keeps a retry from paying twice
			logger.WithError(err).Warn("failed to mark winner paid", "winner_id", w.ID)
		}
		results = append(results, p)
	}
	return results, nil
}

func parseStatus(s string) (ledger.SlotStatus, bool) {
	switch st := ledger.SlotStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case ledger.SlotUpcoming, ledger.SlotLive, ledger.SlotCompleted, ledger.SlotCancelled:
		return st, true
	}
	return "", false
}
