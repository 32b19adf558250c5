package match

import (
	"context"

	"github.com/hardik-0129/backend/internal/ledger"
)

type Repository interface {
	CreateSlot(ctx context.Context, s *Slot) error
	ListSlots(ctx context.Context, status ledger.SlotStatus, limit, offset int) ([]Slot, error)
	GetSlot(ctx context.Context, id int64) (*Slot, error)
	UpdateSlotStatus(ctx context.Context, id int64, status ledger.SlotStatus) error
	SaveWinners(ctx context.Context, slotID int64, winners []Winner) ([]Winner, error)
	ListWinners(ctx context.Context, slotID int64) ([]Winner, error)
	MarkWinnerPaid(ctx context.Context, winnerID int64, txID string) error
}
