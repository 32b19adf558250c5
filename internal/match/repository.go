package match

import (
	"context"
	"database/sql"
	"errors"

	"github.com/hardik-0129/backend/internal/ledger"
	"github.com/jmoiron/sqlx"
)

const (
	slotColumns = `id, title, slot_type, entry_fee, max_positions, remaining_positions,
		status, match_time, created_at`
	winnerColumns = `id, slot_id, user_id, player_name, rank, kills, winning_price,
		paid_tx_id, created_at`
)

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) CreateSlot(ctx context.Context, s *Slot) error {
	query := `
		INSERT INTO slots (title, slot_type, entry_fee, max_positions, remaining_positions, status, match_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	return r.db.QueryRowxContext(ctx, query,
		s.Title, s.SlotType, s.EntryFee, s.MaxPositions, s.RemainingPositions, s.Status, s.MatchTime,
	).Scan(&s.ID, &s.CreatedAt)
}

func (r *repository) ListSlots(ctx context.Context, status ledger.SlotStatus, limit, offset int) ([]Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY match_time ASC, id`
	if limit > 0 {
		args = append(args, limit, offset)
		if status != "" {
			query += ` LIMIT $2 OFFSET $3`
		} else {
			query += ` LIMIT $1 OFFSET $2`
		}
	}

	var slots []Slot
	if err := sqlx.SelectContext(ctx, r.db, &slots, query, args...); err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *repository) GetSlot(ctx context.Context, id int64) (*Slot, error) {
	var s Slot
	err := sqlx.GetContext(ctx, r.db, &s, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ledger.ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repository) UpdateSlotStatus(ctx context.Context, id int64, status ledger.SlotStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE slots SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrSlotNotFound
	}
	return nil
}

// SaveWinners upserts the result rows of a slot. Rows that were already paid
// keep their recorded prize.
func (r *repository) SaveWinners(ctx context.Context, slotID int64, winners []Winner) ([]Winner, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO winners (slot_id, user_id, player_name, rank, kills, winning_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (slot_id, user_id) DO UPDATE
		SET player_name = EXCLUDED.player_name, rank = EXCLUDED.rank, kills = EXCLUDED.kills,
		    winning_price = CASE WHEN winners.paid_tx_id IS NULL
		                         THEN EXCLUDED.winning_price ELSE winners.winning_price END
		RETURNING ` + winnerColumns

	saved := make([]Winner, 0, len(winners))
	for _, w := range winners {
		var out Winner
		if err := tx.QueryRowxContext(ctx, query,
			slotID, w.UserID, w.PlayerName, w.Rank, w.Kills, w.WinningPrice,
		).StructScan(&out); err != nil {
			return nil, err
		}
		saved = append(saved, out)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return saved, nil
}

func (r *repository) ListWinners(ctx context.Context, slotID int64) ([]Winner, error) {
	var winners []Winner
	err := sqlx.SelectContext(ctx, r.db, &winners,
		`SELECT `+winnerColumns+` FROM winners WHERE slot_id = $1 ORDER BY rank ASC, id`, slotID)
	if err != nil {
		return nil, err
	}
	return winners, nil
}

func (r *repository) MarkWinnerPaid(ctx context.Context, winnerID int64, txID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE winners SET paid_tx_id = $1 WHERE id = $2 AND paid_tx_id IS NULL`, txID, winnerID)
	return err
}
