package drawdb

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/civic-spark/rewards-backend/internal/types"
)

// InsertWinners persists the draw outcome. The (round_id, tier) unique
// constraint rejects a second winner set for the same round.
func (r *DrawDBImpl) InsertWinners(ctx context.Context, db bun.IDB, winners []Winner) error {
	if len(winners) == 0 {
		return nil
	}
	if _, err := db.NewInsert().Model(&winners).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert winners: %w", err)
	}
	return nil
}

// ListWinners returns a round's winners ordered by tier.
func (r *DrawDBImpl) ListWinners(ctx context.Context, db bun.IDB, roundID types.RoundID) ([]Winner, error) {
	var winners []Winner
	err := db.NewSelect().
		Model(&winners).
		Where("round_id = ?", roundID).
		Order("tier ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	return winners, nil
}

// MarkWinnerPaid stamps one winner's credit timestamp.
func (r *DrawDBImpl) MarkWinnerPaid(ctx context.Context, db bun.IDB, winnerID types.EntryID, paidAt time.Time) error {
	res, err := db.NewUpdate().
		Model((*Winner)(nil)).
		Set("paid_at = ?", paidAt).
		Where("id = ?", winnerID).
		Where("paid_at IS NULL").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark winner paid: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read winner update result: %w", err)
	}
	if rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
