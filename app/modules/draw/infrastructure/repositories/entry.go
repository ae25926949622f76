package drawdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/civic-spark/rewards-backend/internal/types"
)

// InsertEntry appends an entry to a round.
func (r *DrawDBImpl) InsertEntry(ctx context.Context, db bun.IDB, entry *Entry) error {
	if _, err := db.NewInsert().Model(entry).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// ListEntries returns a round's entries in insertion order. The order
// is part of the draw input, so it must be stable: created_at with the
// id as tiebreak.
func (r *DrawDBImpl) ListEntries(ctx context.Context, db bun.IDB, roundID types.RoundID) ([]Entry, error) {
	var entries []Entry
	err := db.NewSelect().
		Model(&entries).
		Where("round_id = ?", roundID).
		Order("created_at ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, nil
}

// CountEntriesForUser counts a user's entries in a round.
func (r *DrawDBImpl) CountEntriesForUser(ctx context.Context, db bun.IDB, roundID types.RoundID, userID types.UserID) (int, error) {
	count, err := db.NewSelect().
		Model((*Entry)(nil)).
		Where("round_id = ?", roundID).
		Where("user_id = ?", userID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count entries: %w", err)
	}
	return count, nil
}

// IncrementPool grows the round's pool and returns the new amount.
func (r *DrawDBImpl) IncrementPool(ctx context.Context, db bun.IDB, roundID types.RoundID, amount types.TokenAmount) (types.TokenAmount, error) {
	var pool types.TokenAmount
	err := db.NewUpdate().
		Model((*Round)(nil)).
		Set("pool_amount = pool_amount + ?", amount).
		Set("updated_at = current_timestamp").
		Where("id = ?", roundID).
		Returning("pool_amount").
		Scan(ctx, &pool)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment pool: %w", err)
	}
	return pool, nil
}
