package drawdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	drawdomain "github.com/civic-spark/rewards-backend/app/modules/draw/domain"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// DrawDBImpl is the bun-backed Repository implementation.
type DrawDBImpl struct{}

var _ Repository = (*DrawDBImpl)(nil)

// NewRepository returns the bun-backed draw repository.
func NewRepository() *DrawDBImpl {
	return &DrawDBImpl{}
}

// CreateRound inserts the round and its secret seed together.
func (r *DrawDBImpl) CreateRound(ctx context.Context, db bun.IDB, round *Round, seed string) error {
	if _, err := db.NewInsert().Model(round).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}
	secret := &RoundSecret{RoundID: round.ID, Seed: seed}
	if _, err := db.NewInsert().Model(secret).Exec(ctx); err != nil {
		return fmt.Errorf("failed to insert round secret: %w", err)
	}
	return nil
}

// GetRound fetches a round by ID.
func (r *DrawDBImpl) GetRound(ctx context.Context, db bun.IDB, roundID types.RoundID) (*Round, error) {
	round := new(Round)
	err := db.NewSelect().
		Model(round).
		Where("id = ?", roundID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch round: %w", err)
	}
	return round, nil
}

// GetRoundForUpdate fetches a round holding its row lock.
func (r *DrawDBImpl) GetRoundForUpdate(ctx context.Context, db bun.IDB, roundID types.RoundID) (*Round, error) {
	round := new(Round)
	err := db.NewSelect().
		Model(round).
		Where("id = ?", roundID).
		For("UPDATE").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch round for update: %w", err)
	}
	return round, nil
}

// GetSeed returns the unrevealed seed for a round.
func (r *DrawDBImpl) GetSeed(ctx context.Context, db bun.IDB, roundID types.RoundID) (string, error) {
	secret := new(RoundSecret)
	err := db.NewSelect().
		Model(secret).
		Where("round_id = ?", roundID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch round secret: %w", err)
	}
	return secret.Seed, nil
}

// MarkLocked freezes a round's entry set. The state guard in the WHERE
// clause makes a redundant invocation a visible no-op.
func (r *DrawDBImpl) MarkLocked(ctx context.Context, db bun.IDB, roundID types.RoundID, entriesDigest string, lockedAt time.Time) error {
	return r.transition(ctx, db, roundID, drawdomain.RoundStateOpen, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("state = ?", drawdomain.RoundStateLocked).
			Set("entries_digest = ?", entriesDigest).
			Set("locked_at = ?", lockedAt)
	})
}

// MarkDrawn records the reveal and the drawn timestamp.
func (r *DrawDBImpl) MarkDrawn(ctx context.Context, db bun.IDB, roundID types.RoundID, revealedSeed string, drawnAt time.Time) error {
	return r.transition(ctx, db, roundID, drawdomain.RoundStateLocked, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("state = ?", drawdomain.RoundStateDrawn).
			Set("revealed_seed = ?", revealedSeed).
			Set("drawn_at = ?", drawnAt)
	})
}

// MarkPaid completes the payout transition.
func (r *DrawDBImpl) MarkPaid(ctx context.Context, db bun.IDB, roundID types.RoundID, paidAt time.Time, rolloverAvailable bool) error {
	return r.transition(ctx, db, roundID, drawdomain.RoundStateDrawn, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("state = ?", drawdomain.RoundStatePaid).
			Set("paid_at = ?", paidAt).
			Set("rollover_available = ?", rolloverAvailable)
	})
}

// MarkArchived closes the round.
func (r *DrawDBImpl) MarkArchived(ctx context.Context, db bun.IDB, roundID types.RoundID, archivedAt time.Time) error {
	return r.transition(ctx, db, roundID, drawdomain.RoundStatePaid, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("state = ?", drawdomain.RoundStateArchived).
			Set("archived_at = ?", archivedAt)
	})
}

// MarkCancelled archives an OPEN round directly, the one legal jump in
// the lifecycle.
func (r *DrawDBImpl) MarkCancelled(ctx context.Context, db bun.IDB, roundID types.RoundID, cancelledAt time.Time) error {
	return r.transition(ctx, db, roundID, drawdomain.RoundStateOpen, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("state = ?", drawdomain.RoundStateArchived).
			Set("pool_amount = 0").
			Set("cancelled_at = ?", cancelledAt).
			Set("archived_at = ?", cancelledAt)
	})
}

// ClaimRollover zeroes the rollover flag on every waiting round and
// returns the collected pool total.
func (r *DrawDBImpl) ClaimRollover(ctx context.Context, db bun.IDB) (types.TokenAmount, error) {
	var pools []types.TokenAmount
	err := db.NewUpdate().
		Model((*Round)(nil)).
		Set("rollover_available = FALSE").
		Set("updated_at = current_timestamp").
		Where("rollover_available = TRUE").
		Returning("pool_amount").
		Scan(ctx, &pools)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to claim rollover pools: %w", err)
	}

	var total types.TokenAmount
	for _, p := range pools {
		total += p
	}
	return total, nil
}

// transition applies a guarded state update. ErrNoRowsAffected means
// the round was not in fromState; callers decide whether that is an
// idempotent replay or an InvalidTransition.
func (r *DrawDBImpl) transition(ctx context.Context, db bun.IDB, roundID types.RoundID, fromState drawdomain.RoundState, apply func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	q := db.NewUpdate().
		Model((*Round)(nil)).
		Where("id = ?", roundID).
		Where("state = ?", fromState).
		Set("updated_at = current_timestamp")
	q = apply(q)

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to transition round: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read transition result: %w", err)
	}
	if rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
