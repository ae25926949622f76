package drawservice

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	drawdomain "github.com/civic-spark/rewards-backend/app/modules/draw/domain"
	drawevents "github.com/civic-spark/rewards-backend/app/modules/draw/events"
	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/observability/attr"
	"github.com/civic-spark/rewards-backend/internal/results"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// OpenRound creates a new OPEN round. The seed is generated here and
// stored apart from the round; only its commitment is published.
func (s *DrawService) OpenRound(ctx context.Context) (results.OperationResult[OpenRoundData, Failure], error) {
	seed, err := drawdomain.GenerateSeed()
	if err != nil {
		return results.OperationResult[OpenRoundData, Failure]{}, err
	}

	roundID := uuid.New()
	openTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[OpenRoundData, Failure], error) {
		return s.openRoundLogic(ctx, db, roundID, seed)
	}

	result, err := withTelemetry(s, ctx, "OpenRound", roundID.String(), func(ctx context.Context) (results.OperationResult[OpenRoundData, Failure], error) {
		return runInTx(s, ctx, openTx)
	})
	if err != nil || !result.IsSuccess() {
		return result, err
	}

	round := result.Success.Round
	s.publishEvent(ctx, drawevents.RoundOpenedV1, drawevents.RoundOpenedPayload{
		RoundID:        round.ID,
		CommitmentHash: round.CommitmentHash,
		EntryCost:      round.EntryCost,
		PoolAmount:     round.PoolAmount,
		LocksAt:        round.LocksAt,
		DrawsAt:        round.DrawsAt,
	})

	// Booking the lock and draw here rather than inside the transaction
	// keeps job uniqueness per round simple; a crash between commit and
	// scheduling is recovered by re-posting the open (the schedule
	// calls are idempotent per round and step).
	if s.scheduler != nil {
		if err := s.scheduler.ScheduleLock(ctx, round.ID, round.LocksAt); err != nil {
			return result, fmt.Errorf("failed to schedule lock: %w", err)
		}
		if err := s.scheduler.ScheduleDraw(ctx, round.ID, round.DrawsAt); err != nil {
			return result, fmt.Errorf("failed to schedule draw: %w", err)
		}
	}

	return result, nil
}

func (s *DrawService) openRoundLogic(ctx context.Context, db bun.IDB, roundID uuid.UUID, seed string) (results.OperationResult[OpenRoundData, Failure], error) {
	rollover, err := s.repo.ClaimRollover(ctx, db)
	if err != nil {
		return results.OperationResult[OpenRoundData, Failure]{}, fmt.Errorf("failed to claim rollover: %w", err)
	}

	now := s.now().UTC()
	round := &drawdb.Round{
		ID:             roundID,
		State:          drawdomain.RoundStateOpen,
		EntryCost:      types.TokenAmount(s.cfg.EntryCost),
		PoolAmount:     rollover,
		CommitmentHash: drawdomain.Commitment(seed),
		OpenedAt:       now,
		LocksAt:        now.Add(s.cfg.OpenDuration),
		DrawsAt:        now.Add(s.cfg.OpenDuration + s.cfg.DrawDelay),
	}
	if err := s.repo.CreateRound(ctx, db, round, seed); err != nil {
		return results.OperationResult[OpenRoundData, Failure]{}, fmt.Errorf("failed to create round: %w", err)
	}

	if rollover > 0 {
		s.logger.InfoContext(ctx, "Rollover claimed into opening pool",
			attr.ExtractCorrelationID(ctx),
			attr.String("round_id", roundID.String()),
			attr.Int64("rollover", int64(rollover)),
		)
	}

	return results.SuccessResult[OpenRoundData, Failure](OpenRoundData{
		Round:           round,
		RolloverClaimed: rollover,
	}), nil
}
