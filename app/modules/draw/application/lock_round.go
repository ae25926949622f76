package drawservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	drawdomain "github.com/civic-spark/rewards-backend/app/modules/draw/domain"
	drawevents "github.com/civic-spark/rewards-backend/app/modules/draw/events"
	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/results"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// LockRound freezes the entry set. The entries digest computed here is
// the exact draw input; after this no entry can join or leave.
func (s *DrawService) LockRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[LockRoundData, Failure], error) {
	lockTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[LockRoundData, Failure], error) {
		return s.lockRoundLogic(ctx, db, roundID)
	}

	result, err := withTelemetry(s, ctx, "LockRound", roundID.String(), func(ctx context.Context) (results.OperationResult[LockRoundData, Failure], error) {
		return runInTx(s, ctx, lockTx)
	})
	if err != nil || !result.IsSuccess() {
		return result, err
	}

	data := *result.Success
	if !data.Replayed {
		s.publishEvent(ctx, drawevents.RoundLockedV1, drawevents.RoundLockedPayload{
			RoundID:       data.RoundID,
			EntriesDigest: data.EntriesDigest,
			PoolAmount:    data.PoolAmount,
			EntryCount:    data.EntryCount,
		})
	}

	return result, nil
}

func (s *DrawService) lockRoundLogic(ctx context.Context, db bun.IDB, roundID types.RoundID) (results.OperationResult[LockRoundData, Failure], error) {
	round, err := s.repo.GetRoundForUpdate(ctx, db, roundID)
	if err != nil {
		if errors.Is(err, drawdb.ErrNotFound) {
			return results.FailureResult[LockRoundData](roundNotFound(roundID)), nil
		}
		return results.OperationResult[LockRoundData, Failure]{}, fmt.Errorf("failed to load round: %w", err)
	}

	// A redelivered lock job finds the round already past OPEN. That is
	// a replay, not an error: report success without touching anything.
	if round.State != drawdomain.RoundStateOpen {
		return results.SuccessResult[LockRoundData, Failure](LockRoundData{
			RoundID:       roundID,
			EntriesDigest: round.EntriesDigest,
			PoolAmount:    round.PoolAmount,
			Replayed:      true,
		}), nil
	}

	entries, err := s.repo.ListEntries(ctx, db, roundID)
	if err != nil {
		return results.OperationResult[LockRoundData, Failure]{}, fmt.Errorf("failed to list entries: %w", err)
	}

	entryIDs := make([]types.EntryID, len(entries))
	for i, e := range entries {
		entryIDs[i] = e.ID
	}
	digest := drawdomain.EntriesDigest(entryIDs)

	if err := s.repo.MarkLocked(ctx, db, roundID, digest, s.now().UTC()); err != nil {
		if errors.Is(err, drawdb.ErrNoRowsAffected) {
			// Lost the race to another locker after our read; the other
			// side did the work.
			return results.SuccessResult[LockRoundData, Failure](LockRoundData{
				RoundID:  roundID,
				Replayed: true,
			}), nil
		}
		return results.OperationResult[LockRoundData, Failure]{}, fmt.Errorf("failed to lock round: %w", err)
	}

	return results.SuccessResult[LockRoundData, Failure](LockRoundData{
		RoundID:       roundID,
		EntriesDigest: digest,
		PoolAmount:    round.PoolAmount,
		EntryCount:    len(entries),
	}), nil
}
