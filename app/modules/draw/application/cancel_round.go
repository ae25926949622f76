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

// CancelRound refunds every entry of an OPEN round and archives it.
// The refunds and the state change commit together: a cancelled round
// can never hold tokens that were not returned.
func (s *DrawService) CancelRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[CancelRoundData, Failure], error) {
	cancelTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[CancelRoundData, Failure], error) {
		return s.cancelRoundLogic(ctx, db, roundID)
	}

	result, err := withTelemetry(s, ctx, "CancelRound", roundID.String(), func(ctx context.Context) (results.OperationResult[CancelRoundData, Failure], error) {
		return runInTx(s, ctx, cancelTx)
	})
	if err != nil || !result.IsSuccess() {
		return result, err
	}

	data := *result.Success
	s.publishEvent(ctx, drawevents.RoundCancelledV1, drawevents.RoundCancelledPayload{
		RoundID:        data.RoundID,
		RefundedCount:  data.RefundedCount,
		RefundedAmount: data.RefundedAmount,
	})

	return result, nil
}

func (s *DrawService) cancelRoundLogic(ctx context.Context, db bun.IDB, roundID types.RoundID) (results.OperationResult[CancelRoundData, Failure], error) {
	round, err := s.repo.GetRoundForUpdate(ctx, db, roundID)
	if err != nil {
		if errors.Is(err, drawdb.ErrNotFound) {
			return results.FailureResult[CancelRoundData](roundNotFound(roundID)), nil
		}
		return results.OperationResult[CancelRoundData, Failure]{}, fmt.Errorf("failed to load round: %w", err)
	}

	// Cancellation only exists before the entry set is frozen. After
	// lock the commit-reveal pipeline owns the round.
	if round.State != drawdomain.RoundStateOpen {
		return results.FailureResult[CancelRoundData](invalidTransition(roundID, round.State, "cancel")), nil
	}

	entries, err := s.repo.ListEntries(ctx, db, roundID)
	if err != nil {
		return results.OperationResult[CancelRoundData, Failure]{}, fmt.Errorf("failed to list entries: %w", err)
	}

	data := CancelRoundData{RoundID: roundID}
	for _, e := range entries {
		_, applied, err := s.wallet.Credit(ctx, db, e.UserID, e.CostPaid, "draw entry refund", refundKey(e.ID))
		if err != nil {
			return results.OperationResult[CancelRoundData, Failure]{}, fmt.Errorf("failed to refund entry %s: %w", e.ID, err)
		}
		if applied {
			data.RefundedCount++
			data.RefundedAmount += e.CostPaid
		}
	}

	if err := s.repo.MarkCancelled(ctx, db, roundID, s.now().UTC()); err != nil {
		if errors.Is(err, drawdb.ErrNoRowsAffected) {
			return results.FailureResult[CancelRoundData](invalidTransition(roundID, round.State, "cancel")), nil
		}
		return results.OperationResult[CancelRoundData, Failure]{}, fmt.Errorf("failed to cancel round: %w", err)
	}

	return results.SuccessResult[CancelRoundData, Failure](data), nil
}

func refundKey(entryID types.EntryID) string {
	return "refund:" + entryID.String()
}
