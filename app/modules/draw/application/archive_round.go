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

// ArchiveRound closes out a PAID round.
func (s *DrawService) ArchiveRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[ArchiveRoundData, Failure], error) {
	archiveTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[ArchiveRoundData, Failure], error) {
		return s.archiveRoundLogic(ctx, db, roundID)
	}

	result, err := withTelemetry(s, ctx, "ArchiveRound", roundID.String(), func(ctx context.Context) (results.OperationResult[ArchiveRoundData, Failure], error) {
		return runInTx(s, ctx, archiveTx)
	})
	if err != nil || !result.IsSuccess() {
		return result, err
	}

	if !result.Success.Replayed {
		s.publishEvent(ctx, drawevents.RoundArchivedV1, drawevents.RoundArchivedPayload{
			RoundID: roundID,
		})
	}

	return result, nil
}

func (s *DrawService) archiveRoundLogic(ctx context.Context, db bun.IDB, roundID types.RoundID) (results.OperationResult[ArchiveRoundData, Failure], error) {
	round, err := s.repo.GetRoundForUpdate(ctx, db, roundID)
	if err != nil {
		if errors.Is(err, drawdb.ErrNotFound) {
			return results.FailureResult[ArchiveRoundData](roundNotFound(roundID)), nil
		}
		return results.OperationResult[ArchiveRoundData, Failure]{}, fmt.Errorf("failed to load round: %w", err)
	}

	if round.State == drawdomain.RoundStateArchived {
		return results.SuccessResult[ArchiveRoundData, Failure](ArchiveRoundData{
			RoundID:  roundID,
			Replayed: true,
		}), nil
	}
	if round.State != drawdomain.RoundStatePaid {
		return results.FailureResult[ArchiveRoundData](invalidTransition(roundID, round.State, "archive")), nil
	}

	if err := s.repo.MarkArchived(ctx, db, roundID, s.now().UTC()); err != nil {
		if errors.Is(err, drawdb.ErrNoRowsAffected) {
			return results.SuccessResult[ArchiveRoundData, Failure](ArchiveRoundData{
				RoundID:  roundID,
				Replayed: true,
			}), nil
		}
		return results.OperationResult[ArchiveRoundData, Failure]{}, fmt.Errorf("failed to archive round: %w", err)
	}

	return results.SuccessResult[ArchiveRoundData, Failure](ArchiveRoundData{RoundID: roundID}), nil
}
