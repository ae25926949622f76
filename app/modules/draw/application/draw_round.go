package drawservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	drawdomain "github.com/civic-spark/rewards-backend/app/modules/draw/domain"
	drawevents "github.com/civic-spark/rewards-backend/app/modules/draw/events"
	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/results"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// DrawRound reveals the seed and selects winners. The seed must hash
// to the published commitment and the stored entry set must hash to
// the locked digest; any mismatch is an integrity fault and the round
// stays LOCKED for manual review.
func (s *DrawService) DrawRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[DrawRoundData, Failure], error) {
	drawTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[DrawRoundData, Failure], error) {
		return s.drawRoundLogic(ctx, db, roundID)
	}

	result, err := withTelemetry(s, ctx, "DrawRound", roundID.String(), func(ctx context.Context) (results.OperationResult[DrawRoundData, Failure], error) {
		return runInTx(s, ctx, drawTx)
	})
	if err != nil {
		return result, err
	}

	if result.IsFailure() && result.Failure.Code == FailureIntegrityFault {
		f := *result.Failure
		s.publishEvent(ctx, drawevents.IntegrityFaultV1, drawevents.IntegrityFaultPayload{
			RoundID: f.RoundID,
			Reason:  f.Reason,
		})
		return result, nil
	}
	if !result.IsSuccess() {
		return result, nil
	}

	data := *result.Success
	if !data.Replayed {
		s.publishEvent(ctx, drawevents.RoundDrawnV1, drawevents.RoundDrawnPayload{
			RoundID:        data.RoundID,
			CommitmentHash: data.CommitmentHash,
			RevealedSeed:   data.RevealedSeed,
			EntriesDigest:  data.EntriesDigest,
			Winners:        data.Winners,
		})
		if s.scheduler != nil {
			if err := s.scheduler.SchedulePayout(ctx, roundID, s.now().UTC().Add(s.cfg.PayoutDelay)); err != nil {
				return result, fmt.Errorf("failed to schedule payout: %w", err)
			}
		}
	}

	return result, nil
}

func (s *DrawService) drawRoundLogic(ctx context.Context, db bun.IDB, roundID types.RoundID) (results.OperationResult[DrawRoundData, Failure], error) {
	round, err := s.repo.GetRoundForUpdate(ctx, db, roundID)
	if err != nil {
		if errors.Is(err, drawdb.ErrNotFound) {
			return results.FailureResult[DrawRoundData](roundNotFound(roundID)), nil
		}
		return results.OperationResult[DrawRoundData, Failure]{}, fmt.Errorf("failed to load round: %w", err)
	}

	// A redelivered draw job finds the round already drawn or later.
	if round.State == drawdomain.RoundStateDrawn ||
		round.State == drawdomain.RoundStatePaid ||
		round.State == drawdomain.RoundStateArchived {
		return results.SuccessResult[DrawRoundData, Failure](DrawRoundData{
			RoundID:  roundID,
			Replayed: true,
		}), nil
	}
	if round.State != drawdomain.RoundStateLocked {
		return results.FailureResult[DrawRoundData](invalidTransition(roundID, round.State, "draw")), nil
	}

	seed, err := s.repo.GetSeed(ctx, db, roundID)
	if err != nil {
		return results.OperationResult[DrawRoundData, Failure]{}, fmt.Errorf("failed to load seed: %w", err)
	}
	if !drawdomain.VerifyCommitment(seed, round.CommitmentHash) {
		return results.FailureResult[DrawRoundData](integrityFault(roundID, "revealed seed does not match published commitment")), nil
	}

	entries, err := s.repo.ListEntries(ctx, db, roundID)
	if err != nil {
		return results.OperationResult[DrawRoundData, Failure]{}, fmt.Errorf("failed to list entries: %w", err)
	}

	entryIDs := make([]types.EntryID, len(entries))
	tickets := make([]drawdomain.Ticket, len(entries))
	for i, e := range entries {
		entryIDs[i] = e.ID
		tickets[i] = drawdomain.Ticket{EntryID: e.ID, UserID: e.UserID}
	}
	if digest := drawdomain.EntriesDigest(entryIDs); digest != round.EntriesDigest {
		return results.FailureResult[DrawRoundData](integrityFault(roundID, "entry set does not match locked digest")), nil
	}

	randomness := drawdomain.DeriveRandomness(seed, round.EntriesDigest)
	picks := drawdomain.SelectWinners(randomness, tickets, s.tiers())

	winners := make([]drawdb.Winner, len(picks))
	summaries := make([]drawevents.WinnerSummary, len(picks))
	for i, p := range picks {
		amount := s.split.TierAmount(round.PoolAmount, p.Tier)
		winners[i] = drawdb.Winner{
			ID:      uuid.New(),
			RoundID: roundID,
			Tier:    p.Tier,
			UserID:  p.UserID,
			EntryID: p.EntryID,
			Amount:  amount,
		}
		summaries[i] = drawevents.WinnerSummary{
			Tier:    p.Tier,
			UserID:  p.UserID,
			EntryID: p.EntryID,
			Amount:  amount,
		}
	}
	if len(winners) > 0 {
		if err := s.repo.InsertWinners(ctx, db, winners); err != nil {
			return results.OperationResult[DrawRoundData, Failure]{}, fmt.Errorf("failed to insert winners: %w", err)
		}
	}

	if err := s.repo.MarkDrawn(ctx, db, roundID, seed, s.now().UTC()); err != nil {
		if errors.Is(err, drawdb.ErrNoRowsAffected) {
			return results.SuccessResult[DrawRoundData, Failure](DrawRoundData{
				RoundID:  roundID,
				Replayed: true,
			}), nil
		}
		return results.OperationResult[DrawRoundData, Failure]{}, fmt.Errorf("failed to mark round drawn: %w", err)
	}

	return results.SuccessResult[DrawRoundData, Failure](DrawRoundData{
		RoundID:        roundID,
		CommitmentHash: round.CommitmentHash,
		RevealedSeed:   seed,
		EntriesDigest:  round.EntriesDigest,
		Winners:        summaries,
	}), nil
}
