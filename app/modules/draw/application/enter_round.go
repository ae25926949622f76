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
	walletdb "github.com/civic-spark/rewards-backend/app/modules/wallet/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/results"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// EnterRound registers one paid entry. The round lock, the wallet
// debit, the entry row, and the pool increment all commit together or
// not at all.
func (s *DrawService) EnterRound(ctx context.Context, roundID types.RoundID, userID types.UserID) (results.OperationResult[EnterRoundData, Failure], error) {
	entryID := uuid.New()
	enterTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[EnterRoundData, Failure], error) {
		return s.enterRoundLogic(ctx, db, roundID, userID, entryID)
	}

	result, err := withTelemetry(s, ctx, "EnterRound", roundID.String(), func(ctx context.Context) (results.OperationResult[EnterRoundData, Failure], error) {
		return runInTx(s, ctx, enterTx)
	})
	if err != nil || !result.IsSuccess() {
		return result, err
	}

	data := *result.Success
	s.publishEvent(ctx, drawevents.EntryAcceptedV1, drawevents.EntryAcceptedPayload{
		RoundID:    data.RoundID,
		EntryID:    data.EntryID,
		UserID:     data.UserID,
		CostPaid:   data.CostPaid,
		PoolAmount: data.PoolAmount,
	})

	return result, nil
}

func (s *DrawService) enterRoundLogic(ctx context.Context, db bun.IDB, roundID types.RoundID, userID types.UserID, entryID types.EntryID) (results.OperationResult[EnterRoundData, Failure], error) {
	round, err := s.repo.GetRoundForUpdate(ctx, db, roundID)
	if err != nil {
		if errors.Is(err, drawdb.ErrNotFound) {
			return results.FailureResult[EnterRoundData](roundNotFound(roundID)), nil
		}
		return results.OperationResult[EnterRoundData, Failure]{}, fmt.Errorf("failed to load round: %w", err)
	}

	// The lock job is authoritative, but a round past its lock time
	// stops taking entries even before the job lands.
	if round.State != drawdomain.RoundStateOpen || !s.now().UTC().Before(round.LocksAt) {
		return results.FailureResult[EnterRoundData](roundClosed(roundID, round.State)), nil
	}

	if s.cfg.MaxEntriesPerUser > 0 {
		count, err := s.repo.CountEntriesForUser(ctx, db, roundID, userID)
		if err != nil {
			return results.OperationResult[EnterRoundData, Failure]{}, fmt.Errorf("failed to count entries: %w", err)
		}
		if count >= s.cfg.MaxEntriesPerUser {
			return results.FailureResult[EnterRoundData](Failure{
				Code:    FailureEntryLimit,
				Reason:  fmt.Sprintf("entry limit of %d reached for this round", s.cfg.MaxEntriesPerUser),
				RoundID: roundID,
			}), nil
		}
	}

	balance, err := s.wallet.Debit(ctx, db, userID, round.EntryCost, "draw entry", entryDebitKey(entryID))
	if err != nil {
		if errors.Is(err, walletdb.ErrInsufficientFunds) || errors.Is(err, walletdb.ErrNotFound) {
			return results.FailureResult[EnterRoundData](Failure{
				Code:    FailureInsufficientFunds,
				Reason:  "wallet balance does not cover the entry cost",
				RoundID: roundID,
			}), nil
		}
		return results.OperationResult[EnterRoundData, Failure]{}, fmt.Errorf("failed to debit entry cost: %w", err)
	}

	entry := &drawdb.Entry{
		ID:       entryID,
		RoundID:  roundID,
		UserID:   userID,
		CostPaid: round.EntryCost,
	}
	if err := s.repo.InsertEntry(ctx, db, entry); err != nil {
		return results.OperationResult[EnterRoundData, Failure]{}, fmt.Errorf("failed to insert entry: %w", err)
	}

	pool, err := s.repo.IncrementPool(ctx, db, roundID, round.EntryCost)
	if err != nil {
		return results.OperationResult[EnterRoundData, Failure]{}, fmt.Errorf("failed to grow pool: %w", err)
	}

	return results.SuccessResult[EnterRoundData, Failure](EnterRoundData{
		RoundID:    roundID,
		EntryID:    entryID,
		UserID:     userID,
		CostPaid:   round.EntryCost,
		NewBalance: balance,
		PoolAmount: pool,
	}), nil
}

func entryDebitKey(entryID types.EntryID) string {
	return "entry:" + entryID.String()
}
