package drawservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	drawdomain "github.com/civic-spark/rewards-backend/app/modules/draw/domain"
	drawevents "github.com/civic-spark/rewards-backend/app/modules/draw/events"
	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/observability/attr"
	"github.com/civic-spark/rewards-backend/internal/results"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// PayoutRound distributes a drawn round's pool: winner credits, the
// community share, and the platform remainder. It runs outside a
// single transaction because each credit retries independently; the
// journal idempotency keys make every credit safe to replay. A round
// with no winners keeps its whole pool as rollover for the next one.
func (s *DrawService) PayoutRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[PayoutRoundData, Failure], error) {
	result, err := withTelemetry(s, ctx, "PayoutRound", roundID.String(), func(ctx context.Context) (results.OperationResult[PayoutRoundData, Failure], error) {
		return s.payoutRoundLogic(ctx, roundID)
	})
	if err != nil || !result.IsSuccess() {
		return result, err
	}

	data := *result.Success
	if !data.Replayed {
		s.publishEvent(ctx, drawevents.RoundPaidV1, drawevents.RoundPaidPayload{
			RoundID:         data.RoundID,
			Winners:         data.Winners,
			CommunityAmount: data.CommunityAmount,
			PlatformAmount:  data.PlatformAmount,
			RolloverAmount:  data.RolloverAmount,
		})
		if s.scheduler != nil {
			if err := s.scheduler.ScheduleArchive(ctx, roundID, s.now().UTC().Add(s.cfg.ArchiveDelay)); err != nil {
				return result, fmt.Errorf("failed to schedule archive: %w", err)
			}
		}
	}

	return result, nil
}

func (s *DrawService) payoutRoundLogic(ctx context.Context, roundID types.RoundID) (results.OperationResult[PayoutRoundData, Failure], error) {
	round, err := s.repo.GetRound(ctx, s.db, roundID)
	if err != nil {
		if errors.Is(err, drawdb.ErrNotFound) {
			return results.FailureResult[PayoutRoundData](roundNotFound(roundID)), nil
		}
		return results.OperationResult[PayoutRoundData, Failure]{}, fmt.Errorf("failed to load round: %w", err)
	}

	if round.State == drawdomain.RoundStatePaid || round.State == drawdomain.RoundStateArchived {
		return results.SuccessResult[PayoutRoundData, Failure](PayoutRoundData{
			RoundID:  roundID,
			Replayed: true,
		}), nil
	}
	if round.State != drawdomain.RoundStateDrawn {
		return results.FailureResult[PayoutRoundData](invalidTransition(roundID, round.State, "pay out")), nil
	}

	winners, err := s.repo.ListWinners(ctx, s.db, roundID)
	if err != nil {
		return results.OperationResult[PayoutRoundData, Failure]{}, fmt.Errorf("failed to list winners: %w", err)
	}

	data := PayoutRoundData{RoundID: roundID}

	for i := range winners {
		w := &winners[i]
		data.Winners = append(data.Winners, drawevents.WinnerSummary{
			Tier:    w.Tier,
			UserID:  w.UserID,
			EntryID: w.EntryID,
			Amount:  w.Amount,
		})
		if w.PaidAt != nil {
			continue
		}

		key := payoutKey(roundID, w.Tier)
		attempts, err := s.creditWithRetry(ctx, w.UserID, w.Amount, "draw prize", key)
		if err != nil {
			esc := PayoutEscalation{
				Tier:     w.Tier,
				UserID:   w.UserID,
				Amount:   w.Amount,
				Attempts: attempts,
				Reason:   err.Error(),
			}
			data.Escalations = append(data.Escalations, esc)
			s.escalatePayout(ctx, roundID, esc)
			continue
		}
		if err := s.repo.MarkWinnerPaid(ctx, s.db, w.ID, s.now().UTC()); err != nil {
			return results.OperationResult[PayoutRoundData, Failure]{}, fmt.Errorf("failed to mark winner paid: %w", err)
		}
	}

	if len(winners) > 0 {
		data.CommunityAmount = s.split.CommunityAmount(round.PoolAmount)
		data.PlatformAmount = s.split.PlatformAmount(round.PoolAmount, len(winners))

		if data.CommunityAmount > 0 {
			if attempts, err := s.creditWithRetry(ctx, communityAccountID, data.CommunityAmount, "community share", shareKey(roundID, "community")); err != nil {
				esc := PayoutEscalation{
					UserID:   communityAccountID,
					Amount:   data.CommunityAmount,
					Attempts: attempts,
					Reason:   err.Error(),
				}
				data.Escalations = append(data.Escalations, esc)
				s.escalatePayout(ctx, roundID, esc)
			}
		}
		if data.PlatformAmount > 0 {
			if attempts, err := s.creditWithRetry(ctx, platformAccountID, data.PlatformAmount, "platform share", shareKey(roundID, "platform")); err != nil {
				esc := PayoutEscalation{
					UserID:   platformAccountID,
					Amount:   data.PlatformAmount,
					Attempts: attempts,
					Reason:   err.Error(),
				}
				data.Escalations = append(data.Escalations, esc)
				s.escalatePayout(ctx, roundID, esc)
			}
		}
	} else {
		data.RolloverAmount = round.PoolAmount
	}

	rollover := len(winners) == 0 && round.PoolAmount > 0
	if err := s.repo.MarkPaid(ctx, s.db, roundID, s.now().UTC(), rollover); err != nil {
		if errors.Is(err, drawdb.ErrNoRowsAffected) {
			return results.SuccessResult[PayoutRoundData, Failure](PayoutRoundData{
				RoundID:  roundID,
				Replayed: true,
			}), nil
		}
		return results.OperationResult[PayoutRoundData, Failure]{}, fmt.Errorf("failed to mark round paid: %w", err)
	}

	return results.SuccessResult[PayoutRoundData, Failure](data), nil
}

// creditWithRetry applies one ledger credit with exponential backoff.
// Returns the attempt count alongside any exhaustion error.
func (s *DrawService) creditWithRetry(ctx context.Context, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (int, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.PayoutBackoffInitial

	maxRetries := uint64(0)
	if s.cfg.PayoutMaxAttempts > 0 {
		maxRetries = uint64(s.cfg.PayoutMaxAttempts - 1)
	}

	attempts := 0
	op := func() error {
		attempts++
		_, _, err := s.wallet.Credit(ctx, nil, userID, amount, reason, idempotencyKey)
		return err
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
	return attempts, err
}

// escalatePayout parks a failed credit on the manual reconciliation
// queue. Payout carries on: one stuck credit must not block the rest
// of the round.
func (s *DrawService) escalatePayout(ctx context.Context, roundID types.RoundID, esc PayoutEscalation) {
	s.logger.ErrorContext(ctx, "Payout credit escalated to reconciliation",
		attr.ExtractCorrelationID(ctx),
		attr.String("round_id", roundID.String()),
		attr.String("user_id", string(esc.UserID)),
		attr.Int64("amount", int64(esc.Amount)),
		attr.Int("attempts", esc.Attempts),
	)
	s.publishEvent(ctx, drawevents.PayoutReconciliationV1, drawevents.PayoutReconciliationPayload{
		RoundID:  roundID,
		Tier:     esc.Tier,
		UserID:   esc.UserID,
		Amount:   esc.Amount,
		Attempts: esc.Attempts,
		Reason:   esc.Reason,
	})
}

func payoutKey(roundID types.RoundID, tier types.Tier) string {
	return fmt.Sprintf("payout:%s:%d", roundID, tier)
}

func shareKey(roundID types.RoundID, share string) string {
	return fmt.Sprintf("payout:%s:%s", roundID, share)
}
