package drawservice

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	drawdomain "github.com/civic-spark/rewards-backend/app/modules/draw/domain"
	drawevents "github.com/civic-spark/rewards-backend/app/modules/draw/events"
	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/types"
)

func drawnRoundFixture(env *testEnv, pool types.TokenAmount, winners []drawdb.Winner) {
	env.repo.GetRoundFunc = func(ctx context.Context, db bun.IDB, id types.RoundID) (*drawdb.Round, error) {
		return &drawdb.Round{ID: id, State: drawdomain.RoundStateDrawn, PoolAmount: pool}, nil
	}
	env.repo.ListWinnersFunc = func(ctx context.Context, db bun.IDB, id types.RoundID) ([]drawdb.Winner, error) {
		return winners, nil
	}
}

func TestDrawService_PayoutRound(t *testing.T) {
	ctx := context.Background()
	roundID := uuid.New()

	winners := []drawdb.Winner{
		{ID: uuid.New(), RoundID: roundID, Tier: 1, UserID: "citizen-1", EntryID: uuid.New(), Amount: 400},
		{ID: uuid.New(), RoundID: roundID, Tier: 2, UserID: "citizen-2", EntryID: uuid.New(), Amount: 200},
		{ID: uuid.New(), RoundID: roundID, Tier: 3, UserID: "citizen-3", EntryID: uuid.New(), Amount: 100},
	}

	t.Run("credits every winner and the community and platform shares", func(t *testing.T) {
		env := newTestEnv(t)
		drawnRoundFixture(env, 1000, winners)

		credits := map[string]types.TokenAmount{}
		env.wallet.CreditFunc = func(ctx context.Context, db bun.IDB, uid types.UserID, amount types.TokenAmount, reason, key string) (types.TokenAmount, bool, error) {
			credits[key] = amount
			return amount, true, nil
		}
		paid := 0
		env.repo.MarkWinnerPaidFunc = func(ctx context.Context, db bun.IDB, winnerID types.EntryID, paidAt time.Time) error {
			paid++
			return nil
		}
		var rolloverFlag bool
		env.repo.MarkPaidFunc = func(ctx context.Context, db bun.IDB, id types.RoundID, paidAt time.Time, rollover bool) error {
			rolloverFlag = rollover
			return nil
		}

		result, err := env.service.PayoutRound(ctx, roundID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsSuccess() || result.Success.Replayed {
			t.Fatalf("expected fresh success, got %+v", result)
		}

		wantCredits := map[string]types.TokenAmount{
			fmt.Sprintf("payout:%s:1", roundID):         400,
			fmt.Sprintf("payout:%s:2", roundID):         200,
			fmt.Sprintf("payout:%s:3", roundID):         100,
			fmt.Sprintf("payout:%s:community", roundID): 200,
			fmt.Sprintf("payout:%s:platform", roundID):  100,
		}
		if !reflect.DeepEqual(credits, wantCredits) {
			t.Errorf("credits = %v, want %v", credits, wantCredits)
		}
		if paid != 3 {
			t.Errorf("winners marked paid = %d, want 3", paid)
		}
		if rolloverFlag {
			t.Error("rollover flagged on a round with winners")
		}

		data := *result.Success
		if data.CommunityAmount != 200 || data.PlatformAmount != 100 || data.RolloverAmount != 0 {
			t.Errorf("unexpected shares: %+v", data)
		}
		if len(data.Escalations) != 0 {
			t.Errorf("unexpected escalations: %+v", data.Escalations)
		}

		if topics := env.bus.Topics(); !reflect.DeepEqual(topics, []string{drawevents.RoundPaidV1}) {
			t.Errorf("published topics = %v", topics)
		}
		wantJobs := []scheduledJob{{Kind: "archive", RoundID: roundID, At: testNow.Add(24 * time.Hour)}}
		if !reflect.DeepEqual(env.scheduler.Jobs, wantJobs) {
			t.Errorf("scheduled jobs = %+v, want %+v", env.scheduler.Jobs, wantJobs)
		}
	})

	t.Run("already paid winners are not credited again", func(t *testing.T) {
		env := newTestEnv(t)
		paidAt := testNow.Add(-time.Minute)
		partlyPaid := make([]drawdb.Winner, len(winners))
		copy(partlyPaid, winners)
		partlyPaid[0].PaidAt = &paidAt
		drawnRoundFixture(env, 1000, partlyPaid)

		var keys []string
		env.wallet.CreditFunc = func(ctx context.Context, db bun.IDB, uid types.UserID, amount types.TokenAmount, reason, key string) (types.TokenAmount, bool, error) {
			keys = append(keys, key)
			return amount, true, nil
		}

		result, err := env.service.PayoutRound(ctx, roundID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsSuccess() {
			t.Fatalf("expected success, got %+v", result)
		}

		sort.Strings(keys)
		want := []string{
			fmt.Sprintf("payout:%s:2", roundID),
			fmt.Sprintf("payout:%s:3", roundID),
			fmt.Sprintf("payout:%s:community", roundID),
			fmt.Sprintf("payout:%s:platform", roundID),
		}
		sort.Strings(want)
		if !reflect.DeepEqual(keys, want) {
			t.Errorf("credit keys = %v, want %v", keys, want)
		}
		// The summary still lists all three winners.
		if len(result.Success.Winners) != 3 {
			t.Errorf("summary winners = %d, want 3", len(result.Success.Winners))
		}
	})

	t.Run("a stuck credit escalates without blocking the round", func(t *testing.T) {
		env := newTestEnv(t)
		drawnRoundFixture(env, 1000, winners)

		tier2Key := fmt.Sprintf("payout:%s:2", roundID)
		env.wallet.CreditFunc = func(ctx context.Context, db bun.IDB, uid types.UserID, amount types.TokenAmount, reason, key string) (types.TokenAmount, bool, error) {
			if key == tier2Key {
				return 0, false, errors.New("ledger unavailable")
			}
			return amount, true, nil
		}
		marked := map[types.EntryID]bool{}
		env.repo.MarkWinnerPaidFunc = func(ctx context.Context, db bun.IDB, winnerID types.EntryID, paidAt time.Time) error {
			marked[winnerID] = true
			return nil
		}

		result, err := env.service.PayoutRound(ctx, roundID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsSuccess() {
			t.Fatalf("expected success, got %+v", result)
		}

		data := *result.Success
		if len(data.Escalations) != 1 {
			t.Fatalf("escalations = %d, want 1", len(data.Escalations))
		}
		esc := data.Escalations[0]
		if esc.Tier != 2 || esc.UserID != "citizen-2" || esc.Amount != 200 {
			t.Errorf("unexpected escalation: %+v", esc)
		}
		if esc.Attempts != 2 {
			t.Errorf("attempts = %d, want the configured maximum of 2", esc.Attempts)
		}
		if marked[winners[1].ID] {
			t.Error("escalated winner must stay unpaid")
		}
		if !marked[winners[0].ID] || !marked[winners[2].ID] {
			t.Error("other winners must still be paid")
		}

		topics := env.bus.Topics()
		wantTopics := []string{drawevents.PayoutReconciliationV1, drawevents.RoundPaidV1}
		if !reflect.DeepEqual(topics, wantTopics) {
			t.Errorf("published topics = %v, want %v", topics, wantTopics)
		}
	})

	t.Run("winnerless pool rolls over to the next round", func(t *testing.T) {
		env := newTestEnv(t)
		drawnRoundFixture(env, 850, nil)
		var rolloverFlag bool
		env.repo.MarkPaidFunc = func(ctx context.Context, db bun.IDB, id types.RoundID, paidAt time.Time, rollover bool) error {
			rolloverFlag = rollover
			return nil
		}

		result, err := env.service.PayoutRound(ctx, roundID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsSuccess() {
			t.Fatalf("expected success, got %+v", result)
		}
		if result.Success.RolloverAmount != 850 {
			t.Errorf("rollover amount = %d, want 850", result.Success.RolloverAmount)
		}
		if !rolloverFlag {
			t.Error("rollover flag not set on a winnerless round")
		}
		if len(env.wallet.Trace()) != 0 {
			t.Errorf("no credits expected: %v", env.wallet.Trace())
		}
	})

	t.Run("redelivered payout on a paid round is a replay", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.GetRoundFunc = func(ctx context.Context, db bun.IDB, id types.RoundID) (*drawdb.Round, error) {
			return &drawdb.Round{ID: id, State: drawdomain.RoundStatePaid}, nil
		}

		result, err := env.service.PayoutRound(ctx, roundID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsSuccess() || !result.Success.Replayed {
			t.Fatalf("expected replay, got %+v", result)
		}
		if len(env.bus.Published) != 0 || len(env.scheduler.Jobs) != 0 {
			t.Error("replay must have no side effects")
		}
	})

	t.Run("paying out a locked round is an invalid transition", func(t *testing.T) {
		env := newTestEnv(t)
		env.repo.GetRoundFunc = func(ctx context.Context, db bun.IDB, id types.RoundID) (*drawdb.Round, error) {
			return &drawdb.Round{ID: id, State: drawdomain.RoundStateLocked}, nil
		}

		result, err := env.service.PayoutRound(ctx, roundID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsFailure() || result.Failure.Code != FailureInvalidTransition {
			t.Fatalf("expected INVALID_TRANSITION, got %+v", result)
		}
	})
}
