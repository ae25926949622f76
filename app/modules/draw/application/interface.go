package drawservice

import (
	"context"
	"time"

	drawevents "github.com/civic-spark/rewards-backend/app/modules/draw/events"
	drawdb "github.com/civic-spark/rewards-backend/app/modules/draw/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/results"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// Scheduler books the deferred lifecycle steps for a round. The queue
// service implements it over River; tests swap in a fake.
type Scheduler interface {
	ScheduleLock(ctx context.Context, roundID types.RoundID, at time.Time) error
	ScheduleDraw(ctx context.Context, roundID types.RoundID, at time.Time) error
	SchedulePayout(ctx context.Context, roundID types.RoundID, at time.Time) error
	ScheduleArchive(ctx context.Context, roundID types.RoundID, at time.Time) error
}

// OpenRoundData reports a freshly opened round.
type OpenRoundData struct {
	Round *drawdb.Round
	// RolloverClaimed is the winnerless-pool carryover folded into the
	// opening pool, zero when nothing was waiting.
	RolloverClaimed types.TokenAmount
}

// EnterRoundData reports an accepted entry.
type EnterRoundData struct {
	RoundID    types.RoundID
	EntryID    types.EntryID
	UserID     types.UserID
	CostPaid   types.TokenAmount
	NewBalance types.TokenAmount
	PoolAmount types.TokenAmount
}

// LockRoundData reports a frozen entry set. Replayed means the round
// had already moved past OPEN and nothing changed.
type LockRoundData struct {
	RoundID       types.RoundID
	EntriesDigest string
	PoolAmount    types.TokenAmount
	EntryCount    int
	Replayed      bool
}

// DrawRoundData reports a completed draw with everything an observer
// needs to replay it.
type DrawRoundData struct {
	RoundID        types.RoundID
	CommitmentHash string
	RevealedSeed   string
	EntriesDigest  string
	Winners        []drawevents.WinnerSummary
	Replayed       bool
}

// PayoutEscalation is one winner credit that exhausted its retries and
// moved to the manual reconciliation queue.
type PayoutEscalation struct {
	Tier     types.Tier
	UserID   types.UserID
	Amount   types.TokenAmount
	Attempts int
	Reason   string
}

// PayoutRoundData reports a completed distribution.
type PayoutRoundData struct {
	RoundID         types.RoundID
	Winners         []drawevents.WinnerSummary
	CommunityAmount types.TokenAmount
	PlatformAmount  types.TokenAmount
	RolloverAmount  types.TokenAmount
	Escalations     []PayoutEscalation
	Replayed        bool
}

// ArchiveRoundData reports a closed-out round.
type ArchiveRoundData struct {
	RoundID  types.RoundID
	Replayed bool
}

// CancelRoundData reports a cancelled round with its refund totals.
type CancelRoundData struct {
	RoundID        types.RoundID
	RefundedCount  int
	RefundedAmount types.TokenAmount
}

// Service drives the prize-draw lifecycle. Lifecycle operations return
// domain failures inside the result; the error return is reserved for
// infrastructure problems worth retrying.
type Service interface {
	// OpenRound creates a new OPEN round, publishes its commitment, and
	// books the lock and draw steps. Any waiting winnerless pools fold
	// into the opening pool.
	OpenRound(ctx context.Context) (results.OperationResult[OpenRoundData, Failure], error)
	// EnterRound debits the entry cost, records the entry, and grows
	// the pool, all atomically.
	EnterRound(ctx context.Context, roundID types.RoundID, userID types.UserID) (results.OperationResult[EnterRoundData, Failure], error)
	// LockRound freezes the entry set and fixes the entries digest.
	// Idempotent: locking a round already past OPEN replays as success.
	LockRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[LockRoundData, Failure], error)
	// DrawRound reveals the seed, verifies it against the commitment,
	// and selects winners deterministically. A commitment mismatch is
	// an integrity fault: the round stays LOCKED for manual review.
	DrawRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[DrawRoundData, Failure], error)
	// PayoutRound credits winners, the community pot, and the platform
	// account. Each credit is idempotent; credits that exhaust their
	// retries escalate to reconciliation without blocking the rest.
	PayoutRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[PayoutRoundData, Failure], error)
	// ArchiveRound closes a PAID round for good.
	ArchiveRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[ArchiveRoundData, Failure], error)
	// CancelRound refunds every entry of an OPEN round and archives it.
	CancelRound(ctx context.Context, roundID types.RoundID) (results.OperationResult[CancelRoundData, Failure], error)

	// GetRound returns round state for the read API. The seed never
	// appears here before the draw.
	GetRound(ctx context.Context, roundID types.RoundID) (*drawdb.Round, error)
	// GetRoundWinners returns a round's winners ordered by tier.
	GetRoundWinners(ctx context.Context, roundID types.RoundID) ([]drawdb.Winner, error)
}
