package drawdb

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/civic-spark/rewards-backend/internal/types"
)

var (
	// ErrNotFound means no round with that ID exists.
	ErrNotFound = errors.New("round not found")
	// ErrNoRowsAffected means a guarded update matched nothing.
	ErrNoRowsAffected = errors.New("no rows affected")
)

// Repository is the draw persistence contract. Methods take a bun.IDB
// so the service can compose them inside one transaction.
type Repository interface {
	// CreateRound inserts the round and its secret seed together.
	CreateRound(ctx context.Context, db bun.IDB, round *Round, seed string) error
	// GetRound fetches a round; ErrNotFound when absent.
	GetRound(ctx context.Context, db bun.IDB, roundID types.RoundID) (*Round, error)
	// GetRoundForUpdate fetches a round with a row lock, serializing
	// concurrent entries and transitions per round.
	GetRoundForUpdate(ctx context.Context, db bun.IDB, roundID types.RoundID) (*Round, error)
	// GetSeed returns the unrevealed seed for a round.
	GetSeed(ctx context.Context, db bun.IDB, roundID types.RoundID) (string, error)

	// MarkLocked freezes the entry set: state, digest, locked_at.
	MarkLocked(ctx context.Context, db bun.IDB, roundID types.RoundID, entriesDigest string, lockedAt time.Time) error
	// MarkDrawn records the reveal: state, revealed seed, drawn_at.
	MarkDrawn(ctx context.Context, db bun.IDB, roundID types.RoundID, revealedSeed string, drawnAt time.Time) error
	// MarkPaid completes payout; rolloverAvailable flags a winnerless
	// pool for the next opening round.
	MarkPaid(ctx context.Context, db bun.IDB, roundID types.RoundID, paidAt time.Time, rolloverAvailable bool) error
	// MarkArchived closes the round for good.
	MarkArchived(ctx context.Context, db bun.IDB, roundID types.RoundID, archivedAt time.Time) error
	// MarkCancelled archives an OPEN round after refunds.
	MarkCancelled(ctx context.Context, db bun.IDB, roundID types.RoundID, cancelledAt time.Time) error

	// InsertEntry appends an entry to a round.
	InsertEntry(ctx context.Context, db bun.IDB, entry *Entry) error
	// ListEntries returns a round's entries in insertion order.
	ListEntries(ctx context.Context, db bun.IDB, roundID types.RoundID) ([]Entry, error)
	// CountEntriesForUser counts a user's entries in a round.
	CountEntriesForUser(ctx context.Context, db bun.IDB, roundID types.RoundID, userID types.UserID) (int, error)
	// IncrementPool grows the pool and returns the new amount.
	IncrementPool(ctx context.Context, db bun.IDB, roundID types.RoundID, amount types.TokenAmount) (types.TokenAmount, error)

	// InsertWinners persists the draw outcome.
	InsertWinners(ctx context.Context, db bun.IDB, winners []Winner) error
	// ListWinners returns a round's winners ordered by tier.
	ListWinners(ctx context.Context, db bun.IDB, roundID types.RoundID) ([]Winner, error)
	// MarkWinnerPaid stamps one winner's credit.
	MarkWinnerPaid(ctx context.Context, db bun.IDB, winnerID types.EntryID, paidAt time.Time) error

	// ClaimRollover collects every unclaimed winnerless pool and
	// returns the total, zero when none are waiting.
	ClaimRollover(ctx context.Context, db bun.IDB) (types.TokenAmount, error)
}
