package drawdb

import (
	"time"

	"github.com/uptrace/bun"

	drawdomain "github.com/civic-spark/rewards-backend/app/modules/draw/domain"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// Round is one prize-draw lifecycle instance. The commitment hash is
// set at creation, the entries digest at lock, the revealed seed at
// draw; each lifecycle timestamp is set exactly once.
type Round struct {
	bun.BaseModel `bun:"table:rounds,alias:r"`

	ID             types.RoundID         `bun:"id,pk,type:uuid"`
	State          drawdomain.RoundState `bun:"state,notnull"`
	EntryCost      types.TokenAmount     `bun:"entry_cost,notnull"`
	PoolAmount     types.TokenAmount     `bun:"pool_amount,notnull,default:0"`
	CommitmentHash string                `bun:"commitment_hash,notnull"`
	EntriesDigest  string                `bun:"entries_digest,nullzero"`
	RevealedSeed   string                `bun:"revealed_seed,nullzero"`
	// RolloverAvailable marks a paid round whose pool found no winner
	// and is waiting to be claimed by the next opening round.
	RolloverAvailable bool `bun:"rollover_available,notnull,default:false"`

	OpenedAt    time.Time  `bun:"opened_at,notnull"`
	LocksAt     time.Time  `bun:"locks_at,notnull"`
	DrawsAt     time.Time  `bun:"draws_at,notnull"`
	LockedAt    *time.Time `bun:"locked_at"`
	DrawnAt     *time.Time `bun:"drawn_at"`
	PaidAt      *time.Time `bun:"paid_at"`
	ArchivedAt  *time.Time `bun:"archived_at"`
	CancelledAt *time.Time `bun:"cancelled_at"`

	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// RoundSecret holds the unrevealed seed. It lives apart from rounds so
// read paths over rounds can never leak it before the draw.
type RoundSecret struct {
	bun.BaseModel `bun:"table:round_secrets,alias:rs"`

	RoundID   types.RoundID `bun:"round_id,pk,type:uuid"`
	Seed      string        `bun:"seed,notnull"`
	CreatedAt time.Time     `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Entry is one weighted ticket. Immutable after creation; the
// (created_at, id) order over a round's entries is the deterministic
// draw input.
type Entry struct {
	bun.BaseModel `bun:"table:entries,alias:e"`

	ID        types.EntryID     `bun:"id,pk,type:uuid"`
	RoundID   types.RoundID     `bun:"round_id,notnull,type:uuid"`
	UserID    types.UserID      `bun:"user_id,notnull"`
	CostPaid  types.TokenAmount `bun:"cost_paid,notnull"`
	CreatedAt time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// Winner is one tier's immutable outcome. The (round_id, tier) unique
// constraint makes winner creation idempotent per tier.
type Winner struct {
	bun.BaseModel `bun:"table:winners,alias:wn"`

	ID        types.EntryID     `bun:"id,pk,type:uuid"`
	RoundID   types.RoundID     `bun:"round_id,notnull,type:uuid"`
	Tier      types.Tier        `bun:"tier,notnull"`
	UserID    types.UserID      `bun:"user_id,notnull"`
	EntryID   types.EntryID     `bun:"entry_id,notnull,type:uuid"`
	Amount    types.TokenAmount `bun:"amount,notnull"`
	PaidAt    *time.Time        `bun:"paid_at"`
	CreatedAt time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
