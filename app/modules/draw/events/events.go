// Package drawevents defines the draw module's event topics and
// payloads. Transition events are the notification surface for
// external observers (push/SMS layers subscribe to them); the core
// never calls those layers directly.
package drawevents

import (
	"time"

	drawdomain "github.com/civic-spark/rewards-backend/app/modules/draw/domain"
	"github.com/civic-spark/rewards-backend/internal/types"
)

const (
	RoundOpenedV1           = "draw.round.opened.v1"
	EntryAcceptedV1         = "draw.entry.accepted.v1"
	RoundLockRequestedV1    = "draw.round.lock.requested.v1"
	RoundLockedV1           = "draw.round.locked.v1"
	RoundDrawRequestedV1    = "draw.round.draw.requested.v1"
	RoundDrawnV1            = "draw.round.drawn.v1"
	RoundPayoutRequestedV1  = "draw.round.payout.requested.v1"
	RoundPaidV1             = "draw.round.paid.v1"
	RoundArchiveRequestedV1 = "draw.round.archive.requested.v1"
	RoundArchivedV1         = "draw.round.archived.v1"
	RoundCancelledV1        = "draw.round.cancelled.v1"
	RoundTransitionFailedV1 = "draw.round.transition.failed.v1"
	IntegrityFaultV1        = "draw.integrity.fault.v1"
	PayoutReconciliationV1  = "draw.payout.reconciliation.v1"
)

type RoundOpenedPayload struct {
	RoundID        types.RoundID     `json:"round_id"`
	CommitmentHash string            `json:"commitment_hash"`
	EntryCost      types.TokenAmount `json:"entry_cost"`
	PoolAmount     types.TokenAmount `json:"pool_amount"`
	LocksAt        time.Time         `json:"locks_at"`
	DrawsAt        time.Time         `json:"draws_at"`
}

type EntryAcceptedPayload struct {
	RoundID    types.RoundID     `json:"round_id"`
	EntryID    types.EntryID     `json:"entry_id"`
	UserID     types.UserID      `json:"user_id"`
	CostPaid   types.TokenAmount `json:"cost_paid"`
	PoolAmount types.TokenAmount `json:"pool_amount"`
}

type RoundLockRequestedPayload struct {
	RoundID types.RoundID `json:"round_id"`
}

type RoundLockedPayload struct {
	RoundID       types.RoundID     `json:"round_id"`
	EntriesDigest string            `json:"entries_digest"`
	PoolAmount    types.TokenAmount `json:"pool_amount"`
	EntryCount    int               `json:"entry_count"`
}

type RoundDrawRequestedPayload struct {
	RoundID types.RoundID `json:"round_id"`
}

// WinnerSummary is the per-tier outcome embedded in drawn/paid events.
type WinnerSummary struct {
	Tier    types.Tier        `json:"tier"`
	UserID  types.UserID      `json:"user_id"`
	EntryID types.EntryID     `json:"entry_id"`
	Amount  types.TokenAmount `json:"amount"`
}

// RoundDrawnPayload carries everything an observer needs to verify the
// draw independently: the revealed seed, the entries digest, and the
// winner set.
type RoundDrawnPayload struct {
	RoundID        types.RoundID   `json:"round_id"`
	CommitmentHash string          `json:"commitment_hash"`
	RevealedSeed   string          `json:"revealed_seed"`
	EntriesDigest  string          `json:"entries_digest"`
	Winners        []WinnerSummary `json:"winners"`
}

type RoundPayoutRequestedPayload struct {
	RoundID types.RoundID `json:"round_id"`
}

type RoundPaidPayload struct {
	RoundID         types.RoundID     `json:"round_id"`
	Winners         []WinnerSummary   `json:"winners"`
	CommunityAmount types.TokenAmount `json:"community_amount"`
	PlatformAmount  types.TokenAmount `json:"platform_amount"`
	RolloverAmount  types.TokenAmount `json:"rollover_amount"`
}

type RoundArchiveRequestedPayload struct {
	RoundID types.RoundID `json:"round_id"`
}

type RoundArchivedPayload struct {
	RoundID types.RoundID `json:"round_id"`
}

type RoundCancelledPayload struct {
	RoundID        types.RoundID     `json:"round_id"`
	RefundedCount  int               `json:"refunded_count"`
	RefundedAmount types.TokenAmount `json:"refunded_amount"`
}

// RoundTransitionFailedPayload reports a rejected lifecycle step.
type RoundTransitionFailedPayload struct {
	RoundID   types.RoundID         `json:"round_id"`
	FromState drawdomain.RoundState `json:"from_state"`
	Attempted string                `json:"attempted"`
	Reason    string                `json:"reason"`
}

// IntegrityFaultPayload signals a commitment/reveal mismatch. This is
// fatal for the round: it means operator key compromise or a bug, and
// requires manual intervention.
type IntegrityFaultPayload struct {
	RoundID        types.RoundID `json:"round_id"`
	CommitmentHash string        `json:"commitment_hash"`
	RevealedSeed   string        `json:"revealed_seed"`
	Reason         string        `json:"reason"`
}

// PayoutReconciliationPayload lands a winner credit on the manual
// reconciliation queue after retry exhaustion.
type PayoutReconciliationPayload struct {
	RoundID  types.RoundID     `json:"round_id"`
	Tier     types.Tier        `json:"tier"`
	UserID   types.UserID      `json:"user_id"`
	Amount   types.TokenAmount `json:"amount"`
	Attempts int               `json:"attempts"`
	Reason   string            `json:"reason"`
}
