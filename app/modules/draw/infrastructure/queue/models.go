package drawqueue

import (
	"github.com/civic-spark/rewards-backend/internal/types"
)

// RoundLockJob fires when a round's entry window closes.
type RoundLockJob struct {
	RoundID types.RoundID `json:"round_id"`
}

// Kind returns the job type identifier for River.
func (RoundLockJob) Kind() string { return "round_lock" }

// RoundDrawJob fires when a locked round is due for its draw.
type RoundDrawJob struct {
	RoundID types.RoundID `json:"round_id"`
}

// Kind returns the job type identifier for River.
func (RoundDrawJob) Kind() string { return "round_draw" }

// RoundPayoutJob fires when a drawn round is due for distribution.
type RoundPayoutJob struct {
	RoundID types.RoundID `json:"round_id"`
}

// Kind returns the job type identifier for River.
func (RoundPayoutJob) Kind() string { return "round_payout" }

// RoundArchiveJob fires when a paid round is due for close-out.
type RoundArchiveJob struct {
	RoundID types.RoundID `json:"round_id"`
}

// Kind returns the job type identifier for River.
func (RoundArchiveJob) Kind() string { return "round_archive" }
