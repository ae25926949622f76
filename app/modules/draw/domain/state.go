package drawdomain

// RoundState is the lifecycle state of a prize-draw round.
type RoundState string

const (
	RoundStateOpen     RoundState = "OPEN"
	RoundStateLocked   RoundState = "LOCKED"
	RoundStateDrawn    RoundState = "DRAWN"
	RoundStatePaid     RoundState = "PAID"
	RoundStateArchived RoundState = "ARCHIVED"
)

// next maps each state to its single forward successor. ARCHIVED is
// terminal.
var next = map[RoundState]RoundState{
	RoundStateOpen:   RoundStateLocked,
	RoundStateLocked: RoundStateDrawn,
	RoundStateDrawn:  RoundStatePaid,
	RoundStatePaid:   RoundStateArchived,
}

// CanTransition reports whether from -> to is a legal forward step.
// The lifecycle is strictly linear; the only exception is
// OPEN -> ARCHIVED, taken when an operator cancels a round before any
// draw happened.
func CanTransition(from, to RoundState) bool {
	if from == RoundStateOpen && to == RoundStateArchived {
		return true
	}
	return next[from] == to
}

// IsTerminal reports whether no further transitions are possible.
func (s RoundState) IsTerminal() bool {
	return s == RoundStateArchived
}
