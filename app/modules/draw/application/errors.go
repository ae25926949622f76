package drawservice

import (
	"fmt"

	drawdomain "github.com/civic-spark/rewards-backend/app/modules/draw/domain"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// FailureCode classifies a domain failure. Codes travel in failure
// events and HTTP error bodies, so they are stable strings.
type FailureCode string

const (
	FailureRoundNotFound     FailureCode = "ROUND_NOT_FOUND"
	FailureRoundClosed       FailureCode = "ROUND_CLOSED"
	FailureInsufficientFunds FailureCode = "INSUFFICIENT_FUNDS"
	FailureEntryLimit        FailureCode = "ENTRY_LIMIT_REACHED"
	FailureInvalidTransition FailureCode = "INVALID_TRANSITION"
	FailureIntegrityFault    FailureCode = "INTEGRITY_FAULT"
)

// Failure is a domain-level rejection. It is not an infrastructure
// error: the operation ran fine, the answer was no. Handlers publish it
// instead of retrying.
type Failure struct {
	Code      FailureCode           `json:"code"`
	Reason    string                `json:"reason"`
	RoundID   types.RoundID         `json:"round_id,omitempty"`
	FromState drawdomain.RoundState `json:"from_state,omitempty"`
}

func (f Failure) String() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Reason)
}

func roundNotFound(roundID types.RoundID) Failure {
	return Failure{
		Code:    FailureRoundNotFound,
		Reason:  "round does not exist",
		RoundID: roundID,
	}
}

func roundClosed(roundID types.RoundID, state drawdomain.RoundState) Failure {
	return Failure{
		Code:      FailureRoundClosed,
		Reason:    "round is not accepting entries",
		RoundID:   roundID,
		FromState: state,
	}
}

func invalidTransition(roundID types.RoundID, from drawdomain.RoundState, attempted string) Failure {
	return Failure{
		Code:      FailureInvalidTransition,
		Reason:    fmt.Sprintf("cannot %s a round in state %s", attempted, from),
		RoundID:   roundID,
		FromState: from,
	}
}

func integrityFault(roundID types.RoundID, reason string) Failure {
	return Failure{
		Code:    FailureIntegrityFault,
		Reason:  reason,
		RoundID: roundID,
	}
}
