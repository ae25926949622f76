// Package types holds the scalar identifier and amount types shared
// across modules.
package types

import "github.com/google/uuid"

// UserID identifies a registered citizen. It is opaque to the draw
// core; the registration layer owns its format.
type UserID string

// RoundID identifies one prize-draw round.
type RoundID = uuid.UUID

// EntryID identifies one weighted ticket within a round.
type EntryID = uuid.UUID

// TokenAmount is a whole number of civic tokens. Tokens are integral;
// there are no fractional token operations anywhere in the ledger.
type TokenAmount int64

// Tier is a ranked prize level within a round, 1 being the top prize.
type Tier int
