// Package walletevents defines the wallet module's event topics and
// payloads.
package walletevents

import "github.com/civic-spark/rewards-backend/internal/types"

const (
	WalletDebitedV1  = "wallet.debited.v1"
	WalletCreditedV1 = "wallet.credited.v1"
)

type WalletDebitedPayload struct {
	UserID     types.UserID      `json:"user_id"`
	Amount     types.TokenAmount `json:"amount"`
	Reason     string            `json:"reason"`
	NewBalance types.TokenAmount `json:"new_balance"`
}

type WalletCreditedPayload struct {
	UserID     types.UserID      `json:"user_id"`
	Amount     types.TokenAmount `json:"amount"`
	Reason     string            `json:"reason"`
	NewBalance types.TokenAmount `json:"new_balance"`
}
