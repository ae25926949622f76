package walletservice

import (
	"context"

	"github.com/uptrace/bun"

	walletdb "github.com/civic-spark/rewards-backend/app/modules/wallet/infrastructure/repositories"
	"github.com/civic-spark/rewards-backend/internal/types"
)

// Service is the wallet ledger contract. The draw module gets this
// injected so ledger mutations can join its transactions: pass the
// transaction handle as db, or nil to run standalone.
type Service interface {
	// Debit removes tokens; walletdb.ErrInsufficientFunds when the
	// balance is short. No partial debit exists.
	Debit(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (types.TokenAmount, error)
	// Credit adds tokens; issuance is authoritative so it only fails
	// on infrastructure errors. applied=false means the idempotency
	// key had already landed and nothing changed.
	Credit(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (balance types.TokenAmount, applied bool, err error)
	// GetWallet returns the wallet with lifetime totals.
	GetWallet(ctx context.Context, userID types.UserID) (*walletdb.Wallet, error)
}
