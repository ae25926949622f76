package walletdb

import (
	"context"
	"errors"

	"github.com/uptrace/bun"

	"github.com/civic-spark/rewards-backend/internal/types"
)

var (
	// ErrNotFound means the user has no wallet row.
	ErrNotFound = errors.New("wallet not found")
	// ErrInsufficientFunds means the balance guard rejected a debit.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrDuplicateTransaction means the idempotency key was already
	// journaled; the mutation did not run a second time.
	ErrDuplicateTransaction = errors.New("duplicate wallet transaction")
)

// Repository is the wallet persistence contract. Methods take a
// bun.IDB so callers can run them inside a wider transaction; pass the
// *bun.DB itself for a standalone operation.
type Repository interface {
	// GetWallet fetches a wallet; ErrNotFound when absent.
	GetWallet(ctx context.Context, db bun.IDB, userID types.UserID) (*Wallet, error)
	// Debit atomically decrements the balance and journals the
	// transaction. Fails with ErrInsufficientFunds when the balance is
	// short, ErrNotFound when no wallet exists, and
	// ErrDuplicateTransaction when the idempotency key was seen
	// before. Returns the new balance.
	Debit(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (types.TokenAmount, error)
	// Credit atomically increments the balance (creating the wallet if
	// needed) and journals the transaction. A replayed idempotency key
	// leaves the balance untouched and reports applied=false.
	Credit(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (balance types.TokenAmount, applied bool, err error)
}
