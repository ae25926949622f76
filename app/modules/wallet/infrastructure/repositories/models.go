package walletdb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/civic-spark/rewards-backend/internal/types"
)

// Wallet holds a user's token balance and lifetime totals. The balance
// is never overwritten directly; every mutation goes through Debit or
// Credit so the journal and the balance always agree.
type Wallet struct {
	bun.BaseModel `bun:"table:wallets,alias:w"`

	UserID      types.UserID      `bun:"user_id,pk"`
	Balance     types.TokenAmount `bun:"balance,notnull,default:0"`
	TotalEarned types.TokenAmount `bun:"total_earned,notnull,default:0"`
	TotalSpent  types.TokenAmount `bun:"total_spent,notnull,default:0"`
	CreatedAt   time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt   time.Time         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// WalletTransaction is one immutable journal row. Amount is signed:
// negative for debits, positive for credits. The idempotency key makes
// replayed credits (payout retries, refund retries) no-ops.
type WalletTransaction struct {
	bun.BaseModel `bun:"table:wallet_transactions,alias:wt"`

	ID             uuid.UUID         `bun:"id,pk,type:uuid"`
	UserID         types.UserID      `bun:"user_id,notnull"`
	Amount         types.TokenAmount `bun:"amount,notnull"`
	Reason         string            `bun:"reason,notnull"`
	IdempotencyKey string            `bun:"idempotency_key,notnull,unique"`
	CreatedAt      time.Time         `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
