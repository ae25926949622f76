package walletdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/civic-spark/rewards-backend/internal/types"
)

// WalletDBImpl is the bun-backed Repository implementation.
type WalletDBImpl struct{}

var _ Repository = (*WalletDBImpl)(nil)

// NewRepository returns the bun-backed wallet repository.
func NewRepository() *WalletDBImpl {
	return &WalletDBImpl{}
}

// GetWallet fetches a wallet row.
func (r *WalletDBImpl) GetWallet(ctx context.Context, db bun.IDB, userID types.UserID) (*Wallet, error) {
	wallet := new(Wallet)
	err := db.NewSelect().
		Model(wallet).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch wallet: %w", err)
	}
	return wallet, nil
}

// Debit decrements the balance with the non-negative guard in the
// WHERE clause, then journals the transaction. The order matters: an
// insufficient-funds rejection is a domain answer, not an error, so
// the caller commits its transaction — nothing may be written before
// the guard passes. The conditional update serializes concurrent
// debits for one user at the database: a second request reading a
// stale balance loses the row lock race and fails the guard.
func (r *WalletDBImpl) Debit(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (types.TokenAmount, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	var balance types.TokenAmount
	err := db.NewUpdate().
		Model((*Wallet)(nil)).
		Set("balance = balance - ?", amount).
		Set("total_spent = total_spent + ?", amount).
		Set("updated_at = current_timestamp").
		Where("user_id = ?", userID).
		Where("balance >= ?", amount).
		Returning("balance").
		Scan(ctx, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		// Guard failed: distinguish a missing wallet from a short one.
		if _, getErr := r.GetWallet(ctx, db, userID); getErr != nil {
			return 0, getErr
		}
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("failed to debit wallet: %w", err)
	}

	if err := r.journal(ctx, db, userID, -amount, reason, idempotencyKey); err != nil {
		return 0, err
	}
	return balance, nil
}

// Credit journals the transaction and upserts the wallet. A duplicate
// idempotency key means the credit already landed; the current balance
// is returned with applied=false.
func (r *WalletDBImpl) Credit(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) (types.TokenAmount, bool, error) {
	if amount <= 0 {
		return 0, false, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	if err := r.journal(ctx, db, userID, amount, reason, idempotencyKey); err != nil {
		if errors.Is(err, ErrDuplicateTransaction) {
			wallet, getErr := r.GetWallet(ctx, db, userID)
			if getErr != nil {
				return 0, false, getErr
			}
			return wallet.Balance, false, nil
		}
		return 0, false, err
	}

	wallet := &Wallet{
		UserID:      userID,
		Balance:     amount,
		TotalEarned: amount,
	}
	var balance types.TokenAmount
	err := db.NewInsert().
		Model(wallet).
		On("CONFLICT (user_id) DO UPDATE").
		Set("balance = w.balance + EXCLUDED.balance").
		Set("total_earned = w.total_earned + EXCLUDED.total_earned").
		Set("updated_at = current_timestamp").
		Returning("balance").
		Scan(ctx, &balance)
	if err != nil {
		return 0, false, fmt.Errorf("failed to credit wallet: %w", err)
	}
	return balance, true, nil
}

// journal inserts the transaction row; ErrDuplicateTransaction when
// the idempotency key already exists.
func (r *WalletDBImpl) journal(ctx context.Context, db bun.IDB, userID types.UserID, amount types.TokenAmount, reason, idempotencyKey string) error {
	txn := &WalletTransaction{
		ID:             uuid.New(),
		UserID:         userID,
		Amount:         amount,
		Reason:         reason,
		IdempotencyKey: idempotencyKey,
	}
	res, err := db.NewInsert().
		Model(txn).
		On("CONFLICT (idempotency_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to journal wallet transaction: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read journal result: %w", err)
	}
	if rows == 0 {
		return ErrDuplicateTransaction
	}
	return nil
}
