package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating wallet tables...")

			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				if _, err := tx.ExecContext(ctx, `
					CREATE TABLE IF NOT EXISTS wallets (
						user_id       VARCHAR(64) PRIMARY KEY,
						balance       BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
						total_earned  BIGINT NOT NULL DEFAULT 0,
						total_spent   BIGINT NOT NULL DEFAULT 0,
						created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
						updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
					);
					CREATE TABLE IF NOT EXISTS wallet_transactions (
						id               UUID PRIMARY KEY,
						user_id          VARCHAR(64) NOT NULL,
						amount           BIGINT NOT NULL,
						reason           VARCHAR(128) NOT NULL,
						idempotency_key  VARCHAR(128) NOT NULL UNIQUE,
						created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
					);
					CREATE INDEX IF NOT EXISTS idx_wallet_transactions_user_id ON wallet_transactions(user_id);
				`); err != nil {
					return fmt.Errorf("failed to create wallet tables: %w", err)
				}
				return nil
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping wallet tables...")

			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				if _, err := tx.ExecContext(ctx, `
					DROP TABLE IF EXISTS wallet_transactions;
					DROP TABLE IF EXISTS wallets;
				`); err != nil {
					return fmt.Errorf("failed to drop wallet tables: %w", err)
				}
				return nil
			})
		},
	)
}
