package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Creating draw tables...")

			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				if _, err := tx.ExecContext(ctx, `
					CREATE TABLE IF NOT EXISTS rounds (
						id                  UUID PRIMARY KEY,
						state               VARCHAR(16) NOT NULL,
						entry_cost          BIGINT NOT NULL,
						pool_amount         BIGINT NOT NULL DEFAULT 0,
						commitment_hash     VARCHAR(64) NOT NULL,
						entries_digest      VARCHAR(64),
						revealed_seed       VARCHAR(64),
						rollover_available  BOOLEAN NOT NULL DEFAULT FALSE,
						opened_at           TIMESTAMPTZ NOT NULL,
						locks_at            TIMESTAMPTZ NOT NULL,
						draws_at            TIMESTAMPTZ NOT NULL,
						locked_at           TIMESTAMPTZ,
						drawn_at            TIMESTAMPTZ,
						paid_at             TIMESTAMPTZ,
						archived_at         TIMESTAMPTZ,
						cancelled_at        TIMESTAMPTZ,
						created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
						updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
					);
					CREATE TABLE IF NOT EXISTS round_secrets (
						round_id    UUID PRIMARY KEY REFERENCES rounds(id),
						seed        VARCHAR(64) NOT NULL,
						created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
					);
					CREATE TABLE IF NOT EXISTS entries (
						id          UUID PRIMARY KEY,
						round_id    UUID NOT NULL REFERENCES rounds(id),
						user_id     VARCHAR(64) NOT NULL,
						cost_paid   BIGINT NOT NULL,
						created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
					);
					CREATE INDEX IF NOT EXISTS idx_entries_round_id ON entries(round_id, created_at, id);
					CREATE INDEX IF NOT EXISTS idx_entries_round_user ON entries(round_id, user_id);
					CREATE TABLE IF NOT EXISTS winners (
						id          UUID PRIMARY KEY,
						round_id    UUID NOT NULL REFERENCES rounds(id),
						tier        INT NOT NULL,
						user_id     VARCHAR(64) NOT NULL,
						entry_id    UUID NOT NULL REFERENCES entries(id),
						amount      BIGINT NOT NULL,
						paid_at     TIMESTAMPTZ,
						created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
						UNIQUE (round_id, tier)
					);
					CREATE INDEX IF NOT EXISTS idx_rounds_state ON rounds(state);
					CREATE INDEX IF NOT EXISTS idx_rounds_rollover ON rounds(rollover_available) WHERE rollover_available;
				`); err != nil {
					return fmt.Errorf("failed to create draw tables: %w", err)
				}
				return nil
			})
		},
		func(ctx context.Context, db *bun.DB) error {
			fmt.Println("Dropping draw tables...")

			return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
				if _, err := tx.ExecContext(ctx, `
					DROP TABLE IF EXISTS winners;
					DROP TABLE IF EXISTS entries;
					DROP TABLE IF EXISTS round_secrets;
					DROP TABLE IF EXISTS rounds;
				`); err != nil {
					return fmt.Errorf("failed to drop draw tables: %w", err)
				}
				return nil
			})
		},
	)
}
