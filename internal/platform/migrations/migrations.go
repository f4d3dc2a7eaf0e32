// Package migrations applies the database schema. Statements are idempotent
// so Apply can run unconditionally at startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS mint_attempts (
		id             TEXT PRIMARY KEY,
		wallet         TEXT NOT NULL,
		state          TEXT NOT NULL,
		transaction_id TEXT NOT NULL DEFAULT '',
		mint_address   TEXT NOT NULL DEFAULT '',
		error_category TEXT NOT NULL DEFAULT '',
		error_detail   TEXT NOT NULL DEFAULT '',
		started_at     TIMESTAMPTZ NOT NULL,
		finished_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_mint_attempts_wallet ON mint_attempts (wallet)`,
	`CREATE INDEX IF NOT EXISTS idx_mint_attempts_started_at ON mint_attempts (started_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_mint_attempts_wallet_state ON mint_attempts (wallet, state)`,
}

// Apply runs every schema statement in order.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
