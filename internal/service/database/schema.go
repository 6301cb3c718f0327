package database

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// schemaStatements create the profile and roast tables. Every statement is
// idempotent so Migrate can run on each start.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
		id         UUID PRIMARY KEY,
		email      TEXT UNIQUE,
		plan       TEXT NOT NULL DEFAULT 'free',
		credits    INTEGER NOT NULL DEFAULT 3,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS roasts (
		id                UUID PRIMARY KEY,
		user_id           UUID,
		url               TEXT NOT NULL,
		score             INTEGER NOT NULL,
		roast_text        JSONB NOT NULL,
		ux_audit          JSONB,
		seo_audit         JSONB,
		copy_audit        JSONB,
		conversion_tips   JSONB,
		performance_audit JSONB,
		is_public         BOOLEAN NOT NULL DEFAULT TRUE,
		paid              BOOLEAN NOT NULL DEFAULT FALSE,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_roasts_public_created ON roasts (created_at DESC) WHERE is_public`,
	`CREATE INDEX IF NOT EXISTS idx_roasts_user_created ON roasts (user_id, created_at DESC)`,
}

// Migrate applies the schema in one transaction.
func (ps *PostgresService) Migrate(ctx context.Context) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range schemaStatements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	ps.logger.Info("Database schema up to date", zap.Int("statements", len(schemaStatements)))
	return nil
}
