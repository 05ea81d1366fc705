// Package postgres implements the durable session store on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CREATE HUB SESSIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
-- Migration: Create hub_sessions table
-- Version: 001

CREATE TABLE IF NOT EXISTS hub_sessions (
    id UUID PRIMARY KEY,
    access_code VARCHAR(128) NOT NULL UNIQUE,
    tenant_id VARCHAR(64) NOT NULL,
    cultural_context VARCHAR(20) NOT NULL DEFAULT 'kazakh',
    version BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    last_activity_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),

    -- Per-world completion records, keyed by world index
    worlds JSONB NOT NULL DEFAULT '{}'::jsonb,

    -- Derived hub aggregate (total score, completion, achievements)
    progress JSONB NOT NULL DEFAULT '{}'::jsonb,

    -- Constraints for data integrity
    CONSTRAINT valid_cultural_context CHECK (cultural_context IN ('kazakh', 'russian', 'neutral')),
    CONSTRAINT valid_version CHECK (version >= 1)
);

-- Indexes for common queries
CREATE INDEX IF NOT EXISTS idx_hub_sessions_access_code ON hub_sessions(access_code);
CREATE INDEX IF NOT EXISTS idx_hub_sessions_tenant_id ON hub_sessions(tenant_id);
CREATE INDEX IF NOT EXISTS idx_hub_sessions_last_activity ON hub_sessions(last_activity_at);
`

// migrations lists all migrations in order.
var migrations = []struct {
	version int
	name    string
	up      string
}{
	{1, "create_hub_sessions", migration001Up},
}

// Migrate applies all pending migrations. Safe to run on every startup: each
// migration is idempotent and applied versions are tracked.
func Migrate(ctx context.Context, conn *Connection) error {
	const createVersionTable = `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`
	if _, err := conn.Pool().Exec(ctx, createVersionTable); err != nil {
		return fmt.Errorf("%w: %v", ErrMigrationFailed, err)
	}

	for _, m := range migrations {
		var exists bool
		err := conn.Pool().QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", m.version,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("%w: checking version %d: %v", ErrMigrationFailed, m.version, err)
		}
		if exists {
			continue
		}

		if _, err := conn.Pool().Exec(ctx, m.up); err != nil {
			return fmt.Errorf("%w: applying %s: %v", ErrMigrationFailed, m.name, err)
		}
		if _, err := conn.Pool().Exec(ctx,
			"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.version, m.name,
		); err != nil {
			return fmt.Errorf("%w: recording %s: %v", ErrMigrationFailed, m.name, err)
		}
	}

	return nil
}
