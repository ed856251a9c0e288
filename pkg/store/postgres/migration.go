package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the shared-store tables when they do not already exist.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS organizations (
		 id TEXT PRIMARY KEY,
		 name TEXT UNIQUE NOT NULL,
		 slack_webhook_url TEXT NOT NULL DEFAULT '',
		 created_at TIMESTAMP WITH TIME ZONE DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS org_members (
		 id TEXT PRIMARY KEY,
		 org_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		 handle TEXT NOT NULL,
		 joined_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		 UNIQUE(org_id, handle)
		)`,

		`CREATE TABLE IF NOT EXISTS insights (
		 org_id TEXT NOT NULL REFERENCES organizations(id) ON DELETE CASCADE,
		 repository TEXT NOT NULL,
		 number INT NOT NULL,
		 author TEXT NOT NULL,
		 state TEXT NOT NULL DEFAULT 'open',
		 draft BOOLEAN NOT NULL DEFAULT false,
		 additions INT NOT NULL DEFAULT 0,
		 deletions INT NOT NULL DEFAULT 0,
		 size_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		 risk_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		 paths TEXT[] NOT NULL DEFAULT '{}',
		 created_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		 updated_at TIMESTAMP WITH TIME ZONE DEFAULT now(),
		 PRIMARY KEY(org_id, repository, number)
		)`,

		`CREATE TABLE IF NOT EXISTS job_locks (
		 job_name TEXT PRIMARY KEY,
		 is_locked BOOLEAN NOT NULL DEFAULT false,
		 locked_at TIMESTAMP WITH TIME ZONE DEFAULT now()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_insights_staleness
		 ON insights(org_id, updated_at) WHERE state = 'open' AND NOT draft`,
		`CREATE INDEX IF NOT EXISTS idx_org_members_org_id ON org_members(org_id)`,
	}

	for i, s := range stmts {
		if _, err := pool.Exec(ctx, s); err != nil {
			return fmt.Errorf("migration stmt %d failed: %w", i, err)
		}
	}
	return nil
}
