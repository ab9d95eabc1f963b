package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the tables owned by the learner and challenge stores.
// Statements are idempotent so EnsureSchema can run on every start.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS completed_skills (
		learner_id   TEXT        NOT NULL,
		skill_id     TEXT        NOT NULL,
		completed_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (learner_id, skill_id)
	)`,
	`CREATE TABLE IF NOT EXISTS reward_ledger (
		learner_id   TEXT             NOT NULL,
		challenge_id TEXT             NOT NULL,
		xp           INTEGER          NOT NULL,
		bonus_type   TEXT,
		bonus_value  DOUBLE PRECISION,
		claimed_at   TIMESTAMPTZ      NOT NULL DEFAULT NOW(),
		PRIMARY KEY (learner_id, challenge_id)
	)`,
	`CREATE TABLE IF NOT EXISTS daily_rosters (
		learner_id TEXT        PRIMARY KEY,
		day        TEXT        NOT NULL,
		payload    JSONB       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS engagement_events (
		id         BIGSERIAL   PRIMARY KEY,
		learner_id TEXT        NOT NULL,
		event_type TEXT        NOT NULL,
		data       JSONB       NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS engagement_events_learner_idx
		ON engagement_events (learner_id, created_at)`,
}

// EnsureSchema creates the tables used by the Postgres-backed stores.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("pool is nil")
	}
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
