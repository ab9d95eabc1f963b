package database_test

import (
	"testing"

	"github.com/p-n-ai/pai-progress/internal/platform/database"
	"github.com/p-n-ai/pai-progress/internal/platform/database/dbtest"
)

func TestEnsureSchema_Idempotent(t *testing.T) {
	pool := dbtest.NewPool(t)

	// dbtest already applied the schema once.
	if err := database.EnsureSchema(t.Context(), pool); err != nil {
		t.Fatalf("second EnsureSchema() error = %v", err)
	}

	var n int
	err := pool.QueryRow(t.Context(),
		`SELECT COUNT(*) FROM information_schema.tables
		 WHERE table_name IN ('completed_skills', 'reward_ledger', 'daily_rosters', 'engagement_events')`,
	).Scan(&n)
	if err != nil {
		t.Fatalf("query tables: %v", err)
	}
	if n != 4 {
		t.Errorf("tables = %d, want 4", n)
	}
}
