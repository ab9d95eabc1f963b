package learner

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-progress/internal/challenge"
)

const dbTimeout = 5 * time.Second

// PostgresStore implements Progress and Ledger on the completed_skills and
// reward_ledger tables.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on pool. The schema must exist.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) CompletedSkills(ctx context.Context, learnerID string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT skill_id FROM completed_skills
		 WHERE learner_id = $1
		 ORDER BY completed_at, skill_id`,
		learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("select completed skills: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completed skill: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate completed skills: %w", err)
	}
	return ids, nil
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, learnerID, skillID string) (bool, error) {
	if learnerID == "" || skillID == "" {
		return false, fmt.Errorf("learner_id and skill_id are required")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO completed_skills (learner_id, skill_id)
		 VALUES ($1, $2)
		 ON CONFLICT (learner_id, skill_id) DO NOTHING`,
		learnerID, skillID,
	)
	if err != nil {
		return false, fmt.Errorf("insert completed skill: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) ApplyReward(ctx context.Context, learnerID string, reward challenge.Reward) error {
	if learnerID == "" {
		return fmt.Errorf("learner_id is required")
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var bonusType *string
	var bonusValue *float64
	if reward.Bonus != nil {
		t := string(reward.Bonus.Type)
		bonusType = &t
		bonusValue = &reward.Bonus.Value
	}

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO reward_ledger (learner_id, challenge_id, xp, bonus_type, bonus_value)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (learner_id, challenge_id) DO NOTHING`,
		learnerID, reward.ChallengeID, reward.XP, bonusType, bonusValue,
	); err != nil {
		return fmt.Errorf("insert reward: %w", err)
	}
	return nil
}

func (s *PostgresStore) TotalXP(ctx context.Context, learnerID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(xp), 0) FROM reward_ledger WHERE learner_id = $1`,
		learnerID,
	).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum rewards: %w", err)
	}
	return total, nil
}
