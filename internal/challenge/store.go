package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/p-n-ai/pai-progress/internal/platform/cache"
)

// RosterStore persists the current roster of each learner.
type RosterStore interface {
	// Load returns the stored roster; ok is false when there is none.
	Load(ctx context.Context, learnerID string) (r Roster, ok bool, err error)
	Save(ctx context.Context, learnerID string, r Roster) error
}

// MemoryStore keeps rosters in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	rosters map[string]Roster
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rosters: make(map[string]Roster)}
}

func (s *MemoryStore) Load(_ context.Context, learnerID string) (Roster, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rosters[learnerID]
	if !ok {
		return Roster{}, false, nil
	}
	return r.clone(), true, nil
}

func (s *MemoryStore) Save(_ context.Context, learnerID string, r Roster) error {
	if learnerID == "" {
		return fmt.Errorf("learner_id is required")
	}
	s.mu.Lock()
	s.rosters[learnerID] = r.clone()
	s.mu.Unlock()
	return nil
}

// minRosterTTL keeps a roster saved right at the boundary from being written
// without expiry.
const minRosterTTL = time.Second

// RedisStore keeps rosters as JSON keys that expire at the roster's reset boundary.
type RedisStore struct {
	cache  *cache.Cache
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a store writing keys under "challenges:roster:".
func NewRedisStore(c *cache.Cache) *RedisStore {
	return &RedisStore{cache: c, prefix: "challenges:roster:", now: time.Now}
}

func (s *RedisStore) key(learnerID string) string {
	return s.prefix + learnerID
}

func (s *RedisStore) Load(ctx context.Context, learnerID string) (Roster, bool, error) {
	var r Roster
	err := s.cache.GetJSON(ctx, s.key(learnerID), &r)
	if errors.Is(err, cache.ErrMiss) {
		return Roster{}, false, nil
	}
	if err != nil {
		return Roster{}, false, fmt.Errorf("load roster: %w", err)
	}
	return r, true, nil
}

func (s *RedisStore) Save(ctx context.Context, learnerID string, r Roster) error {
	ttl := r.ExpiresAt.Sub(s.now())
	if ttl < minRosterTTL {
		ttl = minRosterTTL
	}
	if err := s.cache.SetJSON(ctx, s.key(learnerID), r, ttl); err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	return nil
}

// PostgresStore keeps rosters in the daily_rosters table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a roster store on pool. The schema must exist.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context, learnerID string) (Roster, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM daily_rosters WHERE learner_id = $1`,
		learnerID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Roster{}, false, nil
	}
	if err != nil {
		return Roster{}, false, fmt.Errorf("select roster: %w", err)
	}

	var r Roster
	if err := json.Unmarshal(payload, &r); err != nil {
		return Roster{}, false, fmt.Errorf("decode roster: %w", err)
	}
	return r, true, nil
}

func (s *PostgresStore) Save(ctx context.Context, learnerID string, r Roster) error {
	if learnerID == "" {
		return fmt.Errorf("learner_id is required")
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO daily_rosters (learner_id, day, payload, updated_at)
		 VALUES ($1, $2, $3::jsonb, NOW())
		 ON CONFLICT (learner_id) DO UPDATE
		 SET day = EXCLUDED.day, payload = EXCLUDED.payload, updated_at = NOW()`,
		learnerID, r.Day, string(payload),
	); err != nil {
		return fmt.Errorf("upsert roster: %w", err)
	}
	return nil
}
