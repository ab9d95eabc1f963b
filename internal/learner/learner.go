// Package learner holds the per-learner state the engine reads and writes
// but does not own: completed skills and the reward ledger.
package learner

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/p-n-ai/pai-progress/internal/challenge"
)

// Progress records which skills a learner has completed.
type Progress interface {
	CompletedSkills(ctx context.Context, learnerID string) ([]string, error)
	// MarkCompleted reports whether the skill was newly recorded.
	MarkCompleted(ctx context.Context, learnerID, skillID string) (bool, error)
}

// Ledger receives claimed challenge rewards.
type Ledger interface {
	challenge.RewardSink
	TotalXP(ctx context.Context, learnerID string) (int, error)
}

// Entry is one applied reward.
type Entry struct {
	ChallengeID string
	XP          int
	Bonus       *challenge.Bonus
	ClaimedAt   time.Time
}

// MemoryStore implements Progress and Ledger in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	completed map[string][]string
	ledger    map[string][]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		completed: make(map[string][]string),
		ledger:    make(map[string][]Entry),
	}
}

// CompletedSkills returns skill ids in the order they were completed.
func (s *MemoryStore) CompletedSkills(_ context.Context, learnerID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string{}, s.completed[learnerID]...), nil
}

func (s *MemoryStore) MarkCompleted(_ context.Context, learnerID, skillID string) (bool, error) {
	if learnerID == "" || skillID == "" {
		return false, fmt.Errorf("learner_id and skill_id are required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.completed[learnerID], skillID) {
		return false, nil
	}
	s.completed[learnerID] = append(s.completed[learnerID], skillID)
	return true, nil
}

// ApplyReward records the reward. A challenge already in the ledger is
// ignored, so a retried claim never pays twice.
func (s *MemoryStore) ApplyReward(_ context.Context, learnerID string, reward challenge.Reward) error {
	if learnerID == "" {
		return fmt.Errorf("learner_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.ledger[learnerID] {
		if e.ChallengeID == reward.ChallengeID {
			return nil
		}
	}
	s.ledger[learnerID] = append(s.ledger[learnerID], Entry{
		ChallengeID: reward.ChallengeID,
		XP:          reward.XP,
		Bonus:       reward.Bonus,
		ClaimedAt:   time.Now(),
	})
	return nil
}

func (s *MemoryStore) TotalXP(_ context.Context, learnerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, e := range s.ledger[learnerID] {
		total += e.XP
	}
	return total, nil
}

// Entries returns a copy of the learner's ledger.
func (s *MemoryStore) Entries(learnerID string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.ledger[learnerID]...)
}
