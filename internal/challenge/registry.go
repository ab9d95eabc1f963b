package challenge

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Registry hands out one Board per learner, all sharing the same dependencies.
// Boards nobody holds are evicted by ResetDue once their roster is from an
// earlier day; the stored roster is reloaded on next use.
type Registry struct {
	cfg BoardConfig

	mu     sync.Mutex
	boards map[string]*slot
}

type slot struct {
	board *Board
	pins  int
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg BoardConfig) *Registry {
	return &Registry{cfg: cfg.withDefaults(), boards: make(map[string]*slot)}
}

// Board returns the learner's board, creating it on first use. The board may
// be evicted by a later ResetDue; callers that keep it across requests use
// Acquire.
func (r *Registry) Board(learnerID string) *Board {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slot(learnerID).board
}

// Acquire returns the learner's board and keeps it registered until release
// is called. Pinned boards are reset by ResetDue instead of being evicted.
func (r *Registry) Acquire(learnerID string) (b *Board, release func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.slot(learnerID)
	s.pins++
	var once sync.Once
	return s.board, func() {
		once.Do(func() {
			r.mu.Lock()
			s.pins--
			r.mu.Unlock()
		})
	}
}

// slot returns the learner's slot, creating it. Callers hold r.mu.
func (r *Registry) slot(learnerID string) *slot {
	s, ok := r.boards[learnerID]
	if !ok {
		s = &slot{board: NewBoard(learnerID, r.cfg)}
		r.boards[learnerID] = s
	}
	return s
}

// TimeRemaining is the countdown to the next reset in the registry's zone.
func (r *Registry) TimeRemaining() Remaining {
	now := r.cfg.Clock.Now()
	return RemainingUntil(now, NextReset(now, r.cfg.Location))
}

// Learners returns the ids of every registered board, sorted.
func (r *Registry) Learners() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.boards))
	for id := range r.boards {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ResetDue sweeps the registry. Pinned boards run ResetIfDue; unpinned boards
// whose roster is not from today are dropped without drawing a new roster. It
// returns how many boards reset. Errors are collected so one failing learner
// does not stop the sweep.
func (r *Registry) ResetDue(ctx context.Context) (int, error) {
	var pinned []*Board
	evicted := 0

	r.mu.Lock()
	for id, s := range r.boards {
		switch {
		case s.pins > 0:
			pinned = append(pinned, s.board)
		case s.board.stale():
			delete(r.boards, id)
			evicted++
		}
	}
	r.mu.Unlock()

	if evicted > 0 {
		slog.Debug("idle challenge boards evicted", "boards", evicted)
	}

	var errs []error
	n := 0
	for _, b := range pinned {
		reset, err := b.ResetIfDue(ctx)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if reset {
			n++
		}
	}
	return n, errors.Join(errs...)
}

// RunResetLoop calls ResetDue every interval until ctx is done. The first
// sweep happens after one interval.
func RunResetLoop(ctx context.Context, r *Registry, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.ResetDue(ctx)
			if err != nil {
				slog.Warn("daily challenge reset sweep failed", "error", err)
			}
			if n > 0 {
				slog.Info("daily challenges reset", "boards", n)
			}
		}
	}
}
