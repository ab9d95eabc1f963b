package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/p-n-ai/pai-progress/internal/platform/metrics"
)

// RewardSink applies a claimed reward to the learner's account. It is called
// exactly once per successful claim.
type RewardSink interface {
	ApplyReward(ctx context.Context, learnerID string, reward Reward) error
}

// BoardConfig holds the dependencies shared by boards.
type BoardConfig struct {
	Location *time.Location // learner's zone for the midnight reset (default time.Local)
	Clock    Clock          // default SystemClock
	Selector Selector       // default NewTemplateSelector()
	Store    RosterStore    // default NewMemoryStore()
	Sink     RewardSink     // optional
	Events   EventLogger    // default NopEventLogger
}

func (c BoardConfig) withDefaults() BoardConfig {
	if c.Location == nil {
		c.Location = time.Local
	}
	if c.Clock == nil {
		c.Clock = SystemClock{}
	}
	if c.Selector == nil {
		c.Selector = NewTemplateSelector()
	}
	if c.Store == nil {
		c.Store = NewMemoryStore()
	}
	if c.Events == nil {
		c.Events = NopEventLogger{}
	}
	return c
}

// Board is one learner's daily roster. All methods are safe for concurrent use.
// The roster is regenerated lazily: any call made on a new local day first
// discards the previous day's challenges.
type Board struct {
	learnerID string
	cfg       BoardConfig

	mu     sync.Mutex
	roster Roster
	loaded bool
}

// NewBoard creates a board for learnerID. Nothing is loaded until first use.
func NewBoard(learnerID string, cfg BoardConfig) *Board {
	return &Board{learnerID: learnerID, cfg: cfg.withDefaults()}
}

// LearnerID returns the board owner.
func (b *Board) LearnerID() string { return b.learnerID }

// Challenges returns today's roster.
func (b *Board) Challenges(ctx context.Context) ([]Challenge, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.ensure(ctx); err != nil {
		return nil, err
	}
	return b.roster.clone().Challenges, nil
}

// Summary aggregates today's roster.
func (b *Board) Summary(ctx context.Context) (Summary, error) {
	challenges, err := b.Challenges(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(challenges), nil
}

// ReportProgress advances every unclaimed, incomplete challenge of type typ
// by delta, clamped at its target. Non-positive deltas are ignored. It
// returns the challenges whose progress changed.
func (b *Board) ReportProgress(ctx context.Context, typ Type, delta int) ([]Challenge, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.ensure(ctx); err != nil {
		return nil, err
	}
	next := b.roster.clone()
	updated := advance(&next, typ, delta)
	if len(updated) == 0 {
		return updated, nil
	}
	if err := b.commit(ctx, next); err != nil {
		return nil, err
	}
	b.progressed(typ, updated)
	return updated, nil
}

// ObserveCompletedSkills counts skill ids not seen earlier today towards
// complete_skills challenges. Repeating an id has no effect.
func (b *Board) ObserveCompletedSkills(ctx context.Context, skillIDs []string) ([]Challenge, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.ensure(ctx); err != nil {
		return nil, err
	}

	next := b.roster.clone()
	seen := make(map[string]struct{}, len(next.SeenSkills))
	for _, id := range next.SeenSkills {
		seen[id] = struct{}{}
	}
	fresh := 0
	for _, id := range skillIDs {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		next.SeenSkills = append(next.SeenSkills, id)
		fresh++
	}
	if fresh == 0 {
		return []Challenge{}, nil
	}

	updated := advance(&next, TypeCompleteSkills, fresh)
	if err := b.commit(ctx, next); err != nil {
		return nil, err
	}
	b.progressed(TypeCompleteSkills, updated)
	return updated, nil
}

// Claim hands out the reward of a completed, unclaimed challenge. ok is false
// when there is nothing to claim; that is not an error and changes nothing.
func (b *Board) Claim(ctx context.Context, challengeID string) (reward Reward, ok bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.ensure(ctx); err != nil {
		return Reward{}, false, err
	}

	idx := -1
	for i, c := range b.roster.Challenges {
		if c.ID == challengeID {
			idx = i
			break
		}
	}
	if idx < 0 || !b.roster.Challenges[idx].Claimable() {
		metrics.ChallengeClaims.WithLabelValues("rejected").Inc()
		return Reward{}, false, nil
	}

	c := b.roster.Challenges[idx]
	reward = Reward{ChallengeID: c.ID, XP: c.XPReward}
	if c.Bonus != nil {
		bonus := *c.Bonus
		reward.Bonus = &bonus
	}

	if b.cfg.Sink != nil {
		if err := b.cfg.Sink.ApplyReward(ctx, b.learnerID, reward); err != nil {
			return Reward{}, false, fmt.Errorf("apply reward: %w", err)
		}
	}

	next := b.roster.clone()
	next.Challenges[idx].Claimed = true
	if err := b.commit(ctx, next); err != nil {
		return Reward{}, false, err
	}

	metrics.ChallengeClaims.WithLabelValues("claimed").Inc()
	b.logEvent(EventChallengeClaimed, map[string]any{
		"challenge_id": c.ID,
		"type":         string(c.Type),
		"xp":           c.XPReward,
	})
	return reward, true, nil
}

// TimeRemaining is the countdown to the next local midnight, recomputed from
// the clock on every call.
func (b *Board) TimeRemaining() Remaining {
	now := b.cfg.Clock.Now()
	return RemainingUntil(now, NextReset(now, b.cfg.Location))
}

// ResetIfDue regenerates the roster when the local day has changed since it
// was drawn. It reports whether a reset happened.
func (b *Board) ResetIfDue(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ensure(ctx)
}

// Reset discards the current roster and draws a new one for today.
func (b *Board) Reset(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.load(ctx); err != nil {
		return err
	}
	return b.regenerate(ctx, b.cfg.Clock.Now())
}

// stale reports whether the board holds nothing drawn for today. A board
// busy in another call is never stale.
func (b *Board) stale() bool {
	if !b.mu.TryLock() {
		return false
	}
	defer b.mu.Unlock()
	return !b.loaded || b.roster.Day != DayKey(b.cfg.Clock.Now(), b.cfg.Location)
}

func (b *Board) load(ctx context.Context) error {
	if b.loaded {
		return nil
	}
	r, ok, err := b.cfg.Store.Load(ctx, b.learnerID)
	if err != nil {
		return fmt.Errorf("load roster for %s: %w", b.learnerID, err)
	}
	if ok {
		b.roster = r
	}
	b.loaded = true
	return nil
}

// ensure loads the stored roster on first use and regenerates it when its
// day is not today. Callers hold b.mu.
func (b *Board) ensure(ctx context.Context) (bool, error) {
	if err := b.load(ctx); err != nil {
		return false, err
	}
	now := b.cfg.Clock.Now()
	if b.roster.Day == DayKey(now, b.cfg.Location) {
		return false, nil
	}
	if err := b.regenerate(ctx, now); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Board) regenerate(ctx context.Context, now time.Time) error {
	previous := b.roster.Day
	next := NextReset(now, b.cfg.Location)
	challenges := b.cfg.Selector.Select(now, next)
	if challenges == nil {
		challenges = []Challenge{}
	}

	fresh := Roster{
		Day:        DayKey(now, b.cfg.Location),
		ExpiresAt:  next,
		Challenges: challenges,
	}
	if err := b.commit(ctx, fresh); err != nil {
		return err
	}

	metrics.RosterResets.Inc()
	slog.Info("daily challenges generated",
		"learner_id", b.learnerID,
		"day", b.roster.Day,
		"previous_day", previous,
		"challenges", len(challenges),
	)
	b.logEvent(EventRosterReset, map[string]any{
		"day":          b.roster.Day,
		"previous_day": previous,
		"challenges":   len(challenges),
	})
	return nil
}

// advance applies delta to the matching challenges of r, never past their
// target.
func advance(r *Roster, typ Type, delta int) []Challenge {
	updated := []Challenge{}
	if delta <= 0 {
		return updated
	}

	for i := range r.Challenges {
		c := &r.Challenges[i]
		if c.Type != typ || c.Claimed || c.Completed() {
			continue
		}
		c.Current += min(delta, c.Target-c.Current)
		updated = append(updated, *c)
	}
	return updated
}

// progressed records metrics and completion events for a committed advance.
func (b *Board) progressed(typ Type, updated []Challenge) {
	if len(updated) == 0 {
		return
	}
	metrics.ChallengeProgress.WithLabelValues(string(typ)).Inc()
	for _, c := range updated {
		if c.Completed() {
			b.logEvent(EventChallengeCompleted, map[string]any{
				"challenge_id": c.ID,
				"type":         string(c.Type),
			})
		}
	}
}

// commit saves r and only then makes it the current roster, so a failed save
// leaves the board as it was. Callers hold b.mu.
func (b *Board) commit(ctx context.Context, r Roster) error {
	if err := b.cfg.Store.Save(ctx, b.learnerID, r); err != nil {
		return fmt.Errorf("save roster for %s: %w", b.learnerID, err)
	}
	b.roster = r
	return nil
}

func (b *Board) logEvent(eventType string, data map[string]any) {
	err := b.cfg.Events.LogEvent(Event{
		LearnerID: b.learnerID,
		EventType: eventType,
		Data:      data,
		CreatedAt: b.cfg.Clock.Now(),
	})
	if err != nil {
		slog.Warn("failed to log challenge event", "type", eventType, "learner_id", b.learnerID, "error", err)
	}
}
