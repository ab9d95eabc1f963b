package challenge_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/p-n-ai/pai-progress/internal/challenge"
)

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// fixedSelector returns a copy of the same roster every day and counts draws.
type fixedSelector struct {
	mu        sync.Mutex
	roster    []challenge.Challenge
	selectedN int
}

func (s *fixedSelector) Select(_ time.Time, expiresAt time.Time) []challenge.Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selectedN++
	out := make([]challenge.Challenge, len(s.roster))
	for i, c := range s.roster {
		c.ExpiresAt = expiresAt
		out[i] = c
	}
	return out
}

func (s *fixedSelector) draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedN
}

// recordingSink records applied rewards.
type recordingSink struct {
	mu      sync.Mutex
	rewards []challenge.Reward
	err     error
}

func (s *recordingSink) ApplyReward(_ context.Context, _ string, r challenge.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.rewards = append(s.rewards, r)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rewards)
}

var day1 = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	board    *challenge.Board
	clock    *fakeClock
	selector *fixedSelector
	sink     *recordingSink
	events   *challenge.MemoryEventLogger
	store    *challenge.MemoryStore
}

func newFixture(t *testing.T, roster ...challenge.Challenge) *fixture {
	t.Helper()
	if len(roster) == 0 {
		roster = []challenge.Challenge{
			{ID: "login", Type: challenge.TypeLoginBonus, Target: 1, Current: 1, XPReward: 25, Difficulty: challenge.Easy},
			{ID: "study", Type: challenge.TypeStudyTime, Target: 10, Current: 7, XPReward: 50, Difficulty: challenge.Easy},
			{ID: "skills", Type: challenge.TypeCompleteSkills, Target: 3, XPReward: 100, Difficulty: challenge.Medium},
			{ID: "legend", Type: challenge.TypeCompleteSkills, Target: 7, XPReward: 250, Difficulty: challenge.Hard,
				Bonus: &challenge.Bonus{Type: challenge.BonusXPMultiplier, Value: 1.5}},
		}
	}
	f := &fixture{
		clock:    &fakeClock{now: day1},
		selector: &fixedSelector{roster: roster},
		sink:     &recordingSink{},
		events:   challenge.NewMemoryEventLogger(),
		store:    challenge.NewMemoryStore(),
	}
	f.board = challenge.NewBoard("learner-1", challenge.BoardConfig{
		Location: time.UTC,
		Clock:    f.clock,
		Selector: f.selector,
		Store:    f.store,
		Sink:     f.sink,
		Events:   f.events,
	})
	return f
}

func find(t *testing.T, cs []challenge.Challenge, id string) challenge.Challenge {
	t.Helper()
	for _, c := range cs {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("challenge %s not found", id)
	return challenge.Challenge{}
}

func TestBoard_ProgressThenClaimOnce(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	updated, err := f.board.ReportProgress(ctx, challenge.TypeStudyTime, 5)
	if err != nil {
		t.Fatalf("ReportProgress() error = %v", err)
	}
	if len(updated) != 1 {
		t.Fatalf("updated = %d challenges, want 1", len(updated))
	}
	study := updated[0]
	if study.Current != 10 || !study.Completed() || study.Claimed {
		t.Errorf("after progress = %+v, want current 10, completed, unclaimed", study)
	}

	reward, ok, err := f.board.Claim(ctx, "study")
	if err != nil || !ok {
		t.Fatalf("Claim() = %+v, %v, %v; want success", reward, ok, err)
	}
	if reward.XP != 50 || reward.ChallengeID != "study" {
		t.Errorf("reward = %+v", reward)
	}

	again, ok, err := f.board.Claim(ctx, "study")
	if err != nil {
		t.Fatalf("second Claim() error = %v", err)
	}
	if ok || again.XP != 0 {
		t.Errorf("second Claim() = %+v, %v; want nothing to claim", again, ok)
	}
	if f.sink.count() != 1 {
		t.Errorf("reward applied %d times, want 1", f.sink.count())
	}
	if f.events.Count(challenge.EventChallengeClaimed) != 1 || f.events.Count(challenge.EventChallengeCompleted) != 1 {
		t.Errorf("events = %+v", f.events.Events())
	}
}

func TestBoard_ProgressClampsAtTarget(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	for _, delta := range []int{1, 100, 5} {
		if _, err := f.board.ReportProgress(ctx, challenge.TypeCompleteSkills, delta); err != nil {
			t.Fatalf("ReportProgress() error = %v", err)
		}
		cs, _ := f.board.Challenges(ctx)
		for _, c := range cs {
			if c.Current > c.Target {
				t.Errorf("%s current %d exceeds target %d", c.ID, c.Current, c.Target)
			}
		}
	}

	cs, _ := f.board.Challenges(ctx)
	if find(t, cs, "skills").Current != 3 || find(t, cs, "legend").Current != 7 {
		t.Errorf("challenges = %+v", cs)
	}
}

func TestBoard_ProgressHugeDeltaClampsAtTarget(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	if _, err := f.board.ReportProgress(ctx, challenge.TypeStudyTime, 7); err != nil {
		t.Fatal(err)
	}
	updated, err := f.board.ReportProgress(ctx, challenge.TypeStudyTime, math.MaxInt)
	if err != nil {
		t.Fatalf("ReportProgress() error = %v", err)
	}
	if len(updated) != 1 {
		t.Fatalf("updated = %+v, want the study challenge", updated)
	}

	cs, _ := f.board.Challenges(ctx)
	study := find(t, cs, "study")
	if study.Current != 10 || !study.Completed() {
		t.Errorf("study = %d/%d completed=%v, want 10/10 completed", study.Current, study.Target, study.Completed())
	}
}

func TestBoard_ProgressIgnoresNonPositiveAndOtherTypes(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	for _, delta := range []int{0, -3} {
		updated, err := f.board.ReportProgress(ctx, challenge.TypeStudyTime, delta)
		if err != nil || len(updated) != 0 {
			t.Errorf("ReportProgress(delta=%d) = %v, %v; want no change", delta, updated, err)
		}
	}
	updated, _ := f.board.ReportProgress(ctx, challenge.TypePerfectQuiz, 2)
	if len(updated) != 0 {
		t.Errorf("no quiz challenge on the roster, updated = %v", updated)
	}

	cs, _ := f.board.Challenges(ctx)
	if find(t, cs, "study").Current != 7 {
		t.Error("study progress should be unchanged")
	}
}

func TestBoard_ClaimedChallengeDoesNotAdvance(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	if _, ok, _ := f.board.Claim(ctx, "login"); !ok {
		t.Fatal("login bonus should be claimable immediately")
	}
	updated, _ := f.board.ReportProgress(ctx, challenge.TypeLoginBonus, 1)
	if len(updated) != 0 {
		t.Errorf("claimed challenge advanced: %v", updated)
	}
}

func TestBoard_ClaimRejected(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	tests := []string{"skills", "does-not-exist"}
	for _, id := range tests {
		t.Run(id, func(t *testing.T) {
			reward, ok, err := f.board.Claim(ctx, id)
			if err != nil || ok || reward.XP != 0 {
				t.Errorf("Claim(%s) = %+v, %v, %v; want rejected", id, reward, ok, err)
			}
		})
	}
	if f.sink.count() != 0 {
		t.Error("rejected claims must not reach the sink")
	}
}

func TestBoard_ClaimWithBonus(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	if _, err := f.board.ReportProgress(ctx, challenge.TypeCompleteSkills, 7); err != nil {
		t.Fatal(err)
	}
	reward, ok, err := f.board.Claim(ctx, "legend")
	if err != nil || !ok {
		t.Fatalf("Claim() = %v, %v", ok, err)
	}
	if reward.Bonus == nil || reward.Bonus.Type != challenge.BonusXPMultiplier || reward.Bonus.Value != 1.5 {
		t.Errorf("bonus = %+v", reward.Bonus)
	}
}

func TestBoard_SinkFailureKeepsChallengeClaimable(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()
	f.sink.err = errors.New("ledger down")

	if _, ok, err := f.board.Claim(ctx, "login"); err == nil || ok {
		t.Fatalf("Claim() = %v, %v; want error", ok, err)
	}

	f.sink.mu.Lock()
	f.sink.err = nil
	f.sink.mu.Unlock()

	if _, ok, err := f.board.Claim(ctx, "login"); err != nil || !ok {
		t.Errorf("retry Claim() = %v, %v; want success", ok, err)
	}
}

func TestBoard_ResetAtLocalMidnight(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	if _, err := f.board.ReportProgress(ctx, challenge.TypeStudyTime, 5); err != nil {
		t.Fatal(err)
	}
	if reset, err := f.board.ResetIfDue(ctx); err != nil || reset {
		t.Errorf("ResetIfDue() same day = %v, %v; want false", reset, err)
	}

	f.clock.Set(time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC))
	if reset, _ := f.board.ResetIfDue(ctx); reset {
		t.Error("ResetIfDue() one second before midnight should not reset")
	}

	f.clock.Set(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC))
	reset, err := f.board.ResetIfDue(ctx)
	if err != nil || !reset {
		t.Fatalf("ResetIfDue() at midnight = %v, %v; want true", reset, err)
	}

	cs, _ := f.board.Challenges(ctx)
	if find(t, cs, "study").Current != 7 {
		t.Error("previous day's progress should be discarded")
	}
	if f.selector.draws() != 2 {
		t.Errorf("selector draws = %d, want 2", f.selector.draws())
	}
	if f.events.Count(challenge.EventRosterReset) != 2 {
		t.Errorf("roster_reset events = %d, want 2", f.events.Count(challenge.EventRosterReset))
	}
	if want := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC); !cs[0].ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", cs[0].ExpiresAt, want)
	}
}

func TestBoard_ResetIsLazyOnAnyCall(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	if _, _, err := f.board.Claim(ctx, "login"); err != nil {
		t.Fatal(err)
	}
	f.clock.Set(day1.Add(24 * time.Hour))

	// The stale claimed login bonus must not leak into the new day.
	reward, ok, err := f.board.Claim(ctx, "login")
	if err != nil || !ok || reward.XP != 25 {
		t.Errorf("Claim() on the new day = %+v, %v, %v; want fresh login bonus", reward, ok, err)
	}
}

func TestBoard_ForcedReset(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	if _, err := f.board.ReportProgress(ctx, challenge.TypeStudyTime, 5); err != nil {
		t.Fatal(err)
	}
	if err := f.board.Reset(ctx); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	cs, _ := f.board.Challenges(ctx)
	if find(t, cs, "study").Current != 7 {
		t.Error("Reset should draw a fresh roster")
	}
}

func TestBoard_TimeRemaining(t *testing.T) {
	f := newFixture(t)

	got := f.board.TimeRemaining()
	if got.Hours != 14 || got.Minutes != 0 || got.Seconds != 0 {
		t.Errorf("TimeRemaining() = %+v, want 14h", got)
	}

	f.clock.Set(day1.Add(90*time.Minute + 15*time.Second))
	got = f.board.TimeRemaining()
	if got.Hours != 12 || got.Minutes != 29 || got.Seconds != 45 {
		t.Errorf("TimeRemaining() = %+v, want 12h29m45s", got)
	}
}

func TestBoard_ObserveCompletedSkills(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	updated, err := f.board.ObserveCompletedSkills(ctx, []string{"s1", "s2", "s1"})
	if err != nil {
		t.Fatalf("ObserveCompletedSkills() error = %v", err)
	}
	if len(updated) != 2 || find(t, updated, "skills").Current != 2 {
		t.Errorf("updated = %+v, want both complete_skills challenges at 2", updated)
	}

	updated, _ = f.board.ObserveCompletedSkills(ctx, []string{"s2", "s1"})
	if len(updated) != 0 {
		t.Errorf("already seen skills advanced progress: %+v", updated)
	}

	updated, _ = f.board.ObserveCompletedSkills(ctx, []string{"s3"})
	if find(t, updated, "skills").Current != 3 || !find(t, updated, "skills").Completed() {
		t.Errorf("updated = %+v", updated)
	}
}

// toggleStore fails every Save while err is set.
type toggleStore struct {
	*challenge.MemoryStore
	mu  sync.Mutex
	err error
}

func (s *toggleStore) Save(ctx context.Context, learnerID string, r challenge.Roster) error {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.Save(ctx, learnerID, r)
}

func (s *toggleStore) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

func TestBoard_FailedSaveLeavesRosterUnchanged(t *testing.T) {
	f := newFixture(t)
	store := &toggleStore{MemoryStore: challenge.NewMemoryStore()}
	board := challenge.NewBoard("learner-1", challenge.BoardConfig{
		Location: time.UTC,
		Clock:    f.clock,
		Selector: f.selector,
		Store:    store,
		Sink:     f.sink,
		Events:   f.events,
	})
	ctx := t.Context()

	if _, err := board.Challenges(ctx); err != nil {
		t.Fatal(err)
	}
	store.fail(errors.New("connection reset"))

	if _, err := board.ObserveCompletedSkills(ctx, []string{"s1"}); err == nil {
		t.Fatal("ObserveCompletedSkills() should report the failed save")
	}
	if _, err := board.ReportProgress(ctx, challenge.TypeStudyTime, 3); err == nil {
		t.Fatal("ReportProgress() should report the failed save")
	}
	if _, ok, err := board.Claim(ctx, "login"); err == nil || ok {
		t.Fatalf("Claim() = %v, %v; want error", ok, err)
	}

	cs, _ := board.Challenges(ctx)
	if find(t, cs, "skills").Current != 0 || find(t, cs, "study").Current != 7 || find(t, cs, "login").Claimed {
		t.Errorf("roster moved ahead of the store: %+v", cs)
	}
	if f.events.Count(challenge.EventChallengeCompleted) != 0 {
		t.Error("no completion should be logged for an unsaved advance")
	}

	store.fail(nil)
	updated, err := board.ObserveCompletedSkills(ctx, []string{"s1"})
	if err != nil {
		t.Fatalf("retry ObserveCompletedSkills() error = %v", err)
	}
	if find(t, updated, "skills").Current != 1 {
		t.Errorf("retried skill should count once, updated = %+v", updated)
	}

	stored, ok, _ := store.Load(ctx, "learner-1")
	if !ok || find(t, stored.Challenges, "skills").Current != 1 || len(stored.SeenSkills) != 1 {
		t.Errorf("stored roster = %+v", stored)
	}
}

func TestBoard_Summary(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	s, err := f.board.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() error = %v", err)
	}
	want := challenge.Summary{Total: 4, Completed: 1, Claimed: 0, UnclaimedXP: 25}
	if s != want {
		t.Errorf("Summary() = %+v, want %+v", s, want)
	}

	f.board.ReportProgress(ctx, challenge.TypeStudyTime, 3)
	f.board.Claim(ctx, "login")

	s, _ = f.board.Summary(ctx)
	want = challenge.Summary{Total: 4, Completed: 2, Claimed: 1, UnclaimedXP: 50}
	if s != want {
		t.Errorf("Summary() = %+v, want %+v", s, want)
	}
}

func TestBoard_PersistsAcrossInstances(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	if _, err := f.board.ReportProgress(ctx, challenge.TypeStudyTime, 2); err != nil {
		t.Fatal(err)
	}

	other := challenge.NewBoard("learner-1", challenge.BoardConfig{
		Location: time.UTC,
		Clock:    f.clock,
		Selector: f.selector,
		Store:    f.store,
	})
	cs, err := other.Challenges(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if find(t, cs, "study").Current != 9 {
		t.Errorf("reloaded study progress = %d, want 9", find(t, cs, "study").Current)
	}
	if f.selector.draws() != 1 {
		t.Errorf("stored roster should be reused, draws = %d", f.selector.draws())
	}
}

func TestBoard_ChallengesReturnsCopy(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	cs, _ := f.board.Challenges(ctx)
	cs[1].Current = 999
	cs[3].Bonus.Value = 42

	again, _ := f.board.Challenges(ctx)
	if find(t, again, "study").Current != 7 || find(t, again, "legend").Bonus.Value != 1.5 {
		t.Error("mutating a returned slice changed board state")
	}
}

func TestChallenge_JSON(t *testing.T) {
	c := challenge.Challenge{ID: "x", Type: challenge.TypeStudyTime, Target: 2, Current: 2}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatal(err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	}
	if fields["completed"] != true {
		t.Errorf("completed = %v, want true in JSON", fields["completed"])
	}

	// A stale completed flag in storage is ignored; completion is recomputed.
	var back challenge.Challenge
	if err := json.Unmarshal([]byte(`{"id":"x","target":5,"current":1,"completed":true}`), &back); err != nil {
		t.Fatal(err)
	}
	if back.Completed() {
		t.Error("Completed() must derive from current and target")
	}
}
