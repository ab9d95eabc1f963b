// Package challenge runs each learner's daily challenge roster: progress,
// completion, one-time reward claims and the midnight reset.
package challenge

import (
	"encoding/json"
	"time"
)

// Type tags what kind of activity advances a challenge.
type Type string

const (
	TypeLoginBonus         Type = "login_bonus"
	TypeCompleteSkills     Type = "complete_skills"
	TypeStudyTime          Type = "study_time"
	TypePerfectQuiz        Type = "perfect_quiz"
	TypeStreakMaintain     Type = "streak_maintain"
	TypeDisciplineProgress Type = "discipline_progress"
	TypeAchievementUnlock  Type = "achievement_unlock"
)

// Valid reports whether t is a known challenge type.
func (t Type) Valid() bool {
	switch t {
	case TypeLoginBonus, TypeCompleteSkills, TypeStudyTime, TypePerfectQuiz,
		TypeStreakMaintain, TypeDisciplineProgress, TypeAchievementUnlock:
		return true
	}
	return false
}

// Difficulty is the challenge tier.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// BonusType names an extra reward granted on top of XP.
type BonusType string

const (
	BonusStreakProtection BonusType = "streak_protection"
	BonusXPMultiplier     BonusType = "xp_multiplier"
	BonusBadge            BonusType = "badge"
)

// Bonus is an optional extra reward. Badges carry their id in Label.
type Bonus struct {
	Type  BonusType `json:"type"`
	Value float64   `json:"value,omitempty"`
	Label string    `json:"label,omitempty"`
}

// Challenge is one daily objective. Completion is derived from progress and
// never stored on its own.
type Challenge struct {
	ID          string     `json:"id"`
	Type        Type       `json:"type"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Icon        string     `json:"icon,omitempty"`
	Target      int        `json:"target"`
	Current     int        `json:"current"`
	XPReward    int        `json:"xpReward"`
	Bonus       *Bonus     `json:"bonusReward,omitempty"`
	Difficulty  Difficulty `json:"difficulty"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	Claimed     bool       `json:"claimed"`
}

// Completed reports whether progress has reached the target.
func (c Challenge) Completed() bool {
	return c.Current >= c.Target
}

// Claimable reports whether a claim would succeed.
func (c Challenge) Claimable() bool {
	return c.Completed() && !c.Claimed
}

// MarshalJSON adds the derived completed flag.
func (c Challenge) MarshalJSON() ([]byte, error) {
	type plain Challenge
	return json.Marshal(struct {
		plain
		Completed bool `json:"completed"`
	}{plain(c), c.Completed()})
}

// Reward is what a successful claim hands to the caller.
type Reward struct {
	ChallengeID string `json:"challengeId"`
	XP          int    `json:"xp"`
	Bonus       *Bonus `json:"bonus,omitempty"`
}

// Summary aggregates a roster.
type Summary struct {
	Total       int `json:"total"`
	Completed   int `json:"completed"`
	Claimed     int `json:"claimed"`
	UnclaimedXP int `json:"unclaimedXp"`
}

// Summarize counts completed and claimed challenges and the XP still waiting
// to be claimed.
func Summarize(challenges []Challenge) Summary {
	s := Summary{Total: len(challenges)}
	for _, c := range challenges {
		if c.Completed() {
			s.Completed++
		}
		if c.Claimed {
			s.Claimed++
		}
		if c.Claimable() {
			s.UnclaimedXP += c.XPReward
		}
	}
	return s
}

// Roster is one learner's challenges for one local day.
type Roster struct {
	Day        string      `json:"day"` // YYYY-MM-DD in the board's location
	ExpiresAt  time.Time   `json:"expiresAt"`
	Challenges []Challenge `json:"challenges"`
	SeenSkills []string    `json:"seenSkills,omitempty"`
}

func (r Roster) clone() Roster {
	out := r
	out.Challenges = make([]Challenge, len(r.Challenges))
	for i, c := range r.Challenges {
		if c.Bonus != nil {
			b := *c.Bonus
			c.Bonus = &b
		}
		out.Challenges[i] = c
	}
	out.SeenSkills = append([]string(nil), r.SeenSkills...)
	return out
}
