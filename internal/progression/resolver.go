// Package progression decides which skills a learner can take next and lays
// out a discipline's skills as a progression tree.
package progression

import "github.com/p-n-ai/pai-progress/internal/curriculum"

// Set is a set of completed skill ids.
type Set map[string]struct{}

// NewSet builds a set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership. A nil set is empty.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id.
func (s Set) Add(id string) {
	s[id] = struct{}{}
}

// IsUnlockable reports whether every prerequisite of skill is completed.
// Unknown or cyclic prerequisite ids are simply never satisfied.
func IsUnlockable(skill curriculum.Skill, completed Set) bool {
	return satisfied(skill.Prerequisites, completed)
}

func satisfied(prereqs []string, completed Set) bool {
	for _, id := range prereqs {
		if !completed.Has(id) {
			return false
		}
	}
	return true
}
