package progression

import "github.com/p-n-ai/pai-progress/internal/curriculum"

// TierSize is the number of skills per display tier.
const TierSize = 4

// Graph answers which skills must be completed before a given skill.
type Graph interface {
	Prerequisites(skillID string) []string
}

// AuthoredGraph uses the prerequisites declared in content.
type AuthoredGraph map[string][]string

// NewAuthoredGraph indexes the declared prerequisites of skills.
func NewAuthoredGraph(skills []curriculum.Skill) AuthoredGraph {
	g := make(AuthoredGraph, len(skills))
	for _, s := range skills {
		g[s.ID] = s.Prerequisites
	}
	return g
}

func (g AuthoredGraph) Prerequisites(skillID string) []string {
	return g[skillID]
}

// Node is one skill placed in a tier.
type Node struct {
	SkillID       string   `json:"skillId"`
	Tier          int      `json:"tier"`
	Position      int      `json:"position"`
	Prerequisites []string `json:"prerequisites"`
	XPWeight      int      `json:"xpWeight"`
}

// Link is an edge from a prerequisite to the skill that needs it.
type Link struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TierLayout arranges a flat, ordered skill list into tiers of TierSize and
// derives a synthetic prerequisite chain for display when no graph is authored.
// The first skill of a tier depends on the center skill of the previous tier;
// every other skill depends on its predecessor in the same tier.
type TierLayout struct {
	tiers [][]string
	nodes []Node
	index map[string]int
}

// NewTierLayout computes the layout. The result depends only on the order of skills.
func NewTierLayout(skills []curriculum.Skill) *TierLayout {
	l := &TierLayout{
		nodes: make([]Node, len(skills)),
		index: make(map[string]int, len(skills)),
	}

	for i, s := range skills {
		tier, pos := i/TierSize, i%TierSize
		if pos == 0 {
			l.tiers = append(l.tiers, nil)
		}
		l.tiers[tier] = append(l.tiers[tier], s.ID)

		prereqs := []string{}
		switch {
		case pos > 0:
			prereqs = append(prereqs, skills[i-1].ID)
		case tier > 0:
			prev := l.tiers[tier-1]
			prereqs = append(prereqs, prev[len(prev)/2])
		}

		l.nodes[i] = Node{
			SkillID:       s.ID,
			Tier:          tier,
			Position:      pos,
			Prerequisites: prereqs,
			XPWeight:      XPWeight(s.Difficulty),
		}
		if _, seen := l.index[s.ID]; !seen {
			l.index[s.ID] = i
		}
	}
	return l
}

// Tiers returns skill ids grouped by tier.
func (l *TierLayout) Tiers() [][]string {
	out := make([][]string, len(l.tiers))
	for i, t := range l.tiers {
		out[i] = append([]string(nil), t...)
	}
	return out
}

// Nodes returns the placed skills in input order.
func (l *TierLayout) Nodes() []Node {
	return append([]Node(nil), l.nodes...)
}

// Links returns every synthetic edge in input order.
func (l *TierLayout) Links() []Link {
	return linksOf(l, l.nodes)
}

func (l *TierLayout) Prerequisites(skillID string) []string {
	i, ok := l.index[skillID]
	if !ok {
		return nil
	}
	return l.nodes[i].Prerequisites
}

func linksOf(g Graph, nodes []Node) []Link {
	links := []Link{}
	for _, n := range nodes {
		for _, p := range g.Prerequisites(n.SkillID) {
			links = append(links, Link{From: p, To: n.SkillID})
		}
	}
	return links
}

// GraphFor picks the authored graph when any skill declares prerequisites,
// and the synthetic tier layout otherwise.
func GraphFor(skills []curriculum.Skill) Graph {
	for _, s := range skills {
		if len(s.Prerequisites) > 0 {
			return NewAuthoredGraph(skills)
		}
	}
	return NewTierLayout(skills)
}

// XPWeight is a display weight derived from difficulty. It is not a reward amount.
func XPWeight(d curriculum.Difficulty) int {
	switch d {
	case curriculum.Advanced:
		return 100
	case curriculum.Intermediate:
		return 50
	default:
		return 25
	}
}
