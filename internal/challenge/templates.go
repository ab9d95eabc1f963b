package challenge

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Range is an inclusive integer range.
type Range struct {
	Min, Max int
}

// Template describes how to draw a challenge instance.
type Template struct {
	Type        Type
	Title       string
	Description string // "{target}" is replaced by the drawn target
	Icon        string
	Target      Range
	XP          Range
	Difficulty  Difficulty
}

// DefaultTemplates is the built-in challenge table.
var DefaultTemplates = []Template{
	{TypeLoginBonus, "Boas-vindas!", "Faça login no jogo hoje", "👋", Range{1, 1}, Range{25, 25}, Easy},
	{TypeCompleteSkills, "Estudante Dedicado", "Complete {target} habilidade(s) hoje", "📖", Range{1, 2}, Range{50, 75}, Easy},
	{TypeStudyTime, "Tempo de Estudo", "Estude por {target} minutos hoje", "⏱️", Range{15, 30}, Range{40, 60}, Easy},

	{TypeCompleteSkills, "Maratonista", "Complete {target} habilidades hoje", "🏃", Range{3, 5}, Range{100, 150}, Medium},
	{TypePerfectQuiz, "Perfeição", "Acerte {target} quiz(zes) com 100%", "💯", Range{1, 2}, Range{75, 125}, Medium},
	{TypeStudyTime, "Sessão Intensiva", "Estude por {target} minutos hoje", "🔥", Range{45, 60}, Range{80, 120}, Medium},
	{TypeDisciplineProgress, "Foco Total", "Avance {target}% em uma disciplina", "🎯", Range{5, 10}, Range{100, 150}, Medium},

	{TypeCompleteSkills, "Lenda do Estudo", "Complete {target} habilidades hoje", "🌟", Range{7, 10}, Range{200, 300}, Hard},
	{TypePerfectQuiz, "Mestre dos Quizzes", "Acerte {target} quizzes com 100%", "🏆", Range{3, 5}, Range{150, 250}, Hard},
	{TypeStreakMaintain, "Chama Imortal", "Mantenha seu streak de {target} dias", "🔱", Range{7, 14}, Range{200, 350}, Hard},
}

// hardBonuses are the extra rewards a hard challenge may carry.
var hardBonuses = []Bonus{
	{Type: BonusStreakProtection, Value: 1},
	{Type: BonusXPMultiplier, Value: 1.5},
}

// Selector chooses the challenges for a new day.
type Selector interface {
	Select(now time.Time, expiresAt time.Time) []Challenge
}

// TemplateSelector draws a roster from a template table: the login bonus,
// one other easy challenge, two distinct medium challenges and one hard one.
type TemplateSelector struct {
	mu        sync.Mutex // guards rng
	templates []Template
	rng       *rand.Rand
	newID     func() string
}

// SelectorOption configures a TemplateSelector.
type SelectorOption func(*TemplateSelector)

// WithTemplates replaces the template table.
func WithTemplates(t []Template) SelectorOption {
	return func(s *TemplateSelector) {
		s.templates = t
	}
}

// WithRand sets the random source, mainly for deterministic tests.
func WithRand(r *rand.Rand) SelectorOption {
	return func(s *TemplateSelector) {
		s.rng = r
	}
}

// WithIDFunc sets the challenge id generator.
func WithIDFunc(f func() string) SelectorOption {
	return func(s *TemplateSelector) {
		s.newID = f
	}
}

// NewTemplateSelector creates a selector over DefaultTemplates.
func NewTemplateSelector(opts ...SelectorOption) *TemplateSelector {
	s := &TemplateSelector{
		templates: DefaultTemplates,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select draws a fresh roster.
func (s *TemplateSelector) Select(_ time.Time, expiresAt time.Time) []Challenge {
	s.mu.Lock()
	defer s.mu.Unlock()

	var login *Template
	var easy, medium, hard []Template
	for i := range s.templates {
		t := s.templates[i]
		switch {
		case t.Type == TypeLoginBonus:
			if login == nil {
				login = &s.templates[i]
			}
		case t.Difficulty == Easy:
			easy = append(easy, t)
		case t.Difficulty == Medium:
			medium = append(medium, t)
		case t.Difficulty == Hard:
			hard = append(hard, t)
		}
	}

	var out []Challenge
	if login != nil {
		out = append(out, s.generate(*login, expiresAt))
	}
	if len(easy) > 0 {
		out = append(out, s.generate(easy[s.rng.IntN(len(easy))], expiresAt))
	}
	s.rng.Shuffle(len(medium), func(i, j int) { medium[i], medium[j] = medium[j], medium[i] })
	for i := 0; i < 2 && i < len(medium); i++ {
		out = append(out, s.generate(medium[i], expiresAt))
	}
	if len(hard) > 0 {
		out = append(out, s.generate(hard[s.rng.IntN(len(hard))], expiresAt))
	}
	return out
}

func (s *TemplateSelector) generate(t Template, expiresAt time.Time) Challenge {
	target := s.between(t.Target)
	c := Challenge{
		ID:          s.newID(),
		Type:        t.Type,
		Title:       t.Title,
		Description: strings.ReplaceAll(t.Description, "{target}", strconv.Itoa(target)),
		Icon:        t.Icon,
		Target:      target,
		XPReward:    roundTo5(s.between(t.XP)),
		Difficulty:  t.Difficulty,
		ExpiresAt:   expiresAt,
	}
	// Logging in is what creates the roster, so the bonus starts complete.
	if t.Type == TypeLoginBonus {
		c.Current = c.Target
	}
	if t.Difficulty == Hard {
		b := hardBonuses[s.rng.IntN(len(hardBonuses))]
		c.Bonus = &b
	}
	return c
}

func (s *TemplateSelector) between(r Range) int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + s.rng.IntN(r.Max-r.Min+1)
}

func roundTo5(xp int) int {
	return int(math.Round(float64(xp)/5)) * 5
}
