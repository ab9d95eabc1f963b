// Package curriculum loads, indexes and validates the curriculum content graph.
package curriculum

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"

	"github.com/p-n-ai/pai-progress/internal/platform/metrics"
)

const (
	formatVersion        = "1.0"
	defaultConcurrency   = 8
	defaultSourceTimeout = 10 * time.Second
	defaultAppVersion    = "dev"
)

var (
	numberedPrefix   = regexp.MustCompile(`^[\d.]+:\s*`)
	competencyPrefix = regexp.MustCompile(`^(C\d|CL\d)-\d+:\s*`)
)

// SourceResult describes how one source fared in the most recent retrieval.
type SourceResult struct {
	Name   string `json:"name"`
	Digest string `json:"digest,omitempty"`
	Areas  int    `json:"areas"`
	Stage  string `json:"stage,omitempty"` // failing stage: fetch, schema or decode
	Err    error  `json:"-"`
}

// OK reports whether the source was merged.
func (r SourceResult) OK() bool { return r.Err == nil }

// Option configures a Store.
type Option func(*Store)

// WithConcurrency bounds how many sources are fetched at once.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithSourceTimeout bounds a single source fetch. Zero disables the limit.
func WithSourceTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.sourceTimeout = d
	}
}

// WithSchemaCheck toggles the JSON schema gate applied before decoding.
func WithSchemaCheck(enabled bool) Option {
	return func(s *Store) {
		s.schemaCheck = enabled
	}
}

// WithAppVersion sets the app version stamped on merged models.
func WithAppVersion(v string) Option {
	return func(s *Store) {
		s.appVersion = v
	}
}

// WithNow overrides the clock used for the model's export date.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store owns the merged curriculum model and its lookup indices. The model
// is retrieved on the first Load and memoized until Clear.
type Store struct {
	catalog       Catalog
	concurrency   int
	sourceTimeout time.Duration
	schemaCheck   bool
	appVersion    string
	now           func() time.Time

	loadMu sync.Mutex // serializes retrievals

	mu     sync.RWMutex
	snap   *snapshot
	report []SourceResult
}

// snapshot is an immutable view of one loaded model. It is built completely
// before being published, so readers never see partial indices.
type snapshot struct {
	model           *Model
	disciplines     map[string]*Discipline
	disciplineOrder []string
	skills          map[string]*Skill
	skillOrder      []string
	folded          map[string]foldedText
}

type foldedText struct {
	name        string
	description string
}

// NewStore creates a store reading from catalog. Nothing is fetched until Load.
func NewStore(catalog Catalog, opts ...Option) *Store {
	s := &Store{
		catalog:       catalog,
		concurrency:   defaultConcurrency,
		sourceTimeout: defaultSourceTimeout,
		schemaCheck:   true,
		appVersion:    defaultAppVersion,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load returns the cached model, retrieving it first if needed. Sources that
// fail are skipped; an empty model is still a successful load. The only error
// is cancellation of ctx, in which case nothing is cached.
func (s *Store) Load(ctx context.Context) (*Model, error) {
	if m := s.cached(); m != nil {
		return m, nil
	}

	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if m := s.cached(); m != nil {
		return m, nil
	}
	return s.retrieve(ctx)
}

// Reload retrieves the sources again and swaps the result in. Readers keep
// seeing the previous model until the new one is complete.
func (s *Store) Reload(ctx context.Context) (*Model, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	return s.retrieve(ctx)
}

// Clear drops the cached model and indices. It waits for an in-flight Load
// or Reload so that retrieval cannot publish over it.
func (s *Store) Clear() {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	s.snap = nil
	s.mu.Unlock()
}

// IsLoaded reports whether a model is cached.
func (s *Store) IsLoaded() bool {
	return s.cached() != nil
}

// Model returns the cached model, or nil before the first Load.
func (s *Store) Model() *Model {
	return s.cached()
}

// LastReport returns per-source results of the most recent retrieval.
func (s *Store) LastReport() []SourceResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SourceResult(nil), s.report...)
}

func (s *Store) cached() *Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil
	}
	return s.snap.model
}

func (s *Store) current() *snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Store) retrieve(ctx context.Context) (*Model, error) {
	start := time.Now()

	sources, err := s.catalog.Sources(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("load curriculum: %w", ctxErr)
		}
		slog.Warn("listing curriculum sources failed", "error", err)
		metrics.CurriculumSourceFailures.WithLabelValues("catalog").Inc()
	}

	models := make([]*Model, len(sources))
	results := make([]SourceResult, len(sources))

	// Every goroutine records its own outcome and returns nil, so one
	// failing source never cancels the others.
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			models[i], results[i] = s.loadSource(ctx, src)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load curriculum: %w", err)
	}

	model := s.merge(models)
	snap := buildSnapshot(model)
	model.CurriculumData.Metadata.TotalAtomicSkills = len(snap.skillOrder)

	s.mu.Lock()
	s.snap = snap
	s.report = results
	s.mu.Unlock()

	metrics.CurriculumLoads.Inc()
	metrics.CurriculumLoadDuration.Observe(time.Since(start).Seconds())
	metrics.CurriculumSkills.Set(float64(len(snap.skillOrder)))

	failed := 0
	for _, r := range results {
		if !r.OK() {
			failed++
		}
	}
	slog.Info("curriculum loaded",
		"sources", len(sources),
		"failed", failed,
		"areas", len(model.Areas()),
		"disciplines", len(snap.disciplineOrder),
		"skills", len(snap.skillOrder),
		"duration", time.Since(start),
	)
	return model, nil
}

func (s *Store) loadSource(ctx context.Context, src Source) (*Model, SourceResult) {
	res := SourceResult{Name: src.Name()}

	data, err := fetch(ctx, src, s.sourceTimeout)
	if err != nil {
		return nil, skip(res, "fetch", err)
	}
	res.Digest = Digest(data)

	raw, err := toJSON(res.Name, data)
	if err != nil {
		return nil, skip(res, "decode", err)
	}
	if s.schemaCheck {
		if err := CheckShape(raw); err != nil {
			return nil, skip(res, "schema", err)
		}
	}
	m, err := decodeJSON(res.Name, raw)
	if err != nil {
		return nil, skip(res, "decode", err)
	}

	res.Areas = len(m.Areas())
	slog.Debug("curriculum source loaded", "source", res.Name, "areas", res.Areas, "digest", res.Digest)
	return m, res
}

func skip(res SourceResult, stage string, err error) SourceResult {
	slog.Warn("skipping curriculum source", "source", res.Name, "stage", stage, "error", err)
	metrics.CurriculumSourceFailures.WithLabelValues(stage).Inc()
	res.Stage = stage
	res.Err = err
	return res
}

// fetch runs src.Fetch under the per-source timeout. The result is awaited
// with a select so a source that ignores its context cannot stall the load.
func fetch(ctx context.Context, src Source, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := src.Fetch(ctx)
		ch <- result{data, err}
	}()

	select {
	case r := <-ch:
		return r.data, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s: %w", src.Name(), ctx.Err())
	}
}

func (s *Store) merge(models []*Model) *Model {
	areas := []Area{}
	var meta *Metadata
	for _, m := range models {
		if m == nil {
			continue
		}
		areas = append(areas, m.Areas()...)
		if meta == nil && m.CurriculumData != nil && m.CurriculumData.Metadata != nil {
			cp := *m.CurriculumData.Metadata
			meta = &cp
		}
	}
	if meta == nil {
		meta = &Metadata{}
	}

	now := s.now()
	meta.LastUpdated = now.Format(time.DateOnly)

	return &Model{
		FormatVersion:  formatVersion,
		ExportDate:     now.UTC().Format(time.RFC3339),
		AppVersion:     s.appVersion,
		CurriculumData: &Data{Metadata: meta, Areas: areas},
	}
}

// buildSnapshot indexes the model depth-first. A repeated id keeps its first
// position in listing order while the later definition wins the lookup.
func buildSnapshot(m *Model) *snapshot {
	snap := &snapshot{
		model:       m,
		disciplines: make(map[string]*Discipline),
		skills:      make(map[string]*Skill),
		folded:      make(map[string]foldedText),
	}
	fold := cases.Fold()

	addSkills := func(skills []Skill) {
		for i := range skills {
			sk := &skills[i]
			if _, seen := snap.skills[sk.ID]; !seen {
				snap.skillOrder = append(snap.skillOrder, sk.ID)
			}
			snap.skills[sk.ID] = sk
			snap.folded[sk.ID] = foldedText{
				name:        fold.String(sk.Name),
				description: fold.String(sk.Description),
			}
		}
	}

	areas := m.Areas()
	for a := range areas {
		for d := range areas[a].Disciplines {
			disc := &areas[a].Disciplines[d]
			if _, seen := snap.disciplines[disc.ID]; !seen {
				snap.disciplineOrder = append(snap.disciplineOrder, disc.ID)
			}
			snap.disciplines[disc.ID] = disc
			for t := range disc.MainTopics {
				topic := &disc.MainTopics[t]
				for at := range topic.AtomicTopics {
					atomic := &topic.AtomicTopics[at]
					for c := range atomic.Concepts {
						addSkills(atomic.Concepts[c].Skills)
					}
					addSkills(atomic.Skills)
				}
			}
		}
	}
	return snap
}

// Discipline returns the discipline with id, or a *NotFoundError.
func (s *Store) Discipline(id string) (Discipline, error) {
	if snap := s.current(); snap != nil {
		if d, ok := snap.disciplines[id]; ok {
			return *d, nil
		}
	}
	return Discipline{}, &NotFoundError{Kind: "discipline", ID: id}
}

// Skill returns the skill with id, or a *NotFoundError.
func (s *Store) Skill(id string) (Skill, error) {
	if snap := s.current(); snap != nil {
		if sk, ok := snap.skills[id]; ok {
			return *sk, nil
		}
	}
	return Skill{}, &NotFoundError{Kind: "skill", ID: id}
}

// SkillsOfDiscipline flattens a discipline's skills in authored order. An
// unknown id yields an empty slice.
func (s *Store) SkillsOfDiscipline(id string) []Skill {
	d, err := s.Discipline(id)
	if err != nil {
		return []Skill{}
	}
	skills := d.Skills()
	if skills == nil {
		return []Skill{}
	}
	return skills
}

// Skills returns every indexed skill in insertion order.
func (s *Store) Skills() []Skill {
	return s.filter(func(*Skill, foldedText) bool { return true })
}

// Disciplines returns every indexed discipline in insertion order.
func (s *Store) Disciplines() []Discipline {
	snap := s.current()
	if snap == nil {
		return []Discipline{}
	}
	out := make([]Discipline, 0, len(snap.disciplineOrder))
	for _, id := range snap.disciplineOrder {
		out = append(out, *snap.disciplines[id])
	}
	return out
}

// Search returns skills whose name or description contains query, compared
// with Unicode case folding. Results keep insertion order.
func (s *Store) Search(query string) []Skill {
	q := cases.Fold().String(query)
	return s.filter(func(_ *Skill, f foldedText) bool {
		return strings.Contains(f.name, q) || strings.Contains(f.description, q)
	})
}

// FilterByDifficulty returns skills at the given level.
func (s *Store) FilterByDifficulty(level Difficulty) []Skill {
	return s.filter(func(sk *Skill, _ foldedText) bool {
		return sk.Difficulty == level
	})
}

func (s *Store) filter(keep func(*Skill, foldedText) bool) []Skill {
	snap := s.current()
	if snap == nil {
		return []Skill{}
	}
	out := []Skill{}
	for _, id := range snap.skillOrder {
		sk := snap.skills[id]
		if keep(sk, snap.folded[id]) {
			out = append(out, *sk)
		}
	}
	return out
}

// DisciplineSummaries lists disciplines with display names stripped of
// numbering prefixes and skill totals derived from content when present.
func (s *Store) DisciplineSummaries() []DisciplineSummary {
	disciplines := s.Disciplines()
	out := make([]DisciplineSummary, 0, len(disciplines))
	for i := range disciplines {
		d := &disciplines[i]
		total := len(d.Skills())
		if total == 0 {
			total = d.TotalSkills
		}
		out = append(out, DisciplineSummary{
			ID:          d.ID,
			Code:        d.Code,
			Name:        CleanName(d.Name),
			Description: d.Description,
			TotalSkills: total,
		})
	}
	return out
}

// CleanName strips "1.2: " and "C1-3: " style numbering from a display name.
func CleanName(name string) string {
	name = numberedPrefix.ReplaceAllString(name, "")
	return competencyPrefix.ReplaceAllString(name, "")
}
