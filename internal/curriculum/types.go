package curriculum

// Difficulty is a skill's authored difficulty level.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
)

// Valid reports whether d is one of the known levels.
func (d Difficulty) Valid() bool {
	switch d {
	case Beginner, Intermediate, Advanced:
		return true
	}
	return false
}

// Model is the merged curriculum assembled from every content source.
type Model struct {
	FormatVersion  string `json:"formatVersion"`
	ExportDate     string `json:"exportDate"`
	AppVersion     string `json:"appVersion"`
	CurriculumData *Data  `json:"curriculumData"`
}

// Data is the root of the content hierarchy.
type Data struct {
	Metadata *Metadata `json:"metadata,omitempty"`
	Areas    []Area    `json:"areas"`
}

// Metadata is advisory information carried by sources. Nothing in the engine depends on it.
type Metadata struct {
	StartDate         string `json:"startDate,omitempty"`
	Duration          string `json:"duration,omitempty"`
	DailyStudyHours   string `json:"dailyStudyHours,omitempty"`
	TotalAtomicSkills int    `json:"totalAtomicSkills,omitempty"`
	Version           string `json:"version,omitempty"`
	LastUpdated       string `json:"lastUpdated,omitempty"`
	Institution       string `json:"institution,omitempty"`
	BasedOn           string `json:"basedOn,omitempty"`
}

// Area is a top-level knowledge domain.
type Area struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	TotalSkills int          `json:"totalSkills,omitempty"`
	Disciplines []Discipline `json:"disciplines"`
}

// Discipline is a course-like unit inside an Area.
type Discipline struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	TotalSkills int         `json:"totalSkills,omitempty"`
	MainTopics  []MainTopic `json:"mainTopics"`

	// Code is the namespace code of the source the discipline came from,
	// empty for sources without one.
	Code string `json:"-"`
}

// MainTopic groups atomic topics inside a Discipline.
type MainTopic struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Description  string        `json:"description,omitempty"`
	AtomicTopics []AtomicTopic `json:"atomicTopics"`
}

// AtomicTopic groups concepts. Some sources attach skills directly to the
// atomic topic instead of nesting them in a concept; both are indexed.
type AtomicTopic struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Concepts    []Concept `json:"individualConcepts"`
	Skills      []Skill   `json:"specificSkills,omitempty"`
}

// Concept is the innermost container of skills.
type Concept struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Skills      []Skill `json:"specificSkills"`
}

// Skill is the smallest completable learning unit.
type Skill struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Difficulty    Difficulty `json:"difficulty"`
	EstimatedTime string     `json:"estimatedTime"`
	Prerequisites []string   `json:"prerequisites"`
	Expansion     *Expansion `json:"atomicExpansion,omitempty"`
}

// Expansion is the learning payload shown when a skill is studied.
type Expansion struct {
	Steps                      []Step   `json:"steps"`
	PracticalExample           string   `json:"practicalExample"`
	FinalVerifications         []string `json:"finalVerifications"`
	AssessmentCriteria         []string `json:"assessmentCriteria"`
	CrossCurricularConnections []string `json:"crossCurricularConnections"`
	RealWorldApplication       string   `json:"realWorldApplication"`
}

// Step is one ordered step of an Expansion.
type Step struct {
	StepNumber        int      `json:"stepNumber"`
	Title             string   `json:"title"`
	SubSteps          []string `json:"subSteps"`
	Verification      string   `json:"verification"`
	EstimatedTime     string   `json:"estimatedTime"`
	Materials         []string `json:"materials"`
	Tips              string   `json:"tips"`
	LearningObjective string   `json:"learningObjective"`
	CommonMistakes    []string `json:"commonMistakes"`
}

// DisciplineSummary is the flattened view of a discipline used by listings.
type DisciplineSummary struct {
	ID          string `json:"id"`
	Code        string `json:"code"` // namespace code, e.g. "CM1"
	Name        string `json:"name"`
	Description string `json:"description"`
	TotalSkills int    `json:"totalSkills"`
}

// Areas returns the model's areas, or nil when the root is missing.
func (m *Model) Areas() []Area {
	if m == nil || m.CurriculumData == nil {
		return nil
	}
	return m.CurriculumData.Areas
}

// Empty reports whether the model carries no areas. Callers must check this
// explicitly after Load since an all-sources-failed load is not an error.
func (m *Model) Empty() bool {
	return len(m.Areas()) == 0
}

// Skills returns the discipline's skills flattened in authored order: for each
// atomic topic, concept skills first, then skills attached to the topic itself.
func (d *Discipline) Skills() []Skill {
	var skills []Skill
	for _, topic := range d.MainTopics {
		for _, atomic := range topic.AtomicTopics {
			for _, concept := range atomic.Concepts {
				skills = append(skills, concept.Skills...)
			}
			skills = append(skills, atomic.Skills...)
		}
	}
	return skills
}
