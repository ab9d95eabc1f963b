package curriculum

import "fmt"

// Finding codes reported by Validate and CheckReferences.
const (
	CodeMissingCurriculumData = "MISSING_CURRICULUM_DATA"
	CodeMissingAreas          = "MISSING_AREAS"
	CodeMissingAreaID         = "MISSING_AREA_ID"
	CodeEmptyArea             = "EMPTY_AREA"
	CodeMissingTopics         = "MISSING_TOPICS"
	CodeEmptyTopic            = "EMPTY_TOPIC"
	CodeDanglingPrerequisite  = "DANGLING_PREREQUISITE"
	CodeDuplicateSkillID      = "DUPLICATE_SKILL_ID"
)

// Finding is one structural defect located inside the model.
type Finding struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// ValidationResult collects findings. Valid is true iff Errors is empty.
type ValidationResult struct {
	Valid    bool      `json:"isValid"`
	Errors   []Finding `json:"errors"`
	Warnings []Finding `json:"warnings"`
}

func newResult() ValidationResult {
	return ValidationResult{Errors: []Finding{}, Warnings: []Finding{}}
}

func (r *ValidationResult) errorf(code, path, format string, args ...any) {
	r.Errors = append(r.Errors, Finding{Code: code, Message: fmt.Sprintf(format, args...), Path: path})
}

func (r *ValidationResult) warnf(code, path, format string, args ...any) {
	r.Warnings = append(r.Warnings, Finding{Code: code, Message: fmt.Sprintf(format, args...), Path: path})
}

// Validate walks the model and reports structural defects. Every rule is
// checked; nothing short-circuits.
func Validate(m *Model) ValidationResult {
	res := newResult()

	if m == nil || m.CurriculumData == nil {
		res.errorf(CodeMissingCurriculumData, "curriculumData", "curriculum data not found")
	}

	areas := m.Areas()
	if len(areas) == 0 {
		res.errorf(CodeMissingAreas, "curriculumData.areas", "no knowledge areas found")
	}

	for a, area := range areas {
		areaPath := fmt.Sprintf("curriculumData.areas[%d]", a)
		if area.ID == "" {
			res.errorf(CodeMissingAreaID, areaPath+".id", "area %d has no id", a)
		}
		if len(area.Disciplines) == 0 {
			res.warnf(CodeEmptyArea, areaPath+".disciplines", "area %q has no disciplines", area.Name)
		}

		for d, disc := range area.Disciplines {
			discPath := fmt.Sprintf("%s.disciplines[%d]", areaPath, d)
			if len(disc.MainTopics) == 0 {
				res.errorf(CodeMissingTopics, discPath+".mainTopics", "discipline %q has no topics", disc.Name)
			}
			for t, topic := range disc.MainTopics {
				if len(topic.AtomicTopics) == 0 {
					res.warnf(CodeEmptyTopic, fmt.Sprintf("%s.mainTopics[%d].atomicTopics", discPath, t),
						"topic %q has no atomic topics", topic.Name)
				}
			}
		}
	}

	res.Valid = len(res.Errors) == 0
	return res
}

// CheckReferences reports prerequisite ids that match no skill and skill ids
// defined more than once. Both are warnings: dangling prerequisites only make
// a skill permanently locked, and duplicates resolve to the last definition.
func CheckReferences(m *Model) ValidationResult {
	res := newResult()

	type located struct {
		skill *Skill
		path  string
	}
	var all []located
	seen := make(map[string]string)

	visit := func(skills []Skill, base string) {
		for i := range skills {
			sk := &skills[i]
			path := fmt.Sprintf("%s.specificSkills[%d]", base, i)
			if first, dup := seen[sk.ID]; dup {
				res.warnf(CodeDuplicateSkillID, path+".id", "skill id %q already defined at %s", sk.ID, first)
			} else {
				seen[sk.ID] = path
			}
			all = append(all, located{sk, path})
		}
	}

	for a, area := range m.Areas() {
		for d, disc := range area.Disciplines {
			for t, topic := range disc.MainTopics {
				for at, atomic := range topic.AtomicTopics {
					atomicPath := fmt.Sprintf("curriculumData.areas[%d].disciplines[%d].mainTopics[%d].atomicTopics[%d]", a, d, t, at)
					for c, concept := range atomic.Concepts {
						visit(concept.Skills, fmt.Sprintf("%s.individualConcepts[%d]", atomicPath, c))
					}
					visit(atomic.Skills, atomicPath)
				}
			}
		}
	}

	for _, l := range all {
		for p, id := range l.skill.Prerequisites {
			if _, ok := seen[id]; !ok {
				res.warnf(CodeDanglingPrerequisite, fmt.Sprintf("%s.prerequisites[%d]", l.path, p),
					"skill %q requires unknown skill %q", l.skill.ID, id)
			}
		}
	}

	res.Valid = true
	return res
}

// Merge appends other's findings to r and recomputes Valid.
func (r ValidationResult) Merge(other ValidationResult) ValidationResult {
	out := ValidationResult{
		Errors:   append(append([]Finding{}, r.Errors...), other.Errors...),
		Warnings: append(append([]Finding{}, r.Warnings...), other.Warnings...),
	}
	out.Valid = len(out.Errors) == 0
	return out
}
