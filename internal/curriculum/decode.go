package curriculum

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultDifficulty    = Beginner
	defaultEstimatedTime = "1h"
)

// Decode parses one content source into a Model. YAML sources are detected by
// extension; everything else is read as JSON. Unknown fields are ignored.
//
// When the source name starts with a code token ("CM1 - Matemática.json"),
// every id and prerequisite reference is namespaced as "CM1.<id>" so sources
// authored independently cannot collide. Skills missing a difficulty,
// estimated time or prerequisite list receive defaults.
func Decode(name string, data []byte) (*Model, error) {
	raw, err := toJSON(name, data)
	if err != nil {
		return nil, err
	}
	return decodeJSON(name, raw)
}

func decodeJSON(name string, raw []byte) (*Model, error) {
	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	if code := SourceCode(name); code != "" {
		prefixIDs(m.Areas(), code)
	}
	applySkillDefaults(m.Areas())

	return &m, nil
}

// SourceCode extracts the namespace code from a source name: the text before
// the first space of the base name. Names without a space have no code.
func SourceCode(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	code, _, found := strings.Cut(base, " ")
	if !found {
		return ""
	}
	return code
}

func isYAML(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// toJSON converts a YAML payload to JSON so a single decoder and the schema
// gate see the same document.
func toJSON(name string, data []byte) ([]byte, error) {
	if !isYAML(name) {
		return data, nil
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert %s to json: %w", name, err)
	}
	return raw, nil
}

func prefix(code, id string) string {
	if id == "" {
		return id
	}
	return code + "." + id
}

func prefixIDs(areas []Area, code string) {
	for a := range areas {
		area := &areas[a]
		area.ID = prefix(code, area.ID)
		for d := range area.Disciplines {
			disc := &area.Disciplines[d]
			disc.ID = prefix(code, disc.ID)
			disc.Code = code
			for t := range disc.MainTopics {
				topic := &disc.MainTopics[t]
				topic.ID = prefix(code, topic.ID)
				for at := range topic.AtomicTopics {
					atomic := &topic.AtomicTopics[at]
					atomic.ID = prefix(code, atomic.ID)
					for c := range atomic.Concepts {
						concept := &atomic.Concepts[c]
						concept.ID = prefix(code, concept.ID)
						prefixSkills(concept.Skills, code)
					}
					prefixSkills(atomic.Skills, code)
				}
			}
		}
	}
}

func prefixSkills(skills []Skill, code string) {
	for i := range skills {
		skills[i].ID = prefix(code, skills[i].ID)
		for p, id := range skills[i].Prerequisites {
			skills[i].Prerequisites[p] = prefix(code, id)
		}
	}
}

func applySkillDefaults(areas []Area) {
	fill := func(skills []Skill) {
		for i := range skills {
			sk := &skills[i]
			if sk.Difficulty == "" {
				sk.Difficulty = defaultDifficulty
			}
			if sk.EstimatedTime == "" {
				sk.EstimatedTime = defaultEstimatedTime
			}
			if sk.Prerequisites == nil {
				sk.Prerequisites = []string{}
			}
		}
	}
	for a := range areas {
		for d := range areas[a].Disciplines {
			for t := range areas[a].Disciplines[d].MainTopics {
				topic := &areas[a].Disciplines[d].MainTopics[t]
				for at := range topic.AtomicTopics {
					atomic := &topic.AtomicTopics[at]
					for c := range atomic.Concepts {
						fill(atomic.Concepts[c].Skills)
					}
					fill(atomic.Skills)
				}
			}
		}
	}
}

// UnmarshalJSON accepts the Portuguese field names some sources still use.
func (s *Step) UnmarshalJSON(data []byte) error {
	type plain Step
	var aux struct {
		plain
		NumeroPasso          *int     `json:"numeroPasso"`
		Subpassos            []string `json:"subpassos"`
		Verificacao          string   `json:"verificacao"`
		ObjetivoAprendizagem string   `json:"objetivoAprendizagem"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	*s = Step(aux.plain)
	if aux.NumeroPasso != nil && s.StepNumber == 0 {
		s.StepNumber = *aux.NumeroPasso
	}
	if s.SubSteps == nil {
		s.SubSteps = aux.Subpassos
	}
	if s.Verification == "" {
		s.Verification = aux.Verificacao
	}
	if s.LearningObjective == "" {
		s.LearningObjective = aux.ObjetivoAprendizagem
	}
	if s.SubSteps == nil {
		s.SubSteps = []string{}
	}
	return nil
}
