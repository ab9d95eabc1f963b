package httpapi

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/p-n-ai/pai-progress/internal/curriculum"
	"github.com/p-n-ai/pai-progress/internal/progression"
	"github.com/p-n-ai/pai-progress/internal/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleDisciplines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Curriculum.DisciplineSummaries())
}

func (s *Server) handleDiscipline(w http.ResponseWriter, r *http.Request) {
	d, err := s.cfg.Curriculum.Discipline(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDisciplineSkills(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.cfg.Curriculum.Discipline(id); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Curriculum.SkillsOfDiscipline(id))
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.cfg.Curriculum.Discipline(id); err != nil {
		writeErr(w, err)
		return
	}
	completed, err := s.completedSet(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, progression.BuildTree(s.cfg.Curriculum.SkillsOfDiscipline(id), completed))
}

// handleSkills searches by q and filters by difficulty; both are optional
// and combine as an intersection.
func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	level := curriculum.Difficulty(strings.ToLower(q.Get("difficulty")))
	if level != "" && !level.Valid() {
		writeError(w, http.StatusBadRequest, "difficulty must be beginner, intermediate or advanced")
		return
	}

	skills := s.cfg.Curriculum.Search(q.Get("q"))
	if level != "" {
		filtered := make([]curriculum.Skill, 0, len(skills))
		for _, sk := range skills {
			if sk.Difficulty == level {
				filtered = append(filtered, sk)
			}
		}
		skills = filtered
	}
	writeJSON(w, http.StatusOK, skills)
}

func (s *Server) handleSkill(w http.ResponseWriter, r *http.Request) {
	sk, err := s.cfg.Curriculum.Skill(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sk)
}

type unlockableResponse struct {
	SkillID    string   `json:"skillId"`
	Unlockable bool     `json:"unlockable"`
	Missing    []string `json:"missing"`
}

func (s *Server) handleUnlockable(w http.ResponseWriter, r *http.Request) {
	sk, err := s.cfg.Curriculum.Skill(r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	completed, err := s.completedSet(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	missing := []string{}
	for _, p := range sk.Prerequisites {
		if !completed.Has(p) {
			missing = append(missing, p)
		}
	}
	writeJSON(w, http.StatusOK, unlockableResponse{
		SkillID:    sk.ID,
		Unlockable: progression.IsUnlockable(sk, completed),
		Missing:    missing,
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	m, err := s.cfg.Curriculum.Reload(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"areas":   len(m.Areas()),
		"skills":  len(s.cfg.Curriculum.Skills()),
		"sources": s.cfg.Curriculum.LastReport(),
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	m := s.cfg.Curriculum.Model()
	writeJSON(w, http.StatusOK, curriculum.Validate(m).Merge(curriculum.CheckReferences(m)))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	completed, err := s.completedSet(r)
	if err != nil {
		writeErr(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, s.cfg.Curriculum, completed); err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="curriculum.xlsx"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// completedSet loads the completed skills of the "learner" query parameter.
// Without one the set is empty.
func (s *Server) completedSet(r *http.Request) (progression.Set, error) {
	id := r.URL.Query().Get("learner")
	if id == "" {
		return progression.NewSet(), nil
	}
	ids, err := s.cfg.Progress.CompletedSkills(r.Context(), id)
	if err != nil {
		return nil, err
	}
	return progression.NewSet(ids...), nil
}
