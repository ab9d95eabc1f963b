package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-progress/internal/challenge"
)

type challengesResponse struct {
	Challenges []challenge.Challenge `json:"challenges"`
	Summary    challenge.Summary     `json:"summary"`
	Remaining  challenge.Remaining   `json:"remaining"`
}

func (s *Server) handleChallenges(w http.ResponseWriter, r *http.Request) {
	board, release := s.cfg.Challenges.Acquire(r.PathValue("id"))
	defer release()
	cs, err := board.Challenges(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challengesResponse{
		Challenges: cs,
		Summary:    challenge.Summarize(cs),
		Remaining:  board.TimeRemaining(),
	})
}

type progressRequest struct {
	Type  challenge.Type `json:"type"`
	Delta int            `json:"delta"`
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "unknown challenge type")
		return
	}

	board, release := s.cfg.Challenges.Acquire(r.PathValue("id"))
	defer release()
	updated, err := board.ReportProgress(r.Context(), req.Type, req.Delta)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

type claimResponse struct {
	Reward  challenge.Reward `json:"reward"`
	TotalXP *int             `json:"totalXp,omitempty"`
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	learnerID := r.PathValue("id")
	board, release := s.cfg.Challenges.Acquire(learnerID)
	defer release()
	reward, ok, err := board.Claim(r.Context(), r.PathValue("cid"))
	if err != nil {
		writeErr(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "challenge not claimable")
		return
	}

	resp := claimResponse{Reward: reward}
	if s.cfg.Ledger != nil {
		total, err := s.cfg.Ledger.TotalXP(r.Context(), learnerID)
		if err != nil {
			slog.Warn("failed to read total xp", "learner_id", learnerID, "error", err)
		} else {
			resp.TotalXP = &total
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRemaining(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Challenges.TimeRemaining())
}

// handleComplete records a completed skill and feeds it to the learner's
// complete_skills challenges.
func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	learnerID, skillID := r.PathValue("id"), r.PathValue("skill")
	if _, err := s.cfg.Curriculum.Skill(skillID); err != nil {
		writeErr(w, err)
		return
	}

	added, err := s.cfg.Progress.MarkCompleted(r.Context(), learnerID, skillID)
	if err != nil {
		writeErr(w, err)
		return
	}

	updated := []challenge.Challenge{}
	if added {
		board, release := s.cfg.Challenges.Acquire(learnerID)
		defer release()
		updated, err = board.ObserveCompletedSkills(r.Context(), []string{skillID})
		if err != nil {
			writeErr(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"skillId": skillID,
		"added":   added,
		"updated": updated,
	})
}
