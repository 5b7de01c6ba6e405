package handler

import (
	"fmt"
	"net/http"

	"github.com/americano-tennis/internal/domain"
)

// ScoreRequest is the body of a score submission. Both scores must be
// present; an explicit 0-0 clears a result.
type ScoreRequest struct {
	Team1Score *int   `json:"team1Score"`
	Team2Score *int   `json:"team2Score"`
	ReportedBy string `json:"reportedBy,omitempty"`
}

// GetMatch returns a match with its players
func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	match, err := h.tournaments.GetMatch(r.Context(), matchID)
	if err != nil {
		h.writeServiceError(w, "get match", err)
		return
	}
	h.writeSuccess(w, match)
}

// SubmitScore records or corrects a match result
func (h *Handler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req ScoreRequest
	if err := decode(r, &req, false); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Team1Score == nil || req.Team2Score == nil {
		h.writeError(w, http.StatusBadRequest, fmt.Errorf("%w: both scores are required", domain.ErrInvalidRequest))
		return
	}

	match, err := h.tournaments.SubmitScore(r.Context(), domain.ScoreSubmission{
		MatchID:    matchID,
		Team1Score: *req.Team1Score,
		Team2Score: *req.Team2Score,
		ReportedBy: req.ReportedBy,
	})
	if err != nil {
		h.writeServiceError(w, "submit score", err)
		return
	}
	h.writeSuccess(w, match)
}

// ShuffleMatch re-pairs an unplayed match
func (h *Handler) ShuffleMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	match, err := h.tournaments.ShuffleMatch(r.Context(), matchID)
	if err != nil {
		h.writeServiceError(w, "shuffle match", err)
		return
	}
	h.writeSuccess(w, match)
}

// SwapPlayer replaces one occupant of a match
func (h *Handler) SwapPlayer(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.SwapRequest
	if err := decode(r, &req, false); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	match, err := h.tournaments.SwapPlayer(r.Context(), matchID, req)
	if err != nil {
		h.writeServiceError(w, "swap player", err)
		return
	}
	h.writeSuccess(w, match)
}

// DeleteMatch removes a match and recomputes its players' scores
func (h *Handler) DeleteMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := idParam(r, "matchID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.tournaments.DeleteMatch(r.Context(), matchID); err != nil {
		h.writeServiceError(w, "delete match", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}
