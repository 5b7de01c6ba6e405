package handler

import (
	"net/http"
	"strconv"

	"github.com/americano-tennis/internal/domain"
)

// CreateTournamentResponse is a new tournament with its first round
type CreateTournamentResponse struct {
	Tournament *domain.Tournament `json:"tournament"`
	Matches    []domain.Match     `json:"matches"`
}

// PlanRequest optionally overrides the matches-per-player target
type PlanRequest struct {
	MatchesPerPlayer int `json:"matchesPerPlayer"`
}

// StatusRequest carries a new lifecycle status
type StatusRequest struct {
	Status domain.TournamentStatus `json:"status"`
}

// ListTournaments returns all tournaments with match counts
func (h *Handler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	tournaments, err := h.tournaments.ListTournaments(r.Context())
	if err != nil {
		h.writeServiceError(w, "list tournaments", err)
		return
	}
	h.writeSuccess(w, tournaments)
}

// CreateTournament creates a tournament, enrolls its players and generates
// the first round
func (h *Handler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTournamentRequest
	if err := decode(r, &req, false); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	tournament, matches, err := h.tournaments.CreateTournament(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "create tournament", err)
		return
	}
	h.writeCreated(w, CreateTournamentResponse{Tournament: tournament, Matches: matches})
}

// GetTournament returns a tournament by ID
func (h *Handler) GetTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	tournament, err := h.tournaments.GetTournament(r.Context(), tournamentID)
	if err != nil {
		h.writeServiceError(w, "get tournament", err)
		return
	}
	h.writeSuccess(w, tournament)
}

// DeleteTournament deletes a tournament with its matches and enrollments
func (h *Handler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := h.tournaments.DeleteTournament(r.Context(), tournamentID); err != nil {
		h.writeServiceError(w, "delete tournament", err)
		return
	}
	h.writeSuccess(w, map[string]string{"status": "deleted"})
}

// UpdateTournament replaces a tournament's basic info and roster
func (h *Handler) UpdateTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.UpdateTournamentRequest
	if err := decode(r, &req, false); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	tournament, err := h.tournaments.UpdateTournament(r.Context(), tournamentID, req)
	if err != nil {
		h.writeServiceError(w, "update tournament", err)
		return
	}
	h.writeSuccess(w, tournament)
}

// SetStatus changes a tournament's lifecycle status
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req StatusRequest
	if err := decode(r, &req, false); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	tournament, err := h.tournaments.SetStatus(r.Context(), tournamentID, req.Status)
	if err != nil {
		h.writeServiceError(w, "set status", err)
		return
	}
	h.writeSuccess(w, tournament)
}

// ListMatches returns a tournament's matches
func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	matches, err := h.tournaments.ListMatches(r.Context(), tournamentID)
	if err != nil {
		h.writeServiceError(w, "list matches", err)
		return
	}
	h.writeSuccess(w, matches)
}

// GetStandings returns the full ranking of a tournament
func (h *Handler) GetStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	standings, err := h.tournaments.GetStandings(r.Context(), tournamentID)
	if err != nil {
		h.writeServiceError(w, "get standings", err)
		return
	}
	h.writeSuccess(w, standings)
}

// GetTopStandings returns the first entries of a tournament ranking
func (h *Handler) GetTopStandings(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}

	standings, err := h.tournaments.TopStandings(r.Context(), tournamentID, limit)
	if err != nil {
		h.writeServiceError(w, "top standings", err)
		return
	}
	h.writeSuccess(w, standings)
}

// GetPlayerStanding returns one player's rank and score
func (h *Handler) GetPlayerStanding(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	playerID, err := idParam(r, "playerID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	standing, err := h.tournaments.PlayerStanding(r.Context(), tournamentID, playerID)
	if err != nil {
		h.writeServiceError(w, "player standing", err)
		return
	}
	h.writeSuccess(w, standing)
}

// GetScheduleState reports the scheduling phase of a tournament
func (h *Handler) GetScheduleState(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	state, err := h.tournaments.ScheduleState(r.Context(), tournamentID)
	if err != nil {
		h.writeServiceError(w, "schedule state", err)
		return
	}
	h.writeSuccess(w, map[string]domain.ScheduleState{"state": state})
}

// GenerateRound generates the next round across all courts
func (h *Handler) GenerateRound(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	matches, err := h.tournaments.GenerateRound(r.Context(), tournamentID)
	if err != nil {
		h.writeServiceError(w, "generate round", err)
		return
	}
	h.writeCreated(w, matches)
}

// GeneratePlan generates rounds until every player reaches the target
func (h *Handler) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req PlanRequest
	if err := decode(r, &req, true); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	matches, err := h.tournaments.GeneratePlan(r.Context(), tournamentID, req.MatchesPerPlayer)
	if err != nil {
		h.writeServiceError(w, "generate plan", err)
		return
	}
	h.writeCreated(w, matches)
}

// GenerateNextMatch generates a single match for the next free court
func (h *Handler) GenerateNextMatch(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.NextMatchRequest
	if err := decode(r, &req, true); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	match, err := h.tournaments.GenerateNextMatch(r.Context(), tournamentID, req.Force, req.CourtProgress)
	if err != nil {
		h.writeServiceError(w, "generate next match", err)
		return
	}
	h.writeCreated(w, match)
}

// ReshuffleTournament discards an unplayed schedule and generates a new one
func (h *Handler) ReshuffleTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	matches, err := h.tournaments.ReshuffleTournament(r.Context(), tournamentID)
	if err != nil {
		h.writeServiceError(w, "reshuffle tournament", err)
		return
	}
	h.writeSuccess(w, matches)
}

// SimulateResults fills every unscored match with a random valid result
func (h *Handler) SimulateResults(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	scored, err := h.tournaments.SimulateResults(r.Context(), tournamentID)
	if err != nil {
		h.writeServiceError(w, "simulate results", err)
		return
	}
	h.writeSuccess(w, map[string]int{"scored": scored})
}
