package handler

import (
	"net/http"

	"github.com/americano-tennis/internal/domain"
)

// ListPlayers returns the roster
func (h *Handler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	players, err := h.players.ListPlayers(r.Context())
	if err != nil {
		h.writeServiceError(w, "list players", err)
		return
	}
	h.writeSuccess(w, players)
}

// CreatePlayer adds a player to the roster
func (h *Handler) CreatePlayer(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePlayerRequest
	if err := decode(r, &req, false); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	player, err := h.players.CreatePlayer(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, "create player", err)
		return
	}
	h.writeCreated(w, player)
}

// UpdatePlayer renames or (de)activates a player
func (h *Handler) UpdatePlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := idParam(r, "playerID")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	var req domain.UpdatePlayerRequest
	if err := decode(r, &req, false); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	player, err := h.players.UpdatePlayer(r.Context(), playerID, req)
	if err != nil {
		h.writeServiceError(w, "update player", err)
		return
	}
	h.writeSuccess(w, player)
}

// GlobalStats returns every player's results across all tournaments
func (h *Handler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.players.GlobalStats(r.Context())
	if err != nil {
		h.writeServiceError(w, "global stats", err)
		return
	}
	h.writeSuccess(w, stats)
}
