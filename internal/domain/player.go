package domain

import "time"

// Player represents a player in the roster
type Player struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// PlayerInfo is a lightweight player information struct used for caching
type PlayerInfo struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// PlayerStats aggregates a player's results across every tournament
type PlayerStats struct {
	PlayerID          int64  `json:"player_id"`
	Name              string `json:"name"`
	TournamentsPlayed int    `json:"tournaments_played"`
	TotalPoints       int    `json:"total_points"`
	Victories         int    `json:"victories"`
	Draws             int    `json:"draws"`
	Defeats           int    `json:"defeats"`
	PointsFor         int    `json:"points_for"`
	PointsAgainst     int    `json:"points_against"`
}

// CreatePlayerRequest represents a request to add a player to the roster
type CreatePlayerRequest struct {
	Name string `json:"name"`
}

// UpdatePlayerRequest represents a partial player update
type UpdatePlayerRequest struct {
	Name   *string `json:"name,omitempty"`
	Active *bool   `json:"active,omitempty"`
}
