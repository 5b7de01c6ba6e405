package domain

import (
	"fmt"
	"time"
)

// Modality is the scoring convention of a tournament
type Modality string

const (
	ModalityPoints Modality = "16 puntos"
	ModalityGames  Modality = "4 games"
)

// MatchPoints is the number of ranking points distributed by a finished match
const MatchPoints = 16

// Valid reports whether m is a known modality
func (m Modality) Valid() bool {
	return m == ModalityPoints || m == ModalityGames
}

// TournamentStatus represents the lifecycle status of a tournament
type TournamentStatus string

const (
	StatusPlanned    TournamentStatus = "planned"
	StatusInProgress TournamentStatus = "in_progress"
	StatusCompleted  TournamentStatus = "completed"
)

// Valid reports whether s is a known status
func (s TournamentStatus) Valid() bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Tournament is one Americano event
type Tournament struct {
	ID               int64            `json:"id"`
	Date             time.Time        `json:"date"`
	Location         string           `json:"location,omitempty"`
	CourtsAvailable  int              `json:"courts_available"`
	MatchesPerPlayer int              `json:"matches_per_player"`
	Modality         Modality         `json:"modality"`
	Status           TournamentStatus `json:"status"`
	CreatedAt        time.Time        `json:"created_at"`
}

// TournamentSummary is a tournament with its match progress counters
type TournamentSummary struct {
	Tournament
	TotalMatches     int `json:"total_matches"`
	CompletedMatches int `json:"completed_matches"`
}

// Enrollment is a player's membership in a tournament
type Enrollment struct {
	TournamentID int64  `json:"tournament_id"`
	PlayerID     int64  `json:"player_id"`
	PlayerName   string `json:"name"`
	CurrentScore int    `json:"current_score"`
}

// Standing is one row of a tournament ranking
type Standing struct {
	Rank            int    `json:"rank"`
	PlayerID        int64  `json:"player_id"`
	Name            string `json:"name"`
	CurrentScore    int    `json:"current_score"`
	GamesPlayed     int    `json:"games_played"`
	MatchesAssigned int    `json:"matches_assigned"`
}

// ScheduleState is the scheduling phase of a tournament derived from its matches
type ScheduleState string

const (
	StateNeedsFirstRound ScheduleState = "needs_first_round"
	StateInProgress      ScheduleState = "in_progress"
	StateFullyScheduled  ScheduleState = "fully_scheduled"
	StateCompleted       ScheduleState = "completed"
)

// CreateTournamentRequest represents a request to create a tournament
type CreateTournamentRequest struct {
	Date             time.Time `json:"date"`
	Location         string    `json:"location,omitempty"`
	CourtsAvailable  int       `json:"courtsAvailable"`
	MatchesPerPlayer int       `json:"matchesPerPlayer,omitempty"`
	Modality         Modality  `json:"modality,omitempty"`
	PlayerIDs        []int64   `json:"playerIds"`
}

// UpdateTournamentRequest replaces a tournament's basic info and roster
type UpdateTournamentRequest struct {
	Date            time.Time `json:"date"`
	Location        string    `json:"location,omitempty"`
	CourtsAvailable int       `json:"courtsAvailable"`
	Modality        Modality  `json:"modality,omitempty"`
	PlayerIDs       []int64   `json:"playerIds"`
}

// MinPlayers is the smallest roster a tournament accepts
const MinPlayers = 8

// DefaultMatchesPerPlayer is used when a create request leaves the target empty
const DefaultMatchesPerPlayer = 3

// Validate checks the request and fills defaults
func (r *CreateTournamentRequest) Validate() error {
	if r.MatchesPerPlayer == 0 {
		r.MatchesPerPlayer = DefaultMatchesPerPlayer
	}
	if r.Modality == "" {
		r.Modality = ModalityPoints
	}
	return validateRoster(r.Date, r.CourtsAvailable, r.MatchesPerPlayer, r.Modality, r.PlayerIDs)
}

// Validate checks the request and fills defaults
func (r *UpdateTournamentRequest) Validate() error {
	return validateRoster(r.Date, r.CourtsAvailable, 1, r.Modality, r.PlayerIDs)
}

func validateRoster(date time.Time, courts, target int, modality Modality, playerIDs []int64) error {
	if date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrInvalidRequest)
	}
	if courts < 1 {
		return fmt.Errorf("%w: at least one court is required", ErrInvalidRequest)
	}
	if target < 1 {
		return fmt.Errorf("%w: matches per player must be positive", ErrInvalidRequest)
	}
	if modality != "" && !modality.Valid() {
		return fmt.Errorf("%w: unknown modality %q", ErrInvalidRequest, modality)
	}
	seen := make(map[int64]bool, len(playerIDs))
	for _, id := range playerIDs {
		if seen[id] {
			return fmt.Errorf("%w: player %d listed twice", ErrInvalidRequest, id)
		}
		seen[id] = true
	}
	if len(seen) < MinPlayers {
		return fmt.Errorf("%w: need at least %d players", ErrInvalidRequest, MinPlayers)
	}
	return nil
}
