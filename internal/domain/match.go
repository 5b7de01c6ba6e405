package domain

import (
	"fmt"
	"time"
)

// Team identifiers within a match
const (
	Team1 = 1
	Team2 = 2
)

// PlayersPerMatch is the size of a doubles match
const PlayersPerMatch = 4

// Match is one doubles game on one court
type Match struct {
	ID             int64           `json:"id"`
	TournamentID   int64           `json:"tournament_id"`
	RoundNumber    int             `json:"round_number"`
	CourtNumber    int             `json:"court_number"`
	CreatedAt      time.Time       `json:"created_at"`
	Participations []Participation `json:"players"`
}

// Participation is one player's seat in a match
type Participation struct {
	MatchID    int64  `json:"match_id"`
	PlayerID   int64  `json:"player_id"`
	PlayerName string `json:"name,omitempty"`
	PartnerID  int64  `json:"partner_id"`
	TeamID     int    `json:"team_id"`
	RawScore   int    `json:"score_obtained"`
	Points     int    `json:"points_won"`
	IsFiller   bool   `json:"is_filler"`
}

// IsScored reports whether the match has a recorded result
func (m *Match) IsScored() bool {
	for _, p := range m.Participations {
		if p.RawScore != 0 {
			return true
		}
	}
	return false
}

// HasPlayer reports whether playerID occupies a seat in the match
func (m *Match) HasPlayer(playerID int64) bool {
	for _, p := range m.Participations {
		if p.PlayerID == playerID {
			return true
		}
	}
	return false
}

// PlayerIDs returns the ids of all occupants
func (m *Match) PlayerIDs() []int64 {
	ids := make([]int64, 0, len(m.Participations))
	for _, p := range m.Participations {
		ids = append(ids, p.PlayerID)
	}
	return ids
}

// Team returns the participations of one team
func (m *Match) Team(teamID int) []Participation {
	var team []Participation
	for _, p := range m.Participations {
		if p.TeamID == teamID {
			team = append(team, p)
		}
	}
	return team
}

// RawScores returns the raw result of each team
func (m *Match) RawScores() (int, int) {
	var s1, s2 int
	for _, p := range m.Participations {
		switch p.TeamID {
		case Team1:
			s1 = p.RawScore
		case Team2:
			s2 = p.RawScore
		}
	}
	return s1, s2
}

// Validate checks the seat invariants: four distinct players, two per team,
// partners pointing at each other.
func (m *Match) Validate() error {
	if len(m.Participations) != PlayersPerMatch {
		return fmt.Errorf("match %d has %d participations, want %d", m.ID, len(m.Participations), PlayersPerMatch)
	}
	byPlayer := make(map[int64]Participation, PlayersPerMatch)
	perTeam := map[int]int{}
	for _, p := range m.Participations {
		if _, dup := byPlayer[p.PlayerID]; dup {
			return fmt.Errorf("match %d: player %d seated twice", m.ID, p.PlayerID)
		}
		byPlayer[p.PlayerID] = p
		if p.TeamID != Team1 && p.TeamID != Team2 {
			return fmt.Errorf("match %d: player %d has team %d", m.ID, p.PlayerID, p.TeamID)
		}
		perTeam[p.TeamID]++
	}
	if perTeam[Team1] != 2 || perTeam[Team2] != 2 {
		return fmt.Errorf("match %d: teams are %d/%d, want 2/2", m.ID, perTeam[Team1], perTeam[Team2])
	}
	for _, p := range m.Participations {
		partner, ok := byPlayer[p.PartnerID]
		if !ok || partner.PartnerID != p.PlayerID || partner.TeamID != p.TeamID || p.PartnerID == p.PlayerID {
			return fmt.Errorf("match %d: player %d has inconsistent partner %d", m.ID, p.PlayerID, p.PartnerID)
		}
	}
	return nil
}

// NewParticipations seats two teams, wiring partner references both ways.
// filler reports whether a player's seat should be flagged as filler.
func NewParticipations(team1, team2 [2]int64, filler func(playerID int64) bool) []Participation {
	seat := func(player, partner int64, team int) Participation {
		return Participation{
			PlayerID:  player,
			PartnerID: partner,
			TeamID:    team,
			IsFiller:  filler(player),
		}
	}
	return []Participation{
		seat(team1[0], team1[1], Team1),
		seat(team1[1], team1[0], Team1),
		seat(team2[0], team2[1], Team2),
		seat(team2[1], team2[0], Team2),
	}
}

// ScoreSubmission represents a request to record a match result
type ScoreSubmission struct {
	MatchID    int64  `json:"match_id"`
	Team1Score int    `json:"team1Score"`
	Team2Score int    `json:"team2Score"`
	ReportedBy string `json:"reportedBy,omitempty"`
}

// SwapRequest replaces one occupant of a match
type SwapRequest struct {
	OldPlayerID int64 `json:"oldPlayerId"`
	NewPlayerID int64 `json:"newPlayerId"`
}

// NextMatchRequest asks for a single incremental match
type NextMatchRequest struct {
	Force         bool        `json:"force"`
	CourtProgress map[int]int `json:"courtProgress,omitempty"`
}
