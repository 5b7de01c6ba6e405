package matchmaker

import "github.com/americano-tennis/internal/domain"

type pairKey struct {
	a, b int64
}

func newPairKey(a, b int64) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{a, b}
}

// History records who has partnered and who has faced whom in a tournament.
// It is always rebuilt from persisted matches, never cached between calls.
type History struct {
	partners  map[pairKey]int
	opponents map[pairKey]int
}

// NewHistory returns an empty history
func NewHistory() *History {
	return &History{
		partners:  make(map[pairKey]int),
		opponents: make(map[pairKey]int),
	}
}

// BuildHistory derives the history from a tournament's matches, ignoring the
// match with id skipMatchID (0 skips nothing).
func BuildHistory(matches []domain.Match, skipMatchID int64) *History {
	h := NewHistory()
	for i := range matches {
		if skipMatchID != 0 && matches[i].ID == skipMatchID {
			continue
		}
		h.Record(&matches[i])
	}
	return h
}

// Record adds one match to the history
func (h *History) Record(m *domain.Match) {
	for _, p := range m.Participations {
		if p.PartnerID != 0 && p.PlayerID < p.PartnerID {
			h.partners[newPairKey(p.PlayerID, p.PartnerID)]++
		}
	}
	for _, a := range m.Team(domain.Team1) {
		for _, b := range m.Team(domain.Team2) {
			h.opponents[newPairKey(a.PlayerID, b.PlayerID)]++
		}
	}
}

// Partnered reports whether a and b have played on the same team
func (h *History) Partnered(a, b int64) bool {
	return h.partners[newPairKey(a, b)] > 0
}

// Opposed reports whether a and b have played against each other
func (h *History) Opposed(a, b int64) bool {
	return h.opponents[newPairKey(a, b)] > 0
}

// Candidate is an enrolled player with the rotation counters used for selection
type Candidate struct {
	PlayerID    int64
	GamesPlayed int
	LastRound   int
}

// Candidates computes gamesPlayed (every seat, filler or not) and the last
// round played for each enrolled player, ignoring the match skipMatchID.
func Candidates(enrollments []domain.Enrollment, matches []domain.Match, skipMatchID int64) []Candidate {
	index := make(map[int64]int, len(enrollments))
	cands := make([]Candidate, len(enrollments))
	for i, e := range enrollments {
		cands[i] = Candidate{PlayerID: e.PlayerID}
		index[e.PlayerID] = i
	}
	for _, m := range matches {
		if skipMatchID != 0 && m.ID == skipMatchID {
			continue
		}
		for _, p := range m.Participations {
			i, ok := index[p.PlayerID]
			if !ok {
				continue
			}
			cands[i].GamesPlayed++
			if m.RoundNumber > cands[i].LastRound {
				cands[i].LastRound = m.RoundNumber
			}
		}
	}
	return cands
}

// GamesPlayed returns a lookup of games played by player id
func GamesPlayed(cands []Candidate) map[int64]int {
	games := make(map[int64]int, len(cands))
	for _, c := range cands {
		games[c.PlayerID] = c.GamesPlayed
	}
	return games
}

// MinGamesPlayed returns the smallest gamesPlayed across candidates, 0 if none
func MinGamesPlayed(cands []Candidate) int {
	if len(cands) == 0 {
		return 0
	}
	lowest := cands[0].GamesPlayed
	for _, c := range cands[1:] {
		if c.GamesPlayed < lowest {
			lowest = c.GamesPlayed
		}
	}
	return lowest
}
