// Package matchmaker decides who plays next and how players are split into
// balanced doubles matches.
package matchmaker

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/americano-tennis/internal/domain"
)

// Penalties applied when scoring a candidate grouping
const (
	PartnerPenalty  = 1000
	OpponentPenalty = 100
)

// MinTrials is the smallest trial budget accepted for the partition search
const MinTrials = 100

// Group is one match worth of players split into two teams
type Group struct {
	Court int
	Team1 [2]int64
	Team2 [2]int64
}

// Players returns the four occupants of the group
func (g Group) Players() [4]int64 {
	return [4]int64{g.Team1[0], g.Team1[1], g.Team2[0], g.Team2[1]}
}

// Penalty scores a single match: 1000 per team that has partnered before and
// 100 per cross-team pair that has opposed before.
func Penalty(team1, team2 [2]int64, h *History) int {
	score := 0
	if h.Partnered(team1[0], team1[1]) {
		score += PartnerPenalty
	}
	if h.Partnered(team2[0], team2[1]) {
		score += PartnerPenalty
	}
	for _, a := range team1 {
		for _, b := range team2 {
			if h.Opposed(a, b) {
				score += OpponentPenalty
			}
		}
	}
	return score
}

// Engine runs the randomized selection and pairing steps. The random source
// is injected so results are reproducible under a fixed seed.
type Engine struct {
	mu     sync.Mutex
	rng    *rand.Rand
	trials int
}

// NewEngine creates an engine; trial budgets below MinTrials are raised to it
func NewEngine(rng *rand.Rand, trials int) *Engine {
	if trials < MinTrials {
		trials = MinTrials
	}
	return &Engine{rng: rng, trials: trials}
}

// Trials returns the partition search budget
func (e *Engine) Trials() int {
	return e.trials
}

func (e *Engine) shuffle(n int, swap func(i, j int)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rng.Shuffle(n, swap)
}

func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}

// Order sorts candidates by ascending games played, then by ascending last
// round played (longest wait first). Remaining ties are broken by a uniform
// random permutation.
func (e *Engine) Order(cands []Candidate) []Candidate {
	ordered := make([]Candidate, len(cands))
	copy(ordered, cands)
	e.shuffle(len(ordered), func(i, j int) {
		ordered[i], ordered[j] = ordered[j], ordered[i]
	})
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].GamesPlayed != ordered[j].GamesPlayed {
			return ordered[i].GamesPlayed < ordered[j].GamesPlayed
		}
		return ordered[i].LastRound < ordered[j].LastRound
	})
	return ordered
}

// NeededMatches returns how many matches a full round should contain:
// enough to seat every player still below target, capped by the courts,
// and at least one.
func NeededMatches(cands []Candidate, target, courts int) int {
	below := 0
	for _, c := range cands {
		if c.GamesPlayed < target {
			below++
		}
	}
	needed := (below + domain.PlayersPerMatch - 1) / domain.PlayersPerMatch
	if needed > courts {
		needed = courts
	}
	if needed < 1 {
		needed = 1
	}
	return needed
}

// SelectRound picks the pool for a full round
func (e *Engine) SelectRound(cands []Candidate, target, courts int) ([]Candidate, error) {
	needed := NeededMatches(cands, target, courts)
	if limit := len(cands) / domain.PlayersPerMatch; needed > limit {
		needed = limit
	}
	if needed == 0 {
		return nil, fmt.Errorf("%w: %d selectable", domain.ErrInsufficientPlayers, len(cands))
	}
	return e.Order(cands)[:needed*domain.PlayersPerMatch], nil
}

// SelectNext picks the four players for a single incremental match
func (e *Engine) SelectNext(cands []Candidate) ([]Candidate, error) {
	if len(cands) < domain.PlayersPerMatch {
		return nil, fmt.Errorf("%w: %d selectable", domain.ErrInsufficientPlayers, len(cands))
	}
	return e.Order(cands)[:domain.PlayersPerMatch], nil
}

// Partition splits a pool of 4k players into k groups by randomized local
// search, keeping the lowest-penalty partition seen and stopping early on a
// perfect one. Courts are assigned positionally from 1.
func (e *Engine) Partition(pool []int64, h *History) ([]Group, error) {
	if len(pool) == 0 || len(pool)%domain.PlayersPerMatch != 0 {
		return nil, fmt.Errorf("%w: pool of %d cannot be split into matches", domain.ErrInsufficientPlayers, len(pool))
	}

	var best []Group
	bestScore := -1
	shuffled := make([]int64, len(pool))
	copy(shuffled, pool)

	for attempt := 0; attempt < e.trials; attempt++ {
		e.shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		groups := make([]Group, 0, len(shuffled)/domain.PlayersPerMatch)
		score := 0
		for i := 0; i+3 < len(shuffled); i += domain.PlayersPerMatch {
			g := Group{
				Court: i/domain.PlayersPerMatch + 1,
				Team1: [2]int64{shuffled[i], shuffled[i+1]},
				Team2: [2]int64{shuffled[i+2], shuffled[i+3]},
			}
			score += Penalty(g.Team1, g.Team2, h)
			groups = append(groups, g)
		}

		if bestScore < 0 || score < bestScore {
			best, bestScore = groups, score
			if score == 0 {
				break
			}
		}
	}
	return best, nil
}

// Resplit evaluates the three ways of splitting four players into two teams
// and returns the lowest-penalty one, breaking exact ties at random.
func (e *Engine) Resplit(four [4]int64, h *History) Group {
	a, b, c, d := four[0], four[1], four[2], four[3]
	splits := []Group{
		{Team1: [2]int64{a, b}, Team2: [2]int64{c, d}},
		{Team1: [2]int64{a, c}, Team2: [2]int64{b, d}},
		{Team1: [2]int64{a, d}, Team2: [2]int64{b, c}},
	}

	var tied []Group
	bestScore := -1
	for _, s := range splits {
		score := Penalty(s.Team1, s.Team2, h)
		switch {
		case bestScore < 0 || score < bestScore:
			bestScore = score
			tied = []Group{s}
		case score == bestScore:
			tied = append(tied, s)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}
	return tied[e.intn(len(tied))]
}

// Draw picks n distinct players uniformly at random from pool
func (e *Engine) Draw(pool []int64, n int) ([]int64, error) {
	if len(pool) < n {
		return nil, fmt.Errorf("%w: need %d, have %d", domain.ErrInsufficientPlayers, n, len(pool))
	}
	drawn := make([]int64, len(pool))
	copy(drawn, pool)
	e.shuffle(len(drawn), func(i, j int) {
		drawn[i], drawn[j] = drawn[j], drawn[i]
	})
	return drawn[:n], nil
}

// Intn exposes the engine's random source for callers that need to pick
// among alternatives (for instance simulated results).
func (e *Engine) Intn(n int) int {
	return e.intn(n)
}
