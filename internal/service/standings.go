package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/americano-tennis/internal/domain"
	"github.com/americano-tennis/internal/store"
)

// recompute rewrites a player's currentScore from their counted participations
func recompute(ctx context.Context, q store.Queries, tournamentID, playerID int64) error {
	total, err := q.SumCountedPoints(ctx, tournamentID, playerID)
	if err != nil {
		return fmt.Errorf("summing points of player %d: %w", playerID, err)
	}
	if err := q.SetCurrentScore(ctx, tournamentID, playerID, total); err != nil {
		return fmt.Errorf("updating score of player %d: %w", playerID, err)
	}
	return nil
}

// recomputePlayers recomputes every listed player that is still enrolled.
// Players removed from the roster keep their match rows but have no score.
func (s *TournamentService) recomputePlayers(ctx context.Context, q store.Queries, tournamentID int64, playerIDs []int64) error {
	seen := make(map[int64]bool, len(playerIDs))
	for _, id := range playerIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		err := recompute(ctx, q, tournamentID, id)
		if errors.Is(err, domain.ErrEnrollmentNotFound) {
			s.logger.Debug("skipping recompute of unenrolled player",
				"tournament_id", tournamentID,
				"player_id", id,
			)
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// recomputeAll recomputes every enrollment of a tournament and reports how
// many stored totals were wrong.
func recomputeAll(ctx context.Context, q store.Queries, tournamentID int64) (int, error) {
	enrollments, err := q.ListEnrollments(ctx, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("listing enrollments: %w", err)
	}
	drifted := 0
	for _, e := range enrollments {
		total, err := q.SumCountedPoints(ctx, tournamentID, e.PlayerID)
		if err != nil {
			return 0, fmt.Errorf("summing points of player %d: %w", e.PlayerID, err)
		}
		if total == e.CurrentScore {
			continue
		}
		drifted++
		if err := q.SetCurrentScore(ctx, tournamentID, e.PlayerID, total); err != nil {
			return 0, fmt.Errorf("updating score of player %d: %w", e.PlayerID, err)
		}
	}
	return drifted, nil
}

// buildStandings ranks enrollments by current score. Equal scores share a
// rank; order among them is by name then id.
func buildStandings(enrollments []domain.Enrollment, matches []domain.Match) []domain.Standing {
	played := make(map[int64]int)
	assigned := make(map[int64]int)
	for i := range matches {
		scored := matches[i].IsScored()
		for _, p := range matches[i].Participations {
			assigned[p.PlayerID]++
			if scored && !p.IsFiller {
				played[p.PlayerID]++
			}
		}
	}

	standings := make([]domain.Standing, 0, len(enrollments))
	for _, e := range enrollments {
		standings = append(standings, domain.Standing{
			PlayerID:        e.PlayerID,
			Name:            e.PlayerName,
			CurrentScore:    e.CurrentScore,
			GamesPlayed:     played[e.PlayerID],
			MatchesAssigned: assigned[e.PlayerID],
		})
	}
	sort.Slice(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.CurrentScore != b.CurrentScore {
			return a.CurrentScore > b.CurrentScore
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.PlayerID < b.PlayerID
	})
	for i := range standings {
		if i > 0 && standings[i].CurrentScore == standings[i-1].CurrentScore {
			standings[i].Rank = standings[i-1].Rank
		} else {
			standings[i].Rank = i + 1
		}
	}
	return standings
}

// RecomputeStanding recalculates one player's currentScore. It fails with a
// not-found error when the player is not enrolled.
func (s *TournamentService) RecomputeStanding(ctx context.Context, tournamentID, playerID int64) (*domain.Enrollment, error) {
	var enrollment *domain.Enrollment
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if err := recompute(ctx, q, tournamentID, playerID); err != nil {
			return err
		}
		var err error
		enrollment, err = q.GetEnrollment(ctx, tournamentID, playerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, tournamentID, false)
	return enrollment, nil
}

// ReconcileTournament recomputes every enrollment of a tournament and
// returns the number of totals that had drifted.
func (s *TournamentService) ReconcileTournament(ctx context.Context, tournamentID int64) (int, error) {
	var drifted int
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := q.GetTournament(ctx, tournamentID); err != nil {
			return err
		}
		var err error
		drifted, err = recomputeAll(ctx, q, tournamentID)
		return err
	})
	if err != nil {
		return 0, err
	}
	if drifted > 0 {
		s.logger.Warn("standings drift repaired", "tournament_id", tournamentID, "players", drifted)
	}
	s.publish(ctx, tournamentID, false)
	return drifted, nil
}

// GetStandings returns the full ranking of a tournament from the store
func (s *TournamentService) GetStandings(ctx context.Context, tournamentID int64) ([]domain.Standing, error) {
	if _, err := s.store.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	enrollments, err := s.store.ListEnrollments(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing enrollments: %w", err)
	}
	matches, err := s.store.ListMatches(ctx, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	return buildStandings(enrollments, matches), nil
}

// TopStandings returns the first n standings, served from the cache when it
// is available and falling back to the store otherwise.
func (s *TournamentService) TopStandings(ctx context.Context, tournamentID int64, n int) ([]domain.Standing, error) {
	if n <= 0 {
		n = s.standings.DefaultLimit
	}
	if n > s.standings.MaxLimit {
		n = s.standings.MaxLimit
	}

	if s.cache != nil {
		top, err := s.cache.GetTopN(ctx, tournamentID, n)
		if err == nil && len(top) > 0 {
			return top, nil
		}
		if err != nil {
			s.logger.Warn("standings cache read failed", "tournament_id", tournamentID, "error", err)
		}
	}

	standings, err := s.GetStandings(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	if len(standings) > n {
		standings = standings[:n]
	}
	return standings, nil
}

// SyncToCache pushes the current standings of a tournament to the cache
func (s *TournamentService) SyncToCache(ctx context.Context, tournamentID int64) error {
	if s.cache == nil {
		return nil
	}
	standings, err := s.GetStandings(ctx, tournamentID)
	if err != nil {
		return err
	}
	if err := s.cache.SetScores(ctx, tournamentID, standings); err != nil {
		return fmt.Errorf("caching standings: %w", err)
	}
	return nil
}

// publish runs the best-effort side effects of a committed change: cache
// refresh and live broadcasts. Failures are logged, never returned.
func (s *TournamentService) publish(ctx context.Context, tournamentID int64, matchesChanged bool) {
	if s.cache == nil && s.hub == nil {
		return
	}

	standings, err := s.GetStandings(ctx, tournamentID)
	if err != nil {
		s.logger.Warn("failed to load standings for publish", "tournament_id", tournamentID, "error", err)
		return
	}
	if s.cache != nil {
		if err := s.cache.SetScores(ctx, tournamentID, standings); err != nil {
			s.metrics.CacheFailure()
			s.logger.Warn("failed to update standings cache", "tournament_id", tournamentID, "error", err)
		}
	}
	if s.hub == nil {
		return
	}
	s.hub.BroadcastStandings(tournamentID, standings)
	if matchesChanged {
		matches, err := s.store.ListMatches(ctx, tournamentID)
		if err != nil {
			s.logger.Warn("failed to load matches for broadcast", "tournament_id", tournamentID, "error", err)
			return
		}
		s.hub.BroadcastMatches(tournamentID, matches)
	}
}

// rankCache is implemented by caches that answer single-player rank queries
type rankCache interface {
	GetPlayerRank(ctx context.Context, tournamentID, playerID int64) (*domain.Standing, error)
}

// presenceCache is implemented by caches that can tell whether a
// tournament's standings are loaded
type presenceCache interface {
	Exists(ctx context.Context, tournamentID int64) (bool, error)
}

// PlayerStanding returns one player's rank and score in a tournament
func (s *TournamentService) PlayerStanding(ctx context.Context, tournamentID, playerID int64) (*domain.Standing, error) {
	if rc, ok := s.cache.(rankCache); ok {
		standing, err := rc.GetPlayerRank(ctx, tournamentID, playerID)
		if err == nil {
			return standing, nil
		}
		if !domain.IsNotFoundError(err) {
			s.logger.Warn("standings cache rank failed", "tournament_id", tournamentID, "player_id", playerID, "error", err)
		}
	}

	standings, err := s.GetStandings(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	for i := range standings {
		if standings[i].PlayerID == playerID {
			return &standings[i], nil
		}
	}
	return nil, domain.ErrEnrollmentNotFound
}

// WarmCache loads a tournament's standings into the cache unless they are
// already there. It reports whether the cache was written.
func (s *TournamentService) WarmCache(ctx context.Context, tournamentID int64) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	if pc, ok := s.cache.(presenceCache); ok {
		exists, err := pc.Exists(ctx, tournamentID)
		if err != nil {
			s.logger.Warn("standings cache presence check failed", "tournament_id", tournamentID, "error", err)
		} else if exists {
			return false, nil
		}
	}
	if err := s.SyncToCache(ctx, tournamentID); err != nil {
		return false, err
	}
	return true, nil
}
