package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/americano-tennis/internal/config"
	"github.com/americano-tennis/internal/domain"
	"github.com/americano-tennis/internal/matchmaker"
	"github.com/americano-tennis/internal/metrics"
	"github.com/americano-tennis/internal/scoring"
	"github.com/americano-tennis/internal/store"
)

// TournamentService runs match generation and scoring. Every mutating call
// executes in one store transaction; cache and broadcast updates follow the
// commit.
type TournamentService struct {
	store     store.Store
	engine    *matchmaker.Engine
	cache     StandingsCache
	hub       Broadcaster
	metrics   *metrics.Metrics
	scheduler *config.SchedulerConfig
	standings *config.StandingsConfig
	logger    *slog.Logger
}

// NewTournamentService creates a new tournament service. cache, hub and m
// may be nil.
func NewTournamentService(
	st store.Store,
	engine *matchmaker.Engine,
	cache StandingsCache,
	hub Broadcaster,
	m *metrics.Metrics,
	scheduler *config.SchedulerConfig,
	standings *config.StandingsConfig,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		store:     st,
		engine:    engine,
		cache:     cache,
		hub:       hub,
		metrics:   m,
		scheduler: scheduler,
		standings: standings,
		logger:    logger,
	}
}

func (s *TournamentService) observe(operation string, start time.Time, err *error) {
	s.metrics.ObserveOperation(operation, start, *err)
	if *err != nil && !domain.IsNotFoundError(*err) && !domain.IsConflictError(*err) && !domain.IsUserError(*err) {
		s.logger.Error("operation failed", "operation", operation, "error", *err)
	}
}

func maxRound(matches []domain.Match) int {
	round := 0
	for _, m := range matches {
		if m.RoundNumber > round {
			round = m.RoundNumber
		}
	}
	return round
}

func fillerCheck(games map[int64]int, target int) func(int64) bool {
	return func(playerID int64) bool {
		return games[playerID] >= target
	}
}

// generateRound creates one full round inside q
func (s *TournamentService) generateRound(ctx context.Context, q store.Queries, t *domain.Tournament) ([]domain.Match, error) {
	enrollments, err := q.ListEnrollments(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("listing enrollments: %w", err)
	}
	existing, err := q.ListMatches(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}

	cands := matchmaker.Candidates(enrollments, existing, 0)
	pool, err := s.engine.SelectRound(cands, t.MatchesPerPlayer, t.CourtsAvailable)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(pool))
	for i, c := range pool {
		ids[i] = c.PlayerID
	}

	groups, err := s.engine.Partition(ids, matchmaker.BuildHistory(existing, 0))
	if err != nil {
		return nil, err
	}

	filler := fillerCheck(matchmaker.GamesPlayed(cands), t.MatchesPerPlayer)
	round := maxRound(existing) + 1
	created := make([]domain.Match, 0, len(groups))
	for _, g := range groups {
		m := &domain.Match{
			TournamentID:   t.ID,
			RoundNumber:    round,
			CourtNumber:    g.Court,
			Participations: domain.NewParticipations(g.Team1, g.Team2, filler),
		}
		if err := q.CreateMatch(ctx, m); err != nil {
			return nil, fmt.Errorf("creating match: %w", err)
		}
		created = append(created, *m)
	}
	return created, nil
}

// generatePlan adds rounds until every enrolled player has reached target
// games or the iteration cap is hit.
func (s *TournamentService) generatePlan(ctx context.Context, q store.Queries, t *domain.Tournament, target int) ([]domain.Match, error) {
	var created []domain.Match
	for i := 0; i < s.scheduler.PlanIterationCap; i++ {
		enrollments, err := q.ListEnrollments(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("listing enrollments: %w", err)
		}
		matches, err := q.ListMatches(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("listing matches: %w", err)
		}
		if matchmaker.MinGamesPlayed(matchmaker.Candidates(enrollments, matches, 0)) >= target {
			return created, nil
		}

		round, err := s.generateRound(ctx, q, t)
		if err != nil {
			return nil, err
		}
		created = append(created, round...)
	}
	s.logger.Warn("plan generation hit iteration cap",
		"tournament_id", t.ID,
		"cap", s.scheduler.PlanIterationCap,
		"target", target,
	)
	return created, nil
}

// GenerateRound creates the next full round of a tournament
func (s *TournamentService) GenerateRound(ctx context.Context, tournamentID int64) (created []domain.Match, err error) {
	defer s.observe("generate_round", time.Now(), &err)

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		t, err := q.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		created, err = s.generateRound(ctx, q, t)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MatchesGenerated(len(created))
	s.logger.Info("round generated", "tournament_id", tournamentID, "matches", len(created))
	s.publish(ctx, tournamentID, true)
	return created, nil
}

// GeneratePlan schedules rounds until every player reaches matchesPerPlayer
// games. A positive matchesPerPlayer replaces the tournament's target; zero
// keeps it.
func (s *TournamentService) GeneratePlan(ctx context.Context, tournamentID int64, matchesPerPlayer int) (created []domain.Match, err error) {
	defer s.observe("generate_plan", time.Now(), &err)

	if matchesPerPlayer < 0 {
		return nil, fmt.Errorf("%w: matches per player must be positive", domain.ErrInvalidRequest)
	}

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		t, err := q.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		if matchesPerPlayer > 0 && matchesPerPlayer != t.MatchesPerPlayer {
			t.MatchesPerPlayer = matchesPerPlayer
			if err := q.UpdateTournament(ctx, *t); err != nil {
				return fmt.Errorf("updating target: %w", err)
			}
		}
		created, err = s.generatePlan(ctx, q, t, t.MatchesPerPlayer)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MatchesGenerated(len(created))
	s.logger.Info("plan generated", "tournament_id", tournamentID, "matches", len(created))
	s.publish(ctx, tournamentID, true)
	return created, nil
}

// busyState returns the courts holding an unscored match and the players
// seated in one.
func busyState(matches []domain.Match) (map[int]bool, map[int64]bool) {
	courts := make(map[int]bool)
	players := make(map[int64]bool)
	for i := range matches {
		if matches[i].IsScored() {
			continue
		}
		courts[matches[i].CourtNumber] = true
		for _, id := range matches[i].PlayerIDs() {
			players[id] = true
		}
	}
	return courts, players
}

// furthestCourt picks the court whose match has progressed the most
// according to progress. Ties go to the lowest court number; with no
// usable progress the first court is returned.
func furthestCourt(progress map[int]int, courts int) int {
	best, bestPoints := 1, -1
	for c := 1; c <= courts; c++ {
		points, ok := progress[c]
		if !ok {
			continue
		}
		if points > bestPoints {
			best, bestPoints = c, points
		}
	}
	return best
}

// GenerateNextMatch creates a single match on a free court. When every court
// is busy it fails with ErrBusyCourts unless force is set, in which case the
// match is queued on the court furthest along in courtProgress.
func (s *TournamentService) GenerateNextMatch(ctx context.Context, tournamentID int64, force bool, courtProgress map[int]int) (created *domain.Match, err error) {
	defer s.observe("generate_next_match", time.Now(), &err)

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		t, err := q.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		enrollments, err := q.ListEnrollments(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("listing enrollments: %w", err)
		}
		existing, err := q.ListMatches(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("listing matches: %w", err)
		}

		busyCourts, busyPlayers := busyState(existing)
		court := 0
		for c := 1; c <= t.CourtsAvailable; c++ {
			if !busyCourts[c] {
				court = c
				break
			}
		}
		if court == 0 {
			if !force {
				return fmt.Errorf("%w: %d of %d courts in play", domain.ErrBusyCourts, len(busyCourts), t.CourtsAvailable)
			}
			court = furthestCourt(courtProgress, t.CourtsAvailable)
		}

		cands := matchmaker.Candidates(enrollments, existing, 0)
		idle := make([]matchmaker.Candidate, 0, len(cands))
		for _, c := range cands {
			if !busyPlayers[c.PlayerID] {
				idle = append(idle, c)
			}
		}
		four, err := s.engine.SelectNext(idle)
		if err != nil {
			return err
		}

		g := s.engine.Resplit([4]int64{four[0].PlayerID, four[1].PlayerID, four[2].PlayerID, four[3].PlayerID},
			matchmaker.BuildHistory(existing, 0))
		m := &domain.Match{
			TournamentID:   t.ID,
			RoundNumber:    maxRound(existing) + 1,
			CourtNumber:    court,
			Participations: domain.NewParticipations(g.Team1, g.Team2, fillerCheck(matchmaker.GamesPlayed(cands), t.MatchesPerPlayer)),
		}
		if err := q.CreateMatch(ctx, m); err != nil {
			return fmt.Errorf("creating match: %w", err)
		}
		created = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MatchesGenerated(1)
	s.logger.Info("match generated",
		"tournament_id", tournamentID,
		"match_id", created.ID,
		"court", created.CourtNumber,
		"forced", force,
	)
	s.publish(ctx, tournamentID, true)
	return created, nil
}

// ShuffleMatch redraws an unscored match from its current occupants and the
// players resting in its round, then re-splits the teams. Players seated in
// another unscored match never join the pool.
func (s *TournamentService) ShuffleMatch(ctx context.Context, matchID int64) (shuffled *domain.Match, err error) {
	defer s.observe("shuffle_match", time.Now(), &err)

	var tournamentID int64
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		m, err := q.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if m.IsScored() {
			return fmt.Errorf("%w: match %d", domain.ErrAlreadyScored, matchID)
		}
		tournamentID = m.TournamentID

		t, err := q.GetTournament(ctx, m.TournamentID)
		if err != nil {
			return err
		}
		enrollments, err := q.ListEnrollments(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("listing enrollments: %w", err)
		}
		matches, err := q.ListMatches(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("listing matches: %w", err)
		}

		// a player is resting when absent from this round and not on court
		// in any other unscored match
		others := make([]domain.Match, 0, len(matches))
		unavailable := make(map[int64]bool)
		for i := range matches {
			if matches[i].ID == m.ID {
				continue
			}
			others = append(others, matches[i])
			if matches[i].RoundNumber != m.RoundNumber {
				continue
			}
			for _, id := range matches[i].PlayerIDs() {
				unavailable[id] = true
			}
		}
		_, busy := busyState(others)
		pool := m.PlayerIDs()
		for _, e := range enrollments {
			if !m.HasPlayer(e.PlayerID) && !unavailable[e.PlayerID] && !busy[e.PlayerID] {
				pool = append(pool, e.PlayerID)
			}
		}

		drawn, err := s.engine.Draw(pool, domain.PlayersPerMatch)
		if err != nil {
			return err
		}
		g := s.engine.Resplit([4]int64{drawn[0], drawn[1], drawn[2], drawn[3]}, matchmaker.BuildHistory(matches, m.ID))

		games := matchmaker.GamesPlayed(matchmaker.Candidates(enrollments, matches, m.ID))
		parts := domain.NewParticipations(g.Team1, g.Team2, fillerCheck(games, t.MatchesPerPlayer))
		if err := q.ReplaceParticipations(ctx, m.ID, parts); err != nil {
			return fmt.Errorf("replacing participations: %w", err)
		}

		touched := append(m.PlayerIDs(), drawn...)
		if err := s.recomputePlayers(ctx, q, t.ID, touched); err != nil {
			return err
		}

		shuffled, err = q.GetMatch(ctx, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("match shuffled", "tournament_id", tournamentID, "match_id", matchID)
	s.publish(ctx, tournamentID, true)
	return shuffled, nil
}

// submitScore normalizes and records a result, then recomputes the four
// players' totals.
func (s *TournamentService) submitScore(ctx context.Context, q store.Queries, sub domain.ScoreSubmission) (*domain.Match, error) {
	m, err := q.GetMatch(ctx, sub.MatchID)
	if err != nil {
		return nil, err
	}
	t, err := q.GetTournament(ctx, m.TournamentID)
	if err != nil {
		return nil, err
	}
	if err := scoring.Validate(sub.Team1Score, sub.Team2Score, t.Modality); err != nil {
		return nil, err
	}

	points1, points2 := scoring.Normalize(sub.Team1Score, sub.Team2Score, t.Modality)
	if err := q.SetTeamScore(ctx, m.ID, domain.Team1, sub.Team1Score, points1); err != nil {
		return nil, fmt.Errorf("recording team 1 score: %w", err)
	}
	if err := q.SetTeamScore(ctx, m.ID, domain.Team2, sub.Team2Score, points2); err != nil {
		return nil, fmt.Errorf("recording team 2 score: %w", err)
	}
	if err := s.recomputePlayers(ctx, q, t.ID, m.PlayerIDs()); err != nil {
		return nil, err
	}
	return q.GetMatch(ctx, m.ID)
}

// SubmitScore records a match result
func (s *TournamentService) SubmitScore(ctx context.Context, sub domain.ScoreSubmission) (*domain.Match, error) {
	return s.submitFrom(ctx, sub, SourceAPI)
}

func (s *TournamentService) submitFrom(ctx context.Context, sub domain.ScoreSubmission, source string) (updated *domain.Match, err error) {
	defer s.observe("submit_score", time.Now(), &err)

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		var err error
		updated, err = s.submitScore(ctx, q, sub)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ScoreSubmitted(source)
	s.logger.Info("score submitted",
		"match_id", sub.MatchID,
		"team1", sub.Team1Score,
		"team2", sub.Team2Score,
		"source", source,
		"reported_by", sub.ReportedBy,
	)
	s.publish(ctx, updated.TournamentID, true)
	return updated, nil
}

// SubmitScoreBatch records several results, one transaction each. Failed
// submissions are logged and skipped; the number applied is returned.
func (s *TournamentService) SubmitScoreBatch(ctx context.Context, subs []domain.ScoreSubmission) int {
	applied := 0
	for _, sub := range subs {
		if _, err := s.submitFrom(ctx, sub, SourceKafka); err != nil {
			s.logger.Error("failed to submit score in batch",
				"match_id", sub.MatchID,
				"error", err,
			)
			// Continue processing other scores
			continue
		}
		applied++
	}
	return applied
}

// SwapPlayer replaces oldPlayerID with newPlayerID in a match. The incoming
// player inherits the seat's team and result; the partner's reference is
// rewired and both players' totals are recomputed.
func (s *TournamentService) SwapPlayer(ctx context.Context, matchID int64, req domain.SwapRequest) (updated *domain.Match, err error) {
	defer s.observe("swap_player", time.Now(), &err)

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		m, err := q.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		if m.HasPlayer(req.NewPlayerID) {
			return fmt.Errorf("%w: player %d in match %d", domain.ErrDuplicatePlayer, req.NewPlayerID, matchID)
		}
		if !m.HasPlayer(req.OldPlayerID) {
			return fmt.Errorf("player %d is not in match %d: %w", req.OldPlayerID, matchID, domain.ErrNotFound)
		}

		t, err := q.GetTournament(ctx, m.TournamentID)
		if err != nil {
			return err
		}
		if _, err := q.GetEnrollment(ctx, t.ID, req.NewPlayerID); err != nil {
			return err
		}
		enrollments, err := q.ListEnrollments(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("listing enrollments: %w", err)
		}
		matches, err := q.ListMatches(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("listing matches: %w", err)
		}
		games := matchmaker.GamesPlayed(matchmaker.Candidates(enrollments, matches, m.ID))

		parts := make([]domain.Participation, len(m.Participations))
		copy(parts, m.Participations)
		for i := range parts {
			switch {
			case parts[i].PlayerID == req.OldPlayerID:
				parts[i].PlayerID = req.NewPlayerID
				parts[i].IsFiller = games[req.NewPlayerID] >= t.MatchesPerPlayer
			case parts[i].PartnerID == req.OldPlayerID:
				parts[i].PartnerID = req.NewPlayerID
			}
		}
		if err := q.ReplaceParticipations(ctx, m.ID, parts); err != nil {
			return fmt.Errorf("replacing participations: %w", err)
		}
		if err := s.recomputePlayers(ctx, q, t.ID, []int64{req.OldPlayerID, req.NewPlayerID}); err != nil {
			return err
		}

		updated, err = q.GetMatch(ctx, m.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("player swapped",
		"match_id", matchID,
		"old_player_id", req.OldPlayerID,
		"new_player_id", req.NewPlayerID,
	)
	s.publish(ctx, updated.TournamentID, true)
	return updated, nil
}

// DeleteMatch removes a match and recomputes the totals of its players
func (s *TournamentService) DeleteMatch(ctx context.Context, matchID int64) (err error) {
	defer s.observe("delete_match", time.Now(), &err)

	var tournamentID int64
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		m, err := q.GetMatch(ctx, matchID)
		if err != nil {
			return err
		}
		tournamentID = m.TournamentID
		if err := q.DeleteMatch(ctx, m.ID); err != nil {
			return fmt.Errorf("deleting match: %w", err)
		}
		return s.recomputePlayers(ctx, q, m.TournamentID, m.PlayerIDs())
	})
	if err != nil {
		return err
	}

	s.logger.Info("match deleted", "tournament_id", tournamentID, "match_id", matchID)
	s.publish(ctx, tournamentID, true)
	return nil
}

// ListMatches returns all matches of a tournament ordered by round and court
func (s *TournamentService) ListMatches(ctx context.Context, tournamentID int64) ([]domain.Match, error) {
	if _, err := s.store.GetTournament(ctx, tournamentID); err != nil {
		return nil, err
	}
	return s.store.ListMatches(ctx, tournamentID)
}

// GetMatch returns a single match with its participations
func (s *TournamentService) GetMatch(ctx context.Context, matchID int64) (*domain.Match, error) {
	return s.store.GetMatch(ctx, matchID)
}
