package service

import (
	"context"
	"fmt"
	"time"

	"github.com/americano-tennis/internal/domain"
	"github.com/americano-tennis/internal/matchmaker"
	"github.com/americano-tennis/internal/scoring"
	"github.com/americano-tennis/internal/store"
)

// CreateTournament creates an in-progress tournament, enrolls its roster and
// generates the first round, all in one transaction.
func (s *TournamentService) CreateTournament(ctx context.Context, req domain.CreateTournamentRequest) (t *domain.Tournament, firstRound []domain.Match, err error) {
	defer s.observe("create_tournament", time.Now(), &err)

	if err := req.Validate(); err != nil {
		return nil, nil, err
	}

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		t = &domain.Tournament{
			Date:             req.Date,
			Location:         req.Location,
			CourtsAvailable:  req.CourtsAvailable,
			MatchesPerPlayer: req.MatchesPerPlayer,
			Modality:         req.Modality,
			Status:           domain.StatusInProgress,
		}
		if err := q.CreateTournament(ctx, t); err != nil {
			return fmt.Errorf("creating tournament: %w", err)
		}
		for _, playerID := range req.PlayerIDs {
			if err := q.AddEnrollment(ctx, t.ID, playerID); err != nil {
				return err
			}
		}
		var err error
		firstRound, err = s.generateRound(ctx, q, t)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.metrics.MatchesGenerated(len(firstRound))
	s.logger.Info("tournament created",
		"tournament_id", t.ID,
		"players", len(req.PlayerIDs),
		"courts", t.CourtsAvailable,
		"modality", t.Modality,
	)
	s.publish(ctx, t.ID, true)
	return t, firstRound, nil
}

// UpdateTournament replaces the basic info and roster of a tournament.
// Removed players lose their enrollment, new players start at zero, and
// every total is recomputed. A modality change re-normalizes all results.
func (s *TournamentService) UpdateTournament(ctx context.Context, tournamentID int64, req domain.UpdateTournamentRequest) (t *domain.Tournament, err error) {
	defer s.observe("update_tournament", time.Now(), &err)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		var err error
		t, err = q.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		modalityChanged := req.Modality != "" && req.Modality != t.Modality

		t.Date = req.Date
		t.Location = req.Location
		t.CourtsAvailable = req.CourtsAvailable
		if req.Modality != "" {
			t.Modality = req.Modality
		}
		if err := q.UpdateTournament(ctx, *t); err != nil {
			return fmt.Errorf("updating tournament: %w", err)
		}

		current, err := q.ListEnrollments(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("listing enrollments: %w", err)
		}
		wanted := make(map[int64]bool, len(req.PlayerIDs))
		for _, id := range req.PlayerIDs {
			wanted[id] = true
		}
		for _, e := range current {
			if wanted[e.PlayerID] {
				delete(wanted, e.PlayerID)
				continue
			}
			if err := q.RemoveEnrollment(ctx, t.ID, e.PlayerID); err != nil {
				return fmt.Errorf("removing player %d: %w", e.PlayerID, err)
			}
		}
		for _, id := range req.PlayerIDs {
			if !wanted[id] {
				continue
			}
			if err := q.AddEnrollment(ctx, t.ID, id); err != nil {
				return err
			}
		}

		if modalityChanged {
			if err := renormalize(ctx, q, t); err != nil {
				return err
			}
		}
		_, err = recomputeAll(ctx, q, t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("tournament updated", "tournament_id", tournamentID, "players", len(req.PlayerIDs))
	s.publish(ctx, tournamentID, true)
	return t, nil
}

// renormalize rewrites the points of every scored match under the current
// modality.
func renormalize(ctx context.Context, q store.Queries, t *domain.Tournament) error {
	matches, err := q.ListMatches(ctx, t.ID)
	if err != nil {
		return fmt.Errorf("listing matches: %w", err)
	}
	for i := range matches {
		if !matches[i].IsScored() {
			continue
		}
		raw1, raw2 := matches[i].RawScores()
		if err := scoring.Validate(raw1, raw2, t.Modality); err != nil {
			return fmt.Errorf("match %d cannot be converted: %w", matches[i].ID, err)
		}
		points1, points2 := scoring.Normalize(raw1, raw2, t.Modality)
		if err := q.SetTeamScore(ctx, matches[i].ID, domain.Team1, raw1, points1); err != nil {
			return fmt.Errorf("rescoring match %d: %w", matches[i].ID, err)
		}
		if err := q.SetTeamScore(ctx, matches[i].ID, domain.Team2, raw2, points2); err != nil {
			return fmt.Errorf("rescoring match %d: %w", matches[i].ID, err)
		}
	}
	return nil
}

// SetStatus changes the lifecycle status of a tournament
func (s *TournamentService) SetStatus(ctx context.Context, tournamentID int64, status domain.TournamentStatus) (t *domain.Tournament, err error) {
	defer s.observe("set_status", time.Now(), &err)

	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStatus, status)
	}
	err = s.store.WithTx(ctx, func(q store.Queries) error {
		var err error
		t, err = q.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		t.Status = status
		return q.UpdateTournament(ctx, *t)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("tournament status changed", "tournament_id", tournamentID, "status", status)
	return t, nil
}

// DeleteTournament removes a tournament with its enrollments and matches
func (s *TournamentService) DeleteTournament(ctx context.Context, tournamentID int64) (err error) {
	defer s.observe("delete_tournament", time.Now(), &err)

	if err := s.store.WithTx(ctx, func(q store.Queries) error {
		return q.DeleteTournament(ctx, tournamentID)
	}); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.DeleteTournament(ctx, tournamentID); err != nil {
			s.metrics.CacheFailure()
			s.logger.Warn("failed to delete tournament from cache", "tournament_id", tournamentID, "error", err)
		}
	}
	s.logger.Info("tournament deleted", "tournament_id", tournamentID)
	return nil
}

// GetTournament returns a tournament by ID
func (s *TournamentService) GetTournament(ctx context.Context, tournamentID int64) (*domain.Tournament, error) {
	return s.store.GetTournament(ctx, tournamentID)
}

// ListTournaments returns all tournaments, newest first, with match counters
func (s *TournamentService) ListTournaments(ctx context.Context) ([]domain.TournamentSummary, error) {
	return s.store.ListTournaments(ctx)
}

// ListActiveTournaments returns the tournaments whose status is in_progress
func (s *TournamentService) ListActiveTournaments(ctx context.Context) ([]domain.Tournament, error) {
	summaries, err := s.store.ListTournaments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tournaments: %w", err)
	}
	var active []domain.Tournament
	for _, ts := range summaries {
		if ts.Status == domain.StatusInProgress {
			active = append(active, ts.Tournament)
		}
	}
	return active, nil
}

// ScheduleState derives the scheduling phase of a tournament from its data
func (s *TournamentService) ScheduleState(ctx context.Context, tournamentID int64) (domain.ScheduleState, error) {
	t, err := s.store.GetTournament(ctx, tournamentID)
	if err != nil {
		return "", err
	}
	if t.Status == domain.StatusCompleted {
		return domain.StateCompleted, nil
	}
	matches, err := s.store.ListMatches(ctx, tournamentID)
	if err != nil {
		return "", fmt.Errorf("listing matches: %w", err)
	}
	if len(matches) == 0 {
		return domain.StateNeedsFirstRound, nil
	}
	enrollments, err := s.store.ListEnrollments(ctx, tournamentID)
	if err != nil {
		return "", fmt.Errorf("listing enrollments: %w", err)
	}
	if matchmaker.MinGamesPlayed(matchmaker.Candidates(enrollments, matches, 0)) >= t.MatchesPerPlayer {
		return domain.StateFullyScheduled, nil
	}
	return domain.StateInProgress, nil
}

// ReshuffleTournament discards every match of a tournament that has no
// results yet and schedules a fresh plan.
func (s *TournamentService) ReshuffleTournament(ctx context.Context, tournamentID int64) (created []domain.Match, err error) {
	defer s.observe("reshuffle_tournament", time.Now(), &err)

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		t, err := q.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		matches, err := q.ListMatches(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("listing matches: %w", err)
		}
		for i := range matches {
			if matches[i].IsScored() {
				return fmt.Errorf("%w: match %d", domain.ErrAlreadyScored, matches[i].ID)
			}
		}
		if err := q.DeleteTournamentMatches(ctx, t.ID); err != nil {
			return fmt.Errorf("deleting matches: %w", err)
		}
		created, err = s.generatePlan(ctx, q, t, t.MatchesPerPlayer)
		if err != nil {
			return err
		}
		_, err = recomputeAll(ctx, q, t.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.MatchesGenerated(len(created))
	s.logger.Info("tournament reshuffled", "tournament_id", tournamentID, "matches", len(created))
	s.publish(ctx, tournamentID, true)
	return created, nil
}

// randomResult draws a valid raw result for the modality
func (s *TournamentService) randomResult(modality domain.Modality) (int, int) {
	if modality == domain.ModalityGames {
		loser := s.engine.Intn(4)
		if s.engine.Intn(2) == 0 {
			return 4, loser
		}
		return loser, 4
	}
	team1 := s.engine.Intn(domain.MatchPoints + 1)
	return team1, domain.MatchPoints - team1
}

// SimulateResults fills every unscored match with a random valid result and
// recomputes all totals. It returns the number of matches scored.
func (s *TournamentService) SimulateResults(ctx context.Context, tournamentID int64) (scored int, err error) {
	defer s.observe("simulate_results", time.Now(), &err)

	err = s.store.WithTx(ctx, func(q store.Queries) error {
		t, err := q.GetTournament(ctx, tournamentID)
		if err != nil {
			return err
		}
		matches, err := q.ListMatches(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("listing matches: %w", err)
		}
		for i := range matches {
			if matches[i].IsScored() {
				continue
			}
			raw1, raw2 := s.randomResult(t.Modality)
			points1, points2 := scoring.Normalize(raw1, raw2, t.Modality)
			if err := q.SetTeamScore(ctx, matches[i].ID, domain.Team1, raw1, points1); err != nil {
				return fmt.Errorf("scoring match %d: %w", matches[i].ID, err)
			}
			if err := q.SetTeamScore(ctx, matches[i].ID, domain.Team2, raw2, points2); err != nil {
				return fmt.Errorf("scoring match %d: %w", matches[i].ID, err)
			}
			scored++
		}
		_, err = recomputeAll(ctx, q, t.ID)
		return err
	})
	if err != nil {
		return 0, err
	}

	for i := 0; i < scored; i++ {
		s.metrics.ScoreSubmitted(SourceSimulate)
	}
	s.logger.Info("results simulated", "tournament_id", tournamentID, "matches", scored)
	s.publish(ctx, tournamentID, true)
	return scored, nil
}
