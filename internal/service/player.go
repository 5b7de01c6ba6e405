package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/americano-tennis/internal/domain"
	"github.com/americano-tennis/internal/store"
)

// PlayerCache stores display data for players
type PlayerCache interface {
	SetPlayerInfo(ctx context.Context, info domain.PlayerInfo) error
}

// PlayerService manages the roster and cross-tournament statistics
type PlayerService struct {
	store  store.Store
	cache  PlayerCache
	logger *slog.Logger
}

// NewPlayerService creates a new player service; cache may be nil
func NewPlayerService(st store.Store, cache PlayerCache, logger *slog.Logger) *PlayerService {
	return &PlayerService{
		store:  st,
		cache:  cache,
		logger: logger,
	}
}

func (s *PlayerService) cacheInfo(ctx context.Context, p *domain.Player) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetPlayerInfo(ctx, domain.PlayerInfo{ID: p.ID, Name: p.Name}); err != nil {
		s.logger.Warn("failed to cache player info", "player_id", p.ID, "error", err)
	}
}

// CreatePlayer adds a player to the roster
func (s *PlayerService) CreatePlayer(ctx context.Context, req domain.CreatePlayerRequest) (*domain.Player, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidRequest)
	}
	p, err := s.store.CreatePlayer(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("creating player: %w", err)
	}
	s.cacheInfo(ctx, p)
	s.logger.Info("player created", "player_id", p.ID)
	return p, nil
}

// ListPlayers returns the full roster ordered by name
func (s *PlayerService) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	return s.store.ListPlayers(ctx)
}

// UpdatePlayer renames or (de)activates a player
func (s *PlayerService) UpdatePlayer(ctx context.Context, playerID int64, req domain.UpdatePlayerRequest) (*domain.Player, error) {
	var updated *domain.Player
	err := s.store.WithTx(ctx, func(q store.Queries) error {
		p, err := q.GetPlayer(ctx, playerID)
		if err != nil {
			return err
		}
		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return fmt.Errorf("%w: name cannot be empty", domain.ErrInvalidRequest)
			}
			p.Name = name
		}
		if req.Active != nil {
			p.Active = *req.Active
		}
		if err := q.UpdatePlayer(ctx, *p); err != nil {
			return fmt.Errorf("updating player: %w", err)
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cacheInfo(ctx, updated)
	return updated, nil
}

// GlobalStats aggregates every player's results across all tournaments.
// Only non-filler seats in scored matches count; total points sum the
// tournament totals.
func (s *PlayerService) GlobalStats(ctx context.Context) ([]domain.PlayerStats, error) {
	players, err := s.store.ListPlayers(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	tournaments, err := s.store.ListTournaments(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tournaments: %w", err)
	}

	stats := make(map[int64]*domain.PlayerStats, len(players))
	for _, p := range players {
		stats[p.ID] = &domain.PlayerStats{PlayerID: p.ID, Name: p.Name}
	}

	for _, t := range tournaments {
		enrollments, err := s.store.ListEnrollments(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("listing enrollments of tournament %d: %w", t.ID, err)
		}
		for _, e := range enrollments {
			if st, ok := stats[e.PlayerID]; ok {
				st.TotalPoints += e.CurrentScore
			}
		}

		matches, err := s.store.ListMatches(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("listing matches of tournament %d: %w", t.ID, err)
		}
		playedHere := make(map[int64]bool)
		for i := range matches {
			if !matches[i].IsScored() {
				continue
			}
			opposing := map[int]int{}
			for _, p := range matches[i].Participations {
				opposing[3-p.TeamID] = p.Points
			}
			for _, p := range matches[i].Participations {
				st, ok := stats[p.PlayerID]
				if !ok {
					continue
				}
				playedHere[p.PlayerID] = true
				if p.IsFiller {
					continue
				}
				against := opposing[p.TeamID]
				st.PointsFor += p.Points
				st.PointsAgainst += against
				switch {
				case p.Points > against:
					st.Victories++
				case p.Points == against:
					st.Draws++
				default:
					st.Defeats++
				}
			}
		}
		for id := range playedHere {
			stats[id].TournamentsPlayed++
		}
	}

	out := make([]domain.PlayerStats, 0, len(stats))
	for _, st := range stats {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}
