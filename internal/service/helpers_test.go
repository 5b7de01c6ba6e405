package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/americano-tennis/internal/config"
	"github.com/americano-tennis/internal/domain"
	"github.com/americano-tennis/internal/matchmaker"
	"github.com/americano-tennis/internal/memstore"
	"github.com/americano-tennis/internal/metrics"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/require"
)

type fakeCache struct {
	mu        sync.Mutex
	scores    map[int64][]domain.Standing
	deleted   []int64
	setErr    error
	GetTopNFn func(ctx context.Context, tournamentID int64, n int) ([]domain.Standing, error)
}

func newFakeCache() *fakeCache {
	return &fakeCache{scores: make(map[int64][]domain.Standing)}
}

func (f *fakeCache) SetScores(ctx context.Context, tournamentID int64, standings []domain.Standing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.scores[tournamentID] = standings
	return nil
}

func (f *fakeCache) GetTopN(ctx context.Context, tournamentID int64, n int) ([]domain.Standing, error) {
	if f.GetTopNFn != nil {
		return f.GetTopNFn(ctx, tournamentID, n)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.scores[tournamentID]
	if len(s) > n {
		s = s[:n]
	}
	return s, nil
}

func (f *fakeCache) DeleteTournament(ctx context.Context, tournamentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.scores, tournamentID)
	f.deleted = append(f.deleted, tournamentID)
	return nil
}

type fakeHub struct {
	mu        sync.Mutex
	standings map[int64]int
	matches   map[int64]int
}

func newFakeHub() *fakeHub {
	return &fakeHub{standings: make(map[int64]int), matches: make(map[int64]int)}
}

func (f *fakeHub) BroadcastStandings(tournamentID int64, _ []domain.Standing) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.standings[tournamentID]++
}

func (f *fakeHub) BroadcastMatches(tournamentID int64, _ []domain.Match) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.matches[tournamentID]++
}

type fixture struct {
	svc     *TournamentService
	players *PlayerService
	store   *memstore.Store
	cache   *fakeCache
	hub     *fakeHub
	ids     []int64
}

var testDate = time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newFixture builds services over a fresh memstore with n players on the
// roster and a deterministic engine.
func newFixture(t *testing.T, n int, seed int64) *fixture {
	t.Helper()
	st := memstore.New()
	cfg := config.DefaultConfig()
	cache := newFakeCache()
	hub := newFakeHub()

	engine := matchmaker.NewEngine(rand.New(rand.NewSource(seed)), cfg.Scheduler.TrialBudget)
	svc := NewTournamentService(st, engine, cache, hub, metrics.New(), &cfg.Scheduler, &cfg.Standings, testLogger())
	players := NewPlayerService(st, nil, testLogger())

	f := &fixture{svc: svc, players: players, store: st, cache: cache, hub: hub}
	faker := gofakeit.New(uint64(seed))
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("%s %02d", faker.FirstName(), i+1)
		p, err := players.CreatePlayer(context.Background(), domain.CreatePlayerRequest{Name: name})
		require.NoError(t, err)
		f.ids = append(f.ids, p.ID)
	}
	return f
}

func (f *fixture) create(t *testing.T, courts, target int, modality domain.Modality) (*domain.Tournament, []domain.Match) {
	t.Helper()
	return f.createWith(t, f.ids, courts, target, modality)
}

func (f *fixture) createWith(t *testing.T, ids []int64, courts, target int, modality domain.Modality) (*domain.Tournament, []domain.Match) {
	t.Helper()
	tour, round, err := f.svc.CreateTournament(context.Background(), domain.CreateTournamentRequest{
		Date:             testDate,
		Location:         "Club Central",
		CourtsAvailable:  courts,
		MatchesPerPlayer: target,
		Modality:         modality,
		PlayerIDs:        ids,
	})
	require.NoError(t, err)
	return tour, round
}

// requireInvariants checks seat consistency of every match and that every
// stored total equals the sum of counted points.
func (f *fixture) requireInvariants(t *testing.T, tournamentID int64) {
	t.Helper()
	ctx := context.Background()

	matches, err := f.store.ListMatches(ctx, tournamentID)
	require.NoError(t, err)
	expected := make(map[int64]int)
	for i := range matches {
		require.NoError(t, matches[i].Validate())
		if !matches[i].IsScored() {
			continue
		}
		for _, p := range matches[i].Participations {
			if !p.IsFiller {
				expected[p.PlayerID] += p.Points
			}
		}
	}

	enrollments, err := f.store.ListEnrollments(ctx, tournamentID)
	require.NoError(t, err)
	for _, e := range enrollments {
		require.Equal(t, expected[e.PlayerID], e.CurrentScore, "player %d total", e.PlayerID)
	}
}

func score(t *testing.T, m *domain.Match, team int) int {
	t.Helper()
	for _, p := range m.Participations {
		if p.TeamID == team {
			return p.Points
		}
	}
	t.Fatalf("match %d has no team %d", m.ID, team)
	return 0
}

func currentScore(t *testing.T, f *fixture, tournamentID, playerID int64) int {
	t.Helper()
	e, err := f.store.GetEnrollment(context.Background(), tournamentID, playerID)
	require.NoError(t, err)
	return e.CurrentScore
}
