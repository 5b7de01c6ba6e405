package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/americano-tennis/internal/domain"
)

// rankingCache adds rank lookups and presence checks to fakeCache
type rankingCache struct {
	*fakeCache
	ranks   map[int64]domain.Standing
	present bool
}

func (c *rankingCache) GetPlayerRank(ctx context.Context, tournamentID, playerID int64) (*domain.Standing, error) {
	s, ok := c.ranks[playerID]
	if !ok {
		return nil, domain.ErrEnrollmentNotFound
	}
	return &s, nil
}

func (c *rankingCache) Exists(ctx context.Context, tournamentID int64) (bool, error) {
	return c.present, nil
}

func TestPlayerStanding_FromStore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 41)
	tour, round := f.create(t, 2, 3, domain.ModalityPoints)

	_, err := f.svc.SubmitScore(ctx, domain.ScoreSubmission{MatchID: round[0].ID, Team1Score: 11, Team2Score: 5})
	require.NoError(t, err)

	winner := round[0].Team(domain.Team1)[0].PlayerID
	s, err := f.svc.PlayerStanding(ctx, tour.ID, winner)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Rank)
	assert.Equal(t, 11, s.CurrentScore)

	_, err = f.svc.PlayerStanding(ctx, tour.ID, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPlayerStanding_FromCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 42)
	tour, _ := f.create(t, 2, 3, domain.ModalityPoints)

	f.svc.cache = &rankingCache{
		fakeCache: f.cache,
		ranks:     map[int64]domain.Standing{f.ids[0]: {Rank: 4, PlayerID: f.ids[0], CurrentScore: 30}},
	}

	s, err := f.svc.PlayerStanding(ctx, tour.ID, f.ids[0])
	require.NoError(t, err)
	assert.Equal(t, 4, s.Rank)
	assert.Equal(t, 30, s.CurrentScore)

	// A cache miss falls back to the store
	s, err = f.svc.PlayerStanding(ctx, tour.ID, f.ids[1])
	require.NoError(t, err)
	assert.Equal(t, f.ids[1], s.PlayerID)
	assert.Zero(t, s.CurrentScore)
}

func TestWarmCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 43)
	tour, _ := f.create(t, 2, 3, domain.ModalityPoints)

	delete(f.cache.scores, tour.ID)
	written, err := f.svc.WarmCache(ctx, tour.ID)
	require.NoError(t, err)
	assert.True(t, written)
	assert.Len(t, f.cache.scores[tour.ID], 8)

	delete(f.cache.scores, tour.ID)
	f.svc.cache = &rankingCache{fakeCache: f.cache, present: true}
	written, err = f.svc.WarmCache(ctx, tour.ID)
	require.NoError(t, err)
	assert.False(t, written)
	assert.Empty(t, f.cache.scores[tour.ID])

	f.svc.cache = nil
	written, err = f.svc.WarmCache(ctx, tour.ID)
	require.NoError(t, err)
	assert.False(t, written)
}

func TestRecomputeLogsUnenrolledPlayers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 10, 33)
	tour, round := f.createWith(t, f.ids[:8], 2, 3, domain.ModalityPoints)

	var logs bytes.Buffer
	f.svc.logger = slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	removed := round[0].Participations[0].PlayerID
	roster := []int64{f.ids[8]}
	for _, id := range f.ids[:8] {
		if id != removed {
			roster = append(roster, id)
		}
	}
	_, err := f.svc.UpdateTournament(ctx, tour.ID, domain.UpdateTournamentRequest{
		Date:            testDate,
		CourtsAvailable: 2,
		PlayerIDs:       roster,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteMatch(ctx, round[0].ID))
	assert.Contains(t, logs.String(), "skipping recompute of unenrolled player")
	assert.Contains(t, logs.String(), fmt.Sprintf("player_id=%d", removed))
	f.requireInvariants(t, tour.ID)
}
