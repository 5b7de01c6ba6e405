package service

import (
	"context"
	"testing"

	"github.com/americano-tennis/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayerCache struct {
	infos map[int64]domain.PlayerInfo
}

func (f *fakePlayerCache) SetPlayerInfo(ctx context.Context, info domain.PlayerInfo) error {
	f.infos[info.ID] = info
	return nil
}

func TestCreateAndUpdatePlayer(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 0, 1)
	cache := &fakePlayerCache{infos: map[int64]domain.PlayerInfo{}}
	players := NewPlayerService(f.store, cache, testLogger())

	_, err := players.CreatePlayer(ctx, domain.CreatePlayerRequest{Name: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	p, err := players.CreatePlayer(ctx, domain.CreatePlayerRequest{Name: " Ana "})
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.Name)
	assert.True(t, p.Active)
	assert.Equal(t, "Ana", cache.infos[p.ID].Name)

	name := "Ana María"
	inactive := false
	updated, err := players.UpdatePlayer(ctx, p.ID, domain.UpdatePlayerRequest{Name: &name, Active: &inactive})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.False(t, updated.Active)
	assert.Equal(t, name, cache.infos[p.ID].Name)

	empty := ""
	_, err = players.UpdatePlayer(ctx, p.ID, domain.UpdatePlayerRequest{Name: &empty})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = players.UpdatePlayer(ctx, 999, domain.UpdatePlayerRequest{Active: &inactive})
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)

	list, err := players.ListPlayers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, name, list[0].Name)
}

func TestGlobalStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 8, 30)
	_, round := f.create(t, 2, 3, domain.ModalityPoints)

	_, err := f.svc.SubmitScore(ctx, domain.ScoreSubmission{MatchID: round[0].ID, Team1Score: 10, Team2Score: 6})
	require.NoError(t, err)
	_, err = f.svc.SubmitScore(ctx, domain.ScoreSubmission{MatchID: round[1].ID, Team1Score: 8, Team2Score: 8})
	require.NoError(t, err)

	stats, err := f.players.GlobalStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 8)

	byID := map[int64]domain.PlayerStats{}
	for _, s := range stats {
		byID[s.PlayerID] = s
	}

	winner := round[0].Team(domain.Team1)[0].PlayerID
	loser := round[0].Team(domain.Team2)[0].PlayerID
	drawer := round[1].Team(domain.Team1)[0].PlayerID

	assert.Equal(t, domain.PlayerStats{
		PlayerID: winner, Name: byID[winner].Name, TournamentsPlayed: 1, TotalPoints: 10,
		Victories: 1, PointsFor: 10, PointsAgainst: 6,
	}, byID[winner])
	assert.Equal(t, 1, byID[loser].Defeats)
	assert.Equal(t, 6, byID[loser].TotalPoints)
	assert.Equal(t, 1, byID[drawer].Draws)
	assert.Equal(t, 8, byID[drawer].PointsAgainst)

	assert.Equal(t, 10, stats[0].TotalPoints)
}
