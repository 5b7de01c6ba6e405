package redis

import (
	"testing"

	"github.com/americano-tennis/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "tournament:12:standings", standingsKey(12))
	assert.Equal(t, "player:7:info", playerInfoKey(7))
}

func TestToStandings_SharedRanks(t *testing.T) {
	results := []redis.Z{
		{Score: 25, Member: "3"},
		{Score: 25, Member: "1"},
		{Score: 18, Member: "9"},
		{Score: 0, Member: "4"},
	}
	names := map[string]string{"3": "Lucía", "1": "Diego", "9": "Marta"}

	standings, err := toStandings(results, names)
	require.NoError(t, err)

	assert.Equal(t, []domain.Standing{
		{Rank: 1, PlayerID: 3, Name: "Lucía", CurrentScore: 25},
		{Rank: 1, PlayerID: 1, Name: "Diego", CurrentScore: 25},
		{Rank: 3, PlayerID: 9, Name: "Marta", CurrentScore: 18},
		{Rank: 4, PlayerID: 4, Name: "", CurrentScore: 0},
	}, standings)
}

func TestToStandings_BadMember(t *testing.T) {
	_, err := toStandings([]redis.Z{{Score: 1, Member: "abc"}}, nil)
	assert.ErrorContains(t, err, "parsing member")

	_, err = toStandings([]redis.Z{{Score: 1, Member: 42}}, nil)
	assert.ErrorContains(t, err, "unexpected member type")
}
