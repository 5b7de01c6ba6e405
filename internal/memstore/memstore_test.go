package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/americano-tennis/internal/domain"
	"github.com/americano-tennis/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *Store, players int) (*domain.Tournament, []int64) {
	t.Helper()
	ctx := context.Background()

	tour := &domain.Tournament{
		Date:             time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		CourtsAvailable:  2,
		MatchesPerPlayer: 3,
		Modality:         domain.ModalityPoints,
		Status:           domain.StatusInProgress,
	}
	require.NoError(t, s.CreateTournament(ctx, tour))

	ids := make([]int64, players)
	for i := range ids {
		p, err := s.CreatePlayer(ctx, string(rune('A'+i)))
		require.NoError(t, err)
		require.NoError(t, s.AddEnrollment(ctx, tour.ID, p.ID))
		ids[i] = p.ID
	}
	return tour, ids
}

func newMatch(tournamentID int64, ids []int64) *domain.Match {
	return &domain.Match{
		TournamentID:   tournamentID,
		RoundNumber:    1,
		CourtNumber:    1,
		Participations: domain.NewParticipations([2]int64{ids[0], ids[1]}, [2]int64{ids[2], ids[3]}, func(int64) bool { return false }),
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	tour, ids := seed(t, s, 4)

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(q store.Queries) error {
		m := newMatch(tour.ID, ids)
		require.NoError(t, q.CreateMatch(ctx, m))
		require.NoError(t, q.SetCurrentScore(ctx, tour.ID, ids[0], 12))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	matches, err := s.ListMatches(ctx, tour.ID)
	require.NoError(t, err)
	assert.Empty(t, matches)

	e, err := s.GetEnrollment(ctx, tour.ID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 0, e.CurrentScore)
}

func TestWithTx_Commits(t *testing.T) {
	ctx := context.Background()
	s := New()
	tour, ids := seed(t, s, 4)

	var matchID int64
	err := s.WithTx(ctx, func(q store.Queries) error {
		m := newMatch(tour.ID, ids)
		if err := q.CreateMatch(ctx, m); err != nil {
			return err
		}
		matchID = m.ID
		return q.SetTeamScore(ctx, m.ID, domain.Team1, 9, 9)
	})
	require.NoError(t, err)

	m, err := s.GetMatch(ctx, matchID)
	require.NoError(t, err)
	s1, s2 := m.RawScores()
	assert.Equal(t, 9, s1)
	assert.Equal(t, 0, s2)
	assert.Equal(t, "A", m.Participations[0].PlayerName)
}

func TestCreateMatch_RejectsInvalidSeats(t *testing.T) {
	ctx := context.Background()
	s := New()
	tour, ids := seed(t, s, 4)

	m := newMatch(tour.ID, []int64{ids[0], ids[1], ids[2], ids[2]})
	assert.Error(t, s.CreateMatch(ctx, m))
}

func TestSumCountedPoints_SkipsFillersAndUnscored(t *testing.T) {
	ctx := context.Background()
	s := New()
	tour, ids := seed(t, s, 5)

	scored := newMatch(tour.ID, ids[:4])
	require.NoError(t, s.CreateMatch(ctx, scored))
	require.NoError(t, s.SetTeamScore(ctx, scored.ID, domain.Team1, 10, 10))
	require.NoError(t, s.SetTeamScore(ctx, scored.ID, domain.Team2, 6, 6))

	filler := &domain.Match{
		TournamentID: tour.ID,
		RoundNumber:  2,
		CourtNumber:  1,
		Participations: domain.NewParticipations([2]int64{ids[0], ids[4]}, [2]int64{ids[2], ids[3]}, func(id int64) bool {
			return id == ids[0]
		}),
	}
	require.NoError(t, s.CreateMatch(ctx, filler))
	require.NoError(t, s.SetTeamScore(ctx, filler.ID, domain.Team1, 16, 16))

	unscored := newMatch(tour.ID, []int64{ids[0], ids[2], ids[1], ids[3]})
	unscored.RoundNumber = 3
	require.NoError(t, s.CreateMatch(ctx, unscored))

	total, err := s.SumCountedPoints(ctx, tour.ID, ids[0])
	require.NoError(t, err)
	assert.Equal(t, 10, total)

	total, err = s.SumCountedPoints(ctx, tour.ID, ids[4])
	require.NoError(t, err)
	assert.Equal(t, 16, total)
}

func TestDeleteTournament_Cascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	tour, ids := seed(t, s, 4)
	m := newMatch(tour.ID, ids)
	require.NoError(t, s.CreateMatch(ctx, m))

	require.NoError(t, s.DeleteTournament(ctx, tour.ID))

	_, err := s.GetMatch(ctx, m.ID)
	assert.True(t, domain.IsNotFoundError(err))
	_, err = s.GetEnrollment(ctx, tour.ID, ids[0])
	assert.ErrorIs(t, err, domain.ErrEnrollmentNotFound)
	_, err = s.GetTournament(ctx, tour.ID)
	assert.ErrorIs(t, err, domain.ErrTournamentNotFound)

	// players survive
	_, err = s.GetPlayer(ctx, ids[0])
	assert.NoError(t, err)
}

func TestListTournaments_Counts(t *testing.T) {
	ctx := context.Background()
	s := New()
	tour, ids := seed(t, s, 4)

	m1 := newMatch(tour.ID, ids)
	require.NoError(t, s.CreateMatch(ctx, m1))
	require.NoError(t, s.SetTeamScore(ctx, m1.ID, domain.Team2, 4, 16))
	require.NoError(t, s.CreateMatch(ctx, newMatch(tour.ID, ids)))

	list, err := s.ListTournaments(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].TotalMatches)
	assert.Equal(t, 1, list[0].CompletedMatches)
}

func TestEnrollmentErrors(t *testing.T) {
	ctx := context.Background()
	s := New()
	tour, _ := seed(t, s, 1)

	assert.ErrorIs(t, s.AddEnrollment(ctx, tour.ID, 999), domain.ErrPlayerNotFound)
	assert.ErrorIs(t, s.AddEnrollment(ctx, 999, 1), domain.ErrTournamentNotFound)
	assert.ErrorIs(t, s.SetCurrentScore(ctx, tour.ID, 999, 3), domain.ErrEnrollmentNotFound)
	assert.ErrorIs(t, s.RemoveEnrollment(ctx, tour.ID, 999), domain.ErrNotFound)
}

func TestReturnedMatchesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	tour, ids := seed(t, s, 4)
	m := newMatch(tour.ID, ids)
	require.NoError(t, s.CreateMatch(ctx, m))

	got, err := s.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	got.Participations[0].RawScore = 99

	again, err := s.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.False(t, again.IsScored())
}
