// Package store defines the persistence contract the tournament services run
// against. Implementations live in internal/postgres and internal/memstore.
package store

import (
	"context"

	"github.com/americano-tennis/internal/domain"
)

// Queries is the set of reads and writes available inside and outside a
// transaction. Lookups of missing rows return an error matching
// domain.ErrNotFound.
type Queries interface {
	// Players
	CreatePlayer(ctx context.Context, name string) (*domain.Player, error)
	GetPlayer(ctx context.Context, playerID int64) (*domain.Player, error)
	ListPlayers(ctx context.Context) ([]domain.Player, error)
	UpdatePlayer(ctx context.Context, player domain.Player) error

	// Tournaments
	CreateTournament(ctx context.Context, t *domain.Tournament) error
	GetTournament(ctx context.Context, tournamentID int64) (*domain.Tournament, error)
	ListTournaments(ctx context.Context) ([]domain.TournamentSummary, error)
	UpdateTournament(ctx context.Context, t domain.Tournament) error
	DeleteTournament(ctx context.Context, tournamentID int64) error

	// Enrollments
	AddEnrollment(ctx context.Context, tournamentID, playerID int64) error
	RemoveEnrollment(ctx context.Context, tournamentID, playerID int64) error
	GetEnrollment(ctx context.Context, tournamentID, playerID int64) (*domain.Enrollment, error)
	ListEnrollments(ctx context.Context, tournamentID int64) ([]domain.Enrollment, error)
	SetCurrentScore(ctx context.Context, tournamentID, playerID int64, score int) error

	// Matches and participations
	CreateMatch(ctx context.Context, m *domain.Match) error
	GetMatch(ctx context.Context, matchID int64) (*domain.Match, error)
	ListMatches(ctx context.Context, tournamentID int64) ([]domain.Match, error)
	ReplaceParticipations(ctx context.Context, matchID int64, parts []domain.Participation) error
	SetTeamScore(ctx context.Context, matchID int64, teamID, rawScore, points int) error
	DeleteMatch(ctx context.Context, matchID int64) error
	DeleteTournamentMatches(ctx context.Context, tournamentID int64) error

	// SumCountedPoints totals the normalized points of a player's non-filler
	// participations in scored matches of one tournament.
	SumCountedPoints(ctx context.Context, tournamentID, playerID int64) (int, error)
}

// Store is a Queries implementation that can also open transactions.
type Store interface {
	Queries

	// WithTx runs fn inside a single transaction. The transaction commits
	// when fn returns nil and rolls back completely otherwise.
	WithTx(ctx context.Context, fn func(q Queries) error) error

	// Ping checks that the backing store is reachable
	Ping(ctx context.Context) error
}
