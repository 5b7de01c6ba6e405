// Package service implements the tournament workflows: match generation,
// scoring, roster edits and the standings kept in sync with them.
package service

import (
	"context"

	"github.com/americano-tennis/internal/domain"
)

// StandingsCache is the read-optimized copy of tournament standings
type StandingsCache interface {
	SetScores(ctx context.Context, tournamentID int64, standings []domain.Standing) error
	GetTopN(ctx context.Context, tournamentID int64, n int) ([]domain.Standing, error)
	DeleteTournament(ctx context.Context, tournamentID int64) error
}

// Broadcaster pushes tournament updates to live subscribers
type Broadcaster interface {
	BroadcastStandings(tournamentID int64, standings []domain.Standing)
	BroadcastMatches(tournamentID int64, matches []domain.Match)
}

// Result sources used for metrics labels
const (
	SourceAPI      = "api"
	SourceKafka    = "kafka"
	SourceSimulate = "simulate"
)
