// Package scoring converts raw match results into ranking points.
package scoring

import (
	"fmt"
	"math"

	"github.com/americano-tennis/internal/domain"
)

// gamesTable holds the fixed conversions for finished "4 games" sets.
var gamesTable = map[[2]int][2]int{
	{4, 0}: {16, 0},
	{4, 1}: {13, 3},
	{4, 2}: {10, 6},
	{4, 3}: {9, 7},
	{0, 4}: {0, 16},
	{1, 4}: {3, 13},
	{2, 4}: {6, 10},
	{3, 4}: {7, 9},
	{4, 4}: {8, 8},
}

// Normalize returns the ranking points earned by each team for a raw result.
// Unknown modalities are treated as direct point counting.
func Normalize(raw1, raw2 int, modality domain.Modality) (int, int) {
	if modality != domain.ModalityGames {
		return raw1, raw2
	}
	if raw1 == 0 && raw2 == 0 {
		return 0, 0
	}
	if pts, ok := gamesTable[[2]int{raw1, raw2}]; ok {
		return pts[0], pts[1]
	}
	share := float64(raw1) / float64(raw1+raw2) * domain.MatchPoints
	points1 := int(math.Round(share))
	return points1, domain.MatchPoints - points1
}

// Validate rejects raw results that the modality cannot produce.
func Validate(raw1, raw2 int, modality domain.Modality) error {
	if raw1 < 0 || raw2 < 0 {
		return fmt.Errorf("%w: scores cannot be negative", domain.ErrInvalidScore)
	}
	switch modality {
	case domain.ModalityPoints:
		if raw1+raw2 > domain.MatchPoints {
			return fmt.Errorf("%w: %d+%d exceeds %d points", domain.ErrInvalidScore, raw1, raw2, domain.MatchPoints)
		}
	case domain.ModalityGames:
	default:
		return fmt.Errorf("%w: unknown modality %q", domain.ErrInvalidScore, modality)
	}
	return nil
}
