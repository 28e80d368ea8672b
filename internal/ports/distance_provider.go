package ports

import (
	"context"

	"trip-route-service/internal/domain"
)

// PathLeg is the detailed result for one consecutive pair of the ordered
// coordinate list passed to DetailedPath.
type PathLeg struct {
	DistanceMeters  int
	DurationSeconds int
	Steps           []domain.PathStep
}

// PathResult is a fully detailed path through an ordered coordinate list.
type PathResult struct {
	Legs     []PathLeg
	Polyline string
}

// Contract for retrieving travel costs and detailed paths between coordinates.
type DistanceProvider interface {
	// Return the pairwise travel costs from every origin to every
	// destination for the given travel mode. Entries that could not be
	// resolved carry Status ERROR with sentinel costs; the result always
	// covers len(origins) x len(destinations) pairs.
	PairwiseCost(ctx context.Context, origins, destinations []domain.Coordinate, mode domain.TravelMode) (domain.CostMatrix, error)

	// Return a detailed path visiting the ordered coordinates in sequence.
	// Fewer than two distinct coordinates yields an empty result.
	DetailedPath(ctx context.Context, ordered []domain.Coordinate, mode domain.TravelMode) (PathResult, error)
}
