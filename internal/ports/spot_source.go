package ports

import (
	"context"

	"trip-route-service/internal/domain"
)

// Port: a boundary for reading the spots a traveler selected for a plan.
type SelectedSpotSource interface {
	// Retrieve the selected spots for the plan, in selection order.
	SelectedSpots(ctx context.Context, planID string) ([]domain.Spot, error)
}

// Port: a boundary for reading a plan's trip length.
type TripLengthSource interface {
	// Retrieve the number of days the plan spans. Always at least 1.
	TotalDays(ctx context.Context, planID string) (int, error)
}
