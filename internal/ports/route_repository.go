package ports

import (
	"context"

	"trip-route-service/internal/domain"
)

// Port: a boundary for persisting and retrieving calculated routes.
type RouteRepository interface {
	// Persist a new route with all its days and segments. Fails when a
	// route for the same (plan, version) already exists.
	Create(ctx context.Context, route *domain.Route) error

	// Retrieve the route for a specific plan version, including days and
	// segments. Returns domain.ErrRouteNotFound when absent.
	GetByPlanVersion(ctx context.Context, planID string, version int) (*domain.Route, error)

	// Retrieve the highest-version route for the plan.
	// Returns domain.ErrRouteNotFound when the plan has no routes.
	GetLatest(ctx context.Context, planID string) (*domain.Route, error)

	// Delete the route for a specific plan version.
	// Returns domain.ErrRouteNotFound when absent.
	DeleteByPlanVersion(ctx context.Context, planID string, version int) error

	// Replace the stored route's summary, days and segments with the
	// given state, atomically and under an exclusive row lock.
	Update(ctx context.Context, route *domain.Route) error
}
