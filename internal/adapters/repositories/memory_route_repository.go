package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"trip-route-service/internal/domain"
)

type planVersion struct {
	planID  string
	version int
}

// MemoryRouteRepository is an in-memory RouteRepository for tests. It copies
// routes on the way in and out so callers cannot mutate stored state.
type MemoryRouteRepository struct {
	mu     sync.Mutex
	nextID int64
	routes map[planVersion]*domain.Route
}

func NewMemoryRouteRepository() *MemoryRouteRepository {
	return &MemoryRouteRepository{routes: make(map[planVersion]*domain.Route)}
}

func (m *MemoryRouteRepository) Create(ctx context.Context, route *domain.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := planVersion{route.PlanID, route.Version}
	if _, ok := m.routes[key]; ok {
		return fmt.Errorf("route plan=%q version=%d already exists", route.PlanID, route.Version)
	}

	m.nextID++
	route.ID = m.nextID
	if route.CalculatedAt.IsZero() {
		route.CalculatedAt = time.Now()
	}
	for i := range route.Days {
		m.nextID++
		route.Days[i].ID = m.nextID
		route.Days[i].RouteID = route.ID
		for j := range route.Days[i].Segments {
			m.nextID++
			route.Days[i].Segments[j].ID = m.nextID
			route.Days[i].Segments[j].RouteDayID = route.Days[i].ID
		}
	}

	m.routes[key] = copyRoute(route)
	return nil
}

func (m *MemoryRouteRepository) GetByPlanVersion(ctx context.Context, planID string, version int) (*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.routes[planVersion{planID, version}]
	if !ok {
		return nil, domain.ErrRouteNotFound
	}
	return copyRoute(r), nil
}

func (m *MemoryRouteRepository) GetLatest(ctx context.Context, planID string) (*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *domain.Route
	for key, r := range m.routes {
		if key.planID != planID {
			continue
		}
		if latest == nil || r.Version > latest.Version {
			latest = r
		}
	}
	if latest == nil {
		return nil, domain.ErrRouteNotFound
	}
	return copyRoute(latest), nil
}

func (m *MemoryRouteRepository) DeleteByPlanVersion(ctx context.Context, planID string, version int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := planVersion{planID, version}
	if _, ok := m.routes[key]; !ok {
		return domain.ErrRouteNotFound
	}
	delete(m.routes, key)
	return nil
}

func (m *MemoryRouteRepository) Update(ctx context.Context, route *domain.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := planVersion{route.PlanID, route.Version}
	stored, ok := m.routes[key]
	if !ok {
		return domain.ErrRouteNotFound
	}

	route.ID = stored.ID
	route.CalculatedAt = stored.CalculatedAt
	m.routes[key] = copyRoute(route)
	return nil
}

func copyRoute(r *domain.Route) *domain.Route {
	out := *r
	out.Days = make([]domain.RouteDay, len(r.Days))
	for i, d := range r.Days {
		day := d
		day.Segments = append([]domain.RouteSegment(nil), d.Segments...)
		day.OrderedSpots.Spots = append([]domain.SpotVisit(nil), d.OrderedSpots.Spots...)
		if d.Geometry != nil {
			g := *d.Geometry
			day.Geometry = &g
		}
		out.Days[i] = day
	}
	return &out
}
