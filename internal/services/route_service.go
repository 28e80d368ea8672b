package services

import (
	"context"
	"fmt"
	"log"

	"trip-route-service/internal/domain"
	"trip-route-service/internal/ports"
)

// Fixed estimates applied by the partial-update operators. They stand in for
// a fresh provider call until the next full recalculation.
const (
	hotelEstimateMeters  = 5000
	hotelEstimateSeconds = 1200

	reorderEstimateMeters  = 2000
	reorderEstimateSeconds = 600
)

// UpdateResult reports the outcome of a partial-update operator.
type UpdateResult struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	UpdatedFields []string `json:"updated_fields"`
}

// CalculateRequest is the service-level input for a full planning run.
// Spots and TotalDays may be left empty to pull them from the plan's stored
// selection and date range.
type CalculateRequest struct {
	PlanID            string
	Version           int
	Departure         domain.Coordinate
	Hotel             *domain.Coordinate
	Spots             []domain.Spot
	TotalDays         int
	MaintainTimeOrder bool
	SplitDays         bool
	Mode              domain.TravelMode
	OptimizeFor       domain.OptimizeFor
	IncludeDetails    bool
}

// RouteService is the application-facing facade: full calculations, stored
// route retrieval, and the in-place partial updates.
type RouteService struct {
	spotSource   ports.SelectedSpotSource
	lengthSource ports.TripLengthSource
	repo         ports.RouteRepository
	calc         *RouteCalculator
}

func NewRouteService(
	spotSource ports.SelectedSpotSource,
	lengthSource ports.TripLengthSource,
	repo ports.RouteRepository,
	calc *RouteCalculator,
) *RouteService {
	return &RouteService{
		spotSource:   spotSource,
		lengthSource: lengthSource,
		repo:         repo,
		calc:         calc,
	}
}

// CalculateRoute runs a full planning pass for the plan version and persists
// the result.
func (s *RouteService) CalculateRoute(ctx context.Context, req CalculateRequest) (*domain.Route, error) {
	spots := req.Spots
	if len(spots) == 0 && s.spotSource != nil {
		var err error
		spots, err = s.spotSource.SelectedSpots(ctx, req.PlanID)
		if err != nil {
			return nil, fmt.Errorf("calculate route plan=%q: %w", req.PlanID, err)
		}
	}
	if len(spots) == 0 {
		return nil, domain.ErrNoSpotsSelected
	}

	totalDays := req.TotalDays
	if totalDays < 1 && s.lengthSource != nil {
		var err error
		totalDays, err = s.lengthSource.TotalDays(ctx, req.PlanID)
		if err != nil {
			return nil, fmt.Errorf("calculate route plan=%q: trip length: %w", req.PlanID, err)
		}
	}
	if totalDays < 1 {
		totalDays = 1
	}

	route, err := s.calc.Calculate(ctx, CalculateInput{
		PlanID:            req.PlanID,
		Version:           req.Version,
		Departure:         req.Departure,
		Hotel:             req.Hotel,
		Spots:             spots,
		TotalDays:         totalDays,
		MaintainTimeOrder: req.MaintainTimeOrder,
		SplitDays:         req.SplitDays,
		Mode:              req.Mode,
		OptimizeFor:       req.OptimizeFor,
		IncludeDetails:    req.IncludeDetails,
	})
	if err != nil {
		return nil, fmt.Errorf("calculate route plan=%q version=%d: %w", req.PlanID, req.Version, err)
	}

	if s.repo != nil {
		if err := s.repo.Create(ctx, route); err != nil {
			return nil, fmt.Errorf("persist route plan=%q version=%d: %w", req.PlanID, req.Version, err)
		}
		log.Printf("stage=PERSISTED plan=%s version=%d route_id=%d", req.PlanID, req.Version, route.ID)
	}

	return route, nil
}

func (s *RouteService) GetRouteDetails(ctx context.Context, planID string, version int) (*domain.Route, error) {
	route, err := s.repo.GetByPlanVersion(ctx, planID, version)
	if err != nil {
		return nil, fmt.Errorf("get route plan=%q version=%d: %w", planID, version, err)
	}
	return route, nil
}

func (s *RouteService) GetLatestRoute(ctx context.Context, planID string) (*domain.Route, error) {
	route, err := s.repo.GetLatest(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("get latest route plan=%q: %w", planID, err)
	}
	return route, nil
}

func (s *RouteService) DeleteRoute(ctx context.Context, planID string, version int) error {
	if err := s.repo.DeleteByPlanVersion(ctx, planID, version); err != nil {
		return fmt.Errorf("delete route plan=%q version=%d: %w", planID, version, err)
	}
	return nil
}

// UpdateHotel points the stored route at a new hotel. Each day's closing leg
// is replaced with a fixed estimate; everything else keeps its solved
// metrics until the next full recalculation.
func (s *RouteService) UpdateHotel(ctx context.Context, planID string, version int, hotel domain.Coordinate) (UpdateResult, error) {
	route, err := s.repo.GetByPlanVersion(ctx, planID, version)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update hotel plan=%q version=%d: %w", planID, version, err)
	}

	label := locationLabel(hotel)
	route.HotelLocation = label

	for i := range route.Days {
		day := &route.Days[i]

		if day.DayNumber > 1 {
			day.StartLocation = label
			if len(day.Segments) > 0 {
				day.Segments[0].FromLocation = label
			}
		}

		if len(day.Segments) == 0 {
			continue
		}

		last := &day.Segments[len(day.Segments)-1]
		last.ToSpotID = ""
		last.ToSpotName = label
		last.DistanceMeters = hotelEstimateMeters
		last.DurationSeconds = hotelEstimateSeconds
		last.Steps = nil

		day.EndLocation = label
		day.RecomputeTotals()
		day.OrderedSpots.Optimization.TotalDistanceMeters = day.DistanceMeters
		day.OrderedSpots.Optimization.TotalDurationSeconds = day.DurationSeconds
	}
	route.RecomputeTotals()

	if err := s.repo.Update(ctx, route); err != nil {
		return UpdateResult{}, fmt.Errorf("update hotel plan=%q version=%d: %w", planID, version, err)
	}

	return UpdateResult{
		Success:       true,
		Message:       fmt.Sprintf("hotel moved to %s; closing legs estimated", label),
		UpdatedFields: []string{"hotel_location", "route_days", "totals"},
	}, nil
}

// UpdateTravelMode switches the stored route to a different transport mode,
// re-deriving every segment's duration from its measured distance under the
// mode's average-speed model.
func (s *RouteService) UpdateTravelMode(ctx context.Context, planID string, version int, mode domain.TravelMode) (UpdateResult, error) {
	route, err := s.repo.GetByPlanVersion(ctx, planID, version)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("update travel mode plan=%q version=%d: %w", planID, version, err)
	}

	for i := range route.Days {
		day := &route.Days[i]
		for j := range day.Segments {
			seg := &day.Segments[j]
			seg.TravelMode = mode
			seg.DurationSeconds = mode.EstimateDuration(seg.DistanceMeters)
			// Turn-by-turn steps belong to the old mode.
			seg.Steps = nil
		}
		day.RecomputeTotals()
		day.OrderedSpots.Optimization.TotalDistanceMeters = day.DistanceMeters
		day.OrderedSpots.Optimization.TotalDurationSeconds = day.DurationSeconds
	}
	route.RecomputeTotals()

	if err := s.repo.Update(ctx, route); err != nil {
		return UpdateResult{}, fmt.Errorf("update travel mode plan=%q version=%d: %w", planID, version, err)
	}

	return UpdateResult{
		Success:       true,
		Message:       fmt.Sprintf("travel mode set to %s; durations re-derived", mode),
		UpdatedFields: []string{"travel_mode", "route_days", "totals"},
	}, nil
}

// ReorderDaySpots rewrites one day's visiting sequence to an explicit spot
// order. newSpotOrder must be a permutation of the day's current spot IDs.
// The day's segments are discarded and regenerated with fixed estimates;
// sibling days keep their solved metrics.
func (s *RouteService) ReorderDaySpots(ctx context.Context, planID string, version, dayNumber int, newSpotOrder []string) (UpdateResult, error) {
	route, err := s.repo.GetByPlanVersion(ctx, planID, version)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("reorder day spots plan=%q version=%d: %w", planID, version, err)
	}

	day := route.Day(dayNumber)
	if day == nil {
		return UpdateResult{}, fmt.Errorf("reorder day spots plan=%q version=%d day=%d: %w", planID, version, dayNumber, domain.ErrDayNotFound)
	}

	byID := make(map[string]domain.SpotVisit)
	var lead, tail []domain.SpotVisit
	for _, v := range day.OrderedSpots.Spots {
		switch {
		case v.IsSpot:
			byID[v.SpotID] = v
		case len(byID) == 0:
			lead = append(lead, v)
		default:
			tail = append(tail, v)
		}
	}

	if len(newSpotOrder) != len(byID) {
		return UpdateResult{}, fmt.Errorf("reorder day spots plan=%q day=%d: got %d spot ids, day has %d: %w", planID, dayNumber, len(newSpotOrder), len(byID), domain.ErrInvalidSpotOrder)
	}

	seen := make(map[string]bool, len(newSpotOrder))
	visits := append([]domain.SpotVisit(nil), lead...)
	for _, id := range newSpotOrder {
		if seen[id] {
			return UpdateResult{}, fmt.Errorf("reorder day spots plan=%q day=%d: spot %q listed twice: %w", planID, dayNumber, id, domain.ErrInvalidSpotOrder)
		}
		seen[id] = true
		v, ok := byID[id]
		if !ok {
			return UpdateResult{}, fmt.Errorf("reorder day spots plan=%q day=%d spot=%q: %w", planID, dayNumber, id, domain.ErrSpotNotFound)
		}
		visits = append(visits, v)
	}
	visits = append(visits, tail...)
	for i := range visits {
		visits[i].Order = i
	}

	// Solved metrics no longer match the new sequence; rebuild every leg
	// with a fixed estimate until the next full recalculation.
	mode := domain.ModeDriving
	if len(day.Segments) > 0 {
		mode = day.Segments[0].TravelMode
	}
	segments := make([]domain.RouteSegment, 0, len(visits)-1)
	for i := 0; i+1 < len(visits); i++ {
		segments = append(segments, domain.RouteSegment{
			RouteDayID:      day.ID,
			SegmentOrder:    i + 1,
			FromLocation:    visits[i].Name,
			ToSpotID:        visits[i+1].SpotID,
			ToSpotName:      visits[i+1].Name,
			DistanceMeters:  reorderEstimateMeters,
			DurationSeconds: reorderEstimateSeconds,
			TravelMode:      mode,
		})
	}

	day.OrderedSpots.Spots = visits
	day.Segments = segments
	if len(visits) > 0 {
		day.EndLocation = visits[len(visits)-1].Name
	}
	day.RecomputeTotals()
	day.OrderedSpots.Optimization.TotalDistanceMeters = day.DistanceMeters
	day.OrderedSpots.Optimization.TotalDurationSeconds = day.DurationSeconds
	route.RecomputeTotals()

	if err := s.repo.Update(ctx, route); err != nil {
		return UpdateResult{}, fmt.Errorf("reorder day spots plan=%q version=%d: %w", planID, version, err)
	}

	return UpdateResult{
		Success:       true,
		Message:       fmt.Sprintf("day %d reordered; segments estimated pending recalculation", dayNumber),
		UpdatedFields: []string{"route_days", "totals"},
	}, nil
}

// ReplaceSpot swaps one spot of a stored day for another without recomputing
// the sequence. Metrics are intentionally left untouched and the day is
// marked stale so callers know a recalculation is pending.
func (s *RouteService) ReplaceSpot(ctx context.Context, planID string, version, dayNumber int, oldSpotID string, newSpot domain.Spot) (UpdateResult, error) {
	route, err := s.repo.GetByPlanVersion(ctx, planID, version)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("replace spot plan=%q version=%d: %w", planID, version, err)
	}

	day := route.Day(dayNumber)
	if day == nil {
		return UpdateResult{}, fmt.Errorf("replace spot plan=%q version=%d day=%d: %w", planID, version, dayNumber, domain.ErrDayNotFound)
	}

	visitIdx := -1
	for i, v := range day.OrderedSpots.Spots {
		if v.IsSpot && v.SpotID == oldSpotID {
			visitIdx = i
			break
		}
	}
	if visitIdx < 0 {
		return UpdateResult{}, fmt.Errorf("replace spot plan=%q day=%d spot=%q: %w", planID, dayNumber, oldSpotID, domain.ErrSpotNotFound)
	}

	visit := &day.OrderedSpots.Spots[visitIdx]
	visit.SpotID = newSpot.ID
	visit.Name = newSpot.Name
	visit.Latitude = newSpot.Latitude
	visit.Longitude = newSpot.Longitude
	visit.TimeSlot = newSpot.TimeSlot.Normalize()

	// Segment i connects visit i to visit i+1.
	if visitIdx > 0 && visitIdx-1 < len(day.Segments) {
		day.Segments[visitIdx-1].ToSpotID = newSpot.ID
		day.Segments[visitIdx-1].ToSpotName = newSpot.Name
	}
	if visitIdx < len(day.Segments) {
		day.Segments[visitIdx].FromLocation = newSpot.Name
	}
	if visitIdx == len(day.OrderedSpots.Spots)-1 {
		day.EndLocation = newSpot.Name
	}

	day.Stale = true

	if err := s.repo.Update(ctx, route); err != nil {
		return UpdateResult{}, fmt.Errorf("replace spot plan=%q version=%d: %w", planID, version, err)
	}

	return UpdateResult{
		Success:       true,
		Message:       fmt.Sprintf("spot %s replaced with %s; day %d marked stale pending recalculation", oldSpotID, newSpot.ID, dayNumber),
		UpdatedFields: []string{"route_days"},
	}, nil
}
