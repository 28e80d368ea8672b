package services

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"trip-route-service/internal/domain"
	"trip-route-service/internal/ports"
)

// Upper bound on concurrent per-day solves and detail fetches.
const maxConcurrentDays = 4

// CalculateInput carries everything one planning run needs.
type CalculateInput struct {
	PlanID         string
	Version        int
	Departure domain.Coordinate
	Hotel     *domain.Coordinate
	Spots     []domain.Spot
	TotalDays int

	// MaintainTimeOrder sequences day 1 slot-by-slot; SplitDays balances
	// spots across TotalDays. Neither set keeps everything on day 1.
	MaintainTimeOrder bool
	SplitDays         bool

	Mode           domain.TravelMode
	OptimizeFor    domain.OptimizeFor
	IncludeDetails bool
}

// RouteCalculator runs one planning pass: fetch the pairwise cost matrix,
// partition spots across days, sequence each day, and optionally enrich the
// result with turn-by-turn details. Each stage is logged so a stuck run can
// be located from the logs alone.
type RouteCalculator struct {
	provider ports.DistanceProvider
	solver   *TSPSolver
}

func NewRouteCalculator(provider ports.DistanceProvider, solver *TSPSolver) *RouteCalculator {
	return &RouteCalculator{provider: provider, solver: solver}
}

func (c *RouteCalculator) Calculate(ctx context.Context, in CalculateInput) (*domain.Route, error) {
	if len(in.Spots) == 0 {
		return nil, domain.ErrNoSpotsSelected
	}
	if (in.Departure == domain.Coordinate{}) {
		return nil, domain.ErrNoDeparture
	}
	if in.TotalDays < 1 {
		in.TotalDays = 1
	}

	// Global node space: departure at 0, spots at 1..n, hotel last when it
	// is a distinct point.
	coords := make([]domain.Coordinate, 0, len(in.Spots)+2)
	coords = append(coords, in.Departure)

	spotByNode := make(map[int]domain.Spot, len(in.Spots))
	nodeOf := make(map[domain.Spot]int, len(in.Spots))
	for _, s := range in.Spots {
		coords = append(coords, s.Coordinate())
		node := len(coords) - 1
		spotByNode[node] = s
		if _, ok := nodeOf[s]; !ok {
			nodeOf[s] = node
		}
	}

	hotelNode := -1
	if in.Hotel != nil {
		if in.Hotel.Key() == in.Departure.Key() {
			hotelNode = 0
		} else {
			coords = append(coords, *in.Hotel)
			hotelNode = len(coords) - 1
		}
	}

	log.Printf("stage=COLLECTING plan=%s version=%d days=%d spots=%d nodes=%d",
		in.PlanID, in.Version, in.TotalDays, len(in.Spots), len(coords))

	costs, err := c.provider.PairwiseCost(ctx, coords, coords, in.Mode)
	if err != nil {
		return nil, fmt.Errorf("cost matrix for plan %q: %w", in.PlanID, err)
	}

	log.Printf("stage=MATRIX_READY plan=%s version=%d entries=%d",
		in.PlanID, in.Version, len(costs))

	assignment := AssignSpotsToDays(in.Spots, in.TotalDays, in.MaintainTimeOrder, in.SplitDays)

	days := make([]domain.RouteDay, len(assignment.Days))
	var g errgroup.Group
	g.SetLimit(maxConcurrentDays)
	for i := range assignment.Days {
		i := i
		g.Go(func() error {
			days[i] = c.solveDay(dayContext{
				dayNumber:  i + 1,
				bucket:     assignment.Days[i],
				slotGroups: slotGroupsForDay(assignment, i),
				coords:     coords,
				costs:      costs,
				spotByNode: spotByNode,
				nodeOf:     nodeOf,
				hotelNode:  hotelNode,
				mode:       in.Mode,
				optimize:   in.OptimizeFor,
			})
			return nil
		})
	}
	_ = g.Wait()

	log.Printf("stage=SOLVED plan=%s version=%d days=%d", in.PlanID, in.Version, len(days))

	if in.IncludeDetails {
		c.attachDetails(ctx, days, coords, in.Mode)
		log.Printf("stage=DETAILED plan=%s version=%d", in.PlanID, in.Version)
	}

	route := &domain.Route{
		PlanID:            in.PlanID,
		Version:           in.Version,
		TotalDays:         in.TotalDays,
		DepartureLocation: locationLabel(in.Departure),
		TotalSpotsCount:   len(in.Spots),
		Days:              days,
	}
	if in.Hotel != nil {
		route.HotelLocation = locationLabel(*in.Hotel)
	}
	route.RecomputeTotals()

	return route, nil
}

func slotGroupsForDay(a Assignment, dayIdx int) [][]domain.Spot {
	if a.SlotOrdered && dayIdx == 0 {
		return a.SlotGroups
	}
	return nil
}

// dayContext bundles the read-only state one day's solve needs.
type dayContext struct {
	dayNumber  int
	bucket     []domain.Spot
	slotGroups [][]domain.Spot
	coords     []domain.Coordinate
	costs      domain.CostMatrix
	spotByNode map[int]domain.Spot
	nodeOf     map[domain.Spot]int
	hotelNode  int
	mode       domain.TravelMode
	optimize   domain.OptimizeFor
}

// solveDay sequences one day's spots. Day 1 starts at the departure point;
// later days start from the hotel when one is set. Days finish at the hotel
// when one is set, otherwise wherever the path ends. A failed solve degrades
// to selection order rather than sinking the whole run.
func (c *RouteCalculator) solveDay(dc dayContext) domain.RouteDay {
	start := 0
	if dc.dayNumber > 1 && dc.hotelNode >= 0 {
		start = dc.hotelNode
	}

	day := domain.RouteDay{
		DayNumber:     dc.dayNumber,
		StartLocation: locationLabel(dc.coords[start]),
	}

	if len(dc.bucket) == 0 {
		day.EndLocation = day.StartLocation
		day.OrderedSpots = domain.OrderedSpots{SchemaVersion: domain.OrderedSpotsSchemaVersion, Spots: []domain.SpotVisit{}}
		return day
	}

	order, solveTime, err := c.sequenceDay(dc, start)
	if err != nil {
		log.Printf("day solve failed, keeping selection order: day=%d err=%v", dc.dayNumber, err)
		order = fallbackOrder(dc, start)
		day.Stale = true
	}

	c.fillDay(&day, dc, order, solveTime)
	return day
}

// sequenceDay produces the day's global visiting order, including the start
// node and a trailing hotel node when one applies.
func (c *RouteCalculator) sequenceDay(dc dayContext, start int) ([]int, float64, error) {
	if len(dc.slotGroups) > 0 {
		return c.sequenceSlotGroups(dc, start)
	}

	nodes := make([]int, 0, len(dc.bucket)+2)
	nodes = append(nodes, start)
	for _, s := range dc.bucket {
		nodes = append(nodes, dc.nodeOf[s])
	}

	endLocal := -1
	if dc.hotelNode >= 0 && dc.hotelNode != start {
		nodes = append(nodes, dc.hotelNode)
		endLocal = len(nodes) - 1
	}

	sub := dc.costs.SubMatrix(nodes)
	sol, err := c.solver.SolveOpenPath(sub, len(nodes), 0, endLocal, dc.optimize)
	if err != nil {
		return nil, 0, err
	}

	order := make([]int, 0, len(sol.OptimalOrder)+1)
	for _, local := range sol.OptimalOrder {
		order = append(order, nodes[local])
	}

	// Close the day back at the hotel when the day also started there.
	if dc.hotelNode >= 0 && dc.hotelNode == start {
		order = append(order, dc.hotelNode)
	}

	return order, sol.SolveTime, nil
}

// sequenceSlotGroups sequences each time-slot group separately, chaining the
// groups so each one starts where the previous one ended. The day still
// finishes at the hotel when one is set.
func (c *RouteCalculator) sequenceSlotGroups(dc dayContext, start int) ([]int, float64, error) {
	order := []int{start}
	current := start
	var solveTime float64

	for _, group := range dc.slotGroups {
		nodes := make([]int, 0, len(group)+1)
		nodes = append(nodes, current)
		for _, s := range group {
			nodes = append(nodes, dc.nodeOf[s])
		}

		sub := dc.costs.SubMatrix(nodes)
		sol, err := c.solver.SolveOpenPath(sub, len(nodes), 0, -1, dc.optimize)
		if err != nil {
			return nil, 0, fmt.Errorf("slot group solve: %w", err)
		}

		for _, local := range sol.OptimalOrder[1:] {
			order = append(order, nodes[local])
		}
		solveTime += sol.SolveTime
		current = order[len(order)-1]
	}

	if dc.hotelNode >= 0 && dc.hotelNode != current {
		order = append(order, dc.hotelNode)
	}

	return order, solveTime, nil
}

func fallbackOrder(dc dayContext, start int) []int {
	order := []int{start}
	for _, s := range dc.bucket {
		order = append(order, dc.nodeOf[s])
	}
	if dc.hotelNode >= 0 && dc.hotelNode != order[len(order)-1] {
		order = append(order, dc.hotelNode)
	}
	return order
}

// fillDay materializes visits and segments from the visiting order, replaying
// metrics from the cost matrix. Unmeasured edges contribute nothing.
func (c *RouteCalculator) fillDay(day *domain.RouteDay, dc dayContext, order []int, solveTime float64) {
	visits := make([]domain.SpotVisit, 0, len(order))
	for pos, node := range order {
		visit := domain.SpotVisit{
			Order:         pos,
			LocationIndex: node,
			Name:          locationLabel(dc.coords[node]),
			Latitude:      dc.coords[node].Latitude,
			Longitude:     dc.coords[node].Longitude,
		}
		if s, ok := dc.spotByNode[node]; ok {
			visit.SpotID = s.ID
			visit.TimeSlot = s.TimeSlot.Normalize()
			visit.IsSpot = true
		}
		visits = append(visits, visit)
	}

	segments := make([]domain.RouteSegment, 0, len(order)-1)
	for i := 1; i < len(order); i++ {
		from, to := order[i-1], order[i]

		seg := domain.RouteSegment{
			SegmentOrder: i,
			FromLocation: locationLabel(dc.coords[from]),
			ToSpotName:   locationLabel(dc.coords[to]),
			TravelMode:   dc.mode,
		}
		if s, ok := dc.spotByNode[to]; ok {
			seg.ToSpotID = s.ID
		}
		if e, ok := dc.costs.At(from, to); ok && e.Status == domain.CostStatusOK {
			seg.DistanceMeters = e.DistanceMeters
			seg.DurationSeconds = e.DurationSeconds
		}
		segments = append(segments, seg)
	}

	day.Segments = segments
	day.EndLocation = locationLabel(dc.coords[order[len(order)-1]])
	day.RecomputeTotals()
	day.OrderedSpots = domain.OrderedSpots{
		SchemaVersion: domain.OrderedSpotsSchemaVersion,
		Spots:         visits,
		Optimization: domain.OptimizationInfo{
			TotalDistanceMeters:  day.DistanceMeters,
			TotalDurationSeconds: day.DurationSeconds,
			SolveTimeSeconds:     solveTime,
		},
	}
}

// attachDetails enriches each day's segments with turn-by-turn data and path
// geometry. A failed fetch leaves that day on matrix estimates.
func (c *RouteCalculator) attachDetails(ctx context.Context, days []domain.RouteDay, coords []domain.Coordinate, mode domain.TravelMode) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentDays)

	for i := range days {
		day := &days[i]
		if len(day.Segments) == 0 {
			continue
		}

		ordered := make([]domain.Coordinate, 0, len(day.OrderedSpots.Spots))
		for _, v := range day.OrderedSpots.Spots {
			ordered = append(ordered, coords[v.LocationIndex])
		}

		g.Go(func() error {
			res, err := c.provider.DetailedPath(ctx, ordered, mode)
			if err != nil {
				log.Printf("detail fetch failed, keeping matrix estimates: day=%d err=%v", day.DayNumber, err)
				return nil
			}
			if len(res.Legs) != len(day.Segments) {
				log.Printf("detail legs mismatch: day=%d legs=%d segments=%d",
					day.DayNumber, len(res.Legs), len(day.Segments))
				return nil
			}

			for j, leg := range res.Legs {
				day.Segments[j].DistanceMeters = leg.DistanceMeters
				day.Segments[j].DurationSeconds = leg.DurationSeconds
				day.Segments[j].Steps = leg.Steps
			}
			if res.Polyline != "" {
				day.Geometry = &domain.RouteGeometry{
					SchemaVersion: domain.RouteGeometrySchemaVersion,
					Polyline:      res.Polyline,
				}
			}
			day.RecomputeTotals()
			day.OrderedSpots.Optimization.TotalDistanceMeters = day.DistanceMeters
			day.OrderedSpots.Optimization.TotalDurationSeconds = day.DurationSeconds
			return nil
		})
	}
	_ = g.Wait()
}

func locationLabel(c domain.Coordinate) string {
	if c.Name != "" {
		return c.Name
	}
	return c.Key()
}
