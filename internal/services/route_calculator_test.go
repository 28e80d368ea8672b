package services

import (
	"context"
	"errors"
	"testing"

	"trip-route-service/internal/adapters/distance"
	"trip-route-service/internal/domain"
)

func lineCoord(pos float64, name string) domain.Coordinate {
	return domain.Coordinate{Latitude: pos, Longitude: 0, Name: name}
}

func lineSpot(id string, pos float64) domain.Spot {
	return domain.Spot{ID: id, Name: id, Latitude: pos, Longitude: 0}
}

// pinLine prices every directed pair at |Δlat|*100 meters, |Δlat|*10 seconds.
func pinLine(p *distance.MockDistanceProvider, coords ...domain.Coordinate) {
	for i, a := range coords {
		for j, b := range coords {
			if i == j {
				continue
			}
			d := a.Latitude - b.Latitude
			if d < 0 {
				d = -d
			}
			p.SetCost(a, b, int(d*100), int(d*10))
		}
	}
}

func visitIDs(day domain.RouteDay) []string {
	ids := make([]string, 0, len(day.OrderedSpots.Spots))
	for _, v := range day.OrderedSpots.Spots {
		ids = append(ids, v.Name)
	}
	return ids
}

func TestCalculateSingleDay(t *testing.T) {
	dep := lineCoord(0, "dep")
	spots := []domain.Spot{lineSpot("C", 30), lineSpot("A", 10), lineSpot("B", 20)}

	mock := distance.NewMockDistanceProvider()
	pinLine(mock, dep, spots[0].Coordinate(), spots[1].Coordinate(), spots[2].Coordinate())

	calc := NewRouteCalculator(mock, NewTSPSolver())
	route, err := calc.Calculate(context.Background(), CalculateInput{
		PlanID:    "p1",
		Version:   1,
		Departure: dep,
		Spots:     spots,
		TotalDays: 1,
		Mode:      domain.ModeDriving,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.PairwiseCalls != 1 {
		t.Fatalf("pairwise calls = %d, want 1", mock.PairwiseCalls)
	}
	if len(route.Days) != 1 {
		t.Fatalf("days = %d, want 1", len(route.Days))
	}

	day := route.Days[0]
	want := []string{"dep", "A", "B", "C"}
	got := visitIDs(day)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visit order = %v, want %v", got, want)
		}
	}

	if day.DistanceMeters != 3000 {
		t.Fatalf("day distance = %d, want 3000", day.DistanceMeters)
	}
	if day.DurationSeconds != 300 {
		t.Fatalf("day duration = %d, want 300", day.DurationSeconds)
	}
	if len(day.Segments) != 3 {
		t.Fatalf("segments = %d, want 3", len(day.Segments))
	}
	if day.Segments[0].FromLocation != "dep" || day.Segments[0].ToSpotName != "A" {
		t.Fatalf("first segment = %s -> %s, want dep -> A", day.Segments[0].FromLocation, day.Segments[0].ToSpotName)
	}
	if day.Stale {
		t.Fatal("fresh day must not be stale")
	}

	if route.TotalDistanceMeters != 3000 || route.TotalSpotsCount != 3 {
		t.Fatalf("route totals = %d/%d spots, want 3000/3", route.TotalDistanceMeters, route.TotalSpotsCount)
	}
}

func TestCalculateSlotOrderedDay(t *testing.T) {
	dep := lineCoord(0, "dep")
	spots := []domain.Spot{
		{ID: "night", Name: "night", Latitude: 5, TimeSlot: domain.SlotNight},
		{ID: "morning", Name: "morning", Latitude: 30, TimeSlot: domain.SlotMorning},
		{ID: "free", Name: "free", Latitude: 10},
	}

	mock := distance.NewMockDistanceProvider()
	pinLine(mock, dep, spots[0].Coordinate(), spots[1].Coordinate(), spots[2].Coordinate())

	calc := NewRouteCalculator(mock, NewTSPSolver())
	route, err := calc.Calculate(context.Background(), CalculateInput{
		PlanID:            "p1",
		Version:           1,
		Departure:         dep,
		Spots:             spots,
		TotalDays:         1,
		MaintainTimeOrder: true,
		Mode:              domain.ModeDriving,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The night spot sits closest to the departure point but must still be
	// visited last.
	want := []string{"dep", "morning", "free", "night"}
	got := visitIDs(route.Days[0])
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visit order = %v, want %v", got, want)
		}
	}
}

func TestCalculateMultiDayWithHotel(t *testing.T) {
	dep := lineCoord(0, "dep")
	hotel := lineCoord(50, "hotel")
	spots := []domain.Spot{
		lineSpot("S1", 10), lineSpot("S2", 20), lineSpot("S3", 30), lineSpot("S4", 40),
	}

	mock := distance.NewMockDistanceProvider()
	coords := []domain.Coordinate{dep, hotel}
	for _, s := range spots {
		coords = append(coords, s.Coordinate())
	}
	pinLine(mock, coords...)

	calc := NewRouteCalculator(mock, NewTSPSolver())
	route, err := calc.Calculate(context.Background(), CalculateInput{
		PlanID:    "p2",
		Version:   1,
		Departure: dep,
		Hotel:     &hotel,
		Spots:     spots,
		TotalDays: 2,
		SplitDays: true,
		Mode:      domain.ModeDriving,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(route.Days) != 2 {
		t.Fatalf("days = %d, want 2", len(route.Days))
	}
	if route.HotelLocation != "hotel" {
		t.Fatalf("hotel location = %q, want hotel", route.HotelLocation)
	}

	day1, day2 := route.Days[0], route.Days[1]

	if day1.StartLocation != "dep" || day1.EndLocation != "hotel" {
		t.Fatalf("day 1 runs %s -> %s, want dep -> hotel", day1.StartLocation, day1.EndLocation)
	}
	wantDay1 := []string{"dep", "S1", "S2", "hotel"}
	got := visitIDs(day1)
	for i := range wantDay1 {
		if got[i] != wantDay1[i] {
			t.Fatalf("day 1 visits = %v, want %v", got, wantDay1)
		}
	}

	if day2.StartLocation != "hotel" || day2.EndLocation != "hotel" {
		t.Fatalf("day 2 runs %s -> %s, want hotel -> hotel", day2.StartLocation, day2.EndLocation)
	}
	if n := len(day2.OrderedSpots.Spots); n != 4 {
		t.Fatalf("day 2 visits = %d, want 4", n)
	}

	if route.TotalSpotsCount != 4 {
		t.Fatalf("spot count = %d, want 4", route.TotalSpotsCount)
	}
	if route.TotalDistanceMeters != day1.DistanceMeters+day2.DistanceMeters {
		t.Fatal("route totals must equal the sum of day totals")
	}
}

func TestCalculateValidation(t *testing.T) {
	mock := distance.NewMockDistanceProvider()
	calc := NewRouteCalculator(mock, NewTSPSolver())

	_, err := calc.Calculate(context.Background(), CalculateInput{
		PlanID:    "p",
		Departure: lineCoord(0, "dep"),
	})
	if !errors.Is(err, domain.ErrNoSpotsSelected) {
		t.Fatalf("err = %v, want ErrNoSpotsSelected", err)
	}

	_, err = calc.Calculate(context.Background(), CalculateInput{
		PlanID: "p",
		Spots:  []domain.Spot{lineSpot("A", 10)},
	})
	if !errors.Is(err, domain.ErrNoDeparture) {
		t.Fatalf("err = %v, want ErrNoDeparture", err)
	}
}

func TestCalculateProviderFailure(t *testing.T) {
	mock := distance.NewMockDistanceProvider()
	mock.FailAll = true

	calc := NewRouteCalculator(mock, NewTSPSolver())
	_, err := calc.Calculate(context.Background(), CalculateInput{
		PlanID:    "p",
		Departure: lineCoord(0, "dep"),
		Spots:     []domain.Spot{lineSpot("A", 10)},
	})
	if !errors.Is(err, domain.ErrCostMatrixUnavailable) {
		t.Fatalf("err = %v, want ErrCostMatrixUnavailable", err)
	}
}

func TestCalculateAvoidsUnmeasuredEdge(t *testing.T) {
	dep := lineCoord(0, "dep")
	spots := []domain.Spot{lineSpot("A", 10), lineSpot("B", 20), lineSpot("C", 30)}
	a, b, c := spots[0].Coordinate(), spots[1].Coordinate(), spots[2].Coordinate()

	mock := distance.NewMockDistanceProvider()
	// Every edge is expensive except the dep->A->C->B corridor, and the A-B
	// edge comes back as an ERROR sentinel in both directions.
	for _, from := range []domain.Coordinate{dep, a, b, c} {
		for _, to := range []domain.Coordinate{dep, a, b, c} {
			if from != to {
				mock.SetCost(from, to, 9000, 900)
			}
		}
	}
	mock.SetCost(dep, a, 1000, 100)
	mock.SetCost(a, c, 2000, 200)
	mock.SetCost(c, b, 1000, 100)
	mock.SetCost(b, dep, 2000, 200)
	mock.FailPair(a, b)
	mock.FailPair(b, a)

	calc := NewRouteCalculator(mock, NewTSPSolver())
	route, err := calc.Calculate(context.Background(), CalculateInput{
		PlanID:    "p",
		Version:   1,
		Departure: dep,
		Spots:     spots,
		TotalDays: 1,
		Mode:      domain.ModeDriving,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	day := route.Days[0]
	want := []string{"dep", "A", "C", "B"}
	got := visitIDs(day)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visit order = %v, want %v (detour around the failed edge)", got, want)
		}
	}
	if day.DistanceMeters != 4000 || day.DurationSeconds != 400 {
		t.Fatalf("day totals = %d/%d, want 4000/400", day.DistanceMeters, day.DurationSeconds)
	}
	for i, seg := range day.Segments {
		if seg.DistanceMeters == 0 {
			t.Fatalf("segment %d traversed an unmeasured edge", i)
		}
	}
}

func TestCalculateUnmeasuredEdgeContributesNothing(t *testing.T) {
	dep := lineCoord(0, "dep")
	spots := []domain.Spot{lineSpot("A", 10)}

	mock := distance.NewMockDistanceProvider()
	pinLine(mock, dep, spots[0].Coordinate())
	// The only forward edge fails, so the single traversable path must
	// cross it; its metrics are unknown rather than the sentinel value.
	mock.FailPair(dep, spots[0].Coordinate())

	calc := NewRouteCalculator(mock, NewTSPSolver())
	route, err := calc.Calculate(context.Background(), CalculateInput{
		PlanID:    "p",
		Version:   1,
		Departure: dep,
		Spots:     spots,
		TotalDays: 1,
		Mode:      domain.ModeDriving,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	day := route.Days[0]
	if len(day.Segments) != 1 {
		t.Fatalf("segments = %d, want 1", len(day.Segments))
	}
	if day.Segments[0].DistanceMeters != 0 || day.Segments[0].DurationSeconds != 0 {
		t.Fatalf("segment = %d/%d, want 0/0 for an unmeasured edge",
			day.Segments[0].DistanceMeters, day.Segments[0].DurationSeconds)
	}
	if day.DistanceMeters != 0 || route.TotalDistanceMeters != 0 {
		t.Fatalf("totals = %d/%d, want 0 when only the failed edge was crossed",
			day.DistanceMeters, route.TotalDistanceMeters)
	}
}

func TestCalculateWithDetails(t *testing.T) {
	dep := lineCoord(0, "dep")
	spots := []domain.Spot{lineSpot("A", 10), lineSpot("B", 20)}

	mock := distance.NewMockDistanceProvider()
	pinLine(mock, dep, spots[0].Coordinate(), spots[1].Coordinate())

	calc := NewRouteCalculator(mock, NewTSPSolver())
	route, err := calc.Calculate(context.Background(), CalculateInput{
		PlanID:         "p",
		Version:        1,
		Departure:      dep,
		Spots:          spots,
		TotalDays:      1,
		Mode:           domain.ModeDriving,
		IncludeDetails: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if mock.DetailCalls != 1 {
		t.Fatalf("detail calls = %d, want 1", mock.DetailCalls)
	}

	day := route.Days[0]
	if day.Geometry == nil || day.Geometry.Polyline == "" {
		t.Fatal("expected path geometry on detailed day")
	}
	for i, seg := range day.Segments {
		if len(seg.Steps) == 0 {
			t.Fatalf("segment %d has no steps", i)
		}
	}
}
