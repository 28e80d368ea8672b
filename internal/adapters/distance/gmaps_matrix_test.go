package distance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"trip-route-service/internal/domain"
	"trip-route-service/internal/ports"
)

func latOf(t *testing.T, key string) int {
	t.Helper()
	raw, _, ok := strings.Cut(key, ",")
	if !ok {
		t.Fatalf("malformed coordinate key %q", key)
	}
	lat, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		t.Fatalf("parse latitude from %q: %v", key, err)
	}
	return int(lat)
}

// newMatrixServer serves the Distance Matrix endpoint with synthetic costs:
// distance = originLat*1000 + destLat meters, duration = originLat*10 +
// destLat seconds. failPair, when non-nil, marks that origin/dest latitude
// pair ZERO_RESULTS.
func newMatrixServer(t *testing.T, calls *atomic.Int64, failPair *[2]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/maps/api/distancematrix/") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		calls.Add(1)

		origins := strings.Split(r.URL.Query().Get("origins"), "|")
		dests := strings.Split(r.URL.Query().Get("destinations"), "|")
		if len(origins) > 25 || len(dests) > 25 {
			t.Errorf("block too large: %d origins, %d destinations", len(origins), len(dests))
		}

		var resp matrixResponse
		resp.Status = "OK"
		for _, o := range origins {
			oLat := latOf(t, o)
			var row matrixRow
			for _, d := range dests {
				dLat := latOf(t, d)
				var e matrixElement
				if failPair != nil && failPair[0] == oLat && failPair[1] == dLat {
					e.Status = "ZERO_RESULTS"
				} else {
					e.Status = "OK"
					e.Distance.Value = oLat*1000 + dLat
					e.Duration.Value = oLat*10 + dLat
				}
				row.Elements = append(row.Elements, e)
			}
			resp.Rows = append(resp.Rows, row)
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func latCoords(n int) []domain.Coordinate {
	coords := make([]domain.Coordinate, n)
	for i := range coords {
		coords[i] = domain.Coordinate{Latitude: float64(i), Longitude: 0, Name: fmt.Sprintf("p%d", i)}
	}
	return coords
}

func newTestProvider(t *testing.T, baseURL string, cache ports.CostCache) *GMapsDistanceProvider {
	t.Helper()
	p, err := NewGMapsDistanceProvider("test-key", cache)
	if err != nil {
		t.Fatalf("new provider: %v", err)
	}
	p.baseURL = baseURL
	return p
}

func TestPairwiseCostSingleBlock(t *testing.T) {
	var calls atomic.Int64
	srv := newMatrixServer(t, &calls, nil)
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	coords := latCoords(3)

	matrix, err := p.PairwiseCost(context.Background(), coords, coords, domain.ModeDriving)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("request count = %d, want 1", calls.Load())
	}
	if len(matrix) != 9 {
		t.Fatalf("matrix has %d entries, want 9", len(matrix))
	}

	e, ok := matrix.At(2, 1)
	if !ok {
		t.Fatal("missing entry (2,1)")
	}
	if e.Status != domain.CostStatusOK || e.DistanceMeters != 2001 || e.DurationSeconds != 21 {
		t.Fatalf("entry (2,1) = %+v, want OK 2001m/21s", e)
	}
}

func TestPairwiseCostSplitsIntoBlocks(t *testing.T) {
	var calls atomic.Int64
	srv := newMatrixServer(t, &calls, nil)
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	coords := latCoords(30)

	matrix, err := p.PairwiseCost(context.Background(), coords, coords, domain.ModeDriving)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 4 {
		t.Fatalf("request count = %d, want 4 blocks for 30x30", calls.Load())
	}
	if len(matrix) != 900 {
		t.Fatalf("matrix has %d entries, want 900", len(matrix))
	}

	// A pair in the last block carries its global indices.
	e, ok := matrix.At(29, 27)
	if !ok {
		t.Fatal("missing entry (29,27)")
	}
	if e.DistanceMeters != 29027 {
		t.Fatalf("entry (29,27) distance = %d, want 29027", e.DistanceMeters)
	}
}

func TestPairwiseCostElementNotFound(t *testing.T) {
	var calls atomic.Int64
	fail := [2]int{0, 2}
	srv := newMatrixServer(t, &calls, &fail)
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	coords := latCoords(3)

	matrix, err := p.PairwiseCost(context.Background(), coords, coords, domain.ModeDriving)
	if err != nil {
		t.Fatalf("one bad element must not fail the request: %v", err)
	}

	e, _ := matrix.At(0, 2)
	if e.Status != domain.CostStatusError || e.DistanceMeters != domain.SentinelCost {
		t.Fatalf("unresolvable pair = %+v, want sentinel entry", e)
	}
	if good, _ := matrix.At(1, 2); good.Status != domain.CostStatusOK {
		t.Fatalf("neighbouring pair = %+v, want OK", good)
	}
}

func TestPairwiseCostProviderDown(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	coords := latCoords(2)

	matrix, err := p.PairwiseCost(context.Background(), coords, coords, domain.ModeDriving)
	if !errors.Is(err, domain.ErrCostMatrixUnavailable) {
		t.Fatalf("err = %v, want ErrCostMatrixUnavailable", err)
	}
	if len(matrix) != 4 {
		t.Fatalf("failed request must still cover every pair, got %d entries", len(matrix))
	}
	for pair, e := range matrix {
		if e.Status != domain.CostStatusError {
			t.Fatalf("pair %v = %+v, want sentinel", pair, e)
		}
	}
	// One retry per block.
	if calls.Load() != 2 {
		t.Fatalf("request count = %d, want 2 attempts", calls.Load())
	}
}

type stubCostCache struct {
	store map[string]ports.CachedCost
	puts  map[string]ports.CachedCost
	gets  int
}

func (s *stubCostCache) GetMany(ctx context.Context, keys []string) (map[string]ports.CachedCost, error) {
	s.gets++
	hits := make(map[string]ports.CachedCost)
	for _, k := range keys {
		if v, ok := s.store[k]; ok {
			hits[k] = v
		}
	}
	return hits, nil
}

func (s *stubCostCache) PutMany(ctx context.Context, entries map[string]ports.CachedCost) error {
	if s.puts == nil {
		s.puts = make(map[string]ports.CachedCost)
	}
	for k, v := range entries {
		s.puts[k] = v
	}
	return nil
}

func TestPairwiseCostServedFromCache(t *testing.T) {
	var calls atomic.Int64
	srv := newMatrixServer(t, &calls, nil)
	defer srv.Close()

	coords := latCoords(2)
	cache := &stubCostCache{store: make(map[string]ports.CachedCost)}
	for _, from := range coords {
		for _, to := range coords {
			cache.store[costKey(domain.ModeDriving, from, to)] = ports.CachedCost{
				DistanceMeters:  4242,
				DurationSeconds: 42,
			}
		}
	}

	p := newTestProvider(t, srv.URL, cache)
	matrix, err := p.PairwiseCost(context.Background(), coords, coords, domain.ModeDriving)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("fully cached block made %d HTTP calls, want 0", calls.Load())
	}

	e, _ := matrix.At(0, 1)
	if e.Status != domain.CostStatusOK || e.DistanceMeters != 4242 || e.DurationSeconds != 42 {
		t.Fatalf("cached entry = %+v, want OK 4242m/42s", e)
	}
}

func TestPairwiseCostWritesBackToCache(t *testing.T) {
	var calls atomic.Int64
	srv := newMatrixServer(t, &calls, nil)
	defer srv.Close()

	coords := latCoords(2)
	cache := &stubCostCache{store: make(map[string]ports.CachedCost)}

	p := newTestProvider(t, srv.URL, cache)
	if _, err := p.PairwiseCost(context.Background(), coords, coords, domain.ModeDriving); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("request count = %d, want 1", calls.Load())
	}

	key := costKey(domain.ModeDriving, coords[1], coords[0])
	got, ok := cache.puts[key]
	if !ok {
		t.Fatalf("fetched pair %q not written back to cache", key)
	}
	if got.DistanceMeters != 1000 || got.DurationSeconds != 10 {
		t.Fatalf("cached write-back = %+v, want 1000m/10s", got)
	}
}

func TestDetailedPath(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/maps/api/directions/") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		calls.Add(1)

		waypoints := 0
		if wp := r.URL.Query().Get("waypoints"); wp != "" {
			waypoints = len(strings.Split(wp, "|"))
		}
		legs := waypoints + 1

		var resp directionsResponse
		resp.Status = "OK"
		route := directionsRoute{}
		route.OverviewPolyline.Points = "poly_full"
		for i := 0; i < legs; i++ {
			leg := directionsLeg{}
			leg.Distance.Value = 100 * (i + 1)
			leg.Duration.Value = 10 * (i + 1)
			step := directionsStep{HTMLInstructions: "go"}
			step.Distance.Value = leg.Distance.Value
			step.Duration.Value = leg.Duration.Value
			step.Polyline.Points = "poly_step"
			leg.Steps = []directionsStep{step}
			route.Legs = append(route.Legs, leg)
		}
		resp.Routes = []directionsRoute{route}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	coords := latCoords(3)

	path, err := p.DetailedPath(context.Background(), coords, domain.ModeWalking)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("request count = %d, want 1", calls.Load())
	}
	if len(path.Legs) != 2 {
		t.Fatalf("legs = %d, want 2", len(path.Legs))
	}
	if path.Polyline != "poly_full" {
		t.Fatalf("polyline = %q, want poly_full", path.Polyline)
	}
	if path.Legs[1].DistanceMeters != 200 || len(path.Legs[1].Steps) != 1 {
		t.Fatalf("second leg = %+v, want 200m with one step", path.Legs[1])
	}
}

func TestDetailedPathCollapsesDuplicates(t *testing.T) {
	var calls atomic.Int64
	srv := newMatrixServer(t, &calls, nil)
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	same := domain.Coordinate{Latitude: 1, Longitude: 1}

	path, err := p.DetailedPath(context.Background(), []domain.Coordinate{same, same}, domain.ModeDriving)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 0 {
		t.Fatalf("degenerate path made %d HTTP calls, want 0", calls.Load())
	}
	if len(path.Legs) != 0 || path.Polyline != "" {
		t.Fatalf("degenerate path = %+v, want empty", path)
	}
}
