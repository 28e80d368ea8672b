package domain

import (
	"strconv"
	"strings"
)

// SentinelCost is recorded for pairs the distance provider could not measure.
// It is large enough that the solver strongly disprefers the edge while still
// terminating (an unmeasured edge is never treated as free).
const SentinelCost = 999999

// CostStatus reports whether a pairwise cost measurement succeeded.
type CostStatus string

const (
	CostStatusOK    CostStatus = "OK"
	CostStatusError CostStatus = "ERROR"
)

// Immutable geographic point. Identity is positional: two coordinates with
// equal lat/lng at different indices of a planning run are distinct nodes.
type Coordinate struct {
	Latitude  float64
	Longitude float64
	Name      string
}

// Key returns the "lat,lng" form used for provider parameters and cache keys.
func (c Coordinate) Key() string {
	return strconv.FormatFloat(c.Latitude, 'f', -1, 64) +
		"," +
		strconv.FormatFloat(c.Longitude, 'f', -1, 64)
}

// DefaultDeparture is the Seoul Station fallback used when a caller supplies
// a departure override that cannot be parsed.
var DefaultDeparture = Coordinate{
	Latitude:  37.5546788388674,
	Longitude: 126.970606917394,
	Name:      "Seoul Station",
}

// ParseCoordinate parses a "lat,lng" pair. The name is left empty; callers
// label the point themselves.
func ParseCoordinate(s string) (Coordinate, bool) {
	latRaw, lngRaw, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return Coordinate{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return Coordinate{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(lngRaw), 64)
	if err != nil {
		return Coordinate{}, false
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Coordinate{}, false
	}
	return Coordinate{Latitude: lat, Longitude: lng}, true
}

// CostEntry is one measured (or sentinel-filled) origin->destination cost.
type CostEntry struct {
	From            Coordinate
	To              Coordinate
	DistanceMeters  int
	DurationSeconds int
	Status          CostStatus
}

// Pair addresses one directed edge in the global index space of a planning run.
type Pair struct {
	From int
	To   int
}

// OptimizeFor selects the solver's objective metric.
type OptimizeFor string

const (
	OptimizeDistance OptimizeFor = "distance"
	OptimizeTime     OptimizeFor = "time"
)

// CostMatrix maps (origin_index, destination_index) to a CostEntry over the
// global index space of all candidate points for a planning run. The diagonal
// is defined as zero-cost whether or not an entry is present.
type CostMatrix map[Pair]CostEntry

// At returns the entry for edge (from, to) when one was recorded.
func (m CostMatrix) At(from, to int) (CostEntry, bool) {
	e, ok := m[Pair{From: from, To: to}]
	return e, ok
}

// Cost returns the objective cost of edge (from, to) under optimizeFor.
// Self-edges are free; missing entries cost SentinelCost so the solver never
// treats an unmeasured edge as free.
func (m CostMatrix) Cost(from, to int, optimizeFor OptimizeFor) float64 {
	if from == to {
		return 0
	}

	e, ok := m.At(from, to)
	if !ok {
		return SentinelCost
	}

	if optimizeFor == OptimizeTime {
		return float64(e.DurationSeconds)
	}
	return float64(e.DistanceMeters)
}

// SubMatrix slices the matrix down to the given global indices, re-indexed to
// 0..len(nodes)-1 in the order supplied. Missing global entries stay missing.
func (m CostMatrix) SubMatrix(nodes []int) CostMatrix {
	sub := make(CostMatrix, len(nodes)*len(nodes))
	for i, gi := range nodes {
		for j, gj := range nodes {
			if e, ok := m.At(gi, gj); ok {
				sub[Pair{From: i, To: j}] = e
			}
		}
	}
	return sub
}

// TSPSolution is the immutable result of one day's solve.
type TSPSolution struct {
	OptimalOrder         []int
	TotalDistanceMeters  int
	TotalDurationSeconds int
	Segments             []Pair
	SolveTime            float64 // seconds
}
