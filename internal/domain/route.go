package domain

import "time"

// OrderedSpotsSchemaVersion tags the persisted OrderedSpots payload shape so
// downstream consumers can detect layout changes.
const OrderedSpotsSchemaVersion = 1

// RouteGeometrySchemaVersion tags the persisted RouteGeometry payload shape.
const RouteGeometrySchemaVersion = 1

// SpotVisit is one ordered stop within a day's visiting sequence.
type SpotVisit struct {
	Order         int      `json:"order"`
	LocationIndex int      `json:"location_index"`
	SpotID        string   `json:"spot_id,omitempty"`
	Name          string   `json:"name"`
	Latitude      float64  `json:"latitude"`
	Longitude     float64  `json:"longitude"`
	TimeSlot      TimeSlot `json:"time_slot,omitempty"`
	IsSpot        bool     `json:"is_spot"`
}

// OptimizationInfo records how a day's order was produced.
type OptimizationInfo struct {
	TotalDistanceMeters  int     `json:"total_distance_meters"`
	TotalDurationSeconds int     `json:"total_duration_seconds"`
	SolveTimeSeconds     float64 `json:"solve_time_seconds"`
}

// OrderedSpots is a day's visiting sequence, persisted as a structured
// payload rather than an untyped map.
type OrderedSpots struct {
	SchemaVersion int              `json:"schema_version"`
	Spots         []SpotVisit      `json:"spots"`
	Optimization  OptimizationInfo `json:"optimization_info"`
}

// RouteGeometry is the optional path geometry for one day.
type RouteGeometry struct {
	SchemaVersion int    `json:"schema_version"`
	Polyline      string `json:"polyline"`
}

// PathStep is one turn-by-turn instruction inside a segment.
type PathStep struct {
	Instruction     string `json:"instruction,omitempty"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	Polyline        string `json:"polyline,omitempty"`
}

// RouteSegment is one traversed edge of a day's route.
type RouteSegment struct {
	ID              int64
	RouteDayID      int64
	SegmentOrder    int
	FromLocation    string
	ToSpotID        string
	ToSpotName      string
	DistanceMeters  int
	DurationSeconds int
	TravelMode      TravelMode
	Steps           []PathStep
}

// RouteDay is the route for one calendar day of the itinerary.
// Stale marks a day whose persisted metrics no longer reflect its spot set;
// it is set by the spot-replacement operator and cleared by the next full
// recalculation.
type RouteDay struct {
	ID              int64
	RouteID         int64
	DayNumber       int
	StartLocation   string
	EndLocation     string
	DistanceMeters  int
	DurationSeconds int
	OrderedSpots    OrderedSpots
	Geometry        *RouteGeometry
	Stale           bool
	Segments        []RouteSegment
}

// RecomputeTotals re-sums the day's metrics from its segments.
func (d *RouteDay) RecomputeTotals() {
	d.DistanceMeters = 0
	d.DurationSeconds = 0
	for _, seg := range d.Segments {
		d.DistanceMeters += seg.DistanceMeters
		d.DurationSeconds += seg.DurationSeconds
	}
}

// Route is the persisted optimization result for one (plan, version) pair.
// Versions are immutable at the plan level: a recalculation writes a new
// version, while the partial-update operators amend the stored one in place.
type Route struct {
	ID                   int64
	PlanID               string
	Version              int
	TotalDays            int
	DepartureLocation    string
	HotelLocation        string
	TotalDistanceMeters  int
	TotalDurationSeconds int
	TotalSpotsCount      int
	CalculatedAt         time.Time
	Days                 []RouteDay
}

// Day returns the record for dayNumber, or nil when absent.
func (r *Route) Day(dayNumber int) *RouteDay {
	for i := range r.Days {
		if r.Days[i].DayNumber == dayNumber {
			return &r.Days[i]
		}
	}
	return nil
}

// RecomputeTotals re-sums route metrics from its days.
func (r *Route) RecomputeTotals() {
	r.TotalDistanceMeters = 0
	r.TotalDurationSeconds = 0
	for i := range r.Days {
		r.TotalDistanceMeters += r.Days[i].DistanceMeters
		r.TotalDurationSeconds += r.Days[i].DurationSeconds
	}
}
