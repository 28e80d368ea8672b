package dto

import "time"

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name"`
}

type Spot struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TimeSlot  string  `json:"time_slot"`
}

type CalculateRouteRequest struct {
	PlanID  string `json:"plan_id"`
	Version int    `json:"version"`

	// Departure and Hotel may be given structured or as "lat,lng" override
	// strings; the structured form wins when both are present.
	Departure         Coordinate  `json:"departure"`
	DepartureOverride string      `json:"departure_override"`
	Hotel             *Coordinate `json:"hotel"`
	HotelOverride     string      `json:"hotel_override"`

	Spots             []Spot `json:"spots"`
	TotalDays         int    `json:"total_days"`
	MaintainTimeOrder bool   `json:"maintain_time_order"`
	SplitDays         bool   `json:"split_days"`
	TravelMode        string `json:"travel_mode"`
	OptimizeFor       string `json:"optimize_for"`
	IncludeDetails    bool   `json:"include_details"`
}

type UpdateHotelRequest struct {
	PlanID  string     `json:"plan_id"`
	Version int        `json:"version"`
	Hotel   Coordinate `json:"hotel"`
}

type UpdateTravelModeRequest struct {
	PlanID     string `json:"plan_id"`
	Version    int    `json:"version"`
	TravelMode string `json:"travel_mode"`
}

type ReorderDaySpotsRequest struct {
	PlanID       string   `json:"plan_id"`
	Version      int      `json:"version"`
	DayNumber    int      `json:"day_number"`
	NewSpotOrder []string `json:"new_spot_order"`
}

type ReplaceSpotRequest struct {
	PlanID    string `json:"plan_id"`
	Version   int    `json:"version"`
	DayNumber int    `json:"day_number"`
	OldSpotID string `json:"old_spot_id"`
	NewSpot   Spot   `json:"new_spot"`
}

type UpdateResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	UpdatedFields []string `json:"updated_fields"`
}

type SpotVisitResponse struct {
	Order     int     `json:"order"`
	SpotID    string  `json:"spot_id,omitempty"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TimeSlot  string  `json:"time_slot,omitempty"`
	IsSpot    bool    `json:"is_spot"`
}

type PathStepResponse struct {
	Instruction     string `json:"instruction,omitempty"`
	DistanceMeters  int    `json:"distance_meters"`
	DurationSeconds int    `json:"duration_seconds"`
	Polyline        string `json:"polyline,omitempty"`
}

type SegmentResponse struct {
	SegmentOrder    int                `json:"segment_order"`
	FromLocation    string             `json:"from_location"`
	ToSpotID        string             `json:"to_spot_id,omitempty"`
	ToSpotName      string             `json:"to_spot_name"`
	DistanceMeters  int                `json:"distance_meters"`
	DurationSeconds int                `json:"duration_seconds"`
	TravelMode      string             `json:"travel_mode"`
	Steps           []PathStepResponse `json:"steps,omitempty"`
}

type DayResponse struct {
	DayNumber        int                 `json:"day_number"`
	StartLocation    string              `json:"start_location"`
	EndLocation      string              `json:"end_location"`
	DistanceMeters   int                 `json:"distance_meters"`
	DurationSeconds  int                 `json:"duration_seconds"`
	SolveTimeSeconds float64             `json:"solve_time_seconds"`
	Stale            bool                `json:"stale"`
	Polyline         string              `json:"polyline,omitempty"`
	Spots            []SpotVisitResponse `json:"spots"`
	Segments         []SegmentResponse   `json:"segments"`
}

type RouteResponse struct {
	PlanID               string        `json:"plan_id"`
	Version              int           `json:"version"`
	TotalDays            int           `json:"total_days"`
	DepartureLocation    string        `json:"departure_location"`
	HotelLocation        string        `json:"hotel_location,omitempty"`
	TotalDistanceMeters  int           `json:"total_distance_meters"`
	TotalDurationSeconds int           `json:"total_duration_seconds"`
	TotalSpotsCount      int           `json:"total_spots_count"`
	CalculatedAt         time.Time     `json:"calculated_at"`
	Days                 []DayResponse `json:"days"`
}
