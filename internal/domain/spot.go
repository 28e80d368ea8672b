package domain

// TimeSlot is the coarse period of day a spot is recommended for.
type TimeSlot string

const (
	SlotMorning   TimeSlot = "MORNING"
	SlotAfternoon TimeSlot = "AFTERNOON"
	SlotNight     TimeSlot = "NIGHT"
)

// Normalize maps an unset slot to the product default (afternoon).
func (t TimeSlot) Normalize() TimeSlot {
	switch t {
	case SlotMorning, SlotAfternoon, SlotNight:
		return t
	}
	return SlotAfternoon
}

// Priority orders slots within a day: morning first, night last.
// Unknown slots sort after all known ones.
func (t TimeSlot) Priority() int {
	switch t {
	case SlotMorning:
		return 0
	case SlotAfternoon:
		return 1
	case SlotNight:
		return 2
	}
	return 3
}

// Spot is a user-selected point of interest supplied by the upstream
// recommender for a (plan, version) pair.
type Spot struct {
	ID        string
	Name      string
	Latitude  float64
	Longitude float64
	TimeSlot  TimeSlot
}

// Coordinate returns the spot's position as a routing node.
func (s Spot) Coordinate() Coordinate {
	return Coordinate{Latitude: s.Latitude, Longitude: s.Longitude, Name: s.Name}
}
