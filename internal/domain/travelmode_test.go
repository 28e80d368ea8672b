package domain

import "testing"

func TestParseTravelMode(t *testing.T) {
	mode, err := ParseTravelMode("TRANSIT")
	if err != nil || mode != ModeTransit {
		t.Fatalf("ParseTravelMode(TRANSIT) = %q, %v", mode, err)
	}

	mode, err = ParseTravelMode("")
	if err != nil || mode != ModeDriving {
		t.Fatalf("empty mode must default to driving, got %q, %v", mode, err)
	}

	if _, err := ParseTravelMode("TELEPORT"); err == nil {
		t.Fatal("unknown mode must be rejected")
	}
}

func TestEstimateDuration(t *testing.T) {
	cases := []struct {
		mode   TravelMode
		meters int
		want   int
	}{
		{ModeDriving, 1000, 90},
		{ModeTransit, 1000, 150},
		{ModeBicycling, 1000, 240},
		{ModeWalking, 1000, 720},
		{ModeDriving, 2500, 225},
		{ModeWalking, 0, 0},
	}
	for _, c := range cases {
		if got := c.mode.EstimateDuration(c.meters); got != c.want {
			t.Errorf("%s over %dm = %ds, want %ds", c.mode, c.meters, got, c.want)
		}
	}
}

func TestTimeSlotNormalize(t *testing.T) {
	if got := TimeSlot("").Normalize(); got != SlotAfternoon {
		t.Fatalf("unset slot = %q, want AFTERNOON", got)
	}
	if got := TimeSlot("BRUNCH").Normalize(); got != SlotAfternoon {
		t.Fatalf("unknown slot = %q, want AFTERNOON", got)
	}
	if got := SlotNight.Normalize(); got != SlotNight {
		t.Fatalf("known slot changed to %q", got)
	}
}

func TestCoordinateKey(t *testing.T) {
	a := Coordinate{Latitude: 35.6812, Longitude: 139.7671, Name: "Tokyo Station"}
	b := Coordinate{Latitude: 35.6812, Longitude: 139.7671, Name: "different label"}
	if a.Key() != b.Key() {
		t.Fatalf("key must depend on position only: %q vs %q", a.Key(), b.Key())
	}
	if a.Key() != "35.6812,139.7671" {
		t.Fatalf("key = %q, want 35.6812,139.7671", a.Key())
	}
}
