package services

import (
	"testing"

	"trip-route-service/internal/domain"
)

func namedSpots(names ...string) []domain.Spot {
	spots := make([]domain.Spot, 0, len(names))
	for i, n := range names {
		spots = append(spots, domain.Spot{ID: n, Name: n, Latitude: float64(i), Longitude: float64(i)})
	}
	return spots
}

func TestSplitBySizeEven(t *testing.T) {
	buckets := SplitBySize(namedSpots("a", "b", "c", "d", "e", "f"), 3)

	if len(buckets) != 3 {
		t.Fatalf("buckets = %d, want 3", len(buckets))
	}
	for i, b := range buckets {
		if len(b) != 2 {
			t.Fatalf("bucket %d has %d spots, want 2", i, len(b))
		}
	}
	if buckets[0][0].ID != "a" || buckets[2][1].ID != "f" {
		t.Fatalf("selection order not preserved: %v", buckets)
	}
}

func TestSplitBySizeRemainder(t *testing.T) {
	buckets := SplitBySize(namedSpots("a", "b", "c", "d", "e", "f", "g"), 3)

	wantSizes := []int{3, 3, 1}
	for i, want := range wantSizes {
		if len(buckets[i]) != want {
			t.Fatalf("bucket %d has %d spots, want %d", i, len(buckets[i]), want)
		}
	}
}

func TestSplitBySizeSortsBySlotPriority(t *testing.T) {
	spots := []domain.Spot{
		{ID: "n1", TimeSlot: domain.SlotNight},
		{ID: "n2", TimeSlot: domain.SlotNight},
		{ID: "m1", TimeSlot: domain.SlotMorning},
		{ID: "m2", TimeSlot: domain.SlotMorning},
		{ID: "a1", TimeSlot: domain.SlotAfternoon},
		{ID: "a2", TimeSlot: domain.SlotAfternoon},
		{ID: "a3", TimeSlot: domain.SlotAfternoon},
	}

	buckets := SplitBySize(spots, 3)

	wantSizes := []int{3, 3, 1}
	for i, want := range wantSizes {
		if len(buckets[i]) != want {
			t.Fatalf("bucket %d has %d spots, want %d", i, len(buckets[i]), want)
		}
	}

	got := make([]string, 0, len(spots))
	for _, b := range buckets {
		for _, s := range b {
			got = append(got, s.ID)
		}
	}
	want := []string{"m1", "m2", "a1", "a2", "a3", "n1", "n2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot-priority order = %v, want %v", got, want)
		}
	}
	if buckets[0][0].TimeSlot != domain.SlotMorning {
		t.Fatalf("day 1 must open with a morning spot, got %s", buckets[0][0].TimeSlot)
	}
	if buckets[2][0].TimeSlot != domain.SlotNight {
		t.Fatalf("final day must carry the trailing night spot, got %s", buckets[2][0].TimeSlot)
	}
}

func TestSplitBySizeMoreDaysThanSpots(t *testing.T) {
	buckets := SplitBySize(namedSpots("a", "b"), 4)

	if len(buckets) != 4 {
		t.Fatalf("buckets = %d, want 4", len(buckets))
	}
	total := 0
	for _, b := range buckets {
		total += len(b)
	}
	if total != 2 {
		t.Fatalf("spots across buckets = %d, want 2", total)
	}
	if len(buckets[2]) != 0 || len(buckets[3]) != 0 {
		t.Fatalf("trailing buckets should be empty: %v", buckets)
	}
}

func TestAssignSlotOrderedSingleDay(t *testing.T) {
	spots := []domain.Spot{
		{ID: "night", TimeSlot: domain.SlotNight},
		{ID: "morning", TimeSlot: domain.SlotMorning},
		{ID: "free"}, // unset slot defaults to afternoon
		{ID: "morning2", TimeSlot: domain.SlotMorning},
	}

	a := AssignSpotsToDays(spots, 1, true, false)
	if !a.SlotOrdered {
		t.Fatal("expected slot-ordered assignment")
	}
	if len(a.Days) != 1 {
		t.Fatalf("days = %d, want 1", len(a.Days))
	}

	gotIDs := make([]string, 0, len(a.Days[0]))
	for _, s := range a.Days[0] {
		gotIDs = append(gotIDs, s.ID)
	}
	want := []string{"morning", "morning2", "free", "night"}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("slot order = %v, want %v", gotIDs, want)
		}
	}

	if len(a.SlotGroups) != 3 {
		t.Fatalf("slot groups = %d, want 3", len(a.SlotGroups))
	}
	if len(a.SlotGroups[0]) != 2 {
		t.Fatalf("morning group has %d spots, want 2", len(a.SlotGroups[0]))
	}
}

func TestAssignSplitDays(t *testing.T) {
	spots := []domain.Spot{
		{ID: "a", TimeSlot: domain.SlotNight},
		{ID: "b", TimeSlot: domain.SlotMorning},
		{ID: "c"},
		{ID: "d"},
	}

	a := AssignSpotsToDays(spots, 2, false, true)
	if a.SlotOrdered {
		t.Fatal("size-based split must not be slot ordered")
	}
	if len(a.Days) != 2 || len(a.Days[0]) != 2 || len(a.Days[1]) != 2 {
		t.Fatalf("unexpected buckets: %v", a.Days)
	}
	if a.Days[0][0].ID != "b" || a.Days[0][1].ID != "a" {
		t.Fatalf("day 1 must follow slot priority, got %v", a.Days[0])
	}
	if a.Days[1][0].ID != "c" || a.Days[1][1].ID != "d" {
		t.Fatalf("spots without a slot must trail, got %v", a.Days[1])
	}
}

func TestAssignDefaultsToSingleBucket(t *testing.T) {
	spots := namedSpots("a", "b", "c", "d")

	a := AssignSpotsToDays(spots, 3, false, false)
	if a.SlotOrdered {
		t.Fatal("default assignment must not be slot ordered")
	}
	if len(a.Days) != 1 || len(a.Days[0]) != 4 {
		t.Fatalf("default must keep everything on day 1, got %v", a.Days)
	}
}

func TestAssignCoversEverySpotOnce(t *testing.T) {
	spots := namedSpots("a", "b", "c", "d", "e")

	for _, days := range []int{1, 2, 3, 7} {
		a := AssignSpotsToDays(spots, days, false, true)

		seen := make(map[string]int)
		for _, bucket := range a.Days {
			for _, s := range bucket {
				seen[s.ID]++
			}
		}
		if len(seen) != len(spots) {
			t.Fatalf("days=%d: %d distinct spots assigned, want %d", days, len(seen), len(spots))
		}
		for id, n := range seen {
			if n != 1 {
				t.Fatalf("days=%d: spot %q assigned %d times", days, id, n)
			}
		}
	}
}
