package services

import (
	"sort"

	"trip-route-service/internal/domain"
)

// Assignment is the outcome of distributing a plan's spots across its days.
type Assignment struct {
	// Days holds one bucket per calendar day; Days[i] belongs to day i+1.
	// Buckets may be empty when the trip has more days than spots.
	Days [][]domain.Spot

	// SlotGroups is set in slot-ordered mode: the single day's spots
	// grouped morning -> afternoon -> night, selection order preserved
	// within each group.
	SlotGroups [][]domain.Spot

	// SlotOrdered reports that the single-day, time-slot grouping applies.
	SlotOrdered bool
}

// AssignSpotsToDays distributes spots across day buckets.
//
// With maintainTimeOrder set, every spot lands on day 1 grouped by time slot:
// each slot group is sequenced separately so the day flows morning to night.
// With splitDays set, spots split evenly across totalDays in selection order.
// Neither flag puts everything on day 1 unordered, the product default.
func AssignSpotsToDays(spots []domain.Spot, totalDays int, maintainTimeOrder, splitDays bool) Assignment {
	if totalDays < 1 {
		totalDays = 1
	}

	if maintainTimeOrder {
		groups := groupBySlot(spots)

		ordered := make([]domain.Spot, 0, len(spots))
		for _, g := range groups {
			ordered = append(ordered, g...)
		}

		return Assignment{
			Days:        [][]domain.Spot{ordered},
			SlotGroups:  groups,
			SlotOrdered: true,
		}
	}

	if splitDays && totalDays > 1 {
		return Assignment{Days: SplitBySize(spots, totalDays)}
	}

	return Assignment{Days: [][]domain.Spot{spots}}
}

// SplitBySize orders spots by ascending slot priority (morning first, spots
// without a known slot last) and cuts the sequence into count contiguous
// chunks of ceil(n/count) spots. Only the final non-empty bucket may be
// shorter; the stable sort keeps selection order within a slot.
func SplitBySize(spots []domain.Spot, count int) [][]domain.Spot {
	if count < 1 {
		count = 1
	}

	ordered := append([]domain.Spot(nil), spots...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TimeSlot.Priority() < ordered[j].TimeSlot.Priority()
	})

	buckets := make([][]domain.Spot, count)
	if len(ordered) == 0 {
		return buckets
	}

	size := (len(ordered) + count - 1) / count
	for i := 0; i < count; i++ {
		lo := i * size
		if lo >= len(ordered) {
			break
		}
		hi := lo + size
		if hi > len(ordered) {
			hi = len(ordered)
		}
		buckets[i] = ordered[lo:hi]
	}

	return buckets
}

// groupBySlot buckets spots by normalized slot and returns the non-empty
// groups in slot priority order. The sort is stable so selection order
// survives within a group.
func groupBySlot(spots []domain.Spot) [][]domain.Spot {
	ordered := append([]domain.Spot(nil), spots...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].TimeSlot.Normalize().Priority() < ordered[j].TimeSlot.Normalize().Priority()
	})

	var groups [][]domain.Spot
	for _, s := range ordered {
		slot := s.TimeSlot.Normalize()
		if len(groups) == 0 || groups[len(groups)-1][0].TimeSlot.Normalize() != slot {
			groups = append(groups, []domain.Spot{s})
			continue
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], s)
	}

	return groups
}
