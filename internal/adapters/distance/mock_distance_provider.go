package distance

import (
	"context"
	"fmt"
	"sync"

	"trip-route-service/internal/domain"
	"trip-route-service/internal/ports"
)

// MockDistanceProvider serves pairwise costs from an in-memory table.
// Pairs without a configured cost fall back to a synthetic value derived
// from the coordinate indices, so tests only need to pin the edges they
// assert on.
type MockDistanceProvider struct {
	mu sync.Mutex

	costs    map[string]ports.CachedCost
	failPair map[string]bool

	// FailAll makes every PairwiseCost call return sentinel-only matrices.
	FailAll bool

	PairwiseCalls int
	DetailCalls   int
}

func NewMockDistanceProvider() *MockDistanceProvider {
	return &MockDistanceProvider{
		costs:    make(map[string]ports.CachedCost),
		failPair: make(map[string]bool),
	}
}

// SetCost pins the cost of one directed edge, for every travel mode.
func (p *MockDistanceProvider) SetCost(from, to domain.Coordinate, meters, seconds int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.costs[from.Key()+"|"+to.Key()] = ports.CachedCost{DistanceMeters: meters, DurationSeconds: seconds}
}

// FailPair makes one directed edge come back as an ERROR sentinel entry.
func (p *MockDistanceProvider) FailPair(from, to domain.Coordinate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failPair[from.Key()+"|"+to.Key()] = true
}

func (p *MockDistanceProvider) PairwiseCost(
	ctx context.Context,
	origins []domain.Coordinate,
	destinations []domain.Coordinate,
	mode domain.TravelMode,
) (domain.CostMatrix, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.PairwiseCalls++

	matrix := make(domain.CostMatrix, len(origins)*len(destinations))
	for i, from := range origins {
		for j, to := range destinations {
			pair := domain.Pair{From: i, To: j}
			key := from.Key() + "|" + to.Key()

			if p.FailAll || p.failPair[key] {
				matrix[pair] = domain.CostEntry{
					From:            from,
					To:              to,
					DistanceMeters:  domain.SentinelCost,
					DurationSeconds: domain.SentinelCost,
					Status:          domain.CostStatusError,
				}
				continue
			}

			cost, ok := p.costs[key]
			if !ok {
				// Deterministic filler keeps unpinned edges cheap
				// and distinct.
				cost = ports.CachedCost{
					DistanceMeters:  1000 + 100*i + 10*j,
					DurationSeconds: 100 + 10*i + j,
				}
			}
			matrix[pair] = domain.CostEntry{
				From:            from,
				To:              to,
				DistanceMeters:  cost.DistanceMeters,
				DurationSeconds: cost.DurationSeconds,
				Status:          domain.CostStatusOK,
			}
		}
	}

	if p.FailAll {
		return matrix, domain.ErrCostMatrixUnavailable
	}

	return matrix, nil
}

func (p *MockDistanceProvider) DetailedPath(
	ctx context.Context,
	ordered []domain.Coordinate,
	mode domain.TravelMode,
) (ports.PathResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.DetailCalls++

	if len(ordered) < 2 {
		return ports.PathResult{}, nil
	}

	out := ports.PathResult{Polyline: "mock_polyline"}
	for i := 1; i < len(ordered); i++ {
		key := ordered[i-1].Key() + "|" + ordered[i].Key()
		cost, ok := p.costs[key]
		if !ok {
			cost = ports.CachedCost{DistanceMeters: 1000, DurationSeconds: 100}
		}
		out.Legs = append(out.Legs, ports.PathLeg{
			DistanceMeters:  cost.DistanceMeters,
			DurationSeconds: cost.DurationSeconds,
			Steps: []domain.PathStep{{
				Instruction:     fmt.Sprintf("proceed to %s", ordered[i].Name),
				DistanceMeters:  cost.DistanceMeters,
				DurationSeconds: cost.DurationSeconds,
			}},
		})
	}

	return out, nil
}
