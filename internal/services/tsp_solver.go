package services

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/katalvlaran/lvlath/matrix"
	"github.com/katalvlaran/lvlath/tsp"

	"trip-route-service/internal/domain"
)

const (
	// Exact search gives up after this budget and the greedy fallback runs.
	defaultSolveTimeLimit = 30 * time.Second

	// Held-Karp is O(n^2 * 2^n); past this size the branch-and-bound
	// search takes over.
	defaultMaxExactNodes = 13

	maxTwoOptSweeps = 100

	// Edge price used to forbid a closing edge when forcing an end node.
	// Far above any real cost, far below float64 saturation.
	forcedEdgeBlock = 1e9
)

// TSPSolver orders a day's visit sequence as an open path.
//
// It first attempts an exact solve (Held-Karp for small instances,
// branch-and-bound above that) and falls back to nearest-neighbor with
// first-improvement 2-opt when the exact search fails or times out.
// Reported metrics are always replayed from the cost matrix, never taken
// from the solver's internal objective.
type TSPSolver struct {
	TimeLimit     time.Duration
	MaxExactNodes int
	DisableExact  bool
}

func NewTSPSolver() *TSPSolver {
	return &TSPSolver{
		TimeLimit:     defaultSolveTimeLimit,
		MaxExactNodes: defaultMaxExactNodes,
	}
}

// SolveOpenPath orders the local node indices 0..n-1 of m into a low-cost
// open path starting at start. When end is non-negative and distinct from
// start, the path is constrained to finish there; otherwise it may finish
// at any node. Zero nodes is not an error: the result is simply empty.
func (s *TSPSolver) SolveOpenPath(
	m domain.CostMatrix,
	n, start, end int,
	optimizeFor domain.OptimizeFor,
) (domain.TSPSolution, error) {
	began := time.Now()

	if n <= 0 {
		return buildSolution(m, nil, time.Since(began)), nil
	}
	if start < 0 || start >= n {
		return domain.TSPSolution{}, fmt.Errorf("solve open path: start %d out of range [0,%d)", start, n)
	}
	if end >= n {
		return domain.TSPSolution{}, fmt.Errorf("solve open path: end %d out of range [0,%d)", end, n)
	}
	if end == start {
		end = -1
	}

	var order []int
	switch {
	case n == 1:
		order = []int{start}
	case n == 2:
		other := 0
		if other == start {
			other = 1
		}
		order = []int{start, other}
	default:
		if !s.DisableExact {
			got, err := s.solveExact(m, n, start, end, optimizeFor)
			if err != nil {
				log.Printf("exact tour solve failed, using heuristic: n=%d err=%v", n, err)
			} else {
				order = got
			}
		}
		if order == nil {
			order = s.solveHeuristic(m, n, start, end, optimizeFor)
		}
	}

	return buildSolution(m, order, time.Since(began)), nil
}

// solveExact finds the optimal closed tour and cuts it open at the start.
// A required end node is enforced by pricing every other closing edge at
// forcedEdgeBlock and the end->start edge at zero, which makes the optimal
// cycle pass through end immediately before returning to start.
func (s *TSPSolver) solveExact(
	m domain.CostMatrix,
	n, start, end int,
	optimizeFor domain.OptimizeFor,
) ([]int, error) {
	dense, err := matrix.NewDense(n, n)
	if err != nil {
		return nil, fmt.Errorf("allocate cost matrix: %w", err)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c := m.Cost(i, j, optimizeFor)
			if end >= 0 && j == start && i != start {
				if i == end {
					c = 0
				} else {
					c = forcedEdgeBlock
				}
			}
			if err := dense.Set(i, j, c); err != nil {
				return nil, fmt.Errorf("fill cost matrix (%d,%d): %w", i, j, err)
			}
		}
	}

	opts := tsp.DefaultOptions()
	opts.Symmetric = false
	opts.StartVertex = start
	opts.TimeLimit = s.TimeLimit
	if n <= s.MaxExactNodes {
		opts.Algo = tsp.ExactHeldKarp
	} else {
		opts.Algo = tsp.BranchAndBound
	}

	res, err := tsp.SolveWithMatrix(dense, nil, opts)
	if err != nil {
		return nil, fmt.Errorf("exact tour: %w", err)
	}

	order := cutTourAt(res.Tour, start)
	if len(order) != n {
		return nil, fmt.Errorf("exact tour has %d nodes, want %d", len(order), n)
	}
	if end >= 0 && order[len(order)-1] != end {
		return nil, fmt.Errorf("exact tour finishes at %d, want %d", order[len(order)-1], end)
	}

	return order, nil
}

// cutTourAt rotates a closed tour so it starts at start and strips the
// closing vertex, yielding the open path.
func cutTourAt(tour []int, start int) []int {
	if len(tour) >= 2 && tour[0] == tour[len(tour)-1] {
		tour = tour[:len(tour)-1]
	}

	pivot := 0
	for i, v := range tour {
		if v == start {
			pivot = i
			break
		}
	}

	out := make([]int, 0, len(tour))
	out = append(out, tour[pivot:]...)
	out = append(out, tour[:pivot]...)
	return out
}

// solveHeuristic runs nearest-neighbor from start (reserving a required end
// node for the final position) and polishes the result with 2-opt.
func (s *TSPSolver) solveHeuristic(
	m domain.CostMatrix,
	n, start, end int,
	optimizeFor domain.OptimizeFor,
) []int {
	visited := make([]bool, n)
	visited[start] = true
	if end >= 0 {
		visited[end] = true
	}

	order := make([]int, 0, n)
	order = append(order, start)

	free := n - 1
	if end >= 0 {
		free--
	}

	current := start
	for len(order) < 1+free {
		best := -1
		bestCost := math.Inf(1)
		// Lowest index wins ties for deterministic output.
		for cand := 0; cand < n; cand++ {
			if visited[cand] {
				continue
			}
			if c := m.Cost(current, cand, optimizeFor); c < bestCost {
				best = cand
				bestCost = c
			}
		}
		visited[best] = true
		order = append(order, best)
		current = best
	}

	if end >= 0 {
		order = append(order, end)
	}

	return s.twoOpt(m, order, end >= 0, optimizeFor)
}

// twoOpt applies first-improvement 2-opt to the open path, keeping the first
// node (and the last, when fixedEnd) in place. Candidate moves are scored by
// full path recomputation so asymmetric matrices are handled correctly.
func (s *TSPSolver) twoOpt(
	m domain.CostMatrix,
	order []int,
	fixedEnd bool,
	optimizeFor domain.OptimizeFor,
) []int {
	last := len(order) - 1
	if fixedEnd {
		last--
	}
	if last < 2 {
		return order
	}

	best := pathCost(m, order, optimizeFor)
	for sweep := 0; sweep < maxTwoOptSweeps; sweep++ {
		improved := false

		for i := 1; i < last && !improved; i++ {
			for j := i + 1; j <= last; j++ {
				candidate := reverseSegment(order, i, j)
				if c := pathCost(m, candidate, optimizeFor); c < best {
					order = candidate
					best = c
					improved = true
					break
				}
			}
		}

		if !improved {
			break
		}
	}

	return order
}

func reverseSegment(order []int, i, j int) []int {
	out := append([]int(nil), order...)
	for l, r := i, j; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}

func pathCost(m domain.CostMatrix, order []int, optimizeFor domain.OptimizeFor) float64 {
	total := 0.0
	for i := 1; i < len(order); i++ {
		total += m.Cost(order[i-1], order[i], optimizeFor)
	}
	return total
}

// buildSolution replays the path against the cost matrix. Edges the provider
// could not measure contribute nothing to the reported totals.
func buildSolution(m domain.CostMatrix, order []int, took time.Duration) domain.TSPSolution {
	sol := domain.TSPSolution{
		OptimalOrder: order,
		SolveTime:    took.Seconds(),
	}

	for i := 1; i < len(order); i++ {
		pair := domain.Pair{From: order[i-1], To: order[i]}
		sol.Segments = append(sol.Segments, pair)

		if e, ok := m.At(pair.From, pair.To); ok && e.Status == domain.CostStatusOK {
			sol.TotalDistanceMeters += e.DistanceMeters
			sol.TotalDurationSeconds += e.DurationSeconds
		}
	}

	return sol
}
