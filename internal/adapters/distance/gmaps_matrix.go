package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"trip-route-service/internal/domain"
	"trip-route-service/internal/platform/obs"
	"trip-route-service/internal/ports"
)

type matrixElement struct {
	Status   string `json:"status"`
	Distance struct {
		Value int `json:"value"`
	} `json:"distance"`
	Duration struct {
		Value int `json:"value"`
	} `json:"duration"`
}

type matrixRow struct {
	Elements []matrixElement `json:"elements"`
}

type matrixResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
	Rows         []matrixRow `json:"rows"`
}

// matrixBlock is one provider-sized slice of the full pairwise request,
// anchored at its offsets in the global origin/destination lists.
type matrixBlock struct {
	originOffset int
	destOffset   int
	origins      []domain.Coordinate
	dests        []domain.Coordinate
}

// PairwiseCost retrieves travel costs for every origin->destination pair,
// splitting the request into provider-sized blocks, serving fully cached
// blocks locally and fetching the rest concurrently. Blocks that fail after
// retry are filled with sentinel entries so the result always covers every
// pair.
func (g *GMapsDistanceProvider) PairwiseCost(
	ctx context.Context,
	origins []domain.Coordinate,
	destinations []domain.Coordinate,
	mode domain.TravelMode,
) (_ domain.CostMatrix, err error) {
	defer obs.Time(ctx, "gmaps.PairwiseCost")(&err)

	matrix := make(domain.CostMatrix, len(origins)*len(destinations))
	if len(origins) == 0 || len(destinations) == 0 {
		return matrix, nil
	}

	cached := g.cachedCosts(ctx, origins, destinations, mode)

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		fetched = make(map[string]ports.CachedCost)
	)
	sem := make(chan struct{}, maxConcurrentBlocks)

	dispatched := 0
	for _, b := range splitBlocks(origins, destinations) {
		if g.fillFromCache(matrix, b, cached, mode) {
			continue
		}

		// Space out dispatches to stay under the per-second quota.
		if dispatched > 0 {
			timer := time.NewTimer(interBlockDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}
		dispatched++

		wg.Add(1)
		sem <- struct{}{}
		go func(b matrixBlock) {
			defer wg.Done()
			defer func() { <-sem }()

			entries, ferr := g.fetchMatrixBlock(ctx, b, mode)

			mu.Lock()
			defer mu.Unlock()

			if ferr != nil {
				log.Printf(
					"distance matrix block at (%d,%d) failed, filling sentinels: %v",
					b.originOffset, b.destOffset, ferr,
				)
				fillSentinel(matrix, b)
				return
			}

			for r, from := range b.origins {
				for c, to := range b.dests {
					e := entries[r][c]
					matrix[domain.Pair{From: b.originOffset + r, To: b.destOffset + c}] = e
					if e.Status == domain.CostStatusOK {
						fetched[costKey(mode, from, to)] = ports.CachedCost{
							DistanceMeters:  e.DistanceMeters,
							DurationSeconds: e.DurationSeconds,
						}
					}
				}
			}
		}(b)
	}
	wg.Wait()

	if g.costCache != nil && len(fetched) > 0 {
		if cerr := g.costCache.PutMany(ctx, fetched); cerr != nil {
			log.Printf("cost cache write failed: %v", cerr)
		}
	}

	usable := false
	for _, e := range matrix {
		if e.Status == domain.CostStatusOK {
			usable = true
			break
		}
	}
	if !usable {
		return matrix, domain.ErrCostMatrixUnavailable
	}

	return matrix, nil
}

// splitBlocks cuts the full pairwise request into provider-sized blocks.
func splitBlocks(origins, destinations []domain.Coordinate) []matrixBlock {
	var blocks []matrixBlock
	for oStart := 0; oStart < len(origins); oStart += matrixBlockSize {
		oEnd := oStart + matrixBlockSize
		if oEnd > len(origins) {
			oEnd = len(origins)
		}
		for dStart := 0; dStart < len(destinations); dStart += matrixBlockSize {
			dEnd := dStart + matrixBlockSize
			if dEnd > len(destinations) {
				dEnd = len(destinations)
			}
			blocks = append(blocks, matrixBlock{
				originOffset: oStart,
				destOffset:   dStart,
				origins:      origins[oStart:oEnd],
				dests:        destinations[dStart:dEnd],
			})
		}
	}
	return blocks
}

// cachedCosts consults the persistent cost cache for every requested pair.
// Cache failures are logged and treated as a full miss.
func (g *GMapsDistanceProvider) cachedCosts(
	ctx context.Context,
	origins []domain.Coordinate,
	destinations []domain.Coordinate,
	mode domain.TravelMode,
) map[string]ports.CachedCost {
	if g.costCache == nil {
		return nil
	}

	keys := make([]string, 0, len(origins)*len(destinations))
	for _, from := range origins {
		for _, to := range destinations {
			keys = append(keys, costKey(mode, from, to))
		}
	}

	hits, err := g.costCache.GetMany(ctx, keys)
	if err != nil {
		log.Printf("cost cache read failed: %v", err)
		return nil
	}
	return hits
}

// fillFromCache serves a block entirely from cache when every pair is a hit.
// Partially cached blocks are re-fetched whole, since a block costs the same
// provider quota regardless of how many pairs it carries.
func (g *GMapsDistanceProvider) fillFromCache(
	matrix domain.CostMatrix,
	b matrixBlock,
	cached map[string]ports.CachedCost,
	mode domain.TravelMode,
) bool {
	for _, from := range b.origins {
		for _, to := range b.dests {
			if _, ok := cached[costKey(mode, from, to)]; !ok {
				return false
			}
		}
	}

	for r, from := range b.origins {
		for c, to := range b.dests {
			hit := cached[costKey(mode, from, to)]
			matrix[domain.Pair{From: b.originOffset + r, To: b.destOffset + c}] = domain.CostEntry{
				From:            from,
				To:              to,
				DistanceMeters:  hit.DistanceMeters,
				DurationSeconds: hit.DurationSeconds,
				Status:          domain.CostStatusOK,
			}
		}
	}
	return true
}

// fillSentinel marks every pair of a failed block as unmeasured.
func fillSentinel(matrix domain.CostMatrix, b matrixBlock) {
	for r, from := range b.origins {
		for c, to := range b.dests {
			matrix[domain.Pair{From: b.originOffset + r, To: b.destOffset + c}] = domain.CostEntry{
				From:            from,
				To:              to,
				DistanceMeters:  domain.SentinelCost,
				DurationSeconds: domain.SentinelCost,
				Status:          domain.CostStatusError,
			}
		}
	}
}

// fetchMatrixBlock retrieves one block from the Distance Matrix endpoint.
// The returned grid is indexed [originRow][destinationColumn] and always has
// the block's dimensions; unresolvable elements carry sentinel entries.
func (g *GMapsDistanceProvider) fetchMatrixBlock(
	ctx context.Context,
	b matrixBlock,
	mode domain.TravelMode,
) ([][]domain.CostEntry, error) {
	params := url.Values{}
	params.Set("origins", joinKeys(b.origins))
	params.Set("destinations", joinKeys(b.dests))
	params.Set("mode", mode.Param())
	params.Set("key", g.apiKey)

	endpoint := g.baseURL + "/maps/api/distancematrix/json?" + params.Encode()

	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		return g.newRequest(ctx, endpoint)
	})
	if err != nil {
		return nil, fmt.Errorf("distance matrix request failed: %w", err)
	}
	defer resp.Body.Close()

	var mr matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode distance matrix response: %w", err)
	}

	if mr.Status != "OK" {
		return nil, fmt.Errorf("distance matrix status %q: %s", mr.Status, mr.ErrorMessage)
	}

	if len(mr.Rows) != len(b.origins) {
		return nil, fmt.Errorf(
			"row count does not match origins: rows=%d origins=%d",
			len(mr.Rows), len(b.origins),
		)
	}

	grid := make([][]domain.CostEntry, len(b.origins))
	for r, from := range b.origins {
		if len(mr.Rows[r].Elements) != len(b.dests) {
			return nil, fmt.Errorf(
				"element count does not match destinations: elements=%d destinations=%d",
				len(mr.Rows[r].Elements), len(b.dests),
			)
		}

		grid[r] = make([]domain.CostEntry, len(b.dests))
		for c, to := range b.dests {
			el := mr.Rows[r].Elements[c]
			if el.Status != "OK" {
				grid[r][c] = domain.CostEntry{
					From:            from,
					To:              to,
					DistanceMeters:  domain.SentinelCost,
					DurationSeconds: domain.SentinelCost,
					Status:          domain.CostStatusError,
				}
				continue
			}
			grid[r][c] = domain.CostEntry{
				From:            from,
				To:              to,
				DistanceMeters:  el.Distance.Value,
				DurationSeconds: el.Duration.Value,
				Status:          domain.CostStatusOK,
			}
		}
	}

	return grid, nil
}

func joinKeys(coords []domain.Coordinate) string {
	keys := make([]string, len(coords))
	for i, c := range coords {
		keys[i] = c.Key()
	}
	return strings.Join(keys, "|")
}
