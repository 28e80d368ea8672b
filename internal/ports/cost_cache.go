package ports

import "context"

// CachedCost is one cached pairwise travel cost.
type CachedCost struct {
	DistanceMeters  int
	DurationSeconds int
}

// Port: a boundary for caching pairwise travel costs across planning runs.
// Keys are opaque strings built by the caller; a missing key is simply
// absent from the GetMany result.
type CostCache interface {
	GetMany(ctx context.Context, keys []string) (map[string]CachedCost, error)
	PutMany(ctx context.Context, entries map[string]CachedCost) error
}
