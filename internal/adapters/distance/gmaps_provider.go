package distance

import (
	"errors"
	"net/http"
	"time"

	"trip-route-service/internal/domain"
	"trip-route-service/internal/ports"
)

const (
	// Google caps Distance Matrix requests at 25 origins and 25
	// destinations per call.
	matrixBlockSize = 25

	// Pause between consecutive block dispatches to stay under the
	// provider's per-second element quota.
	interBlockDelay = 100 * time.Millisecond

	maxConcurrentBlocks = 5
)

// GMapsDistanceProvider implements DistanceProvider using the Google Maps
// Distance Matrix and Directions APIs.
//
// It coordinates:
//   - Block-wise matrix fetching within provider request limits
//   - Persistent pairwise cost caching
//   - External API calls with retry/backoff
//
// The provider is safe for concurrent use.
type GMapsDistanceProvider struct {
	session   *http.Client
	apiKey    string
	baseURL   string
	costCache ports.CostCache
}

func NewGMapsDistanceProvider(apiKey string, costCache ports.CostCache) (*GMapsDistanceProvider, error) {
	if apiKey == "" {
		return nil, errors.New("google maps api key is empty")
	}

	provider := &GMapsDistanceProvider{
		session:   &http.Client{Timeout: 15 * time.Second},
		apiKey:    apiKey,
		baseURL:   "https://maps.googleapis.com",
		costCache: costCache,
	}

	return provider, nil
}

// costKey identifies one directed pair under one travel mode.
func costKey(mode domain.TravelMode, from, to domain.Coordinate) string {
	return mode.Param() + "|" + from.Key() + "|" + to.Key()
}
