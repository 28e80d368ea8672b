package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"trip-route-service/internal/domain"
	"trip-route-service/internal/platform/obs"
	"trip-route-service/internal/ports"
)

type directionsValue struct {
	Value int `json:"value"`
}

type directionsStep struct {
	HTMLInstructions string          `json:"html_instructions"`
	Distance         directionsValue `json:"distance"`
	Duration         directionsValue `json:"duration"`
	Polyline         struct {
		Points string `json:"points"`
	} `json:"polyline"`
}

type directionsLeg struct {
	Distance directionsValue  `json:"distance"`
	Duration directionsValue  `json:"duration"`
	Steps    []directionsStep `json:"steps"`
}

type directionsRoute struct {
	Legs             []directionsLeg `json:"legs"`
	OverviewPolyline struct {
		Points string `json:"points"`
	} `json:"overview_polyline"`
}

type directionsResponse struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message"`
	Routes       []directionsRoute `json:"routes"`
}

// DetailedPath retrieves the leg-by-leg path visiting the ordered coordinates
// in sequence from the Directions endpoint. Consecutive duplicates are
// collapsed first; fewer than two distinct points is not an error, just an
// empty path.
func (g *GMapsDistanceProvider) DetailedPath(
	ctx context.Context,
	ordered []domain.Coordinate,
	mode domain.TravelMode,
) (_ ports.PathResult, err error) {
	defer obs.Time(ctx, "gmaps.DetailedPath")(&err)

	points := collapseConsecutive(ordered)
	if len(points) < 2 {
		return ports.PathResult{}, nil
	}

	params := url.Values{}
	params.Set("origin", points[0].Key())
	params.Set("destination", points[len(points)-1].Key())
	if len(points) > 2 {
		params.Set("waypoints", joinKeys(points[1:len(points)-1]))
	}
	params.Set("mode", mode.Param())
	params.Set("key", g.apiKey)

	endpoint := g.baseURL + "/maps/api/directions/json?" + params.Encode()

	resp, err := g.doWithRetry(ctx, func() (*http.Request, error) {
		return g.newRequest(ctx, endpoint)
	})
	if err != nil {
		return ports.PathResult{}, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	var dr directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&dr); err != nil {
		return ports.PathResult{}, fmt.Errorf("decode directions response: %w", err)
	}

	if dr.Status != "OK" {
		return ports.PathResult{}, fmt.Errorf("directions status %q: %s", dr.Status, dr.ErrorMessage)
	}

	if len(dr.Routes) == 0 {
		return ports.PathResult{}, fmt.Errorf("directions returned no routes")
	}

	route := dr.Routes[0]
	if len(route.Legs) != len(points)-1 {
		return ports.PathResult{}, fmt.Errorf(
			"leg count does not match waypoints: legs=%d expected=%d",
			len(route.Legs), len(points)-1,
		)
	}

	out := ports.PathResult{
		Legs:     make([]ports.PathLeg, len(route.Legs)),
		Polyline: route.OverviewPolyline.Points,
	}
	for i, leg := range route.Legs {
		steps := make([]domain.PathStep, len(leg.Steps))
		for j, s := range leg.Steps {
			steps[j] = domain.PathStep{
				Instruction:     s.HTMLInstructions,
				DistanceMeters:  s.Distance.Value,
				DurationSeconds: s.Duration.Value,
				Polyline:        s.Polyline.Points,
			}
		}
		out.Legs[i] = ports.PathLeg{
			DistanceMeters:  leg.Distance.Value,
			DurationSeconds: leg.Duration.Value,
			Steps:           steps,
		}
	}

	return out, nil
}

func collapseConsecutive(coords []domain.Coordinate) []domain.Coordinate {
	out := make([]domain.Coordinate, 0, len(coords))
	for _, c := range coords {
		if len(out) > 0 && out[len(out)-1].Key() == c.Key() {
			continue
		}
		out = append(out, c)
	}
	return out
}
