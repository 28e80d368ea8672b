package domain

import "errors"

var (
	// ErrNoSpotsSelected means the plan has no selected spots to route.
	ErrNoSpotsSelected = errors.New("no spots selected for plan")

	// ErrNoDeparture means the plan has no departure location.
	ErrNoDeparture = errors.New("no departure location for plan")

	// ErrCostMatrixUnavailable means every provider request for the plan's
	// cost matrix failed and no usable entries exist.
	ErrCostMatrixUnavailable = errors.New("cost matrix unavailable")

	// ErrRouteNotFound means no stored route matches the requested plan
	// and version.
	ErrRouteNotFound = errors.New("route not found")

	// ErrDayNotFound means the stored route has no day with the requested
	// day number.
	ErrDayNotFound = errors.New("route day not found")

	// ErrSpotNotFound means the referenced spot does not appear in the
	// stored day it was expected in.
	ErrSpotNotFound = errors.New("spot not found in route day")

	// ErrInvalidSpotOrder means a requested visiting order is not a
	// permutation of the day's current spots.
	ErrInvalidSpotOrder = errors.New("new order is not a permutation of the day's spots")
)
