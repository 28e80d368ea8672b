package api

import (
	"net/http"

	"trip-route-service/internal/api/handlers"
	"trip-route-service/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(svc *services.RouteService) http.Handler {
	mux := http.NewServeMux()

	routeHandler := &handlers.RouteHandler{Service: svc}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/routes/calculate", routeHandler.Calculate)
	mux.HandleFunc("/routes/details", routeHandler.Details)
	mux.HandleFunc("/routes/latest", routeHandler.Latest)
	mux.HandleFunc("/routes", routeHandler.Delete)
	mux.HandleFunc("/routes/hotel", routeHandler.UpdateHotel)
	mux.HandleFunc("/routes/travel-mode", routeHandler.UpdateTravelMode)
	mux.HandleFunc("/routes/reorder", routeHandler.ReorderDaySpots)
	mux.HandleFunc("/routes/replace-spot", routeHandler.ReplaceSpot)

	return loggingMiddleware(mux)
}
