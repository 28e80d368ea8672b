package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"trip-route-service/internal/api/dto"
	"trip-route-service/internal/domain"
	"trip-route-service/internal/services"
)

type RouteHandler struct {
	Service *services.RouteService
}

// Calculate runs a full planning pass and returns the persisted route.
func (h *RouteHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.CalculateRouteRequest
	if !decodeStrict(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.PlanID) == "" {
		writeError(w, r, http.StatusBadRequest, "plan_id is required")
		return
	}
	if req.Version < 1 {
		writeError(w, r, http.StatusBadRequest, "version must be at least 1")
		return
	}

	mode, err := domain.ParseTravelMode(req.TravelMode)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown travel_mode")
		return
	}

	optimizeFor := domain.OptimizeDistance
	if req.OptimizeFor != "" {
		switch domain.OptimizeFor(req.OptimizeFor) {
		case domain.OptimizeDistance, domain.OptimizeTime:
			optimizeFor = domain.OptimizeFor(req.OptimizeFor)
		default:
			writeError(w, r, http.StatusBadRequest, "optimize_for must be distance or time")
			return
		}
	}

	departure := coordinateFromDTO(req.Departure)
	if (departure == domain.Coordinate{}) && req.DepartureOverride != "" {
		parsed, ok := domain.ParseCoordinate(req.DepartureOverride)
		if !ok {
			parsed = domain.DefaultDeparture
		}
		departure = parsed
	}

	svcReq := services.CalculateRequest{
		PlanID:            req.PlanID,
		Version:           req.Version,
		Departure:         departure,
		Spots:             spotsFromDTO(req.Spots),
		TotalDays:         req.TotalDays,
		MaintainTimeOrder: req.MaintainTimeOrder,
		SplitDays:         req.SplitDays,
		Mode:              mode,
		OptimizeFor:       optimizeFor,
		IncludeDetails:    req.IncludeDetails,
	}
	switch {
	case req.Hotel != nil:
		hotel := coordinateFromDTO(*req.Hotel)
		svcReq.Hotel = &hotel
	case req.HotelOverride != "":
		if hotel, ok := domain.ParseCoordinate(req.HotelOverride); ok {
			hotel.Name = "Hotel"
			svcReq.Hotel = &hotel
		} else {
			writeError(w, r, http.StatusBadRequest, "hotel_override must be \"lat,lng\"")
			return
		}
	}

	route, err := h.Service.CalculateRoute(r.Context(), svcReq)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, routeToDTO(route))
}

// Details returns the stored route for a specific plan version.
func (h *RouteHandler) Details(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	planID, version, ok := planVersionParams(w, r)
	if !ok {
		return
	}

	route, err := h.Service.GetRouteDetails(r.Context(), planID, version)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, routeToDTO(route))
}

// Latest returns the highest-version stored route for a plan.
func (h *RouteHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	planID := strings.TrimSpace(r.URL.Query().Get("plan_id"))
	if planID == "" {
		writeError(w, r, http.StatusBadRequest, "plan_id is required")
		return
	}

	route, err := h.Service.GetLatestRoute(r.Context(), planID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, routeToDTO(route))
}

// Delete removes the stored route for a specific plan version.
func (h *RouteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.Header().Set("Allow", http.MethodDelete)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	planID, version, ok := planVersionParams(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteRoute(r.Context(), planID, version); err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}

// UpdateHotel relocates the stored route's hotel.
func (h *RouteHandler) UpdateHotel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.UpdateHotelRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PlanID) == "" {
		writeError(w, r, http.StatusBadRequest, "plan_id is required")
		return
	}

	res, err := h.Service.UpdateHotel(r.Context(), req.PlanID, req.Version, coordinateFromDTO(req.Hotel))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, updateToDTO(res))
}

// UpdateTravelMode switches the stored route's transport mode.
func (h *RouteHandler) UpdateTravelMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.UpdateTravelModeRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PlanID) == "" {
		writeError(w, r, http.StatusBadRequest, "plan_id is required")
		return
	}

	mode, err := domain.ParseTravelMode(req.TravelMode)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "unknown travel_mode")
		return
	}

	res, err := h.Service.UpdateTravelMode(r.Context(), req.PlanID, req.Version, mode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, updateToDTO(res))
}

// ReorderDaySpots rewrites one stored day's visiting order.
func (h *RouteHandler) ReorderDaySpots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.ReorderDaySpotsRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PlanID) == "" {
		writeError(w, r, http.StatusBadRequest, "plan_id is required")
		return
	}
	if req.DayNumber < 1 {
		writeError(w, r, http.StatusBadRequest, "day_number must be at least 1")
		return
	}
	if len(req.NewSpotOrder) == 0 {
		writeError(w, r, http.StatusBadRequest, "new_spot_order is required")
		return
	}

	res, err := h.Service.ReorderDaySpots(r.Context(), req.PlanID, req.Version, req.DayNumber, req.NewSpotOrder)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, updateToDTO(res))
}

// ReplaceSpot swaps one spot of a stored day without recomputing the route.
func (h *RouteHandler) ReplaceSpot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req dto.ReplaceSpotRequest
	if !decodeStrict(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.PlanID) == "" {
		writeError(w, r, http.StatusBadRequest, "plan_id is required")
		return
	}
	if strings.TrimSpace(req.OldSpotID) == "" || strings.TrimSpace(req.NewSpot.ID) == "" {
		writeError(w, r, http.StatusBadRequest, "old_spot_id and new_spot.id are required")
		return
	}

	newSpot := domain.Spot{
		ID:        req.NewSpot.ID,
		Name:      req.NewSpot.Name,
		Latitude:  req.NewSpot.Latitude,
		Longitude: req.NewSpot.Longitude,
		TimeSlot:  domain.TimeSlot(req.NewSpot.TimeSlot),
	}

	res, err := h.Service.ReplaceSpot(r.Context(), req.PlanID, req.Version, req.DayNumber, req.OldSpotID, newSpot)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, updateToDTO(res))
}

func planVersionParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	planID := strings.TrimSpace(r.URL.Query().Get("plan_id"))
	if planID == "" {
		writeError(w, r, http.StatusBadRequest, "plan_id is required")
		return "", 0, false
	}

	version, err := strconv.Atoi(r.URL.Query().Get("version"))
	if err != nil || version < 1 {
		writeError(w, r, http.StatusBadRequest, "version must be a positive integer")
		return "", 0, false
	}

	return planID, version, true
}

// writeServiceError maps domain sentinels to HTTP statuses. Anything
// unrecognized is logged and reported as an opaque 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrRouteNotFound),
		errors.Is(err, domain.ErrDayNotFound),
		errors.Is(err, domain.ErrSpotNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrNoSpotsSelected),
		errors.Is(err, domain.ErrNoDeparture),
		errors.Is(err, domain.ErrInvalidSpotOrder):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrCostMatrixUnavailable):
		writeError(w, r, http.StatusBadGateway, "distance provider unavailable")
	default:
		log.Printf("request failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func coordinateFromDTO(c dto.Coordinate) domain.Coordinate {
	return domain.Coordinate{Latitude: c.Latitude, Longitude: c.Longitude, Name: c.Name}
}

func spotsFromDTO(in []dto.Spot) []domain.Spot {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Spot, 0, len(in))
	for _, s := range in {
		out = append(out, domain.Spot{
			ID:        s.ID,
			Name:      s.Name,
			Latitude:  s.Latitude,
			Longitude: s.Longitude,
			TimeSlot:  domain.TimeSlot(s.TimeSlot),
		})
	}
	return out
}

func updateToDTO(res services.UpdateResult) dto.UpdateResponse {
	return dto.UpdateResponse{
		Success:       res.Success,
		Message:       res.Message,
		UpdatedFields: res.UpdatedFields,
	}
}

func routeToDTO(route *domain.Route) dto.RouteResponse {
	out := dto.RouteResponse{
		PlanID:               route.PlanID,
		Version:              route.Version,
		TotalDays:            route.TotalDays,
		DepartureLocation:    route.DepartureLocation,
		HotelLocation:        route.HotelLocation,
		TotalDistanceMeters:  route.TotalDistanceMeters,
		TotalDurationSeconds: route.TotalDurationSeconds,
		TotalSpotsCount:      route.TotalSpotsCount,
		CalculatedAt:         route.CalculatedAt,
		Days:                 make([]dto.DayResponse, 0, len(route.Days)),
	}

	for _, day := range route.Days {
		d := dto.DayResponse{
			DayNumber:        day.DayNumber,
			StartLocation:    day.StartLocation,
			EndLocation:      day.EndLocation,
			DistanceMeters:   day.DistanceMeters,
			DurationSeconds:  day.DurationSeconds,
			SolveTimeSeconds: day.OrderedSpots.Optimization.SolveTimeSeconds,
			Stale:            day.Stale,
			Spots:            make([]dto.SpotVisitResponse, 0, len(day.OrderedSpots.Spots)),
			Segments:         make([]dto.SegmentResponse, 0, len(day.Segments)),
		}
		if day.Geometry != nil {
			d.Polyline = day.Geometry.Polyline
		}

		for _, v := range day.OrderedSpots.Spots {
			d.Spots = append(d.Spots, dto.SpotVisitResponse{
				Order:     v.Order,
				SpotID:    v.SpotID,
				Name:      v.Name,
				Latitude:  v.Latitude,
				Longitude: v.Longitude,
				TimeSlot:  string(v.TimeSlot),
				IsSpot:    v.IsSpot,
			})
		}

		for _, seg := range day.Segments {
			sr := dto.SegmentResponse{
				SegmentOrder:    seg.SegmentOrder,
				FromLocation:    seg.FromLocation,
				ToSpotID:        seg.ToSpotID,
				ToSpotName:      seg.ToSpotName,
				DistanceMeters:  seg.DistanceMeters,
				DurationSeconds: seg.DurationSeconds,
				TravelMode:      string(seg.TravelMode),
			}
			for _, st := range seg.Steps {
				sr.Steps = append(sr.Steps, dto.PathStepResponse{
					Instruction:     st.Instruction,
					DistanceMeters:  st.DistanceMeters,
					DurationSeconds: st.DurationSeconds,
					Polyline:        st.Polyline,
				})
			}
			d.Segments = append(d.Segments, sr)
		}

		out.Days = append(out.Days, d)
	}

	return out
}
