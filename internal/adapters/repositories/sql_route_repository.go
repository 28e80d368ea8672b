package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"trip-route-service/internal/domain"
	"trip-route-service/internal/platform/obs"
)

// SQLRouteRepository is the postgres-backed implementation of the
// RouteRepository port. Day payloads (ordered spots, geometry) and segment
// steps are stored as JSONB.
type SQLRouteRepository struct {
	DB *sql.DB
}

func NewSQLRouteRepository(db *sql.DB) *SQLRouteRepository {
	return &SQLRouteRepository{DB: db}
}

// Persist a new route with all of its days and segments in one transaction.
func (s *SQLRouteRepository) Create(ctx context.Context, route *domain.Route) (err error) {
	defer obs.Time(ctx, "routes.repo.Create")(&err)

	if s.DB == nil {
		return errors.New("route repository: db is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("create route: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := `
	INSERT INTO routes (
        plan_id, version, total_days,
        departure_location, hotel_location,
        total_distance_meters, total_duration_seconds, total_spots_count
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    RETURNING id, calculated_at;
	`
	err = tx.QueryRowContext(ctx, q,
		route.PlanID, route.Version, route.TotalDays,
		route.DepartureLocation, route.HotelLocation,
		route.TotalDistanceMeters, route.TotalDurationSeconds, route.TotalSpotsCount,
	).Scan(&route.ID, &route.CalculatedAt)
	if err != nil {
		return fmt.Errorf("create route plan=%q version=%d: %w", route.PlanID, route.Version, err)
	}

	if err := s.insertDays(ctx, tx, route); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("create route commit: %w", err)
	}

	return nil
}

// Replace the stored route's summary, days and segments with the given
// state. The route row is locked for the duration of the transaction so
// concurrent partial updates serialize instead of clobbering each other.
func (s *SQLRouteRepository) Update(ctx context.Context, route *domain.Route) (err error) {
	defer obs.Time(ctx, "routes.repo.Update")(&err)

	if s.DB == nil {
		return errors.New("route repository: db is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update route: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `
	SELECT id FROM routes
    WHERE plan_id = $1 AND version = $2
    FOR UPDATE;
	`, route.PlanID, route.Version).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrRouteNotFound
	}
	if err != nil {
		return fmt.Errorf("update route: lock route row: %w", err)
	}
	route.ID = id

	_, err = tx.ExecContext(ctx, `
	UPDATE routes SET
        total_days = $2,
        departure_location = $3,
        hotel_location = $4,
        total_distance_meters = $5,
        total_duration_seconds = $6,
        total_spots_count = $7
    WHERE id = $1;
	`, id, route.TotalDays, route.DepartureLocation, route.HotelLocation,
		route.TotalDistanceMeters, route.TotalDurationSeconds, route.TotalSpotsCount)
	if err != nil {
		return fmt.Errorf("update route summary: %w", err)
	}

	// Segments cascade with their days.
	if _, err := tx.ExecContext(ctx, `DELETE FROM route_days WHERE route_id = $1;`, id); err != nil {
		return fmt.Errorf("update route: clear days: %w", err)
	}

	if err := s.insertDays(ctx, tx, route); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update route commit: %w", err)
	}

	return nil
}

func (s *SQLRouteRepository) insertDays(ctx context.Context, tx *sql.Tx, route *domain.Route) error {
	dayStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO route_days (
        route_id, day_number, start_location, end_location,
        distance_meters, duration_seconds, ordered_spots, route_geometry, stale
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    RETURNING id;
	`)
	if err != nil {
		return fmt.Errorf("insert route days: prepare: %w", err)
	}
	defer dayStmt.Close()

	segStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO route_segments (
        route_day_id, segment_order, from_location, to_spot_id, to_spot_name,
        distance_meters, duration_seconds, travel_mode, steps
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`)
	if err != nil {
		return fmt.Errorf("insert route segments: prepare: %w", err)
	}
	defer segStmt.Close()

	for i := range route.Days {
		day := &route.Days[i]
		day.RouteID = route.ID

		spotsJSON, err := json.Marshal(day.OrderedSpots)
		if err != nil {
			return fmt.Errorf("marshal ordered spots day=%d: %w", day.DayNumber, err)
		}

		var geomJSON any
		if day.Geometry != nil {
			b, err := json.Marshal(day.Geometry)
			if err != nil {
				return fmt.Errorf("marshal route geometry day=%d: %w", day.DayNumber, err)
			}
			geomJSON = b
		}

		err = dayStmt.QueryRowContext(ctx,
			route.ID, day.DayNumber, day.StartLocation, day.EndLocation,
			day.DistanceMeters, day.DurationSeconds, spotsJSON, geomJSON, day.Stale,
		).Scan(&day.ID)
		if err != nil {
			return fmt.Errorf("insert route day=%d: %w", day.DayNumber, err)
		}

		for j := range day.Segments {
			seg := &day.Segments[j]
			seg.RouteDayID = day.ID

			var stepsJSON any
			if len(seg.Steps) > 0 {
				b, err := json.Marshal(seg.Steps)
				if err != nil {
					return fmt.Errorf("marshal segment steps day=%d order=%d: %w", day.DayNumber, seg.SegmentOrder, err)
				}
				stepsJSON = b
			}

			_, err = segStmt.ExecContext(ctx,
				day.ID, seg.SegmentOrder, seg.FromLocation, seg.ToSpotID, seg.ToSpotName,
				seg.DistanceMeters, seg.DurationSeconds, string(seg.TravelMode), stepsJSON,
			)
			if err != nil {
				return fmt.Errorf("insert route segment day=%d order=%d: %w", day.DayNumber, seg.SegmentOrder, err)
			}
		}
	}

	return nil
}

// Retrieve the route for one plan version, including days and segments.
func (s *SQLRouteRepository) GetByPlanVersion(ctx context.Context, planID string, version int) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "routes.repo.GetByPlanVersion")(&err)

	return s.getOne(ctx, `
	SELECT id, plan_id, version, total_days,
        departure_location, hotel_location,
        total_distance_meters, total_duration_seconds, total_spots_count,
        calculated_at
    FROM routes
    WHERE plan_id = $1 AND version = $2;
	`, planID, version)
}

// Retrieve the highest-version route stored for the plan.
func (s *SQLRouteRepository) GetLatest(ctx context.Context, planID string) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "routes.repo.GetLatest")(&err)

	return s.getOne(ctx, `
	SELECT id, plan_id, version, total_days,
        departure_location, hotel_location,
        total_distance_meters, total_duration_seconds, total_spots_count,
        calculated_at
    FROM routes
    WHERE plan_id = $1
    ORDER BY version DESC
    LIMIT 1;
	`, planID)
}

func (s *SQLRouteRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Route, error) {
	if s.DB == nil {
		return nil, errors.New("route repository: db is nil")
	}

	route := &domain.Route{}
	err := s.DB.QueryRowContext(ctx, query, args...).Scan(
		&route.ID, &route.PlanID, &route.Version, &route.TotalDays,
		&route.DepartureLocation, &route.HotelLocation,
		&route.TotalDistanceMeters, &route.TotalDurationSeconds, &route.TotalSpotsCount,
		&route.CalculatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRouteNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get route: query routes table: %w", err)
	}

	if err := s.loadDays(ctx, route); err != nil {
		return nil, err
	}

	return route, nil
}

func (s *SQLRouteRepository) loadDays(ctx context.Context, route *domain.Route) error {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT id, day_number, start_location, end_location,
        distance_meters, duration_seconds, ordered_spots, route_geometry, stale
    FROM route_days
    WHERE route_id = $1
    ORDER BY day_number;
	`, route.ID)
	if err != nil {
		return fmt.Errorf("get route: query route_days table: %w", err)
	}
	defer rows.Close()

	dayIDs := make([]int64, 0, 8)
	for rows.Next() {
		var (
			day       domain.RouteDay
			spotsJSON []byte
			geomJSON  []byte
		)
		err := rows.Scan(
			&day.ID, &day.DayNumber, &day.StartLocation, &day.EndLocation,
			&day.DistanceMeters, &day.DurationSeconds, &spotsJSON, &geomJSON, &day.Stale,
		)
		if err != nil {
			return fmt.Errorf("get route: scan route_days row: %w", err)
		}
		day.RouteID = route.ID

		if err := json.Unmarshal(spotsJSON, &day.OrderedSpots); err != nil {
			return fmt.Errorf("unmarshal ordered spots day=%d: %w", day.DayNumber, err)
		}
		if len(geomJSON) > 0 {
			var g domain.RouteGeometry
			if err := json.Unmarshal(geomJSON, &g); err != nil {
				return fmt.Errorf("unmarshal route geometry day=%d: %w", day.DayNumber, err)
			}
			day.Geometry = &g
		}

		route.Days = append(route.Days, day)
		dayIDs = append(dayIDs, day.ID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("get route: route_days iteration: %w", err)
	}

	if len(dayIDs) == 0 {
		return nil
	}

	return s.loadSegments(ctx, route, dayIDs)
}

func (s *SQLRouteRepository) loadSegments(ctx context.Context, route *domain.Route, dayIDs []int64) error {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT id, route_day_id, segment_order, from_location, to_spot_id, to_spot_name,
        distance_meters, duration_seconds, travel_mode, steps
    FROM route_segments
    WHERE route_day_id = ANY($1::bigint[])
    ORDER BY route_day_id, segment_order;
	`, dayIDs)
	if err != nil {
		return fmt.Errorf("get route: query route_segments table: %w", err)
	}
	defer rows.Close()

	byDay := make(map[int64]*domain.RouteDay, len(route.Days))
	for i := range route.Days {
		byDay[route.Days[i].ID] = &route.Days[i]
	}

	for rows.Next() {
		var (
			seg       domain.RouteSegment
			mode      string
			stepsJSON []byte
		)
		err := rows.Scan(
			&seg.ID, &seg.RouteDayID, &seg.SegmentOrder, &seg.FromLocation,
			&seg.ToSpotID, &seg.ToSpotName,
			&seg.DistanceMeters, &seg.DurationSeconds, &mode, &stepsJSON,
		)
		if err != nil {
			return fmt.Errorf("get route: scan route_segments row: %w", err)
		}
		seg.TravelMode = domain.TravelMode(mode)

		if len(stepsJSON) > 0 {
			if err := json.Unmarshal(stepsJSON, &seg.Steps); err != nil {
				return fmt.Errorf("unmarshal segment steps id=%d: %w", seg.ID, err)
			}
		}

		day, ok := byDay[seg.RouteDayID]
		if !ok {
			return fmt.Errorf("get route: segment %d references unknown day %d", seg.ID, seg.RouteDayID)
		}
		day.Segments = append(day.Segments, seg)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("get route: route_segments iteration: %w", err)
	}

	return nil
}

// Delete the route stored for one plan version. Days and segments cascade.
func (s *SQLRouteRepository) DeleteByPlanVersion(ctx context.Context, planID string, version int) (err error) {
	defer obs.Time(ctx, "routes.repo.Delete")(&err)

	if s.DB == nil {
		return errors.New("route repository: db is nil")
	}

	res, err := s.DB.ExecContext(ctx, `
	DELETE FROM routes WHERE plan_id = $1 AND version = $2;
	`, planID, version)
	if err != nil {
		return fmt.Errorf("delete route plan=%q version=%d: %w", planID, version, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete route: rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrRouteNotFound
	}

	return nil
}
