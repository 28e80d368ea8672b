package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Initialize the postgres database schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createRoutesQuery := `
	CREATE TABLE IF NOT EXISTS routes (
        id BIGSERIAL PRIMARY KEY,
        plan_id TEXT NOT NULL,
        version INTEGER NOT NULL,
        total_days INTEGER NOT NULL,
        departure_location TEXT NOT NULL,
        hotel_location TEXT NOT NULL DEFAULT '',
        total_distance_meters INTEGER NOT NULL DEFAULT 0,
        total_duration_seconds INTEGER NOT NULL DEFAULT 0,
        total_spots_count INTEGER NOT NULL DEFAULT 0,
        calculated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
        UNIQUE (plan_id, version)
    );
	`

	createRouteDaysQuery := `
	CREATE TABLE IF NOT EXISTS route_days (
        id BIGSERIAL PRIMARY KEY,
        route_id BIGINT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
        day_number INTEGER NOT NULL,
        start_location TEXT NOT NULL,
        end_location TEXT NOT NULL,
        distance_meters INTEGER NOT NULL DEFAULT 0,
        duration_seconds INTEGER NOT NULL DEFAULT 0,
        ordered_spots JSONB NOT NULL,
        route_geometry JSONB,
        stale BOOLEAN NOT NULL DEFAULT FALSE,
        UNIQUE (route_id, day_number)
    );
	`

	createRouteSegmentsQuery := `
	CREATE TABLE IF NOT EXISTS route_segments (
        id BIGSERIAL PRIMARY KEY,
        route_day_id BIGINT NOT NULL REFERENCES route_days(id) ON DELETE CASCADE,
        segment_order INTEGER NOT NULL,
        from_location TEXT NOT NULL,
        to_spot_id TEXT NOT NULL DEFAULT '',
        to_spot_name TEXT NOT NULL DEFAULT '',
        distance_meters INTEGER NOT NULL DEFAULT 0,
        duration_seconds INTEGER NOT NULL DEFAULT 0,
        travel_mode TEXT NOT NULL DEFAULT 'DRIVING',
        steps JSONB
    );
	`

	createPlanSpotsQuery := `
	CREATE TABLE IF NOT EXISTS plan_spots (
        plan_id TEXT NOT NULL,
        spot_id TEXT NOT NULL,
        name TEXT NOT NULL,
        latitude DOUBLE PRECISION NOT NULL,
        longitude DOUBLE PRECISION NOT NULL,
        time_slot TEXT NOT NULL DEFAULT '',
        selected BOOLEAN NOT NULL DEFAULT TRUE,
        selection_order INTEGER NOT NULL DEFAULT 0,
        PRIMARY KEY (plan_id, spot_id)
    );
	`

	createPlanInfoQuery := `
	CREATE TABLE IF NOT EXISTS plan_info (
        plan_id TEXT PRIMARY KEY,
        start_date DATE NOT NULL,
        end_date DATE NOT NULL
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_route_segments_day_order
    ON route_segments(route_day_id, segment_order);
	`

	statements := []string{
		createRoutesQuery,
		createRouteDaysQuery,
		createRouteSegmentsQuery,
		createPlanSpotsQuery,
		createPlanInfoQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type SpotSeed struct {
	PlanID    string  `json:"plan_id"`
	SpotID    string  `json:"spot_id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	TimeSlot  string  `json:"time_slot"`
	Selected  *bool   `json:"selected"`
}

// Populate the database with plan spot data from a JSON file.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed spots: read %q: %w", jsonPath, err)
	}

	var data []SpotSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed spots: parse json: %w", err)
	}

	for i, item := range data {
		if strings.TrimSpace(item.PlanID) == "" {
			return fmt.Errorf("seed spots: empty plan_id at index %d", i+1)
		}
		if strings.TrimSpace(item.SpotID) == "" {
			return fmt.Errorf("seed spots: empty spot_id at index %d", i+1)
		}
		if strings.TrimSpace(item.Name) == "" {
			return fmt.Errorf("seed spots: empty name at index %d", i+1)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed spots: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO plan_spots (
        plan_id, spot_id, name, latitude, longitude, time_slot, selected, selection_order
    )
    VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    ON CONFLICT (plan_id, spot_id) DO UPDATE SET
        name = EXCLUDED.name,
        latitude = EXCLUDED.latitude,
        longitude = EXCLUDED.longitude,
        time_slot = EXCLUDED.time_slot,
        selected = EXCLUDED.selected,
        selection_order = EXCLUDED.selection_order;
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("seed spots: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, s := range data {
		selected := true
		if s.Selected != nil {
			selected = *s.Selected
		}
		_, err := stmt.ExecContext(ctx,
			s.PlanID, s.SpotID, strings.TrimSpace(s.Name),
			s.Latitude, s.Longitude, s.TimeSlot, selected, i,
		)
		if err != nil {
			return fmt.Errorf("seed spots: insert spot_id=%q: %w", s.SpotID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed spots: commit tx: %w", err)
	}

	return nil
}
