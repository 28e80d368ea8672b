package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"trip-route-service/internal/domain"
)

// SQLSpotSource reads a plan's selected spots and trip length from the
// shared planning tables. It implements both SelectedSpotSource and
// TripLengthSource.
type SQLSpotSource struct {
	DB *sql.DB
}

func NewSQLSpotSource(db *sql.DB) *SQLSpotSource {
	return &SQLSpotSource{DB: db}
}

// Retrieve the selected spots for the plan, in selection order.
func (s *SQLSpotSource) SelectedSpots(ctx context.Context, planID string) ([]domain.Spot, error) {
	if s.DB == nil {
		return nil, errors.New("spot source: db is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `
	SELECT spot_id, name, latitude, longitude, time_slot
    FROM plan_spots
    WHERE plan_id = $1 AND selected
    ORDER BY selection_order, spot_id;
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("selected spots: query plan_spots table: %w", err)
	}
	defer rows.Close()

	spots := make([]domain.Spot, 0, 16)
	for rows.Next() {
		var sp domain.Spot
		var slot string
		if err := rows.Scan(&sp.ID, &sp.Name, &sp.Latitude, &sp.Longitude, &slot); err != nil {
			return nil, fmt.Errorf("selected spots: scan row: %w", err)
		}
		sp.TimeSlot = domain.TimeSlot(slot)
		spots = append(spots, sp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("selected spots: row iteration: %w", err)
	}

	return spots, nil
}

// Retrieve the number of days the plan spans, derived from its date range.
// A plan without stored dates, or with an inverted range, counts as one day.
func (s *SQLSpotSource) TotalDays(ctx context.Context, planID string) (int, error) {
	if s.DB == nil {
		return 0, errors.New("spot source: db is nil")
	}

	var start, end time.Time
	err := s.DB.QueryRowContext(ctx, `
	SELECT start_date, end_date FROM plan_info WHERE plan_id = $1;
	`, planID).Scan(&start, &end)
	if errors.Is(err, sql.ErrNoRows) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("total days: query plan_info table: %w", err)
	}

	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		days = 1
	}
	return days, nil
}
