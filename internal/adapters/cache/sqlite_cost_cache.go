package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"trip-route-service/internal/ports"
)

// SQLite backed cache for pairwise travel costs, for single-process
// deployments without a Redis instance. Keys are expected to be consistent
// (mode and coordinates already canonicalized) by the caller.
type SqliteCostCache struct {
	DB *sql.DB
}

func NewSqliteCostCache(db *sql.DB) *SqliteCostCache {
	return &SqliteCostCache{DB: db}
}

// Init creates the backing table when it does not exist yet.
func (s *SqliteCostCache) Init(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("cost cache: db is nil")
	}

	_, err := s.DB.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS cost_cache (
        cache_key        TEXT PRIMARY KEY,
        distance_meters  INTEGER NOT NULL,
        duration_seconds INTEGER NOT NULL
    );
	`)
	if err != nil {
		return fmt.Errorf("init cost cache: create table: %w", err)
	}

	return nil
}

func (s *SqliteCostCache) GetMany(ctx context.Context, keys []string) (map[string]ports.CachedCost, error) {
	if s.DB == nil {
		return nil, errors.New("cost cache: db is nil")
	}

	if len(keys) == 0 {
		return map[string]ports.CachedCost{}, nil
	}

	seen := map[string]struct{}{}
	uniq := make([]string, 0, len(keys))
	ph := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
		ph = append(ph, "?")
	}

	if len(uniq) == 0 {
		return map[string]ports.CachedCost{}, nil
	}

	args := make([]any, len(uniq))
	for i, k := range uniq {
		args[i] = k
	}

	// SQLite does not support binding slices directly in an IN (...) clause.
	// Only the placeholder structure is interpolated; all values remain parameterized.
	q := fmt.Sprintf(`
	SELECT
        cache_key,
        distance_meters,
        duration_seconds
    FROM cost_cache
    WHERE cache_key IN (%s);
	`, strings.Join(ph, ","))

	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get cost cache: query cost_cache table: %w", err)
	}
	defer rows.Close()

	out := make(map[string]ports.CachedCost, len(uniq))
	for rows.Next() {
		var key string
		var meters, seconds int
		if err := rows.Scan(&key, &meters, &seconds); err != nil {
			return nil, fmt.Errorf("get cost cache: scan rows: %w", err)
		}
		out[key] = ports.CachedCost{
			DistanceMeters:  meters,
			DurationSeconds: seconds,
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get cost cache: row iteration: %w", err)
	}

	return out, nil
}

func (s *SqliteCostCache) PutMany(ctx context.Context, entries map[string]ports.CachedCost) error {
	if s.DB == nil {
		return errors.New("cost cache: db is nil")
	}

	if len(entries) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert cost cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO cost_cache (
        cache_key,
        distance_meters,
        duration_seconds
    )
    VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("insert cost cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for key, c := range entries {
		if key == "" {
			return fmt.Errorf("insert cost cache: empty cache key")
		}

		if _, err := stmt.ExecContext(ctx, key, c.DistanceMeters, c.DurationSeconds); err != nil {
			return fmt.Errorf("insert cost cache key=%q: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert cost cache commit: %w", err)
	}

	return nil
}
