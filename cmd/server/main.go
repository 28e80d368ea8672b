package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"trip-route-service/internal/adapters/cache"
	"trip-route-service/internal/adapters/distance"
	"trip-route-service/internal/adapters/repositories"
	"trip-route-service/internal/api"
	"trip-route-service/internal/platform/db"
	"trip-route-service/internal/ports"
	"trip-route-service/internal/services"
)

// main is the application composition root.
// It wires concrete adapters (postgres, Google Maps, redis) behind ports and
// starts the HTTP server.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	port := getEnv("PORT", "8080")

	mapsKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	if strings.TrimSpace(mapsKey) == "" {
		log.Fatal("GOOGLE_MAPS_API_KEY is required")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	pg, err := db.Open(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer pg.Close()

	costCache, closeCache, err := openCostCache()
	if err != nil {
		log.Fatal(err)
	}
	if closeCache != nil {
		defer closeCache()
	}

	provider, err := distance.NewGMapsDistanceProvider(mapsKey, costCache)
	if err != nil {
		log.Fatal(err)
	}

	repo := repositories.NewSQLRouteRepository(pg)
	spotSource := repositories.NewSQLSpotSource(pg)
	calc := services.NewRouteCalculator(provider, services.NewTSPSolver())
	svc := services.NewRouteService(spotSource, spotSource, repo, calc)

	router := api.NewRouter(svc)

	// Timeouts are tuned for cold-cache planning runs (external API latency
	// plus the solver's own budget).
	log.Printf("Server listening addr=:%s", port)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}

// openCostCache prefers redis when REDIS_ADDR is set, falls back to a local
// sqlite file when COST_CACHE_DB is set, and runs uncached otherwise.
func openCostCache() (ports.CostCache, func(), error) {
	if addr := strings.TrimSpace(os.Getenv("REDIS_ADDR")); addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("open cost cache: verify redis connection to %q: %w", addr, err)
		}

		log.Printf("cost cache backend=redis addr=%s", addr)
		return cache.NewRedisCostCache(client, 7*24*time.Hour), func() { _ = client.Close() }, nil
	}

	if path := strings.TrimSpace(os.Getenv("COST_CACHE_DB")); path != "" {
		sqlite, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, nil, fmt.Errorf("open cost cache: open sqlite database %q: %w", path, err)
		}

		c := cache.NewSqliteCostCache(sqlite)
		if err := c.Init(context.Background()); err != nil {
			_ = sqlite.Close()
			return nil, nil, err
		}

		log.Printf("cost cache backend=sqlite path=%s", path)
		return c, func() { _ = sqlite.Close() }, nil
	}

	log.Println("cost cache disabled (set REDIS_ADDR or COST_CACHE_DB to enable)")
	return nil, nil, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
